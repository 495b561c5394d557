package settings

import (
	"github.com/javi11/huntarr/internal/arrs/model"
)

// Keys of the non-app settings documents.
const (
	KeyGeneral = "general"
	KeySwaparr = "swaparr"
)

const (
	MaxHourlyCap     = 250
	MinSleepDuration = 600
)

// AppSettings is the settings document of one hunted app type.
type AppSettings struct {
	Instances          []model.Instance `json:"instances"`
	HuntMissingItems   int              `json:"hunt_missing_items"`
	HuntUpgradeItems   int              `json:"hunt_upgrade_items"`
	SleepDuration      int              `json:"sleep_duration"`
	MonitoredOnly      bool             `json:"monitored_only"`
	SkipFutureEpisodes bool             `json:"skip_future_episodes"`
	HourlyCap          int              `json:"hourly_cap"`
	HuntMissingMode    string           `json:"hunt_missing_mode,omitempty"`
}

// GeneralSettings holds the process-wide and advanced settings.
type GeneralSettings struct {
	APITimeout               int    `json:"api_timeout"`
	CommandWaitDelay         int    `json:"command_wait_delay"`
	CommandWaitAttempts      int    `json:"command_wait_attempts"`
	MinimumDownloadQueueSize int    `json:"minimum_download_queue_size"`
	StatefulManagementHours  int    `json:"stateful_management_hours"`
	SSLVerify                bool   `json:"ssl_verify"`
	LocalAccessBypass        bool   `json:"local_access_bypass"`
	ProxyAuthBypass          bool   `json:"proxy_auth_bypass"`
	LogLevel                 string `json:"log_level"`
}

// SwaparrSettings controls the stalled download check.
type SwaparrSettings struct {
	Enabled          bool   `json:"enabled"`
	MaxStrikes       int    `json:"max_strikes"`
	MaxDownloadTime  string `json:"max_download_time"`
	IgnoreAboveSize  string `json:"ignore_above_size"`
	RemoveFromClient bool   `json:"remove_from_client"`
	DryRun           bool   `json:"dry_run"`
}

// DefaultAppSettings returns the defaults of an app type.
func DefaultAppSettings(app model.AppType) *AppSettings {
	s := &AppSettings{
		Instances:        []model.Instance{},
		HuntMissingItems: 1,
		HuntUpgradeItems: 0,
		SleepDuration:    900,
		MonitoredOnly:    true,
		HourlyCap:        20,
	}
	if app == model.Sonarr {
		s.HuntMissingMode = "seasons_packs"
		s.SkipFutureEpisodes = true
	}
	return s
}

// DefaultGeneralSettings returns the general defaults.
func DefaultGeneralSettings() *GeneralSettings {
	return &GeneralSettings{
		APITimeout:               120,
		CommandWaitDelay:         1,
		CommandWaitAttempts:      600,
		MinimumDownloadQueueSize: -1,
		StatefulManagementHours:  168,
		SSLVerify:                true,
		LogLevel:                 "info",
	}
}

// DefaultSwaparrSettings returns the stalled check defaults.
func DefaultSwaparrSettings() *SwaparrSettings {
	return &SwaparrSettings{
		MaxStrikes:       3,
		MaxDownloadTime:  "2h",
		IgnoreAboveSize:  "25GB",
		RemoveFromClient: true,
	}
}
