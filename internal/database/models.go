package database

import (
	"time"
)

// User is the single account allowed to use the web API
type User struct {
	ID            int64      `db:"id"`
	Username      string     `db:"username"`
	PasswordHash  string     `db:"password_hash"`
	TwoFAEnabled  bool       `db:"two_fa_enabled"`
	TwoFASecret   *string    `db:"two_fa_secret"`
	Temp2FASecret *string    `db:"temp_2fa_secret"`
	PlexToken     *string    `db:"plex_token"`
	PlexUserData  *string    `db:"plex_user_data"` // JSON
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	LastLogin     *time.Time `db:"last_login"`
}

// ProcessedID is one media id already handled by an instance
type ProcessedID struct {
	AppType      string    `db:"app_type"`
	InstanceName string    `db:"instance_name"`
	MediaID      string    `db:"media_id"`
	ProcessedAt  time.Time `db:"processed_at"`
}

// StatefulLock records when processed ids were last reset and when they expire
type StatefulLock struct {
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Stat types stored in media_stats
const (
	StatHunted   = "hunted"
	StatUpgraded = "upgraded"
)

// MediaStats maps app type to stat type to value
type MediaStats map[string]map[string]int64

// HourlyCap is the API usage of an app type within the current hour
type HourlyCap struct {
	AppType       string `db:"app_type" json:"app_type"`
	APIHits       int    `db:"api_hits" json:"api_hits"`
	LastResetHour int    `db:"last_reset_hour" json:"last_reset_hour"`
}

// ResetRequest asks an app worker to skip its current sleep
type ResetRequest struct {
	ID          string     `db:"id"`
	AppType     string     `db:"app_type"`
	RequestedAt time.Time  `db:"requested_at"`
	Processed   bool       `db:"processed"`
	ProcessedAt *time.Time `db:"processed_at"`
}
