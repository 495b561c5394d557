// Package settings loads and saves the runtime settings documents through a
// short-lived cache that is invalidated on every write.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/javi11/huntarr/internal/arrs/model"
	errs "github.com/javi11/huntarr/internal/errors"
	"github.com/jinzhu/copier"
)

const DefaultTTL = 5 * time.Second

// Repository persists raw settings documents.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, doc []byte) error
}

// Store is the cached settings accessor shared by the scheduler, the hunting
// code and the API.
type Store struct {
	repo  Repository
	cache *expirable.LRU[string, any]
}

// NewStore creates a store. A zero ttl uses DefaultTTL.
func NewStore(repo Repository, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Store{
		repo:  repo,
		cache: expirable.NewLRU[string, any](32, nil, ttl),
	}
}

// load decodes key over defaults and caches the result. Callers get a deep copy.
func load[T any](ctx context.Context, s *Store, key string, defaults func() *T) (*T, error) {
	if cached, ok := s.cache.Get(key); ok {
		if v, ok := cached.(*T); ok {
			return deepCopy(v), nil
		}
	}

	v := defaults()

	doc, found, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if found {
		if err := json.Unmarshal(doc, v); err != nil {
			slog.WarnContext(ctx, "Settings document is corrupt, using defaults", "key", key, "error", err)
			v = defaults()
		}
	}

	s.cache.Add(key, v)
	return deepCopy(v), nil
}

func deepCopy[T any](v *T) *T {
	out := new(T)
	if err := copier.CopyWithOption(out, v, copier.Option{DeepCopy: true}); err != nil {
		shallow := *v
		return &shallow
	}
	return out
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s settings: %w", key, err)
	}

	if err := s.repo.Put(ctx, key, doc); err != nil {
		return err
	}

	s.cache.Remove(key)
	slog.InfoContext(ctx, "Settings saved", "key", key)
	return nil
}

// Invalidate drops one key, or every key when key is empty.
func (s *Store) Invalidate(key string) {
	if key == "" {
		s.cache.Purge()
		return
	}
	s.cache.Remove(key)
}

// Load returns the settings of a hunted app type.
func (s *Store) Load(ctx context.Context, app model.AppType) (*AppSettings, error) {
	return load(ctx, s, string(app), func() *AppSettings { return DefaultAppSettings(app) })
}

// LoadGeneral returns the general settings.
func (s *Store) LoadGeneral(ctx context.Context) (*GeneralSettings, error) {
	return load(ctx, s, KeyGeneral, DefaultGeneralSettings)
}

// LoadSwaparr returns the stalled check settings.
func (s *Store) LoadSwaparr(ctx context.Context) (*SwaparrSettings, error) {
	return load(ctx, s, KeySwaparr, DefaultSwaparrSettings)
}

// Save clamps and persists app settings.
func (s *Store) Save(ctx context.Context, app model.AppType, v *AppSettings) error {
	clampApp(ctx, app, v)
	return s.save(ctx, string(app), v)
}

// SaveGeneral persists the general settings.
func (s *Store) SaveGeneral(ctx context.Context, v *GeneralSettings) error {
	if v.StatefulManagementHours < 1 {
		v.StatefulManagementHours = 1
	}
	if v.APITimeout < 1 {
		v.APITimeout = DefaultGeneralSettings().APITimeout
	}
	if v.LogLevel != "" {
		v.LogLevel = strings.ToLower(v.LogLevel)
	}
	return s.save(ctx, KeyGeneral, v)
}

// SaveSwaparr persists the stalled check settings.
func (s *Store) SaveSwaparr(ctx context.Context, v *SwaparrSettings) error {
	if v.MaxStrikes < 1 {
		v.MaxStrikes = 1
	}
	return s.save(ctx, KeySwaparr, v)
}

func clampApp(ctx context.Context, app model.AppType, v *AppSettings) {
	if v.HourlyCap > MaxHourlyCap {
		slog.WarnContext(ctx, "Hourly cap reduced to maximum", "app_type", app, "value", v.HourlyCap, "max", MaxHourlyCap)
		v.HourlyCap = MaxHourlyCap
	}
	if v.SleepDuration < MinSleepDuration {
		slog.WarnContext(ctx, "Sleep duration raised to minimum", "app_type", app, "value", v.SleepDuration, "min", MinSleepDuration)
		v.SleepDuration = MinSleepDuration
	}

	for _, field := range []*int{&v.HourlyCap, &v.HuntMissingItems, &v.HuntUpgradeItems} {
		if *field < 0 {
			*field = 0
		}
	}
}

// Document returns the settings stored under key as its typed struct.
func (s *Store) Document(ctx context.Context, key string) (any, error) {
	switch key {
	case KeyGeneral:
		return s.LoadGeneral(ctx)
	case KeySwaparr:
		return s.LoadSwaparr(ctx)
	}

	app, err := model.ParseAppType(key)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, app)
}

// SaveDocument decodes body into the typed struct of key and saves it. Keys
// missing from body keep their current values. It returns the stored document.
func (s *Store) SaveDocument(ctx context.Context, key string, body []byte) (any, error) {
	current, err := s.Document(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(body, current); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidSettings, err)
	}

	switch v := current.(type) {
	case *GeneralSettings:
		err = s.SaveGeneral(ctx, v)
	case *SwaparrSettings:
		err = s.SaveSwaparr(ctx, v)
	case *AppSettings:
		err = s.Save(ctx, model.AppType(key), v)
	}
	if err != nil {
		return nil, err
	}

	return current, nil
}

// AdvancedSetting reads a raw key from the general document.
func (s *Store) AdvancedSetting(ctx context.Context, name string, def any) any {
	doc, found, err := s.repo.Get(ctx, KeyGeneral)
	if err != nil || !found {
		return def
	}

	var raw map[string]any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return def
	}

	if v, ok := raw[name]; ok && v != nil {
		return v
	}
	return def
}

// ConfiguredInstances returns the enabled instances of app that have a URL and
// an API key, in configured order.
func (s *Store) ConfiguredInstances(ctx context.Context, app model.AppType) ([]model.Instance, error) {
	cfg, err := s.Load(ctx, app)
	if err != nil {
		return nil, err
	}

	var out []model.Instance
	for _, inst := range cfg.Instances {
		if !inst.IsEnabled() {
			continue
		}
		if !inst.HasCredentials() {
			slog.WarnContext(ctx, "Instance enabled but missing API URL or key", "app_type", app, "instance", inst.DisplayName())
			continue
		}
		out = append(out, inst)
	}

	return out, nil
}

// ConfiguredApps returns the hunted app types with at least one usable instance.
func (s *Store) ConfiguredApps(ctx context.Context) ([]model.AppType, error) {
	var apps []model.AppType
	for _, app := range model.AllAppTypes() {
		instances, err := s.ConfiguredInstances(ctx, app)
		if err != nil {
			return nil, fmt.Errorf("load %s settings: %w", app, err)
		}
		if len(instances) > 0 {
			apps = append(apps, app)
		}
	}

	return apps, nil
}
