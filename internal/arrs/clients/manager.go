// Package clients wraps golift.io/starr behind one Client interface per app type.
package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/javi11/huntarr/internal/arrs/model"
	errs "github.com/javi11/huntarr/internal/errors"
	"github.com/javi11/huntarr/internal/httpclient"
	"golift.io/starr"
	"golift.io/starr/lidarr"
	"golift.io/starr/radarr"
	"golift.io/starr/readarr"
	"golift.io/starr/sonarr"
)

// queuePageSize is the page size used when walking an app's queue.
const queuePageSize = 500

//go:generate mockgen -source=./manager.go -destination=./client_mock.go -package=clients Client

// Client is the normalized surface the hunting and reconciliation code uses.
type Client interface {
	AppType() model.AppType
	CheckConnection(ctx context.Context) error
	GetQueue(ctx context.Context) ([]model.QueueRecord, error)
	GetItem(ctx context.Context, id int64) (*model.Item, error)
	GetFile(ctx context.Context, fileID int64) (*model.FileInfo, error)
	Wanted(ctx context.Context, kind model.WantedKind, pageSize int) ([]model.WantedRecord, error)
	Search(ctx context.Context, ids []int64) error
	RemoveFromQueue(ctx context.Context, queueID int64, removeFromClient, blocklist bool) error
	ChildTitle(ctx context.Context, rec model.QueueRecord) (string, error)
}

// Provider returns a client for an instance.
type Provider interface {
	Get(app model.AppType, inst model.Instance) (Client, error)
}

// Manager caches one client per app, instance and credentials.
type Manager struct {
	mu         sync.RWMutex
	clients    map[string]Client
	timeout    time.Duration
	skipVerify bool
}

// NewManager creates a client manager. A zero timeout uses httpclient.ArrTimeout.
func NewManager(timeout time.Duration) *Manager {
	return &Manager{
		clients: make(map[string]Client),
		timeout: timeout,
	}
}

// Configure changes the vendor request timeout and TLS verification. Cached
// clients are dropped when either changes.
func (m *Manager) Configure(timeout time.Duration, verifySSL bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if timeout == m.timeout && verifySSL == !m.skipVerify {
		return
	}

	m.timeout = timeout
	m.skipVerify = !verifySSL
	m.clients = make(map[string]Client)
}

// Get gets or creates the client for an instance.
func (m *Manager) Get(app model.AppType, inst model.Instance) (Client, error) {
	if !inst.HasCredentials() {
		return nil, errs.NewConfigurationError(app.String(), inst.DisplayName(), "missing API URL or key")
	}

	key := fmt.Sprintf("%s|%s|%s|%s", app, inst.DisplayName(), inst.URL, inst.APIKey)

	m.mu.RLock()
	client, ok := m.clients[key]
	m.mu.RUnlock()
	if ok {
		return client, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.clients[key]; ok {
		return client, nil
	}

	client, err := New(app, inst, httpclient.NewArr(m.timeout, httpclient.WithInsecureSkipVerify(m.skipVerify)))
	if err != nil {
		return nil, err
	}

	m.clients[key] = client
	return client, nil
}

// New builds a client for the app type. Whisparr speaks the Sonarr v3 API
// and Eros the Radarr v3 API.
func New(app model.AppType, inst model.Instance, httpClient *http.Client) (Client, error) {
	cfg := &starr.Config{URL: inst.URL, APIKey: inst.APIKey, Client: httpClient}

	switch app {
	case model.Radarr, model.Eros:
		return &radarrClient{app: app, api: radarr.New(cfg)}, nil
	case model.Sonarr, model.Whisparr:
		return &sonarrClient{app: app, api: sonarr.New(cfg)}, nil
	case model.Lidarr:
		return &lidarrClient{api: lidarr.New(cfg)}, nil
	case model.Readarr:
		return &readarrClient{api: readarr.New(cfg)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnknownAppType, app)
	}
}

// withRetry retries transient failures of idempotent or repeatable vendor calls.
func withRetry(ctx context.Context, op string, fn func() error) error {
	err := retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(errs.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			slog.DebugContext(ctx, "Retrying vendor call", "op", op, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return wrapVendor(op, err)
	}

	return nil
}

// wrapVendor tags err as transient when it is a timeout or 5xx.
func wrapVendor(op string, err error) error {
	if err == nil {
		return nil
	}
	if errs.IsTransient(err) {
		return errs.NewTransient(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func qualityName(q *starr.Quality) string {
	if q == nil || q.Quality == nil {
		return ""
	}
	return q.Quality.Name
}

func qualityResolution(q *starr.Quality) string {
	if q == nil || q.Quality == nil || q.Quality.Resolution <= 0 {
		return ""
	}
	return fmt.Sprintf("%dp", q.Quality.Resolution)
}

func statusMessages(msgs []*starr.StatusMessage) []string {
	var out []string
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if msg.Title != "" {
			out = append(out, msg.Title)
		}
		out = append(out, msg.Messages...)
	}
	return out
}
