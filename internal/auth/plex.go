package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/javi11/huntarr/internal/database"
	errs "github.com/javi11/huntarr/internal/errors"
	"github.com/javi11/huntarr/internal/httpclient"
)

const (
	plexBaseURL = "https://plex.tv"
	plexAuthURL = "https://app.plex.tv/auth#"
	plexProduct = "Huntarr"
)

// PlexPIN is a plex.tv login PIN.
type PlexPIN struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	AuthToken *string `json:"authToken"`
	ExpiresIn int     `json:"expiresIn"`
	AuthURL   string  `json:"auth_url,omitempty"`
}

// PlexUser is the plex.tv account behind a token.
type PlexUser struct {
	ID       int64  `json:"id"`
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Thumb    string `json:"thumb"`
}

// PlexClient talks to the plex.tv v2 PIN and account endpoints.
type PlexClient struct {
	http     *http.Client
	baseURL  string
	clientID string
}

// NewPlexClient creates a plex.tv client. An empty clientID gets a random one.
func NewPlexClient(clientID string, httpClient *http.Client) *PlexClient {
	if clientID == "" {
		clientID = uuid.NewString()
	}
	if httpClient == nil {
		httpClient = httpclient.NewPlex()
	}

	return &PlexClient{http: httpClient, baseURL: plexBaseURL, clientID: clientID}
}

// WithBaseURL points the client at another plex.tv host.
func (p *PlexClient) WithBaseURL(base string) *PlexClient {
	p.baseURL = strings.TrimRight(base, "/")
	return p
}

// ClientID returns the X-Plex-Client-Identifier in use.
func (p *PlexClient) ClientID() string {
	return p.clientID
}

type plexStatusError struct {
	status int
	body   string
}

func (e *plexStatusError) Error() string {
	return fmt.Sprintf("plex.tv returned %d: %s", e.status, e.body)
}

func (p *PlexClient) do(ctx context.Context, method, path, plexToken string, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("X-Plex-Product", plexProduct)
			req.Header.Set("X-Plex-Client-Identifier", p.clientID)
			if plexToken != "" {
				req.Header.Set("X-Plex-Token", plexToken)
			}

			resp, err := p.http.Do(req)
			if err != nil {
				return errs.NewTransient("plex "+path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 300 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				statusErr := &plexStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
				if resp.StatusCode >= 500 {
					return errs.NewTransient("plex "+path, statusErr)
				}
				return retry.Unrecoverable(statusErr)
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode plex response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(errs.IsTransient),
	)
}

// CreatePIN requests a strong PIN and the URL the user opens to approve it.
func (p *PlexClient) CreatePIN(ctx context.Context) (*PlexPIN, error) {
	var pin PlexPIN
	if err := p.do(ctx, http.MethodPost, "/api/v2/pins?strong=true", "", &pin); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("clientID", p.clientID)
	q.Set("code", pin.Code)
	q.Set("context[device][product]", plexProduct)
	pin.AuthURL = plexAuthURL + "?" + q.Encode()

	slog.DebugContext(ctx, "Created Plex PIN", "pin_id", pin.ID)
	return &pin, nil
}

// CheckPIN returns the auth token once the PIN was claimed, or "" while pending.
func (p *PlexClient) CheckPIN(ctx context.Context, id int64) (string, error) {
	var pin PlexPIN
	if err := p.do(ctx, http.MethodGet, "/api/v2/pins/"+strconv.FormatInt(id, 10), "", &pin); err != nil {
		return "", err
	}
	if pin.AuthToken == nil {
		return "", nil
	}
	return *pin.AuthToken, nil
}

// GetUser returns the account of a Plex token.
func (p *PlexClient) GetUser(ctx context.Context, plexToken string) (*PlexUser, error) {
	var user PlexUser
	if err := p.do(ctx, http.MethodGet, "/api/v2/user", plexToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// PlexAccountFetcher resolves a Plex token to its account.
type PlexAccountFetcher interface {
	GetUser(ctx context.Context, plexToken string) (*PlexUser, error)
}

// LinkPlex stores the Plex account of plexToken on username.
func (s *Service) LinkPlex(ctx context.Context, plex PlexAccountFetcher, username, plexToken string) (*PlexUser, error) {
	account, err := plex.GetUser(ctx, plexToken)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(account)
	if err != nil {
		return nil, fmt.Errorf("marshal plex user: %w", err)
	}
	userData := string(data)

	if err := s.users.SetPlexAccount(ctx, username, &plexToken, &userData); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Plex account linked", "username", username, "plex_user", account.Username)
	return account, nil
}

// UnlinkPlex removes the linked Plex account.
func (s *Service) UnlinkPlex(ctx context.Context, username string) error {
	return s.users.SetPlexAccount(ctx, username, nil, nil)
}

// LinkedPlexUser returns the linked Plex account of user, or nil.
func LinkedPlexUser(user *database.User) *PlexUser {
	if user == nil || user.PlexUserData == nil {
		return nil
	}
	var account PlexUser
	if err := json.Unmarshal([]byte(*user.PlexUserData), &account); err != nil {
		return nil
	}
	return &account
}

// PlexLogin authenticates with a Plex token whose account is linked to the user.
func (s *Service) PlexLogin(ctx context.Context, plex PlexAccountFetcher, plexToken string) (*database.User, error) {
	user, err := s.users.GetFirstUser(ctx)
	if err != nil {
		return nil, err
	}
	linked := LinkedPlexUser(user)
	if linked == nil {
		return nil, errs.ErrInvalidCredentials
	}

	account, err := plex.GetUser(ctx, plexToken)
	if err != nil {
		return nil, err
	}
	if account.ID != linked.ID {
		slog.WarnContext(ctx, "Plex login with an account that is not linked", "plex_user", account.Username)
		return nil, errs.ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.Username); err != nil {
		slog.WarnContext(ctx, "Failed to update last login", "username", user.Username, "error", err)
	}
	return user, nil
}
