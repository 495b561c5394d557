package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/javi11/huntarr/internal/database"
	errs "github.com/javi11/huntarr/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlexServer(t *testing.T, claimed *atomic.Bool, failures *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/pins", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("strong"))
		assert.Equal(t, "client-1", r.Header.Get("X-Plex-Client-Identifier"))
		assert.Equal(t, "Huntarr", r.Header.Get("X-Plex-Product"))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 77, "code": "abcd", "expiresIn": 900})
	})
	mux.HandleFunc("GET /api/v2/pins/77", func(w http.ResponseWriter, r *http.Request) {
		pin := map[string]any{"id": 77, "code": "abcd", "authToken": nil}
		if claimed.Load() {
			pin["authToken"] = "plex-token"
		}
		_ = json.NewEncoder(w).Encode(pin)
	})
	mux.HandleFunc("GET /api/v2/user", func(w http.ResponseWriter, r *http.Request) {
		if failures.Load() > 0 {
			failures.Add(-1)
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		switch r.Header.Get("X-Plex-Token") {
		case "plex-token":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "uuid": "u1", "username": "plexer"})
		case "other-token":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 2, "uuid": "u2", "username": "stranger"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPlexClient_PINFlow(t *testing.T) {
	ctx := context.Background()
	var claimed atomic.Bool
	var failures atomic.Int32
	srv := newPlexServer(t, &claimed, &failures)

	client := NewPlexClient("client-1", srv.Client()).WithBaseURL(srv.URL)

	pin, err := client.CreatePIN(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(77), pin.ID)
	assert.Contains(t, pin.AuthURL, "code=abcd")
	assert.Contains(t, pin.AuthURL, "clientID=client-1")

	tok, err := client.CheckPIN(ctx, 77)
	require.NoError(t, err)
	assert.Empty(t, tok)

	claimed.Store(true)
	tok, err = client.CheckPIN(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, "plex-token", tok)

	failures.Store(1)
	user, err := client.GetUser(ctx, "plex-token")
	require.NoError(t, err)
	assert.Equal(t, "plexer", user.Username)

	_, err = client.GetUser(ctx, "bad")
	assert.Error(t, err)
}

func TestNewPlexClient_GeneratesClientID(t *testing.T) {
	assert.NotEmpty(t, NewPlexClient("", nil).ClientID())
}

func TestPlexLinkAndLogin(t *testing.T) {
	ctx := context.Background()
	var claimed atomic.Bool
	var failures atomic.Int32
	srv := newPlexServer(t, &claimed, &failures)
	client := NewPlexClient("client-1", srv.Client()).WithBaseURL(srv.URL)

	svc := newTestService(t)
	_, err := svc.CreateUser(ctx, "admin", "long-enough")
	require.NoError(t, err)

	_, err = svc.PlexLogin(ctx, client, "plex-token")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	account, err := svc.LinkPlex(ctx, client, "admin", "plex-token")
	require.NoError(t, err)
	assert.Equal(t, int64(1), account.ID)

	user, err := svc.PlexLogin(ctx, client, "plex-token")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)

	_, err = svc.PlexLogin(ctx, client, "other-token")
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	require.NoError(t, svc.UnlinkPlex(ctx, "admin"))
	current, err := svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, LinkedPlexUser(current))
}

func TestLinkedPlexUser_Corrupt(t *testing.T) {
	data := "{not json"
	assert.Nil(t, LinkedPlexUser(&database.User{PlexUserData: &data}))
	assert.Nil(t, LinkedPlexUser(nil))
}
