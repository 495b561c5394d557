package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/javi11/huntarr/internal/database"
	"github.com/javi11/huntarr/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticGeneral struct {
	cfg *settings.GeneralSettings
}

func (s staticGeneral) LoadGeneral(context.Context) (*settings.GeneralSettings, error) {
	cp := *s.cfg
	return &cp, nil
}

func newMiddlewareApp(svc *Service, general *settings.GeneralSettings) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(svc, staticGeneral{cfg: general}, ""))
	app.Get("/api/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/history/radarr", func(c *fiber.Ctx) error { return c.SendString("user=" + Username(c)) })
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("home") })
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	general := settings.DefaultGeneralSettings()
	app := newMiddlewareApp(svc, general)

	resp := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/api/history/radarr", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/setup", resp.Header.Get("Location"))

	_, err := svc.CreateUser(ctx, "admin", "long-enough")
	require.NoError(t, err)

	resp = doRequest(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	tok, err := svc.IssueToken(&database.User{Username: "admin"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/history/radarr", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	resp = doRequest(t, app, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMiddleware_Bypasses(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.CreateUser(ctx, "admin", "long-enough")
	require.NoError(t, err)

	local := settings.DefaultGeneralSettings()
	local.LocalAccessBypass = true
	app := newMiddlewareApp(svc, local)

	req := httptest.NewRequest(http.MethodGet, "/api/history/radarr", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.20, 10.0.0.1")
	assert.Equal(t, http.StatusOK, doRequest(t, app, req).StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/history/radarr", nil)
	req.Header.Set("X-Forwarded-For", "8.8.8.8")
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, app, req).StatusCode)

	proxy := settings.DefaultGeneralSettings()
	proxy.ProxyAuthBypass = true
	app = newMiddlewareApp(svc, proxy)
	req = httptest.NewRequest(http.MethodGet, "/api/history/radarr", nil)
	req.Header.Set("X-Forwarded-For", "8.8.8.8")
	assert.Equal(t, http.StatusOK, doRequest(t, app, req).StatusCode)
}

func TestIsLocalAddress(t *testing.T) {
	assert.True(t, IsLocalAddress("127.0.0.1"))
	assert.True(t, IsLocalAddress("10.1.2.3"))
	assert.True(t, IsLocalAddress("::1"))
	assert.False(t, IsLocalAddress("8.8.8.8"))
	assert.False(t, IsLocalAddress("not-an-ip"))
}
