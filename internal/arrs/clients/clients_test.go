package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/javi11/huntarr/internal/arrs/model"
	errs "github.com/javi11/huntarr/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArrServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		for suffix, h := range handlers {
			if strings.HasSuffix(r.URL.Path, suffix) {
				h(w, r)
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestManager_GetCachesPerCredentials(t *testing.T) {
	m := NewManager(time.Second)
	inst := model.Instance{Name: "Main", URL: "http://localhost:7878", APIKey: "a"}

	c1, err := m.Get(model.Radarr, inst)
	require.NoError(t, err)
	c2, err := m.Get(model.Radarr, inst)
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	inst.APIKey = "b"
	c3, err := m.Get(model.Radarr, inst)
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)

	m.Configure(2*time.Second, true)
	c4, err := m.Get(model.Radarr, inst)
	require.NoError(t, err)
	assert.NotSame(t, c3, c4)
}

func TestManager_GetRejectsMissingCredentials(t *testing.T) {
	m := NewManager(0)

	_, err := m.Get(model.Sonarr, model.Instance{Name: "Empty", URL: "http://localhost:8989"})
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))
}

func TestNew_AppTypeMapping(t *testing.T) {
	inst := model.Instance{URL: "http://localhost", APIKey: "k"}

	for _, app := range model.AllAppTypes() {
		c, err := New(app, inst, http.DefaultClient)
		require.NoError(t, err)
		assert.Equal(t, app, c.AppType())
	}

	_, err := New(model.Swaparr, inst, http.DefaultClient)
	assert.ErrorIs(t, err, errs.ErrUnknownAppType)
}

func TestRadarrClient_GetQueue(t *testing.T) {
	srv := newArrServer(t, map[string]http.HandlerFunc{
		"/api/v3/queue": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{
				"page":         1,
				"pageSize":     500,
				"totalRecords": 1,
				"records": []map[string]any{{
					"id":             7,
					"movieId":        42,
					"title":          "The.Matrix.1999.1080p",
					"size":           1000,
					"sizeleft":       500,
					"status":         "downloading",
					"timeleft":       "00:10:00",
					"downloadClient": "sab",
					"protocol":       "usenet",
					"quality": map[string]any{
						"quality": map[string]any{"id": 7, "name": "Bluray-1080p", "resolution": 1080},
					},
				}},
			})
		},
	})

	c, err := New(model.Radarr, model.Instance{URL: srv.URL, APIKey: "secret"}, srv.Client())
	require.NoError(t, err)

	records, err := c.GetQueue(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, int64(42), rec.ForeignID)
	assert.Equal(t, float64(1000), rec.Size)
	assert.Equal(t, float64(500), rec.SizeLeft)
	assert.Equal(t, "usenet", rec.Protocol)
	assert.Equal(t, "Bluray-1080p", rec.Quality)
	assert.Equal(t, "1080p", rec.Resolution)
}

func TestSonarrClient_WantedMissing(t *testing.T) {
	srv := newArrServer(t, map[string]http.HandlerFunc{
		"/api/v3/wanted/missing": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "25", r.URL.Query().Get("pageSize"))
			assert.Equal(t, "true", r.URL.Query().Get("monitored"))
			writeJSON(t, w, map[string]any{
				"page":         1,
				"pageSize":     25,
				"totalRecords": 2,
				"records": []map[string]any{
					{"id": 101, "seriesId": 5, "title": "Pilot", "monitored": true, "seasonNumber": 1, "episodeNumber": 1, "airDateUtc": "2020-01-02T03:04:05Z"},
					{"id": 102, "seriesId": 5, "title": "Second", "monitored": false},
				},
			})
		},
	})

	c, err := New(model.Sonarr, model.Instance{URL: srv.URL, APIKey: "secret"}, srv.Client())
	require.NoError(t, err)

	records, err := c.Wanted(context.Background(), model.WantedMissing, 25)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(101), records[0].SearchID)
	assert.Equal(t, int64(5), records[0].ParentID)
	assert.Equal(t, 1, records[0].Episode)
	assert.Equal(t, 2020, records[0].AirDate.Year())
	assert.False(t, records[1].Monitored)
	assert.True(t, records[1].AirDate.IsZero())
}

func TestLidarrClient_SearchPostsCommand(t *testing.T) {
	var body map[string]any
	srv := newArrServer(t, map[string]http.HandlerFunc{
		"/api/v1/command": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &body))
			writeJSON(t, w, map[string]any{"id": 1, "name": "AlbumSearch", "status": "queued"})
		},
	})

	c, err := New(model.Lidarr, model.Instance{URL: srv.URL, APIKey: "secret"}, srv.Client())
	require.NoError(t, err)

	require.NoError(t, c.Search(context.Background(), []int64{3, 4}))
	assert.Equal(t, "AlbumSearch", body["name"])
	assert.Equal(t, []any{float64(3), float64(4)}, body["albumIds"])
}

func TestRadarrClient_CheckConnectionNotRetriedOnAuthFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c, err := New(model.Radarr, model.Instance{URL: srv.URL, APIKey: "bad"}, srv.Client())
	require.NoError(t, err)

	assert.Error(t, c.CheckConnection(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestClient_UnsupportedOperations(t *testing.T) {
	c, err := New(model.Sonarr, model.Instance{URL: "http://localhost", APIKey: "k"}, http.DefaultClient)
	require.NoError(t, err)

	_, err = c.GetFile(context.Background(), 1)
	assert.ErrorIs(t, err, errs.ErrUnsupported)

	title, err := c.ChildTitle(context.Background(), model.QueueRecord{})
	require.NoError(t, err)
	assert.Empty(t, title)
}

func TestLidarrClient_GetItemStatistics(t *testing.T) {
	srv := newArrServer(t, map[string]http.HandlerFunc{
		"/api/v1/artist/7": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{
				"id":         7,
				"artistName": "Boards of Canada",
				"monitored":  true,
				"statistics": map[string]any{"trackFileCount": 12, "sizeOnDisk": 734003200},
			})
		},
	})

	c, err := New(model.Lidarr, model.Instance{URL: srv.URL, APIKey: "secret"}, srv.Client())
	require.NoError(t, err)

	item, err := c.GetItem(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Boards of Canada", item.Title)
	assert.True(t, item.HasFile)
	assert.Equal(t, int64(734003200), item.SizeBytes)
}

func TestReadarrClient_GetItemStatistics(t *testing.T) {
	srv := newArrServer(t, map[string]http.HandlerFunc{
		"/api/v1/author/9": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{
				"id":         9,
				"authorName": "Ursula K. Le Guin",
				"monitored":  false,
				"statistics": map[string]any{"bookFileCount": 0, "sizeOnDisk": 0},
			})
		},
	})

	c, err := New(model.Readarr, model.Instance{URL: srv.URL, APIKey: "secret"}, srv.Client())
	require.NoError(t, err)

	item, err := c.GetItem(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "Ursula K. Le Guin", item.Title)
	assert.False(t, item.HasFile)
	assert.Zero(t, item.SizeBytes)
}
