package analytics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/folio/internal/store/sqlitekv"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	kv, err := sqlitekv.Open(filepath.Join(t.TempDir(), "folio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	tr, err := New(kv.DB(), "pepper", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return tr
}

func TestHashIP(t *testing.T) {
	tr := newTestTracker(t)

	h := tr.HashIP("203.0.113.7")
	assert.Len(t, h, 16)
	assert.Equal(t, h, tr.HashIP("203.0.113.7"))
	assert.NotEqual(t, h, tr.HashIP("203.0.113.8"))
	assert.NotContains(t, h, "203")
}

func TestTrackAndStats(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t)
	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)

	tr.now = func() time.Time { return now.Add(-10 * 24 * time.Hour) }
	require.NoError(t, tr.Track(ctx, "10.0.0.1", "old", "/"))
	tr.now = func() time.Time { return now.Add(-3 * 24 * time.Hour) }
	require.NoError(t, tr.Track(ctx, "10.0.0.2", "week", "/projects"))
	tr.now = func() time.Time { return now.Add(-time.Hour) }
	require.NoError(t, tr.Track(ctx, "10.0.0.1", "today", "/"))
	require.NoError(t, tr.Track(ctx, "10.0.0.3", "today", "/"))

	tr.now = func() time.Time { return now }
	stats, err := tr.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TotalVisitors)
	assert.EqualValues(t, 3, stats.UniqueVisitors)
	assert.EqualValues(t, 2, stats.VisitorsToday)
	assert.EqualValues(t, 3, stats.VisitorsThisWeek)
	require.NotEmpty(t, stats.TopPaths)
	assert.Equal(t, PathCount{Path: "/", Views: 3}, stats.TopPaths[0])
	require.Len(t, stats.RecentVisitors, 4)
	assert.Equal(t, "today", stats.RecentVisitors[0].UserAgent)

	removed, err := tr.Cleanup(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	recent, err := tr.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t)
	require.NoError(t, tr.Track(ctx, "10.0.0.1", "a", "/"))
	require.NoError(t, tr.Track(ctx, "10.0.0.1", "a", "/blog"))
	require.NoError(t, tr.Track(ctx, "10.0.0.2", "b", "/"))

	n, err := tr.Forget(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	recent, err := tr.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, tr.HashIP("10.0.0.2"), recent[0].HashedIP)
}

func TestMiddlewareSkipsPrivatePathsAndDNT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tr := newTestTracker(t)

	r := gin.New()
	r.Use(tr.Middleware())
	r.GET("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve := func(path string, dnt bool) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if dnt {
			req.Header.Set("DNT", "1")
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	serve("/admin/dashboard", false)
	serve("/static/site.css", false)
	serve("/blog", true)
	serve("/projects", false)

	assert.Eventually(t, func() bool {
		recent, err := tr.Recent(context.Background(), 10)
		return err == nil && len(recent) == 1 && recent[0].Path == "/projects"
	}, 2*time.Second, 20*time.Millisecond)
}
