package main

import (
	"database/sql"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zachkp/folio/internal/analytics"
	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/media"
	"github.com/Zachkp/folio/internal/store"
	"github.com/Zachkp/folio/internal/store/wsbus"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type serverDeps struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *store.Store
	db       *sql.DB
	hub      *wsbus.Hub
	feed     *content.Feed
	tracker  *analytics.Tracker
	media    media.Storage
	registry *prometheus.Registry
	// mail sends a contact message to the site owner. Nil disables mail.
	mail func(content.ContactMessage) error
}

type server struct {
	serverDeps
	metrics *httpMetrics
}

func newServer(d serverDeps) *server {
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.registry == nil {
		d.registry = prometheus.NewRegistry()
	}
	if d.mail == nil && d.cfg.SMTPEnabled() {
		cfg := d.cfg
		d.mail = func(m content.ContactMessage) error { return sendContactEmail(cfg, m) }
	}
	return &server{serverDeps: d, metrics: newHTTPMetrics(d.registry)}
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.metrics.middleware(), s.withStore())
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")))

	static, _ := fs.Sub(staticFS, "static")
	r.StaticFS("/static", http.FS(static))
	if disk, ok := s.media.(*media.Disk); ok {
		r.Static("/media", disk.Dir())
	}

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	if s.hub != nil {
		r.GET("/ws/changes", gin.WrapH(s.hub))
	}

	site := r.Group("/")
	if s.tracker != nil {
		site.Use(s.tracker.Middleware())
	}
	s.setupPageRoutes(site)
	s.setupAdminRoutes(r)

	r.NoRoute(func(c *gin.Context) {
		s.page(c, http.StatusNotFound, "404.html", "Not Found", nil)
	})
	return r
}

// withStore makes the store reachable from every request context.
func (s *server) withStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(store.WithStore(c.Request.Context(), s.store))
		c.Next()
	}
}

func (s *server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.LogAttrs(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "folio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "folio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *httpMetrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (s *server) healthz(c *gin.Context) {
	if s.db != nil {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	body := gin.H{"status": "ok", "version": version, "keys": len(s.store.Keys())}
	if s.hub != nil {
		body["peers"] = s.hub.Peers()
	}
	c.JSON(http.StatusOK, body)
}

// page renders a full page with the site settings and menu every layout
// needs. keys lists the store keys the page shows; the browser reloads when
// one of them changes.
func (s *server) page(c *gin.Context, status int, name, title string, data gin.H, keys ...string) {
	repo := content.For(c.Request.Context())
	if data == nil {
		data = gin.H{}
	}
	settings := repo.Settings()
	data["site"] = settings
	data["menu"] = repo.Menu()
	data["path"] = c.Request.URL.Path
	data["liveKeys"] = strings.Join(append(keys, content.KeySettings, content.KeyNavigation), " ")
	data["live"] = s.hub != nil
	if title == "" {
		data["title"] = settings.Name
	} else {
		data["title"] = title + " | " + settings.Name
	}
	c.HTML(status, name, data)
}

// apiError maps domain errors onto JSON responses.
func (s *server) apiError(c *gin.Context, err error) {
	var ve *content.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "fields": ve.Fields})
	case errors.Is(err, content.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, media.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, media.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	default:
		s.logger.Error("admin request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
