// Package analytics records privacy-conscious page views: client IPs are
// salted and hashed before they are stored, Do Not Track is honoured and old
// rows are purged.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const schema = `
CREATE TABLE IF NOT EXISTS visitors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,
	user_agent TEXT,
	path TEXT,
	timestamp INTEGER NOT NULL
)`

// Visitor is one recorded page view.
type Visitor struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// PathCount is a path with its number of views.
type PathCount struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

type Stats struct {
	TotalVisitors    int64       `json:"total_visitors"`
	UniqueVisitors   int64       `json:"unique_visitors"`
	VisitorsToday    int64       `json:"visitors_today"`
	VisitorsThisWeek int64       `json:"visitors_this_week"`
	TopPaths         []PathCount `json:"top_paths"`
	RecentVisitors   []Visitor   `json:"recent_visitors"`
}

// skipPrefixes are never tracked.
var skipPrefixes = []string{"/static/", "/media/", "/admin", "/ws/", "/metrics", "/healthz", "/favicon", "/privacy"}

// Tracker writes visits to the visitors table.
type Tracker struct {
	db     *sql.DB
	salt   string
	logger *slog.Logger
	now    func() time.Time
}

// New creates the visitors table if needed. An empty salt is replaced by a
// random one, which makes hashes unlinkable across restarts.
func New(db *sql.DB, salt string, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if salt == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate hashing salt: %w", err)
		}
		salt = hex.EncodeToString(b)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create visitors table: %w", err)
	}
	return &Tracker{db: db, salt: salt, logger: logger.With("component", "analytics"), now: time.Now}, nil
}

// HashIP returns the truncated salted hash stored in place of ip.
func (t *Tracker) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + t.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// Track records a page view.
func (t *Tracker) Track(ctx context.Context, ip, userAgent, path string) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, timestamp) VALUES (?, ?, ?, ?)`,
		t.HashIP(ip), userAgent, path, t.now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record visitor: %w", err)
	}
	return nil
}

// Middleware tracks public page views in the background.
func (t *Tracker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != "GET" || skipped(path) || c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		ip, ua := c.ClientIP(), c.GetHeader("User-Agent")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := t.Track(ctx, ip, ua, path); err != nil {
				t.logger.Warn("visitor not recorded", "error", err)
			}
		}()
		c.Next()
	}
}

func skipped(path string) bool {
	for _, p := range skipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Cleanup deletes visits older than retention and returns how many went.
func (t *Tracker) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := t.now().Add(-retention).UTC().Unix()
	res, err := t.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clean up visitors: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		t.logger.Info("privacy cleanup removed old visitor records", "count", n, "retention", retention)
	}
	return n, nil
}

// Forget deletes every visit recorded for ip.
func (t *Tracker) Forget(ctx context.Context, ip string) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM visitors WHERE hashed_ip = ?`, t.HashIP(ip))
	if err != nil {
		return 0, fmt.Errorf("forget visitor: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Stats summarizes recorded visits.
func (t *Tracker) Stats(ctx context.Context) (*Stats, error) {
	now := t.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Unix()
	weekAgo := now.Add(-7 * 24 * time.Hour).Unix()

	stats := &Stats{}
	counts := []struct {
		query string
		args  []any
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM visitors`, nil, &stats.TotalVisitors},
		{`SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil, &stats.UniqueVisitors},
		{`SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{startOfDay}, &stats.VisitorsToday},
		{`SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{weekAgo}, &stats.VisitorsThisWeek},
	}
	for _, c := range counts {
		if err := t.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("visitor stats: %w", err)
		}
	}

	rows, err := t.db.QueryContext(ctx, `
		SELECT path, COUNT(*) AS views
		FROM visitors
		GROUP BY path
		ORDER BY views DESC, path
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("top paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pc PathCount
		if err := rows.Scan(&pc.Path, &pc.Views); err != nil {
			return nil, fmt.Errorf("scan top path: %w", err)
		}
		stats.TopPaths = append(stats.TopPaths, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top paths: %w", err)
	}

	stats.RecentVisitors, err = t.Recent(ctx, 50)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Recent returns the latest visits, newest first.
func (t *Tracker) Recent(ctx context.Context, limit int) ([]Visitor, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent visitors: %w", err)
	}
	defer rows.Close()

	var visitors []Visitor
	for rows.Next() {
		var v Visitor
		var ts int64
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		v.Timestamp = time.Unix(ts, 0).UTC()
		visitors = append(visitors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent visitors: %w", err)
	}
	return visitors, nil
}
