package content

import (
	"bytes"
	"encoding/xml"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Zachkp/folio/internal/store"
)

// Feed keeps the RSS feed and sitemap rendered. It binds to the keys they
// are built from and re-renders whenever one of them changes, whether the
// change was made here or announced by another process.
type Feed struct {
	repo   *Repo
	logger *slog.Logger

	// renderMu serializes rebuilds so an older render never replaces a newer one.
	renderMu sync.Mutex

	mu      sync.RWMutex
	rss     []byte
	sitemap []byte

	closers []func()
}

// NewFeed renders both documents and starts watching s.
func NewFeed(s *store.Store, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Feed{repo: NewRepo(s), logger: logger.With("component", "feed")}
	d := Defaults()

	posts := store.Bind(s, KeyPosts, d.Posts, func([]BlogPost) { f.rebuild() })
	projects := store.Bind(s, KeyProjects, d.Projects, func([]Project) { f.rebuild() })
	pages := store.Bind(s, KeyPages, d.Pages, func([]CustomPage) { f.rebuild() })
	settings := store.Bind(s, KeySettings, d.Settings, func(SiteSettings) { f.rebuild() })
	f.closers = []func(){posts.Close, projects.Close, pages.Close, settings.Close}

	f.rebuild()
	return f
}

// RSS returns the current RSS 2.0 document.
func (f *Feed) RSS() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.rss
}

// Sitemap returns the current sitemap.xml document.
func (f *Feed) Sitemap() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sitemap
}

// Close stops watching the store.
func (f *Feed) Close() {
	for _, c := range f.closers {
		c()
	}
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (f *Feed) rebuild() {
	f.renderMu.Lock()
	defer f.renderMu.Unlock()

	settings := f.repo.Settings()
	base := strings.TrimSuffix(settings.BaseURL, "/")

	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:       settings.Name,
			Link:        base + "/blog",
			Description: settings.SEODescription,
		},
	}
	for _, p := range f.repo.Posts(false) {
		link := base + "/blog/" + url.PathEscape(p.Slug)
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        link,
			PubDate:     p.PublishedAt.Format(time.RFC1123Z),
			Description: p.Excerpt,
		})
	}

	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, path := range []string{"/", "/about", "/skills", "/experience", "/projects", "/blog", "/contact"} {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + path})
	}
	for _, p := range f.repo.Projects() {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + "/projects/" + url.PathEscape(p.Slug)})
	}
	for _, p := range f.repo.Posts(false) {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + "/blog/" + url.PathEscape(p.Slug), LastMod: p.PublishedAt.Format("2006-01-02")})
	}
	for _, p := range f.repo.Pages(false) {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + "/p/" + url.PathEscape(p.Slug)})
	}

	rss, err := encodeXML(doc)
	if err != nil {
		f.logger.Error("render rss", "error", err)
		return
	}
	sitemap, err := encodeXML(set)
	if err != nil {
		f.logger.Error("render sitemap", "error", err)
		return
	}

	f.mu.Lock()
	f.rss = rss
	f.sitemap = sitemap
	f.mu.Unlock()
}

func encodeXML(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
