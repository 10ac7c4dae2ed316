package main

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/content"
)

var templateFuncs = template.FuncMap{
	"paragraphs": paragraphs,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"join":     strings.Join,
}

// paragraphs splits text on blank lines. Bodies are plain text, so each
// paragraph is escaped by the template that prints it.
func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *server) setupPageRoutes(r *gin.RouterGroup) {
	// Home page route
	r.GET("/", func(c *gin.Context) {
		repo := content.For(c.Request.Context())
		posts := repo.Posts(false)
		if len(posts) > 3 {
			posts = posts[:3]
		}
		s.page(c, http.StatusOK, "index.html", "", gin.H{
			"projects":     repo.FeaturedProjects(),
			"testimonials": repo.Testimonials(),
			"posts":        posts,
		}, content.KeyProjects, content.KeyTestimonials, content.KeyPosts)
	})

	r.GET("/about", func(c *gin.Context) {
		s.page(c, http.StatusOK, "about.html", "About", nil)
	})

	r.GET("/skills", func(c *gin.Context) {
		repo := content.For(c.Request.Context())
		s.page(c, http.StatusOK, "skills.html", "Skills", gin.H{
			"groups": repo.SkillsByCategory(),
		}, content.KeySkills)
	})

	r.GET("/experience", func(c *gin.Context) {
		s.page(c, http.StatusOK, "experience.html", "Experience", nil, content.KeyExperience)
	})

	// HTMX fragments for the experience tabs
	r.GET("/work-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "work-content.html", gin.H{
			"items": content.For(c.Request.Context()).Experience(content.KindWork),
		})
	})
	r.GET("/education-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "education-content.html", gin.H{
			"items": content.For(c.Request.Context()).Experience(content.KindEducation),
		})
	})

	r.GET("/projects", func(c *gin.Context) {
		s.page(c, http.StatusOK, "projects.html", "Projects", gin.H{
			"projects": content.For(c.Request.Context()).Projects(),
		}, content.KeyProjects)
	})
	r.GET("/projects/:slug", func(c *gin.Context) {
		project, err := content.For(c.Request.Context()).ProjectBySlug(c.Param("slug"))
		if err != nil {
			s.notFound(c, err)
			return
		}
		s.page(c, http.StatusOK, "project.html", project.Title, gin.H{"project": project}, content.KeyProjects)
	})

	r.GET("/blog", func(c *gin.Context) {
		s.page(c, http.StatusOK, "blog.html", "Blog", gin.H{
			"posts": content.For(c.Request.Context()).Posts(false),
		}, content.KeyPosts)
	})
	r.GET("/blog/:slug", func(c *gin.Context) {
		post, err := content.For(c.Request.Context()).PostBySlug(c.Param("slug"), false)
		if err != nil {
			s.notFound(c, err)
			return
		}
		s.page(c, http.StatusOK, "post.html", post.Title, gin.H{"post": post}, content.KeyPosts)
	})

	r.GET("/p/:slug", func(c *gin.Context) {
		page, err := content.For(c.Request.Context()).PageBySlug(c.Param("slug"), false)
		if err != nil {
			s.notFound(c, err)
			return
		}
		s.page(c, http.StatusOK, "custom-page.html", page.Title, gin.H{"page": page}, content.KeyPages)
	})

	// HTMX Contact form endpoint - returns just the form HTML
	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{"title": "Contact Me"})
	})
	r.GET("/contact", func(c *gin.Context) {
		s.page(c, http.StatusOK, "contact-page.html", "Contact", nil)
	})
	r.POST("/contact", s.handleContact)

	r.GET("/privacy", func(c *gin.Context) {
		s.page(c, http.StatusOK, "privacy.html", "Privacy Policy", gin.H{
			"retentionDays": int(s.cfg.VisitorRetention.Hours() / 24),
		})
	})

	r.GET("/feed.xml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", s.feed.RSS())
	})
	r.GET("/sitemap.xml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/xml; charset=utf-8", s.feed.Sitemap())
	})
}

func (s *server) notFound(c *gin.Context, err error) {
	if !errors.Is(err, content.ErrNotFound) {
		s.logger.Error("page lookup failed", "path", c.Request.URL.Path, "error", err)
		s.page(c, http.StatusInternalServerError, "404.html", "Error", gin.H{"error": "Something went wrong."})
		return
	}
	s.page(c, http.StatusNotFound, "404.html", "Not Found", nil)
}
