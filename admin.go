// admin.go - session-based admin dashboard and content API
package main

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/content"
)

const sessionCookie = "admin_session"

// devPassword is accepted in debug mode when ADMIN_PASSWORD is unset.
const devPassword = "admin123"

func (s *server) clientHash(c *gin.Context) string {
	if s.tracker == nil {
		return ""
	}
	return s.tracker.HashIP(c.ClientIP())
}

// Middleware to check admin authentication
func (s *server) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || !content.For(c.Request.Context()).SessionValid(token) {
			if strings.HasPrefix(c.Request.URL.Path, "/admin/api/") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
				return
			}
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *server) credentialsOK(username, password string) bool {
	wantPassword := s.cfg.AdminPassword
	if wantPassword == "" {
		if gin.Mode() != gin.DebugMode {
			return false
		}
		s.logger.Warn("using default admin password, set ADMIN_PASSWORD")
		wantPassword = devPassword
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(wantPassword)) == 1
	return userOK && passOK
}

// Setup all admin routes
func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		if !s.credentialsOK(c.PostForm("username"), c.PostForm("password")) {
			s.logger.Warn("failed admin login", "client", s.clientHash(c))
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"title": "Admin Login",
				"error": "Invalid credentials",
			})
			return
		}

		token, err := content.For(c.Request.Context()).StartSession(s.cfg.AdminSessionTTL)
		if err != nil {
			s.logger.Error("starting admin session", "error", err)
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Could not sign in"})
			return
		}
		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(sessionCookie, token, int(s.cfg.AdminSessionTTL/time.Second), "/admin", "", c.Request.TLS != nil, true)
		s.logger.Info("admin login", "client", s.clientHash(c))
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		if token, err := c.Cookie(sessionCookie); err == nil {
			content.For(c.Request.Context()).EndSession(token)
		}
		c.SetCookie(sessionCookie, "", -1, "/admin", "", c.Request.TLS != nil, true)
		s.logger.Info("admin logout", "client", s.clientHash(c))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	// Protected admin routes group
	admin := r.Group("/admin")
	admin.Use(s.adminAuthMiddleware())

	admin.GET("/dashboard", func(c *gin.Context) {
		stats, err := s.tracker.Stats(c.Request.Context())
		if err != nil {
			s.logger.Error("loading admin stats", "error", err)
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load statistics"})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"title":  "Dashboard",
			"stats":  stats,
			"counts": content.For(c.Request.Context()).Counts(),
		})
	})

	admin.GET("/messages", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-messages.html", gin.H{
			"title":    "Messages",
			"messages": content.For(c.Request.Context()).Messages(),
		})
	})

	admin.GET("/visitors", func(c *gin.Context) {
		visitors, err := s.tracker.Recent(c.Request.Context(), 200)
		if err != nil {
			s.logger.Error("loading visitors", "error", err)
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load visitors"})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"title":    "Visitors",
			"visitors": visitors,
		})
	})

	api := admin.Group("/api")
	api.GET("/stats", s.adminStats)

	api.GET("/settings", func(c *gin.Context) {
		c.JSON(http.StatusOK, content.For(c.Request.Context()).Settings())
	})
	api.PUT("/settings", func(c *gin.Context) {
		var settings content.SiteSettings
		if err := c.ShouldBindJSON(&settings); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := content.For(c.Request.Context()).SaveSettings(settings); err != nil {
			s.apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, settings)
	})

	api.GET("/navigation", func(c *gin.Context) {
		c.JSON(http.StatusOK, content.For(c.Request.Context()).Navigation())
	})
	api.PUT("/navigation", func(c *gin.Context) {
		var items []content.NavItem
		if err := c.ShouldBindJSON(&items); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		repo := content.For(c.Request.Context())
		if err := repo.SaveNavigation(items); err != nil {
			s.apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, repo.Navigation())
	})

	collection(s, api, "projects", (*content.Repo).Projects, (*content.Repo).SaveProject, (*content.Repo).DeleteProject)
	collection(s, api, "skills", (*content.Repo).Skills, (*content.Repo).SaveSkill, (*content.Repo).DeleteSkill)
	collection(s, api, "experience",
		func(r *content.Repo) []content.Experience { return r.Experience("") },
		(*content.Repo).SaveExperience, (*content.Repo).DeleteExperience)
	collection(s, api, "posts",
		func(r *content.Repo) []content.BlogPost { return r.Posts(true) },
		(*content.Repo).SavePost, (*content.Repo).DeletePost)
	collection(s, api, "testimonials", (*content.Repo).Testimonials, (*content.Repo).SaveTestimonial, (*content.Repo).DeleteTestimonial)
	collection(s, api, "pages",
		func(r *content.Repo) []content.CustomPage { return r.Pages(true) },
		(*content.Repo).SavePage, (*content.Repo).DeletePage)

	api.GET("/messages", func(c *gin.Context) {
		c.JSON(http.StatusOK, content.For(c.Request.Context()).Messages())
	})
	api.PUT("/messages/:id/read", func(c *gin.Context) {
		var body struct {
			Read bool `json:"read"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := content.For(c.Request.Context()).MarkMessageRead(c.Param("id"), body.Read); err != nil {
			s.apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Message updated"})
	})
	api.DELETE("/messages/:id", func(c *gin.Context) {
		if err := content.For(c.Request.Context()).DeleteMessage(c.Param("id")); err != nil {
			s.apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
	})

	api.POST("/media", s.uploadMedia)

	api.POST("/import", func(c *gin.Context) {
		var bundle content.Bundle
		if err := c.ShouldBindJSON(&bundle); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		repo := content.For(c.Request.Context())
		if err := repo.Import(bundle); err != nil {
			s.apiError(c, err)
			return
		}
		s.logger.Info("content imported", "client", s.clientHash(c))
		c.JSON(http.StatusOK, gin.H{"message": "Content imported", "counts": repo.Counts()})
	})

	// Content export (for backups or moving to another host)
	admin.GET("/export/content", func(c *gin.Context) {
		c.Header("Content-Disposition", "attachment; filename=folio-content.json")
		s.logger.Info("content exported", "client", s.clientHash(c))
		c.JSON(http.StatusOK, content.For(c.Request.Context()).Export())
	})

	// Admin statistics export (for backups or analysis)
	admin.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.tracker.Stats(c.Request.Context())
		if err != nil {
			s.apiError(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		s.logger.Info("admin stats exported", "client", s.clientHash(c))
		c.JSON(http.StatusOK, stats)
	})

	// Privacy: purge expired visits, or every visit from one address.
	admin.POST("/privacy/delete-visitor-data", func(c *gin.Context) {
		ctx := c.Request.Context()
		if ip := strings.TrimSpace(c.PostForm("ip")); ip != "" {
			n, err := s.tracker.Forget(ctx, ip)
			if err != nil {
				s.apiError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Visitor data deleted", "deleted": n})
			return
		}
		n, err := s.tracker.Cleanup(ctx, s.cfg.VisitorRetention)
		if err != nil {
			s.apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "deleted": n})
	})
}

func (s *server) adminStats(c *gin.Context) {
	stats, err := s.tracker.Stats(c.Request.Context())
	if err != nil {
		s.apiError(c, err)
		return
	}
	body := gin.H{
		"visitors": stats,
		"content":  content.For(c.Request.Context()).Counts(),
	}
	if s.hub != nil {
		body["peers"] = s.hub.Peers()
	}
	c.JSON(http.StatusOK, body)
}

func (s *server) uploadMedia(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	f, err := file.Open()
	if err != nil {
		s.apiError(c, err)
		return
	}
	defer f.Close()

	url, err := s.media.Put(c.Request.Context(), file.Filename, f)
	if err != nil {
		s.apiError(c, err)
		return
	}
	s.logger.Info("media uploaded", "url", url, "client", s.clientHash(c))
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// collection exposes list, upsert and delete for one content collection.
func collection[T any](
	s *server,
	api *gin.RouterGroup,
	name string,
	list func(*content.Repo) []T,
	save func(*content.Repo, T) (T, error),
	remove func(*content.Repo, string) error,
) {
	api.GET("/"+name, func(c *gin.Context) {
		c.JSON(http.StatusOK, list(content.For(c.Request.Context())))
	})
	api.POST("/"+name, func(c *gin.Context) {
		var item T
		if err := c.ShouldBindJSON(&item); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		saved, err := save(content.For(c.Request.Context()), item)
		if err != nil {
			s.apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, saved)
	})
	api.DELETE("/"+name+"/:id", func(c *gin.Context) {
		if err := remove(content.For(c.Request.Context()), c.Param("id")); err != nil {
			s.apiError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
	})
}
