package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/content"
)

type contactForm struct {
	FullName string `form:"fullName" binding:"required,max=100"`
	Email    string `form:"email" binding:"required,email"`
	Message  string `form:"message" binding:"required,max=5000"`
}

// Handle contact form submission with HTMX
func (s *server) handleContact(c *gin.Context) {
	var form contactForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name, a valid email address and a message.",
		})
		return
	}

	msg, err := content.For(c.Request.Context()).AddMessage(form.FullName, form.Email, form.Message)
	if err != nil {
		var ve *content.ValidationError
		if !errors.As(err, &ve) {
			s.logger.Error("storing contact message", "error", err)
		}
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	if s.mail != nil {
		if err := s.mail(msg); err != nil {
			s.logger.Warn("contact email not sent, message kept in the inbox", "id", msg.ID, "error", err)
		} else {
			s.logger.Info("contact email sent", "id", msg.ID)
		}
	}

	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}

// headerSafe drops line breaks so submitted values cannot add mail headers.
func headerSafe(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

func contactEmail(cfg config.Config, m content.ContactMessage) []byte {
	subject := fmt.Sprintf("Portfolio Contact: %s", headerSafe(m.Name))
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, m.Name, m.Email, m.Message)

	return []byte("To: " + cfg.ToEmail + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + cfg.SMTP.User + "\r\n" +
		"Reply-To: " + headerSafe(m.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")
}

func sendContactEmail(cfg config.Config, m content.ContactMessage) error {
	if !cfg.SMTPEnabled() {
		return fmt.Errorf("SMTP credentials not configured")
	}
	auth := smtp.PlainAuth("", cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.Host)
	err := smtp.SendMail(cfg.SMTP.Host+":"+cfg.SMTP.Port, auth, cfg.SMTP.User, []string{cfg.ToEmail}, contactEmail(cfg, m))
	if err != nil {
		return fmt.Errorf("send contact email: %w", err)
	}
	return nil
}
