package content

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

// StartSession records a new admin session valid for ttl and returns its
// token. Only the token's hash is stored, so a leaked database does not leak
// live sessions.
func (r *Repo) StartSession(ttl time.Duration) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := r.now().UTC()
	session := AdminSession{
		TokenHash: hashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	r.sessions.replace(func(prev []AdminSession) []AdminSession {
		next := make([]AdminSession, 0, len(prev)+1)
		for _, s := range prev {
			if s.ExpiresAt.After(now) {
				next = append(next, s)
			}
		}
		return append(next, session)
	})
	return token, nil
}

// SessionValid reports whether token belongs to an unexpired session.
func (r *Repo) SessionValid(token string) bool {
	if token == "" {
		return false
	}
	hash := []byte(hashToken(token))
	now := r.now()
	for _, s := range r.sessions.all() {
		if subtle.ConstantTimeCompare([]byte(s.TokenHash), hash) == 1 {
			return s.ExpiresAt.After(now)
		}
	}
	return false
}

// EndSession forgets token. Unknown tokens are ignored.
func (r *Repo) EndSession(token string) {
	if token == "" {
		return
	}
	_ = r.sessions.delete(hashToken(token))
}

// PruneSessions drops expired sessions and returns how many were removed.
func (r *Repo) PruneSessions() int {
	now := r.now()
	removed := 0
	for _, s := range r.sessions.all() {
		if !s.ExpiresAt.After(now) {
			removed++
		}
	}
	if removed == 0 {
		return 0
	}
	r.sessions.replace(func(prev []AdminSession) []AdminSession {
		next := make([]AdminSession, 0, len(prev))
		for _, s := range prev {
			if s.ExpiresAt.After(now) {
				next = append(next, s)
			}
		}
		return next
	})
	return removed
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
