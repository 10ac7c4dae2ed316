package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions(t *testing.T) {
	r := newTestRepo(t)

	token, err := r.StartSession(time.Hour)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.True(t, r.SessionValid(token))
	assert.False(t, r.SessionValid(""))
	assert.False(t, r.SessionValid("forged"))

	for _, s := range r.sessions.all() {
		assert.NotEqual(t, token, s.TokenHash, "raw tokens are never stored")
	}

	r.EndSession(token)
	r.EndSession(token)
	assert.False(t, r.SessionValid(token))
}

func TestSessionsExpire(t *testing.T) {
	r := newTestRepo(t)

	expired, err := r.StartSession(time.Minute)
	require.NoError(t, err)
	live, err := r.StartSession(time.Hour)
	require.NoError(t, err)

	r.now = func() time.Time { return fixedNow.Add(30 * time.Minute) }
	assert.False(t, r.SessionValid(expired))
	assert.True(t, r.SessionValid(live))

	assert.Equal(t, 1, r.PruneSessions())
	assert.Equal(t, 0, r.PruneSessions())
	assert.Len(t, r.sessions.all(), 1)
}
