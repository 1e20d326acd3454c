package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehq/estatectl/internal/api"
)

func authenticatedManager(t *testing.T, expiresAt time.Time, redirector Redirector) *Manager {
	t.Helper()

	var exp *time.Time
	if !expiresAt.IsZero() {
		exp = &expiresAt
	}
	client := &fakeClient{loginResp: &api.LoginResponse{
		Token:     "T1",
		User:      &api.User{ID: 1, Name: "A", Role: "admin"},
		ExpiresAt: exp,
	}}

	m, _ := newTestManager(t, client, redirector)
	require.NoError(t, m.Login(context.Background(), "a@b.com", "x"))
	return m
}

func TestMonitor_WarnBoundary(t *testing.T) {
	t.Run("299 seconds left is expiring soon", func(t *testing.T) {
		m := authenticatedManager(t, time.Now().Add(299*time.Second), nil)

		assert.True(t, m.WillExpireSoon())

		m.monitor.tick()
		assert.Equal(t, StatusExpiring, m.Status())
		assert.True(t, m.IsAuthenticated())
	})

	t.Run("301 seconds left is not expiring soon", func(t *testing.T) {
		m := authenticatedManager(t, time.Now().Add(301*time.Second), nil)

		assert.False(t, m.WillExpireSoon())

		m.monitor.tick()
		assert.Equal(t, StatusAuthenticated, m.Status())
	})

	t.Run("no expiry means never expiring", func(t *testing.T) {
		m := authenticatedManager(t, time.Time{}, nil)

		assert.False(t, m.HasExpiry())
		assert.False(t, m.WillExpireSoon())

		m.monitor.tick()
		assert.Equal(t, StatusAuthenticated, m.Status())
	})
}

func TestMonitor_Expiry(t *testing.T) {
	t.Run("past expiry forces logout exactly once", func(t *testing.T) {
		redirector := &fakeRedirector{path: "/posts"}
		m := authenticatedManager(t, time.Now().Add(-time.Second), redirector)

		assert.Equal(t, time.Duration(0), m.TimeLeft())

		m.monitor.tick()
		assert.Equal(t, StatusAnonymous, m.Status())
		assert.Empty(t, m.Token())
		assert.Equal(t, []string{LoginPathExpired}, redirector.targets)

		// Ticks after the transition must not re-trigger side effects.
		m.monitor.tick()
		m.monitor.tick()
		assert.Len(t, redirector.targets, 1)
	})

	t.Run("expiry from the expiring state", func(t *testing.T) {
		redirector := &fakeRedirector{path: "/posts"}
		m := authenticatedManager(t, time.Now().Add(2*time.Second), redirector)

		m.monitor.tick()
		assert.Equal(t, StatusExpiring, m.Status())

		// Simulate time passing beyond the expiry.
		m.mu.Lock()
		m.expiresAt = time.Now().Add(-time.Second)
		m.mu.Unlock()

		m.monitor.tick()
		assert.Equal(t, StatusAnonymous, m.Status())
		assert.Equal(t, []string{LoginPathExpired}, redirector.targets)
	})

	t.Run("fresh login between ticks wins over stale expiry", func(t *testing.T) {
		redirector := &fakeRedirector{path: "/posts"}
		m := authenticatedManager(t, time.Now().Add(time.Second), redirector)

		// A new login lands before the next tick with a fresh expiry.
		newExpiry := time.Now().Add(time.Hour)
		require.NoError(t, m.Login(context.Background(), "a@b.com", "x"))
		m.mu.Lock()
		m.expiresAt = newExpiry
		m.mu.Unlock()

		m.monitor.tick()
		assert.Equal(t, StatusAuthenticated, m.Status())
		assert.Empty(t, redirector.targets)
	})
}

func TestMonitor_Lifecycle(t *testing.T) {
	t.Run("inert while anonymous", func(t *testing.T) {
		m, _ := newTestManager(t, &fakeClient{}, nil)

		m.monitor.mu.Lock()
		running := m.monitor.stop != nil
		m.monitor.mu.Unlock()
		assert.False(t, running)
	})

	t.Run("started by login with expiry", func(t *testing.T) {
		m := authenticatedManager(t, time.Now().Add(time.Hour), nil)

		m.monitor.mu.Lock()
		running := m.monitor.stop != nil
		m.monitor.mu.Unlock()
		assert.True(t, running)
	})

	t.Run("not started for sessions without expiry", func(t *testing.T) {
		m := authenticatedManager(t, time.Time{}, nil)

		m.monitor.mu.Lock()
		running := m.monitor.stop != nil
		m.monitor.mu.Unlock()
		assert.False(t, running)
	})

	t.Run("stopped by logout", func(t *testing.T) {
		m := authenticatedManager(t, time.Now().Add(time.Hour), nil)
		m.Logout(context.Background())

		m.monitor.mu.Lock()
		running := m.monitor.stop != nil
		m.monitor.mu.Unlock()
		assert.False(t, running)
	})

	t.Run("start and stop are idempotent", func(t *testing.T) {
		m := authenticatedManager(t, time.Now().Add(time.Hour), nil)

		m.monitor.Start()
		m.monitor.Start()
		m.monitor.Stop()
		m.monitor.Stop()
	})
}
