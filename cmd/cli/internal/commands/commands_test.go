package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	t.Run("accepts a well-formed pair", func(t *testing.T) {
		email, err := validateCredentials("ops@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "ops@example.com", email)
	})

	t.Run("rejects empty email", func(t *testing.T) {
		_, err := validateCredentials("", "secret")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email is required")
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		_, err := validateCredentials("not-an-address", "secret")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid email")
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := validateCredentials("ops@example.com", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "password is required")
	})

	t.Run("returns the trimmed email for submission", func(t *testing.T) {
		email, err := validateCredentials("  ops@example.com  ", "secret")
		require.NoError(t, err)
		assert.Equal(t, "ops@example.com", email)
	})
}

func TestAsID(t *testing.T) {
	// YAML decoding hands back ints, JSON hands back float64s.
	cases := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"int", 7, 7, true},
		{"int64", int64(7), 7, true},
		{"float64", float64(7), 7, true},
		{"string", "7", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := asID(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestItemTitle(t *testing.T) {
	t.Run("prefers title over name", func(t *testing.T) {
		assert.Equal(t, "Post", itemTitle(map[string]any{"title": "Post", "name": "ignored"}))
	})

	t.Run("falls back through name and email", func(t *testing.T) {
		assert.Equal(t, "Jane", itemTitle(map[string]any{"name": "Jane"}))
		assert.Equal(t, "a@b.com", itemTitle(map[string]any{"email": "a@b.com"}))
	})

	t.Run("empty when nothing matches", func(t *testing.T) {
		assert.Empty(t, itemTitle(map[string]any{"body": "text"}))
	})
}
