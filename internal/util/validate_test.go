package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidEmail(t *testing.T) {
	for _, ok := range []string{"a@b.co", " student@college.edu ", "x.y+z@mail.example.org"} {
		require.True(t, IsValidEmail(ok), ok)
	}
	for _, bad := range []string{"", "plain", "a@b", "a b@c.d", "@b.co"} {
		require.False(t, IsValidEmail(bad), bad)
	}
}

func TestRequireFields(t *testing.T) {
	require.NoError(t, RequireFields("a", "b"))
	require.ErrorIs(t, RequireFields("a", "  "), ErrMissingFields)
	require.ErrorIs(t, RequireFields(""), ErrMissingFields)
}
