package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionExpiredBoundary(t *testing.T) {
	t.Parallel()

	expiry := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: expiry}

	require.False(t, s.Expired(expiry.Add(-time.Nanosecond)))
	require.True(t, s.Expired(expiry), "the expiry instant itself is expired")
	require.True(t, s.Expired(expiry.Add(time.Nanosecond)))
}
