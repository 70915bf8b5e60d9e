package retrylimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(2, 3*time.Hour, WithClock(clock.now)), clock
}

func TestAttemptAllowsCapThenDenies(t *testing.T) {
	l, _ := newTestLimiter()

	require.True(t, l.Attempt("admin", "eos-1"))
	require.True(t, l.Attempt("admin", "eos-1"))
	require.False(t, l.Attempt("admin", "eos-1"))
	// The denied attempt must not consume anything once the window moves on.
	require.Equal(t, 0, l.Remaining("admin", "eos-1"))
}

func TestAttemptKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	require.True(t, l.Attempt("admin", "eos-1"))
	require.True(t, l.Attempt("admin", "eos-1"))
	require.False(t, l.Attempt("admin", "eos-1"))

	require.True(t, l.Attempt("admin", "eos-2"))
	require.True(t, l.Attempt("other-admin", "eos-1"))
}

func TestWindowExpiryRestoresBudget(t *testing.T) {
	l, clock := newTestLimiter()

	require.True(t, l.Attempt("admin", "eos-1"))
	clock.advance(time.Hour)
	require.True(t, l.Attempt("admin", "eos-1"))
	require.False(t, l.Attempt("admin", "eos-1"))

	// First stamp ages out after 3h; one slot comes back.
	clock.advance(2*time.Hour + time.Minute)
	require.True(t, l.Attempt("admin", "eos-1"))
	require.False(t, l.Attempt("admin", "eos-1"))
}

func TestStampExactlyWindowOldStillCounts(t *testing.T) {
	l, clock := newTestLimiter()

	require.True(t, l.Attempt("admin", "eos-1"))
	require.True(t, l.Attempt("admin", "eos-1"))

	// The window is inclusive: at exactly 3h both stamps still count.
	clock.advance(3 * time.Hour)
	require.False(t, l.Attempt("admin", "eos-1"))
	require.Equal(t, 0, l.Remaining("admin", "eos-1"))

	clock.advance(time.Second)
	require.True(t, l.Attempt("admin", "eos-1"))
}

func TestDeniedAttemptRecordsNoTimestamp(t *testing.T) {
	l, clock := newTestLimiter()

	require.True(t, l.Attempt("admin", "eos-1"))
	require.True(t, l.Attempt("admin", "eos-1"))
	require.False(t, l.Attempt("admin", "eos-1"))
	require.False(t, l.Attempt("admin", "eos-1"))

	// Both recorded stamps expire together; the denied attempts must not
	// have extended the window.
	clock.advance(3*time.Hour + time.Minute)
	require.Equal(t, 2, l.Remaining("admin", "eos-1"))
}

func TestResetRestoresFullBudget(t *testing.T) {
	l, _ := newTestLimiter()

	require.True(t, l.Attempt("admin", "eos-1"))
	require.True(t, l.Attempt("admin", "eos-1"))
	require.False(t, l.Attempt("admin", "eos-1"))

	l.Reset("admin", "eos-1")
	require.True(t, l.Attempt("admin", "eos-1"))
	require.True(t, l.Attempt("admin", "eos-1"))
	require.False(t, l.Attempt("admin", "eos-1"))
}

func TestGCDropsExpiredKeys(t *testing.T) {
	l, clock := newTestLimiter()

	require.True(t, l.Attempt("admin", "eos-1"))
	require.True(t, l.Attempt("admin", "eos-2"))

	require.Equal(t, 0, l.GC())

	clock.advance(4 * time.Hour)
	require.Equal(t, 2, l.GC())

	// A fresh attempt after GC starts a clean entry.
	require.True(t, l.Attempt("admin", "eos-1"))
}
