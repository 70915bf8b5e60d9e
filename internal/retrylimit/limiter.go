// Package retrylimit bounds how often an operator may replay a failed
// credit against the same subject: a sliding-window counter per
// (actor, subject) pair with lazy expiry and an explicit administrative
// reset.
package retrylimit

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

const (
	DefaultCap    = 2
	DefaultWindow = 3 * time.Hour
)

type entry struct {
	mu     sync.Mutex
	stamps []time.Time
	dead   bool
}

// Limiter counts attempts per (actor, subject) key inside a sliding window.
// State is process-lifetime only; a restart restores the full budget.
type Limiter struct {
	cap     int
	window  time.Duration
	entries *xsync.Map[string, *entry]
	now     func() time.Time
}

type Option func(*Limiter)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(cap int, window time.Duration, opts ...Option) *Limiter {
	if cap <= 0 {
		cap = DefaultCap
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		cap:     cap,
		window:  window,
		entries: xsync.NewMap[string, *entry](),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func key(actorID, subjectID string) string {
	return actorID + "\x00" + subjectID
}

// Attempt reports whether the actor may retry against the subject now. When
// allowed, the attempt is recorded; when denied, no state changes. Stale
// timestamps are pruned before counting, so an idle key eventually behaves
// as if empty without a reset.
func (l *Limiter) Attempt(actorID, subjectID string) bool {
	for {
		e, _ := l.entries.LoadOrStore(key(actorID, subjectID), &entry{})
		e.mu.Lock()
		if e.dead {
			// Lost a race with GC; the map slot is gone, take a fresh one.
			e.mu.Unlock()
			continue
		}
		now := l.now()
		e.stamps = l.prune(e.stamps, now)
		if len(e.stamps) >= l.cap {
			e.mu.Unlock()
			return false
		}
		e.stamps = append(e.stamps, now)
		e.mu.Unlock()
		return true
	}
}

// Remaining reports how many attempts are left in the current window.
func (l *Limiter) Remaining(actorID, subjectID string) int {
	e, ok := l.entries.Load(key(actorID, subjectID))
	if !ok {
		return l.cap
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return l.cap
	}
	e.stamps = l.prune(e.stamps, l.now())
	return l.cap - len(e.stamps)
}

// Reset clears the entry for the key, restoring the full retry budget.
// Callers are responsible for the elevated-authorization check.
func (l *Limiter) Reset(actorID, subjectID string) {
	k := key(actorID, subjectID)
	if e, ok := l.entries.Load(k); ok {
		e.mu.Lock()
		e.dead = true
		e.mu.Unlock()
	}
	l.entries.Delete(k)
}

// GC drops keys whose every timestamp has expired. Intended to run
// periodically; memory is otherwise bounded only by distinct keys seen.
func (l *Limiter) GC() int {
	now := l.now()
	removed := 0
	l.entries.Range(func(k string, e *entry) bool {
		e.mu.Lock()
		e.stamps = l.prune(e.stamps, now)
		if len(e.stamps) == 0 {
			e.dead = true
			l.entries.Delete(k)
			removed++
		}
		e.mu.Unlock()
		return true
	})
	return removed
}

// prune drops stamps older than the window. The window is inclusive on
// both ends, so a stamp exactly window old still counts.
func (l *Limiter) prune(stamps []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	kept := stamps[:0]
	for _, ts := range stamps {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
