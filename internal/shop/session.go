package shop

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session states. AwaitingContext is the only state a session can be
// confirmed from; Expired and Confirmed are terminal.
const (
	StateAwaitingContext = "awaiting_context"
	StateConfirmed       = "confirmed"
	StateExpired         = "expired"
)

// Session is the short-lived interactive purchase flow: the player picked
// an item and still owes a context selection (the map they are on). No
// debit happens before the Confirmed transition, so an expired session has
// no ledger effect by construction.
type Session struct {
	ID        string
	PlayerID  string
	ItemName  string
	Command   string // still carries the {map} placeholder
	Price     int64
	MapName   string
	State     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore keeps purchase sessions in memory. They do not survive a
// restart; a lost session simply expires with no ledger effect.
type SessionStore struct {
	ttl time.Duration
	mu  sync.Mutex
	m   map[string]*Session
	now func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SessionStore{ttl: ttl, m: make(map[string]*Session), now: time.Now}
}

// Begin opens a session in AwaitingContext for the given item selection.
func (s *SessionStore) Begin(playerID, itemName, command string, price int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		ItemName:  itemName,
		Command:   command,
		Price:     price,
		State:     StateAwaitingContext,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.m[sess.ID] = sess
	return sess
}

// Confirm transitions AwaitingContext → Confirmed with the chosen map and
// returns a copy of the session. A session past its deadline transitions
// to Expired instead and the call fails; a Confirmed or Expired session
// can never be confirmed again.
func (s *SessionStore) Confirm(sessionID, playerID, mapName string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.PlayerID != playerID {
		return Session{}, ErrSessionNotYours
	}
	if sess.State == StateExpired || s.now().After(sess.ExpiresAt) {
		sess.State = StateExpired
		return Session{}, ErrSessionExpired
	}
	if sess.State != StateAwaitingContext {
		return Session{}, ErrSessionExpired
	}
	sess.State = StateConfirmed
	sess.MapName = mapName
	out := *sess
	delete(s.m, sessionID)
	return out, nil
}

// Sweep drops sessions past their deadline, marking them Expired first.
// Returns the number removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.m {
		if now.After(sess.ExpiresAt) {
			sess.State = StateExpired
			delete(s.m, id)
			removed++
		}
	}
	return removed
}
