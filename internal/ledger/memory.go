package ledger

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and local development.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	txs    []Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Append(_ context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.nextID
	s.nextID++
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	s.txs = append(s.txs, *tx)
	return nil
}

// Debit mirrors the Postgres store: the sum check and the append happen
// under one lock, so concurrent debits over a shared store see each other.
func (s *MemoryStore) Debit(_ context.Context, tx *Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, t := range s.txs {
		if t.PlayerID == tx.PlayerID {
			sum += t.Points
		}
	}
	if sum+tx.Points < 0 {
		return 0, ErrInsufficientBalance
	}
	tx.ID = s.nextID
	s.nextID++
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	s.txs = append(s.txs, *tx)
	return sum + tx.Points, nil
}

func (s *MemoryStore) SumBalance(_ context.Context, playerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, tx := range s.txs {
		if tx.PlayerID == playerID {
			sum += tx.Points
		}
	}
	return sum, nil
}

func (s *MemoryStore) Recent(_ context.Context, playerID string, limit int) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Transaction
	for i := len(s.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.txs[i].PlayerID == playerID {
			out = append(out, s.txs[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.txs {
		if s.txs[i].ID == id {
			s.txs[i].Status = status
			return nil
		}
	}
	return errors.New("transaction not found")
}

// All returns a copy of every stored transaction, for test assertions.
func (s *MemoryStore) All() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}
