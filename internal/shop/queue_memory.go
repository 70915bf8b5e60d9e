package shop

import (
	"context"
	"sync"
	"time"
)

// MemoryQueueStore is an in-process QueueStore used by tests.
type MemoryQueueStore struct {
	mu     sync.Mutex
	nextID int64
	items  []PendingDelivery
}

func NewMemoryQueueStore() *MemoryQueueStore {
	return &MemoryQueueStore{nextID: 1}
}

func (s *MemoryQueueStore) Enqueue(_ context.Context, d *PendingDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.nextID
	s.nextID++
	d.Status = DeliveryPending
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	s.items = append(s.items, *d)
	return nil
}

func (s *MemoryQueueStore) Pending(_ context.Context) ([]PendingDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PendingDelivery
	for _, d := range s.items {
		if d.Status == DeliveryPending {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *MemoryQueueStore) All(_ context.Context) ([]PendingDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingDelivery, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *MemoryQueueStore) MarkDelivered(_ context.Context, id int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].Status == DeliveryPending {
			s.items[i].Status = DeliveryDelivered
			t := at
			s.items[i].DeliveredAt = &t
			return true, nil
		}
	}
	return false, nil
}
