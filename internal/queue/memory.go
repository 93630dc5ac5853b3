package queue

import (
	"context"
	"sync"
	"time"

	"github.com/IgorPritula/entity-ref-dependency/internal/model"
)

type memItem struct {
	item   Item
	expire time.Time
}

// Memory is an in-process Queue. Jobs are lost on exit.
type Memory struct {
	mu    sync.Mutex
	items []*memItem
	now   func() time.Time
}

// NewMemory creates an empty in-process queue.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Enqueue(_ context.Context, job model.DeleteJob) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it := &memItem{item: Item{ID: newID(), Job: job, Enqueued: m.now()}}
	m.items = append(m.items, it)
	return it.item.ID, nil
}

func (m *Memory) Claim(_ context.Context, lease time.Duration) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, it := range m.items {
		if it.expire.After(now) {
			continue
		}
		it.expire = now.Add(lease)
		it.item.Attempts++
		claimed := it.item
		return &claimed, nil
	}
	return nil, nil
}

func (m *Memory) Ack(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, it := range m.items {
		if it.item.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, it := range m.items {
		if it.item.ID == id {
			it.expire = time.Time{}
			return nil
		}
	}
	return nil
}

func (m *Memory) Len(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}
