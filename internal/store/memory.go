package store

import (
	"context"
	"sync"

	"backend-tiket/internal/queue"
)

type memBranch struct {
	mu      sync.Mutex
	counter int64
	waiting []int64
}

// Memory keeps counters and queues in process. Branches do not share a lock.
type Memory struct {
	mu       sync.Mutex
	branches map[string]*memBranch
}

var _ queue.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{branches: make(map[string]*memBranch)}
}

func (m *Memory) branch(branchID string) *memBranch {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.branches[branchID]
	if !ok {
		b = &memBranch{}
		m.branches[branchID] = b
	}
	return b
}

func (m *Memory) Next(ctx context.Context, branchID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, queue.Unavailable("next", err)
	}
	b := m.branch(branchID)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counter++
	return b.counter, nil
}

func (m *Memory) Rewind(_ context.Context, branchID string, n int64) (bool, error) {
	b := m.branch(branchID)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.counter != n {
		return false, nil
	}
	b.counter--
	return true, nil
}

func (m *Memory) PushBack(ctx context.Context, branchID string, n int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, queue.Unavailable("push", err)
	}
	b := m.branch(branchID)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.waiting = append(b.waiting, n)
	return int64(len(b.waiting)), nil
}

func (m *Memory) PopFront(ctx context.Context, branchID string) (int64, int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, false, queue.Unavailable("pop", err)
	}
	b := m.branch(branchID)
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.waiting) == 0 {
		return 0, 0, false, nil
	}
	n := b.waiting[0]
	b.waiting[0] = 0
	b.waiting = b.waiting[1:]
	return n, int64(len(b.waiting)), true, nil
}

func (m *Memory) Length(ctx context.Context, branchID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, queue.Unavailable("length", err)
	}
	b := m.branch(branchID)
	b.mu.Lock()
	defer b.mu.Unlock()

	return int64(len(b.waiting)), nil
}
