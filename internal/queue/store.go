package queue

import "context"

// SequenceStore hands out per-branch ticket numbers. Next must return
// strictly increasing numbers, exactly one apart, for a given branch.
type SequenceStore interface {
	Next(ctx context.Context, branchID string) (int64, error)

	// Rewind undoes a Next that returned n, but only while the counter
	// still equals n. It reports whether the counter was moved back.
	Rewind(ctx context.Context, branchID string, n int64) (bool, error)
}

// WaitQueue is a per-branch FIFO of outstanding ticket numbers.
type WaitQueue interface {
	// PushBack appends n and returns the queue length including n.
	PushBack(ctx context.Context, branchID string, n int64) (int64, error)

	// PopFront removes the longest waiting number. ok is false when the
	// queue is empty. length is the queue length after the pop.
	PopFront(ctx context.Context, branchID string) (n int64, length int64, ok bool, err error)

	Length(ctx context.Context, branchID string) (int64, error)
}

// Store is the combination every backend in internal/store provides.
type Store interface {
	SequenceStore
	WaitQueue
}

// AtomicIssuer is implemented by wait queues that also own the branch
// counter and can take a number and enqueue it in one step. Shared
// backends need this: the coordinator's branch lock only covers one process.
type AtomicIssuer interface {
	// IssueNext returns the new number and the queue length including it.
	IssueNext(ctx context.Context, branchID string) (n int64, length int64, err error)
}
