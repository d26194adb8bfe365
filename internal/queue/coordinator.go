package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"backend-tiket/internal/models"

	"go.uber.org/zap"
)

// Publisher receives every event the coordinator emits. Publish must not
// block on subscribers.
type Publisher interface {
	Publish(ev models.Event)
}

// AnnouncePolicy decides whether issuance itself is a point of call.
type AnnouncePolicy int

const (
	// AnnounceOnCall publishes ReceiveNewTicket only from CallNext.
	AnnounceOnCall AnnouncePolicy = iota
	// AnnounceOnIssue also publishes ReceiveNewTicket for each issued ticket.
	AnnounceOnIssue
)

func ParseAnnouncePolicy(s string) (AnnouncePolicy, error) {
	switch s {
	case "", "call":
		return AnnounceOnCall, nil
	case "issue":
		return AnnounceOnIssue, nil
	}
	return AnnounceOnCall, fmt.Errorf("unknown announce policy %q", s)
}

type Option func(*Coordinator)

func WithPolicy(p AnnouncePolicy) Option {
	return func(c *Coordinator) { c.policy = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// branchState serializes issue/call-next per branch. Entries are never
// removed; branches live as long as the process.
type branchState struct {
	mu         sync.Mutex
	lastAt     time.Time
	lastCalled *models.Ticket
}

// stamp keeps issuance times non-decreasing within a branch even if the
// wall clock steps backwards. Caller holds b.mu.
func (b *branchState) stamp(now time.Time) time.Time {
	if now.Before(b.lastAt) {
		return b.lastAt
	}
	b.lastAt = now
	return now
}

// Coordinator is the only writer of branch state. It never retries; store
// failures are returned to the caller unchanged.
type Coordinator struct {
	seq    SequenceStore
	queue  WaitQueue
	pub    Publisher
	policy AnnouncePolicy
	now    func() time.Time
	logger *zap.Logger

	mu       sync.Mutex
	branches map[string]*branchState
}

func NewCoordinator(seq SequenceStore, q WaitQueue, pub Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		seq:      seq,
		queue:    q,
		pub:      pub,
		now:      time.Now,
		logger:   zap.NewNop(),
		branches: make(map[string]*branchState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) branch(branchID string) *branchState {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.branches[branchID]
	if !ok {
		b = &branchState{}
		c.branches[branchID] = b
	}
	return b
}

func (c *Coordinator) publish(ev models.Event) {
	if c.pub == nil {
		return
	}
	c.pub.Publish(ev)
}

// Issue takes the next number for branchID and appends it to the wait queue.
func (c *Coordinator) Issue(ctx context.Context, branchID string) (models.Ticket, error) {
	if err := ValidateBranch(branchID); err != nil {
		return models.Ticket{}, err
	}

	b := c.branch(branchID)
	b.mu.Lock()
	defer b.mu.Unlock()

	n, length, err := c.take(ctx, branchID)
	if err != nil {
		return models.Ticket{}, err
	}

	t := models.Ticket{
		Number:       n,
		BranchID:     branchID,
		IssuedAt:     b.stamp(c.now()),
		WaitingCount: length,
	}

	// Published while the branch is held so per-subscriber order
	// follows the order operations completed in.
	if c.policy == AnnounceOnIssue {
		c.publish(models.NewTicketEvent(t))
	}
	c.publish(models.WaitingCountEvent(branchID, length))

	c.logger.Debug("ticket issued",
		zap.String("branch", branchID),
		zap.Int64("number", n),
		zap.Int64("waiting", length),
	)
	return t, nil
}

// take obtains the next number and enqueues it. Without an AtomicIssuer a
// push failure rewinds the counter so no number is consumed.
func (c *Coordinator) take(ctx context.Context, branchID string) (int64, int64, error) {
	if ai, ok := c.queue.(AtomicIssuer); ok {
		return ai.IssueNext(ctx, branchID)
	}

	n, err := c.seq.Next(ctx, branchID)
	if err != nil {
		return 0, 0, err
	}

	length, err := c.queue.PushBack(ctx, branchID, n)
	if err != nil {
		c.rewind(ctx, branchID, n)
		return 0, 0, err
	}
	return n, length, nil
}

func (c *Coordinator) rewind(ctx context.Context, branchID string, n int64) {
	ok, err := c.seq.Rewind(context.WithoutCancel(ctx), branchID, n)
	if err != nil || !ok {
		c.logger.Warn("counter rewind failed, number skipped",
			zap.String("branch", branchID),
			zap.Int64("number", n),
			zap.Bool("rewound", ok),
			zap.Error(err),
		)
	}
}

// CallNext dequeues the longest waiting ticket. ok is false, and nothing is
// published, when the branch has no one waiting.
func (c *Coordinator) CallNext(ctx context.Context, branchID string) (models.Ticket, bool, error) {
	if err := ValidateBranch(branchID); err != nil {
		return models.Ticket{}, false, err
	}

	b := c.branch(branchID)
	b.mu.Lock()
	defer b.mu.Unlock()

	n, length, ok, err := c.queue.PopFront(ctx, branchID)
	if err != nil || !ok {
		return models.Ticket{}, false, err
	}

	t := models.Ticket{
		Number:       n,
		BranchID:     branchID,
		IssuedAt:     b.stamp(c.now()),
		WaitingCount: length,
	}
	b.lastCalled = &t

	c.publish(models.NewTicketEvent(t))

	c.logger.Debug("ticket called",
		zap.String("branch", branchID),
		zap.Int64("number", n),
		zap.Int64("waiting", length),
	)
	return t, true, nil
}

// Recall re-announces t exactly as given. The ticket is trusted; nothing
// checks that it was ever issued.
func (c *Coordinator) Recall(t models.Ticket) {
	c.publish(models.RecallEvent(t))
}

// LastCalled returns the most recent ticket called on branchID by this process.
func (c *Coordinator) LastCalled(branchID string) (models.Ticket, bool) {
	c.mu.Lock()
	b, ok := c.branches[branchID]
	c.mu.Unlock()
	if !ok {
		return models.Ticket{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastCalled == nil {
		return models.Ticket{}, false
	}
	return *b.lastCalled, true
}

func (c *Coordinator) Status(ctx context.Context, branchID string) (models.BranchStatus, error) {
	if err := ValidateBranch(branchID); err != nil {
		return models.BranchStatus{}, err
	}

	length, err := c.queue.Length(ctx, branchID)
	if err != nil {
		return models.BranchStatus{}, err
	}

	st := models.BranchStatus{BranchID: branchID, WaitingCount: length}
	if t, ok := c.LastCalled(branchID); ok {
		st.LastCalled = &t
	}
	return st, nil
}
