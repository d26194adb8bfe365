package realtime

import (
	"sync"

	"backend-tiket/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultBuffer = 64

/*
|--------------------------------------------------------------------------
| Subscription
|--------------------------------------------------------------------------
*/

// Subscription is one live subscriber. C is closed when the subscription
// ends, either by Unsubscribe or because the subscriber fell behind.
type Subscription struct {
	ID       string
	BranchID string
	C        <-chan models.Event

	ch chan models.Event
}

func (s *Subscription) wants(ev models.Event) bool {
	return s.BranchID == "" || s.BranchID == ev.BranchID
}

/*
|--------------------------------------------------------------------------
| Hub
|--------------------------------------------------------------------------
*/

// Hub fans events out to every matching subscription. Publish never waits
// on a subscriber: a full buffer evicts that subscriber instead.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a subscriber for branchID, or for all branches when
// branchID is empty. Events published before this call are not replayed.
func (h *Hub) Subscribe(branchID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan models.Event, buffer)
	s := &Subscription{
		ID:       uuid.NewString(),
		BranchID: branchID,
		C:        ch,
		ch:       ch,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return s
	}
	h.subs[s] = struct{}{}

	h.logger.Debug("subscriber registered",
		zap.String("id", s.ID),
		zap.String("branch", branchID),
		zap.Int("total", len(h.subs)),
	)
	return s
}

func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(s, "unsubscribed")
}

// remove must be called with h.mu held.
func (h *Hub) remove(s *Subscription, reason string) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.ch)

	h.logger.Debug("subscriber removed",
		zap.String("id", s.ID),
		zap.String("reason", reason),
		zap.Int("total", len(h.subs)),
	)
}

// Publish hands ev to every matching subscriber. Sends happen under the
// hub lock so each subscriber sees events in publish order.
func (h *Hub) Publish(ev models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if !s.wants(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.logger.Warn("subscriber too slow, evicting", zap.String("id", s.ID))
			h.remove(s, "buffer full")
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Closed reports whether Close has run.
func (h *Hub) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close ends every subscription. Later Subscribe calls get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		h.remove(s, "hub closed")
	}
	h.closed = true
}
