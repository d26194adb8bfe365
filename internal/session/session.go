package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"backend-tiket/internal/models"

	"go.uber.org/zap"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// DefaultSchedule is the reconnect delay per consecutive failed attempt.
// The last entry repeats forever.
var DefaultSchedule = []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}

// DefaultStableAfter is how long a connection that delivered nothing must
// stay up before it resets the schedule.
const DefaultStableAfter = 5 * time.Second

// Conn is a connected event feed. *websocket.Conn from gorilla satisfies it.
type Conn interface {
	ReadJSON(v any) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type Option func(*Session)

func WithSchedule(d []time.Duration) Option {
	return func(s *Session) {
		if len(d) > 0 {
			s.schedule = d
		}
	}
}

// WithStableAfter sets the uptime after which a silent connection counts as
// healthy.
func WithStableAfter(d time.Duration) Option {
	return func(s *Session) { s.stableAfter = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// OnEvent is called for every event, after the board has been updated.
func OnEvent(fn func(models.Event, Board)) Option {
	return func(s *Session) { s.onEvent = fn }
}

func OnState(fn func(State)) Option {
	return func(s *Session) { s.onState = fn }
}

// withAfter replaces time.After in tests.
func withAfter(fn func(time.Duration) <-chan time.Time) Option {
	return func(s *Session) { s.after = fn }
}

// Session keeps one display connected to the event feed. Nothing is
// backfilled on reconnect; events sent while disconnected are lost.
type Session struct {
	url         string
	dialer      Dialer
	schedule    []time.Duration
	stableAfter time.Duration
	logger      *zap.Logger
	onEvent     func(models.Event, Board)
	onState     func(State)
	after       func(time.Duration) <-chan time.Time

	mu    sync.Mutex
	state State
	board Board
}

func New(url string, dialer Dialer, opts ...Option) *Session {
	s := &Session{
		url:         url,
		dialer:      dialer,
		schedule:    DefaultSchedule,
		stableAfter: DefaultStableAfter,
		logger:      zap.NewNop(),
		after:       time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Board() Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.clone()
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.mu.Unlock()

	if changed && s.onState != nil {
		s.onState(st)
	}
}

func (s *Session) delay(attempt int) time.Duration {
	if attempt >= len(s.schedule) {
		return s.schedule[len(s.schedule)-1]
	}
	return s.schedule[attempt]
}

// Run connects and reconnects until ctx is cancelled, then returns ctx.Err().
func (s *Session) Run(ctx context.Context) error {
	defer s.setState(Closed)

	attempt := 0
	for {
		d := s.delay(attempt)
		if d > 0 {
			s.logger.Info("reconnecting", zap.Duration("in", d), zap.Int("attempt", attempt))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(d):
		}

		s.setState(Connecting)
		conn, err := s.dialer.Dial(ctx, s.url)
		if err != nil {
			s.setState(Disconnected)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("connect failed", zap.String("url", s.url), zap.Error(err))
			attempt++
			continue
		}

		s.setState(Connected)
		s.logger.Info("connected", zap.String("url", s.url))
		connectedAt := time.Now()
		received, err := s.consume(ctx, conn)
		_ = conn.Close()
		s.setState(Disconnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		uptime := time.Since(connectedAt)
		s.logger.Warn("connection lost", zap.Duration("uptime", uptime), zap.Bool("received", received), zap.Error(err))
		// A feed that accepts and immediately drops us is a failed attempt.
		if received || uptime >= s.stableAfter {
			attempt = 0
		} else {
			attempt++
		}
	}
}

type wireMessage struct {
	Event    string          `json:"event"`
	BranchID string          `json:"branchId"`
	Data     json.RawMessage `json:"data"`
}

// consume reads until the connection fails. received reports whether any
// frame arrived.
func (s *Session) consume(ctx context.Context, conn Conn) (received bool, err error) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return received, err
		}
		received = true

		ev, err := decode(msg)
		if err != nil {
			s.logger.Warn("skipping message", zap.String("event", msg.Event), zap.Error(err))
			continue
		}

		s.mu.Lock()
		s.board.Apply(ev)
		board := s.board.clone()
		s.mu.Unlock()

		if s.onEvent != nil {
			s.onEvent(ev, board)
		}
	}
}

func decode(msg wireMessage) (models.Event, error) {
	switch msg.Event {
	case models.WireNewTicket, models.WireRecall:
		var t models.Ticket
		if err := json.Unmarshal(msg.Data, &t); err != nil {
			return models.Event{}, err
		}
		if msg.Event == models.WireRecall {
			return models.RecallEvent(t), nil
		}
		return models.NewTicketEvent(t), nil
	case models.WireUpdateWaitingCount:
		var n int64
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			return models.Event{}, err
		}
		return models.WaitingCountEvent(msg.BranchID, n), nil
	}
	return models.Event{}, fmt.Errorf("unknown event %q", msg.Event)
}
