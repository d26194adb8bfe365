package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"backend-tiket/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	msgs   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn(msgs ...models.Message) *fakeConn {
	c := &fakeConn{msgs: make(chan []byte, len(msgs)+1), closed: make(chan struct{})}
	for _, m := range msgs {
		b, _ := json.Marshal(m)
		c.msgs <- b
	}
	return c
}

func (c *fakeConn) ReadJSON(v any) error {
	select {
	case b, ok := <-c.msgs:
		if !ok {
			return io.EOF
		}
		return json.Unmarshal(b, v)
	case <-c.closed:
		return errors.New("use of closed connection")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// fakeDialer hands out scripted results, then fails forever.
type fakeDialer struct {
	mu     sync.Mutex
	script []any
	dials  int
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.script) == 0 {
		return nil, errors.New("connection refused")
	}
	next := d.script[0]
	d.script = d.script[1:]
	if err, ok := next.(error); ok {
		return nil, err
	}
	return next.(*fakeConn), nil
}

type delays struct {
	mu  sync.Mutex
	got []time.Duration
}

func (r *delays) after(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	r.got = append(r.got, d)
	r.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func waitState(t *testing.T, states <-chan State, want State) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case st := <-states:
			if st == want {
				return
			}
		case <-timeout:
			t.Fatalf("state %s never reached", want)
		}
	}
}

func waitDials(t *testing.T, d *fakeDialer, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		got := d.dials
		d.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("fewer than %d dials", n)
}

func TestDelaySchedule(t *testing.T) {
	s := New("ws://x", &fakeDialer{})
	assert.Equal(t, time.Duration(0), s.delay(0))
	assert.Equal(t, 2*time.Second, s.delay(1))
	assert.Equal(t, 10*time.Second, s.delay(2))
	assert.Equal(t, 30*time.Second, s.delay(3))
	assert.Equal(t, 30*time.Second, s.delay(50))
}

func TestReconnectBacksOffUntilConnected(t *testing.T) {
	down := errors.New("refused")
	conn := newFakeConn()
	d := &fakeDialer{script: []any{down, down, down, down, down, conn}}
	rec := &delays{}
	states := make(chan State, 64)

	s := New("ws://x", d, withAfter(rec.after), OnState(func(st State) { states <- st }))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitState(t, states, Connected)
	assert.Equal(t, Connected, s.State())
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, Closed, s.State())
	assert.Equal(t, 6, d.dials)
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second, 30 * time.Second, 30 * time.Second}, rec.got)
}

func TestBoardSurvivesReconnect(t *testing.T) {
	t1 := models.Ticket{Number: 1, BranchID: "B1", WaitingCount: 3}
	t2 := models.Ticket{Number: 2, BranchID: "B1", WaitingCount: 2}
	t3 := models.Ticket{Number: 5, BranchID: "B1", WaitingCount: 1}

	first := newFakeConn(
		models.NewTicketEvent(t1).Message(),
		models.NewTicketEvent(t2).Message(),
	)
	close(first.msgs) // server drops after two events

	second := newFakeConn(
		models.WaitingCountEvent("B1", 4).Message(),
		models.NewTicketEvent(t3).Message(),
		models.RecallEvent(t3).Message(),
	)

	d := &fakeDialer{script: []any{first, second}}
	rec := &delays{}
	events := make(chan models.Event, 16)

	s := New("ws://x", d, withAfter(rec.after), OnEvent(func(ev models.Event, _ Board) { events <- ev }))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	for i := 0; i < 5; i++ {
		select {
		case <-events:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d events delivered", i)
		}
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	b := s.Board()
	assert.True(t, b.HasCurrent)
	assert.Equal(t, int64(5), b.Current)
	assert.Equal(t, []int64{2, 1}, b.History)
	assert.Equal(t, int64(1), b.WaitingCount)
	assert.Equal(t, []time.Duration{0, 0}, rec.got)
}

func TestSilentDropsBackOff(t *testing.T) {
	silent := func() *fakeConn {
		c := newFakeConn()
		close(c.msgs)
		return c
	}
	good := newFakeConn(models.WaitingCountEvent("B1", 2).Message())
	close(good.msgs)

	d := &fakeDialer{script: []any{silent(), silent(), silent(), silent(), good, silent()}}
	rec := &delays{}

	s := New("ws://x", d, withAfter(rec.after))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitDials(t, d, 7)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	require.GreaterOrEqual(t, len(rec.got), 6)
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 10 * time.Second, 30 * time.Second, 30 * time.Second, 0}, rec.got[:6])
}

func TestStableSilentConnectionResets(t *testing.T) {
	quiet := newFakeConn()
	close(quiet.msgs)
	d := &fakeDialer{script: []any{quiet}}
	rec := &delays{}

	s := New("ws://x", d, withAfter(rec.after), WithStableAfter(0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitDials(t, d, 2)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	require.GreaterOrEqual(t, len(rec.got), 2)
	assert.Equal(t, []time.Duration{0, 0}, rec.got[:2])
}

func TestUnknownMessagesAreSkipped(t *testing.T) {
	conn := newFakeConn(
		models.Message{Event: "Bogus", BranchID: "B1", Data: 1},
		models.WaitingCountEvent("B1", 9).Message(),
	)
	d := &fakeDialer{script: []any{conn}}
	events := make(chan models.Event, 4)

	s := New("ws://x", d, OnEvent(func(ev models.Event, _ Board) { events <- ev }))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	select {
	case ev := <-events:
		assert.Equal(t, models.EventWaitingCountChanged, ev.Kind)
		assert.Equal(t, int64(9), ev.WaitingCount)
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
}

func TestBoardHistory(t *testing.T) {
	var b Board
	for n := int64(1); n <= 6; n++ {
		b.Apply(models.NewTicketEvent(models.Ticket{Number: n, WaitingCount: 10 - n}))
	}
	assert.Equal(t, int64(6), b.Current)
	assert.Equal(t, []int64{5, 4, 3}, b.History)
	assert.Equal(t, int64(4), b.WaitingCount)

	// Recall of the current number is not history.
	b.Apply(models.RecallEvent(models.Ticket{Number: 6}))
	assert.Equal(t, []int64{5, 4, 3}, b.History)

	b.Apply(models.WaitingCountEvent("", 8))
	assert.Equal(t, int64(8), b.WaitingCount)
}
