package journal

import (
	"context"
	"database/sql"
	"time"

	"backend-tiket/internal/models"
	"backend-tiket/internal/realtime"

	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS ticket_events (
	id            BIGINT AUTO_INCREMENT PRIMARY KEY,
	branch_id     VARCHAR(64) NOT NULL,
	ticket_number BIGINT NULL,
	event         VARCHAR(32) NOT NULL,
	waiting_count BIGINT NOT NULL,
	created_at    DATETIME(3) NOT NULL,
	INDEX idx_ticket_events_branch (branch_id, created_at)
)`

const insertEvent = `
	INSERT INTO ticket_events
	(branch_id, ticket_number, event, waiting_count, created_at)
	VALUES (?, ?, ?, ?, ?)
`

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Journal appends every published event to ticket_events. It is an audit
// trail only; a failed write is logged and never reaches the coordinator.
type Journal struct {
	db     Execer
	hub    *realtime.Hub
	logger *zap.Logger
	now    func() time.Time
}

func New(db Execer, hub *realtime.Hub, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{db: db, hub: hub, logger: logger, now: time.Now}
}

func (j *Journal) EnsureSchema(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, schema)
	return err
}

// Run records events until ctx is cancelled or the hub is closed. If the
// hub evicts the journal for falling behind, it subscribes again and
// carries on.
func (j *Journal) Run(ctx context.Context) {
	for {
		sub := j.hub.Subscribe("", 1024)
		j.consume(ctx, sub)
		j.hub.Unsubscribe(sub)

		if ctx.Err() != nil {
			return
		}
		if j.hub.Closed() {
			j.logger.Info("hub closed, journal stopping")
			return
		}
		j.logger.Warn("journal subscription dropped, resubscribing")
	}
}

func (j *Journal) consume(ctx context.Context, sub *realtime.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := j.Record(ctx, ev); err != nil {
				j.logger.Error("journal write failed",
					zap.String("branch", ev.BranchID),
					zap.String("event", ev.Kind.String()),
					zap.Error(err),
				)
			}
		}
	}
}

// Record writes one row. Ticket events are stamped with the ticket's issue
// time; waiting count changes carry none and get the write time.
func (j *Journal) Record(ctx context.Context, ev models.Event) error {
	var number sql.NullInt64
	at := j.now()
	if ev.Kind != models.EventWaitingCountChanged {
		number = sql.NullInt64{Int64: ev.Ticket.Number, Valid: true}
		if !ev.Ticket.IssuedAt.IsZero() {
			at = ev.Ticket.IssuedAt
		}
	}

	_, err := j.db.ExecContext(ctx, insertEvent,
		ev.BranchID, number, ev.Kind.String(), ev.WaitingCount, at)
	return err
}
