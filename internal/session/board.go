package session

import "backend-tiket/internal/models"

const historySize = 3

// Board is what a display shows. It only smooths over gaps for the viewer;
// the coordinator stays the source of truth.
type Board struct {
	Current      int64
	HasCurrent   bool
	History      []int64 // newest first
	WaitingCount int64
}

func (b *Board) Apply(ev models.Event) {
	switch ev.Kind {
	case models.EventNewTicket:
		n := ev.Ticket.Number
		if b.HasCurrent && b.Current != n {
			b.History = append([]int64{b.Current}, b.History...)
			if len(b.History) > historySize {
				b.History = b.History[:historySize]
			}
		}
		b.Current, b.HasCurrent = n, true
		b.WaitingCount = ev.Ticket.WaitingCount
	case models.EventWaitingCountChanged:
		b.WaitingCount = ev.WaitingCount
	case models.EventRecall:
		b.Current, b.HasCurrent = ev.Ticket.Number, true
	}
}

func (b Board) clone() Board {
	b.History = append([]int64(nil), b.History...)
	return b
}
