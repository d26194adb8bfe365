package models

type EventKind int

const (
	EventNewTicket EventKind = iota + 1
	EventWaitingCountChanged
	EventRecall
)

// Wire names, as consumed by display boards.
const (
	WireNewTicket          = "ReceiveNewTicket"
	WireUpdateWaitingCount = "UpdateWaitingCount"
	WireRecall             = "RecallTicket"
)

func (k EventKind) String() string {
	switch k {
	case EventNewTicket:
		return WireNewTicket
	case EventWaitingCountChanged:
		return WireUpdateWaitingCount
	case EventRecall:
		return WireRecall
	}
	return "Unknown"
}

// Event is an immutable notification handed from the coordinator to the hub.
// Ticket is zero for EventWaitingCountChanged.
type Event struct {
	Kind         EventKind
	BranchID     string
	Ticket       Ticket
	WaitingCount int64
}

func NewTicketEvent(t Ticket) Event {
	return Event{Kind: EventNewTicket, BranchID: t.BranchID, Ticket: t, WaitingCount: t.WaitingCount}
}

func WaitingCountEvent(branchID string, count int64) Event {
	return Event{Kind: EventWaitingCountChanged, BranchID: branchID, WaitingCount: count}
}

func RecallEvent(t Ticket) Event {
	return Event{Kind: EventRecall, BranchID: t.BranchID, Ticket: t, WaitingCount: t.WaitingCount}
}

// Message is the JSON envelope written to websocket subscribers.
// Data holds a Ticket for ticket events and a bare integer for
// UpdateWaitingCount.
type Message struct {
	Event    string `json:"event"`
	BranchID string `json:"branchId"`
	Data     any    `json:"data"`
}

func (e Event) Message() Message {
	if e.Kind == EventWaitingCountChanged {
		return Message{Event: e.Kind.String(), BranchID: e.BranchID, Data: e.WaitingCount}
	}
	return Message{Event: e.Kind.String(), BranchID: e.BranchID, Data: e.Ticket}
}
