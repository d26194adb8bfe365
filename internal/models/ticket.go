package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Ticket is a snapshot of one issued number, taken right after the
// operation that produced it.
type Ticket struct {
	Number       int64     `json:"ticketNumber"`
	BranchID     string    `json:"branchId"`
	IssuedAt     time.Time `json:"issuedAt"`
	WaitingCount int64     `json:"waitingCount"`
}

// BranchStatus is the read-only view of a branch served by the status endpoint.
type BranchStatus struct {
	BranchID     string  `json:"branchId"`
	WaitingCount int64   `json:"waitingCount"`
	LastCalled   *Ticket `json:"lastCalled"`
}

// UnmarshalJSON accepts ticketNumber as a JSON number or a numeric string,
// since older display clients send it as a string.
func (t *Ticket) UnmarshalJSON(b []byte) error {
	type plain Ticket
	var raw struct {
		plain
		Number json.RawMessage `json:"ticketNumber"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*t = Ticket(raw.plain)

	if len(raw.Number) == 0 || string(raw.Number) == "null" {
		return nil
	}
	s := strings.Trim(string(raw.Number), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("ticketNumber %s: %w", raw.Number, err)
	}
	t.Number = n
	return nil
}
