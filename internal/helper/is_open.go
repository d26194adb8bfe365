package helper

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// Hours is a daily opening window. Close may be earlier than Open, in
// which case the window runs past midnight (e.g. 22:00 to 02:00).
type Hours struct {
	Open  time.Duration // since midnight
	Close time.Duration
	Loc   *time.Location
}

// ParseHours accepts "HH:MM" or "HH:MM:SS" for both ends.
func ParseHours(openAt, closeAt, tz string) (Hours, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Hours{}, err
	}
	o, err := parseClock(openAt)
	if err != nil {
		return Hours{}, fmt.Errorf("open: %w", err)
	}
	c, err := parseClock(closeAt)
	if err != nil {
		return Hours{}, fmt.Errorf("close: %w", err)
	}
	return Hours{Open: o, Close: c, Loc: loc}, nil
}

func parseClock(s string) (time.Duration, error) {
	// Normalize HH:MM to HH:MM:SS
	if strings.Count(s, ":") == 1 {
		s += ":00"
	}
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// IsOpen reports whether now falls inside the window, evaluated in h.Loc.
func (h Hours) IsOpen(now time.Time) bool {
	now = now.In(h.Loc)
	sinceMidnight := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second

	if h.Close < h.Open {
		return sinceMidnight >= h.Open || sinceMidnight < h.Close
	}
	return sinceMidnight >= h.Open && sinceMidnight < h.Close
}
