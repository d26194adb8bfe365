package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(loc *time.Location, hh, mm int) time.Time {
	return time.Date(2026, 3, 2, hh, mm, 0, 0, loc)
}

func TestDaytimeHours(t *testing.T) {
	h, err := ParseHours("08:00", "15:30:00", "Asia/Jakarta")
	require.NoError(t, err)

	assert.False(t, h.IsOpen(at(h.Loc, 7, 59)))
	assert.True(t, h.IsOpen(at(h.Loc, 8, 0)))
	assert.True(t, h.IsOpen(at(h.Loc, 15, 29)))
	assert.False(t, h.IsOpen(at(h.Loc, 15, 30)))

	// 01:00 UTC is 08:00 in Jakarta.
	assert.True(t, h.IsOpen(time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)))
}

func TestOvernightHours(t *testing.T) {
	h, err := ParseHours("22:00", "02:00", "UTC")
	require.NoError(t, err)

	assert.True(t, h.IsOpen(at(h.Loc, 23, 0)))
	assert.True(t, h.IsOpen(at(h.Loc, 1, 59)))
	assert.False(t, h.IsOpen(at(h.Loc, 2, 0)))
	assert.False(t, h.IsOpen(at(h.Loc, 12, 0)))
}

func TestParseHoursErrors(t *testing.T) {
	_, err := ParseHours("8am", "15:00", "UTC")
	assert.Error(t, err)
	_, err = ParseHours("08:00", "25:00", "UTC")
	assert.Error(t, err)
	_, err = ParseHours("08:00", "15:00", "Nowhere/City")
	assert.Error(t, err)
}
