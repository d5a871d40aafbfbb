package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockOffset(t *testing.T) {
	server := time.Date(2026, 3, 10, 14, 0, 10, 0, time.UTC)

	assert.Equal(t, 10*time.Second, ClockOffset(server.Add(-10*time.Second), server))
	assert.Equal(t, -3*time.Second, ClockOffset(server.Add(3*time.Second), server))
	assert.Equal(t, time.Duration(0), ClockOffset(server, server))
}

func TestRemainingSeconds(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	end := now.Add(10 * time.Minute)

	assert.Equal(t, int64(600), RemainingSeconds(end, now, 0))
	assert.Equal(t, int64(540), RemainingSeconds(end, now, time.Minute))
}

func TestRemainingSecondsClampsAtZero(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(0), RemainingSeconds(now.Add(-time.Minute), now, 0))
	assert.Equal(t, int64(0), RemainingSeconds(now.Add(30*time.Second), now, time.Minute))
}

func TestPenaltyIsPerStudent(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	end := now.Add(10 * time.Minute)

	// two students in the same application see different countdowns
	penalized := RemainingSeconds(end, now, 2*time.Minute)
	clean := RemainingSeconds(end, now, 0)

	assert.Equal(t, int64(480), penalized)
	assert.Equal(t, int64(600), clean)
}
