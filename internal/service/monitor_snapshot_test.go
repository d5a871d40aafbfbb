package service

import (
	"testing"
	"time"

	"prova_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCountdownReferenceFrozenWhilePaused(t *testing.T) {
	pausedAt := time.Now().Add(-3 * time.Minute)
	app := &model.Application{State: model.AppPausada, PausedAt: &pausedAt}

	assert.Equal(t, pausedAt, countdownReference(app, time.Now()))
}

func TestCountdownReferenceTracksClockWhileRunning(t *testing.T) {
	now := time.Now()
	pausedAt := now.Add(-10 * time.Minute) // stale marker from an earlier pause
	app := &model.Application{State: model.AppEmAndamento, PausedAt: &pausedAt}

	assert.Equal(t, now, countdownReference(app, now))
}

func TestCountdownReferencePausedWithoutInstant(t *testing.T) {
	now := time.Now()
	app := &model.Application{State: model.AppPausada}

	assert.Equal(t, now, countdownReference(app, now))
}

// remaining time must not shrink between two snapshots taken during the
// same pause
func TestRemainingSecondsStableAcrossPausedSnapshots(t *testing.T) {
	pausedAt := time.Now().Add(-1 * time.Minute)
	endAt := pausedAt.Add(20 * time.Minute)
	app := &model.Application{State: model.AppPausada, PausedAt: &pausedAt, EndAt: &endAt}

	first := RemainingSeconds(endAt, countdownReference(app, time.Now()), 0)
	second := RemainingSeconds(endAt, countdownReference(app, time.Now().Add(5*time.Second)), 0)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(20*60), first)
}
