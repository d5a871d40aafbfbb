package service

import (
	"testing"
	"time"

	"prova_backend/internal/model"
	"prova_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSetsWindowFromTimeLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	app := &model.Application{State: model.AppCriada}

	updates, err := planTransition(app, model.AppEmAndamento, now, 90*time.Minute)

	require.NoError(t, err)
	assert.Equal(t, model.AppEmAndamento, updates["state"])
	assert.Equal(t, now, updates["start_at"])
	assert.Equal(t, now.Add(90*time.Minute), updates["end_at"])
}

func TestStartFromScheduled(t *testing.T) {
	now := time.Now()
	app := &model.Application{State: model.AppAgendada}

	updates, err := planTransition(app, model.AppEmAndamento, now, time.Hour)

	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), updates["end_at"])
}

func TestScheduleOnlyFromCreated(t *testing.T) {
	now := time.Now()

	_, err := planTransition(&model.Application{State: model.AppCriada}, model.AppAgendada, now, time.Hour)
	assert.NoError(t, err)

	_, err = planTransition(&model.Application{State: model.AppEmAndamento}, model.AppAgendada, now, time.Hour)
	assert.ErrorIs(t, err, util.ErrInvalidTransition)
}

func TestPauseRecordsInstant(t *testing.T) {
	now := time.Now()
	app := &model.Application{State: model.AppEmAndamento}

	updates, err := planTransition(app, model.AppPausada, now, time.Hour)

	require.NoError(t, err)
	assert.Equal(t, now, updates["paused_at"])
}

func TestResumeExtendsEndByPausedInterval(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	pausedAt := start.Add(20 * time.Minute)
	now := pausedAt.Add(7 * time.Minute)

	app := &model.Application{
		State:    model.AppPausada,
		StartAt:  &start,
		EndAt:    &end,
		PausedAt: &pausedAt,
	}

	updates, err := planTransition(app, model.AppEmAndamento, now, time.Hour)

	require.NoError(t, err)
	assert.Equal(t, end.Add(7*time.Minute), updates["end_at"])
	assert.Nil(t, updates["paused_at"])
}

func TestResumeWithoutPauseInstantRejected(t *testing.T) {
	end := time.Now().Add(time.Hour)
	app := &model.Application{State: model.AppPausada, EndAt: &end}

	_, err := planTransition(app, model.AppEmAndamento, time.Now(), time.Hour)

	assert.ErrorIs(t, err, util.ErrInvalidTransition)
}

func TestFinishOnlyFromRunningOrPaused(t *testing.T) {
	now := time.Now()

	for _, state := range []model.ApplicationState{model.AppEmAndamento, model.AppPausada} {
		updates, err := planTransition(&model.Application{State: state}, model.AppFinalizada, now, time.Hour)
		require.NoError(t, err, "state %s", state)
		assert.Equal(t, model.AppFinalizada, updates["state"])
	}

	_, err := planTransition(&model.Application{State: model.AppCriada}, model.AppFinalizada, now, time.Hour)
	assert.ErrorIs(t, err, util.ErrInvalidTransition)
}

func TestCancelFromAnyNonTerminalState(t *testing.T) {
	now := time.Now()

	for _, state := range model.ActiveApplicationStates {
		_, err := planTransition(&model.Application{State: state}, model.AppCancelada, now, time.Hour)
		assert.NoError(t, err, "state %s", state)
	}
}

func TestTerminalStatesRejectEveryTransition(t *testing.T) {
	now := time.Now()
	terminal := []model.ApplicationState{model.AppFinalizada, model.AppConcluida, model.AppCancelada}
	targets := []model.ApplicationState{
		model.AppAgendada, model.AppEmAndamento, model.AppPausada,
		model.AppFinalizada, model.AppConcluida, model.AppCancelada,
	}

	for _, state := range terminal {
		for _, target := range targets {
			_, err := planTransition(&model.Application{State: state}, target, now, time.Hour)
			assert.ErrorIs(t, err, util.ErrInvalidTransition, "%s -> %s", state, target)
		}
	}
}
