package service

import (
	"testing"
	"time"

	"prova_backend/internal/model"
	"prova_backend/internal/util"

	"github.com/stretchr/testify/assert"
)

func TestResolveSchedulingDefaultsToManual(t *testing.T) {
	mode, err := resolveScheduling("", nil)

	assert.NoError(t, err)
	assert.Equal(t, model.SchedulingManual, mode)
}

func TestResolveSchedulingScheduledRequiresInstant(t *testing.T) {
	_, err := resolveScheduling(model.SchedulingScheduled, nil)
	assert.ErrorIs(t, err, util.ErrInvalidScheduleConfig)

	at := time.Now().Add(time.Hour)
	mode, err := resolveScheduling(model.SchedulingScheduled, &at)
	assert.NoError(t, err)
	assert.Equal(t, model.SchedulingScheduled, mode)
}

func TestBuildQuestionsCarriesAlternatives(t *testing.T) {
	questions := buildQuestions([]QuestionRequest{
		{
			Type:      model.QuestionObjective,
			Statement: "2 + 2 = ?",
			Points:    1.5,
			Order:     1,
			Alternatives: []AlternativeRequest{
				{Text: "3", Order: 1},
				{Text: "4", Correct: true, Order: 2},
			},
		},
		{Type: model.QuestionDiscursive, Statement: "Explain.", Points: 3, Order: 2},
	})

	assert.Len(t, questions, 2)
	assert.Len(t, questions[0].Alternatives, 2)
	assert.True(t, questions[0].Alternatives[1].Correct)
	assert.Empty(t, questions[1].Alternatives)
}
