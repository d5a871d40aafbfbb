package service

import (
	"testing"

	"prova_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestScoreObjectiveExactMatch(t *testing.T) {
	assert.Equal(t, 2.5, scoreObjective([]uint{1, 3}, []uint{3, 1}, 2.5))
	assert.Equal(t, 1.0, scoreObjective([]uint{7}, []uint{7}, 1.0))
}

func TestScoreObjectiveNoPartialCredit(t *testing.T) {
	correct := []uint{1, 2, 3}

	assert.Zero(t, scoreObjective([]uint{1, 2}, correct, 5))       // subset
	assert.Zero(t, scoreObjective([]uint{1, 2, 3, 4}, correct, 5)) // superset
	assert.Zero(t, scoreObjective([]uint{4, 5, 6}, correct, 5))    // disjoint
	assert.Zero(t, scoreObjective(nil, correct, 5))                // blank
}

func TestScoreObjectiveIgnoresDuplicateSelections(t *testing.T) {
	assert.Equal(t, 3.0, scoreObjective([]uint{2, 2, 5}, []uint{5, 2}, 3.0))
}

func TestEffectiveScoreSubtractsPenalties(t *testing.T) {
	violations := []model.Violation{
		{ScorePenalty: 0.5},
		{ScorePenalty: 1.0},
	}

	assert.Equal(t, 8.5, EffectiveScore(10, violations))
}

func TestEffectiveScoreFlooredAtZero(t *testing.T) {
	violations := []model.Violation{
		{ScorePenalty: 4},
		{ScorePenalty: 4},
	}

	assert.Equal(t, 0.0, EffectiveScore(5, violations))
}

func TestEffectiveScoreWithoutViolations(t *testing.T) {
	assert.Equal(t, 7.0, EffectiveScore(7, nil))
}
