package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func escalatingRules() ProctoringConfig {
	return ProctoringConfig{Penalties: []PenaltyRule{
		{Type: "TROCA_ABA", Occurrence: 1, ScorePenalty: 0, TimePenaltySeconds: 0},
		{Type: "TROCA_ABA", Occurrence: 2, ScorePenalty: 0.5, TimePenaltySeconds: 60},
		{Type: "TROCA_ABA", Occurrence: 3, ScorePenalty: 1.0, TimePenaltySeconds: 300},
		{Type: "COPIAR_COLAR", Occurrence: 1, ScorePenalty: 1.0, TimePenaltySeconds: 0},
	}}
}

func TestPenaltyForExactOccurrence(t *testing.T) {
	rule := escalatingRules().PenaltyFor("TROCA_ABA", 2)

	assert.Equal(t, 0.5, rule.ScorePenalty)
	assert.Equal(t, 60, rule.TimePenaltySeconds)
	assert.Equal(t, 2, rule.Occurrence)
}

func TestPenaltyForBeyondHighestKeepsApplying(t *testing.T) {
	rule := escalatingRules().PenaltyFor("TROCA_ABA", 9)

	assert.Equal(t, 1.0, rule.ScorePenalty)
	assert.Equal(t, 300, rule.TimePenaltySeconds)
	assert.Equal(t, 9, rule.Occurrence)
}

func TestPenaltyForUnconfiguredTypeIsZero(t *testing.T) {
	rule := escalatingRules().PenaltyFor("CELULAR_VISIVEL", 1)

	assert.Zero(t, rule.ScorePenalty)
	assert.Zero(t, rule.TimePenaltySeconds)
	assert.Equal(t, "CELULAR_VISIVEL", rule.Type)
}

func TestPenaltyForFirstOccurrenceOfOtherType(t *testing.T) {
	rule := escalatingRules().PenaltyFor("COPIAR_COLAR", 1)

	assert.Equal(t, 1.0, rule.ScorePenalty)
}

func TestRateWindowDefaultsToMinute(t *testing.T) {
	assert.Equal(t, time.Minute, RateLimitConfig{}.RateWindow())
	assert.Equal(t, 5*time.Minute, RateLimitConfig{WindowMinutes: 5}.RateWindow())
}
