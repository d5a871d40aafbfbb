package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"prova_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestDeliveryUpdatesWithoutGradedAnswers(t *testing.T) {
	now := time.Now()

	updates := deliveryUpdates(now, 0, 0)

	assert.Equal(t, model.SubEnviada, updates["state"])
	assert.Equal(t, now, updates["finished_at"])
	assert.NotContains(t, updates, "total_score")
}

func TestDeliveryUpdatesWithGradedAnswers(t *testing.T) {
	now := time.Now()

	updates := deliveryUpdates(now, 7.5, 3)

	assert.Equal(t, model.SubEnviada, updates["state"])
	assert.Equal(t, 7.5, updates["total_score"])
}

func TestAnswerScoreTotalSkipsUngraded(t *testing.T) {
	graded := 4.0
	also := 1.5
	answers := []model.Answer{
		{Score: &graded},
		{Score: nil},
		{Score: &also},
	}

	assert.Equal(t, 5.5, answerScoreTotal(answers))
	assert.Zero(t, answerScoreTotal([]model.Answer{{Score: nil}}))
	assert.Zero(t, answerScoreTotal(nil))
}

func TestRetriableEntryError(t *testing.T) {
	assert.True(t, retriableEntryError(gorm.ErrDuplicatedKey))
	assert.True(t, retriableEntryError(fmt.Errorf("create submission: %w", gorm.ErrDuplicatedKey)))

	assert.False(t, retriableEntryError(gorm.ErrRecordNotFound))
	assert.False(t, retriableEntryError(errors.New("connection reset")))
	assert.False(t, retriableEntryError(nil))
}
