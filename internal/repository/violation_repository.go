package repository

import (
	"prova_backend/internal/model"

	"gorm.io/gorm"
)

type ViolationRepository struct {
	DB *gorm.DB
}

func NewViolationRepository(db *gorm.DB) *ViolationRepository {
	return &ViolationRepository{DB: db}
}

func (r *ViolationRepository) Create(tx *gorm.DB, v *model.Violation) error {
	return tx.Create(v).Error
}

// CountByType counts prior records of an infraction type for a submission,
// inside the recording transaction so concurrent reports serialize on the
// submission row lock taken by the caller.
func (r *ViolationRepository) CountByType(tx *gorm.DB, submissionID, infractionType string) (int64, error) {
	var count int64
	err := tx.Model(&model.Violation{}).
		Where("submission_id = ? AND type = ?", submissionID, infractionType).
		Count(&count).Error
	return count, err
}

func (r *ViolationRepository) ListBySubmission(submissionID string) ([]model.Violation, error) {
	var vs []model.Violation
	err := r.DB.Where("submission_id = ?", submissionID).Order("created_at asc").Find(&vs).Error
	return vs, err
}

type penaltySums struct {
	Score float64
	Time  int64
}

// SumPenalties derives the accumulated penalties from the ledger. Always
// recomputed at read time; nothing here is cached.
func (r *ViolationRepository) SumPenalties(submissionID string) (scorePenalty float64, timePenaltySeconds int64, err error) {
	var sums penaltySums
	err = r.DB.Model(&model.Violation{}).
		Select("COALESCE(SUM(score_penalty),0) as score, COALESCE(SUM(time_penalty_seconds),0) as time").
		Where("submission_id = ?", submissionID).
		Scan(&sums).Error
	return sums.Score, sums.Time, err
}

// CountBySubmission counts all records for a submission, for the monitoring
// snapshot.
func (r *ViolationRepository) CountBySubmission(submissionID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Violation{}).Where("submission_id = ?", submissionID).Count(&count).Error
	return count, err
}
