package repository

import (
	"prova_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(tx *gorm.DB, sub *model.Submission) error {
	return tx.Create(sub).Error
}

func (r *SubmissionRepository) FindByID(id string) (*model.Submission, error) {
	var sub model.Submission
	err := r.DB.Preload("Answers").First(&sub, "id = ?", id).Error
	return &sub, err
}

func (r *SubmissionRepository) FindByIDForUpdate(tx *gorm.DB, id string) (*model.Submission, error) {
	var sub model.Submission
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sub, "id = ?", id).Error
	return &sub, err
}

// FindByHash resolves the opaque resume token to an open submission.
func (r *SubmissionRepository) FindByHash(hash string) (*model.Submission, error) {
	var sub model.Submission
	err := r.DB.Preload("Answers").First(&sub, "hash = ?", hash).Error
	return &sub, err
}

// DeliveryCodeTaken reports whether a delivery code is held by a submission
// in an active state within the same application. Confirmed and terminal
// submissions release their code. The read locks the matching index range so
// concurrent entries probing the same free code serialize on it.
func (r *SubmissionRepository) DeliveryCodeTaken(tx *gorm.DB, applicationID uint, code string) (bool, error) {
	var count int64
	err := tx.Model(&model.Submission{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("application_id = ? AND delivery_code = ? AND state IN ?", applicationID, code, model.ActiveSubmissionStates).
		Count(&count).Error
	return count > 0, err
}

func (r *SubmissionRepository) ListByApplication(applicationID uint) ([]model.Submission, error) {
	var subs []model.Submission
	err := r.DB.Where("application_id = ?", applicationID).Order("started_at asc").Find(&subs).Error
	return subs, err
}

func (r *SubmissionRepository) UpdateFields(tx *gorm.DB, id string, fields map[string]interface{}) error {
	return tx.Model(&model.Submission{}).Where("id = ?", id).Updates(fields).Error
}

func (r *SubmissionRepository) CreateAnswer(tx *gorm.DB, ans *model.Answer) error {
	return tx.Create(ans).Error
}

func (r *SubmissionRepository) FindAnswer(id string) (*model.Answer, error) {
	var ans model.Answer
	err := r.DB.First(&ans, "id = ?", id).Error
	return &ans, err
}

func (r *SubmissionRepository) UpdateAnswer(tx *gorm.DB, ans *model.Answer) error {
	return tx.Save(ans).Error
}

// ListAnswers runs on the given tx so totals recomputed mid-transaction see
// transaction-local writes.
func (r *SubmissionRepository) ListAnswers(tx *gorm.DB, submissionID string) ([]model.Answer, error) {
	var answers []model.Answer
	err := tx.Where("submission_id = ?", submissionID).Find(&answers).Error
	return answers, err
}

func (r *SubmissionRepository) CountAnswers(submissionID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Answer{}).Where("submission_id = ?", submissionID).Count(&count).Error
	return count, err
}

// CountPendingDiscursive counts discursive answers still waiting for a
// grading decision.
func (r *SubmissionRepository) CountPendingDiscursive(tx *gorm.DB, submissionID string) (int64, error) {
	var count int64
	err := tx.Model(&model.Answer{}).
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("answers.submission_id = ? AND questions.type = ? AND answers.graded_at IS NULL",
			submissionID, model.QuestionDiscursive).
		Count(&count).Error
	return count, err
}
