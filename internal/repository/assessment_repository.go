package repository

import (
	"prova_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) Create(a *model.Assessment) error {
	return r.DB.Create(a).Error
}

func (r *AssessmentRepository) FindByID(id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.Preload("Questions.Alternatives").Preload("Questions").First(&a, id).Error
	return &a, err
}

func (r *AssessmentRepository) List(page, limit int) ([]model.Assessment, int64, error) {
	var as []model.Assessment
	var total int64
	query := r.DB.Model(&model.Assessment{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&as).Error
	return as, total, err
}

func (r *AssessmentRepository) Update(a *model.Assessment) error {
	return r.DB.Save(a).Error
}

// ReplaceQuestions swaps the full question set in one transaction.
func (r *AssessmentRepository) ReplaceQuestions(assessmentID uint, questions []model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assessment_id = ?", assessmentID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		for i := range questions {
			questions[i].AssessmentID = assessmentID
		}
		return tx.Create(&questions).Error
	})
}

func (r *AssessmentRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Assessment{}, id).Error
}
