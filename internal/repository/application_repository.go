package repository

import (
	"time"

	"prova_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository struct {
	DB *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{DB: db}
}

func (r *ApplicationRepository) Create(tx *gorm.DB, app *model.Application) error {
	return tx.Create(app).Error
}

func (r *ApplicationRepository) FindByID(id uint) (*model.Application, error) {
	var app model.Application
	err := r.DB.Preload("Assessment").First(&app, id).Error
	return &app, err
}

// FindByIDForUpdate loads the row under SELECT ... FOR UPDATE. Must be
// called inside a transaction; it is the serialization point for every
// guarded transition.
func (r *ApplicationRepository) FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Application, error) {
	var app model.Application
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, id).Error
	return &app, err
}

// FindActiveByAccessCode resolves an access code among non-terminal
// applications only; codes of terminal applications are invisible here.
func (r *ApplicationRepository) FindActiveByAccessCode(code string) (*model.Application, error) {
	var app model.Application
	err := r.DB.Preload("Assessment").
		Where("access_code = ? AND state IN ?", code, model.ActiveApplicationStates).
		First(&app).Error
	return &app, err
}

// AccessCodeTaken reports whether a code is already held by a non-terminal
// application. Runs on the given tx, and the read locks the matching index
// range, so two transactions probing the same free code serialize instead of
// both inserting it.
func (r *ApplicationRepository) AccessCodeTaken(tx *gorm.DB, code string) (bool, error) {
	var count int64
	err := tx.Model(&model.Application{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("access_code = ? AND state IN ?", code, model.ActiveApplicationStates).
		Count(&count).Error
	return count > 0, err
}

func (r *ApplicationRepository) List(page, limit int) ([]model.Application, int64, error) {
	var apps []model.Application
	var total int64
	query := r.DB.Model(&model.Application{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Preload("Assessment").Order("created_at desc").Offset(offset).Limit(limit).Find(&apps).Error
	return apps, total, err
}

func (r *ApplicationRepository) UpdateFields(tx *gorm.DB, id uint, fields map[string]interface{}) error {
	return tx.Model(&model.Application{}).Where("id = ?", id).Updates(fields).Error
}

// ListByState returns applications currently in the given state, with their
// assessment loaded. Used by the scheduler boot re-arm.
func (r *ApplicationRepository) ListByState(state model.ApplicationState) ([]model.Application, error) {
	var apps []model.Application
	err := r.DB.Preload("Assessment").Where("state = ?", state).Find(&apps).Error
	return apps, err
}

// ListOverdue returns running applications whose end time has passed. Used
// by the background sweep that finishes applications missed across
// restarts.
func (r *ApplicationRepository) ListOverdue(now time.Time) ([]model.Application, error) {
	var apps []model.Application
	err := r.DB.Where("state = ? AND end_at IS NOT NULL AND end_at <= ?", model.AppEmAndamento, now).Find(&apps).Error
	return apps, err
}
