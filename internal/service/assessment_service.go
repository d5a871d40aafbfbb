package service

import (
	"encoding/json"
	"errors"
	"time"

	"prova_backend/internal/model"
	"prova_backend/internal/repository"
	"prova_backend/internal/util"

	"gorm.io/gorm"
)

// AssessmentService is the thin authoring layer applications point at:
// titles, time limit, scheduling mode and questions. Everything richer
// (rich text, attachments) lives elsewhere.
type AssessmentService struct {
	Repo *repository.AssessmentRepository
}

func NewAssessmentService(repo *repository.AssessmentRepository) *AssessmentService {
	return &AssessmentService{Repo: repo}
}

type AlternativeRequest struct {
	Text    string `json:"text" binding:"required"`
	Correct bool   `json:"correct"`
	Order   int    `json:"order"`
}

type QuestionRequest struct {
	Type         model.QuestionType   `json:"type" binding:"required,oneof=OBJETIVA DISCURSIVA"`
	Statement    string               `json:"statement" binding:"required"`
	Points       float64              `json:"points"`
	Order        int                  `json:"order"`
	Alternatives []AlternativeRequest `json:"alternatives"`
}

type AssessmentRequest struct {
	Title          string               `json:"title" binding:"required"`
	Description    string               `json:"description"`
	TimeLimit      int                  `json:"timeLimit" binding:"required,gt=0"`
	SchedulingMode model.SchedulingMode `json:"schedulingMode" binding:"omitempty,oneof=manual scheduled"`
	ScheduledAt    *time.Time           `json:"scheduledAt"`
	ShowScores     *bool                `json:"showScores"`
	SecurityPolicy json.RawMessage      `json:"securityPolicy"`
	Questions      []QuestionRequest    `json:"questions"`
}

// resolveScheduling defaults an empty mode to manual and rejects a
// scheduled mode that carries no instant.
func resolveScheduling(mode model.SchedulingMode, at *time.Time) (model.SchedulingMode, error) {
	if mode == "" {
		mode = model.SchedulingManual
	}
	if mode == model.SchedulingScheduled && at == nil {
		return "", util.ErrInvalidScheduleConfig
	}
	return mode, nil
}

func buildQuestions(reqs []QuestionRequest) []model.Question {
	questions := make([]model.Question, 0, len(reqs))
	for _, qReq := range reqs {
		q := model.Question{
			Type:      qReq.Type,
			Statement: qReq.Statement,
			Points:    qReq.Points,
			Order:     qReq.Order,
		}
		for _, aReq := range qReq.Alternatives {
			q.Alternatives = append(q.Alternatives, model.Alternative{
				Text:    aReq.Text,
				Correct: aReq.Correct,
				Order:   aReq.Order,
			})
		}
		questions = append(questions, q)
	}
	return questions
}

func (s *AssessmentService) Create(creatorID uint, req AssessmentRequest) (*model.Assessment, error) {
	mode, err := resolveScheduling(req.SchedulingMode, req.ScheduledAt)
	if err != nil {
		return nil, err
	}

	assessment := &model.Assessment{
		Title:          req.Title,
		Description:    req.Description,
		TimeLimit:      req.TimeLimit,
		SchedulingMode: mode,
		ScheduledAt:    req.ScheduledAt,
		ShowScores:     true,
		SecurityPolicy: req.SecurityPolicy,
		CreatorID:      creatorID,
	}
	if req.ShowScores != nil {
		assessment.ShowScores = *req.ShowScores
	}
	assessment.Questions = buildQuestions(req.Questions)

	if err := s.Repo.Create(assessment); err != nil {
		return nil, err
	}
	return assessment, nil
}

func (s *AssessmentService) Update(id uint, req AssessmentRequest) (*model.Assessment, error) {
	mode, err := resolveScheduling(req.SchedulingMode, req.ScheduledAt)
	if err != nil {
		return nil, err
	}

	assessment, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	assessment.Title = req.Title
	assessment.Description = req.Description
	assessment.TimeLimit = req.TimeLimit
	assessment.SchedulingMode = mode
	assessment.ScheduledAt = req.ScheduledAt
	assessment.SecurityPolicy = req.SecurityPolicy
	if req.ShowScores != nil {
		assessment.ShowScores = *req.ShowScores
	}

	if len(req.Questions) > 0 {
		if err := s.Repo.ReplaceQuestions(id, buildQuestions(req.Questions)); err != nil {
			return nil, err
		}
	}
	assessment.Questions = nil
	if err := s.Repo.Update(assessment); err != nil {
		return nil, err
	}
	return s.Get(id)
}

func (s *AssessmentService) Delete(id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.Repo.Delete(id)
}

func (s *AssessmentService) Get(id uint) (*model.Assessment, error) {
	assessment, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return assessment, nil
}

func (s *AssessmentService) List(page, limit int) ([]model.Assessment, int64, error) {
	return s.Repo.List(page, limit)
}
