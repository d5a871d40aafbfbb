package service

import (
	"encoding/json"
	"errors"
	"time"

	"prova_backend/internal/model"
	"prova_backend/internal/repository"
	"prova_backend/internal/util"
	"prova_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmissionService owns the per-student attempt lifecycle, from entry with
// an access code through delivery-code confirmation. Transitions follow the
// same row-locked read-check-write pattern as the application machine.
type SubmissionService struct {
	Repo        *repository.SubmissionRepository
	AppRepo     *repository.ApplicationRepository
	AssessRepo  *repository.AssessmentRepository
	Codegen     *CodeGenerator
	DB          *gorm.DB
	Broadcaster Broadcaster
}

func NewSubmissionService(
	repo *repository.SubmissionRepository,
	appRepo *repository.ApplicationRepository,
	assessRepo *repository.AssessmentRepository,
	db *gorm.DB,
) *SubmissionService {
	return &SubmissionService{
		Repo:       repo,
		AppRepo:    appRepo,
		AssessRepo: assessRepo,
		Codegen:    NewCodeGenerator(),
		DB:         db,
	}
}

type EnterRequest struct {
	AccessCode   string `json:"accessCode" binding:"required,len=6"`
	StudentName  string `json:"studentName" binding:"required"`
	StudentEmail string `json:"studentEmail" binding:"required,email"`
}

// Enter admits a student into a running application. The delivery code is
// generated inside the insert transaction; an insert-time collision with a
// concurrent entry is treated as one more retriable attempt, never as fatal
// and never overwritten.
func (s *SubmissionService) Enter(req EnterRequest) (*model.Submission, error) {
	app, err := s.AppRepo.FindActiveByAccessCode(req.AccessCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	if app.State != model.AppEmAndamento {
		return nil, util.ErrApplicationNotJoinable
	}

	var sub *model.Submission
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		err = s.DB.Transaction(func(tx *gorm.DB) error {
			code, err := s.Codegen.Generate(func(candidate string) (bool, error) {
				return s.Repo.DeliveryCodeTaken(tx, app.ID, candidate)
			})
			if err != nil {
				return err
			}

			sub = &model.Submission{
				ApplicationID: app.ID,
				StudentName:   req.StudentName,
				StudentEmail:  req.StudentEmail,
				DeliveryCode:  code,
				State:         model.SubIniciada,
				Hash:          model.GenerateUUID(),
				StartedAt:     time.Now(),
			}
			return s.Repo.Create(tx, sub)
		})
		if err == nil {
			break
		}
		if !retriableEntryError(err) {
			return nil, err
		}
		logger.Log.Debug("Delivery code collision on insert, retrying",
			zap.Uint("applicationId", app.ID))
	}
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Student entered application",
		zap.Uint("applicationId", app.ID),
		zap.String("submissionId", sub.ID))
	return sub, nil
}

// Resume resolves the opaque hash handed out at entry back to the open
// submission.
func (s *SubmissionService) Resume(hash string) (*model.Submission, error) {
	sub, err := s.Repo.FindByHash(hash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *SubmissionService) Get(id string) (*model.Submission, error) {
	sub, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *SubmissionService) ListByApplication(applicationID uint) ([]model.Submission, error) {
	return s.Repo.ListByApplication(applicationID)
}

// retriableEntryError reports insert failures meaning a concurrent entry
// committed the same delivery code between the taken-check and the insert;
// the caller draws a fresh code and tries again.
func retriableEntryError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

type AnswerRequest struct {
	QuestionID uint   `json:"questionId" binding:"required"`
	Selected   []uint `json:"selected,omitempty"`
	Text       string `json:"text,omitempty"`
}

type SubmitRequest struct {
	Answers []AnswerRequest `json:"answers" binding:"required"`
}

// scoreObjective grades by set-equality of the selected alternative ids
// against the correct ones: full points or zero, duplicates collapse.
func scoreObjective(selected, correct []uint, points float64) float64 {
	selectedSet := make(map[uint]bool, len(selected))
	for _, id := range selected {
		selectedSet[id] = true
	}
	correctSet := make(map[uint]bool, len(correct))
	for _, id := range correct {
		correctSet[id] = true
	}
	if len(selectedSet) != len(correctSet) {
		return 0
	}
	for id := range correctSet {
		if !selectedSet[id] {
			return 0
		}
	}
	return points
}

// deliveryUpdates builds the row changes for a delivery. The total stays
// null until at least one answer has a grading decision, so an
// all-discursive assessment reads as ungraded rather than scored zero.
func deliveryUpdates(now time.Time, total float64, gradedCount int) map[string]interface{} {
	updates := map[string]interface{}{
		"state":       model.SubEnviada,
		"finished_at": now,
	}
	if gradedCount > 0 {
		updates["total_score"] = total
	}
	return updates
}

// Submit records the student's answers and moves the attempt to ENVIADA.
// Objective answers are graded immediately; discursive ones wait for a
// manual decision and count zero toward the partial total.
func (s *SubmissionService) Submit(hash string, req SubmitRequest) (*model.Submission, error) {
	sub, err := s.Resume(hash)
	if err != nil {
		return nil, err
	}

	app, err := s.AppRepo.FindByID(sub.ApplicationID)
	if err != nil {
		return nil, err
	}
	assessment, err := s.AssessRepo.FindByID(app.AssessmentID)
	if err != nil {
		return nil, err
	}

	questions := make(map[uint]*model.Question, len(assessment.Questions))
	for i := range assessment.Questions {
		questions[assessment.Questions[i].ID] = &assessment.Questions[i]
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := s.Repo.FindByIDForUpdate(tx, sub.ID)
		if err != nil {
			return err
		}
		switch locked.State {
		case model.SubIniciada, model.SubReaberta:
		default:
			return util.ErrInvalidTransition
		}

		now := time.Now()
		total := 0.0
		graded := 0
		for _, ar := range req.Answers {
			q, ok := questions[ar.QuestionID]
			if !ok {
				continue
			}

			ans := &model.Answer{
				SubmissionID: locked.ID,
				QuestionID:   q.ID,
				Text:         ar.Text,
			}
			if q.Type == model.QuestionObjective {
				raw, _ := json.Marshal(ar.Selected)
				ans.Selected = raw
				score := scoreObjective(ar.Selected, q.CorrectAlternativeIDs(), q.Points)
				ans.Score = &score
				ans.GradedAt = &now
				total += score
				graded++
			}
			if err := s.Repo.CreateAnswer(tx, ans); err != nil {
				return err
			}
		}

		return s.Repo.UpdateFields(tx, locked.ID, deliveryUpdates(now, total, graded))
	})
	if err != nil {
		return nil, err
	}

	sub, err = s.Get(sub.ID)
	if err != nil {
		return nil, err
	}

	s.broadcast(Event{
		Type:          EventDeliveryFinalized,
		AplicacaoID:   sub.ApplicationID,
		SubmissaoID:   sub.ID,
		EstudanteNome: sub.StudentName,
	})
	return sub, nil
}

// answerScoreTotal sums the decided per-answer scores; undecided answers
// contribute nothing.
func answerScoreTotal(answers []model.Answer) float64 {
	total := 0.0
	for _, a := range answers {
		if a.Score != nil {
			total += *a.Score
		}
	}
	return total
}

type GradeRequest struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// GradeAnswer records the grading decision for one discursive answer. When
// no discursive answer is left pending, the attempt moves to AVALIADA with
// the total recomputed as the sum of per-answer scores.
func (s *SubmissionService) GradeAnswer(answerID string, req GradeRequest) (*model.Submission, error) {
	ans, err := s.Repo.FindAnswer(answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}

	var submissionID string
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := s.Repo.FindByIDForUpdate(tx, ans.SubmissionID)
		if err != nil {
			return err
		}
		switch locked.State {
		case model.SubEnviada, model.SubReaberta, model.SubCodigoConfirmado:
		default:
			return util.ErrInvalidTransition
		}
		submissionID = locked.ID

		now := time.Now()
		ans.Score = &req.Score
		ans.Feedback = req.Feedback
		ans.GradedAt = &now
		if err := s.Repo.UpdateAnswer(tx, ans); err != nil {
			return err
		}

		pending, err := s.Repo.CountPendingDiscursive(tx, locked.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return nil
		}

		// all discursive answers decided: total = sum of answer scores
		answers, err := s.Repo.ListAnswers(tx, locked.ID)
		if err != nil {
			return err
		}
		total := answerScoreTotal(answers)

		// CODIGO_CONFIRMADO is effectively terminal for the monitoring
		// view; only ENVIADA/REABERTA advance to AVALIADA
		updates := map[string]interface{}{"total_score": total}
		if locked.State != model.SubCodigoConfirmado {
			updates["state"] = model.SubAvaliada
		}
		return s.Repo.UpdateFields(tx, locked.ID, updates)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(submissionID)
}

// ConfirmDelivery verifies the student-presented delivery code. A mismatch
// fails without touching state; a match moves ENVIADA/AVALIADA to
// CODIGO_CONFIRMADO, releasing the code from the active set.
func (s *SubmissionService) ConfirmDelivery(id, presentedCode string) (*model.Submission, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := s.Repo.FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrNotFound
			}
			return err
		}
		if locked.State != model.SubEnviada && locked.State != model.SubAvaliada {
			return util.ErrInvalidTransition
		}
		if locked.DeliveryCode != presentedCode {
			return util.ErrDeliveryCodeMismatch
		}
		return s.Repo.UpdateFields(tx, id, map[string]interface{}{
			"state": model.SubCodigoConfirmado,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Reopen sends a delivered attempt back to the student.
func (s *SubmissionService) Reopen(id string) (*model.Submission, error) {
	return s.moveTo(id, model.SubReaberta, model.SubEnviada)
}

// Pause freezes one student's attempt without touching the application.
func (s *SubmissionService) Pause(id string) (*model.Submission, error) {
	return s.moveTo(id, model.SubPausada, model.SubIniciada, model.SubReaberta)
}

func (s *SubmissionService) Unpause(id string) (*model.Submission, error) {
	return s.moveTo(id, model.SubIniciada, model.SubPausada)
}

// Abandon, Close and Cancel are the abnormal exits. None of them is
// reachable from AVALIADA or CODIGO_CONFIRMADO.
func (s *SubmissionService) Abandon(id string) (*model.Submission, error) {
	sub, err := s.moveTo(id, model.SubAbandonada,
		model.SubIniciada, model.SubReaberta, model.SubPausada, model.SubEnviada)
	if err != nil {
		return nil, err
	}
	s.broadcast(Event{
		Type:          EventStudentLeft,
		AplicacaoID:   sub.ApplicationID,
		SubmissaoID:   sub.ID,
		EstudanteNome: sub.StudentName,
	})
	return sub, nil
}

func (s *SubmissionService) Close(id string) (*model.Submission, error) {
	return s.moveTo(id, model.SubEncerrada,
		model.SubIniciada, model.SubReaberta, model.SubPausada, model.SubEnviada)
}

func (s *SubmissionService) Cancel(id string) (*model.Submission, error) {
	return s.moveTo(id, model.SubCancelada,
		model.SubIniciada, model.SubReaberta, model.SubPausada, model.SubEnviada)
}

func (s *SubmissionService) moveTo(id string, target model.SubmissionState, allowedFrom ...model.SubmissionState) (*model.Submission, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := s.Repo.FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrNotFound
			}
			return err
		}
		allowed := false
		for _, from := range allowedFrom {
			if locked.State == from {
				allowed = true
				break
			}
		}
		if !allowed {
			return util.ErrInvalidTransition
		}
		return s.Repo.UpdateFields(tx, id, map[string]interface{}{"state": target})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// RecordProgress relays a student progress ping to the proctor dashboard.
// Nothing is persisted; the value is advisory.
func (s *SubmissionService) RecordProgress(sub *model.Submission, progress int) {
	s.broadcast(Event{
		Type:        EventProgressUpdated,
		AplicacaoID: sub.ApplicationID,
		SubmissaoID: sub.ID,
		Progresso:   progress,
	})
}

func (s *SubmissionService) broadcast(ev Event) {
	if s.Broadcaster == nil {
		return
	}
	s.Broadcaster.BroadcastToApplication(ev.AplicacaoID, ev)
}
