package service

import (
	"errors"
	"time"

	"prova_backend/internal/model"
	"prova_backend/internal/repository"
	"prova_backend/internal/util"
	"prova_backend/pkg/logger"
	"prova_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApplicationService owns the exam application lifecycle. Every transition
// is a single read-check-write transaction against the application row;
// that row lock is the sole mutual-exclusion mechanism between proctor
// requests and scheduler fires. A fire that finds the expected prior state
// already gone is a silent no-op, which is what makes the scheduler's
// callbacks idempotent.
type ApplicationService struct {
	Repo           *repository.ApplicationRepository
	AssessmentRepo *repository.AssessmentRepository
	SubmissionRepo *repository.SubmissionRepository
	ViolationRepo  *repository.ViolationRepository
	Scheduler      *Scheduler
	Codegen        *CodeGenerator
	DB             *gorm.DB
	Broadcaster    Broadcaster
}

func NewApplicationService(
	repo *repository.ApplicationRepository,
	assessmentRepo *repository.AssessmentRepository,
	submissionRepo *repository.SubmissionRepository,
	violationRepo *repository.ViolationRepository,
	scheduler *Scheduler,
	db *gorm.DB,
) *ApplicationService {
	return &ApplicationService{
		Repo:           repo,
		AssessmentRepo: assessmentRepo,
		SubmissionRepo: submissionRepo,
		ViolationRepo:  violationRepo,
		Scheduler:      scheduler,
		Codegen:        NewCodeGenerator(),
		DB:             db,
	}
}

// planTransition decides whether an application in its current state may
// move to target at instant now, and which fields change. It is pure: the
// transactional wrapper supplies a freshly locked row and commits the
// returned updates, so re-checking the prior state happens implicitly.
func planTransition(app *model.Application, target model.ApplicationState, now time.Time, timeLimit time.Duration) (map[string]interface{}, error) {
	if app.State.Terminal() {
		return nil, util.ErrInvalidTransition
	}

	switch target {
	case model.AppAgendada:
		if app.State != model.AppCriada {
			return nil, util.ErrInvalidTransition
		}
		return map[string]interface{}{"state": model.AppAgendada}, nil

	case model.AppEmAndamento:
		if app.State == model.AppPausada {
			// resume: extend the end by the paused interval so the total
			// allotted duration is preserved
			if app.PausedAt == nil || app.EndAt == nil {
				return nil, util.ErrInvalidTransition
			}
			newEnd := app.EndAt.Add(now.Sub(*app.PausedAt))
			return map[string]interface{}{
				"state":     model.AppEmAndamento,
				"end_at":    newEnd,
				"paused_at": nil,
			}, nil
		}
		if app.State != model.AppCriada && app.State != model.AppAgendada {
			return nil, util.ErrInvalidTransition
		}
		end := now.Add(timeLimit)
		return map[string]interface{}{
			"state":    model.AppEmAndamento,
			"start_at": now,
			"end_at":   end,
		}, nil

	case model.AppPausada:
		if app.State != model.AppEmAndamento {
			return nil, util.ErrInvalidTransition
		}
		return map[string]interface{}{
			"state":     model.AppPausada,
			"paused_at": now,
		}, nil

	case model.AppFinalizada:
		if app.State != model.AppEmAndamento && app.State != model.AppPausada {
			return nil, util.ErrInvalidTransition
		}
		return map[string]interface{}{"state": model.AppFinalizada}, nil

	case model.AppConcluida, model.AppCancelada:
		return map[string]interface{}{"state": target}, nil
	}

	return nil, util.ErrInvalidTransition
}

// transition runs the guarded transition in a row-locked transaction.
// fromTimer marks scheduler callers: a rejected guard then reports stale
// instead of an error.
func (s *ApplicationService) transition(id uint, target model.ApplicationState, fromTimer bool) (app *model.Application, stale bool, err error) {
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := s.Repo.FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrNotFound
			}
			return err
		}

		var assessment model.Assessment
		if err := tx.First(&assessment, locked.AssessmentID).Error; err != nil {
			return err
		}

		updates, err := planTransition(locked, target, time.Now(), assessment.Duration())
		if err != nil {
			if fromTimer && errors.Is(err, util.ErrInvalidTransition) {
				stale = true
				return nil
			}
			return err
		}

		return s.Repo.UpdateFields(tx, id, updates)
	})
	if err != nil {
		return nil, false, err
	}
	if stale {
		return nil, true, nil
	}

	app, err = s.Repo.FindByID(id)
	return app, false, err
}

// Create opens a new application for an assessment, generating its access
// code inside the insert transaction so two concurrent creations cannot
// both claim the same code.
func (s *ApplicationService) Create(assessmentID uint) (*model.Application, error) {
	if _, err := s.AssessmentRepo.FindByID(assessmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}

	var app *model.Application
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		code, err := s.Codegen.Generate(func(candidate string) (bool, error) {
			return s.Repo.AccessCodeTaken(tx, candidate)
		})
		if err != nil {
			return err
		}

		app = &model.Application{
			AssessmentID: assessmentID,
			AccessCode:   code,
			State:        model.AppCriada,
		}
		return s.Repo.Create(tx, app)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Application created",
		zap.Uint("applicationId", app.ID),
		zap.Uint("assessmentId", assessmentID))
	return app, nil
}

func (s *ApplicationService) Get(id uint) (*model.Application, error) {
	app, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotFound
		}
		return nil, err
	}
	return app, nil
}

func (s *ApplicationService) List(page, limit int) ([]model.Application, int64, error) {
	return s.Repo.List(page, limit)
}

// Schedule moves CRIADA to AGENDADA and arms the start timer at the
// assessment's scheduled instant. Requires the scheduled mode with a
// configured time.
func (s *ApplicationService) Schedule(id uint) (*model.Application, error) {
	app, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	assessment := app.Assessment
	if assessment == nil || assessment.SchedulingMode != model.SchedulingScheduled || assessment.ScheduledAt == nil {
		return nil, util.ErrInvalidScheduleConfig
	}

	app, _, err = s.transition(id, model.AppAgendada, false)
	if err != nil {
		return nil, err
	}

	at := *assessment.ScheduledAt
	s.Scheduler.Schedule(StartTimerName(id), at, func() { s.startScheduled(id) })
	s.broadcastState(app)
	return app, nil
}

// Start is the manual start: any pending scheduled-start timer is dropped
// first.
func (s *ApplicationService) Start(id uint) (*model.Application, error) {
	app, _, err := s.transition(id, model.AppEmAndamento, false)
	if err != nil {
		return nil, err
	}
	s.Scheduler.Cancel(StartTimerName(id))
	s.armFinish(app)
	s.broadcastState(app)
	return app, nil
}

// startScheduled is the scheduled-start timer callback. A stale fire
// (proctor already started or cancelled) does nothing and does not arm a
// successor.
func (s *ApplicationService) startScheduled(id uint) {
	app, stale, err := s.transition(id, model.AppEmAndamento, true)
	if err != nil {
		monitoring.ScheduledFires.WithLabelValues("start", "error").Inc()
		logger.Log.Error("Scheduled start failed", zap.Uint("applicationId", id), zap.Error(err))
		return
	}
	if stale {
		monitoring.ScheduledFires.WithLabelValues("start", "stale").Inc()
		logger.Log.Debug("Scheduled start was stale", zap.Uint("applicationId", id))
		return
	}
	monitoring.ScheduledFires.WithLabelValues("start", "ok").Inc()
	s.armFinish(app)
	s.broadcastState(app)
}

// Pause freezes the remaining time: the finish timer is dropped and the
// pause instant recorded; resume recomputes the end from it.
func (s *ApplicationService) Pause(id uint) (*model.Application, error) {
	app, _, err := s.transition(id, model.AppPausada, false)
	if err != nil {
		return nil, err
	}
	s.Scheduler.Cancel(FinishTimerName(id))
	s.broadcastState(app)
	return app, nil
}

func (s *ApplicationService) Resume(id uint) (*model.Application, error) {
	app, _, err := s.transition(id, model.AppEmAndamento, false)
	if err != nil {
		return nil, err
	}
	s.armFinish(app)
	s.broadcastState(app)
	return app, nil
}

func (s *ApplicationService) Finish(id uint) (*model.Application, error) {
	app, _, err := s.transition(id, model.AppFinalizada, false)
	if err != nil {
		return nil, err
	}
	s.Scheduler.CancelAll(id)
	s.broadcastState(app)
	return app, nil
}

// finishScheduled is the automatic-finish timer callback.
func (s *ApplicationService) finishScheduled(id uint) {
	app, stale, err := s.transition(id, model.AppFinalizada, true)
	if err != nil {
		monitoring.ScheduledFires.WithLabelValues("finish", "error").Inc()
		logger.Log.Error("Scheduled finish failed", zap.Uint("applicationId", id), zap.Error(err))
		return
	}
	if stale {
		monitoring.ScheduledFires.WithLabelValues("finish", "stale").Inc()
		logger.Log.Debug("Scheduled finish was stale", zap.Uint("applicationId", id))
		return
	}
	monitoring.ScheduledFires.WithLabelValues("finish", "ok").Inc()
	s.Scheduler.CancelAll(id)
	s.broadcastState(app)
}

func (s *ApplicationService) Conclude(id uint) (*model.Application, error) {
	return s.terminate(id, model.AppConcluida)
}

func (s *ApplicationService) CancelApplication(id uint) (*model.Application, error) {
	return s.terminate(id, model.AppCancelada)
}

func (s *ApplicationService) terminate(id uint, target model.ApplicationState) (*model.Application, error) {
	app, _, err := s.transition(id, target, false)
	if err != nil {
		return nil, err
	}
	s.Scheduler.CancelAll(id)
	s.broadcastState(app)
	return app, nil
}

// AdjustTime shifts the end of a running or paused application by delta
// seconds and re-arms the finish timer.
func (s *ApplicationService) AdjustTime(id uint, deltaSeconds int) (*model.Application, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := s.Repo.FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrNotFound
			}
			return err
		}
		if locked.State != model.AppEmAndamento && locked.State != model.AppPausada {
			return util.ErrInvalidTransition
		}
		if locked.EndAt == nil {
			return util.ErrInvalidTransition
		}
		newEnd := locked.EndAt.Add(time.Duration(deltaSeconds) * time.Second)
		return s.Repo.UpdateFields(tx, id, map[string]interface{}{"end_at": newEnd})
	})
	if err != nil {
		return nil, err
	}

	app, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	s.armFinish(app)
	s.broadcastTime(app)
	return app, nil
}

// ResetTimer restarts the countdown from now with the full assessment time
// limit.
func (s *ApplicationService) ResetTimer(id uint) (*model.Application, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := s.Repo.FindByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrNotFound
			}
			return err
		}
		if locked.State != model.AppEmAndamento {
			return util.ErrInvalidTransition
		}
		var assessment model.Assessment
		if err := tx.First(&assessment, locked.AssessmentID).Error; err != nil {
			return err
		}
		now := time.Now()
		return s.Repo.UpdateFields(tx, id, map[string]interface{}{
			"start_at": now,
			"end_at":   now.Add(assessment.Duration()),
		})
	})
	if err != nil {
		return nil, err
	}

	app, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	s.armFinish(app)
	s.broadcastTime(app)
	return app, nil
}

// Rearm restores timers after a restart: AGENDADA applications get their
// start timer back, running ones their finish timer. Past instants fire
// immediately and the guards absorb anything already handled.
func (s *ApplicationService) Rearm() error {
	scheduled, err := s.Repo.ListByState(model.AppAgendada)
	if err != nil {
		return err
	}
	for _, app := range scheduled {
		if app.Assessment == nil || app.Assessment.ScheduledAt == nil {
			continue
		}
		id := app.ID
		s.Scheduler.Schedule(StartTimerName(id), *app.Assessment.ScheduledAt, func() { s.startScheduled(id) })
	}

	running, err := s.Repo.ListByState(model.AppEmAndamento)
	if err != nil {
		return err
	}
	for _, app := range running {
		if app.EndAt == nil {
			continue
		}
		id := app.ID
		s.Scheduler.Schedule(FinishTimerName(id), *app.EndAt, func() { s.finishScheduled(id) })
	}

	logger.Log.Info("Timers rearmed",
		zap.Int("scheduled", len(scheduled)),
		zap.Int("running", len(running)))
	return nil
}

// FinishOverdue finishes running applications whose end already passed.
// Safety net for fires lost across restarts; runs from a background ticker.
func (s *ApplicationService) FinishOverdue() error {
	apps, err := s.Repo.ListOverdue(time.Now())
	if err != nil {
		return err
	}
	for _, app := range apps {
		s.finishScheduled(app.ID)
	}
	return nil
}

func (s *ApplicationService) armFinish(app *model.Application) {
	if app.State != model.AppEmAndamento || app.EndAt == nil {
		return
	}
	id := app.ID
	s.Scheduler.Schedule(FinishTimerName(id), *app.EndAt, func() { s.finishScheduled(id) })
}

func (s *ApplicationService) broadcastState(app *model.Application) {
	if s.Broadcaster == nil {
		return
	}
	ev := Event{
		Type:        EventStateChanged,
		AplicacaoID: app.ID,
		NovoEstado:  string(app.State),
	}
	if app.EndAt != nil {
		ev.NovaDataFimISO = app.EndAt.UTC().Format(time.RFC3339)
	}
	s.Broadcaster.BroadcastToApplication(app.ID, ev)
}

func (s *ApplicationService) broadcastTime(app *model.Application) {
	if s.Broadcaster == nil || app.EndAt == nil {
		return
	}
	s.Broadcaster.BroadcastToApplication(app.ID, Event{
		Type:           EventTimeAdjusted,
		AplicacaoID:    app.ID,
		NovaDataFimISO: app.EndAt.UTC().Format(time.RFC3339),
	})
}

// SubmissionSnapshot is one row of the monitoring view.
type SubmissionSnapshot struct {
	SubmissionID     string                `json:"submissionId"`
	StudentName      string                `json:"studentName"`
	State            model.SubmissionState `json:"state"`
	Progress         int                   `json:"progress"`
	ViolationCount   int64                 `json:"violationCount"`
	PenaltySeconds   int64                 `json:"penaltySeconds"`
	RemainingSeconds int64                 `json:"remainingSeconds"`
}

// MonitorSnapshot is the full resynchronization payload. Reconnecting
// clients fetch it instead of replaying missed events: the channel gives no
// ordering guarantee across reconnects, so state is always re-derived.
type MonitorSnapshot struct {
	ApplicationID uint                   `json:"applicationId"`
	State         model.ApplicationState `json:"state"`
	ServerTime    time.Time              `json:"serverTime"`
	StartAt       *time.Time             `json:"startAt,omitempty"`
	EndAt         *time.Time             `json:"endAt,omitempty"`
	PausedAt      *time.Time             `json:"pausedAt,omitempty"`
	Submissions   []SubmissionSnapshot   `json:"submissions"`
}

// countdownReference is the instant remaining time is measured from. A
// paused application's countdown is frozen at the pause instant, so a client
// resyncing mid-pause sees the same remaining time for as long as the pause
// lasts.
func countdownReference(app *model.Application, now time.Time) time.Time {
	if app.State == model.AppPausada && app.PausedAt != nil {
		return *app.PausedAt
	}
	return now
}

func (s *ApplicationService) Snapshot(id uint) (*MonitorSnapshot, error) {
	app, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	subs, err := s.SubmissionRepo.ListByApplication(id)
	if err != nil {
		return nil, err
	}

	assessment, err := s.AssessmentRepo.FindByID(app.AssessmentID)
	if err != nil {
		return nil, err
	}
	totalQuestions := len(assessment.Questions)

	now := time.Now()
	reference := countdownReference(app, now)
	snapshot := &MonitorSnapshot{
		ApplicationID: app.ID,
		State:         app.State,
		ServerTime:    now,
		StartAt:       app.StartAt,
		EndAt:         app.EndAt,
		PausedAt:      app.PausedAt,
		Submissions:   make([]SubmissionSnapshot, 0, len(subs)),
	}

	for _, sub := range subs {
		count, err := s.ViolationRepo.CountBySubmission(sub.ID)
		if err != nil {
			return nil, err
		}
		_, penaltySecs, err := s.ViolationRepo.SumPenalties(sub.ID)
		if err != nil {
			return nil, err
		}

		row := SubmissionSnapshot{
			SubmissionID:   sub.ID,
			StudentName:    sub.StudentName,
			State:          sub.State,
			ViolationCount: count,
			PenaltySeconds: penaltySecs,
		}
		if totalQuestions > 0 {
			answered, err := s.SubmissionRepo.CountAnswers(sub.ID)
			if err != nil {
				return nil, err
			}
			row.Progress = int(answered * 100 / int64(totalQuestions))
		}
		if app.EndAt != nil {
			row.RemainingSeconds = RemainingSeconds(*app.EndAt, reference, time.Duration(penaltySecs)*time.Second)
		}
		snapshot.Submissions = append(snapshot.Submissions, row)
	}

	return snapshot, nil
}
