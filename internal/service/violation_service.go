package service

import (
	"errors"
	"sync"
	"time"

	"prova_backend/internal/config"
	"prova_backend/internal/model"
	"prova_backend/internal/repository"
	"prova_backend/internal/util"
	"prova_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ViolationService keeps the append-only infraction ledger. Records are
// never recomputed or deleted; effective score and effective remaining time
// are derived by summing the ledger at read time, so re-grading and
// late-arriving violations stay consistent.
type ViolationService struct {
	Repo        *repository.ViolationRepository
	SubRepo     *repository.SubmissionRepository
	DB          *gorm.DB
	Broadcaster Broadcaster

	mu    sync.RWMutex
	rules config.ProctoringConfig
}

func NewViolationService(repo *repository.ViolationRepository, subRepo *repository.SubmissionRepository, db *gorm.DB, rules config.ProctoringConfig) *ViolationService {
	return &ViolationService{
		Repo:    repo,
		SubRepo: subRepo,
		DB:      db,
		rules:   rules,
	}
}

// ReloadRules swaps the penalty table on a config hot reload. Existing
// ledger rows keep the penalties they were recorded with.
func (s *ViolationService) ReloadRules(rules config.ProctoringConfig) {
	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
	logger.Log.Info("Penalty rules reloaded", zap.Int("rules", len(rules.Penalties)))
}

// Record appends one infraction for a submission. The occurrence count is
// read under the submission row lock so concurrent reports of the same type
// serialize, and the configured (type, occurrence) rule fixes the penalty
// at recording time.
func (s *ViolationService) Record(submissionID, infractionType string) (*model.Violation, error) {
	s.mu.RLock()
	rules := s.rules
	s.mu.RUnlock()

	var violation *model.Violation
	var applicationID uint
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		sub, err := s.SubRepo.FindByIDForUpdate(tx, submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrNotFound
			}
			return err
		}
		applicationID = sub.ApplicationID

		prior, err := s.Repo.CountByType(tx, submissionID, infractionType)
		if err != nil {
			return err
		}
		occurrence := int(prior) + 1
		rule := rules.PenaltyFor(infractionType, occurrence)

		violation = &model.Violation{
			SubmissionID:       submissionID,
			Type:               infractionType,
			Occurrence:         occurrence,
			ScorePenalty:       rule.ScorePenalty,
			TimePenaltySeconds: rule.TimePenaltySeconds,
		}
		return s.Repo.Create(tx, violation)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Violation recorded",
		zap.String("submissionId", submissionID),
		zap.String("type", infractionType),
		zap.Int("occurrence", violation.Occurrence))

	if s.Broadcaster != nil {
		s.Broadcaster.BroadcastToApplication(applicationID, Event{
			Type:         EventViolationRecorded,
			AplicacaoID:  applicationID,
			SubmissaoID:  submissionID,
			TipoInfracao: infractionType,
		})
	}
	return violation, nil
}

func (s *ViolationService) List(submissionID string) ([]model.Violation, error) {
	return s.Repo.ListBySubmission(submissionID)
}

// PenaltyTime returns the accumulated time penalty of one submission.
func (s *ViolationService) PenaltyTime(submissionID string) (time.Duration, error) {
	_, seconds, err := s.Repo.SumPenalties(submissionID)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

// EffectiveScore subtracts the accumulated score penalty from a raw graded
// total, floored at zero.
func EffectiveScore(rawTotal float64, violations []model.Violation) float64 {
	total := rawTotal
	for _, v := range violations {
		total -= v.ScorePenalty
	}
	if total < 0 {
		return 0
	}
	return total
}

// EffectiveScoreFor derives the submission's effective score from the
// ledger. Returns nil when the raw total is still ungraded.
func (s *ViolationService) EffectiveScoreFor(sub *model.Submission) (*float64, error) {
	if sub.TotalScore == nil {
		return nil, nil
	}
	violations, err := s.Repo.ListBySubmission(sub.ID)
	if err != nil {
		return nil, err
	}
	score := EffectiveScore(*sub.TotalScore, violations)
	return &score, nil
}
