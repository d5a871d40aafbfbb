package model

import (
	"encoding/json"
	"time"
)

// SubmissionState holds the lifecycle state of one student attempt. Stored
// and broadcast verbatim, like ApplicationState.
type SubmissionState string

const (
	SubIniciada         SubmissionState = "INICIADA"
	SubPausada          SubmissionState = "PAUSADA"
	SubReaberta         SubmissionState = "REABERTA"
	SubEnviada          SubmissionState = "ENVIADA"
	SubCodigoConfirmado SubmissionState = "CODIGO_CONFIRMADO"
	SubAvaliada         SubmissionState = "AVALIADA"
	SubEncerrada        SubmissionState = "ENCERRADA"
	SubAbandonada       SubmissionState = "ABANDONADA"
	SubCancelada        SubmissionState = "CANCELADA"
)

// ActiveSubmissionStates are the states among which delivery codes must be
// unique. Once a code is confirmed the submission leaves the active set and
// its code becomes reusable.
var ActiveSubmissionStates = []SubmissionState{
	SubIniciada, SubEnviada, SubReaberta, SubPausada,
}

// swagger:model Submission
type Submission struct {
	UUIDBase
	ApplicationID uint            `gorm:"index;type:bigint unsigned;not null" json:"applicationId"`
	StudentName   string          `gorm:"size:100;not null" json:"studentName"`
	StudentEmail  string          `gorm:"size:100;not null" json:"studentEmail"`
	DeliveryCode  string          `gorm:"size:6;index;not null" json:"deliveryCode"`
	State         SubmissionState `gorm:"size:20;default:'INICIADA';index" json:"state"`
	Hash          string          `gorm:"size:36;uniqueIndex;not null" json:"-"` // opaque resume token
	TotalScore    *float64        `json:"totalScore,omitempty"`
	StartedAt     time.Time       `json:"startedAt"`
	FinishedAt    *time.Time      `json:"finishedAt,omitempty"`
	Answers       []Answer        `gorm:"foreignKey:SubmissionID" json:"answers,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

type Answer struct {
	UUIDBase
	SubmissionID string          `gorm:"index;type:varchar(36);not null" json:"submissionId"`
	QuestionID   uint            `gorm:"index;type:bigint unsigned;not null" json:"questionId"`
	Selected     json.RawMessage `gorm:"type:json" json:"selected,omitempty"` // alternative ids, objective questions
	Text         string          `gorm:"type:text" json:"text,omitempty"`     // discursive questions
	Score        *float64        `json:"score,omitempty"`
	Feedback     string          `gorm:"type:text" json:"feedback,omitempty"`
	GradedAt     *time.Time      `json:"gradedAt,omitempty"`
}

func (Answer) TableName() string {
	return "answers"
}

// SelectedIDs decodes the selected alternative ids of an objective answer.
func (a *Answer) SelectedIDs() []uint {
	if len(a.Selected) == 0 {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(a.Selected, &ids); err != nil {
		return nil
	}
	return ids
}
