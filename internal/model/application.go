package model

import "time"

// ApplicationState holds the lifecycle state of an exam application. The
// values are part of the wire contract with the dashboard and student
// clients and are stored verbatim.
type ApplicationState string

const (
	AppCriada      ApplicationState = "CRIADA"
	AppAgendada    ApplicationState = "AGENDADA"
	AppEmAndamento ApplicationState = "EM_ANDAMENTO"
	AppPausada     ApplicationState = "PAUSADA"
	AppFinalizada  ApplicationState = "FINALIZADA"
	AppConcluida   ApplicationState = "CONCLUIDA"
	AppCancelada   ApplicationState = "CANCELADA"
)

// ActiveApplicationStates are the states among which access codes must be
// unique. Terminal applications may share a code with a later one.
var ActiveApplicationStates = []ApplicationState{
	AppCriada, AppAgendada, AppEmAndamento, AppPausada,
}

func (s ApplicationState) Terminal() bool {
	switch s {
	case AppFinalizada, AppConcluida, AppCancelada:
		return true
	}
	return false
}

// swagger:model Application
type Application struct {
	BaseModel
	AssessmentID uint             `gorm:"index;type:bigint unsigned;not null" json:"assessmentId"`
	Assessment   *Assessment      `gorm:"foreignKey:AssessmentID" json:"assessment,omitempty"`
	AccessCode   string           `gorm:"size:6;index;not null" json:"accessCode"`
	State        ApplicationState `gorm:"size:20;default:'CRIADA';index" json:"state"`
	StartAt      *time.Time       `json:"startAt,omitempty"`
	EndAt        *time.Time       `json:"endAt,omitempty"`
	PausedAt     *time.Time       `json:"pausedAt,omitempty"`
	Submissions  []Submission     `gorm:"foreignKey:ApplicationID" json:"submissions,omitempty"`
}

func (Application) TableName() string {
	return "applications"
}
