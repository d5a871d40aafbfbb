package model

import (
	"encoding/json"
	"time"
)

type SchedulingMode string

const (
	SchedulingManual    SchedulingMode = "manual"
	SchedulingScheduled SchedulingMode = "scheduled"
)

// swagger:model Assessment
type Assessment struct {
	BaseModel
	Title          string          `gorm:"size:255;not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	TimeLimit      int             `gorm:"default:0" json:"timeLimit"` // Minutes
	SchedulingMode SchedulingMode  `gorm:"size:20;default:'manual'" json:"schedulingMode"`
	ScheduledAt    *time.Time      `json:"scheduledAt,omitempty"`
	ShowScores     bool            `gorm:"default:true" json:"showScores"`
	SecurityPolicy json.RawMessage `gorm:"type:json" json:"securityPolicy,omitempty"`
	CreatorID      uint            `gorm:"index;type:bigint unsigned" json:"creatorId"`
	Questions      []Question      `gorm:"foreignKey:AssessmentID" json:"questions,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// Duration returns the assessment time limit as a duration.
func (a *Assessment) Duration() time.Duration {
	return time.Duration(a.TimeLimit) * time.Minute
}

type QuestionType string

const (
	QuestionObjective  QuestionType = "OBJETIVA"
	QuestionDiscursive QuestionType = "DISCURSIVA"
)

type Question struct {
	BaseModel
	AssessmentID uint          `gorm:"index;type:bigint unsigned" json:"assessmentId"`
	Type         QuestionType  `gorm:"size:20;not null" json:"type"`
	Statement    string        `gorm:"type:text;not null" json:"statement"`
	Points       float64       `gorm:"default:0" json:"points"`
	Order        int           `gorm:"default:0" json:"order"`
	Alternatives []Alternative `gorm:"foreignKey:QuestionID" json:"alternatives,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// CorrectAlternativeIDs returns the ids of the alternatives marked correct.
func (q *Question) CorrectAlternativeIDs() []uint {
	var ids []uint
	for _, alt := range q.Alternatives {
		if alt.Correct {
			ids = append(ids, alt.ID)
		}
	}
	return ids
}

type Alternative struct {
	BaseModel
	QuestionID uint   `gorm:"index;type:bigint unsigned" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	Correct    bool   `gorm:"default:false" json:"-"`
	Order      int    `gorm:"default:0" json:"order"`
}

func (Alternative) TableName() string {
	return "alternatives"
}
