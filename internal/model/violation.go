package model

// Violation is one recorded integrity infraction. Rows are append-only:
// the occurrence count and the penalties are fixed at recording time, and
// effective score/time are always derived by summing the ledger.
type Violation struct {
	BaseModel
	SubmissionID       string  `gorm:"index;type:varchar(36);not null" json:"submissionId"`
	Type               string  `gorm:"size:50;not null" json:"type"`
	Occurrence         int     `gorm:"not null" json:"occurrence"`
	ScorePenalty       float64 `gorm:"default:0" json:"scorePenalty"`
	TimePenaltySeconds int     `gorm:"default:0" json:"timePenaltySeconds"`
}

func (Violation) TableName() string {
	return "violations"
}
