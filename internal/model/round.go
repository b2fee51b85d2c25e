package model

import (
	"time"
)

type RoundStatus string

const (
	RoundNotStarted RoundStatus = "not_started"
	RoundInProgress RoundStatus = "in_progress"
	RoundCompleted  RoundStatus = "completed"
)

// ProctoringRules are stored as columns on the round.
type ProctoringRules struct {
	AutoSubmitOnViolation bool `json:"auto_submit_on_violation" gorm:"not null;default:false"`
	MaxTabSwitchWarnings  int  `json:"max_tab_switch_warnings" gorm:"not null;default:3"`
}

type Round struct {
	ID               uint        `gorm:"primarykey" json:"id"`
	EventID          uint        `json:"event_id" gorm:"not null;index"`
	Name             string      `json:"name" gorm:"not null"`
	Duration         int         `json:"duration" gorm:"not null"` // minutes
	Status           RoundStatus `json:"status" gorm:"type:varchar(20);not null;default:'not_started'"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	EndedAt          *time.Time  `json:"ended_at,omitempty"`
	ResultsPublished bool        `json:"results_published" gorm:"not null;default:false"`
	ProctoringRules  `gorm:"embedded"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DurationWindow returns the round duration as a time.Duration.
func (r Round) DurationWindow() time.Duration {
	return time.Duration(r.Duration) * time.Minute
}
