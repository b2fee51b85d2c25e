package model

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

const (
	ViolationTabSwitch      = "tab_switch"
	ViolationRefresh        = "refresh"
	ViolationShortcut       = "shortcut"
	ViolationFullscreenExit = "fullscreen_exit"
)

type SubmitTrigger string

const (
	SubmitManual    SubmitTrigger = "manual"
	SubmitViolation SubmitTrigger = "violation"
	SubmitExpiry    SubmitTrigger = "expiry"
)

type ViolationLog struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// TestAttempt is one participant's attempt at a round. The (user_id, round_id)
// pair is unique.
type TestAttempt struct {
	ID                  uint                              `gorm:"primarykey" json:"id"`
	RoundID             uint                              `json:"round_id" gorm:"not null;uniqueIndex:idx_attempt_user_round"`
	Round               *Round                            `json:"round,omitempty" gorm:"foreignKey:RoundID"`
	UserID              uint                              `json:"user_id" gorm:"not null;uniqueIndex:idx_attempt_user_round"`
	Status              AttemptStatus                     `json:"status" gorm:"type:varchar(20);not null;default:'in_progress';index"`
	StartedAt           time.Time                         `json:"started_at" gorm:"not null"`
	SubmittedAt         *time.Time                        `json:"submitted_at,omitempty"`
	CompletedAt         *time.Time                        `json:"completed_at,omitempty"`
	SubmitTrigger       SubmitTrigger                     `json:"submit_trigger,omitempty" gorm:"type:varchar(20)"`
	TabSwitchCount      int                               `json:"tab_switch_count" gorm:"not null;default:0"`
	RefreshAttemptCount int                               `json:"refresh_attempt_count" gorm:"not null;default:0"`
	ViolationLogs       datatypes.JSONSlice[ViolationLog] `json:"violation_logs" gorm:"type:jsonb;not null;default:'[]'"`
	TotalScore          int                               `json:"total_score" gorm:"not null;default:0"`
	MaxScore            int                               `json:"max_score" gorm:"not null;default:0"`
	Answers             []Answer                          `json:"answers,omitempty" gorm:"foreignKey:TestAttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt           time.Time                         `json:"created_at"`
	UpdatedAt           time.Time                         `json:"updated_at"`
}

// WindowEndsAt is the end of the participant's own timer.
func (a TestAttempt) WindowEndsAt(r Round) time.Time {
	return a.StartedAt.Add(r.DurationWindow())
}
