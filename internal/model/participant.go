package model

import (
	"time"
)

type ParticipantStatus string

const (
	ParticipantRegistered   ParticipantStatus = "registered"
	ParticipantCompleted    ParticipantStatus = "completed"
	ParticipantDisqualified ParticipantStatus = "disqualified"
)

type Participant struct {
	ID               uint              `gorm:"primarykey" json:"id"`
	EventID          uint              `json:"event_id" gorm:"not null;uniqueIndex:idx_participant_event_user"`
	UserID           uint              `json:"user_id" gorm:"not null;uniqueIndex:idx_participant_event_user"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	CredentialCode   string            `json:"credential_code" gorm:"type:varchar(64);uniqueIndex"`
	Status           ParticipantStatus `json:"status" gorm:"type:varchar(20);not null;default:'registered'"`
	DisqualifiedAt   *time.Time        `json:"disqualified_at,omitempty"`
	DisqualifyReason string            `json:"disqualify_reason,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
