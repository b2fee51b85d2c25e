package dto

import (
	"encoding/json"
	"time"
)

type EventResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Venue       string          `json:"venue,omitempty"`
	StartsAt    *time.Time      `json:"starts_at,omitempty"`
	CreatedBy   uint            `json:"created_by"`
	Rounds      []RoundResponse `json:"rounds,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type RoundResponse struct {
	ID                    uint       `json:"id"`
	EventID               uint       `json:"event_id"`
	Name                  string     `json:"name"`
	Duration              int        `json:"duration"`
	Status                string     `json:"status"`
	StartedAt             *time.Time `json:"started_at,omitempty"`
	EndedAt               *time.Time `json:"ended_at,omitempty"`
	ResultsPublished      bool       `json:"results_published"`
	AutoSubmitOnViolation bool       `json:"auto_submit_on_violation"`
	MaxTabSwitchWarnings  int        `json:"max_tab_switch_warnings"`
	QuestionCount         int        `json:"question_count,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// QuestionResponse carries CorrectAnswer only when results are visible to the viewer.
type QuestionResponse struct {
	ID            uint            `json:"id"`
	RoundID       uint            `json:"round_id"`
	Type          string          `json:"type"`
	Text          string          `json:"text"`
	Points        int             `json:"points"`
	CorrectAnswer *string         `json:"correct_answer,omitempty"`
	Options       []string        `json:"options,omitempty"`
	TestCases     json.RawMessage `json:"test_cases,omitempty" swaggertype:"object"`
	Position      int             `json:"position"`
}

type ParticipantResponse struct {
	ID               uint       `json:"id"`
	EventID          uint       `json:"event_id"`
	UserID           uint       `json:"user_id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	CredentialCode   string     `json:"credential_code"`
	Status           string     `json:"status"`
	DisqualifiedAt   *time.Time `json:"disqualified_at,omitempty"`
	DisqualifyReason string     `json:"disqualify_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
