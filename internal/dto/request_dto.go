package dto

import (
	"encoding/json"
	"time"
)

type CreateEventRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Venue       string     `json:"venue"`
	StartsAt    *time.Time `json:"starts_at"`
}

type CreateRoundRequest struct {
	Name                  string `json:"name" binding:"required"`
	Duration              int    `json:"duration" binding:"required,min=1"` // minutes
	AutoSubmitOnViolation bool   `json:"auto_submit_on_violation"`
	MaxTabSwitchWarnings  *int   `json:"max_tab_switch_warnings" binding:"omitempty,min=0"`
}

// UpdateRoundRequest only touches the fields that are set.
type UpdateRoundRequest struct {
	Name                  *string `json:"name"`
	Duration              *int    `json:"duration" binding:"omitempty,min=1"`
	AutoSubmitOnViolation *bool   `json:"auto_submit_on_violation"`
	MaxTabSwitchWarnings  *int    `json:"max_tab_switch_warnings" binding:"omitempty,min=0"`
}

type CreateQuestionRequest struct {
	Type          string          `json:"type" binding:"required,oneof=multiple_choice true_false short_answer coding custom"`
	Text          string          `json:"text" binding:"required"`
	Points        int             `json:"points" binding:"required,min=1"`
	CorrectAnswer *string         `json:"correct_answer"`
	Options       []string        `json:"options"`
	TestCases     json.RawMessage `json:"test_cases" swaggertype:"object"`
	Position      int             `json:"position"`
}

type GenerateQuestionsRequest struct {
	Topic  string `json:"topic" binding:"required"`
	Count  int    `json:"count" binding:"required,min=1,max=20"`
	Points int    `json:"points" binding:"omitempty,min=1"`
}

type RecordAnswerRequest struct {
	QuestionID uint   `json:"question_id" binding:"required"`
	Answer     string `json:"answer"`
}

type RecordViolationRequest struct {
	Type string `json:"type" binding:"required"`
}

type RegisterRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

type DisqualifyRequest struct {
	Reason string `json:"reason"`
}
