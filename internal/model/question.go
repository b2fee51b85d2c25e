package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionCoding         QuestionType = "coding"
	QuestionCustom         QuestionType = "custom"
)

// AutoGraded reports whether answers to this type are graded at submission.
func (t QuestionType) AutoGraded() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionShortAnswer, QuestionCoding, QuestionCustom:
		return true
	}
	return false
}

type Question struct {
	ID            uint                        `gorm:"primarykey" json:"id"`
	RoundID       uint                        `json:"round_id" gorm:"not null;index"`
	Type          QuestionType                `json:"type" gorm:"type:varchar(32);not null"`
	Text          string                      `json:"text" gorm:"type:text;not null"`
	Points        int                         `json:"points" gorm:"not null"`
	CorrectAnswer *string                     `json:"correct_answer,omitempty" gorm:"type:text"`
	Options       datatypes.JSONSlice[string] `json:"options,omitempty"`
	TestCases     datatypes.JSON              `json:"test_cases,omitempty"`
	Position      int                         `json:"position" gorm:"not null;default:0"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
	DeletedAt     gorm.DeletedAt              `gorm:"index" json:"-"`
}
