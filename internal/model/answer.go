package model

import (
	"time"
)

type Answer struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	TestAttemptID uint      `json:"test_attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID    uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	Answer        string    `json:"answer" gorm:"type:text;not null"`
	IsCorrect     bool      `json:"is_correct" gorm:"not null;default:false"`
	PointsAwarded int       `json:"points_awarded" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
