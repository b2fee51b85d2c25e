package service

import (
	"strings"

	"github.com/lshigami/Symposium/internal/model"
)

// GradeAnswers scores answers against questions and returns the graded copies
// with the total. Answers whose question is gone are left ungraded and skipped.
// Only multiple_choice and true_false are auto-graded, by case-insensitive
// comparison with no trimming.
func GradeAnswers(questions []model.Question, answers []model.Answer) ([]model.Answer, int) {
	byID := make(map[uint]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	graded := make([]model.Answer, 0, len(answers))
	total := 0
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		a.IsCorrect = false
		a.PointsAwarded = 0
		if q.Type.AutoGraded() && q.CorrectAnswer != nil &&
			strings.EqualFold(a.Answer, *q.CorrectAnswer) {
			a.IsCorrect = true
			a.PointsAwarded = q.Points
		}
		total += a.PointsAwarded
		graded = append(graded, a)
	}
	return graded, total
}

// MaxScore is the sum of question points.
func MaxScore(questions []model.Question) int {
	sum := 0
	for _, q := range questions {
		sum += q.Points
	}
	return sum
}
