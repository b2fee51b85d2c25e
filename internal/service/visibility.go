package service

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/model"
)

// Viewer is who is asking for attempt data.
type Viewer struct {
	UserID  uint
	IsAdmin bool
}

// ResultsVisible reports whether a participant may see the scores of attempt:
// the round results are published and the participant's own window is over.
func ResultsVisible(round model.Round, attempt model.TestAttempt, now time.Time) bool {
	return round.ResultsPublished && now.After(attempt.WindowEndsAt(round))
}

func visibleTo(viewer Viewer, round model.Round, attempt model.TestAttempt, now time.Time) bool {
	return viewer.IsAdmin || ResultsVisible(round, attempt, now)
}

func toAttemptResponse(a model.TestAttempt, visible bool) dto.AttemptResponse {
	resp := dto.AttemptResponse{
		ID:                  a.ID,
		RoundID:             a.RoundID,
		UserID:              a.UserID,
		Status:              string(a.Status),
		StartedAt:           a.StartedAt,
		SubmittedAt:         a.SubmittedAt,
		CompletedAt:         a.CompletedAt,
		SubmitTrigger:       string(a.SubmitTrigger),
		TabSwitchCount:      a.TabSwitchCount,
		RefreshAttemptCount: a.RefreshAttemptCount,
		ViolationLogs:       make([]dto.ViolationLogResponse, 0, len(a.ViolationLogs)),
		ResultsVisible:      visible,
	}
	for _, v := range a.ViolationLogs {
		resp.ViolationLogs = append(resp.ViolationLogs, dto.ViolationLogResponse{Type: v.Type, Timestamp: v.Timestamp})
	}
	if visible {
		total, maxScore := a.TotalScore, a.MaxScore
		resp.TotalScore = &total
		resp.MaxScore = &maxScore
	}
	return resp
}

func toAnswerResponse(a model.Answer, visible bool) dto.AnswerResponse {
	resp := dto.AnswerResponse{
		ID:         a.ID,
		AttemptID:  a.TestAttemptID,
		QuestionID: a.QuestionID,
		Answer:     a.Answer,
		UpdatedAt:  a.UpdatedAt,
	}
	if visible {
		correct, points := a.IsCorrect, a.PointsAwarded
		resp.IsCorrect = &correct
		resp.PointsAwarded = &points
	}
	return resp
}

func toQuestionResponse(q model.Question, withAnswer bool) dto.QuestionResponse {
	resp := dto.QuestionResponse{
		ID:       q.ID,
		RoundID:  q.RoundID,
		Type:     string(q.Type),
		Text:     q.Text,
		Points:   q.Points,
		Options:  []string(q.Options),
		Position: q.Position,
	}
	if len(q.TestCases) > 0 {
		resp.TestCases = []byte(q.TestCases)
	}
	if withAnswer && q.CorrectAnswer != nil {
		correct := *q.CorrectAnswer
		resp.CorrectAnswer = &correct
	}
	return resp
}

func toRoundResponse(r model.Round) dto.RoundResponse {
	var resp dto.RoundResponse
	copier.Copy(&resp, &r)
	return resp
}

func toEventResponse(e model.Event) dto.EventResponse {
	var resp dto.EventResponse
	copier.Copy(&resp, &e)
	return resp
}

func toParticipantResponse(p model.Participant) dto.ParticipantResponse {
	var resp dto.ParticipantResponse
	copier.Copy(&resp, &p)
	return resp
}
