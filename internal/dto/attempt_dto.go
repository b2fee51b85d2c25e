package dto

import "time"

type ViolationLogResponse struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// AttemptResponse is the attempt as a viewer sees it. TotalScore and MaxScore
// are null until results are visible.
type AttemptResponse struct {
	ID                  uint                   `json:"id"`
	RoundID             uint                   `json:"round_id"`
	UserID              uint                   `json:"user_id"`
	Status              string                 `json:"status"`
	StartedAt           time.Time              `json:"started_at"`
	SubmittedAt         *time.Time             `json:"submitted_at,omitempty"`
	CompletedAt         *time.Time             `json:"completed_at,omitempty"`
	SubmitTrigger       string                 `json:"submit_trigger,omitempty"`
	TabSwitchCount      int                    `json:"tab_switch_count"`
	RefreshAttemptCount int                    `json:"refresh_attempt_count"`
	ViolationLogs       []ViolationLogResponse `json:"violation_logs"`
	TotalScore          *int                   `json:"total_score"`
	MaxScore            *int                   `json:"max_score"`
	ResultsVisible      bool                   `json:"results_visible"`
}

type AnswerResponse struct {
	ID            uint      `json:"id"`
	AttemptID     uint      `json:"attempt_id"`
	QuestionID    uint      `json:"question_id"`
	Answer        string    `json:"answer"`
	IsCorrect     *bool     `json:"is_correct,omitempty"`
	PointsAwarded *int      `json:"points_awarded,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type AttemptDetailResponse struct {
	Attempt   AttemptResponse    `json:"attempt"`
	Round     RoundResponse      `json:"round"`
	Event     EventResponse      `json:"event"`
	Questions []QuestionResponse `json:"questions"`
	Answers   []AnswerResponse   `json:"answers"`
}

type ViolationOutcomeResponse struct {
	Attempt       AttemptResponse `json:"attempt"`
	Disqualified  bool            `json:"disqualified"`
	AutoSubmitted bool            `json:"auto_submitted"`
	// WarningsRemaining is omitted when the round does not auto-submit.
	WarningsRemaining *int `json:"warnings_remaining,omitempty"`
}

type LeaderboardEntryResponse struct {
	Rank        int       `json:"rank"`
	UserID      uint      `json:"user_id"`
	AttemptID   uint      `json:"attempt_id"`
	TotalScore  int       `json:"total_score"`
	MaxScore    int       `json:"max_score"`
	Percentage  float64   `json:"percentage"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type LeaderboardResponse struct {
	RoundID uint                       `json:"round_id"`
	Visible bool                       `json:"visible"`
	Entries []LeaderboardEntryResponse `json:"entries"`
}

type EventLeaderboardEntryResponse struct {
	Rank            int       `json:"rank"`
	UserID          uint      `json:"user_id"`
	TotalScore      int       `json:"total_score"`
	MaxScore        int       `json:"max_score"`
	Percentage      float64   `json:"percentage"`
	RoundsCompleted int       `json:"rounds_completed"`
	LastSubmittedAt time.Time `json:"last_submitted_at"`
}

type EventLeaderboardResponse struct {
	EventID uint                            `json:"event_id"`
	Visible bool                            `json:"visible"`
	Entries []EventLeaderboardEntryResponse `json:"entries"`
}
