package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/metrics"
	"github.com/lshigami/Symposium/internal/model"
	"github.com/lshigami/Symposium/internal/notify"
	"github.com/lshigami/Symposium/internal/repository"
	"github.com/rs/zerolog/log"
)

// AttemptService runs the attempt state machine: start, answers, violations,
// submission and the gated attempt view.
type AttemptService interface {
	StartAttempt(ctx context.Context, userID, eventID, roundID uint) (*dto.AttemptResponse, error)
	RecordAnswer(ctx context.Context, userID, attemptID uint, req dto.RecordAnswerRequest) (*dto.AnswerResponse, error)
	RecordViolation(ctx context.Context, userID, attemptID uint, violationType string) (*dto.ViolationOutcomeResponse, error)
	SubmitAttempt(ctx context.Context, userID, attemptID uint) (*dto.AttemptResponse, error)
	// AutoSubmit force-submits without an ownership check.
	AutoSubmit(ctx context.Context, attemptID uint, trigger model.SubmitTrigger) (*dto.AttemptResponse, error)
	GetAttemptDetails(ctx context.Context, viewer Viewer, attemptID uint) (*dto.AttemptDetailResponse, error)
}

type attemptService struct {
	store    repository.Store
	notifier notify.Notifier
	metrics  *metrics.Metrics
	locks    *keyedMutex
	now      func() time.Time
}

func NewAttemptService(store repository.Store, notifier notify.Notifier, m *metrics.Metrics) AttemptService {
	return &attemptService{
		store:    store,
		notifier: notifier,
		metrics:  m,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

func attemptKey(attemptID uint) string {
	return fmt.Sprintf("attempt:%d", attemptID)
}

func (s *attemptService) StartAttempt(ctx context.Context, userID, eventID, roundID uint) (*dto.AttemptResponse, error) {
	unlock := s.locks.Lock(fmt.Sprintf("start:%d:%d", userID, roundID))
	defer unlock()

	var attempt model.TestAttempt
	var round *model.Round
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		round, err = tx.Rounds().FindByID(ctx, roundID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && round.EventID != eventID) {
			return ErrRoundNotFound
		}
		if err != nil {
			return fmt.Errorf("load round: %w", err)
		}

		_, err = tx.Attempts().FindByUserAndRound(ctx, userID, roundID)
		if err == nil {
			return ErrAlreadyAttempted
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("check existing attempt: %w", err)
		}

		questions, err := tx.Questions().FindByRoundID(ctx, roundID)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}

		attempt = model.TestAttempt{
			RoundID:       roundID,
			UserID:        userID,
			Status:        model.AttemptInProgress,
			StartedAt:     s.now().UTC(),
			ViolationLogs: []model.ViolationLog{},
			MaxScore:      MaxScore(questions),
		}
		if err := tx.Attempts().Create(ctx, &attempt); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyAttempted
			}
			return fmt.Errorf("create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		if !isKnown(err) {
			log.Error().Err(err).Uint("userID", userID).Uint("roundID", roundID).Msg("StartAttempt failed")
		}
		return nil, err
	}

	s.metrics.AttemptsStarted.Inc()
	log.Info().Uint("attemptID", attempt.ID).Uint("userID", userID).Uint("roundID", roundID).Int("maxScore", attempt.MaxScore).Msg("Attempt started")
	resp := toAttemptResponse(attempt, ResultsVisible(*round, attempt, s.now()))
	return &resp, nil
}

// loadOwnedInProgress locks the attempt row and checks ownership and status.
func loadOwnedInProgress(ctx context.Context, tx repository.Store, userID, attemptID uint) (*model.TestAttempt, error) {
	attempt, err := tx.Attempts().FindByIDForUpdate(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, ErrNotAttemptOwner
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, ErrAttemptNotInProgress
	}
	return attempt, nil
}

func (s *attemptService) RecordAnswer(ctx context.Context, userID, attemptID uint, req dto.RecordAnswerRequest) (*dto.AnswerResponse, error) {
	unlock := s.locks.Lock(attemptKey(attemptID))
	defer unlock()

	var saved *model.Answer
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		attempt, err := loadOwnedInProgress(ctx, tx, userID, attemptID)
		if err != nil {
			return err
		}

		question, err := tx.Questions().FindByID(ctx, req.QuestionID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && question.RoundID != attempt.RoundID) {
			return ErrQuestionNotFound
		}
		if err != nil {
			return fmt.Errorf("load question: %w", err)
		}

		answer := model.Answer{
			TestAttemptID: attempt.ID,
			QuestionID:    question.ID,
			Answer:        req.Answer,
		}
		if err := tx.Answers().Upsert(ctx, &answer); err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}
		saved, err = tx.Answers().FindByAttemptAndQuestion(ctx, attempt.ID, question.ID)
		if err != nil {
			return fmt.Errorf("reload answer: %w", err)
		}
		return nil
	})
	if err != nil {
		if !isKnown(err) {
			log.Error().Err(err).Uint("attemptID", attemptID).Uint("questionID", req.QuestionID).Msg("RecordAnswer failed")
		}
		return nil, err
	}

	s.metrics.AnswersRecorded.Inc()
	resp := toAnswerResponse(*saved, false)
	return &resp, nil
}

func (s *attemptService) RecordViolation(ctx context.Context, userID, attemptID uint, violationType string) (*dto.ViolationOutcomeResponse, error) {
	violationType = strings.TrimSpace(violationType)
	if violationType == "" {
		return nil, ErrInvalidViolation
	}

	// Notifications go out after the attempt lock is released.
	unlock := s.locks.Lock(attemptKey(attemptID))
	var (
		attempt       *model.TestAttempt
		round         *model.Round
		disqualified  bool
		autoSubmitted bool
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := loadOwnedInProgress(ctx, tx, userID, attemptID); err != nil {
			return err
		}

		now := s.now().UTC()
		err := tx.Attempts().AppendViolation(ctx, attemptID, model.ViolationLog{Type: violationType, Timestamp: now})
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAttemptNotInProgress
		}
		if err != nil {
			return fmt.Errorf("append violation: %w", err)
		}

		attempt, err = tx.Attempts().FindByID(ctx, attemptID)
		if err != nil {
			return fmt.Errorf("reload attempt: %w", err)
		}
		round, err = tx.Rounds().FindByID(ctx, attempt.RoundID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoundNotFound
		}
		if err != nil {
			return fmt.Errorf("load round: %w", err)
		}

		if !thresholdExceeded(*round, *attempt, violationType) {
			return nil
		}
		if _, err := disqualify(ctx, tx, round.EventID, userID, thresholdReason(*round), now); err != nil {
			return err
		}
		disqualified = true
		if err := s.submitLocked(ctx, tx, attempt, model.SubmitViolation); err != nil {
			return err
		}
		autoSubmitted = true
		return nil
	})
	unlock()
	if err != nil {
		if !isKnown(err) {
			log.Error().Err(err).Uint("attemptID", attemptID).Str("type", violationType).Msg("RecordViolation failed")
		}
		return nil, err
	}

	s.metrics.Violations.WithLabelValues(violationType).Inc()
	log.Info().Uint("attemptID", attemptID).Str("type", violationType).Int("tabSwitches", attempt.TabSwitchCount).Msg("Violation recorded")
	if disqualified {
		s.metrics.Disqualified.Inc()
		s.metrics.Submissions.WithLabelValues(string(model.SubmitViolation)).Inc()
		log.Warn().Uint("attemptID", attemptID).Uint("userID", userID).Uint("roundID", round.ID).Msg("Violation threshold exceeded, participant disqualified and attempt submitted")
		s.notifier.Broadcast(notify.RoundTopic(round.ID), notify.Message{
			Type: notify.MessageDisqualified,
			Data: map[string]uint{"attempt_id": attemptID, "user_id": userID},
		})
	}

	out := &dto.ViolationOutcomeResponse{
		Attempt:       toAttemptResponse(*attempt, ResultsVisible(*round, *attempt, s.now())),
		Disqualified:  disqualified,
		AutoSubmitted: autoSubmitted,
	}
	if round.AutoSubmitOnViolation {
		remaining := round.MaxTabSwitchWarnings - attempt.TabSwitchCount
		if remaining < 0 {
			remaining = 0
		}
		out.WarningsRemaining = &remaining
	}
	return out, nil
}

// thresholdExceeded applies the proctoring rule: a tab switch past the
// allowed warnings ends the attempt when the round auto-submits.
func thresholdExceeded(round model.Round, attempt model.TestAttempt, violationType string) bool {
	return violationType == model.ViolationTabSwitch &&
		round.AutoSubmitOnViolation &&
		attempt.TabSwitchCount > round.MaxTabSwitchWarnings
}

func thresholdReason(round model.Round) string {
	return fmt.Sprintf("exceeded %d tab switch warnings in round %q", round.MaxTabSwitchWarnings, round.Name)
}

func (s *attemptService) SubmitAttempt(ctx context.Context, userID, attemptID uint) (*dto.AttemptResponse, error) {
	return s.submit(ctx, &userID, attemptID, model.SubmitManual)
}

func (s *attemptService) AutoSubmit(ctx context.Context, attemptID uint, trigger model.SubmitTrigger) (*dto.AttemptResponse, error) {
	return s.submit(ctx, nil, attemptID, trigger)
}

// submit grades and completes the attempt. A nil owner skips the ownership check.
func (s *attemptService) submit(ctx context.Context, owner *uint, attemptID uint, trigger model.SubmitTrigger) (*dto.AttemptResponse, error) {
	unlock := s.locks.Lock(attemptKey(attemptID))
	var attempt *model.TestAttempt
	var round *model.Round
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		attempt, err = tx.Attempts().FindByIDForUpdate(ctx, attemptID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAttemptNotFound
		}
		if err != nil {
			return fmt.Errorf("load attempt: %w", err)
		}
		if owner != nil && attempt.UserID != *owner {
			return ErrNotAttemptOwner
		}
		if attempt.Status != model.AttemptInProgress {
			return ErrAlreadySubmitted
		}
		round, err = tx.Rounds().FindByID(ctx, attempt.RoundID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoundNotFound
		}
		if err != nil {
			return fmt.Errorf("load round: %w", err)
		}
		return s.submitLocked(ctx, tx, attempt, trigger)
	})
	unlock()
	if err != nil {
		if !isKnown(err) {
			log.Error().Err(err).Uint("attemptID", attemptID).Msg("SubmitAttempt failed")
		}
		return nil, err
	}

	s.metrics.Submissions.WithLabelValues(string(trigger)).Inc()
	log.Info().Uint("attemptID", attemptID).Str("trigger", string(trigger)).Int("totalScore", attempt.TotalScore).Msg("Attempt submitted")
	s.notifier.Broadcast(notify.RoundTopic(round.ID), notify.Message{
		Type: notify.MessageAttemptSubmitted,
		Data: map[string]interface{}{"attempt_id": attemptID, "user_id": attempt.UserID, "trigger": trigger},
	})

	viewer := Viewer{UserID: attempt.UserID}
	resp := toAttemptResponse(*attempt, visibleTo(viewer, *round, *attempt, s.now()))
	return &resp, nil
}

// submitLocked grades the stored answers and completes the attempt. The
// caller holds the attempt lock and row lock.
func (s *attemptService) submitLocked(ctx context.Context, tx repository.Store, attempt *model.TestAttempt, trigger model.SubmitTrigger) error {
	questions, err := tx.Questions().FindByRoundID(ctx, attempt.RoundID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	answers, err := tx.Answers().FindByAttemptID(ctx, attempt.ID)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}

	graded, total := GradeAnswers(questions, answers)
	if skipped := len(answers) - len(graded); skipped > 0 {
		log.Warn().Uint("attemptID", attempt.ID).Int("skipped", skipped).Msg("Answers reference missing questions, left ungraded")
	}
	if err := tx.Answers().SaveGrades(ctx, graded); err != nil {
		return fmt.Errorf("save grades: %w", err)
	}

	now := s.now().UTC()
	attempt.Status = model.AttemptCompleted
	attempt.SubmittedAt = &now
	attempt.CompletedAt = &now
	attempt.TotalScore = total
	attempt.SubmitTrigger = trigger
	if err := tx.Attempts().Update(ctx, attempt); err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	return nil
}

func (s *attemptService) GetAttemptDetails(ctx context.Context, viewer Viewer, attemptID uint) (*dto.AttemptDetailResponse, error) {
	attempt, err := s.store.Attempts().FindByID(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if !viewer.IsAdmin && attempt.UserID != viewer.UserID {
		return nil, ErrNotAttemptOwner
	}

	round, err := s.store.Rounds().FindByID(ctx, attempt.RoundID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}
	event, err := s.store.Events().FindByID(ctx, round.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	questions, err := s.store.Questions().FindByRoundID(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	answers, err := s.store.Answers().FindByAttemptID(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	visible := visibleTo(viewer, *round, *attempt, s.now())
	detail := &dto.AttemptDetailResponse{
		Attempt:   toAttemptResponse(*attempt, visible),
		Round:     toRoundResponse(*round),
		Event:     toEventResponse(*event),
		Questions: make([]dto.QuestionResponse, 0, len(questions)),
		Answers:   make([]dto.AnswerResponse, 0, len(answers)),
	}
	for _, q := range questions {
		detail.Questions = append(detail.Questions, toQuestionResponse(q, visible))
	}
	for _, a := range answers {
		detail.Answers = append(detail.Answers, toAnswerResponse(a, visible))
	}
	return detail, nil
}

// isKnown reports whether err is one of this package's error kinds.
func isKnown(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrForbidden, ErrInvalidState, ErrValidation, ErrUnavailable} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
