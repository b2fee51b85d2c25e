package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("unavailable")
)

var (
	ErrEventNotFound       = fmt.Errorf("event %w", ErrNotFound)
	ErrRoundNotFound       = fmt.Errorf("round %w", ErrNotFound)
	ErrQuestionNotFound    = fmt.Errorf("question %w", ErrNotFound)
	ErrAttemptNotFound     = fmt.Errorf("attempt %w", ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)

	ErrAlreadyAttempted  = fmt.Errorf("round already attempted: %w", ErrConflict)
	ErrAlreadySubmitted  = fmt.Errorf("attempt already submitted: %w", ErrConflict)
	ErrAlreadyRegistered = fmt.Errorf("already registered for event: %w", ErrConflict)

	ErrNotAttemptOwner = fmt.Errorf("attempt belongs to another user: %w", ErrForbidden)
	ErrNotRegistered   = fmt.Errorf("not registered for the round's event: %w", ErrForbidden)

	ErrAttemptNotInProgress   = fmt.Errorf("attempt is not in progress: %w", ErrInvalidState)
	ErrInvalidRoundTransition = fmt.Errorf("round status transition not allowed: %w", ErrInvalidState)

	ErrInvalidQuestion  = fmt.Errorf("invalid question: %w", ErrValidation)
	ErrInvalidViolation = fmt.Errorf("violation type is required: %w", ErrValidation)
	ErrInvalidRound     = fmt.Errorf("invalid round: %w", ErrValidation)

	ErrAIUnavailable = fmt.Errorf("question generation is not configured: %w", ErrUnavailable)
)

// invalidQuestion wraps ErrInvalidQuestion with the offending rule.
func invalidQuestion(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuestion, fmt.Sprintf(format, args...))
}
