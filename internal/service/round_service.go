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

const defaultMaxTabSwitchWarnings = 3

type RoundService interface {
	CreateRound(ctx context.Context, eventID uint, req dto.CreateRoundRequest) (*dto.RoundResponse, error)
	GetRound(ctx context.Context, id uint) (*dto.RoundResponse, error)
	ListRounds(ctx context.Context, eventID uint) ([]dto.RoundResponse, error)
	UpdateRound(ctx context.Context, id uint, req dto.UpdateRoundRequest) (*dto.RoundResponse, error)
	DeleteRound(ctx context.Context, id uint) error

	StartRound(ctx context.Context, id uint) (*dto.RoundResponse, error)
	EndRound(ctx context.Context, id uint) (*dto.RoundResponse, error)
	// RestartRound resets the round to not_started and removes its attempts.
	RestartRound(ctx context.Context, id uint) (*dto.RoundResponse, error)
	SetResultsPublished(ctx context.Context, id uint, publish bool) (*dto.RoundResponse, error)

	// AuthorizeStream decides who may follow a round's live notifications:
	// admins, participants registered for its event and anyone holding an
	// attempt on it.
	AuthorizeStream(ctx context.Context, viewer Viewer, roundID uint) error
}

type roundService struct {
	store    repository.Store
	notifier notify.Notifier
	mail     MailDispatcher
	metrics  *metrics.Metrics
	locks    *keyedMutex
	now      func() time.Time
}

func NewRoundService(store repository.Store, notifier notify.Notifier, mail MailDispatcher, m *metrics.Metrics) RoundService {
	return &roundService{
		store:    store,
		notifier: notifier,
		mail:     mail,
		metrics:  m,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

func (s *roundService) CreateRound(ctx context.Context, eventID uint, req dto.CreateRoundRequest) (*dto.RoundResponse, error) {
	if strings.TrimSpace(req.Name) == "" || req.Duration <= 0 {
		return nil, fmt.Errorf("%w: name is required and duration must be positive", ErrInvalidRound)
	}
	if _, err := s.store.Events().FindByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("load event: %w", err)
	}

	round := model.Round{
		EventID:  eventID,
		Name:     req.Name,
		Duration: req.Duration,
		Status:   model.RoundNotStarted,
		ProctoringRules: model.ProctoringRules{
			AutoSubmitOnViolation: req.AutoSubmitOnViolation,
			MaxTabSwitchWarnings:  defaultMaxTabSwitchWarnings,
		},
	}
	if req.MaxTabSwitchWarnings != nil {
		if *req.MaxTabSwitchWarnings < 0 {
			return nil, fmt.Errorf("%w: max_tab_switch_warnings must not be negative", ErrInvalidRound)
		}
		round.MaxTabSwitchWarnings = *req.MaxTabSwitchWarnings
	}

	if err := s.store.Rounds().Create(ctx, &round); err != nil {
		log.Error().Err(err).Uint("eventID", eventID).Msg("Failed to create round")
		return nil, fmt.Errorf("create round: %w", err)
	}
	resp := toRoundResponse(round)
	return &resp, nil
}

func (s *roundService) GetRound(ctx context.Context, id uint) (*dto.RoundResponse, error) {
	round, err := s.findRound(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	resp := toRoundResponse(*round)
	return &resp, nil
}

func (s *roundService) ListRounds(ctx context.Context, eventID uint) ([]dto.RoundResponse, error) {
	if _, err := s.store.Events().FindByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("load event: %w", err)
	}
	rows, err := s.store.Rounds().FindByEventWithQuestionCount(ctx, eventID)
	if err != nil {
		log.Error().Err(err).Uint("eventID", eventID).Msg("Failed to list rounds")
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	out := make([]dto.RoundResponse, 0, len(rows))
	for _, row := range rows {
		resp := toRoundResponse(row.Round)
		resp.QuestionCount = row.QuestionCount
		out = append(out, resp)
	}
	return out, nil
}

func (s *roundService) UpdateRound(ctx context.Context, id uint, req dto.UpdateRoundRequest) (*dto.RoundResponse, error) {
	unlock := s.locks.Lock(roundKey(id))
	defer unlock()

	round, err := s.findRound(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidRound)
		}
		round.Name = *req.Name
	}
	if req.Duration != nil {
		if *req.Duration <= 0 {
			return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidRound)
		}
		round.Duration = *req.Duration
	}
	if req.AutoSubmitOnViolation != nil {
		round.AutoSubmitOnViolation = *req.AutoSubmitOnViolation
	}
	if req.MaxTabSwitchWarnings != nil {
		if *req.MaxTabSwitchWarnings < 0 {
			return nil, fmt.Errorf("%w: max_tab_switch_warnings must not be negative", ErrInvalidRound)
		}
		round.MaxTabSwitchWarnings = *req.MaxTabSwitchWarnings
	}

	if err := s.store.Rounds().Update(ctx, round); err != nil {
		return nil, fmt.Errorf("update round: %w", err)
	}
	resp := toRoundResponse(*round)
	return &resp, nil
}

func (s *roundService) DeleteRound(ctx context.Context, id uint) error {
	unlock := s.locks.Lock(roundKey(id))
	defer unlock()

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := s.findRound(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Attempts().DeleteByRoundID(ctx, id); err != nil {
			return fmt.Errorf("delete attempts: %w", err)
		}
		if err := tx.Questions().DeleteByRoundID(ctx, id); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := tx.Rounds().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete round: %w", err)
		}
		return nil
	})
	if err != nil {
		if !isKnown(err) {
			log.Error().Err(err).Uint("roundID", id).Msg("Failed to delete round")
		}
		return err
	}
	log.Info().Uint("roundID", id).Msg("Round deleted")
	return nil
}

func (s *roundService) StartRound(ctx context.Context, id uint) (*dto.RoundResponse, error) {
	round, err := s.transition(ctx, id, func(r *model.Round, now time.Time) error {
		if r.Status != model.RoundNotStarted {
			return fmt.Errorf("%w: cannot start a %s round", ErrInvalidRoundTransition, r.Status)
		}
		r.Status = model.RoundInProgress
		r.StartedAt = &now
		r.EndedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Broadcast(notify.RoundTopic(round.ID), notify.Message{Type: notify.MessageRoundStarted, Data: toRoundResponse(*round)})
	s.mailParticipants(ctx, round, fmt.Sprintf("%s has started", round.Name),
		fmt.Sprintf("<p><b>%s</b> is now open. You have %d minutes once you begin.</p>", round.Name, round.Duration))
	resp := toRoundResponse(*round)
	return &resp, nil
}

func (s *roundService) EndRound(ctx context.Context, id uint) (*dto.RoundResponse, error) {
	round, err := s.transition(ctx, id, func(r *model.Round, now time.Time) error {
		if r.Status != model.RoundInProgress {
			return fmt.Errorf("%w: cannot end a %s round", ErrInvalidRoundTransition, r.Status)
		}
		r.Status = model.RoundCompleted
		r.EndedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Broadcast(notify.RoundTopic(round.ID), notify.Message{Type: notify.MessageRoundEnded, Data: toRoundResponse(*round)})
	resp := toRoundResponse(*round)
	return &resp, nil
}

func (s *roundService) RestartRound(ctx context.Context, id uint) (*dto.RoundResponse, error) {
	unlock := s.locks.Lock(roundKey(id))
	var round *model.Round
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		round, err = s.findRound(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := tx.Attempts().DeleteByRoundID(ctx, id); err != nil {
			return fmt.Errorf("delete attempts: %w", err)
		}
		round.Status = model.RoundNotStarted
		round.StartedAt = nil
		round.EndedAt = nil
		round.ResultsPublished = false
		return tx.Rounds().Update(ctx, round)
	})
	unlock()
	if err != nil {
		if !isKnown(err) {
			log.Error().Err(err).Uint("roundID", id).Msg("Failed to restart round")
		}
		return nil, err
	}

	log.Info().Uint("roundID", id).Msg("Round restarted, attempts cleared")
	s.notifier.Broadcast(notify.RoundTopic(round.ID), notify.Message{Type: notify.MessageRoundRestarted, Data: toRoundResponse(*round)})
	resp := toRoundResponse(*round)
	return &resp, nil
}

func (s *roundService) SetResultsPublished(ctx context.Context, id uint, publish bool) (*dto.RoundResponse, error) {
	round, err := s.transition(ctx, id, func(r *model.Round, _ time.Time) error {
		r.ResultsPublished = publish
		return nil
	})
	if err != nil {
		return nil, err
	}

	if publish {
		s.notifier.Broadcast(notify.RoundTopic(round.ID), notify.Message{Type: notify.MessageResultsPublished, Data: toRoundResponse(*round)})
		s.mailParticipants(ctx, round, fmt.Sprintf("Results for %s are published", round.Name),
			fmt.Sprintf("<p>Results for <b>%s</b> are available once your own %d minute window has ended.</p>", round.Name, round.Duration))
	}
	resp := toRoundResponse(*round)
	return &resp, nil
}

// transition applies mutate to the round under the per-round lock and saves it.
func (s *roundService) transition(ctx context.Context, id uint, mutate func(r *model.Round, now time.Time) error) (*model.Round, error) {
	unlock := s.locks.Lock(roundKey(id))
	defer unlock()

	round, err := s.findRound(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	from := round.Status
	if err := mutate(round, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.store.Rounds().Update(ctx, round); err != nil {
		log.Error().Err(err).Uint("roundID", id).Msg("Failed to save round")
		return nil, fmt.Errorf("save round: %w", err)
	}
	log.Info().Uint("roundID", id).Str("from", string(from)).Str("to", string(round.Status)).Bool("resultsPublished", round.ResultsPublished).Msg("Round updated")
	return round, nil
}

func (s *roundService) AuthorizeStream(ctx context.Context, viewer Viewer, roundID uint) error {
	round, err := s.findRound(ctx, s.store, roundID)
	if err != nil {
		return err
	}
	if viewer.IsAdmin {
		return nil
	}

	_, err = s.store.Participants().FindByEventAndUser(ctx, round.EventID, viewer.UserID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load participant: %w", err)
	}

	_, err = s.store.Attempts().FindByUserAndRound(ctx, viewer.UserID, roundID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotRegistered
	}
	if err != nil {
		return fmt.Errorf("load attempt: %w", err)
	}
	return nil
}

func (s *roundService) findRound(ctx context.Context, store repository.Store, id uint) (*model.Round, error) {
	round, err := store.Rounds().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}
	return round, nil
}

// mailParticipants queues a mail to every registered participant of the
// round's event. Lookup failures are logged only.
func (s *roundService) mailParticipants(ctx context.Context, round *model.Round, subject, html string) {
	participants, err := s.store.Participants().FindByEventID(ctx, round.EventID)
	if err != nil {
		log.Error().Err(err).Uint("roundID", round.ID).Msg("Could not load participants for notification mail")
		return
	}
	mails := make([]notify.Mail, 0, len(participants))
	for _, p := range participants {
		if p.Status == model.ParticipantDisqualified || p.Email == "" {
			continue
		}
		mails = append(mails, notify.Mail{To: p.Email, ToName: p.Name, Subject: subject, HTML: html})
	}
	if len(mails) == 0 {
		return
	}
	s.mail.SendAsync(mails...)
	s.metrics.EmailsDispatched.Add(float64(len(mails)))
}

func roundKey(id uint) string {
	return fmt.Sprintf("round:%d", id)
}
