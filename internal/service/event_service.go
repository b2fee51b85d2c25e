package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/metrics"
	"github.com/lshigami/Symposium/internal/model"
	"github.com/lshigami/Symposium/internal/notify"
	"github.com/lshigami/Symposium/internal/repository"
	"github.com/rs/zerolog/log"
)

// MailDispatcher queues mail without waiting for delivery.
type MailDispatcher interface {
	SendAsync(mails ...notify.Mail)
}

type EventService interface {
	CreateEvent(ctx context.Context, createdBy uint, req dto.CreateEventRequest) (*dto.EventResponse, error)
	GetEvent(ctx context.Context, id uint) (*dto.EventResponse, error)
	ListEvents(ctx context.Context) ([]dto.EventResponse, error)
	Register(ctx context.Context, eventID, userID uint, req dto.RegisterRequest) (*dto.ParticipantResponse, error)
	ListParticipants(ctx context.Context, eventID uint) ([]dto.ParticipantResponse, error)
	DisqualifyParticipant(ctx context.Context, eventID, userID uint, reason string) (*dto.ParticipantResponse, error)
}

type eventService struct {
	store   repository.Store
	mail    MailDispatcher
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewEventService(store repository.Store, mail MailDispatcher, m *metrics.Metrics) EventService {
	return &eventService{store: store, mail: mail, metrics: m, now: time.Now}
}

func (s *eventService) CreateEvent(ctx context.Context, createdBy uint, req dto.CreateEventRequest) (*dto.EventResponse, error) {
	event := model.Event{}
	copier.Copy(&event, &req)
	event.CreatedBy = createdBy

	if err := s.store.Events().Create(ctx, &event); err != nil {
		log.Error().Err(err).Msg("Failed to create event")
		return nil, fmt.Errorf("create event: %w", err)
	}
	resp := toEventResponse(event)
	return &resp, nil
}

func (s *eventService) GetEvent(ctx context.Context, id uint) (*dto.EventResponse, error) {
	event, err := s.store.Events().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	rounds, err := s.store.Rounds().FindByEventID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}

	resp := toEventResponse(*event)
	resp.Rounds = make([]dto.RoundResponse, 0, len(rounds))
	for _, r := range rounds {
		resp.Rounds = append(resp.Rounds, toRoundResponse(r))
	}
	return &resp, nil
}

func (s *eventService) ListEvents(ctx context.Context) ([]dto.EventResponse, error) {
	events, err := s.store.Events().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return out, nil
}

func (s *eventService) Register(ctx context.Context, eventID, userID uint, req dto.RegisterRequest) (*dto.ParticipantResponse, error) {
	event, err := s.store.Events().FindByID(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}

	participant := model.Participant{
		EventID:        eventID,
		UserID:         userID,
		Name:           req.Name,
		Email:          req.Email,
		CredentialCode: uuid.NewString(),
		Status:         model.ParticipantRegistered,
	}
	if err := s.store.Participants().Create(ctx, &participant); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		log.Error().Err(err).Uint("eventID", eventID).Uint("userID", userID).Msg("Failed to register participant")
		return nil, fmt.Errorf("register participant: %w", err)
	}

	log.Info().Uint("eventID", eventID).Uint("userID", userID).Msg("Participant registered")
	s.mail.SendAsync(notify.Mail{
		To:      participant.Email,
		ToName:  participant.Name,
		Subject: fmt.Sprintf("Registration confirmed: %s", event.Title),
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>You are registered for <b>%s</b>. Your credential code is <code>%s</code>.</p>",
			participant.Name, event.Title, participant.CredentialCode),
	})
	s.metrics.EmailsDispatched.Inc()

	resp := toParticipantResponse(participant)
	return &resp, nil
}

func (s *eventService) ListParticipants(ctx context.Context, eventID uint) ([]dto.ParticipantResponse, error) {
	if _, err := s.store.Events().FindByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("load event: %w", err)
	}
	participants, err := s.store.Participants().FindByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	out := make([]dto.ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		out = append(out, toParticipantResponse(p))
	}
	return out, nil
}

func (s *eventService) DisqualifyParticipant(ctx context.Context, eventID, userID uint, reason string) (*dto.ParticipantResponse, error) {
	var participant *model.Participant
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Events().FindByID(ctx, eventID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("load event: %w", err)
		}
		var err error
		participant, err = disqualify(ctx, tx, eventID, userID, reason, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Disqualified.Inc()
	log.Warn().Uint("eventID", eventID).Uint("userID", userID).Str("reason", reason).Msg("Participant disqualified")
	resp := toParticipantResponse(*participant)
	return &resp, nil
}

// disqualify marks the participant disqualified, creating the registration if
// the user never registered.
func disqualify(ctx context.Context, tx repository.Store, eventID, userID uint, reason string, now time.Time) (*model.Participant, error) {
	participant, err := tx.Participants().FindByEventAndUser(ctx, eventID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		participant = &model.Participant{
			EventID:          eventID,
			UserID:           userID,
			CredentialCode:   uuid.NewString(),
			Status:           model.ParticipantDisqualified,
			DisqualifiedAt:   &now,
			DisqualifyReason: reason,
		}
		if err := tx.Participants().Create(ctx, participant); err != nil {
			return nil, fmt.Errorf("create disqualified participant: %w", err)
		}
		return participant, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load participant: %w", err)
	}
	if participant.Status == model.ParticipantDisqualified {
		return participant, nil
	}

	participant.Status = model.ParticipantDisqualified
	participant.DisqualifiedAt = &now
	participant.DisqualifyReason = reason
	if err := tx.Participants().Save(ctx, participant); err != nil {
		return nil, fmt.Errorf("save participant: %w", err)
	}
	return participant, nil
}
