package service

import (
	"context"
	"testing"

	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/metrics"
	"github.com/lshigami/Symposium/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventFixture() (*memStore, EventService, *recordingMail) {
	store := newMemStore()
	mail := &recordingMail{}
	return store, NewEventService(store, mail, metrics.NewNoop()), mail
}

func TestEventService_CreateAndGet(t *testing.T) {
	store, svc, _ := newEventFixture()
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, 1, dto.CreateEventRequest{Title: "Hackathon", Venue: "Hall B"})
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", created.Title)
	assert.Equal(t, "Hall B", created.Venue)
	assert.Equal(t, uint(1), created.CreatedBy)

	store.addRound(model.Round{EventID: created.ID, Name: "Round 1", Duration: 20})

	got, err := svc.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Rounds, 1)
	assert.Equal(t, "Round 1", got.Rounds[0].Name)

	_, err = svc.GetEvent(ctx, 9999)
	assert.ErrorIs(t, err, ErrEventNotFound)

	list, err := svc.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEventService_Register(t *testing.T) {
	store, svc, mail := newEventFixture()
	ctx := context.Background()
	event := store.addEvent("Hackathon")

	p, err := svc.Register(ctx, event.ID, 7, dto.RegisterRequest{Name: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "registered", p.Status)
	assert.Len(t, p.CredentialCode, 36)

	_, err = svc.Register(ctx, event.ID, 7, dto.RegisterRequest{Name: "Sam", Email: "sam@example.com"})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Register(ctx, 9999, 7, dto.RegisterRequest{Name: "Sam", Email: "sam@example.com"})
	assert.ErrorIs(t, err, ErrEventNotFound)

	sent := mail.sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].HTML, p.CredentialCode)
}

func TestEventService_Disqualify(t *testing.T) {
	store, svc, _ := newEventFixture()
	ctx := context.Background()
	event := store.addEvent("Hackathon")

	registered, err := svc.Register(ctx, event.ID, 7, dto.RegisterRequest{Name: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)

	p, err := svc.DisqualifyParticipant(ctx, event.ID, 7, "phone use")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, p.ID)
	assert.Equal(t, "disqualified", p.Status)
	assert.Equal(t, "phone use", p.DisqualifyReason)
	assert.NotNil(t, p.DisqualifiedAt)

	walkIn, err := svc.DisqualifyParticipant(ctx, event.ID, 8, "no registration")
	require.NoError(t, err)
	assert.Equal(t, "disqualified", walkIn.Status)
	assert.NotEmpty(t, walkIn.CredentialCode)

	all, err := svc.ListParticipants(ctx, event.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.DisqualifyParticipant(ctx, 9999, 7, "x")
	assert.ErrorIs(t, err, ErrEventNotFound)
}
