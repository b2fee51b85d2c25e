package service

import (
	"context"
	"testing"
	"time"

	"github.com/lshigami/Symposium/config"
	"github.com/lshigami/Symposium/internal/metrics"
	"github.com/lshigami/Symposium/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpirySweeper_Sweep(t *testing.T) {
	store := newMemStore()
	event := store.addEvent("E")
	round := store.addRound(model.Round{EventID: event.ID, Name: "R", Duration: 30, Status: model.RoundInProgress})
	m := metrics.NewNoop()
	clk := newClock(t0)

	attempts := NewAttemptService(store, &recordingNotifier{}, m).(*attemptService)
	attempts.now = clk.Now

	cfg := &config.Config{Proctoring: config.Proctoring{ExpirySweep: true, ExpirySweepSpec: "@every 1m", ExpiryGrace: 30 * time.Second}}
	sweeper := NewExpirySweeper(cfg, store, attempts, m)
	sweeper.now = clk.Now

	expired := store.putAttempt(model.TestAttempt{RoundID: round.ID, UserID: 1, Status: model.AttemptInProgress, StartedAt: t0.Add(-31 * time.Minute)})
	inGrace := store.putAttempt(model.TestAttempt{RoundID: round.ID, UserID: 2, Status: model.AttemptInProgress, StartedAt: t0.Add(-30*time.Minute - 10*time.Second)})
	fresh := store.putAttempt(model.TestAttempt{RoundID: round.ID, UserID: 3, Status: model.AttemptInProgress, StartedAt: t0.Add(-5 * time.Minute)})

	n, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := store.attempt(expired.ID)
	assert.Equal(t, model.AttemptCompleted, got.Status)
	assert.Equal(t, model.SubmitExpiry, got.SubmitTrigger)
	assert.Equal(t, model.AttemptInProgress, store.attempt(inGrace.ID).Status)
	assert.Equal(t, model.AttemptInProgress, store.attempt(fresh.ID).Status)

	clk.Advance(time.Minute)
	n, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, model.AttemptCompleted, store.attempt(inGrace.ID).Status)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ExpirySweepRuns))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("expiry")))
}

func TestExpirySweeper_DisabledByDefault(t *testing.T) {
	sweeper := NewExpirySweeper(&config.Config{}, newMemStore(), nil, metrics.NewNoop())
	require.NoError(t, sweeper.Start())
	assert.Empty(t, sweeper.cron.Entries())
	sweeper.Stop()
}

func TestExpirySweeper_BadSpec(t *testing.T) {
	cfg := &config.Config{Proctoring: config.Proctoring{ExpirySweep: true, ExpirySweepSpec: "not a spec"}}
	sweeper := NewExpirySweeper(cfg, newMemStore(), nil, metrics.NewNoop())
	assert.Error(t, sweeper.Start())
}
