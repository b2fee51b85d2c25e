package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lshigami/Symposium/config"
	"github.com/lshigami/Symposium/internal/metrics"
	"github.com/lshigami/Symposium/internal/model"
	"github.com/lshigami/Symposium/internal/repository"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ExpirySweeper force-submits in-progress attempts whose window plus grace
// has passed. It only runs when PROCTOR_EXPIRY_SWEEP is enabled.
type ExpirySweeper struct {
	store    repository.Store
	attempts AttemptService
	metrics  *metrics.Metrics
	enabled  bool
	spec     string
	grace    time.Duration
	cron     *cron.Cron
	now      func() time.Time
}

func NewExpirySweeper(cfg *config.Config, store repository.Store, attempts AttemptService, m *metrics.Metrics) *ExpirySweeper {
	return &ExpirySweeper{
		store:    store,
		attempts: attempts,
		metrics:  m,
		enabled:  cfg.Proctoring.ExpirySweep,
		spec:     cfg.Proctoring.ExpirySweepSpec,
		grace:    cfg.Proctoring.ExpiryGrace,
		cron:     cron.New(),
		now:      time.Now,
	}
}

func (s *ExpirySweeper) Start() error {
	if !s.enabled {
		log.Info().Msg("Attempt expiry sweep disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("Attempt expiry sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule expiry sweep %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.Info().Str("spec", s.spec).Dur("grace", s.grace).Msg("Attempt expiry sweep scheduled")
	return nil
}

func (s *ExpirySweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep submits every expired in-progress attempt and returns how many it submitted.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	attempts, err := s.store.Attempts().FindInProgress(ctx)
	if err != nil {
		return 0, fmt.Errorf("load in-progress attempts: %w", err)
	}

	now := s.now()
	rounds := make(map[uint]*model.Round)
	submitted := 0
	for _, a := range attempts {
		round := a.Round
		if round == nil {
			if round = rounds[a.RoundID]; round == nil {
				round, err = s.store.Rounds().FindByID(ctx, a.RoundID)
				if err != nil {
					log.Warn().Err(err).Uint("attemptID", a.ID).Msg("Expiry sweep: round lookup failed")
					continue
				}
			}
		}
		rounds[a.RoundID] = round

		if !now.After(a.WindowEndsAt(*round).Add(s.grace)) {
			continue
		}
		_, err := s.attempts.AutoSubmit(ctx, a.ID, model.SubmitExpiry)
		switch {
		case err == nil:
			submitted++
		case errors.Is(err, ErrAlreadySubmitted):
			// submitted by the participant while we were sweeping
		default:
			log.Error().Err(err).Uint("attemptID", a.ID).Msg("Expiry sweep: auto submit failed")
		}
	}

	s.metrics.ExpirySweepRuns.Inc()
	if submitted > 0 {
		log.Info().Int("submitted", submitted).Msg("Expired attempts submitted")
	}
	return submitted, nil
}
