package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/export"
	"github.com/lshigami/Symposium/internal/model"
	"github.com/lshigami/Symposium/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type LeaderboardService interface {
	RoundLeaderboard(ctx context.Context, viewer Viewer, roundID uint) (*dto.LeaderboardResponse, error)
	EventLeaderboard(ctx context.Context, viewer Viewer, eventID uint) (*dto.EventLeaderboardResponse, error)
	// ExportRoundLeaderboard and ExportEventLeaderboard return an xlsx workbook
	// and a file name. They are admin views and skip the gate.
	ExportRoundLeaderboard(ctx context.Context, roundID uint) ([]byte, string, error)
	ExportEventLeaderboard(ctx context.Context, eventID uint) ([]byte, string, error)
}

type leaderboardService struct {
	store     repository.Store
	converter ScoreConverterService
	now       func() time.Time
}

func NewLeaderboardService(store repository.Store, converter ScoreConverterService) LeaderboardService {
	return &leaderboardService{store: store, converter: converter, now: time.Now}
}

func (s *leaderboardService) RoundLeaderboard(ctx context.Context, viewer Viewer, roundID uint) (*dto.LeaderboardResponse, error) {
	round, err := s.store.Rounds().FindByID(ctx, roundID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}

	resp := &dto.LeaderboardResponse{RoundID: roundID, Entries: []dto.LeaderboardEntryResponse{}}
	visible, err := s.roundVisible(ctx, s.store, viewer, *round)
	if err != nil {
		return nil, err
	}
	if !visible {
		return resp, nil
	}

	attempts, err := s.store.Attempts().FindCompletedByRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	resp.Visible = true
	resp.Entries = s.rankAttempts(attempts)
	return resp, nil
}

// roundVisible applies the leaderboard gate for one round: admins always see
// it, participants need published results and, if they have an attempt here,
// their own window to be over.
func (s *leaderboardService) roundVisible(ctx context.Context, store repository.Store, viewer Viewer, round model.Round) (bool, error) {
	if viewer.IsAdmin {
		return true, nil
	}
	if !round.ResultsPublished {
		return false, nil
	}
	own, err := store.Attempts().FindByUserAndRound(ctx, viewer.UserID, round.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load viewer attempt: %w", err)
	}
	return ResultsVisible(round, *own, s.now()), nil
}

// rankAttempts orders completed attempts by score desc, submission time asc
// and attempt id asc, and assigns 1-based positional ranks.
func (s *leaderboardService) rankAttempts(attempts []model.TestAttempt) []dto.LeaderboardEntryResponse {
	sorted := make([]model.TestAttempt, len(attempts))
	copy(sorted, attempts)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		at, bt := submittedAt(a), submittedAt(b)
		if !at.Equal(bt) {
			return at.Before(bt)
		}
		return a.ID < b.ID
	})

	entries := make([]dto.LeaderboardEntryResponse, 0, len(sorted))
	for i, a := range sorted {
		entries = append(entries, dto.LeaderboardEntryResponse{
			Rank:        i + 1,
			UserID:      a.UserID,
			AttemptID:   a.ID,
			TotalScore:  a.TotalScore,
			MaxScore:    a.MaxScore,
			Percentage:  s.percentage(a.TotalScore, a.MaxScore),
			SubmittedAt: submittedAt(a),
		})
	}
	return entries
}

func (s *leaderboardService) EventLeaderboard(ctx context.Context, viewer Viewer, eventID uint) (*dto.EventLeaderboardResponse, error) {
	if _, err := s.store.Events().FindByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("load event: %w", err)
	}
	rounds, err := s.store.Rounds().FindByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}

	resp := &dto.EventLeaderboardResponse{EventID: eventID, Entries: []dto.EventLeaderboardEntryResponse{}}
	if len(rounds) == 0 {
		resp.Visible = true
		return resp, nil
	}

	perRound := make([][]model.TestAttempt, len(rounds))
	visible := make([]bool, len(rounds))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range rounds {
		i, r := i, r
		g.Go(func() error {
			ok, err := s.roundVisible(gctx, s.store, viewer, r)
			if err != nil {
				return err
			}
			visible[i] = ok
			if !ok {
				return nil
			}
			attempts, err := s.store.Attempts().FindCompletedByRound(gctx, r.ID)
			if err != nil {
				return fmt.Errorf("load attempts for round %d: %w", r.ID, err)
			}
			perRound[i] = attempts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Uint("eventID", eventID).Msg("Failed to build event leaderboard")
		return nil, err
	}
	for _, ok := range visible {
		if !ok {
			return resp, nil
		}
	}

	resp.Visible = true
	resp.Entries = s.rankEvent(perRound)
	return resp, nil
}

func (s *leaderboardService) rankEvent(perRound [][]model.TestAttempt) []dto.EventLeaderboardEntryResponse {
	byUser := make(map[uint]*dto.EventLeaderboardEntryResponse)
	for _, attempts := range perRound {
		for _, a := range attempts {
			e, ok := byUser[a.UserID]
			if !ok {
				e = &dto.EventLeaderboardEntryResponse{UserID: a.UserID}
				byUser[a.UserID] = e
			}
			e.TotalScore += a.TotalScore
			e.MaxScore += a.MaxScore
			e.RoundsCompleted++
			if t := submittedAt(a); t.After(e.LastSubmittedAt) {
				e.LastSubmittedAt = t
			}
		}
	}

	entries := make([]dto.EventLeaderboardEntryResponse, 0, len(byUser))
	for _, e := range byUser {
		e.Percentage = s.percentage(e.TotalScore, e.MaxScore)
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if !a.LastSubmittedAt.Equal(b.LastSubmittedAt) {
			return a.LastSubmittedAt.Before(b.LastSubmittedAt)
		}
		return a.UserID < b.UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (s *leaderboardService) ExportRoundLeaderboard(ctx context.Context, roundID uint) ([]byte, string, error) {
	board, err := s.RoundLeaderboard(ctx, Viewer{IsAdmin: true}, roundID)
	if err != nil {
		return nil, "", err
	}
	round, err := s.store.Rounds().FindByID(ctx, roundID)
	if err != nil {
		return nil, "", fmt.Errorf("load round: %w", err)
	}
	data, err := export.RoundLeaderboard(round.Name, board.Entries)
	if err != nil {
		return nil, "", fmt.Errorf("render round leaderboard: %w", err)
	}
	return data, fmt.Sprintf("round-%d-leaderboard.xlsx", roundID), nil
}

func (s *leaderboardService) ExportEventLeaderboard(ctx context.Context, eventID uint) ([]byte, string, error) {
	board, err := s.EventLeaderboard(ctx, Viewer{IsAdmin: true}, eventID)
	if err != nil {
		return nil, "", err
	}
	event, err := s.store.Events().FindByID(ctx, eventID)
	if err != nil {
		return nil, "", fmt.Errorf("load event: %w", err)
	}
	data, err := export.EventLeaderboard(event.Title, board.Entries)
	if err != nil {
		return nil, "", fmt.Errorf("render event leaderboard: %w", err)
	}
	return data, fmt.Sprintf("event-%d-leaderboard.xlsx", eventID), nil
}

func (s *leaderboardService) percentage(total, maxScore int) float64 {
	pct, err := s.converter.ToPercentage(total, maxScore)
	if err != nil {
		log.Warn().Err(err).Int("total", total).Int("max", maxScore).Msg("Could not convert score to percentage")
		return 0
	}
	return pct
}

func submittedAt(a model.TestAttempt) time.Time {
	if a.SubmittedAt != nil {
		return *a.SubmittedAt
	}
	return a.StartedAt
}
