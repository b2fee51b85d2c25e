package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/lshigami/Symposium/database"
	"github.com/lshigami/Symposium/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// These tests need a scratch postgres database, e.g.
//
//	DATABASE_TEST_DSN="host=localhost user=postgres password=postgres dbname=symposium_test sslmode=disable" go test ./internal/repository/...
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_TEST_DSN")
	if dsn == "" {
		t.Skip("DATABASE_TEST_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type seed struct {
	store Store
	event model.Event
}

// newSeed creates a throwaway event and removes everything hanging off it
// when the test ends.
func newSeed(t *testing.T, db *gorm.DB) *seed {
	t.Helper()
	s := &seed{store: NewStore(db), event: model.Event{Title: "integration " + t.Name()}}
	require.NoError(t, s.store.Events().Create(context.Background(), &s.event))

	t.Cleanup(func() {
		rounds := db.Model(&model.Round{}).Select("id").Where("event_id = ?", s.event.ID)
		attempts := db.Model(&model.TestAttempt{}).Select("id").Where("round_id IN (?)", rounds)
		db.Where("test_attempt_id IN (?)", attempts).Delete(&model.Answer{})
		db.Where("round_id IN (?)", rounds).Delete(&model.TestAttempt{})
		db.Unscoped().Where("round_id IN (?)", rounds).Delete(&model.Question{})
		db.Where("event_id = ?", s.event.ID).Delete(&model.Participant{})
		db.Where("event_id = ?", s.event.ID).Delete(&model.Round{})
		db.Unscoped().Delete(&model.Event{}, s.event.ID)
	})
	return s
}

func (s *seed) round(t *testing.T) model.Round {
	t.Helper()
	r := model.Round{EventID: s.event.ID, Name: "Round", Duration: 30, Status: model.RoundInProgress}
	require.NoError(t, s.store.Rounds().Create(context.Background(), &r))
	return r
}

func (s *seed) question(t *testing.T, roundID uint) model.Question {
	t.Helper()
	answer := "A"
	q := model.Question{RoundID: roundID, Type: model.QuestionMultipleChoice, Text: "Pick A", Points: 5,
		CorrectAnswer: &answer, Options: []string{"A", "B"}}
	require.NoError(t, s.store.Questions().Create(context.Background(), &q))
	return q
}

func (s *seed) attempt(t *testing.T, roundID, userID uint) model.TestAttempt {
	t.Helper()
	a := model.TestAttempt{RoundID: roundID, UserID: userID, Status: model.AttemptInProgress,
		StartedAt: time.Now().UTC(), ViolationLogs: []model.ViolationLog{}}
	require.NoError(t, s.store.Attempts().Create(context.Background(), &a))
	return a
}

func TestIntegration_AppendViolationConcurrent(t *testing.T) {
	db := openTestDB(t)
	s := newSeed(t, db)
	ctx := context.Background()
	attempt := s.attempt(t, s.round(t).ID, 1)

	const n = 20
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		typ := model.ViolationTabSwitch
		if i%2 == 1 {
			typ = model.ViolationRefresh
		}
		g.Go(func() error {
			return s.store.Attempts().AppendViolation(gctx, attempt.ID, model.ViolationLog{Type: typ, Timestamp: time.Now().UTC()})
		})
	}
	require.NoError(t, g.Wait())

	got, err := s.store.Attempts().FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Len(t, got.ViolationLogs, n, "no appended entry is lost")
	assert.Equal(t, n/2, got.TabSwitchCount)
	assert.Equal(t, n/2, got.RefreshAttemptCount)

	got.Status = model.AttemptCompleted
	require.NoError(t, s.store.Attempts().Update(ctx, got))
	err = s.store.Attempts().AppendViolation(ctx, attempt.ID, model.ViolationLog{Type: model.ViolationTabSwitch, Timestamp: time.Now().UTC()})
	assert.ErrorIs(t, err, ErrNotFound, "completed attempts are not touched")
}

func TestIntegration_UpsertKeepsGrades(t *testing.T) {
	db := openTestDB(t)
	s := newSeed(t, db)
	ctx := context.Background()
	round := s.round(t)
	q := s.question(t, round.ID)
	attempt := s.attempt(t, round.ID, 1)

	first := model.Answer{TestAttemptID: attempt.ID, QuestionID: q.ID, Answer: "A"}
	require.NoError(t, s.store.Answers().Upsert(ctx, &first))
	first.IsCorrect, first.PointsAwarded = true, 5
	require.NoError(t, s.store.Answers().SaveGrades(ctx, []model.Answer{first}))

	require.NoError(t, s.store.Answers().Upsert(ctx, &model.Answer{TestAttemptID: attempt.ID, QuestionID: q.ID, Answer: "B"}))

	answers, err := s.store.Answers().FindByAttemptID(ctx, attempt.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1, "one row per attempt and question")
	assert.Equal(t, first.ID, answers[0].ID)
	assert.Equal(t, "B", answers[0].Answer)
	assert.True(t, answers[0].IsCorrect, "grading columns survive an answer overwrite")
	assert.Equal(t, 5, answers[0].PointsAwarded)
}

func TestIntegration_DeleteByRoundIDIsScoped(t *testing.T) {
	db := openTestDB(t)
	s := newSeed(t, db)
	ctx := context.Background()

	restarted, kept := s.round(t), s.round(t)
	var keptAttempt model.TestAttempt
	for _, r := range []model.Round{restarted, kept} {
		q := s.question(t, r.ID)
		for _, user := range []uint{1, 2} {
			a := s.attempt(t, r.ID, user)
			require.NoError(t, s.store.Answers().Upsert(ctx, &model.Answer{TestAttemptID: a.ID, QuestionID: q.ID, Answer: "A"}))
			if r.ID == kept.ID && user == 1 {
				keptAttempt = a
			}
		}
	}
	gone, err := s.store.Attempts().FindByUserAndRound(ctx, 1, restarted.ID)
	require.NoError(t, err)

	require.NoError(t, s.store.Attempts().DeleteByRoundID(ctx, restarted.ID))

	_, err = s.store.Attempts().FindByUserAndRound(ctx, 1, restarted.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	orphans, err := s.store.Answers().FindByAttemptID(ctx, gone.ID)
	require.NoError(t, err)
	assert.Empty(t, orphans, "answers go with their attempt")

	var remaining int64
	require.NoError(t, db.Model(&model.TestAttempt{}).Where("round_id = ?", kept.ID).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
	answers, err := s.store.Answers().FindByAttemptID(ctx, keptAttempt.ID)
	require.NoError(t, err)
	assert.Len(t, answers, 1)
}

func TestIntegration_FindByIDForUpdateSerializes(t *testing.T) {
	db := openTestDB(t)
	s := newSeed(t, db)
	ctx := context.Background()
	attempt := s.attempt(t, s.round(t).ID, 1)

	locked := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- s.store.Transaction(ctx, func(tx Store) error {
			a, err := tx.Attempts().FindByIDForUpdate(ctx, attempt.ID)
			if err != nil {
				close(locked)
				return err
			}
			close(locked)
			<-release
			a.TotalScore = 7
			return tx.Attempts().Update(ctx, a)
		})
	}()
	<-locked

	second := make(chan int, 1)
	go func() {
		_ = s.store.Transaction(ctx, func(tx Store) error {
			a, err := tx.Attempts().FindByIDForUpdate(ctx, attempt.ID)
			if err != nil {
				second <- -1
				return err
			}
			second <- a.TotalScore
			return nil
		})
	}()

	select {
	case <-second:
		t.Fatal("second transaction read a row the first still holds")
	case <-time.After(200 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-first)

	select {
	case score := <-second:
		assert.Equal(t, 7, score, "the waiter sees the committed update")
	case <-time.After(5 * time.Second):
		t.Fatal("second transaction never acquired the row")
	}
}

func TestIntegration_TransactionRollsBack(t *testing.T) {
	db := openTestDB(t)
	s := newSeed(t, db)
	ctx := context.Background()
	round := s.round(t)
	boom := errors.New("boom")

	err := s.store.Transaction(ctx, func(tx Store) error {
		a := model.TestAttempt{RoundID: round.ID, UserID: 1, Status: model.AttemptInProgress,
			StartedAt: time.Now().UTC(), ViolationLogs: []model.ViolationLog{}}
		if err := tx.Attempts().Create(ctx, &a); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.store.Attempts().FindByUserAndRound(ctx, 1, round.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	s.attempt(t, round.ID, 1)
	err = s.store.Attempts().Create(ctx, &model.TestAttempt{RoundID: round.ID, UserID: 1, Status: model.AttemptInProgress,
		StartedAt: time.Now().UTC(), ViolationLogs: []model.ViolationLog{}})
	assert.ErrorIs(t, err, ErrDuplicate)
}
