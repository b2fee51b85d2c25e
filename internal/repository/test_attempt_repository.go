package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lshigami/Symposium/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TestAttemptRepository interface {
	Create(ctx context.Context, attempt *model.TestAttempt) error
	Update(ctx context.Context, attempt *model.TestAttempt) error
	FindByID(ctx context.Context, id uint) (*model.TestAttempt, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.TestAttempt, error)
	FindByUserAndRound(ctx context.Context, userID, roundID uint) (*model.TestAttempt, error)
	FindCompletedByRound(ctx context.Context, roundID uint) ([]model.TestAttempt, error)
	FindInProgress(ctx context.Context) ([]model.TestAttempt, error)
	// AppendViolation appends to violation_logs and bumps the matching counter
	// in a single statement. Only in-progress attempts are touched.
	AppendViolation(ctx context.Context, id uint, entry model.ViolationLog) error
	DeleteByRoundID(ctx context.Context, roundID uint) error
}

type testAttemptRepository struct {
	db *gorm.DB
}

func NewTestAttemptRepository(db *gorm.DB) TestAttemptRepository {
	return &testAttemptRepository{db: db}
}

func (r *testAttemptRepository) Create(ctx context.Context, attempt *model.TestAttempt) error {
	return translate(r.db.WithContext(ctx).Omit("Answers", "Round").Create(attempt).Error)
}

func (r *testAttemptRepository) Update(ctx context.Context, attempt *model.TestAttempt) error {
	return translate(r.db.WithContext(ctx).Omit("Answers", "Round").Save(attempt).Error)
}

func (r *testAttemptRepository) FindByID(ctx context.Context, id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	if err := r.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, translate(err)
	}
	return &attempt, nil
}

func (r *testAttemptRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &attempt, nil
}

func (r *testAttemptRepository) FindByUserAndRound(ctx context.Context, userID, roundID uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND round_id = ?", userID, roundID).
		First(&attempt).Error
	if err != nil {
		return nil, translate(err)
	}
	return &attempt, nil
}

func (r *testAttemptRepository) FindCompletedByRound(ctx context.Context, roundID uint) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.db.WithContext(ctx).
		Where("round_id = ? AND status = ?", roundID, model.AttemptCompleted).
		Order("total_score DESC, submitted_at ASC, id ASC").
		Find(&attempts).Error
	return attempts, translate(err)
}

func (r *testAttemptRepository) FindInProgress(ctx context.Context) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.db.WithContext(ctx).
		Preload("Round").
		Where("status = ?", model.AttemptInProgress).
		Order("started_at ASC").
		Find(&attempts).Error
	return attempts, translate(err)
}

func (r *testAttemptRepository) AppendViolation(ctx context.Context, id uint, entry model.ViolationLog) error {
	payload, err := json.Marshal([]model.ViolationLog{entry})
	if err != nil {
		return fmt.Errorf("marshal violation log: %w", err)
	}

	updates := map[string]interface{}{
		"violation_logs": gorm.Expr("COALESCE(violation_logs, '[]'::jsonb) || ?::jsonb", string(payload)),
	}
	switch entry.Type {
	case model.ViolationTabSwitch:
		updates["tab_switch_count"] = gorm.Expr("tab_switch_count + 1")
	case model.ViolationRefresh:
		updates["refresh_attempt_count"] = gorm.Expr("refresh_attempt_count + 1")
	}

	res := r.db.WithContext(ctx).Model(&model.TestAttempt{}).
		Where("id = ? AND status = ?", id, model.AttemptInProgress).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *testAttemptRepository) DeleteByRoundID(ctx context.Context, roundID uint) error {
	db := r.db.WithContext(ctx)
	err := db.Where("test_attempt_id IN (?)", db.Model(&model.TestAttempt{}).Select("id").Where("round_id = ?", roundID)).
		Delete(&model.Answer{}).Error
	if err != nil {
		return translate(err)
	}
	return translate(db.Where("round_id = ?", roundID).Delete(&model.TestAttempt{}).Error)
}
