package repository

import (
	"context"

	"github.com/lshigami/Symposium/internal/model"
	"gorm.io/gorm"
)

// RoundWithQuestionCount is a listing row for admin screens.
type RoundWithQuestionCount struct {
	model.Round
	QuestionCount int
}

type RoundRepository interface {
	Create(ctx context.Context, round *model.Round) error
	FindByID(ctx context.Context, id uint) (*model.Round, error)
	FindByEventID(ctx context.Context, eventID uint) ([]model.Round, error)
	FindByEventWithQuestionCount(ctx context.Context, eventID uint) ([]RoundWithQuestionCount, error)
	Update(ctx context.Context, round *model.Round) error
	Delete(ctx context.Context, id uint) error
}

type roundRepository struct {
	db *gorm.DB
}

func NewRoundRepository(db *gorm.DB) RoundRepository {
	return &roundRepository{db: db}
}

func (r *roundRepository) Create(ctx context.Context, round *model.Round) error {
	return translate(r.db.WithContext(ctx).Create(round).Error)
}

func (r *roundRepository) FindByID(ctx context.Context, id uint) (*model.Round, error) {
	var round model.Round
	if err := r.db.WithContext(ctx).First(&round, id).Error; err != nil {
		return nil, translate(err)
	}
	return &round, nil
}

func (r *roundRepository) FindByEventID(ctx context.Context, eventID uint) ([]model.Round, error) {
	var rounds []model.Round
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Order("id ASC").Find(&rounds).Error
	return rounds, translate(err)
}

func (r *roundRepository) FindByEventWithQuestionCount(ctx context.Context, eventID uint) ([]RoundWithQuestionCount, error) {
	var results []RoundWithQuestionCount
	err := r.db.WithContext(ctx).Model(&model.Round{}).
		Select("rounds.*, (SELECT COUNT(*) FROM questions WHERE questions.round_id = rounds.id AND questions.deleted_at IS NULL) as question_count").
		Where("rounds.event_id = ?", eventID).
		Order("rounds.id ASC").
		Scan(&results).Error
	return results, translate(err)
}

// Update writes every column, including zero values such as a cleared
// started_at or results_published=false.
func (r *roundRepository) Update(ctx context.Context, round *model.Round) error {
	return translate(r.db.WithContext(ctx).Save(round).Error)
}

func (r *roundRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Round{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
