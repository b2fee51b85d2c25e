package repository

import (
	"context"

	"github.com/lshigami/Symposium/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnswerRepository interface {
	// Upsert inserts the answer or, when (attempt, question) already exists,
	// overwrites only the answer text. Grading columns are left alone.
	Upsert(ctx context.Context, answer *model.Answer) error
	FindByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*model.Answer, error)
	FindByAttemptID(ctx context.Context, attemptID uint) ([]model.Answer, error)
	SaveGrades(ctx context.Context, answers []model.Answer) error
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Upsert(ctx context.Context, answer *model.Answer) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "test_attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answer", "updated_at"}),
	}).Create(answer).Error
	return translate(err)
}

func (r *answerRepository) FindByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*model.Answer, error) {
	var answer model.Answer
	err := r.db.WithContext(ctx).
		Where("test_attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error
	if err != nil {
		return nil, translate(err)
	}
	return &answer, nil
}

func (r *answerRepository) FindByAttemptID(ctx context.Context, attemptID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.db.WithContext(ctx).Where("test_attempt_id = ?", attemptID).Order("id ASC").Find(&answers).Error
	return answers, translate(err)
}

func (r *answerRepository) SaveGrades(ctx context.Context, answers []model.Answer) error {
	for _, a := range answers {
		err := r.db.WithContext(ctx).Model(&model.Answer{}).
			Where("id = ?", a.ID).
			Updates(map[string]interface{}{
				"is_correct":     a.IsCorrect,
				"points_awarded": a.PointsAwarded,
			}).Error
		if err != nil {
			return translate(err)
		}
	}
	return nil
}
