package repository

import (
	"context"

	"github.com/lshigami/Symposium/internal/model"
	"gorm.io/gorm"
)

type ParticipantRepository interface {
	Create(ctx context.Context, participant *model.Participant) error
	Save(ctx context.Context, participant *model.Participant) error
	FindByEventAndUser(ctx context.Context, eventID, userID uint) (*model.Participant, error)
	FindByEventID(ctx context.Context, eventID uint) ([]model.Participant, error)
}

type participantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Create(ctx context.Context, participant *model.Participant) error {
	return translate(r.db.WithContext(ctx).Create(participant).Error)
}

func (r *participantRepository) Save(ctx context.Context, participant *model.Participant) error {
	return translate(r.db.WithContext(ctx).Save(participant).Error)
}

func (r *participantRepository) FindByEventAndUser(ctx context.Context, eventID, userID uint) (*model.Participant, error) {
	var p model.Participant
	err := r.db.WithContext(ctx).Where("event_id = ? AND user_id = ?", eventID, userID).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *participantRepository) FindByEventID(ctx context.Context, eventID uint) ([]model.Participant, error) {
	var participants []model.Participant
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Order("id ASC").Find(&participants).Error
	return participants, translate(err)
}
