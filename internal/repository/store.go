package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store groups the repositories so services can run several of them inside
// one transaction.
type Store interface {
	Events() EventRepository
	Rounds() RoundRepository
	Questions() QuestionRepository
	Attempts() TestAttemptRepository
	Answers() AnswerRepository
	Participants() ParticipantRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Events() EventRepository             { return NewEventRepository(s.db) }
func (s *gormStore) Rounds() RoundRepository             { return NewRoundRepository(s.db) }
func (s *gormStore) Questions() QuestionRepository       { return NewQuestionRepository(s.db) }
func (s *gormStore) Attempts() TestAttemptRepository     { return NewTestAttemptRepository(s.db) }
func (s *gormStore) Answers() AnswerRepository           { return NewAnswerRepository(s.db) }
func (s *gormStore) Participants() ParticipantRepository { return NewParticipantRepository(s.db) }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// translate maps gorm errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
