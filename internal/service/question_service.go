package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/model"
	"github.com/lshigami/Symposium/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

var defaultTrueFalseOptions = []string{"True", "False"}

type QuestionService interface {
	CreateQuestion(ctx context.Context, roundID uint, req dto.CreateQuestionRequest) (*dto.QuestionResponse, error)
	GetQuestion(ctx context.Context, id uint) (*dto.QuestionResponse, error)
	ListQuestions(ctx context.Context, roundID uint) ([]dto.QuestionResponse, error)
	UpdateQuestion(ctx context.Context, id uint, req dto.CreateQuestionRequest) (*dto.QuestionResponse, error)
	DeleteQuestion(ctx context.Context, id uint) error
}

type questionService struct {
	store repository.Store
}

func NewQuestionService(store repository.Store) QuestionService {
	return &questionService{store: store}
}

func (s *questionService) CreateQuestion(ctx context.Context, roundID uint, req dto.CreateQuestionRequest) (*dto.QuestionResponse, error) {
	if _, err := s.store.Rounds().FindByID(ctx, roundID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("load round: %w", err)
	}

	question := model.Question{RoundID: roundID}
	if err := applyQuestionRequest(&question, req); err != nil {
		return nil, err
	}
	if err := s.store.Questions().Create(ctx, &question); err != nil {
		log.Error().Err(err).Uint("roundID", roundID).Msg("Failed to create question")
		return nil, fmt.Errorf("create question: %w", err)
	}
	resp := toQuestionResponse(question, true)
	return &resp, nil
}

func (s *questionService) GetQuestion(ctx context.Context, id uint) (*dto.QuestionResponse, error) {
	question, err := s.store.Questions().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}
	resp := toQuestionResponse(*question, true)
	return &resp, nil
}

func (s *questionService) ListQuestions(ctx context.Context, roundID uint) ([]dto.QuestionResponse, error) {
	questions, err := s.store.Questions().FindByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]dto.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, toQuestionResponse(q, true))
	}
	return out, nil
}

func (s *questionService) UpdateQuestion(ctx context.Context, id uint, req dto.CreateQuestionRequest) (*dto.QuestionResponse, error) {
	question, err := s.store.Questions().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}
	if err := applyQuestionRequest(question, req); err != nil {
		return nil, err
	}
	if err := s.store.Questions().Update(ctx, question); err != nil {
		log.Error().Err(err).Uint("questionID", id).Msg("Failed to update question")
		return nil, fmt.Errorf("update question: %w", err)
	}
	resp := toQuestionResponse(*question, true)
	return &resp, nil
}

// DeleteQuestion soft-deletes. Answers already given to it are skipped at grading.
func (s *questionService) DeleteQuestion(ctx context.Context, id uint) error {
	if err := s.store.Questions().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

// applyQuestionRequest validates req and copies it onto q.
func applyQuestionRequest(q *model.Question, req dto.CreateQuestionRequest) error {
	qType := model.QuestionType(req.Type)
	options := cleanOptions(req.Options)
	if qType == model.QuestionTrueFalse && len(options) == 0 {
		options = append([]string(nil), defaultTrueFalseOptions...)
	}
	testCases := presentJSON(req.TestCases)
	if err := ValidateQuestion(qType, req.Text, req.Points, req.CorrectAnswer, options, testCases); err != nil {
		return err
	}

	q.Type = qType
	q.Text = strings.TrimSpace(req.Text)
	q.Points = req.Points
	q.CorrectAnswer = req.CorrectAnswer
	q.Position = req.Position
	q.Options = nil
	if qType.AutoGraded() {
		q.Options = datatypes.JSONSlice[string](options)
	}
	q.TestCases = nil
	if qType == model.QuestionCoding && len(testCases) > 0 {
		q.TestCases = datatypes.JSON(testCases)
	}
	return nil
}

// ValidateQuestion checks the question rules shared by manual and generated questions.
func ValidateQuestion(qType model.QuestionType, text string, points int, correct *string, options []string, testCases json.RawMessage) error {
	if !qType.Valid() {
		return invalidQuestion("unknown type %q", qType)
	}
	testCases = presentJSON(testCases)
	if strings.TrimSpace(text) == "" {
		return invalidQuestion("text is required")
	}
	if points <= 0 {
		return invalidQuestion("points must be positive")
	}
	if !qType.AutoGraded() && len(options) > 0 {
		return invalidQuestion("options are only allowed for multiple_choice and true_false")
	}
	if qType != model.QuestionCoding && len(testCases) > 0 {
		return invalidQuestion("test_cases are only allowed for coding questions")
	}
	if len(testCases) > 0 && !json.Valid(testCases) {
		return invalidQuestion("test_cases must be valid JSON")
	}
	if qType.AutoGraded() {
		if len(options) < 2 {
			return invalidQuestion("%s needs at least two options", qType)
		}
		if correct != nil && !containsFold(options, *correct) {
			return invalidQuestion("correct_answer %q is not one of the options", *correct)
		}
	}
	return nil
}

// presentJSON treats an explicit JSON null like an absent field.
func presentJSON(raw json.RawMessage) json.RawMessage {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return raw
}

func cleanOptions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func containsFold(options []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return true
		}
	}
	return false
}
