package service

import (
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

const defaultDraftPoints = 1

type QuestionDraftService interface {
	GenerateQuestions(ctx context.Context, roundID uint, req dto.GenerateQuestionsRequest) ([]dto.QuestionResponse, error)
}

type questionDraftService struct {
	store repository.Store
	llm   GeminiLLMService
}

func NewQuestionDraftService(store repository.Store, llm GeminiLLMService) QuestionDraftService {
	return &questionDraftService{store: store, llm: llm}
}

type questionDraft struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// GenerateQuestions asks the model for drafts and stores the ones that pass
// validation, appended after the round's existing questions.
func (s *questionDraftService) GenerateQuestions(ctx context.Context, roundID uint, req dto.GenerateQuestionsRequest) ([]dto.QuestionResponse, error) {
	if !s.llm.Available() {
		return nil, ErrAIUnavailable
	}
	if _, err := s.store.Rounds().FindByID(ctx, roundID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("load round: %w", err)
	}

	raw, err := s.llm.DraftQuestions(ctx, req.Topic, req.Count)
	if err != nil {
		if errors.Is(err, ErrAIUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	drafts, err := parseDrafts(raw)
	if err != nil {
		log.Warn().Err(err).Str("raw", raw).Msg("Could not parse question drafts")
		return nil, fmt.Errorf("%w: model returned malformed drafts", ErrUnavailable)
	}

	points := req.Points
	if points <= 0 {
		points = defaultDraftPoints
	}

	existing, err := s.store.Questions().FindByRoundID(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	position := 0
	for _, q := range existing {
		if q.Position > position {
			position = q.Position
		}
	}

	out := make([]dto.QuestionResponse, 0, len(drafts))
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		for i, d := range drafts {
			if len(out) == req.Count {
				break
			}
			options := cleanOptions(d.Options)
			correct := strings.TrimSpace(d.CorrectAnswer)
			if err := ValidateQuestion(model.QuestionMultipleChoice, d.Text, points, &correct, options, nil); err != nil {
				log.Warn().Err(err).Int("draft", i).Msg("Dropping invalid question draft")
				continue
			}
			position++
			q := model.Question{
				RoundID:       roundID,
				Type:          model.QuestionMultipleChoice,
				Text:          strings.TrimSpace(d.Text),
				Points:        points,
				CorrectAnswer: &correct,
				Options:       datatypes.JSONSlice[string](options),
				Position:      position,
			}
			if err := tx.Questions().Create(ctx, &q); err != nil {
				return fmt.Errorf("create drafted question: %w", err)
			}
			out = append(out, toQuestionResponse(q, true))
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Uint("roundID", roundID).Msg("Failed to store drafted questions")
		return nil, err
	}

	log.Info().Uint("roundID", roundID).Int("requested", req.Count).Int("stored", len(out)).Msg("Drafted questions stored")
	return out, nil
}

// parseDrafts accepts a bare JSON array, optionally wrapped in a markdown fence.
func parseDrafts(raw string) ([]questionDraft, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var drafts []questionDraft
	if err := json.Unmarshal([]byte(raw), &drafts); err != nil {
		return nil, fmt.Errorf("decode drafts: %w", err)
	}
	return drafts, nil
}
