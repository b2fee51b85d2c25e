package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lshigami/Symposium/config"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// GeminiLLMService produces raw JSON question drafts for a topic.
type GeminiLLMService interface {
	Available() bool
	DraftQuestions(ctx context.Context, topic string, count int) (string, error)
	Close() error
}

type geminiLLMService struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiLLMService returns a service that reports itself unavailable when no
// API key is configured.
func NewGeminiLLMService(cfg *config.Config) (GeminiLLMService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Question generation is disabled.")
		return &geminiLLMService{}, nil
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.GeminiModel)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.7)
	return &geminiLLMService{client: client, model: model}, nil
}

func (s *geminiLLMService) Available() bool {
	return s.model != nil
}

func (s *geminiLLMService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *geminiLLMService) DraftQuestions(ctx context.Context, topic string, count int) (string, error) {
	if s.model == nil {
		return "", ErrAIUnavailable
	}

	prompt := fmt.Sprintf(`You write multiple choice questions for a timed competition round.
Topic: %s
Write exactly %d questions. Each question has 4 short, distinct options and exactly one correct option.

Respond with a JSON array only, no prose. Each element:
{"text": "question text", "options": ["A", "B", "C", "D"], "correct_answer": "the correct option, copied verbatim from options"}
`, topic, count)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Gemini API error during question drafting")
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text content")
	}
	return b.String(), nil
}
