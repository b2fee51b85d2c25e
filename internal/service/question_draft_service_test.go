package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	available bool
	raw       string
	err       error
}

func (f *fakeLLM) Available() bool { return f.available }
func (f *fakeLLM) Close() error    { return nil }
func (f *fakeLLM) DraftQuestions(_ context.Context, _ string, _ int) (string, error) {
	return f.raw, f.err
}

func TestGenerateQuestions(t *testing.T) {
	store := newMemStore()
	event := store.addEvent("E")
	round := store.addRound(model.Round{EventID: event.ID, Name: "R", Duration: 10})
	store.addQuestion(model.Question{RoundID: round.ID, Type: model.QuestionShortAnswer, Text: "existing", Points: 1, Position: 4})

	llm := &fakeLLM{available: true, raw: "```json\n" + `[
		{"text": "Capital of France?", "options": ["Paris", "Rome", "Oslo", "Bern"], "correct_answer": "Paris"},
		{"text": "Broken", "options": ["A", "B"], "correct_answer": "C"},
		{"text": "2+2?", "options": ["3", "4"], "correct_answer": "4"}
	]` + "\n```"}
	svc := NewQuestionDraftService(store, llm)

	out, err := svc.GenerateQuestions(context.Background(), round.ID, dto.GenerateQuestionsRequest{Topic: "trivia", Count: 3, Points: 2})
	require.NoError(t, err)
	require.Len(t, out, 2, "invalid drafts are dropped")
	assert.Equal(t, "Capital of France?", out[0].Text)
	assert.Equal(t, 5, out[0].Position)
	assert.Equal(t, 6, out[1].Position)
	assert.Equal(t, 2, out[1].Points)
	assert.Equal(t, "multiple_choice", out[1].Type)

	stored, err := store.Questions().FindByRoundID(context.Background(), round.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestGenerateQuestions_Errors(t *testing.T) {
	store := newMemStore()
	event := store.addEvent("E")
	round := store.addRound(model.Round{EventID: event.ID, Name: "R", Duration: 10})
	req := dto.GenerateQuestionsRequest{Topic: "x", Count: 1}

	tests := []struct {
		name    string
		llm     *fakeLLM
		roundID uint
		want    error
	}{
		{name: "no api key", llm: &fakeLLM{}, roundID: round.ID, want: ErrAIUnavailable},
		{name: "unknown round", llm: &fakeLLM{available: true}, roundID: 9999, want: ErrRoundNotFound},
		{name: "upstream failure", llm: &fakeLLM{available: true, err: errors.New("quota")}, roundID: round.ID, want: ErrUnavailable},
		{name: "malformed output", llm: &fakeLLM{available: true, raw: "sure! here you go"}, roundID: round.ID, want: ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewQuestionDraftService(store, tt.llm).GenerateQuestions(context.Background(), tt.roundID, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
