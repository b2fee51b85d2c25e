package user

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Symposium/config"
	"github.com/lshigami/Symposium/internal/auth"
	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/model"
	"github.com/lshigami/Symposium/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttemptService struct {
	startErr     error
	submitErr    error
	lastUserID   uint
	lastViewer   service.Viewer
	lastAnswer   dto.RecordAnswerRequest
	lastRoundID  uint
	lastEventID  uint
	lastViolType string
}

func (f *fakeAttemptService) StartAttempt(_ context.Context, userID, eventID, roundID uint) (*dto.AttemptResponse, error) {
	f.lastUserID, f.lastEventID, f.lastRoundID = userID, eventID, roundID
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &dto.AttemptResponse{ID: 11, RoundID: roundID, UserID: userID, Status: string(model.AttemptInProgress)}, nil
}

func (f *fakeAttemptService) RecordAnswer(_ context.Context, userID, attemptID uint, req dto.RecordAnswerRequest) (*dto.AnswerResponse, error) {
	f.lastUserID, f.lastAnswer = userID, req
	return &dto.AnswerResponse{ID: 1, AttemptID: attemptID, QuestionID: req.QuestionID, Answer: req.Answer}, nil
}

func (f *fakeAttemptService) RecordViolation(_ context.Context, userID, attemptID uint, violationType string) (*dto.ViolationOutcomeResponse, error) {
	f.lastUserID, f.lastViolType = userID, violationType
	return &dto.ViolationOutcomeResponse{Attempt: dto.AttemptResponse{ID: attemptID, TabSwitchCount: 1}}, nil
}

func (f *fakeAttemptService) SubmitAttempt(_ context.Context, userID, attemptID uint) (*dto.AttemptResponse, error) {
	f.lastUserID = userID
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &dto.AttemptResponse{ID: attemptID, Status: string(model.AttemptCompleted)}, nil
}

func (f *fakeAttemptService) AutoSubmit(_ context.Context, attemptID uint, _ model.SubmitTrigger) (*dto.AttemptResponse, error) {
	return &dto.AttemptResponse{ID: attemptID}, nil
}

func (f *fakeAttemptService) GetAttemptDetails(_ context.Context, viewer service.Viewer, attemptID uint) (*dto.AttemptDetailResponse, error) {
	f.lastViewer = viewer
	return &dto.AttemptDetailResponse{Attempt: dto.AttemptResponse{ID: attemptID}}, nil
}

type fakeLeaderboardService struct {
	lastViewer service.Viewer
}

func (f *fakeLeaderboardService) RoundLeaderboard(_ context.Context, viewer service.Viewer, roundID uint) (*dto.LeaderboardResponse, error) {
	f.lastViewer = viewer
	return &dto.LeaderboardResponse{RoundID: roundID, Entries: []dto.LeaderboardEntryResponse{}}, nil
}

func (f *fakeLeaderboardService) EventLeaderboard(_ context.Context, viewer service.Viewer, eventID uint) (*dto.EventLeaderboardResponse, error) {
	f.lastViewer = viewer
	return &dto.EventLeaderboardResponse{EventID: eventID, Entries: []dto.EventLeaderboardEntryResponse{}}, nil
}

func (f *fakeLeaderboardService) ExportRoundLeaderboard(context.Context, uint) ([]byte, string, error) {
	return nil, "", nil
}

func (f *fakeLeaderboardService) ExportEventLeaderboard(context.Context, uint) ([]byte, string, error) {
	return nil, "", nil
}

type harness struct {
	router   *gin.Engine
	tokens   *auth.TokenService
	attempts *fakeAttemptService
	boards   *fakeLeaderboardService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := &harness{
		router:   gin.New(),
		tokens:   auth.NewTokenService(&config.Config{Auth: config.Auth{JWTSecret: "controller-secret"}}),
		attempts: &fakeAttemptService{},
		boards:   &fakeLeaderboardService{},
	}
	api := h.router.Group("/api/v1", auth.Middleware(h.tokens))
	NewAttemptController(h.attempts, h.boards).RegisterRoutes(api)
	return h
}

func (h *harness) do(t *testing.T, method, path string, p auth.Principal, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if p.UserID != 0 {
		tok, err := h.tokens.Issue(p)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

var participant = auth.Principal{UserID: 3, Role: auth.RoleParticipant}

func TestAttemptController_StartAttempt(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/v1/events/1/rounds/2/start", participant, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.AttemptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint(11), resp.ID)
	assert.Equal(t, uint(3), h.attempts.lastUserID)
	assert.Equal(t, uint(1), h.attempts.lastEventID)
	assert.Equal(t, uint(2), h.attempts.lastRoundID)
}

func TestAttemptController_StartAttemptErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate start", service.ErrAlreadyAttempted, http.StatusBadRequest},
		{"round missing", service.ErrRoundNotFound, http.StatusNotFound},
		{"store failure", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.attempts.startErr = tt.err

			w := h.do(t, http.MethodPost, "/api/v1/events/1/rounds/2/start", participant, nil)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAttemptController_RequiresToken(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/v1/events/1/rounds/2/start", auth.Principal{}, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAttemptController_RecordAnswer(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/v1/attempts/11/answers", participant, dto.RecordAnswerRequest{QuestionID: 4, Answer: "B"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(4), h.attempts.lastAnswer.QuestionID)
	assert.Equal(t, "B", h.attempts.lastAnswer.Answer)

	w = h.do(t, http.MethodPost, "/api/v1/attempts/11/answers", participant, map[string]string{"answer": "B"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttemptController_RecordViolation(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/v1/attempts/11/violations", participant, dto.RecordViolationRequest{Type: model.ViolationTabSwitch})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ViolationTabSwitch, h.attempts.lastViolType)

	w = h.do(t, http.MethodPost, "/api/v1/attempts/11/violations", participant, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttemptController_SubmitTwice(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/api/v1/attempts/11/submit", participant, nil)
	require.Equal(t, http.StatusOK, w.Code)

	h.attempts.submitErr = service.ErrAlreadySubmitted
	w = h.do(t, http.MethodPost, "/api/v1/attempts/11/submit", participant, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAttemptController_ViewerFromToken(t *testing.T) {
	h := newHarness(t)
	admin := auth.Principal{UserID: 1, Role: auth.RoleAdmin}

	w := h.do(t, http.MethodGet, "/api/v1/attempts/11", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.Viewer{UserID: 1, IsAdmin: true}, h.attempts.lastViewer)

	w = h.do(t, http.MethodGet, "/api/v1/rounds/2/leaderboard", participant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.Viewer{UserID: 3}, h.boards.lastViewer)

	w = h.do(t, http.MethodGet, "/api/v1/events/1/leaderboard", participant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var board dto.EventLeaderboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	assert.Equal(t, uint(1), board.EventID)
}
