package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"already attempted is a bad request", service.ErrAlreadyAttempted, http.StatusBadRequest, "already_attempted"},
		{"not found", service.ErrRoundNotFound, http.StatusNotFound, "not_found"},
		{"wrapped not found", fmt.Errorf("load: %w", service.ErrAttemptNotFound), http.StatusNotFound, "not_found"},
		{"conflict", service.ErrAlreadySubmitted, http.StatusConflict, "conflict"},
		{"forbidden", service.ErrNotAttemptOwner, http.StatusForbidden, "forbidden"},
		{"invalid state", service.ErrAttemptNotInProgress, http.StatusUnprocessableEntity, "invalid_state"},
		{"validation", service.ErrInvalidQuestion, http.StatusBadRequest, "validation_failed"},
		{"unavailable", service.ErrAIUnavailable, http.StatusServiceUnavailable, "unavailable"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)

			RespondError(ctx, "test", tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, body.Error, "connection reset")
			}
		})
	}
}

func TestParamID(t *testing.T) {
	r := gin.New()
	r.GET("/rounds/:roundId", func(ctx *gin.Context) {
		id, ok := ParamID(ctx, "roundId")
		if !ok {
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"id": id})
	})

	for path, want := range map[string]int{
		"/rounds/7":   http.StatusOK,
		"/rounds/0":   http.StatusBadRequest,
		"/rounds/abc": http.StatusBadRequest,
		"/rounds/-1":  http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestCurrentUser_Missing(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)

	_, ok := CurrentUser(ctx)

	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
