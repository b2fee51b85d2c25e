package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Symposium/internal/auth"
	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/service"
	"github.com/rs/zerolog/log"
)

// errorStatus maps the service error kinds onto HTTP. Order matters:
// ErrAlreadyAttempted is a conflict but the start endpoint answers 400.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrAlreadyAttempted, http.StatusBadRequest, "already_attempted"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrConflict, http.StatusConflict, "conflict"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrInvalidState, http.StatusUnprocessableEntity, "invalid_state"},
	{service.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{service.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
}

// RespondError writes the JSON error body for err. Errors outside the known
// kinds are logged and reported as a generic 500.
func RespondError(ctx *gin.Context, op string, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			log.Warn().Err(err).Str("op", op).Int("status", e.status).Msg("request rejected")
			ctx.JSON(e.status, dto.ErrorResponse{Error: err.Error(), Code: e.code})
			return
		}
	}
	log.Error().Err(err).Str("op", op).Msg("unhandled service error")
	ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error", Code: "internal"})
}

// BadRequest answers 400 for malformed input such as an unparsable body.
func BadRequest(ctx *gin.Context, msg string, err error) {
	resp := dto.ErrorResponse{Error: msg, Code: "bad_request"}
	if err != nil {
		resp.Details = err.Error()
	}
	ctx.JSON(http.StatusBadRequest, resp)
}

// ParamID reads a numeric path parameter. On failure the 400 response has
// already been written.
func ParamID(ctx *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || v == 0 {
		BadRequest(ctx, "invalid "+name, nil)
		return 0, false
	}
	return uint(v), true
}

// CurrentUser returns the authenticated principal. Routes using it are
// mounted behind auth.Middleware, so a missing principal is a 401.
func CurrentUser(ctx *gin.Context) (auth.Principal, bool) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "authorization required", Code: "unauthorized"})
		return auth.Principal{}, false
	}
	return p, true
}

func ViewerOf(p auth.Principal) service.Viewer {
	return service.Viewer{UserID: p.UserID, IsAdmin: p.IsAdmin()}
}
