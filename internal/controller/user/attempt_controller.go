package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Symposium/internal/controller"
	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/service"
)

// AttemptController serves the participant side of a proctored round.
type AttemptController struct {
	attemptService     service.AttemptService
	leaderboardService service.LeaderboardService
}

func NewAttemptController(as service.AttemptService, ls service.LeaderboardService) *AttemptController {
	return &AttemptController{
		attemptService:     as,
		leaderboardService: ls,
	}
}

func (c *AttemptController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/events/:eventId/rounds/:roundId/start", c.StartAttempt)

	attempts := group.Group("/attempts/:attemptId")
	attempts.GET("", c.GetAttempt)
	attempts.POST("/answers", c.RecordAnswer)
	attempts.POST("/violations", c.RecordViolation)
	attempts.POST("/submit", c.SubmitAttempt)

	group.GET("/rounds/:roundId/leaderboard", c.RoundLeaderboard)
	group.GET("/events/:eventId/leaderboard", c.EventLeaderboard)
}

// StartAttempt godoc
// @Summary Start a round attempt
// @Description Creates the caller's single attempt for the round and snapshots the maximum score.
// @Tags Participant - Attempts
// @Produce json
// @Param eventId path int true "Event ID"
// @Param roundId path int true "Round ID"
// @Success 201 {object} dto.AttemptResponse
// @Failure 400 {object} dto.ErrorResponse "Round already attempted"
// @Failure 404 {object} dto.ErrorResponse "Round not found"
// @Security BearerAuth
// @Router /events/{eventId}/rounds/{roundId}/start [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	eventID, ok := controller.ParamID(ctx, "eventId")
	if !ok {
		return
	}
	roundID, ok := controller.ParamID(ctx, "roundId")
	if !ok {
		return
	}
	p, ok := controller.CurrentUser(ctx)
	if !ok {
		return
	}

	attempt, err := c.attemptService.StartAttempt(ctx.Request.Context(), p.UserID, eventID, roundID)
	if err != nil {
		controller.RespondError(ctx, "start attempt", err)
		return
	}
	ctx.JSON(http.StatusCreated, attempt)
}

// GetAttempt godoc
// @Summary Get an attempt with its round, questions and answers
// @Description Scores and correct answers are only included once results are published and the attempt window has passed.
// @Tags Participant - Attempts
// @Produce json
// @Param attemptId path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDetailResponse
// @Failure 403 {object} dto.ErrorResponse "Not the attempt owner"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Security BearerAuth
// @Router /attempts/{attemptId} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParamID(ctx, "attemptId")
	if !ok {
		return
	}
	p, ok := controller.CurrentUser(ctx)
	if !ok {
		return
	}

	details, err := c.attemptService.GetAttemptDetails(ctx.Request.Context(), controller.ViewerOf(p), attemptID)
	if err != nil {
		controller.RespondError(ctx, "get attempt", err)
		return
	}
	ctx.JSON(http.StatusOK, details)
}

// RecordAnswer godoc
// @Summary Save an answer
// @Description Creates or overwrites the answer to one question of an in-progress attempt.
// @Tags Participant - Attempts
// @Accept json
// @Produce json
// @Param attemptId path int true "Attempt ID"
// @Param answer body dto.RecordAnswerRequest true "Answer"
// @Success 200 {object} dto.AnswerResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse "Attempt is not in progress"
// @Security BearerAuth
// @Router /attempts/{attemptId}/answers [post]
func (c *AttemptController) RecordAnswer(ctx *gin.Context) {
	attemptID, ok := controller.ParamID(ctx, "attemptId")
	if !ok {
		return
	}
	p, ok := controller.CurrentUser(ctx)
	if !ok {
		return
	}
	var req dto.RecordAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BadRequest(ctx, "invalid answer payload", err)
		return
	}

	answer, err := c.attemptService.RecordAnswer(ctx.Request.Context(), p.UserID, attemptID, req)
	if err != nil {
		controller.RespondError(ctx, "record answer", err)
		return
	}
	ctx.JSON(http.StatusOK, answer)
}

// RecordViolation godoc
// @Summary Report a proctoring violation
// @Description Logs a tab switch or refresh. Exceeding the tab-switch threshold on a round with auto-submit disqualifies the participant and submits the attempt.
// @Tags Participant - Attempts
// @Accept json
// @Produce json
// @Param attemptId path int true "Attempt ID"
// @Param violation body dto.RecordViolationRequest true "Violation"
// @Success 200 {object} dto.ViolationOutcomeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse "Attempt is not in progress"
// @Security BearerAuth
// @Router /attempts/{attemptId}/violations [post]
func (c *AttemptController) RecordViolation(ctx *gin.Context) {
	attemptID, ok := controller.ParamID(ctx, "attemptId")
	if !ok {
		return
	}
	p, ok := controller.CurrentUser(ctx)
	if !ok {
		return
	}
	var req dto.RecordViolationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BadRequest(ctx, "invalid violation payload", err)
		return
	}

	outcome, err := c.attemptService.RecordViolation(ctx.Request.Context(), p.UserID, attemptID, req.Type)
	if err != nil {
		controller.RespondError(ctx, "record violation", err)
		return
	}
	ctx.JSON(http.StatusOK, outcome)
}

// SubmitAttempt godoc
// @Summary Submit an attempt
// @Description Grades the attempt and completes it. A second submit is rejected and leaves the score unchanged.
// @Tags Participant - Attempts
// @Produce json
// @Param attemptId path int true "Attempt ID"
// @Success 200 {object} dto.AttemptResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already submitted"
// @Security BearerAuth
// @Router /attempts/{attemptId}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	attemptID, ok := controller.ParamID(ctx, "attemptId")
	if !ok {
		return
	}
	p, ok := controller.CurrentUser(ctx)
	if !ok {
		return
	}

	attempt, err := c.attemptService.SubmitAttempt(ctx.Request.Context(), p.UserID, attemptID)
	if err != nil {
		controller.RespondError(ctx, "submit attempt", err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

// RoundLeaderboard godoc
// @Summary Round leaderboard
// @Description Ranked by score, then earliest submission. Entries are empty until results are visible to the caller.
// @Tags Participant - Leaderboards
// @Produce json
// @Param roundId path int true "Round ID"
// @Success 200 {object} dto.LeaderboardResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /rounds/{roundId}/leaderboard [get]
func (c *AttemptController) RoundLeaderboard(ctx *gin.Context) {
	roundID, ok := controller.ParamID(ctx, "roundId")
	if !ok {
		return
	}
	p, ok := controller.CurrentUser(ctx)
	if !ok {
		return
	}

	board, err := c.leaderboardService.RoundLeaderboard(ctx.Request.Context(), controller.ViewerOf(p), roundID)
	if err != nil {
		controller.RespondError(ctx, "round leaderboard", err)
		return
	}
	ctx.JSON(http.StatusOK, board)
}

// EventLeaderboard godoc
// @Summary Event leaderboard
// @Description Totals across every round of the event. Entries are empty until every round's results are visible to the caller.
// @Tags Participant - Leaderboards
// @Produce json
// @Param eventId path int true "Event ID"
// @Success 200 {object} dto.EventLeaderboardResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /events/{eventId}/leaderboard [get]
func (c *AttemptController) EventLeaderboard(ctx *gin.Context) {
	eventID, ok := controller.ParamID(ctx, "eventId")
	if !ok {
		return
	}
	p, ok := controller.CurrentUser(ctx)
	if !ok {
		return
	}

	board, err := c.leaderboardService.EventLeaderboard(ctx.Request.Context(), controller.ViewerOf(p), eventID)
	if err != nil {
		controller.RespondError(ctx, "event leaderboard", err)
		return
	}
	ctx.JSON(http.StatusOK, board)
}
