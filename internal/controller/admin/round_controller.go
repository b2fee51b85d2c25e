package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Symposium/internal/controller"
	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/service"
	"github.com/rs/zerolog/log"
)

type RoundController struct {
	roundService       service.RoundService
	leaderboardService service.LeaderboardService
}

func NewRoundController(rs service.RoundService, ls service.LeaderboardService) *RoundController {
	return &RoundController{
		roundService:       rs,
		leaderboardService: ls,
	}
}

func (c *RoundController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/events/:eventId/rounds", c.CreateRound)
	group.GET("/events/:eventId/rounds", c.ListRounds)

	rounds := group.Group("/rounds/:roundId")
	rounds.GET("", c.GetRound)
	rounds.PUT("", c.UpdateRound)
	rounds.DELETE("", c.DeleteRound)
	rounds.POST("/start", c.StartRound)
	rounds.POST("/end", c.EndRound)
	rounds.POST("/restart", c.RestartRound)
	rounds.POST("/publish", c.PublishResults)
	rounds.POST("/unpublish", c.UnpublishResults)
	rounds.GET("/leaderboard/export", c.ExportLeaderboard)
}

// CreateRound godoc
// @Summary (Admin) Create a round
// @Tags Admin - Rounds
// @Accept json
// @Produce json
// @Param eventId path int true "Event ID"
// @Param round body dto.CreateRoundRequest true "Round"
// @Success 201 {object} dto.RoundResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Event not found"
// @Security BearerAuth
// @Router /admin/events/{eventId}/rounds [post]
func (c *RoundController) CreateRound(ctx *gin.Context) {
	eventID, ok := controller.ParamID(ctx, "eventId")
	if !ok {
		return
	}
	var req dto.CreateRoundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BadRequest(ctx, "invalid round payload", err)
		return
	}

	round, err := c.roundService.CreateRound(ctx.Request.Context(), eventID, req)
	if err != nil {
		controller.RespondError(ctx, "create round", err)
		return
	}
	ctx.JSON(http.StatusCreated, round)
}

// ListRounds godoc
// @Summary (Admin) List the rounds of an event
// @Tags Admin - Rounds
// @Produce json
// @Param eventId path int true "Event ID"
// @Success 200 {array} dto.RoundResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/events/{eventId}/rounds [get]
func (c *RoundController) ListRounds(ctx *gin.Context) {
	eventID, ok := controller.ParamID(ctx, "eventId")
	if !ok {
		return
	}
	rounds, err := c.roundService.ListRounds(ctx.Request.Context(), eventID)
	if err != nil {
		controller.RespondError(ctx, "list rounds", err)
		return
	}
	ctx.JSON(http.StatusOK, rounds)
}

// GetRound godoc
// @Summary (Admin) Get a round
// @Tags Admin - Rounds
// @Produce json
// @Param roundId path int true "Round ID"
// @Success 200 {object} dto.RoundResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/rounds/{roundId} [get]
func (c *RoundController) GetRound(ctx *gin.Context) {
	roundID, ok := controller.ParamID(ctx, "roundId")
	if !ok {
		return
	}
	round, err := c.roundService.GetRound(ctx.Request.Context(), roundID)
	if err != nil {
		controller.RespondError(ctx, "get round", err)
		return
	}
	ctx.JSON(http.StatusOK, round)
}

// UpdateRound godoc
// @Summary (Admin) Update a round
// @Description Only the fields present in the body change.
// @Tags Admin - Rounds
// @Accept json
// @Produce json
// @Param roundId path int true "Round ID"
// @Param round body dto.UpdateRoundRequest true "Changes"
// @Success 200 {object} dto.RoundResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/rounds/{roundId} [put]
func (c *RoundController) UpdateRound(ctx *gin.Context) {
	roundID, ok := controller.ParamID(ctx, "roundId")
	if !ok {
		return
	}
	var req dto.UpdateRoundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BadRequest(ctx, "invalid round payload", err)
		return
	}
	round, err := c.roundService.UpdateRound(ctx.Request.Context(), roundID, req)
	if err != nil {
		controller.RespondError(ctx, "update round", err)
		return
	}
	ctx.JSON(http.StatusOK, round)
}

// DeleteRound godoc
// @Summary (Admin) Delete a round with its questions and attempts
// @Tags Admin - Rounds
// @Param roundId path int true "Round ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/rounds/{roundId} [delete]
func (c *RoundController) DeleteRound(ctx *gin.Context) {
	roundID, ok := controller.ParamID(ctx, "roundId")
	if !ok {
		return
	}
	if err := c.roundService.DeleteRound(ctx.Request.Context(), roundID); err != nil {
		controller.RespondError(ctx, "delete round", err)
		return
	}
	log.Info().Uint("roundID", roundID).Msg("round deleted")
	ctx.Status(http.StatusNoContent)
}

// StartRound godoc
// @Summary (Admin) Start a round
// @Description Moves a not-started round to in progress and notifies subscribers and registered participants.
// @Tags Admin - Rounds
// @Produce json
// @Param roundId path int true "Round ID"
// @Success 200 {object} dto.RoundResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse "Round already started"
// @Security BearerAuth
// @Router /admin/rounds/{roundId}/start [post]
func (c *RoundController) StartRound(ctx *gin.Context) {
	c.transition(ctx, "start round", c.roundService.StartRound)
}

// EndRound godoc
// @Summary (Admin) End a round
// @Tags Admin - Rounds
// @Produce json
// @Param roundId path int true "Round ID"
// @Success 200 {object} dto.RoundResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse "Round is not in progress"
// @Security BearerAuth
// @Router /admin/rounds/{roundId}/end [post]
func (c *RoundController) EndRound(ctx *gin.Context) {
	c.transition(ctx, "end round", c.roundService.EndRound)
}

// RestartRound godoc
// @Summary (Admin) Restart a round
// @Description Deletes every attempt of the round, unpublishes its results and sets it back to not started.
// @Tags Admin - Rounds
// @Produce json
// @Param roundId path int true "Round ID"
// @Success 200 {object} dto.RoundResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/rounds/{roundId}/restart [post]
func (c *RoundController) RestartRound(ctx *gin.Context) {
	c.transition(ctx, "restart round", c.roundService.RestartRound)
}

// PublishResults godoc
// @Summary (Admin) Publish round results
// @Tags Admin - Rounds
// @Produce json
// @Param roundId path int true "Round ID"
// @Success 200 {object} dto.RoundResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/rounds/{roundId}/publish [post]
func (c *RoundController) PublishResults(ctx *gin.Context) {
	c.transition(ctx, "publish results", func(reqCtx context.Context, id uint) (*dto.RoundResponse, error) {
		return c.roundService.SetResultsPublished(reqCtx, id, true)
	})
}

// UnpublishResults godoc
// @Summary (Admin) Hide round results
// @Tags Admin - Rounds
// @Produce json
// @Param roundId path int true "Round ID"
// @Success 200 {object} dto.RoundResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/rounds/{roundId}/unpublish [post]
func (c *RoundController) UnpublishResults(ctx *gin.Context) {
	c.transition(ctx, "unpublish results", func(reqCtx context.Context, id uint) (*dto.RoundResponse, error) {
		return c.roundService.SetResultsPublished(reqCtx, id, false)
	})
}

// ExportLeaderboard godoc
// @Summary (Admin) Download the round leaderboard
// @Tags Admin - Rounds
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param roundId path int true "Round ID"
// @Success 200 {file} file
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/rounds/{roundId}/leaderboard/export [get]
func (c *RoundController) ExportLeaderboard(ctx *gin.Context) {
	roundID, ok := controller.ParamID(ctx, "roundId")
	if !ok {
		return
	}
	data, filename, err := c.leaderboardService.ExportRoundLeaderboard(ctx.Request.Context(), roundID)
	if err != nil {
		controller.RespondError(ctx, "export round leaderboard", err)
		return
	}
	sendWorkbook(ctx, filename, data)
}

func (c *RoundController) transition(ctx *gin.Context, op string, fn func(context.Context, uint) (*dto.RoundResponse, error)) {
	roundID, ok := controller.ParamID(ctx, "roundId")
	if !ok {
		return
	}
	round, err := fn(ctx.Request.Context(), roundID)
	if err != nil {
		controller.RespondError(ctx, op, err)
		return
	}
	log.Info().Uint("roundID", roundID).Str("op", op).Str("status", round.Status).Msg("round updated")
	ctx.JSON(http.StatusOK, round)
}
