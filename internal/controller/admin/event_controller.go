package admin

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Symposium/internal/controller"
	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/export"
	"github.com/lshigami/Symposium/internal/service"
	"github.com/rs/zerolog/log"
)

type EventController struct {
	eventService       service.EventService
	leaderboardService service.LeaderboardService
}

func NewEventController(es service.EventService, ls service.LeaderboardService) *EventController {
	return &EventController{
		eventService:       es,
		leaderboardService: ls,
	}
}

func (c *EventController) RegisterRoutes(group *gin.RouterGroup) {
	events := group.Group("/events")
	events.POST("", c.CreateEvent)
	events.GET("", c.ListEvents)
	events.GET("/:eventId", c.GetEvent)
	events.GET("/:eventId/participants", c.ListParticipants)
	events.POST("/:eventId/participants/:userId/disqualify", c.DisqualifyParticipant)
	events.GET("/:eventId/leaderboard/export", c.ExportLeaderboard)
}

// CreateEvent godoc
// @Summary (Admin) Create an event
// @Tags Admin - Events
// @Accept json
// @Produce json
// @Param event body dto.CreateEventRequest true "Event"
// @Success 201 {object} dto.EventResponse
// @Failure 400 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/events [post]
func (c *EventController) CreateEvent(ctx *gin.Context) {
	p, ok := controller.CurrentUser(ctx)
	if !ok {
		return
	}
	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BadRequest(ctx, "invalid event payload", err)
		return
	}

	event, err := c.eventService.CreateEvent(ctx.Request.Context(), p.UserID, req)
	if err != nil {
		controller.RespondError(ctx, "create event", err)
		return
	}
	log.Info().Uint("eventID", event.ID).Uint("adminID", p.UserID).Msg("event created")
	ctx.JSON(http.StatusCreated, event)
}

// ListEvents godoc
// @Summary (Admin) List events
// @Tags Admin - Events
// @Produce json
// @Success 200 {array} dto.EventResponse
// @Security BearerAuth
// @Router /admin/events [get]
func (c *EventController) ListEvents(ctx *gin.Context) {
	events, err := c.eventService.ListEvents(ctx.Request.Context())
	if err != nil {
		controller.RespondError(ctx, "list events", err)
		return
	}
	ctx.JSON(http.StatusOK, events)
}

// GetEvent godoc
// @Summary (Admin) Get an event with its rounds
// @Tags Admin - Events
// @Produce json
// @Param eventId path int true "Event ID"
// @Success 200 {object} dto.EventResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/events/{eventId} [get]
func (c *EventController) GetEvent(ctx *gin.Context) {
	eventID, ok := controller.ParamID(ctx, "eventId")
	if !ok {
		return
	}
	event, err := c.eventService.GetEvent(ctx.Request.Context(), eventID)
	if err != nil {
		controller.RespondError(ctx, "get event", err)
		return
	}
	ctx.JSON(http.StatusOK, event)
}

// ListParticipants godoc
// @Summary (Admin) List registered participants
// @Tags Admin - Events
// @Produce json
// @Param eventId path int true "Event ID"
// @Success 200 {array} dto.ParticipantResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/events/{eventId}/participants [get]
func (c *EventController) ListParticipants(ctx *gin.Context) {
	eventID, ok := controller.ParamID(ctx, "eventId")
	if !ok {
		return
	}
	participants, err := c.eventService.ListParticipants(ctx.Request.Context(), eventID)
	if err != nil {
		controller.RespondError(ctx, "list participants", err)
		return
	}
	ctx.JSON(http.StatusOK, participants)
}

// DisqualifyParticipant godoc
// @Summary (Admin) Disqualify a participant
// @Description Marks the participant disqualified for the whole event. Attempts already submitted keep their scores.
// @Tags Admin - Events
// @Accept json
// @Produce json
// @Param eventId path int true "Event ID"
// @Param userId path int true "User ID"
// @Param reason body dto.DisqualifyRequest false "Reason"
// @Success 200 {object} dto.ParticipantResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/events/{eventId}/participants/{userId}/disqualify [post]
func (c *EventController) DisqualifyParticipant(ctx *gin.Context) {
	eventID, ok := controller.ParamID(ctx, "eventId")
	if !ok {
		return
	}
	userID, ok := controller.ParamID(ctx, "userId")
	if !ok {
		return
	}
	var req dto.DisqualifyRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			controller.BadRequest(ctx, "invalid disqualify payload", err)
			return
		}
	}
	if req.Reason == "" {
		req.Reason = "disqualified by admin"
	}

	participant, err := c.eventService.DisqualifyParticipant(ctx.Request.Context(), eventID, userID, req.Reason)
	if err != nil {
		controller.RespondError(ctx, "disqualify participant", err)
		return
	}
	ctx.JSON(http.StatusOK, participant)
}

// ExportLeaderboard godoc
// @Summary (Admin) Download the event leaderboard
// @Tags Admin - Events
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param eventId path int true "Event ID"
// @Success 200 {file} file
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/events/{eventId}/leaderboard/export [get]
func (c *EventController) ExportLeaderboard(ctx *gin.Context) {
	eventID, ok := controller.ParamID(ctx, "eventId")
	if !ok {
		return
	}
	data, filename, err := c.leaderboardService.ExportEventLeaderboard(ctx.Request.Context(), eventID)
	if err != nil {
		controller.RespondError(ctx, "export event leaderboard", err)
		return
	}
	sendWorkbook(ctx, filename, data)
}

func sendWorkbook(ctx *gin.Context, filename string, data []byte) {
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, export.ContentTypeXLSX, data)
}
