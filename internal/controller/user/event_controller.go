package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Symposium/internal/controller"
	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/service"
)

type EventController struct {
	eventService service.EventService
}

func NewEventController(es service.EventService) *EventController {
	return &EventController{eventService: es}
}

func (c *EventController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/events", c.ListEvents)
	group.GET("/events/:eventId", c.GetEvent)
	group.POST("/events/:eventId/register", c.Register)
}

// ListEvents godoc
// @Summary List events
// @Tags Participant - Events
// @Produce json
// @Success 200 {array} dto.EventResponse
// @Security BearerAuth
// @Router /events [get]
func (c *EventController) ListEvents(ctx *gin.Context) {
	events, err := c.eventService.ListEvents(ctx.Request.Context())
	if err != nil {
		controller.RespondError(ctx, "list events", err)
		return
	}
	ctx.JSON(http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event with its rounds
// @Tags Participant - Events
// @Produce json
// @Param eventId path int true "Event ID"
// @Success 200 {object} dto.EventResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /events/{eventId} [get]
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

// Register godoc
// @Summary Register for an event
// @Description Registers the caller and mails a credential code.
// @Tags Participant - Events
// @Accept json
// @Produce json
// @Param eventId path int true "Event ID"
// @Param registration body dto.RegisterRequest true "Contact details"
// @Success 201 {object} dto.ParticipantResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already registered"
// @Security BearerAuth
// @Router /events/{eventId}/register [post]
func (c *EventController) Register(ctx *gin.Context) {
	eventID, ok := controller.ParamID(ctx, "eventId")
	if !ok {
		return
	}
	p, ok := controller.CurrentUser(ctx)
	if !ok {
		return
	}
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BadRequest(ctx, "invalid registration payload", err)
		return
	}

	participant, err := c.eventService.Register(ctx.Request.Context(), eventID, p.UserID, req)
	if err != nil {
		controller.RespondError(ctx, "register", err)
		return
	}
	ctx.JSON(http.StatusCreated, participant)
}
