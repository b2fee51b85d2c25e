package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Symposium/internal/controller"
	"github.com/lshigami/Symposium/internal/dto"
	"github.com/lshigami/Symposium/internal/service"
	"github.com/rs/zerolog/log"
)

type QuestionController struct {
	questionService service.QuestionService
	draftService    service.QuestionDraftService
}

func NewQuestionController(qs service.QuestionService, ds service.QuestionDraftService) *QuestionController {
	return &QuestionController{
		questionService: qs,
		draftService:    ds,
	}
}

func (c *QuestionController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/rounds/:roundId/questions", c.ListQuestions)
	group.POST("/rounds/:roundId/questions", c.CreateQuestion)
	group.POST("/rounds/:roundId/questions/generate", c.GenerateQuestions)

	questions := group.Group("/questions/:questionId")
	questions.GET("", c.GetQuestion)
	questions.PUT("", c.UpdateQuestion)
	questions.DELETE("", c.DeleteQuestion)
}

// ListQuestions godoc
// @Summary (Admin) List the questions of a round
// @Tags Admin - Questions
// @Produce json
// @Param roundId path int true "Round ID"
// @Success 200 {array} dto.QuestionResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/rounds/{roundId}/questions [get]
func (c *QuestionController) ListQuestions(ctx *gin.Context) {
	roundID, ok := controller.ParamID(ctx, "roundId")
	if !ok {
		return
	}
	questions, err := c.questionService.ListQuestions(ctx.Request.Context(), roundID)
	if err != nil {
		controller.RespondError(ctx, "list questions", err)
		return
	}
	ctx.JSON(http.StatusOK, questions)
}

// CreateQuestion godoc
// @Summary (Admin) Add a question to a round
// @Description multiple_choice and true_false need at least two options, and a correct answer must be one of them.
// @Tags Admin - Questions
// @Accept json
// @Produce json
// @Param roundId path int true "Round ID"
// @Param question body dto.CreateQuestionRequest true "Question"
// @Success 201 {object} dto.QuestionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/rounds/{roundId}/questions [post]
func (c *QuestionController) CreateQuestion(ctx *gin.Context) {
	roundID, ok := controller.ParamID(ctx, "roundId")
	if !ok {
		return
	}
	var req dto.CreateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BadRequest(ctx, "invalid question payload", err)
		return
	}

	question, err := c.questionService.CreateQuestion(ctx.Request.Context(), roundID, req)
	if err != nil {
		controller.RespondError(ctx, "create question", err)
		return
	}
	ctx.JSON(http.StatusCreated, question)
}

// GenerateQuestions godoc
// @Summary (Admin) Generate multiple-choice questions with Gemini
// @Tags Admin - Questions
// @Accept json
// @Produce json
// @Param roundId path int true "Round ID"
// @Param request body dto.GenerateQuestionsRequest true "Topic and count"
// @Success 201 {array} dto.QuestionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse "Gemini is not configured or failed"
// @Security BearerAuth
// @Router /admin/rounds/{roundId}/questions/generate [post]
func (c *QuestionController) GenerateQuestions(ctx *gin.Context) {
	roundID, ok := controller.ParamID(ctx, "roundId")
	if !ok {
		return
	}
	var req dto.GenerateQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BadRequest(ctx, "invalid generate payload", err)
		return
	}

	questions, err := c.draftService.GenerateQuestions(ctx.Request.Context(), roundID, req)
	if err != nil {
		controller.RespondError(ctx, "generate questions", err)
		return
	}
	log.Info().Uint("roundID", roundID).Int("requested", req.Count).Int("created", len(questions)).Msg("questions generated")
	ctx.JSON(http.StatusCreated, questions)
}

// GetQuestion godoc
// @Summary (Admin) Get a question
// @Tags Admin - Questions
// @Produce json
// @Param questionId path int true "Question ID"
// @Success 200 {object} dto.QuestionResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/questions/{questionId} [get]
func (c *QuestionController) GetQuestion(ctx *gin.Context) {
	questionID, ok := controller.ParamID(ctx, "questionId")
	if !ok {
		return
	}
	question, err := c.questionService.GetQuestion(ctx.Request.Context(), questionID)
	if err != nil {
		controller.RespondError(ctx, "get question", err)
		return
	}
	ctx.JSON(http.StatusOK, question)
}

// UpdateQuestion godoc
// @Summary (Admin) Replace a question
// @Tags Admin - Questions
// @Accept json
// @Produce json
// @Param questionId path int true "Question ID"
// @Param question body dto.CreateQuestionRequest true "Question"
// @Success 200 {object} dto.QuestionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/questions/{questionId} [put]
func (c *QuestionController) UpdateQuestion(ctx *gin.Context) {
	questionID, ok := controller.ParamID(ctx, "questionId")
	if !ok {
		return
	}
	var req dto.CreateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BadRequest(ctx, "invalid question payload", err)
		return
	}
	question, err := c.questionService.UpdateQuestion(ctx.Request.Context(), questionID, req)
	if err != nil {
		controller.RespondError(ctx, "update question", err)
		return
	}
	ctx.JSON(http.StatusOK, question)
}

// DeleteQuestion godoc
// @Summary (Admin) Delete a question
// @Description Answers already given to it are no longer graded.
// @Tags Admin - Questions
// @Param questionId path int true "Question ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /admin/questions/{questionId} [delete]
func (c *QuestionController) DeleteQuestion(ctx *gin.Context) {
	questionID, ok := controller.ParamID(ctx, "questionId")
	if !ok {
		return
	}
	if err := c.questionService.DeleteQuestion(ctx.Request.Context(), questionID); err != nil {
		controller.RespondError(ctx, "delete question", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
