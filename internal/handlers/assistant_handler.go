package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/services"
)

// AssistantHandler handles bookkeeping assistant requests.
type AssistantHandler struct {
	assistantService services.AssistantServicer
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(assistantService services.AssistantServicer) *AssistantHandler {
	return &AssistantHandler{assistantService: assistantService}
}

// AskRequest represents a question for the assistant.
type AskRequest struct {
	Question string `json:"question" binding:"required,notblank,max=500"`
}

// SuggestionsResponse lists the quick questions.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// Ask answers a question about the user's ledger
// @Summary     Ask the assistant
// @Description Ask a question about your income, expenses and GST
// @Tags        assistant
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AskRequest true "Question"
// @Success     200 {object} services.AssistantAnswer "Answer"
// @Failure     400 {object} ErrorResponse "Invalid question"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /assistant/ask [post]
func (h *AssistantHandler) Ask(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	answer, err := h.assistantService.Ask(c.Request.Context(), userID, req.Question)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, answer)
}

// Suggestions lists quick questions
// @Summary     Assistant suggestions
// @Tags        assistant
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} SuggestionsResponse "Quick questions"
// @Router      /assistant/suggestions [get]
func (h *AssistantHandler) Suggestions(c *gin.Context) {
	c.JSON(http.StatusOK, SuggestionsResponse{Suggestions: h.assistantService.Suggestions()})
}
