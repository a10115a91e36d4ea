// Advisor HTTP handlers.
//
// Endpoints:
//   - POST /advisor/ask                              (answer a question)
//   - GET  /advisor/conversations                    (history, paginated)
//   - POST /advisor/conversations/{id}/feedback      (rate an answer)
//
// Handlers are transport-thin: they validate input, call the services, and
// translate results (including the engine error taxonomy) into HTTP.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gestioweb/go-advisor-backend/internal/advisor/period"
	"github.com/gestioweb/go-advisor-backend/internal/advisor/summary"
	"github.com/gestioweb/go-advisor-backend/internal/llm"
	"github.com/gestioweb/go-advisor-backend/internal/services"
	"github.com/gestioweb/go-advisor-backend/internal/sysutil"
	"github.com/gestioweb/go-advisor-backend/internal/utils"
)

// Engine names accepted in AskRequest.Engine.
const (
	engineRules = "rules"
	engineLLM   = "llm"
)

//
// Service contracts (context-aware)
//

// AnswerEngine generates an advisor answer. Both the rule-based and the
// LLM-backed services satisfy it.
type AnswerEngine interface {
	Generate(ctx context.Context, req services.GenerateRequest) (*services.GenerateResponse, error)
}

// ConversationLister returns a page of a user's conversation history.
type ConversationLister interface {
	ListConversations(ctx context.Context, userID string, page, pageSize int) ([]services.ConversationSummary, int64, error)
}

// FeedbackService records a rating for a conversation.
type FeedbackService interface {
	GiveFeedback(ctx context.Context, conversationID string, rating int) (bool, error)
}

//
// Handler wiring
//

// Handlers groups the advisor HTTP endpoints. The LLM engine may be nil
// when no API key is configured; requests selecting it are then rejected.
type Handlers struct {
	rules    AnswerEngine
	llm      AnswerEngine
	listing  ConversationLister
	feedback FeedbackService
}

// New constructs a Handlers instance bound to the given services.
func New(rules AnswerEngine, llmEngine AnswerEngine, listing ConversationLister, feedback FeedbackService) *Handlers {
	return &Handlers{rules: rules, llm: llmEngine, listing: listing, feedback: feedback}
}

// userID extracts the caller identity: X-User-ID header first, then the
// user_id query parameter. Empty means anonymous; persistence and
// personalization are skipped.
func userID(c *gin.Context) string {
	return strings.TrimSpace(sysutil.FirstNonEmpty(c.GetHeader("X-User-ID"), c.Query("user_id")))
}

//
// DTOs
//

// ChatTurn is one prior message of the conversation history.
type ChatTurn struct {
	Role    string `json:"role" example:"user"`
	Content string `json:"content" example:"Quanti clienti ho?"`
}

// PageInfo describes the page of the management app the user is looking at.
type PageInfo struct {
	Title       string `json:"title" example:"Finanze"`
	Section     string `json:"section" example:"finanze"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path,omitempty" example:"/finanze"`
}

// AskRequest is the JSON payload of POST /advisor/ask.
type AskRequest struct {
	// Question is the user's question (required).
	Question string `json:"question" binding:"required" example:"Come sta andando il mese?"`
	// Engine selects the generator: "rules" (default) or "llm".
	Engine string `json:"engine,omitempty" example:"llm"`
	// Period is the analysis window key; empty defaults to the 30-day window.
	Period string `json:"period,omitempty" example:"last7"`
	// CustomStart/CustomEnd bound the window when Period is "custom" (YYYY-MM-DD).
	CustomStart string     `json:"custom_start,omitempty" example:"2026-01-01"`
	CustomEnd   string     `json:"custom_end,omitempty" example:"2026-01-31"`
	SessionID   string     `json:"session_id,omitempty"`
	History     []ChatTurn `json:"history,omitempty"`
	Page        *PageInfo  `json:"page,omitempty"`
}

// FeedbackRequest is the JSON payload of the feedback endpoint.
type FeedbackRequest struct {
	// Rating is the user's score for the answer, 1 (poor) to 5 (great).
	Rating int `json:"rating" binding:"required" example:"4"`
}

// FeedbackResponse reports whether the rating was applied.
type FeedbackResponse struct {
	Updated bool `json:"updated"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListConversationsResponse wraps a page of conversation history.
type ListConversationsResponse struct {
	Conversations []services.ConversationSummary `json:"conversations"`
	Pagination    Pagination                     `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), 20), 1, 100)
	return
}

// toGenerateRequest maps the wire payload to the service request.
func toGenerateRequest(req AskRequest, uid string) services.GenerateRequest {
	out := services.GenerateRequest{
		Question:    req.Question,
		PeriodKey:   req.Period,
		CustomStart: req.CustomStart,
		CustomEnd:   req.CustomEnd,
		UserID:      uid,
		SessionID:   req.SessionID,
	}
	for _, t := range req.History {
		out.History = append(out.History, services.ChatMessage{Role: t.Role, Content: t.Content})
	}
	if req.Page != nil {
		out.Page = &summary.PageContext{
			Title:       req.Page.Title,
			Section:     req.Page.Section,
			Description: req.Page.Description,
			Path:        req.Page.Path,
		}
	}
	return out
}

//
// Handlers
//

// Ask godoc
// @ID          askAdvisor
// @Summary     Ask the advisor a question
// @Description Answers a business question over the selected analysis period. The "rules" engine replies from canned templates and snapshot data; the "llm" engine asks the configured model.
// @Tags        Advisor
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (enables persistence and personalization)"
// @Param       body       body    handlers.AskRequest  true  "Question payload"
//
// @Success     200  {object}  services.GenerateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation error"
// @Failure     429  {object}  handlers.ErrorResponse  "Model rate limited"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream failure"
// @Failure     503  {object}  handlers.ErrorResponse  "LLM engine not configured"
// @Router      /advisor/ask [post]
func (h *Handlers) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "corpo JSON non valido: serve almeno la domanda")
		return
	}

	engine := h.rules
	switch strings.ToLower(strings.TrimSpace(req.Engine)) {
	case "", engineRules:
	case engineLLM:
		if h.llm == nil {
			fail(c, http.StatusServiceUnavailable, ErrCodeUpstream, "motore LLM non configurato")
			return
		}
		engine = h.llm
	default:
		fail(c, http.StatusBadRequest, ErrCodeValidation, `engine deve essere "rules" o "llm"`)
		return
	}

	resp, err := engine.Generate(c.Request.Context(), toGenerateRequest(req, userID(c)))
	if err != nil {
		h.failGenerate(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// failGenerate maps an engine error to the HTTP taxonomy.
func (h *Handlers) failGenerate(c *gin.Context, err error) {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, services.ErrEmptyQuestion):
		fail(c, http.StatusBadRequest, ErrCodeValidation, "la domanda è obbligatoria")
	case errors.Is(err, period.ErrMissingCustomBounds):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, services.ErrNoModelConfigured):
		fail(c, http.StatusServiceUnavailable, ErrCodeUpstream, err.Error())
	case llm.IsRateLimit(err):
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "il modello è momentaneamente saturo, riprova tra poco")
	case errors.As(err, &apiErr):
		fail(c, http.StatusBadGateway, ErrCodeUpstream, "il modello non ha risposto correttamente")
	case strings.Contains(err.Error(), "non valida"):
		// Custom-period parse failures surface as validation errors.
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "errore interno del server")
	}
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversation history (paginated)
// @Description Returns a page of the user's past advisor exchanges, newest first.
// @Tags        Advisor
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"
// @Param       page       query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListConversationsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing user"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /advisor/conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "header X-User-ID obbligatorio")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.listing.ListConversations(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "impossibile leggere lo storico")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListConversationsResponse{
		Conversations: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GiveFeedback godoc
// @ID          giveFeedback
// @Summary     Rate an advisor answer
// @Description Sets the 1–5 rating of a past conversation. Poor ratings switch the author to concise answers, good ones to detailed answers.
// @Tags        Advisor
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Conversation ID (UUID)" format(uuid)
// @Param       body  body  handlers.FeedbackRequest  true  "Rating payload"
//
// @Success     200  {object}  handlers.FeedbackResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid rating"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Router      /advisor/conversations/{id}/feedback [post]
func (h *Handlers) GiveFeedback(c *gin.Context) {
	convID := c.Param("id")
	if _, err := uuid.Parse(convID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "l'id della conversazione deve essere un UUID")
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "corpo JSON non valido: serve il campo rating")
		return
	}

	updated, err := h.feedback.GiveFeedback(c.Request.Context(), convID, req.Rating)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRating) {
			fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "errore interno del server")
		return
	}
	if !updated {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversazione non trovata")
		return
	}
	ok(c, http.StatusOK, FeedbackResponse{Updated: true})
}
