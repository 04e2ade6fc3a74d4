package handlers

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/auth"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/services"
)

// AssistanceHandler serves assistance suggestions and answer synthesis.
type AssistanceHandler struct {
	assistance services.AssistanceService
	logger     *zap.Logger
}

// NewAssistanceHandler creates an AssistanceHandler.
func NewAssistanceHandler(assistance services.AssistanceService, logger *zap.Logger) *AssistanceHandler {
	return &AssistanceHandler{assistance: assistance, logger: logger.Named("assistance_handler")}
}

// RegisterRoutes registers assistance routes on the given mux.
func (h *AssistanceHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("POST /api/find-assistance", mw.RequireAuth(h.FindAssistance))
	mux.HandleFunc("POST /api/generate-answer-from-sources", mw.RequireAuth(h.GenerateAnswerFromSources))
}

type findAssistanceRequest struct {
	Query          string                   `json:"query"`
	AssistanceType models.AssistanceType    `json:"assistanceType"`
	Context        models.AssistanceContext `json:"context"`
	Language       string                   `json:"language"`
}

func (r *findAssistanceRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Query, validation.Required),
		validation.Field(&r.AssistanceType, validation.Required),
	)
}

type findAssistanceData struct {
	Suggestions []models.AssistanceSuggestion `json:"suggestions"`
	Query       string                        `json:"query"`
}

// FindAssistance handles POST /api/find-assistance.
func (h *AssistanceHandler) FindAssistance(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}

	var req findAssistanceRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	res, err := h.assistance.FindAssistance(r.Context(), userID, req.Query, req.AssistanceType, req.Context, req.Language)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    findAssistanceData{Suggestions: res.Result.Suggestions, Query: req.Query},
		Cached:  res.Cached,
		Model:   res.Result.Model,
	})
}

type generateAnswerRequest struct {
	Brief            models.ContributorBrief       `json:"brief"`
	Question         string                        `json:"question"`
	InterviewHistory []models.InterviewQnA         `json:"interviewHistory"`
	Suggestions      []models.AssistanceSuggestion `json:"suggestions"`
	Language         string                        `json:"language"`
}

func (r *generateAnswerRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Question, validation.Required),
		validation.Field(&r.Suggestions, validation.Required),
	)
}

// GenerateAnswerFromSources handles POST /api/generate-answer-from-sources.
func (h *AssistanceHandler) GenerateAnswerFromSources(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}

	var req generateAnswerRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	answer, model, err := h.assistance.GenerateAnswerFromSources(r.Context(), userID, req.Brief, req.Question, req.InterviewHistory, req.Suggestions, req.Language)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    map[string]string{"answer": answer},
		Model:   model,
	})
}
