package handlers

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/auth"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/services"
)

// InterviewHandler serves adaptive question generation.
type InterviewHandler struct {
	questions services.QuestionService
	logger    *zap.Logger
}

// NewInterviewHandler creates an InterviewHandler.
func NewInterviewHandler(questions services.QuestionService, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{questions: questions, logger: logger.Named("interview_handler")}
}

// RegisterRoutes registers interview routes on the given mux.
func (h *InterviewHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("POST /api/generate-questions", mw.RequireAuth(h.GenerateQuestions))
}

type generateQuestionsRequest struct {
	Brief            models.ContributorBrief `json:"brief"`
	InterviewHistory []models.InterviewQnA   `json:"interviewHistory"`
	Language         string                  `json:"language"`
	ForceComplete    bool                    `json:"forceComplete"`
	MaxQuestions     int                     `json:"maxQuestions"`
}

func (r *generateQuestionsRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.MaxQuestions, validation.Min(0)),
	); err != nil {
		return err
	}
	return validation.ValidateStruct(&r.Brief,
		validation.Field(&r.Brief.Topic, validation.Required),
		validation.Field(&r.Brief.Thesis, validation.Required),
	)
}

// GenerateQuestions handles POST /api/generate-questions.
func (h *InterviewHandler) GenerateQuestions(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}

	var req generateQuestionsRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.questions.GenerateNextQuestions(r.Context(), userID, req.Brief, req.InterviewHistory, req.Language, services.QuestionGenerationOptions{
		ForceComplete: req.ForceComplete,
		MaxQuestions:  req.MaxQuestions,
	})
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result, Model: result.Model})
}
