package handlers

import (
	"net/http"

	"github.com/google/uuid"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/auth"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/services"
)

// ReviewHandler serves the admin review endpoints.
type ReviewHandler struct {
	reviews services.ReviewService
	logger  *zap.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(reviews services.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger.Named("review_handler")}
}

// RegisterRoutes registers admin review routes on the given mux. Both routes
// check authentication before admin rights, and admin rights before touching
// any data.
func (h *ReviewHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("POST /api/admin/review-action", mw.RequireAdmin(h.ReviewAction))
	mux.HandleFunc("POST /api/admin/review-annotation", mw.RequireAdmin(h.ReviewAnnotation))
}

type reviewActionRequest struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Note   string `json:"note"`
}

func (r *reviewActionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required, is.UUID),
		validation.Field(&r.Action, validation.Required),
	)
}

type reviewActionData struct {
	Status      models.ContributionStatus `json:"status"`
	CurrentStep string                    `json:"currentStep"`
	Review      *models.ReviewState       `json:"review"`
}

// ReviewAction handles POST /api/admin/review-action.
func (h *ReviewHandler) ReviewAction(w http.ResponseWriter, r *http.Request) {
	reviewerEmail := auth.GetUserEmailFromContext(r.Context())

	var req reviewActionRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "INVALID_CONTRIBUTION_ID", "invalid contribution ID format")
		return
	}

	contribution, err := h.reviews.ApplyReviewAction(r.Context(), id, models.ReviewAction(req.Action), req.Note, reviewerEmail)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	WriteData(w, http.StatusOK, reviewActionData{
		Status:      contribution.Status,
		CurrentStep: contribution.CurrentStep,
		Review:      contribution.Review,
	})
}

type reviewAnnotationRequest struct {
	ID    string `json:"id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Note  string `json:"note"`
}

func (r *reviewAnnotationRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required, is.UUID),
		validation.Field(&r.Note, validation.Required),
	)
}

type reviewAnnotationData struct {
	Annotations []models.ReviewAnnotation `json:"annotations"`
}

// ReviewAnnotation handles POST /api/admin/review-annotation.
func (h *ReviewHandler) ReviewAnnotation(w http.ResponseWriter, r *http.Request) {
	reviewerEmail := auth.GetUserEmailFromContext(r.Context())

	var req reviewAnnotationRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "INVALID_CONTRIBUTION_ID", "invalid contribution ID format")
		return
	}

	contribution, err := h.reviews.AddAnnotation(r.Context(), id, req.Start, req.End, req.Note, reviewerEmail)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	WriteData(w, http.StatusOK, reviewAnnotationData{Annotations: contribution.Review.Annotations})
}
