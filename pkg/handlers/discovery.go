package handlers

import (
	"net/http"

	"github.com/google/uuid"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/auth"
	"github.com/veritaslearn/contributor-engine/pkg/config"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/services"
)

// DiscoveryHandler serves search-grounded source discovery.
type DiscoveryHandler struct {
	discovery     services.SourceDiscoveryService
	contributions services.ContributionService
	limiter       services.RateLimiter
	logger        *zap.Logger
}

// NewDiscoveryHandler creates a DiscoveryHandler.
func NewDiscoveryHandler(discovery services.SourceDiscoveryService, contributions services.ContributionService, limiter services.RateLimiter, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discovery:     discovery,
		contributions: contributions,
		limiter:       limiter,
		logger:        logger.Named("discovery_handler"),
	}
}

// RegisterRoutes registers discovery routes on the given mux.
func (h *DiscoveryHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("POST /api/discover-sources", mw.RequireAuth(h.DiscoverSources))
}

type discoverSourcesRequest struct {
	Brief            models.ContributorBrief `json:"brief"`
	InterviewHistory []models.InterviewQnA   `json:"interviewHistory"`
	Language         string                  `json:"language"`
	// ContributionID, when set, stores the snapshot on that contribution.
	ContributionID string `json:"contributionId"`
}

func (r *discoverSourcesRequest) Validate() error {
	return validation.ValidateStruct(&r.Brief,
		validation.Field(&r.Brief.Topic, validation.Required),
		validation.Field(&r.Brief.Thesis, validation.Required),
	)
}

// DiscoverSources handles POST /api/discover-sources. Quota is consumed
// before the upstream search and is not refunded on failure.
func (h *DiscoveryHandler) DiscoverSources(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}

	var req discoverSourcesRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if _, err := h.limiter.CheckAndConsume(r.Context(), userID, config.ProviderPerplexity, config.FeatureSourceDiscovery); err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	data, model, err := h.discovery.DiscoverSources(r.Context(), req.Brief, req.InterviewHistory, req.Language)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	if req.ContributionID != "" {
		if cid, parseErr := uuid.Parse(req.ContributionID); parseErr == nil {
			if _, attachErr := h.contributions.AttachSourceDiscovery(r.Context(), cid, userID, data); attachErr != nil {
				// The contributor still gets their sources; the snapshot is
				// a convenience, not part of the discovery contract.
				h.logger.Warn("failed to attach discovery snapshot",
					zap.String("contribution_id", req.ContributionID),
					zap.Error(attachErr))
			}
		}
	}

	WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data, Model: model})
}
