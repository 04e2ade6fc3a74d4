package handlers

import (
	"net"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/auth"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/services"
)

// ContributionHandler serves the contributor-facing lifecycle endpoints.
type ContributionHandler struct {
	contributions services.ContributionService
	agreements    services.AgreementService
	adminPolicy   auth.AdminPolicy
	logger        *zap.Logger
}

// NewContributionHandler creates a ContributionHandler.
func NewContributionHandler(contributions services.ContributionService, agreements services.AgreementService, adminPolicy auth.AdminPolicy, logger *zap.Logger) *ContributionHandler {
	return &ContributionHandler{
		contributions: contributions,
		agreements:    agreements,
		adminPolicy:   adminPolicy,
		logger:        logger.Named("contribution_handler"),
	}
}

// RegisterRoutes registers contribution routes on the given mux.
func (h *ContributionHandler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.HandleFunc("POST /api/contributions", mw.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/contributions", mw.RequireAuth(h.List))
	mux.HandleFunc("GET /api/contributions/{cid}", mw.RequireAuth(h.Get))
	mux.HandleFunc("POST /api/contributions/{cid}/interview", mw.RequireAuth(h.AppendInterviewTurn))
	mux.HandleFunc("POST /api/contributions/{cid}/agreement", mw.RequireAuth(h.SignAgreement))
}

type createContributionRequest struct {
	Brief models.ContributorBrief `json:"brief"`
}

func (r *createContributionRequest) Validate() error {
	return validation.ValidateStruct(&r.Brief,
		validation.Field(&r.Brief.Topic, validation.Required),
		validation.Field(&r.Brief.Thesis, validation.Required),
	)
}

// Create handles POST /api/contributions.
func (h *ContributionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}

	var req createContributionRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	contribution, err := h.contributions.Create(r.Context(), userID, req.Brief)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	WriteData(w, http.StatusCreated, contribution)
}

// List handles GET /api/contributions, returning the caller's contributions.
func (h *ContributionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}

	contributions, err := h.contributions.ListForContributor(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}
	if contributions == nil {
		contributions = []*models.Contribution{}
	}

	WriteData(w, http.StatusOK, contributions)
}

// Get handles GET /api/contributions/{cid}. Owners and admins may read.
func (h *ContributionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}
	id, ok := ParseContributionID(w, r)
	if !ok {
		return
	}

	isAdmin := false
	if claims, found := auth.GetClaims(r.Context()); found {
		isAdmin = h.adminPolicy.IsAdmin(claims)
	}

	contribution, err := h.contributions.Get(r.Context(), id, userID, isAdmin)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	WriteData(w, http.StatusOK, contribution)
}

type appendTurnRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (r *appendTurnRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Question, validation.Required),
	)
}

// AppendInterviewTurn handles POST /api/contributions/{cid}/interview.
func (h *ContributionHandler) AppendInterviewTurn(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}
	id, ok := ParseContributionID(w, r)
	if !ok {
		return
	}

	var req appendTurnRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	contribution, err := h.contributions.AppendInterviewTurn(r.Context(), id, userID, models.InterviewQnA{
		Question: req.Question,
		Answer:   req.Answer,
	})
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	WriteData(w, http.StatusOK, contribution)
}

type signAgreementRequest struct {
	Version       string `json:"version"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	FiscalCode    string `json:"fiscalCode"`
	AgreementText string `json:"agreementText"`
}

func (r *signAgreementRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Version, validation.Required),
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Email, validation.Required),
	)
}

type signAgreementData struct {
	Decision  models.AgreementPolicyDecision `json:"decision"`
	Agreement *models.AgreementRecord        `json:"agreement,omitempty"`
}

// SignAgreement handles POST /api/contributions/{cid}/agreement.
func (h *ContributionHandler) SignAgreement(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		ErrorResponse(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
		return
	}
	id, ok := ParseContributionID(w, r)
	if !ok {
		return
	}

	var req signAgreementRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	record, decision, err := h.agreements.Sign(r.Context(), id, userID, services.AgreementSignatureRequest{
		Version:       req.Version,
		Name:          req.Name,
		Email:         req.Email,
		FiscalCode:    req.FiscalCode,
		AgreementText: req.AgreementText,
		IPAddress:     clientIP(r),
	})
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	WriteData(w, http.StatusOK, signAgreementData{Decision: decision, Agreement: record})
}

// clientIP extracts a single caller address for the signature record.
// X-Forwarded-For may carry a proxy chain; only the first hop is the client.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
