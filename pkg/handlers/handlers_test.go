package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/apperrors"
	"github.com/veritaslearn/contributor-engine/pkg/auth"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/services"
)

// authedRequest builds a request whose context carries validated claims, the
// way the auth middleware leaves it for handlers.
func authedRequest(method, target, body, userID, email string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		Email:            email,
	}
	ctx := context.WithValue(req.Context(), auth.ClaimsKey, claims)
	return req.WithContext(ctx)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

// stubQuestionService returns a canned result or error.
type stubQuestionService struct {
	result *services.QuestionGenerationResult
	err    error
}

func (s *stubQuestionService) GenerateNextQuestions(context.Context, string, models.ContributorBrief, []models.InterviewQnA, string, services.QuestionGenerationOptions) (*services.QuestionGenerationResult, error) {
	return s.result, s.err
}

func TestGenerateQuestionsHandler(t *testing.T) {
	t.Run("success envelope with data and model", func(t *testing.T) {
		h := NewInterviewHandler(&stubQuestionService{result: &services.QuestionGenerationResult{
			Questions:      []models.GeneratedQuestion{{Text: "What broke first?"}},
			QuestionNumber: 1,
			MaxQuestions:   10,
			Model:          "gemini-2.0-flash",
		}}, zap.NewNop())

		req := authedRequest(http.MethodPost, "/api/generate-questions",
			`{"brief":{"topic":"t","thesis":"th"},"interviewHistory":[]}`, "user-1", "u@example.com")
		rec := httptest.NewRecorder()
		h.GenerateQuestions(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		payload := decodeEnvelope(t, rec)
		assert.Equal(t, true, payload["success"])
		assert.Equal(t, "gemini-2.0-flash", payload["model"])
		data := payload["data"].(map[string]any)
		assert.Equal(t, float64(1), data["questionNumber"])
		questions := data["questions"].([]any)
		require.Len(t, questions, 1)
	})

	t.Run("incomplete brief rejected with 400", func(t *testing.T) {
		h := NewInterviewHandler(&stubQuestionService{}, zap.NewNop())

		req := authedRequest(http.MethodPost, "/api/generate-questions",
			`{"brief":{"topic":"only topic"}}`, "user-1", "")
		rec := httptest.NewRecorder()
		h.GenerateQuestions(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		payload := decodeEnvelope(t, rec)
		assert.Equal(t, false, payload["success"])
	})

	t.Run("rate limit maps to 429 with quota details", func(t *testing.T) {
		resetAt := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
		h := NewInterviewHandler(&stubQuestionService{err: &apperrors.RateLimitError{
			Provider: "gemini", Feature: "question_generation", Limit: 40, ResetAt: resetAt,
		}}, zap.NewNop())

		req := authedRequest(http.MethodPost, "/api/generate-questions",
			`{"brief":{"topic":"t","thesis":"th"}}`, "user-1", "")
		rec := httptest.NewRecorder()
		h.GenerateQuestions(rec, req)

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		payload := decodeEnvelope(t, rec)
		errBody := payload["error"].(map[string]any)
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", errBody["code"])
		assert.Equal(t, float64(40), errBody["limit"])
		assert.Equal(t, float64(0), errBody["remaining"])
		assert.Equal(t, "2026-03-16T00:00:00Z", errBody["resetAt"])
	})

	t.Run("missing identity yields 401", func(t *testing.T) {
		h := NewInterviewHandler(&stubQuestionService{}, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/generate-questions", strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		h.GenerateQuestions(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body yields 400", func(t *testing.T) {
		h := NewInterviewHandler(&stubQuestionService{}, zap.NewNop())

		req := authedRequest(http.MethodPost, "/api/generate-questions", `{not json`, "user-1", "")
		rec := httptest.NewRecorder()
		h.GenerateQuestions(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// stubAssistanceService implements services.AssistanceService.
type stubAssistanceService struct {
	findRes   *services.AssistanceResponse
	findErr   error
	answer    string
	model     string
	answerErr error
}

func (s *stubAssistanceService) FindAssistance(context.Context, string, string, models.AssistanceType, models.AssistanceContext, string) (*services.AssistanceResponse, error) {
	return s.findRes, s.findErr
}

func (s *stubAssistanceService) GenerateAnswerFromSources(context.Context, string, models.ContributorBrief, string, []models.InterviewQnA, []models.AssistanceSuggestion, string) (string, string, error) {
	return s.answer, s.model, s.answerErr
}

func TestFindAssistanceHandler(t *testing.T) {
	t.Run("cached flag and query echoed", func(t *testing.T) {
		h := NewAssistanceHandler(&stubAssistanceService{findRes: &services.AssistanceResponse{
			Result: &models.AssistanceResult{
				Suggestions: []models.AssistanceSuggestion{{Text: "try the NREL report"}},
				Model:       "gemini-2.0-flash",
			},
			Cached: true,
		}}, zap.NewNop())

		req := authedRequest(http.MethodPost, "/api/find-assistance",
			`{"query":"grid costs","assistanceType":"sources","context":{"topic":"t","thesis":"th"}}`, "user-1", "")
		rec := httptest.NewRecorder()
		h.FindAssistance(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		payload := decodeEnvelope(t, rec)
		assert.Equal(t, true, payload["cached"])
		data := payload["data"].(map[string]any)
		assert.Equal(t, "grid costs", data["query"])
	})

	t.Run("missing query rejected", func(t *testing.T) {
		h := NewAssistanceHandler(&stubAssistanceService{}, zap.NewNop())

		req := authedRequest(http.MethodPost, "/api/find-assistance", `{"assistanceType":"examples"}`, "user-1", "")
		rec := httptest.NewRecorder()
		h.FindAssistance(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGenerateAnswerHandler(t *testing.T) {
	t.Run("returns the drafted answer", func(t *testing.T) {
		h := NewAssistanceHandler(&stubAssistanceService{answer: "We rolled it out in Q3.", model: "claude-3-5-haiku-latest"}, zap.NewNop())

		req := authedRequest(http.MethodPost, "/api/generate-answer-from-sources",
			`{"question":"when?","suggestions":[{"text":"rollout notes"}]}`, "user-1", "")
		rec := httptest.NewRecorder()
		h.GenerateAnswerFromSources(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		payload := decodeEnvelope(t, rec)
		data := payload["data"].(map[string]any)
		assert.Equal(t, "We rolled it out in Q3.", data["answer"])
	})

	t.Run("empty suggestions rejected before the service call", func(t *testing.T) {
		h := NewAssistanceHandler(&stubAssistanceService{}, zap.NewNop())

		req := authedRequest(http.MethodPost, "/api/generate-answer-from-sources",
			`{"question":"when?","suggestions":[]}`, "user-1", "")
		rec := httptest.NewRecorder()
		h.GenerateAnswerFromSources(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// stubDiscoveryService implements services.SourceDiscoveryService.
type stubDiscoveryService struct {
	data  *models.SourceDiscoveryData
	model string
	err   error
}

func (s *stubDiscoveryService) DiscoverSources(context.Context, models.ContributorBrief, []models.InterviewQnA, string) (*models.SourceDiscoveryData, string, error) {
	return s.data, s.model, s.err
}

// allowAllLimiter implements services.RateLimiter.
type allowAllLimiter struct{ calls int }

func (l *allowAllLimiter) CheckAndConsume(context.Context, string, string, string) (*services.RateLimitResult, error) {
	l.calls++
	return &services.RateLimitResult{Allowed: true, Limit: 10, Remaining: 9}, nil
}

func TestDiscoverSourcesHandler(t *testing.T) {
	t.Run("returns the snapshot and consumes quota", func(t *testing.T) {
		limiter := &allowAllLimiter{}
		h := NewDiscoveryHandler(&stubDiscoveryService{
			data: &models.SourceDiscoveryData{
				Sources:      []models.Source{{Title: "report", URL: "https://example.com"}},
				DiscoveredAt: time.Now().UTC(),
				SearchQuery:  "q",
			},
			model: "sonar",
		}, nil, limiter, zap.NewNop())

		req := authedRequest(http.MethodPost, "/api/discover-sources",
			`{"brief":{"topic":"t","thesis":"th"}}`, "user-1", "")
		rec := httptest.NewRecorder()
		h.DiscoverSources(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		payload := decodeEnvelope(t, rec)
		assert.Equal(t, "sonar", payload["model"])
		data := payload["data"].(map[string]any)
		sources := data["sources"].([]any)
		require.Len(t, sources, 1)
		assert.Equal(t, 1, limiter.calls)
	})

	t.Run("provider outage maps to 503", func(t *testing.T) {
		h := NewDiscoveryHandler(&stubDiscoveryService{err: apperrors.ErrSourceDiscoveryUnavailable}, nil, &allowAllLimiter{}, zap.NewNop())

		req := authedRequest(http.MethodPost, "/api/discover-sources",
			`{"brief":{"topic":"t","thesis":"th"}}`, "user-1", "")
		rec := httptest.NewRecorder()
		h.DiscoverSources(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

// stubReviewService implements services.ReviewService.
type stubReviewService struct {
	contribution *models.Contribution
	err          error
}

func (s *stubReviewService) ApplyReviewAction(context.Context, uuid.UUID, models.ReviewAction, string, string) (*models.Contribution, error) {
	return s.contribution, s.err
}

func (s *stubReviewService) AddAnnotation(context.Context, uuid.UUID, int, int, string, string) (*models.Contribution, error) {
	return s.contribution, s.err
}

func TestReviewActionHandler(t *testing.T) {
	t.Run("returns status, step, and review snapshot", func(t *testing.T) {
		h := NewReviewHandler(&stubReviewService{contribution: &models.Contribution{
			Status:      models.StatusScheduled,
			CurrentStep: models.StepOutlineReview,
			Review:      &models.ReviewState{Status: models.ReviewStatusApproved},
		}}, zap.NewNop())

		body := `{"id":"` + uuid.NewString() + `","action":"approve","note":"ship it"}`
		req := authedRequest(http.MethodPost, "/api/admin/review-action", body, "admin-1", "admin@example.com")
		rec := httptest.NewRecorder()
		h.ReviewAction(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		payload := decodeEnvelope(t, rec)
		data := payload["data"].(map[string]any)
		assert.Equal(t, "scheduled", data["status"])
		review := data["review"].(map[string]any)
		assert.Equal(t, "approved", review["status"])
	})

	t.Run("invalid action maps to 400", func(t *testing.T) {
		h := NewReviewHandler(&stubReviewService{err: apperrors.ErrInvalidReviewAction}, zap.NewNop())

		body := `{"id":"` + uuid.NewString() + `","action":"publish"}`
		req := authedRequest(http.MethodPost, "/api/admin/review-action", body, "admin-1", "admin@example.com")
		rec := httptest.NewRecorder()
		h.ReviewAction(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown contribution maps to 404", func(t *testing.T) {
		h := NewReviewHandler(&stubReviewService{err: apperrors.ErrNotFound}, zap.NewNop())

		body := `{"id":"` + uuid.NewString() + `","action":"approve"}`
		req := authedRequest(http.MethodPost, "/api/admin/review-action", body, "admin-1", "admin@example.com")
		rec := httptest.NewRecorder()
		h.ReviewAction(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-uuid id rejected", func(t *testing.T) {
		h := NewReviewHandler(&stubReviewService{}, zap.NewNop())

		req := authedRequest(http.MethodPost, "/api/admin/review-action", `{"id":"42","action":"approve"}`, "admin-1", "")
		rec := httptest.NewRecorder()
		h.ReviewAction(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReviewAnnotationHandler(t *testing.T) {
	t.Run("returns accumulated annotations", func(t *testing.T) {
		h := NewReviewHandler(&stubReviewService{contribution: &models.Contribution{
			Review: &models.ReviewState{
				Status: models.ReviewStatusPending,
				Annotations: []models.ReviewAnnotation{
					{Start: 0, End: 5, Note: "intro"},
					{Start: 10, End: 25, Note: "numbers"},
				},
			},
		}}, zap.NewNop())

		body := `{"id":"` + uuid.NewString() + `","start":10,"end":25,"note":"numbers"}`
		req := authedRequest(http.MethodPost, "/api/admin/review-annotation", body, "admin-1", "admin@example.com")
		rec := httptest.NewRecorder()
		h.ReviewAnnotation(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		payload := decodeEnvelope(t, rec)
		data := payload["data"].(map[string]any)
		annotations := data["annotations"].([]any)
		assert.Len(t, annotations, 2)
	})

	t.Run("invalid range maps to 400", func(t *testing.T) {
		h := NewReviewHandler(&stubReviewService{err: apperrors.ErrInvalidAnnotationRange}, zap.NewNop())

		body := `{"id":"` + uuid.NewString() + `","start":9,"end":3,"note":"n"}`
		req := authedRequest(http.MethodPost, "/api/admin/review-annotation", body, "admin-1", "")
		rec := httptest.NewRecorder()
		h.ReviewAnnotation(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
