package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/apperrors"
	"github.com/veritaslearn/contributor-engine/pkg/config"
	"github.com/veritaslearn/contributor-engine/pkg/llm"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/prompts"
	"github.com/veritaslearn/contributor-engine/pkg/retry"
)

// AssistanceResponse wraps a result with cache provenance for the handler.
type AssistanceResponse struct {
	Result *models.AssistanceResult
	Cached bool
}

// AssistanceService helps a stuck contributor with typed suggestions and can
// draft an answer grounded in material they selected.
type AssistanceService interface {
	// FindAssistance returns suggestions for the query, serving repeats from
	// a short-lived per-user cache. Cache hits cost no quota.
	FindAssistance(ctx context.Context, userID, query string, assistanceType models.AssistanceType, actx models.AssistanceContext, language string) (*AssistanceResponse, error)

	// GenerateAnswerFromSources drafts an interview answer grounded
	// exclusively in the supplied suggestions.
	GenerateAnswerFromSources(ctx context.Context, userID string, brief models.ContributorBrief, question string, history []models.InterviewQnA, suggestions []models.AssistanceSuggestion, language string) (string, string, error)
}

type assistanceService struct {
	chatClient      llm.Client
	synthesisClient llm.Client
	discovery       SourceDiscoveryService
	limiter         RateLimiter
	cache           SuggestionCache
	callTimeout     time.Duration
	logger          *zap.Logger
}

// NewAssistanceService creates an AssistanceService. chatClient serves
// examples/claims/definition lookups, synthesisClient drafts answers, and
// source-type lookups route through the discovery service. synthesisClient
// may be nil when the provider is unconfigured.
func NewAssistanceService(chatClient llm.Client, synthesisClient llm.Client, discovery SourceDiscoveryService, limiter RateLimiter, cache SuggestionCache, callTimeout time.Duration, logger *zap.Logger) AssistanceService {
	return &assistanceService{
		chatClient:      chatClient,
		synthesisClient: synthesisClient,
		discovery:       discovery,
		limiter:         limiter,
		cache:           cache,
		callTimeout:     callTimeout,
		logger:          logger.Named("assistance"),
	}
}

var _ AssistanceService = (*assistanceService)(nil)

type suggestionListResponse struct {
	Suggestions []models.AssistanceSuggestion `json:"suggestions"`
}

func (s *assistanceService) FindAssistance(ctx context.Context, userID, query string, assistanceType models.AssistanceType, actx models.AssistanceContext, language string) (*AssistanceResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.NewValidation("query", "query is required")
	}
	if !models.IsValidAssistanceType(assistanceType) {
		return nil, apperrors.NewValidation("type", fmt.Sprintf("unsupported assistance type %q", assistanceType))
	}

	key := assistanceCacheKey(userID, query, assistanceType, actx, language)
	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug("assistance cache hit", zap.String("type", string(assistanceType)))
		return &AssistanceResponse{Result: cached, Cached: true}, nil
	}

	provider := config.ProviderGemini
	if assistanceType == models.AssistanceSources {
		provider = config.ProviderPerplexity
	} else if s.chatClient == nil {
		// An unconfigured provider must not cost quota. The sources path
		// checks its own client inside the discovery service.
		return nil, apperrors.ErrProviderNotConfigured
	}
	if _, err := s.limiter.CheckAndConsume(ctx, userID, provider, config.FeatureFindAssistance); err != nil {
		return nil, err
	}

	var result *models.AssistanceResult
	var err error
	if assistanceType == models.AssistanceSources {
		result, err = s.findSources(ctx, query, actx, language)
	} else {
		result, err = s.findSuggestions(ctx, query, assistanceType, actx, language)
	}
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, result)
	return &AssistanceResponse{Result: result, Cached: false}, nil
}

func (s *assistanceService) findSuggestions(ctx context.Context, query string, assistanceType models.AssistanceType, actx models.AssistanceContext, language string) (*models.AssistanceResult, error) {
	prompt := prompts.BuildAssistancePrompt(query, assistanceType, actx, language)

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	raw, err := retry.DoWithResult(callCtx, retry.DefaultConfig(), func() (string, error) {
		return s.chatClient.GenerateResponse(callCtx, prompt, prompts.AssistanceSystemMessage, 0.8)
	})
	if err != nil {
		s.logger.Error("assistance call failed", zap.String("type", string(assistanceType)), zap.Error(err))
		return nil, fmt.Errorf("find assistance: %w", err)
	}

	parsed, err := llm.DecodeJSON[suggestionListResponse](raw)
	if err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}

	return &models.AssistanceResult{
		Suggestions: parsed.Suggestions,
		Model:       s.chatClient.GetModel(),
	}, nil
}

// findSources reuses the discovery engine so source suggestions carry real
// URLs instead of model recall.
func (s *assistanceService) findSources(ctx context.Context, query string, actx models.AssistanceContext, language string) (*models.AssistanceResult, error) {
	brief := models.ContributorBrief{Topic: actx.Topic, Thesis: actx.Thesis}
	history := []models.InterviewQnA{{Question: "assistance query", Answer: query}}

	data, model, err := s.discovery.DiscoverSources(ctx, brief, history, language)
	if err != nil {
		return nil, err
	}

	suggestions := make([]models.AssistanceSuggestion, 0, len(data.Sources))
	for _, src := range data.Sources {
		suggestions = append(suggestions, models.AssistanceSuggestion{
			Text:   src.Title,
			Detail: src.Snippet,
			URL:    src.URL,
		})
	}
	return &models.AssistanceResult{Suggestions: suggestions, Model: model}, nil
}

func (s *assistanceService) GenerateAnswerFromSources(ctx context.Context, userID string, brief models.ContributorBrief, question string, history []models.InterviewQnA, suggestions []models.AssistanceSuggestion, language string) (string, string, error) {
	if strings.TrimSpace(question) == "" {
		return "", "", apperrors.NewValidation("question", "question is required")
	}
	if len(suggestions) == 0 {
		return "", "", apperrors.ErrEmptySuggestions
	}
	if s.synthesisClient == nil {
		return "", "", apperrors.ErrProviderNotConfigured
	}

	if _, err := s.limiter.CheckAndConsume(ctx, userID, config.ProviderAnthropic, config.FeatureAnswerSynthesis); err != nil {
		return "", "", err
	}

	prompt := prompts.BuildAnswerSynthesisPrompt(brief, question, history, suggestions, language)

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	answer, err := retry.DoWithResult(callCtx, retry.DefaultConfig(), func() (string, error) {
		return s.synthesisClient.GenerateResponse(callCtx, prompt, prompts.AnswerSynthesisSystemMessage, 0.6)
	})
	if err != nil {
		s.logger.Error("answer synthesis failed", zap.Error(err))
		return "", "", fmt.Errorf("generate answer: %w", err)
	}

	return strings.TrimSpace(answer), s.synthesisClient.GetModel(), nil
}
