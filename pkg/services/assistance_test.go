package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/apperrors"
	"github.com/veritaslearn/contributor-engine/pkg/config"
	"github.com/veritaslearn/contributor-engine/pkg/llm"
	"github.com/veritaslearn/contributor-engine/pkg/models"
)

func newTestAssistanceService(chat, synthesis llm.Client, discovery SourceDiscoveryService, limiter RateLimiter) AssistanceService {
	return NewAssistanceService(chat, synthesis, discovery, limiter, NewSuggestionCache(time.Hour), time.Second, zap.NewNop())
}

func suggestionsJSON() string {
	return `{"suggestions":[{"text":"The Phoenix Project rollout","detail":"internal migration story"}]}`
}

func TestFindAssistance(t *testing.T) {
	ctx := context.Background()
	actx := models.AssistanceContext{Topic: "incident response", Thesis: "runbooks rot"}

	t.Run("gemini-backed types return suggestions", func(t *testing.T) {
		mock := llm.NewMockClient()
		mock.Model = "gemini-2.0-flash"
		mock.GenerateResponseFunc = func(context.Context, string, string, float64) (string, error) {
			return suggestionsJSON(), nil
		}
		limiter := &unlimitedLimiter{}
		svc := newTestAssistanceService(mock, nil, nil, limiter)

		res, err := svc.FindAssistance(ctx, "user-1", "need a war story", models.AssistanceExamples, actx, "en")
		require.NoError(t, err)

		assert.False(t, res.Cached)
		require.Len(t, res.Result.Suggestions, 1)
		assert.Equal(t, "The Phoenix Project rollout", res.Result.Suggestions[0].Text)
		assert.Equal(t, "gemini-2.0-flash", res.Result.Model)
		assert.Equal(t, 1, limiter.calls)
	})

	t.Run("repeat lookup served from cache without quota", func(t *testing.T) {
		mock := llm.NewMockClient()
		mock.GenerateResponseFunc = func(context.Context, string, string, float64) (string, error) {
			return suggestionsJSON(), nil
		}
		limiter := &unlimitedLimiter{}
		svc := newTestAssistanceService(mock, nil, nil, limiter)

		_, err := svc.FindAssistance(ctx, "user-1", "need a war story", models.AssistanceExamples, actx, "en")
		require.NoError(t, err)
		res, err := svc.FindAssistance(ctx, "user-1", "need a war story", models.AssistanceExamples, actx, "en")
		require.NoError(t, err)

		assert.True(t, res.Cached)
		assert.Equal(t, 1, limiter.calls)
		assert.Equal(t, 1, mock.GenerateResponseCalls)
	})

	t.Run("cache keys are scoped per user", func(t *testing.T) {
		mock := llm.NewMockClient()
		mock.GenerateResponseFunc = func(context.Context, string, string, float64) (string, error) {
			return suggestionsJSON(), nil
		}
		limiter := &unlimitedLimiter{}
		svc := newTestAssistanceService(mock, nil, nil, limiter)

		_, err := svc.FindAssistance(ctx, "user-1", "q", models.AssistanceClaims, actx, "")
		require.NoError(t, err)
		res, err := svc.FindAssistance(ctx, "user-2", "q", models.AssistanceClaims, actx, "")
		require.NoError(t, err)

		assert.False(t, res.Cached)
		assert.Equal(t, 2, limiter.calls)
	})

	t.Run("sources type routes through discovery", func(t *testing.T) {
		searchMock := llm.NewMockClient()
		searchMock.Model = "sonar"
		searchMock.GenerateResponseFunc = func(context.Context, string, string, float64) (string, error) {
			return `{"sources":[{"title":"SRE book","url":"https://sre.google/books","snippet":"ch 14"}]}`, nil
		}
		discovery := NewSourceDiscoveryService(searchMock, time.Second, zap.NewNop())
		chatMock := llm.NewMockClient()
		svc := newTestAssistanceService(chatMock, nil, discovery, &unlimitedLimiter{})

		res, err := svc.FindAssistance(ctx, "user-1", "citations on toil", models.AssistanceSources, actx, "")
		require.NoError(t, err)

		require.Len(t, res.Result.Suggestions, 1)
		assert.Equal(t, "SRE book", res.Result.Suggestions[0].Text)
		assert.Equal(t, "https://sre.google/books", res.Result.Suggestions[0].URL)
		assert.Equal(t, "sonar", res.Result.Model)
		assert.Equal(t, 0, chatMock.GenerateResponseCalls)
	})

	t.Run("invalid type and empty query rejected", func(t *testing.T) {
		svc := newTestAssistanceService(llm.NewMockClient(), nil, nil, &unlimitedLimiter{})

		_, err := svc.FindAssistance(ctx, "user-1", "q", models.AssistanceType("poems"), actx, "")
		_, ok := apperrors.IsValidation(err)
		assert.True(t, ok)

		_, err = svc.FindAssistance(ctx, "user-1", "  ", models.AssistanceExamples, actx, "")
		_, ok = apperrors.IsValidation(err)
		assert.True(t, ok)
	})

	t.Run("unconfigured chat provider returns sentinel without consuming quota", func(t *testing.T) {
		limiter := &unlimitedLimiter{}
		svc := newTestAssistanceService(nil, nil, nil, limiter)

		_, err := svc.FindAssistance(ctx, "user-1", "need a war story", models.AssistanceExamples, actx, "en")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrProviderNotConfigured))
		assert.Equal(t, 0, limiter.calls)
	})

	t.Run("quota denial propagates and nothing is cached", func(t *testing.T) {
		mock := llm.NewMockClient()
		svc := newTestAssistanceService(mock, nil, nil, &exhaustedLimiter{})

		_, err := svc.FindAssistance(ctx, "user-1", "q", models.AssistanceExamples, actx, "")
		_, ok := apperrors.IsRateLimit(err)
		assert.True(t, ok)
		assert.Equal(t, 0, mock.GenerateResponseCalls)
	})
}

func TestGenerateAnswerFromSources(t *testing.T) {
	ctx := context.Background()
	brief := models.ContributorBrief{Topic: "t", Thesis: "th"}
	suggestions := []models.AssistanceSuggestion{{Text: "handbook", URL: "https://example.com"}}

	t.Run("drafts an answer from selected material", func(t *testing.T) {
		synthesis := llm.NewMockClient()
		synthesis.Model = "claude-3-5-haiku-latest"
		synthesis.GenerateResponseFunc = func(context.Context, string, string, float64) (string, error) {
			return "  We documented everything in a public handbook.  ", nil
		}
		limiter := &unlimitedLimiter{}
		svc := newTestAssistanceService(llm.NewMockClient(), synthesis, nil, limiter)

		answer, model, err := svc.GenerateAnswerFromSources(ctx, "user-1", brief, "How do you share knowledge?", nil, suggestions, "en")
		require.NoError(t, err)

		assert.Equal(t, "We documented everything in a public handbook.", answer)
		assert.Equal(t, "claude-3-5-haiku-latest", model)
		assert.Equal(t, 1, limiter.calls)
	})

	t.Run("empty suggestions never synthesized", func(t *testing.T) {
		synthesis := llm.NewMockClient()
		svc := newTestAssistanceService(llm.NewMockClient(), synthesis, nil, &unlimitedLimiter{})

		_, _, err := svc.GenerateAnswerFromSources(ctx, "user-1", brief, "q?", nil, nil, "")
		assert.True(t, errors.Is(err, apperrors.ErrEmptySuggestions))
		assert.Equal(t, 0, synthesis.GenerateResponseCalls)
	})

	t.Run("unconfigured synthesis provider", func(t *testing.T) {
		svc := newTestAssistanceService(llm.NewMockClient(), nil, nil, &unlimitedLimiter{})

		_, _, err := svc.GenerateAnswerFromSources(ctx, "user-1", brief, "q?", nil, suggestions, "")
		assert.True(t, errors.Is(err, apperrors.ErrProviderNotConfigured))
	})

	t.Run("quota consumed on the synthesis feature", func(t *testing.T) {
		svc := newTestAssistanceService(llm.NewMockClient(), llm.NewMockClient(), nil, &exhaustedLimiter{})

		_, _, err := svc.GenerateAnswerFromSources(ctx, "user-1", brief, "q?", nil, suggestions, "")
		rle, ok := apperrors.IsRateLimit(err)
		require.True(t, ok)
		assert.Equal(t, config.FeatureAnswerSynthesis, rle.Feature)
		assert.Equal(t, config.ProviderAnthropic, rle.Provider)
	})
}

func TestSuggestionCacheTTL(t *testing.T) {
	cache := NewSuggestionCache(time.Hour).(*ttlSuggestionCache)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	cache.now = func() time.Time { return now }

	result := &models.AssistanceResult{Model: "m"}
	cache.Set("k", result)

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Same(t, result, got)

	now = base.Add(59 * time.Minute)
	_, ok = cache.Get("k")
	assert.True(t, ok)

	now = base.Add(61 * time.Minute)
	_, ok = cache.Get("k")
	assert.False(t, ok, "entries expire after the TTL")
}
