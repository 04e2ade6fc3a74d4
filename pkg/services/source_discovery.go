package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/apperrors"
	"github.com/veritaslearn/contributor-engine/pkg/llm"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/prompts"
	"github.com/veritaslearn/contributor-engine/pkg/retry"
)

const maxDiscoveredSources = 8

// SourceDiscoveryService finds citable sources for a contribution through a
// search-grounded model. It never fabricates results: an upstream failure is
// reported as unavailable rather than papered over.
type SourceDiscoveryService interface {
	// DiscoverSources searches for sources supporting the brief and the
	// answered interview turns. Returns the snapshot and the model used.
	DiscoverSources(ctx context.Context, brief models.ContributorBrief, history []models.InterviewQnA, language string) (*models.SourceDiscoveryData, string, error)
}

type sourceDiscoveryService struct {
	searchClient llm.Client
	callTimeout  time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewSourceDiscoveryService creates a SourceDiscoveryService on top of the
// Perplexity chat client. searchClient may be nil when the provider is
// unconfigured; every call then fails with ErrProviderNotConfigured.
func NewSourceDiscoveryService(searchClient llm.Client, callTimeout time.Duration, logger *zap.Logger) SourceDiscoveryService {
	return &sourceDiscoveryService{
		searchClient: searchClient,
		callTimeout:  callTimeout,
		logger:       logger.Named("source_discovery"),
		now:          time.Now,
	}
}

var _ SourceDiscoveryService = (*sourceDiscoveryService)(nil)

type sourceListResponse struct {
	Sources []models.Source `json:"sources"`
}

func (s *sourceDiscoveryService) DiscoverSources(ctx context.Context, brief models.ContributorBrief, history []models.InterviewQnA, language string) (*models.SourceDiscoveryData, string, error) {
	if s.searchClient == nil {
		return nil, "", apperrors.ErrProviderNotConfigured
	}
	if !brief.IsComplete() {
		return nil, "", apperrors.NewValidation("brief", "topic and thesis are required")
	}

	query := prompts.BuildSourceDiscoveryQuery(brief, history, language)
	prompt := prompts.BuildSourceDiscoveryPrompt(query, maxDiscoveredSources)

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	raw, err := retry.DoWithResult(callCtx, retry.DefaultConfig(), func() (string, error) {
		return s.searchClient.GenerateResponse(callCtx, prompt, prompts.SourceDiscoverySystemMessage, 0.2)
	})
	if err != nil {
		s.logger.Error("source discovery upstream failed", zap.Error(err))
		return nil, "", fmt.Errorf("%w: %w", apperrors.ErrSourceDiscoveryUnavailable, err)
	}

	parsed, err := llm.DecodeJSON[sourceListResponse](raw)
	if err != nil {
		s.logger.Error("source discovery returned unparseable output", zap.Error(err))
		return nil, "", fmt.Errorf("%w: %w", apperrors.ErrSourceDiscoveryUnavailable, err)
	}

	sources := normalizeSources(parsed.Sources)
	s.logger.Debug("discovered sources",
		zap.Int("returned", len(parsed.Sources)),
		zap.Int("kept", len(sources)))

	return &models.SourceDiscoveryData{
		Sources:      sources,
		DiscoveredAt: s.now().UTC(),
		SearchQuery:  query,
	}, s.searchClient.GetModel(), nil
}

// normalizeSources drops entries without a usable URL, trims fields, clamps
// authority scores into [0,1], and caps the list.
func normalizeSources(in []models.Source) []models.Source {
	out := make([]models.Source, 0, len(in))
	for _, src := range in {
		src.Title = strings.TrimSpace(src.Title)
		src.URL = strings.TrimSpace(src.URL)
		src.Snippet = strings.TrimSpace(src.Snippet)

		if src.URL == "" || !strings.HasPrefix(src.URL, "http") {
			continue
		}
		if src.Title == "" {
			src.Title = src.URL
		}
		if src.AuthorityScore < 0 {
			src.AuthorityScore = 0
		}
		if src.AuthorityScore > 1 {
			src.AuthorityScore = 1
		}

		out = append(out, src)
		if len(out) == maxDiscoveredSources {
			break
		}
	}
	return out
}
