package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/apperrors"
	"github.com/veritaslearn/contributor-engine/pkg/config"
	"github.com/veritaslearn/contributor-engine/pkg/llm"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/prompts"
	"github.com/veritaslearn/contributor-engine/pkg/retry"
)

// QuestionGenerationOptions tunes one generation call.
type QuestionGenerationOptions struct {
	// ForceComplete ends the interview without asking the model anything.
	ForceComplete bool
	// MaxQuestions overrides the configured default when > 0. Values above
	// the configured absolute ceiling are clamped.
	MaxQuestions int
}

// QuestionGenerationResult is the engine's answer to "what should we ask next".
type QuestionGenerationResult struct {
	Questions          []models.GeneratedQuestion `json:"questions"`
	ReadyForOutline    bool                       `json:"readyForOutline"`
	MissingDataPoints  []string                   `json:"missingDataPoints,omitempty"`
	CoverageAssessment string                     `json:"coverageAssessment,omitempty"`
	QuestionNumber     int                        `json:"questionNumber"`
	MaxQuestions       int                        `json:"maxQuestions"`
	Progress           int                        `json:"progressPercentage"`
	Model              string                     `json:"model,omitempty"`
}

// QuestionService generates the next interview questions adaptively from the
// brief and the conversation so far.
type QuestionService interface {
	GenerateNextQuestions(ctx context.Context, userID string, brief models.ContributorBrief, history []models.InterviewQnA, language string, opts QuestionGenerationOptions) (*QuestionGenerationResult, error)
}

type questionService struct {
	llmClient   llm.Client
	limiter     RateLimiter
	cfg         *config.InterviewConfig
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewQuestionService creates a QuestionService on top of the Gemini chat
// client. Every generation consumes question_generation quota first.
func NewQuestionService(llmClient llm.Client, limiter RateLimiter, cfg *config.InterviewConfig, callTimeout time.Duration, logger *zap.Logger) QuestionService {
	return &questionService{
		llmClient:   llmClient,
		limiter:     limiter,
		cfg:         cfg,
		callTimeout: callTimeout,
		logger:      logger.Named("question_generation"),
	}
}

var _ QuestionService = (*questionService)(nil)

// questionBatchResponse is the JSON schema the model is asked to produce.
type questionBatchResponse struct {
	Questions          []models.GeneratedQuestion `json:"questions"`
	ReadyForOutline    bool                       `json:"ready_for_outline"`
	MissingDataPoints  []string                   `json:"missing_data_points"`
	CoverageAssessment string                     `json:"coverage_assessment"`
}

func (s *questionService) GenerateNextQuestions(ctx context.Context, userID string, brief models.ContributorBrief, history []models.InterviewQnA, language string, opts QuestionGenerationOptions) (*QuestionGenerationResult, error) {
	maxQuestions := s.cfg.DefaultMaxQuestions
	if opts.MaxQuestions > 0 {
		maxQuestions = opts.MaxQuestions
	}
	if maxQuestions > s.cfg.AbsoluteMaxQuestions {
		maxQuestions = s.cfg.AbsoluteMaxQuestions
	}

	questionNumber := len(history) + 1
	result := &QuestionGenerationResult{
		Questions:      []models.GeneratedQuestion{},
		QuestionNumber: questionNumber,
		MaxQuestions:   maxQuestions,
		Progress:       interviewProgress(history, maxQuestions),
	}

	// Interview-over short circuits never touch the model or the quota.
	if opts.ForceComplete || questionNumber > maxQuestions {
		result.ReadyForOutline = true
		return result, nil
	}

	// An unconfigured provider must not cost quota.
	if s.llmClient == nil {
		return nil, apperrors.ErrProviderNotConfigured
	}

	if _, err := s.limiter.CheckAndConsume(ctx, userID, config.ProviderGemini, config.FeatureQuestionGeneration); err != nil {
		return nil, err
	}

	prompt := prompts.BuildQuestionGenerationPrompt(brief, history, language, questionNumber, maxQuestions, s.cfg.MaxQuestionsPerBatch)

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	raw, err := retry.DoWithResult(callCtx, retry.DefaultConfig(), func() (string, error) {
		return s.llmClient.GenerateResponse(callCtx, prompt, prompts.QuestionGenerationSystemMessage, 0.7)
	})
	if err != nil {
		s.logger.Error("question generation call failed",
			zap.Int("question_number", questionNumber),
			zap.Error(err))
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	parsed, err := llm.DecodeJSON[questionBatchResponse](raw)
	if err != nil {
		s.logger.Error("question generation returned unparseable output", zap.Error(err))
		return nil, fmt.Errorf("decode question batch: %w", err)
	}

	questions := parsed.Questions
	if len(questions) > s.cfg.MaxQuestionsPerBatch {
		questions = questions[:s.cfg.MaxQuestionsPerBatch]
	}
	if questions == nil {
		questions = []models.GeneratedQuestion{}
	}

	result.Questions = questions
	result.ReadyForOutline = parsed.ReadyForOutline || len(questions) == 0
	result.MissingDataPoints = parsed.MissingDataPoints
	result.CoverageAssessment = parsed.CoverageAssessment
	result.Model = s.llmClient.GetModel()

	s.logger.Debug("generated question batch",
		zap.Int("question_number", questionNumber),
		zap.Int("batch_size", len(questions)),
		zap.Bool("ready_for_outline", result.ReadyForOutline))

	return result, nil
}

// interviewProgress reports answered turns against the ceiling as a 0-100
// percentage, capped at 100.
func interviewProgress(history []models.InterviewQnA, maxQuestions int) int {
	if maxQuestions <= 0 {
		return 100
	}
	answered := 0
	for _, qa := range history {
		if qa.Answer != "" {
			answered++
		}
	}
	p := answered * 100 / maxQuestions
	if p > 100 {
		p = 100
	}
	return p
}
