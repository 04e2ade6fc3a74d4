package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/apperrors"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/repositories"
)

// ContributionService manages the contribution lifecycle on behalf of
// contributors: wizard start, interview turns, and discovery snapshots.
type ContributionService interface {
	// Create starts the wizard with a validated brief.
	Create(ctx context.Context, contributorID string, brief models.ContributorBrief) (*models.Contribution, error)

	// Get returns the contribution. Non-owners need admin rights, which the
	// caller asserts via isAdmin.
	Get(ctx context.Context, id uuid.UUID, requesterID string, isAdmin bool) (*models.Contribution, error)

	// AppendInterviewTurn appends one Q&A turn to the ordered history.
	AppendInterviewTurn(ctx context.Context, id uuid.UUID, contributorID string, turn models.InterviewQnA) (*models.Contribution, error)

	// AttachSourceDiscovery stores a discovery snapshot on the contribution.
	AttachSourceDiscovery(ctx context.Context, id uuid.UUID, contributorID string, data *models.SourceDiscoveryData) (*models.Contribution, error)

	// ListForContributor returns the contributor's contributions, newest first.
	ListForContributor(ctx context.Context, contributorID string) ([]*models.Contribution, error)
}

type contributionService struct {
	repo   repositories.ContributionRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewContributionService creates a ContributionService.
func NewContributionService(repo repositories.ContributionRepository, logger *zap.Logger) ContributionService {
	return &contributionService{
		repo:   repo,
		logger: logger.Named("contribution"),
		now:    time.Now,
	}
}

var _ ContributionService = (*contributionService)(nil)

func (s *contributionService) Create(ctx context.Context, contributorID string, brief models.ContributorBrief) (*models.Contribution, error) {
	brief.Topic = strings.TrimSpace(brief.Topic)
	brief.Thesis = strings.TrimSpace(brief.Thesis)
	if brief.Topic == "" {
		return nil, apperrors.NewValidation("topic", "topic is required")
	}
	if brief.Thesis == "" {
		return nil, apperrors.NewValidation("thesis", "thesis is required")
	}

	now := s.now().UTC()
	contribution := &models.Contribution{
		ID:               uuid.New(),
		ContributorID:    contributorID,
		Brief:            brief,
		InterviewHistory: []models.InterviewQnA{},
		Status:           models.StatusDraft,
		CurrentStep:      models.StepDraftSubmission,
		StatusHistory: []models.StatusHistoryEntry{{
			Status:      models.StatusDraft,
			CurrentStep: models.StepDraftSubmission,
			ChangedAt:   now,
			ChangedBy:   contributorID,
			Note:        "wizard started",
		}},
		ReviewHistory: []models.ReviewHistoryEntry{},
		CreatedAt:     now,
	}

	if err := s.repo.Create(ctx, contribution); err != nil {
		return nil, err
	}

	s.logger.Info("contribution created",
		zap.String("contribution_id", contribution.ID.String()),
		zap.String("contributor_id", contributorID))

	return contribution, nil
}

func (s *contributionService) Get(ctx context.Context, id uuid.UUID, requesterID string, isAdmin bool) (*models.Contribution, error) {
	contribution, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contribution.ContributorID != requesterID && !isAdmin {
		return nil, apperrors.ErrForbidden
	}
	return contribution, nil
}

func (s *contributionService) AppendInterviewTurn(ctx context.Context, id uuid.UUID, contributorID string, turn models.InterviewQnA) (*models.Contribution, error) {
	if strings.TrimSpace(turn.Question) == "" {
		return nil, apperrors.NewValidation("question", "question is required")
	}

	contribution, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contribution.ContributorID != contributorID {
		return nil, apperrors.ErrForbidden
	}

	// History is append-only and ordered; turns are never reordered or
	// rewritten after the fact.
	contribution.InterviewHistory = append(contribution.InterviewHistory, turn)
	if contribution.CurrentStep == models.StepDraftSubmission {
		contribution.CurrentStep = models.StepInterview
	}

	if err := s.repo.Update(ctx, contribution); err != nil {
		return nil, err
	}
	return contribution, nil
}

func (s *contributionService) AttachSourceDiscovery(ctx context.Context, id uuid.UUID, contributorID string, data *models.SourceDiscoveryData) (*models.Contribution, error) {
	contribution, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contribution.ContributorID != contributorID {
		return nil, apperrors.ErrForbidden
	}

	contribution.SourceDiscovery = data
	if err := s.repo.Update(ctx, contribution); err != nil {
		return nil, err
	}
	return contribution, nil
}

func (s *contributionService) ListForContributor(ctx context.Context, contributorID string) ([]*models.Contribution, error) {
	return s.repo.ListByContributor(ctx, contributorID)
}
