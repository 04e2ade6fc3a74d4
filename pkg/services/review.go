package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/apperrors"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/repositories"
)

// ReviewService applies admin review decisions to contributions. Every
// decision appends exactly one status-history entry and one review-history
// entry, persisted in the same update.
type ReviewService interface {
	// ApplyReviewAction executes an approve/reject/changes decision.
	ApplyReviewAction(ctx context.Context, id uuid.UUID, action models.ReviewAction, note, reviewerEmail string) (*models.Contribution, error)

	// AddAnnotation attaches an inline comment to a draft range without
	// changing the contribution's status.
	AddAnnotation(ctx context.Context, id uuid.UUID, start, end int, note, reviewerEmail string) (*models.Contribution, error)
}

type reviewService struct {
	repo   repositories.ContributionRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewReviewService creates a ReviewService.
func NewReviewService(repo repositories.ContributionRepository, logger *zap.Logger) ReviewService {
	return &reviewService{
		repo:   repo,
		logger: logger.Named("review"),
		now:    time.Now,
	}
}

var _ ReviewService = (*reviewService)(nil)

func (s *reviewService) ApplyReviewAction(ctx context.Context, id uuid.UUID, action models.ReviewAction, note, reviewerEmail string) (*models.Contribution, error) {
	if !models.IsValidReviewAction(action) {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidReviewAction, action)
	}

	contribution, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var reviewStatus models.ReviewStatus

	switch action {
	case models.ReviewActionApprove:
		// Approval schedules the contribution for publishing; the wizard
		// cursor stays where the contributor left it.
		contribution.Status = models.StatusScheduled
		reviewStatus = models.ReviewStatusApproved
	case models.ReviewActionReject:
		contribution.Status = models.StatusDraft
		contribution.CurrentStep = models.StepDraftSubmission
		reviewStatus = models.ReviewStatusRejected
	case models.ReviewActionChanges:
		contribution.Status = models.StatusDraft
		contribution.CurrentStep = models.StepDraftSubmission
		reviewStatus = models.ReviewStatusChangesRequested
	}

	if contribution.Review == nil {
		contribution.Review = &models.ReviewState{}
	}
	contribution.Review.Status = reviewStatus
	contribution.Review.Note = note
	contribution.Review.UpdatedAt = now
	contribution.Review.ReviewerEmail = reviewerEmail

	// Paired audit entries: both histories record the same decision and
	// land in one repository update.
	contribution.StatusHistory = append(contribution.StatusHistory, models.StatusHistoryEntry{
		Status:      contribution.Status,
		CurrentStep: contribution.CurrentStep,
		ChangedAt:   now,
		ChangedBy:   reviewerEmail,
		Note:        note,
	})
	contribution.ReviewHistory = append(contribution.ReviewHistory, models.ReviewHistoryEntry{
		Action:        action,
		Status:        reviewStatus,
		Note:          note,
		UpdatedAt:     now,
		ReviewerEmail: reviewerEmail,
	})

	if err := s.repo.Update(ctx, contribution); err != nil {
		return nil, err
	}

	s.logger.Info("review action applied",
		zap.String("contribution_id", id.String()),
		zap.String("action", string(action)),
		zap.String("reviewer", reviewerEmail))

	return contribution, nil
}

func (s *reviewService) AddAnnotation(ctx context.Context, id uuid.UUID, start, end int, note, reviewerEmail string) (*models.Contribution, error) {
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: [%d, %d)", apperrors.ErrInvalidAnnotationRange, start, end)
	}
	if strings.TrimSpace(note) == "" {
		return nil, apperrors.NewValidation("note", "annotation note is required")
	}

	contribution, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if contribution.Review == nil {
		contribution.Review = &models.ReviewState{Status: models.ReviewStatusPending}
	}
	// Annotations accumulate and never alter the review decision.
	contribution.Review.Annotations = append(contribution.Review.Annotations, models.ReviewAnnotation{
		Start:         start,
		End:           end,
		Note:          note,
		ReviewerEmail: reviewerEmail,
		CreatedAt:     now,
	})
	contribution.Review.UpdatedAt = now

	contribution.ReviewHistory = append(contribution.ReviewHistory, models.ReviewHistoryEntry{
		Action:        models.ReviewActionAnnotation,
		Status:        contribution.Review.Status,
		Note:          note,
		UpdatedAt:     now,
		ReviewerEmail: reviewerEmail,
	})

	if err := s.repo.Update(ctx, contribution); err != nil {
		return nil, err
	}

	return contribution, nil
}
