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
	"github.com/veritaslearn/contributor-engine/pkg/models"
)

func TestContributionCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("starts the wizard in draft", func(t *testing.T) {
		repo := newFakeContributionRepo()
		svc := NewContributionService(repo, zap.NewNop())

		c, err := svc.Create(ctx, "user-1", models.ContributorBrief{Topic: "  k8s costs  ", Thesis: "idle waste"})
		require.NoError(t, err)

		assert.Equal(t, models.StatusDraft, c.Status)
		assert.Equal(t, models.StepDraftSubmission, c.CurrentStep)
		assert.Equal(t, "k8s costs", c.Brief.Topic)
		assert.Empty(t, c.InterviewHistory)
		require.Len(t, c.StatusHistory, 1)
		assert.Equal(t, "user-1", c.StatusHistory[0].ChangedBy)
	})

	t.Run("incomplete brief rejected", func(t *testing.T) {
		svc := NewContributionService(newFakeContributionRepo(), zap.NewNop())

		_, err := svc.Create(ctx, "user-1", models.ContributorBrief{Topic: "only topic"})
		ve, ok := apperrors.IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "thesis", ve.Field)

		_, err = svc.Create(ctx, "user-1", models.ContributorBrief{Thesis: "only thesis"})
		ve, ok = apperrors.IsValidation(err)
		require.True(t, ok)
		assert.Equal(t, "topic", ve.Field)
	})
}

func TestContributionGet(t *testing.T) {
	ctx := context.Background()
	repo := newFakeContributionRepo()
	c := seedContribution(repo, models.StatusDraft, models.StepInterview)
	svc := NewContributionService(repo, zap.NewNop())

	t.Run("owner can read", func(t *testing.T) {
		got, err := svc.Get(ctx, c.ID, "user-1", false)
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
	})

	t.Run("admin can read another user's contribution", func(t *testing.T) {
		_, err := svc.Get(ctx, c.ID, "admin-7", true)
		assert.NoError(t, err)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		_, err := svc.Get(ctx, c.ID, "user-2", false)
		assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	})
}

func TestAppendInterviewTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("turns append in order", func(t *testing.T) {
		repo := newFakeContributionRepo()
		c := seedContribution(repo, models.StatusDraft, models.StepDraftSubmission)
		svc := NewContributionService(repo, zap.NewNop())

		_, err := svc.AppendInterviewTurn(ctx, c.ID, "user-1", models.InterviewQnA{Question: "q1", Answer: "a1"})
		require.NoError(t, err)
		updated, err := svc.AppendInterviewTurn(ctx, c.ID, "user-1", models.InterviewQnA{Question: "q2", Answer: "a2"})
		require.NoError(t, err)

		require.Len(t, updated.InterviewHistory, 2)
		assert.Equal(t, "q1", updated.InterviewHistory[0].Question)
		assert.Equal(t, "q2", updated.InterviewHistory[1].Question)
		assert.Equal(t, models.StepInterview, updated.CurrentStep)
	})

	t.Run("only the owner appends", func(t *testing.T) {
		repo := newFakeContributionRepo()
		c := seedContribution(repo, models.StatusDraft, models.StepInterview)
		svc := NewContributionService(repo, zap.NewNop())

		_, err := svc.AppendInterviewTurn(ctx, c.ID, "user-2", models.InterviewQnA{Question: "q"})
		assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	})

	t.Run("blank question rejected", func(t *testing.T) {
		repo := newFakeContributionRepo()
		c := seedContribution(repo, models.StatusDraft, models.StepInterview)
		svc := NewContributionService(repo, zap.NewNop())

		_, err := svc.AppendInterviewTurn(ctx, c.ID, "user-1", models.InterviewQnA{Question: " "})
		_, ok := apperrors.IsValidation(err)
		assert.True(t, ok)
	})
}

func TestAttachSourceDiscovery(t *testing.T) {
	ctx := context.Background()
	repo := newFakeContributionRepo()
	c := seedContribution(repo, models.StatusDraft, models.StepInterview)
	svc := NewContributionService(repo, zap.NewNop())

	snapshot := &models.SourceDiscoveryData{
		Sources:      []models.Source{{Title: "t", URL: "https://example.com"}},
		DiscoveredAt: time.Now().UTC(),
		SearchQuery:  "q",
	}

	updated, err := svc.AttachSourceDiscovery(ctx, c.ID, "user-1", snapshot)
	require.NoError(t, err)
	require.NotNil(t, updated.SourceDiscovery)
	assert.Equal(t, "q", updated.SourceDiscovery.SearchQuery)

	_, err = svc.AttachSourceDiscovery(ctx, c.ID, "user-2", snapshot)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}
