// Package repositories provides data access for contribution aggregates.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/veritaslearn/contributor-engine/pkg/apperrors"
	"github.com/veritaslearn/contributor-engine/pkg/database"
	"github.com/veritaslearn/contributor-engine/pkg/models"
)

// ContributionRepository provides data access for contributions.
type ContributionRepository interface {
	// Create inserts a new contribution.
	Create(ctx context.Context, contribution *models.Contribution) error

	// GetByID retrieves a contribution by ID.
	// Returns apperrors.ErrNotFound when no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contribution, error)

	// Update persists the full mutable state of a contribution in one
	// statement, so paired history appends land atomically.
	Update(ctx context.Context, contribution *models.Contribution) error

	// ListByContributor returns the contributor's contributions, newest first.
	ListByContributor(ctx context.Context, contributorID string) ([]*models.Contribution, error)

	// ListAgreementVersionsByUser returns the distinct agreement versions the
	// user has signed across all of their contributions.
	ListAgreementVersionsByUser(ctx context.Context, contributorID string) ([]string, error)
}

type contributionRepository struct {
	db *database.DB
}

// NewContributionRepository creates a new ContributionRepository.
func NewContributionRepository(db *database.DB) ContributionRepository {
	return &contributionRepository{db: db}
}

var _ ContributionRepository = (*contributionRepository)(nil)

const contributionColumns = `
	id, contributor_id, brief, interview_history, status, current_step,
	status_history, review_history, review, agreement, source_discovery,
	created_at, updated_at`

func (r *contributionRepository) Create(ctx context.Context, c *models.Contribution) error {
	now := time.Now().UTC()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = models.StatusDraft
	}
	if c.CurrentStep == "" {
		c.CurrentStep = models.StepDraftSubmission
	}

	cols, err := marshalAggregate(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO contributions (` + contributionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.Pool.Exec(ctx, query,
		c.ID, c.ContributorID, cols.brief, cols.interviewHistory,
		string(c.Status), c.CurrentStep, cols.statusHistory, cols.reviewHistory,
		cols.review, cols.agreement, cols.sourceDiscovery,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contribution: %w", err)
	}
	return nil
}

func (r *contributionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contribution, error) {
	query := `SELECT ` + contributionColumns + ` FROM contributions WHERE id = $1`

	row := r.db.Pool.QueryRow(ctx, query, id)
	c, err := scanContribution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contribution: %w", err)
	}
	return c, nil
}

func (r *contributionRepository) Update(ctx context.Context, c *models.Contribution) error {
	c.UpdatedAt = time.Now().UTC()

	cols, err := marshalAggregate(c)
	if err != nil {
		return err
	}

	query := `
		UPDATE contributions SET
			brief = $2, interview_history = $3, status = $4, current_step = $5,
			status_history = $6, review_history = $7, review = $8,
			agreement = $9, source_discovery = $10, updated_at = $11
		WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query,
		c.ID, cols.brief, cols.interviewHistory, string(c.Status), c.CurrentStep,
		cols.statusHistory, cols.reviewHistory, cols.review,
		cols.agreement, cols.sourceDiscovery, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update contribution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *contributionRepository) ListByContributor(ctx context.Context, contributorID string) ([]*models.Contribution, error) {
	query := `SELECT ` + contributionColumns + `
		FROM contributions WHERE contributor_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, contributorID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var out []*models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *contributionRepository) ListAgreementVersionsByUser(ctx context.Context, contributorID string) ([]string, error) {
	query := `
		SELECT DISTINCT agreement->>'version'
		FROM contributions
		WHERE contributor_id = $1 AND agreement IS NOT NULL`

	rows, err := r.db.Pool.Query(ctx, query, contributorID)
	if err != nil {
		return nil, fmt.Errorf("list agreement versions: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v *string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan agreement version: %w", err)
		}
		if v != nil && *v != "" {
			versions = append(versions, *v)
		}
	}
	return versions, rows.Err()
}

// aggregateColumns holds the JSONB-encoded fields of a contribution row.
type aggregateColumns struct {
	brief            []byte
	interviewHistory []byte
	statusHistory    []byte
	reviewHistory    []byte
	review           []byte
	agreement        []byte
	sourceDiscovery  []byte
}

func marshalAggregate(c *models.Contribution) (*aggregateColumns, error) {
	cols := &aggregateColumns{}
	var err error

	if cols.brief, err = json.Marshal(c.Brief); err != nil {
		return nil, fmt.Errorf("marshal brief: %w", err)
	}
	// History arrays marshal to [] rather than null so positional appends
	// keep ordering stable.
	if cols.interviewHistory, err = marshalArray(c.InterviewHistory); err != nil {
		return nil, fmt.Errorf("marshal interview history: %w", err)
	}
	if cols.statusHistory, err = marshalArray(c.StatusHistory); err != nil {
		return nil, fmt.Errorf("marshal status history: %w", err)
	}
	if cols.reviewHistory, err = marshalArray(c.ReviewHistory); err != nil {
		return nil, fmt.Errorf("marshal review history: %w", err)
	}
	if cols.review, err = marshalOptional(c.Review); err != nil {
		return nil, fmt.Errorf("marshal review: %w", err)
	}
	if cols.agreement, err = marshalOptional(c.Agreement); err != nil {
		return nil, fmt.Errorf("marshal agreement: %w", err)
	}
	if cols.sourceDiscovery, err = marshalOptional(c.SourceDiscovery); err != nil {
		return nil, fmt.Errorf("marshal source discovery: %w", err)
	}
	return cols, nil
}

func marshalArray[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// marshalOptional returns nil for a nil pointer so the column stores SQL
// NULL instead of the JSON string "null".
func marshalOptional[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func scanContribution(row pgx.Row) (*models.Contribution, error) {
	var c models.Contribution
	var status string
	var brief, interviewHistory, statusHistory, reviewHistory []byte
	var review, agreement, sourceDiscovery []byte

	err := row.Scan(
		&c.ID, &c.ContributorID, &brief, &interviewHistory, &status,
		&c.CurrentStep, &statusHistory, &reviewHistory, &review,
		&agreement, &sourceDiscovery, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = models.ContributionStatus(status)

	if err := json.Unmarshal(brief, &c.Brief); err != nil {
		return nil, fmt.Errorf("unmarshal brief: %w", err)
	}
	if err := json.Unmarshal(interviewHistory, &c.InterviewHistory); err != nil {
		return nil, fmt.Errorf("unmarshal interview history: %w", err)
	}
	if err := json.Unmarshal(statusHistory, &c.StatusHistory); err != nil {
		return nil, fmt.Errorf("unmarshal status history: %w", err)
	}
	if err := json.Unmarshal(reviewHistory, &c.ReviewHistory); err != nil {
		return nil, fmt.Errorf("unmarshal review history: %w", err)
	}
	if err := unmarshalOptional(review, &c.Review); err != nil {
		return nil, fmt.Errorf("unmarshal review: %w", err)
	}
	if err := unmarshalOptional(agreement, &c.Agreement); err != nil {
		return nil, fmt.Errorf("unmarshal agreement: %w", err)
	}
	if err := unmarshalOptional(sourceDiscovery, &c.SourceDiscovery); err != nil {
		return nil, fmt.Errorf("unmarshal source discovery: %w", err)
	}
	return &c, nil
}

func unmarshalOptional[T any](data []byte, dst **T) error {
	if len(data) == 0 {
		*dst = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
