// Package models defines the contribution aggregate and the interview,
// assistance, and agreement value types that flow through the engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Contribution Status
// ============================================================================

// ContributionStatus represents the publication status of a contribution.
type ContributionStatus string

const (
	StatusDraft     ContributionStatus = "draft"
	StatusScheduled ContributionStatus = "scheduled"
	// StatusPublished is terminal and set by the external publish job,
	// never by the review state machine.
	StatusPublished ContributionStatus = "published"
)

// Workflow step constants. currentStep is the wizard cursor the contributor
// UI resumes from.
const (
	StepDraftSubmission = "draft_submission"
	StepInterview       = "interview"
	StepOutlineReview   = "outline_review"
)

// ============================================================================
// Review
// ============================================================================

// ReviewStatus is the review sub-status layered on top of the publication
// status.
type ReviewStatus string

const (
	ReviewStatusPending          ReviewStatus = "pending"
	ReviewStatusApproved         ReviewStatus = "approved"
	ReviewStatusRejected         ReviewStatus = "rejected"
	ReviewStatusChangesRequested ReviewStatus = "changes_requested"
	ReviewStatusAnnotation       ReviewStatus = "annotation"
)

// ReviewAction is an admin decision that drives a status transition.
type ReviewAction string

const (
	ReviewActionApprove    ReviewAction = "approve"
	ReviewActionReject     ReviewAction = "reject"
	ReviewActionChanges    ReviewAction = "changes"
	ReviewActionAnnotation ReviewAction = "annotation"
)

// IsValidReviewAction checks whether the action is one an admin may submit
// through the review-action endpoint.
func IsValidReviewAction(a ReviewAction) bool {
	switch a {
	case ReviewActionApprove, ReviewActionReject, ReviewActionChanges:
		return true
	}
	return false
}

// ReviewAnnotation is an inline comment attached to a draft range.
// End must be strictly greater than Start.
type ReviewAnnotation struct {
	Start         int       `json:"start"`
	End           int       `json:"end"`
	Note          string    `json:"note"`
	ReviewerEmail string    `json:"reviewerEmail"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ReviewState is the current review snapshot on a contribution.
type ReviewState struct {
	Status        ReviewStatus       `json:"status"`
	Note          string             `json:"note,omitempty"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	ReviewerEmail string             `json:"reviewerEmail,omitempty"`
	Annotations   []ReviewAnnotation `json:"annotations,omitempty"`
}

// StatusHistoryEntry is one append-only audit record of a status transition.
type StatusHistoryEntry struct {
	Status      ContributionStatus `json:"status"`
	CurrentStep string             `json:"currentStep"`
	ChangedAt   time.Time          `json:"changedAt"`
	ChangedBy   string             `json:"changedBy"`
	Note        string             `json:"note,omitempty"`
}

// ReviewHistoryEntry is one append-only audit record of a review action.
type ReviewHistoryEntry struct {
	Action        ReviewAction `json:"action"`
	Status        ReviewStatus `json:"status"`
	Note          string       `json:"note,omitempty"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	ReviewerEmail string       `json:"reviewerEmail"`
}

// ============================================================================
// Brief and Interview
// ============================================================================

// ContributorBrief is the author-supplied seed for an interview.
type ContributorBrief struct {
	Topic          string `json:"topic"`
	Thesis         string `json:"thesis"`
	TargetAudience string `json:"targetAudience,omitempty"`
	Language       string `json:"language,omitempty"`
}

// IsComplete reports whether the brief carries enough material to seed an
// interview.
func (b *ContributorBrief) IsComplete() bool {
	return b != nil && b.Topic != "" && b.Thesis != ""
}

// InterviewQnA is one question/answer turn. The ordered sequence of turns is
// the conversation history fed back into every subsequent AI call; order is
// significant.
type InterviewQnA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// GeneratedQuestion is one question instance produced by the question
// generation engine.
type GeneratedQuestion struct {
	Text      string `json:"text"`
	Category  string `json:"category,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

// ============================================================================
// Source Discovery
// ============================================================================

// Source is one normalized citable source.
type Source struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Snippet        string  `json:"snippet,omitempty"`
	AuthorityScore float64 `json:"authorityScore,omitempty"`
}

// SourceDiscoveryData is a point-in-time snapshot of discovered sources
// attached to a contribution. It is never re-run automatically.
type SourceDiscoveryData struct {
	Sources      []Source  `json:"sources"`
	DiscoveredAt time.Time `json:"discoveredAt"`
	SearchQuery  string    `json:"searchQuery"`
}

// ============================================================================
// Contribution aggregate
// ============================================================================

// Contribution is the aggregate root for one article contribution. It is
// created when a contributor starts the wizard, mutated by the contributor
// (brief/interview updates) and by admins (review actions), and never
// hard-deleted by the engine.
type Contribution struct {
	ID               uuid.UUID            `json:"id"`
	ContributorID    string               `json:"contributorId"`
	Brief            ContributorBrief     `json:"brief"`
	InterviewHistory []InterviewQnA       `json:"interviewHistory"`
	Status           ContributionStatus   `json:"status"`
	CurrentStep      string               `json:"currentStep"`
	StatusHistory    []StatusHistoryEntry `json:"statusHistory"`
	ReviewHistory    []ReviewHistoryEntry `json:"reviewHistory"`
	Review           *ReviewState         `json:"review,omitempty"`
	Agreement        *AgreementRecord     `json:"agreement,omitempty"`
	SourceDiscovery  *SourceDiscoveryData `json:"sourceDiscovery,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
}

// ReviewStatusOrPending returns the current review status, defaulting to
// pending when no review exists yet.
func (c *Contribution) ReviewStatusOrPending() ReviewStatus {
	if c.Review == nil || c.Review.Status == "" {
		return ReviewStatusPending
	}
	return c.Review.Status
}
