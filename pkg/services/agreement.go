package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veritaslearn/contributor-engine/pkg/apperrors"
	"github.com/veritaslearn/contributor-engine/pkg/config"
	"github.com/veritaslearn/contributor-engine/pkg/models"
	"github.com/veritaslearn/contributor-engine/pkg/repositories"
)

// AgreementSignatureRequest is the signer-supplied part of a signature.
type AgreementSignatureRequest struct {
	Version       string
	Name          string
	Email         string
	FiscalCode    string
	AgreementText string
	IPAddress     string
}

// AgreementService evaluates the signature policy against the user's signing
// history and records accepted signatures on the contribution.
type AgreementService interface {
	// Sign applies the signature policy for the contribution's owner and, on
	// allow, stores the signature record. A repeated signature of the same
	// version is idempotent and returns the existing record.
	Sign(ctx context.Context, contributionID uuid.UUID, contributorID string, req AgreementSignatureRequest) (*models.AgreementRecord, models.AgreementPolicyDecision, error)
}

type agreementService struct {
	repo   repositories.ContributionRepository
	cfg    *config.AgreementConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewAgreementService creates an AgreementService.
func NewAgreementService(repo repositories.ContributionRepository, cfg *config.AgreementConfig, logger *zap.Logger) AgreementService {
	return &agreementService{
		repo:   repo,
		cfg:    cfg,
		logger: logger.Named("agreement"),
		now:    time.Now,
	}
}

var _ AgreementService = (*agreementService)(nil)

func (s *agreementService) Sign(ctx context.Context, contributionID uuid.UUID, contributorID string, req AgreementSignatureRequest) (*models.AgreementRecord, models.AgreementPolicyDecision, error) {
	contribution, err := s.repo.GetByID(ctx, contributionID)
	if err != nil {
		return nil, "", err
	}
	if contribution.ContributorID != contributorID {
		return nil, "", apperrors.ErrForbidden
	}

	if strings.TrimSpace(req.Name) == "" {
		return nil, "", apperrors.NewValidation("name", "signer name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, "", apperrors.NewValidation("email", "signer email is required")
	}

	existing, err := s.repo.ListAgreementVersionsByUser(ctx, contributorID)
	if err != nil {
		return nil, "", fmt.Errorf("list signed versions: %w", err)
	}

	decision := models.EvaluateAgreementSignaturePolicy(existing, req.Version, s.cfg.MaxDistinctVersions)
	switch decision {
	case models.AgreementInvalidRequestedVersion:
		return nil, decision, apperrors.NewValidation("version", "agreement version is required")
	case models.AgreementMaxVersionsReached:
		return nil, decision, fmt.Errorf("%w: signed %d distinct agreement versions already",
			apperrors.ErrForbidden, len(existing))
	case models.AgreementAlreadySignedSameVersion:
		// Idempotent re-sign: keep the original record, backfilling the
		// document hash and view URL if the first signature predates them.
		if contribution.Agreement != nil {
			changed := false
			if contribution.Agreement.AgreementHash == "" && req.AgreementText != "" {
				contribution.Agreement.AgreementHash = hashAgreementText(req.AgreementText)
				changed = true
			}
			if contribution.Agreement.ViewURL == "" && s.cfg.ViewBaseURL != "" {
				contribution.Agreement.ViewURL = s.viewURL(contribution.Agreement.Version)
				changed = true
			}
			if changed {
				if err := s.repo.Update(ctx, contribution); err != nil {
					return nil, decision, err
				}
			}
			return contribution.Agreement, decision, nil
		}
		// Signed on another contribution; nothing to record here.
		return nil, decision, nil
	}

	version := strings.TrimSpace(req.Version)
	record := &models.AgreementRecord{
		Version:    version,
		AcceptedAt: s.now().UTC(),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		FiscalCode: strings.TrimSpace(req.FiscalCode),
		IPAddress:  req.IPAddress,
	}
	if req.AgreementText != "" {
		record.AgreementHash = hashAgreementText(req.AgreementText)
	}
	if s.cfg.ViewBaseURL != "" {
		record.ViewURL = s.viewURL(version)
	}

	contribution.Agreement = record
	if err := s.repo.Update(ctx, contribution); err != nil {
		return nil, decision, err
	}

	s.logger.Info("agreement signed",
		zap.String("contribution_id", contributionID.String()),
		zap.String("version", version))

	return record, decision, nil
}

func (s *agreementService) viewURL(version string) string {
	return fmt.Sprintf("%s/agreements/%s", strings.TrimRight(s.cfg.ViewBaseURL, "/"), version)
}

// hashAgreementText fingerprints the exact text the signer saw.
func hashAgreementText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
