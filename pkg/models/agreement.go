package models

import (
	"strings"
	"time"
)

// AgreementRecord captures one accepted contributor-agreement signature.
// Once written it is immutable except for backfilling a missing document
// hash or view URL.
type AgreementRecord struct {
	Version       string    `json:"version"`
	AcceptedAt    time.Time `json:"acceptedAt"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	FiscalCode    string    `json:"fiscalCode,omitempty"`
	AgreementHash string    `json:"agreementHash,omitempty"`
	ViewURL       string    `json:"viewUrl,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
}

// AgreementPolicyDecision is the outcome of evaluating whether a user may
// sign a given agreement version.
type AgreementPolicyDecision string

const (
	AgreementAllowNewSignature        AgreementPolicyDecision = "allow_new_signature"
	AgreementAlreadySignedSameVersion AgreementPolicyDecision = "already_signed_same_version"
	AgreementMaxVersionsReached       AgreementPolicyDecision = "max_versions_reached"
	AgreementInvalidRequestedVersion  AgreementPolicyDecision = "invalid_requested_version"
)

// EvaluateAgreementSignaturePolicy decides whether a user may sign
// requestedVersion given the distinct versions they have already signed.
//
// The function is total: every input combination maps to exactly one
// decision. Versions are compared after trimming whitespace, and duplicate
// or blank entries in existingVersions never inflate the distinct count.
// maxDistinctVersions values below 1 are treated as 1.
func EvaluateAgreementSignaturePolicy(existingVersions []string, requestedVersion string, maxDistinctVersions int) AgreementPolicyDecision {
	requested := strings.TrimSpace(requestedVersion)
	if requested == "" {
		return AgreementInvalidRequestedVersion
	}
	if maxDistinctVersions < 1 {
		maxDistinctVersions = 1
	}

	distinct := make(map[string]struct{}, len(existingVersions))
	for _, v := range existingVersions {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		distinct[v] = struct{}{}
	}

	if _, ok := distinct[requested]; ok {
		return AgreementAlreadySignedSameVersion
	}
	if len(distinct) >= maxDistinctVersions {
		return AgreementMaxVersionsReached
	}
	return AgreementAllowNewSignature
}
