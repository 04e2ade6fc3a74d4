package auth

import "strings"

// AdminPolicy decides whether an authenticated identity may perform
// admin-only review operations. Injected into the admin middleware so the
// allowlist never leaks into handler or service code.
type AdminPolicy interface {
	IsAdmin(claims *Claims) bool
}

// EmailAllowlistPolicy grants admin to a fixed set of reviewer emails.
// Comparison is case-insensitive.
type EmailAllowlistPolicy struct {
	emails map[string]struct{}
}

// NewEmailAllowlistPolicy creates a policy from a list of emails.
func NewEmailAllowlistPolicy(emails []string) *EmailAllowlistPolicy {
	set := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		normalized := strings.ToLower(strings.TrimSpace(email))
		if normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return &EmailAllowlistPolicy{emails: set}
}

// IsAdmin implements AdminPolicy.
func (p *EmailAllowlistPolicy) IsAdmin(claims *Claims) bool {
	if claims == nil || claims.Email == "" {
		return false
	}
	_, ok := p.emails[strings.ToLower(claims.Email)]
	return ok
}

var _ AdminPolicy = (*EmailAllowlistPolicy)(nil)
