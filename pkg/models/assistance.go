package models

// AssistanceType selects what kind of material the assistance engine looks
// for on behalf of a stuck contributor.
type AssistanceType string

const (
	AssistanceExamples   AssistanceType = "examples"
	AssistanceClaims     AssistanceType = "claims"
	AssistanceSources    AssistanceType = "sources"
	AssistanceDefinition AssistanceType = "definition"
)

// IsValidAssistanceType checks the requested type against the supported set.
func IsValidAssistanceType(t AssistanceType) bool {
	switch t {
	case AssistanceExamples, AssistanceClaims, AssistanceSources, AssistanceDefinition:
		return true
	}
	return false
}

// AssistanceContext carries the contribution framing the suggestions must
// stay relevant to.
type AssistanceContext struct {
	Topic  string `json:"topic"`
	Thesis string `json:"thesis"`
}

// AssistanceSuggestion is one suggestion returned by the assistance engine.
// URL is only populated for source-type suggestions.
type AssistanceSuggestion struct {
	Text   string `json:"text"`
	Detail string `json:"detail,omitempty"`
	URL    string `json:"url,omitempty"`
}

// AssistanceResult is the cacheable outcome of one assistance lookup.
type AssistanceResult struct {
	Suggestions []AssistanceSuggestion `json:"suggestions"`
	Model       string                 `json:"model"`
}
