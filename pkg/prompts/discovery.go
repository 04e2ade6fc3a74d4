package prompts

import (
	"fmt"
	"strings"

	"github.com/veritaslearn/contributor-engine/pkg/models"
)

// SourceDiscoverySystemMessage instructs the search-grounded model to return
// only verifiable sources as JSON.
const SourceDiscoverySystemMessage = `You are a research librarian finding citable sources for an article in progress. Only include sources you actually found through search, with their real URLs. Never fabricate a source or URL. Always respond with valid JSON matching the requested schema and nothing else.`

// BuildSourceDiscoveryQuery condenses the brief and the answered interview
// turns into the search query recorded on the discovery snapshot.
func BuildSourceDiscoveryQuery(brief models.ContributorBrief, history []models.InterviewQnA, language string) string {
	parts := []string{brief.Topic, brief.Thesis}
	for _, qa := range history {
		if a := strings.TrimSpace(qa.Answer); a != "" {
			parts = append(parts, a)
		}
	}
	query := strings.Join(parts, " — ")
	if language != "" {
		query = fmt.Sprintf("%s (sources in %s)", query, language)
	}
	return query
}

// BuildSourceDiscoveryPrompt assembles the Perplexity prompt around the
// condensed query.
func BuildSourceDiscoveryPrompt(query string, maxSources int) string {
	var b strings.Builder

	b.WriteString("# Research Request\n\n")
	b.WriteString("Find citable, authoritative sources supporting or challenging this article-in-progress:\n\n")
	b.WriteString(query)
	b.WriteString(fmt.Sprintf("\n\n# Task\n\nReturn up to %d sources. Prefer primary sources, peer-reviewed work, official statistics, and recognized industry publications. ", maxSources))
	b.WriteString("Score authority from 0.0 (weak) to 1.0 (authoritative).\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString(`{"sources": [{"title": "...", "url": "https://...", "snippet": "...", "authorityScore": 0.0}]}`)
	b.WriteString("\n")

	return b.String()
}
