package prompts

import (
	"fmt"
	"strings"

	"github.com/veritaslearn/contributor-engine/pkg/models"
)

// AssistanceSystemMessage frames the model as a research assistant that
// never invents facts.
const AssistanceSystemMessage = `You are a research assistant helping an article contributor who is stuck on an interview question. You suggest starting points, not finished prose. You never fabricate facts, statistics, or citations. You always respond with valid JSON matching the requested schema and nothing else.`

var assistanceTaskByType = map[models.AssistanceType]string{
	models.AssistanceExamples:   "Suggest concrete, real-world examples or cases the contributor could describe from their own experience or verify independently.",
	models.AssistanceClaims:     "Suggest defensible claims or angles the contributor could take a position on, including contrarian ones.",
	models.AssistanceDefinition: "Suggest clear working definitions or framings of the key terms in the query.",
}

// BuildAssistancePrompt assembles the suggestion prompt for a non-source
// assistance type. Source-type requests go through the discovery client
// instead.
func BuildAssistancePrompt(query string, assistanceType models.AssistanceType, actx models.AssistanceContext, language string) string {
	var b strings.Builder

	b.WriteString("# Contribution Context\n\n")
	b.WriteString(fmt.Sprintf("Topic: %s\n", actx.Topic))
	b.WriteString(fmt.Sprintf("Thesis: %s\n", actx.Thesis))
	if language != "" {
		b.WriteString(fmt.Sprintf("Language: %s\n", language))
	}

	b.WriteString("\n# Contributor Query\n\n")
	b.WriteString(query)
	b.WriteString("\n\n# Task\n\n")
	b.WriteString(assistanceTaskByType[assistanceType])
	b.WriteString(" Provide 3 to 5 suggestions relevant to the context above.\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString(`{"suggestions": [{"text": "...", "detail": "..."}]}`)
	b.WriteString("\n")

	return b.String()
}

// AnswerSynthesisSystemMessage frames the synthesis model. Grounding is the
// hard rule: the draft may only use what the contributor supplied.
const AnswerSynthesisSystemMessage = `You are a writing assistant drafting an interview answer on behalf of a contributor. You must ground every statement in the supplied suggestions and interview history. If the supplied material does not support an answer, say so briefly instead of inventing content. Respond with the draft answer as plain text, no preamble.`

// BuildAnswerSynthesisPrompt assembles the answer-drafting prompt from the
// question and the suggestions the contributor selected.
func BuildAnswerSynthesisPrompt(brief models.ContributorBrief, question string, history []models.InterviewQnA, suggestions []models.AssistanceSuggestion, language string) string {
	var b strings.Builder

	b.WriteString("# Contribution Brief\n\n")
	b.WriteString(fmt.Sprintf("Topic: %s\nThesis: %s\n", brief.Topic, brief.Thesis))
	if language != "" {
		b.WriteString(fmt.Sprintf("Answer language: %s\n", language))
	}

	if len(history) > 0 {
		b.WriteString("\n# Interview So Far\n\n")
		for i, qa := range history {
			b.WriteString(fmt.Sprintf("Q%d: %s\nA: %s\n\n", i+1, qa.Question, qa.Answer))
		}
	}

	b.WriteString("# Question To Answer\n\n")
	b.WriteString(question)

	b.WriteString("\n\n# Selected Material\n\n")
	b.WriteString("Use only the following material as grounding:\n")
	for _, s := range suggestions {
		b.WriteString(fmt.Sprintf("- %s", s.Text))
		if s.Detail != "" {
			b.WriteString(fmt.Sprintf(" (%s)", s.Detail))
		}
		if s.URL != "" {
			b.WriteString(fmt.Sprintf(" [%s]", s.URL))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nDraft the contributor's answer in their voice, first person, 2-4 paragraphs.\n")

	return b.String()
}
