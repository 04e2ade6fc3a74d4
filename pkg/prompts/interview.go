// Package prompts builds the LLM prompts used by the interview, assistance,
// synthesis, and discovery engines. Builders are pure string assembly so
// they can be tested without a model.
package prompts

import (
	"fmt"
	"strings"

	"github.com/veritaslearn/contributor-engine/pkg/models"
)

// Coverage dimensions the interviewer tries to fill before declaring the
// material ready for an outline.
var coverageDimensions = []string{
	"a concrete, first-hand example or case",
	"a contrarian or commonly-misunderstood claim the author can defend",
	"a quantified impact (numbers, timeframes, magnitudes)",
	"a primary source or citable evidence",
	"fit for the stated target audience (depth, vocabulary, assumed knowledge)",
}

// QuestionGenerationSystemMessage frames the model as an editorial
// interviewer producing strict JSON.
const QuestionGenerationSystemMessage = `You are an experienced editorial interviewer helping a subject-matter expert turn their knowledge into an article. You ask sharp, specific follow-up questions that draw out material a generic writer could not produce. You always respond with valid JSON matching the requested schema and nothing else.`

// BuildQuestionGenerationPrompt assembles the adaptive next-question prompt
// from the brief and the full ordered interview history.
func BuildQuestionGenerationPrompt(brief models.ContributorBrief, history []models.InterviewQnA, language string, questionNumber, maxQuestions, batchSize int) string {
	var b strings.Builder

	b.WriteString("# Contribution Brief\n\n")
	b.WriteString(fmt.Sprintf("Topic: %s\n", brief.Topic))
	b.WriteString(fmt.Sprintf("Thesis: %s\n", brief.Thesis))
	if brief.TargetAudience != "" {
		b.WriteString(fmt.Sprintf("Target audience: %s\n", brief.TargetAudience))
	}
	if language != "" {
		b.WriteString(fmt.Sprintf("Interview language: %s\n", language))
	}

	b.WriteString("\n# Interview So Far\n\n")
	if len(history) == 0 {
		b.WriteString("No questions asked yet. This is the opening question.\n")
	}
	for i, qa := range history {
		b.WriteString(fmt.Sprintf("Q%d: %s\n", i+1, qa.Question))
		if strings.TrimSpace(qa.Answer) == "" {
			b.WriteString("A: (not answered yet)\n\n")
		} else {
			b.WriteString(fmt.Sprintf("A: %s\n\n", qa.Answer))
		}
	}

	b.WriteString("# Coverage Dimensions\n\n")
	b.WriteString("Assess which of these the answers already cover:\n")
	for _, d := range coverageDimensions {
		b.WriteString(fmt.Sprintf("- %s\n", d))
	}

	b.WriteString("\n# Task\n\n")
	b.WriteString(fmt.Sprintf("You are preparing question %d of at most %d. ", questionNumber, maxQuestions))
	b.WriteString(fmt.Sprintf("Propose up to %d next questions targeting the weakest coverage dimensions. ", batchSize))
	b.WriteString("Never repeat a question already asked. If the covered material is already sufficient for a strong outline, return an empty questions list and set ready_for_outline to true.\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString(`{
  "questions": [{"text": "...", "category": "...", "rationale": "..."}],
  "ready_for_outline": false,
  "missing_data_points": ["..."],
  "coverage_assessment": "one short paragraph"
}`)
	b.WriteString("\n")

	return b.String()
}
