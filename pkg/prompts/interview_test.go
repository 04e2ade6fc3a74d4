package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veritaslearn/contributor-engine/pkg/models"
)

func TestBuildQuestionGenerationPrompt(t *testing.T) {
	brief := models.ContributorBrief{
		Topic:          "Kubernetes cost optimization",
		Thesis:         "Most clusters waste half their spend on idle requests",
		TargetAudience: "platform engineers",
	}

	t.Run("opening question includes brief and no history marker", func(t *testing.T) {
		prompt := BuildQuestionGenerationPrompt(brief, nil, "en", 1, 10, 3)

		assert.Contains(t, prompt, "Kubernetes cost optimization")
		assert.Contains(t, prompt, "Most clusters waste half their spend")
		assert.Contains(t, prompt, "platform engineers")
		assert.Contains(t, prompt, "No questions asked yet")
		assert.Contains(t, prompt, "question 1 of at most 10")
		assert.Contains(t, prompt, "ready_for_outline")
	})

	t.Run("history turns appear in order", func(t *testing.T) {
		history := []models.InterviewQnA{
			{Question: "What triggered your interest?", Answer: "A $40k monthly bill"},
			{Question: "How did you measure idle spend?", Answer: ""},
		}
		prompt := BuildQuestionGenerationPrompt(brief, history, "", 3, 10, 3)

		q1 := strings.Index(prompt, "Q1: What triggered your interest?")
		q2 := strings.Index(prompt, "Q2: How did you measure idle spend?")
		assert.Greater(t, q1, -1)
		assert.Greater(t, q2, q1)
		assert.Contains(t, prompt, "A: A $40k monthly bill")
		assert.Contains(t, prompt, "(not answered yet)")
	})

	t.Run("all coverage dimensions listed", func(t *testing.T) {
		prompt := BuildQuestionGenerationPrompt(brief, nil, "", 1, 10, 3)
		for _, d := range coverageDimensions {
			assert.Contains(t, prompt, d)
		}
	})
}

func TestBuildSourceDiscoveryQuery(t *testing.T) {
	brief := models.ContributorBrief{Topic: "remote onboarding", Thesis: "async beats meetings"}

	t.Run("combines topic thesis and answered turns only", func(t *testing.T) {
		history := []models.InterviewQnA{
			{Question: "q1", Answer: "we onboarded 30 hires async"},
			{Question: "q2", Answer: "   "},
		}
		query := BuildSourceDiscoveryQuery(brief, history, "")

		assert.Contains(t, query, "remote onboarding")
		assert.Contains(t, query, "async beats meetings")
		assert.Contains(t, query, "we onboarded 30 hires async")
		assert.NotContains(t, query, "q2")
	})

	t.Run("language hint appended when set", func(t *testing.T) {
		query := BuildSourceDiscoveryQuery(brief, nil, "Italian")
		assert.Contains(t, query, "sources in Italian")
	})
}

func TestBuildAnswerSynthesisPrompt(t *testing.T) {
	brief := models.ContributorBrief{Topic: "t", Thesis: "th"}
	suggestions := []models.AssistanceSuggestion{
		{Text: "GitLab handbook", Detail: "public onboarding docs", URL: "https://example.com/handbook"},
	}

	prompt := BuildAnswerSynthesisPrompt(brief, "How do you onboard?", nil, suggestions, "en")

	assert.Contains(t, prompt, "How do you onboard?")
	assert.Contains(t, prompt, "GitLab handbook")
	assert.Contains(t, prompt, "public onboarding docs")
	assert.Contains(t, prompt, "https://example.com/handbook")
	assert.Contains(t, prompt, "first person")
}
