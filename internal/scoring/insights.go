package scoring

import (
	"fmt"

	"github.com/stellarlinkco/leadflow/internal/profile"
)

// Insights are templated from the profile and scores; no free-text
// generation happens here.
type Insights struct {
	Summary          string   `json:"summary"`
	KeyFindings      []string `json:"keyFindings,omitempty"`
	Recommendations  []string `json:"recommendations"`
	NextActions      []string `json:"nextActions,omitempty"`
	SuggestedContent []string `json:"suggestedContent"`
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// BuildInsights templates the insights bundle.
func BuildInsights(p *profile.Profile, s Scores) Insights {
	company := orDefault(p.Company, "this organization")
	challenge := orDefault(p.PrimaryChallenge, "their stated goals")
	industry := orDefault(p.Industry, "their industry")
	size := orDefault(p.CompanySize, "a similar size")

	out := Insights{
		Summary: fmt.Sprintf("%s shows a fit score of %d with %d authority and %d urgency, driven by %s.",
			company, s.Fit, s.Authority, s.Urgency, challenge),
	}

	// Key findings fire on threshold crossings, at most three.
	if p.AIReadiness > 0 && p.AIReadiness < 50 {
		out.KeyFindings = append(out.KeyFindings,
			fmt.Sprintf("AI readiness is low (%d/100); expect a longer enablement phase.", p.AIReadiness))
	}
	if s.Authority > 80 {
		out.KeyFindings = append(out.KeyFindings,
			"Contact holds decision-making authority; proposals can go direct.")
	}
	if s.Budget >= 85 {
		out.KeyFindings = append(out.KeyFindings,
			"Stated budget supports an enterprise-tier engagement.")
	}

	out.Recommendations = []string{
		fmt.Sprintf("Lead the follow-up with how we address %s.", challenge),
		fmt.Sprintf("Reference outcomes from companies of %s in %s.", size, industry),
	}

	if p.Phone == "" {
		out.NextActions = append(out.NextActions, "Ask for a phone number to enable a direct follow-up call.")
	}
	if p.BudgetBracket == "" {
		out.NextActions = append(out.NextActions, "Qualify the budget bracket before proposing a tier.")
	}

	out.SuggestedContent = []string{
		fmt.Sprintf("Case study: results in %s", industry),
		fmt.Sprintf("Solution brief: tackling %s", challenge),
		fmt.Sprintf("ROI model for organizations of %s", size),
	}

	return out
}
