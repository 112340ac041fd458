// Package scoring turns a profile snapshot into qualification sub-scores,
// templated insights and business predictions. Everything here is
// deterministic arithmetic over the profile: same snapshot in, same result
// out. The weight constants are frozen product behavior, not tunables; they
// intentionally live in code rather than configuration.
package scoring

import (
	"strings"
	"time"
	"unicode"

	"github.com/stellarlinkco/leadflow/internal/profile"
)

// Sub-score weights.
const (
	fitBase                 = 50
	fitMidSizeBonus         = 20 // 500-5,000 employees
	fitLargeSizeBonus       = 15 // 5,000+
	fitSeniorRoleBonus      = 15
	fitChallengeBonus       = 15
	engagementRateScale     = 20
	engagementRateCap       = 30
	engagementFieldsCap     = 30
	engagementPagesBonus    = 20
	engagementDownloadBonus = 20
	urgencyBase             = 30
	urgencyImmediateBonus   = 30
	urgencyQuarterBonus     = 20
	urgencyYearBonus        = 10
	urgencyChallengesBonus  = 20
	urgencyFreshBonus       = 20 // last contact < 24h
	urgencyRecentBonus      = 10 // last contact < 72h
	budgetDefault           = 50
	maxScore                = 100
)

// Short acronyms are matched as whole tokens; substring search would hit
// them inside longer words ("cto" in "director", "coo" in "coordinator").
var seniorTitleAcronyms = []string{"ceo", "cto", "cfo", "coo", "cpo", "cio", "vp"}

var seniorTitlePhrases = []string{
	"chief", "vice president", "director", "head", "founder", "president", "owner",
}

var highValueChallengeKeywords = []string{
	"ai", "automation", "integration", "scale", "scaling",
	"efficiency", "digital transformation", "cost",
}

// Scores are the five qualification sub-scores, each in [0,100].
type Scores struct {
	Fit        int `json:"fit"`
	Engagement int `json:"engagement"`
	Urgency    int `json:"urgency"`
	Budget     int `json:"budget"`
	Authority  int `json:"authority"`
}

// Result is immutable once computed for a given profile snapshot.
type Result struct {
	Scores      Scores      `json:"scores"`
	Insights    Insights    `json:"insights"`
	Predictions Predictions `json:"predictions"`
}

// Analyze computes the full scoring result for one profile snapshot as of
// now. It never mutates the profile.
func Analyze(p *profile.Profile, now time.Time) Result {
	s := Scores{
		Fit:        FitScore(p),
		Engagement: EngagementScore(p, now),
		Urgency:    UrgencyScore(p, now),
		Budget:     BudgetScore(p.BudgetBracket),
		Authority:  AuthorityScore(p.Role),
	}
	return Result{
		Scores:      s,
		Insights:    BuildInsights(p, s),
		Predictions: Predict(p, s),
	}
}

// normalize lowercases and strips commas so bucket labels like
// "500-5,000 employees" and "500-5000" compare equal.
func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, ",", ""))
}

func containsAny(s string, keywords []string) bool {
	s = normalize(s)
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// hasAnyWord matches whole tokens only.
func hasAnyWord(s string, words []string) bool {
	tokens := strings.FieldsFunc(normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}

func capScore(n int) int {
	if n > maxScore {
		return maxScore
	}
	if n < 0 {
		return 0
	}
	return n
}

// FitScore starts at 50 and rewards organization size, seniority and a
// high-value stated challenge.
func FitScore(p *profile.Profile) int {
	score := fitBase
	size := normalize(p.CompanySize)
	switch {
	case strings.Contains(size, "500-5000"):
		score += fitMidSizeBonus
	case strings.Contains(size, "5000+"):
		score += fitLargeSizeBonus
	}
	if hasAnyWord(p.Role, seniorTitleAcronyms) || containsAny(p.Role, seniorTitlePhrases) {
		score += fitSeniorRoleBonus
	}
	if containsAny(p.PrimaryChallenge, highValueChallengeKeywords) {
		score += fitChallengeBonus
	}
	return capScore(score)
}

// EngagementScore combines interaction rate, profile completeness and
// browsing signals.
func EngagementScore(p *profile.Profile, now time.Time) int {
	days := int(now.Sub(p.FirstContact).Hours() / 24)
	if days < 1 {
		days = 1
	}
	rate := float64(p.TotalInteractions) / float64(days) * engagementRateScale
	if rate > engagementRateCap {
		rate = engagementRateCap
	}

	fields := float64(p.FieldsPopulated()) / 6 * engagementFieldsCap

	score := int(rate) + int(fields)
	if p.PagesVisited > 3 {
		score += engagementPagesBonus
	}
	if p.DownloadedContent {
		score += engagementDownloadBonus
	}
	return capScore(score)
}

// UrgencyScore starts at 30 and rewards a near timeframe, breadth of stated
// challenges and recency of contact.
func UrgencyScore(p *profile.Profile, now time.Time) int {
	score := urgencyBase

	tf := normalize(p.Timeframe)
	switch {
	case strings.Contains(tf, "immediate") || strings.Contains(tf, "asap") || strings.Contains(tf, "now"):
		score += urgencyImmediateBonus
	case strings.Contains(tf, "quarter") || strings.Contains(tf, "3 month"):
		score += urgencyQuarterBonus
	case strings.Contains(tf, "year") || strings.Contains(tf, "12 month"):
		score += urgencyYearBonus
	}

	if len(p.SecondaryChallenges) > 2 {
		score += urgencyChallengesBonus
	}

	sinceContact := now.Sub(p.LastContact)
	switch {
	case sinceContact < 24*time.Hour:
		score += urgencyFreshBonus
	case sinceContact < 72*time.Hour:
		score += urgencyRecentBonus
	}
	return capScore(score)
}

// budgetBracketScores maps the canonical bracket labels to their scores.
// A range label scores its floor tier, not its ceiling.
var budgetBracketScores = []struct {
	label string
	score int
}{
	{"$1m+", 100},
	{"$500k-$1m", 95},
	{"$250k-$500k", 85},
	{"$100k-$250k", 70},
	{"under $100k", budgetDefault},
}

// BudgetScore looks the bracket up in the canonical label table first, then
// falls back to keyword buckets for free-text answers. Unknown or empty
// brackets score the 50 default.
func BudgetScore(bracket string) int {
	b := strings.TrimSpace(normalize(bracket))
	for _, e := range budgetBracketScores {
		if b == e.label {
			return e.score
		}
	}
	switch {
	case strings.Contains(b, "1m") || strings.Contains(b, "$1 million") || strings.Contains(b, "1000k"):
		return 100
	case strings.Contains(b, "500k"):
		return 95
	case strings.Contains(b, "250k"):
		return 85
	case strings.Contains(b, "100k"):
		return 70
	default:
		return budgetDefault
	}
}

// AuthorityScore is a title ladder: acronyms match whole tokens, multiword
// titles match as substrings.
func AuthorityScore(role string) int {
	r := normalize(role)
	switch {
	case hasAnyWord(r, []string{"ceo"}) || strings.Contains(r, "chief executive"):
		return 100
	case hasAnyWord(r, []string{"cto", "cpo"}):
		return 90
	case strings.Contains(r, "chief") || strings.Contains(r, "c-level") ||
		hasAnyWord(r, []string{"vp"}) || strings.Contains(r, "vice president") ||
		strings.Contains(r, "director") || strings.Contains(r, "head"):
		return 80
	case strings.Contains(r, "manager"):
		return 60
	default:
		return 40
	}
}
