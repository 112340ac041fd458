package intake

import (
	"regexp"
	"strconv"
	"strings"
)

var intRe = regexp.MustCompile(`\d[\d,]*`)

// firstInt pulls the first embedded integer out of free text ("around 1,200
// people" -> 1200). Returns ok=false when no digits appear.
func firstInt(text string) (int, bool) {
	m := intRe.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

// matchCompanySize maps free text onto a canonical size bracket. It tries
// bucket-label substrings first, then the first embedded integer, and
// finally hands the raw input back so nothing is rejected.
func matchCompanySize(text string) string {
	t := strings.ToLower(strings.ReplaceAll(text, ",", ""))
	switch {
	case strings.Contains(t, "500-5000") || strings.Contains(t, "500 - 5000"):
		return "500-5,000 employees"
	case strings.Contains(t, "5000+") || strings.Contains(t, "5000 +") || strings.Contains(t, "over 5000"):
		return "5,000+ employees"
	case strings.Contains(t, "100-500") || strings.Contains(t, "100 - 500"):
		return "100-500 employees"
	case strings.Contains(t, "1-100") || strings.Contains(t, "1 - 100"):
		return "1-100 employees"
	}
	if n, ok := firstInt(text); ok {
		switch {
		case n > 5000:
			return "5,000+ employees"
		case n >= 500:
			return "500-5,000 employees"
		case n >= 100:
			return "100-500 employees"
		default:
			return "1-100 employees"
		}
	}
	return strings.TrimSpace(text)
}

// matchBudget maps free text onto a canonical budget bracket, falling back
// to the raw input. Exact button labels are matched before the keyword
// heuristics; range labels contain more than one keyword.
func matchBudget(text string) string {
	trimmed := strings.TrimSpace(text)
	for _, opt := range budgetOptions {
		if strings.EqualFold(trimmed, opt) {
			return opt
		}
	}
	t := strings.ToLower(strings.ReplaceAll(text, ",", ""))
	switch {
	case strings.Contains(t, "1m") || strings.Contains(t, "million"):
		return "$1M+"
	case strings.Contains(t, "500k"):
		return "$500K-$1M"
	case strings.Contains(t, "250k"):
		return "$250K-$500K"
	case strings.Contains(t, "100k"):
		return "$100K-$250K"
	case strings.Contains(t, "under") || strings.Contains(t, "less"):
		return "Under $100K"
	}
	if n, ok := firstInt(text); ok {
		switch {
		case n >= 1000000:
			return "$1M+"
		case n >= 500000:
			return "$500K-$1M"
		case n >= 250000:
			return "$250K-$500K"
		case n >= 100000:
			return "$100K-$250K"
		}
	}
	return strings.TrimSpace(text)
}

// matchTimeframe maps free text onto a canonical timeframe label, falling
// back to the raw input.
func matchTimeframe(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "immediate") || strings.Contains(t, "asap") || strings.Contains(t, "right away") || strings.Contains(t, "now"):
		return "Immediate"
	case strings.Contains(t, "quarter") || strings.Contains(t, "3 month"):
		return "This quarter"
	case strings.Contains(t, "year") || strings.Contains(t, "12 month"):
		return "This year"
	case strings.Contains(t, "explor") || strings.Contains(t, "just looking") || strings.Contains(t, "browsing"):
		return "Just exploring"
	}
	return strings.TrimSpace(text)
}

// splitList breaks "a, b and c" style answers into items.
func splitList(text string) []string {
	text = strings.ReplaceAll(text, " and ", ",")
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// isDecline covers "none", "skip", "no thanks" style answers to optional
// questions.
func isDecline(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	switch t {
	case "none", "skip", "no", "nope", "n/a", "na", "not really", "no thanks", "nothing":
		return true
	}
	return false
}

func isAffirmative(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	switch t {
	case "yes", "yep", "yeah", "sure", "ok", "okay", "sounds good", "please", "yes please":
		return true
	}
	return strings.HasPrefix(t, "yes")
}
