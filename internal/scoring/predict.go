package scoring

import (
	"math"
	"strings"

	"github.com/stellarlinkco/leadflow/internal/profile"
)

const (
	dealSizeBase       = 50000
	timeToCloseCeiling = 120
	churnRiskHigh      = 0.7
	churnRiskLow       = 0.3
)

// Predictions are the four business predictions derived from the scores.
type Predictions struct {
	TimeToCloseDays    int     `json:"timeToCloseDays"`
	DealSize           float64 `json:"dealSize"`
	SuccessProbability float64 `json:"successProbability"`
	ChurnRisk          float64 `json:"churnRisk"`
}

// CompanySizeMultiplier maps the size bracket to a deal-size multiplier.
func CompanySizeMultiplier(companySize string) float64 {
	size := normalize(companySize)
	switch {
	case strings.Contains(size, "5000+"):
		return 3.0
	case strings.Contains(size, "500-5000"):
		return 2.5
	case strings.Contains(size, "100-500"):
		return 1.5
	default:
		return 1.0
	}
}

// ChallengeCountMultiplier rewards breadth of stated secondary challenges.
func ChallengeCountMultiplier(secondaryChallenges int) float64 {
	if secondaryChallenges >= 2 {
		return 1.5
	}
	return 1.0
}

// Predict derives the four predictions from the profile and its sub-scores.
func Predict(p *profile.Profile, s Scores) Predictions {
	momentum := float64(s.Fit+s.Engagement+s.Urgency) / 3
	overall := float64(s.Fit+s.Engagement+s.Urgency+s.Budget+s.Authority) / 5

	churn := churnRiskLow
	if overall < 50 {
		churn = churnRiskHigh
	}

	return Predictions{
		TimeToCloseDays:    int(math.Round(timeToCloseCeiling - momentum)),
		DealSize:           dealSizeBase * CompanySizeMultiplier(p.CompanySize) * ChallengeCountMultiplier(len(p.SecondaryChallenges)),
		SuccessProbability: overall / 100,
		ChurnRisk:          churn,
	}
}
