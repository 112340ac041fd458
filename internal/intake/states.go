// Package intake is the guided conversation: a finite state machine that
// decides what to ask next, extracts answers into the profile, and hands the
// finished profile to the scoring engine.
package intake

// State names one top-level conversation state. Transitions are directed and
// mostly linear; at most one state is active per session.
type State string

const (
	StateInitial               State = "initial"
	StateGreeting              State = "greeting"
	StateCollectingBasicInfo   State = "collectingBasicInfo"
	StateCollectingCompanyInfo State = "collectingCompanyInfo"
	StateCollectingChallenges  State = "collectingChallenges"
	StateCollectingContactInfo State = "collectingContactInfo"
	StatePerformingAnalysis    State = "performingAnalysis"
	StateBooking               State = "booking"
	StateCompleted             State = "completed"

	// Side branch, entered and exited explicitly.
	StateVoiceAssessment State = "voiceAssessment"

	// Scripted short-funnel variant; same ProcessTurn contract.
	StateDiscovery  State = "discovery"
	StateAssessment State = "assessment"
	StateSolution   State = "solution"
)

// Sub-stage cursors. Each multi-turn state owns a small enum so an invalid
// stage value is unrepresentable; the cursors are persisted with the session
// snapshot.

type BasicInfoStage int

const (
	BasicAskRole BasicInfoStage = iota
	BasicAskDepartment
	BasicAskYears
)

type CompanyStage int

const (
	CompanyAskName CompanyStage = iota
	CompanyAskSize
	CompanyAskRevenue
)

type ChallengeStage int

const (
	ChallengeAskPrimary ChallengeStage = iota
	ChallengeAskSecondary
	ChallengeAskTools
	ChallengeAskBudget
	ChallengeAskTimeframe
)

type ContactStage int

const (
	ContactAskName ContactStage = iota
	ContactAskEmail
	ContactAskPhone
)

type ScriptedStage int

const (
	ScriptedAskFirst ScriptedStage = iota
	ScriptedAskSecond
	ScriptedAskThird
)

// Stages bundles every cursor for snapshot serialization.
type Stages struct {
	BasicInfo BasicInfoStage `json:"basicInfo"`
	Company   CompanyStage   `json:"company"`
	Challenge ChallengeStage `json:"challenge"`
	Contact   ContactStage   `json:"contact"`
	Scripted  ScriptedStage  `json:"scripted"`
	Voice     int            `json:"voice"`
}

// Quick-reply suggestion sets. Enumerable fields are offered as buttons but
// free text is always accepted too.
var (
	companySizeOptions = []string{
		"1-100 employees",
		"100-500 employees",
		"500-5,000 employees",
		"5,000+ employees",
	}
	budgetOptions = []string{
		"Under $100K",
		"$100K-$250K",
		"$250K-$500K",
		"$500K-$1M",
		"$1M+",
	}
	timeframeOptions = []string{
		"Immediate",
		"This quarter",
		"This year",
		"Just exploring",
	}
	defaultSuggestions = []string{
		"Tell me about your solutions",
		"Schedule a demo",
		"Start over",
	}
)
