package intake

import (
	"fmt"
	"strings"
	"time"

	"github.com/stellarlinkco/leadflow/internal/profile"
	"github.com/stellarlinkco/leadflow/internal/scoring"
)

// Turn is the outcome of processing one visitor utterance.
type Turn struct {
	Reply       string
	Suggestions []string
	// Analysis is set exactly once per conversation, on the turn that
	// reaches the analysis state.
	Analysis *scoring.Result
}

type handlerFunc func(m *Machine, text string, p *profile.Profile) Turn

// Machine drives one conversation. It is not safe for concurrent use; the
// gateway serializes turns per conversation.
type Machine struct {
	state  State
	resume State // state interrupted by the voice side-branch
	stages Stages

	scripted bool
	now      func() time.Time
}

// New returns a machine at the initial state. funnel is "full" or
// "scripted"; anything unrecognized falls back to the full funnel.
func New(funnel string) *Machine {
	return &Machine{
		state:    StateInitial,
		scripted: funnel == "scripted",
		now:      time.Now,
	}
}

// State reports the current top-level state.
func (m *Machine) State() State { return m.state }

// Stages reports the sub-stage cursors for snapshotting.
func (m *Machine) Stages() Stages { return m.stages }

// Restore rewinds the machine to a snapshotted position.
func (m *Machine) Restore(state State, stages Stages) {
	m.state = state
	m.stages = stages
}

var handlers = map[State]handlerFunc{
	StateInitial:               handleInitial,
	StateGreeting:              handleGreeting,
	StateCollectingBasicInfo:   handleBasicInfo,
	StateCollectingCompanyInfo: handleCompanyInfo,
	StateCollectingChallenges:  handleChallenges,
	StateCollectingContactInfo: handleContactInfo,
	StatePerformingAnalysis:    handleAnalysis,
	StateBooking:               handleBooking,
	StateCompleted:             handleCompleted,
	StateVoiceAssessment:       handleVoice,
	StateDiscovery:             handleDiscovery,
	StateAssessment:            handleAssessment,
	StateSolution:              handleSolution,
}

// ProcessTurn consumes one utterance: it mutates the profile, may advance
// the state, and returns the reply plus quick-reply suggestions.
func (m *Machine) ProcessTurn(utterance string, p *profile.Profile) Turn {
	p.Touch(m.now())

	lower := strings.ToLower(utterance)
	if strings.Contains(lower, "start over") {
		*p = *p.Reset(m.now())
		m.state = StateInitial
		m.resume = ""
		m.stages = Stages{}
		return Turn{
			Reply:       "No problem, let's start fresh! What brings you here today?",
			Suggestions: defaultSuggestions,
		}
	}

	if m.state != StateVoiceAssessment && m.state != StateCompleted &&
		strings.Contains(lower, "voice assessment") {
		m.resume = m.state
		m.state = StateVoiceAssessment
		m.stages.Voice = 0
		return Turn{Reply: "Switching to the voice assessment. In a sentence or two, describe the workflow that costs your team the most time. Say \"done\" when you're finished."}
	}

	h, ok := handlers[m.state]
	if !ok {
		// Unrecognized state: never advance, never mutate.
		return Turn{
			Reply:       "I'm not sure I caught that. Here are a few things I can help with.",
			Suggestions: defaultSuggestions,
		}
	}
	return h(m, utterance, p)
}

func handleInitial(m *Machine, text string, p *profile.Profile) Turn {
	if m.scripted {
		m.state = StateDiscovery
		m.stages.Scripted = ScriptedAskFirst
		return Turn{Reply: "Hi! I'll keep this quick - three questions and I'll point you at the right solution. First: what's the biggest challenge you're looking to solve?"}
	}
	m.state = StateGreeting
	return Turn{
		Reply:       "Welcome! I'm here to figure out how we can help your team. What brings you here today?",
		Suggestions: []string{"Exploring automation", "Reducing costs", "Just browsing"},
	}
}

func handleGreeting(m *Machine, text string, p *profile.Profile) Turn {
	p.Merge(profile.Delta{Custom: map[string]string{"visitReason": text}})
	m.state = StateCollectingBasicInfo
	m.stages.BasicInfo = BasicAskRole
	return Turn{Reply: "Great, thanks for sharing. To tailor things a bit: what's your role?"}
}

func handleBasicInfo(m *Machine, text string, p *profile.Profile) Turn {
	switch m.stages.BasicInfo {
	case BasicAskRole:
		p.Merge(profile.Delta{Role: text})
		m.stages.BasicInfo = BasicAskDepartment
		return Turn{Reply: "Got it. Which department are you part of?"}
	case BasicAskDepartment:
		p.Merge(profile.Delta{Department: text})
		m.stages.BasicInfo = BasicAskYears
		return Turn{Reply: "And roughly how long have you been in this role?"}
	default: // BasicAskYears
		p.Merge(profile.Delta{YearsInRole: text})
		m.state = StateCollectingCompanyInfo
		m.stages.Company = CompanyAskName
		return Turn{Reply: "Thanks! Now a little about your organization. What's the company called?"}
	}
}

func handleCompanyInfo(m *Machine, text string, p *profile.Profile) Turn {
	switch m.stages.Company {
	case CompanyAskName:
		p.Merge(profile.Delta{Company: text})
		m.stages.Company = CompanyAskSize
		return Turn{
			Reply:       "How many people work there?",
			Suggestions: companySizeOptions,
		}
	case CompanyAskSize:
		p.Merge(profile.Delta{CompanySize: matchCompanySize(text)})
		m.stages.Company = CompanyAskRevenue
		return Turn{Reply: "If you're comfortable sharing, what's the rough annual revenue? Feel free to skip this one."}
	default: // CompanyAskRevenue
		if !isDecline(text) {
			p.Merge(profile.Delta{RevenueBracket: text})
		}
		m.state = StateCollectingChallenges
		m.stages.Challenge = ChallengeAskPrimary
		return Turn{Reply: "Now the interesting part: what's the main challenge you're hoping to solve?"}
	}
}

func handleChallenges(m *Machine, text string, p *profile.Profile) Turn {
	switch m.stages.Challenge {
	case ChallengeAskPrimary:
		p.Merge(profile.Delta{PrimaryChallenge: text})
		m.stages.Challenge = ChallengeAskSecondary
		return Turn{Reply: "Anything else on the list? You can name a few, or say \"none\"."}
	case ChallengeAskSecondary:
		if !isDecline(text) {
			p.Merge(profile.Delta{SecondaryChallenges: splitList(text)})
		}
		m.stages.Challenge = ChallengeAskTools
		return Turn{Reply: "What tools or systems are you using for this today?"}
	case ChallengeAskTools:
		if !isDecline(text) {
			p.Merge(profile.Delta{CurrentTools: splitList(text)})
		}
		m.stages.Challenge = ChallengeAskBudget
		return Turn{
			Reply:       "Is there a budget range you have in mind?",
			Suggestions: budgetOptions,
		}
	case ChallengeAskBudget:
		if !isDecline(text) {
			p.Merge(profile.Delta{BudgetBracket: matchBudget(text)})
		}
		m.stages.Challenge = ChallengeAskTimeframe
		return Turn{
			Reply:       "And when would you want something in place?",
			Suggestions: timeframeOptions,
		}
	default: // ChallengeAskTimeframe
		p.Merge(profile.Delta{Timeframe: matchTimeframe(text)})
		m.state = StateCollectingContactInfo
		m.stages.Contact = ContactAskName
		if p.Name != "" {
			m.stages.Contact = ContactAskEmail
			return Turn{Reply: fmt.Sprintf("Almost done, %s. What's the best email to send a tailored summary to?", p.Name)}
		}
		return Turn{Reply: "Almost done! Who am I speaking with?"}
	}
}

func handleContactInfo(m *Machine, text string, p *profile.Profile) Turn {
	switch m.stages.Contact {
	case ContactAskName:
		p.Merge(profile.Delta{Name: text})
		m.stages.Contact = ContactAskEmail
		return Turn{Reply: fmt.Sprintf("Nice to meet you, %s. What's the best email to send a tailored summary to?", p.Name)}
	case ContactAskEmail:
		if err := p.SetEmail(text); err != nil {
			// Validation failure re-prompts without advancing.
			return Turn{Reply: "Hmm, that doesn't look like an email address. Could you double-check it?"}
		}
		m.stages.Contact = ContactAskPhone
		return Turn{Reply: "Perfect. Lastly, a phone number in case a quick call is easier? Happy to skip this."}
	default: // ContactAskPhone
		if !isDecline(text) {
			p.Merge(profile.Delta{Phone: text})
		}
		m.state = StatePerformingAnalysis
		return handleAnalysis(m, text, p)
	}
}

// handleAnalysis runs the scoring engine synchronously and attaches the
// result to the outgoing turn.
func handleAnalysis(m *Machine, _ string, p *profile.Profile) Turn {
	res := scoring.Analyze(p, m.now())
	m.state = StateBooking
	return Turn{
		Reply: fmt.Sprintf("%s\n\nBased on everything you've shared, I'd suggest a short call with our team. Want me to set that up?",
			res.Insights.Summary),
		Suggestions: []string{"Yes, schedule a call", "Not right now"},
		Analysis:    &res,
	}
}

func handleBooking(m *Machine, text string, p *profile.Profile) Turn {
	m.state = StateCompleted
	if isAffirmative(text) {
		return Turn{
			Reply:       "Great - pick any slot that suits you: https://cal.example.com/leadflow/intro. Anything else I can help with in the meantime?",
			Suggestions: defaultSuggestions,
		}
	}
	return Turn{
		Reply:       "No problem at all. Your summary is on its way to your inbox, and I'm here if questions come up.",
		Suggestions: defaultSuggestions,
	}
}

func handleCompleted(m *Machine, text string, p *profile.Profile) Turn {
	// Free-form questions after completion are routed to the model by the
	// gateway; this reply only appears when no completion backend is wired.
	return Turn{
		Reply:       "Happy to help with anything else!",
		Suggestions: defaultSuggestions,
	}
}

func handleVoice(m *Machine, text string, p *profile.Profile) Turn {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "done" || lower == "exit" || strings.Contains(lower, "stop") {
		back := m.resume
		if back == "" {
			back = StateInitial
		}
		m.state = back
		m.resume = ""
		return Turn{Reply: "Thanks - noted. Picking up where we left off: " + resumePrompt(back)}
	}
	key := fmt.Sprintf("voiceNote%d", m.stages.Voice+1)
	p.Merge(profile.Delta{Custom: map[string]string{key: text}})
	m.stages.Voice++
	return Turn{Reply: "Got it. Anything else about that workflow? Say \"done\" when you're finished."}
}

// resumePrompt restates the question for the state the voice branch
// interrupted.
func resumePrompt(s State) string {
	switch s {
	case StateCollectingBasicInfo:
		return "we were talking about your role."
	case StateCollectingCompanyInfo:
		return "we were talking about your organization."
	case StateCollectingChallenges:
		return "we were talking about your challenges."
	case StateCollectingContactInfo:
		return "I just need your contact details."
	default:
		return "what brings you here today?"
	}
}

func handleDiscovery(m *Machine, text string, p *profile.Profile) Turn {
	switch m.stages.Scripted {
	case ScriptedAskFirst:
		p.Merge(profile.Delta{PrimaryChallenge: text})
		m.stages.Scripted = ScriptedAskSecond
		return Turn{Reply: "That's a common one. What company are you with?"}
	default:
		p.Merge(profile.Delta{Company: text})
		m.state = StateAssessment
		m.stages.Scripted = ScriptedAskFirst
		return Turn{
			Reply:       "Thanks! Quick sizing question: how many people work there?",
			Suggestions: companySizeOptions,
		}
	}
}

func handleAssessment(m *Machine, text string, p *profile.Profile) Turn {
	switch m.stages.Scripted {
	case ScriptedAskFirst:
		p.Merge(profile.Delta{CompanySize: matchCompanySize(text)})
		m.stages.Scripted = ScriptedAskSecond
		return Turn{
			Reply:       "When would you want something in place?",
			Suggestions: timeframeOptions,
		}
	default:
		p.Merge(profile.Delta{Timeframe: matchTimeframe(text)})
		m.state = StateSolution
		m.stages.Scripted = ScriptedAskFirst
		return Turn{Reply: "Last one: what's the best email for your tailored recommendation?"}
	}
}

func handleSolution(m *Machine, text string, p *profile.Profile) Turn {
	if err := p.SetEmail(text); err != nil {
		return Turn{Reply: "Hmm, that doesn't look like an email address. Could you double-check it?"}
	}
	m.state = StatePerformingAnalysis
	res := scoring.Analyze(p, m.now())
	m.state = StateCompleted
	return Turn{
		Reply: fmt.Sprintf("%s\n\nYour recommendation is on its way. If you'd like to talk it through, grab a slot here: https://cal.example.com/leadflow/intro",
			res.Insights.Summary),
		Suggestions: defaultSuggestions,
		Analysis:    &res,
	}
}
