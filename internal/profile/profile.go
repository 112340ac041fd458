// Package profile holds the accumulating record of everything learned about
// a visitor during one conversation. It is pure data plus invariants: fields
// are append-only until an explicit reset, and derived results (scores,
// predictions) are attached by callers, never computed here.
package profile

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ErrInvalidEmail rejects a value that does not look like an address.
var ErrInvalidEmail = fmt.Errorf("profile: invalid email address")

// Profile is the single mutable record built up across a conversation.
// All fields are optional until set.
type Profile struct {
	// Identity
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`

	// Professional
	Role        string `json:"role,omitempty"`
	Department  string `json:"department,omitempty"`
	YearsInRole string `json:"yearsInRole,omitempty"`

	// Organization
	Company        string `json:"company,omitempty"`
	SiteURL        string `json:"siteUrl,omitempty"`
	CompanySize    string `json:"companySize,omitempty"`
	RevenueBracket string `json:"revenueBracket,omitempty"`
	Location       string `json:"location,omitempty"`

	// Engagement context
	PrimaryChallenge    string   `json:"primaryChallenge,omitempty"`
	SecondaryChallenges []string `json:"secondaryChallenges,omitempty"`
	CurrentTools        []string `json:"currentTools,omitempty"`
	BudgetBracket       string   `json:"budgetBracket,omitempty"`
	Timeframe           string   `json:"timeframe,omitempty"`

	// Derived enrichment
	Industry    string            `json:"industry,omitempty"`
	AIReadiness int               `json:"aiReadiness,omitempty"`
	Custom      map[string]string `json:"custom,omitempty"`

	// Engagement metrics
	FirstContact      time.Time `json:"firstContact"`
	LastContact       time.Time `json:"lastContact"`
	TotalInteractions int       `json:"totalInteractions"`
	PagesVisited      int       `json:"pagesVisited"`
	DownloadedContent bool      `json:"downloadedContent"`
}

// Delta is one field group collected in a single turn. Empty fields are
// ignored on merge; populated fields never overwrite an existing value.
type Delta struct {
	Name                string
	Email               string
	Phone               string
	Role                string
	Department          string
	YearsInRole         string
	Company             string
	SiteURL             string
	CompanySize         string
	RevenueBracket      string
	Location            string
	PrimaryChallenge    string
	SecondaryChallenges []string
	CurrentTools        []string
	BudgetBracket       string
	Timeframe           string
	Custom              map[string]string
}

// New returns an empty profile stamped with the conversation start time.
func New(now time.Time) *Profile {
	return &Profile{
		FirstContact: now,
		LastContact:  now,
	}
}

// ValidEmail reports whether s passes the basic address syntax check.
func ValidEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// SetEmail validates and stores the address. Once set it is never replaced.
func (p *Profile) SetEmail(s string) error {
	s = strings.TrimSpace(s)
	if !ValidEmail(s) {
		return ErrInvalidEmail
	}
	if p.Email == "" {
		p.Email = s
	}
	return nil
}

// Touch records one interaction and advances the last-contact timestamp,
// keeping FirstContact <= LastContact.
func (p *Profile) Touch(now time.Time) {
	if p.FirstContact.IsZero() || now.Before(p.FirstContact) {
		p.FirstContact = now
	}
	if now.After(p.LastContact) {
		p.LastContact = now
	}
	p.TotalInteractions++
}

func setIfEmpty(dst *string, v string) {
	v = strings.TrimSpace(v)
	if v != "" && *dst == "" {
		*dst = v
	}
}

// Merge applies one turn's delta append-only.
func (p *Profile) Merge(d Delta) {
	setIfEmpty(&p.Name, d.Name)
	setIfEmpty(&p.Phone, d.Phone)
	setIfEmpty(&p.Role, d.Role)
	setIfEmpty(&p.Department, d.Department)
	setIfEmpty(&p.YearsInRole, d.YearsInRole)
	setIfEmpty(&p.Company, d.Company)
	setIfEmpty(&p.SiteURL, d.SiteURL)
	setIfEmpty(&p.CompanySize, d.CompanySize)
	setIfEmpty(&p.RevenueBracket, d.RevenueBracket)
	setIfEmpty(&p.Location, d.Location)
	setIfEmpty(&p.PrimaryChallenge, d.PrimaryChallenge)
	setIfEmpty(&p.BudgetBracket, d.BudgetBracket)
	setIfEmpty(&p.Timeframe, d.Timeframe)

	if d.Email != "" {
		_ = p.SetEmail(d.Email)
	}
	p.SecondaryChallenges = appendNew(p.SecondaryChallenges, d.SecondaryChallenges)
	p.CurrentTools = appendNew(p.CurrentTools, d.CurrentTools)

	if len(d.Custom) > 0 {
		if p.Custom == nil {
			p.Custom = make(map[string]string, len(d.Custom))
		}
		for k, v := range d.Custom {
			if _, exists := p.Custom[k]; !exists && strings.TrimSpace(v) != "" {
				p.Custom[k] = v
			}
		}
	}
}

func appendNew(dst, src []string) []string {
	for _, v := range src {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, have := range dst {
			if strings.EqualFold(have, v) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

// EnrichmentData is a late-arriving lookup result merged without ever
// overwriting a visitor-stated value.
type EnrichmentData struct {
	Company  string
	Industry string
	Size     string
}

func (p *Profile) ApplyEnrichment(e EnrichmentData) {
	setIfEmpty(&p.Company, e.Company)
	setIfEmpty(&p.Industry, e.Industry)
	setIfEmpty(&p.CompanySize, e.Size)
}

// Reset returns a fresh profile; the only way collected fields are cleared.
func (p *Profile) Reset(now time.Time) *Profile {
	return New(now)
}

// FieldsPopulated counts how many of the six canonical qualification fields
// have been collected (used by the engagement score).
func (p *Profile) FieldsPopulated() int {
	n := 0
	for _, f := range []string{p.Name, p.Email, p.Company, p.Role, p.PrimaryChallenge, p.BudgetBracket} {
		if f != "" {
			n++
		}
	}
	return n
}
