// Package notify pushes qualified-lead events to the sales team. Delivery
// is best-effort fan-out; a failing sink logs and never blocks the
// conversation.
package notify

import (
	"context"
	"log"

	"github.com/stellarlinkco/leadflow/internal/profile"
	"github.com/stellarlinkco/leadflow/internal/scoring"
)

// Notifier is one outbound sink for lead events.
type Notifier interface {
	Name() string
	AnalysisComplete(ctx context.Context, p *profile.Profile, res *scoring.Result) error
	SessionAbandoned(ctx context.Context, sessionKey string, p *profile.Profile) error
	RecoveryLinkRequested(ctx context.Context, sessionKey string, p *profile.Profile) error
}

// Dispatcher fans each event out to every registered sink.
type Dispatcher struct {
	sinks []Notifier
}

func NewDispatcher(sinks ...Notifier) *Dispatcher {
	return &Dispatcher{sinks: sinks}
}

func (d *Dispatcher) Register(n Notifier) {
	d.sinks = append(d.sinks, n)
}

func (d *Dispatcher) AnalysisComplete(ctx context.Context, p *profile.Profile, res *scoring.Result) {
	for _, n := range d.sinks {
		if err := n.AnalysisComplete(ctx, p, res); err != nil {
			log.Printf("[notify] %s: analysis notification failed: %v", n.Name(), err)
		}
	}
}

func (d *Dispatcher) SessionAbandoned(ctx context.Context, sessionKey string, p *profile.Profile) {
	for _, n := range d.sinks {
		if err := n.SessionAbandoned(ctx, sessionKey, p); err != nil {
			log.Printf("[notify] %s: abandonment notification failed: %v", n.Name(), err)
		}
	}
}

// RecoveryLinkRequested asks the sinks to mail the visitor a resume link.
func (d *Dispatcher) RecoveryLinkRequested(ctx context.Context, sessionKey string, p *profile.Profile) {
	for _, n := range d.sinks {
		if err := n.RecoveryLinkRequested(ctx, sessionKey, p); err != nil {
			log.Printf("[notify] %s: recovery link request failed: %v", n.Name(), err)
		}
	}
}
