package gateway

import (
	"time"

	"github.com/stellarlinkco/leadflow/internal/intake"
	"github.com/stellarlinkco/leadflow/internal/profile"
	"github.com/stellarlinkco/leadflow/internal/session"
)

// Conversation is the live state for one session key. There is no global
// conversation; every session owns its own machine, profile, and
// transcript. Turns for a conversation are processed serially by the
// gateway loop.
type Conversation struct {
	SessionKey string
	Machine    *intake.Machine
	Profile    *profile.Profile
	Messages   []profile.Message
	SourceURL  string

	// notified/enriched latch the once-per-conversation side effects.
	notified bool
	enriched bool

	// gen invalidates in-flight enrichment lookups across a reset.
	gen int
}

func newConversation(sessionKey, funnel, sourceURL string, now time.Time) *Conversation {
	return &Conversation{
		SessionKey: sessionKey,
		Machine:    intake.New(funnel),
		Profile:    profile.New(now),
		SourceURL:  sourceURL,
	}
}

// fromSnapshot rebuilds a conversation from a persisted snapshot.
func fromSnapshot(snap session.Snapshot, funnel string) *Conversation {
	m := intake.New(funnel)
	m.Restore(snap.State, snap.Stages)
	p := snap.Profile
	c := &Conversation{
		SessionKey: snap.SessionKey,
		Machine:    m,
		Profile:    &p,
		Messages:   snap.Messages,
		SourceURL:  snap.SourceURL,
	}
	// A restored conversation that already ran analysis must not notify
	// again.
	if snap.State == intake.StateBooking || snap.State == intake.StateCompleted {
		c.notified = true
	}
	if p.Industry != "" {
		c.enriched = true
	}
	return c
}

func (c *Conversation) snapshot() session.Snapshot {
	return session.Snapshot{
		SessionKey: c.SessionKey,
		Messages:   c.Messages,
		Profile:    *c.Profile,
		State:      c.Machine.State(),
		Stages:     c.Machine.Stages(),
		SourceURL:  c.SourceURL,
	}
}

func (c *Conversation) appendMessage(role, content string, now time.Time) {
	c.Messages = append(c.Messages, profile.NewMessage(role, content, now))
}
