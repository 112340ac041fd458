// Package session persists conversation snapshots and watches live sessions
// for autosave and abandonment.
package session

import (
	"time"

	"github.com/stellarlinkco/leadflow/internal/intake"
	"github.com/stellarlinkco/leadflow/internal/profile"
)

// Snapshot is everything needed to resume a conversation: the transcript,
// the accumulated profile, and the state machine position.
type Snapshot struct {
	SessionKey string            `json:"sessionKey"`
	Messages   []profile.Message `json:"messages"`
	Profile    profile.Profile   `json:"profile"`
	State      intake.State      `json:"state"`
	Stages     intake.Stages     `json:"stages"`
	SourceURL  string            `json:"sourceUrl,omitempty"`
	SavedAt    time.Time         `json:"savedAt"`
}
