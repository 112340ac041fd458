package bus

import "time"

// InboundMessage is one visitor utterance or UI event entering the gateway.
type InboundMessage struct {
	Channel   string
	SenderID  string
	ChatID    string
	Content   string
	Timestamp time.Time
	SourceURL string
	Metadata  map[string]any
}

func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

// OutboundMessage is one assistant reply heading back to a channel.
type OutboundMessage struct {
	Channel     string
	ChatID      string
	Content     string
	Suggestions []string
	// Action carries a UI directive (open panel, navigate) produced by a
	// tool call; nil when the reply is plain text.
	Action   map[string]any
	Metadata map[string]any
}
