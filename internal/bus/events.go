package bus

import "time"

// InboundMessage is one interaction arriving from a channel adapter.
type InboundMessage struct {
	Channel   string
	SenderID  string
	ChatID    string
	Text      string
	Timestamp time.Time
	Metadata  map[string]any
}

func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

// OutboundMessage is a reply routed back to a channel adapter.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Text    string
	ReplyTo string
}
