package warden

import "time"

// Conversation is a titled, ordered sequence of messages plus an
// activated-tool set. Conversations are created via an explicit create call,
// never inferred; the activated-tool set only grows by union while the
// conversation exists.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Tools     ToolSet
	Messages  []Message
}
