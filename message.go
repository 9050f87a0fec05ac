// Package warden defines the domain types and contracts for a client-side
// session and conversation synchronization engine. Remote access, persistence,
// and the terminal front-end live in subpackages.
package warden

import (
	"encoding/json"
	"time"
)

// Message is a sealed interface representing a conversation timeline entry.
// Insertion order is the authoritative timeline order; sequences are
// append-only between wholesale reloads from the remote store.
// The unexported marker method prevents external implementations.
type Message interface {
	isMessage()
	When() time.Time
}

// UserText is a message typed by the user.
type UserText struct {
	Text      string
	Timestamp time.Time
}

func (UserText) isMessage() {}

// When returns the message timestamp.
func (m UserText) When() time.Time { return m.Timestamp }

// SystemNotice is an informational message produced by the engine itself,
// such as a tool-launch confirmation.
type SystemNotice struct {
	Text      string
	Timestamp time.Time
}

func (SystemNotice) isMessage() {}

// When returns the message timestamp.
func (m SystemNotice) When() time.Time { return m.Timestamp }

// AssistantText is a plain text reply from the assistant.
type AssistantText struct {
	Text      string
	Timestamp time.Time
}

func (AssistantText) isMessage() {}

// When returns the message timestamp.
func (m AssistantText) When() time.Time { return m.Timestamp }

// ToolCall describes the invocation the assistant requested.
type ToolCall struct {
	Name string
	Args json.RawMessage
	ID   string
}

// AssistantToolExecution is an assistant reply that carried a tool call,
// its argument validation verdict, and the tool's output.
type AssistantToolExecution struct {
	Call       ToolCall
	Validation string
	Output     string
	Timestamp  time.Time
}

func (AssistantToolExecution) isMessage() {}

// When returns the message timestamp.
func (m AssistantToolExecution) When() time.Time { return m.Timestamp }

// ErrorNotice records a failed operation in the timeline so the failure stays
// visible next to the attempt that caused it. It is created locally and never
// arrives from the remote store.
type ErrorNotice struct {
	Text      string
	Timestamp time.Time
}

func (ErrorNotice) isMessage() {}

// When returns the message timestamp.
func (m ErrorNotice) When() time.Time { return m.Timestamp }

// Interface compliance checks.
var (
	_ Message = UserText{}
	_ Message = SystemNotice{}
	_ Message = AssistantText{}
	_ Message = AssistantToolExecution{}
	_ Message = ErrorNotice{}
)
