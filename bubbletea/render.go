package bubbletea

import (
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/warden"
)

func (m Model) headerLine() string {
	conv, ok := m.store.Active()
	if !ok {
		return m.styles.Accent.Render("warden") + m.styles.Muted.Render("  no conversations")
	}
	parts := []string{m.styles.Accent.Render(conv.Title)}
	if n := conv.Tools.Len(); n > 0 {
		names := make([]string, 0, n)
		for _, id := range conv.Tools.IDs() {
			names = append(names, warden.ToolName(id))
		}
		parts = append(parts, m.styles.ToolCall.Render("["+strings.Join(names, ", ")+"]"))
	}
	if !conv.UpdatedAt.IsZero() {
		parts = append(parts, m.styles.Muted.Render(warden.RelativeTime(conv.UpdatedAt, time.Now())))
	}
	if count := len(m.store.Snapshot()); count > 1 {
		parts = append(parts, m.styles.Muted.Render(fmt.Sprintf("(%d chats, Tab to cycle)", count)))
	}
	return strings.Join(parts, "  ")
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.busy {
		return m.styles.Muted.Render("Working...")
	}
	return m.styles.Muted.Render("Enter send · Ctrl+T tools · Ctrl+N new · Ctrl+D delete · Ctrl+C quit")
}

func (m Model) pickerView() string {
	var b strings.Builder
	b.WriteString(m.styles.Accent.Render("Launch tools:"))
	for i, t := range m.catalog {
		mark := " "
		if _, ok := m.picked[t.ID]; ok {
			mark = "x"
		}
		b.WriteString(fmt.Sprintf("  %d[%s] %s", i+1, mark, t.Name))
	}
	b.WriteString(m.styles.Muted.Render("  (Enter launch, Esc cancel)"))
	return b.String()
}

func (m Model) renderContent() string {
	conv, ok := m.store.Active()
	if !ok {
		return m.styles.Muted.Render("No conversations yet. Ctrl+N starts one.")
	}
	if len(conv.Messages) == 0 {
		return m.styles.Muted.Render("No messages yet. Say something!")
	}

	var b strings.Builder
	for i, msg := range conv.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	return b.String()
}

// renderMessage renders one timeline entry. The switch is exhaustive over the
// sealed message variants; an unknown variant renders as a visible
// placeholder rather than disappearing.
func (m Model) renderMessage(msg warden.Message) string {
	switch v := msg.(type) {
	case warden.UserText:
		return m.styles.UserMsg.Render(m.user.DisplayName+": ") + v.Text
	case warden.SystemNotice:
		return m.styles.System.Render(v.Text)
	case warden.AssistantText:
		return m.styles.Accent.Render("assistant: ") + v.Text
	case warden.AssistantToolExecution:
		var b strings.Builder
		b.WriteString(m.styles.ToolCall.Render(fmt.Sprintf("⚒ %s", warden.ToolName(v.Call.Name))))
		if len(v.Call.Args) > 0 {
			b.WriteString(m.styles.Muted.Render(" " + string(v.Call.Args)))
		}
		if v.Validation != "" {
			b.WriteString("\n")
			b.WriteString(m.styles.Muted.Render("validation: " + v.Validation))
		}
		if v.Output != "" {
			b.WriteString("\n")
			b.WriteString(v.Output)
		}
		return b.String()
	case warden.ErrorNotice:
		return m.styles.Error.Render(v.Text)
	default:
		return m.styles.Muted.Render(fmt.Sprintf("(unrenderable message %T)", msg))
	}
}
