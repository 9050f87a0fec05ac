package bubbletea

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/warden"
	"github.com/fwojciec/warden/conversation"
	"github.com/fwojciec/warden/tools"
)

var _ tea.Model = Model{}

// mode is the input routing state. Normal routes keys to the text input;
// picker routes digits to the tool selection.
type mode int

const (
	modeNormal mode = iota
	modePicker
)

// Model is the Bubble Tea model for the warden chat TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable message area. Exported for test access.
	Viewport viewport.Model

	store    *conversation.Store
	launcher *tools.Launcher
	user     warden.Session
	theme    warden.Theme
	styles   Styles

	mode    mode
	picked  map[string]struct{} // tool picker selection, keyed by tool ID
	catalog []warden.ToolDescriptor

	busy    bool
	expired bool
	err     error
	ready   bool
}

// New creates a TUI Model over the given conversation store and tool launcher.
func New(store *conversation.Store, launcher *tools.Launcher, user warden.Session, theme warden.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:    ti,
		store:    store,
		launcher: launcher,
		user:     user,
		theme:    theme,
		styles:   NewStyles(theme),
		picked:   make(map[string]struct{}),
		catalog:  warden.Catalog(),
	}
}

// Busy returns whether a background operation is in flight.
func (m Model) Busy() bool { return m.busy }

// Err returns the last operation error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refreshCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case OpDoneMsg:
		m.busy = false
		m.err = msg.Err
		m = m.refreshViewport()
		cmd := m.Input.Focus()
		return m, cmd

	case SessionExpiredMsg:
		m.expired = true
		return m, tea.Quit
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.busy && m.mode == modeNormal {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.headerLine())
	b.WriteString("\n")
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	if m.mode == modePicker {
		b.WriteString(m.pickerView())
	} else {
		b.WriteString(m.statusLine())
	}
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	headerH := 1
	statusH := 1
	inputH := 1
	borderH := 3 // newlines between sections
	vpHeight := msg.Height - headerH - statusH - inputH - borderH
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modePicker {
		return m.handlePickerKey(msg)
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEnter:
		if m.busy {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)

	case tea.KeyCtrlN:
		if m.busy {
			return m, nil
		}
		return m.startOp(func(ctx context.Context) error {
			_, err := m.store.Create(ctx, "", nil)
			return err
		})

	case tea.KeyCtrlD:
		if m.busy {
			return m, nil
		}
		id := m.store.ActiveID()
		if id == "" {
			return m, nil
		}
		return m.startOp(func(ctx context.Context) error {
			return m.store.Delete(ctx, id)
		})

	case tea.KeyCtrlT:
		if m.busy {
			return m, nil
		}
		m.mode = modePicker
		m.picked = make(map[string]struct{})
		m.Input.Blur()
		return m, nil

	case tea.KeyTab:
		if !m.busy {
			m = m.cycleConversation(1)
			return m, m.loadActiveCmd()
		}
		return m, nil

	case tea.KeyShiftTab:
		if !m.busy {
			m = m.cycleConversation(-1)
			return m, m.loadActiveCmd()
		}
		return m, nil
	}

	if !m.busy {
		var cmds []tea.Cmd
		var cmd tea.Cmd
		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

// handlePickerKey routes keys while the tool picker is open: digits toggle
// catalog entries, Enter launches the selection, Esc cancels.
func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		m.mode = modeNormal
		cmd := m.Input.Focus()
		return m, cmd

	case tea.KeyEnter:
		ids := m.pickedIDs()
		m.mode = modeNormal
		if len(ids) == 0 {
			cmd := m.Input.Focus()
			return m, cmd
		}
		conversationID := m.store.ActiveID()
		model, opCmd := m.startOp(func(ctx context.Context) error {
			return m.launcher.Launch(ctx, conversationID, ids)
		})
		return model, opCmd

	case tea.KeyRunes:
		for _, r := range msg.Runes {
			idx := int(r - '1')
			if idx < 0 || idx >= len(m.catalog) {
				continue
			}
			id := m.catalog[idx].ID
			if _, ok := m.picked[id]; ok {
				delete(m.picked, id)
			} else {
				m.picked[id] = struct{}{}
			}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	conversationID := m.store.ActiveID()
	var toolIDs []string
	if conv, ok := m.store.Active(); ok {
		toolIDs = conv.Tools.IDs()
	}
	model, cmd := m.startOp(func(ctx context.Context) error {
		return m.store.Send(ctx, conversationID, text, toolIDs)
	})
	// Show the optimistic entry before the reply arrives.
	mm := model.(Model)
	mm = mm.refreshViewport()
	return mm, cmd
}

// startOp runs one engine operation in a background command. The model stays
// interactive for scrolling but rejects further operations until OpDoneMsg.
func (m Model) startOp(op func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	m.busy = true
	m.err = nil
	m.Input.Blur()
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		return OpDoneMsg{Err: op(ctx)}
	}
}

// refreshCmd loads the conversation list and the active history at startup.
func (m Model) refreshCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := store.LoadAll(ctx); err != nil {
			return OpDoneMsg{Err: err}
		}
		if id := store.ActiveID(); id != "" {
			if err := store.LoadMessages(ctx, id); err != nil {
				return OpDoneMsg{Err: err}
			}
		}
		return OpDoneMsg{}
	}
}

// loadActiveCmd fetches the newly active conversation's history.
func (m Model) loadActiveCmd() tea.Cmd {
	store := m.store
	id := store.ActiveID()
	if id == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		return OpDoneMsg{Err: store.LoadMessages(ctx, id)}
	}
}

// cycleConversation moves the active conversation by delta in list order.
func (m Model) cycleConversation(delta int) Model {
	convs := m.store.Snapshot()
	if len(convs) < 2 {
		return m
	}
	active := m.store.ActiveID()
	idx := 0
	for i, c := range convs {
		if c.ID == active {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(convs)) % len(convs)
	m.store.SetActive(convs[idx].ID)
	return m
}

func (m Model) refreshViewport() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) pickedIDs() []string {
	var ids []string
	for _, t := range m.catalog {
		if _, ok := m.picked[t.ID]; ok {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
