package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/danieljhkim/bundlever/internal/controller"
	"github.com/danieljhkim/bundlever/internal/engine"
	"github.com/danieljhkim/bundlever/internal/plugin"
	"github.com/danieljhkim/bundlever/internal/version"
)

// Controller is the part of the workspace controller the view drives.
type Controller interface {
	Increment(ctx context.Context, part version.Part, selection []string) (int, error)
	SetVersion(ctx context.Context, selection []string, text string) (int, error)
	Apply(ctx context.Context) (*engine.ApplyResult, error)
	Revert(ctx context.Context) error
	Reload(ctx context.Context) (uint64, error)
}

// eventMsg wraps a controller event.
type eventMsg struct{ event controller.Event }

// eventsClosedMsg signals the controller shut down.
type eventsClosedMsg struct{}

// opDoneMsg reports the outcome of an operation run off the UI goroutine.
type opDoneMsg struct {
	status string
	err    error
}

// manifestsChangedMsg is sent by the file watcher.
type manifestsChangedMsg struct{}

// Model is the bubbletea model of the plugin list.
type Model struct {
	ctx    context.Context
	ctrl   Controller
	events <-chan controller.Event

	workspace string
	plugins   []plugin.View
	selected  map[string]bool
	cursor    int
	pending   bool
	loading   bool

	status   string
	err      error
	warnings []string
	warnGen  uint64

	input        textinput.Model
	editing      bool
	defaultValue string

	keys  keyMap
	help  help.Model
	width int
}

// NewModel creates the model. plugins is the registry view at start-up.
func NewModel(ctx context.Context, ctrl Controller, events <-chan controller.Event, workspace string, plugins []plugin.View, defaultVersion string) Model {
	input := textinput.New()
	input.Placeholder = defaultVersion
	input.Prompt = "Version: "
	input.CharLimit = 64

	m := Model{
		ctx:          ctx,
		ctrl:         ctrl,
		events:       events,
		workspace:    workspace,
		selected:     make(map[string]bool),
		input:        input,
		defaultValue: defaultVersion,
		keys:         defaultKeyMap(),
		help:         help.New(),
	}
	m.setPlugins(plugins)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func waitForEvent(events <-chan controller.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func (m *Model) setPlugins(views []plugin.View) {
	m.plugins = views
	m.pending = false
	known := make(map[string]bool, len(views))
	for _, v := range views {
		known[v.Name] = true
		if v.Modified {
			m.pending = true
		}
	}
	for name := range m.selected {
		if !known[name] {
			delete(m.selected, name)
		}
	}
	if m.cursor >= len(views) {
		m.cursor = max(len(views)-1, 0)
	}
	m.keys.setPending(m.pending)
}

// selection returns the checked names in registry order.
func (m Model) selection() []string {
	var out []string
	for _, v := range m.plugins {
		if m.selected[v.Name] {
			out = append(out, v.Name)
		}
	}
	return out
}

func nothingSelected() tea.Msg {
	return opDoneMsg{status: "No plugins selected"}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		m.handleEvent(msg.event)
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		return m, tea.Quit

	case opDoneMsg:
		m.status, m.err = msg.status, msg.err
		return m, nil

	case manifestsChangedMsg:
		if m.pending {
			m.status = "Manifests changed on disk; press r to reload (drops staged edits)"
			return m, nil
		}
		return m, m.reloadCmd()

	case tea.KeyMsg:
		if m.editing {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m *Model) handleEvent(ev controller.Event) {
	switch e := ev.(type) {
	case controller.WorkspaceChanged:
		if e.Generation != m.warnGen {
			m.warnings = nil
		}
		m.workspace = e.Workspace
		m.loading = false
		m.setPlugins(e.Plugins)
		m.status = fmt.Sprintf("Loaded %d plugins", len(e.Plugins))
	case controller.ManifestCorrupt:
		if e.Generation != m.warnGen {
			m.warnings, m.warnGen = nil, e.Generation
		}
		m.warnings = append(m.warnings, fmt.Sprintf("corrupt manifest %s: %v", e.Ref, e.Err))
	case controller.ScanFailed:
		m.loading = false
		m.err = e.Err
	case controller.PluginsUpdated:
		m.setPlugins(e.Plugins)
	case controller.ApplyCompleted:
		m.status = fmt.Sprintf("Saved %d plugins", e.Succeeded)
		if len(e.Failed) > 0 {
			m.err = fmt.Errorf("failed to save %s", strings.Join(e.Failed, ", "))
		} else {
			m.err = nil
		}
	}
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.plugins)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		if len(m.plugins) > 0 {
			name := m.plugins[m.cursor].Name
			if m.selected[name] {
				delete(m.selected, name)
			} else {
				m.selected[name] = true
			}
		}

	case key.Matches(msg, m.keys.All):
		if len(m.selected) == len(m.plugins) {
			m.selected = make(map[string]bool)
		} else {
			for _, v := range m.plugins {
				m.selected[v.Name] = true
			}
		}

	case key.Matches(msg, m.keys.Major):
		return m, m.incrementCmd(version.Major)
	case key.Matches(msg, m.keys.Minor):
		return m, m.incrementCmd(version.Minor)
	case key.Matches(msg, m.keys.Micro):
		return m, m.incrementCmd(version.Micro)

	case key.Matches(msg, m.keys.Set):
		if len(m.selection()) == 0 {
			m.status, m.err = "No plugins selected", nil
			return m, nil
		}
		m.editing = true
		m.input.SetValue(m.defaultValue)
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Apply):
		return m, m.applyCmd()

	case key.Matches(msg, m.keys.Revert):
		return m, m.revertCmd()

	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, m.reloadCmd()
	}

	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		return m, m.setVersionCmd(m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) incrementCmd(part version.Part) tea.Cmd {
	sel := m.selection()
	if len(sel) == 0 {
		return nothingSelected
	}
	return func() tea.Msg {
		n, err := m.ctrl.Increment(m.ctx, part, sel)
		return opDoneMsg{status: fmt.Sprintf("Bumped %s of %d plugins", part, n), err: err}
	}
}

func (m Model) setVersionCmd(text string) tea.Cmd {
	sel := m.selection()
	if len(sel) == 0 {
		return nothingSelected
	}
	return func() tea.Msg {
		n, err := m.ctrl.SetVersion(m.ctx, sel, text)
		if err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{status: fmt.Sprintf("Set %d plugins to %s", n, strings.TrimSpace(text))}
	}
}

func (m Model) applyCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.ctrl.Apply(m.ctx)
		if err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{status: fmt.Sprintf("Saved %d of %d plugins", result.Succeeded, result.Attempted), err: result.Err()}
	}
}

func (m Model) revertCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.ctrl.Revert(m.ctx); err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{status: "Reverted all staged edits"}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	return func() tea.Msg {
		if _, err := m.ctrl.Reload(m.ctx); err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{status: "Reloading..."}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("bundlever"))
	b.WriteString(subtleStyle.Render("  " + m.workspace))
	b.WriteString("\n\n")

	if len(m.plugins) == 0 {
		b.WriteString(subtleStyle.Render("No plugins found"))
		b.WriteString("\n")
	}

	nameWidth := 0
	for _, v := range m.plugins {
		nameWidth = max(nameWidth, lipgloss.Width(v.Name))
	}

	for i, v := range m.plugins {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		check := "[ ]"
		if m.selected[v.Name] {
			check = "[x]"
		}

		line := fmt.Sprintf("%s %-*s  %s", check, nameWidth, v.Name, v.Persisted)
		if v.Modified {
			line += modifiedStyle.Render(" -> " + v.Version.String())
		}
		b.WriteString(cursor + line + "\n")
	}

	if m.editing {
		b.WriteString("\n" + m.input.View() + "\n")
	}

	var status string
	switch {
	case m.loading:
		status = subtleStyle.Render("Scanning...")
	case m.err != nil:
		status = errorStyle.Render("Error: " + m.err.Error())
	case m.status != "":
		status = okStyle.Render(m.status)
	}
	if status != "" {
		b.WriteString(statusStyle.Render(status) + "\n")
	}
	for _, w := range m.warnings {
		b.WriteString(modifiedStyle.Render("! "+w) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}
