// Package popup is the list editor surface: a terminal rendition of the
// extension popup. It edits a working copy of the tab list and pushes the
// whole list back through the coordinator on save, skipping the write when
// nothing changed.
package popup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lotas/setuptabs/internal/export"
	"github.com/lotas/setuptabs/internal/types"
	"github.com/lotas/setuptabs/internal/urlcodec"
)

// Backend is the slice of the coordinator the popup needs.
type Backend interface {
	Tabs(ctx context.Context) (types.TabList, bool, error)
	SetTabs(ctx context.Context, tabs types.TabList) error
	Import(ctx context.Context, payload json.RawMessage, overwrite, preserveOtherOrg bool) (types.TabList, error)
	Export(ctx context.Context, tabs types.TabList) error
}

// --- Messages ---

type tabsLoadedMsg struct {
	tabs  types.TabList
	found bool
	err   error
}

type savedMsg struct{ err error }

type importedMsg struct {
	tabs types.TabList
	err  error
}

type exportedMsg struct{ err error }

// input mode for the two-field add flow
type inputField int

const (
	fieldNone inputField = iota
	fieldTitle
	fieldURL
)

// Model is the popup's bubbletea model.
type Model struct {
	ctx     context.Context
	backend Backend

	tabs   types.TabList
	loaded types.TabList // last known persisted list, for skip-save
	cursor int
	org    string // stamp on new tabs when set

	field      inputField
	inputTitle string
	inputBuf   string

	loading bool
	status  string
	err     error
	width   int
	height  int
}

// New returns a popup editor bound to a backend. org, when non-empty, is
// stamped on tabs added from this session.
func New(ctx context.Context, backend Backend, org string) Model {
	return Model{
		ctx:     ctx,
		backend: backend,
		org:     org,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadTabs()
}

func (m Model) loadTabs() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		tabs, found, err := backend.Tabs(ctx)
		return tabsLoadedMsg{tabs: tabs, found: found, err: err}
	}
}

// save pushes the working copy, unless it matches the last known persisted
// list.
func (m Model) save() tea.Cmd {
	if m.tabs.Equal(m.loaded) {
		return func() tea.Msg { return savedMsg{} }
	}
	ctx, backend, tabs := m.ctx, m.backend, m.tabs.Clone()
	return func() tea.Msg {
		return savedMsg{err: backend.SetTabs(ctx, tabs)}
	}
}

func (m Model) runImport(overwrite bool) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		data, err := export.ReadFile(export.DefaultPath())
		if err != nil {
			return importedMsg{err: err}
		}
		tabs, err := backend.Import(ctx, data, overwrite, true)
		return importedMsg{tabs: tabs, err: err}
	}
}

func (m Model) runExport() tea.Cmd {
	ctx, backend, tabs := m.ctx, m.backend, m.tabs.Clone()
	return func() tea.Msg {
		return exportedMsg{err: backend.Export(ctx, tabs)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tabsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		tabs := msg.tabs
		if !msg.found {
			tabs = types.DefaultTabs()
		}
		m.tabs = tabs
		m.loaded = tabs.Clone()
		m.err = nil
		if m.cursor >= len(m.tabs) {
			m.cursor = len(m.tabs) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.loaded = m.tabs.Clone()
		m.status = "saved"
		return m, nil

	case importedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.tabs = msg.tabs
		m.loaded = msg.tabs.Clone()
		m.status = fmt.Sprintf("imported %d tabs", len(msg.tabs))
		m.err = nil
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.status = "exported " + export.FileName
		return m, nil

	case tea.KeyMsg:
		if m.field != fieldNone {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.field = fieldNone
		m.inputBuf = ""
		m.inputTitle = ""
	case "enter":
		if m.field == fieldTitle {
			if strings.TrimSpace(m.inputBuf) == "" {
				return m, nil
			}
			m.inputTitle = m.inputBuf
			m.inputBuf = ""
			m.field = fieldURL
			return m, nil
		}
		url := urlcodec.CleanupURL(strings.TrimSpace(m.inputBuf))
		if url == "" {
			return m, nil
		}
		tab := types.Tab{TabTitle: m.inputTitle, URL: url, Org: m.org}
		m.tabs = append(m.tabs.Clone(), tab)
		m.cursor = len(m.tabs) - 1
		m.field = fieldNone
		m.inputBuf = ""
		m.inputTitle = ""
		m.status = "added " + tab.TabTitle
	case "backspace":
		if len(m.inputBuf) > 0 {
			m.inputBuf = m.inputBuf[:len(m.inputBuf)-1]
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.inputBuf += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			m.inputBuf += " "
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "q", "esc":
		// save-on-close, like the popup losing focus
		return m, tea.Sequence(m.save(), tea.Quit)

	case "j", "down":
		if m.cursor < len(m.tabs)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case "J", "shift+down":
		if m.cursor < len(m.tabs)-1 {
			tabs := m.tabs.Clone()
			tabs[m.cursor], tabs[m.cursor+1] = tabs[m.cursor+1], tabs[m.cursor]
			m.tabs = tabs
			m.cursor++
		}
	case "K", "shift+up":
		if m.cursor > 0 {
			tabs := m.tabs.Clone()
			tabs[m.cursor], tabs[m.cursor-1] = tabs[m.cursor-1], tabs[m.cursor]
			m.tabs = tabs
			m.cursor--
		}

	case "d", "x":
		if m.cursor < len(m.tabs) {
			tabs := m.tabs.Clone()
			m.tabs = append(tabs[:m.cursor], tabs[m.cursor+1:]...)
			if m.cursor >= len(m.tabs) && m.cursor > 0 {
				m.cursor--
			}
		}

	case "a":
		m.field = fieldTitle
		m.inputBuf = ""
		m.inputTitle = ""

	case "s":
		return m, m.save()

	case "i":
		return m, m.runImport(false)
	case "I":
		return m, m.runImport(true)
	case "e":
		return m, m.runExport()

	case "E":
		m.tabs = types.TabList{}
		m.cursor = 0
		m.status = "emptied (s to persist)"

	case "r":
		m.loading = true
		return m, m.loadTabs()
	}
	return m, nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cursorStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	orgStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m Model) View() string {
	if m.loading {
		return "Loading tabs..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Setup Tabs"))
	b.WriteString("\n\n")

	if len(m.tabs) == 0 {
		b.WriteString(dimStyle.Render("  no tabs") + "\n")
	}
	for i, tab := range m.tabs {
		line := fmt.Sprintf("  %s  %s", tab.TabTitle, dimStyle.Render(tab.URL))
		if tab.Org != "" {
			line += "  " + orgStyle.Render("["+tab.Org+"]")
		}
		if i == m.cursor && m.field == fieldNone {
			line = cursorStyle.Render(fmt.Sprintf("  %s  %s", tab.TabTitle, tab.URL))
			if tab.Org != "" {
				line += "  " + orgStyle.Render("["+tab.Org+"]")
			}
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	switch m.field {
	case fieldTitle:
		b.WriteString("title: " + m.inputBuf + "█\n")
	case fieldURL:
		b.WriteString("title: " + m.inputTitle + "\n")
		b.WriteString("url:   " + m.inputBuf + "█\n")
	default:
		b.WriteString(dimStyle.Render("j/k move · J/K reorder · a add · d delete · i/I import · e export · E empty · s save · q quit"))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(errStyle.Render("error: "+m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString(dimStyle.Render(m.status) + "\n")
	}
	return b.String()
}

// Run starts the popup editor and blocks until it exits.
func Run(ctx context.Context, backend Backend, org string) error {
	p := tea.NewProgram(New(ctx, backend, org))
	_, err := p.Run()
	return err
}
