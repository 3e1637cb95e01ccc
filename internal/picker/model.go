package picker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// debounceInterval is the delay after the last keystroke before a fetch fires.
const debounceInterval = 100 * time.Millisecond

const viewPadX = 2

type pickerState int

const (
	stateIdle pickerState = iota
	stateLoading
	stateLoaded
	stateEmpty
	stateError
	stateCancelled
)

type fetchDoneMsg struct {
	err       error
	items     []Item
	requestID uint64
}

type debounceMsg struct{ id uint64 }

type initMsg struct{}

var (
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	queryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the Bubble Tea model for the predict/frecent picker TUI.
type Model struct {
	err         error
	provider    Provider
	cancelFetch context.CancelFunc
	result      string
	items       []Item
	textInput   textinput.Model
	debounceID  uint64
	requestID   uint64
	state       pickerState
	selection   int
	pageSize    int
	width       int
	height      int
}

// NewModel creates a new picker Model bound to the given provider.
func NewModel(provider Provider) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = queryStyle
	ti.Placeholder = "type to filter..."
	ti.Focus()
	return Model{
		state:     stateIdle,
		selection: -1,
		pageSize:  20,
		provider:  provider,
		textInput: ti,
	}
}

// WithQuery returns a copy of the Model with the initial query set.
func (m Model) WithQuery(q string) Model { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	m.textInput.SetValue(q)
	m.textInput.CursorEnd()
	return m
}

// WithPageSize returns a copy of the Model with the given page size. A
// non-positive size leaves the default untouched.
func (m Model) WithPageSize(n int) Model { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	if n > 0 {
		m.pageSize = n
	}
	return m
}

// Result returns the selected value, or "" if cancelled.
func (m Model) Result() string { return m.result } //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver

// IsCancelled reports whether the user cancelled the picker (e.g. with Esc).
func (m Model) IsCancelled() bool { return m.state == stateCancelled } //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	return tea.Batch(textinput.Blink, func() tea.Msg { return initMsg{} })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = m.contentWidth() - 4
		return m, nil
	case fetchDoneMsg:
		return m.handleFetchDone(msg)
	case debounceMsg:
		return m.handleDebounce(msg)
	case initMsg:
		return m, m.startFetch() //nolint:gocritic // evalOrder: bubbletea Update pattern returns cmd before model
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	switch msg.Type {
	case tea.KeyEsc:
		m.state = stateCancelled
		m.cancelInflight()
		return m, tea.Quit
	case tea.KeyCtrlU:
		if m.textInput.Value() == "" {
			return m, nil
		}
		m.textInput.SetValue("")
		m.textInput.CursorEnd()
		return m, m.startFetch() //nolint:gocritic // evalOrder: bubbletea Update pattern returns cmd before model
	case tea.KeyEnter:
		return m.handleSelect()
	case tea.KeyUp:
		m.moveSelection(-1)
		return m, nil
	case tea.KeyDown:
		m.moveSelection(+1)
		return m, nil
	}
	return m.handleTextInput(msg)
}

func (m Model) handleSelect() (tea.Model, tea.Cmd) { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	if m.selection >= 0 && m.selection < len(m.items) {
		m.result = m.items[m.selection].Value
	}
	m.cancelInflight()
	return m, tea.Quit
}

func (m *Model) moveSelection(delta int) {
	if m.state == stateLoading {
		return
	}
	next := m.selection + delta
	if next >= 0 && next < len(m.items) {
		m.selection = next
	}
}

func (m Model) handleTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	prevQuery := m.textInput.Value()
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)

	if m.textInput.Value() != prevQuery {
		return m, tea.Batch(cmd, m.startDebounce())
	}
	return m, cmd
}

func (m Model) handleFetchDone(msg fetchDoneMsg) (tea.Model, tea.Cmd) { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	if msg.requestID != m.requestID {
		return m, nil // stale response
	}

	if msg.err != nil {
		m.state = stateError
		m.err = msg.err
		m.items = nil
		m.selection = -1
		return m, nil
	}

	m.items = msg.items
	if len(m.items) == 0 {
		m.state = stateEmpty
		m.selection = -1
	} else {
		m.state = stateLoaded
		m.clampSelection()
	}
	return m, nil
}

func (m Model) handleDebounce(msg debounceMsg) (tea.Model, tea.Cmd) { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	if msg.id != m.debounceID {
		return m, nil
	}
	return m, m.startFetch() //nolint:gocritic // evalOrder: bubbletea Update pattern returns cmd before model
}

func (m *Model) startDebounce() tea.Cmd {
	m.debounceID++
	id := m.debounceID
	return tea.Tick(debounceInterval, func(time.Time) tea.Msg {
		return debounceMsg{id: id}
	})
}

func (m *Model) startFetch() tea.Cmd {
	m.cancelInflight()
	m.requestID++
	m.state = stateLoading

	reqID := m.requestID
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelFetch = cancel

	query := m.textInput.Value()
	limit := m.pageSize
	p := m.provider

	return func() tea.Msg {
		items, err := p.Fetch(ctx, query, limit)
		if err != nil {
			return fetchDoneMsg{requestID: reqID, err: err}
		}
		return fetchDoneMsg{requestID: reqID, items: items}
	}
}

func (m *Model) cancelInflight() {
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
}

func (m *Model) clampSelection() {
	if len(m.items) == 0 {
		m.selection = -1
		return
	}
	if m.selection < 0 {
		m.selection = 0
	}
	if m.selection >= len(m.items) {
		m.selection = len(m.items) - 1
	}
}

func (m Model) listHeight() int { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	h := m.height - 4 // header, separator, footer, query line
	if h < 3 {
		h = 3
	}
	if m.pageSize > 0 && m.pageSize < h {
		return m.pageSize
	}
	return h
}

func (m Model) contentWidth() int { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	w := m.width - 2*viewPadX
	if w < 10 {
		w = 10
	}
	return w
}

// View implements tea.Model.
func (m Model) View() string { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	var b strings.Builder

	b.WriteString(m.viewContent())
	b.WriteRune('\n')
	b.WriteString(dimStyle.Render(strings.Repeat("─", m.contentWidth())))
	b.WriteRune('\n')
	b.WriteString(dimStyle.Render("Enter accept · Ctrl+U clear · Esc cancel"))
	b.WriteRune('\n')
	b.WriteString(m.viewQuery())

	return lipgloss.NewStyle().
		PaddingLeft(viewPadX).
		PaddingRight(viewPadX).
		PaddingTop(1).
		PaddingBottom(1).
		Render(b.String())
}

func (m Model) viewContent() string { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	switch m.state {
	case stateIdle, stateLoading:
		return dimStyle.Render("Loading...")
	case stateEmpty:
		return dimStyle.Render("No matches")
	case stateError:
		msg := "Error"
		if m.err != nil {
			msg = fmt.Sprintf("Error: %s", m.err)
		}
		return errorStyle.Render(msg)
	case stateCancelled:
		return dimStyle.Render("Cancelled")
	case stateLoaded:
		return m.viewList()
	default:
		return ""
	}
}

func (m Model) viewList() string { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	maxItems := m.listHeight()
	n := len(m.items)
	if n > maxItems {
		n = maxItems
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lines = append(lines, m.renderListLine(i))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderListLine(i int) string { //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
	it := m.items[i]
	marker := "  "
	base := normalStyle
	det := detailStyle
	if i == m.selection {
		marker = "▸ "
		base = selectedStyle
	}

	line := marker + base.Render(it.Value)
	if it.Detail != "" {
		line += "  " + det.Render(it.Detail)
	}
	return line
}

func (m Model) viewQuery() string { return m.textInput.View() } //nolint:gocritic // hugeParam: bubbletea tea.Model requires value receiver
