package picker

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock provider ---

type mockProvider struct {
	items []Item
	err   error
	delay time.Duration
}

func (p *mockProvider) Fetch(ctx context.Context, query string, limit int) ([]Item, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.items, nil
}

func newTestModel(p Provider) Model {
	m := NewModel(p)
	m.width = 80
	m.height = 24
	return m
}

// runCmd executes a tea.Cmd synchronously and returns the resulting message.
func runCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

// drainBatch runs a batch cmd and feeds all resulting messages into the
// model, returning the final model state and any remaining cmd.
func drainBatch(m Model, batchCmd tea.Cmd) (Model, tea.Cmd) {
	msg := runCmd(batchCmd)
	if msg == nil {
		return m, nil
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		var lastCmd tea.Cmd
		for _, cmd := range batch {
			sub := runCmd(cmd)
			if sub == nil {
				continue
			}
			result, next := m.Update(sub)
			m = result.(Model)
			lastCmd = next
		}
		return m, lastCmd
	}
	result, cmd := m.Update(msg)
	return result.(Model), cmd
}

// initAndLoad runs the Init -> fetch cycle, returning the model in its
// post-fetch state (loaded, empty, or error).
func initAndLoad(t *testing.T, m Model) Model {
	t.Helper()
	initCmd := m.Init()
	m, fetchCmd := drainBatch(m, initCmd)
	require.Equal(t, stateLoading, m.state)

	doneMsg := runCmd(fetchCmd)
	require.NotNil(t, doneMsg)

	result, _ := m.Update(doneMsg)
	return result.(Model)
}

// initToLoading runs Init, leaving the model in stateLoading with an
// outstanding fetch command.
func initToLoading(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	initCmd := m.Init()
	m, fetchCmd := drainBatch(m, initCmd)
	require.Equal(t, stateLoading, m.state)
	return m, fetchCmd
}

// --- State transitions ---

func TestInitialState(t *testing.T) {
	m := newTestModel(&mockProvider{})
	assert.Equal(t, stateIdle, m.state)
	assert.Equal(t, -1, m.selection)
}

func TestInit_TransitionsToLoading(t *testing.T) {
	p := &mockProvider{items: []Item{{Value: "ls"}, {Value: "cd"}}}
	m := initAndLoad(t, newTestModel(p))
	assert.Equal(t, stateLoaded, m.state)
	assert.Equal(t, []Item{{Value: "ls"}, {Value: "cd"}}, m.items)
}

func TestLoading_ToEmpty(t *testing.T) {
	m := initAndLoad(t, newTestModel(&mockProvider{items: []Item{}}))
	assert.Equal(t, stateEmpty, m.state)
	assert.Equal(t, -1, m.selection)
}

func TestLoading_ToError(t *testing.T) {
	m := initAndLoad(t, newTestModel(&mockProvider{err: errors.New("connection refused")}))
	assert.Equal(t, stateError, m.state)
	assert.EqualError(t, m.err, "connection refused")
	assert.Equal(t, -1, m.selection)
}

func TestEsc_Cancels(t *testing.T) {
	m := initAndLoad(t, newTestModel(&mockProvider{items: []Item{{Value: "ls"}}}))

	result, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = result.(Model)
	assert.Equal(t, stateCancelled, m.state)
	assert.Empty(t, m.Result())
	assert.True(t, m.IsCancelled())
	assert.NotNil(t, runCmd(cmd))
}

func TestEsc_WorksWhenEmpty(t *testing.T) {
	m := initAndLoad(t, newTestModel(&mockProvider{items: []Item{}}))
	assert.Equal(t, stateEmpty, m.state)

	result, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = result.(Model)
	assert.Equal(t, stateCancelled, m.state)
	assert.NotNil(t, cmd)
}

// --- Stale responses ---

func TestStaleResponse_Discarded(t *testing.T) {
	m, _ := initToLoading(t, newTestModel(&mockProvider{items: []Item{{Value: "first"}}}))
	currentID := m.requestID

	stale := fetchDoneMsg{requestID: currentID - 1, items: []Item{{Value: "stale"}}}
	result, _ := m.Update(stale)
	m = result.(Model)

	assert.Equal(t, stateLoading, m.state)
	assert.Empty(t, m.items)
}

func TestCurrentResponse_Accepted(t *testing.T) {
	m, fetchCmd := initToLoading(t, newTestModel(&mockProvider{items: []Item{{Value: "current"}}}))
	currentID := m.requestID

	msg := runCmd(fetchCmd)
	doneMsg := msg.(fetchDoneMsg)
	assert.Equal(t, currentID, doneMsg.requestID)

	result, _ := m.Update(msg)
	m = result.(Model)
	assert.Equal(t, stateLoaded, m.state)
	assert.Equal(t, []Item{{Value: "current"}}, m.items)
}

// --- Navigation ---

func TestUpDown_Navigation(t *testing.T) {
	p := &mockProvider{items: []Item{{Value: "a"}, {Value: "b"}, {Value: "c"}}}
	m := initAndLoad(t, newTestModel(p))
	assert.Equal(t, 0, m.selection)

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = result.(Model)
	assert.Equal(t, 1, m.selection)

	result, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = result.(Model)
	assert.Equal(t, 2, m.selection)

	// At bottom: stays.
	result, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = result.(Model)
	assert.Equal(t, 2, m.selection)

	result, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = result.(Model)
	assert.Equal(t, 1, m.selection)

	result, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = result.(Model)
	assert.Equal(t, 0, m.selection)

	// At top: stays.
	result, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = result.(Model)
	assert.Equal(t, 0, m.selection)
}

func TestUpDown_NoOp_DuringLoading(t *testing.T) {
	m, _ := initToLoading(t, newTestModel(&mockProvider{items: []Item{{Value: "a"}}}))
	m.selection = 0

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = result.(Model)
	assert.Equal(t, 0, m.selection)
}

func TestUpDown_NoOp_WhenEmpty(t *testing.T) {
	m := initAndLoad(t, newTestModel(&mockProvider{items: []Item{}}))
	assert.Equal(t, stateEmpty, m.state)

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = result.(Model)
	assert.Equal(t, -1, m.selection)

	result, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = result.(Model)
	assert.Equal(t, -1, m.selection)
}

// --- Enter ---

func TestEnter_SelectsItem(t *testing.T) {
	p := &mockProvider{items: []Item{{Value: "ls -la"}, {Value: "pwd"}}}
	m := initAndLoad(t, newTestModel(p))

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = result.(Model)
	assert.Equal(t, 1, m.selection)

	result, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = result.(Model)
	assert.Equal(t, "pwd", m.Result())
	assert.NotNil(t, cmd)
}

func TestEnter_EmptyList_NoResult(t *testing.T) {
	m := initAndLoad(t, newTestModel(&mockProvider{items: []Item{}}))

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = result.(Model)
	assert.Empty(t, m.Result())
}

func TestEnter_NoOp_DuringLoading(t *testing.T) {
	m, _ := initToLoading(t, newTestModel(&mockProvider{items: []Item{{Value: "a"}}, delay: time.Second}))
	assert.Equal(t, stateLoading, m.state)

	result, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = result.(Model)
	assert.Empty(t, m.Result())
	assert.NotNil(t, cmd)
}

// --- Query editing and debounce ---

func TestTyping_AppendsToQuery(t *testing.T) {
	m := newTestModel(&mockProvider{items: []Item{{Value: "a"}}})

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m = result.(Model)
	assert.Equal(t, "l", m.textInput.Value())

	result, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = result.(Model)
	assert.Equal(t, "ls", m.textInput.Value())
}

func TestCtrlU_ClearsQuery(t *testing.T) {
	m := newTestModel(&mockProvider{items: []Item{{Value: "a"}}})
	m.textInput.SetValue("ls")

	result, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	m = result.(Model)
	assert.Empty(t, m.textInput.Value())
	assert.NotNil(t, cmd)
}

func TestCtrlU_EmptyQuery_NoOp(t *testing.T) {
	m := newTestModel(&mockProvider{items: []Item{{Value: "a"}}})

	result, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlU})
	m = result.(Model)
	assert.Empty(t, m.textInput.Value())
	assert.Nil(t, cmd)
}

func TestDebounce_NewKeystrokeCancelsPrevious(t *testing.T) {
	m := newTestModel(&mockProvider{items: []Item{{Value: "a"}}})

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m = result.(Model)
	firstDebounceID := m.debounceID

	result, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = result.(Model)
	secondDebounceID := m.debounceID
	assert.Greater(t, secondDebounceID, firstDebounceID)

	result, cmd := m.Update(debounceMsg{id: firstDebounceID})
	m = result.(Model)
	assert.Nil(t, cmd)
}

func TestDebounce_CurrentTimerTriggersFetch(t *testing.T) {
	m := newTestModel(&mockProvider{items: []Item{{Value: "found"}}})

	result, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'l'}})
	m = result.(Model)
	currentDebounceID := m.debounceID

	result, cmd := m.Update(debounceMsg{id: currentDebounceID})
	m = result.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, stateLoading, m.state)
}

// --- Resize ---

func TestWindowResize(t *testing.T) {
	m := newTestModel(&mockProvider{items: []Item{{Value: "a"}}})

	result, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = result.(Model)
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}

func TestWindowResize_PreservesSelection(t *testing.T) {
	p := &mockProvider{items: []Item{{Value: "a"}, {Value: "b"}, {Value: "c"}}}
	m := initAndLoad(t, newTestModel(p))
	m.selection = 2

	result, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = result.(Model)
	assert.Equal(t, 2, m.selection)
}

// --- View rendering ---

func TestView_ShowsLoadingState(t *testing.T) {
	m := newTestModel(&mockProvider{})
	m.state = stateLoading
	assert.Contains(t, m.View(), "Loading...")
}

func TestView_ShowsEmptyState(t *testing.T) {
	m := newTestModel(&mockProvider{})
	m.state = stateEmpty
	assert.Contains(t, m.View(), "No matches")
}

func TestView_ShowsErrorState(t *testing.T) {
	m := newTestModel(&mockProvider{})
	m.state = stateError
	m.err = errors.New("test error")
	assert.Contains(t, m.View(), "test error")
}

func TestView_ShowsCancelledState(t *testing.T) {
	m := newTestModel(&mockProvider{})
	m.state = stateCancelled
	assert.Contains(t, m.View(), "Cancelled")
}

func TestView_ShowsQueryLine(t *testing.T) {
	m := newTestModel(&mockProvider{})
	m.textInput.SetValue("test")
	assert.Contains(t, m.View(), "test")
}

func TestViewList_ShowsDetail(t *testing.T) {
	p := &mockProvider{items: []Item{{Value: "git status", Detail: "1.50"}}}
	m := initAndLoad(t, newTestModel(p))
	assert.Contains(t, m.viewList(), "1.50")
}

// --- WithQuery / WithPageSize ---

func TestWithQuery(t *testing.T) {
	m := newTestModel(&mockProvider{})
	m = m.WithQuery("initial")
	assert.Equal(t, "initial", m.textInput.Value())
}

func TestWithPageSize(t *testing.T) {
	m := newTestModel(&mockProvider{})
	m = m.WithPageSize(5)
	assert.Equal(t, 5, m.pageSize)
}

func TestWithPageSize_NonPositiveIgnored(t *testing.T) {
	m := newTestModel(&mockProvider{})
	before := m.pageSize
	m = m.WithPageSize(0)
	assert.Equal(t, before, m.pageSize)
}

func TestInit_ReturnsCmd(t *testing.T) {
	m := newTestModel(&mockProvider{})
	assert.NotNil(t, m.Init())
}
