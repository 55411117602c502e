// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the Bubble Tea chat view.
package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/shopchat-tui/internal/session"
)

// =============================================================================
// MESSAGES
// =============================================================================

// sendDoneMsg reports that a Send call reached its terminal state.
type sendDoneMsg struct {
	err error
}

// streamTickMsg drives re-renders while a stream is in flight.
type streamTickMsg struct {
	time time.Time
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctrl  *session.Controller
	theme Theme
	store string

	// UI components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// Markdown rendering for answer text
	renderer *glamour.TermRenderer

	// Dimensions
	width  int
	height int
	ready  bool

	// busy mirrors whether a Send goroutine is still running; input is
	// kept but not submitted while true.
	busy bool

	quitting bool
}

// NewModel creates the chat view around an existing controller.
func NewModel(ctrl *session.Controller, store string, theme Theme) Model {
	input := textarea.New()
	input.Placeholder = "Type your message here..."
	input.CharLimit = 2000
	input.SetHeight(2)
	input.ShowLineNumbers = false
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(0),
	)

	return Model{
		ctrl:     ctrl,
		theme:    theme,
		store:    store,
		input:    input,
		spinner:  sp,
		renderer: renderer,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

// streamTickInterval caps re-render frequency during streaming.
const streamTickInterval = 33 * time.Millisecond

func streamTickCmd() tea.Cmd {
	return tea.Tick(streamTickInterval, func(t time.Time) tea.Msg {
		return streamTickMsg{time: t}
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.busy {
				// First Ctrl+C aborts the stream, not the program.
				m.ctrl.Cancel()
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			if !m.busy {
				if cmd := m.submit(); cmd != nil {
					cmds = append(cmds, cmd, m.spinner.Tick, streamTickCmd())
				}
				return m, tea.Batch(cmds...)
			}
		}

	case sendDoneMsg:
		m.busy = false
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case streamTickMsg:
		if m.busy {
			m.refreshViewport()
			m.viewport.GotoBottom()
			return m, streamTickCmd()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy {
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit hands the textarea content to the controller on a goroutine.
// Blank input is rejected by the controller with no side effects, so
// there is nothing to pre-validate here beyond skipping the spinner.
func (m *Model) submit() tea.Cmd {
	text := m.input.Value()
	ctrl := m.ctrl

	m.input.Reset()
	m.busy = true
	m.refreshViewport()

	return func() tea.Msg {
		err := ctrl.Send(context.Background(), text)
		return sendDoneMsg{err: err}
	}
}

// layout sizes the components for the current terminal dimensions.
func (m *Model) layout() {
	inputHeight := 3
	chromeHeight := 4 // header, status, banner, footer
	vpHeight := m.height - inputHeight - chromeHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(m.width - 2)
}
