// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the Bubble Tea chat view.
package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/shopchat-tui/internal/chatapi"
	"github.com/jeranaias/shopchat-tui/internal/model"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder

	header := m.store
	if header == "" {
		header = "shopchat"
	}
	if roomID := m.ctrl.RoomID(); roomID != "" {
		header += "  ·  room " + roomID
	}
	b.WriteString(m.theme.Header.Render(header))
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	// Transient status line: visible only while the assistant works.
	if status, ok := m.ctrl.Status(); ok {
		b.WriteString(m.spinner.View())
		b.WriteString(m.theme.Status.Render(status))
	}
	b.WriteString("\n")

	if banner, ok := m.ctrl.ErrorBanner(); ok {
		b.WriteString(m.theme.ErrorBanner.Render(banner))
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.theme.Footer.Render("enter send · ctrl+c cancel/quit"))

	return b.String()
}

// refreshViewport rebuilds the scrollback from a timeline snapshot.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	var b strings.Builder
	for _, msg := range m.ctrl.Timeline().All() {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

// renderMessage formats one timeline entry for the scrollback.
func (m *Model) renderMessage(msg *model.Message) string {
	switch msg.Kind {
	case model.KindUserPrompt:
		return m.theme.PromptLabel.Render("You ") +
			m.theme.PromptText.Render(msg.Prompt) + "\n"

	case model.KindAnswer:
		text := msg.Answer
		if m.renderer != nil {
			if rendered, err := m.renderer.Render(msg.Answer); err == nil {
				text = strings.TrimRight(rendered, "\n") + "\n"
			}
		}
		out := m.theme.AnswerLabel.Render("Assistant") + "\n" + text
		if cards := m.renderItems(msg.Items); cards != "" {
			out += cards + "\n"
		}
		return out

	case model.KindError:
		return m.theme.ErrorBanner.Render(msg.ErrorText) + "\n"

	default:
		return ""
	}
}

// itemCardWidth is the inner width of one suggested item card.
const itemCardWidth = 24

// renderItems lays the suggested items out as a row of small cards.
func (m *Model) renderItems(items []chatapi.SuggestedItem) string {
	if len(items) == 0 {
		return ""
	}

	var lines []string
	for _, item := range items {
		name := runewidth.Truncate(item.Name, itemCardWidth, "…")
		price := ""
		if item.Price != "" {
			price = m.theme.ItemPrice.Render("₹" + item.Price.String())
		}
		lines = append(lines, m.theme.ItemCard.Render(name+"\n"+price))
	}
	return strings.Join(lines, "\n")
}
