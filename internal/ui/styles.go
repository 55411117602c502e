// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the Bubble Tea chat view.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styles used by the chat view.
type Theme struct {
	Header      lipgloss.Style
	PromptLabel lipgloss.Style
	PromptText  lipgloss.Style
	AnswerLabel lipgloss.Style
	ItemCard    lipgloss.Style
	ItemPrice   lipgloss.Style
	Status      lipgloss.Style
	ErrorBanner lipgloss.Style
	Footer      lipgloss.Style
}

// DefaultTheme returns the standard color theme.
func DefaultTheme() Theme {
	return Theme{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")),
		PromptLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		PromptText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		AnswerLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")),
		ItemCard: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		ItemPrice: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")),
		Status: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("245")),
		ErrorBanner: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		Footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}
