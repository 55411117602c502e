// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the plain line-mode REPL.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/jeranaias/shopchat-tui/internal/model"
	"github.com/jeranaias/shopchat-tui/internal/session"
)

// =============================================================================
// REPL
// =============================================================================

// REPL is the plain line-mode front end.
type REPL struct {
	ctrl  *session.Controller
	store string
	out   io.Writer

	// lastStatus tracks the status line so it is only reprinted when
	// it actually changed.
	lastStatus string
}

// NewREPL creates a REPL around an existing controller.
func NewREPL(ctrl *session.Controller, store string) *REPL {
	return &REPL{
		ctrl:  ctrl,
		store: store,
		out:   os.Stdout,
	}
}

// Run executes the prompt loop until EOF or interrupt at the prompt.
func (r *REPL) Run(ctx context.Context) error {
	prompt := liner.NewLiner()
	defer prompt.Close()
	prompt.SetCtrlCAborts(true)

	r.ctrl.SetOnChange(r.printStatus)
	defer r.ctrl.SetOnChange(nil)

	if r.store != "" {
		fmt.Fprintf(r.out, "%s assistant — ctrl+d to exit\n", r.store)
	}
	if roomID := r.ctrl.RoomID(); roomID != "" {
		fmt.Fprintf(r.out, "reattached to room %s\n", roomID)
		r.printHistory()
	}

	for {
		input, err := prompt.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		before := r.ctrl.Timeline().Len()
		err = r.ctrl.Send(ctx, input)
		r.clearStatusLine()

		switch {
		case errors.Is(err, session.ErrEmptyPrompt):
			continue
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		}
		prompt.AppendHistory(input)

		r.printNewMessages(before)
		if banner, ok := r.ctrl.ErrorBanner(); ok {
			fmt.Fprintf(r.out, "error: %s\n", banner)
		}
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

// printStatus overwrites the single in-place progress line.
// Invoked from the controller's change hook during a stream.
func (r *REPL) printStatus() {
	status, ok := r.ctrl.Status()
	if !ok || status == r.lastStatus {
		return
	}
	r.lastStatus = status

	width := r.terminalWidth()
	line := status
	if width > 4 && len(line) > width-1 {
		line = line[:width-4] + "..."
	}
	fmt.Fprintf(r.out, "\r\x1b[K%s", line)
}

// clearStatusLine wipes the progress line once a stream has ended.
func (r *REPL) clearStatusLine() {
	if r.lastStatus != "" {
		fmt.Fprint(r.out, "\r\x1b[K")
		r.lastStatus = ""
	}
}

// printHistory dumps the seeded timeline after a reattach.
func (r *REPL) printHistory() {
	for _, msg := range r.ctrl.Timeline().All() {
		r.printMessage(msg)
	}
}

// printNewMessages prints timeline entries appended since the given
// length, skipping the echoed user prompt.
func (r *REPL) printNewMessages(since int) {
	msgs := r.ctrl.Timeline().All()
	for i := since; i < len(msgs); i++ {
		if msgs[i].Kind == model.KindUserPrompt {
			continue
		}
		r.printMessage(msgs[i])
	}
}

// printMessage renders one timeline entry as plain text.
func (r *REPL) printMessage(msg *model.Message) {
	switch msg.Kind {
	case model.KindUserPrompt:
		fmt.Fprintf(r.out, "> %s\n", msg.Prompt)
	case model.KindAnswer:
		fmt.Fprintln(r.out, strings.TrimRight(msg.Answer, "\n"))
		for _, item := range msg.Items {
			fmt.Fprintf(r.out, "  - %s (₹%s)\n", item.Name, item.Price.String())
		}
	case model.KindError:
		fmt.Fprintf(r.out, "error: %s\n", msg.ErrorText)
	}
}

// terminalWidth returns the current terminal width, or a fallback when
// stdout is not a terminal.
func (r *REPL) terminalWidth() int {
	if f, ok := r.out.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}
