// shopchat TUI - A terminal client for the store assistant chat backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/shopchat-tui/internal/chatapi"
	"github.com/jeranaias/shopchat-tui/internal/cli"
	"github.com/jeranaias/shopchat-tui/internal/config"
	"github.com/jeranaias/shopchat-tui/internal/room"
	"github.com/jeranaias/shopchat-tui/internal/session"
	"github.com/jeranaias/shopchat-tui/internal/ui"
)

const version = "0.2.0"

func main() {
	var (
		configPath  = flag.String("config", "", "path to config file (default ~/.shopchat/config.toml)")
		baseURL     = flag.String("url", "", "backend base URL (overrides config)")
		store       = flag.String("store", "", "store slug (overrides config)")
		roomID      = flag.String("room", "", "reattach to an existing chat room id")
		resume      = flag.Bool("resume", false, "reattach to the last visited room")
		plain       = flag.Bool("plain", false, "line-mode REPL instead of the TUI")
		noColor     = flag.Bool("no-color", false, "disable terminal styling")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("shopchat " + version)
		return
	}

	if err := run(*configPath, *baseURL, *store, *roomID, *resume, *plain, *noColor); err != nil {
		fmt.Fprintln(os.Stderr, "shopchat: "+err.Error())
		os.Exit(1)
	}
}

func run(configPath, baseURL, store, roomID string, resume, plain, noColor bool) error {
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}
	if store != "" {
		cfg.Server.Store = store
	}
	if plain {
		cfg.UI.Plain = true
	}
	if noColor {
		cfg.UI.NoColor = true
	}

	if cfg.UI.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	client, err := chatapi.NewClient(cfg.ClientConfig())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Live reload: rate limit changes apply without a restart.
	if configPath != "" {
		go config.Watch(ctx, configPath, func(next *config.Config) {
			client.SetRateLimit(next.HTTP.RateLimit, next.HTTP.RateBurst)
		})
	}

	// The room id is published to the last-room file, the terminal
	// analog of pushing the room into the navigable location: the next
	// run reattaches with -resume.
	rooms := room.NewLifecycle(client, func(id string) {
		saveLastRoom(id)
	})
	ctrl := session.NewController(client, rooms)

	if roomID == "" && resume {
		roomID = loadLastRoom()
	}
	if roomID != "" {
		if err := ctrl.AttachRoom(ctx, roomID); err != nil {
			return fmt.Errorf("cannot reattach to room %s: %w", roomID, err)
		}
		saveLastRoom(roomID)
	}

	if cfg.UI.Plain {
		return cli.NewREPL(ctrl, cfg.Server.Store).Run(ctx)
	}

	program := tea.NewProgram(
		ui.NewModel(ctrl, cfg.Server.Store, ui.DefaultTheme()),
		tea.WithAltScreen(),
	)
	_, err = program.Run()
	return err
}

// lastRoomPath is where the current room id is published.
func lastRoomPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".shopchat", "last_room")
}

func saveLastRoom(id string) {
	path := lastRoomPath()
	if path == "" {
		return
	}
	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, []byte(id+"\n"), 0644)
}

func loadLastRoom() string {
	path := lastRoomPath()
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
