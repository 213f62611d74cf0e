// docchat TUI - a terminal interface for chatting with your documents.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/stream"
	"github.com/jeranaias/docchat-tui/internal/ui/chat"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		backendURL = flag.String("backend", "", "backend URL (overrides config)")
		modelName  = flag.String("model", "", "model identifier (overrides config)")
		configPath = flag.String("config", "", "path to config file")
		attachPath = flag.String("attach", "", "PDF to attach on startup")
		debugLog   = flag.String("debug-log", "", "write logs to this file")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("docchat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "docchat needs an interactive terminal")
		os.Exit(1)
	}

	// log output would corrupt the alternate screen; keep it in a file or
	// drop it.
	if *debugLog != "" {
		f, err := os.OpenFile(*debugLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open debug log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}
	if *modelName != "" {
		cfg.Model = *modelName
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.BackendURL, cfg.APIKey)
	log.Printf("docchat %s starting: backend=%s model=%s key=%s",
		Version, client.BaseURL(), cfg.Model, client.APIKeyMasked())

	conversation := model.NewConversation()
	settings := cfg.RetrievalSettings()
	sess := session.NewContext(client, conversation, &settings)
	consumer := stream.NewConsumer(client, conversation)

	m := chat.New(cfg, sess, consumer, styles.NewTheme())

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// Reload request-level config fields when the file changes on disk.
	if watcher := startConfigWatcher(*configPath, p); watcher != nil {
		defer watcher.Close()
	}

	if *attachPath != "" {
		go func() {
			p.Send(chat.AttachResultMsg{Err: sess.AttachFile(context.Background(), *attachPath)})
		}()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running docchat: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads from the explicit path when given, otherwise the default
// location.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// startConfigWatcher wires file-change reloads into the running program.
// Returns nil when watching cannot be set up; that is not fatal.
func startConfigWatcher(explicitPath string, p *tea.Program) *config.Watcher {
	path := explicitPath
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return nil
		}
	}

	watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
		log.Printf("Config reloaded from %s", path)
		p.Send(chat.ConfigReloadedMsg{Config: cfg})
	})
	if err != nil {
		log.Printf("Config watching disabled: %v", err)
		return nil
	}
	if err := watcher.Watch(); err != nil {
		log.Printf("Config watching disabled: %v", err)
		watcher.Close()
		return nil
	}
	return watcher
}
