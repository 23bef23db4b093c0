package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hannysoft/mesa-client/internal/api"
	"github.com/hannysoft/mesa-client/internal/app"
	"github.com/hannysoft/mesa-client/internal/credential"
	"github.com/hannysoft/mesa-client/internal/model"
	"github.com/hannysoft/mesa-client/internal/store"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := setupLogging(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating data directory: %v\n", err)
		os.Exit(1)
	}

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening local store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	token := sessionToken()
	client := api.NewClient(cfg.Server.BaseURL, token)

	program := tea.NewProgram(
		app.New(cfg, client, st, token),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running program: %v\n", err)
		os.Exit(1)
	}
}

// sessionToken returns the token for the initial client: the MESA_TOKEN
// environment variable when set, otherwise whatever survived in the system
// keyring from the last login.
func sessionToken() string {
	if token := os.Getenv("MESA_TOKEN"); token != "" {
		return token
	}
	token, err := credential.Get(credential.TokenKey)
	if err != nil {
		return ""
	}
	return token
}

// setupLogging routes slog to a file; stdout belongs to the TUI.
func setupLogging(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
	return f, nil
}
