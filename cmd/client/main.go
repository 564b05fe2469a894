package main

import (
	"fmt"
	"os"

	"go-chat-hub/internal/client"

	env "github.com/Netflix/go-env"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Username      string `env:"CHAT_USERNAME"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if len(os.Args) > 1 {
		cfg.Username = os.Args[1]
	}

	model, err := client.NewModel(cfg.Username, client.Dialer(cfg.ServerAddress))
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", cfg.ServerAddress, err)
	}

	if _, err := tea.NewProgram(model).Run(); err != nil {
		return exitRuntime, err
	}
	return exitOK, nil
}
