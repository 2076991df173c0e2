package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/marloweapp/marlowe/internal/cli"
	"github.com/marloweapp/marlowe/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "marlowe: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})))

	cmd := cli.NewRootCommand(cfg)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "marlowe: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
