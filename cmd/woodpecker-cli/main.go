// Command woodpecker-cli is a terminal trainer: it solves puzzles against the
// API and mirrors shared boards over the room relay.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/client"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/config"
	"github.com/unibo-dslab-projects/ASW25-MicheleMonti-woodpecker/internal/logging"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "woodpecker-cli",
		Short: "Woodpecker puzzle trainer for the terminal",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context())
		},
	}

	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().String("api", defaults.GetString("api.base_url"), "API base URL")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	if err := viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(err)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig() error {
	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	return viper.ReadInConfig()
}

func runShell(ctx context.Context) error {
	cfg, err := config.LoadClient(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "woodpecker> ",
		HistoryFile:     ".woodpecker_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	api := client.New(cfg.APIBaseURL, client.WithLogger(logger))
	shell := newShell(ctx, api, rl.Stdout(), logger)
	defer shell.close()

	fmt.Fprintf(rl.Stdout(), "Woodpecker trainer\nAPI: %s\nType 'help' for commands\n\n", api.BaseURL())

	for {
		rl.SetPrompt(shell.prompt())
		line, err := rl.Readline()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" || line == "x" {
			return nil
		}
		shell.execute(line)
	}
}
