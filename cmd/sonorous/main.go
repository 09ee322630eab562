package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/absfs/sonorous/internal/config"
)

// app holds the flag values and settings shared by all commands
type app struct {
	configPath  string
	logLevel    string
	passwordEnv string
	noProgress  bool
	workers     int

	cfg    config.Config
	logger *slog.Logger

	getenv func(string) string
	prompt func(w io.Writer, prompt string) ([]byte, error)
}

func main() {
	a := &app{getenv: os.Getenv, prompt: terminalPrompt}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "sonorous",
		Short:             "Create and extract password protected, encrypted archives",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML settings file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error (default from config, else warn)")
	flags.StringVar(&a.passwordEnv, "password-env", "", "Read the password from this environment variable instead of prompting")
	flags.BoolVar(&a.noProgress, "no-progress", false, "Disable progress output (progress is enabled by default)")

	rootCmd.AddCommand(
		newCreateCmd(a),
		newExtractCmd(a),
		newListCmd(a),
		newVerifyCmd(a),
		newRekeyCmd(a),
	)
	return rootCmd
}

// setup loads the config file and applies flag overrides on top of it
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("password-env") {
		cfg.PasswordEnv = a.passwordEnv
	}
	if a.noProgress {
		cfg.Progress = false
	}
	if f := cmd.Flags().Lookup("workers"); f != nil && f.Changed {
		cfg.Workers = a.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lvl, _ := cfg.Level()
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
	return nil
}
