package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/xivdev/Penumbra-sub003/internal/core"
	"github.com/xivdev/Penumbra-sub003/internal/logging"
	"github.com/xivdev/Penumbra-sub003/internal/storage/config"

	"github.com/spf13/cobra"
)

// ErrCancelled is returned when the user cancels an operation.
// When returned from a command, Execute exits with code 2.
var ErrCancelled = errors.New("cancelled")

var (
	version = "0.3.0"

	// Global flags
	configDir      string
	dataDir        string
	collectionName string
	verbosity      int
	jsonOutput     bool
	noColor        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pmr",
	Short: "pmr - mod resolution for game resource paths",
	Long: `pmr resolves which file the game should load for every resource path,
given a library of mods and a collection of per-mod settings.

Mods live in the mods directory, one directory per mod. Collections decide
which mods are enabled, their priorities and the selected options.

Use subcommands for operations. Run 'pmr --help' for available commands.`,
	Version:       version,
	SilenceUsage:  true, // Runtime errors should not print usage
	SilenceErrors: true, // We handle error output in Execute()
}

func init() {
	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: ~/.config/pmr)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default: ~/.local/share/pmr)")
	rootCmd.PersistentFlags().StringVarP(&collectionName, "collection", "c", "", "collection to operate on (default: from config)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug, -vvv trace)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command. Exit codes: 0 = success, 1 = error, 2 = user cancelled.
// When --json is set and an error occurs, prints {"error":"..."} to stdout before exiting.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx); err != nil {
		stop()
		if errors.Is(err, ErrCancelled) {
			os.Exit(2)
		}
		if jsonOutput {
			fmt.Printf(`{"error":%q}`+"\n", err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "%s %v\n", colorRed("Error:"), err)
		}
		os.Exit(1)
	}
}

// execute runs the command tree; an interrupt while resolving surfaces as ErrCancelled
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}

// initService sets up logging and creates the core service
func initService() (*core.Service, error) {
	cfg, err := getServiceConfig()
	if err != nil {
		return nil, err
	}

	// Ensure directories exist
	if err := os.MkdirAll(cfg.ConfigDir, 0755); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	logOpts := logging.Options{Verbosity: verbosity}
	if appConfig, err := config.Load(cfg.ConfigDir); err == nil {
		logOpts.File = appConfig.LogFile
	}
	logging.SetupLogger(logOpts)

	svc, err := core.NewService(cfg)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// getServiceConfig returns the service configuration with defaults.
// Returns an error if UserHomeDir fails and defaults are needed.
func getServiceConfig() (core.ServiceConfig, error) {
	cfg := core.ServiceConfig{
		ConfigDir: configDir,
		DataDir:   dataDir,
	}
	if cfg.ConfigDir != "" && cfg.DataDir != "" {
		return cfg, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return core.ServiceConfig{}, fmt.Errorf("home directory: %w", err)
	}

	// Apply defaults
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = filepath.Join(homeDir, ".config", "pmr")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(homeDir, ".local", "share", "pmr")
	}
	return cfg, nil
}

// writeJSON prints v as indented JSON
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// withService runs fn with an initialized service and closes it afterwards
func withService(fn func(svc *core.Service) error) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer func() { _ = svc.Close() }()
	return fn(svc)
}
