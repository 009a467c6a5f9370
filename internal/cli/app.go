// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

// Package cli implements affinityctl, an operator tool that runs the
// scoring engine directly against a DuckDB order store.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/affinity/internal/eventprocessor"
	"github.com/tomtom215/affinity/internal/logging"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// PublisherFactory opens an order-event publisher for a NATS URL.
type PublisherFactory func(url, subjectPrefix string) (*eventprocessor.Publisher, error)

// App is the affinityctl command tree.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	dbPath     string
	output     string
	logLevel   string

	newPublisher PublisherFactory
}

// New builds the command tree.
func New() *App {
	app := &App{
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		newPublisher: natsPublisher,
	}

	app.root = &cobra.Command{
		Use:   "affinityctl",
		Short: "Inspect and operate the affinity scoring engine",
		Long: `affinityctl runs the recommendation engine against a local DuckDB order
store. It mines rules and bundles, prints customer profiles and neighbours,
scores candidate items and publishes order events to NATS JetStream.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if _, err := parseFormat(app.output); err != nil {
				return err
			}
			logging.Init(logging.Config{
				Level:  app.logLevel,
				Format: "console",
				Output: app.stderr,
			})
			return nil
		},
	}

	flags := app.root.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "config file (default: CONFIG_PATH or ./config.yaml)")
	flags.StringVar(&app.dbPath, "db", "", "DuckDB file, overrides database.path")
	flags.StringVarP(&app.output, "output", "o", formatAuto, "output format: auto, json or table")
	flags.StringVar(&app.logLevel, "log-level", "warn", "log level written to stderr")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newSeedCmd(),
		app.newRulesCmd(),
		app.newBundlesCmd(),
		app.newProfileCmd(),
		app.newSimilarCmd(),
		app.newScoreCmd(),
		app.newSuggestCmd(),
		app.newPublishCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithPublisherFactory replaces the NATS publisher used by the publish command.
func (a *App) WithPublisherFactory(f PublisherFactory) *App {
	a.newPublisher = f
	return a
}

// Execute runs the command line until it finishes or a signal arrives.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the command line with explicit arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "affinityctl version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
		},
	}
}

func natsPublisher(url, subjectPrefix string) (*eventprocessor.Publisher, error) {
	cfg := eventprocessor.DefaultPublisherConfig(url)
	cfg.SubjectPrefix = subjectPrefix
	cfg.MaxReconnects = 3
	return eventprocessor.NewPublisher(&cfg, eventprocessor.NewWatermillLogger(logging.Component("publisher")))
}
