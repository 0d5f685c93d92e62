// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// club-validator is the kiosk for Club discount validation. It reads
// QR payloads from a scanner, validates each token against the Club
// backend for the configured resource, shows the result with a tone,
// and keeps a metrics dashboard for the resource and its village.
//
// Two modes of operation:
//
// TUI mode (default): a full-screen terminal UI. Keyboard-wedge
// scanners type into it; the operator changes companion counts,
// refreshes metrics and toggles the wake lock from the keyboard.
//
// Headless mode (--headless): one line per result on standard output.
// Payloads come from --device or, without one, from standard input.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/lpbme/club-validator/lib/cli"
	"github.com/lpbme/club-validator/lib/config"
	"github.com/lpbme/club-validator/lib/kiosk"
	"github.com/lpbme/club-validator/lib/process"
	"github.com/lpbme/club-validator/lib/scanner"
	"github.com/lpbme/club-validator/lib/validatorui"
	"github.com/lpbme/club-validator/lib/version"
)

func main() {
	if err := run(); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		process.Fatal(err)
	}
}

type options struct {
	configPath string
	resourceID int64
	adults     int
	minors     int
	device     string
	headless   bool
	logOutput  string
	logLevel   string
}

func run() error {
	var opts options

	flagSet := pflag.NewFlagSet("club-validator", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "configuration file (default: $"+config.EnvVar+")")
	flagSet.Int64Var(&opts.resourceID, "resource", 0, "resource (recurso) id to validate for")
	flagSet.IntVar(&opts.adults, "adults", 1, "adults per pass, 1 or 2")
	flagSet.IntVar(&opts.minors, "minors", 0, "minors per pass, 0 to 5")
	flagSet.StringVar(&opts.device, "device", "", "line-oriented scanner device (default: keyboard input)")
	flagSet.BoolVar(&opts.headless, "headless", false, "print results to stdout instead of running the TUI")
	flagSet.StringVar(&opts.logOutput, "log-output", "", "also write JSON log records to this file")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print(os.Stdout, "club-validator")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return cli.Validation("%v", err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return cli.Validation("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(flagSet, opts)
	if err != nil {
		return err
	}
	level, err := cli.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.headless {
		return runHeadless(ctx, cfg, level, opts.logOutput)
	}
	return runTUI(ctx, cfg, opts.logOutput)
}

// loadConfig reads the file named by --config or the environment,
// falling back to defaults, then applies explicitly set flags.
func loadConfig(flagSet *pflag.FlagSet, opts options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadFile(opts.configPath)
	case os.Getenv(config.EnvVar) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, cli.Validation("cannot load configuration: %w", err)
	}

	if flagSet.Changed("resource") {
		cfg.Validator.ResourceID = opts.resourceID
	}
	if flagSet.Changed("adults") {
		cfg.Validator.Adults = opts.adults
	}
	if flagSet.Changed("minors") {
		cfg.Validator.Minors = opts.minors
	}
	if flagSet.Changed("device") {
		cfg.Scanner.Device = opts.device
	}

	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration:\n%w", err).
			WithHint("Set backend.base_url and validator.resource_id in the config file, or pass --resource.")
	}
	return cfg, nil
}

func runHeadless(ctx context.Context, cfg *config.Config, level slog.Level, logOutput string) error {
	logger := cli.NewCommandLogger(level)
	if logOutput != "" {
		fileHandler, closeFile, err := cli.OpenFileLogHandler(logOutput)
		if err != nil {
			return cli.Validation("cannot open log file %s: %w", logOutput, err)
		}
		defer closeFile()
		logger = slog.New(cli.FanoutHandler{logger.Handler(), fileHandler})
	}

	var reader *scanner.ReaderSource
	options := kiosk.Options{Config: cfg, Logger: logger}
	if cfg.Scanner.Device == "" {
		reader = scanner.NewReaderSource(os.Stdin)
		options.Source = reader
	}

	k, err := kiosk.Assemble(ctx, options)
	if err != nil {
		return cli.Internal("%w", err)
	}
	defer closeKiosk(k, logger)

	if reader != nil {
		go func() {
			if err := reader.Pump(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("reading standard input", "error", err)
			}
		}()
	}
	if err := k.Start(ctx); err != nil {
		logger.Error("reader unavailable", "error", err)
	}

	err = validatorui.NewHeadless(os.Stdout, k.Validator).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runTUI(ctx context.Context, cfg *config.Config, logOutput string) error {
	// Records go to the status bar; writing to stderr would corrupt
	// the alt screen.
	tuiHandler := validatorui.NewTUILogHandler(slog.LevelWarn)
	logger := slog.New(tuiHandler)
	if logOutput != "" {
		fileHandler, closeFile, err := cli.OpenFileLogHandler(logOutput)
		if err != nil {
			return cli.Validation("cannot open log file %s: %w", logOutput, err)
		}
		defer closeFile()
		logger = slog.New(cli.FanoutHandler{tuiHandler, fileHandler})
	}

	// Bells written to the terminal under the TUI are harmless, but
	// the alt screen owns stdout.
	k, err := kiosk.Assemble(ctx, kiosk.Options{Config: cfg, Bell: io.Discard, Logger: logger})
	if err != nil {
		return cli.Internal("%w", err)
	}
	defer closeKiosk(k, logger)

	if err := k.Start(ctx); err != nil {
		logger.Error("reader unavailable", "error", err)
	}

	uiConfig := validatorui.Config{
		Validator: k.Validator,
		Metrics:   k.Metrics,
	}
	if k.WakeLock != nil {
		uiConfig.WakeLock = k.WakeLock
	}
	if k.Feed != nil {
		uiConfig.Feed = k.Feed
	}

	program := tea.NewProgram(validatorui.NewModel(ctx, uiConfig), tea.WithAltScreen(), tea.WithContext(ctx))
	tuiHandler.SetProgram(program)

	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func closeKiosk(k *kiosk.Kiosk, logger *slog.Logger) {
	if err := k.Close(); err != nil {
		logger.Warn("teardown", "error", err)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `club-validator validates Club discount QR codes for one resource.

Configuration is read from --config, or from the file named by
$%s. Flags override the file.

Usage:
  club-validator [flags]

Keys (TUI):
  F2  adults 1/2      F3  minors 0-5     F5  refresh metrics
  F6  wake lock       Esc clear input    Ctrl+C quit

Examples:
  # Run the kiosk with a config file
  club-validator --config /etc/club-validator/kiosk.yaml

  # Validate for resource 42 with two adults per pass
  club-validator --resource 42 --adults 2

  # Headless, reading payloads from a serial scanner
  club-validator --headless --device /dev/ttyACM0

Flags:
`, config.EnvVar)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
