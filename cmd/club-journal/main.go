// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// club-journal reads the local scan journal kept by club-validator.
//
// Subcommands:
//
//	list     print recent attempts and a summary
//	export   write attempts as a CBOR stream, optionally compressed
//	         and encrypted to age recipients
//	inspect  decode an export written by export
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/lpbme/club-validator/lib/cli"
	"github.com/lpbme/club-validator/lib/config"
	"github.com/lpbme/club-validator/lib/journal"
	"github.com/lpbme/club-validator/lib/process"
	"github.com/lpbme/club-validator/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		process.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage()
		return &cli.ExitError{Code: 2}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "--version", "version":
		version.Print(os.Stdout, "club-journal")
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	case "list":
		return runList(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "inspect":
		return runInspect(args[1:])
	default:
		return cli.Validation("unknown command %q", args[0]).
			WithHint("Run 'club-journal help' for the list of commands.")
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `club-journal reads the scan journal kept by club-validator.

Usage:
  club-journal list    [--config PATH] [--since DURATION] [--limit N] [--outcome VALID|INVALID|ERROR] [--json]
  club-journal export  [--config PATH] --output FILE [--compress none|lz4|zstd] [--recipient age1...]...
  club-journal inspect [--identity FILE] [--json] FILE

The journal path comes from journal.path in the configuration file
named by --config or $`+config.EnvVar+`; --journal overrides it.

Run 'club-journal <command> --help' for the flags of a command.
`)
}

// journalFlags are shared by the commands reading the database.
type journalFlags struct {
	configPath  string
	journalPath string
}

func (f *journalFlags) add(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.configPath, "config", "", "configuration file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&f.journalPath, "journal", "", "journal database (overrides journal.path)")
}

// open resolves the journal path and opens an existing journal. A
// missing database is reported rather than created.
func (f *journalFlags) open(ctx context.Context) (*journal.Journal, error) {
	path := f.journalPath
	if path == "" {
		var cfg *config.Config
		var err error
		switch {
		case f.configPath != "":
			cfg, err = config.LoadFile(f.configPath)
		case os.Getenv(config.EnvVar) != "":
			cfg, err = config.Load()
		default:
			cfg = config.Default()
		}
		if err != nil {
			return nil, cli.Validation("cannot load configuration: %w", err)
		}
		path = cfg.Journal.Path
	}
	if path == "" {
		return nil, cli.Validation("no journal configured").
			WithHint("Set journal.path in the configuration file, or pass --journal.")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cli.NotFound("journal %s does not exist", path).
				WithHint("The validator creates it on its first scan.")
		}
		return nil, cli.Internal("%w", err)
	}

	scanJournal, err := journal.Open(ctx, journal.Config{Path: path})
	if err != nil {
		return nil, cli.Internal("opening journal: %w", err)
	}
	return scanJournal, nil
}

// parseFlags parses args, printing help on --help. done is true when
// the command should return immediately with err.
func parseFlags(flagSet *pflag.FlagSet, args []string, usage string) (done bool, err error) {
	flagSet.BoolP("help", "h", false, "show help")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printCommandHelp(flagSet, usage)
			return true, nil
		}
		return true, cli.Validation("%v", err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printCommandHelp(flagSet, usage)
		return true, nil
	}
	return false, nil
}

func printCommandHelp(flagSet *pflag.FlagSet, usage string) {
	fmt.Fprintf(os.Stderr, "Usage:\n  %s\n\nFlags:\n", usage)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
