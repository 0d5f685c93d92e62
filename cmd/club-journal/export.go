// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/lpbme/club-validator/lib/cli"
	"github.com/lpbme/club-validator/lib/clock"
	"github.com/lpbme/club-validator/lib/journal"
)

func runExport(ctx context.Context, args []string) error {
	var (
		flags      journalFlags
		output     string
		compress   string
		recipients []string
		since      time.Duration
	)
	flagSet := pflag.NewFlagSet("club-journal export", pflag.ContinueOnError)
	flags.add(flagSet)
	flagSet.StringVarP(&output, "output", "o", "", "file to write; - for standard output")
	flagSet.StringVar(&compress, "compress", "zstd", "compression: none, lz4 or zstd")
	flagSet.StringArrayVar(&recipients, "recipient", nil, "encrypt to this age public key (repeatable)")
	flagSet.DurationVar(&since, "since", 0, "only attempts newer than this; 0 exports everything")
	if done, err := parseFlags(flagSet, args,
		"club-journal export [--config PATH] --output FILE [--compress none|lz4|zstd] [--recipient age1...]..."); done {
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return cli.Validation("unexpected argument: %s", rest[0])
	}
	if output == "" {
		return cli.Validation("--output is required")
	}

	compression, err := journal.ParseCompression(compress)
	if err != nil {
		return cli.Validation("%w", err)
	}
	// Reject bad keys before touching the output file.
	if _, err := journal.ParseRecipients(recipients); err != nil {
		return cli.Validation("%w", err).
			WithHint("Recipients are age X25519 public keys beginning with age1.")
	}
	filter, err := buildFilter(clock.Real().Now(), since, 0, "")
	if err != nil {
		return err
	}

	scanJournal, err := flags.open(ctx)
	if err != nil {
		return err
	}
	defer scanJournal.Close()

	options := journal.ExportOptions{
		Filter:      filter,
		Compression: compression,
		Recipients:  recipients,
	}
	if output == "-" {
		count, err := scanJournal.Export(ctx, os.Stdout, options)
		if err != nil {
			return cli.Internal("%w", err)
		}
		fmt.Fprintf(os.Stderr, "exported %s\n", describeExport(count, 0, compression, len(recipients)))
		return nil
	}

	count, size, err := exportToFile(ctx, scanJournal, output, options)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %s to %s\n", describeExport(count, size, compression, len(recipients)), output)
	return nil
}

// exportToFile writes through a temporary file renamed into place, so
// a failed export never leaves a truncated file under the final name.
func exportToFile(ctx context.Context, scanJournal *journal.Journal, path string, options journal.ExportOptions) (int, int64, error) {
	temporary, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, 0, cli.Validation("cannot create %s: %w", path, err)
	}
	cleanup := func() {
		temporary.Close()
		os.Remove(temporary.Name())
	}

	counter := &countingWriter{w: temporary}
	count, err := scanJournal.Export(ctx, counter, options)
	if err != nil {
		cleanup()
		return 0, 0, cli.Internal("%w", err)
	}
	if err := temporary.Sync(); err != nil {
		cleanup()
		return 0, 0, cli.Internal("syncing export: %w", err)
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporary.Name())
		return 0, 0, cli.Internal("closing export: %w", err)
	}
	if err := os.Rename(temporary.Name(), path); err != nil {
		os.Remove(temporary.Name())
		return 0, 0, cli.Internal("%w", err)
	}
	return count, counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func describeExport(count int, size int64, compression journal.Compression, recipients int) string {
	text := fmt.Sprintf("%s %s", humanize.Comma(int64(count)), plural(count, "entry", "entries"))
	if size > 0 {
		text += ", " + humanize.Bytes(uint64(size))
	}
	if compression != journal.CompressionNone {
		text += ", " + compression.String()
	}
	if recipients > 0 {
		text += fmt.Sprintf(", encrypted to %d %s", recipients, plural(recipients, "recipient", "recipients"))
	}
	return text
}

func runInspect(args []string) error {
	var (
		identityPath string
		outputJSON   bool
	)
	flagSet := pflag.NewFlagSet("club-journal inspect", pflag.ContinueOnError)
	flagSet.StringVarP(&identityPath, "identity", "i", "", "age identity file for encrypted exports")
	flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
	if done, err := parseFlags(flagSet, args, "club-journal inspect [--identity FILE] [--json] FILE"); done {
		return err
	}
	rest := flagSet.Args()
	if len(rest) != 1 {
		return cli.Validation("inspect takes exactly one export file")
	}

	file, err := os.Open(rest[0])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cli.NotFound("%s does not exist", rest[0])
		}
		return cli.Internal("%w", err)
	}
	defer file.Close()

	var identities []age.Identity
	if identityPath != "" {
		identityFile, err := os.Open(identityPath)
		if err != nil {
			return cli.Validation("cannot open identity file: %w", err)
		}
		identities, err = journal.ParseIdentities(identityFile)
		identityFile.Close()
		if err != nil {
			return cli.Validation("%w", err)
		}
	}

	header, entries, err := journal.ReadExport(file, identities...)
	if errors.Is(err, journal.ErrEncrypted) {
		return cli.Validation("%w", err).WithHint("Pass the matching age identity with --identity.")
	}
	if err != nil {
		return cli.Internal("%w", err)
	}

	if outputJSON {
		return cli.WriteJSON(os.Stdout, map[string]any{
			"exported_at": header.ExportedAt,
			"version":     header.Version,
			"entries":     nonNil(entries),
		})
	}
	now := clock.Real().Now()
	fmt.Fprintf(os.Stdout, "export v%d written %s\n\n", header.Version,
		humanize.RelTime(header.ExportedAt, now, "ago", "from now"))
	return writeEntries(os.Stdout, entries, journal.Tally(entries), now)
}
