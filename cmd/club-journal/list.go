// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/lpbme/club-validator/lib/cli"
	"github.com/lpbme/club-validator/lib/clock"
	"github.com/lpbme/club-validator/lib/journal"
	"github.com/lpbme/club-validator/lib/validation"
)

// digestWidth is how much of a token digest list shows.
const digestWidth = 12

func runList(ctx context.Context, args []string) error {
	var (
		flags      journalFlags
		since      time.Duration
		limit      int
		outcome    string
		outputJSON bool
	)
	flagSet := pflag.NewFlagSet("club-journal list", pflag.ContinueOnError)
	flags.add(flagSet)
	flagSet.DurationVar(&since, "since", 24*time.Hour, "only attempts newer than this; 0 lists everything")
	flagSet.IntVar(&limit, "limit", 50, "maximum attempts to print; 0 prints all")
	flagSet.StringVar(&outcome, "outcome", "", "only this outcome: VALID, INVALID or ERROR")
	flagSet.BoolVar(&outputJSON, "json", false, "output as JSON")
	if done, err := parseFlags(flagSet, args,
		"club-journal list [--config PATH] [--since DURATION] [--limit N] [--outcome VALID|INVALID|ERROR] [--json]"); done {
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return cli.Validation("unexpected argument: %s", rest[0])
	}

	now := clock.Real().Now()
	filter, err := buildFilter(now, since, limit, outcome)
	if err != nil {
		return err
	}

	scanJournal, err := flags.open(ctx)
	if err != nil {
		return err
	}
	defer scanJournal.Close()

	entries, err := scanJournal.List(ctx, filter)
	if err != nil {
		return cli.Internal("%w", err)
	}
	summary, err := scanJournal.Summarize(ctx, filter)
	if err != nil {
		return cli.Internal("%w", err)
	}

	if outputJSON {
		return cli.WriteJSON(os.Stdout, map[string]any{
			"entries": nonNil(entries),
			"summary": summary,
		})
	}
	return writeEntries(os.Stdout, entries, summary, now)
}

// buildFilter validates the list flags.
func buildFilter(now time.Time, since time.Duration, limit int, outcome string) (journal.Filter, error) {
	var filter journal.Filter
	if since < 0 {
		return filter, cli.Validation("--since must not be negative")
	}
	if since > 0 {
		filter.Since = now.Add(-since)
	}
	if limit < 0 {
		return filter, cli.Validation("--limit must not be negative")
	}
	filter.Limit = limit

	switch validation.Outcome(strings.ToUpper(outcome)) {
	case "":
	case validation.Valid:
		filter.Outcome = validation.Valid
	case validation.Invalid:
		filter.Outcome = validation.Invalid
	case validation.Error:
		filter.Outcome = validation.Error
	default:
		return filter, cli.Validation("unknown outcome %q", outcome).
			WithHint("Use VALID, INVALID or ERROR.")
	}
	return filter, nil
}

func nonNil(entries []journal.Entry) []journal.Entry {
	if entries == nil {
		return []journal.Entry{}
	}
	return entries
}

// writeEntries prints entries as a table followed by the summary of
// every attempt the filter matched, not just the printed ones.
func writeEntries(w io.Writer, entries []journal.Entry, summary journal.Summary, now time.Time) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No attempts recorded.")
	} else {
		table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(table, "WHEN\tOUTCOME\tREASON\tVILLAGE\tRESOURCE\tA+M\tDISCOUNT\tCARD")
		for _, entry := range entries {
			fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\t%d+%d\t%s\t%s\n",
				humanize.RelTime(entry.RecordedAt, now, "ago", "from now"),
				entry.Outcome,
				dash(entry.Reason),
				dash(entry.VillageName),
				dash(resourceLabel(entry)),
				entry.Adults, entry.Minors,
				discountText(entry.Discount),
				shortDigest(entry.TokenDigest),
			)
		}
		if err := table.Flush(); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\n%s %s · %s valid · %s invalid · %s error · %s adults · %s minors\n",
		humanize.Comma(int64(summary.Total)), plural(summary.Total, "attempt", "attempts"),
		humanize.Comma(int64(summary.Valid)),
		humanize.Comma(int64(summary.Invalid)),
		humanize.Comma(int64(summary.Error)),
		humanize.Comma(int64(summary.Adults)),
		humanize.Comma(int64(summary.Minors)),
	)
	return err
}

func resourceLabel(entry journal.Entry) string {
	if entry.ResourceName != "" {
		return entry.ResourceName
	}
	return strconv.FormatInt(entry.ResourceID, 10)
}

func discountText(discount *float64) string {
	if discount == nil {
		return "-"
	}
	return strconv.FormatFloat(*discount, 'f', -1, 64) + "%"
}

func shortDigest(digest string) string {
	if len(digest) > digestWidth {
		return digest[:digestWidth]
	}
	return digest
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
