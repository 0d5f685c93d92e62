// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// club-backend-mock serves an in-memory Club API for development and
// integration testing. It implements POST /scan and both metrics
// endpoints over fixture villages, resources and passes.
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
	"github.com/lpbme/club-validator/lib/clock"
	"github.com/lpbme/club-validator/lib/mockbackend"
	"github.com/lpbme/club-validator/lib/process"
	"github.com/lpbme/club-validator/lib/service"
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

func run() error {
	var (
		listen     string
		fixtures   string
		legacyKeys bool
		token      string
		logLevel   string
	)

	flagSet := pflag.NewFlagSet("club-backend-mock", pflag.ContinueOnError)
	flagSet.StringVar(&listen, "listen", "127.0.0.1:8088", "TCP address to listen on")
	flagSet.StringVar(&fixtures, "fixtures", "", "YAML fixture file (default: built-in fixtures)")
	flagSet.BoolVar(&legacyKeys, "legacy-keys", false, "emit the historical metric field names")
	flagSet.StringVar(&token, "token", "", "require this bearer token on every request")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print(os.Stdout, "club-backend-mock")
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

	level, err := cli.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := cli.NewCommandLogger(level)

	data := mockbackend.DefaultFixtures()
	if fixtures != "" {
		data, err = mockbackend.LoadFixtures(fixtures)
		if err != nil {
			return cli.Validation("cannot load fixtures: %w", err).
				WithHint("Fixtures list villages, resources (with village_id) and passes (token, optional expires and force_status).")
		}
	}

	backend, err := mockbackend.New(mockbackend.Config{
		Fixtures:   data,
		LegacyKeys: legacyKeys,
		Logger:     logger,
	})
	if err != nil {
		return cli.Internal("%w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address: listen,
		Handler: service.LogRequests(logger, clock.Real(),
			service.RequireBearer(token, backend.Handler())),
		Logger: logger,
	})
	go func() {
		select {
		case <-server.Ready():
			logger.Info("mock backend ready",
				"url", server.URL(),
				"villages", len(data.Villages),
				"resources", len(data.Resources),
				"passes", len(data.Passes),
				"legacy_keys", legacyKeys,
			)
		case <-ctx.Done():
		}
	}()

	if err := server.Serve(ctx); err != nil {
		return cli.Transient("%w", err)
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `club-backend-mock serves an in-memory Club API.

Endpoints:
  POST /scan
  GET  /validator/metrics?recursoId=ID&days=N
  GET  /validator/metrics-by-village?puebloId=ID&days=N

A pass validates once per day. Later scans that day answer
"QR ya usado hoy"; unknown tokens "QR no válido"; expired passes
"QR caducado". A pass with force_status always answers that status.

Usage:
  club-backend-mock [flags]

Examples:
  # Serve the built-in fixtures on the default port
  club-backend-mock

  # Serve custom fixtures with the historical metric keys
  club-backend-mock --fixtures passes.yaml --legacy-keys

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
