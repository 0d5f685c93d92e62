// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli holds what the validator binaries share around their
// run() functions: categorized errors with exit codes and hints, and
// the logger setup.
//
// A binary's main looks like:
//
//	func main() {
//	    if err := run(); err != nil {
//	        var exit *cli.ExitError
//	        if errors.As(err, &exit) {
//	            os.Exit(exit.Code)
//	        }
//	        process.Fatal(err)
//	    }
//	}
//
// Usage and configuration mistakes are reported with [Validation] and
// exit with status 2; everything else exits with 1.
package cli
