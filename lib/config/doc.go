// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the validator's configuration file.
//
// The file is named by the --config flag (via [LoadFile]) or by the
// CLUB_VALIDATOR_CONFIG environment variable (via [Load]). There is no
// discovery and no search path: a kiosk runs exactly the file it was
// pointed at.
//
// Files are YAML. Files ending in .json or .jsonc are accepted too;
// comments and trailing commas are stripped before parsing. Durations
// are written as Go duration strings ("2s", "15s").
//
// Environment-specific sections (development, staging, production)
// override base values when [Config].Environment matches.
//
// After loading, ${VAR} and ${VAR:-default} references in string
// fields are expanded from the process environment, so secrets such
// as the backend token need not live in the file:
//
//	backend:
//	  base_url: https://api.example.org/club
//	  token: ${CLUB_VALIDATOR_TOKEN}
package config
