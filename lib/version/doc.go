// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build information for the validator
// binaries.
//
// Four variables are injected with -ldflags -X at build time:
// [GitCommit], [GitDirty], [BuildTime] and [Version]. They keep their
// development defaults in tests and local builds.
//
// [Info] is the --version line, [Full] adds the toolchain and
// platform, and [UserAgent] is the User-Agent the validation client
// sends unless configuration overrides it.
package version
