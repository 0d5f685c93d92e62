// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the validator.
//
// Every timing rule of the kiosk runs on a Clock: the scanner's frame
// loop, the three-second duplicate window, the two-second result
// display window and the fifteen-second metrics cadence. Production
// wiring passes Real(); tests pass Fake() and drive time explicitly:
//
//	fake := clock.Fake(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
//	validator := validation.New(validation.Config{Clock: fake, ...})
//	// ... produce a result ...
//	fake.Advance(2 * time.Second) // display window elapses
//
// Goroutines that create tickers race with the test advancing time.
// WaitForTimers blocks until the expected number of timers and
// tickers are registered, which removes that race without sleeping.
package clock
