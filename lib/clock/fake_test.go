// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	clock := Fake(epoch)
	clock.Advance(2 * time.Second)
	if got, want := clock.Now(), epoch.Add(2*time.Second); !got.Equal(want) {
		t.Fatalf("Now() = %v, want %v", got, want)
	}
}

func TestFakeAfterFuncFiresAtDeadline(t *testing.T) {
	clock := Fake(epoch)
	fired := 0
	clock.AfterFunc(2*time.Second, func() { fired++ })

	clock.Advance(1999 * time.Millisecond)
	if fired != 0 {
		t.Fatal("AfterFunc fired before its deadline")
	}
	clock.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("AfterFunc fired %d times at deadline, want 1", fired)
	}
	clock.Advance(time.Hour)
	if fired != 1 {
		t.Fatalf("AfterFunc fired again: %d", fired)
	}
}

func TestFakeAfterFuncStop(t *testing.T) {
	clock := Fake(epoch)
	fired := false
	timer := clock.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop on a pending timer returned false")
	}
	if timer.Stop() {
		t.Fatal("second Stop returned true")
	}
	clock.Advance(time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
	if clock.Pending() != 0 {
		t.Fatalf("Pending() = %d after stop, want 0", clock.Pending())
	}
}

func TestFakeAfterFuncNonPositiveRunsImmediately(t *testing.T) {
	clock := Fake(epoch)
	fired := false
	clock.AfterFunc(0, func() { fired = true })
	if !fired {
		t.Fatal("AfterFunc(0) did not run synchronously")
	}
}

func TestFakeTickerFiresEachPeriod(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(15 * time.Second)
	defer ticker.Stop()

	clock.Advance(15 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after one period")
	}

	clock.Advance(14 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired early")
	default:
	}

	clock.Advance(time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after second period")
	}
}

func TestFakeTickerDropsWhenBehind(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	clock.Advance(5 * time.Second)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("ticker queued more than one tick")
	default:
	}
}

func TestFakeAfterFuncOrdering(t *testing.T) {
	clock := Fake(epoch)
	var order []int
	clock.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	clock.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	clock.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	clock.Advance(5 * time.Second)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("callbacks ran in order %v, want [1 2 3]", order)
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	registered := make(chan struct{})
	go func() {
		ticker := clock.NewTicker(time.Second)
		<-ticker.C
		ticker.Stop()
		close(registered)
	}()

	clock.WaitForTimers(1)
	clock.Advance(time.Second)
	<-registered
}
