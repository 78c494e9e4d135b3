package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

type recordingDispatcher struct {
	slots    []string
	failWith error
}

func (d *recordingDispatcher) DispatchDue(ctx context.Context, slot string) error {
	d.slots = append(d.slots, slot)
	return d.failWith
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestScheduler(t *testing.T, d Dispatcher) *Scheduler {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return New(d, loc, testLogger())
}

func TestCurrentSlot(t *testing.T) {
	s := newTestScheduler(t, &recordingDispatcher{})

	cases := []struct {
		clock time.Time // UTC instants
		want  string    // slot in Asia/Tokyo (UTC+9)
	}{
		{time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC), "08:00"},
		{time.Date(2026, 3, 2, 23, 14, 59, 0, time.UTC), "08:00"},
		{time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC), "08:30"},
		{time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC), "08:30"},
		{time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), "00:00"}, // midnight JST
	}
	for _, tc := range cases {
		s.now = func() time.Time { return tc.clock }
		if got := s.currentSlot(); got != tc.want {
			t.Errorf("currentSlot at %v = %q, want %q", tc.clock, got, tc.want)
		}
	}
}

func TestTickFiresOncePerSlot(t *testing.T) {
	d := &recordingDispatcher{}
	s := newTestScheduler(t, d)

	clock := time.Date(2026, 3, 2, 22, 59, 0, 0, time.UTC) // 07:59 JST
	s.now = func() time.Time { return clock }
	s.lastSlot = s.currentSlot()

	// Several ticks inside the same slot: nothing fires.
	s.tick(context.Background())
	s.tick(context.Background())
	if len(d.slots) != 0 {
		t.Fatalf("dispatched %v before the slot boundary", d.slots)
	}

	// Crossing into 08:00 JST fires exactly once.
	clock = clock.Add(2 * time.Minute)
	s.tick(context.Background())
	s.tick(context.Background())
	if len(d.slots) != 1 || d.slots[0] != "08:00" {
		t.Fatalf("slots = %v, want exactly [08:00]", d.slots)
	}

	// And the next boundary fires again.
	clock = clock.Add(30 * time.Minute)
	s.tick(context.Background())
	if len(d.slots) != 2 || d.slots[1] != "08:30" {
		t.Fatalf("slots = %v, want [08:00 08:30]", d.slots)
	}
}

func TestTickSurvivesDispatchError(t *testing.T) {
	d := &recordingDispatcher{failWith: errors.New("storage down")}
	s := newTestScheduler(t, d)

	clock := time.Date(2026, 3, 2, 22, 59, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	s.lastSlot = s.currentSlot()

	clock = clock.Add(2 * time.Minute)
	s.tick(context.Background())

	d.failWith = nil
	clock = clock.Add(30 * time.Minute)
	s.tick(context.Background())

	if len(d.slots) != 2 {
		t.Fatalf("slots = %v, want both slots attempted despite the error", d.slots)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	d := &recordingDispatcher{}
	s := newTestScheduler(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
