package game

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/everforgeworks/ecosnap-engine/internal/notify"
	"github.com/everforgeworks/ecosnap-engine/internal/store"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	engine *Engine
	clock  *testClock
	notes  *notify.Recorder
	kv     *store.Memory
}

// newHarness builds an engine at t0 over a memory store. seed runs against the
// store before the engine loads it.
func newHarness(t *testing.T, seed func(s *store.Snapshots)) *harness {
	t.Helper()
	kv := store.NewMemory()
	snaps := store.NewSnapshots(kv, nil)
	if seed != nil {
		seed(snaps)
	}
	clock := &testClock{now: t0}
	notes := &notify.Recorder{}
	seq := 0
	e := New(Options{
		Snapshots: snaps,
		Sink:      notes,
		Clock:     clock.Now,
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
		Random:   func() float64 { return 0.5 },
		Username: "Asha",
	})
	return &harness{engine: e, clock: clock, notes: notes, kv: kv}
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}
