package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) record(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDebouncerLastValueWins(t *testing.T) {
	var rec recorder[int]
	d := New(30*time.Millisecond, rec.record)

	d.Emit(1)
	d.Emit(2)
	d.Emit(3)

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	assert.Equal(t, []int{3}, rec.snapshot())
}

func TestDebouncerQuietPeriodRestarts(t *testing.T) {
	var rec recorder[int]
	delay := 60 * time.Millisecond
	d := New(delay, rec.record)

	start := time.Now()
	d.Emit(1)
	time.Sleep(delay / 2)
	d.Emit(2)

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	elapsed := time.Since(start)

	// The second emit restarted the clock, so the emission cannot have
	// fired before delay/2 + delay.
	assert.GreaterOrEqual(t, elapsed, delay+delay/2)
	assert.Equal(t, []int{2}, rec.snapshot())
}

func TestDebouncerSeparateBursts(t *testing.T) {
	var rec recorder[string]
	d := New(20*time.Millisecond, rec.record)

	d.Emit("first")
	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })

	d.Emit("second")
	waitFor(t, func() bool { return len(rec.snapshot()) == 2 })

	assert.Equal(t, []string{"first", "second"}, rec.snapshot())
}

func TestDebouncerCancel(t *testing.T) {
	var rec recorder[int]
	d := New(20*time.Millisecond, rec.record)

	d.Emit(1)
	d.Cancel()

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	// Cancel does not poison later emissions.
	d.Emit(2)
	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	assert.Equal(t, []int{2}, rec.snapshot())
}

func TestDebouncerEmitRacingExpiryFiresOnce(t *testing.T) {
	const delay = 10 * time.Millisecond

	// Land an Emit right as the pending timer expires. Whichever side wins,
	// the burst must not produce a duplicate emission: either the first
	// value already fired and the second follows, or only the second fires.
	for i := 0; i < 50; i++ {
		var rec recorder[int]
		d := New(delay, rec.record)

		d.Emit(1)
		time.Sleep(delay)
		d.Emit(2)

		time.Sleep(3 * delay)
		got := rec.snapshot()
		switch len(got) {
		case 1:
			assert.Equal(t, []int{2}, got)
		case 2:
			assert.Equal(t, []int{1, 2}, got)
		default:
			t.Fatalf("burst fired %d times: %v", len(got), got)
		}
	}
}

func TestKeyedIndependentKeys(t *testing.T) {
	var mu sync.Mutex
	got := map[string]int{}
	k := NewKeyed(30*time.Millisecond, func(key string, v int) {
		mu.Lock()
		got[key] = v
		mu.Unlock()
	})

	k.Emit("file-a", 1)
	k.Emit("file-b", 10)
	k.Emit("file-a", 2)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, got["file-a"], "file-a coalesces to its last value")
	assert.Equal(t, 10, got["file-b"], "file-b is unaffected by file-a's burst")
}

func TestKeyedCancelAll(t *testing.T) {
	var rec recorder[int]
	k := NewKeyed(20*time.Millisecond, func(_ string, v int) { rec.record(v) })

	k.Emit("a", 1)
	k.Emit("b", 2)
	k.CancelAll()

	time.Sleep(80 * time.Millisecond)
	require.Empty(t, rec.snapshot())
}
