package scan

import (
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestDeduplicatorSuppressesWithinCooldown(t *testing.T) {
	d := NewDeduplicator(2 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, d.Accept("8934588063052", base))
	assert.False(t, d.Accept("8934588063052", base.Add(1*time.Second)))
}

func TestDeduplicatorAcceptsAfterCooldown(t *testing.T) {
	d := NewDeduplicator(2 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, d.Accept("8934588063052", base))
	assert.True(t, d.Accept("8934588063052", base.Add(3*time.Second)))
}

func TestDeduplicatorAcceptsAtExactCooldownBoundary(t *testing.T) {
	d := NewDeduplicator(2 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, d.Accept("A", base))
	assert.True(t, d.Accept("A", base.Add(2*time.Second)))
}

func TestDeduplicatorTracksCodesIndependently(t *testing.T) {
	d := NewDeduplicator(2 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, d.Accept("A", base))
	assert.True(t, d.Accept("B", base))
	assert.False(t, d.Accept("A", base.Add(time.Second)))
	assert.False(t, d.Accept("B", base.Add(time.Second)))
}

func TestDeduplicatorSuppressedScanDoesNotExtendWindow(t *testing.T) {
	d := NewDeduplicator(2 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, d.Accept("A", base))
	// A suppressed submission must not reset the clock: the window is
	// measured from the last accepted scan, not the last attempt.
	assert.False(t, d.Accept("A", base.Add(1500*time.Millisecond)))
	assert.True(t, d.Accept("A", base.Add(2100*time.Millisecond)))
}

func TestDeduplicatorClearForgetsHistory(t *testing.T) {
	d := NewDeduplicator(2 * time.Second)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, d.Accept("A", base))
	d.Clear()
	assert.True(t, d.Accept("A", base.Add(time.Millisecond)))
}

func TestDeduplicatorDefaultCooldown(t *testing.T) {
	d := NewDeduplicator(0)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, d.Accept("A", base))
	assert.False(t, d.Accept("A", base.Add(DefaultCooldown-time.Millisecond)))
	assert.True(t, d.Accept("A", base.Add(DefaultCooldown)))
}

// Property: for any cooldown and any gap between two submissions of the same
// code, the second is accepted exactly when the gap reaches the cooldown.
func TestDeduplicatorCooldownProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("second scan accepted iff gap >= cooldown", prop.ForAll(
		func(cooldownMs int, gapMs int) bool {
			cooldown := time.Duration(cooldownMs) * time.Millisecond
			gap := time.Duration(gapMs) * time.Millisecond

			d := NewDeduplicator(cooldown)
			base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

			if !d.Accept("X", base) {
				return false
			}
			return d.Accept("X", base.Add(gap)) == (gap >= cooldown)
		},
		gen.IntRange(1, 10000),
		gen.IntRange(0, 20000),
	))

	properties.Property("first scan of any code is always accepted", prop.ForAll(
		func(code string, cooldownMs int) bool {
			d := NewDeduplicator(time.Duration(cooldownMs) * time.Millisecond)
			return d.Accept(code, time.Now())
		},
		gen.AlphaString(),
		gen.IntRange(1, 10000),
	))

	properties.TestingRun(t)
}

func TestDeduplicatorConcurrentAccess(t *testing.T) {
	d := NewDeduplicator(time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			codes := []string{"A", "B", "C", "D"}
			for j := 0; j < 500; j++ {
				d.Accept(codes[j%len(codes)], time.Now())
				if j%100 == 0 {
					d.Clear()
				}
			}
		}(i)
	}
	wg.Wait()
}
