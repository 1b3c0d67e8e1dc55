package scan

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum elapsed time before the same code is
// accepted again.
const DefaultCooldown = 2 * time.Second

// Deduplicator suppresses repeated barcode detections within a cooldown
// window. A physical code held in front of the scanner decodes once per
// frame; the gate lets it through once per window. Safe for concurrent use:
// the scanning worker calls Accept while the UI may call Clear.
type Deduplicator struct {
	mu       sync.Mutex
	cooldown time.Duration
	lastSeen map[string]time.Time
}

// NewDeduplicator creates a gate with the given cooldown; non-positive
// values fall back to DefaultCooldown.
func NewDeduplicator(cooldown time.Duration) *Deduplicator {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Deduplicator{
		cooldown: cooldown,
		lastSeen: make(map[string]time.Time),
	}
}

// Accept reports whether the code should be processed at the given instant.
// A code is accepted when it has never been seen, or when the cooldown has
// fully elapsed since its last acceptance; acceptance records the new
// last-seen time. A suppressed code leaves the state untouched.
func (d *Deduplicator) Accept(code string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.lastSeen[code]; ok && now.Sub(last) < d.cooldown {
		return false
	}
	d.lastSeen[code] = now
	return true
}

// Clear forgets every tracked code. Used by the explicit reset action.
func (d *Deduplicator) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSeen = make(map[string]time.Time)
}
