package scan

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// TopicScanAccepted is published on the event bus once per accepted
// (deduplicated) code.
const TopicScanAccepted = "scan.accepted"

// Detection is one decoded barcode event as produced by the external
// decoder, one per recognized pattern per processed frame.
type Detection struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
}

// Pipeline gates raw detections through the deduplicator and hands accepted
// codes to consumers over a bounded channel. The producer never blocks: when
// the channel is full the accepted code is dropped and counted, so a slow
// consumer cannot stall frame capture. The most recent detection is retained
// under a mutex, last write wins.
type Pipeline struct {
	dedup  *Deduplicator
	bus    EventBus.Bus
	logger *zap.Logger

	accepted chan string
	dropped  atomic.Uint64

	mu        sync.Mutex
	latest    Detection
	hasLatest bool
}

// NewPipeline creates a pipeline emitting accepted codes on a channel with
// the given capacity. The bus may be nil.
func NewPipeline(dedup *Deduplicator, bus EventBus.Bus, queueSize int, logger *zap.Logger) *Pipeline {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pipeline{
		dedup:    dedup,
		bus:      bus,
		logger:   logger,
		accepted: make(chan string, queueSize),
	}
}

// Submit feeds one raw detection through the gate and reports whether it was
// accepted. Every submission updates the latest-detection buffer, accepted
// or not.
func (p *Pipeline) Submit(d Detection) bool {
	p.mu.Lock()
	p.latest = d
	p.hasLatest = true
	p.mu.Unlock()

	if !p.dedup.Accept(d.Code, time.Now()) {
		return false
	}

	select {
	case p.accepted <- d.Code:
	default:
		p.dropped.Add(1)
		p.logger.Warn("Scan queue full, dropping accepted code",
			zap.String("code", d.Code),
			zap.Uint64("dropped_total", p.dropped.Load()),
		)
	}

	if p.bus != nil {
		p.bus.Publish(TopicScanAccepted, d.Code)
	}
	return true
}

// Accepted is the stream of deduplicated codes for the consumer to poll or
// await.
func (p *Pipeline) Accepted() <-chan string {
	return p.accepted
}

// Latest returns the most recently submitted detection, if any.
func (p *Pipeline) Latest() (Detection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.hasLatest
}

// Reset empties the dedup history so the next submission of any code is
// accepted again.
func (p *Pipeline) Reset() {
	p.dedup.Clear()
}

// Dropped reports how many accepted codes were discarded because no
// consumer kept up.
func (p *Pipeline) Dropped() uint64 {
	return p.dropped.Load()
}
