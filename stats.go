// FILE: lixenwraith/props/stats.go
package props

import (
	"time"

	"go.uber.org/atomic"
)

// Observer receives resolution events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	CacheHit(name string)
	CacheMiss(name string)
	SourceFailure(source, name string, err error)
	Resolved(name, source string, elapsed time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) CacheHit(string)                                {}
func (noopObserver) CacheMiss(string)                               {}
func (noopObserver) SourceFailure(string, string, error)            {}
func (noopObserver) Resolved(string, string, time.Duration, error) {}

// Stats holds process-lifetime counters for a Properties instance.
type Stats struct {
	hits           atomic.Int64
	misses         atomic.Int64
	sourceFailures atomic.Int64
	failures       atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	CacheHits      int64
	CacheMisses    int64
	SourceFailures int64
	Failures       int64
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		CacheHits:      s.hits.Load(),
		CacheMisses:    s.misses.Load(),
		SourceFailures: s.sourceFailures.Load(),
		Failures:       s.failures.Load(),
	}
}
