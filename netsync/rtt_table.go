package netsync

import (
	"math"
	"sync"
	"time"
)

// RTTTable maps outstanding local sequences to their send time and keeps an
// exponentially smoothed round-trip time from the acknowledged ones.
type RTTTable struct {
	sent map[uint16]time.Time

	smoothing float64
	smoothed  time.Duration
	min       time.Duration

	mu sync.RWMutex
}

func NewRTTTable(initial time.Duration, smoothing float64) *RTTTable {
	if smoothing <= 0 || smoothing > 1 {
		smoothing = defaultRTTSmoothing
	}
	return &RTTTable{
		sent:      make(map[uint16]time.Time),
		smoothing: smoothing,
		smoothed:  initial,
	}
}

// RecordSent stores the send time of seq unless seq is already in flight.
func (rt *RTTTable) RecordSent(seq uint16, now time.Time) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, ok := rt.sent[seq]; ok {
		return false
	}
	rt.sent[seq] = now
	return true
}

func (rt *RTTTable) Acknowledge(seq uint16, now time.Time) (time.Duration, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	sentAt, ok := rt.sent[seq]
	if !ok {
		return 0, false
	}
	delete(rt.sent, seq)

	sample := now.Sub(sentAt)
	if rt.min <= 0 || rt.min > sample {
		rt.min = sample
	}
	rt.smoothed += time.Duration(rt.smoothing * float64(sample-rt.smoothed))
	return sample, true
}

// EvictStale drops every sequence sent before now-maxRoundTrip without
// contributing a sample and returns the dropped sequences.
func (rt *RTTTable) EvictStale(now time.Time, maxRoundTrip time.Duration) []uint16 {
	deadline := now.Add(-maxRoundTrip)
	rt.mu.Lock()
	defer rt.mu.Unlock()
	var evicted []uint16
	for seq, sentAt := range rt.sent {
		if sentAt.Before(deadline) {
			delete(rt.sent, seq)
			evicted = append(evicted, seq)
		}
	}
	return evicted
}

func (rt *RTTTable) Outstanding() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.sent)
}

func (rt *RTTTable) Smoothed() time.Duration {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.smoothed
}

func (rt *RTTTable) Min() time.Duration {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.min
}

func (rt *RTTTable) Seconds() float64 {
	return rt.Smoothed().Seconds()
}

func (rt *RTTTable) Milliseconds() int64 {
	return int64(math.Round(float64(rt.Smoothed()) / float64(time.Millisecond)))
}
