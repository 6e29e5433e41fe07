package chat

import (
	"sync/atomic"
)

// Stats counts the failures the relay otherwise swallows. Delivery here is
// fire-and-forget, so these counters are the only way silent drops stay
// diagnosable.
type Stats struct {
	MalformedFrames     atomic.Int64 // unparseable or incomplete payloads
	UnauthorizedFrames  atomic.Int64 // events received before setup
	ReadReceiptFailures atomic.Int64 // store update failed or message missing
	DroppedDeliveries   atomic.Int64 // outbound frames dropped on full queues
}

// StatsSnapshot is a point-in-time copy for logging or an ops endpoint.
type StatsSnapshot struct {
	MalformedFrames     int64 `json:"malformedFrames"`
	UnauthorizedFrames  int64 `json:"unauthorizedFrames"`
	ReadReceiptFailures int64 `json:"readReceiptFailures"`
	DroppedDeliveries   int64 `json:"droppedDeliveries"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		MalformedFrames:     s.MalformedFrames.Load(),
		UnauthorizedFrames:  s.UnauthorizedFrames.Load(),
		ReadReceiptFailures: s.ReadReceiptFailures.Load(),
		DroppedDeliveries:   s.DroppedDeliveries.Load(),
	}
}
