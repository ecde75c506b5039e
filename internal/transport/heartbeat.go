package transport

import (
	"context"
	"time"

	"github.com/nasiridrishi/yank/internal/wire"
)

// HeartbeatInterval is how often HEARTBEAT frames are sent on an idle
// connection (spec §4.C).
const HeartbeatInterval = 15 * time.Second

// MaxMissedHeartbeats is the number of consecutive missed intervals before
// a connection is declared degraded (spec §4.C).
const MaxMissedHeartbeats = 3

// RunHeartbeat sends a HEARTBEAT frame on session every HeartbeatInterval
// until ctx is canceled or a send fails. It also watches
// session.IdleFor(): once idle time exceeds MaxMissedHeartbeats intervals
// with no inbound frame at all, it calls onDegraded once and returns.
// The caller's read loop is what actually observes inbound traffic
// (including heartbeats from the peer) via Session.ReceiveMessage.
func RunHeartbeat(ctx context.Context, session *Session, onDegraded func()) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	degradedThreshold := HeartbeatInterval * time.Duration(MaxMissedHeartbeats)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if session.IdleFor() > degradedThreshold {
				onDegraded()
				return
			}
			if err := session.SendMessage(&wire.HeartbeatHeader{Type: wire.Heartbeat}, nil); err != nil {
				onDegraded()
				return
			}
		}
	}
}
