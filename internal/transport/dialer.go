package transport

import (
	"context"
	"fmt"
	"time"
)

// AddressSource returns the current best-known peer address (the
// discovery package's "best known address" slot) and whether one is
// known yet.
type AddressSource func() (addr string, ok bool)

// DialWithBackoff repeatedly attempts Connect against whatever address
// addrSource currently reports, waiting BackoffDelay(n) between failed
// attempts, until it succeeds or ctx is canceled. If no address is known
// yet, it waits and retries rather than failing immediately.
// onHandshakeStart, if given, fires on each attempt once the TCP
// connection is up and the handshake is about to begin.
func DialWithBackoff(ctx context.Context, addrSource AddressSource, deviceID string, sharedSecret []byte, onAttemptFailed func(error), onHandshakeStart ...func()) (*Session, error) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		addr, ok := addrSource()
		if !ok {
			if !sleepOrDone(ctx, BackoffDelay(attempt)) {
				return nil, ctx.Err()
			}
			attempt++
			continue
		}

		session, err := Connect(addr, deviceID, sharedSecret, onHandshakeStart...)
		if err == nil {
			return session, nil
		}
		if onAttemptFailed != nil {
			onAttemptFailed(fmt.Errorf("transport: connect to %s: %w", addr, err))
		}

		if !sleepOrDone(ctx, BackoffDelay(attempt)) {
			return nil, ctx.Err()
		}
		attempt++
	}
}

// sleepOrDone waits for d or ctx cancellation, reporting whether it slept
// the full duration (false means ctx was canceled first).
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
