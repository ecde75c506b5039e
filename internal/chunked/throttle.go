package chunked

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// maxBurstSize bounds a single throttled write so a caller passing a huge
// buffer doesn't reserve an enormous burst in one call.
const maxBurstSize = 256 * 1024

// ThrottledWriter rate-limits writes to bytesPerSec bytes/second using a
// token bucket (spec expansion: optional bandwidth cap, config
// max_bandwidth_bps).
type ThrottledWriter struct {
	w       io.Writer
	limiter *rate.Limiter
	ctx     context.Context
}

// NewThrottledWriter wraps w with a rate limiter. If bytesPerSec <= 0, it
// returns w unchanged (no throttling).
func NewThrottledWriter(ctx context.Context, w io.Writer, bytesPerSec int64) io.Writer {
	if bytesPerSec <= 0 {
		return w
	}
	burst := int(bytesPerSec)
	if burst > maxBurstSize {
		burst = maxBurstSize
	}
	return &ThrottledWriter{
		w:       w,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		ctx:     ctx,
	}
}

// Write implements io.Writer, splitting writes larger than the burst size
// into pieces so tokens are consumed gradually.
func (tw *ThrottledWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		chunk := len(p)
		if chunk > tw.limiter.Burst() {
			chunk = tw.limiter.Burst()
		}
		if err := tw.limiter.WaitN(tw.ctx, chunk); err != nil {
			return total, err
		}
		n, err := tw.w.Write(p[:chunk])
		total += n
		if err != nil {
			return total, err
		}
		p = p[n:]
	}
	return total, nil
}
