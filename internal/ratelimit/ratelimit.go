// Package ratelimit provides a token bucket limiter used to throttle the
// client's data-connection throughput to a configured bytes-per-second
// ceiling.
package ratelimit

import (
	"io"
	"sync"
	"time"
)

// Limiter is a token bucket sized to one second of traffic, which lets
// short bursts through while holding the average rate. A nil *Limiter is
// valid and imposes no limit.
type Limiter struct {
	rate       float64 // bytes per second
	burst      float64 // bucket capacity
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// New creates a limiter for the given bytes-per-second rate. Rates of zero
// or below return nil, meaning unlimited.
func New(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	rate := float64(bytesPerSecond)
	return &Limiter{
		rate:       rate,
		burst:      rate,
		tokens:     rate,
		lastUpdate: time.Now(),
	}
}

// refillLocked credits tokens for the time elapsed since the last update.
func (rl *Limiter) refillLocked(now time.Time) {
	rl.tokens += now.Sub(rl.lastUpdate).Seconds() * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.lastUpdate = now
}

// take consumes n tokens, sleeping for the shortfall when the bucket is
// low. The sleep is capped at one second so a large request cannot stall
// the transfer loop indefinitely.
func (rl *Limiter) take(n int) {
	if rl == nil || n <= 0 {
		return
	}

	rl.mu.Lock()
	rl.refillLocked(time.Now())

	needed := float64(n)
	if rl.tokens >= needed {
		rl.tokens -= needed
		rl.mu.Unlock()
		return
	}

	wait := time.Duration((needed - rl.tokens) / rl.rate * float64(time.Second))
	const maxWait = time.Second
	if wait > maxWait {
		wait = maxWait
	}
	rl.mu.Unlock()

	time.Sleep(wait)

	rl.mu.Lock()
	rl.refillLocked(time.Now())
	if rl.tokens >= needed {
		rl.tokens -= needed
	} else {
		rl.tokens = 0
	}
	rl.mu.Unlock()
}

type reader struct {
	r       io.Reader
	limiter *Limiter
}

// NewReader wraps r so reads are paced by the limiter. A nil limiter
// returns r unchanged.
func NewReader(r io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &reader{r: r, limiter: limiter}
}

func (r *reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	// Small reads keep the pacing accurate.
	const maxChunk = 8 * 1024
	n := len(p)
	if n > maxChunk {
		n = maxChunk
	}

	r.limiter.take(n)
	return r.r.Read(p[:n])
}

type writer struct {
	w       io.Writer
	limiter *Limiter
}

// NewWriter wraps w so writes are paced by the limiter. A nil limiter
// returns w unchanged.
func NewWriter(w io.Writer, limiter *Limiter) io.Writer {
	if limiter == nil {
		return w
	}
	return &writer{w: w, limiter: limiter}
}

func (w *writer) Write(p []byte) (int, error) {
	const maxChunk = 8 * 1024

	written := 0
	for written < len(p) {
		chunk := len(p) - written
		if chunk > maxChunk {
			chunk = maxChunk
		}

		// Tokens are taken before the write to apply backpressure.
		w.limiter.take(chunk)

		n, err := w.w.Write(p[written : written+chunk])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
