// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package bot

import (
	"context"
	"io"
	"sync"

	"golang.org/x/time/rate"
)

// packetWriter serializes every outbound packet through a single mutex —
// so two send primitives can never interleave a packet's header and
// payload bytes on the wire — and optionally gates the rate of whole
// packets (not bytes) through a token bucket. This is the packet-rate
// analogue of the byte-rate ThrottledWriter: a runaway operator command
// loop can flood the connection with small, frequent frames that a
// byte-rate limiter would barely notice.
type packetWriter struct {
	mu      sync.Mutex
	raw     io.Writer
	limiter *rate.Limiter
	ctx     context.Context
}

// newPacketWriter wraps raw with a writer mutex and, if packetsPerSec is
// positive, a packets/sec rate limiter. A non-positive rate disables the
// limiter entirely (bypass), matching NewThrottledWriter's convention.
func newPacketWriter(ctx context.Context, raw io.Writer, packetsPerSec float64) *packetWriter {
	pw := &packetWriter{raw: raw, ctx: ctx}
	if packetsPerSec > 0 {
		burst := int(packetsPerSec)
		if burst < 1 {
			burst = 1
		}
		pw.limiter = rate.NewLimiter(rate.Limit(packetsPerSec), burst)
	}
	return pw
}

// send runs fn with exclusive access to the underlying writer, having
// first waited for a rate-limiter token if one is configured. fn is
// expected to write exactly one packet (header + payload) via one of
// the protocol.WriteX helpers.
func (pw *packetWriter) send(fn func(io.Writer) error) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.limiter != nil {
		if err := pw.limiter.Wait(pw.ctx); err != nil {
			return err
		}
	}
	return fn(pw.raw)
}
