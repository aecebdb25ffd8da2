// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package bot

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"
)

func TestPacketWriter_ZeroBypassesLimiter(t *testing.T) {
	var buf bytes.Buffer
	pw := newPacketWriter(context.Background(), &buf, 0)

	if pw.limiter != nil {
		t.Fatal("expected no limiter when packetsPerSec<=0")
	}

	for i := 0; i < 100; i++ {
		if err := pw.send(func(w io.Writer) error {
			_, err := w.Write([]byte("x"))
			return err
		}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if buf.Len() != 100 {
		t.Errorf("expected 100 bytes written, got %d", buf.Len())
	}
}

func TestPacketWriter_NegativeBypassesLimiter(t *testing.T) {
	var buf bytes.Buffer
	pw := newPacketWriter(context.Background(), &buf, -5)

	if pw.limiter != nil {
		t.Fatal("expected no limiter when packetsPerSec<=0")
	}
}

func TestPacketWriter_RespectsRate(t *testing.T) {
	var buf bytes.Buffer
	// 5 packets/sec, burst 5: sending 10 packets must take at least ~1s
	// once the burst is exhausted.
	pw := newPacketWriter(context.Background(), &buf, 5)

	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := pw.send(func(w io.Writer) error {
			_, err := w.Write([]byte{byte(i)})
			return err
		}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 500*time.Millisecond {
		t.Errorf("rate limiter too permissive: sent 10 packets at 5/s in %v", elapsed)
	}
}

func TestPacketWriter_ContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	pw := newPacketWriter(ctx, &buf, 1) // 1 packet/sec, burst 1

	// Drain the burst token.
	if err := pw.send(func(w io.Writer) error { return nil }); err != nil {
		t.Fatalf("first send: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := pw.send(func(w io.Writer) error { return nil })
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestPacketWriter_SerializesHeaderAndPayload(t *testing.T) {
	var buf bytes.Buffer
	pw := newPacketWriter(context.Background(), &buf, 0)

	if err := pw.send(func(w io.Writer) error {
		if _, err := w.Write([]byte("HEAD")); err != nil {
			return err
		}
		_, err := w.Write([]byte("BODY"))
		return err
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if buf.String() != "HEADBODY" {
		t.Errorf("expected HEADBODY written atomically, got %q", buf.String())
	}
}
