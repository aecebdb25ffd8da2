// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Packet is a framed RoRnet message: a 16-byte header (command, source,
// stream_id, size) followed by exactly size bytes of payload.
type Packet struct {
	Command  MessageType
	Source   uint32
	StreamID uint32
	Data     []byte
}

// Size returns the wire size of the packet payload.
func (p Packet) Size() uint32 {
	return uint32(len(p.Data))
}

// ReadPacket reads one framed packet from r. It always consumes the full
// frame (header + payload) even when it reports an error classifying the
// payload, so the stream stays in sync for the next read.
func ReadPacket(r io.Reader) (Packet, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Packet{}, fmt.Errorf("reading packet header: %w", err)
	}

	command := binary.LittleEndian.Uint32(header[0:4])
	source := binary.LittleEndian.Uint32(header[4:8])
	streamID := binary.LittleEndian.Uint32(header[8:12])
	size := binary.LittleEndian.Uint32(header[12:16])

	if size == 0 && MessageType(command) != MsgStreamUnregister {
		// Still not fatal: no payload to drain, but flag it to the caller
		// so it can log and drop the frame per the spec's error model.
		return Packet{
			Command:  MessageType(command),
			Source:   source,
			StreamID: streamID,
			Data:     nil,
		}, ErrZeroSizeNotAllowed
	}

	if size == 0 {
		return Packet{
			Command:  MessageType(command),
			Source:   source,
			StreamID: streamID,
			Data:     nil,
		}, nil
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return Packet{}, fmt.Errorf("reading packet payload (%d bytes): %w", size, err)
	}

	return Packet{
		Command:  MessageType(command),
		Source:   source,
		StreamID: streamID,
		Data:     data,
	}, nil
}

// WritePacket writes one framed packet to w.
func WritePacket(w io.Writer, p Packet) error {
	var header [HeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(p.Command))
	binary.LittleEndian.PutUint32(header[4:8], p.Source)
	binary.LittleEndian.PutUint32(header[8:12], p.StreamID)
	binary.LittleEndian.PutUint32(header[12:16], p.Size())

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing packet header: %w", err)
	}
	if len(p.Data) > 0 {
		if _, err := w.Write(p.Data); err != nil {
			return fmt.Errorf("writing packet payload: %w", err)
		}
	}
	return nil
}
