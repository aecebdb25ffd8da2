// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"fmt"
	"io"
)

// WriteHello sends the client's HELLO handshake: the protocol version
// string as the packet payload.
func WriteHello(w io.Writer) error {
	return WritePacket(w, Packet{
		Command: MsgHello,
		Data:    []byte(ProtocolVersion),
	})
}

// WriteUserInfo sends a USER_INFO packet.
func WriteUserInfo(w io.Writer, source uint32, info UserInfo) error {
	data, err := info.Encode()
	if err != nil {
		return fmt.Errorf("encoding user info: %w", err)
	}
	return WritePacket(w, Packet{Command: MsgUserInfo, Source: source, Data: data})
}

// WriteStreamRegister sends a STREAM_REGISTER packet for sr on streamID.
func WriteStreamRegister(w io.Writer, source, streamID uint32, sr StreamRegister) error {
	data, err := EncodeStreamRegister(sr)
	if err != nil {
		return fmt.Errorf("encoding stream register: %w", err)
	}
	return WritePacket(w, Packet{Command: MsgStreamRegister, Source: source, StreamID: streamID, Data: data})
}

// WriteStreamUnregister sends a STREAM_UNREGISTER packet for streamID.
// Per the wire invariant, its payload is always empty.
func WriteStreamUnregister(w io.Writer, source, streamID uint32) error {
	return WritePacket(w, Packet{Command: MsgStreamUnregister, Source: source, StreamID: streamID})
}

// WriteStreamData sends a STREAM_DATA packet for sd on streamID.
func WriteStreamData(w io.Writer, source, streamID uint32, sd StreamData) error {
	var (
		data []byte
		err  error
	)
	switch v := sd.(type) {
	case VehicleStreamData:
		data = v.Encode()
	default:
		data, err = EncodeCharacterStreamData(sd)
		if err != nil {
			return fmt.Errorf("encoding stream data: %w", err)
		}
	}
	return WritePacket(w, Packet{Command: MsgStreamData, Source: source, StreamID: streamID, Data: data})
}

// WriteChat sends a public chat line.
func WriteChat(w io.Writer, source uint32, message string) error {
	return WritePacket(w, Packet{Command: MsgChat, Source: source, Data: []byte(message)})
}

// PrivateChatMessageWidth is the fixed, NUL-padded size of the message
// buffer trailing the target uid in a PRIVATE_CHAT payload.
const PrivateChatMessageWidth = 8000

// WritePrivateChat sends a private chat line addressed to targetUID.
// Wire layout: [target_uid uint32 LE][8000-byte NUL-padded UTF-8 message].
func WritePrivateChat(w io.Writer, source, targetUID uint32, message string) error {
	data := make([]byte, 4+PrivateChatMessageWidth)
	data[0] = byte(targetUID)
	data[1] = byte(targetUID >> 8)
	data[2] = byte(targetUID >> 16)
	data[3] = byte(targetUID >> 24)
	if err := putFixedString(data[4:], message, PrivateChatMessageWidth); err != nil {
		return fmt.Errorf("encoding private chat message: %w", err)
	}
	return WritePacket(w, Packet{Command: MsgPrivateChat, Source: source, Data: data})
}

// WriteGameCmd sends a script/game command string.
func WriteGameCmd(w io.Writer, source uint32, cmd string) error {
	return WritePacket(w, Packet{Command: MsgGameCmd, Source: source, Data: []byte(cmd)})
}
