// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     string
	}{
		{"empty password", "", "DA39A3EE5E6B4B0D3255BFEF95601890AFD80709"},
		{"non-empty password", "hunter2", ""}, // only checked for format below
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashPassword(tt.password)
			if len(got) != 40 {
				t.Fatalf("expected 40-char hex digest, got %d chars: %q", len(got), got)
			}
			if tt.want != "" && got != tt.want {
				t.Errorf("HashPassword(%q) = %q, want %q", tt.password, got, tt.want)
			}
		})
	}
}

func TestPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		packet  Packet
		wantErr error
	}{
		{"empty chat", Packet{Command: MsgChat, Source: 5, StreamID: 0, Data: []byte{}}, ErrZeroSizeNotAllowed},
		{"with payload", Packet{Command: MsgUserJoin, Source: 42, StreamID: 10, Data: []byte("hello")}, nil},
		{"stream unregister zero size", Packet{Command: MsgStreamUnregister, Source: 1, StreamID: 10}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WritePacket(&buf, tt.packet); err != nil {
				t.Fatalf("WritePacket: %v", err)
			}

			got, err := ReadPacket(&buf)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReadPacket error = %v, want %v", err, tt.wantErr)
			}

			if got.Command != tt.packet.Command || got.Source != tt.packet.Source || got.StreamID != tt.packet.StreamID {
				t.Fatalf("header mismatch: got %+v, want %+v", got, tt.packet)
			}
			if len(got.Data) != len(tt.packet.Data) || (len(got.Data) > 0 && !bytes.Equal(got.Data, tt.packet.Data)) {
				t.Fatalf("payload mismatch: got %q, want %q", got.Data, tt.packet.Data)
			}
		})
	}
}

func TestReadPacketZeroSizeNonUnregisterIsFlaggedButFrameStaysSynced(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePacket(&buf, Packet{Command: MsgChat, Source: 1, StreamID: 0}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	// Append a second, well-formed packet to prove the reader didn't
	// over/under-consume bytes after flagging the zero-size frame.
	if err := WritePacket(&buf, Packet{Command: MsgUserJoin, Source: 2, Data: []byte("x")}); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}

	p1, err := ReadPacket(&buf)
	if !errors.Is(err, ErrZeroSizeNotAllowed) {
		t.Fatalf("expected ErrZeroSizeNotAllowed, got %v", err)
	}
	if p1.Command != MsgChat {
		t.Fatalf("expected command preserved despite flagged error, got %v", p1.Command)
	}

	p2, err := ReadPacket(&buf)
	if err != nil {
		t.Fatalf("second ReadPacket: %v", err)
	}
	if p2.Command != MsgUserJoin || string(p2.Data) != "x" {
		t.Fatalf("stream desynced after zero-size frame: got %+v", p2)
	}
}

func TestServerInfoRoundTrip(t *testing.T) {
	si := ServerInfo{
		ProtocolVersion: ProtocolVersion,
		TerrainName:     "Testworld",
		ServerName:      "Test Server",
		HasPassword:     true,
		Info:            "welcome",
	}

	data, err := si.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) != ServerInfoSize {
		t.Fatalf("encoded size = %d, want %d", len(data), ServerInfoSize)
	}

	got, err := DecodeServerInfo(data)
	if err != nil {
		t.Fatalf("DecodeServerInfo: %v", err)
	}
	if got != si {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, si)
	}
}

func TestUserInfoRoundTrip(t *testing.T) {
	ui := UserInfo{
		UniqueID:       7,
		AuthStatus:     AuthBot | AuthRanked,
		SlotNum:        3,
		ColorNum:       2,
		Username:       "TestBot",
		UserToken:      "",
		ServerPassword: HashPassword(""),
		Language:       "en-US",
		ClientName:     "rorbot",
		ClientVersion:  "1.0",
		ClientGUID:     "guid-1234",
		SessionType:    "bot",
		SessionOptions: "",
	}

	data, err := ui.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) != UserInfoSize {
		t.Fatalf("encoded size = %d, want %d", len(data), UserInfoSize)
	}

	got, err := DecodeUserInfo(data)
	if err != nil {
		t.Fatalf("DecodeUserInfo: %v", err)
	}
	if got != ui {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, ui)
	}
	if !got.AuthStatus.Has(AuthBot) {
		t.Errorf("expected AuthBot flag set")
	}
}

func TestColorForPlayer(t *testing.T) {
	if got := ColorForPlayer(0); got != PlayerColors[0] {
		t.Errorf("ColorForPlayer(0) = %q, want %q", got, PlayerColors[0])
	}
	if got := ColorForPlayer(-1); got != ColorWhite {
		t.Errorf("ColorForPlayer(-1) = %q, want white fallback", got)
	}
	if got := ColorForPlayer(int32(len(PlayerColors))); got != ColorWhite {
		t.Errorf("ColorForPlayer(out of range) = %q, want white fallback", got)
	}
	if len(PlayerColors) != 25 {
		t.Fatalf("expected exactly 25 player colors, got %d", len(PlayerColors))
	}
}

func TestStreamRegisterRoundTrip(t *testing.T) {
	chat := ChatStreamRegister{
		streamRegisterHeader: streamRegisterHeader{Name: "chat"},
		RegData:              "0",
	}
	data, err := EncodeStreamRegister(chat)
	if err != nil {
		t.Fatalf("EncodeStreamRegister: %v", err)
	}
	got, err := DecodeStreamRegister(data)
	if err != nil {
		t.Fatalf("DecodeStreamRegister: %v", err)
	}
	chatGot, ok := got.(ChatStreamRegister)
	if !ok {
		t.Fatalf("expected ChatStreamRegister, got %T", got)
	}
	if chatGot.Name != "chat" || chatGot.RegData != "0" {
		t.Fatalf("roundtrip mismatch: %+v", chatGot)
	}

	actor := ActorStreamRegister{
		streamRegisterHeader: streamRegisterHeader{Name: "rigsofrods/my_rig.truck"},
		BufferSize:           1024,
		Timestamp:            12345,
		Skin:                 "default",
		SectionConfig:        "",
	}
	data, err = EncodeStreamRegister(actor)
	if err != nil {
		t.Fatalf("EncodeStreamRegister actor: %v", err)
	}
	got, err = DecodeStreamRegister(data)
	if err != nil {
		t.Fatalf("DecodeStreamRegister actor: %v", err)
	}
	actorGot, ok := got.(ActorStreamRegister)
	if !ok {
		t.Fatalf("expected ActorStreamRegister, got %T", got)
	}
	if actorGot.ActorType == nil || *actorGot.ActorType != ActorTruck {
		t.Fatalf("expected actor type truck, got %+v", actorGot.ActorType)
	}
}

func TestCharacterStreamDataRoundTrip(t *testing.T) {
	pos := CharacterPositionStreamData{
		Position:      Vector3{X: 1, Y: 2, Z: 3},
		Rotation:      1.5,
		AnimationTime: 0.25,
		AnimationMode: AnimIdleSway,
	}
	data, err := EncodeCharacterStreamData(pos)
	if err != nil {
		t.Fatalf("EncodeCharacterStreamData: %v", err)
	}
	got, err := DecodeStreamData(StreamCharacter, data)
	if err != nil {
		t.Fatalf("DecodeStreamData: %v", err)
	}
	posGot, ok := got.(CharacterPositionStreamData)
	if !ok {
		t.Fatalf("expected CharacterPositionStreamData, got %T", got)
	}
	if posGot != pos {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", posGot, pos)
	}
}

func TestVehicleStreamDataRoundTrip(t *testing.T) {
	v := VehicleStreamData{
		Time:         100,
		EngineRPM:    2500,
		EngineAccel:  0.8,
		EngineClutch: 1.0,
		EngineGear:   2,
		Steering:     0.1,
		Brake:        0,
		WheelSpeed:   12.3,
		FlagMask:     uint32(NetEngineRun) | uint32(LightHeadlight),
		Position:     Vector3{X: 10, Y: 0, Z: -5},
		NodeData:     []byte{1, 2, 3, 4, 5},
	}
	data := v.Encode()
	got, err := DecodeVehicleStreamData(data)
	if err != nil {
		t.Fatalf("DecodeVehicleStreamData: %v", err)
	}
	if got.Time != v.Time || got.Position != v.Position || !bytes.Equal(got.NodeData, v.NodeData) {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, v)
	}
	if got.Lights()&LightHeadlight == 0 {
		t.Errorf("expected headlight flag set")
	}
	if got.Net()&NetEngineRun == 0 {
		t.Errorf("expected engine-run flag set")
	}
}

func TestPacketOverNetPipe(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	done := make(chan error, 1)
	go func() {
		done <- WriteChat(clientConn, 9, "gg")
	}()

	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	p, err := ReadPacket(serverConn)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteChat: %v", err)
	}
	if p.Command != MsgChat || DecodeChat(p.Data) != "gg" {
		t.Fatalf("unexpected packet: %+v", p)
	}
}

func TestParseTruckFile(t *testing.T) {
	tests := []struct {
		filename string
		wantName string
		wantType ActorType
		wantOK   bool
	}{
		{"semi.truck", "semi", ActorTruck, true},
		{"abcd1234-crazyUID-my_boat.boat", "my_boat", ActorBoat, true},
		{"not-a-truckfile", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := ParseTruckFile(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Name != tt.wantName || got.Type != tt.wantType {
				t.Fatalf("got %+v, want name=%q type=%q", got, tt.wantName, tt.wantType)
			}
		})
	}
}
