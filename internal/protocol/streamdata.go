// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

const characterAnimationWidth = 10

// CharacterPositionStreamDataSize is the encoded size of a position update.
const CharacterPositionStreamDataSize = 4 + 4*3 + 4 + 4 + characterAnimationWidth

// CharacterAttachStreamDataSize is the encoded size of an attach command.
const CharacterAttachStreamDataSize = 4 * 4

// CharacterDetachStreamDataSize is the encoded size of a detach command.
const CharacterDetachStreamDataSize = 4

// vehicleStreamDataFixedSize is the fixed-width prefix of VehicleStreamData,
// before the variable-length node_data tail.
const vehicleStreamDataFixedSize = 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4*3

// StreamData is implemented by every character/actor stream-data payload
// variant.
type StreamData interface {
	isStreamData()
}

// CharacterPositionStreamData updates a character's position, facing and
// animation state. This is the payload the heartbeat loop sends when idle.
type CharacterPositionStreamData struct {
	Position      Vector3
	Rotation      float32 // radians
	AnimationTime float32
	AnimationMode CharacterAnimation
}

func (CharacterPositionStreamData) isStreamData() {}

// CharacterAttachStreamData attaches a character to a vehicle seat.
type CharacterAttachStreamData struct {
	SourceID int32
	StreamID int32
	Position int32 // seat index
}

func (CharacterAttachStreamData) isStreamData() {}

// CharacterDetachStreamData detaches a character from its vehicle.
type CharacterDetachStreamData struct{}

func (CharacterDetachStreamData) isStreamData() {}

// VehicleStreamData is a snapshot of another actor's physics/telemetry
// state, broadcast on an actor stream.
type VehicleStreamData struct {
	Time            uint32
	EngineRPM       float32
	EngineAccel     float32
	EngineClutch    float32
	EngineGear      uint32
	Steering        float32
	Brake           float32
	WheelSpeed      float32
	FlagMask        uint32
	Position        Vector3
	NodeData        []byte
}

func (VehicleStreamData) isStreamData() {}

// Lights returns the LightMask bits set in FlagMask.
func (v VehicleStreamData) Lights() LightMask {
	return LightMask(v.FlagMask)
}

// Net returns the NetMask bits set in FlagMask.
func (v VehicleStreamData) Net() NetMask {
	return NetMask(v.FlagMask)
}

// DecodeCharacterStreamData dispatches on the leading CharacterCommand
// discriminant and decodes the matching variant.
func DecodeCharacterStreamData(data []byte) (StreamData, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: character stream data truncated", ErrTruncatedFrame)
	}
	command := CharacterCommand(int32(binary.LittleEndian.Uint32(data[0:4])))

	switch command {
	case CharacterPosition:
		if len(data) != CharacterPositionStreamDataSize {
			return nil, fmt.Errorf("%w: character position expected %d bytes, got %d",
				ErrTruncatedFrame, CharacterPositionStreamDataSize, len(data))
		}
		off := 4
		x := math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		y := math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		z := math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		rotation := math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		animTime := math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		animMode := CharacterAnimation(getFixedString(data[off : off+characterAnimationWidth]))

		return CharacterPositionStreamData{
			Position:      Vector3{X: x, Y: y, Z: z},
			Rotation:      rotation,
			AnimationTime: animTime,
			AnimationMode: animMode,
		}, nil

	case CharacterAttach:
		if len(data) != CharacterAttachStreamDataSize {
			return nil, fmt.Errorf("%w: character attach expected %d bytes, got %d",
				ErrTruncatedFrame, CharacterAttachStreamDataSize, len(data))
		}
		return CharacterAttachStreamData{
			SourceID: int32(binary.LittleEndian.Uint32(data[4:8])),
			StreamID: int32(binary.LittleEndian.Uint32(data[8:12])),
			Position: int32(binary.LittleEndian.Uint32(data[12:16])),
		}, nil

	case CharacterDetach:
		if len(data) != CharacterDetachStreamDataSize {
			return nil, fmt.Errorf("%w: character detach expected %d bytes, got %d",
				ErrTruncatedFrame, CharacterDetachStreamDataSize, len(data))
		}
		return CharacterDetachStreamData{}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCharacterCmd, command)
	}
}

// EncodeCharacterStreamData packs sd into its wire representation.
func EncodeCharacterStreamData(sd StreamData) ([]byte, error) {
	switch v := sd.(type) {
	case CharacterPositionStreamData:
		buf := make([]byte, CharacterPositionStreamDataSize)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(CharacterPosition))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Position.X))
		binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v.Position.Y))
		binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v.Position.Z))
		binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(v.Rotation))
		binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(v.AnimationTime))
		if err := putFixedString(buf[24:24+characterAnimationWidth], string(v.AnimationMode), characterAnimationWidth); err != nil {
			return nil, fmt.Errorf("encoding animation_mode: %w", err)
		}
		return buf, nil

	case CharacterAttachStreamData:
		buf := make([]byte, CharacterAttachStreamDataSize)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(CharacterAttach))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(v.SourceID))
		binary.LittleEndian.PutUint32(buf[8:12], uint32(v.StreamID))
		binary.LittleEndian.PutUint32(buf[12:16], uint32(v.Position))
		return buf, nil

	case CharacterDetachStreamData:
		buf := make([]byte, CharacterDetachStreamDataSize)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(CharacterDetach))
		return buf, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCharacterCmd, sd)
	}
}

// DecodeVehicleStreamData parses an actor-stream telemetry snapshot.
func DecodeVehicleStreamData(data []byte) (VehicleStreamData, error) {
	if len(data) < vehicleStreamDataFixedSize {
		return VehicleStreamData{}, fmt.Errorf("%w: vehicle stream data truncated", ErrTruncatedFrame)
	}

	off := 0
	readU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		return v
	}
	readF32 := func() float32 {
		return math.Float32frombits(readU32())
	}

	timeField := readU32()
	engineRPM := readF32()
	engineAccel := readF32()
	engineClutch := readF32()
	engineGear := readU32()
	steering := readF32()
	brake := readF32()
	wheelSpeed := readF32()
	flagMask := readU32()
	x := readF32()
	y := readF32()
	z := readF32()

	nodeData := append([]byte(nil), data[off:]...)

	return VehicleStreamData{
		Time:         timeField,
		EngineRPM:    engineRPM,
		EngineAccel:  engineAccel,
		EngineClutch: engineClutch,
		EngineGear:   engineGear,
		Steering:     steering,
		Brake:        brake,
		WheelSpeed:   wheelSpeed,
		FlagMask:     flagMask,
		Position:     Vector3{X: x, Y: y, Z: z},
		NodeData:     nodeData,
	}, nil
}

// Encode packs v into its wire representation.
func (v VehicleStreamData) Encode() []byte {
	buf := make([]byte, vehicleStreamDataFixedSize+len(v.NodeData))
	off := 0
	putU32 := func(val uint32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], val)
		off += 4
	}
	putF32 := func(val float32) {
		putU32(math.Float32bits(val))
	}

	putU32(v.Time)
	putF32(v.EngineRPM)
	putF32(v.EngineAccel)
	putF32(v.EngineClutch)
	putU32(v.EngineGear)
	putF32(v.Steering)
	putF32(v.Brake)
	putF32(v.WheelSpeed)
	putU32(v.FlagMask)
	putF32(v.Position.X)
	putF32(v.Position.Y)
	putF32(v.Position.Z)
	copy(buf[off:], v.NodeData)

	return buf
}

// DecodeStreamData dispatches on StreamType to decode either a character
// command or an actor telemetry snapshot — the single-dispatch table
// pattern called for by the design notes, rather than reflection.
func DecodeStreamData(streamType StreamType, data []byte) (StreamData, error) {
	switch streamType {
	case StreamCharacter:
		return DecodeCharacterStreamData(data)
	case StreamActor:
		return DecodeVehicleStreamData(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStreamType, streamType)
	}
}
