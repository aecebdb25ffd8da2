// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	streamRegisterNameWidth = 128
	// streamRegisterHeaderSize: type(4) + status(4) + origin_source_id(4) + origin_stream_id(4) + name(128)
	streamRegisterHeaderSize = 4*4 + streamRegisterNameWidth

	genericRegDataWidth = 128
	// GenericStreamRegisterSize is the encoded size of Chat/CharacterStreamRegister.
	GenericStreamRegisterSize = streamRegisterHeaderSize + genericRegDataWidth

	actorSkinWidth          = 60
	actorSectionConfigWidth = 60
	// ActorStreamRegisterSize is the encoded size of ActorStreamRegister.
	ActorStreamRegisterSize = streamRegisterHeaderSize + 4 + 4 + actorSkinWidth + actorSectionConfigWidth
)

// streamRegisterHeader holds the fields common to every StreamRegister variant.
type streamRegisterHeader struct {
	Status         int32
	OriginSourceID int32
	OriginStreamID int32
	Name           string
}

// StreamRegister is implemented by the three stream-registration payload
// variants, discriminated by StreamType.
type StreamRegister interface {
	StreamType() StreamType
}

// ChatStreamRegister registers the bot's single chat stream ("chat").
type ChatStreamRegister struct {
	streamRegisterHeader
	RegData string
}

// StreamType implements StreamRegister.
func (ChatStreamRegister) StreamType() StreamType { return StreamChat }

// CharacterStreamRegister registers the bot's character stream ("default").
type CharacterStreamRegister struct {
	streamRegisterHeader
	RegData string
}

// StreamType implements StreamRegister.
func (CharacterStreamRegister) StreamType() StreamType { return StreamCharacter }

// ActorStreamRegister is received from the server when another peer spawns
// or despawns a vehicle/object.
type ActorStreamRegister struct {
	streamRegisterHeader
	BufferSize    int32
	Timestamp     int32
	Skin          string
	SectionConfig string

	// ActorType is parsed from Name via ParseTruckFile; nil if unparseable.
	ActorType *ActorType
}

// StreamType implements StreamRegister.
func (ActorStreamRegister) StreamType() StreamType { return StreamActor }

func decodeStreamRegisterHeader(data []byte) (StreamType, streamRegisterHeader, error) {
	if len(data) < streamRegisterHeaderSize {
		return 0, streamRegisterHeader{}, fmt.Errorf("%w: stream register header truncated", ErrTruncatedFrame)
	}
	streamType := StreamType(int32(binary.LittleEndian.Uint32(data[0:4])))
	status := int32(binary.LittleEndian.Uint32(data[4:8]))
	originSourceID := int32(binary.LittleEndian.Uint32(data[8:12]))
	originStreamID := int32(binary.LittleEndian.Uint32(data[12:16]))
	name := getFixedString(data[16:streamRegisterHeaderSize])
	return streamType, streamRegisterHeader{
		Status:         status,
		OriginSourceID: originSourceID,
		OriginStreamID: originStreamID,
		Name:           name,
	}, nil
}

func encodeStreamRegisterHeader(buf []byte, streamType StreamType, h streamRegisterHeader) error {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(streamType)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.Status))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.OriginSourceID))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.OriginStreamID))
	return putFixedString(buf[16:streamRegisterHeaderSize], h.Name, streamRegisterNameWidth)
}

// DecodeStreamRegister dispatches on the leading StreamType discriminant
// and decodes the matching variant.
func DecodeStreamRegister(data []byte) (StreamRegister, error) {
	streamType, header, err := decodeStreamRegisterHeader(data)
	if err != nil {
		return nil, err
	}

	switch streamType {
	case StreamChat, StreamCharacter:
		if len(data) != GenericStreamRegisterSize {
			return nil, fmt.Errorf("%w: %s stream register expected %d bytes, got %d",
				ErrTruncatedFrame, streamType, GenericStreamRegisterSize, len(data))
		}
		regData := getFixedString(data[streamRegisterHeaderSize:GenericStreamRegisterSize])
		if streamType == StreamChat {
			return ChatStreamRegister{streamRegisterHeader: header, RegData: regData}, nil
		}
		return CharacterStreamRegister{streamRegisterHeader: header, RegData: regData}, nil

	case StreamAI:
		// AI stream registrations are not decoded; they are reported as
		// ErrUnknownStreamType.
		return nil, fmt.Errorf("%w: AI stream registration not supported", ErrUnknownStreamType)

	case StreamActor:
		if len(data) != ActorStreamRegisterSize {
			return nil, fmt.Errorf("%w: actor stream register expected %d bytes, got %d",
				ErrTruncatedFrame, ActorStreamRegisterSize, len(data))
		}
		off := streamRegisterHeaderSize
		bufferSize := int32(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		timestamp := int32(binary.LittleEndian.Uint32(data[off : off+4]))
		off += 4
		skin := getFixedString(data[off : off+actorSkinWidth])
		off += actorSkinWidth
		sectionConfig := getFixedString(data[off : off+actorSectionConfigWidth])

		var actorType *ActorType
		if tf, ok := ParseTruckFile(header.Name); ok {
			t := tf.Type
			actorType = &t
		}

		return ActorStreamRegister{
			streamRegisterHeader: header,
			BufferSize:           bufferSize,
			Timestamp:            timestamp,
			Skin:                 skin,
			SectionConfig:        sectionConfig,
			ActorType:            actorType,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStreamType, streamType)
	}
}

// EncodeStreamRegister packs sr into its wire representation.
func EncodeStreamRegister(sr StreamRegister) ([]byte, error) {
	switch v := sr.(type) {
	case ChatStreamRegister:
		buf := make([]byte, GenericStreamRegisterSize)
		if err := encodeStreamRegisterHeader(buf, StreamChat, v.streamRegisterHeader); err != nil {
			return nil, err
		}
		if err := putFixedString(buf[streamRegisterHeaderSize:], v.RegData, genericRegDataWidth); err != nil {
			return nil, fmt.Errorf("encoding reg_data: %w", err)
		}
		return buf, nil

	case CharacterStreamRegister:
		buf := make([]byte, GenericStreamRegisterSize)
		if err := encodeStreamRegisterHeader(buf, StreamCharacter, v.streamRegisterHeader); err != nil {
			return nil, err
		}
		if err := putFixedString(buf[streamRegisterHeaderSize:], v.RegData, genericRegDataWidth); err != nil {
			return nil, fmt.Errorf("encoding reg_data: %w", err)
		}
		return buf, nil

	case ActorStreamRegister:
		buf := make([]byte, ActorStreamRegisterSize)
		if err := encodeStreamRegisterHeader(buf, StreamActor, v.streamRegisterHeader); err != nil {
			return nil, err
		}
		off := streamRegisterHeaderSize
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v.BufferSize))
		off += 4
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v.Timestamp))
		off += 4
		if err := putFixedString(buf[off:off+actorSkinWidth], v.Skin, actorSkinWidth); err != nil {
			return nil, fmt.Errorf("encoding skin: %w", err)
		}
		off += actorSkinWidth
		if err := putFixedString(buf[off:off+actorSectionConfigWidth], v.SectionConfig, actorSectionConfigWidth); err != nil {
			return nil, fmt.Errorf("encoding section_config: %w", err)
		}
		return buf, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownStreamType, sr)
	}
}
