// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/danmackey/rorserverbot/internal/protocol"
)

// CurrentStream names the stream a user is "in" right now — their own
// character, or the vehicle they're riding in. UniqueID differs from the
// owning User's uid when the user is a passenger in someone else's
// vehicle.
type CurrentStream struct {
	UniqueID int32
	StreamID int32
}

// streamState pairs a stream's registration with the mutable position
// and rotation the bot tracks for it via STREAM_DATA updates. The
// StreamRegister payload itself is immutable once registered; position
// and rotation move independently as telemetry arrives.
type streamState struct {
	Register    protocol.StreamRegister
	DisplayName string
	Position    protocol.Vector3
	Rotation    float32
}

// User is everything the bot knows about one connected player: their
// identity, the streams they've registered, and accumulated travel
// stats.
type User struct {
	mu sync.RWMutex

	info  protocol.UserInfo
	stats UserStats

	characterStreamID int32
	chatStreamID      int32
	current           CurrentStream
	streams           map[int32]*streamState
}

// NewUser creates a User for info, joining now.
func NewUser(info protocol.UserInfo, now time.Time) *User {
	return &User{
		info:              info,
		stats:             UserStats{OnlineSince: now},
		characterStreamID: -1,
		chatStreamID:      -1,
		current:           CurrentStream{UniqueID: -1, StreamID: -1},
		streams:           make(map[int32]*streamState),
	}
}

// Info returns the user's current UserInfo snapshot.
func (u *User) Info() protocol.UserInfo {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.info
}

// SetInfo replaces the user's UserInfo, e.g. on a repeated USER_INFO
// broadcast (slot/color/auth changes).
func (u *User) SetInfo(info protocol.UserInfo) {
	u.mu.Lock()
	u.info = info
	u.mu.Unlock()
}

// UniqueID returns the user's server-assigned id.
func (u *User) UniqueID() uint32 { return u.Info().UniqueID }

// AuthStatus returns the user's privilege bitflag.
func (u *User) AuthStatus() protocol.AuthStatus { return u.Info().AuthStatus }

// Username returns the user's plain display name.
func (u *User) Username() string { return u.Info().Username }

// UsernameColored returns the username wrapped in its assigned chat
// color, reset to white afterward — the form used in chat echoes.
func (u *User) UsernameColored() string {
	info := u.Info()
	return fmt.Sprintf("%s%s%s", info.Color(), info.Username, protocol.ColorWhite)
}

// Language returns the user's client-reported language tag.
func (u *User) Language() string { return u.Info().Language }

// ClientName returns the user's reported game client name.
func (u *User) ClientName() string { return u.Info().ClientName }

// ClientVersion returns the user's reported game client version.
func (u *User) ClientVersion() string { return u.Info().ClientVersion }

// ClientGUID returns the user's client installation GUID.
func (u *User) ClientGUID() string { return u.Info().ClientGUID }

// Stats returns a snapshot of the user's accumulated distance stats.
func (u *User) Stats() UserStats {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.stats
}

// CharacterStreamID returns the stream id of the user's character
// stream, or -1 if not yet registered.
func (u *User) CharacterStreamID() int32 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.characterStreamID
}

// ChatStreamID returns the stream id of the user's chat stream, or -1
// if not yet registered.
func (u *User) ChatStreamID() int32 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.chatStreamID
}

// TotalStreams returns how many streams are currently registered to
// the user.
func (u *User) TotalStreams() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.streams)
}

// StreamIDs returns the ids of every stream registered to the user.
func (u *User) StreamIDs() []int32 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	ids := make([]int32, 0, len(u.streams))
	for id := range u.streams {
		ids = append(ids, id)
	}
	return ids
}

// AddStream registers sr under streamID, resolving the user's
// character/chat stream id bookkeeping as a side effect. displayName is
// the actor's resolved human-readable name (empty for chat/character
// streams, which have no filename to resolve).
func (u *User) AddStream(streamID int32, sr protocol.StreamRegister, displayName string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch sr.StreamType() {
	case protocol.StreamCharacter:
		u.characterStreamID = streamID
	case protocol.StreamChat:
		u.chatStreamID = streamID
	}
	u.streams[streamID] = &streamState{Register: sr, DisplayName: displayName}
}

// StreamDisplayName returns the resolved display name for the actor
// registered at streamID, or "" for chat/character streams.
func (u *User) StreamDisplayName(streamID int32) (string, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	s, ok := u.streams[streamID]
	if !ok {
		return "", fmt.Errorf("%w: stream %d", ErrStreamNotFound, streamID)
	}
	return s.DisplayName, nil
}

// RemoveStream unregisters streamID, clearing character/chat
// bookkeeping if it referred to one of those streams.
func (u *User) RemoveStream(streamID int32) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.streams[streamID]; !ok {
		return fmt.Errorf("%w: stream %d", ErrStreamNotFound, streamID)
	}
	delete(u.streams, streamID)

	if streamID == u.characterStreamID {
		u.characterStreamID = -1
	}
	if streamID == u.chatStreamID {
		u.chatStreamID = -1
	}
	return nil
}

// GetStream returns the stream registered under streamID.
func (u *User) GetStream(streamID int32) (protocol.StreamRegister, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	s, ok := u.streams[streamID]
	if !ok {
		return nil, fmt.Errorf("%w: stream %d", ErrStreamNotFound, streamID)
	}
	return s.Register, nil
}

// SetCurrentStream records which stream the user is currently occupying
// — their own character, or (when occupantUID differs from the user's
// own uid) a vehicle owned by another user.
func (u *User) SetCurrentStream(occupantUID uint32, streamID int32) {
	u.mu.Lock()
	u.current = CurrentStream{UniqueID: int32(occupantUID), StreamID: streamID}
	u.mu.Unlock()
}

// CurrentStream returns the user's current stream pointer.
func (u *User) CurrentStream() CurrentStream {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.current
}

// SetPosition records a new position for the stream at streamID. Moves
// under one meter are dropped as noise (the dead-band); moves at or
// above it are folded into the user's distance stats by the stream's
// mode of travel. Chat streams carry no position and are ignored.
func (u *User) SetPosition(streamID int32, pos protocol.Vector3) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	s, ok := u.streams[streamID]
	if !ok {
		return fmt.Errorf("%w: stream %d", ErrStreamNotFound, streamID)
	}
	if s.Register.StreamType() == protocol.StreamChat {
		return nil
	}

	distance := s.Position.Distance(pos)
	if distance < 1 {
		return nil
	}
	s.Position = pos

	switch s.Register.StreamType() {
	case protocol.StreamCharacter:
		u.stats.MetersWalked += distance
	case protocol.StreamActor:
		actor, ok := s.Register.(protocol.ActorStreamRegister)
		if !ok || actor.ActorType == nil {
			return nil
		}
		switch *actor.ActorType {
		case protocol.ActorCar, protocol.ActorTruck, protocol.ActorTrain:
			u.stats.MetersDriven += distance
		case protocol.ActorBoat:
			u.stats.MetersSailed += distance
		case protocol.ActorAirplane:
			u.stats.MetersFlown += distance
		}
	}
	return nil
}

// GetPosition returns the last known position of the stream at
// streamID, or the user's current stream if streamID is nil.
func (u *User) GetPosition(streamID *int32) (protocol.Vector3, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	id := u.current.StreamID
	if streamID != nil {
		id = *streamID
	}
	s, ok := u.streams[id]
	if !ok {
		return protocol.Vector3{}, fmt.Errorf("%w: stream %d", ErrStreamNotFound, id)
	}
	if s.Register.StreamType() == protocol.StreamChat {
		return protocol.Vector3{}, fmt.Errorf("%w: chat stream has no position", ErrStreamNotFound)
	}
	return s.Position, nil
}

// SetRotation records a new facing angle (radians) for the stream at
// streamID.
func (u *User) SetRotation(streamID int32, rotation float32) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.streams[streamID]
	if !ok {
		return fmt.Errorf("%w: stream %d", ErrStreamNotFound, streamID)
	}
	s.Rotation = rotation
	return nil
}

// GetRotation returns the last known facing angle of the stream at
// streamID, or the user's current stream if streamID is nil.
func (u *User) GetRotation(streamID *int32) (float32, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	id := u.current.StreamID
	if streamID != nil {
		id = *streamID
	}
	s, ok := u.streams[id]
	if !ok {
		return 0, fmt.Errorf("%w: stream %d", ErrStreamNotFound, id)
	}
	return s.Rotation, nil
}
