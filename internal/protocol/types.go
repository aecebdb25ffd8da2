// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package protocol implements the RoRnet binary wire protocol used by
// Rigs of Rods multiplayer clients and servers.
package protocol

import "errors"

// ProtocolVersion is the RoRnet protocol string this client speaks.
const ProtocolVersion = "RoRnet_2.44"

// HeaderSize is the size in bytes of a Packet header: command, source,
// stream_id and size, each a little-endian uint32.
const HeaderSize = 16

// MessageType enumerates the RoRnet packet commands.
type MessageType uint32

const (
	MsgHello MessageType = 1025 + iota
	MsgServerFull
	MsgWrongPassword
	MsgWrongVersion
	MsgBanned
	MsgWelcome
	MsgServerVersion
	MsgServerSettings
	MsgUserInfo
	MsgMasterServerInfo
	MsgNetQuality
	MsgGameCmd
	MsgUserJoin
	MsgUserLeave
	MsgChat
	MsgPrivateChat
	MsgStreamRegister
	MsgStreamRegisterResult
	MsgStreamUnregister
	MsgStreamData
	MsgStreamDataDiscardable
)

// MsgUserInfoLegacy is the pre-2.44 USER_INFO command, kept for servers
// still running older RoRnet revisions.
const MsgUserInfoLegacy MessageType = 1003

func (m MessageType) String() string {
	switch m {
	case MsgHello:
		return "HELLO"
	case MsgServerFull:
		return "SERVER_FULL"
	case MsgWrongPassword:
		return "WRONG_PASSWORD"
	case MsgWrongVersion:
		return "WRONG_VERSION"
	case MsgBanned:
		return "BANNED"
	case MsgWelcome:
		return "WELCOME"
	case MsgServerVersion:
		return "SERVER_VERSION"
	case MsgServerSettings:
		return "SERVER_SETTINGS"
	case MsgUserInfo:
		return "USER_INFO"
	case MsgMasterServerInfo:
		return "MASTER_SERVER_INFO"
	case MsgNetQuality:
		return "NET_QUALITY"
	case MsgGameCmd:
		return "GAME_CMD"
	case MsgUserJoin:
		return "USER_JOIN"
	case MsgUserLeave:
		return "USER_LEAVE"
	case MsgChat:
		return "CHAT"
	case MsgPrivateChat:
		return "PRIVATE_CHAT"
	case MsgStreamRegister:
		return "STREAM_REGISTER"
	case MsgStreamRegisterResult:
		return "STREAM_REGISTER_RESULT"
	case MsgStreamUnregister:
		return "STREAM_UNREGISTER"
	case MsgStreamData:
		return "STREAM_DATA"
	case MsgStreamDataDiscardable:
		return "STREAM_DATA_DISCARDABLE"
	case MsgUserInfoLegacy:
		return "USER_INFO_LEGACY"
	default:
		return "UNKNOWN"
	}
}

// IsServerRefusal reports whether m terminates a handshake attempt.
func (m MessageType) IsServerRefusal() bool {
	switch m {
	case MsgServerFull, MsgWrongPassword, MsgWrongVersion, MsgBanned:
		return true
	default:
		return false
	}
}

// AuthStatus is a bitflag describing a user's authentication/privilege
// level, as reported by the server in UserInfo.
type AuthStatus int32

const (
	AuthNone   AuthStatus = 0
	AuthAdmin  AuthStatus = 1 << 0
	AuthRanked AuthStatus = 1 << 1
	AuthMod    AuthStatus = 1 << 2
	AuthBot    AuthStatus = 1 << 3
	AuthBanned AuthStatus = 1 << 4
)

// Has reports whether all bits of flag are set in a.
func (a AuthStatus) Has(flag AuthStatus) bool {
	return a&flag == flag
}

// String returns the single-character auth badge used in chat name tags,
// matching the Python client's get_auth_str (first matching flag wins).
func (a AuthStatus) String() string {
	switch {
	case a.Has(AuthAdmin):
		return "A"
	case a.Has(AuthMod):
		return "M"
	case a.Has(AuthRanked):
		return "R"
	case a.Has(AuthBot):
		return "B"
	case a.Has(AuthBanned):
		return "X"
	default:
		return ""
	}
}

// StreamType discriminates StreamRegister and StreamData payloads.
type StreamType int32

const (
	StreamActor StreamType = iota
	StreamCharacter
	StreamAI
	StreamChat
)

func (t StreamType) String() string {
	switch t {
	case StreamActor:
		return "actor"
	case StreamCharacter:
		return "character"
	case StreamAI:
		return "ai"
	case StreamChat:
		return "chat"
	default:
		return "unknown"
	}
}

// ActorStreamStatus is the status field of an actor STREAM_REGISTER_RESULT.
type ActorStreamStatus int32

const (
	ActorStreamMismatch ActorStreamStatus = -2
	ActorStreamInvalid  ActorStreamStatus = -1
	ActorStreamUnknown  ActorStreamStatus = 0
	ActorStreamSuccess  ActorStreamStatus = 1
)

// ActorType identifies the kind of vehicle/object an actor stream carries,
// parsed from its truck-file name.
type ActorType string

const (
	ActorTruck    ActorType = "truck"
	ActorCar      ActorType = "car"
	ActorLoad     ActorType = "load"
	ActorAirplane ActorType = "airplane"
	ActorBoat     ActorType = "boat"
	ActorTrailer  ActorType = "trailer"
	ActorTrain    ActorType = "train"
	ActorFixed    ActorType = "fixed"
)

// NetMask is a bitflag of vehicle telemetry state carried in
// VehicleStreamData.FlagMask.
type NetMask uint32

const (
	NetHorn NetMask = 1 << iota
	NetPoliceAudio
	NetParticle
	NetParkingBrake
	NetTractionControlActive
	NetAntiLockBrakesActive
	NetEngineContact
	NetEngineRun
	NetEngineModeAutomatic
	NetEngineModeSemiAuto
	NetEngineModeManual
	NetEngineModeManualStick
	NetEngineModeManualRanges
)

// LightMask is a bitflag of vehicle light state, read from the same
// VehicleStreamData.FlagMask word as NetMask; its bit positions start at
// bit 0 and overlap NetMask's.
type LightMask uint32

const (
	LightCustom1 LightMask = 1 << iota
	LightCustom2
	LightCustom3
	LightCustom4
	LightCustom5
	LightCustom6
	LightCustom7
	LightCustom8
	LightCustom9
	LightCustom10
	LightHeadlight
	LightHighBeams
	LightFogLights
	LightSideLights
	LightBrakes
	LightReverse
	LightBeacons
	LightBlinkLeft
	LightBlinkRight
	LightBlinkWarn
)

// CharacterCommand discriminates the payload of a character StreamData frame.
type CharacterCommand int32

const (
	CharacterInvalid CharacterCommand = iota
	CharacterPosition
	CharacterAttach
	CharacterDetach
)

// CharacterAnimation names a character pose/animation clip.
type CharacterAnimation string

const (
	AnimIdleSway CharacterAnimation = "Idle_sway"
	AnimSpotSwim CharacterAnimation = "Spot_swim"
	AnimWalk     CharacterAnimation = "Walk"
	AnimRun      CharacterAnimation = "Run"
	AnimSwimLoop CharacterAnimation = "Swim_loop"
	AnimTurn     CharacterAnimation = "Turn"
	AnimDriving  CharacterAnimation = "Driving"
	AnimSideStep CharacterAnimation = "Side_step"
)

// Color is a named chat-line color, as a "#RRGGBB" hex string.
type Color string

const (
	ColorBlack   Color = "#000000"
	ColorGrey    Color = "#999999"
	ColorRed     Color = "#FF0000"
	ColorYellow  Color = "#FFFF00"
	ColorWhite   Color = "#FFFFFF"
	ColorCyan    Color = "#00FFFF"
	ColorBlue    Color = "#0000FF"
	ColorGreen   Color = "#00FF00"
	ColorMagenta Color = "#FF00FF"
	ColorCommand Color = "#941E8D"
	ColorWhisper Color = "#967417"
	ColorScript  Color = "#32436F"
)

// PlayerColors is the fixed 25-entry palette the server assigns to players
// by UserInfo.ColorNum, in server-assignment order. DO NOT REORDER.
var PlayerColors = []Color{
	"#00CC00", // Green
	"#0066B3", // Blue
	"#FF8000", // Orange
	"#FFCC00", // Yellow
	"#CCFF00", // Lime
	"#FF0000", // Red
	"#808080", // Gray
	"#008F00", // Dark green
	"#B35A00", // Windsor tan
	"#B38F00", // Light gold
	"#8FB300", // Apple green
	"#B30000", // UE red
	"#BEBEBE", // Dark gray
	"#80FF80", // Light green
	"#80C9FF", // Light sky blue
	"#FFC080", // Mac and cheese
	"#FFE680", // Yellow crayola
	"#AA80FF", // Lavender floral
	"#EE00CC", // Electric pink
	"#FF8080", // Congo pink
	"#666600", // Bronze yellow
	"#FFBFFF", // Brilliant lavender
	"#00FFCC", // Sea green
	"#CC6699", // Wild orchid
	"#999900", // Dark yellow
}

// ColorForPlayer resolves a UserInfo.ColorNum to its hex color, falling
// back to white for an out-of-range index.
func ColorForPlayer(colorNum int32) Color {
	if colorNum >= 0 && int(colorNum) < len(PlayerColors) {
		return PlayerColors[colorNum]
	}
	return ColorWhite
}

// Event names fired on the bot's event bus (internal/eventbus). Declared
// as an explicit table rather than derived by reflection — see DESIGN.md.
const (
	EventFrameStep             = "frame_step"
	EventNetQuality            = "net_quality"
	EventChat                  = "chat"
	EventPrivateChat           = "private_chat"
	EventUserJoin              = "user_join"
	EventUserInfo              = "user_info"
	EventUserLeave             = "user_leave"
	EventGameCmd               = "game_cmd"
	EventStreamRegister        = "stream_register"
	EventStreamRegisterResult  = "stream_register_result"
	EventStreamData            = "stream_data"
	EventStreamUnregister      = "stream_unregister"
)

// Errors returned by the wire codec and framer.
var (
	ErrTruncatedFrame      = errors.New("protocol: truncated frame")
	ErrZeroSizeNotAllowed  = errors.New("protocol: zero-size payload not allowed for this command")
	ErrFieldTooLong        = errors.New("protocol: fixed-width field value too long")
	ErrUnknownStreamType   = errors.New("protocol: unknown stream type")
	ErrUnknownCharacterCmd = errors.New("protocol: unknown character command")
)
