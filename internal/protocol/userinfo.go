// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"fmt"
)

// Field widths for UserInfo, matching the RoRnet wire layout.
const (
	userInfoUsernameWidth       = 40
	userInfoUserTokenWidth      = 40
	userInfoServerPasswordWidth = 40
	userInfoLanguageWidth       = 10
	userInfoClientNameWidth     = 10
	userInfoClientVersionWidth  = 25
	userInfoClientGUIDWidth     = 40
	userInfoSessionTypeWidth    = 10
	userInfoSessionOptionsWidth = 128

	// UserInfoSize is the total encoded size of a UserInfo payload.
	UserInfoSize = 4*4 +
		userInfoUsernameWidth +
		userInfoUserTokenWidth +
		userInfoServerPasswordWidth +
		userInfoLanguageWidth +
		userInfoClientNameWidth +
		userInfoClientVersionWidth +
		userInfoClientGUIDWidth +
		userInfoSessionTypeWidth +
		userInfoSessionOptionsWidth
)

// UserInfo carries a user's identity, auth level and client metadata. It
// flows Client -> Server on join (unfilled UniqueID/AuthStatus/SlotNum/
// ColorNum) and Server -> Client on broadcast (all fields filled in).
type UserInfo struct {
	UniqueID       uint32
	AuthStatus     AuthStatus
	SlotNum        int32
	ColorNum       int32
	Username       string
	UserToken      string
	ServerPassword string
	Language       string
	ClientName     string
	ClientVersion  string
	ClientGUID     string
	SessionType    string
	SessionOptions string
}

// Color resolves the hex color assigned to this user's ColorNum.
func (u UserInfo) Color() Color {
	return ColorForPlayer(u.ColorNum)
}

// HasSlot reports whether the user occupies a server slot. A SlotNum of
// -2 means "no slot assigned" and is deliberately excluded here, per
// spec's Open Question resolution.
func (u UserInfo) HasSlot() bool {
	return u.SlotNum >= 0
}

// DecodeUserInfo parses a UserInfo payload.
func DecodeUserInfo(data []byte) (UserInfo, error) {
	if len(data) != UserInfoSize {
		return UserInfo{}, fmt.Errorf("%w: user info expected %d bytes, got %d",
			ErrTruncatedFrame, UserInfoSize, len(data))
	}

	off := 0
	uniqueID := binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	authStatus := AuthStatus(int32(binary.LittleEndian.Uint32(data[off : off+4])))
	off += 4
	slotNum := int32(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4
	colorNum := int32(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4

	readField := func(width int) string {
		s := getFixedString(data[off : off+width])
		off += width
		return s
	}

	username := readField(userInfoUsernameWidth)
	userToken := readField(userInfoUserTokenWidth)
	serverPassword := readField(userInfoServerPasswordWidth)
	language := readField(userInfoLanguageWidth)
	clientName := readField(userInfoClientNameWidth)
	clientVersion := readField(userInfoClientVersionWidth)
	clientGUID := readField(userInfoClientGUIDWidth)
	sessionType := readField(userInfoSessionTypeWidth)
	sessionOptions := readField(userInfoSessionOptionsWidth)

	return UserInfo{
		UniqueID:       uniqueID,
		AuthStatus:     authStatus,
		SlotNum:        slotNum,
		ColorNum:       colorNum,
		Username:       username,
		UserToken:      userToken,
		ServerPassword: serverPassword,
		Language:       language,
		ClientName:     clientName,
		ClientVersion:  clientVersion,
		ClientGUID:     clientGUID,
		SessionType:    sessionType,
		SessionOptions: sessionOptions,
	}, nil
}

// Encode packs u into its wire representation.
func (u UserInfo) Encode() ([]byte, error) {
	buf := make([]byte, UserInfoSize)
	off := 0

	binary.LittleEndian.PutUint32(buf[off:off+4], u.UniqueID)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(u.AuthStatus)))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(u.SlotNum))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(u.ColorNum))
	off += 4

	writeField := func(s string, width int, name string) error {
		if err := putFixedString(buf[off:off+width], s, width); err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		off += width
		return nil
	}

	if err := writeField(u.Username, userInfoUsernameWidth, "username"); err != nil {
		return nil, err
	}
	if err := writeField(u.UserToken, userInfoUserTokenWidth, "user_token"); err != nil {
		return nil, err
	}
	if err := writeField(u.ServerPassword, userInfoServerPasswordWidth, "server_password"); err != nil {
		return nil, err
	}
	if err := writeField(u.Language, userInfoLanguageWidth, "language"); err != nil {
		return nil, err
	}
	if err := writeField(u.ClientName, userInfoClientNameWidth, "client_name"); err != nil {
		return nil, err
	}
	if err := writeField(u.ClientVersion, userInfoClientVersionWidth, "client_version"); err != nil {
		return nil, err
	}
	if err := writeField(u.ClientGUID, userInfoClientGUIDWidth, "client_guid"); err != nil {
		return nil, err
	}
	if err := writeField(u.SessionType, userInfoSessionTypeWidth, "session_type"); err != nil {
		return nil, err
	}
	if err := writeField(u.SessionOptions, userInfoSessionOptionsWidth, "session_options"); err != nil {
		return nil, err
	}

	return buf, nil
}
