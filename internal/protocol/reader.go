// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"fmt"
)

// DecodePrivateChat splits a PRIVATE_CHAT payload into its target uid and
// message. Wire layout: [target_uid uint32 LE][message UTF-8].
func DecodePrivateChat(data []byte) (targetUID uint32, message string, err error) {
	if len(data) < 4 {
		return 0, "", fmt.Errorf("%w: private chat payload truncated", ErrTruncatedFrame)
	}
	targetUID = binary.LittleEndian.Uint32(data[0:4])
	message = getFixedString(data[4:])
	return targetUID, message, nil
}

// DecodeChat decodes a CHAT or GAME_CMD payload as a plain UTF-8 string,
// stripping a trailing NUL if the server padded it.
func DecodeChat(data []byte) string {
	return getFixedString(data)
}

// DecodeUserLeave decodes a USER_LEAVE payload. Per spec's Open Question
// resolution, it is treated as a UTF-8 string (an optional reason),
// NUL-stripped; an empty payload decodes to an empty string.
func DecodeUserLeave(data []byte) string {
	return getFixedString(data)
}
