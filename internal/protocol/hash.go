// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// HashPassword returns the uppercase hex SHA-1 digest of password, the
// form RoRnet servers expect in UserInfo.ServerPassword. An empty password
// hashes to DA39A3EE5E6B4B0D3255BFEF95601890AFD80709, the SHA-1 of the
// empty string — servers use this to mean "no password."
func HashPassword(password string) string {
	sum := sha1.Sum([]byte(password))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
