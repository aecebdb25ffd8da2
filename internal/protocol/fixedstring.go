// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"bytes"
	"fmt"
)

// putFixedString writes s into a width-byte NUL-padded field at dst[:width].
// Returns ErrFieldTooLong if s does not fit.
func putFixedString(dst []byte, s string, width int) error {
	if len(s) > width {
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrFieldTooLong, s, width)
	}
	for i := range dst[:width] {
		dst[i] = 0
	}
	copy(dst[:width], s)
	return nil
}

// getFixedString reads a NUL-padded field and strips trailing NUL bytes.
func getFixedString(src []byte) string {
	return string(bytes.TrimRight(src, "\x00"))
}
