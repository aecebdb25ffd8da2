// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package registry

import "errors"

var (
	// ErrUserNotFound is returned when a uid has no corresponding user.
	ErrUserNotFound = errors.New("registry: user not found")
	// ErrStreamNotFound is returned when a stream id has no corresponding
	// stream registered to the user.
	ErrStreamNotFound = errors.New("registry: stream not found")
)
