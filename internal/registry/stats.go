// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package registry tracks the set of connected users and the streams
// (chat/character/actor) registered to each, mirroring the server's own
// view of the session. It is the bot's only mutable shared state besides
// the connection itself.
package registry

import "time"

// DistanceStats accumulates the meters a user has covered by mode of
// travel, derived from successive position updates on their streams.
type DistanceStats struct {
	MetersDriven float64
	MetersSailed float64
	MetersWalked float64
	MetersFlown  float64
}

// UserStats is a single user's distance totals plus when they joined.
type UserStats struct {
	DistanceStats
	OnlineSince time.Time
}

// GlobalStats accumulates distance totals across every user that has
// ever disconnected, plus the current session's membership.
type GlobalStats struct {
	DistanceStats

	ConnectedAt     time.Time
	Usernames       map[string]struct{}
	UserCount       int
	ConnectionTimes []time.Duration
}

// NewGlobalStats creates a GlobalStats with ConnectedAt set to now.
func NewGlobalStats(now time.Time) *GlobalStats {
	return &GlobalStats{
		ConnectedAt: now,
		Usernames:   make(map[string]struct{}),
	}
}

// AddUsername records that username has joined at least once this
// session.
func (g *GlobalStats) AddUsername(username string) {
	g.Usernames[username] = struct{}{}
	g.UserCount++
}
