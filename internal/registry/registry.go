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

// Registry is the bot's view of every currently-connected user and
// their registered streams, plus lifetime totals folded in as users
// leave. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	users map[uint32]*User

	statsMu sync.Mutex
	global  *GlobalStats

	// truckNames is the injected filename->display-name override table
	// (protocol.LoadTruckNameMap's result); nil disables overrides and
	// falls back to the regex-parsed name for every actor stream.
	truckNames map[string]string
}

// New creates an empty Registry, with GlobalStats.ConnectedAt set to
// now. truckNames is an optional override table (may be nil) used to
// resolve actor STREAM_REGISTER names to a human-readable display name.
func New(now time.Time, truckNames map[string]string) *Registry {
	return &Registry{
		users:      make(map[uint32]*User),
		global:     NewGlobalStats(now),
		truckNames: truckNames,
	}
}

// UserCount returns the number of tracked users, including the bot's
// own entry once it has registered itself (callers that track a
// separate "self" uid subtract it themselves).
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// UserIDs returns the uids of every tracked user.
func (r *Registry) UserIDs() []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint32, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids
}

// UIDByUsername returns the uid of the first tracked user whose
// username matches exactly, and false if none does.
func (r *Registry) UIDByUsername(username string) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for uid, u := range r.users {
		if u.Username() == username {
			return uid, true
		}
	}
	return 0, false
}

// GetUser returns the tracked User for uid.
func (r *Registry) GetUser(uid uint32) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[uid]
	if !ok {
		return nil, fmt.Errorf("%w: uid %d", ErrUserNotFound, uid)
	}
	return u, nil
}

// AddUser registers or refreshes a user from a USER_INFO broadcast.
// A brand-new uid is folded into GlobalStats's membership as it joins.
func (r *Registry) AddUser(info protocol.UserInfo, now time.Time) *User {
	r.mu.Lock()
	u, exists := r.users[info.UniqueID]
	if !exists {
		u = NewUser(info, now)
		r.users[info.UniqueID] = u
	} else {
		u.SetInfo(info)
	}
	r.mu.Unlock()

	if !exists {
		r.statsMu.Lock()
		r.global.AddUsername(info.Username)
		r.statsMu.Unlock()
	}
	return u
}

// RemoveUser removes uid and folds its accumulated distance stats and
// connection duration into GlobalStats.
func (r *Registry) RemoveUser(uid uint32, now time.Time) error {
	r.mu.Lock()
	u, ok := r.users[uid]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: uid %d", ErrUserNotFound, uid)
	}
	delete(r.users, uid)
	r.mu.Unlock()

	stats := u.Stats()

	r.statsMu.Lock()
	r.global.MetersDriven += stats.MetersDriven
	r.global.MetersSailed += stats.MetersSailed
	r.global.MetersWalked += stats.MetersWalked
	r.global.MetersFlown += stats.MetersFlown
	r.global.ConnectionTimes = append(r.global.ConnectionTimes, now.Sub(stats.OnlineSince))
	r.statsMu.Unlock()

	return nil
}

// GlobalStats returns a snapshot of the lifetime totals.
func (r *Registry) GlobalStats() GlobalStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	usernames := make(map[string]struct{}, len(r.global.Usernames))
	for k := range r.global.Usernames {
		usernames[k] = struct{}{}
	}
	times := append([]time.Duration(nil), r.global.ConnectionTimes...)
	return GlobalStats{
		DistanceStats:   r.global.DistanceStats,
		ConnectedAt:     r.global.ConnectedAt,
		Usernames:       usernames,
		UserCount:       r.global.UserCount,
		ConnectionTimes: times,
	}
}

// AddStream registers sr under streamID for the user ownerUID (the
// caller passes the registering packet's source uid; sr's
// OriginSourceID is not consulted). Actor streams have their
// registration name resolved against the registry's injected
// truck-name override table.
func (r *Registry) AddStream(ownerUID uint32, streamID int32, sr protocol.StreamRegister) error {
	u, err := r.GetUser(ownerUID)
	if err != nil {
		return err
	}
	var displayName string
	if actor, ok := sr.(protocol.ActorStreamRegister); ok {
		displayName = protocol.DisplayName(actor.Name, r.truckNames)
	}
	u.AddStream(streamID, sr, displayName)
	return nil
}

// RemoveStream unregisters streamID from ownerUID's user.
func (r *Registry) RemoveStream(ownerUID uint32, streamID int32) error {
	u, err := r.GetUser(ownerUID)
	if err != nil {
		return err
	}
	return u.RemoveStream(streamID)
}
