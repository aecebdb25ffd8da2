// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/danmackey/rorserverbot/internal/protocol"
)

func truckActor() *protocol.ActorType {
	t := protocol.ActorTruck
	return &t
}

func TestAddUserAndRemoveUserUpdatesGlobalStats(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := New(now, nil)

	info := protocol.UserInfo{UniqueID: 1, Username: "alice"}
	r.AddUser(info, now)

	if r.UserCount() != 1 {
		t.Fatalf("UserCount = %d, want 1", r.UserCount())
	}
	if uid, ok := r.UIDByUsername("alice"); !ok || uid != 1 {
		t.Fatalf("UIDByUsername(alice) = %d, %v", uid, ok)
	}

	later := now.Add(5 * time.Minute)
	if err := r.RemoveUser(1, later); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if r.UserCount() != 0 {
		t.Fatalf("UserCount after remove = %d, want 0", r.UserCount())
	}

	stats := r.GlobalStats()
	if stats.UserCount != 1 {
		t.Fatalf("GlobalStats.UserCount = %d, want 1", stats.UserCount)
	}
	if len(stats.ConnectionTimes) != 1 || stats.ConnectionTimes[0] != 5*time.Minute {
		t.Fatalf("ConnectionTimes = %v, want [5m]", stats.ConnectionTimes)
	}
}

func TestRemoveUserUnknownUIDErrors(t *testing.T) {
	r := New(time.Now(), nil)
	if err := r.RemoveUser(42, time.Now()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAddUserRefreshesExistingInfoWithoutDoubleCountingGlobalStats(t *testing.T) {
	now := time.Now()
	r := New(now, nil)

	r.AddUser(protocol.UserInfo{UniqueID: 1, Username: "bob", SlotNum: -2}, now)
	r.AddUser(protocol.UserInfo{UniqueID: 1, Username: "bob", SlotNum: 3}, now)

	if r.UserCount() != 1 {
		t.Fatalf("UserCount = %d, want 1", r.UserCount())
	}
	u, err := r.GetUser(1)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Info().SlotNum != 3 {
		t.Fatalf("expected refreshed SlotNum 3, got %d", u.Info().SlotNum)
	}

	stats := r.GlobalStats()
	if stats.UserCount != 1 {
		t.Fatalf("GlobalStats.UserCount = %d, want 1 (no double count on refresh)", stats.UserCount)
	}
}

// TestAddStreamResolvesInjectedTruckName confirms Registry.AddStream
// consults the truck-name override table supplied to New when an actor
// stream registers, falling back to the regex-parsed name for entries
// the table doesn't cover.
func TestAddStreamResolvesInjectedTruckName(t *testing.T) {
	now := time.Now()
	names := map[string]string{"rig_weird-name.truck": "Big Rig"}
	r := New(now, names)
	r.AddUser(protocol.UserInfo{UniqueID: 1, Username: "dana"}, now)

	overridden := protocol.ActorStreamRegister{ActorType: truckActor()}
	overridden.Name = "rig_weird-name.truck"
	if err := r.AddStream(1, 20, overridden); err != nil {
		t.Fatalf("AddStream: %v", err)
	}

	unmapped := protocol.ActorStreamRegister{ActorType: truckActor()}
	unmapped.Name = "my_truck.truck"
	if err := r.AddStream(1, 21, unmapped); err != nil {
		t.Fatalf("AddStream: %v", err)
	}

	u, _ := r.GetUser(1)
	if name, err := u.StreamDisplayName(20); err != nil || name != "Big Rig" {
		t.Fatalf("StreamDisplayName(20) = %q, %v, want \"Big Rig\", nil", name, err)
	}
	if name, err := u.StreamDisplayName(21); err != nil || name != "my_truck" {
		t.Fatalf("StreamDisplayName(21) = %q, %v, want \"my_truck\", nil", name, err)
	}
}

func TestStreamLifecycle(t *testing.T) {
	now := time.Now()
	r := New(now, nil)
	r.AddUser(protocol.UserInfo{UniqueID: 1, Username: "carol"}, now)

	chat := protocol.ChatStreamRegister{}
	if err := r.AddStream(1, 10, chat); err != nil {
		t.Fatalf("AddStream chat: %v", err)
	}

	u, _ := r.GetUser(1)
	if u.ChatStreamID() != 10 {
		t.Fatalf("ChatStreamID = %d, want 10", u.ChatStreamID())
	}

	char := protocol.CharacterStreamRegister{}
	if err := r.AddStream(1, 11, char); err != nil {
		t.Fatalf("AddStream character: %v", err)
	}
	if u.CharacterStreamID() != 11 {
		t.Fatalf("CharacterStreamID = %d, want 11", u.CharacterStreamID())
	}

	if err := r.RemoveStream(1, 11); err != nil {
		t.Fatalf("RemoveStream: %v", err)
	}
	if u.CharacterStreamID() != -1 {
		t.Fatalf("CharacterStreamID after remove = %d, want -1", u.CharacterStreamID())
	}
	if _, err := u.GetStream(11); !errors.Is(err, ErrStreamNotFound) {
		t.Fatalf("expected ErrStreamNotFound, got %v", err)
	}
}

func TestSetPositionDeadBandDropsSmallMoves(t *testing.T) {
	now := time.Now()
	r := New(now, nil)
	r.AddUser(protocol.UserInfo{UniqueID: 1, Username: "dave"}, now)
	u, _ := r.GetUser(1)

	char := protocol.CharacterStreamRegister{}
	u.AddStream(11, char, "")

	if err := u.SetPosition(11, protocol.Vector3{X: 0.5}); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if got := u.Stats().MetersWalked; got != 0 {
		t.Fatalf("MetersWalked = %f, want 0 (sub-1m move should be dropped)", got)
	}

	if err := u.SetPosition(11, protocol.Vector3{X: 10}); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if got := u.Stats().MetersWalked; got < 9 || got > 10 {
		t.Fatalf("MetersWalked = %f, want ~9.5", got)
	}
}

func TestSetPositionAccumulatesByActorType(t *testing.T) {
	now := time.Now()
	r := New(now, nil)
	r.AddUser(protocol.UserInfo{UniqueID: 1, Username: "erin"}, now)
	u, _ := r.GetUser(1)

	actor := protocol.ActorStreamRegister{ActorType: truckActor()}
	u.AddStream(20, actor, "Test Truck")

	if err := u.SetPosition(20, protocol.Vector3{X: 100}); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if got := u.Stats().MetersDriven; got <= 0 {
		t.Fatalf("MetersDriven = %f, want > 0", got)
	}
	if got := u.Stats().MetersWalked; got != 0 {
		t.Fatalf("MetersWalked = %f, want 0 for a truck stream", got)
	}
}

func TestSetPositionIgnoresChatStream(t *testing.T) {
	now := time.Now()
	r := New(now, nil)
	r.AddUser(protocol.UserInfo{UniqueID: 1, Username: "finn"}, now)
	u, _ := r.GetUser(1)

	u.AddStream(10, protocol.ChatStreamRegister{}, "")
	if err := u.SetPosition(10, protocol.Vector3{X: 100}); err != nil {
		t.Fatalf("SetPosition on chat stream should be a no-op, got err: %v", err)
	}
	if u.Stats() != (UserStats{OnlineSince: u.Stats().OnlineSince}) {
		t.Fatalf("expected no stats change for a chat stream position update")
	}
}
