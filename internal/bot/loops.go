// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package bot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/danmackey/rorserverbot/internal/protocol"
)

// readerLoop decodes and dispatches one packet at a time, in the exact
// order they arrive on the TCP stream, until the connection breaks or
// Close is called. A zero-size payload on a command other than
// STREAM_UNREGISTER is logged and dropped rather than treated as
// fatal; every other read/decode failure ends the loop.
func (c *Connection) readerLoop(report func(error)) {
	defer c.wg.Done()

	var netQualitySeen atomic.Bool
	var lastNetQuality atomic.Uint32

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		pkt, err := protocol.ReadPacket(c.conn)
		if err != nil {
			if errors.Is(err, protocol.ErrZeroSizeNotAllowed) {
				c.logger.Warn("dropping zero-size frame", "command", pkt.Command)
				continue
			}
			select {
			case <-c.stopCh:
				return
			default:
				report(fmt.Errorf("reader loop: %w: %w", ErrDisconnected, err))
				return
			}
		}

		if err := c.dispatch(pkt, &netQualitySeen, &lastNetQuality); err != nil {
			report(err)
			return
		}
	}
}

// dispatch routes one decoded packet to registry mutations and event
// emission, per spec §4.5's inbound dispatch table.
func (c *Connection) dispatch(pkt protocol.Packet, netQualitySeen *atomic.Bool, lastNetQuality *atomic.Uint32) error {
	switch pkt.Command {
	case protocol.MsgHello, protocol.MsgWelcome,
		protocol.MsgServerFull, protocol.MsgWrongPassword, protocol.MsgWrongVersion, protocol.MsgBanned:
		// Handshake-only messages; seeing one here means the server
		// re-sent a handshake frame mid-session, which is a protocol
		// violation.
		return fmt.Errorf("%w: unexpected %s after handshake", ErrProtocolViolation, pkt.Command)

	case protocol.MsgNetQuality:
		if len(pkt.Data) < 4 {
			return fmt.Errorf("%w: net_quality payload truncated", ErrProtocolViolation)
		}
		quality := binary.LittleEndian.Uint32(pkt.Data[0:4])
		if !netQualitySeen.Load() || lastNetQuality.Load() != quality {
			netQualitySeen.Store(true)
			lastNetQuality.Store(quality)
			c.bus.Emit(protocol.EventNetQuality, quality)
		}

	case protocol.MsgUserJoin:
		info, err := protocol.DecodeUserInfo(pkt.Data)
		if err != nil {
			return fmt.Errorf("decoding user_join: %w", err)
		}
		if info.UniqueID == c.UniqueID() {
			return nil
		}
		c.reg.AddUser(info, time.Now())
		c.bus.Emit(protocol.EventUserJoin, info.UniqueID, info)

	case protocol.MsgUserInfo:
		info, err := protocol.DecodeUserInfo(pkt.Data)
		if err != nil {
			return fmt.Errorf("decoding user_info: %w", err)
		}
		c.reg.AddUser(info, time.Now())
		c.bus.Emit(protocol.EventUserInfo, info.UniqueID, info)

	case protocol.MsgUserLeave:
		if pkt.Source == c.UniqueID() {
			return ErrDisconnected
		}
		u, err := c.reg.GetUser(pkt.Source)
		if err != nil {
			return nil // unknown peer leaving; nothing to fold in
		}
		if err := c.reg.RemoveUser(pkt.Source, time.Now()); err != nil {
			return nil
		}
		c.bus.Emit(protocol.EventUserLeave, pkt.Source, u)

	case protocol.MsgChat:
		message := protocol.DecodeChat(pkt.Data)
		if message == "" || pkt.Source == c.UniqueID() {
			return nil
		}
		c.bus.Emit(protocol.EventChat, pkt.Source, message)

	case protocol.MsgPrivateChat:
		_, message, err := protocol.DecodePrivateChat(pkt.Data)
		if err != nil {
			return fmt.Errorf("decoding private_chat: %w", err)
		}
		if message == "" || pkt.Source == c.UniqueID() {
			return nil
		}
		c.bus.Emit(protocol.EventPrivateChat, pkt.Source, message)

	case protocol.MsgGameCmd:
		command := protocol.DecodeChat(pkt.Data)
		if pkt.Source == c.UniqueID() {
			return nil
		}
		c.bus.Emit(protocol.EventGameCmd, pkt.Source, command)

	case protocol.MsgStreamRegister:
		sr, err := protocol.DecodeStreamRegister(pkt.Data)
		if err != nil {
			return fmt.Errorf("decoding stream_register: %w", err)
		}
		if err := c.reg.AddStream(pkt.Source, int32(pkt.StreamID), sr); err != nil {
			c.logger.Warn("stream_register for unknown user", "source", pkt.Source, "error", err)
			return nil
		}
		if actor, ok := sr.(protocol.ActorStreamRegister); ok {
			if err := c.ReplyToActorStreamRegister(actor, protocol.ActorStreamSuccess); err != nil {
				return fmt.Errorf("replying to actor stream register: %w", err)
			}
			if u, err := c.reg.GetUser(pkt.Source); err == nil {
				if name, err := u.StreamDisplayName(int32(pkt.StreamID)); err == nil {
					c.logger.Info("actor stream registered", "source", pkt.Source, "stream", pkt.StreamID, "name", name)
				}
			}
		}
		c.bus.Emit(protocol.EventStreamRegister, pkt.Source, sr)

	case protocol.MsgStreamRegisterResult:
		sr, err := protocol.DecodeStreamRegister(pkt.Data)
		if err != nil {
			return fmt.Errorf("decoding stream_register_result: %w", err)
		}
		c.bus.Emit(protocol.EventStreamRegisterResult, pkt.Source, sr)

	case protocol.MsgStreamUnregister:
		if len(pkt.Data) != 0 {
			return fmt.Errorf("%w: non-empty stream_unregister payload", ErrProtocolViolation)
		}
		_ = c.reg.RemoveStream(pkt.Source, int32(pkt.StreamID))
		c.bus.Emit(protocol.EventStreamUnregister, pkt.Source, pkt.StreamID)

	case protocol.MsgStreamData, protocol.MsgStreamDataDiscardable:
		return c.dispatchStreamData(pkt)

	default:
		c.logger.Warn("dropping unknown message", "command", pkt.Command)
	}
	return nil
}

// dispatchStreamData resolves the owning user and stream for a
// STREAM_DATA frame and decodes/folds it per spec §4.5. Per spec, an
// unknown user or stream is silently dropped rather than treated as an
// error — the bot may have joined mid-session.
func (c *Connection) dispatchStreamData(pkt protocol.Packet) error {
	if pkt.Source == c.UniqueID() {
		return nil
	}

	u, err := c.reg.GetUser(pkt.Source)
	if err != nil {
		return nil
	}
	sr, err := u.GetStream(int32(pkt.StreamID))
	if err != nil {
		return nil
	}

	var data protocol.StreamData
	if sr.StreamType() != protocol.StreamChat {
		data, err = protocol.DecodeStreamData(sr.StreamType(), pkt.Data)
		if err != nil {
			return fmt.Errorf("decoding stream_data: %w", err)
		}
	}

	switch v := data.(type) {
	case protocol.CharacterPositionStreamData:
		_ = u.SetPosition(int32(pkt.StreamID), v.Position)
		_ = u.SetRotation(int32(pkt.StreamID), v.Rotation)
		u.SetCurrentStream(pkt.Source, int32(pkt.StreamID))
	case protocol.CharacterAttachStreamData:
		u.SetCurrentStream(uint32(v.SourceID), v.StreamID)
	case protocol.VehicleStreamData:
		_ = u.SetPosition(int32(pkt.StreamID), v.Position)
		u.SetCurrentStream(pkt.Source, int32(pkt.StreamID))
	}

	c.bus.Emit(protocol.EventStreamData, pkt.Source, sr, data)
	return nil
}

// heartbeatLoop wakes every 100ms and, once the accumulated delta
// reaches the heartbeat interval, publishes the bot's own character
// position with animation_time set to the accumulated delta.
func (c *Connection) heartbeatLoop(report func(error)) {
	defer c.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var accumulated time.Duration
	last := time.Now()

	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			accumulated += now.Sub(last)
			last = now
			if accumulated < defaultHeartbeatInterval {
				continue
			}
			if err := c.sendHeartbeat(accumulated); err != nil {
				report(fmt.Errorf("heartbeat loop: %w", err))
				return
			}
			accumulated = 0
		}
	}
}

func (c *Connection) sendHeartbeat(delta time.Duration) error {
	sid := c.characterStreamID.Load()
	if sid < 0 {
		return nil
	}
	pos, rot := c.Position()
	return c.SendStreamData(sid, protocol.CharacterPositionStreamData{
		Position:      pos,
		Rotation:      rot,
		AnimationTime: float32(delta.Seconds()),
		AnimationMode: protocol.AnimIdleSway,
	})
}

// frameClockLoop wakes every 10ms and emits frame_step once the
// accumulated delta reaches 1/stableFPS seconds.
func (c *Connection) frameClockLoop(report func(error)) {
	defer c.wg.Done()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	var accumulated time.Duration
	last := time.Now()

	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			accumulated += now.Sub(last)
			last = now
			if accumulated < defaultFrameClockInterval {
				continue
			}
			c.bus.Emit(protocol.EventFrameStep, float32(accumulated.Seconds()))
			accumulated = 0
		}
	}
}

// statsLoop periodically logs combined host/registry stats, mirroring
// the teacher's stats_reporter cadence but gated behind
// Diagnostics.Enabled rather than always-on.
func (c *Connection) statsLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.Diagnostics.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			logStats(c.logger, c.connectTime, c.monitor.Stats(), c.reg)
		}
	}
}
