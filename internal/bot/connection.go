// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package bot implements the RoRnet client orchestrator: the connection
// state machine, its three sibling loops (reader, heartbeat, frame
// clock), and the send-side public API game-bots drive.
package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmackey/rorserverbot/internal/config"
	"github.com/danmackey/rorserverbot/internal/eventbus"
	"github.com/danmackey/rorserverbot/internal/logging"
	"github.com/danmackey/rorserverbot/internal/protocol"
	"github.com/danmackey/rorserverbot/internal/registry"
)

// Version is the bot's version, filled via ldflags on build
// (-X ...Version=x.y.z), mirroring the teacher's control_channel.go.
var Version = "dev"

// firstClientStreamID is the lowest stream id a client is allowed to
// allocate; ids below it are reserved by the server.
const firstClientStreamID = 10

// defaultHeartbeatInterval is the default delta threshold for the
// heartbeat loop's idle-sway character position update.
const defaultHeartbeatInterval = 1 * time.Second

// stableFPS is STABLE_FPS from spec §4.5: the frame-clock's tick rate.
const stableFPS = 20

// defaultFrameClockInterval is 1/stableFPS.
const defaultFrameClockInterval = time.Second / stableFPS

// Connection is a single RoRnet client session: one TCP socket, one
// user/stream registry, one event bus. The registry and bus are
// supplied by the caller (not owned) so they survive across the
// reconnect driver's retries.
type Connection struct {
	cfg    *config.BotConfig
	logger *slog.Logger
	bus    *eventbus.Bus
	reg    *registry.Registry

	monitor *SystemMonitor

	conn   net.Conn
	connMu sync.Mutex
	pw     *packetWriter

	ctx    context.Context
	cancel context.CancelFunc

	state atomic.Value // State

	uniqueID   atomic.Uint32
	serverInfo atomic.Value // protocol.ServerInfo
	userInfo   atomic.Value // protocol.UserInfo

	nextSID atomic.Int32

	chatStreamID      atomic.Int32
	characterStreamID atomic.Int32

	posMu    sync.RWMutex
	position protocol.Vector3
	rotation float32

	connectTime time.Time

	sessionID     string
	sessionCloser io.Closer

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Connection. Call Connect to dial and run the handshake,
// then Run to start its loops.
func New(cfg *config.BotConfig, logger *slog.Logger, bus *eventbus.Bus, reg *registry.Registry) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		cfg:     cfg,
		logger:  logger.With("component", "connection"),
		bus:     bus,
		reg:     reg,
		monitor: NewSystemMonitor(logger),
		ctx:     ctx,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}
	c.state.Store(StateDisconnected)
	c.serverInfo.Store(protocol.ServerInfo{})
	c.userInfo.Store(protocol.UserInfo{ColorNum: -1})
	c.chatStreamID.Store(-1)
	c.characterStreamID.Store(-1)
	c.nextSID.Store(int32(firstClientStreamID))
	return c
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State {
	return c.state.Load().(State)
}

// UniqueID returns the bot's own server-assigned id. Valid only once
// State() has reached StateJoined or later.
func (c *Connection) UniqueID() uint32 {
	return c.uniqueID.Load()
}

// ServerInfo returns the ServerInfo received during the handshake.
func (c *Connection) ServerInfo() protocol.ServerInfo {
	return c.serverInfo.Load().(protocol.ServerInfo)
}

// Connect dials the configured server, applies link-level settings
// (DSCP marking, outbound packet-rate limiting) and runs the
// HELLO/USER_INFO/WELCOME handshake, registering the bot's chat and
// character streams. It returns once the connection has reached
// StateRunning, or a transport/handshake error.
func (c *Connection) Connect(ctx context.Context) error {
	c.state.Store(StateTCPOpen)
	c.openSessionLog()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Server.Addr())
	if err != nil {
		c.state.Store(StateDisconnected)
		return fmt.Errorf("%w: dialing %s: %v", ErrConnectionRefused, c.cfg.Server.Addr(), err)
	}

	dscp, err := ParseDSCP(c.cfg.Network.DSCP)
	if err != nil {
		conn.Close()
		return fmt.Errorf("bot: invalid network.dscp: %w", err)
	}
	if err := ApplyDSCP(conn, dscp); err != nil {
		c.logger.Warn("failed to apply DSCP marking", "error", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.pw = newPacketWriter(c.ctx, conn, c.cfg.Network.SendRatePacketsPerSec)
	c.connMu.Unlock()
	c.connectTime = time.Now()

	if err := c.handshake(); err != nil {
		conn.Close()
		c.state.Store(StateFailed)
		return err
	}

	c.state.Store(StateJoined)

	if err := c.registerOwnStreams(); err != nil {
		conn.Close()
		c.state.Store(StateFailed)
		return err
	}

	c.state.Store(StateRunning)
	c.logger.Info("connection running", "uid", c.UniqueID(), "username", c.cfg.User.Name)
	return nil
}

// Run starts the reader, heartbeat, frame-clock and (if enabled)
// diagnostics loops, and blocks until one of them exits. The caller
// must have reached StateRunning via a successful Connect first.
func (c *Connection) Run() error {
	if c.State() != StateRunning {
		return ErrNotRunning
	}

	errCh := make(chan error, 1)
	report := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	n := 3
	if c.cfg.Diagnostics.Enabled {
		c.monitor.Start(c.cfg.Diagnostics.Interval())
		n++
	}
	c.wg.Add(n)
	go c.readerLoop(report)
	go c.heartbeatLoop(report)
	go c.frameClockLoop(report)
	if c.cfg.Diagnostics.Enabled {
		go c.statsLoop()
	}

	err := <-errCh
	c.Close()
	c.finalizeSessionLog(err)
	return err
}

// openSessionLog starts a per-connection debug log file under
// cfg.Logging.SessionDir, if configured, fanning c.logger out to it for
// the lifetime of this connection. A failure to open the file is
// logged and otherwise ignored; the connection proceeds on the base
// logger alone.
func (c *Connection) openSessionLog() {
	c.sessionID = time.Now().UTC().Format("20060102T150405.000000000")
	sessionLogger, closer, path, err := logging.NewSessionLogger(c.logger, c.cfg.Logging.SessionDir, c.cfg.User.Name, c.sessionID)
	if err != nil {
		c.logger.Warn("failed to start session log, continuing without it", "error", err)
		return
	}
	c.logger = sessionLogger
	c.sessionCloser = closer
	if path != "" {
		c.logger.Debug("session log opened", "path", path)
	}
}

// finalizeSessionLog closes the per-connection session log file opened
// in Connect, if any, and discards it when the connection ended
// cleanly. A non-nil err (crash, protocol violation, lost connection)
// keeps the file around for postmortem inspection.
func (c *Connection) finalizeSessionLog(err error) {
	if c.sessionCloser == nil {
		return
	}
	c.sessionCloser.Close()
	if err == nil {
		logging.RemoveSessionLog(c.cfg.Logging.SessionDir, c.cfg.User.Name, c.sessionID)
	}
}

// handshake performs HELLO -> ServerInfo -> USER_INFO -> WELCOME,
// surfacing ErrServerRefusal immediately and any other unexpected
// message as ErrProtocolViolation.
func (c *Connection) handshake() error {
	c.state.Store(StateAwaitHello)
	if err := c.pw.send(func(w io.Writer) error { return protocol.WriteHello(w) }); err != nil {
		return fmt.Errorf("sending hello: %w", err)
	}

	p, err := protocol.ReadPacket(c.conn)
	if err != nil {
		return fmt.Errorf("reading hello response: %w", err)
	}
	if p.Command.IsServerRefusal() {
		return fmt.Errorf("%w: %s", ErrServerRefusal, p.Command)
	}
	if p.Command != protocol.MsgHello {
		return fmt.Errorf("%w: expected HELLO, got %s", ErrProtocolViolation, p.Command)
	}
	si, err := protocol.DecodeServerInfo(p.Data)
	if err != nil {
		return fmt.Errorf("decoding server info: %w", err)
	}
	c.serverInfo.Store(si)
	c.state.Store(StateHelloOK)

	info := protocol.UserInfo{
		AuthStatus:     protocol.AuthBot,
		SlotNum:        -2,
		ColorNum:       -1,
		Username:       c.cfg.User.Name,
		UserToken:      c.cfg.User.Token,
		ServerPassword: protocol.HashPassword(c.cfg.Server.Password),
		Language:       c.cfg.User.Language,
		ClientName:     "rorbot",
		ClientVersion:  Version,
		SessionType:    "bot",
	}
	if err := c.pw.send(func(w io.Writer) error { return protocol.WriteUserInfo(w, 0, info) }); err != nil {
		return fmt.Errorf("sending user info: %w", err)
	}
	c.state.Store(StateAwaitWelcome)

	p, err = protocol.ReadPacket(c.conn)
	if err != nil {
		return fmt.Errorf("reading welcome: %w", err)
	}
	if p.Command.IsServerRefusal() {
		return fmt.Errorf("%w: %s", ErrServerRefusal, p.Command)
	}
	if p.Command != protocol.MsgWelcome {
		return fmt.Errorf("%w: expected WELCOME, got %s", ErrProtocolViolation, p.Command)
	}
	welcome, err := protocol.DecodeUserInfo(p.Data)
	if err != nil {
		return fmt.Errorf("decoding welcome: %w", err)
	}
	c.userInfo.Store(welcome)
	c.uniqueID.Store(welcome.UniqueID)
	c.reg.AddUser(welcome, time.Now())

	return nil
}

// registerOwnStreams registers the bot's chat and character streams,
// in that order, per spec §6's opening-exchange contract.
func (c *Connection) registerOwnStreams() error {
	chatReg := protocol.ChatStreamRegister{RegData: "0"}
	chatReg.Name = "chat"
	if _, err := c.RegisterStream(chatReg); err != nil {
		return fmt.Errorf("registering chat stream: %w", err)
	}

	charReg := protocol.CharacterStreamRegister{RegData: "0"}
	charReg.Name = "default"
	if _, err := c.RegisterStream(charReg); err != nil {
		return fmt.Errorf("registering character stream: %w", err)
	}
	return nil
}

// nextStreamID allocates the next client-owned stream id.
func (c *Connection) nextStreamID() int32 {
	return c.nextSID.Add(1) - 1
}

// RegisterStream assigns origin_source_id/origin_stream_id, sends
// STREAM_REGISTER, records the stream in the registry under the bot's
// own uid, and returns the assigned stream id.
func (c *Connection) RegisterStream(sr protocol.StreamRegister) (int32, error) {
	sid := c.nextStreamID()
	sr = withOrigin(sr, int32(c.UniqueID()), sid)

	if err := c.pw.send(func(w io.Writer) error {
		return protocol.WriteStreamRegister(w, c.UniqueID(), uint32(sid), sr)
	}); err != nil {
		return 0, err
	}

	if u, err := c.reg.GetUser(c.UniqueID()); err == nil {
		u.AddStream(sid, sr, "")
	}

	switch sr.StreamType() {
	case protocol.StreamChat:
		c.chatStreamID.Store(sid)
	case protocol.StreamCharacter:
		c.characterStreamID.Store(sid)
	}

	return sid, nil
}

// UnregisterStream sends STREAM_UNREGISTER with the required
// zero-byte payload and drops the stream from the registry.
func (c *Connection) UnregisterStream(sid int32) error {
	if err := c.pw.send(func(w io.Writer) error {
		return protocol.WriteStreamUnregister(w, c.UniqueID(), uint32(sid))
	}); err != nil {
		return err
	}
	if u, err := c.reg.GetUser(c.UniqueID()); err == nil {
		_ = u.RemoveStream(sid)
	}
	if sid == c.chatStreamID.Load() {
		c.chatStreamID.Store(-1)
	}
	if sid == c.characterStreamID.Load() {
		c.characterStreamID.Store(-1)
	}
	return nil
}

// ReplyToActorStreamRegister mutates the stream's status and re-sends
// it as STREAM_REGISTER_RESULT.
func (c *Connection) ReplyToActorStreamRegister(sr protocol.ActorStreamRegister, status protocol.ActorStreamStatus) error {
	sr.Status = int32(status)
	return c.pw.send(func(w io.Writer) error {
		data, err := protocol.EncodeStreamRegister(sr)
		if err != nil {
			return fmt.Errorf("encoding actor stream register result: %w", err)
		}
		return protocol.WritePacket(w, protocol.Packet{
			Command:  protocol.MsgStreamRegisterResult,
			Source:   c.UniqueID(),
			StreamID: uint32(sr.OriginStreamID),
			Data:     data,
		})
	})
}

// SendChat sends a public chat line on the bot's chat stream.
func (c *Connection) SendChat(msg string) error {
	return c.pw.send(func(w io.Writer) error { return protocol.WriteChat(w, c.UniqueID(), msg) })
}

// SendPrivateChat sends a private chat line to targetUID.
func (c *Connection) SendPrivateChat(targetUID uint32, msg string) error {
	return c.pw.send(func(w io.Writer) error { return protocol.WritePrivateChat(w, c.UniqueID(), targetUID, msg) })
}

// SendGameCmd sends a script/game command string.
func (c *Connection) SendGameCmd(cmd string) error {
	return c.pw.send(func(w io.Writer) error { return protocol.WriteGameCmd(w, c.UniqueID(), cmd) })
}

// SendStreamData sends sd on sid unmodified.
func (c *Connection) SendStreamData(sid int32, sd protocol.StreamData) error {
	return c.pw.send(func(w io.Writer) error { return protocol.WriteStreamData(w, c.UniqueID(), uint32(sid), sd) })
}

// SendActorStreamData sends a VehicleStreamData snapshot on sid. When
// recalcTime is true, Time is overwritten with the milliseconds elapsed
// since Connect.
func (c *Connection) SendActorStreamData(sid int32, data protocol.VehicleStreamData, recalcTime bool) error {
	if recalcTime {
		data.Time = uint32(time.Since(c.connectTime).Milliseconds())
	}
	return c.SendStreamData(sid, data)
}

// MoveBot updates the bot's character position and immediately
// publishes it with an Idle_sway animation.
func (c *Connection) MoveBot(pos protocol.Vector3) error {
	c.posMu.Lock()
	c.position = pos
	rotation := c.rotation
	c.posMu.Unlock()

	if err := c.sendCharacterPosition(pos, rotation, 0); err != nil {
		return err
	}
	if u, err := c.reg.GetUser(c.UniqueID()); err == nil {
		_ = u.SetPosition(c.characterStreamID.Load(), pos)
	}
	return nil
}

// RotateBot updates the bot's character facing angle (radians) and
// immediately publishes it with an Idle_sway animation.
func (c *Connection) RotateBot(theta float32) error {
	c.posMu.Lock()
	c.rotation = theta
	pos := c.position
	c.posMu.Unlock()

	if err := c.sendCharacterPosition(pos, theta, 0); err != nil {
		return err
	}
	if u, err := c.reg.GetUser(c.UniqueID()); err == nil {
		_ = u.SetRotation(c.characterStreamID.Load(), theta)
	}
	return nil
}

// Position returns the bot's last known character position/rotation.
func (c *Connection) Position() (protocol.Vector3, float32) {
	c.posMu.RLock()
	defer c.posMu.RUnlock()
	return c.position, c.rotation
}

func (c *Connection) sendCharacterPosition(pos protocol.Vector3, rotation float32, animTime float32) error {
	sid := c.characterStreamID.Load()
	return c.SendStreamData(sid, protocol.CharacterPositionStreamData{
		Position:      pos,
		Rotation:      rotation,
		AnimationTime: animTime,
		AnimationMode: protocol.AnimIdleSway,
	})
}

// Close sends USER_LEAVE best-effort, stops the three loops, and
// closes the socket. Safe to call more than once.
func (c *Connection) Close() {
	c.stopOnce.Do(func() {
		c.state.Store(StateDisconnecting)
		if c.pw != nil {
			_ = c.pw.send(func(w io.Writer) error {
				return protocol.WritePacket(w, protocol.Packet{
					Command: protocol.MsgUserLeave,
					Source:  c.UniqueID(),
				})
			})
		}
		close(c.stopCh)
		c.cancel()
		if c.cfg.Diagnostics.Enabled {
			c.monitor.Stop()
		}
	})

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	c.state.Store(StateDisconnected)
}

// withOrigin returns a copy of sr with its header's origin fields set,
// and, for actor streams registered by the bot itself, timestamp set
// to -1 per spec §4.5.
func withOrigin(sr protocol.StreamRegister, sourceID, streamID int32) protocol.StreamRegister {
	switch v := sr.(type) {
	case protocol.ChatStreamRegister:
		v.OriginSourceID = sourceID
		v.OriginStreamID = streamID
		return v
	case protocol.CharacterStreamRegister:
		v.OriginSourceID = sourceID
		v.OriginStreamID = streamID
		return v
	case protocol.ActorStreamRegister:
		v.OriginSourceID = sourceID
		v.OriginStreamID = streamID
		v.Timestamp = -1
		return v
	default:
		return sr
	}
}
