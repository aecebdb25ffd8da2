// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package bot

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/danmackey/rorserverbot/internal/eventbus"
	"github.com/danmackey/rorserverbot/internal/protocol"
)

// commandPrefix marks a chat line as an operator command. "!"-prefixed
// lines are a distinct, server-interpreted surface (kick/ban/say) sent
// verbatim as CHAT payloads; this file never parses those itself.
const commandPrefix = ">"

// commandHandler implements one operator verb. uid is the sender, verb
// is the table key that dispatched here (several verbs can share one
// handler, e.g. the status commands), and args is the remainder of
// the line split on whitespace. A non-nil error becomes a usage reply
// sent back to the sender.
type commandHandler func(cmds *Commands, uid uint32, verb string, args []string) error

// commandTable is the method-dispatched command catalogue spec §9
// asks for in place of reflection. Privileged verbs require MOD or
// ADMIN; record/playback/recordings are not implemented, per
// SPEC_FULL.md's stream-recording Non-goal.
var commandTable = map[string]struct {
	handler    commandHandler
	privileged bool
}{
	"help":      {(*Commands).cmdHelp, false},
	"ping":      {(*Commands).cmdPing, false},
	"version":   {(*Commands).cmdVersion, false},
	"brb":       {(*Commands).cmdStatus, false},
	"afk":       {(*Commands).cmdStatus, false},
	"back":      {(*Commands).cmdStatus, false},
	"gtg":       {(*Commands).cmdStatus, false},
	"countdown": {(*Commands).cmdCountdown, false},
	"movebot":   {(*Commands).cmdMoveBot, false},
	"rotatebot": {(*Commands).cmdRotateBot, false},
	"getpos":    {(*Commands).cmdGetPos, false},
	"getrot":    {(*Commands).cmdGetRot, false},
	"hostinfo":  {(*Commands).cmdHostInfo, true},
	"kick":      {(*Commands).cmdKick, true},
	"ban":       {(*Commands).cmdBan, true},
	"say":       {(*Commands).cmdSay, true},
}

// statusReply holds the broadcast text for the brb/afk/back/gtg status
// verbs, keyed by verb.
var statusReply = map[string]string{
	"brb":  "be right back",
	"afk":  "away from keyboard",
	"back": "back",
	"gtg":  "got to go",
}

// Commands is the operator chat-command surface: one instance per
// Connection, subscribed to its bus's chat event.
type Commands struct {
	conn   *Connection
	logger *slog.Logger
}

// NewCommands creates a Commands surface bound to conn.
func NewCommands(conn *Connection, logger *slog.Logger) *Commands {
	return &Commands{
		conn:   conn,
		logger: logger.With("component", "commands"),
	}
}

// Attach subscribes the command surface to bus's chat event.
func (cmds *Commands) Attach(bus *eventbus.Bus) {
	bus.On(protocol.EventChat, func(args ...any) {
		if len(args) < 2 {
			return
		}
		uid, ok := args[0].(uint32)
		if !ok {
			return
		}
		message, ok := args[1].(string)
		if !ok {
			return
		}
		cmds.handle(uid, message)
	})
}

func (cmds *Commands) handle(uid uint32, message string) {
	if !strings.HasPrefix(message, commandPrefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(message, commandPrefix))
	if len(fields) == 0 {
		return
	}

	verb := strings.ToLower(fields[0])
	args := fields[1:]

	entry, ok := commandTable[verb]
	if !ok {
		cmds.reply(uid, fmt.Sprintf("Invalid command %q. Try >help.", verb))
		return
	}

	if entry.privileged && !cmds.isPrivileged(uid) {
		cmds.reply(uid, "You do not have permission to do that")
		return
	}

	if err := entry.handler(cmds, uid, verb, args); err != nil {
		cmds.reply(uid, err.Error())
	}
}

func (cmds *Commands) isPrivileged(uid uint32) bool {
	u, err := cmds.conn.reg.GetUser(uid)
	if err != nil {
		return false
	}
	info := u.Info()
	return info.AuthStatus.Has(protocol.AuthAdmin) || info.AuthStatus.Has(protocol.AuthMod)
}

func (cmds *Commands) reply(uid uint32, msg string) {
	if err := cmds.conn.SendPrivateChat(uid, msg); err != nil {
		cmds.logger.Warn("failed to send command reply", "error", err, "to", uid)
	}
}

func (cmds *Commands) cmdHelp(uid uint32, _ string, _ []string) error {
	verbs := make([]string, 0, len(commandTable))
	for v := range commandTable {
		verbs = append(verbs, v)
	}
	cmds.reply(uid, "Commands: "+strings.Join(verbs, ", "))
	return nil
}

func (cmds *Commands) cmdPing(uid uint32, _ string, _ []string) error {
	cmds.reply(uid, "pong")
	return nil
}

func (cmds *Commands) cmdVersion(uid uint32, _ string, _ []string) error {
	cmds.reply(uid, "rorbot "+Version)
	return nil
}

// cmdStatus handles brb/afk/back/gtg by broadcasting the sender's new
// status to chat; the bot holds no per-user status state of its own.
func (cmds *Commands) cmdStatus(uid uint32, verb string, _ []string) error {
	u, err := cmds.conn.reg.GetUser(uid)
	if err != nil {
		return nil
	}
	return cmds.conn.SendChat(fmt.Sprintf("%s is %s", u.Username(), statusReply[verb]))
}

// cmdCountdown registers a frame_step subscriber that ticks down from
// the requested number of seconds, emitting a red number each second
// and a green "GO!!!" at zero. The subscriber does not unsubscribe
// itself: after "GO!!!" it goes inert and stays registered on
// frame_step until the next RemoveListener for that event (the bus's
// RemoveListener only removes by event name, not handler identity —
// see eventbus.Bus.RemoveListener).
func (cmds *Commands) cmdCountdown(uid uint32, _ string, args []string) error {
	seconds := 3
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("usage: countdown <seconds>")
		}
		seconds = n
	}

	state := &countdownState{remaining: seconds, conn: cmds.conn}
	cmds.conn.bus.On(protocol.EventFrameStep, state.onFrameStep)
	return nil
}

// countdownState is the explicit small struct the countdown handler
// closes over, per spec §9's guidance against mutable free variables.
type countdownState struct {
	remaining int
	done      bool
	accum     time.Duration
	conn      *Connection
}

func (state *countdownState) onFrameStep(args ...any) {
	if state.done || len(args) == 0 {
		return
	}
	delta, ok := args[0].(float32)
	if !ok {
		return
	}
	state.accum += time.Duration(delta * float32(time.Second))
	if state.accum < time.Second {
		return
	}
	state.accum = 0

	if state.remaining > 0 {
		_ = state.conn.SendChat(fmt.Sprintf("%s%d", protocol.ColorRed, state.remaining))
		state.remaining--
		return
	}

	_ = state.conn.SendChat(string(protocol.ColorGreen) + "GO!!!")
	state.done = true
}

func (cmds *Commands) cmdMoveBot(uid uint32, _ string, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: movebot <x> <y> <z>")
	}
	x, err1 := strconv.ParseFloat(args[0], 32)
	y, err2 := strconv.ParseFloat(args[1], 32)
	z, err3 := strconv.ParseFloat(args[2], 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return fmt.Errorf("usage: movebot <x> <y> <z>")
	}
	return cmds.conn.MoveBot(protocol.Vector3{X: float32(x), Y: float32(y), Z: float32(z)})
}

func (cmds *Commands) cmdRotateBot(uid uint32, _ string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rotatebot <radians>")
	}
	theta, err := strconv.ParseFloat(args[0], 32)
	if err != nil {
		return fmt.Errorf("usage: rotatebot <radians>")
	}
	return cmds.conn.RotateBot(float32(theta))
}

func (cmds *Commands) cmdGetPos(uid uint32, _ string, _ []string) error {
	pos, _ := cmds.conn.Position()
	cmds.reply(uid, fmt.Sprintf("position: %.2f %.2f %.2f", pos.X, pos.Y, pos.Z))
	return nil
}

func (cmds *Commands) cmdGetRot(uid uint32, _ string, _ []string) error {
	_, rot := cmds.conn.Position()
	cmds.reply(uid, fmt.Sprintf("rotation: %.4f", rot))
	return nil
}

func (cmds *Commands) cmdHostInfo(uid uint32, _ string, _ []string) error {
	if !cmds.conn.cfg.Diagnostics.Enabled {
		cmds.reply(uid, "diagnostics disabled")
		return nil
	}
	stats := cmds.conn.monitor.Stats()
	cmds.reply(uid, fmt.Sprintf("cpu=%.1f%% mem=%.1f%% disk=%.1f%% load=%.2f",
		stats.CPUPercent, stats.MemoryPercent, stats.DiskUsagePercent, stats.LoadAverage))
	return nil
}

func (cmds *Commands) cmdKick(uid uint32, _ string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: kick <uid> <reason>")
	}
	return cmds.conn.SendChat(fmt.Sprintf("!kick %s %s", args[0], strings.Join(args[1:], " ")))
}

func (cmds *Commands) cmdBan(uid uint32, _ string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ban <uid> <reason>")
	}
	return cmds.conn.SendChat(fmt.Sprintf("!ban %s %s", args[0], strings.Join(args[1:], " ")))
}

func (cmds *Commands) cmdSay(uid uint32, _ string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: say <uid> <msg>")
	}
	return cmds.conn.SendChat(fmt.Sprintf("!say %s %s", args[0], strings.Join(args[1:], " ")))
}
