package ses

import (
	"encoding/json"
	"net"

	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/wire"
)

// onCLIMsg answers the one control message read off a handshake-0x04
// connection. Every branch either replies and closes immediately, or (for
// the two popup verbs and exit_intent) stashes the connection in a typed
// slot and returns without closing — the reply comes later, correlated by
// the target MUX's eventual response.
func (r *Router) onCLIMsg(e newCLIMsgEvt) {
	if e.err != nil {
		e.conn.Close()
		return
	}
	switch e.header.Type {
	case wire.MsgStatus:
		r.cliStatus(e.conn, e.payload)
	case wire.MsgNotify:
		r.cliNotify(e.conn, e.payload, wire.MsgNotify)
	case wire.MsgBroadcastNotify:
		r.cliNotify(e.conn, e.payload, wire.MsgBroadcastNotify)
	case wire.MsgTargetedNotify:
		r.cliTargetedNotify(e.conn, e.payload)
	case wire.MsgSendKeys:
		r.cliSendKeys(e.conn, e.payload)
	case wire.MsgFocusMove:
		r.cliFocusMove(e.conn, e.payload)
	case wire.MsgPopConfirm:
		r.cliPopConfirm(e.conn, e.payload)
	case wire.MsgPopChoose:
		r.cliPopChoose(e.conn, e.payload)
	case wire.MsgExitIntent:
		r.cliExitIntent(e.conn, e.payload)
	default:
		r.replyCLI(e.conn, wire.MsgError, wire.Error{Reason: "unknown_cli_verb"}.Encode())
	}
}

type statusSession struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Attached  bool   `json:"attached"`
	PaneCount int    `json:"pane_count"`
}

type statusDoc struct {
	Sessions []statusSession `json:"sessions"`
	Panes    int             `json:"live_panes"`
}

func (r *Router) cliStatus(conn *net.UnixConn, payload []byte) {
	doc := statusDoc{Panes: len(r.pods)}
	for _, s := range r.reg.ListSessions() {
		doc.Sessions = append(doc.Sessions, statusSession{
			SessionID: s.SessionID.String(),
			Name:      s.Name,
			Attached:  s.Attached,
			PaneCount: s.PaneCount,
		})
	}
	b, err := json.Marshal(doc)
	if err != nil {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "status_encode_failed"}.Encode())
		return
	}
	r.replyCLI(conn, wire.MsgStatus, wire.StatusReply{JSON: b}.Encode())
}

func (r *Router) cliNotify(conn *net.UnixConn, payload []byte, t wire.MsgType) {
	var message string
	if t == wire.MsgNotify {
		msg, err := wire.DecodeNotify(payload)
		if err != nil {
			r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "bad_notify"}.Encode())
			return
		}
		message = msg.Message
	} else {
		msg, err := wire.DecodeBroadcastNotify(payload)
		if err != nil {
			r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "bad_notify"}.Encode())
			return
		}
		message = msg.Message
	}
	r.broadcastNotify(t, message)
	r.replyCLI(conn, wire.MsgOk, nil)
}

func (r *Router) cliTargetedNotify(conn *net.UnixConn, payload []byte) {
	msg, err := wire.DecodeTargetedNotify(payload)
	if err != nil {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "bad_notify"}.Encode())
		return
	}
	tc := r.targetClient(msg.Target)
	if tc == nil {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "target_not_found"}.Encode())
		return
	}
	r.sendCtrl(tc, wire.MsgTargetedNotify, wire.TargetedNotify{Target: msg.Target, Message: msg.Message}.Encode())
	r.replyCLI(conn, wire.MsgOk, nil)
}

func (r *Router) cliSendKeys(conn *net.UnixConn, payload []byte) {
	msg, err := wire.DecodeSendKeys(payload)
	if err != nil {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "bad_send_keys"}.Encode())
		return
	}
	if !r.sendKeysToTarget(msg.Target, msg.Keys) {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "target_not_found"}.Encode())
		return
	}
	r.replyCLI(conn, wire.MsgOk, nil)
}

func (r *Router) cliFocusMove(conn *net.UnixConn, payload []byte) {
	if _, err := wire.DecodeFocusMove(payload); err != nil {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "bad_focus_move"}.Encode())
		return
	}
	r.replyCLI(conn, wire.MsgOk, nil)
}

func (r *Router) cliPopConfirm(conn *net.UnixConn, payload []byte) {
	msg, err := wire.DecodePopConfirm(payload)
	if err != nil {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "bad_pop_confirm"}.Encode())
		return
	}
	tc := r.targetClient(msg.Target)
	if tc == nil {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "target_not_found"}.Encode())
		return
	}
	if _, pending := r.cli.pops[tc.id]; pending {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "pop_already_pending"}.Encode())
		return
	}
	r.cli.pops[tc.id] = conn
	r.sendCtrl(tc, wire.MsgPopConfirm, wire.PopConfirm{Target: msg.Target, Prompt: msg.Prompt}.Encode())
}

func (r *Router) cliPopChoose(conn *net.UnixConn, payload []byte) {
	msg, err := wire.DecodePopChoose(payload)
	if err != nil {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "bad_pop_choose"}.Encode())
		return
	}
	tc := r.targetClient(msg.Target)
	if tc == nil {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "target_not_found"}.Encode())
		return
	}
	if _, pending := r.cli.pops[tc.id]; pending {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "pop_already_pending"}.Encode())
		return
	}
	r.cli.pops[tc.id] = conn
	r.sendCtrl(tc, wire.MsgPopChoose, wire.PopChoose{Target: msg.Target, Prompt: msg.Prompt, Options: msg.Options}.Encode())
}

func (r *Router) cliExitIntent(conn *net.UnixConn, payload []byte) {
	msg, err := wire.DecodeUUIDOnly(payload)
	if err != nil {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "bad_exit_intent"}.Encode())
		return
	}
	owner := r.ownerOf(ids.PaneUUID(msg.UUID))
	if owner == nil {
		// No MUX reachable to ask: nothing to block the exit on, so SES
		// answers allow itself instead of erroring the check out.
		r.replyCLI(conn, wire.MsgExitIntentResult, wire.ExitIntentResult{Allow: true}.Encode())
		return
	}
	if r.cli.exitIntent != nil {
		r.replyCLI(conn, wire.MsgError, wire.Error{Reason: "exit_intent_already_pending"}.Encode())
		return
	}
	r.cli.exitIntent = conn
	r.sendCtrl(owner, wire.MsgExitIntent, wire.UUIDOnly{UUID: msg.UUID}.Encode())
}
