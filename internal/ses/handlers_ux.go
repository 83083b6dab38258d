package ses

import (
	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/wire"
)

func (r *Router) broadcastNotify(t wire.MsgType, message string) {
	var payload []byte
	switch t {
	case wire.MsgNotify:
		payload = wire.Notify{Message: message}.Encode()
	default:
		payload = wire.BroadcastNotify{Message: message}.Encode()
		t = wire.MsgBroadcastNotify
	}
	for _, c := range r.clients {
		r.sendCtrl(c, t, payload)
	}
}

func (r *Router) handlePlainNotify(payload []byte) {
	msg, err := wire.DecodeNotify(payload)
	if err != nil {
		return
	}
	r.broadcastNotify(wire.MsgNotify, msg.Message)
}

func (r *Router) handleBroadcastNotify(payload []byte) {
	msg, err := wire.DecodeBroadcastNotify(payload)
	if err != nil {
		return
	}
	r.broadcastNotify(wire.MsgBroadcastNotify, msg.Message)
}

// targetClient resolves a target string to the clientConn that should
// receive a forwarded message, trying in order: full session_id, full pane
// UUID (via its owner), then a name/id prefix.
func (r *Router) targetClient(target string) *clientConn {
	pane, client, err := r.reg.ResolveTarget(target)
	if err != nil {
		return nil
	}
	if client != nil {
		return r.clients[client.ID]
	}
	if pane != nil && pane.HasOwner {
		return r.clients[pane.OwnerClientID]
	}
	return nil
}

func (r *Router) handleTargetedNotify(payload []byte) {
	msg, err := wire.DecodeTargetedNotify(payload)
	if err != nil {
		return
	}
	tc := r.targetClient(msg.Target)
	if tc == nil {
		return
	}
	r.sendCtrl(tc, wire.MsgTargetedNotify, wire.TargetedNotify{Target: msg.Target, Message: msg.Message}.Encode())
}

func (r *Router) handleSendKeysMsg(payload []byte) {
	msg, err := wire.DecodeSendKeys(payload)
	if err != nil {
		return
	}
	r.sendKeysToTarget(msg.Target, msg.Keys)
}

func (r *Router) sendKeysToTarget(target string, keys []byte) bool {
	pane, _, err := r.reg.ResolveTarget(target)
	if err != nil || pane == nil {
		return false
	}
	pod, ok := r.pods[pane.UUID]
	if !ok || pod.vtOut == nil {
		return false
	}
	frame := wire.PodVTHeader{FrameType: wire.FrameInput, Len: uint32(len(keys))}.Encode()
	out := make([]byte, 0, len(frame)+len(keys))
	out = append(out, frame...)
	out = append(out, keys...)
	pod.vtOut.Send(out)
	return true
}

// handleFocusMoveMsg acknowledges a focus change. Focus is a MUX-local UI
// concept; SES only needs to agree the request was well-formed.
func (r *Router) handleFocusMoveMsg(c *clientConn, payload []byte) {
	if _, err := wire.DecodeFocusMove(payload); err != nil {
		r.errorReply(c, "bad_focus_move")
		return
	}
	r.sendCtrl(c, wire.MsgOk, nil)
}

func (r *Router) handlePopResponse(c *clientConn, payload []byte) {
	msg, err := wire.DecodePopResponse(payload)
	if err != nil {
		return
	}
	conn, ok := r.cli.pops[c.id]
	if !ok {
		return
	}
	delete(r.cli.pops, c.id)
	r.replyCLI(conn, wire.MsgPopResponse, msg.Encode())
}

func (r *Router) handleExitIntentResult(c *clientConn, payload []byte) {
	msg, err := wire.DecodeExitIntentResult(payload)
	if err != nil {
		return
	}
	conn := r.cli.exitIntent
	if conn == nil {
		return
	}
	r.cli.exitIntent = nil
	r.replyCLI(conn, wire.MsgExitIntentResult, msg.Encode())
}

func (r *Router) handleFloatRequest(c *clientConn, payload []byte) {
	msg, err := wire.DecodeFloatRequest(payload)
	if err != nil {
		r.errorReply(c, "bad_float_request")
		return
	}
	shell := msg.Shell
	if shell == "" {
		shell = r.cfg.DefaultShell
	}
	uuid, err := ids.NewPaneUUID()
	if err != nil {
		r.errorReply(c, "uuid_generation_failed")
		return
	}
	vtConn, socketPath, pid, err := r.spawnPod(uuid, msg.Cwd, shell, "", nil)
	if err != nil {
		r.logger.Printf("spawn float pod: %v", err)
		r.errorReply(c, "spawn_failed")
		return
	}
	pane, err := r.reg.CreatePane(uuid, uint32(pid), socketPath, c.id, c.sessionID)
	if err != nil {
		vtConn.Close()
		r.errorReply(c, "create_pane_failed")
		return
	}
	pod := &podConn{uuid: uuid, num: pane.Num, socketPath: socketPath, owner: c, vtGen: 1, vt: vtConn}
	pod.vtOut = newAsyncWriter(vtConn, func(err error) {
		r.post(podVTEvt{pod: pod, gen: pod.vtGen, err: err})
	})
	r.pods[uuid] = pod
	r.paneNumToPod[pane.Num] = pod
	go r.podVTReadLoop(pod, vtConn, pod.vtGen)

	r.cli.floats[uuid] = nil
	r.sendCtrl(c, wire.MsgFloatCreated, wire.FloatCreated{UUID: [16]byte(uuid), PaneID: uint16(pane.Num)}.Encode())
}

// handleFloatResult lets the requesting client accept or dismiss a float
// it previously created; there is no separate viewer round trip in this
// implementation, so it only updates bookkeeping.
func (r *Router) handleFloatResult(c *clientConn, payload []byte) {
	msg, err := wire.DecodeFloatResult(payload)
	if err != nil {
		return
	}
	uuid := ids.PaneUUID(msg.UUID)
	delete(r.cli.floats, uuid)
	if !msg.Accepted {
		r.destroyPaneByUUID(uuid)
	}
}
