package ses

import (
	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/registry"
	"github.com/warpwm/hexe/internal/wire"
)

// handleClientMsg is the big C1 switch for an already-registered client.
func (r *Router) handleClientMsg(c *clientConn, h wire.Header, payload []byte) {
	switch h.Type {
	case wire.MsgCreatePane:
		r.handleCreatePane(c, payload)
	case wire.MsgDestroyPane:
		r.handleDestroyPane(c, payload)
	case wire.MsgKillPane:
		r.handleKillPane(c, payload)
	case wire.MsgDetach:
		r.handleDetach(c, payload)
	case wire.MsgReattach:
		r.handleReattach(c, payload)
	case wire.MsgSyncState:
		r.handleSyncState(c, payload)
	case wire.MsgDisconnect:
		r.handleDisconnect(c, payload)
	case wire.MsgOrphanPane:
		r.handleOrphanPane(c, payload)
	case wire.MsgListOrphaned:
		r.handleListOrphaned(c)
	case wire.MsgAdoptPane:
		r.handleAdoptPane(c, payload)
	case wire.MsgSetSticky:
		r.handleSetSticky(c, payload)
	case wire.MsgFindSticky:
		r.handleFindSticky(c, payload)
	case wire.MsgPaneInfo:
		r.handlePaneInfo(c, payload)
	case wire.MsgUpdatePaneAux:
		r.handleUpdatePaneAux(c, payload)
	case wire.MsgUpdatePaneName:
		r.handleUpdatePaneName(c, payload)
	case wire.MsgUpdatePaneShell:
		r.handleUpdatePaneShell(c, payload)
	case wire.MsgGetPaneCwd:
		r.handleGetPaneCwd(c, payload)
	case wire.MsgListSessions:
		r.handleListSessions(c, payload)
	case wire.MsgPing:
		r.handlePing(c, payload)
	case wire.MsgNotify:
		r.handlePlainNotify(payload)
	case wire.MsgBroadcastNotify:
		r.handleBroadcastNotify(payload)
	case wire.MsgTargetedNotify:
		r.handleTargetedNotify(payload)
	case wire.MsgSendKeys:
		r.handleSendKeysMsg(payload)
	case wire.MsgFocusMove:
		r.handleFocusMoveMsg(c, payload)
	case wire.MsgPopResponse:
		r.handlePopResponse(c, payload)
	case wire.MsgExitIntentResult:
		r.handleExitIntentResult(c, payload)
	case wire.MsgFloatRequest:
		r.handleFloatRequest(c, payload)
	case wire.MsgFloatResult:
		r.handleFloatResult(c, payload)
	default:
		r.errorReply(c, "unknown_message")
	}
}

func (r *Router) handleCreatePane(c *clientConn, payload []byte) {
	msg, err := wire.DecodeCreatePane(payload)
	if err != nil {
		r.errorReply(c, "bad_create_pane")
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
	vtConn, socketPath, pid, err := r.spawnPod(uuid, msg.Cwd, shell, "", msg.Env)
	if err != nil {
		r.logger.Printf("spawn pod: %v", err)
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

	r.sendCtrl(c, wire.MsgPaneCreated, wire.PaneCreated{
		UUID:       [16]byte(uuid),
		PaneID:     uint16(pane.Num),
		Pid:        uint32(pid),
		SocketPath: socketPath,
	}.Encode())
	r.publishEvent("pane_created", struct {
		UUID string `json:"uuid"`
		Num  uint16 `json:"pane_id"`
	}{uuid.String(), uint16(pane.Num)})
}

func (r *Router) destroyPaneByUUID(uuid ids.PaneUUID) {
	pod, ok := r.pods[uuid]
	if !ok {
		return
	}
	delete(r.pods, uuid)
	delete(r.paneNumToPod, pod.num)
	r.updatePodAlias(pod, "")
	if pod.vt != nil {
		pod.vt.Close()
	}
	if pod.ctrl != nil {
		pod.ctrl.Close()
	}
	r.reg.RemovePane(uuid)
	r.publishEvent("pane_destroyed", struct {
		UUID string `json:"uuid"`
	}{uuid.String()})
}

func (r *Router) handleDestroyPane(c *clientConn, payload []byte) {
	msg, err := wire.DecodeUUIDOnly(payload)
	if err != nil {
		r.errorReply(c, "bad_destroy_pane")
		return
	}
	r.destroyPaneByUUID(ids.PaneUUID(msg.UUID))
	r.sendCtrl(c, wire.MsgOk, nil)
}

func (r *Router) handleKillPane(c *clientConn, payload []byte) {
	msg, err := wire.DecodeKillPane(payload)
	if err != nil {
		r.errorReply(c, "bad_kill_pane")
		return
	}
	r.destroyPaneByUUID(ids.PaneUUID(msg.UUID))
	r.sendCtrl(c, wire.MsgOk, nil)
}

func (r *Router) handleDetach(c *clientConn, payload []byte) {
	msg, err := wire.DecodeDetach(payload)
	if err != nil {
		r.errorReply(c, "bad_detach")
		return
	}
	sessionID := r.unregisterAndDetach(c, msg.Layout)
	r.sendCtrl(c, wire.MsgSessionDetached, wire.SessionDetached{SessionID: [16]byte(sessionID)}.Encode())
	c.id = 0
}

func (r *Router) handleReattach(c *clientConn, payload []byte) {
	msg, err := wire.DecodeReattach(payload)
	if err != nil {
		r.errorReply(c, "bad_reattach")
		return
	}
	ds, err := r.reg.MatchDetached(msg.Prefix)
	if err != nil {
		r.errorReply(c, err.Error())
		return
	}
	layout, panes := r.reg.Reattach(ds, c.id)
	reply := wire.SessionReattached{Layout: layout}
	for _, p := range panes {
		if pod, ok := r.pods[p.UUID]; ok {
			if err := r.attachPod(pod, c); err != nil {
				r.logger.Printf("reattach dial pod %s: %v", p.UUID, err)
				continue
			}
		}
		reply.Panes = append(reply.Panes, wire.ReattachedPane{UUID: [16]byte(p.UUID), PaneID: uint16(p.Num)})
	}
	r.sendCtrl(c, wire.MsgSessionReattached, reply.Encode())
	r.publishEvent("session_reattached", struct {
		SessionID string `json:"session_id"`
		PaneCount int    `json:"pane_count"`
	}{ds.SessionID.String(), len(reply.Panes)})
}

func (r *Router) handleSyncState(c *clientConn, payload []byte) {
	msg, err := wire.DecodeSyncState(payload)
	if err != nil {
		r.errorReply(c, "bad_sync_state")
		return
	}
	c.lastLayout = msg.Blob
	r.sendCtrl(c, wire.MsgOk, nil)
}

func (r *Router) handleDisconnect(c *clientConn, payload []byte) {
	msg, err := wire.DecodeDisconnect(payload)
	if err != nil {
		r.errorReply(c, "bad_disconnect")
		return
	}
	if msg.Mode == wire.DisconnectShutdown && !msg.PreserveSticky {
		if rc, ok := r.reg.Client(c.id); ok {
			for uuid := range rc.PaneUUIDs {
				r.destroyPaneByUUID(uuid)
			}
		}
		r.reg.RemoveClient(c.id)
		delete(r.clients, c.id)
		delete(r.bySession, c.sessionID)
	} else {
		r.unregisterAndDetach(c, c.lastLayout)
	}
	c.id = 0
	if c.ctrl != nil {
		c.ctrl.Close()
	}
	if c.vt != nil {
		c.vt.Close()
	}
}

func (r *Router) handleOrphanPane(c *clientConn, payload []byte) {
	msg, err := wire.DecodeUUIDOnly(payload)
	if err != nil {
		r.errorReply(c, "bad_orphan_pane")
		return
	}
	uuid := ids.PaneUUID(msg.UUID)
	if err := r.reg.OrphanPane(uuid); err != nil {
		r.errorReply(c, "not_found")
		return
	}
	if p, ok := r.pods[uuid]; ok {
		r.detachPod(p)
	}
	r.sendCtrl(c, wire.MsgOk, nil)
}

func (r *Router) handleListOrphaned(c *clientConn) {
	uuids := r.reg.ListOrphaned()
	out := wire.OrphanedPanes{}
	for _, u := range uuids {
		out.Panes = append(out.Panes, [16]byte(u))
	}
	r.sendCtrl(c, wire.MsgOrphanedPanes, out.Encode())
}

func (r *Router) handleAdoptPane(c *clientConn, payload []byte) {
	msg, err := wire.DecodeUUIDOnly(payload)
	if err != nil {
		r.errorReply(c, "bad_adopt_pane")
		return
	}
	uuid := ids.PaneUUID(msg.UUID)
	pane, err := r.reg.AdoptPane(uuid, c.id)
	if err != nil {
		r.errorReply(c, "adopt_failed")
		return
	}
	if pod, ok := r.pods[uuid]; ok {
		if err := r.attachPod(pod, c); err != nil {
			r.logger.Printf("adopt dial pod %s: %v", uuid, err)
		}
	}
	r.sendCtrl(c, wire.MsgPaneFound, paneToAttributes(pane).Encode())
}

func (r *Router) handleSetSticky(c *clientConn, payload []byte) {
	msg, err := wire.DecodeSetSticky(payload)
	if err != nil {
		r.errorReply(c, "bad_set_sticky")
		return
	}
	if err := r.reg.SetSticky(ids.PaneUUID(msg.UUID), msg.Pwd, msg.Key); err != nil {
		r.errorReply(c, "not_found")
		return
	}
	r.sendCtrl(c, wire.MsgOk, nil)
}

func (r *Router) handleFindSticky(c *clientConn, payload []byte) {
	msg, err := wire.DecodeFindSticky(payload)
	if err != nil {
		r.errorReply(c, "bad_find_sticky")
		return
	}
	uuid, ok := r.reg.FindSticky(msg.Pwd, msg.Key)
	if !ok {
		r.sendCtrl(c, wire.MsgPaneNotFound, nil)
		return
	}
	pane, err := r.reg.ReclaimSticky(uuid, c.id)
	if err != nil {
		r.sendCtrl(c, wire.MsgPaneNotFound, nil)
		return
	}
	if pod, ok := r.pods[uuid]; ok {
		if err := r.attachPod(pod, c); err != nil {
			r.logger.Printf("sticky dial pod %s: %v", uuid, err)
		}
	}
	r.sendCtrl(c, wire.MsgPaneFound, paneToAttributes(pane).Encode())
}

func (r *Router) handlePaneInfo(c *clientConn, payload []byte) {
	msg, err := wire.DecodeUUIDOnly(payload)
	if err != nil {
		r.errorReply(c, "bad_pane_info")
		return
	}
	pane, ok := r.reg.Pane(ids.PaneUUID(msg.UUID))
	if !ok {
		r.sendCtrl(c, wire.MsgPaneNotFound, nil)
		return
	}
	r.sendCtrl(c, wire.MsgPaneFound, paneToAttributes(pane).Encode())
}

func (r *Router) handleUpdatePaneAux(c *clientConn, payload []byte) {
	msg, err := wire.DecodeUpdatePaneAux(payload)
	if err != nil {
		r.errorReply(c, "bad_update_pane_aux")
		return
	}
	err = r.reg.UpdateAttrs(ids.PaneUUID(msg.UUID), func(a *registry.Attributes) bool {
		if string(a.Aux) == string(msg.Aux) {
			return false
		}
		a.Aux = msg.Aux
		return true
	})
	if err != nil {
		r.errorReply(c, "not_found")
		return
	}
	r.sendCtrl(c, wire.MsgOk, nil)
}

func (r *Router) handleUpdatePaneName(c *clientConn, payload []byte) {
	msg, err := wire.DecodeUpdatePaneName(payload)
	if err != nil {
		r.errorReply(c, "bad_update_pane_name")
		return
	}
	err = r.reg.UpdateAttrs(ids.PaneUUID(msg.UUID), func(a *registry.Attributes) bool {
		if a.Name == msg.Name {
			return false
		}
		a.Name = msg.Name
		return true
	})
	if err != nil {
		r.errorReply(c, "not_found")
		return
	}
	if pod, ok := r.pods[ids.PaneUUID(msg.UUID)]; ok {
		r.updatePodAlias(pod, msg.Name)
	}
	r.sendCtrl(c, wire.MsgOk, nil)
}

func (r *Router) handleUpdatePaneShell(c *clientConn, payload []byte) {
	msg, err := wire.DecodeUpdatePaneShell(payload)
	if err != nil {
		r.errorReply(c, "bad_update_pane_shell")
		return
	}
	err = r.reg.UpdateAttrs(ids.PaneUUID(msg.UUID), func(a *registry.Attributes) bool {
		a.LastCommand = msg.Command
		a.LastExit = msg.ExitCode
		a.LastDurMs = msg.DurMs
		a.LastJobs = msg.Jobs
		return true
	})
	if err != nil {
		r.errorReply(c, "not_found")
		return
	}
	r.sendCtrl(c, wire.MsgOk, nil)
}

func (r *Router) handleGetPaneCwd(c *clientConn, payload []byte) {
	msg, err := wire.DecodeUUIDOnly(payload)
	if err != nil {
		r.errorReply(c, "bad_get_pane_cwd")
		return
	}
	pane, ok := r.reg.Pane(ids.PaneUUID(msg.UUID))
	if !ok {
		r.errorReply(c, "not_found")
		return
	}
	r.sendCtrl(c, wire.MsgGetPaneCwd, wire.GetPaneCwdReply{Cwd: pane.Attrs.Cwd}.Encode())
}

func (r *Router) handleListSessions(c *clientConn, payload []byte) {
	msg, err := wire.DecodeListSessions(payload)
	if err != nil {
		r.errorReply(c, "bad_list_sessions")
		return
	}
	var out wire.SessionsList
	for _, s := range r.reg.ListSessions() {
		if msg.Filter == 1 && !s.Attached {
			continue
		}
		if msg.Filter == 2 && s.Attached {
			continue
		}
		out.Sessions = append(out.Sessions, wire.SessionSummary{
			SessionID: [16]byte(s.SessionID),
			Name:      s.Name,
			Attached:  s.Attached,
			PaneCount: uint16(s.PaneCount),
		})
	}
	r.sendCtrl(c, wire.MsgSessionsList, out.Encode())
}

func (r *Router) handlePing(c *clientConn, payload []byte) {
	msg, err := wire.DecodePing(payload)
	if err != nil {
		return
	}
	r.sendCtrl(c, wire.MsgPong, wire.Pong{Nonce: msg.Nonce}.Encode())
}

func paneToAttributes(p *registry.Pane) wire.PaneAttributes {
	a := p.Attrs
	return wire.PaneAttributes{
		UUID:        [16]byte(p.UUID),
		PaneID:      uint16(p.Num),
		Pid:         p.Pid,
		State:       uint8(p.State),
		Cwd:         a.Cwd,
		FgName:      a.FgName,
		FgPid:       a.FgPid,
		LastCommand: a.LastCommand,
		LastExit:    a.LastExit,
		LastDurMs:   a.LastDurMs,
		LastJobs:    a.LastJobs,
		Cols:        a.Cols,
		Rows:        a.Rows,
		CursorRow:   a.CursorRow,
		CursorCol:   a.CursorCol,
		AltScreen:   a.AltScreen,
		Name:        a.Name,
	}
}
