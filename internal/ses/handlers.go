package ses

import (
	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/registry"
	"github.com/warpwm/hexe/internal/wire"
)

// dispatch is the single point where every event lands: new connections,
// control messages, and VT frames, from both MUX and POD sides. Nothing
// outside this function (and what it calls) ever touches Router state.
func (r *Router) dispatch(evt any) {
	switch e := evt.(type) {
	case newMuxCtrlEvt:
		r.onNewMuxCtrl(e)
	case newMuxVTEvt:
		r.onNewMuxVT(e)
	case newPodCtrlEvt:
		r.onNewPodCtrl(e)
	case clientCtrlEvt:
		r.onClientCtrl(e)
	case clientVTEvt:
		r.onClientVT(e)
	case podCtrlEvt:
		r.onPodCtrl(e)
	case podVTEvt:
		r.onPodVT(e)
	case newCLIMsgEvt:
		r.onCLIMsg(e)
	}
}

func (r *Router) onNewMuxCtrl(e newMuxCtrlEvt) {
	c := &clientConn{ctrl: e.conn}
	go r.clientCtrlReadLoop(c)
}

func (r *Router) onNewMuxVT(e newMuxVTEvt) {
	c, ok := r.bySession[e.sessionID]
	if !ok || c.vt != nil {
		e.conn.Close()
		return
	}
	c.vt = e.conn
	c.vtOut = newAsyncWriter(e.conn, func(err error) {
		r.post(clientVTEvt{client: c, err: err})
	})
	r.reg.SetClientVT(c.id, true)
	go r.clientVTReadLoop(c)
}

func (r *Router) onNewPodCtrl(e newPodCtrlEvt) {
	p, ok := r.pods[e.uuid]
	if !ok {
		e.conn.Close()
		return
	}
	p.ctrl = e.conn
	go r.podCtrlReadLoop(p)
	// A reconnecting C4 means POD's view of what it last pushed may be
	// stale from SES's side (the prior connection dropped mid-push); ask
	// it to repeat its last known state rather
	// than waiting out a full scrape interval.
	_ = wire.WriteControl(p.ctrl, wire.MsgQueryState, wire.QueryState{UUID: [16]byte(p.uuid)}.Encode())
}

// onClientCtrl handles every C1 message. A client with id == 0 is still
// pending registration; the only message it may send is Register.
func (r *Router) onClientCtrl(e clientCtrlEvt) {
	c := e.client
	if e.err != nil {
		r.dropClient(c)
		return
	}
	if c.id == 0 {
		r.handleRegister(c, e.header, e.payload)
		return
	}
	r.handleClientMsg(c, e.header, e.payload)
}

func (r *Router) handleRegister(c *clientConn, h wire.Header, payload []byte) {
	if h.Type != wire.MsgRegister {
		c.ctrl.Close()
		return
	}
	msg, err := wire.DecodeRegister(payload)
	if err != nil {
		c.ctrl.Close()
		return
	}
	sessionID := ids.SessionID(msg.SessionID)
	if sessionID.IsZero() {
		sessionID, err = ids.NewSessionID()
		if err != nil {
			c.ctrl.Close()
			return
		}
	}
	rc, err := r.reg.RegisterClient(sessionID, msg.Name, msg.Keepalive)
	if err != nil {
		_ = wire.WriteControl(c.ctrl, wire.MsgError, wire.Error{Reason: "registry_full"}.Encode())
		c.ctrl.Close()
		return
	}
	c.id = rc.ID
	c.sessionID = sessionID
	c.ctrlOut = newAsyncWriter(c.ctrl, func(err error) {
		r.post(clientCtrlEvt{client: c, err: err})
	})
	r.clients[c.id] = c
	r.bySession[sessionID] = c
	r.sendCtrl(c, wire.MsgRegistered, wire.Registered{ClientID: uint64(c.id)}.Encode())
}

// dropClient tears down a disconnected MUX. Its panes move to
// detached/sticky exactly as an explicit detach would; destroying a pane on
// disconnect is left to the client's own explicit destroy_pane calls made
// before it goes away, so SES never guesses intent from a bare close.
func (r *Router) dropClient(c *clientConn) {
	if c.ctrl != nil {
		c.ctrl.Close()
	}
	if c.vt != nil {
		c.vt.Close()
	}
	if c.id == 0 {
		return
	}
	r.unregisterAndDetach(c, c.lastLayout)
}

// unregisterAndDetach removes c from the registry and every live map,
// moving its panes to detached/sticky and severing their C3 connections.
// Shared by dropClient (ungraceful) and handleDetach (explicit).
func (r *Router) unregisterAndDetach(c *clientConn, layout []byte) ids.SessionID {
	sessionID := c.sessionID

	var ownedUUIDs []ids.PaneUUID
	if rc, ok := r.reg.Client(c.id); ok {
		for uuid := range rc.PaneUUIDs {
			ownedUUIDs = append(ownedUUIDs, uuid)
		}
	}

	r.reg.DetachClientPanes(c.id, layout)
	r.reg.RemoveClient(c.id)
	delete(r.clients, c.id)
	delete(r.bySession, c.sessionID)
	delete(r.cli.pops, c.id)

	for _, uuid := range ownedUUIDs {
		if p, ok := r.pods[uuid]; ok {
			r.detachPod(p)
		}
	}
	return sessionID
}

// detachPod closes a pod's live C3 connection on owner loss; POD keeps
// running and accumulates output into its own backlog until the next dial.
func (r *Router) detachPod(p *podConn) {
	p.vtGen++
	if p.vt != nil {
		p.vt.Close()
	}
	p.vt = nil
	p.vtOut = nil
	p.owner = nil
}

// attachPod (re)dials C3 to a pod and wires its output to newOwner. Used by
// create_pane's first dial, reattach, adopt_pane, and sticky reclaim.
func (r *Router) attachPod(p *podConn, newOwner *clientConn) error {
	if p.vt != nil {
		p.vt.Close()
	}
	conn, err := dialPodVT(p.socketPath)
	if err != nil {
		return err
	}
	p.vtGen++
	gen := p.vtGen
	p.vt = conn
	p.vtOut = newAsyncWriter(conn, func(err error) {
		r.post(podVTEvt{pod: p, gen: gen, err: err})
	})
	p.owner = newOwner
	go r.podVTReadLoop(p, conn, gen)
	return nil
}

func (r *Router) onClientVT(e clientVTEvt) {
	c := e.client
	if e.err != nil {
		r.dropClient(c)
		return
	}
	pod, ok := r.paneNumToPod[registry.PaneNum(e.hdr.PaneID)]
	if !ok || pod.owner != c || pod.vt == nil || pod.vtOut == nil {
		return
	}
	frame := wire.PodVTHeader{FrameType: e.hdr.FrameType, Len: e.hdr.Len}.Encode()
	out := make([]byte, 0, len(frame)+len(e.payload))
	out = append(out, frame...)
	out = append(out, e.payload...)
	pod.vtOut.Send(out)
	r.cfg.Metrics.AddRoutedBytes("mux_to_pod", len(e.payload))
}

func (r *Router) onPodVT(e podVTEvt) {
	p := e.pod
	if e.gen != p.vtGen {
		return
	}
	if e.err != nil {
		r.detachPod(p)
		return
	}
	if p.owner == nil || p.owner.vt == nil || p.owner.vtOut == nil {
		return
	}
	frame := wire.MuxVTHeader{PaneID: uint16(p.num), FrameType: e.hdr.FrameType, Len: e.hdr.Len}.Encode()
	out := make([]byte, 0, len(frame)+len(e.payload))
	out = append(out, frame...)
	out = append(out, e.payload...)
	p.owner.vtOut.Send(out)
	r.cfg.Metrics.AddRoutedBytes("pod_to_mux", len(e.payload))
}

func (r *Router) onPodCtrl(e podCtrlEvt) {
	p := e.pod
	if e.err != nil {
		r.handlePodGone(p)
		return
	}
	r.handlePodMsg(p, e.header, e.payload)
}

// handlePodGone runs when a pod's C4 connection drops. Usually that's
// because handleExited already relayed the real exit status moments earlier
// and the pod process is now exiting for good; only synthesize a
// pane_exited here when POD went away without ever managing to send one
// (a crash, not a clean shell exit), and then only with a generic status
// since the real one was never known.
func (r *Router) handlePodGone(p *podConn) {
	pane, ok := r.reg.RemovePane(p.uuid)
	delete(r.pods, p.uuid)
	delete(r.paneNumToPod, p.num)
	r.updatePodAlias(p, "")
	if p.vt != nil {
		p.vt.Close()
	}
	if p.ctrl != nil {
		p.ctrl.Close()
	}
	if !ok || p.exitRelayed {
		return
	}
	if pane.HasOwner {
		if owner, ok := r.clients[pane.OwnerClientID]; ok {
			uuid16 := [16]byte(p.uuid)
			r.sendCtrl(owner, wire.MsgPaneExited, wire.PaneExited{UUID: uuid16, ExitStatus: 0}.Encode())
		}
	}
}
