package ses

import (
	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/registry"
	"github.com/warpwm/hexe/internal/wire"
)

// handlePodMsg is the C4 switch: metadata a POD pushes about its own shell.
// POD is the source of truth for all of this; SES only mirrors it into the
// registry and relays bell/exit events to the owner.
func (r *Router) handlePodMsg(p *podConn, h wire.Header, payload []byte) {
	switch h.Type {
	case wire.MsgPodRegister:
		r.handlePodRegister(p, payload)
	case wire.MsgCwdChanged:
		r.handleCwdChanged(p, payload)
	case wire.MsgFgChanged:
		r.handleFgChanged(p, payload)
	case wire.MsgTitleChanged:
		r.handleTitleChanged(p, payload)
	case wire.MsgBell:
		r.handleBell(p, payload)
	case wire.MsgShellEvent:
		r.handleShellEvent(p, payload)
	case wire.MsgExited:
		r.handleExited(p, payload)
	}
}

// handlePodRegister confirms the uuid this C4 connection belongs to; the
// connection was already keyed by uuid when accepted (ses.go's handshake
// reads the 16 raw bytes before posting newPodCtrlEvt), so this mostly
// just fills in the pid/socket bookkeeping the spawn race may have missed.
func (r *Router) handlePodRegister(p *podConn, payload []byte) {
	msg, err := wire.DecodePodRegister(payload)
	if err != nil {
		return
	}
	if p.socketPath == "" {
		p.socketPath = msg.SocketPath
	}
}

func (r *Router) ownerOf(uuid ids.PaneUUID) *clientConn {
	pane, ok := r.reg.Pane(uuid)
	if !ok || !pane.HasOwner {
		return nil
	}
	return r.clients[pane.OwnerClientID]
}

func (r *Router) handleCwdChanged(p *podConn, payload []byte) {
	msg, err := wire.DecodeCwdChanged(payload)
	if err != nil {
		return
	}
	_ = r.reg.UpdateAttrs(p.uuid, func(a *registry.Attributes) bool {
		if a.Cwd == msg.Cwd {
			return false
		}
		a.Cwd = msg.Cwd
		return true
	})
}

func (r *Router) handleFgChanged(p *podConn, payload []byte) {
	msg, err := wire.DecodeFgChanged(payload)
	if err != nil {
		return
	}
	_ = r.reg.UpdateAttrs(p.uuid, func(a *registry.Attributes) bool {
		if a.FgPid == msg.Pid && a.FgName == msg.Name {
			return false
		}
		a.FgPid = msg.Pid
		a.FgName = msg.Name
		return true
	})
}

func (r *Router) handleTitleChanged(p *podConn, payload []byte) {
	msg, err := wire.DecodeTitleChanged(payload)
	if err != nil {
		return
	}
	if owner := r.ownerOf(p.uuid); owner != nil {
		r.sendCtrl(owner, wire.MsgTitleChanged, wire.TitleChanged{UUID: [16]byte(p.uuid), Title: msg.Title}.Encode())
	}
}

func (r *Router) handleBell(p *podConn, payload []byte) {
	if owner := r.ownerOf(p.uuid); owner != nil {
		r.sendCtrl(owner, wire.MsgBell, wire.Bell{UUID: [16]byte(p.uuid)}.Encode())
	}
}

func (r *Router) handleShellEvent(p *podConn, payload []byte) {
	msg, err := wire.DecodeShellEvent(payload)
	if err != nil {
		return
	}
	_ = r.reg.UpdateAttrs(p.uuid, func(a *registry.Attributes) bool {
		a.LastCommand = msg.Cmd
		a.LastExit = msg.Status
		a.LastDurMs = msg.DurationMs
		a.LastJobs = msg.Jobs
		if a.Cwd != msg.Cwd {
			a.Cwd = msg.Cwd
		}
		return true
	})
	if owner := r.ownerOf(p.uuid); owner != nil {
		r.sendCtrl(owner, wire.MsgShellEvent, msg.Encode())
	}
}

func (r *Router) handleExited(p *podConn, payload []byte) {
	msg, err := wire.DecodeExited(payload)
	if err != nil {
		return
	}
	if owner := r.ownerOf(p.uuid); owner != nil {
		r.sendCtrl(owner, wire.MsgPaneExited, wire.PaneExited{UUID: [16]byte(p.uuid), ExitStatus: msg.ExitStatus}.Encode())
	}
	p.exitRelayed = true
	// The pod process exits right after emitting this; its C4 connection
	// closing drives the actual cleanup in handlePodGone.
}
