package ses

import (
	"net"

	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/registry"
	"github.com/warpwm/hexe/internal/wire"
)

// podConn is SES's view of one POD: the C3 VT connection it dials out to
// the POD's socket, and the C4 control connection the POD dials back in.
type podConn struct {
	uuid       ids.PaneUUID
	num        registry.PaneNum
	socketPath string

	vt    *net.UnixConn // C3, SES is the client here; nil while detached
	vtOut *asyncWriter
	vtGen uint64 // bumped on every redial, read loops check it to self-retire

	ctrl *net.UnixConn // C4, accepted from POD

	owner *clientConn // current VT destination for this pod's output, nil if detached

	exitRelayed bool   // true once a real MsgExited has been forwarded to the owner
	aliasName   string // non-empty if pod@<aliasName>.sock currently points at socketPath
}

// podVTReadLoop reads C3 output/backlog_end frames from one POD and posts
// them for the dispatch goroutine to reframe as C2 and splice to the owner.
// gen pins this goroutine to one dial; dispatch drops events from a stale
// gen after a redial has already replaced p.vt.
func (r *Router) podVTReadLoop(p *podConn, conn *net.UnixConn, gen uint64) {
	for {
		h, err := wire.ReadPodVTHeader(conn)
		if err != nil {
			r.post(podVTEvt{pod: p, gen: gen, err: err})
			return
		}
		if h.Len > wire.MaxPayloadLen {
			r.post(podVTEvt{pod: p, gen: gen, err: errOversizeFrame})
			return
		}
		var payload []byte
		if h.Len > 0 {
			payload, err = wire.ReadExact(conn, int(h.Len))
			if err != nil {
				r.post(podVTEvt{pod: p, gen: gen, err: err})
				return
			}
		}
		r.post(podVTEvt{pod: p, gen: gen, hdr: h, payload: payload})
	}
}

// podCtrlReadLoop reads C4 metadata pushes from one POD.
func (r *Router) podCtrlReadLoop(p *podConn) {
	for {
		h, err := wire.ReadControlHeader(p.ctrl)
		if err != nil {
			r.post(podCtrlEvt{pod: p, err: err})
			return
		}
		payload, err := wire.ReadPayload(p.ctrl, h)
		if err != nil {
			r.post(podCtrlEvt{pod: p, err: err})
			return
		}
		r.post(podCtrlEvt{pod: p, header: h, payload: payload})
	}
}
