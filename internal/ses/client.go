package ses

import (
	"net"

	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/registry"
	"github.com/warpwm/hexe/internal/wire"
)

// clientConn is SES's view of one attached MUX: its C1 control connection
// (always present once registered) and its C2 VT connection (nil until the
// second handshake pairs it).
type clientConn struct {
	id registry.ClientID

	ctrl    *net.UnixConn
	ctrlOut *asyncWriter

	vt    *net.UnixConn
	vtOut *asyncWriter

	sessionID  ids.SessionID
	lastLayout []byte
}

func (r *Router) sendCtrl(c *clientConn, t wire.MsgType, payload []byte) {
	if c == nil || c.ctrlOut == nil {
		return
	}
	c.ctrlOut.Send(encodeControlFrame(t, payload))
}

func encodeControlFrame(t wire.MsgType, payload []byte) []byte {
	buf := make([]byte, wire.ControlHeaderLen+len(payload))
	buf[0] = byte(t)
	buf[1] = byte(t >> 8)
	n := uint32(len(payload))
	buf[2] = byte(n)
	buf[3] = byte(n >> 8)
	buf[4] = byte(n >> 16)
	buf[5] = byte(n >> 24)
	copy(buf[6:], payload)
	return buf
}

// clientCtrlReadLoop reads control messages off one MUX's C1 and posts them
// to the dispatch channel. It never interprets them itself — every
// decision about state lives in the dispatch goroutine.
func (r *Router) clientCtrlReadLoop(c *clientConn) {
	for {
		h, err := wire.ReadControlHeader(c.ctrl)
		if err != nil {
			r.post(clientCtrlEvt{client: c, err: err})
			return
		}
		payload, err := wire.ReadPayload(c.ctrl, h)
		if err != nil {
			r.post(clientCtrlEvt{client: c, err: err})
			return
		}
		r.post(clientCtrlEvt{client: c, header: h, payload: payload})
	}
}

// clientVTReadLoop reads C2 VT frames (MUX -> SES -> POD input/resize).
func (r *Router) clientVTReadLoop(c *clientConn) {
	for {
		h, err := wire.ReadMuxVTHeader(c.vt)
		if err != nil {
			r.post(clientVTEvt{client: c, err: err})
			return
		}
		if h.Len > wire.MaxPayloadLen {
			r.post(clientVTEvt{client: c, err: errOversizeFrame})
			return
		}
		var payload []byte
		if h.Len > 0 {
			payload, err = wire.ReadExact(c.vt, int(h.Len))
			if err != nil {
				r.post(clientVTEvt{client: c, err: err})
				return
			}
		}
		r.post(clientVTEvt{client: c, hdr: h, payload: payload})
	}
}
