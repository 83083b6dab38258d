package ses

import (
	"net"

	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/registry"
	"github.com/warpwm/hexe/internal/wire"
)

// cliSlots tracks one-shot CLI connections awaiting a correlated reply,
// kept as distinct typed fields rather than one untyped map so each
// correlation key's shape stays explicit. Touched only by the dispatch
// goroutine.
type cliSlots struct {
	exitIntent *net.UnixConn
	floats     map[ids.PaneUUID]*net.UnixConn
	pops       map[registry.ClientID]*net.UnixConn
}

func newCLISlots() *cliSlots {
	return &cliSlots{
		floats: make(map[ids.PaneUUID]*net.UnixConn),
		pops:   make(map[registry.ClientID]*net.UnixConn),
	}
}

type newCLIMsgEvt struct {
	conn    *net.UnixConn
	header  wire.Header
	payload []byte
	err     error
}

// handleCLIOneShot reads exactly one control message from a handshake-0x04
// connection and posts it for dispatch. The reply (and closing the
// connection) is entirely the dispatch goroutine's job, since most CLI
// verbs need registry state or must wait on a forwarded MUX round trip.
func (r *Router) handleCLIOneShot(conn *net.UnixConn) {
	h, err := wire.ReadControlHeader(conn)
	if err != nil {
		conn.Close()
		return
	}
	payload, err := wire.ReadPayload(conn, h)
	if err != nil {
		conn.Close()
		return
	}
	r.post(newCLIMsgEvt{conn: conn, header: h, payload: payload})
}

func (r *Router) replyCLI(conn *net.UnixConn, t wire.MsgType, payload []byte) {
	_ = wire.WriteControl(conn, t, payload)
	conn.Close()
}
