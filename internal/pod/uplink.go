package pod

import (
	"log"
	"net"
	"sync"
	"time"

	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/wire"
)

// uplink is POD's lazily-(re)connected C4 client to SES. If SES is briefly
// unavailable (restarting), metadata pushes are dropped rather than
// buffered — SES re-derives current state from query_state on its own
// reconnect-time reconciliation, and pty/VT traffic never depends on C4.
type uplink struct {
	sesPath    string
	uuid       ids.PaneUUID
	logger     *log.Logger
	queryState chan<- struct{} // non-blocking signal to the dispatch loop

	mu      sync.Mutex
	conn    net.Conn
	pid     uint32
	sockPth string

	closed chan struct{}
}

func newUplink(sesPath string, uuid ids.PaneUUID, logger *log.Logger, queryState chan<- struct{}) *uplink {
	return &uplink{sesPath: sesPath, uuid: uuid, logger: logger, queryState: queryState, closed: make(chan struct{})}
}

// setRegistration records the fields PodRegister carries, sent on every
// (re)connect since SES may have restarted and lost them.
func (u *uplink) setRegistration(pid uint32, socketPath string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pid = pid
	u.sockPth = socketPath
}

// run keeps a C4 connection open, reconnecting with backoff on drop. POD
// only ever pushes on this connection; the one message it reads back is
// query_state, which attach's read loop decodes and hands to Pod.Run as a
// signal on the queryState channel.
func (u *uplink) run() {
	backoff := 200 * time.Millisecond
	const maxBackoff = 5 * time.Second
	for {
		select {
		case <-u.closed:
			return
		default:
		}
		conn, err := net.Dial("unix", u.sesPath)
		if err != nil {
			time.Sleep(backoff)
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = 200 * time.Millisecond
		u.attach(conn)
		select {
		case <-u.closed:
			conn.Close()
			return
		default:
		}
	}
}

func (u *uplink) attach(conn net.Conn) {
	u.mu.Lock()
	u.conn = conn
	pid, sockPath := u.pid, u.sockPth
	u.mu.Unlock()

	if err := wire.WriteAll(conn, []byte{wire.HandshakePodControl}); err != nil {
		u.drop(conn)
		return
	}
	if err := wire.WriteAll(conn, u.uuid[:]); err != nil {
		u.drop(conn)
		return
	}
	reg := wire.PodRegister{UUID: u.uuid, Pid: pid, SocketPath: sockPath}
	if err := wire.WriteControl(conn, wire.MsgPodRegister, reg.Encode()); err != nil {
		u.drop(conn)
		return
	}

	// Block on reads until the connection drops. The only message SES ever
	// sends back on C4 is query_state, asking for an immediate repeat of
	// whatever was last pushed instead of waiting for the next scrape tick.
	for {
		h, err := wire.ReadControlHeader(conn)
		if err != nil {
			u.drop(conn)
			return
		}
		payload, err := wire.ReadPayload(conn, h)
		if err != nil {
			u.drop(conn)
			return
		}
		if h.Type == wire.MsgQueryState {
			if _, err := wire.DecodeQueryState(payload); err == nil {
				select {
				case u.queryState <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (u *uplink) drop(conn net.Conn) {
	u.mu.Lock()
	if u.conn == conn {
		u.conn = nil
	}
	u.mu.Unlock()
	conn.Close()
}

func (u *uplink) send(t wire.MsgType, payload []byte) {
	u.mu.Lock()
	conn := u.conn
	u.mu.Unlock()
	if conn == nil {
		return
	}
	if err := wire.WriteControl(conn, t, payload); err != nil {
		u.drop(conn)
	}
}

func (u *uplink) sendCwdChanged(cwd string) {
	u.send(wire.MsgCwdChanged, wire.CwdChanged{UUID: u.uuid, Cwd: cwd}.Encode())
}

func (u *uplink) sendFgChanged(pid int, name string) {
	u.send(wire.MsgFgChanged, wire.FgChanged{UUID: u.uuid, Pid: uint32(pid), Name: name}.Encode())
}

func (u *uplink) sendExited(status int) {
	u.send(wire.MsgExited, wire.Exited{UUID: u.uuid, ExitStatus: int32(status)}.Encode())
}

func (u *uplink) sendShellEvent(ev wire.ShpShellEvent) {
	u.send(wire.MsgShellEvent, wire.ShellEvent{UUID: u.uuid, ShpShellEvent: ev}.Encode())
}

func (u *uplink) sendBell() {
	u.send(wire.MsgBell, wire.Bell{UUID: u.uuid}.Encode())
}

func (u *uplink) sendTitleChanged(title string) {
	u.send(wire.MsgTitleChanged, wire.TitleChanged{UUID: u.uuid, Title: title}.Encode())
}

func (u *uplink) close() {
	select {
	case <-u.closed:
	default:
		close(u.closed)
	}
	u.mu.Lock()
	if u.conn != nil {
		u.conn.Close()
	}
	u.mu.Unlock()
}
