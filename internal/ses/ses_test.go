package ses

import (
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/registry"
	"github.com/warpwm/hexe/internal/wire"
)

// discardConn satisfies net.Conn for tests that need an asyncWriter but
// never inspect what was written.
type discardConn struct{}

func (discardConn) Read([]byte) (int, error)         { return 0, io.EOF }
func (discardConn) Write(b []byte) (int, error)      { return len(b), nil }
func (discardConn) Close() error                     { return nil }
func (discardConn) LocalAddr() net.Addr               { return nil }
func (discardConn) RemoteAddr() net.Addr              { return nil }
func (discardConn) SetDeadline(time.Time) error       { return nil }
func (discardConn) SetReadDeadline(time.Time) error   { return nil }
func (discardConn) SetWriteDeadline(time.Time) error  { return nil }

// newTestRouter builds a Router with no live listener, for exercising
// dispatch-level logic against an in-memory registry only.
func newTestRouter(t *testing.T) *Router {
	t.Helper()
	return &Router{
		cfg:          Config{DefaultShell: "/bin/sh"},
		logger:       log.New(io.Discard, "", 0),
		reg:          registry.New(),
		clients:      make(map[registry.ClientID]*clientConn),
		bySession:    make(map[ids.SessionID]*clientConn),
		pods:         make(map[ids.PaneUUID]*podConn),
		paneNumToPod: make(map[registry.PaneNum]*podConn),
		cli:          newCLISlots(),
		events:       make(chan any, 16),
		closed:       make(chan struct{}),
	}
}

func mustSessionID(t *testing.T) ids.SessionID {
	t.Helper()
	sid, err := ids.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	return sid
}

func mustPaneUUID(t *testing.T) ids.PaneUUID {
	t.Helper()
	u, err := ids.NewPaneUUID()
	if err != nil {
		t.Fatalf("NewPaneUUID: %v", err)
	}
	return u
}

// registerTestClient bypasses the wire handshake and directly drives the
// registry + router bookkeeping handleRegister would otherwise perform.
func registerTestClient(t *testing.T, r *Router, name string) *clientConn {
	t.Helper()
	sid := mustSessionID(t)
	rc, err := r.reg.RegisterClient(sid, name, true)
	if err != nil {
		t.Fatalf("RegisterClient: %v", err)
	}
	c := &clientConn{id: rc.ID, sessionID: sid}
	r.clients[c.id] = c
	r.bySession[sid] = c
	return c
}

func TestEncodeControlFrameLayout(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	buf := encodeControlFrame(0x0102, payload)
	if len(buf) != 6+len(payload) {
		t.Fatalf("len = %d, want %d", len(buf), 6+len(payload))
	}
	if buf[0] != 0x02 || buf[1] != 0x01 {
		t.Fatalf("type bytes = %02x %02x, want 02 01", buf[0], buf[1])
	}
	gotLen := uint32(buf[2]) | uint32(buf[3])<<8 | uint32(buf[4])<<16 | uint32(buf[5])<<24
	if gotLen != uint32(len(payload)) {
		t.Fatalf("length field = %d, want %d", gotLen, len(payload))
	}
	for i, b := range payload {
		if buf[6+i] != b {
			t.Fatalf("payload[%d] = %02x, want %02x", i, buf[6+i], b)
		}
	}
}

func TestTargetClientResolvesBySessionAndPrefix(t *testing.T) {
	r := newTestRouter(t)
	c := registerTestClient(t, r, "pikachu")

	if got := r.targetClient(c.sessionID.String()); got != c {
		t.Fatalf("targetClient(session) = %v, want %v", got, c)
	}
	if got := r.targetClient("pikachu"); got != c {
		t.Fatalf("targetClient(name) = %v, want %v", got, c)
	}
	if got := r.targetClient(c.sessionID.String()[:8]); got != c {
		t.Fatalf("targetClient(session prefix) = %v, want %v", got, c)
	}
	if got := r.targetClient("PIKA"); got != c {
		t.Fatalf("targetClient(name prefix) = %v, want %v", got, c)
	}
	if got := r.targetClient("does-not-exist"); got != nil {
		t.Fatalf("targetClient(missing) = %v, want nil", got)
	}
}

func TestDestroyPaneByUUIDRemovesFromAllMaps(t *testing.T) {
	r := newTestRouter(t)
	c := registerTestClient(t, r, "")
	uuid := mustPaneUUID(t)

	pane, err := r.reg.CreatePane(uuid, 123, "/tmp/x.sock", c.id, c.sessionID)
	if err != nil {
		t.Fatalf("CreatePane: %v", err)
	}
	pod := &podConn{uuid: uuid, num: pane.Num, socketPath: "/tmp/x.sock"}
	r.pods[uuid] = pod
	r.paneNumToPod[pane.Num] = pod

	r.destroyPaneByUUID(uuid)

	if _, ok := r.pods[uuid]; ok {
		t.Fatal("pod should be removed from r.pods")
	}
	if _, ok := r.paneNumToPod[pane.Num]; ok {
		t.Fatal("pod should be removed from r.paneNumToPod")
	}
	if _, ok := r.reg.Pane(uuid); ok {
		t.Fatal("pane should be removed from registry")
	}
}

func TestDestroyPaneByUUIDUnknownIsNoop(t *testing.T) {
	r := newTestRouter(t)
	r.destroyPaneByUUID(mustPaneUUID(t))
}

func TestUnregisterAndDetachClearsBookkeeping(t *testing.T) {
	r := newTestRouter(t)
	c := registerTestClient(t, r, "")
	uuid := mustPaneUUID(t)
	pane, err := r.reg.CreatePane(uuid, 1, "/tmp/x.sock", c.id, c.sessionID)
	if err != nil {
		t.Fatalf("CreatePane: %v", err)
	}
	pod := &podConn{uuid: uuid, num: pane.Num, socketPath: "/tmp/x.sock", owner: c, vtGen: 1}
	r.pods[uuid] = pod
	r.paneNumToPod[pane.Num] = pod
	r.cli.pops[c.id] = nil

	sid := r.unregisterAndDetach(c, nil)
	if sid != c.sessionID {
		t.Fatalf("unregisterAndDetach returned %v, want %v", sid, c.sessionID)
	}
	if _, ok := r.clients[c.id]; ok {
		t.Fatal("client should be removed from r.clients")
	}
	if _, ok := r.bySession[c.sessionID]; ok {
		t.Fatal("client should be removed from r.bySession")
	}
	if _, ok := r.cli.pops[c.id]; ok {
		t.Fatal("pending pop slot should be cleared")
	}
	if pod.vtGen != 2 {
		t.Fatalf("pod.vtGen = %d, want 2 after detach", pod.vtGen)
	}
	if pod.owner != nil {
		t.Fatal("pod.owner should be nil after detach")
	}

	p, ok := r.reg.Pane(uuid)
	if !ok {
		t.Fatal("pane should still exist, just detached")
	}
	if p.State != registry.PaneDetached && p.State != registry.PaneSticky {
		t.Fatalf("pane state = %v, want detached or sticky", p.State)
	}
}

func TestDropClientIsIdempotent(t *testing.T) {
	r := newTestRouter(t)
	c := registerTestClient(t, r, "")

	r.dropClient(c)
	if _, ok := r.clients[c.id]; ok {
		t.Fatal("client should be gone after first dropClient")
	}
	// A second drop (e.g. both ctrl and vt read loops erroring around the
	// same time) must not panic or double-remove.
	r.dropClient(c)
}

func TestHandlePodGoneRemovesPaneAndNotifiesOwner(t *testing.T) {
	r := newTestRouter(t)
	c := registerTestClient(t, r, "")
	ownerSide, testSide := net.Pipe()
	defer testSide.Close()
	c.ctrlOut = newAsyncWriter(ownerSide, func(error) {})
	uuid := mustPaneUUID(t)
	pane, err := r.reg.CreatePane(uuid, 42, "/tmp/x.sock", c.id, c.sessionID)
	if err != nil {
		t.Fatalf("CreatePane: %v", err)
	}
	pod := &podConn{uuid: uuid, num: pane.Num}
	r.pods[uuid] = pod
	r.paneNumToPod[pane.Num] = pod

	r.handlePodGone(pod)

	if _, ok := r.pods[uuid]; ok {
		t.Fatal("pod should be removed from r.pods")
	}
	if _, ok := r.paneNumToPod[pane.Num]; ok {
		t.Fatal("pod should be removed from r.paneNumToPod")
	}
	if _, ok := r.reg.Pane(uuid); ok {
		t.Fatal("pane should be removed from registry")
	}

	_ = testSide.SetReadDeadline(time.Now().Add(time.Second))
	h, err := wire.ReadControlHeader(testSide)
	if err != nil {
		t.Fatalf("owner received no notification: %v", err)
	}
	if h.Type != wire.MsgPaneExited {
		t.Fatalf("notification type = %#04x, want pane_exited %#04x", uint16(h.Type), uint16(wire.MsgPaneExited))
	}
}

func TestHandlePodGoneUnknownPaneIsNoop(t *testing.T) {
	r := newTestRouter(t)
	pod := &podConn{uuid: mustPaneUUID(t), num: 7}
	r.handlePodGone(pod)
}

func TestCLIPopSlotsCorrelateByClientID(t *testing.T) {
	r := newTestRouter(t)
	c := registerTestClient(t, r, "")

	if _, pending := r.cli.pops[c.id]; pending {
		t.Fatal("no pop should be pending yet")
	}
	r.cli.pops[c.id] = nil
	if _, pending := r.cli.pops[c.id]; !pending {
		t.Fatal("pop slot should be stashed for this client")
	}
	delete(r.cli.pops, c.id)
	if _, pending := r.cli.pops[c.id]; pending {
		t.Fatal("pop slot should be cleared after reply")
	}
}

func TestRegisteredClientIsIndexedBySessionAndName(t *testing.T) {
	r := newTestRouter(t)
	sid, err := ids.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	rc, err := r.reg.RegisterClient(sid, "ashketchum", true)
	if err != nil {
		t.Fatalf("RegisterClient: %v", err)
	}
	c := &clientConn{id: rc.ID, sessionID: sid}
	r.clients[c.id] = c
	r.bySession[sid] = c

	if r.bySession[sid] != c {
		t.Fatal("bySession lookup should return the registered client")
	}
	if r.targetClient("ashketchum") != c {
		t.Fatal("targetClient should resolve by name after registration")
	}
}
