// Package ses implements the session router and registry daemon: it
// accepts MUX and POD connections on one listener, splices VT bytes
// between them, dispatches control messages, and persists the registry.
// Grounded on agentd's main loop (single process, one listener, fan-out to
// per-connection goroutines feeding shared state) but translated from "hub
// for a websocket relay" to "byte router between two disjoint wire
// protocols."
package ses

import (
	"errors"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/metrics"
	"github.com/warpwm/hexe/internal/registry"
	"github.com/warpwm/hexe/internal/sockutil"
	"github.com/warpwm/hexe/internal/wire"
)

var errOversizeFrame = errors.New("ses: vt frame exceeds payload cap")

// Config carries everything the router needs to start.
type Config struct {
	RuntimeDir     string
	StateDir       string
	SocketPath     string
	PodBinaryPath  string
	DefaultShell   string
	TickInterval   time.Duration
	BacklogBytes   int
	ScrapeInterval time.Duration
	Logger         *log.Logger

	// Metrics and Hub are both nil unless the caller enabled the debug
	// listener; every update site below guards against a nil Collector/Hub.
	Metrics *metrics.Collector
	Hub     *metrics.Hub
}

// Router is the single owner of all SES state: the registry, the VT
// routing fast-path maps, live connections, and CLI correlation slots.
// Every field below is touched only from the dispatch goroutine (run):
// inside SES, all state is owned by the event-loop thread.
type Router struct {
	cfg    Config
	logger *log.Logger
	reg    *registry.Registry

	listener *net.UnixListener

	clients   map[registry.ClientID]*clientConn
	bySession map[ids.SessionID]*clientConn
	pods      map[ids.PaneUUID]*podConn

	paneNumToPod map[registry.PaneNum]*podConn

	cli *cliSlots

	events chan any

	closeOnce sync.Once
	closed    chan struct{}
}

func New(cfg Config) (*Router, error) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "hexe-ses: ", log.LstdFlags)
	}

	statePath := filepath.Join(cfg.StateDir, "registry.json")
	reg, err := registry.Load(statePath, registry.IsProcessAlive)
	if err != nil {
		logger.Printf("state reload failed, starting fresh: %v", err)
		reg = registry.New()
	}

	l, err := sockutil.Listen(cfg.SocketPath)
	if err != nil {
		return nil, err
	}

	return &Router{
		cfg:          cfg,
		logger:       logger,
		reg:          reg,
		listener:     l,
		clients:      make(map[registry.ClientID]*clientConn),
		bySession:    make(map[ids.SessionID]*clientConn),
		pods:         make(map[ids.PaneUUID]*podConn),
		paneNumToPod: make(map[registry.PaneNum]*podConn),
		cli:          newCLISlots(),
		events:       make(chan any, 256),
		closed:       make(chan struct{}),
	}, nil
}

func (r *Router) post(evt any) {
	select {
	case r.events <- evt:
	case <-r.closed:
	}
}

// Run drives the accept loop and the dispatch loop until Close is called.
func (r *Router) Run() {
	go r.acceptLoop()

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case evt := <-r.events:
			r.dispatch(evt)
		case <-ticker.C:
			r.persistTick()
		case <-r.closed:
			return
		}
	}
}

func (r *Router) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
		if r.listener != nil {
			_ = r.listener.Close()
			_ = os.Remove(r.cfg.SocketPath)
		}
		for _, c := range r.clients {
			if c.ctrl != nil {
				c.ctrl.Close()
			}
			if c.vt != nil {
				c.vt.Close()
			}
		}
		for _, p := range r.pods {
			if p.vt != nil {
				p.vt.Close()
			}
			if p.ctrl != nil {
				p.ctrl.Close()
			}
		}
	})
}

func (r *Router) acceptLoop() {
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			select {
			case <-r.closed:
				return
			default:
				r.logger.Printf("accept: %v", err)
				continue
			}
		}
		go r.handleNewConn(conn.(*net.UnixConn))
	}
}

// handleNewConn reads the one-byte handshake and routes the connection to
// its class. It runs on its own goroutine so a slow or hostile peer cannot
// stall the accept loop; nothing it does touches Router state directly
// except by posting an event.
func (r *Router) handleNewConn(conn *net.UnixConn) {
	if err := sockutil.CheckPeerSameUID(conn); err != nil {
		r.logger.Printf("rejecting peer: %v", err)
		conn.Close()
		return
	}

	first := make([]byte, 1)
	if _, err := io.ReadFull(conn, first); err != nil {
		conn.Close()
		return
	}

	switch first[0] {
	case wire.HandshakeMuxControl:
		r.post(newMuxCtrlEvt{conn: conn})
	case wire.HandshakeMuxVT:
		sid := make([]byte, 32)
		if _, err := io.ReadFull(conn, sid); err != nil {
			conn.Close()
			return
		}
		sessionID, err := ids.ParseSessionID(string(sid))
		if err != nil {
			conn.Close()
			return
		}
		r.post(newMuxVTEvt{conn: conn, sessionID: sessionID})
	case wire.HandshakePodControl:
		raw := make([]byte, 16)
		if _, err := io.ReadFull(conn, raw); err != nil {
			conn.Close()
			return
		}
		uuid, err := ids.PaneUUIDFromRaw(raw)
		if err != nil {
			conn.Close()
			return
		}
		r.post(newPodCtrlEvt{conn: conn, uuid: uuid})
	case wire.HandshakeCLI:
		go r.handleCLIOneShot(conn)
	default:
		conn.Close()
	}
}

// Event types posted by reader/accept goroutines; the dispatch goroutine
// switches on the concrete type in dispatch (handlers.go).
type newMuxCtrlEvt struct{ conn *net.UnixConn }
type newMuxVTEvt struct {
	conn      *net.UnixConn
	sessionID ids.SessionID
}
type newPodCtrlEvt struct {
	conn *net.UnixConn
	uuid ids.PaneUUID
}
type clientCtrlEvt struct {
	client  *clientConn
	header  wire.Header
	payload []byte
	err     error
}
type clientVTEvt struct {
	client  *clientConn
	hdr     wire.MuxVTHeader
	payload []byte
	err     error
}
type podCtrlEvt struct {
	pod     *podConn
	header  wire.Header
	payload []byte
	err     error
}
type podVTEvt struct {
	pod     *podConn
	gen     uint64
	hdr     wire.PodVTHeader
	payload []byte
	err     error
}

func (r *Router) persistTick() {
	r.reportMetrics()
	if !r.reg.Dirty() {
		return
	}
	data := r.reg.Snapshot()
	path := filepath.Join(r.cfg.StateDir, "registry.json")
	if err := registry.SaveTo(path, data); err != nil {
		r.logger.Printf("persist: %v", err)
		return
	}
	r.reg.ClearDirty()
}

// reportMetrics refreshes the scrape-style gauges. Live pane count and
// attached client count are read off the router's own maps rather than
// pushed incrementally, the natural fit for a Prometheus gauge.
func (r *Router) reportMetrics() {
	if r.cfg.Metrics == nil {
		return
	}
	r.cfg.Metrics.LivePanes.Set(float64(len(r.pods)))
	r.cfg.Metrics.AttachedClients.Set(float64(len(r.clients)))
	r.cfg.Metrics.BacklogCapacity.Set(float64(len(r.pods) * r.cfg.BacklogBytes))
}

func (r *Router) publishEvent(eventType string, payload interface{}) {
	if r.cfg.Hub == nil {
		return
	}
	r.cfg.Hub.Publish(eventType, payload)
}

func (r *Router) errorReply(c *clientConn, reason string) {
	r.sendCtrl(c, wire.MsgError, wire.Error{Reason: reason}.Encode())
}
