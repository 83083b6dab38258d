// Package metrics is SES's optional observability surface: a prometheus
// registry of router-level gauges/counters plus a loopback websocket feed
// of routing events, both served off the same debug listener. Neither one
// carries C1-C5 wire traffic; they are additive, off by default, and exist
// only because agentd's own go.mod already paid for
// prometheus/client_golang without a single call site to use it.
package metrics

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the gauges and counters SES updates as it routes traffic.
type Collector struct {
	LivePanes        prometheus.Gauge
	AttachedClients  prometheus.Gauge
	BacklogCapacity  prometheus.Gauge
	VTBytesRouted    *prometheus.CounterVec
	registry         *prometheus.Registry
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		LivePanes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hexe_ses_live_panes",
			Help: "Number of panes currently tracked by this session router.",
		}),
		AttachedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hexe_ses_attached_clients",
			Help: "Number of MUX clients currently registered with this session router.",
		}),
		BacklogCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hexe_ses_backlog_capacity_bytes",
			Help: "Total backlog ring capacity committed across all live pods (configured size times pane count, not live occupancy).",
		}),
		VTBytesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hexe_ses_vt_bytes_routed_total",
			Help: "VT payload bytes spliced between POD and MUX, labeled by direction.",
		}, []string{"direction"}),
	}
	reg.MustRegister(c.LivePanes, c.AttachedClients, c.BacklogCapacity, c.VTBytesRouted)
	return c
}

func (c *Collector) AddRoutedBytes(direction string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.VTBytesRouted.WithLabelValues(direction).Add(float64(n))
}

// Event is the envelope shape for the debug websocket feed, grounded on
// agentd's {v, type, ts, seq, payload} control-plane frame, used here
// in the opposite direction: SES is the server pushing to dashboards, not
// a client dialing out.
type Event struct {
	V       int         `json:"v"`
	Type    string      `json:"type"`
	Ts      int64       `json:"ts"`
	Seq     uint64      `json:"seq"`
	Payload interface{} `json:"payload"`
}

// Hub fans out routing events to every connected debug websocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
	seq     uint64
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan Event)}
}

func (h *Hub) add(conn *websocket.Conn) chan Event {
	ch := make(chan Event, 32)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

// Publish sends an event to every connected debug client. Callers pass no
// timestamp: Publish stamps each event itself with time.Now in Unix
// milliseconds, plus the next sequence number.
func (h *Hub) Publish(eventType string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	evt := Event{V: 1, Type: eventType, Ts: time.Now().UnixMilli(), Seq: h.seq, Payload: payload}
	for conn, ch := range h.clients {
		select {
		case ch <- evt:
		default:
			// Slow consumer: drop the event rather than block routing.
			_ = conn
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves /metrics and /ws on one loopback-only listener.
type Server struct {
	Collector *Collector
	Hub       *Hub
	Logger    *log.Logger
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.promRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

func (s *Server) promRegistry() *prometheus.Registry {
	return s.Collector.registry
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Printf("debug ws upgrade: %v", err)
		}
		return
	}
	ch := s.Hub.add(conn)
	defer func() {
		s.Hub.remove(conn)
		conn.Close()
	}()

	// Drain and discard anything the client sends; this feed is read-only.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for evt := range ch {
		b, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

// ListenAndServe starts the debug HTTP server on addr, blocking until it
// errors. Callers run this in its own goroutine.
func ListenAndServe(addr string, s *Server) error {
	return http.ListenAndServe(addr, s.Handler())
}
