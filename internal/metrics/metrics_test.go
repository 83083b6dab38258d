package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectorAddRoutedBytesNilSafe(t *testing.T) {
	var c *Collector
	c.AddRoutedBytes("mux_to_pod", 128) // must not panic
}

func TestCollectorAddRoutedBytesIgnoresNonPositive(t *testing.T) {
	c := NewCollector()
	c.AddRoutedBytes("mux_to_pod", 0)
	c.AddRoutedBytes("mux_to_pod", -5)

	srv := &Server{Collector: c, Hub: NewHub()}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	srv.Handler().ServeHTTP(rr, req)

	if strings.Contains(rr.Body.String(), `direction="mux_to_pod"`) {
		t.Fatalf("expected no mux_to_pod series without a positive Add, got:\n%s", rr.Body.String())
	}
}

func TestCollectorExposesGauges(t *testing.T) {
	c := NewCollector()
	c.LivePanes.Set(3)
	c.AttachedClients.Set(2)
	c.BacklogCapacity.Set(1 << 20)
	c.AddRoutedBytes("pod_to_mux", 64)

	srv := &Server{Collector: c, Hub: NewHub()}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	srv.Handler().ServeHTTP(rr, req)

	body := rr.Body.String()
	for _, want := range []string{
		"hexe_ses_live_panes 3",
		"hexe_ses_attached_clients 2",
		"hexe_ses_backlog_capacity_bytes",
		`hexe_ses_vt_bytes_routed_total{direction="pod_to_mux"} 64`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected /metrics body to contain %q, got:\n%s", want, body)
		}
	}
}

func TestHubAddRemovePublishDoesNotBlock(t *testing.T) {
	h := NewHub()
	ch := h.add(nil)

	h.Publish("pane_created", map[string]string{"uuid": "abc"})
	select {
	case evt := <-ch:
		if evt.Type != "pane_created" || evt.Seq != 1 {
			t.Fatalf("unexpected event: %+v", evt)
		}
	default:
		t.Fatalf("expected a buffered event after Publish")
	}

	h.remove(nil)
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after remove")
	}
}

func TestHubPublishDropsWhenSubscriberFull(t *testing.T) {
	h := NewHub()
	ch := h.add(nil)
	for i := 0; i < cap(ch)+5; i++ {
		h.Publish("pane_created", nil)
	}
	// Draining should yield no more than cap(ch) buffered events; Publish
	// must never block on a slow consumer.
	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			if count > cap(ch) {
				t.Fatalf("got %d events, want at most %d", count, cap(ch))
			}
			return
		}
	}
}
