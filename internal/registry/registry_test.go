package registry

import (
	"testing"

	"github.com/warpwm/hexe/internal/ids"
)

func mustPaneUUID(t *testing.T) ids.PaneUUID {
	t.Helper()
	u, err := ids.NewPaneUUID()
	if err != nil {
		t.Fatalf("NewPaneUUID: %v", err)
	}
	return u
}

func mustSessionID(t *testing.T) ids.SessionID {
	t.Helper()
	s, err := ids.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	return s
}

func TestCreatePaneAssignsDistinctNums(t *testing.T) {
	r := New()
	sid := mustSessionID(t)
	c, err := r.RegisterClient(sid, "", true)
	if err != nil {
		t.Fatalf("RegisterClient: %v", err)
	}

	u1, u2 := mustPaneUUID(t), mustPaneUUID(t)
	p1, err := r.CreatePane(u1, 100, "/tmp/pod-1.sock", c.ID, sid)
	if err != nil {
		t.Fatalf("CreatePane: %v", err)
	}
	p2, err := r.CreatePane(u2, 200, "/tmp/pod-2.sock", c.ID, sid)
	if err != nil {
		t.Fatalf("CreatePane: %v", err)
	}
	if p1.Num == p2.Num {
		t.Fatalf("expected distinct pane nums, got %d twice", p1.Num)
	}

	got, ok := r.PaneByNum(p1.Num)
	if !ok || got.UUID != u1 {
		t.Fatalf("PaneByNum(%d) = %+v, %v; want uuid %s", p1.Num, got, ok, u1)
	}
}

func TestRemovePaneClearsReverseMapping(t *testing.T) {
	r := New()
	sid := mustSessionID(t)
	c, _ := r.RegisterClient(sid, "", true)
	u := mustPaneUUID(t)
	p, err := r.CreatePane(u, 1, "sock", c.ID, sid)
	if err != nil {
		t.Fatalf("CreatePane: %v", err)
	}

	r.RemovePane(u)

	if _, ok := r.Pane(u); ok {
		t.Fatal("pane should be gone after RemovePane")
	}
	if _, ok := r.PaneByNum(p.Num); ok {
		t.Fatal("pane num should be unmapped after RemovePane")
	}
}

func TestDetachMovesOwnedPanesAndReattachRestores(t *testing.T) {
	r := New()
	sid := mustSessionID(t)
	c, _ := r.RegisterClient(sid, "pikachu", true)
	u1, u2 := mustPaneUUID(t), mustPaneUUID(t)
	r.CreatePane(u1, 1, "s1", c.ID, sid)
	r.CreatePane(u2, 2, "s2", c.ID, sid)

	r.DetachClientPanes(c.ID, []byte(`{"layout":true}`))
	r.RemoveClient(c.ID)

	p1, _ := r.Pane(u1)
	if p1.State != PaneDetached {
		t.Fatalf("expected pane detached, got %s", p1.State)
	}

	ds, err := r.MatchDetached("pika")
	if err != nil {
		t.Fatalf("MatchDetached: %v", err)
	}
	if ds.Name != "pikachu" {
		t.Fatalf("matched wrong session: %+v", ds)
	}

	newSid := mustSessionID(t)
	newClient, _ := r.RegisterClient(newSid, "", true)
	layout, panes := r.Reattach(ds, newClient.ID)
	if string(layout) != `{"layout":true}` {
		t.Fatalf("layout mismatch: %q", layout)
	}
	if len(panes) != 2 {
		t.Fatalf("expected 2 reattached panes, got %d", len(panes))
	}
	for _, p := range panes {
		if p.State != PaneAttached || !p.HasOwner || p.OwnerClientID != newClient.ID {
			t.Fatalf("pane %s not properly reattached: %+v", p.UUID, p)
		}
	}
}

func TestMatchDetachedAmbiguous(t *testing.T) {
	r := New()
	sid1, sid2 := mustSessionID(t), mustSessionID(t)
	c1, _ := r.RegisterClient(sid1, "work", true)
	c2, _ := r.RegisterClient(sid2, "worker", true)
	r.CreatePane(mustPaneUUID(t), 1, "s1", c1.ID, sid1)
	r.CreatePane(mustPaneUUID(t), 2, "s2", c2.ID, sid2)
	r.DetachClientPanes(c1.ID, nil)
	r.DetachClientPanes(c2.ID, nil)

	_, err := r.MatchDetached("wor")
	if err != MatchAmbiguous {
		t.Fatalf("expected ambiguous match, got %v", err)
	}
}

func TestStickyRebind(t *testing.T) {
	r := New()
	sid := mustSessionID(t)
	c, _ := r.RegisterClient(sid, "", true)
	u := mustPaneUUID(t)
	r.CreatePane(u, 1, "s1", c.ID, sid)

	if err := r.SetSticky(u, "/tmp/a", 'f'); err != nil {
		t.Fatalf("SetSticky: %v", err)
	}
	r.DetachClientPanes(c.ID, nil)
	r.RemoveClient(c.ID)

	p, _ := r.Pane(u)
	if p.State != PaneSticky {
		t.Fatalf("expected sticky state, got %s", p.State)
	}

	found, ok := r.FindSticky("/tmp/a", 'f')
	if !ok || found != u {
		t.Fatalf("FindSticky did not return original pane: %v, %v", found, ok)
	}
}

func TestOrphanAndAdopt(t *testing.T) {
	r := New()
	sid := mustSessionID(t)
	c1, _ := r.RegisterClient(sid, "", true)
	u := mustPaneUUID(t)
	r.CreatePane(u, 1, "s1", c1.ID, sid)

	if err := r.OrphanPane(u); err != nil {
		t.Fatalf("OrphanPane: %v", err)
	}
	orphans := r.ListOrphaned()
	if len(orphans) != 1 || orphans[0] != u {
		t.Fatalf("expected pane in orphan list, got %v", orphans)
	}

	sid2 := mustSessionID(t)
	c2, _ := r.RegisterClient(sid2, "", true)
	if _, err := r.AdoptPane(u, c2.ID); err != nil {
		t.Fatalf("AdoptPane: %v", err)
	}

	orphans = r.ListOrphaned()
	if len(orphans) != 0 {
		t.Fatalf("expected no orphans after adopt, got %v", orphans)
	}
}

func TestMaxClientsEnforced(t *testing.T) {
	r := New()
	for i := 0; i < MaxClients; i++ {
		if _, err := r.RegisterClient(mustSessionID(t), "", false); err != nil {
			t.Fatalf("RegisterClient %d: %v", i, err)
		}
	}
	if _, err := r.RegisterClient(mustSessionID(t), "", false); err == nil {
		t.Fatal("expected error once MaxClients is reached")
	}
}
