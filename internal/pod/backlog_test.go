package pod

import "testing"

func TestBacklogRingDropsOldestWithClient(t *testing.T) {
	b := NewBacklog(8)
	b.Append([]byte("abcdefgh"), true)
	if paused := b.Append([]byte("ij"), true); paused {
		t.Fatal("ring with client attached must never pause")
	}
	got := b.DrainAndClear()
	if string(got) != "cdefghij" {
		t.Fatalf("expected oldest bytes dropped, got %q", got)
	}
}

func TestBacklogPausesWhenFullNoClient(t *testing.T) {
	b := NewBacklog(4)
	if paused := b.Append([]byte("ab"), false); paused {
		t.Fatal("should not pause before reaching capacity")
	}
	if paused := b.Append([]byte("cd"), false); !paused {
		t.Fatal("expected pause once capacity reached")
	}
	if !b.Paused() {
		t.Fatal("Paused() should reflect pause state")
	}
	if paused := b.Append([]byte("ef"), false); !paused {
		t.Fatal("expected to remain paused")
	}
	if got := b.Len(); got != 4 {
		t.Fatalf("expected no growth past capacity, got %d bytes", got)
	}
}

func TestBacklogDrainClearsPause(t *testing.T) {
	b := NewBacklog(4)
	b.Append([]byte("abcd"), false)
	if !b.Paused() {
		t.Fatal("expected paused before drain")
	}
	out := b.DrainAndClear()
	if string(out) != "abcd" {
		t.Fatalf("unexpected drained content: %q", out)
	}
	if b.Paused() {
		t.Fatal("expected pause cleared after drain")
	}
	if b.Len() != 0 {
		t.Fatal("expected empty backlog after drain")
	}
}

func TestBacklogClearOnFormFeed(t *testing.T) {
	b := NewBacklog(64)
	b.Append([]byte("stale output"), true)
	b.Append([]byte("\x0cfresh screen"), true)
	got := b.DrainAndClear()
	if string(got) != "\x0cfresh screen" {
		t.Fatalf("expected form-feed to clear prior content, got %q", got)
	}
}

func TestBacklogClearOnEraseScrollback(t *testing.T) {
	b := NewBacklog(64)
	b.Append([]byte("old scrollback"), true)
	b.Append([]byte("\x1b[3Jredraw"), true)
	got := b.DrainAndClear()
	if string(got) != "\x1b[3Jredraw" {
		t.Fatalf("expected erase-scrollback to clear prior content, got %q", got)
	}
}
