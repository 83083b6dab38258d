package pod

import (
	"bytes"
	"os"
	"sync"
)

// formFeed is the form-feed heuristic clear trigger.
const formFeed = 0x0C

// eraseScrollback is ESC [ 3 J, the ANSI erase-scrollback sequence.
var eraseScrollback = []byte{0x1b, '[', '3', 'J'}

// Backlog is POD's fixed-capacity ring of PTY output bytes, held for
// replay on (re)attach. With a client attached it behaves as a true ring,
// dropping the oldest bytes on overflow. With no client it accepts bytes
// only while capacity remains and then pauses PTY reads — the sole
// backpressure mechanism against an unread pane.
type Backlog struct {
	mu       sync.Mutex
	capacity int
	data     []byte
	paused   bool
	spill    *os.File // best-effort debug mirror, never read back into the wire path
}

func NewBacklog(capacity int) *Backlog {
	return &Backlog{capacity: capacity}
}

// SetSpillFile attaches an optional append-only mirror of every chunk
// passed to Append, including bytes the ring drops or does not keep, for
// out-of-band inspection. It never participates in the ring/pause logic.
func (b *Backlog) SetSpillFile(f *os.File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spill = f
}

// Append adds freshly-read PTY bytes. hasClient selects ring-with-drop vs
// append-until-full-then-pause. It returns whether the backlog is paused
// after this append, which the caller uses to decide whether to keep
// reading the PTY.
func (b *Backlog) Append(data []byte, hasClient bool) (pausedNow bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if containsClearSequence(data) {
		b.data = b.data[:0]
	}

	if b.spill != nil {
		_, _ = b.spill.Write(data)
	}

	if hasClient {
		b.data = append(b.data, data...)
		if len(b.data) > b.capacity {
			b.data = append([]byte(nil), b.data[len(b.data)-b.capacity:]...)
		}
		b.paused = false
		return false
	}

	room := b.capacity - len(b.data)
	if room <= 0 {
		b.paused = true
		return true
	}
	if len(data) > room {
		data = data[:room]
	}
	b.data = append(b.data, data...)
	if len(b.data) >= b.capacity {
		b.paused = true
	}
	return b.paused
}

func (b *Backlog) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// DrainAndClear returns every held byte and empties the ring, clearing
// pause. Called once when a new VT client's replay has been sent.
func (b *Backlog) DrainAndClear() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.data
	b.data = nil
	b.paused = false
	return out
}

func (b *Backlog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

func containsClearSequence(data []byte) bool {
	return bytes.IndexByte(data, formFeed) != -1 || bytes.Contains(data, eraseScrollback)
}
