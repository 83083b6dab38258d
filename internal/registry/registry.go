// Package registry holds SES's in-memory session/pane/detached-session
// state and the rules for moving a pane between attached, detached, sticky,
// and orphaned. Every mutation goes through this package so the dirty flag
// (see markDirty) stays accurate and the pane state machine can't be
// bypassed by a handler poking fields directly.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/warpwm/hexe/internal/ids"
)

// PaneState is a pane's position in the attach/detach/sticky/orphan lifecycle.
type PaneState uint8

const (
	PaneAttached PaneState = iota
	PaneDetached
	PaneSticky
	PaneOrphaned
)

func (s PaneState) String() string {
	switch s {
	case PaneAttached:
		return "attached"
	case PaneDetached:
		return "detached"
	case PaneSticky:
		return "sticky"
	case PaneOrphaned:
		return "orphaned"
	default:
		return "unknown"
	}
}

// ClientID is SES-local, assigned monotonically at Register.
type ClientID uint64

// PaneNum is the u16 routing key assigned at create_pane. It is distinct
// from the pane's UUID, which is stable for the shell's whole life.
type PaneNum uint16

// Attributes is the last-known pane metadata SES caches; POD is the source
// of truth, SES only mirrors what POD has pushed.
type Attributes struct {
	Cwd         string
	FgName      string
	FgPid       uint32
	LastCommand string
	LastExit    int32
	LastDurMs   uint32
	LastJobs    uint16
	Cols        uint16
	Rows        uint16
	CursorRow   uint16
	CursorCol   uint16
	CursorStyle uint8
	CursorVisible bool
	AltScreen   bool
	StickyPwd   string
	StickyKey   uint8
	Name        string
	Aux         []byte
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Pane is SES's record of one POD-owned shell.
type Pane struct {
	UUID           ids.PaneUUID
	Num            PaneNum
	Pid            uint32
	SocketPath     string
	State          PaneState
	OwnerClientID  ClientID
	HasOwner       bool
	SessionID      ids.SessionID
	HasSession     bool
	Attrs          Attributes
}

// Client is one attached MUX.
type Client struct {
	ID          ClientID
	SessionID   ids.SessionID
	Name        string
	Keepalive   bool
	HasVT       bool
	PaneUUIDs   map[ids.PaneUUID]struct{}
	LastLayout  []byte
}

// DetachedSession is a session whose MUX disconnected but whose panes live on.
type DetachedSession struct {
	SessionID ids.SessionID
	Name      string
	Layout    []byte
	PaneUUIDs []ids.PaneUUID
}

// Registry is the single owner of all SES session/pane state. It is safe
// for concurrent use, but in normal operation only the router's dispatch
// goroutine ever calls it: inside SES, all state is owned by the
// event-loop thread.
type Registry struct {
	mu sync.Mutex

	nextClientID ClientID
	nextPaneNum  PaneNum

	clients          map[ClientID]*Client
	panes            map[ids.PaneUUID]*Pane
	paneNumToUUID    map[PaneNum]ids.PaneUUID
	detachedSessions map[ids.SessionID]*DetachedSession
	stickyIndex      map[stickyKey]ids.PaneUUID

	dirty bool
}

type stickyKey struct {
	pwd string
	key uint8
}

// MaxClients is the default cap on concurrent C1 connections.
const MaxClients = 64

func New() *Registry {
	return &Registry{
		clients:          make(map[ClientID]*Client),
		panes:            make(map[ids.PaneUUID]*Pane),
		paneNumToUUID:    make(map[PaneNum]ids.PaneUUID),
		detachedSessions: make(map[ids.SessionID]*DetachedSession),
		stickyIndex:      make(map[stickyKey]ids.PaneUUID),
	}
}

func (r *Registry) markDirty() { r.dirty = true }

// Dirty reports the dirty flag, for the once-a-second persistence tick. It
// does not clear it; the tick calls ClearDirty after a successful save.
func (r *Registry) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

func (r *Registry) ClearDirty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty = false
}

// RegisterClient creates a new Client for a freshly-handshaken C1 connection.
func (r *Registry) RegisterClient(sessionID ids.SessionID, name string, keepalive bool) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.clients) >= MaxClients {
		return nil, fmt.Errorf("registry: max clients (%d) reached", MaxClients)
	}

	r.nextClientID++
	c := &Client{
		ID:        r.nextClientID,
		SessionID: sessionID,
		Name:      name,
		Keepalive: keepalive,
		PaneUUIDs: make(map[ids.PaneUUID]struct{}),
	}
	r.clients[c.ID] = c
	r.markDirty()
	return c, nil
}

func (r *Registry) Client(id ClientID) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	return c, ok
}

func (r *Registry) SetClientVT(id ClientID, has bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; ok {
		c.HasVT = has
	}
}

// RemoveClient drops a client record. Callers decide separately whether its
// panes move to detached/sticky/orphaned first — RemoveClient itself does
// not touch pane state.
func (r *Registry) RemoveClient(id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
	r.markDirty()
}

// allocPaneNumLocked assigns the next unused routing key. Wrapping past 65535
// skips any number still in use and keeps going, since a 16-bit key space
// outlives any plausible session's pane churn only if we don't hand back
// stale numbers.
func (r *Registry) allocPaneNumLocked() PaneNum {
	for {
		r.nextPaneNum++
		if _, inUse := r.paneNumToUUID[r.nextPaneNum]; !inUse && r.nextPaneNum != 0 {
			return r.nextPaneNum
		}
	}
}

// CreatePane registers a brand-new attached pane, owned by client.
func (r *Registry) CreatePane(uuid ids.PaneUUID, pid uint32, socketPath string, owner ClientID, sessionID ids.SessionID) (*Pane, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.panes[uuid]; exists {
		return nil, fmt.Errorf("registry: pane %s already exists", uuid)
	}

	num := r.allocPaneNumLocked()
	p := &Pane{
		UUID:          uuid,
		Num:           num,
		Pid:           pid,
		SocketPath:    socketPath,
		State:         PaneAttached,
		OwnerClientID: owner,
		HasOwner:      true,
		SessionID:     sessionID,
		HasSession:    true,
		Attrs:         Attributes{CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}
	r.panes[uuid] = p
	r.paneNumToUUID[num] = uuid

	if c, ok := r.clients[owner]; ok {
		c.PaneUUIDs[uuid] = struct{}{}
	}
	r.markDirty()
	return p, nil
}

func (r *Registry) Pane(uuid ids.PaneUUID) (*Pane, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[uuid]
	return p, ok
}

func (r *Registry) PaneByNum(num PaneNum) (*Pane, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uuid, ok := r.paneNumToUUID[num]
	if !ok {
		return nil, false
	}
	p, ok := r.panes[uuid]
	return p, ok
}

// RemovePane deletes a pane record entirely (terminal state: child exit).
func (r *Registry) RemovePane(uuid ids.PaneUUID) (*Pane, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[uuid]
	if !ok {
		return nil, false
	}
	delete(r.panes, uuid)
	delete(r.paneNumToUUID, p.Num)
	if p.HasOwner {
		if c, ok := r.clients[p.OwnerClientID]; ok {
			delete(c.PaneUUIDs, uuid)
		}
	}
	if p.Attrs.StickyPwd != "" {
		delete(r.stickyIndex, stickyKey{pwd: p.Attrs.StickyPwd, key: p.Attrs.StickyKey})
	}
	r.markDirty()
	return p, true
}

// DetachClientPanes moves every pane owned by client into the detached
// state, grouped under its session_id. Panes with a sticky pwd set instead
// become Sticky. SES calls it on explicit detach and on every client
// disconnect alike; the client's Keepalive flag is not consulted, so a
// keepalive=false client's panes are detached too, not destroyed.
func (r *Registry) DetachClientPanes(clientID ClientID, layout []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		return
	}

	ds := &DetachedSession{SessionID: c.SessionID, Name: c.Name, Layout: layout}
	for uuid := range c.PaneUUIDs {
		p, ok := r.panes[uuid]
		if !ok {
			continue
		}
		p.HasOwner = false
		if p.Attrs.StickyPwd != "" {
			p.State = PaneSticky
			r.stickyIndex[stickyKey{pwd: p.Attrs.StickyPwd, key: p.Attrs.StickyKey}] = uuid
			continue
		}
		p.State = PaneDetached
		ds.PaneUUIDs = append(ds.PaneUUIDs, uuid)
	}
	if len(ds.PaneUUIDs) > 0 {
		r.detachedSessions[c.SessionID] = ds
	}
	r.markDirty()
}

// MatchReason describes why Reattach failed.
type MatchReason int

const (
	MatchAmbiguous MatchReason = iota
	MatchNotFound
)

func (m MatchReason) Error() string {
	if m == MatchAmbiguous {
		return "ambiguous_session_id"
	}
	return "session_not_found"
}

// MatchDetached implements a three-tier match: session_id hex prefix,
// case-insensitive exact name, then case-insensitive name prefix of
// length >= 3.
func (r *Registry) MatchDetached(prefix string) (*DetachedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var byIDPrefix, byExactName, byNamePrefix []*DetachedSession
	lowerPrefix := toLower(prefix)
	for _, ds := range r.detachedSessions {
		if ds.SessionID.HasPrefix(prefix) {
			byIDPrefix = append(byIDPrefix, ds)
		}
		if toLower(ds.Name) == lowerPrefix {
			byExactName = append(byExactName, ds)
		}
		if len(prefix) >= 3 && len(ds.Name) >= len(prefix) && toLower(ds.Name[:len(prefix)]) == lowerPrefix {
			byNamePrefix = append(byNamePrefix, ds)
		}
	}

	for _, tier := range [][]*DetachedSession{byIDPrefix, byExactName, byNamePrefix} {
		if len(tier) == 1 {
			return tier[0], nil
		}
		if len(tier) > 1 {
			return nil, MatchAmbiguous
		}
	}
	return nil, MatchNotFound
}

// Reattach atomically moves every pane of a matched detached session to the
// new client and returns the session's layout blob and pane list.
func (r *Registry) Reattach(ds *DetachedSession, newOwner ClientID) (layout []byte, panes []*Pane) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[newOwner]
	if !ok {
		return nil, nil
	}

	for _, uuid := range ds.PaneUUIDs {
		p, ok := r.panes[uuid]
		if !ok {
			continue
		}
		p.State = PaneAttached
		p.HasOwner = true
		p.OwnerClientID = newOwner
		p.HasSession = true
		p.SessionID = c.SessionID
		c.PaneUUIDs[uuid] = struct{}{}
		panes = append(panes, p)
	}
	delete(r.detachedSessions, ds.SessionID)
	r.markDirty()
	return ds.Layout, panes
}

// OrphanPane drops ownership without affecting session grouping, so the
// pane can be adopted by any future client regardless of session identity.
func (r *Registry) OrphanPane(uuid ids.PaneUUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[uuid]
	if !ok {
		return fmt.Errorf("registry: pane %s not found", uuid)
	}
	if p.HasOwner {
		if c, ok := r.clients[p.OwnerClientID]; ok {
			delete(c.PaneUUIDs, uuid)
		}
	}
	p.HasOwner = false
	p.HasSession = false
	p.State = PaneOrphaned
	r.markDirty()
	return nil
}

func (r *Registry) ListOrphaned() []ids.PaneUUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ids.PaneUUID
	for uuid, p := range r.panes {
		if p.State == PaneOrphaned {
			out = append(out, uuid)
		}
	}
	return out
}

// AdoptPane reparents an orphaned pane to newOwner.
func (r *Registry) AdoptPane(uuid ids.PaneUUID, newOwner ClientID) (*Pane, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[uuid]
	if !ok || p.State != PaneOrphaned {
		return nil, fmt.Errorf("registry: pane %s not orphaned", uuid)
	}
	c, ok := r.clients[newOwner]
	if !ok {
		return nil, fmt.Errorf("registry: client %d not found", newOwner)
	}
	p.State = PaneAttached
	p.HasOwner = true
	p.OwnerClientID = newOwner
	p.HasSession = true
	p.SessionID = c.SessionID
	c.PaneUUIDs[uuid] = struct{}{}
	r.markDirty()
	return p, nil
}

// SetSticky records the (pwd, key) a pane should be reclaimed under once
// its owner disconnects.
func (r *Registry) SetSticky(uuid ids.PaneUUID, pwd string, key uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[uuid]
	if !ok {
		return fmt.Errorf("registry: pane %s not found", uuid)
	}
	p.Attrs.StickyPwd = pwd
	p.Attrs.StickyKey = key
	r.markDirty()
	return nil
}

// FindSticky looks up a pane by (pwd, key); it must still be in the Sticky
// state (its owner must have actually disconnected) to be returned.
func (r *Registry) FindSticky(pwd string, key uint8) (ids.PaneUUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uuid, ok := r.stickyIndex[stickyKey{pwd: pwd, key: key}]
	if !ok {
		return ids.PaneUUID{}, false
	}
	p, ok := r.panes[uuid]
	if !ok || p.State != PaneSticky {
		return ids.PaneUUID{}, false
	}
	return uuid, true
}

// ReclaimSticky moves a sticky pane back to attached under newOwner,
// removing it from the sticky index.
func (r *Registry) ReclaimSticky(uuid ids.PaneUUID, newOwner ClientID) (*Pane, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[uuid]
	if !ok || p.State != PaneSticky {
		return nil, fmt.Errorf("registry: pane %s not sticky", uuid)
	}
	c, ok := r.clients[newOwner]
	if !ok {
		return nil, fmt.Errorf("registry: client %d not found", newOwner)
	}
	delete(r.stickyIndex, stickyKey{pwd: p.Attrs.StickyPwd, key: p.Attrs.StickyKey})
	p.State = PaneAttached
	p.HasOwner = true
	p.OwnerClientID = newOwner
	p.HasSession = true
	p.SessionID = c.SessionID
	c.PaneUUIDs[uuid] = struct{}{}
	r.markDirty()
	return p, nil
}

// UpdateAttrs applies a mutation function under the registry lock and marks
// dirty only if the mutation actually changed something (callers set a
// local "changed" flag themselves; see ses handlers for the no-op check
// behind update_pane_aux's idempotence property).
func (r *Registry) UpdateAttrs(uuid ids.PaneUUID, fn func(*Attributes) (changed bool)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.panes[uuid]
	if !ok {
		return fmt.Errorf("registry: pane %s not found", uuid)
	}
	if fn(&p.Attrs) {
		p.Attrs.UpdatedAt = time.Now()
		r.markDirty()
	}
	return nil
}

// ListSessions summarizes every session: attached sessions come from live
// clients, detached ones from the detached-session table.
type SessionSummary struct {
	SessionID ids.SessionID
	Name      string
	Attached  bool
	PaneCount int
}

func (r *Registry) ListSessions() []SessionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []SessionSummary
	for _, c := range r.clients {
		out = append(out, SessionSummary{SessionID: c.SessionID, Name: c.Name, Attached: true, PaneCount: len(c.PaneUUIDs)})
	}
	for _, ds := range r.detachedSessions {
		out = append(out, SessionSummary{SessionID: ds.SessionID, Name: ds.Name, Attached: false, PaneCount: len(ds.PaneUUIDs)})
	}
	return out
}

// ResolveTarget resolves a targeted-message string, trying in order: full
// session_id hex, full pane UUID hex, then (4-31 chars) a case-insensitive
// prefix of a client's session name or session_id hex, then a pane UUID
// hex prefix or exact pane name.
func (r *Registry) ResolveTarget(target string) (*Pane, *Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sid, err := ids.ParseSessionID(target); err == nil {
		for _, c := range r.clients {
			if c.SessionID == sid {
				return nil, c, nil
			}
		}
	}
	if uuid, err := ids.ParsePaneUUID(target); err == nil {
		if p, ok := r.panes[uuid]; ok {
			return p, nil, nil
		}
	}
	if len(target) >= 4 && len(target) <= 31 {
		lowerTarget := toLower(target)
		for _, c := range r.clients {
			if (len(c.Name) >= len(target) && toLower(c.Name[:len(target)]) == lowerTarget) || c.SessionID.HasPrefix(target) {
				return nil, c, nil
			}
		}
		for uuid, p := range r.panes {
			if uuid.HasPrefix(target) || toLower(p.Attrs.Name) == lowerTarget {
				return p, nil, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("registry: no target matching %q", target)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
