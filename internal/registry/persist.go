package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/warpwm/hexe/internal/ids"
)

// snapshot is the on-disk shape of the registry. The layout blob is treated
// as opaque bytes exactly as SES treats it in memory; it round-trips
// through JSON as base64 automatically via []byte's MarshalJSON.
type snapshot struct {
	FormatVersion int                `json:"format_version"`
	Clients       []clientSnapshot   `json:"clients"`
	Panes         []paneSnapshot     `json:"panes"`
	Detached      []detachedSnapshot `json:"detached"`
}

type clientSnapshot struct {
	ID        ClientID `json:"id"`
	SessionID string   `json:"session_id"`
	Name      string   `json:"name"`
	Keepalive bool     `json:"keepalive"`
}

type paneSnapshot struct {
	UUID       string     `json:"uuid"`
	Num        PaneNum    `json:"num"`
	Pid        uint32     `json:"pid"`
	SocketPath string     `json:"socket_path"`
	State      PaneState  `json:"state"`
	OwnerID    ClientID   `json:"owner_id,omitempty"`
	HasOwner   bool       `json:"has_owner"`
	SessionID  string     `json:"session_id,omitempty"`
	HasSession bool       `json:"has_session"`
	Attrs      Attributes `json:"attrs"`
}

type detachedSnapshot struct {
	SessionID string   `json:"session_id"`
	Name      string   `json:"name"`
	Layout    []byte   `json:"layout"`
	Panes     []string `json:"panes"`
}

// Snapshot builds the serializable view of the current registry state.
func (r *Registry) Snapshot() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := snapshot{FormatVersion: 1}
	for _, c := range r.clients {
		s.Clients = append(s.Clients, clientSnapshot{
			ID: c.ID, SessionID: c.SessionID.String(), Name: c.Name, Keepalive: c.Keepalive,
		})
	}
	for uuid, p := range r.panes {
		s.Panes = append(s.Panes, paneSnapshot{
			UUID: uuid.String(), Num: p.Num, Pid: p.Pid, SocketPath: p.SocketPath,
			State: p.State, OwnerID: p.OwnerClientID, HasOwner: p.HasOwner,
			SessionID: p.SessionID.String(), HasSession: p.HasSession, Attrs: p.Attrs,
		})
	}
	for _, ds := range r.detachedSessions {
		var panes []string
		for _, u := range ds.PaneUUIDs {
			panes = append(panes, u.String())
		}
		s.Detached = append(s.Detached, detachedSnapshot{
			SessionID: ds.SessionID.String(), Name: ds.Name, Layout: ds.Layout, Panes: panes,
		})
	}

	data, err := json.Marshal(s)
	if err != nil {
		// Marshaling our own struct tree cannot fail in practice; surface
		// an empty snapshot rather than panicking the event loop.
		return nil
	}
	return data
}

// SaveTo writes data to path atomically: write-temp-then-rename. Grounded
// on agentd's queue.Queue.compact, which uses the same
// tmp-then-rename sequence for its journal compaction.
func SaveTo(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("registry: create state dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("registry: write temp state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("registry: rename state file: %w", err)
	}
	return nil
}

// Load restores a registry from a previously-saved snapshot. isAlive is
// used to drop any pane whose POD process no longer exists (signal 0)
// during startup reconciliation.
func Load(path string, isAlive func(pid int) bool) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read state file: %w", err)
	}

	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("registry: parse state file: %w", err)
	}

	r := New()
	for _, cs := range s.Clients {
		sid, err := ids.ParseSessionID(cs.SessionID)
		if err != nil {
			continue
		}
		r.nextClientID = maxOf(r.nextClientID, cs.ID)
		r.clients[cs.ID] = &Client{
			ID: cs.ID, SessionID: sid, Name: cs.Name, Keepalive: cs.Keepalive,
			PaneUUIDs: make(map[ids.PaneUUID]struct{}),
		}
	}
	for _, ps := range s.Panes {
		if !isAlive(int(ps.Pid)) {
			continue
		}
		uuid, err := ids.ParsePaneUUID(ps.UUID)
		if err != nil {
			continue
		}
		r.nextPaneNum = maxOf(r.nextPaneNum, ps.Num)
		p := &Pane{
			UUID: uuid, Num: ps.Num, Pid: ps.Pid, SocketPath: ps.SocketPath,
			State: ps.State, OwnerClientID: ps.OwnerID, HasOwner: ps.HasOwner,
			HasSession: ps.HasSession, Attrs: ps.Attrs,
		}
		if sid, err := ids.ParseSessionID(ps.SessionID); err == nil {
			p.SessionID = sid
		}
		r.panes[uuid] = p
		r.paneNumToUUID[ps.Num] = uuid
		if p.HasOwner {
			if c, ok := r.clients[p.OwnerClientID]; ok {
				c.PaneUUIDs[uuid] = struct{}{}
			}
		}
		if p.State == PaneSticky && p.Attrs.StickyPwd != "" {
			r.stickyIndex[stickyKey{pwd: p.Attrs.StickyPwd, key: p.Attrs.StickyKey}] = uuid
		}
	}
	for _, dss := range s.Detached {
		sid, err := ids.ParseSessionID(dss.SessionID)
		if err != nil {
			continue
		}
		ds := &DetachedSession{SessionID: sid, Name: dss.Name, Layout: dss.Layout}
		for _, ps := range dss.Panes {
			if uuid, err := ids.ParsePaneUUID(ps); err == nil {
				if _, alive := r.panes[uuid]; alive {
					ds.PaneUUIDs = append(ds.PaneUUIDs, uuid)
				}
			}
		}
		r.detachedSessions[sid] = ds
	}
	return r, nil
}

func maxOf[T ~uint64 | ~uint16](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// IsProcessAlive sends signal 0 to pid, the standard liveness probe: it
// performs no action but still reports ESRCH if the process is gone.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
