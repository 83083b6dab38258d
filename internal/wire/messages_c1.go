package wire

// This file defines the fixed-struct-plus-trailer payloads for every C1
// (MUX<->SES) message named in the msg_type table. Each payload's fixed
// portion names the length of its own trailers: no ad-hoc offset math, a
// Cursor yields typed slices and fails closed on overrun.

// Register is sent right after the 0x01 handshake byte.
type Register struct {
	SessionID ids16
	Keepalive bool
	Name      string
}

func (m Register) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.SessionID)
	b.PutUint8(boolByte(m.Keepalive))
	b.PutTrail16([]byte(m.Name))
	return b.Bytes()
}

func DecodeRegister(p []byte) (Register, error) {
	c := NewCursor(p)
	var m Register
	var err error
	if m.SessionID, err = c.Raw16(); err != nil {
		return m, err
	}
	flag, err := c.Uint8()
	if err != nil {
		return m, err
	}
	m.Keepalive = flag != 0
	name, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Name = string(name)
	return m, nil
}

// Registered acknowledges Register with the SES-local client id.
type Registered struct {
	ClientID uint64
}

func (m Registered) Encode() []byte {
	b := NewBuilder()
	b.PutUint64(m.ClientID)
	return b.Bytes()
}

func DecodeRegistered(p []byte) (Registered, error) {
	c := NewCursor(p)
	id, err := c.Uint64()
	return Registered{ClientID: id}, err
}

// CreatePane requests a new POD-owned pane.
type CreatePane struct {
	Cwd   string
	Shell string
	Env   []EnvVar
}

type EnvVar struct {
	Key   string
	Value string
}

func (m CreatePane) Encode() []byte {
	b := NewBuilder()
	b.PutTrail16([]byte(m.Cwd))
	b.PutTrail16([]byte(m.Shell))
	b.PutUint16(uint16(len(m.Env)))
	for _, e := range m.Env {
		b.PutTrail16([]byte(e.Key))
		b.PutTrail16([]byte(e.Value))
	}
	return b.Bytes()
}

func DecodeCreatePane(p []byte) (CreatePane, error) {
	c := NewCursor(p)
	var m CreatePane
	cwd, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Cwd = string(cwd)
	shell, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Shell = string(shell)
	n, err := c.Uint16()
	if err != nil {
		return m, err
	}
	m.Env = make([]EnvVar, 0, n)
	for i := uint16(0); i < n; i++ {
		k, err := c.Trail16()
		if err != nil {
			return m, err
		}
		v, err := c.Trail16()
		if err != nil {
			return m, err
		}
		m.Env = append(m.Env, EnvVar{Key: string(k), Value: string(v)})
	}
	return m, nil
}

// PaneCreated replies to CreatePane on success.
type PaneCreated struct {
	UUID       ids16
	PaneID     uint16
	Pid        uint32
	SocketPath string
}

func (m PaneCreated) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutUint16(m.PaneID)
	b.PutUint32(m.Pid)
	b.PutTrail16([]byte(m.SocketPath))
	return b.Bytes()
}

func DecodePaneCreated(p []byte) (PaneCreated, error) {
	c := NewCursor(p)
	var m PaneCreated
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	if m.PaneID, err = c.Uint16(); err != nil {
		return m, err
	}
	if m.Pid, err = c.Uint32(); err != nil {
		return m, err
	}
	sp, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.SocketPath = string(sp)
	return m, nil
}

// UUIDOnly covers every message whose payload is just a 16-byte pane UUID:
// DestroyPane, OrphanPane, AdoptPane, Bell, ExitedTarget lookups, etc.
type UUIDOnly struct {
	UUID ids16
}

func (m UUIDOnly) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	return b.Bytes()
}

func DecodeUUIDOnly(p []byte) (UUIDOnly, error) {
	c := NewCursor(p)
	u, err := c.Raw16()
	return UUIDOnly{UUID: u}, err
}

// KillPane additionally carries a signal number.
type KillPane struct {
	UUID   ids16
	Signal uint8
}

func (m KillPane) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutUint8(m.Signal)
	return b.Bytes()
}

func DecodeKillPane(p []byte) (KillPane, error) {
	c := NewCursor(p)
	var m KillPane
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	m.Signal, err = c.Uint8()
	return m, err
}

// Detach moves a client's panes into the detached-session registry.
type Detach struct {
	SessionID ids16
	Layout    []byte
}

func (m Detach) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.SessionID)
	b.PutTrail32(m.Layout)
	return b.Bytes()
}

func DecodeDetach(p []byte) (Detach, error) {
	c := NewCursor(p)
	var m Detach
	var err error
	if m.SessionID, err = c.Raw16(); err != nil {
		return m, err
	}
	m.Layout, err = c.Trail32()
	return m, err
}

// SessionDetached acknowledges a completed detach.
type SessionDetached struct {
	SessionID ids16
}

func (m SessionDetached) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.SessionID)
	return b.Bytes()
}

func DecodeSessionDetached(p []byte) (SessionDetached, error) {
	c := NewCursor(p)
	id, err := c.Raw16()
	return SessionDetached{SessionID: id}, err
}

// Reattach carries the byte prefix used to match a detached session.
type Reattach struct {
	Prefix string
}

func (m Reattach) Encode() []byte {
	b := NewBuilder()
	b.PutTrail16([]byte(m.Prefix))
	return b.Bytes()
}

func DecodeReattach(p []byte) (Reattach, error) {
	c := NewCursor(p)
	pfx, err := c.Trail16()
	return Reattach{Prefix: string(pfx)}, err
}

// SessionReattached replies to a successful Reattach.
type SessionReattached struct {
	Layout []byte
	Panes  []ReattachedPane
}

type ReattachedPane struct {
	UUID   ids16
	PaneID uint16
}

func (m SessionReattached) Encode() []byte {
	b := NewBuilder()
	b.PutTrail32(m.Layout)
	b.PutUint16(uint16(len(m.Panes)))
	for _, p := range m.Panes {
		b.PutRaw16(p.UUID)
		b.PutUint16(p.PaneID)
	}
	return b.Bytes()
}

func DecodeSessionReattached(p []byte) (SessionReattached, error) {
	c := NewCursor(p)
	var m SessionReattached
	var err error
	if m.Layout, err = c.Trail32(); err != nil {
		return m, err
	}
	n, err := c.Uint16()
	if err != nil {
		return m, err
	}
	m.Panes = make([]ReattachedPane, 0, n)
	for i := uint16(0); i < n; i++ {
		var rp ReattachedPane
		if rp.UUID, err = c.Raw16(); err != nil {
			return m, err
		}
		if rp.PaneID, err = c.Uint16(); err != nil {
			return m, err
		}
		m.Panes = append(m.Panes, rp)
	}
	return m, nil
}

// SyncState pushes the client's current layout blob without detaching, so a
// later Detach or a crash-triggered implicit detach reuses the latest copy.
type SyncState struct {
	Blob []byte
}

func (m SyncState) Encode() []byte {
	b := NewBuilder()
	b.PutTrail32(m.Blob)
	return b.Bytes()
}

func DecodeSyncState(p []byte) (SyncState, error) {
	c := NewCursor(p)
	blob, err := c.Trail32()
	return SyncState{Blob: blob}, err
}

// Disconnect requests graceful teardown of the sender's session.
type Disconnect struct {
	Mode           uint8
	PreserveSticky bool
}

func (m Disconnect) Encode() []byte {
	b := NewBuilder()
	b.PutUint8(m.Mode)
	b.PutUint8(boolByte(m.PreserveSticky))
	return b.Bytes()
}

func DecodeDisconnect(p []byte) (Disconnect, error) {
	c := NewCursor(p)
	var m Disconnect
	var err error
	if m.Mode, err = c.Uint8(); err != nil {
		return m, err
	}
	flag, err := c.Uint8()
	if err != nil {
		return m, err
	}
	m.PreserveSticky = flag != 0
	return m, nil
}

// SetSticky binds a pane to (pwd, key) for later FindSticky reclaim.
type SetSticky struct {
	UUID ids16
	Pwd  string
	Key  uint8
}

func (m SetSticky) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutTrail16([]byte(m.Pwd))
	b.PutUint8(m.Key)
	return b.Bytes()
}

func DecodeSetSticky(p []byte) (SetSticky, error) {
	c := NewCursor(p)
	var m SetSticky
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	pwd, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Pwd = string(pwd)
	m.Key, err = c.Uint8()
	return m, err
}

// FindSticky looks a sticky pane back up by (pwd, key).
type FindSticky struct {
	Pwd string
	Key uint8
}

func (m FindSticky) Encode() []byte {
	b := NewBuilder()
	b.PutTrail16([]byte(m.Pwd))
	b.PutUint8(m.Key)
	return b.Bytes()
}

func DecodeFindSticky(p []byte) (FindSticky, error) {
	c := NewCursor(p)
	var m FindSticky
	pwd, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Pwd = string(pwd)
	m.Key, err = c.Uint8()
	return m, err
}

// PaneAttributes is the full set of last-known pane metadata SES caches,
// used both as the PaneFound/PaneInfo reply body and inside OrphanedPanes
// and SessionsList listings.
type PaneAttributes struct {
	UUID          ids16
	PaneID        uint16
	Pid           uint32
	State         uint8
	Cwd           string
	FgName        string
	FgPid         uint32
	LastCommand   string
	LastExit      int32
	LastDurMs     uint32
	LastJobs      uint16
	Cols          uint16
	Rows          uint16
	CursorRow     uint16
	CursorCol     uint16
	AltScreen     bool
	Name          string
}

func (m PaneAttributes) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutUint16(m.PaneID)
	b.PutUint32(m.Pid)
	b.PutUint8(m.State)
	b.PutTrail16([]byte(m.Cwd))
	b.PutTrail16([]byte(m.FgName))
	b.PutUint32(m.FgPid)
	b.PutTrail16([]byte(m.LastCommand))
	b.PutInt32(m.LastExit)
	b.PutUint32(m.LastDurMs)
	b.PutUint16(m.LastJobs)
	b.PutUint16(m.Cols)
	b.PutUint16(m.Rows)
	b.PutUint16(m.CursorRow)
	b.PutUint16(m.CursorCol)
	b.PutUint8(boolByte(m.AltScreen))
	b.PutTrail16([]byte(m.Name))
	return b.Bytes()
}

func DecodePaneAttributes(p []byte) (PaneAttributes, error) {
	c := NewCursor(p)
	var m PaneAttributes
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	if m.PaneID, err = c.Uint16(); err != nil {
		return m, err
	}
	if m.Pid, err = c.Uint32(); err != nil {
		return m, err
	}
	if m.State, err = c.Uint8(); err != nil {
		return m, err
	}
	cwd, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Cwd = string(cwd)
	fg, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.FgName = string(fg)
	if m.FgPid, err = c.Uint32(); err != nil {
		return m, err
	}
	cmd, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.LastCommand = string(cmd)
	if m.LastExit, err = c.Int32(); err != nil {
		return m, err
	}
	if m.LastDurMs, err = c.Uint32(); err != nil {
		return m, err
	}
	if m.LastJobs, err = c.Uint16(); err != nil {
		return m, err
	}
	if m.Cols, err = c.Uint16(); err != nil {
		return m, err
	}
	if m.Rows, err = c.Uint16(); err != nil {
		return m, err
	}
	if m.CursorRow, err = c.Uint16(); err != nil {
		return m, err
	}
	if m.CursorCol, err = c.Uint16(); err != nil {
		return m, err
	}
	alt, err := c.Uint8()
	if err != nil {
		return m, err
	}
	m.AltScreen = alt != 0
	name, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Name = string(name)
	return m, nil
}

// UpdatePaneAux carries an opaque MUX-owned blob (e.g. floating-pane
// visual state) that SES stores and echoes back but never interprets.
type UpdatePaneAux struct {
	UUID ids16
	Aux  []byte
}

func (m UpdatePaneAux) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutTrail16(m.Aux)
	return b.Bytes()
}

func DecodeUpdatePaneAux(p []byte) (UpdatePaneAux, error) {
	c := NewCursor(p)
	var m UpdatePaneAux
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	m.Aux, err = c.Trail16()
	return m, err
}

// UpdatePaneName sets a pane's friendly name.
type UpdatePaneName struct {
	UUID ids16
	Name string
}

func (m UpdatePaneName) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutTrail16([]byte(m.Name))
	return b.Bytes()
}

func DecodeUpdatePaneName(p []byte) (UpdatePaneName, error) {
	c := NewCursor(p)
	var m UpdatePaneName
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	name, err := c.Trail16()
	m.Name = string(name)
	return m, err
}

// UpdatePaneShell lets a client push command-completion metadata directly
// (normally this arrives via POD's C4 shell_event instead).
type UpdatePaneShell struct {
	UUID      ids16
	Command   string
	ExitCode  int32
	DurMs     uint32
	Jobs      uint16
	Running   bool
}

func (m UpdatePaneShell) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutTrail16([]byte(m.Command))
	b.PutInt32(m.ExitCode)
	b.PutUint32(m.DurMs)
	b.PutUint16(m.Jobs)
	b.PutUint8(boolByte(m.Running))
	return b.Bytes()
}

func DecodeUpdatePaneShell(p []byte) (UpdatePaneShell, error) {
	c := NewCursor(p)
	var m UpdatePaneShell
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	cmd, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Command = string(cmd)
	if m.ExitCode, err = c.Int32(); err != nil {
		return m, err
	}
	if m.DurMs, err = c.Uint32(); err != nil {
		return m, err
	}
	if m.Jobs, err = c.Uint16(); err != nil {
		return m, err
	}
	running, err := c.Uint8()
	m.Running = running != 0
	return m, err
}

// GetPaneCwdReply answers GetPaneCwd (a UUIDOnly request) with the cached cwd.
type GetPaneCwdReply struct {
	Cwd string
}

func (m GetPaneCwdReply) Encode() []byte {
	b := NewBuilder()
	b.PutTrail16([]byte(m.Cwd))
	return b.Bytes()
}

func DecodeGetPaneCwdReply(p []byte) (GetPaneCwdReply, error) {
	c := NewCursor(p)
	cwd, err := c.Trail16()
	return GetPaneCwdReply{Cwd: string(cwd)}, err
}

// ListSessions requests the registry's session summaries.
type ListSessions struct {
	// Filter: 0 = all, 1 = attached only, 2 = detached only.
	Filter uint8
}

func (m ListSessions) Encode() []byte {
	b := NewBuilder()
	b.PutUint8(m.Filter)
	return b.Bytes()
}

func DecodeListSessions(p []byte) (ListSessions, error) {
	c := NewCursor(p)
	f, err := c.Uint8()
	return ListSessions{Filter: f}, err
}

type SessionSummary struct {
	SessionID ids16
	Name      string
	Attached  bool
	PaneCount uint16
}

type SessionsList struct {
	Sessions []SessionSummary
}

func (m SessionsList) Encode() []byte {
	b := NewBuilder()
	b.PutUint16(uint16(len(m.Sessions)))
	for _, s := range m.Sessions {
		b.PutRaw16(s.SessionID)
		b.PutTrail16([]byte(s.Name))
		b.PutUint8(boolByte(s.Attached))
		b.PutUint16(s.PaneCount)
	}
	return b.Bytes()
}

func DecodeSessionsList(p []byte) (SessionsList, error) {
	c := NewCursor(p)
	n, err := c.Uint16()
	if err != nil {
		return SessionsList{}, err
	}
	out := SessionsList{Sessions: make([]SessionSummary, 0, n)}
	for i := uint16(0); i < n; i++ {
		var s SessionSummary
		if s.SessionID, err = c.Raw16(); err != nil {
			return out, err
		}
		name, err := c.Trail16()
		if err != nil {
			return out, err
		}
		s.Name = string(name)
		att, err := c.Uint8()
		if err != nil {
			return out, err
		}
		s.Attached = att != 0
		if s.PaneCount, err = c.Uint16(); err != nil {
			return out, err
		}
		out.Sessions = append(out.Sessions, s)
	}
	return out, nil
}

// OrphanedPanes lists every pane currently in the orphaned state.
type OrphanedPanes struct {
	Panes []ids16
}

func (m OrphanedPanes) Encode() []byte {
	b := NewBuilder()
	b.PutUint16(uint16(len(m.Panes)))
	for _, p := range m.Panes {
		b.PutRaw16(p)
	}
	return b.Bytes()
}

func DecodeOrphanedPanes(p []byte) (OrphanedPanes, error) {
	c := NewCursor(p)
	n, err := c.Uint16()
	if err != nil {
		return OrphanedPanes{}, err
	}
	out := OrphanedPanes{Panes: make([]ids16, 0, n)}
	for i := uint16(0); i < n; i++ {
		u, err := c.Raw16()
		if err != nil {
			return out, err
		}
		out.Panes = append(out.Panes, u)
	}
	return out, nil
}

// Ping/Pong carry a nonce so out-of-order replies can still be matched.
type Ping struct{ Nonce uint32 }
type Pong struct{ Nonce uint32 }

func (m Ping) Encode() []byte { b := NewBuilder(); b.PutUint32(m.Nonce); return b.Bytes() }
func (m Pong) Encode() []byte { b := NewBuilder(); b.PutUint32(m.Nonce); return b.Bytes() }

func DecodePing(p []byte) (Ping, error) {
	c := NewCursor(p)
	n, err := c.Uint32()
	return Ping{Nonce: n}, err
}

func DecodePong(p []byte) (Pong, error) {
	c := NewCursor(p)
	n, err := c.Uint32()
	return Pong{Nonce: n}, err
}

// Error is a generic reply with a short, stable reason code string such as
// "ambiguous_session_id" or "session_not_found".
type Error struct {
	Reason string
}

func (m Error) Encode() []byte {
	b := NewBuilder()
	b.PutTrail16([]byte(m.Reason))
	return b.Bytes()
}

func DecodeError(p []byte) (Error, error) {
	c := NewCursor(p)
	r, err := c.Trail16()
	return Error{Reason: string(r)}, err
}

// Notify/BroadcastNotify carry a plain UTF-8 message string.
type Notify struct{ Message string }
type BroadcastNotify struct{ Message string }

func (m Notify) Encode() []byte { b := NewBuilder(); b.PutTrail32([]byte(m.Message)); return b.Bytes() }
func (m BroadcastNotify) Encode() []byte {
	b := NewBuilder()
	b.PutTrail32([]byte(m.Message))
	return b.Bytes()
}

func DecodeNotify(p []byte) (Notify, error) {
	c := NewCursor(p)
	msg, err := c.Trail32()
	return Notify{Message: string(msg)}, err
}

func DecodeBroadcastNotify(p []byte) (BroadcastNotify, error) {
	c := NewCursor(p)
	msg, err := c.Trail32()
	return BroadcastNotify{Message: string(msg)}, err
}

// TargetedNotify resolves Target in order: full session_id hex, full pane
// UUID hex, then a 4-31 char prefix.
type TargetedNotify struct {
	Target  string
	Message string
}

func (m TargetedNotify) Encode() []byte {
	b := NewBuilder()
	b.PutTrail16([]byte(m.Target))
	b.PutTrail32([]byte(m.Message))
	return b.Bytes()
}

func DecodeTargetedNotify(p []byte) (TargetedNotify, error) {
	c := NewCursor(p)
	var m TargetedNotify
	t, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Target = string(t)
	msg, err := c.Trail32()
	m.Message = string(msg)
	return m, err
}

// PopConfirm/PopChoose are forwarded to the owning MUX; PopResponse routes
// the eventual answer back to the waiting CLI connection.
type PopConfirm struct {
	Target string
	Prompt string
}

func (m PopConfirm) Encode() []byte {
	b := NewBuilder()
	b.PutTrail16([]byte(m.Target))
	b.PutTrail16([]byte(m.Prompt))
	return b.Bytes()
}

func DecodePopConfirm(p []byte) (PopConfirm, error) {
	c := NewCursor(p)
	var m PopConfirm
	t, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Target = string(t)
	pr, err := c.Trail16()
	m.Prompt = string(pr)
	return m, err
}

type PopChoose struct {
	Target  string
	Prompt  string
	Options []string
}

func (m PopChoose) Encode() []byte {
	b := NewBuilder()
	b.PutTrail16([]byte(m.Target))
	b.PutTrail16([]byte(m.Prompt))
	b.PutUint16(uint16(len(m.Options)))
	for _, o := range m.Options {
		b.PutTrail16([]byte(o))
	}
	return b.Bytes()
}

func DecodePopChoose(p []byte) (PopChoose, error) {
	c := NewCursor(p)
	var m PopChoose
	t, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Target = string(t)
	pr, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Prompt = string(pr)
	n, err := c.Uint16()
	if err != nil {
		return m, err
	}
	m.Options = make([]string, 0, n)
	for i := uint16(0); i < n; i++ {
		o, err := c.Trail16()
		if err != nil {
			return m, err
		}
		m.Options = append(m.Options, string(o))
	}
	return m, nil
}

// PopResponse answers either kind of popup. Kind distinguishes which.
type PopResponse struct {
	Kind        uint8 // 0 = confirm, 1 = choose
	Accepted    bool
	ChoiceIndex uint16
}

func (m PopResponse) Encode() []byte {
	b := NewBuilder()
	b.PutUint8(m.Kind)
	b.PutUint8(boolByte(m.Accepted))
	b.PutUint16(m.ChoiceIndex)
	return b.Bytes()
}

func DecodePopResponse(p []byte) (PopResponse, error) {
	c := NewCursor(p)
	var m PopResponse
	var err error
	if m.Kind, err = c.Uint8(); err != nil {
		return m, err
	}
	flag, err := c.Uint8()
	if err != nil {
		return m, err
	}
	m.Accepted = flag != 0
	m.ChoiceIndex, err = c.Uint16()
	return m, err
}

// SendKeys writes raw bytes into a target pane's PTY.
type SendKeys struct {
	Target string
	Keys   []byte
}

func (m SendKeys) Encode() []byte {
	b := NewBuilder()
	b.PutTrail16([]byte(m.Target))
	b.PutTrail16(m.Keys)
	return b.Bytes()
}

func DecodeSendKeys(p []byte) (SendKeys, error) {
	c := NewCursor(p)
	var m SendKeys
	t, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Target = string(t)
	keys, err := c.Trail16()
	m.Keys = keys
	return m, err
}

// FocusMove directions.
const (
	FocusLeft uint8 = iota
	FocusRight
	FocusUp
	FocusDown
	FocusNext
	FocusPrev
)

type FocusMove struct{ Direction uint8 }

func (m FocusMove) Encode() []byte { b := NewBuilder(); b.PutUint8(m.Direction); return b.Bytes() }

func DecodeFocusMove(p []byte) (FocusMove, error) {
	c := NewCursor(p)
	d, err := c.Uint8()
	return FocusMove{Direction: d}, err
}

// ExitIntentResult/FloatResult carry a one-byte accept/deny decision.
type ExitIntentResult struct{ Allow bool }

func (m ExitIntentResult) Encode() []byte {
	b := NewBuilder()
	b.PutUint8(boolByte(m.Allow))
	return b.Bytes()
}

func DecodeExitIntentResult(p []byte) (ExitIntentResult, error) {
	c := NewCursor(p)
	v, err := c.Uint8()
	return ExitIntentResult{Allow: v != 0}, err
}

type FloatRequest struct {
	Cwd   string
	Shell string
}

func (m FloatRequest) Encode() []byte {
	b := NewBuilder()
	b.PutTrail16([]byte(m.Cwd))
	b.PutTrail16([]byte(m.Shell))
	return b.Bytes()
}

func DecodeFloatRequest(p []byte) (FloatRequest, error) {
	c := NewCursor(p)
	var m FloatRequest
	cwd, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Cwd = string(cwd)
	shell, err := c.Trail16()
	m.Shell = string(shell)
	return m, err
}

type FloatCreated struct {
	UUID   ids16
	PaneID uint16
}

func (m FloatCreated) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutUint16(m.PaneID)
	return b.Bytes()
}

func DecodeFloatCreated(p []byte) (FloatCreated, error) {
	c := NewCursor(p)
	var m FloatCreated
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	m.PaneID, err = c.Uint16()
	return m, err
}

type FloatResult struct {
	UUID     ids16
	Accepted bool
}

func (m FloatResult) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutUint8(boolByte(m.Accepted))
	return b.Bytes()
}

func DecodeFloatResult(p []byte) (FloatResult, error) {
	c := NewCursor(p)
	var m FloatResult
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	flag, err := c.Uint8()
	m.Accepted = flag != 0
	return m, err
}

// PaneExited notifies a pane's owner (if any) that its child has exited.
type PaneExited struct {
	UUID       ids16
	ExitStatus int32
}

func (m PaneExited) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutInt32(m.ExitStatus)
	return b.Bytes()
}

func DecodePaneExited(p []byte) (PaneExited, error) {
	c := NewCursor(p)
	var m PaneExited
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	m.ExitStatus, err = c.Int32()
	return m, err
}

// Status requests a human/JSON rendering of the registry (CLI surface).
type Status struct{ Full bool }

func (m Status) Encode() []byte {
	b := NewBuilder()
	b.PutUint8(boolByte(m.Full))
	return b.Bytes()
}

func DecodeStatus(p []byte) (Status, error) {
	c := NewCursor(p)
	v, err := c.Uint8()
	return Status{Full: v != 0}, err
}

type StatusReply struct{ JSON []byte }

func (m StatusReply) Encode() []byte {
	b := NewBuilder()
	b.PutTrail32(m.JSON)
	return b.Bytes()
}

func DecodeStatusReply(p []byte) (StatusReply, error) {
	c := NewCursor(p)
	j, err := c.Trail32()
	return StatusReply{JSON: j}, err
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// ids16 avoids an import cycle between wire and ids: the codec only ever
// moves raw 16-byte blobs, and callers at the handler layer convert to/from
// ids.PaneUUID / ids.SessionID.
type ids16 = [16]byte
