package wire

// C4: POD -> SES metadata uplink.

type CwdChanged struct {
	UUID ids16
	Cwd  string
}

func (m CwdChanged) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutTrail16([]byte(m.Cwd))
	return b.Bytes()
}

func DecodeCwdChanged(p []byte) (CwdChanged, error) {
	c := NewCursor(p)
	var m CwdChanged
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	cwd, err := c.Trail16()
	m.Cwd = string(cwd)
	return m, err
}

type FgChanged struct {
	UUID  ids16
	Pid   uint32
	Name  string
}

func (m FgChanged) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutUint32(m.Pid)
	b.PutTrail16([]byte(m.Name))
	return b.Bytes()
}

func DecodeFgChanged(p []byte) (FgChanged, error) {
	c := NewCursor(p)
	var m FgChanged
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	if m.Pid, err = c.Uint32(); err != nil {
		return m, err
	}
	name, err := c.Trail16()
	m.Name = string(name)
	return m, err
}

type TitleChanged struct {
	UUID  ids16
	Title string
}

func (m TitleChanged) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutTrail16([]byte(m.Title))
	return b.Bytes()
}

func DecodeTitleChanged(p []byte) (TitleChanged, error) {
	c := NewCursor(p)
	var m TitleChanged
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	t, err := c.Trail16()
	m.Title = string(t)
	return m, err
}

type Bell struct{ UUID ids16 }

func (m Bell) Encode() []byte { b := NewBuilder(); b.PutRaw16(m.UUID); return b.Bytes() }

func DecodeBell(p []byte) (Bell, error) {
	c := NewCursor(p)
	u, err := c.Raw16()
	return Bell{UUID: u}, err
}

type Exited struct {
	UUID       ids16
	ExitStatus int32
}

func (m Exited) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutInt32(m.ExitStatus)
	return b.Bytes()
}

func DecodeExited(p []byte) (Exited, error) {
	c := NewCursor(p)
	var m Exited
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	m.ExitStatus, err = c.Int32()
	return m, err
}

// QueryState asks an already-connected POD to push a fresh metadata
// snapshot immediately instead of waiting for its next tick.
type QueryState struct{ UUID ids16 }

func (m QueryState) Encode() []byte { b := NewBuilder(); b.PutRaw16(m.UUID); return b.Bytes() }

func DecodeQueryState(p []byte) (QueryState, error) {
	c := NewCursor(p)
	u, err := c.Raw16()
	return QueryState{UUID: u}, err
}

// PodRegister is sent by POD immediately after the C4 handshake bytes
// (0x03 + 16 raw UUID bytes) to hand SES the rest of what it needs to
// record the pod (pid, socket path) without SES having had to already know it.
type PodRegister struct {
	UUID       ids16
	Pid        uint32
	SocketPath string
}

func (m PodRegister) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutUint32(m.Pid)
	b.PutTrail16([]byte(m.SocketPath))
	return b.Bytes()
}

func DecodePodRegister(p []byte) (PodRegister, error) {
	c := NewCursor(p)
	var m PodRegister
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	if m.Pid, err = c.Uint32(); err != nil {
		return m, err
	}
	sp, err := c.Trail16()
	m.SocketPath = string(sp)
	return m, err
}

// ShellEvent is POD's forward of a C5 ShpShellEvent, with the pane UUID
// prepended so SES can route it without POD needing to know about panes.
type ShellEvent struct {
	UUID ids16
	ShpShellEvent
}

func (m ShellEvent) Encode() []byte {
	b := NewBuilder()
	b.PutRaw16(m.UUID)
	b.PutBytes(m.ShpShellEvent.encodeFields())
	return b.Bytes()
}

func DecodeShellEvent(p []byte) (ShellEvent, error) {
	c := NewCursor(p)
	var m ShellEvent
	var err error
	if m.UUID, err = c.Raw16(); err != nil {
		return m, err
	}
	m.ShpShellEvent, err = decodeShpShellEventFields(c)
	return m, err
}

// C5: SHP -> POD control.

// Shell hook phases.
const (
	ShpPhaseStart uint8 = iota
	ShpPhaseEnd
)

type ShpShellEvent struct {
	Phase      uint8
	Status     int32
	DurationMs uint32
	StartedAt  uint64 // unix millis
	Jobs       uint16
	Running    bool
	Cmd        string
	Cwd        string
}

func (m ShpShellEvent) encodeFields() []byte {
	b := NewBuilder()
	b.PutUint8(m.Phase)
	b.PutInt32(m.Status)
	b.PutUint32(m.DurationMs)
	b.PutUint64(m.StartedAt)
	b.PutUint16(m.Jobs)
	b.PutUint8(boolByte(m.Running))
	b.PutTrail16([]byte(m.Cmd))
	b.PutTrail16([]byte(m.Cwd))
	return b.Bytes()
}

func (m ShpShellEvent) Encode() []byte { return m.encodeFields() }

func decodeShpShellEventFields(c *Cursor) (ShpShellEvent, error) {
	var m ShpShellEvent
	var err error
	if m.Phase, err = c.Uint8(); err != nil {
		return m, err
	}
	if m.Status, err = c.Int32(); err != nil {
		return m, err
	}
	if m.DurationMs, err = c.Uint32(); err != nil {
		return m, err
	}
	if m.StartedAt, err = c.Uint64(); err != nil {
		return m, err
	}
	if m.Jobs, err = c.Uint16(); err != nil {
		return m, err
	}
	running, err := c.Uint8()
	if err != nil {
		return m, err
	}
	m.Running = running != 0
	cmd, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Cmd = string(cmd)
	cwd, err := c.Trail16()
	if err != nil {
		return m, err
	}
	m.Cwd = string(cwd)
	return m, nil
}

func DecodeShpShellEvent(p []byte) (ShpShellEvent, error) {
	return decodeShpShellEventFields(NewCursor(p))
}

// ShpPromptReq/ShpPromptResp support a future interactive prompt-status
// round trip between SHP and POD; only the envelope is specified here.
type ShpPromptReq struct{ RequestID uint32 }

func (m ShpPromptReq) Encode() []byte { b := NewBuilder(); b.PutUint32(m.RequestID); return b.Bytes() }

func DecodeShpPromptReq(p []byte) (ShpPromptReq, error) {
	c := NewCursor(p)
	id, err := c.Uint32()
	return ShpPromptReq{RequestID: id}, err
}

type ShpPromptResp struct {
	RequestID uint32
	Response  string
}

func (m ShpPromptResp) Encode() []byte {
	b := NewBuilder()
	b.PutUint32(m.RequestID)
	b.PutTrail16([]byte(m.Response))
	return b.Bytes()
}

func DecodeShpPromptResp(p []byte) (ShpPromptResp, error) {
	c := NewCursor(p)
	var m ShpPromptResp
	var err error
	if m.RequestID, err = c.Uint32(); err != nil {
		return m, err
	}
	r, err := c.Trail16()
	m.Response = string(r)
	return m, err
}
