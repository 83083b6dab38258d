package wire

import (
	"bytes"
	"net"
	"testing"
)

func TestControlHeaderRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	payload := []byte("hello")
	go func() {
		_ = WriteControl(client, MsgNotify, payload)
	}()

	h, err := ReadControlHeader(server)
	if err != nil {
		t.Fatalf("ReadControlHeader: %v", err)
	}
	if h.Type != MsgNotify {
		t.Fatalf("type = %x, want %x", h.Type, MsgNotify)
	}
	if h.PayloadLen != uint32(len(payload)) {
		t.Fatalf("payload_len = %d, want %d", h.PayloadLen, len(payload))
	}
	got, err := ReadPayload(server, h)
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload = %q, want %q", got, payload)
	}
}

func TestReadPayloadRejectsOversizeLen(t *testing.T) {
	_, err := ReadPayload(bytes.NewReader(nil), Header{Type: MsgNotify, PayloadLen: MaxPayloadLen + 1})
	if err == nil {
		t.Fatal("expected error for payload_len exceeding cap")
	}
}

func TestReadPayloadAcceptsCapBoundary(t *testing.T) {
	buf := make([]byte, MaxPayloadLen)
	_, err := ReadPayload(bytes.NewReader(buf), Header{Type: MsgNotify, PayloadLen: MaxPayloadLen})
	if err != nil {
		t.Fatalf("payload_len == cap should succeed: %v", err)
	}
}

func TestEmptyPayloadIsValid(t *testing.T) {
	p, err := ReadPayload(bytes.NewReader(nil), Header{Type: MsgOk, PayloadLen: 0})
	if err != nil {
		t.Fatalf("zero payload_len should succeed: %v", err)
	}
	if len(p) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(p))
	}
}

func TestRegisterRoundTrip(t *testing.T) {
	var sid [16]byte
	copy(sid[:], "0123456789abcdef")
	orig := Register{SessionID: sid, Keepalive: true, Name: "pikachu"}
	decoded, err := DecodeRegister(orig.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != orig {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, orig)
	}
}

func TestCreatePaneRoundTrip(t *testing.T) {
	orig := CreatePane{
		Cwd:   "/home/user/project",
		Shell: "/bin/zsh",
		Env:   []EnvVar{{Key: "FOO", Value: "bar"}, {Key: "BAZ", Value: ""}},
	}
	decoded, err := DecodeCreatePane(orig.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Cwd != orig.Cwd || decoded.Shell != orig.Shell || len(decoded.Env) != len(orig.Env) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, orig)
	}
	for i := range orig.Env {
		if decoded.Env[i] != orig.Env[i] {
			t.Fatalf("env[%d] = %+v, want %+v", i, decoded.Env[i], orig.Env[i])
		}
	}
}

func TestSessionReattachedRoundTrip(t *testing.T) {
	var u1, u2 [16]byte
	u1[0] = 1
	u2[0] = 2
	orig := SessionReattached{
		Layout: []byte(`{"layout":"json"}`),
		Panes: []ReattachedPane{
			{UUID: u1, PaneID: 1},
			{UUID: u2, PaneID: 2},
		},
	}
	decoded, err := DecodeSessionReattached(orig.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Layout, orig.Layout) {
		t.Fatalf("layout mismatch: got %q want %q", decoded.Layout, orig.Layout)
	}
	if len(decoded.Panes) != 2 || decoded.Panes[0] != orig.Panes[0] || decoded.Panes[1] != orig.Panes[1] {
		t.Fatalf("panes mismatch: got %+v want %+v", decoded.Panes, orig.Panes)
	}
}

func TestResizePayloadRoundTrip(t *testing.T) {
	payload := EncodeResizePayload(120, 40)
	cols, rows, err := DecodeResizePayload(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cols != 120 || rows != 40 {
		t.Fatalf("got cols=%d rows=%d, want 120,40", cols, rows)
	}
}

func TestMuxVTHeaderRoundTrip(t *testing.T) {
	h := MuxVTHeader{PaneID: 7, FrameType: FrameOutput, Len: 1024}
	r := bytes.NewReader(h.Encode())
	got, err := ReadMuxVTHeader(r)
	if err != nil {
		t.Fatalf("ReadMuxVTHeader: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestPodVTHeaderRoundTrip(t *testing.T) {
	h := PodVTHeader{FrameType: FrameBacklogEnd, Len: 0}
	r := bytes.NewReader(h.Encode())
	got, err := ReadPodVTHeader(r)
	if err != nil {
		t.Fatalf("ReadPodVTHeader: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestShpShellEventRoundTrip(t *testing.T) {
	orig := ShpShellEvent{
		Phase: ShpPhaseEnd, Status: 1, DurationMs: 4200, StartedAt: 1234567890,
		Jobs: 2, Running: false, Cmd: "go test ./...", Cwd: "/repo",
	}
	decoded, err := DecodeShpShellEvent(orig.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != orig {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, orig)
	}
}

func TestErrorMessageRoundTrip(t *testing.T) {
	orig := Error{Reason: "ambiguous_session_id"}
	decoded, err := DecodeError(orig.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != orig {
		t.Fatalf("got %+v want %+v", decoded, orig)
	}
}

func TestCursorFailsClosedOnTruncation(t *testing.T) {
	c := NewCursor([]byte{1, 2})
	if _, err := c.Uint32(); err == nil {
		t.Fatal("expected error reading uint32 from a 2-byte buffer")
	}
}

func TestTrail32RejectsOversizeLength(t *testing.T) {
	b := NewBuilder()
	b.PutUint32(MaxPayloadLen + 1)
	c := NewCursor(b.Bytes())
	if _, err := c.Trail32(); err == nil {
		t.Fatal("expected error for trailer length exceeding payload cap")
	}
}
