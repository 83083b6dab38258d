package wire

import (
	"fmt"
	"io"
)

// Header is the decoded six-byte control header shared by C1, C4, C5.
type Header struct {
	Type       MsgType
	PayloadLen uint32
}

// ReadExact reads exactly n bytes or returns an error. A short read on any
// of C1-C5 is connection-fatal per spec; callers close the fd on error.
func ReadExact(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("wire: short read (want %d): %w", n, err)
	}
	return buf, nil
}

// ReadControlHeader reads and decodes the six-byte control header.
func ReadControlHeader(r io.Reader) (Header, error) {
	b, err := ReadExact(r, ControlHeaderLen)
	if err != nil {
		return Header{}, err
	}
	h := Header{
		Type:       MsgType(uint16(b[0]) | uint16(b[1])<<8),
		PayloadLen: uint32(b[2]) | uint32(b[3])<<8 | uint32(b[4])<<16 | uint32(b[5])<<24,
	}
	return h, nil
}

// ReadPayload reads a control message's payload, rejecting an oversize
// payload_len before allocating a buffer for it.
func ReadPayload(r io.Reader, h Header) ([]byte, error) {
	if h.PayloadLen > MaxPayloadLen {
		return nil, fmt.Errorf("wire: payload_len %d exceeds cap %d", h.PayloadLen, MaxPayloadLen)
	}
	if h.PayloadLen == 0 {
		return nil, nil
	}
	return ReadExact(r, int(h.PayloadLen))
}

// WriteAll writes the whole buffer, treating a short write as fatal to the
// connection exactly as a short read is.
func WriteAll(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return fmt.Errorf("wire: write failed: %w", err)
	}
	if n != len(b) {
		return fmt.Errorf("wire: short write: wrote %d of %d", n, len(b))
	}
	return nil
}

// WriteControl writes a complete control message (header + payload) as a
// single syscall where possible, to avoid interleaving on non-blocking
// channels shared with other writers.
func WriteControl(w io.Writer, t MsgType, payload []byte) error {
	return WriteAll(w, encodeControl(t, payload))
}

// WriteControlWithTrail builds payload = fixed ++ trail and writes it in one call.
func WriteControlWithTrail(w io.Writer, t MsgType, fixed, trail []byte) error {
	payload := make([]byte, 0, len(fixed)+len(trail))
	payload = append(payload, fixed...)
	payload = append(payload, trail...)
	return WriteControl(w, t, payload)
}

// WriteControlMulti builds payload = fixed ++ trails[0] ++ trails[1] ++ ...
// and writes it in one call — used for messages with several named trailers
// (e.g. a list of UUIDs, or cwd+cmd pairs).
func WriteControlMulti(w io.Writer, t MsgType, fixed []byte, trails [][]byte) error {
	total := len(fixed)
	for _, tr := range trails {
		total += len(tr)
	}
	payload := make([]byte, 0, total)
	payload = append(payload, fixed...)
	for _, tr := range trails {
		payload = append(payload, tr...)
	}
	return WriteControl(w, t, payload)
}

func encodeControl(t MsgType, payload []byte) []byte {
	out := make([]byte, ControlHeaderLen+len(payload))
	out[0] = byte(t)
	out[1] = byte(t >> 8)
	n := uint32(len(payload))
	out[2] = byte(n)
	out[3] = byte(n >> 8)
	out[4] = byte(n >> 16)
	out[5] = byte(n >> 24)
	copy(out[6:], payload)
	return out
}

// MuxVTHeader is the C2 frame header: pane-multiplexed VT traffic between
// SES and one MUX.
type MuxVTHeader struct {
	PaneID    uint16
	FrameType uint8
	Len       uint32
}

func (h MuxVTHeader) Encode() []byte {
	out := make([]byte, MuxVTHeaderLen)
	out[0] = byte(h.PaneID)
	out[1] = byte(h.PaneID >> 8)
	out[2] = h.FrameType
	out[3] = byte(h.Len)
	out[4] = byte(h.Len >> 8)
	out[5] = byte(h.Len >> 16)
	out[6] = byte(h.Len >> 24)
	return out
}

func ReadMuxVTHeader(r io.Reader) (MuxVTHeader, error) {
	b, err := ReadExact(r, MuxVTHeaderLen)
	if err != nil {
		return MuxVTHeader{}, err
	}
	return MuxVTHeader{
		PaneID:    uint16(b[0]) | uint16(b[1])<<8,
		FrameType: b[2],
		Len:       uint32(b[3]) | uint32(b[4])<<8 | uint32(b[5])<<16 | uint32(b[6])<<24,
	}, nil
}

// PodVTHeader is the C3 frame header: fd identifies the pane, so only
// frame_type and len travel on the wire.
type PodVTHeader struct {
	FrameType uint8
	Len       uint32
}

func (h PodVTHeader) Encode() []byte {
	out := make([]byte, PodVTHeaderLen)
	out[0] = h.FrameType
	out[1] = byte(h.Len)
	out[2] = byte(h.Len >> 8)
	out[3] = byte(h.Len >> 16)
	out[4] = byte(h.Len >> 24)
	return out
}

func ReadPodVTHeader(r io.Reader) (PodVTHeader, error) {
	b, err := ReadExact(r, PodVTHeaderLen)
	if err != nil {
		return PodVTHeader{}, err
	}
	return PodVTHeader{
		FrameType: b[0],
		Len:       uint32(b[1]) | uint32(b[2])<<8 | uint32(b[3])<<16 | uint32(b[4])<<24,
	}, nil
}

// EncodeResizePayload packs a resize frame's cols/rows sub-fields. Both VT
// headers and this sub-payload use little-endian uniformly in this
// implementation (see SPEC_FULL.md open-question decision).
func EncodeResizePayload(cols, rows uint16) []byte {
	return []byte{byte(cols), byte(cols >> 8), byte(rows), byte(rows >> 8)}
}

func DecodeResizePayload(b []byte) (cols, rows uint16, err error) {
	if len(b) != 4 {
		return 0, 0, fmt.Errorf("wire: resize payload must be 4 bytes, got %d", len(b))
	}
	cols = uint16(b[0]) | uint16(b[1])<<8
	rows = uint16(b[2]) | uint16(b[3])<<8
	return cols, rows, nil
}
