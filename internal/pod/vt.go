package pod

import (
	"io"
	"net"
	"time"

	"github.com/warpwm/hexe/internal/sockutil"
	"github.com/warpwm/hexe/internal/wire"
)

const ptyReadChunk = 32 * 1024

// ptyReadLoop feeds every chunk read from the PTY master to the dispatch
// loop. It polls readGatePaused instead of blocking forever on Read so a
// later un-pause (client attaches) resumes reading within one poll
// interval, without needing to interrupt an in-flight syscall.
func (p *Pod) ptyReadLoop(out chan<- ptyOutputEvt, exit chan<- ptyExitEvt) {
	buf := make([]byte, ptyReadChunk)
	for {
		select {
		case <-p.closed:
			return
		default:
		}
		if p.readGatePaused.Load() {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- ptyOutputEvt{data: chunk}:
			case <-p.closed:
				return
			}
		}
		if err != nil {
			code := 0
			if p.cmd != nil && p.cmd.ProcessState != nil {
				code = p.cmd.ProcessState.ExitCode()
			} else if p.cmd != nil {
				_ = p.cmd.Wait()
				if p.cmd.ProcessState != nil {
					code = p.cmd.ProcessState.ExitCode()
				}
			}
			select {
			case exit <- ptyExitEvt{exitCode: code}:
			case <-p.closed:
			}
			return
		}
	}
}

// acceptLoop accepts connections on POD's private socket and routes them
// by handshake first byte: C3 VT attach, C5 shell-hook, or a one-shot
// auxiliary input injector.
func (p *Pod) acceptLoop(accepted chan<- acceptedEvt, shpConns chan<- shpEvt) {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case <-p.closed:
				return
			default:
				p.logger.Printf("pane %s: accept: %v", p.cfg.UUID, err)
				continue
			}
		}
		uc := conn.(*net.UnixConn)
		if err := sockutil.CheckPeerSameUID(uc); err != nil {
			p.logger.Printf("pane %s: rejecting peer: %v", p.cfg.UUID, err)
			uc.Close()
			continue
		}

		first := make([]byte, 1)
		if _, err := io.ReadFull(uc, first); err != nil {
			uc.Close()
			continue
		}

		switch first[0] {
		case wire.HandshakePodVT:
			select {
			case accepted <- acceptedEvt{conn: uc}:
			case <-p.closed:
				uc.Close()
				return
			}
		case wire.HandshakeShpControl:
			select {
			case shpConns <- shpEvt{conn: uc}:
			case <-p.closed:
				uc.Close()
				return
			}
		case wire.HandshakeAuxInput:
			go p.handleAuxInput(uc)
		default:
			uc.Close()
		}
	}
}

// replaceVTClient closes any previously-attached VT client, starts a fresh
// reader goroutine for the new one tagged with gen, and replays the
// backlog in bounded chunks followed by a backlog_end frame, for both
// first-attach and reattach.
func (p *Pod) replaceVTClient(conn *net.UnixConn, gen uint64, frames chan<- vtFrameEvt) {
	if p.vtConn != nil {
		_ = p.vtConn.Close()
	}
	p.vtConn = conn

	backlog := p.backlog.DrainAndClear()
	const chunk = 16 * 1024
	for len(backlog) > 0 {
		n := len(backlog)
		if n > chunk {
			n = chunk
		}
		p.writeVTFrame(wire.FrameOutput, backlog[:n])
		backlog = backlog[n:]
	}
	p.writeVTFrame(wire.FrameBacklogEnd, nil)

	go p.vtReadLoop(conn, gen, frames)
}

func (p *Pod) vtReadLoop(conn *net.UnixConn, gen uint64, frames chan<- vtFrameEvt) {
	for {
		h, err := wire.ReadPodVTHeader(conn)
		if err != nil {
			select {
			case frames <- vtFrameEvt{gen: gen, closed: true, err: err}:
			case <-p.closed:
			}
			return
		}
		var payload []byte
		if h.Len > 0 {
			payload, err = wire.ReadExact(conn, int(h.Len))
			if err != nil {
				select {
				case frames <- vtFrameEvt{gen: gen, closed: true, err: err}:
				case <-p.closed:
				}
				return
			}
		}
		select {
		case frames <- vtFrameEvt{gen: gen, frameType: h.FrameType, payload: payload}:
		case <-p.closed:
			return
		}
	}
}

// writeVTFrame sends one C3 frame of the given type (output or
// backlog_end) to the currently attached client,
// if any. Called only from the dispatch goroutine.
func (p *Pod) writeVTFrame(frameType uint8, payload []byte) {
	if p.vtConn == nil {
		return
	}
	hdr := wire.PodVTHeader{FrameType: frameType, Len: uint32(len(payload))}
	if err := wire.WriteAll(p.vtConn, hdr.Encode()); err != nil {
		p.vtConn = nil
		return
	}
	if len(payload) > 0 {
		if err := wire.WriteAll(p.vtConn, payload); err != nil {
			p.vtConn = nil
		}
	}
}

// handleAuxInput is a one-shot connection: read one length-prefixed input
// blob and inject it into the PTY, then close. Any same-UID local peer of
// the POD socket may use it; hexe send-keys does not, it goes through SES,
// which writes a C3 input frame instead.
func (p *Pod) handleAuxInput(conn *net.UnixConn) {
	defer conn.Close()
	h, err := wire.ReadPodVTHeader(conn)
	if err != nil || h.FrameType != wire.FrameInput || h.Len == 0 {
		return
	}
	payload, err := wire.ReadExact(conn, int(h.Len))
	if err != nil {
		return
	}
	if p.ptmx != nil {
		_, _ = p.ptmx.Write(payload)
	}
}
