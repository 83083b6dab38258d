// Package pod implements the per-pane process: it owns one PTY-backed
// shell, keeps a backlog of its output, and exposes that shell to at most
// one VT client at a time over a private unix socket (C3), while pushing
// metadata upstream to SES over C4. Grounded on agentd's ptyBridge in
// internal/tmux/pty_bridge.go, generalized from "one tmux attach, many
// read-only viewers" to "one real PTY, exactly one read-write owner".
package pod

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"

	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/procinfo"
	"github.com/warpwm/hexe/internal/sockutil"
	"github.com/warpwm/hexe/internal/wire"
)

// Config carries everything POD needs to start a shell and find its peers.
type Config struct {
	UUID           ids.PaneUUID
	SocketPath     string
	SesSocketPath  string
	Shell          string
	ShellArgs      []string
	Cwd            string
	Env            []string
	Cols           uint16
	Rows           uint16
	BacklogBytes   int
	SpillPath      string // empty disables the debug mirror
	ScrapeInterval time.Duration
	Logger         *log.Logger
}

// Pod owns one shell's PTY and its backlog. All mutable state below this
// point is touched only by the dispatch goroutine started in Run; other
// goroutines only ever send on a channel.
type Pod struct {
	cfg       Config
	inspector procinfo.Inspector
	logger    *log.Logger

	ptmx *os.File
	cmd  *exec.Cmd

	backlog *Backlog

	listener *net.UnixListener

	cols, rows uint16

	lastCwd    string
	lastFgPid  int
	lastFgName string
	lastTitle  string

	uplink     *uplink
	queryState chan struct{}

	vtConn *net.UnixConn

	readGatePaused atomic.Bool

	closeOnce sync.Once
	closed    chan struct{}
}

// event types fed to the dispatch loop from reader/accept goroutines.
type ptyOutputEvt struct{ data []byte }
type ptyExitEvt struct{ exitCode int }
type acceptedEvt struct{ conn *net.UnixConn }
type vtFrameEvt struct {
	gen       uint64
	frameType uint8
	payload   []byte
	closed    bool
	err       error
}
type shpEvt struct {
	conn *net.UnixConn
}

func New(cfg Config) (*Pod, error) {
	if cfg.BacklogBytes <= 0 {
		cfg.BacklogBytes = 256 * 1024
	}
	if cfg.ScrapeInterval <= 0 {
		cfg.ScrapeInterval = 500 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "hexe-pod: ", log.LstdFlags)
	}

	p := &Pod{
		cfg:        cfg,
		inspector:  procinfo.New(),
		logger:     logger,
		backlog:    NewBacklog(cfg.BacklogBytes),
		cols:       cfg.Cols,
		rows:       cfg.Rows,
		queryState: make(chan struct{}, 1),
		closed:     make(chan struct{}),
	}

	if cfg.SpillPath != "" {
		if f, err := os.OpenFile(cfg.SpillPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err != nil {
			logger.Printf("pane %s: spill file disabled: %v", cfg.UUID, err)
		} else {
			p.backlog.SetSpillFile(f)
		}
	}

	if err := p.startShell(); err != nil {
		return nil, err
	}

	l, err := sockutil.Listen(cfg.SocketPath)
	if err != nil {
		p.ptmx.Close()
		return nil, err
	}
	p.listener = l

	p.uplink = newUplink(cfg.SesSocketPath, cfg.UUID, logger, p.queryState)
	p.uplink.setRegistration(uint32(p.Pid()), cfg.SocketPath)

	return p, nil
}

func (p *Pod) startShell() error {
	shell := p.cfg.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.Command(shell, p.cfg.ShellArgs...)
	if p.cfg.Cwd != "" {
		cmd.Dir = p.cfg.Cwd
	}
	if len(p.cfg.Env) > 0 {
		cmd.Env = p.cfg.Env
	} else {
		cmd.Env = os.Environ()
	}

	cols, rows := p.cfg.Cols, p.cfg.Rows
	if cols == 0 {
		cols = 80
	}
	if rows == 0 {
		rows = 24
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cols, Rows: rows})
	if err != nil {
		return fmt.Errorf("pod: start shell: %w", err)
	}
	p.ptmx = ptmx
	p.cmd = cmd
	p.cols, p.rows = cols, rows
	return nil
}

// Pid returns the shell child's process id, for PodRegister.
func (p *Pod) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Run drives POD's event loop until the shell exits or Close is called. It
// is the single owner of backlog, vtConn, and cols/rows: everything else
// only posts events to it over channels, the same single-owner discipline
// SES's router goroutine uses, translated here into Go's channel idiom
// instead of a raw pollset.
func (p *Pod) Run() {
	ptyOut := make(chan ptyOutputEvt, 64)
	ptyExit := make(chan ptyExitEvt, 1)
	accepted := make(chan acceptedEvt, 4)
	vtFrames := make(chan vtFrameEvt, 64)
	shpConns := make(chan shpEvt, 4)

	go p.ptyReadLoop(ptyOut, ptyExit)
	go p.acceptLoop(accepted, shpConns)
	go p.uplink.run()

	ticker := time.NewTicker(p.cfg.ScrapeInterval)
	defer ticker.Stop()

	var vtGen uint64
	paused := false

	for {
		select {
		case evt := <-ptyOut:
			if scanBell(evt.data) {
				p.uplink.sendBell()
			}
			if title, ok := scanTitle(evt.data); ok && title != p.lastTitle {
				p.lastTitle = title
				p.uplink.sendTitleChanged(title)
			}
			if paused {
				continue
			}
			hasClient := p.vtConn != nil
			paused = p.backlog.Append(evt.data, hasClient)
			if hasClient {
				p.writeVTFrame(wire.FrameOutput, evt.data)
			}

		case evt := <-ptyExit:
			p.handleExit(evt.exitCode)
			return

		case evt := <-accepted:
			vtGen++
			gen := vtGen
			p.replaceVTClient(evt.conn, gen, vtFrames)
			paused = p.backlog.Paused()

		case evt := <-vtFrames:
			if evt.gen != vtGen {
				continue // stale reader goroutine from a replaced client
			}
			if evt.closed || evt.err != nil {
				p.vtConn = nil
				continue
			}
			switch evt.frameType {
			case wire.FrameInput:
				if p.ptmx != nil {
					_, _ = p.ptmx.Write(evt.payload)
				}
			case wire.FrameResize:
				if cols, rows, err := wire.DecodeResizePayload(evt.payload); err == nil {
					p.cols, p.rows = cols, rows
					if p.ptmx != nil {
						_ = pty.Setsize(p.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
					}
				}
			}

		case evt := <-shpConns:
			p.handleShp(evt.conn)

		case <-p.queryState:
			p.pushFullState()

		case <-ticker.C:
			if paused && p.vtConn != nil {
				// client attached since we last paused; resume reading
				paused = false
			}
			p.scrapeTick()

		case <-p.closed:
			return
		}

		p.readGatePaused.Store(paused)
	}
}

func (p *Pod) handleExit(exitCode int) {
	p.logger.Printf("pane %s: shell exited status=%d", p.cfg.UUID, exitCode)
	p.uplink.sendExited(exitCode)
	if p.vtConn != nil {
		_ = p.vtConn.Close()
	}
}

func (p *Pod) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		if p.listener != nil {
			_ = p.listener.Close()
			_ = os.Remove(p.cfg.SocketPath)
		}
		if p.ptmx != nil {
			_ = p.ptmx.Close()
		}
		if p.cmd != nil && p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		if p.uplink != nil {
			p.uplink.close()
		}
	})
}
