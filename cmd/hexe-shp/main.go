// Command hexe-shp is the shell hook helper: a shell's preexec/precmd
// hooks invoke it once per command boundary. It makes exactly one
// connection to its owning POD, sends one shell-event message, and exits;
// it is never a persistent process.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/warpwm/hexe/internal/wire"
)

func main() {
	phase := flag.String("phase", "start", "start or end")
	status := flag.Int("status", 0, "command exit status (end phase only)")
	durationMs := flag.Uint64("duration-ms", 0, "command duration in milliseconds (end phase only)")
	jobs := flag.Uint64("jobs", 0, "background job count")
	running := flag.Bool("running", false, "whether a job is still running after this command")
	cmd := flag.String("cmd", "", "command line")
	cwd := flag.String("cwd", "", "working directory")
	flag.Parse()

	socketPath := os.Getenv("HEXE_POD_SOCKET")
	if socketPath == "" {
		fmt.Fprintln(os.Stderr, "hexe-shp: HEXE_POD_SOCKET is not set, not running under hexe")
		os.Exit(0)
	}

	if *cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			*cwd = wd
		}
	}

	phaseByte := wire.ShpPhaseStart
	if *phase == "end" {
		phaseByte = wire.ShpPhaseEnd
	}

	ev := wire.ShpShellEvent{
		Phase:      phaseByte,
		Status:     int32(*status),
		DurationMs: uint32(*durationMs),
		StartedAt:  uint64(time.Now().UnixMilli()),
		Jobs:       uint16(*jobs),
		Running:    *running,
		Cmd:        *cmd,
		Cwd:        *cwd,
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		// POD may have already exited; a shell hook failing silently beats
		// breaking the user's prompt.
		os.Exit(0)
	}
	defer conn.Close()

	if err := wire.WriteAll(conn, []byte{wire.HandshakeShpControl}); err != nil {
		os.Exit(0)
	}
	_ = wire.WriteControl(conn, wire.MsgShpShellEvent, ev.Encode())
}
