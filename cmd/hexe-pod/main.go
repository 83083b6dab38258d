// Command hexe-pod is the per-pane process: it owns one PTY-backed shell
// and exposes it to at most one attached client at a time. SES execs one
// of these per create_pane/float_request; it prints a single readiness
// line on stdout once its socket is listening, then runs until its shell
// exits or SES kills it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/pod"
)

func main() {
	uuidStr := flag.String("uuid", "", "pane uuid (32 hex chars)")
	socketPath := flag.String("socket", "", "path for this pod's own listening socket")
	sesSocket := flag.String("ses-socket", "", "path to SES's listening socket")
	shell := flag.String("shell", "", "shell to exec (default /bin/sh)")
	cwd := flag.String("cwd", "", "working directory for the shell")
	name := flag.String("name", "", "friendly pane name, for logging (HEXE_POD_NAME)")
	stateDir := flag.String("state-dir", "", "state dir, used for the backlog spill file")
	backlogBytes := flag.Int("backlog-bytes", 0, "in-memory backlog ring capacity")
	flag.Parse()

	if *uuidStr == "" {
		*uuidStr = os.Getenv("HEXE_PANE_UUID")
	}
	if *socketPath == "" {
		*socketPath = os.Getenv("HEXE_POD_SOCKET")
	}
	if *sesSocket == "" {
		*sesSocket = os.Getenv("HEXE_SES_SOCKET")
	}
	if *name == "" {
		*name = os.Getenv("HEXE_POD_NAME")
	}
	if *uuidStr == "" || *socketPath == "" || *sesSocket == "" {
		fmt.Fprintln(os.Stderr, "hexe-pod: -uuid, -socket and -ses-socket are required")
		os.Exit(2)
	}

	uuid, err := ids.ParsePaneUUID(*uuidStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hexe-pod: bad uuid %q: %v\n", *uuidStr, err)
		os.Exit(2)
	}

	logPrefix := "hexe-pod(" + uuid.String()[:8] + ")"
	if *name != "" {
		logPrefix = "hexe-pod(" + *name + "/" + uuid.String()[:8] + ")"
	}
	logger := log.New(os.Stderr, logPrefix+": ", log.LstdFlags)

	var spillPath string
	if *stateDir != "" {
		spillPath = filepath.Join(*stateDir, "backlog", uuid.String()+".log")
	}

	cfg := pod.Config{
		UUID:          uuid,
		SocketPath:    *socketPath,
		SesSocketPath: *sesSocket,
		Shell:         *shell,
		Cwd:           *cwd,
		Env:           os.Environ(),
		BacklogBytes:  *backlogBytes,
		SpillPath:     spillPath,
		Logger:        logger,
	}

	p, err := pod.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hexe-pod: %v\n", err)
		os.Exit(1)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		p.Close()
	}()

	// The one line SES's spawnPod scans for before dialing C3.
	fmt.Println(strings.Join([]string{"hexe-pod ready", uuid.String(), *socketPath}, " "))

	p.Run()
}
