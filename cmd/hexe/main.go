// Command hexe is the CLI surface for one-shot operations against a
// running SES: status queries, notifications, popups, and targeted key
// injection. Every subcommand makes exactly one connection, sends exactly
// one control message, and prints whatever comes back.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/sockutil"
	"github.com/warpwm/hexe/internal/wire"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "status":
		err = cmdStatus(os.Args[2:])
	case "sessions":
		err = cmdSessions(os.Args[2:])
	case "notify":
		err = cmdNotify(os.Args[2:])
	case "broadcast-notify":
		err = cmdBroadcastNotify(os.Args[2:])
	case "targeted-notify":
		err = cmdTargetedNotify(os.Args[2:])
	case "send-keys":
		err = cmdSendKeys(os.Args[2:])
	case "focus-move":
		err = cmdFocusMove(os.Args[2:])
	case "pop-confirm":
		err = cmdPopConfirm(os.Args[2:])
	case "pop-choose":
		err = cmdPopChoose(os.Args[2:])
	case "exit-intent":
		err = cmdExitIntent(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "hexe: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "hexe: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: hexe <command> [flags]

commands:
  status [-follow]               print session/pane status as JSON
  sessions [-filter all|attached|detached]
                                  list known sessions
  notify -m MESSAGE              notify every attached MUX
  broadcast-notify -m MESSAGE    alias of notify
  targeted-notify -t TARGET -m MESSAGE
  send-keys -t TARGET -k KEYS    inject raw bytes into a pane's PTY
  focus-move -d DIRECTION        left|right|up|down|next|prev
  pop-confirm -t TARGET -p PROMPT
  pop-choose -t TARGET -p PROMPT -o OPT1,OPT2,...
  exit-intent -u PANE_UUID       ask a pane's owner whether exit is OK

global:
  -socket PATH   SES socket (default: runtime dir for $HEXE_INSTANCE)`)
}

// sesSocketPath resolves the socket hexe dials, honoring -socket if a
// caller already consumed flags, then $HEXE_SES_SOCKET, then the default
// per-instance runtime directory.
func sesSocketPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv("HEXE_SES_SOCKET"); env != "" {
		return env, nil
	}
	dir, err := sockutil.RuntimeDir("hexe", os.Getenv("HEXE_INSTANCE"))
	if err != nil {
		return "", err
	}
	return sockutil.SesSocketPath(dir), nil
}

// oneShot dials SES, performs the CLI handshake, sends one control
// message, and returns the one reply SES sends back before closing.
func oneShot(socketPath string, t wire.MsgType, payload []byte) (wire.Header, []byte, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return wire.Header{}, nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer conn.Close()

	if err := wire.WriteAll(conn, []byte{wire.HandshakeCLI}); err != nil {
		return wire.Header{}, nil, err
	}
	if err := wire.WriteControl(conn, t, payload); err != nil {
		return wire.Header{}, nil, err
	}
	h, err := wire.ReadControlHeader(conn)
	if err != nil {
		return wire.Header{}, nil, fmt.Errorf("read reply: %w", err)
	}
	reply, err := wire.ReadPayload(conn, h)
	if err != nil {
		return wire.Header{}, nil, fmt.Errorf("read reply payload: %w", err)
	}
	return h, reply, nil
}

func checkErrorReply(h wire.Header, payload []byte) error {
	if h.Type != wire.MsgError {
		return nil
	}
	e, err := wire.DecodeError(payload)
	if err != nil {
		return fmt.Errorf("ses returned an error reply it could not decode: %w", err)
	}
	return fmt.Errorf("ses: %s", e.Reason)
}

func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	socket := fs.String("socket", "", "SES socket path")
	full := fs.Bool("full", false, "send the full-detail flag; SES replies with the same session summary either way")
	follow := fs.Bool("follow", false, "re-print status whenever the registry changes")
	stateDir := fs.String("state-dir", "", "state dir to watch for -follow (default: $HEXE_STATE_DIR or /var/lib/hexe)")
	fs.Parse(args)

	path, err := sesSocketPath(*socket)
	if err != nil {
		return err
	}
	if err := printStatus(path, *full); err != nil {
		return err
	}
	if !*follow {
		return nil
	}
	return followRegistry(*stateDir, func() error { return printStatus(path, *full) })
}

func printStatus(socketPath string, full bool) error {
	h, payload, err := oneShot(socketPath, wire.MsgStatus, wire.Status{Full: full}.Encode())
	if err != nil {
		return err
	}
	if err := checkErrorReply(h, payload); err != nil {
		return err
	}
	reply, err := wire.DecodeStatusReply(payload)
	if err != nil {
		return fmt.Errorf("decode status reply: %w", err)
	}
	fmt.Println(string(reply.JSON))
	return nil
}

// followRegistry watches <state-dir>/registry.json with fsnotify and calls
// onChange each time SES persists an update, instead of polling the file.
func followRegistry(stateDir string, onChange func() error) error {
	if stateDir == "" {
		stateDir = os.Getenv("HEXE_STATE_DIR")
	}
	if stateDir == "" {
		stateDir = "/var/lib/hexe"
	}
	registryPath := filepath.Join(stateDir, "registry.json")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start registry watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(stateDir); err != nil {
		return fmt.Errorf("watch %s: %w", stateDir, err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigc:
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != registryPath || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := onChange(); err != nil {
				fmt.Fprintf(os.Stderr, "hexe: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "hexe: registry watch: %v\n", err)
		}
	}
}

func cmdSessions(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	socket := fs.String("socket", "", "SES socket path")
	filter := fs.String("filter", "all", "all|attached|detached")
	watch := fs.Bool("watch", false, "re-print the list whenever the registry changes")
	stateDir := fs.String("state-dir", "", "state dir to watch for -watch (default: $HEXE_STATE_DIR or /var/lib/hexe)")
	fs.Parse(args)

	var f uint8
	switch *filter {
	case "attached":
		f = 1
	case "detached":
		f = 2
	default:
		f = 0
	}

	path, err := sesSocketPath(*socket)
	if err != nil {
		return err
	}
	if err := printSessions(path, f); err != nil {
		return err
	}
	if !*watch {
		return nil
	}
	return followRegistry(*stateDir, func() error { return printSessions(path, f) })
}

func printSessions(socketPath string, filter uint8) error {
	h, payload, err := oneShot(socketPath, wire.MsgListSessions, wire.ListSessions{Filter: filter}.Encode())
	if err != nil {
		return err
	}
	if err := checkErrorReply(h, payload); err != nil {
		return err
	}
	list, err := wire.DecodeSessionsList(payload)
	if err != nil {
		return fmt.Errorf("decode sessions list: %w", err)
	}
	for _, s := range list.Sessions {
		state := "detached"
		if s.Attached {
			state = "attached"
		}
		fmt.Printf("%s\t%-8s\t%3d panes\t%s\n", hex.EncodeToString(s.SessionID[:]), state, s.PaneCount, s.Name)
	}
	return nil
}

func cmdNotify(args []string) error { return notifyImpl(args, wire.MsgNotify) }

func cmdBroadcastNotify(args []string) error { return notifyImpl(args, wire.MsgBroadcastNotify) }

func notifyImpl(args []string, t wire.MsgType) error {
	fs := flag.NewFlagSet("notify", flag.ExitOnError)
	socket := fs.String("socket", "", "SES socket path")
	message := fs.String("m", "", "message text")
	fs.Parse(args)

	path, err := sesSocketPath(*socket)
	if err != nil {
		return err
	}
	var payload []byte
	if t == wire.MsgNotify {
		payload = wire.Notify{Message: *message}.Encode()
	} else {
		payload = wire.BroadcastNotify{Message: *message}.Encode()
	}
	h, reply, err := oneShot(path, t, payload)
	if err != nil {
		return err
	}
	return checkErrorReply(h, reply)
}

func cmdTargetedNotify(args []string) error {
	fs := flag.NewFlagSet("targeted-notify", flag.ExitOnError)
	socket := fs.String("socket", "", "SES socket path")
	target := fs.String("t", "", "target session/pane name, uuid, or session id")
	message := fs.String("m", "", "message text")
	fs.Parse(args)

	path, err := sesSocketPath(*socket)
	if err != nil {
		return err
	}
	h, reply, err := oneShot(path, wire.MsgTargetedNotify, wire.TargetedNotify{Target: *target, Message: *message}.Encode())
	if err != nil {
		return err
	}
	return checkErrorReply(h, reply)
}

func cmdSendKeys(args []string) error {
	fs := flag.NewFlagSet("send-keys", flag.ExitOnError)
	socket := fs.String("socket", "", "SES socket path")
	target := fs.String("t", "", "target pane/session")
	keys := fs.String("k", "", "raw bytes to inject")
	fs.Parse(args)

	path, err := sesSocketPath(*socket)
	if err != nil {
		return err
	}
	h, reply, err := oneShot(path, wire.MsgSendKeys, wire.SendKeys{Target: *target, Keys: []byte(*keys)}.Encode())
	if err != nil {
		return err
	}
	return checkErrorReply(h, reply)
}

func cmdFocusMove(args []string) error {
	fs := flag.NewFlagSet("focus-move", flag.ExitOnError)
	socket := fs.String("socket", "", "SES socket path")
	dir := fs.String("d", "next", "left|right|up|down|next|prev")
	fs.Parse(args)

	var d uint8
	switch *dir {
	case "left":
		d = wire.FocusLeft
	case "right":
		d = wire.FocusRight
	case "up":
		d = wire.FocusUp
	case "down":
		d = wire.FocusDown
	case "prev":
		d = wire.FocusPrev
	default:
		d = wire.FocusNext
	}

	path, err := sesSocketPath(*socket)
	if err != nil {
		return err
	}
	h, reply, err := oneShot(path, wire.MsgFocusMove, wire.FocusMove{Direction: d}.Encode())
	if err != nil {
		return err
	}
	return checkErrorReply(h, reply)
}

func cmdPopConfirm(args []string) error {
	fs := flag.NewFlagSet("pop-confirm", flag.ExitOnError)
	socket := fs.String("socket", "", "SES socket path")
	target := fs.String("t", "", "target session/pane")
	prompt := fs.String("p", "", "prompt text")
	fs.Parse(args)

	path, err := sesSocketPath(*socket)
	if err != nil {
		return err
	}
	h, reply, err := oneShot(path, wire.MsgPopConfirm, wire.PopConfirm{Target: *target, Prompt: *prompt}.Encode())
	if err != nil {
		return err
	}
	if err := checkErrorReply(h, reply); err != nil {
		return err
	}
	resp, err := wire.DecodePopResponse(reply)
	if err != nil {
		return fmt.Errorf("decode pop response: %w", err)
	}
	fmt.Println(resp.Accepted)
	return nil
}

func cmdPopChoose(args []string) error {
	fs := flag.NewFlagSet("pop-choose", flag.ExitOnError)
	socket := fs.String("socket", "", "SES socket path")
	target := fs.String("t", "", "target session/pane")
	prompt := fs.String("p", "", "prompt text")
	opts := fs.String("o", "", "comma-separated options")
	fs.Parse(args)

	var options []string
	if *opts != "" {
		start := 0
		for i := 0; i <= len(*opts); i++ {
			if i == len(*opts) || (*opts)[i] == ',' {
				options = append(options, (*opts)[start:i])
				start = i + 1
			}
		}
	}

	path, err := sesSocketPath(*socket)
	if err != nil {
		return err
	}
	h, reply, err := oneShot(path, wire.MsgPopChoose, wire.PopChoose{Target: *target, Prompt: *prompt, Options: options}.Encode())
	if err != nil {
		return err
	}
	if err := checkErrorReply(h, reply); err != nil {
		return err
	}
	resp, err := wire.DecodePopResponse(reply)
	if err != nil {
		return fmt.Errorf("decode pop response: %w", err)
	}
	fmt.Println(resp.ChoiceIndex)
	return nil
}

func cmdExitIntent(args []string) error {
	fs := flag.NewFlagSet("exit-intent", flag.ExitOnError)
	socket := fs.String("socket", "", "SES socket path")
	uuidStr := fs.String("u", "", "pane uuid")
	fs.Parse(args)

	uuid, err := ids.ParsePaneUUID(*uuidStr)
	if err != nil {
		return fmt.Errorf("bad pane uuid %q: %w", *uuidStr, err)
	}

	path, err := sesSocketPath(*socket)
	if err != nil {
		return err
	}
	h, reply, err := oneShot(path, wire.MsgExitIntent, wire.UUIDOnly{UUID: [16]byte(uuid)}.Encode())
	if err != nil {
		return err
	}
	if err := checkErrorReply(h, reply); err != nil {
		return err
	}
	resp, err := wire.DecodeExitIntentResult(reply)
	if err != nil {
		return fmt.Errorf("decode exit intent result: %w", err)
	}
	fmt.Println(resp.Allow)
	return nil
}
