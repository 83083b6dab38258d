package ses

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/warpwm/hexe/internal/ids"
	"github.com/warpwm/hexe/internal/sockutil"
	"github.com/warpwm/hexe/internal/wire"
)

// spawnPod execs the POD binary for a brand-new pane, waits for its
// readiness line on stdout, then dials C3 and completes the handshake.
// POD's own C4 dial-back is handled separately by the accept loop once
// the process starts its uplink goroutine. name is the pane's friendly
// name at creation time, usually empty since panes are named after the
// fact via update_pane_name; HEXE_POD_NAME is set regardless, per the env
// vars SES always hands a freshly spawned POD.
func (r *Router) spawnPod(uuid ids.PaneUUID, cwd, shell, name string, env []wire.EnvVar) (*net.UnixConn, string, int, error) {
	socketPath := sockutil.PodSocketPath(r.cfg.RuntimeDir, uuid.String())

	args := []string{
		"-uuid", uuid.String(),
		"-socket", socketPath,
		"-ses-socket", r.cfg.SocketPath,
	}
	if shell != "" {
		args = append(args, "-shell", shell)
	}
	if cwd != "" {
		args = append(args, "-cwd", cwd)
	}
	if r.cfg.BacklogBytes > 0 {
		args = append(args, "-backlog-bytes", fmt.Sprint(r.cfg.BacklogBytes))
	}
	if r.cfg.StateDir != "" {
		args = append(args, "-state-dir", r.cfg.StateDir)
	}

	cmd := exec.Command(r.cfg.PodBinaryPath, args...)
	cmd.Env = os.Environ()
	for _, e := range env {
		cmd.Env = append(cmd.Env, e.Key+"="+e.Value)
	}
	cmd.Env = append(cmd.Env,
		"HEXE_POD_SOCKET="+socketPath,
		"HEXE_PANE_UUID="+uuid.String(),
		"HEXE_POD_NAME="+name,
		"HEXE_SES_SOCKET="+r.cfg.SocketPath,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, "", 0, fmt.Errorf("ses: pod stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, "", 0, fmt.Errorf("ses: start pod: %w", err)
	}

	ready := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		if scanner.Scan() {
			ready <- nil
		} else {
			ready <- fmt.Errorf("ses: pod exited before readiness line")
		}
	}()

	select {
	case err := <-ready:
		if err != nil {
			_ = cmd.Process.Kill()
			return nil, "", 0, err
		}
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		return nil, "", 0, fmt.Errorf("ses: pod readiness timeout")
	}

	conn, err := dialPodVT(socketPath)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, "", 0, err
	}

	return conn, socketPath, cmd.Process.Pid, nil
}

// updatePodAlias moves pod's pod@<name>.sock symlink to newName, removing
// the previous alias first if one existed. newName == "" just removes it.
func (r *Router) updatePodAlias(pod *podConn, newName string) {
	if pod.aliasName == newName {
		return
	}
	if pod.aliasName != "" {
		_ = os.Remove(sockutil.PodAliasPath(r.cfg.RuntimeDir, pod.aliasName))
	}
	if newName != "" {
		aliasPath := sockutil.PodAliasPath(r.cfg.RuntimeDir, newName)
		_ = os.Remove(aliasPath) // stale alias from a prior pane with this name
		if err := os.Symlink(pod.socketPath, aliasPath); err != nil {
			r.logger.Printf("pane %s: alias %q: %v", pod.uuid, newName, err)
			pod.aliasName = ""
			return
		}
	}
	pod.aliasName = newName
}

// dialPodVT connects to a POD's socket and completes the C3 handshake.
func dialPodVT(socketPath string) (*net.UnixConn, error) {
	c, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("ses: dial pod %s: %w", socketPath, err)
	}
	conn := c.(*net.UnixConn)
	if err := wire.WriteAll(conn, []byte{wire.HandshakePodVT}); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
