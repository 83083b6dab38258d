//go:build linux

package sockutil

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// checkPeerSameUID uses SO_PEERCRED, the Linux peer-credentials socket
// option. Non-Linux platforms get a different backend behind the same
// CheckPeerSameUID capability.
func checkPeerSameUID(conn *net.UnixConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("sockutil: syscall conn: %w", err)
	}

	var ucred *unix.Ucred
	var getErr error
	err = raw.Control(func(fd uintptr) {
		ucred, getErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return fmt.Errorf("sockutil: control: %w", err)
	}
	if getErr != nil {
		return fmt.Errorf("sockutil: getsockopt SO_PEERCRED: %w", getErr)
	}

	if ucred.Uid != uint32(os.Getuid()) {
		return fmt.Errorf("sockutil: peer uid %d does not match our uid %d", ucred.Uid, os.Getuid())
	}
	return nil
}
