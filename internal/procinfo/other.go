//go:build !linux

package procinfo

import "fmt"

// other is a stub backend for non-Linux platforms; hexe's POD targets
// Linux (PTYs + /proc) first.
type other struct{}

func New() Inspector { return other{} }

func (other) Cwd(pid int) (string, error) {
	return "", fmt.Errorf("procinfo: unsupported platform")
}

func (other) Foreground(pid int) (int, string, error) {
	return 0, "", fmt.Errorf("procinfo: unsupported platform")
}
