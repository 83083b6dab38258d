//go:build linux

package procinfo

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LinuxInspector reads /proc directly. Grounded on agentd's
// proc.Snapshot stat-field parsing, adapted here to a single-pid lookup
// (field 8, tpgid) instead of a whole-tree snapshot, since POD only ever
// needs its one child's foreground group.
type LinuxInspector struct{}

func New() Inspector { return LinuxInspector{} }

func (LinuxInspector) Cwd(pid int) (string, error) {
	link := fmt.Sprintf("/proc/%d/cwd", pid)
	target, err := os.Readlink(link)
	if err != nil {
		return "", fmt.Errorf("procinfo: readlink %s: %w", link, err)
	}
	return target, nil
}

func (l LinuxInspector) Foreground(pid int) (int, string, error) {
	tpgid, err := readTpgid(pid)
	if err != nil {
		return 0, "", err
	}
	name, err := readComm(tpgid)
	if err != nil {
		return tpgid, "", err
	}
	return tpgid, name, nil
}

// readTpgid parses /proc/<pid>/stat field 8, the controlling terminal's
// foreground process group. The comm field is parenthesized and may itself
// contain spaces or parens, so split on the last ')' before counting fields
// exactly as agentd's proc.parseStat does.
func readTpgid(pid int) (int, error) {
	path := fmt.Sprintf("/proc/%d/stat", pid)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("procinfo: read %s: %w", path, err)
	}
	stat := strings.TrimSpace(string(data))
	rparen := strings.LastIndex(stat, ")")
	if rparen == -1 || rparen+2 > len(stat) {
		return 0, fmt.Errorf("procinfo: malformed stat line for pid %d", pid)
	}
	fields := strings.Fields(stat[rparen+2:])
	// fields[0] = state, fields[1] = ppid, ..., fields[5] = tpgid (field 8
	// overall, 0-indexed from state as field 3).
	const tpgidIdx = 5
	if len(fields) <= tpgidIdx {
		return 0, fmt.Errorf("procinfo: stat line too short for pid %d", pid)
	}
	tpgid, err := strconv.Atoi(fields[tpgidIdx])
	if err != nil {
		return 0, fmt.Errorf("procinfo: parse tpgid for pid %d: %w", pid, err)
	}
	return tpgid, nil
}

func readComm(pid int) (string, error) {
	path := fmt.Sprintf("/proc/%d/comm", pid)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("procinfo: read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
