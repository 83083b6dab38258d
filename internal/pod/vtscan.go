package pod

import "bytes"

const bel = 0x07

var (
	oscTitlePrefixIcon  = []byte{0x1b, ']', '0', ';'}
	oscTitlePrefixTitle = []byte{0x1b, ']', '2', ';'}
	oscTerminatorST     = []byte{0x1b, '\\'}
)

// scanBell reports whether data contains a BEL byte, the terminal's
// audible/visual alert signal.
func scanBell(data []byte) bool {
	return bytes.IndexByte(data, bel) != -1
}

// scanTitle returns the last complete OSC 0 or OSC 2 window-title sequence
// in data, if any. A sequence split across two PTY read chunks is missed,
// the same tradeoff containsClearSequence makes for the scrollback-erase
// sequence in backlog.go: the shell redraws its title/prompt soon enough
// that a miss here is never user-visible for long.
func scanTitle(data []byte) (string, bool) {
	title, found := "", false
	for _, prefix := range [][]byte{oscTitlePrefixIcon, oscTitlePrefixTitle} {
		start := 0
		for {
			idx := bytes.Index(data[start:], prefix)
			if idx == -1 {
				break
			}
			bodyStart := start + idx + len(prefix)
			end, termLen := findOSCTerminator(data[bodyStart:])
			if end == -1 {
				break
			}
			title, found = string(data[bodyStart:bodyStart+end]), true
			start = bodyStart + end + termLen
		}
	}
	return title, found
}

// findOSCTerminator locates whichever OSC terminator (BEL or ESC \) comes
// first in data, returning its offset and byte length.
func findOSCTerminator(data []byte) (int, int) {
	belIdx := bytes.IndexByte(data, bel)
	stIdx := bytes.Index(data, oscTerminatorST)
	switch {
	case belIdx == -1 && stIdx == -1:
		return -1, 0
	case belIdx == -1:
		return stIdx, len(oscTerminatorST)
	case stIdx == -1:
		return belIdx, 1
	case stIdx < belIdx:
		return stIdx, len(oscTerminatorST)
	default:
		return belIdx, 1
	}
}
