package pod

import (
	"io"

	"github.com/warpwm/hexe/internal/wire"
)

// scrapeTick runs on every metadata-scraper tick (cfg.ScrapeInterval,
// default 500ms): it asks the procinfo.Inspector for this pane's current
// cwd and foreground process, and pushes a C4 message upstream only when
// something actually changed, since cwd_changed/fg_changed are meant to be
// edge-triggered rather than polled by SES.
func (p *Pod) scrapeTick() {
	pid := p.Pid()
	if pid == 0 {
		return
	}

	if cwd, err := p.inspector.Cwd(pid); err == nil && cwd != p.lastCwd {
		p.lastCwd = cwd
		p.uplink.sendCwdChanged(cwd)
	}

	if fgPid, name, err := p.inspector.Foreground(pid); err == nil {
		if fgPid != p.lastFgPid || name != p.lastFgName {
			p.lastFgPid = fgPid
			p.lastFgName = name
			p.uplink.sendFgChanged(fgPid, name)
		}
	}
}

// pushFullState re-sends every cached metadata field unconditionally,
// bypassing scrapeTick's only-on-change filter. Run in response to a
// query_state request from SES, which asks for this because its own view
// fell behind (POD's C4 connection dropped and reconnected).
func (p *Pod) pushFullState() {
	if p.lastCwd != "" {
		p.uplink.sendCwdChanged(p.lastCwd)
	}
	if p.lastFgPid != 0 {
		p.uplink.sendFgChanged(p.lastFgPid, p.lastFgName)
	}
	if p.lastTitle != "" {
		p.uplink.sendTitleChanged(p.lastTitle)
	}
}

// handleShp reads exactly one shp_shell_event from a C5 connection and
// forwards it upstream as shell_event, then closes — SHP is a one-shot
// process launched per prompt/command boundary, never a persistent peer.
func (p *Pod) handleShp(conn io.ReadCloser) {
	defer conn.Close()

	h, err := wire.ReadControlHeader(conn)
	if err != nil || h.Type != wire.MsgShpShellEvent {
		return
	}
	payload, err := wire.ReadPayload(conn, h)
	if err != nil {
		return
	}
	ev, err := wire.DecodeShpShellEvent(payload)
	if err != nil {
		return
	}
	p.uplink.sendShellEvent(ev)
}
