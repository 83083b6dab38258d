// Package procinfo abstracts the /proc scraping POD's metadata scraper
// needs behind a small interface with platform-specific backends, so the
// POD event loop depends only on the interface and never does raw /proc
// path math itself.
package procinfo

// Inspector reads process state for the metadata scraper's tick.
type Inspector interface {
	// Cwd returns the current working directory of pid.
	Cwd(pid int) (string, error)
	// Foreground returns the foreground process group's leader pid and its
	// command name, derived from pid's controlling terminal.
	Foreground(pid int) (fgPid int, name string, err error)
}
