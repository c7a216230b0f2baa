package termpix

import (
	"os"
	"os/exec"
	"strings"
	"sync"
)

var tmuxPassthroughOnce sync.Once

// inTmux reports whether we are running under tmux (or screen posing as
// tmux via TERM_PROGRAM).
func inTmux() bool {
	return os.Getenv("TMUX") != "" || os.Getenv("TERM_PROGRAM") == "tmux"
}

// inScreen reports whether we are running inside GNU screen.
func inScreen() bool {
	return strings.HasPrefix(os.Getenv("TERM"), "screen") ||
		os.Getenv("TERM_PROGRAM") == "screen"
}

// enableTmuxPassthrough asks tmux to forward unrecognized escape
// sequences to the outer terminal. Without allow-passthrough the
// graphics payloads are swallowed by tmux. Best effort; runs once.
func enableTmuxPassthrough() {
	tmuxPassthroughOnce.Do(func() {
		cmd := exec.Command("tmux", "set", "-p", "allow-passthrough", "on")
		cmd.Stdin = nil
		cmd.Stdout = nil
		cmd.Stderr = nil
		_ = cmd.Run()
	})
}

// wrapTmuxPassthrough wraps an escape sequence in the tmux passthrough
// envelope (\ePtmux;...\e\\ with every inner ESC doubled) when running
// under tmux. Sequences that do not start with ESC are passed through
// unchanged.
func wrapTmuxPassthrough(seq string) string {
	if !inTmux() || !strings.HasPrefix(seq, "\x1b") {
		return seq
	}
	enableTmuxPassthrough()
	return "\x1bPtmux;\x1b" + strings.ReplaceAll(seq, "\x1b", "\x1b\x1b") + "\x1b\\"
}
