package termpix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapTmuxPassthroughOutsideTmux(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "")

	assert.Equal(t, "\x1b_Gx\x1b\\", wrapTmuxPassthrough("\x1b_Gx\x1b\\"))
}

func TestWrapTmuxPassthroughInsideTmux(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-0/default,1,0")

	got := wrapTmuxPassthrough("\x1b_Gx\x1b\\")
	assert.Equal(t, "\x1bPtmux;\x1b\x1b\x1b_Gx\x1b\x1b\\\x1b\\", got)
}

func TestWrapTmuxPassthroughLeavesPlainTextAlone(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-0/default,1,0")

	assert.Equal(t, "plain text", wrapTmuxPassthrough("plain text"))
}

func TestInTmux(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "")
	assert.False(t, inTmux())

	t.Setenv("TMUX", "/tmp/sock")
	assert.True(t, inTmux())

	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "tmux")
	assert.True(t, inTmux())
}

func TestInScreen(t *testing.T) {
	t.Setenv("TERM", "screen-256color")
	t.Setenv("TERM_PROGRAM", "")
	assert.True(t, inScreen())

	t.Setenv("TERM", "xterm-256color")
	assert.False(t, inScreen())
}
