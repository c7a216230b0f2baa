package termpix

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(rows int) (*Manager, *bytes.Buffer) {
	var buf bytes.Buffer
	m := NewManager(&buf, NewIDAllocator())
	m.size = func() (int, int) { return 80, rows }
	return m, &buf
}

func TestOverlayDrawAtAnchor(t *testing.T) {
	m, buf := newTestManager(40)
	o := m.Mount(Anchor{Row: 5, Col: 3})

	out := &Output{Payload: []byte("PAYLOAD"), Cols: 4, Rows: 2}
	require.NoError(t, o.Draw(out, Sixel))

	got := buf.String()
	assert.Contains(t, got, "\x1b7")
	assert.Contains(t, got, ansi.CursorPosition(3, 5))
	assert.Contains(t, got, "PAYLOAD")
	assert.True(t, strings.HasSuffix(got, "\x1b8"))
}

func TestOverlayRedrawErasesPreviousBox(t *testing.T) {
	m, buf := newTestManager(40)
	o := m.Mount(Anchor{Row: 5, Col: 3})

	require.NoError(t, o.Draw(&Output{Payload: []byte("BIG"), Cols: 6, Rows: 2}, Sixel))
	buf.Reset()

	// The new frame is smaller; the old extent must be blanked first so
	// no stale cells survive around the new box.
	require.NoError(t, o.Draw(&Output{Payload: []byte("SMALL"), Cols: 2, Rows: 1}, Sixel))

	got := buf.String()
	blank := strings.Repeat(" ", 6)
	assert.Contains(t, got, ansi.CursorPosition(3, 5)+blank)
	assert.Contains(t, got, ansi.CursorPosition(3, 6)+blank)
	assert.Less(t, strings.Index(got, blank), strings.Index(got, "SMALL"), "erase precedes draw")
}

func TestOverlayDrawSkipsOffViewport(t *testing.T) {
	m, buf := newTestManager(24)
	o := m.Mount(Anchor{Row: 100, Col: 1})

	require.NoError(t, o.Draw(&Output{Payload: []byte("PAYLOAD"), Cols: 4, Rows: 2}, Sixel))
	assert.Empty(t, buf.String())

	// Nothing was drawn, so unmount has nothing to erase.
	require.NoError(t, o.Unmount())
	assert.Empty(t, buf.String())
}

func TestOverlayDrawSkipsOffViewportColumn(t *testing.T) {
	m, buf := newTestManager(24)
	o := m.Mount(Anchor{Row: 5, Col: 200})

	require.NoError(t, o.Draw(&Output{Payload: []byte("PAYLOAD"), Cols: 4, Rows: 2}, Sixel))
	assert.Empty(t, buf.String())

	// Scrolling back in resumes drawing.
	require.NoError(t, o.Move(Anchor{Row: 5, Col: 10}))
	require.NoError(t, o.Draw(&Output{Payload: []byte("PAYLOAD"), Cols: 4, Rows: 2}, Sixel))
	assert.Contains(t, buf.String(), "PAYLOAD")
}

func TestOverlayRelativeAnchor(t *testing.T) {
	m, buf := newTestManager(40)
	o := m.Mount(Anchor{Row: 2, Col: 4, RegionHeight: 10})

	require.NoError(t, o.Draw(&Output{Payload: []byte("PAYLOAD"), Cols: 3, Rows: 1}, Sixel))

	// Region bottom sits at the viewport bottom: row 40-10+2 = 32.
	assert.Contains(t, buf.String(), ansi.CursorPosition(4, 32))
}

func TestOverlayDrawRejectsInline(t *testing.T) {
	m, _ := newTestManager(24)
	o := m.Mount(Anchor{Row: 1, Col: 1})

	err := o.Draw(&Output{Lines: []string{"text"}}, HalfBlocks)
	assert.ErrorIs(t, err, ErrEncodeFailed)
}

func TestOverlayMoveErasesOldBox(t *testing.T) {
	m, buf := newTestManager(40)
	o := m.Mount(Anchor{Row: 5, Col: 3})

	require.NoError(t, o.Draw(&Output{Payload: []byte("PAYLOAD"), Cols: 4, Rows: 1}, Sixel))
	buf.Reset()

	require.NoError(t, o.Move(Anchor{Row: 10, Col: 10}))
	assert.Contains(t, buf.String(), ansi.CursorPosition(3, 5)+strings.Repeat(" ", 4))
}

func TestOverlayUnmountErases(t *testing.T) {
	m, buf := newTestManager(40)
	o := m.Mount(Anchor{Row: 5, Col: 3})

	require.NoError(t, o.Draw(&Output{Payload: []byte("PAYLOAD"), Cols: 4, Rows: 1}, Sixel))
	buf.Reset()

	require.NoError(t, o.Unmount())
	assert.Contains(t, buf.String(), strings.Repeat(" ", 4))
}

func TestOverlayUnmountSkippedWhileExiting(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "")

	m, buf := newTestManager(40)
	o := m.Mount(Anchor{Row: 5, Col: 3})

	require.NoError(t, o.Draw(&Output{Payload: []byte("PAYLOAD"), Cols: 4, Rows: 1}, Sixel))
	buf.Reset()

	m.exiting.Store(true)
	require.NoError(t, o.Unmount())

	// The last frame stays on screen: no erase, no delete.
	assert.Empty(t, buf.String())
	assert.Zero(t, o.KittyID())
}

func TestOverlayKittyLifecycle(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "")

	m, buf := newTestManager(40)
	o := m.Mount(Anchor{Row: 2, Col: 2})

	id, err := m.ids.Allocate()
	require.NoError(t, err)

	out := &Output{Payload: []byte("TRANSMIT"), Cols: 4, Rows: 2, KittyID: id}
	require.NoError(t, o.Draw(out, Kitty))
	assert.Contains(t, buf.String(), kittyPlace(id, 4, 2))
	assert.Equal(t, id, o.KittyID())

	// Re-render under the same ID: the terminal replaces the placement
	// in place, so no blank-cell erase pass runs.
	buf.Reset()
	require.NoError(t, o.Draw(out, Kitty))
	assert.NotContains(t, buf.String(), strings.Repeat(" ", 4))
	assert.NotContains(t, buf.String(), kittyDelete(id))

	buf.Reset()
	require.NoError(t, o.Unmount())
	assert.Contains(t, buf.String(), kittyDelete(id))
	assert.Zero(t, o.KittyID())
	assert.Zero(t, m.ids.Live())
}

func TestOverlayKittyImageChangeDeletesOldID(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "")

	m, buf := newTestManager(40)
	o := m.Mount(Anchor{Row: 2, Col: 2})

	oldID, err := m.ids.Allocate()
	require.NoError(t, err)
	require.NoError(t, o.Draw(&Output{Payload: []byte("A"), Cols: 2, Rows: 1, KittyID: oldID}, Kitty))

	require.NoError(t, o.InvalidateImage())
	assert.Contains(t, buf.String(), kittyDelete(oldID))
	assert.Zero(t, m.ids.Live())

	newID, err := m.ids.Allocate()
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, o.Draw(&Output{Payload: []byte("B"), Cols: 2, Rows: 1, KittyID: newID}, Kitty))
	assert.Equal(t, newID, o.KittyID())
	assert.Contains(t, buf.String(), kittyPlace(newID, 2, 1))
}

func TestManagerSerializesWrites(t *testing.T) {
	m, buf := newTestManager(40)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			o := m.Mount(Anchor{Row: 3, Col: 1})
			_ = o.Draw(&Output{Payload: []byte("XYZXYZ"), Cols: 2, Rows: 1}, Sixel)
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	// Every frame arrives intact: each save is matched by a restore and
	// no payload is torn.
	got := buf.String()
	assert.Equal(t, strings.Count(got, "\x1b7"), strings.Count(got, "\x1b8"))
	assert.Equal(t, 8, strings.Count(got, "XYZXYZ"))
}
