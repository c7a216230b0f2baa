package termpix

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/charmbracelet/x/ansi"
)

// Anchor is a component's reserved box on screen: the top-left cell of
// the image area and the height of the enclosing region. RegionHeight
// anchors cursor-relative positioning for in-flow hosts whose cursor
// rests below the region after a frame; zero means Row/Col are absolute
// screen coordinates (1-based), as in alternate-screen TUIs.
type Anchor struct {
	Row          int
	Col          int
	RegionHeight int
}

// box is the cell extent of the last written frame, kept for erasure.
type box struct {
	row, col   int
	cols, rows int
}

// Manager owns the terminal output stream for out-of-band renders. It
// serializes writes so concurrent components never interleave bytes
// inside an escape sequence, and it carries the termination latch that
// keeps the final frame on screen when the process is killed.
type Manager struct {
	mu      sync.Mutex
	w       io.Writer
	ids     *IDAllocator
	exiting atomic.Bool

	// size returns the viewport extent in cells, swappable in tests.
	size func() (cols, rows int)
}

// NewManager creates a manager writing to w (os.Stdout when nil),
// allocating Kitty IDs from ids (the package default when nil).
func NewManager(w io.Writer, ids *IDAllocator) *Manager {
	if w == nil {
		w = os.Stdout
	}
	if ids == nil {
		ids = defaultIDs
	}
	return &Manager{
		w:   w,
		ids: ids,
		size: func() (int, int) {
			cols, rows, _ := terminalSize()
			return cols, rows
		},
	}
}

// HandleTermination intercepts SIGINT/SIGTERM just long enough to
// suppress erase-on-unmount, so the last rendered frame intentionally
// survives the process, then re-raises the signal for its default
// disposition.
func (m *Manager) HandleTermination() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-ch
		m.exiting.Store(true)
		signal.Stop(ch)
		if s, ok := sig.(syscall.Signal); ok {
			_ = syscall.Kill(os.Getpid(), s)
		}
	}()
}

// Exiting reports whether a termination signal has been observed.
func (m *Manager) Exiting() bool {
	return m.exiting.Load()
}

// write emits one complete escape payload as a critical section.
func (m *Manager) write(s string) error {
	if s == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := io.WriteString(m.w, s); err != nil {
		return fmt.Errorf("%w: terminal write: %v", ErrEncodeFailed, err)
	}
	return nil
}

// Mount creates the overlay handle for one component instance.
func (m *Manager) Mount(anchor Anchor) *Overlay {
	return &Overlay{mgr: m, anchor: anchor}
}

// Overlay tracks one out-of-band placement: where it is anchored, what
// was last drawn there, and the Kitty image ID when that protocol is
// in use. All methods serialize per handle, so overlapping renders for
// the same component cannot interleave.
type Overlay struct {
	mu      sync.Mutex
	mgr     *Manager
	anchor  Anchor
	prev    *box
	proto   Protocol
	kittyID uint32
}

// Move updates the anchor on host relayout. The previous frame is
// erased immediately so the next Draw starts from a clean region.
func (o *Overlay) Move(anchor Anchor) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if anchor == o.anchor {
		return nil
	}
	err := o.eraseLocked()
	o.anchor = anchor
	return err
}

// Draw erases the previous frame and writes a new one at the anchor.
// Draws whose anchor lies fully outside the viewport are silently
// skipped (the previous frame, if any, is still erased).
//
// Kitty placements replace terminal-side content in place without
// flicker, so the blank-cell erase pass is skipped for consecutive
// Kitty frames; stale IDs are deleted instead.
func (o *Overlay) Draw(out *Output, proto Protocol) error {
	if out == nil || out.Inline() {
		return fmt.Errorf("%w: overlay draw requires an out-of-band payload", ErrEncodeFailed)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	sameKitty := proto == Kitty && o.proto == Kitty && o.kittyID == out.KittyID
	if !sameKitty {
		if err := o.releaseKittyLocked(); err != nil {
			return err
		}
		if err := o.eraseLocked(); err != nil {
			return err
		}
	}
	o.proto = proto
	if proto == Kitty {
		o.kittyID = out.KittyID
	}

	row, col := o.screenPosition()
	if cols, rows := o.mgr.size(); row < 1 ||
		(rows > 0 && row > rows) || (cols > 0 && col > cols) {
		// Scrolled off screen on either axis; nothing to draw,
		// nothing recorded.
		o.prev = nil
		return nil
	}

	var sb strings.Builder
	sb.WriteString("\x1b7") // DECSC; restored below even though Kitty
	// placements promise not to move the cursor, since not every
	// terminal honors that hint.
	sb.WriteString(ansi.CursorPosition(col, row))
	sb.Write(out.Payload)
	if proto == Kitty {
		sb.WriteString(kittyPlace(out.KittyID, out.Cols, out.Rows))
	}
	sb.WriteString("\x1b8") // DECRC

	if err := o.mgr.write(sb.String()); err != nil {
		return err
	}

	o.prev = &box{row: row, col: col, cols: out.Cols, rows: out.Rows}
	return nil
}

// Unmount erases the placement and releases its resources. When the
// process is terminating the erase is skipped so the final frame stays
// visible; the terminal discards Kitty resources itself on exit.
func (o *Overlay) Unmount() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.mgr.Exiting() {
		o.prev = nil
		o.kittyID = 0
		return nil
	}

	if err := o.releaseKittyLocked(); err != nil {
		return err
	}
	return o.eraseLocked()
}

// InvalidateImage drops the terminal-side Kitty image, forcing the
// next render to transfer and allocate afresh. Called when the source
// image changes.
func (o *Overlay) InvalidateImage() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.releaseKittyLocked()
}

// KittyID returns the live Kitty resource ID, or zero.
func (o *Overlay) KittyID() uint32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.kittyID
}

// screenPosition resolves the anchor to absolute 1-based coordinates.
func (o *Overlay) screenPosition() (row, col int) {
	row, col = o.anchor.Row, o.anchor.Col
	if o.anchor.RegionHeight > 0 {
		// In-flow host: the cursor rests on the line below the region,
		// so the box top sits RegionHeight-Row+1 lines above it. The
		// viewport bottom is the closest absolute reference.
		_, bottom := o.mgr.size()
		row = bottom - o.anchor.RegionHeight + o.anchor.Row
	}
	if col < 1 {
		col = 1
	}
	return row, col
}

// eraseLocked blanks the previously drawn box, replacing it with
// spaces across its full extent.
func (o *Overlay) eraseLocked() error {
	if o.prev == nil {
		return nil
	}
	prev := *o.prev
	o.prev = nil

	blank := strings.Repeat(" ", prev.cols)
	var sb strings.Builder
	sb.WriteString("\x1b7")
	for i := 0; i < prev.rows; i++ {
		sb.WriteString(ansi.CursorPosition(prev.col, prev.row+i))
		sb.WriteString(blank)
	}
	sb.WriteString("\x1b8")
	return o.mgr.write(sb.String())
}

// releaseKittyLocked deletes the terminal-side image and returns its
// ID to the pool.
func (o *Overlay) releaseKittyLocked() error {
	if o.kittyID == 0 {
		return nil
	}
	id := o.kittyID
	o.kittyID = 0
	err := o.mgr.write(kittyDelete(id))
	o.mgr.ids.Release(id)
	return err
}
