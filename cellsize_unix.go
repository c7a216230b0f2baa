//go:build unix

package termpix

import (
	"os"

	"golang.org/x/sys/unix"
)

// cellSizeFromWinsize derives cell pixel dimensions from TIOCGWINSZ.
// Most terminals fill only the row/column fields, in which case this
// reports no result.
func cellSizeFromWinsize() (cellW, cellH int, ok bool) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 || ws.Row == 0 || ws.Xpixel == 0 || ws.Ypixel == 0 {
		return 0, 0, false
	}
	return int(ws.Xpixel) / int(ws.Col), int(ws.Ypixel) / int(ws.Row), true
}
