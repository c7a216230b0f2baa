package termpix

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

// Reply-collection windows for terminal queries. A reply is considered
// complete after quietPeriod of inter-byte silence; an exchange gives up
// entirely after queryTimeout if nothing arrived at all. Both are
// heuristics, not protocol guarantees, and deliberately tunable.
var (
	quietPeriod  = 50 * time.Millisecond
	queryTimeout = 100 * time.Millisecond
)

// queryTerminal writes an escape-sequence query to the controlling
// terminal and accumulates the reply. The reply is correlated purely by
// timing: bytes keep accumulating while each read chunk arrives within
// quietPeriod of the previous one, and the exchange aborts after
// queryTimeout if the terminal never answers. A timeout returns an empty
// reply, not an error.
//
// Known limitation: there is no way to tell a probe reply apart from
// user keystrokes that land inside the window, so a reply can be
// corrupted by concurrent input. Callers must treat replies as
// best-effort and degrade to "unsupported" on anything unrecognized.
//
// The terminal is switched to raw mode only for the duration of the
// exchange and the previous mode is always restored; the host's own
// stdin consumers are untouched because the exchange talks to /dev/tty
// directly.
func queryTerminal(query string) []byte {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil
	}
	defer tty.Close()

	if !term.IsTerminal(int(tty.Fd())) {
		return nil
	}

	oldState, err := term.MakeRaw(int(tty.Fd()))
	if err != nil {
		return nil
	}
	defer term.Restore(int(tty.Fd()), oldState)

	if _, err := tty.WriteString(wrapTmuxPassthrough(query)); err != nil {
		return nil
	}

	var reply []byte
	buf := make([]byte, 256)
	deadline := time.Now().Add(queryTimeout)

	for {
		window := quietPeriod
		if len(reply) == 0 {
			// Nothing received yet: the absolute timeout governs.
			window = time.Until(deadline)
			if window <= 0 {
				break
			}
		}
		if err := tty.SetReadDeadline(time.Now().Add(window)); err != nil {
			// Deadlines unsupported on this tty; a blocking read could
			// hang past process needs, so give up and report no reply.
			break
		}

		n, err := tty.Read(buf)
		if n > 0 {
			reply = append(reply, buf[:n]...)
		}
		if err != nil {
			break
		}
	}

	return reply
}

// parseDeviceAttributes extracts the numeric parameters of a DA1 reply
// (`\x1b[?1;2;4;...c`). Used to detect Sixel support (attribute 4).
func parseDeviceAttributes(reply string) []int {
	start := strings.Index(reply, "\x1b[?")
	if start < 0 {
		return nil
	}
	rest := reply[start+3:]
	end := strings.IndexByte(rest, 'c')
	if end < 0 {
		return nil
	}

	var attrs []int
	for _, field := range strings.Split(rest[:end], ";") {
		if v, err := strconv.Atoi(field); err == nil {
			attrs = append(attrs, v)
		}
	}
	return attrs
}

// hasDeviceAttribute reports whether a DA1 reply advertises the given
// attribute code.
func hasDeviceAttribute(reply string, attr int) bool {
	for _, v := range parseDeviceAttributes(reply) {
		if v == attr {
			return true
		}
	}
	return false
}

// kittyQueryID is the image id used in the capability probe. The reply
// echoes it back, which is the only correlation the protocol offers.
const kittyQueryID = 31

// kittyProbe is the minimal Kitty graphics query: transmit a 1x1 RGB
// image in direct mode and ask the terminal to acknowledge it.
func kittyProbe() string {
	return fmt.Sprintf("\x1b_Gi=%d,s=1,v=1,a=q,t=d,f=24;AAAA\x1b\\", kittyQueryID)
}

// parseKittyReply reports whether the reply is a Kitty status APC
// acknowledging our probe id with OK.
func parseKittyReply(reply string) bool {
	marker := fmt.Sprintf("_Gi=%d;", kittyQueryID)
	i := strings.Index(reply, marker)
	if i < 0 {
		return false
	}
	return strings.HasPrefix(reply[i+len(marker):], "OK")
}

// parseCellSizeReply parses a `\x1b[6;height;widtht` reply to the CSI
// 16t cell-size query.
func parseCellSizeReply(reply string) (width, height int, ok bool) {
	return parseSizeReply(reply, "[6;")
}

// parseWindowPixelReply parses a `\x1b[4;height;widtht` reply to the
// CSI 14t text-area-size query.
func parseWindowPixelReply(reply string) (width, height int, ok bool) {
	return parseSizeReply(reply, "[4;")
}

func parseSizeReply(reply, prefix string) (width, height int, ok bool) {
	start := strings.Index(reply, prefix)
	if start < 0 {
		return 0, 0, false
	}
	rest := reply[start+len(prefix):]
	end := strings.IndexByte(rest, 't')
	if end < 0 {
		return 0, 0, false
	}

	parts := strings.Split(rest[:end], ";")
	if len(parts) < 2 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	w, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h <= 0 || w <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
