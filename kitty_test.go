package termpix

import (
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKittyTransmitSingleChunk(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "")

	got, err := kittyTransmit([]byte("hello"), 7)
	require.NoError(t, err)

	assert.Equal(t, "\x1b_Ga=t,f=100,i=7,q=2,m=0;aGVsbG8=\x1b\\", got)
}

func TestKittyTransmitChunksLargePayloads(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "")

	// 9000 raw bytes base64 to 12000 characters: three frames.
	data := make([]byte, 9000)
	got, err := kittyTransmit(data, 42)
	require.NoError(t, err)

	frames := strings.Split(got, "\x1b\\")
	frames = frames[:len(frames)-1] // trailing terminator leaves an empty tail
	require.Len(t, frames, 3)

	assert.True(t, strings.HasPrefix(frames[0], "\x1b_Ga=t,f=100,i=42,q=2,m=1;"))
	assert.True(t, strings.HasPrefix(frames[1], "\x1b_Gm=1;"))
	assert.True(t, strings.HasPrefix(frames[2], "\x1b_Gm=0;"))

	// Control keys appear only on the first frame.
	assert.NotContains(t, frames[1], "a=t")
	assert.NotContains(t, frames[2], "a=t")

	for i, frame := range frames {
		payload := frame[strings.IndexByte(frame, ';')+1:]
		assert.LessOrEqual(t, len(payload), kittyChunkSize, "frame %d", i)
	}
}

func TestKittyTransmitEmptyPayload(t *testing.T) {
	_, err := kittyTransmit(nil, 1)
	assert.ErrorIs(t, err, ErrEncodeFailed)
}

func TestKittyTransmitTmuxWrapsEachFrame(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-0/default,1234,0")

	data := make([]byte, 9000)
	got, err := kittyTransmit(data, 5)
	require.NoError(t, err)

	// Every APC frame is individually enveloped with doubled inner ESC.
	assert.Equal(t, 3, strings.Count(got, "\x1bPtmux;"))
	assert.Contains(t, got, "\x1b\x1b_G")
	assert.NotContains(t, got, "\x1bPtmux;\x1b_G")
}

func TestKittyPlaceAndDelete(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "")

	assert.Equal(t, "\x1b_Ga=p,i=9,p=1,c=12,r=6,C=1,q=2;\x1b\\", kittyPlace(9, 12, 6))
	assert.Equal(t, "\x1b_Ga=d,d=i,i=9,q=2;\x1b\\", kittyDelete(9))
}

func TestKittyEncodeAllocatesID(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "")

	ids := NewIDAllocator()
	enc := &KittyEncoder{codec: StdCodec{}, IDs: ids}

	out, err := enc.Encode(solidImage(8, 8, color.White), Target{Cols: 4, Rows: 2, Width: 16, Height: 16})
	require.NoError(t, err)

	assert.Equal(t, uint32(kittyIDMin), out.KittyID)
	assert.Equal(t, 1, ids.Live())
	assert.Contains(t, string(out.Payload), "i=1,")
	assert.False(t, out.Inline())
}

func TestKittyEncodeReusesID(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM_PROGRAM", "")

	ids := NewIDAllocator()
	reserved, err := ids.Allocate()
	require.NoError(t, err)

	enc := &KittyEncoder{codec: StdCodec{}, IDs: ids, ReuseID: reserved}
	out, err := enc.Encode(solidImage(8, 8, color.White), Target{Cols: 4, Rows: 2, Width: 16, Height: 16})
	require.NoError(t, err)

	assert.Equal(t, reserved, out.KittyID)
	assert.Equal(t, 1, ids.Live(), "no extra allocation on reuse")
}

func TestKittyEncodeNilImage(t *testing.T) {
	enc := &KittyEncoder{codec: StdCodec{}, IDs: NewIDAllocator()}
	_, err := enc.Encode(nil, Target{Width: 8, Height: 8})
	assert.ErrorIs(t, err, ErrLoadFailed)
}
