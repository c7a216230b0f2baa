package termpix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncoderCoversEveryProtocol(t *testing.T) {
	caps := Capabilities{Unicode: true, Color: true, Sixel: true, Kitty: true, ITerm2: true}

	for _, p := range []Protocol{Ascii, Braille, HalfBlocks, Sixel, ITerm2, Kitty} {
		enc := NewEncoder(p, nil, caps)
		require.NotNil(t, enc, p.String())
		assert.Equal(t, p, enc.Protocol())
		assert.True(t, enc.Supported(caps), p.String())
	}

	assert.Nil(t, NewEncoder(Auto, nil, caps))
}

func TestOutputInline(t *testing.T) {
	assert.True(t, (&Output{Lines: []string{"x"}}).Inline())
	assert.False(t, (&Output{Payload: []byte("x")}).Inline())

	var nilOut *Output
	assert.False(t, nilOut.Inline())
}
