package wireframe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestU16FrameEncodeScenario(t *testing.T) {
	out, err := EncodeU16(nil, []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x03, 'a', 'b', 'c'}, out)
}

func TestU16FrameRoundTrip(t *testing.T) {
	for _, s := range [][]byte{
		nil,
		[]byte("abc"),
		make([]byte, 65535),
	} {
		encoded, err := EncodeU16(nil, s)
		require.NoError(t, err)
		payload, consumed, ok := DecodeU16(encoded)
		require.True(t, ok)
		require.Equal(t, len(encoded), consumed)
		require.Equal(t, s, payload)
	}
}

func TestU16FrameEncodeTooLarge(t *testing.T) {
	_, err := EncodeU16(nil, make([]byte, 65536))
	require.Error(t, err)
}

func TestU16FrameDecodeNeedsMoreData(t *testing.T) {
	_, _, ok := DecodeU16(nil)
	require.False(t, ok)

	_, _, ok = DecodeU16([]byte{0x00})
	require.False(t, ok)

	_, _, ok = DecodeU16([]byte{0x00, 0x05, 'a', 'b'})
	require.False(t, ok)
}

func TestU16FrameDecodeLeavesTrailingBytes(t *testing.T) {
	encoded, err := EncodeU16(nil, []byte("abc"))
	require.NoError(t, err)
	buf := append(encoded, "extra"...)
	payload, consumed, ok := DecodeU16(buf)
	require.True(t, ok)
	require.Equal(t, []byte("abc"), payload)
	require.Equal(t, len(encoded), consumed)
	require.Equal(t, "extra", string(buf[consumed:]))
}
