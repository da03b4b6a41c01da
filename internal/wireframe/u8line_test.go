package wireframe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gosuda/libp2p-handshake/internal/wireerr"
)

func TestU8LineEncodeScenario(t *testing.T) {
	out, err := EncodeU8Line(nil, []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x04, 'a', 'b', 'c', '\n'}, out)
}

func TestU8LineRoundTrip(t *testing.T) {
	for n := 0; n <= 254; n += 37 {
		s := make([]byte, n)
		for i := range s {
			s[i] = byte('a' + i%26)
		}
		encoded, err := EncodeU8Line(nil, s)
		require.NoError(t, err)
		payload, consumed, decErr, ok := DecodeU8Line(encoded)
		require.True(t, ok)
		require.NoError(t, decErr)
		require.Equal(t, len(encoded), consumed)
		require.Equal(t, s, payload)
	}
}

func TestU8LineEncodeTooLarge(t *testing.T) {
	_, err := EncodeU8Line(nil, make([]byte, 255))
	require.Error(t, err)
}

func TestU8LineDecodeNeedsMoreData(t *testing.T) {
	_, _, err, ok := DecodeU8Line(nil)
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err, ok = DecodeU8Line([]byte{0x04, 'a', 'b'})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestU8LineDecodeMalformed(t *testing.T) {
	buf := []byte{0x04, 'a', 'b', 'c', 'X'}
	_, _, err, ok := DecodeU8Line(buf)
	require.True(t, ok)
	require.Error(t, err)
	require.True(t, errors.Is(err, wireerr.ErrMessageMalformed))
}
