// Package wireframe implements the two small length-prefixed framings the
// upgrade pipeline is built on: a 2-byte big-endian length prefix (used by
// the Noise codec) and a 1-byte length-plus-newline line framing (used by
// multistream-select). Both follow the buffer-in-place style of
// cryptoops.SecureConnection.Read in the teacher codebase: callers hand in
// an accumulation buffer and the codec reports how much of it it consumed.
package wireframe

import (
	"encoding/binary"
	"fmt"

	"github.com/gosuda/libp2p-handshake/internal/wireerr"
)

// MaxU16Payload is the largest payload EncodeU16 will accept.
const MaxU16Payload = 65535

// EncodeU16 appends a 2-byte big-endian length prefix followed by payload to
// dst and returns the result. It fails if payload is longer than 65535
// bytes.
func EncodeU16(dst []byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxU16Payload {
		return nil, fmt.Errorf("%w: u16 frame payload %d exceeds %d", wireerr.ErrEncode, len(payload), MaxU16Payload)
	}
	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(payload)))
	dst = append(dst, prefix[:]...)
	dst = append(dst, payload...)
	return dst, nil
}

// DecodeU16 attempts to consume one length-prefixed frame from the front of
// buf. It returns the payload, the number of bytes consumed, and true on
// success. It returns ok=false (need more data) when fewer than 2 bytes are
// buffered, or fewer than 2+len bytes are buffered. A zero-length frame
// yields a nil payload. Decode never errors: any two bytes are a valid
// length prefix.
func DecodeU16(buf []byte) (payload []byte, consumed int, ok bool) {
	if len(buf) < 2 {
		return nil, 0, false
	}
	n := int(binary.BigEndian.Uint16(buf[:2]))
	if len(buf) < 2+n {
		return nil, 0, false
	}
	if n == 0 {
		return nil, 2, true
	}
	return buf[2 : 2+n], 2 + n, true
}
