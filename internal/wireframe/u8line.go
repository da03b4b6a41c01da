package wireframe

import (
	"fmt"

	"github.com/gosuda/libp2p-handshake/internal/wireerr"
)

// MaxU8LinePayload is the largest payload EncodeU8Line will accept (254,
// since the length byte also counts the trailing newline).
const MaxU8LinePayload = 254

// EncodeU8Line appends multistream-select's line framing: a single byte
// equal to len(payload)+1, then payload, then a trailing '\n'. The newline
// is a legibility convention only; the length prefix is what makes the
// frame binary-safe to parse.
func EncodeU8Line(dst []byte, payload []byte) ([]byte, error) {
	l := len(payload) + 1
	if l > 255 {
		return nil, fmt.Errorf("%w: u8 line payload %d exceeds %d", wireerr.ErrEncode, len(payload), MaxU8LinePayload)
	}
	dst = append(dst, byte(l))
	dst = append(dst, payload...)
	dst = append(dst, '\n')
	return dst, nil
}

// DecodeU8Line attempts to consume one line-framed message from the front of
// buf. It returns ok=false (need more data) when buf is empty or shorter
// than the advertised length. It returns an ErrMessageMalformed error if the
// byte immediately following the payload is not '\n'.
func DecodeU8Line(buf []byte) (payload []byte, consumed int, err error, ok bool) {
	if len(buf) == 0 {
		return nil, 0, nil, false
	}
	l := int(buf[0])
	if len(buf) < l+1 {
		return nil, 0, nil, false
	}
	if buf[l] != '\n' {
		return nil, l + 1, fmt.Errorf("%w: u8 line missing trailing newline", wireerr.ErrMessageMalformed), true
	}
	return buf[1:l], l + 1, nil, true
}
