package identity

import (
	"fmt"

	"golang.org/x/crypto/curve25519"

	"github.com/gosuda/libp2p-handshake/internal/wireerr"
)

// curve25519ScalarMult computes X25519(scalar, basepoint) using the same
// x/crypto/curve25519 primitive the Noise state machine in internal/noisewire
// uses for its ephemeral and static Diffie-Hellman operations.
func curve25519ScalarMult(scalar []byte) ([]byte, error) {
	out, err := curve25519.X25519(scalar, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: x25519 scalar mult: %v", wireerr.ErrOther, err)
	}
	return out, nil
}
