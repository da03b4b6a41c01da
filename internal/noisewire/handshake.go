package noisewire

import (
	"fmt"

	"github.com/gosuda/libp2p-handshake/internal/wireerr"
)

// HandshakeState drives one side of a Noise_XX handshake. XX is fixed at
// three messages:
//
//	-> e
//	<- e, ee, s, es
//	-> s, se
//
// Only the message flow this module needs is implemented: WriteMessage and
// ReadMessage must be called alternately in the order dictated by whether
// this state is the initiator or the responder, exactly like snow's
// HandshakeState in the reference implementation (net/noise.rs drives it
// stage by stage rather than exposing a generic token interpreter).
type HandshakeState struct {
	ss        *symmetricState
	initiator bool
	step      int // 0,1,2 -> which of the 3 messages comes next

	s  keypair
	e  keypair
	rs []byte
	re []byte
}

// NewXXHandshakeState builds a HandshakeState for the XX pattern, seeded
// with this side's long-lived static key (staticPriv/staticPub are raw
// 32-byte X25519 scalar/point values).
func NewXXHandshakeState(initiator bool, staticPriv, staticPub []byte) (*HandshakeState, error) {
	if len(staticPriv) != dhLen || len(staticPub) != dhLen {
		return nil, fmt.Errorf("%w: static key must be %d bytes", wireerr.ErrOther, dhLen)
	}
	hs := &HandshakeState{
		ss:        newSymmetricState(),
		initiator: initiator,
	}
	copy(hs.s.priv[:], staticPriv)
	copy(hs.s.pub[:], staticPub)
	// Empty prologue, mixed in per the Noise Initialize() contract even
	// though it contributes nothing but a hash step.
	hs.ss.mixHash(nil)
	return hs, nil
}

// RemoteStatic returns the peer's Noise static public key, once learned
// (after message 2 for the initiator, message 3 for the responder).
func (hs *HandshakeState) RemoteStatic() []byte {
	if hs.rs == nil {
		return nil
	}
	return append([]byte(nil), hs.rs...)
}

// WriteMessage produces the next handshake message, encrypting payload as
// the final EncryptAndHash step of that message's token pattern.
func (hs *HandshakeState) WriteMessage(payload []byte) ([]byte, error) {
	var out []byte
	switch {
	case hs.initiator && hs.step == 0:
		ephemeral, err := generateKeypair()
		if err != nil {
			return nil, err
		}
		hs.e = ephemeral
		out = append(out, hs.e.pub[:]...)
		hs.ss.mixHash(hs.e.pub[:])
	case !hs.initiator && hs.step == 1:
		ephemeral, err := generateKeypair()
		if err != nil {
			return nil, err
		}
		hs.e = ephemeral
		out = append(out, hs.e.pub[:]...)
		hs.ss.mixHash(hs.e.pub[:])

		eeShared, err := dh(hs.e.priv, hs.re)
		if err != nil {
			return nil, err
		}
		if err := hs.ss.mixKey(eeShared); err != nil {
			return nil, err
		}

		sCipher, err := hs.ss.encryptAndHash(hs.s.pub[:])
		if err != nil {
			return nil, err
		}
		out = append(out, sCipher...)

		esShared, err := dh(hs.s.priv, hs.re)
		if err != nil {
			return nil, err
		}
		if err := hs.ss.mixKey(esShared); err != nil {
			return nil, err
		}
	case hs.initiator && hs.step == 2:
		sCipher, err := hs.ss.encryptAndHash(hs.s.pub[:])
		if err != nil {
			return nil, err
		}
		out = append(out, sCipher...)

		seShared, err := dh(hs.s.priv, hs.re)
		if err != nil {
			return nil, err
		}
		if err := hs.ss.mixKey(seShared); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: write message out of order at step %d (initiator=%v)", wireerr.ErrOther, hs.step, hs.initiator)
	}

	payloadCipher, err := hs.ss.encryptAndHash(payload)
	if err != nil {
		return nil, err
	}
	out = append(out, payloadCipher...)
	hs.step++
	return out, nil
}

// ReadMessage consumes the next handshake message and returns its decrypted
// payload.
func (hs *HandshakeState) ReadMessage(msg []byte) ([]byte, error) {
	var rest []byte
	switch {
	case !hs.initiator && hs.step == 0:
		if len(msg) < dhLen {
			return nil, fmt.Errorf("%w: message 1 too short", wireerr.ErrDecode)
		}
		hs.re = append([]byte(nil), msg[:dhLen]...)
		hs.ss.mixHash(hs.re)
		rest = msg[dhLen:]
	case hs.initiator && hs.step == 1:
		if len(msg) < dhLen {
			return nil, fmt.Errorf("%w: message 2 too short", wireerr.ErrDecode)
		}
		hs.re = append([]byte(nil), msg[:dhLen]...)
		hs.ss.mixHash(hs.re)
		rest = msg[dhLen:]

		eeShared, err := dh(hs.e.priv, hs.re)
		if err != nil {
			return nil, err
		}
		if err := hs.ss.mixKey(eeShared); err != nil {
			return nil, err
		}

		sLen := dhLen + tagLen
		if len(rest) < sLen {
			return nil, fmt.Errorf("%w: message 2 missing static key", wireerr.ErrDecode)
		}
		rs, err := hs.ss.decryptAndHash(rest[:sLen])
		if err != nil {
			return nil, err
		}
		hs.rs = rs
		rest = rest[sLen:]

		esShared, err := dh(hs.e.priv, hs.rs)
		if err != nil {
			return nil, err
		}
		if err := hs.ss.mixKey(esShared); err != nil {
			return nil, err
		}
	case !hs.initiator && hs.step == 2:
		sLen := dhLen + tagLen
		if len(msg) < sLen {
			return nil, fmt.Errorf("%w: message 3 missing static key", wireerr.ErrDecode)
		}
		rs, err := hs.ss.decryptAndHash(msg[:sLen])
		if err != nil {
			return nil, err
		}
		hs.rs = rs
		rest = msg[sLen:]

		seShared, err := dh(hs.e.priv, hs.rs)
		if err != nil {
			return nil, err
		}
		if err := hs.ss.mixKey(seShared); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: read message out of order at step %d (initiator=%v)", wireerr.ErrOther, hs.step, hs.initiator)
	}

	payload, err := hs.ss.decryptAndHash(rest)
	if err != nil {
		return nil, err
	}
	hs.step++
	return payload, nil
}

// Complete reports whether all three XX messages have been processed and
// the handshake is ready to Split() into a transport CipherState pair.
func (hs *HandshakeState) Complete() bool {
	return hs.step >= 3
}

// Split consumes the completed handshake's chaining key to derive the
// transport CipherState pair: send is used by this side to encrypt, recv to
// decrypt.
func (hs *HandshakeState) Split() (send, recv *CipherState, err error) {
	if !hs.Complete() {
		return nil, nil, fmt.Errorf("%w: noise transport mode", wireerr.ErrOther)
	}
	c1, c2, err := hs.ss.split()
	if err != nil {
		return nil, nil, err
	}
	if hs.initiator {
		return c1, c2, nil
	}
	return c2, c1, nil
}
