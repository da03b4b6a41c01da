package noisewire

import (
	"fmt"

	"github.com/gosuda/libp2p-handshake/internal/wireerr"
	"github.com/gosuda/libp2p-handshake/internal/wireframe"
)

// Codec drives one side of the Noise XX handshake over a framed byte stream
// and, once the handshake completes, switches into a framed transport
// CipherState pair. This mirrors how relaydns/core/cryptoops/handshaker.go
// wraps a net.Conn with its own handshake-then-stream state machine, but
// splits the "am I still handshaking" decision into an explicit Handshaking
// bool rather than a channel-based ready signal.
type Codec struct {
	hs *HandshakeState

	send *CipherState
	recv *CipherState

	handshakeDone bool
}

// NewCodec wraps a fresh HandshakeState for transport framing.
func NewCodec(hs *HandshakeState) *Codec {
	return &Codec{hs: hs}
}

// Handshaking reports whether the handshake still has messages left to
// exchange.
func (c *Codec) Handshaking() bool {
	return !c.handshakeDone
}

// EncodeHandshakeMessage produces one complete U16-framed handshake message
// carrying payload as its cleartext/ciphertext body (handshake payloads are
// themselves protobuf-encoded NoiseHandshakePayload messages, encoded by the
// caller before this is invoked).
func (c *Codec) EncodeHandshakeMessage(payload []byte) ([]byte, error) {
	if c.handshakeDone {
		return nil, fmt.Errorf("%w: handshake already complete", wireerr.ErrOther)
	}
	body, err := c.hs.WriteMessage(payload)
	if err != nil {
		return nil, err
	}
	framed, err := wireframe.EncodeU16(nil, body)
	if err != nil {
		return nil, err
	}
	if c.hs.Complete() {
		if err := c.finishHandshake(); err != nil {
			return nil, err
		}
	}
	return framed, nil
}

// DecodeHandshakeMessage consumes one U16-framed handshake message from buf,
// returning the decrypted payload, the number of bytes consumed from buf,
// and whether a complete frame was available. A complete but zero-length
// frame is reported as not available and is not consumed.
func (c *Codec) DecodeHandshakeMessage(buf []byte) (payload []byte, consumed int, err error, ok bool) {
	if c.handshakeDone {
		return nil, 0, fmt.Errorf("%w: handshake already complete", wireerr.ErrOther), true
	}
	body, n, ok := wireframe.DecodeU16(buf)
	if !ok {
		return nil, 0, nil, false
	}
	if len(body) == 0 {
		return nil, 0, nil, false
	}
	payload, err = c.hs.ReadMessage(body)
	if err != nil {
		return nil, n, err, true
	}
	if c.hs.Complete() {
		if err := c.finishHandshake(); err != nil {
			return nil, n, err, true
		}
	}
	return payload, n, nil, true
}

func (c *Codec) finishHandshake() error {
	send, recv, err := c.hs.Split()
	if err != nil {
		return err
	}
	c.send = send
	c.recv = recv
	c.handshakeDone = true
	return nil
}

// RemoteStatic returns the peer's Noise static public key. Only meaningful
// once it has been learned (see HandshakeState.RemoteStatic).
func (c *Codec) RemoteStatic() []byte {
	return c.hs.RemoteStatic()
}

// EncodeTransportMessage seals plaintext as one complete U16-framed
// transport message. Valid only after the handshake has completed.
func (c *Codec) EncodeTransportMessage(plaintext []byte) ([]byte, error) {
	if !c.handshakeDone {
		return nil, fmt.Errorf("%w: handshake not complete", wireerr.ErrOther)
	}
	ct, err := c.send.EncryptWithAd(nil, plaintext)
	if err != nil {
		return nil, err
	}
	return wireframe.EncodeU16(nil, ct)
}

// DecodeTransportMessage consumes one U16-framed transport message from buf.
func (c *Codec) DecodeTransportMessage(buf []byte) (plaintext []byte, consumed int, err error, ok bool) {
	if !c.handshakeDone {
		return nil, 0, fmt.Errorf("%w: handshake not complete", wireerr.ErrOther), true
	}
	ct, n, ok := wireframe.DecodeU16(buf)
	if !ok {
		return nil, 0, nil, false
	}
	if len(ct) == 0 {
		return nil, 0, nil, false
	}
	pt, err := c.recv.DecryptWithAd(nil, ct)
	return pt, n, err, true
}
