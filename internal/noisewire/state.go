// Package noisewire hand-implements the Noise_XX_25519_ChaChaPoly_SHA256
// handshake pattern and the framed transport it produces, grounded on the
// same primitives the teacher codebase reaches for when it builds a
// handshake by hand instead of pulling in a Noise library:
// relaydns/core/cryptoops/handshaker.go composes
// golang.org/x/crypto/curve25519, golang.org/x/crypto/chacha20poly1305 and
// golang.org/x/crypto/hkdf directly. This package generalizes that
// composition into the real Noise Protocol Framework symmetric-state
// machinery (MixHash/MixKey/EncryptAndHash) so the XX pattern's handshake
// hash and key schedule are standards-compliant, rather than the teacher's
// simpler nonce/salt scheme.
package noisewire

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/gosuda/libp2p-handshake/internal/wireerr"
)

const (
	protocolName = "Noise_XX_25519_ChaChaPoly_SHA256"
	hashLen      = sha256.Size
	dhLen        = 32
	tagLen       = chacha20poly1305.Overhead
)

// CipherState is one direction of post-handshake transport encryption, keyed
// by Split() at the end of the handshake. It is symmetrical with the
// handshake's own internal cipher state, but exported so the codec and
// upgraded-stream layers can hold it directly.
type CipherState struct {
	key    [32]byte
	hasKey bool
	n      uint64
}

func (cs *CipherState) nonce() [12]byte {
	var out [12]byte
	for i := 0; i < 8; i++ {
		out[4+i] = byte(cs.n >> (8 * i))
	}
	return out
}

// EncryptWithAd seals plaintext with associated data ad, returning the
// ciphertext. If no key has been set yet, it returns plaintext unchanged
// (per the Noise spec's EncryptWithAd with an empty CipherState).
func (cs *CipherState) EncryptWithAd(ad, plaintext []byte) ([]byte, error) {
	if !cs.hasKey {
		return append([]byte(nil), plaintext...), nil
	}
	aead, err := chacha20poly1305.New(cs.key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: chacha20poly1305 init: %v", wireerr.ErrEncode, err)
	}
	nonce := cs.nonce()
	out := aead.Seal(nil, nonce[:], plaintext, ad)
	cs.n++
	return out, nil
}

// DecryptWithAd opens ciphertext with associated data ad.
func (cs *CipherState) DecryptWithAd(ad, ciphertext []byte) ([]byte, error) {
	if !cs.hasKey {
		return append([]byte(nil), ciphertext...), nil
	}
	aead, err := chacha20poly1305.New(cs.key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: chacha20poly1305 init: %v", wireerr.ErrDecode, err)
	}
	nonce := cs.nonce()
	out, err := aead.Open(nil, nonce[:], ciphertext, ad)
	if err != nil {
		return nil, fmt.Errorf("%w: chacha20poly1305 open: %v", wireerr.ErrDecode, err)
	}
	cs.n++
	return out, nil
}

// symmetricState tracks the running handshake hash h, chaining key ck, and
// the current handshake-phase CipherState, per the Noise Protocol
// Framework's SymmetricState object.
type symmetricState struct {
	h  [32]byte
	ck [32]byte
	cs CipherState
}

func newSymmetricState() *symmetricState {
	ss := &symmetricState{}
	name := []byte(protocolName)
	if len(name) <= hashLen {
		copy(ss.h[:], name)
	} else {
		ss.h = sha256.Sum256(name)
	}
	ss.ck = ss.h
	return ss
}

func (ss *symmetricState) mixHash(data []byte) {
	h := sha256.New()
	h.Write(ss.h[:])
	h.Write(data)
	copy(ss.h[:], h.Sum(nil))
}

// mixKey implements Noise's HKDF-based key schedule step. The construction
// is bit-for-bit RFC 5869 HKDF with salt=chaining_key, secret=ikm, info=nil,
// so golang.org/x/crypto/hkdf (already a teacher dependency, see
// relaydns/core/cryptoops/handshaker.go's deriveKey) implements it exactly.
func (ss *symmetricState) mixKey(ikm []byte) error {
	reader := hkdf.New(sha256.New, ikm, ss.ck[:], nil)
	var out [64]byte
	if _, err := io.ReadFull(reader, out[:]); err != nil {
		return fmt.Errorf("%w: hkdf mix key: %v", wireerr.ErrOther, err)
	}
	copy(ss.ck[:], out[:32])
	copy(ss.cs.key[:], out[32:])
	ss.cs.hasKey = true
	ss.cs.n = 0
	return nil
}

func (ss *symmetricState) encryptAndHash(plaintext []byte) ([]byte, error) {
	ct, err := ss.cs.EncryptWithAd(ss.h[:], plaintext)
	if err != nil {
		return nil, err
	}
	ss.mixHash(ct)
	return ct, nil
}

func (ss *symmetricState) decryptAndHash(ciphertext []byte) ([]byte, error) {
	pt, err := ss.cs.DecryptWithAd(ss.h[:], ciphertext)
	if err != nil {
		return nil, err
	}
	ss.mixHash(ciphertext)
	return pt, nil
}

// split derives the pair of transport CipherStates from the final chaining
// key: the first is used by the initiator to send / the responder to
// receive, the second is used by the responder to send / the initiator to
// receive.
func (ss *symmetricState) split() (c1, c2 *CipherState, err error) {
	reader := hkdf.New(sha256.New, nil, ss.ck[:], nil)
	var out [64]byte
	if _, err := io.ReadFull(reader, out[:]); err != nil {
		return nil, nil, fmt.Errorf("%w: hkdf split: %v", wireerr.ErrOther, err)
	}
	c1 = &CipherState{hasKey: true}
	c2 = &CipherState{hasKey: true}
	copy(c1.key[:], out[:32])
	copy(c2.key[:], out[32:])
	return c1, c2, nil
}

// keypair is an X25519 scalar/point pair.
type keypair struct {
	priv [32]byte
	pub  [32]byte
}

func generateKeypair() (keypair, error) {
	var kp keypair
	if _, err := rand.Read(kp.priv[:]); err != nil {
		return keypair{}, fmt.Errorf("%w: generate ephemeral key: %v", wireerr.ErrOther, err)
	}
	pub, err := curve25519.X25519(kp.priv[:], curve25519.Basepoint)
	if err != nil {
		return keypair{}, fmt.Errorf("%w: derive ephemeral public key: %v", wireerr.ErrOther, err)
	}
	copy(kp.pub[:], pub)
	return kp, nil
}

func dh(priv [32]byte, pub []byte) ([]byte, error) {
	out, err := curve25519.X25519(priv[:], pub)
	if err != nil {
		return nil, fmt.Errorf("%w: x25519 dh: %v", wireerr.ErrOther, err)
	}
	return out, nil
}
