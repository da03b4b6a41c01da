package upgrader

import (
	"fmt"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/libp2p-handshake/internal/identity"
	"github.com/gosuda/libp2p-handshake/internal/noisewire"
	"github.com/gosuda/libp2p-handshake/internal/wireerr"
	"github.com/gosuda/libp2p-handshake/internal/wireproto"
)

// noiseStaticKeyBindingPrefix is the exact byte string signed over the
// Noise static public key to bind it to a libp2p identity key (spec §4.7).
const noiseStaticKeyBindingPrefix = "noise-libp2p-static-key:"

// NoiseOutboundResult is what a successful Noise XX handshake as initiator
// produces: a fully upgraded, framed, encrypted stream plus the remote
// peer's identity.
type NoiseOutboundResult struct {
	Stream     *noisewire.UpgradedStream
	RemotePeer identity.PeerId
}

// NoiseOutbound runs the Noise XX handshake as initiator over conn,
// authenticating the remote peer against its signed static-key binding
// (spec §4.7). identitySK is the caller's long-lived libp2p identity key,
// used only to sign the binding — never placed on the wire directly.
func NoiseOutbound(conn net.Conn, identitySK identity.PrivateKey) (NoiseOutboundResult, error) {
	// Setup: a fresh ephemeral Ed25519 key whose raw seed is the Noise
	// static private scalar, with the Noise static public point derived by
	// x25519(seed, basepoint) (spec §4.7's setup step; see internal/identity's
	// IntoX25519Encoded doc comment for why this particular derivation,
	// despite being non-standard, is preserved).
	noiseIdentity, err := identity.GenerateEd25519()
	if err != nil {
		return NoiseOutboundResult{}, err
	}
	noiseStaticPriv, err := noiseIdentity.Bytes()
	if err != nil {
		return NoiseOutboundResult{}, err
	}
	noiseStaticPub, err := noiseIdentity.IntoX25519Encoded()
	if err != nil {
		return NoiseOutboundResult{}, err
	}

	hs, err := noisewire.NewXXHandshakeState(true, noiseStaticPriv, noiseStaticPub)
	if err != nil {
		return NoiseOutboundResult{}, err
	}
	cdc := noisewire.NewCodec(hs)

	log.Debug().Msg("noise: sending message 1 (-> e)")
	if err := sendHandshakeMessage(conn, cdc, nil); err != nil {
		return NoiseOutboundResult{}, err
	}

	log.Debug().Msg("noise: awaiting message 2 (<- e, ee, s, es)")
	payload2, err := recvHandshakeMessage(conn, cdc)
	if err != nil {
		return NoiseOutboundResult{}, err
	}

	var remotePayload wireproto.NoiseHandshakePayload
	if err := remotePayload.Unmarshal(payload2); err != nil {
		return NoiseOutboundResult{}, err
	}
	if remotePayload.IdentityKey == nil || remotePayload.IdentitySig == nil {
		return NoiseOutboundResult{}, fmt.Errorf("%w: peer handshake payload missing identity fields", wireerr.ErrVerificationFailed)
	}
	remoteIdentityKey, err := identity.PublicKeyFromProtobuf(remotePayload.IdentityKey)
	if err != nil {
		return NoiseOutboundResult{}, fmt.Errorf("%w: %v", wireerr.ErrVerificationFailed, err)
	}
	remoteNoiseStatic := cdc.RemoteStatic()
	if remoteNoiseStatic == nil {
		return NoiseOutboundResult{}, fmt.Errorf("%w: remote noise static key not learned", wireerr.ErrVerificationFailed)
	}
	signedBytes := append([]byte(noiseStaticKeyBindingPrefix), remoteNoiseStatic...)
	if err := remoteIdentityKey.Verify(signedBytes, remotePayload.IdentitySig); err != nil {
		return NoiseOutboundResult{}, fmt.Errorf("%w: peer static key binding does not verify", wireerr.ErrVerificationFailed)
	}

	log.Debug().Msg("noise: sending message 3 (-> s, se)")
	ourIdentityPub, err := identitySK.Public()
	if err != nil {
		return NoiseOutboundResult{}, err
	}
	ourIdentityPubBytes, err := ourIdentityPub.ToProtobuf()
	if err != nil {
		return NoiseOutboundResult{}, err
	}
	ourSig, err := identitySK.Sign(append([]byte(noiseStaticKeyBindingPrefix), noiseStaticPub...))
	if err != nil {
		return NoiseOutboundResult{}, err
	}
	ourPayload := &wireproto.NoiseHandshakePayload{
		IdentityKey: ourIdentityPubBytes,
		IdentitySig: ourSig,
	}
	if err := sendHandshakeMessage(conn, cdc, ourPayload.Marshal()); err != nil {
		return NoiseOutboundResult{}, err
	}

	if cdc.Handshaking() {
		return NoiseOutboundResult{}, fmt.Errorf("%w: handshake did not reach transport mode", wireerr.ErrOther)
	}

	remotePeerID, err := identity.ToPeerId(remoteIdentityKey)
	if err != nil {
		return NoiseOutboundResult{}, err
	}

	return NoiseOutboundResult{
		Stream:     noisewire.NewUpgradedStream(conn, cdc),
		RemotePeer: remotePeerID,
	}, nil
}

func sendHandshakeMessage(conn net.Conn, cdc *noisewire.Codec, payload []byte) error {
	framed, err := cdc.EncodeHandshakeMessage(payload)
	if err != nil {
		return err
	}
	_, err = conn.Write(framed)
	return err
}

func recvHandshakeMessage(conn net.Conn, cdc *noisewire.Codec) ([]byte, error) {
	buf := make([]byte, 0, 512)
	for {
		payload, n, err, ok := cdc.DecodeHandshakeMessage(buf)
		if err != nil {
			return nil, err
		}
		if ok {
			buf = buf[n:]
			return payload, nil
		}
		chunk := make([]byte, 512)
		read, rerr := conn.Read(chunk)
		if read > 0 {
			buf = append(buf, chunk[:read]...)
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}
