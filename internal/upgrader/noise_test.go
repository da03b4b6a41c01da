package upgrader

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gosuda/libp2p-handshake/internal/identity"
	"github.com/gosuda/libp2p-handshake/internal/noisewire"
	"github.com/gosuda/libp2p-handshake/internal/wireproto"
)

// runLoopbackNoiseResponder plays the responder side of Noise XX on conn,
// exactly as a real libp2p peer would, so NoiseOutbound (initiator-only in
// production) can be exercised end to end per spec scenario S6.
func runLoopbackNoiseResponder(t *testing.T, conn net.Conn, identitySK identity.PrivateKey) {
	t.Helper()

	noiseIdentity, err := identity.GenerateEd25519()
	require.NoError(t, err)
	noiseStaticPriv, err := noiseIdentity.Bytes()
	require.NoError(t, err)
	noiseStaticPub, err := noiseIdentity.IntoX25519Encoded()
	require.NoError(t, err)

	hs, err := noisewire.NewXXHandshakeState(false, noiseStaticPriv, noiseStaticPub)
	require.NoError(t, err)
	cdc := noisewire.NewCodec(hs)

	// <- e (message 1, empty payload)
	_, err = recvHandshakeMessage(conn, cdc)
	require.NoError(t, err)

	identityPub, err := identitySK.Public()
	require.NoError(t, err)
	identityPubBytes, err := identityPub.ToProtobuf()
	require.NoError(t, err)
	sig, err := identitySK.Sign(append([]byte(noiseStaticKeyBindingPrefix), noiseStaticPub...))
	require.NoError(t, err)
	payload2 := (&wireproto.NoiseHandshakePayload{
		IdentityKey: identityPubBytes,
		IdentitySig: sig,
	}).Marshal()

	// -> e, ee, s, es (message 2)
	require.NoError(t, sendHandshakeMessage(conn, cdc, payload2))

	// <- s, se (message 3)
	_, err = recvHandshakeMessage(conn, cdc)
	require.NoError(t, err)

	require.False(t, cdc.Handshaking())
}

func TestNoiseOutboundHandshakeAndTransport(t *testing.T) {
	clientConn, serverConn := pipeConn(t)
	defer clientConn.Close()
	defer serverConn.Close()

	initiatorIdentity, err := identity.GenerateEd25519()
	require.NoError(t, err)
	responderIdentity, err := identity.GenerateEd25519()
	require.NoError(t, err)

	expectedPeerID, err := ToPeerIDForTest(responderIdentity)
	require.NoError(t, err)

	resultCh := make(chan NoiseOutboundResult, 1)
	errCh := make(chan error, 1)
	go func() {
		result, err := NoiseOutbound(clientConn, initiatorIdentity)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- result
	}()

	runLoopbackNoiseResponder(t, serverConn, responderIdentity)

	select {
	case err := <-errCh:
		t.Fatalf("NoiseOutbound failed: %v", err)
	case result := <-resultCh:
		require.Equal(t, expectedPeerID, result.RemotePeer)

		n, err := result.Stream.Write([]byte("hello responder"))
		require.NoError(t, err)
		require.Equal(t, len("hello responder"), n)
	}
}

// ToPeerIDForTest exposes identity.ToPeerId for this package's tests without
// widening NoiseOutbound's own exported surface.
func ToPeerIDForTest(sk identity.PrivateKey) (identity.PeerId, error) {
	pk, err := sk.Public()
	if err != nil {
		return "", err
	}
	return identity.ToPeerId(pk)
}
