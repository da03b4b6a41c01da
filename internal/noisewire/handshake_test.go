package noisewire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustStaticKeypair(t *testing.T) keypair {
	t.Helper()
	kp, err := generateKeypair()
	require.NoError(t, err)
	return kp
}

func TestXXHandshakeRoundTripAndTransport(t *testing.T) {
	initStatic := mustStaticKeypair(t)
	respStatic := mustStaticKeypair(t)

	initiator, err := NewXXHandshakeState(true, initStatic.priv[:], initStatic.pub[:])
	require.NoError(t, err)
	responder, err := NewXXHandshakeState(false, respStatic.priv[:], respStatic.pub[:])
	require.NoError(t, err)

	// -> e
	msg1, err := initiator.WriteMessage([]byte("hello-1"))
	require.NoError(t, err)
	p1, err := responder.ReadMessage(msg1)
	require.NoError(t, err)
	require.Equal(t, []byte("hello-1"), p1)

	// <- e, ee, s, es
	msg2, err := responder.WriteMessage([]byte("hello-2"))
	require.NoError(t, err)
	p2, err := initiator.ReadMessage(msg2)
	require.NoError(t, err)
	require.Equal(t, []byte("hello-2"), p2)
	require.Equal(t, respStatic.pub[:], initiator.RemoteStatic())

	// -> s, se
	msg3, err := initiator.WriteMessage([]byte("hello-3"))
	require.NoError(t, err)
	p3, err := responder.ReadMessage(msg3)
	require.NoError(t, err)
	require.Equal(t, []byte("hello-3"), p3)
	require.Equal(t, initStatic.pub[:], responder.RemoteStatic())

	require.True(t, initiator.Complete())
	require.True(t, responder.Complete())

	initSend, initRecv, err := initiator.Split()
	require.NoError(t, err)
	respSend, respRecv, err := responder.Split()
	require.NoError(t, err)

	ct, err := initSend.EncryptWithAd(nil, []byte("transport message"))
	require.NoError(t, err)
	pt, err := respRecv.DecryptWithAd(nil, ct)
	require.NoError(t, err)
	require.Equal(t, []byte("transport message"), pt)

	ct2, err := respSend.EncryptWithAd(nil, []byte("reply message"))
	require.NoError(t, err)
	pt2, err := initRecv.DecryptWithAd(nil, ct2)
	require.NoError(t, err)
	require.Equal(t, []byte("reply message"), pt2)
}

func TestXXHandshakeOutOfOrderFails(t *testing.T) {
	s := mustStaticKeypair(t)
	initiator, err := NewXXHandshakeState(true, s.priv[:], s.pub[:])
	require.NoError(t, err)

	_, err = initiator.ReadMessage([]byte("too early"))
	require.Error(t, err)
}

func TestXXHandshakeRejectsBadStaticKeyLength(t *testing.T) {
	_, err := NewXXHandshakeState(true, []byte{1, 2, 3}, make([]byte, dhLen))
	require.Error(t, err)
}
