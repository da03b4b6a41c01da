package noisewire

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// pipeConn mirrors the teacher's TCP-loopback pipe helper
// (portal/core/cryptoops/handshaker_test.go), used here because the codec
// and stream read loop exercise real net.Conn short-read behavior that
// net.Pipe's synchronous semantics would mask.
func pipeConn(t *testing.T) (clientConn, serverConn net.Conn) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	connCh := make(chan net.Conn, 1)
	go func() {
		accepted, acceptErr := listener.Accept()
		require.NoError(t, acceptErr)
		connCh <- accepted
		listener.Close()
	}()

	clientConn, err = net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)

	serverConn = <-connCh
	return clientConn, serverConn
}

func handshakeOverConn(t *testing.T, clientConn, serverConn net.Conn) (clientCdc, serverCdc *Codec) {
	t.Helper()
	clientStatic := mustStaticKeypair(t)
	serverStatic := mustStaticKeypair(t)

	clientHS, err := NewXXHandshakeState(true, clientStatic.priv[:], clientStatic.pub[:])
	require.NoError(t, err)
	serverHS, err := NewXXHandshakeState(false, serverStatic.priv[:], serverStatic.pub[:])
	require.NoError(t, err)

	clientCdc = NewCodec(clientHS)
	serverCdc = NewCodec(serverHS)

	errCh := make(chan error, 2)

	go func() {
		errCh <- driveHandshakeSide(clientCdc, clientConn)
	}()
	go func() {
		errCh <- driveHandshakeSide(serverCdc, serverConn)
	}()

	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)
	return clientCdc, serverCdc
}

// driveHandshakeSide runs exactly 3 handshake messages on cdc over conn in
// strict initiator/responder lockstep: odd-numbered roles write first.
func driveHandshakeSide(cdc *Codec, conn net.Conn) error {
	writesFirst := cdc.hs.initiator
	readBuf := make([]byte, 0, 512)

	for cdc.Handshaking() {
		if writesFirst {
			msg, err := cdc.EncodeHandshakeMessage(nil)
			if err != nil {
				return err
			}
			if _, err := conn.Write(msg); err != nil {
				return err
			}
			writesFirst = false
			continue
		}

		for {
			_, n, err, ok := cdc.DecodeHandshakeMessage(readBuf)
			if err != nil {
				return err
			}
			if ok {
				readBuf = readBuf[n:]
				writesFirst = true
				break
			}
			chunk := make([]byte, 512)
			read, rerr := conn.Read(chunk)
			if read > 0 {
				readBuf = append(readBuf, chunk[:read]...)
			}
			if rerr != nil {
				return rerr
			}
		}
	}
	return nil
}

func TestCodecHandshakeAndTransport(t *testing.T) {
	clientConn, serverConn := pipeConn(t)
	defer clientConn.Close()
	defer serverConn.Close()

	clientCdc, serverCdc := handshakeOverConn(t, clientConn, serverConn)

	clientStream := NewUpgradedStream(clientConn, clientCdc)
	serverStream := NewUpgradedStream(serverConn, serverCdc)

	n, err := clientStream.Write([]byte("ping"))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	buf := make([]byte, 16)
	n, err = serverStream.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))

	_, err = serverStream.Write([]byte("pong"))
	require.NoError(t, err)

	n, err = clientStream.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "pong", string(buf[:n]))
}

func TestUpgradedStreamEOFPropagates(t *testing.T) {
	clientConn, serverConn := pipeConn(t)
	defer clientConn.Close()

	clientCdc, serverCdc := handshakeOverConn(t, clientConn, serverConn)
	clientStream := NewUpgradedStream(clientConn, clientCdc)
	serverStream := NewUpgradedStream(serverConn, serverCdc)

	require.NoError(t, serverConn.Close())

	buf := make([]byte, 16)
	_, err := clientStream.Read(buf)
	require.ErrorIs(t, err, io.EOF)
	_ = serverStream
}
