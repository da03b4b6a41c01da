package upgrader

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gosuda/libp2p-handshake/internal/wireframe"
)

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

// fakeResponder plays the peer side of multistream-select: it speaks first
// (as spec §4.6 requires of the initiator's counterpart), then answers each
// proposed protocol against an accept list.
func fakeResponder(t *testing.T, conn net.Conn, accept map[string]bool) {
	t.Helper()
	require.NoError(t, writeLine(conn, multistreamVersion))
	r := &lineReader{conn: conn}
	echoed, err := r.readLine()
	require.NoError(t, err)
	require.Equal(t, multistreamVersion, echoed)

	for {
		proposed, err := r.readLine()
		if err != nil {
			return
		}
		if accept[proposed] {
			require.NoError(t, writeLine(conn, proposed))
			return
		}
		require.NoError(t, writeLine(conn, naLine))
	}
}

func TestNegotiateOutboundAcceptsFirstCandidate(t *testing.T) {
	clientConn, serverConn := pipeConn(t)
	defer clientConn.Close()
	defer serverConn.Close()

	go fakeResponder(t, serverConn, map[string]bool{"/noise": true})

	_, agreed, err := NegotiateOutbound(clientConn, []ProtocolID{"/noise"})
	require.NoError(t, err)
	require.Equal(t, ProtocolID("/noise"), agreed)
}

func TestNegotiateOutboundFallsThroughCandidates(t *testing.T) {
	clientConn, serverConn := pipeConn(t)
	defer clientConn.Close()
	defer serverConn.Close()

	go fakeResponder(t, serverConn, map[string]bool{"/yamux/1.0.0": true})

	_, agreed, err := NegotiateOutbound(clientConn, []ProtocolID{"/mplex/6.7.0", "/yamux/1.0.0"})
	require.NoError(t, err)
	require.Equal(t, ProtocolID("/yamux/1.0.0"), agreed)
}

func TestNegotiateOutboundExhaustedCandidates(t *testing.T) {
	clientConn, serverConn := pipeConn(t)
	defer clientConn.Close()
	defer serverConn.Close()

	go fakeResponder(t, serverConn, map[string]bool{})

	_, _, err := NegotiateOutbound(clientConn, []ProtocolID{"/noise"})
	require.Error(t, err)
}

func TestNegotiateOutboundVersionMismatch(t *testing.T) {
	clientConn, serverConn := pipeConn(t)
	defer clientConn.Close()
	defer serverConn.Close()

	go func() {
		framed, _ := wireframe.EncodeU8Line(nil, []byte("/multistream/9.9.9"))
		serverConn.Write(framed)
	}()

	_, _, err := NegotiateOutbound(clientConn, []ProtocolID{"/noise"})
	require.Error(t, err)
}
