package upgrader

import (
	"fmt"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/libp2p-handshake/internal/wireerr"
	"github.com/gosuda/libp2p-handshake/internal/wireframe"
)

// multistreamVersion is the only multistream-select version this upgrader
// speaks, per spec §4.6.
const multistreamVersion = "/multistream/1.0.0"

// naLine is the wire response meaning "protocol not available".
const naLine = "na"

// lineReader accumulates U8Line frames off a net.Conn one line at a time.
// It mirrors the read-then-decode-then-maybe-read-again loop used by
// noisewire.UpgradedStream.fillOneFrame, but over line framing instead of
// length-prefixed frames.
type lineReader struct {
	conn net.Conn
	buf  []byte
}

func (r *lineReader) readLine() (string, error) {
	for {
		payload, n, err, ok := wireframe.DecodeU8Line(r.buf)
		if ok {
			r.buf = r.buf[n:]
			if err != nil {
				return "", err
			}
			return string(payload), nil
		}
		chunk := make([]byte, 256)
		read, rerr := r.conn.Read(chunk)
		if read > 0 {
			r.buf = append(r.buf, chunk[:read]...)
			continue
		}
		if rerr != nil {
			return "", rerr
		}
	}
}

func writeLine(conn net.Conn, line string) error {
	framed, err := wireframe.EncodeU8Line(nil, []byte(line))
	if err != nil {
		return err
	}
	_, err = conn.Write(framed)
	return err
}

// NegotiateOutbound drives multistream-select 1.0.0 as initiator with a
// responder-first handshake (spec §4.6 step 1): it waits for the peer to
// announce "/multistream/1.0.0" before echoing it back, then proposes each
// candidate protocol in order until one is accepted or the list is
// exhausted. It returns the underlying conn unwrapped (the line reader's
// buffer is discarded, matching spec §4.6's "framing reads/writes are
// line-by-line; partial lines ... are implicitly dropped when the frame is
// unwrapped").
func NegotiateOutbound(conn net.Conn, candidates []ProtocolID) (net.Conn, ProtocolID, error) {
	r := &lineReader{conn: conn}

	peerVersion, err := r.readLine()
	if err != nil {
		return nil, "", err
	}
	if peerVersion != multistreamVersion {
		log.Debug().Str("got", peerVersion).Msg("multistream version mismatch")
		_ = writeLine(conn, naLine)
		return nil, "", fmt.Errorf("%w: peer multistream version %q", wireerr.ErrUnsupported, peerVersion)
	}
	if err := writeLine(conn, multistreamVersion); err != nil {
		return nil, "", err
	}

	for _, candidate := range candidates {
		log.Debug().Str("candidate", string(candidate)).Msg("proposing multistream protocol")
		if err := writeLine(conn, string(candidate)); err != nil {
			return nil, "", err
		}
		resp, err := r.readLine()
		if err != nil {
			return nil, "", err
		}
		if resp == naLine {
			continue
		}
		return conn, ProtocolID(resp), nil
	}
	return nil, "", fmt.Errorf("%w: no candidate accepted", wireerr.ErrUnsupported)
}
