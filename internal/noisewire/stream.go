package noisewire

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"
)

var scratchPool bytebufferpool.Pool

// UpgradedStream adapts a completed Codec (post-handshake) onto a net.Conn,
// presenting a plain io.Reader/io.Writer surface of decrypted application
// bytes, one U16 transport frame per Write. readBuf holds undecoded bytes
// pulled off the wire (a single underlying read may also bring in the start
// of later frames), decBuf holds the plaintext of the most recently decoded
// frame not yet delivered to the caller.
//
// Distinguishing "need more bytes from the conn" from "decoded a frame with
// zero plaintext" from "conn is closed" is the one place the reference
// implementation's naive io::Read translation gets wrong by conflating all
// three into a single Option<usize>; this type keeps them as distinct
// control-flow branches instead.
type UpgradedStream struct {
	conn net.Conn
	cdc  *Codec

	writeMu sync.Mutex // serializes writes; transport CipherState uses a sequential counter nonce

	readBuf []byte
	decBuf  []byte
}

// NewUpgradedStream wraps conn with a handshake-complete Codec.
func NewUpgradedStream(conn net.Conn, cdc *Codec) *UpgradedStream {
	if cdc.Handshaking() {
		panic("noisewire: UpgradedStream requires a completed handshake")
	}
	return &UpgradedStream{conn: conn, cdc: cdc}
}

// RemoteStatic returns the peer's Noise static public key.
func (s *UpgradedStream) RemoteStatic() []byte {
	return s.cdc.RemoteStatic()
}

// Read implements io.Reader, decrypting exactly one transport frame's worth
// of plaintext per underlying read cycle and draining it across Read calls
// if the caller's buffer is smaller than the frame.
func (s *UpgradedStream) Read(p []byte) (int, error) {
	for len(s.decBuf) == 0 {
		if err := s.fillOneFrame(); err != nil {
			return 0, err
		}
	}
	n := copy(p, s.decBuf)
	s.decBuf = s.decBuf[n:]
	return n, nil
}

// fillOneFrame blocks on the underlying conn until one full transport frame
// has been read and decrypted into decBuf, or returns the conn's error
// (io.EOF included) unchanged.
func (s *UpgradedStream) fillOneFrame() error {
	for {
		pt, n, err, ok := s.cdc.DecodeTransportMessage(s.readBuf)
		if err != nil {
			return err
		}
		if ok {
			s.readBuf = s.readBuf[n:]
			s.decBuf = pt
			return nil
		}

		chunk := scratchPool.Get()
		chunk.B = chunk.B[:cap(chunk.B)]
		if len(chunk.B) < 4096 {
			chunk.B = make([]byte, 4096)
		}
		read, rerr := s.conn.Read(chunk.B)
		if read > 0 {
			s.readBuf = append(s.readBuf, chunk.B[:read]...)
		}
		scratchPool.Put(chunk)
		if rerr != nil {
			if read > 0 {
				// Let the next loop iteration try to decode what we already
				// have before surfacing the error.
				continue
			}
			return rerr
		}
	}
}

// Write implements io.Writer, sealing p as a single transport frame.
// Noise/U16Frame impose a maximum plaintext-per-frame size; callers writing
// larger buffers must chunk themselves.
func (s *UpgradedStream) Write(p []byte) (int, error) {
	if len(p) > wireframeMaxPlaintext {
		return 0, io.ErrShortWrite
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	framed, err := s.cdc.EncodeTransportMessage(p)
	if err != nil {
		return 0, err
	}
	if _, err := s.conn.Write(framed); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the underlying connection.
func (s *UpgradedStream) Close() error {
	return s.conn.Close()
}

// LocalAddr, RemoteAddr and the deadline setters pass straight through to
// the underlying connection so UpgradedStream satisfies net.Conn and can be
// re-wrapped by another multistream-select pass, matching how the teacher's
// SecureConnection (portal/core/cryptoops/handshaker.go) forwards deadlines
// to the conn it wraps.
func (s *UpgradedStream) LocalAddr() net.Addr  { return s.conn.LocalAddr() }
func (s *UpgradedStream) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

func (s *UpgradedStream) SetDeadline(t time.Time) error      { return s.conn.SetDeadline(t) }
func (s *UpgradedStream) SetReadDeadline(t time.Time) error  { return s.conn.SetReadDeadline(t) }
func (s *UpgradedStream) SetWriteDeadline(t time.Time) error { return s.conn.SetWriteDeadline(t) }

// wireframeMaxPlaintext bounds a single Write to what still fits in one
// U16Frame once sealed (ciphertext adds a fixed AEAD tag).
const wireframeMaxPlaintext = 65535 - tagLen
