package wireproto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/gosuda/libp2p-handshake/internal/wireerr"
)

// NoiseExtensions is the optional extensions sub-message of
// NoiseHandshakePayload:
//
//	message NoiseExtensions {
//	  repeated bytes webtransport_certhashes = 1;
//	  repeated bytes stream_muxers = 2;
//	}
//
// Neither field is interpreted by this module; both must round-trip so a
// peer's extensions survive decode/re-encode unchanged.
type NoiseExtensions struct {
	WebtransportCerthashes [][]byte
	StreamMuxers           [][]byte
}

const (
	extensionsFieldCerthashes = protowire.Number(1)
	extensionsFieldMuxers     = protowire.Number(2)
)

func (e *NoiseExtensions) marshalAppend(buf []byte) []byte {
	for _, h := range e.WebtransportCerthashes {
		buf = protowire.AppendTag(buf, extensionsFieldCerthashes, protowire.BytesType)
		buf = protowire.AppendBytes(buf, h)
	}
	for _, m := range e.StreamMuxers {
		buf = protowire.AppendTag(buf, extensionsFieldMuxers, protowire.BytesType)
		buf = protowire.AppendBytes(buf, m)
	}
	return buf
}

func (e *NoiseExtensions) unmarshal(buf []byte) error {
	*e = NoiseExtensions{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return fmt.Errorf("%w: extensions tag: %v", wireerr.ErrDecode, protowire.ParseError(n))
		}
		buf = buf[n:]
		switch {
		case num == extensionsFieldCerthashes && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("%w: extensions certhash: %v", wireerr.ErrDecode, protowire.ParseError(n))
			}
			e.WebtransportCerthashes = append(e.WebtransportCerthashes, append([]byte{}, v...))
			buf = buf[n:]
		case num == extensionsFieldMuxers && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("%w: extensions muxer: %v", wireerr.ErrDecode, protowire.ParseError(n))
			}
			e.StreamMuxers = append(e.StreamMuxers, append([]byte{}, v...))
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return fmt.Errorf("%w: extensions unknown field: %v", wireerr.ErrDecode, protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}
	return nil
}

func (e *NoiseExtensions) sizeHint() int {
	n := 0
	for _, h := range e.WebtransportCerthashes {
		n += protowire.SizeTag(extensionsFieldCerthashes) + protowire.SizeBytes(len(h))
	}
	for _, m := range e.StreamMuxers {
		n += protowire.SizeTag(extensionsFieldMuxers) + protowire.SizeBytes(len(m))
	}
	return n
}

// NoiseHandshakePayload is the payload carried as plaintext inside each
// Noise handshake message:
//
//	message NoiseHandshakePayload {
//	  optional bytes identity_key = 1;
//	  optional bytes identity_sig = 2;
//	  optional NoiseExtensions extensions = 4;
//	}
//
// All three fields are optional, so field presence (nil vs empty slice) must
// be tracked explicitly rather than inferred from a zero value — a nil
// IdentityKey and an IdentityKey set to an empty (but present) slice are
// different wire states (see P5/P6 in the design notes).
type NoiseHandshakePayload struct {
	IdentityKey []byte // nil: absent. non-nil (possibly empty): present.
	IdentitySig []byte
	Extensions  *NoiseExtensions
}

const (
	payloadFieldIdentityKey = protowire.Number(1)
	payloadFieldIdentitySig = protowire.Number(2)
	payloadFieldExtensions  = protowire.Number(4)
)

// Marshal encodes p to its protobuf wire form. An all-absent payload
// encodes to a zero-length slice (P5); present-but-empty byte fields still
// emit a tag with a zero-length value (P6).
func (p *NoiseHandshakePayload) Marshal() []byte {
	buf := []byte{}
	if p.IdentityKey != nil {
		buf = protowire.AppendTag(buf, payloadFieldIdentityKey, protowire.BytesType)
		buf = protowire.AppendBytes(buf, p.IdentityKey)
	}
	if p.IdentitySig != nil {
		buf = protowire.AppendTag(buf, payloadFieldIdentitySig, protowire.BytesType)
		buf = protowire.AppendBytes(buf, p.IdentitySig)
	}
	if p.Extensions != nil {
		inner := p.Extensions.marshalAppend(nil)
		buf = protowire.AppendTag(buf, payloadFieldExtensions, protowire.BytesType)
		buf = protowire.AppendBytes(buf, inner)
	}
	return buf
}

// Unmarshal decodes a NoiseHandshakePayload from buf.
func (p *NoiseHandshakePayload) Unmarshal(buf []byte) error {
	*p = NoiseHandshakePayload{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return fmt.Errorf("%w: handshake payload tag: %v", wireerr.ErrDecode, protowire.ParseError(n))
		}
		buf = buf[n:]
		switch {
		case num == payloadFieldIdentityKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("%w: identity_key: %v", wireerr.ErrDecode, protowire.ParseError(n))
			}
			p.IdentityKey = append([]byte{}, v...)
			buf = buf[n:]
		case num == payloadFieldIdentitySig && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("%w: identity_sig: %v", wireerr.ErrDecode, protowire.ParseError(n))
			}
			p.IdentitySig = append([]byte{}, v...)
			buf = buf[n:]
		case num == payloadFieldExtensions && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("%w: extensions: %v", wireerr.ErrDecode, protowire.ParseError(n))
			}
			ext := &NoiseExtensions{}
			if err := ext.unmarshal(v); err != nil {
				return err
			}
			p.Extensions = ext
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return fmt.Errorf("%w: handshake payload unknown field: %v", wireerr.ErrDecode, protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}
	return nil
}
