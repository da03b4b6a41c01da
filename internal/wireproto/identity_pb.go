// Package wireproto hand-encodes the two fixed protobuf schemas the upgrade
// pipeline exchanges on the wire (the libp2p identity PublicKey message and
// the Noise handshake payload). Rather than running these through a
// generated-code pipeline, each message implements Marshal/Unmarshal
// directly against google.golang.org/protobuf/encoding/protowire's varint
// and tag primitives, in the same spirit as the teacher's vtprotobuf-style
// MarshalVT/UnmarshalVT methods (gosuda-portal/portal/core/proto/rdsec).
package wireproto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/gosuda/libp2p-handshake/internal/wireerr"
)

// KeyType enumerates the libp2p public key variants. Only Ed25519 is
// implemented by this module; the others are recognized on the wire but
// rejected with ErrUnsupported at decode time.
type KeyType int32

const (
	KeyTypeRSA       KeyType = 0
	KeyTypeEd25519   KeyType = 1
	KeyTypeSecp256k1 KeyType = 2
	KeyTypeECDSA     KeyType = 3
)

// PublicKey is the libp2p PublicKey protobuf message:
//
//	message PublicKey { required KeyType Type = 1; required bytes Data = 2; }
type PublicKey struct {
	Type KeyType
	Data []byte
}

const (
	publicKeyFieldType = protowire.Number(1)
	publicKeyFieldData = protowire.Number(2)
)

// Marshal encodes pk to its protobuf wire form. Both fields are required, so
// they are always emitted, mirroring quick_protobuf's write_message for the
// original PublicKey schema.
func (pk *PublicKey) Marshal() []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, publicKeyFieldType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(pk.Type))
	buf = protowire.AppendTag(buf, publicKeyFieldData, protowire.BytesType)
	buf = protowire.AppendBytes(buf, pk.Data)
	return buf
}

// Unmarshal decodes a PublicKey message from buf. Unknown fields are
// skipped; missing required fields are tolerated the same way the Rust
// quick_protobuf reader tolerates them (zero value), since the only
// validation that matters for this module happens one layer up in
// identity.PublicKeyFromProtobuf.
func (pk *PublicKey) Unmarshal(buf []byte) error {
	*pk = PublicKey{}
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return fmt.Errorf("%w: public key tag: %v", wireerr.ErrDecode, protowire.ParseError(n))
		}
		buf = buf[n:]
		switch {
		case num == publicKeyFieldType && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return fmt.Errorf("%w: public key type: %v", wireerr.ErrDecode, protowire.ParseError(n))
			}
			pk.Type = KeyType(v)
			buf = buf[n:]
		case num == publicKeyFieldData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("%w: public key data: %v", wireerr.ErrDecode, protowire.ParseError(n))
			}
			pk.Data = append([]byte(nil), v...)
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return fmt.Errorf("%w: public key unknown field: %v", wireerr.ErrDecode, protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}
	return nil
}
