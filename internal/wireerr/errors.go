// Package wireerr defines the error taxonomy shared by the upgrade pipeline.
//
// Each sentinel names a *kind* of failure rather than a single call site;
// callers match with errors.Is and wrap with fmt.Errorf("%w: ...") to add
// context, mirroring how cryptoops.Handshaker in the teacher codebase
// exposes ErrHandshakeFailed / ErrInvalidSignature as package-level
// sentinels instead of bespoke error structs per stage.
package wireerr

import "errors"

var (
	// ErrInvalidInput marks a missing environment variable or a malformed
	// multiaddress component supplied by the caller.
	ErrInvalidInput = errors.New("invalid input")

	// ErrParse marks a PEM, multiaddress, PeerId, or multibase decode failure.
	ErrParse = errors.New("parse error")

	// ErrEncode marks a frame, protobuf, or Noise write_message failure.
	ErrEncode = errors.New("encode error")

	// ErrDecode marks a protobuf or Noise read_message failure.
	ErrDecode = errors.New("decode error")

	// ErrMessageMalformed marks a U8Line frame missing its trailing newline.
	ErrMessageMalformed = errors.New("message malformed")

	// ErrMissingKey marks use of an absent public key.
	ErrMissingKey = errors.New("missing key")

	// ErrVerificationFailed marks a missing Noise payload field, a missing
	// remote static key, or a signature that does not verify.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrUnsupported marks multistream negotiation exhaustion or a version
	// mismatch.
	ErrUnsupported = errors.New("unsupported")

	// ErrOther marks an underlying I/O failure or a Noise builder/transition
	// failure that does not fit another kind.
	ErrOther = errors.New("other")
)
