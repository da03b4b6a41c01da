// Package upgrader drives the libp2p connection-upgrade sequence: a plain
// byte stream is progressively wrapped by multistream-select negotiation and
// the Noise XX handshake. The source this was distilled from parameterizes
// the upgrade step over a generic stream trait (`UpgradeOutbound<S>`); Go has
// no trait genericity worth reaching for here, so each stage is a plain
// function taking and returning a net.Conn, matching spec §9's own guidance
// ("no dynamic dispatch required").
package upgrader

import "net"

// Outbound upgrades conn to a new protocol layer, returning the (possibly
// re-wrapped) connection plus whatever metadata that layer produces. Each
// upgrade stage in this package (multistream negotiation, the Noise
// handshake) is exposed as a standalone function rather than an
// implementation of this interface; Outbound exists so the connection
// manager can compose stages uniformly without hand-threading result types
// through every call site.
type Outbound[T any] func(conn net.Conn) (net.Conn, T, error)

// ProtocolID is a multistream-select protocol identifier, e.g. "/noise" or
// "/yamux/1.0.0".
type ProtocolID string

// NegotiateOutboundStage binds a candidate list to an Outbound stage,
// letting the connection manager hold the multistream-select step as a
// plain Outbound[ProtocolID] value alongside the Noise handshake stage
// instead of calling NegotiateOutbound directly with its candidates
// threaded through every call site.
func NegotiateOutboundStage(candidates []ProtocolID) Outbound[ProtocolID] {
	return func(conn net.Conn) (net.Conn, ProtocolID, error) {
		return NegotiateOutbound(conn, candidates)
	}
}
