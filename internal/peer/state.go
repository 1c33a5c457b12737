// Package peer owns the lifecycle of one encrypted media connection per
// remote participant: creation, local track attachment, trickle candidate
// buffering, renegotiation-free video swaps, and exhaustive teardown.
package peer

// State is the explicit negotiation state of one remote peer. Connection map
// membership alone is not enough to reason about glare and teardown, so every
// transition is recorded here rather than inferred from callback timing.
type State int

const (
	// StateNone: the connection exists but no description has been exchanged.
	StateNone State = iota

	// StateOffering: a local offer has been sent, awaiting the answer.
	StateOffering

	// StateAnswering: a remote offer was applied and our answer sent.
	StateAnswering

	// StateConnected: the underlying connection reached connected.
	StateConnected

	// StateClosed: torn down; the peer is no longer usable.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateOffering:
		return "offering"
	case StateAnswering:
		return "answering"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
