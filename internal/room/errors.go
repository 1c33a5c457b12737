package room

import "errors"

var (
	// ErrNotHost rejects host-only actions client-side, before any network
	// effect.
	ErrNotHost = errors.New("only the room host may do this")

	ErrAlreadyJoined = errors.New("already joined")
	ErrNotActive     = errors.New("not in an active room session")
	ErrAlreadySharing = errors.New("screen share already running")
	ErrNotSharing     = errors.New("no screen share running")
)
