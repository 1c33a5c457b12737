// Package room coordinates an arbitrary number of peers into a full-mesh
// audio/video conference: it wires presence changes into peer connection
// actions, routes relayed signaling to the right connection, and exposes the
// room-level operations a front end needs.
package room

// Descriptor is the persisted room metadata supplied by the caller. The
// orchestrator only reads RoomID (falling back to ID) to build its channel
// topic, and CreatedBy to compute host privilege; everything else belongs to
// the page around it.
type Descriptor struct {
	ID         string `json:"id"`
	RoomID     string `json:"room_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	CreatedBy  string `json:"created_by"`
	MeetingURL string `json:"meeting_url"`
}

// Topic returns the channel name scoping presence and broadcast to this room.
func (d Descriptor) Topic() string {
	id := d.RoomID
	if id == "" {
		id = d.ID
	}
	return "room:" + id
}

// Identity is the local user's identity context, required before joining.
type Identity struct {
	ID   string
	Name string
	Role string
}

const roleAdmin = "admin"
