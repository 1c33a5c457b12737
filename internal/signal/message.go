// Package signal defines the peer-to-peer signaling messages relayed through a
// room's broadcast channel: the SDP/ICE exchange between exactly two peers,
// plus out-of-band control messages (kick, mute request).
package signal

import (
	"github.com/pion/webrtc/v4"
)

// Type identifies the kind of signaling message.
type Type string

const (
	TypeOffer       Type = "offer"
	TypeAnswer      Type = "answer"
	TypeICE         Type = "ice"
	TypeKick        Type = "kick"
	TypeMuteRequest Type = "mute_request"
)

// Event is the broadcast event name signaling messages travel under.
const Event = "signal"

// Message is the wire structure exchanged between peers. From and To are user
// IDs; exactly one recipient is named and everyone else ignores the message.
// Delivery is best-effort broadcast: no retry, no acknowledgement.
type Message struct {
	Type      Type                       `json:"type"`
	From      string                     `json:"from"`
	To        string                     `json:"to"`
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

// Offer builds an offer message carrying the local session description.
func Offer(from, to string, sdp webrtc.SessionDescription) Message {
	return Message{Type: TypeOffer, From: from, To: to, SDP: &sdp}
}

// Answer builds an answer message carrying the local session description.
func Answer(from, to string, sdp webrtc.SessionDescription) Message {
	return Message{Type: TypeAnswer, From: from, To: to, SDP: &sdp}
}

// ICE builds a trickle candidate message.
func ICE(from, to string, cand webrtc.ICECandidateInit) Message {
	return Message{Type: TypeICE, From: from, To: to, Candidate: &cand}
}

// Kick builds the control message removing a participant from the room.
func Kick(from, to string) Message {
	return Message{Type: TypeKick, From: from, To: to}
}

// MuteRequest builds the control message asking a participant to mute.
func MuteRequest(from, to string) Message {
	return Message{Type: TypeMuteRequest, From: from, To: to}
}
