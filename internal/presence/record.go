// Package presence maintains the set of participants joined to a room topic
// as a stream of full map snapshots.
package presence

import "time"

// Record is one participant's published liveness and status data. Records are
// keyed by UserID; the channel applies last-write-wins if a user tracks twice.
type Record struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
	AudioMuted  bool      `json:"audio_muted"`
	VideoOff    bool      `json:"video_off"`
}
