package signal

import (
	"encoding/json"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	event    string
	payloads []Message
	err      error
}

func (c *captureSender) Send(event string, payload any) error {
	c.event = event
	c.payloads = append(c.payloads, payload.(Message))
	return c.err
}

func TestSendStampsFrom(t *testing.T) {
	ch := &captureSender{}
	r := NewRelay("aaa", ch)

	require.NoError(t, r.Send(Kick("spoofed", "bbb")))
	require.Len(t, ch.payloads, 1)
	assert.Equal(t, Event, ch.event)
	assert.Equal(t, "aaa", ch.payloads[0].From)
	assert.Equal(t, "bbb", ch.payloads[0].To)
}

func TestRouteDeliversOnlyToRecipient(t *testing.T) {
	r := NewRelay("bbb", nil)

	var got []Message
	route := func(msg Message) {
		raw, err := json.Marshal(msg)
		require.NoError(t, err)
		r.Route(raw, func(m Message) { got = append(got, m) })
	}

	route(Kick("aaa", "bbb"))       // addressed to us
	route(Kick("aaa", "ccc"))       // someone else
	route(MuteRequest("bbb", "bbb")) // echo of our own send

	require.Len(t, got, 1)
	assert.Equal(t, TypeKick, got[0].Type)
	assert.Equal(t, "aaa", got[0].From)
}

func TestRouteDropsMalformedPayload(t *testing.T) {
	r := NewRelay("bbb", nil)
	called := false
	r.Route(json.RawMessage(`{"type":`), func(Message) { called = true })
	assert.False(t, called)
}

func TestMessageRoundTrip(t *testing.T) {
	sdp := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0\r\n"}
	raw, err := json.Marshal(Offer("aaa", "bbb", sdp))
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, TypeOffer, decoded.Type)
	require.NotNil(t, decoded.SDP)
	assert.Equal(t, sdp.SDP, decoded.SDP.SDP)
	assert.Nil(t, decoded.Candidate)

	mid := "0"
	cand := webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 2 127.0.0.1 5000 typ host", SDPMid: &mid}
	raw, err = json.Marshal(ICE("aaa", "bbb", cand))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, TypeICE, decoded.Type)
	require.NotNil(t, decoded.Candidate)
	assert.Equal(t, cand.Candidate, decoded.Candidate.Candidate)
}
