// Package proto defines the JSON frames exchanged over a relay
// websocket. Offer, answer and candidate payloads are opaque: they are
// carried as raw JSON and never inspected by the relay.
package proto

import (
	"encoding/json"
	"time"
)

// Frame type discriminators, client to relay.
const (
	TypeSendMessage  = "send_message"
	TypeCallUser     = "call_user"
	TypeAnswerCall   = "answer_call"
	TypeIceCandidate = "ice_candidate"
	TypeEndCall      = "end_call"
)

// Frame type discriminators, relay to client.
const (
	TypeMessage      = "message"
	TypeIncomingCall = "incoming_call"
	TypeCallAnswered = "call_answered"
	TypeCallEnded    = "call_ended"
	TypeError        = "error"
)

// Envelope is the minimal decode used to route an inbound frame.
type Envelope struct {
	Type string `json:"type"`
}

type SendMessageRequest struct {
	Type    string `json:"type"`
	To      string `json:"to" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type CallRequest struct {
	Type     string          `json:"type"`
	To       string          `json:"to" validate:"required"`
	Offer    json.RawMessage `json:"offer" validate:"required"`
	CallType string          `json:"call_type"`
}

type AnswerRequest struct {
	Type   string          `json:"type"`
	To     string          `json:"to" validate:"required"`
	Answer json.RawMessage `json:"answer" validate:"required"`
}

type CandidateRequest struct {
	Type      string          `json:"type"`
	To        string          `json:"to" validate:"required"`
	Candidate json.RawMessage `json:"candidate" validate:"required"`
}

type EndRequest struct {
	Type string `json:"type"`
	To   string `json:"to" validate:"required"`
}

type MessageEvent struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type IncomingCallEvent struct {
	Type     string          `json:"type"`
	From     string          `json:"from"`
	Offer    json.RawMessage `json:"offer"`
	CallType string          `json:"call_type"`
}

type CallAnsweredEvent struct {
	Type   string          `json:"type"`
	From   string          `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

type CandidateEvent struct {
	Type      string          `json:"type"`
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

type CallEndedEvent struct {
	Type string `json:"type"`
	From string `json:"from"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
