package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is anything the relay pushes to a connected identity.
// The name returned by Name is the wire-level discriminator.
type Event interface {
	Name() string
}

// MessageDelivered carries a persisted direct message to every live
// connection of both participants, including the generated id and
// timestamp so all devices converge on the same view.
type MessageDelivered struct {
	ID        uuid.UUID
	Sender    string
	Receiver  string
	Content   string
	CreatedAt time.Time
}

func (MessageDelivered) Name() string { return "message" }

// IncomingCall notifies the callee that a session entered Ringing.
// Offer is opaque; the relay never parses session descriptions.
type IncomingCall struct {
	From     string
	Offer    json.RawMessage
	CallType string
}

func (IncomingCall) Name() string { return "incoming_call" }

// CallAnswered notifies the caller that the callee accepted.
type CallAnswered struct {
	From   string
	Answer json.RawMessage
}

func (CallAnswered) Name() string { return "call_answered" }

// IceCandidate forwards an opaque reachability payload to the
// counterpart of the session participant that produced it.
type IceCandidate struct {
	From      string
	Candidate json.RawMessage
}

func (IceCandidate) Name() string { return "ice_candidate" }

// CallEnded notifies the remaining participant that the session is gone,
// whether through an explicit hang-up or a full disconnection.
type CallEnded struct {
	From string
}

func (CallEnded) Name() string { return "call_ended" }

// OperationError is delivered only to the connection whose request failed.
type OperationError struct {
	Code    string
	Message string
}

func (OperationError) Name() string { return "error" }
