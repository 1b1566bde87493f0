package gateway

import (
	"relay-lab/domain/event"
	"relay-lab/proto"
)

// toWireFrame converts an internal event to its outbound frame.
func toWireFrame(e event.Event) any {
	switch evt := e.(type) {
	case event.MessageDelivered:
		return proto.MessageEvent{
			Type:      proto.TypeMessage,
			ID:        evt.ID.String(),
			Sender:    evt.Sender,
			Receiver:  evt.Receiver,
			Content:   evt.Content,
			CreatedAt: evt.CreatedAt,
		}
	case event.IncomingCall:
		return proto.IncomingCallEvent{
			Type:     proto.TypeIncomingCall,
			From:     evt.From,
			Offer:    evt.Offer,
			CallType: evt.CallType,
		}
	case event.CallAnswered:
		return proto.CallAnsweredEvent{
			Type:   proto.TypeCallAnswered,
			From:   evt.From,
			Answer: evt.Answer,
		}
	case event.IceCandidate:
		return proto.CandidateEvent{
			Type:      proto.TypeIceCandidate,
			From:      evt.From,
			Candidate: evt.Candidate,
		}
	case event.CallEnded:
		return proto.CallEndedEvent{
			Type: proto.TypeCallEnded,
			From: evt.From,
		}
	case event.OperationError:
		return proto.ErrorEvent{
			Type:    proto.TypeError,
			Code:    evt.Code,
			Message: evt.Message,
		}
	}
	return proto.Envelope{Type: e.Name()}
}
