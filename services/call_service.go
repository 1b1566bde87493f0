package services

import (
	"encoding/json"

	"relay-lab/signal"
)

type ICallService interface {
	Call(caller, callee string, offer json.RawMessage, callType string) error
	Answer(from, counterpart string, answer json.RawMessage) error
	Candidate(from, counterpart string, candidate json.RawMessage)
	End(from, counterpart string) error
	HandleDisconnect(identity string)
}

// CallService fronts the signaling engine for the gateway.
type CallService struct {
	engine *signal.Engine
}

func NewCallService(engine *signal.Engine) *CallService {
	return &CallService{engine: engine}
}

func (s *CallService) Call(caller, callee string, offer json.RawMessage, callType string) error {
	return s.engine.Call(caller, callee, offer, callType)
}

func (s *CallService) Answer(from, counterpart string, answer json.RawMessage) error {
	return s.engine.Answer(from, counterpart, answer)
}

func (s *CallService) Candidate(from, counterpart string, candidate json.RawMessage) {
	s.engine.Candidate(from, counterpart, candidate)
}

func (s *CallService) End(from, counterpart string) error {
	return s.engine.End(from, counterpart)
}

func (s *CallService) HandleDisconnect(identity string) {
	s.engine.HandleDisconnect(identity)
}
