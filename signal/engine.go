// Package signal mediates one-to-one call negotiation between two
// identities. The relay forwards opaque session descriptions and ICE
// candidates; it never parses or validates their contents.
package signal

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"relay-lab/contract"
	"relay-lab/domain"
	"relay-lab/domain/event"
	"relay-lab/errors"
)

// Engine owns every live call session. A session is keyed by the
// unordered {caller, callee} pair, so at most one negotiation can exist
// between two identities at a time. Creation is a compare-and-create
// under one lock, never a check-then-create across two steps.
type Engine struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry contract.ISender
	sessions map[string]*domain.CallSession
}

func NewEngine(log *slog.Logger, registry contract.ISender) *Engine {
	return &Engine{
		log:      log,
		registry: registry,
		sessions: make(map[string]*domain.CallSession),
	}
}

// Call creates a session in Ringing and forwards the offer to every live
// connection of the callee. A second call for a pair already negotiating
// fails with ErrCallConflict and leaves the existing session untouched.
func (e *Engine) Call(caller, callee string, offer json.RawMessage, callType string) error {
	if caller == callee {
		return errors.ErrSelfCall
	}

	key := domain.PairKey(caller, callee)
	e.mu.Lock()
	if _, ok := e.sessions[key]; ok {
		e.mu.Unlock()
		return errors.ErrCallConflict
	}
	e.sessions[key] = &domain.CallSession{
		Caller:    caller,
		Callee:    callee,
		State:     domain.CallRinging,
		CallType:  callType,
		Offer:     offer,
		StartedAt: time.Now().UTC(),
	}
	e.mu.Unlock()

	e.log.Debug("Call ringing", "caller", caller, "callee", callee, "call_type", callType)
	e.registry.SendTo(callee, event.IncomingCall{From: caller, Offer: offer, CallType: callType})
	return nil
}

// Answer moves a Ringing session to Active and forwards the answer to
// the caller. Only the session's callee may answer; anything else,
// including a missing session, fails with ErrInvalidCallState.
func (e *Engine) Answer(from, counterpart string, answer json.RawMessage) error {
	key := domain.PairKey(from, counterpart)
	e.mu.Lock()
	session, ok := e.sessions[key]
	if !ok || session.State != domain.CallRinging || session.Callee != from {
		e.mu.Unlock()
		return errors.ErrInvalidCallState
	}
	session.Answer = answer
	session.State = domain.CallActive
	caller := session.Caller
	e.mu.Unlock()

	e.log.Debug("Call answered", "caller", caller, "callee", from)
	e.registry.SendTo(caller, event.CallAnswered{From: from, Answer: answer})
	return nil
}

// Candidate forwards an ICE candidate to every live connection of the
// counterpart. Candidates for a pair with no session are dropped
// silently: they may race session teardown, which is a normal race, not
// a protocol violation.
func (e *Engine) Candidate(from, counterpart string, candidate json.RawMessage) {
	key := domain.PairKey(from, counterpart)
	e.mu.Lock()
	_, ok := e.sessions[key]
	e.mu.Unlock()
	if !ok {
		e.log.Debug("Dropping candidate without session", "from", from, "counterpart", counterpart)
		return
	}

	e.registry.SendTo(counterpart, event.IceCandidate{From: from, Candidate: candidate})
}

// End discards the session between from and counterpart and tells the
// counterpart the call is over. Ending a nonexistent session fails with
// ErrInvalidCallState.
func (e *Engine) End(from, counterpart string) error {
	key := domain.PairKey(from, counterpart)
	e.mu.Lock()
	_, ok := e.sessions[key]
	if !ok {
		e.mu.Unlock()
		return errors.ErrInvalidCallState
	}
	delete(e.sessions, key)
	e.mu.Unlock()

	e.log.Debug("Call ended", "from", from, "counterpart", counterpart)
	e.registry.SendTo(counterpart, event.CallEnded{From: from})
	return nil
}

// HandleDisconnect is invoked when an identity's last connection is gone.
// Every session involving that identity is discarded, and the remaining
// participant is told the call ended so it is never left waiting.
func (e *Engine) HandleDisconnect(identity string) {
	e.mu.Lock()
	var counterparts []string
	for key, session := range e.sessions {
		if session.Caller != identity && session.Callee != identity {
			continue
		}
		other := session.Caller
		if other == identity {
			other = session.Callee
		}
		counterparts = append(counterparts, other)
		delete(e.sessions, key)
	}
	e.mu.Unlock()

	for _, other := range counterparts {
		e.log.Debug("Call ended by disconnect", "identity", identity, "counterpart", other)
		e.registry.SendTo(other, event.CallEnded{From: identity})
	}
}

// SessionFor returns a copy of the live session between two identities,
// if any. Intended for telemetry and tests.
func (e *Engine) SessionFor(a, b string) (domain.CallSession, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	session, ok := e.sessions[domain.PairKey(a, b)]
	if !ok {
		return domain.CallSession{}, false
	}
	return *session, true
}
