package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// CallState tracks where a call negotiation stands. There are only two
// states: the offer has been forwarded (Ringing) or the answer has been
// forwarded (Active). Media flows peer to peer and is never observed.
type CallState int

const (
	CallRinging CallState = iota
	CallActive
)

func (s CallState) String() string {
	switch s {
	case CallRinging:
		return "RINGING"
	case CallActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// CallSession is one live negotiation between two identities. Offer and
// Answer are opaque payloads carried verbatim for the peers.
type CallSession struct {
	Caller    string
	Callee    string
	State     CallState
	CallType  string
	Offer     json.RawMessage
	Answer    json.RawMessage
	StartedAt time.Time
}

// PairKey builds the canonical key for an unordered identity pair, so
// {a, b} and {b, a} always address the same session or conversation.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return strings.Join([]string{a, b}, "|")
}
