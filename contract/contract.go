//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"relay-lab/domain/event"
)

// ConnectionID identifies one live transport session in the registry.
type ConnectionID string

// EventSink is the write side of one live connection.
// Consume must never block the caller on a slow receiver.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// ISender is the fan-out half of the registry: one logical event,
// delivered to every live connection of an identity.
// Sending to an absent identity is a no-op, not an error.
type ISender interface {
	SendTo(identity string, e event.Event)
}

// IRegistry tracks which live connections belong to which identity.
// Multiple connections per identity are allowed (multi-device).
type IRegistry interface {
	ISender
	Register(identity string, sink EventSink) ConnectionID
	// Deregister removes the connection and reports the owning identity,
	// plus whether this removal made the identity absent.
	Deregister(id ConnectionID) (identity string, presenceLost bool)
	IsPresent(identity string) bool
	ConnectionCount() int
}

// IVerifier is the identity-verification collaborator.
// The relay consumes verified identities; it never issues credentials.
type IVerifier interface {
	Verify(token string) (identity string, err error)
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
