package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"relay-lab/contract"
	"relay-lab/domain/event"
)

type Set map[contract.ConnectionID]struct{}

type connection struct {
	identity string
	sink     contract.EventSink
}

// Registry is the Connection Registry: it maps each identity to the set
// of its live connections. It is an explicitly constructed instance, not
// process-wide state, and is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	log         *slog.Logger
	connections map[contract.ConnectionID]connection
	identities  map[string]Set
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:         log,
		connections: make(map[contract.ConnectionID]connection),
		identities:  make(map[string]Set),
	}
}

// Register adds a live connection under an identity. The identity becomes
// present if it was absent. Registration always succeeds.
func (r *Registry) Register(identity string, sink contract.EventSink) contract.ConnectionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := contract.ConnectionID(uuid.NewString())
	r.connections[id] = connection{identity: identity, sink: sink}

	if _, ok := r.identities[identity]; !ok {
		r.identities[identity] = make(Set)
	}
	r.identities[identity][id] = struct{}{}
	return id
}

// Deregister removes a connection and reports the owning identity plus
// whether it was the identity's last connection. It cleans up the
// membership set and ensures no empty sets are left in the identity map
// to prevent memory leaks over time.
func (r *Registry) Deregister(id contract.ConnectionID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[id]
	if !ok {
		return "", false
	}
	delete(r.connections, id)

	presenceLost := false
	if members, ok := r.identities[conn.identity]; ok {
		delete(members, id)

		// If no connection is left for the identity, remove the entry entirely
		if len(members) == 0 {
			delete(r.identities, conn.identity)
			presenceLost = true
		}
	}
	return conn.identity, presenceLost
}

// SendTo delivers an independent copy of e to every live connection of
// identity. An absent identity is a no-op: delivery is best-effort and
// send-and-forget. No ordering is guaranteed across the connections.
func (r *Registry) SendTo(identity string, e event.Event) {
	r.mu.RLock()
	members, ok := r.identities[identity]
	var sinks []contract.EventSink
	if ok {
		for id := range members {
			if conn, exists := r.connections[id]; exists {
				sinks = append(sinks, conn.sink)
			}
		}
	}
	r.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Consume(context.Background(), e); err != nil {
			r.log.Debug("Event lost for a connection",
				"identity", identity, "event", e.Name(), "error", err)
		}
	}
}

func (r *Registry) IsPresent(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.identities[identity]
	return ok
}

// ConnectionCount reports the number of live connections across all
// identities, for telemetry.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
