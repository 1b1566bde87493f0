// Package domain contains core concepts of the relay.
// This file defines direct messages exchanged between two identities.
// Messages are immutable and validated by the relay before persistence.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable direct message between two identities.
type Message struct {
	ID        uuid.UUID // unique identifier
	Sender    string
	Receiver  string
	Content   string
	CreatedAt time.Time
}
