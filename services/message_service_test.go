package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"relay-lab/domain"
	"relay-lab/domain/event"
	"relay-lab/errors"
	"relay-lab/mocks"
	"relay-lab/repositories"
)

// recordingSender captures fan-out calls per identity.
type recordingSender struct {
	mu     sync.Mutex
	events map[string][]event.Event
}

func newRecordingSender() *recordingSender {
	return &recordingSender{events: make(map[string][]event.Event)}
}

func (r *recordingSender) SendTo(identity string, e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[identity] = append(r.events[identity], e)
}

func (r *recordingSender) sent(identity string) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[identity]
}

func TestSend_Persists_Then_Delivers_To_Both_Participants(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	sender := newRecordingSender()
	service := NewMessageService(slog.Default(), repository, sender, 0)

	var stored repositories.DiskMessage
	repository.EXPECT().StoreMessage(gomock.Any()).
		DoAndReturn(func(dm repositories.DiskMessage) error {
			stored = dm
			return nil
		})

	// When alice messages bob
	message, err := service.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Receiver: "bob", Content: "hi",
	})
	req.NoError(err)

	// Then exactly one message is persisted with the generated id
	req.Equal(message.ID, stored.ID)
	req.Equal("alice", stored.Sender)
	req.Equal("bob", stored.Receiver)
	req.Equal("hi", stored.Content)
	req.NotEqual(uuid.Nil, message.ID)
	req.WithinDuration(time.Now().UTC(), message.CreatedAt, time.Minute)

	// And both participants receive the identical payload
	want := event.MessageDelivered{
		ID: message.ID, Sender: "alice", Receiver: "bob",
		Content: "hi", CreatedAt: message.CreatedAt,
	}
	req.Equal([]event.Event{want}, sender.sent("bob"))
	req.Equal([]event.Event{want}, sender.sent("alice"))
}

func TestSend_To_Yourself_Is_Rejected(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	sender := newRecordingSender()
	service := NewMessageService(slog.Default(), repository, sender, 0)

	// No persistence, no delivery
	_, err := service.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Receiver: "alice", Content: "x",
	})
	req.ErrorIs(err, errors.ErrSelfMessage)
	req.Empty(sender.sent("alice"))
}

func TestSend_Whitespace_Content_Is_Rejected(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	sender := newRecordingSender()
	service := NewMessageService(slog.Default(), repository, sender, 0)

	_, err := service.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Receiver: "bob", Content: "  \t\n ",
	})
	req.ErrorIs(err, errors.ErrEmptyContent)
	req.Empty(sender.sent("bob"))
}

func TestSend_Content_Over_Limit_Is_Rejected(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	sender := newRecordingSender()
	service := NewMessageService(slog.Default(), repository, sender, 4)

	_, err := service.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Receiver: "bob", Content: "way too long",
	})
	req.ErrorIs(err, errors.ErrContentTooLong)
}

func TestSend_Persistence_Failure_Prevents_Any_Delivery(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	sender := newRecordingSender()
	service := NewMessageService(slog.Default(), repository, sender, 0)

	repository.EXPECT().StoreMessage(gomock.Any()).Return(fmt.Errorf("disk full"))

	// When the store is unavailable
	_, err := service.Send(context.Background(), domain.SendMessageCommand{
		Sender: "alice", Receiver: "bob", Content: "hi",
	})

	// Then the operation fails and no fan-out happened
	req.ErrorIs(err, errors.ErrPersistence)
	req.Empty(sender.sent("alice"))
	req.Empty(sender.sent("bob"))
}

func TestHistory_Maps_Disk_Messages_To_Domain(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	service := NewMessageService(slog.Default(), repository, newRecordingSender(), 0)

	id := uuid.New()
	at := time.Now().UTC()
	next := "cursor"
	repository.EXPECT().GetMessages("alice", "bob", gomock.Nil()).
		Return([]repositories.DiskMessage{{ID: id, Sender: "alice", Receiver: "bob", Content: "hi", At: at}}, &next, nil)

	history, cursor, err := service.History(domain.GetHistoryCommand{IdentityA: "alice", IdentityB: "bob"})
	req.NoError(err)
	req.Equal(&next, cursor)
	req.Equal([]domain.Message{{ID: id, Sender: "alice", Receiver: "bob", Content: "hi", CreatedAt: at}}, history)
}
