package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"relay-lab/contract"
	"relay-lab/domain"
	"relay-lab/domain/event"
	"relay-lab/errors"
	"relay-lab/repositories"
)

type IMessageService interface {
	Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	History(cmd domain.GetHistoryCommand) ([]domain.Message, *string, error)
}

// MessageService is the Message Relay: it validates a direct message,
// records it durably, then fans it out to every live connection of both
// participants.
type MessageService struct {
	log              *slog.Logger
	repository       repositories.IMessageRepository
	registry         contract.ISender
	maxContentLength int
}

func NewMessageService(log *slog.Logger, repository repositories.IMessageRepository,
	registry contract.ISender, maxContentLength int) *MessageService {
	return &MessageService{
		log:              log,
		repository:       repository,
		registry:         registry,
		maxContentLength: maxContentLength,
	}
}

// Send relays one direct message. Persistence must complete before any
// delivery happens: a message is never seen live without a durable copy
// existing for later history retrieval. Delivery itself is best-effort;
// the sender's own devices receive the same payload so every device
// converges without optimistic local echo.
func (s *MessageService) Send(_ context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	if cmd.Sender == cmd.Receiver {
		return domain.Message{}, errors.ErrSelfMessage
	}
	if strings.TrimSpace(cmd.Content) == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	if s.maxContentLength > 0 && len(cmd.Content) > s.maxContentLength {
		return domain.Message{}, errors.ErrContentTooLong
	}

	message := domain.Message{
		ID:        uuid.New(),
		Sender:    cmd.Sender,
		Receiver:  cmd.Receiver,
		Content:   cmd.Content,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repository.StoreMessage(toDiskMessage(message)); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	delivered := event.MessageDelivered{
		ID:        message.ID,
		Sender:    message.Sender,
		Receiver:  message.Receiver,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
	s.registry.SendTo(message.Receiver, delivered)
	s.registry.SendTo(message.Sender, delivered)

	return message, nil
}

// History returns the durable conversation between two identities,
// most recent last, with a cursor resuming older pages.
func (s *MessageService) History(cmd domain.GetHistoryCommand) ([]domain.Message, *string, error) {
	diskMessages, cursor, err := s.repository.GetMessages(cmd.IdentityA, cmd.IdentityB, cmd.Cursor)
	return fromDiskMessages(diskMessages), cursor, err
}

func toDiskMessage(message domain.Message) repositories.DiskMessage {
	return repositories.DiskMessage{
		ID:       message.ID,
		Sender:   message.Sender,
		Receiver: message.Receiver,
		Content:  message.Content,
		At:       message.CreatedAt,
	}
}

func fromDiskMessages(messages []repositories.DiskMessage) []domain.Message {
	return lo.Map(messages, func(item repositories.DiskMessage, _ int) domain.Message {
		return domain.Message{
			ID:        item.ID,
			Sender:    item.Sender,
			Receiver:  item.Receiver,
			Content:   item.Content,
			CreatedAt: item.At,
		}
	})
}
