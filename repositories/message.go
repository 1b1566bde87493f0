//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"relay-lab/domain"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(identityA, identityB string, cursor *string) ([]DiskMessage, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type DiskMessage struct {
	ID       uuid.UUID
	Sender   string
	Receiver string
	Content  string
	At       time.Time
}

// record is the on-disk shape of a message value.
type record struct {
	ID       string `json:"id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
	At       int64  `json:"at"`
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "dm:{pair}:{timestamp_padded}:{uuid}" to:
//  1. Group both directions of a conversation under one unordered-pair prefix.
//  2. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  3. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := fmt.Sprintf("dm:%s:%019d:%s",
		domain.PairKey(message.Sender, message.Receiver),
		message.At.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(fromDiskMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetMessages retrieves the conversation between two identities using a
// prefix scan over their unordered pair. The iterator walks backwards from
// the newest entry (or from the cursor of a previous page), collects up to
// limitMessages, then reverses the page so messages come back oldest first,
// most recent last. The returned cursor resumes the scan on the next page.
func (m MessageRepository) GetMessages(identityA, identityB string, cursor *string) ([]DiskMessage, *string, error) {
	var byteMessages [][]byte
	var diskMessages []DiskMessage
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("dm:%s:", domain.PairKey(identityA, identityB))
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk back.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				byteMessages = append(byteMessages, value)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	for _, b := range byteMessages {
		var rec record
		if err = json.Unmarshal(b, &rec); err != nil {
			return nil, nil, err
		}
		message, err := toDiskMessage(rec)
		if err != nil {
			return nil, nil, err
		}
		diskMessages = append(diskMessages, message)
	}
	// Reverse iteration yields newest first; callers expect most recent last.
	return lo.Reverse(diskMessages), &lastKey, err
}

func fromDiskMessage(message DiskMessage) record {
	return record{
		ID:       message.ID.String(),
		Sender:   message.Sender,
		Receiver: message.Receiver,
		Content:  message.Content,
		At:       message.At.UnixNano(),
	}
}

func toDiskMessage(rec record) (DiskMessage, error) {
	parsedID, err := uuid.Parse(rec.ID)
	if err != nil {
		return DiskMessage{}, err
	}
	return DiskMessage{
		ID:       parsedID,
		Sender:   rec.Sender,
		Receiver: rec.Receiver,
		Content:  rec.Content,
		At:       time.Unix(0, rec.At).UTC(),
	}, nil
}
