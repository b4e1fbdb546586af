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

	"texttalk/domain"
	apperrors "texttalk/errors"
)

type IMessageRepository interface {
	StoreMessage(sender, receiver, content string) (domain.Message, error)
	GetMessages(userA, userB string, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// storedMessage is the on-disk representation. Values are JSON: the record
// is a single small struct and JSON keeps the store inspectable without a
// codegen step.
type storedMessage struct {
	ID       string `json:"id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
	At       int64  `json:"at"`
}

// StoreMessage assigns identity and timestamp, then persists the message in
// a single Badger transaction. The key is "msg:{roomKey}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// The write is atomic: either the commit succeeds and the message is durable,
// or ErrStoreUnavailable is returned and nothing is visible to readers.
func (m MessageRepository) StoreMessage(sender, receiver, content string) (domain.Message, error) {
	message := domain.Message{
		ID:        uuid.New(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	key := messageKey(message.Room(), message.CreatedAt, message.ID)
	bytes, err := json.Marshal(toStoredMessage(message))
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return message, nil
}

// GetMessages retrieves the conversation of the unordered pair (userA, userB)
// using a prefix scan over the derived room key. Thanks to the padded
// timestamp in the key, messages come back in ascending time order, ties
// broken by UUID. The whole read runs inside one Badger view transaction,
// so the result is a consistent snapshot.
//
// The optional cursor resumes a previous scan: it is the key suffix of the
// last message returned. The scan stops once limitMessages is reached; the
// returned cursor fetches the next page and is nil on the final page.
func (m MessageRepository) GetMessages(userA, userB string, cursor *string) ([]domain.Message, *string, error) {
	var stored []storedMessage
	var lastKey string
	var truncated bool

	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", domain.DeriveRoomKey(userA, userB))
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		seekKey := prefix
		if cursor != nil {
			seekKey = append([]byte(prefixStr), []byte(*cursor)...)
		}

		it.Seek(seekKey)

		// The cursor points at the last key already delivered, skip it.
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(stored) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				truncated = true
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				var sm storedMessage
				if err := json.Unmarshal(value, &sm); err != nil {
					return err
				}
				stored = append(stored, sm)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}

	messages, err := fromStoredMessages(stored)
	if err != nil {
		return nil, nil, err
	}
	if !truncated {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func messageKey(room domain.RoomKey, at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("msg:%s:%019d:%s", room, at.UnixNano(), id)
}

func toStoredMessage(message domain.Message) storedMessage {
	return storedMessage{
		ID:       message.ID.String(),
		Sender:   message.Sender,
		Receiver: message.Receiver,
		Content:  message.Content,
		At:       message.CreatedAt.UnixNano(),
	}
}

func fromStoredMessages(stored []storedMessage) ([]domain.Message, error) {
	var parseErr error
	messages := lo.Map(stored, func(sm storedMessage, _ int) domain.Message {
		parsedID, err := uuid.Parse(sm.ID)
		if err != nil {
			parseErr = err
		}
		return domain.Message{
			ID:        parsedID,
			Sender:    sm.Sender,
			Receiver:  sm.Receiver,
			Content:   sm.Content,
			CreatedAt: time.Unix(0, sm.At).UTC(),
		}
	})
	if parseErr != nil {
		// A corrupt record is a storage failure like any other.
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, parseErr)
	}
	return messages, nil
}
