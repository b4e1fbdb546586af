package services

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"texttalk/contract"
	"texttalk/domain"
	"texttalk/domain/event"
	apperrors "texttalk/errors"
	"texttalk/observability"
	"texttalk/repositories"
)

type IChatService interface {
	SendMessage(ctx context.Context, sender, receiver, content string) (domain.Message, error)
	JoinRoom(connID, username, peer string, sink contract.EventSink) domain.RoomKey
	LeaveAll(connID string)
	History(caller, peer string, cursor *string) ([]domain.Message, *string, error)
	ListPeers(caller string) ([]string, error)
}

// ChatService is the gateway-facing API of the delivery core. It owns the
// membership registry and the message repository: transports never touch
// storage or membership state directly.
type ChatService struct {
	log               *slog.Logger
	registry          contract.IRegistry
	messageRepository repositories.IMessageRepository
	userRepository    repositories.IUserRepository
	monitoring        *observability.MonitoringManager
	maxContentLength  int
}

func NewChatService(
	log *slog.Logger,
	registry contract.IRegistry,
	messageRepository repositories.IMessageRepository,
	userRepository repositories.IUserRepository,
	monitoring *observability.MonitoringManager,
	maxContentLength int,
) *ChatService {
	return &ChatService{
		log:               log,
		registry:          registry,
		messageRepository: messageRepository,
		userRepository:    userRepository,
		monitoring:        monitoring,
		maxContentLength:  maxContentLength,
	}
}

// SendMessage persists the message before any fan-out. If persistence fails
// nothing is broadcast and the error is surfaced to the caller only. On success the stored event is delivered to every connection
// currently joined to the pair's room, the sender's own connections
// included, which is what keeps multiple tabs of one user consistent.
//
// Delivery is fire-and-forget: sinks buffer internally and a slow member
// never blocks this call or delivery to the remaining members.
func (s *ChatService) SendMessage(ctx context.Context, sender, receiver, content string) (domain.Message, error) {
	if content == "" {
		return domain.Message{}, apperrors.ErrEmptyMessage
	}
	if s.maxContentLength > 0 && len(content) > s.maxContentLength {
		return domain.Message{}, apperrors.ErrMessageTooLong
	}

	message, err := s.messageRepository.StoreMessage(sender, receiver, content)
	if err != nil {
		return domain.Message{}, err
	}
	s.monitoring.MessageStored()

	evt := event.MessageStored{
		ID:       message.ID,
		Sender:   message.Sender,
		Receiver: message.Receiver,
		Content:  message.Content,
		At:       message.CreatedAt,
	}

	for _, sink := range s.registry.SinksForRoom(evt.RoomKey()) {
		if err := sink.Consume(ctx, evt); err != nil {
			// Best effort: a failed member delivery is counted and dropped,
			// never propagated to the sender.
			s.monitoring.DeliveryDropped()
			s.log.Debug("Delivery dropped", "room", evt.RoomKey(), "error", err)
			continue
		}
		s.monitoring.MessageDelivered()
	}

	return message, nil
}

// JoinRoom derives the canonical room key for (username, peer) and registers
// the connection's sink under it. Joining twice is a no-op.
func (s *ChatService) JoinRoom(connID, username, peer string, sink contract.EventSink) domain.RoomKey {
	roomKey := domain.DeriveRoomKey(username, peer)
	s.registry.Join(connID, roomKey, sink)
	s.log.Debug("Connection joined room", "conn_id", connID, "room", roomKey)
	return roomKey
}

// LeaveAll releases every membership held by a connection. The gateway calls
// this exactly once per connection, on disconnect.
func (s *ChatService) LeaveAll(connID string) {
	s.registry.LeaveAll(connID)
}

// History returns the conversation between the caller and a peer in
// ascending time order. The pair is derived from the authenticated caller,
// so a session can only ever read conversations it is part of.
func (s *ChatService) History(caller, peer string, cursor *string) ([]domain.Message, *string, error) {
	if caller == "" {
		return nil, nil, apperrors.ErrUnauthorized
	}
	return s.messageRepository.GetMessages(caller, peer, cursor)
}

// ListPeers answers "who can I message": every known username except the
// caller's own.
func (s *ChatService) ListPeers(caller string) ([]string, error) {
	usernames, err := s.userRepository.AllUsernames()
	if err != nil {
		return nil, err
	}
	return lo.Filter(usernames, func(name string, _ int) bool {
		return name != caller
	}), nil
}
