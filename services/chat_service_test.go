package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"texttalk/domain"
	"texttalk/domain/event"
	apperrors "texttalk/errors"
	"texttalk/mocks"
	"texttalk/observability"
	"texttalk/runtime"
)

const testMaxContentLength = 2048

func storedMessage(sender, receiver, content string) domain.Message {
	return domain.Message{
		ID:        uuid.New(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func TestChatService_SendMessage_Delivers_To_All_Members_Including_Sender(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := runtime.NewRegistry()
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	monitoring := observability.NewMonitoringManager()
	svc := NewChatService(log, registry, mockMessages, mocks.NewMockIUserRepository(ctrl), monitoring, testMaxContentLength)

	aliceSink := mocks.NewMockEventSink(ctrl)
	bobSink := mocks.NewMockEventSink(ctrl)
	svc.JoinRoom("conn-alice", "alice", "bob", aliceSink)
	svc.JoinRoom("conn-bob", "bob", "alice", bobSink)

	mockMessages.EXPECT().
		StoreMessage("alice", "bob", "hi").
		Return(storedMessage("alice", "bob", "hi"), nil).
		Times(1)

	var delivered []event.MessageStored
	consume := func(_ context.Context, e event.DomainEvent) error {
		delivered = append(delivered, e.(event.MessageStored))
		return nil
	}
	// Sender included: multi-tab consistency
	aliceSink.EXPECT().Consume(gomock.Any(), gomock.Any()).DoAndReturn(consume).Times(1)
	bobSink.EXPECT().Consume(gomock.Any(), gomock.Any()).DoAndReturn(consume).Times(1)

	message, err := svc.SendMessage(context.Background(), "alice", "bob", "hi")

	req.NoError(err)
	req.Equal("hi", message.Content)
	req.Len(delivered, 2)
	for _, e := range delivered {
		req.Equal("alice", e.Sender)
		req.Equal("hi", e.Content)
	}
}

func TestChatService_SendMessage_Does_Not_Require_Sender_Join(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := runtime.NewRegistry()
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewChatService(log, registry, mockMessages, mocks.NewMockIUserRepository(ctrl), observability.NewMonitoringManager(), testMaxContentLength)

	// Only bob joined the room; alice sends without joining
	bobSink := mocks.NewMockEventSink(ctrl)
	svc.JoinRoom("conn-bob", "bob", "alice", bobSink)

	mockMessages.EXPECT().
		StoreMessage("alice", "bob", "hi").
		Return(storedMessage("alice", "bob", "hi"), nil).
		Times(1)
	bobSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	_, err := svc.SendMessage(context.Background(), "alice", "bob", "hi")
	req.NoError(err)
}

func TestChatService_SendMessage_Rejects_Empty_Content(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := runtime.NewRegistry()
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewChatService(log, registry, mockMessages, mocks.NewMockIUserRepository(ctrl), observability.NewMonitoringManager(), testMaxContentLength)

	bobSink := mocks.NewMockEventSink(ctrl)
	svc.JoinRoom("conn-bob", "bob", "alice", bobSink)

	// Nothing stored, nothing broadcast
	mockMessages.EXPECT().StoreMessage(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	bobSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.SendMessage(context.Background(), "alice", "bob", "")
	req.ErrorIs(err, apperrors.ErrEmptyMessage)
}

func TestChatService_SendMessage_Rejects_Oversized_Content(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewChatService(log, runtime.NewRegistry(), mockMessages, mocks.NewMockIUserRepository(ctrl), observability.NewMonitoringManager(), 4)

	mockMessages.EXPECT().StoreMessage(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.SendMessage(context.Background(), "alice", "bob", "way too long")
	req.ErrorIs(err, apperrors.ErrMessageTooLong)
}

func TestChatService_SendMessage_Store_Failure_Aborts_Broadcast(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := runtime.NewRegistry()
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewChatService(log, registry, mockMessages, mocks.NewMockIUserRepository(ctrl), observability.NewMonitoringManager(), testMaxContentLength)

	bobSink := mocks.NewMockEventSink(ctrl)
	svc.JoinRoom("conn-bob", "bob", "alice", bobSink)

	mockMessages.EXPECT().
		StoreMessage("alice", "bob", "hi").
		Return(domain.Message{}, apperrors.ErrStoreUnavailable).
		Times(1)
	// Zero members receive anything
	bobSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.SendMessage(context.Background(), "alice", "bob", "hi")
	req.ErrorIs(err, apperrors.ErrStoreUnavailable)
}

func TestChatService_SendMessage_Failed_Member_Does_Not_Abort_Others(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := runtime.NewRegistry()
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	monitoring := observability.NewMonitoringManager()
	svc := NewChatService(log, registry, mockMessages, mocks.NewMockIUserRepository(ctrl), monitoring, testMaxContentLength)

	aliceSink := mocks.NewMockEventSink(ctrl)
	bobSink := mocks.NewMockEventSink(ctrl)
	svc.JoinRoom("conn-alice", "alice", "bob", aliceSink)
	svc.JoinRoom("conn-bob", "bob", "alice", bobSink)

	mockMessages.EXPECT().
		StoreMessage("alice", "bob", "hi").
		Return(storedMessage("alice", "bob", "hi"), nil).
		Times(1)

	// One member's buffer is full: its delivery is dropped silently while
	// the other member still receives the message, and the sender sees no error.
	aliceSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(context.DeadlineExceeded).Times(1)
	bobSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	_, err := svc.SendMessage(context.Background(), "alice", "bob", "hi")

	req.NoError(err)
	req.Equal(uint64(1), monitoring.Snapshot().DroppedDeliveries)
	req.Equal(uint64(1), monitoring.Snapshot().Deliveries)
}

func TestChatService_LeaveAll_Stops_Deliveries(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := runtime.NewRegistry()
	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewChatService(log, registry, mockMessages, mocks.NewMockIUserRepository(ctrl), observability.NewMonitoringManager(), testMaxContentLength)

	bobSink := mocks.NewMockEventSink(ctrl)
	svc.JoinRoom("conn-bob", "bob", "alice", bobSink)
	svc.LeaveAll("conn-bob")

	mockMessages.EXPECT().
		StoreMessage("alice", "bob", "hi").
		Return(storedMessage("alice", "bob", "hi"), nil).
		Times(1)
	bobSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.SendMessage(context.Background(), "alice", "bob", "hi")
	req.NoError(err)
}

func TestChatService_History_Requires_Caller_Identity(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMessages := mocks.NewMockIMessageRepository(ctrl)
	svc := NewChatService(log, runtime.NewRegistry(), mockMessages, mocks.NewMockIUserRepository(ctrl), observability.NewMonitoringManager(), testMaxContentLength)

	mockMessages.EXPECT().GetMessages(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, _, err := svc.History("", "bob", nil)
	req.ErrorIs(err, apperrors.ErrUnauthorized)
}

func TestChatService_ListPeers_Excludes_Caller(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockUsers := mocks.NewMockIUserRepository(ctrl)
	svc := NewChatService(log, runtime.NewRegistry(), mocks.NewMockIMessageRepository(ctrl), mockUsers, observability.NewMonitoringManager(), testMaxContentLength)

	mockUsers.EXPECT().
		AllUsernames().
		Return([]string{"alice", "bob", "carol"}, nil).
		Times(1)

	peers, err := svc.ListPeers("alice")

	req.NoError(err)
	req.ElementsMatch([]string{"bob", "carol"}, peers)
}
