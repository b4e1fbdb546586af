//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"texttalk/domain"
	"texttalk/domain/event"
)

// EventSink is the delivery end of a live connection. Consume must never
// block the caller: implementations buffer internally and drop on
// backpressure.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry tracks which live connections are subscribed to which room.
// All operations are safe for concurrent use and never fail on valid input;
// an unknown room key behaves as an empty set.
type IRegistry interface {
	Join(connID string, roomKey domain.RoomKey, sink EventSink)
	Leave(connID string, roomKey domain.RoomKey)
	LeaveAll(connID string)
	SinksForRoom(roomKey domain.RoomKey) []EventSink
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
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
