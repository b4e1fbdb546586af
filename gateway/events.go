package gateway

import (
	"time"

	"texttalk/domain/event"
	apperrors "texttalk/errors"
)

// Wire events exchanged over the websocket. Inbound frames carry an "event"
// discriminator plus the fields of that event; outbound frames mirror the
// shape with a "data" payload.

const (
	eventJoinChat       = "join_chat"
	eventPrivateMessage = "private_message"
	eventNewMessage     = "new_message"
	eventError          = "error"
)

// displayTimeLayout is the locale-agnostic 24-hour form shown to clients.
// The store keeps full-precision instants; only the wire payload is
// truncated.
const displayTimeLayout = "15:04"

type inboundEvent struct {
	Event    string `json:"event"`
	Receiver string `json:"receiver,omitempty"`
	Message  string `json:"message,omitempty"`
}

type outboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type newMessagePayload struct {
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type errorPayload struct {
	Code   apperrors.WireCode `json:"code"`
	Detail string             `json:"detail,omitempty"`
}

func newMessageEvent(e event.MessageStored) outboundEvent {
	return outboundEvent{
		Event: eventNewMessage,
		Data: newMessagePayload{
			Sender:    e.Sender,
			Content:   e.Content,
			Timestamp: e.At.Format(displayTimeLayout),
		},
	}
}

func errorEvent(err error) outboundEvent {
	return outboundEvent{
		Event: eventError,
		Data: errorPayload{
			Code:   apperrors.MapToWireCode(err),
			Detail: err.Error(),
		},
	}
}

func formatTimestamp(t time.Time) string {
	return t.Format(displayTimeLayout)
}
