package websocket

import "github.com/davidem/duochat/models"

const (
	EventNewMessage  = "new_message"
	EventMessageRead = "message_read"
	EventError       = "error"
)

type MessageEvent struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
}

type ReadEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewMessageEvent(msg *models.Message) MessageEvent {
	return MessageEvent{Type: EventNewMessage, Message: msg}
}

func NewReadEvent(messageID string) ReadEvent {
	return ReadEvent{Type: EventMessageRead, MessageID: messageID}
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message}
}
