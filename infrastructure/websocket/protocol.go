// Package websocket carries the real-time protocol over gorilla/websocket.
//
// Every inbound frame is a request with a correlation id and gets exactly one
// ack. Server pushes carry no id.
package websocket

import (
	"bytes"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	EventListChats       = "list-chats"
	EventGetChat         = "get-chat"
	EventCreateChat      = "create-chat"
	EventListMessages    = "list-messages"
	EventSubscribeChat   = "subscribe-chat"
	EventUnsubscribeChat = "unsubscribe-chat"
	EventSendMessage     = "send-message"
	EventMarkRead        = "mark-read"
	EventGetReaders      = "get-readers"
	EventTyping          = "typing"
	EventStopTyping      = "stop-typing"
	EventSearchUsers     = "search-users"
	EventUpdateProfile   = "update-profile"
	EventUpdatePrivacy   = "update-privacy"

	ackEvent = "ack"
)

// aliases accepts the event names of earlier clients.
var aliases = map[string]string{
	"get-chats":    EventListChats,
	"get-messages": EventListMessages,
	"join-chat":    EventSubscribeChat,
	"leave-chat":   EventUnsubscribeChat,
}

var validate = validator.New()

type Request struct {
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Ack struct {
	ID    string    `json:"id"`
	Event string    `json:"event"`
	OK    bool      `json:"ok"`
	Data  any       `json:"data,omitempty"`
	Error *AckError `json:"error,omitempty"`
}

type Push struct {
	Event event.Name `json:"event"`
	Data  any        `json:"data"`
}

func okAck(id string, data any) Ack {
	return Ack{ID: id, Event: ackEvent, OK: true, Data: data}
}

func errorAck(id string, err error) Ack {
	return Ack{
		ID:    id,
		Event: ackEvent,
		Error: &AckError{Code: errors.Code(err), Message: errors.Message(err)},
	}
}

func push(e event.Event) Push {
	return Push{Event: e.Name(), Data: e.Payload()}
}

type chatRef struct {
	ChatID string `json:"chatId" validate:"required"`
}

type createChatPayload struct {
	IsGroup        bool     `json:"isGroup"`
	Name           string   `json:"name" validate:"max=100"`
	ParticipantID  string   `json:"participantId"`
	ParticipantIDs []string `json:"participantIds" validate:"dive,required"`
	Participants   []string `json:"participants" validate:"dive,required"`
}

type sendMessagePayload struct {
	ChatID    string  `json:"chatId" validate:"required"`
	Content   *string `json:"content"`
	Type      string  `json:"type"`
	FileURL   string  `json:"fileUrl"`
	FileName  string  `json:"fileName"`
	FileSize  int64   `json:"fileSize"`
	ReplyToID *string `json:"replyToId"`
	ReplyTo   *string `json:"replyTo"`
}

func (p sendMessagePayload) command(senderID string) domain.PostMessageCommand {
	cmd := domain.PostMessageCommand{
		ChatID:    p.ChatID,
		SenderID:  senderID,
		Content:   p.Content,
		Type:      domain.MessageType(p.Type),
		ReplyToID: p.ReplyToID,
	}
	if cmd.ReplyToID == nil {
		cmd.ReplyToID = p.ReplyTo
	}
	if p.FileURL != "" || p.FileName != "" {
		cmd.File = &domain.FileMeta{URL: p.FileURL, Name: p.FileName, Size: p.FileSize}
	}
	return cmd
}

type markReadPayload struct {
	MessageID string `json:"messageId" validate:"required"`
}

type readersPayload struct {
	MessageID string `json:"messageId" validate:"required"`
}

type searchPayload struct {
	Query string `json:"query"`
}

type profilePayload struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	Phone    *string `json:"phone"`
	Avatar   *string `json:"avatar"`
}

type privacyPayload struct {
	PrivacySettings domain.PrivacySettings `json:"privacySettings"`
}

// decode unmarshals data into v and validates it. Missing data decodes as
// an empty object.
func decode(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Invalid(fmt.Errorf("malformed data: %v", err))
	}
	if err := validate.Struct(v); err != nil {
		return errors.Invalid(err)
	}
	return nil
}

// decodeChatRef accepts either {"chatId": "..."} or a bare JSON string.
func decodeChatRef(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		if id == "" {
			return "", errors.Invalid(fmt.Errorf("chatId is required"))
		}
		return id, nil
	}
	var ref chatRef
	if err := decode(data, &ref); err != nil {
		return "", err
	}
	return ref.ChatID, nil
}
