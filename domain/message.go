// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once persisted.
package domain

import (
	"fmt"
	"time"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageVideo    MessageType = "video"
	MessageAudio    MessageType = "audio"
	MessageDocument MessageType = "document"
	MessageVoice    MessageType = "voice"
)

var messageTypes = map[MessageType]struct{}{
	MessageText: {}, MessageImage: {}, MessageVideo: {},
	MessageAudio: {}, MessageDocument: {}, MessageVoice: {},
}

// ParseMessageType defaults to text when raw is empty.
func ParseMessageType(raw string) (MessageType, error) {
	if raw == "" {
		return MessageText, nil
	}
	t := MessageType(raw)
	if _, ok := messageTypes[t]; !ok {
		return "", fmt.Errorf("unknown message type %q", raw)
	}
	return t, nil
}

// IsFile reports whether the type carries a file payload.
func (t MessageType) IsFile() bool {
	return t != MessageText
}

// FileMeta references a file hosted elsewhere. URL is opaque to the core.
type FileMeta struct {
	URL  string `json:"fileUrl" validate:"required,max=2048"`
	Name string `json:"fileName,omitempty" validate:"max=255"`
	Size int64  `json:"fileSize,omitempty" validate:"gte=0"`
}

// Message represents an immutable chat event.
// Content is nil for a file payload without caption.
type Message struct {
	ID        string
	ChatID    string
	SenderID  string
	Content   *string
	Type      MessageType
	File      *FileMeta
	ReplyToID *string
	IsEdited  bool
	CreatedAt time.Time
}

// MessageRead is unique per (MessageID, UserID).
type MessageRead struct {
	MessageID string
	UserID    string
	ReadAt    time.Time
}

type ReadMark struct {
	UserID string    `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

type ReplyView struct {
	ID      string  `json:"id"`
	Content *string `json:"content"`
}

// MessageView is a message enriched for rendering.
type MessageView struct {
	ID        string      `json:"id"`
	ChatID    string      `json:"chatId"`
	SenderID  string      `json:"senderId"`
	Sender    SenderView  `json:"sender"`
	Content   *string     `json:"content"`
	Type      MessageType `json:"type"`
	*FileMeta
	ReplyToID *string    `json:"replyToId,omitempty"`
	ReplyTo   *ReplyView `json:"replyTo,omitempty"`
	IsEdited  bool       `json:"isEdited"`
	CreatedAt time.Time  `json:"createdAt"`
	Reads     []ReadMark `json:"reads"`
}
