package domain

import "time"

// Chat is a direct (two participants, no name) or group conversation.
// Participants is an unordered set of user ids.
type Chat struct {
	ID           string
	Name         string
	IsGroup      bool
	AdminID      string
	Avatar       string
	Participants []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether userID belongs to the chat.
func (c Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// DirectKey normalizes an unordered user pair. Two direct chats can never share a key.
func DirectKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

type ChatView struct {
	ID           string       `json:"id"`
	Name         string       `json:"name,omitempty"`
	IsGroup      bool         `json:"isGroup"`
	AdminID      string       `json:"adminId,omitempty"`
	Avatar       string       `json:"avatar,omitempty"`
	Participants []UserView   `json:"participants"`
	LastMessage  *MessageView `json:"lastMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}
