// Package domain contains core concepts of the chat system.
// This file defines the membership edge between chats and users.
package domain

// ChatParticipant is unique per (ChatID, UserID) and owned by its chat.
type ChatParticipant struct {
	ChatID string
	UserID string
}

// Edges expands a chat into its membership edges.
func (c Chat) Edges() []ChatParticipant {
	edges := make([]ChatParticipant, 0, len(c.Participants))
	for _, userID := range c.Participants {
		edges = append(edges, ChatParticipant{ChatID: c.ID, UserID: userID})
	}
	return edges
}
