package services

import (
	"chat-hub/domain"
	"chat-hub/privacy"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

// participantViews projects the participants of a chat for viewerID.
// Participants share a chat with the viewer, so contacts-only fields are visible.
func participantViews(ids []string, users map[string]domain.User, viewerID string, includeViewer bool) []domain.UserView {
	views := make([]domain.UserView, 0, len(ids))
	for _, id := range ids {
		if id == viewerID && !includeViewer {
			continue
		}
		user, ok := users[id]
		if !ok {
			continue
		}
		views = append(views, privacy.Filter(user, viewerID, true))
	}
	return views
}

func senderView(id string, users map[string]domain.User) domain.SenderView {
	if user, ok := users[id]; ok {
		return user.SenderView()
	}
	return domain.SenderView{ID: id}
}

func messageView(m domain.Message, users map[string]domain.User, reply *domain.Message, reads []domain.ReadMark) domain.MessageView {
	view := domain.MessageView{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Sender:    senderView(m.SenderID, users),
		Content:   m.Content,
		Type:      m.Type,
		FileMeta:  m.File,
		ReplyToID: m.ReplyToID,
		IsEdited:  m.IsEdited,
		CreatedAt: m.CreatedAt,
		Reads:     lo.Ternary(reads == nil, []domain.ReadMark{}, reads),
	}
	if reply != nil {
		view.ReplyTo = &domain.ReplyView{ID: reply.ID, Content: reply.Content}
	}
	return view
}

func chatView(chat domain.Chat, users map[string]domain.User, viewerID string, includeViewer bool, last *domain.MessageView) domain.ChatView {
	return domain.ChatView{
		ID:           chat.ID,
		Name:         chat.Name,
		IsGroup:      chat.IsGroup,
		AdminID:      chat.AdminID,
		Avatar:       chat.Avatar,
		Participants: participantViews(chat.Participants, users, viewerID, includeViewer),
		LastMessage:  last,
		CreatedAt:    chat.CreatedAt,
		UpdatedAt:    chat.UpdatedAt,
	}
}

// missingUsers returns the ids that the lookup did not resolve.
func missingUsers(ids []string, users map[string]domain.User) []string {
	return lo.Filter(ids, func(id string, _ int) bool {
		_, ok := users[id]
		return !ok
	})
}
