// Package privacy redacts user projections according to the owner's privacy settings.
package privacy

import (
	"chat-hub/domain"
)

// Filter returns the projection of user as seen by viewerID.
// A user always sees their own record in full. For anybody else, each
// protected field is shown when its level is empty or everyone, hidden when
// nobody, and shown to contacts only when the level is contacts. The
// credential hash is never part of a projection.
func Filter(user domain.User, viewerID string, isContact bool) domain.UserView {
	if user.ID == viewerID {
		return user.SelfView()
	}

	settings := user.Privacy
	view := domain.UserView{
		ID:       user.ID,
		Username: user.Username,
		Status:   user.Status,
	}
	if visible(settings.ShowEmail, isContact) {
		view.Email = user.Email
	}
	if visible(settings.ShowPhone, isContact) {
		view.Phone = user.Phone
	}
	if visible(settings.ShowLastSeen, isContact) && !user.LastSeen.IsZero() {
		lastSeen := user.LastSeen
		view.LastSeen = &lastSeen
	}
	if visible(settings.ShowAvatar, isContact) {
		view.Avatar = user.Avatar
	}
	if visible(settings.ShowBio, isContact) {
		view.Bio = user.Bio
	}
	return view
}

func visible(level domain.PrivacyLevel, isContact bool) bool {
	switch level {
	case domain.PrivacyNobody:
		return false
	case domain.PrivacyContacts:
		return isContact
	default:
		return true
	}
}
