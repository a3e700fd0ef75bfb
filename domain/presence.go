package domain

import "time"

// PresenceUpdate is a status transition waiting to be written.
// LastSeen is only set when the user goes offline.
type PresenceUpdate struct {
	UserID   string
	Status   UserStatus
	LastSeen *time.Time
}

func Online(userID string) PresenceUpdate {
	return PresenceUpdate{UserID: userID, Status: StatusOnline}
}

func Away(userID string) PresenceUpdate {
	return PresenceUpdate{UserID: userID, Status: StatusAway}
}

func Offline(userID string, at time.Time) PresenceUpdate {
	return PresenceUpdate{UserID: userID, Status: StatusOffline, LastSeen: &at}
}
