// Package domain contains core concepts of the chat system.
// This file defines User entities and their wire projections.
// No runtime, network, or storage logic should be added here.
package domain

import "time"

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
	StatusAway    UserStatus = "away"
)

type PrivacyLevel string

const (
	PrivacyEveryone PrivacyLevel = "everyone"
	PrivacyContacts PrivacyLevel = "contacts"
	PrivacyNobody   PrivacyLevel = "nobody"
)

// PrivacySettings controls which profile fields other users can see.
// An empty level behaves like PrivacyEveryone.
type PrivacySettings struct {
	ShowEmail    PrivacyLevel `json:"showEmail,omitempty" validate:"omitempty,oneof=everyone contacts nobody"`
	ShowPhone    PrivacyLevel `json:"showPhone,omitempty" validate:"omitempty,oneof=everyone contacts nobody"`
	ShowLastSeen PrivacyLevel `json:"showLastSeen,omitempty" validate:"omitempty,oneof=everyone contacts nobody"`
	ShowAvatar   PrivacyLevel `json:"showAvatar,omitempty" validate:"omitempty,oneof=everyone contacts nobody"`
	ShowBio      PrivacyLevel `json:"showBio,omitempty" validate:"omitempty,oneof=everyone contacts nobody"`
}

// User is the canonical account record shared by every store.
// PasswordHash never leaves the repositories and services layers.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Avatar       string
	Status       UserStatus
	LastSeen     time.Time
	Bio          string
	Phone        string
	Privacy      PrivacySettings
	CreatedAt    time.Time
}

// ProfileUpdate carries the optional fields of an update-profile request.
// A nil field is left untouched.
type ProfileUpdate struct {
	Username *string
	Bio      *string
	Phone    *string
	Avatar   *string
}

// UserView is the projection sent to clients. It has no credential field.
type UserView struct {
	ID       string           `json:"id"`
	Username string           `json:"username"`
	Email    string           `json:"email,omitempty"`
	Avatar   string           `json:"avatar"`
	Status   UserStatus       `json:"status"`
	LastSeen *time.Time       `json:"lastSeen,omitempty"`
	Bio      string           `json:"bio,omitempty"`
	Phone    string           `json:"phone,omitempty"`
	Privacy  *PrivacySettings `json:"privacySettings,omitempty"`
}

// SenderView is the reduced user projection attached to messages.
type SenderView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// SelfView returns the unfiltered projection a user gets of their own record.
func (u User) SelfView() UserView {
	lastSeen := u.LastSeen
	privacy := u.Privacy
	return UserView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
		Status:   u.Status,
		LastSeen: &lastSeen,
		Bio:      u.Bio,
		Phone:    u.Phone,
		Privacy:  &privacy,
	}
}

func (u User) SenderView() SenderView {
	return SenderView{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}
