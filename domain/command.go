package domain

// PostMessageCommand is the validated intent of a send-message request.
type PostMessageCommand struct {
	ChatID    string
	SenderID  string
	Content   *string
	Type      MessageType
	File      *FileMeta
	ReplyToID *string
}

// CreateGroupCommand creates a new group chat administered by CreatorID.
type CreateGroupCommand struct {
	CreatorID string   `validate:"required"`
	Name      string   `validate:"required,min=1,max=100"`
	MemberIDs []string `validate:"dive,required"`
}
