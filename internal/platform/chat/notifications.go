package chat

// Notification is a typed gateway event. The ID is stamped by the
// adapter for log correlation.
type Notification interface {
	NotificationID() string
}

// ReactionAdded fires when a user reacts to a message.
type ReactionAdded struct {
	ID              string
	GuildID         string
	Emoji           string
	MessageID       string
	ChannelID       string
	ChannelName     string
	ChannelIsThread bool
	ParentID        string
	UserID          string
	UserName        string
	UserBot         bool
}

// ReactionRemoved fires when a user removes a reaction.
type ReactionRemoved struct {
	ID              string
	GuildID         string
	Emoji           string
	MessageID       string
	ChannelID       string
	ChannelName     string
	ChannelIsThread bool
	ParentID        string
	UserID          string
	UserName        string
	UserBot         bool
}

// ThreadCreated fires when a thread appears. NewlyCreated distinguishes
// fresh posts from threads surfacing out of archive.
type ThreadCreated struct {
	ID           string
	GuildID      string
	Thread       Thread
	NewlyCreated bool
}

// MemberRolesChanged fires when a member's role set changes. OldRoleIDs
// and NewRoleIDs are the full before/after sets.
type MemberRolesChanged struct {
	ID         string
	GuildID    string
	UserID     string
	UserName   string
	OldRoleIDs []string
	NewRoleIDs []string
}

// MessageCreated fires for every message the bot can see.
type MessageCreated struct {
	ID               string
	GuildID          string
	ChannelID        string
	ChannelName      string
	AuthorID         string
	AuthorName       string
	AuthorBot        bool
	Content          string
	MentionedRoleIDs []string
}

// CommandInvoked fires when an operator runs a registered command.
type CommandInvoked struct {
	ID            string
	GuildID       string
	InteractionID string
	Name          string
	InvokerID     string
	InvokerAdmin  bool
	TargetUserID  string
	TargetName    string
	Amount        int64
	AmountSet     bool
}

func (n ReactionAdded) NotificationID() string      { return n.ID }
func (n ReactionRemoved) NotificationID() string    { return n.ID }
func (n ThreadCreated) NotificationID() string      { return n.ID }
func (n MemberRolesChanged) NotificationID() string { return n.ID }
func (n MessageCreated) NotificationID() string     { return n.ID }
func (n CommandInvoked) NotificationID() string     { return n.ID }
