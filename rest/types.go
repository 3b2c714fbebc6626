// Package rest
package rest

// ChatPayload is the body of the fallback send endpoint.
type ChatPayload struct {
	SenderID   int    `json:"senderId"`
	ReceiverID int    `json:"receiverId"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
}

// MessageDetails is one stored message in a conversation history.
type MessageDetails struct {
	ID         int    `json:"id"`
	SenderID   int    `json:"senderId"`
	ReceiverID int    `json:"receiverId"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	IsRead     bool   `json:"isRead"`
	SentByMe   bool   `json:"isSentByMe"`
}

// ArtistInfo is the provider profile attached to artist contacts.
type ArtistInfo struct {
	ID       int    `json:"id"`
	FullName string `json:"fullName"`
}

// Contact is the peer metadata returned with a history fetch.
type Contact struct {
	ID       int         `json:"id"`
	Username string      `json:"username"`
	Avatar   *string     `json:"avatar"`
	IsArtist bool        `json:"isArtist"`
	Artist   *ArtistInfo `json:"artist"`
}

// DisplayName prefers the artist's full name over the account name.
func (c *Contact) DisplayName() string {
	if c.IsArtist && c.Artist != nil && c.Artist.FullName != "" {
		return c.Artist.FullName
	}
	return c.Username
}

// History is the full message history for one conversation.
type History struct {
	CurrentUserID    int              `json:"currentUserId"`
	ReceiverID       int              `json:"receiverId"`
	ReceiverUserName string           `json:"receiverUserName"`
	Messages         []MessageDetails `json:"messages"`
	Contact          Contact          `json:"contact"`
}

// Conversation is one entry of the conversation list, with a preview
// of the last message.
type Conversation struct {
	ID              int         `json:"id"`
	Username        string      `json:"username"`
	Avatar          *string     `json:"avatar"`
	LastMessage     *string     `json:"lastMessage"`
	LastMessageDate *string     `json:"lastMessageDate"`
	UnreadCount     int         `json:"unreadCount"`
	IsArtist        bool        `json:"isArtist"`
	Artist          *ArtistInfo `json:"artist"`
}

// DisplayName prefers the artist's full name over the account name.
func (c *Conversation) DisplayName() string {
	if c.IsArtist && c.Artist != nil && c.Artist.FullName != "" {
		return c.Artist.FullName
	}
	return c.Username
}
