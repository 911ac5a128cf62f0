package types

import (
	"time"
)

// Outbound message type constants. Every frame sent to a browser client
// carries one of these in its "type" field.
const (
	MessageTypeSystem         = "system"
	MessageTypeUserMessage    = "user_message"
	MessageTypeAvatarResponse = "avatar_response"
	MessageTypePresence       = "presence"
)

// Inbound message type constants.
const (
	InboundTypeChat         = "chat"
	InboundTypeUpdateAgents = "update_agents"
)

// Avatar animation actions. The model is told to pick one of these;
// anything else degrades to ActionNone.
const (
	ActionWave  = "wave"
	ActionDance = "dance"
	ActionLaugh = "laugh"
	ActionThink = "think"
	ActionJump  = "jump"
	ActionNone  = "none"
)

// Chat history roles.
const (
	RoleUser   = "user"
	RoleAvatar = "avatar"
)

// Inbound is the envelope for every frame a browser client sends.
// Type selects which fields are meaningful: "chat" uses UserID and Text,
// "update_agents" uses Agents.
type Inbound struct {
	Type   string        `json:"type"`
	UserID string        `json:"userId,omitempty"`
	Text   string        `json:"text,omitempty"`
	Agents []AgentRecord `json:"agents,omitempty"`
}

// AgentRecord is a cached social-feed persona rendered as a town avatar.
// The roster is fully replaced on each update_agents push; Permanent records
// survive the replace (the two guardian avatars are seeded this way).
type AgentRecord struct {
	Name        string   `json:"name"`
	Karma       int      `json:"karma"`
	RecentPosts []string `json:"recentPosts,omitempty"`
	Personality string   `json:"personality,omitempty"`
	Permanent   bool     `json:"permanent,omitempty"`
}

// SystemMessage is a notice, private or broadcast depending on the path.
type SystemMessage struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// UserMessage is a human chat line or a scripted command action line.
type UserMessage struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// AvatarResponse is an avatar reply. ReplyTo names the user being answered
// and is empty for chaos interjections and command reactions.
type AvatarResponse struct {
	Type      string    `json:"type"`
	Avatar    string    `json:"avatar"`
	Text      string    `json:"text"`
	Action    string    `json:"action"`
	ReplyTo   string    `json:"replyTo,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PresenceMessage is broadcast whenever room membership changes.
type PresenceMessage struct {
	Type      string    `json:"type"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatEntry is one line of the shared conversational context fed to the model.
type ChatEntry struct {
	Role string `json:"role"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// NewSystemMessage builds a system notice stamped with the given time.
func NewSystemMessage(text string, now time.Time) SystemMessage {
	return SystemMessage{Type: MessageTypeSystem, Text: text, Timestamp: now}
}

// NewUserMessage builds a user_message frame.
func NewUserMessage(userID, text string, now time.Time) UserMessage {
	return UserMessage{Type: MessageTypeUserMessage, UserID: userID, Text: text, Timestamp: now}
}

// NewPresenceMessage builds a presence frame.
func NewPresenceMessage(count int, now time.Time) PresenceMessage {
	return PresenceMessage{Type: MessageTypePresence, Count: count, Timestamp: now}
}

// NewAvatarResponse builds an avatar_response frame, normalizing unknown
// actions to "none".
func NewAvatarResponse(avatar, text, action, replyTo string, now time.Time) AvatarResponse {
	if !IsValidAction(action) {
		action = ActionNone
	}
	return AvatarResponse{
		Type:      MessageTypeAvatarResponse,
		Avatar:    avatar,
		Text:      text,
		Action:    action,
		ReplyTo:   replyTo,
		Timestamp: now,
	}
}
