package models

import "time"

// DefaultDescription is the description of a conversation before its first answer
const DefaultDescription = "New conversation"

// Role identifies the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IndexMeta represents the vector_store_meta.json structure for a snapshot
type IndexMeta struct {
	SourcePath string `json:"source_path"`
}

// ConversationMeta represents the conv_meta.json structure for a session
type ConversationMeta struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description"`
}

// Message is one entry of a conversation history
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Passage is a piece of indexed text returned by retrieval
type Passage struct {
	Source   string  `json:"source"`
	Location string  `json:"location,omitempty"`
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
}
