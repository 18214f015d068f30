package entity

import "time"

// Conversation is an AI chat thread, optionally scoped to one permit
type Conversation struct {
	ID        int64     `json:"id"`
	PermitID  *int64    `json:"permit_id,omitempty"`
	Title     string    `json:"title"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is one turn in a conversation
type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
