package domain

import "time"

// ChatLog records one question/answer exchange.
type ChatLog struct {
	ID        int64     `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	SessionID string    `json:"sessionId" db:"session_id"`
	Message   string    `json:"message"   db:"message"`
	Response  string    `json:"response"  db:"response"`
	ModelUsed string    `json:"modelUsed" db:"model_used"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ChatSession groups chat logs of a user under a name.
type ChatSession struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Name      string    `json:"name"      db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ChatReply is what the chat endpoint returns to the caller.
type ChatReply struct {
	Response         string     `json:"response"`
	RelatedQuestions []string   `json:"relatedQuestions"`
	ModelUsed        ProviderID `json:"-"`
	InScope          bool       `json:"-"`
}
