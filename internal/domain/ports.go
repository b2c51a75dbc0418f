package domain

import (
	"context"
	"iter"
)

// ChatMessage is one entry of the outbound message list.
type ChatMessage struct {
	Role    Role
	Content string
}

// CompletionRequest carries everything a completion backend needs.
type CompletionRequest struct {
	Model     string
	Messages  []ChatMessage
	MaxTokens int
	// Temperature is nil for models that reject the parameter.
	Temperature *float64
}

// CompletionClient defines how the core application talks to a text
// generation service.
type CompletionClient interface {
	// Complete returns the whole reply at once.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Stream yields reply fragments in order. A non-nil error ends the
	// sequence.
	Stream(ctx context.Context, req CompletionRequest) iter.Seq2[string, error]
}

// SessionStore defines session's persistence
type SessionStore interface {
	CreateSession(session *Session) error
	UpdateSession(session *Session) error
	GetSession(id SessionID) (*Session, error)
	ListSessionsByUser(userID UserID, limit int) ([]*Session, error)
}

// MessageStore defines message's persistence
type MessageStore interface {
	AppendMessage(msg *Message) error
	GetMessagesBySession(sessionID SessionID, limit int) ([]*Message, error)
	ClearMessages(sessionID SessionID) error
}

// WorkspaceStore keeps the table state of live sessions.
type WorkspaceStore interface {
	GetWorkspace(id SessionID) (*Workspace, bool)
	PutWorkspace(id SessionID, ws *Workspace)
	DeleteWorkspace(id SessionID)
}
