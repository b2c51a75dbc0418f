package domain

import "time"

type SessionID string
type UserID string
type MessageID string

// Role is the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Content types carried on messages.
const (
	ContentText        = "text"
	ContentTableResult = "table_result" // answered by a table command
	ContentFileUpload  = "file_upload"
	ContentError       = "error"
)

type Timestamp = time.Time
