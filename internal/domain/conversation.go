package domain

// Message is one turn of a session's visible transcript.
type Message struct {
	ID        MessageID
	SessionID SessionID
	Author    Role
	Text      string
	CreatedAt Timestamp

	ContentType string
	// Command is the table command that produced an assistant turn, if any.
	Command string
}

// Session holds the per-conversation settings and upload list.
type Session struct {
	ID        SessionID
	UserID    UserID
	CreatedAt Timestamp
	UpdatedAt Timestamp

	Title       string
	Model       string
	Temperature float64

	UploadedFiles []UploadedFile
}

// UploadedFile is the metadata kept for each file added to a session.
type UploadedFile struct {
	Name       string
	MediaType  string
	Kind       string
	Descriptor string
	UploadedAt Timestamp
}
