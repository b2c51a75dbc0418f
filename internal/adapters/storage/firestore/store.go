package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/tabula/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (TABULA_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) messagesCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("messages")
}

func (s *Store) messageDoc(sessionID domain.SessionID, msgID domain.MessageID) *firestore.DocumentRef {
	return s.messagesCol(sessionID).Doc(string(msgID))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	UserID        string            `firestore:"user_id"`
	Title         string            `firestore:"title"`
	Model         string            `firestore:"model"`
	Temperature   float64           `firestore:"temperature"`
	UploadedFiles []uploadedFileDoc `firestore:"uploaded_files"`
	CreatedAt     time.Time         `firestore:"created_at"`
	UpdatedAt     time.Time         `firestore:"updated_at"`
}

type uploadedFileDoc struct {
	Name       string    `firestore:"name"`
	MediaType  string    `firestore:"media_type"`
	Kind       string    `firestore:"kind"`
	Descriptor string    `firestore:"descriptor"`
	UploadedAt time.Time `firestore:"uploaded_at"`
}

type messageDoc struct {
	SessionID   string    `firestore:"session_id"`
	Author      string    `firestore:"author"`
	Text        string    `firestore:"text"`
	CreatedAt   time.Time `firestore:"created_at"`
	ContentType string    `firestore:"content_type"`
	Command     string    `firestore:"command,omitempty"`
}

func toSessionDoc(session *domain.Session) sessionDoc {
	files := make([]uploadedFileDoc, len(session.UploadedFiles))
	for i, f := range session.UploadedFiles {
		files[i] = uploadedFileDoc(f)
	}
	return sessionDoc{
		UserID:        string(session.UserID),
		Title:         session.Title,
		Model:         session.Model,
		Temperature:   session.Temperature,
		UploadedFiles: files,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}
}

func (d sessionDoc) toDomain(id domain.SessionID) *domain.Session {
	files := make([]domain.UploadedFile, len(d.UploadedFiles))
	for i, f := range d.UploadedFiles {
		files[i] = domain.UploadedFile(f)
	}
	return &domain.Session{
		ID:            id,
		UserID:        domain.UserID(d.UserID),
		Title:         d.Title,
		Model:         d.Model,
		Temperature:   d.Temperature,
		UploadedFiles: files,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(session *domain.Session) error {
	ctx := context.Background()

	_, err := s.sessionDoc(session.ID).Create(ctx, toSessionDoc(session))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(session *domain.Session) error {
	ctx := context.Background()

	// Set without merge replaces uploaded_files wholesale.
	_, err := s.sessionDoc(session.ID).Set(ctx, toSessionDoc(session))
	if err != nil {
		return fmt.Errorf("firestore UpdateSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(id domain.SessionID) (*domain.Session, error) {
	ctx := context.Background()

	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	return doc.toDomain(id), nil
}

func (s *Store) ListSessionsByUser(userID domain.UserID, limit int) ([]*domain.Session, error) {
	ctx := context.Background()

	q := s.sessionsCol().Where("user_id", "==", string(userID)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListSessionsByUser: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}

		out = append(out, doc.toDomain(domain.SessionID(snap.Ref.ID)))
	}
	return out, nil
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(msg *domain.Message) error {
	ctx := context.Background()

	doc := messageDoc{
		SessionID:   string(msg.SessionID),
		Author:      string(msg.Author),
		Text:        msg.Text,
		CreatedAt:   msg.CreatedAt,
		ContentType: msg.ContentType,
		Command:     msg.Command,
	}

	_, err := s.messageDoc(msg.SessionID, msg.ID).Set(ctx, doc)
	if err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

// GetMessagesBySession returns the session's messages oldest first. A
// positive limit keeps only the most recent ones.
func (s *Store) GetMessagesBySession(sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	ctx := context.Background()

	q := s.messagesCol(sessionID).OrderBy("created_at", firestore.Asc)
	if limit > 0 {
		q = q.LimitToLast(limit)
	}

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore GetMessagesBySession: %w", err)
	}

	out := make([]*domain.Message, 0, len(docs))
	for _, snap := range docs {
		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, &domain.Message{
			ID:          domain.MessageID(snap.Ref.ID),
			SessionID:   sessionID,
			Author:      domain.Role(doc.Author),
			Text:        doc.Text,
			CreatedAt:   doc.CreatedAt,
			ContentType: doc.ContentType,
			Command:     doc.Command,
		})
	}
	return out, nil
}

// ClearMessages deletes every message of the session in bulk.
func (s *Store) ClearMessages(sessionID domain.SessionID) error {
	ctx := context.Background()

	refs, err := s.messagesCol(sessionID).DocumentRefs(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("firestore ClearMessages list: %w", err)
	}
	if len(refs) == 0 {
		return nil
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return fmt.Errorf("firestore ClearMessages enqueue: %w", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("firestore ClearMessages: %w", err)
		}
	}
	return nil
}
