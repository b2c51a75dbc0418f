package memory

import (
	"slices"
	"sync"

	"github.com/PabloGalante/tabula/internal/domain"
)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.SessionID]*domain.Session),
	}
}

func (s *SessionStore) CreateSession(session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return domain.ErrSessionExists
	}

	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *SessionStore) UpdateSession(session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		return domain.ErrSessionNotFound
	}

	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *SessionStore) GetSession(id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	return cloneSession(sess), nil
}

// ListSessionsByUser returns the user's sessions, newest first.
func (s *SessionStore) ListSessionsByUser(userID domain.UserID, limit int) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			result = append(result, cloneSession(sess))
		}
	}
	slices.SortFunc(result, func(a, b *domain.Session) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// cloneSession keeps callers from mutating stored sessions in place.
func cloneSession(s *domain.Session) *domain.Session {
	c := *s
	c.UploadedFiles = slices.Clone(s.UploadedFiles)
	return &c
}
