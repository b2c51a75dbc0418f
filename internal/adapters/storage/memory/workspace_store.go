package memory

import (
	"sync"

	"github.com/PabloGalante/tabula/internal/domain"
)

// WorkspaceStore keeps session workspaces in process memory. Tables are
// never persisted, whatever backend holds sessions and messages.
type WorkspaceStore struct {
	mu         sync.RWMutex
	workspaces map[domain.SessionID]*domain.Workspace
}

func NewWorkspaceStore() *WorkspaceStore {
	return &WorkspaceStore{
		workspaces: make(map[domain.SessionID]*domain.Workspace),
	}
}

func (s *WorkspaceStore) GetWorkspace(id domain.SessionID) (*domain.Workspace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[id]
	return ws, ok
}

func (s *WorkspaceStore) PutWorkspace(id domain.SessionID, ws *domain.Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workspaces[id] = ws
}

func (s *WorkspaceStore) DeleteWorkspace(id domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.workspaces, id)
}
