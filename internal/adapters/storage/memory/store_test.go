package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/tabula/internal/adapters/storage/memory"
	"github.com/PabloGalante/tabula/internal/domain"
)

func TestSessionStore_CRUD(t *testing.T) {
	s := memory.NewSessionStore()
	now := time.Now()

	sess := &domain.Session{ID: "s1", UserID: "u", CreatedAt: now, Model: "gpt-4o"}
	require.NoError(t, s.CreateSession(sess))
	require.ErrorIs(t, s.CreateSession(sess), domain.ErrSessionExists)

	got, err := s.GetSession("s1")
	require.NoError(t, err)
	got.Model = "o3"
	again, _ := s.GetSession("s1")
	assert.Equal(t, "gpt-4o", again.Model, "stored copy is not aliased")

	require.NoError(t, s.UpdateSession(got))
	again, _ = s.GetSession("s1")
	assert.Equal(t, "o3", again.Model)

	_, err = s.GetSession("missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.ErrorIs(t, s.UpdateSession(&domain.Session{ID: "missing"}), domain.ErrSessionNotFound)

	require.NoError(t, s.CreateSession(&domain.Session{ID: "s2", UserID: "u", CreatedAt: now.Add(time.Minute)}))
	list, err := s.ListSessionsByUser("u", 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.SessionID("s2"), list[0].ID)
}

func TestMessageStore_AppendLimitClear(t *testing.T) {
	s := memory.NewMessageStore()
	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, s.AppendMessage(&domain.Message{SessionID: "s", Text: text}))
	}

	last, err := s.GetMessagesBySession("s", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "b", last[0].Text)

	require.NoError(t, s.ClearMessages("s"))
	all, err := s.GetMessagesBySession("s", 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestWorkspaceStore(t *testing.T) {
	s := memory.NewWorkspaceStore()
	_, ok := s.GetWorkspace("s")
	assert.False(t, ok)

	ws := &domain.Workspace{}
	s.PutWorkspace("s", ws)
	got, ok := s.GetWorkspace("s")
	require.True(t, ok)
	assert.Same(t, ws, got)

	s.DeleteWorkspace("s")
	_, ok = s.GetWorkspace("s")
	assert.False(t, ok)
}
