package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/PabloGalante/tabula/internal/adapters/llm"
	"github.com/PabloGalante/tabula/internal/domain"
	"github.com/PabloGalante/tabula/internal/interpreter"
	"github.com/PabloGalante/tabula/internal/models"
	"github.com/PabloGalante/tabula/internal/observability"
	"github.com/PabloGalante/tabula/internal/table"
)

const (
	defaultTitle    = "새 대화"
	titleMaxRunes   = 40
	maxTemperature  = 2.0
	commandErrorFmt = "데이터 처리 중 오류가 발생했습니다: %v"
	chatErrorFmt    = "AI 응답 생성 중 오류가 발생했습니다: %v"
)

// Options are the defaults applied to new sessions.
type Options struct {
	DefaultModel       string
	DefaultTemperature float64
}

// Service is the conversation orchestrator. Each instruction is offered to
// the table command interpreter first and goes to the completion backend
// only when no command matches.
type Service struct {
	completion   domain.CompletionClient
	sessionStore domain.SessionStore
	messageStore domain.MessageStore
	workspaces   domain.WorkspaceStore
	interpreter  *interpreter.Interpreter
	registry     *models.Registry
	opts         Options

	now   func() time.Time
	newID func() string

	// one turn at a time per session
	locks sync.Map // domain.SessionID -> *sync.Mutex
}

func NewService(
	completion domain.CompletionClient,
	sessionStore domain.SessionStore,
	messageStore domain.MessageStore,
	workspaces domain.WorkspaceStore,
	registry *models.Registry,
	opts Options,
) *Service {
	if registry == nil {
		registry = models.Default()
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = "gpt-3.5-turbo"
	}

	return &Service{
		completion:   completion,
		sessionStore: sessionStore,
		messageStore: messageStore,
		workspaces:   workspaces,
		interpreter:  interpreter.New(),
		registry:     registry,
		opts:         opts,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

func (s *Service) lock(id domain.SessionID) func() {
	m, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) workspace(id domain.SessionID) *domain.Workspace {
	if ws, ok := s.workspaces.GetWorkspace(id); ok {
		return ws
	}
	ws := &domain.Workspace{}
	s.workspaces.PutWorkspace(id, ws)
	return ws
}

// ─────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────

type StartSessionInput struct {
	UserID      domain.UserID
	Title       string
	Model       string
	Temperature *float64
}

type StartSessionOutput struct {
	Session *domain.Session
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	now := s.now()

	model := in.Model
	if model == "" {
		model = s.opts.DefaultModel
	}
	temp := s.opts.DefaultTemperature
	if in.Temperature != nil {
		temp = *in.Temperature
	}
	if err := validateTemperature(temp); err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"user_id", in.UserID,
		"model", model,
	)
	log.Info("starting new session")

	session := &domain.Session{
		ID:          domain.SessionID(s.newID()),
		UserID:      in.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Title:       in.Title,
		Model:       model,
		Temperature: temp,
	}

	if err := s.sessionStore.CreateSession(session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}
	s.workspaces.PutWorkspace(session.ID, &domain.Workspace{})

	log.Info("session started", "session_id", session.ID)

	return &StartSessionOutput{
		Session: session,
	}, nil
}

func (s *Service) GetSessionTimeline(
	ctx context.Context,
	sessionID domain.SessionID,
	limit int,
) (*domain.Session, []*domain.Message, error) {

	log := observability.LoggerFromContext(ctx).With(
		"session_id", sessionID,
		"limit", limit,
	)

	session, err := s.sessionStore.GetSession(sessionID)
	if err != nil {
		log.Error("failed to get session", "error", err)
		return nil, nil, err
	}

	msgs, err := s.messageStore.GetMessagesBySession(sessionID, limit)
	if err != nil {
		log.Error("failed to get messages", "error", err)
		return nil, nil, err
	}

	log.Info("fetched session timeline", "message_count", len(msgs))

	return session, msgs, nil
}

// ListSessions returns the user's sessions, newest first. limit <= 0
// returns all of them.
func (s *Service) ListSessions(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	log := observability.LoggerFromContext(ctx).With("user_id", userID)

	sessions, err := s.sessionStore.ListSessionsByUser(userID, limit)
	if err != nil {
		log.Error("failed to list sessions", "error", err)
		return nil, err
	}
	log.Info("listed sessions", "count", len(sessions))
	return sessions, nil
}

// SetModel changes the model and, when temperature is non-nil, the
// temperature used for later turns. Unknown model ids are accepted and run
// with the fallback capabilities.
func (s *Service) SetModel(ctx context.Context, sessionID domain.SessionID, model string, temperature *float64) (*domain.Session, error) {
	defer s.lock(sessionID)()

	model = strings.TrimSpace(model)
	if model == "" && temperature == nil {
		return nil, fmt.Errorf("%w: model or temperature is required", domain.ErrInvalidArgument)
	}
	if temperature != nil {
		if err := validateTemperature(*temperature); err != nil {
			return nil, err
		}
	}

	session, err := s.sessionStore.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With("session_id", sessionID)
	if model != "" {
		if _, known := s.registry.Lookup(model); !known {
			log.Warn("model not in catalogue, using fallback capabilities", "model", model)
		}
		session.Model = model
	}
	if temperature != nil {
		session.Temperature = *temperature
	}
	session.UpdatedAt = s.now()

	if err := s.sessionStore.UpdateSession(session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, err
	}
	log.Info("session settings changed", "model", session.Model, "temperature", session.Temperature)
	return session, nil
}

// ClearSession drops the transcript, the uploaded files and the active
// dataset. Model settings are kept.
func (s *Service) ClearSession(ctx context.Context, sessionID domain.SessionID) error {
	defer s.lock(sessionID)()

	log := observability.LoggerFromContext(ctx).With("session_id", sessionID)

	session, err := s.sessionStore.GetSession(sessionID)
	if err != nil {
		return err
	}
	if err := s.messageStore.ClearMessages(sessionID); err != nil {
		log.Error("failed to clear messages", "error", err)
		return err
	}
	s.workspaces.DeleteWorkspace(sessionID)

	session.UploadedFiles = nil
	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(session); err != nil {
		log.Error("failed to update session", "error", err)
		return err
	}

	log.Info("session cleared")
	return nil
}

// Models lists the catalogued models.
func (s *Service) Models() []models.Capability {
	return s.registry.All()
}

func validateTemperature(t float64) error {
	if t < 0 || t > maxTemperature {
		return fmt.Errorf("%w: temperature must be within [0, %.0f], got %g", domain.ErrInvalidArgument, maxTemperature, t)
	}
	return nil
}

func (s *Service) appendMessage(sessionID domain.SessionID, author domain.Role, text, contentType string) (*domain.Message, error) {
	msg := &domain.Message{
		ID:          domain.MessageID(s.newID()),
		SessionID:   sessionID,
		Author:      author,
		Text:        text,
		CreatedAt:   s.now(),
		ContentType: contentType,
	}
	if err := s.messageStore.AppendMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func titleFrom(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return defaultTitle
	}
	if utf8.RuneCountInString(text) <= titleMaxRunes {
		return text
	}
	r := []rune(text)
	return string(r[:titleMaxRunes]) + "…"
}

// promptContext gathers the file and table context for the chat path.
func promptContext(session *domain.Session, ws *domain.Workspace) llm.PromptContext {
	pc := llm.PromptContext{Files: session.UploadedFiles}
	if ws != nil && ws.Dataset != nil {
		pc.Table = ws.Dataset.Current()
	}
	return pc
}

// resultExports renders a command result in both download formats.
func resultExports(t *table.Table) (csv, xlsx []byte, err error) {
	if csv, err = table.WriteCSV(t); err != nil {
		return nil, nil, err
	}
	if xlsx, err = table.WriteXLSX(t); err != nil {
		return nil, nil, err
	}
	return csv, xlsx, nil
}
