package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PabloGalante/tabula/internal/adapters/llm"
	"github.com/PabloGalante/tabula/internal/domain"
	"github.com/PabloGalante/tabula/internal/interpreter"
	"github.com/PabloGalante/tabula/internal/observability"
	"github.com/PabloGalante/tabula/internal/table"
)

type SendMessageInput struct {
	SessionID domain.SessionID
	Text      string

	// OnDelta, when set, receives reply fragments as they stream in.
	OnDelta func(string)
}

// CommandResult is the table answer of a matched command.
type CommandResult struct {
	Rule      string
	Table     *table.Table
	Committed bool
	CSV       []byte
	Excel     []byte
}

type SendMessageOutput struct {
	UserMessage      *domain.Message
	AssistantMessage *domain.Message

	// Result is set when a table command answered the turn.
	Result *CommandResult

	// Err is the failure reported in AssistantMessage, if any.
	Err error
}

// SendMessage runs one turn. Command and completion failures become the
// assistant's reply; only session and storage problems are returned as
// errors.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is empty", domain.ErrInvalidArgument)
	}

	defer s.lock(in.SessionID)()

	session, err := s.sessionStore.GetSession(in.SessionID)
	if err != nil {
		return nil, err
	}

	ctx = observability.WithSessionID(ctx, string(session.ID))
	log := observability.LoggerFromContext(ctx).With("model", session.Model)
	log.Info("sending message", "chars", len(text))
	start := time.Now()

	userMsg, err := s.appendMessage(session.ID, domain.RoleUser, text, domain.ContentText)
	if err != nil {
		log.Error("failed to append user message", "error", err)
		return nil, err
	}
	out := &SendMessageOutput{UserMessage: userMsg}

	ws := s.workspace(session.ID)

	var (
		reply       string
		contentType = domain.ContentText
		command     string
	)

	res := s.interpreter.Interpret(ctx, ws.Dataset, text)
	switch res.Outcome {
	case interpreter.Matched:
		reply, contentType, command = res.Message, domain.ContentTableResult, res.Rule
		if res.Committed {
			ws.Pending = nil
		} else {
			ws.Pending = res.Table
		}
		out.Result = &CommandResult{Rule: res.Rule, Table: res.Table, Committed: res.Committed}
		if out.Result.CSV, out.Result.Excel, err = resultExports(res.Table); err != nil {
			log.Warn("failed to render result exports", "error", err)
		}

	case interpreter.Failed:
		reply, contentType, command = fmt.Sprintf(commandErrorFmt, res.Err), domain.ContentError, res.Rule
		out.Err = res.Err

	default:
		history, err := s.messageStore.GetMessagesBySession(session.ID, 0)
		if err != nil {
			log.Error("failed to load history", "error", err)
			return nil, err
		}
		reply, err = s.complete(ctx, log, session, llm.BuildMessages(history, promptContext(session, ws)), in.OnDelta)
		if err != nil {
			log.Error("completion failed", "error", err)
			reply, contentType = fmt.Sprintf(chatErrorFmt, err), domain.ContentError
			out.Err = fmt.Errorf("%w: %w", domain.ErrExternalCall, err)
		}
	}

	assistantMsg := &domain.Message{
		ID:          domain.MessageID(s.newID()),
		SessionID:   session.ID,
		Author:      domain.RoleAssistant,
		Text:        reply,
		CreatedAt:   s.now(),
		ContentType: contentType,
		Command:     command,
	}
	if err := s.messageStore.AppendMessage(assistantMsg); err != nil {
		log.Error("failed to append assistant message", "error", err)
		return nil, err
	}
	out.AssistantMessage = assistantMsg

	if session.Title == "" {
		session.Title = titleFrom(text)
	}
	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, err
	}

	log.Info("send message completed",
		"outcome", res.Outcome.String(),
		"command", command,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// complete calls the completion backend with the generation parameters of
// the session's model.
func (s *Service) complete(
	ctx context.Context,
	log *slog.Logger,
	session *domain.Session,
	msgs []domain.ChatMessage,
	onDelta func(string),
) (string, error) {
	caps := s.registry.Capabilities(session.Model)
	req := domain.CompletionRequest{
		Model:     session.Model,
		Messages:  msgs,
		MaxTokens: caps.MaxOutputTokens,
	}
	if caps.SupportsTemperature {
		temp := session.Temperature
		req.Temperature = &temp
	}

	log.Debug("calling completion backend",
		"max_tokens", req.MaxTokens,
		"streaming", caps.SupportsStreaming,
		"temperature_sent", req.Temperature != nil,
		"messages", len(msgs),
	)

	if !caps.SupportsStreaming {
		return s.completion.Complete(ctx, req)
	}

	var b strings.Builder
	for delta, err := range s.completion.Stream(ctx, req) {
		if err != nil {
			return "", err
		}
		b.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	return b.String(), nil
}
