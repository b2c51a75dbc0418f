package httpadapter

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/PabloGalante/tabula/internal/app/conversation"
	"github.com/PabloGalante/tabula/internal/domain"
	"github.com/PabloGalante/tabula/internal/ingest"
	"github.com/PabloGalante/tabula/internal/models"
	"github.com/PabloGalante/tabula/internal/observability"
	"github.com/PabloGalante/tabula/internal/table"
)

const defaultUserID = "anonymous"

type Server struct {
	svc            *conversation.Service
	maxUploadBytes int64
}

// NewServer builds the JSON API. Uploads larger than maxUploadBytes are
// rejected with 413.
func NewServer(svc *conversation.Service, maxUploadBytes int64) http.Handler {
	s := &Server{svc: svc, maxUploadBytes: maxUploadBytes}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /models", s.handleModels)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /users/{user}/sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /sessions/{id}/messages", s.handleSendMessage)
	mux.HandleFunc("POST /sessions/{id}/files", s.handleUploadFile)
	mux.HandleFunc("POST /sessions/{id}/clear", s.handleClearSession)
	mux.HandleFunc("PUT /sessions/{id}/model", s.handleSetModel)

	mux.HandleFunc("GET /sessions/{id}/dataset", s.handleGetDataset)
	mux.HandleFunc("POST /sessions/{id}/dataset/commit", s.handleCommit)
	mux.HandleFunc("GET /sessions/{id}/dataset/export", s.handleExport)

	return chainMiddlewares(mux, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	UserID      string   `json:"user_id,omitempty"`
	Title       string   `json:"title,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type setModelRequest struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type uploadedFileResponse struct {
	Name       string    `json:"name"`
	MediaType  string    `json:"media_type"`
	Kind       string    `json:"kind"`
	Descriptor string    `json:"descriptor"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type sessionResponse struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Title         string                 `json:"title"`
	Model         string                 `json:"model"`
	Temperature   float64                `json:"temperature"`
	UploadedFiles []uploadedFileResponse `json:"uploaded_files"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type messageResponse struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	ContentType string    `json:"content_type"`
	Command     string    `json:"command,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type commandResultResponse struct {
	Rule      string       `json:"rule"`
	Committed bool         `json:"committed"`
	Table     *table.Table `json:"table"`
}

type sendMessageResponse struct {
	UserMessage      messageResponse        `json:"user_message"`
	AssistantMessage messageResponse        `json:"assistant_message"`
	Result           *commandResultResponse `json:"result,omitempty"`
	Error            string                 `json:"error,omitempty"`
}

type getSessionResponse struct {
	Session  sessionResponse   `json:"session"`
	Messages []messageResponse `json:"messages"`
}

type uploadFileResponse struct {
	File    uploadedFileResponse `json:"file"`
	Summary string               `json:"summary"`
	Table   *table.Table         `json:"table,omitempty"`
}

type datasetResponse struct {
	Name    string       `json:"name"`
	Summary string       `json:"summary"`
	History []string     `json:"history"`
	Current *table.Table `json:"current"`
	Pending *table.Table `json:"pending,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type modelsResponse struct {
	Models []models.Capability `json:"models"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, modelsResponse{Models: s.svc.Models()})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	out, err := s.svc.StartSession(r.Context(), conversation.StartSessionInput{
		UserID:      domain.UserID(req.UserID),
		Title:       req.Title,
		Model:       req.Model,
		Temperature: req.Temperature,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(out.Session))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sessions, err := s.svc.ListSessions(r.Context(), domain.UserID(r.PathValue("user")), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, msgs, err := s.svc.GetSessionTimeline(r.Context(), sessionID(r), 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{
		Session:  toSessionResponse(session),
		Messages: toMessagesResponse(msgs),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionID(r),
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := sendMessageResponse{
		UserMessage:      toMessageResponse(out.UserMessage),
		AssistantMessage: toMessageResponse(out.AssistantMessage),
	}
	if out.Result != nil {
		resp.Result = &commandResultResponse{
			Rule:      out.Result.Rule,
			Committed: out.Result.Committed,
			Table:     out.Result.Table,
		}
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadBytes {
		s.uploadTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.uploadTooLarge(w)
			return
		}
		badRequest(w, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	out, err := s.svc.UploadFile(r.Context(), conversation.UploadFileInput{
		SessionID: sessionID(r),
		Name:      header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Body:      file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, uploadFileResponse{
		File:    toUploadedFileResponse(out.File),
		Summary: out.Summary,
		Table:   out.Table,
	})
}

func (s *Server) uploadTooLarge(w http.ResponseWriter) {
	writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
		"error": "file exceeds " + strconv.FormatInt(s.maxUploadBytes>>20, 10) + "MB",
	})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearSession(r.Context(), sessionID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var req setModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	session, err := s.svc.SetModel(r.Context(), sessionID(r), req.Model, req.Temperature)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Dataset(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	history := view.History
	if history == nil {
		history = []string{}
	}

	writeJSON(w, http.StatusOK, datasetResponse{
		Name:    view.Name,
		Summary: view.Summary,
		History: history,
		Current: view.Current,
		Pending: view.Pending,
	})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	current, err := s.svc.CommitPending(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*table.Table{"current": current})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Export(r.Context(), sessionID(r), r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func sessionID(r *http.Request) domain.SessionID {
	return domain.SessionID(r.PathValue("id"))
}

func toSessionResponse(s *domain.Session) sessionResponse {
	files := make([]uploadedFileResponse, 0, len(s.UploadedFiles))
	for _, f := range s.UploadedFiles {
		files = append(files, toUploadedFileResponse(f))
	}
	return sessionResponse{
		ID:            string(s.ID),
		UserID:        string(s.UserID),
		Title:         s.Title,
		Model:         s.Model,
		Temperature:   s.Temperature,
		UploadedFiles: files,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toUploadedFileResponse(f domain.UploadedFile) uploadedFileResponse {
	return uploadedFileResponse{
		Name:       f.Name,
		MediaType:  f.MediaType,
		Kind:       f.Kind,
		Descriptor: f.Descriptor,
		UploadedAt: f.UploadedAt,
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:          string(m.ID),
		SessionID:   string(m.SessionID),
		Author:      string(m.Author),
		Text:        m.Text,
		ContentType: m.ContentType,
		Command:     m.Command,
		CreatedAt:   m.CreatedAt,
	}
}

func toMessagesResponse(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, table.ErrInvalidOperationInput),
		errors.Is(err, table.ErrColumnNotFound):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrNoDataset),
		errors.Is(err, domain.ErrNothingToCommit),
		errors.Is(err, domain.ErrSessionExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
		writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
