package conversation

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/PabloGalante/tabula/internal/domain"
	"github.com/PabloGalante/tabula/internal/ingest"
	"github.com/PabloGalante/tabula/internal/observability"
	"github.com/PabloGalante/tabula/internal/table"
)

type UploadFileInput struct {
	SessionID domain.SessionID
	Name      string
	// MediaType may be empty; it is then derived from the file name.
	MediaType string
	Body      io.Reader
}

type UploadFileOutput struct {
	File    domain.UploadedFile
	Summary string
	// Table is set when the file became the session's dataset.
	Table *table.Table
}

// UploadFile ingests a file into the session. A table upload replaces the
// active dataset and discards any pending result.
func (s *Service) UploadFile(ctx context.Context, in UploadFileInput) (*UploadFileOutput, error) {
	defer s.lock(in.SessionID)()

	session, err := s.sessionStore.GetSession(in.SessionID)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(in.Name)
	mediaType := in.MediaType
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = ingest.DetectMediaType(name)
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", session.ID,
		"file", name,
		"media_type", mediaType,
	)
	log.Info("ingesting file")

	res, err := ingest.Process(name, mediaType, in.Body)
	if err != nil {
		log.Warn("ingestion failed", "error", err)
		return nil, err
	}

	// Text and image uploads reach the model through the transcript entry
	// appended below.
	if res.Kind == ingest.KindTable {
		ws := s.workspace(session.ID)
		ws.Dataset = table.NewStore(name, res.Table)
		ws.Pending = nil
	}

	file := domain.UploadedFile{
		Name:       name,
		MediaType:  res.MediaType,
		Kind:       string(res.Kind),
		Descriptor: res.Descriptor(),
		UploadedAt: s.now(),
	}
	session.UploadedFiles = append(session.UploadedFiles, file)
	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, err
	}

	// The analysis becomes part of the transcript so later chat turns can
	// refer to it.
	if _, err := s.appendMessage(session.ID, domain.RoleAssistant, res.Summary, domain.ContentFileUpload); err != nil {
		log.Error("failed to append upload message", "error", err)
		return nil, err
	}

	log.Info("file ingested", "kind", res.Kind)
	return &UploadFileOutput{File: file, Summary: res.Summary, Table: res.Table}, nil
}

// DatasetView is a snapshot of the session's dataset.
type DatasetView struct {
	Name    string
	Summary string
	History []string
	Current *table.Table
	Pending *table.Table
}

func (s *Service) Dataset(ctx context.Context, sessionID domain.SessionID) (*DatasetView, error) {
	defer s.lock(sessionID)()

	if _, err := s.sessionStore.GetSession(sessionID); err != nil {
		return nil, err
	}
	ws, ok := s.workspaces.GetWorkspace(sessionID)
	if !ok || ws.Dataset == nil {
		return nil, domain.ErrNoDataset
	}

	return &DatasetView{
		Name:    ws.Dataset.Name(),
		Summary: ws.Dataset.Summarize(),
		History: ws.Dataset.History(),
		Current: ws.Dataset.Current(),
		Pending: ws.Pending,
	}, nil
}

// CommitPending makes the last view-style result the working table.
func (s *Service) CommitPending(ctx context.Context, sessionID domain.SessionID) (*table.Table, error) {
	defer s.lock(sessionID)()

	if _, err := s.sessionStore.GetSession(sessionID); err != nil {
		return nil, err
	}
	ws, ok := s.workspaces.GetWorkspace(sessionID)
	if !ok || ws.Dataset == nil {
		return nil, domain.ErrNoDataset
	}
	if ws.Pending == nil {
		return nil, domain.ErrNothingToCommit
	}

	ws.Dataset.Commit(ws.Pending)
	ws.Pending = nil

	observability.LoggerFromContext(ctx).Info("pending result committed",
		"session_id", sessionID,
		"rows", ws.Dataset.Current().Len(),
	)
	return ws.Dataset.Current(), nil
}

// Export formats.
const (
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
	FormatParquet = "parquet"
)

type ExportOutput struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Export serialises the working table as csv, xlsx or parquet.
func (s *Service) Export(ctx context.Context, sessionID domain.SessionID, format string) (*ExportOutput, error) {
	defer s.lock(sessionID)()

	if _, err := s.sessionStore.GetSession(sessionID); err != nil {
		return nil, err
	}
	ws, ok := s.workspaces.GetWorkspace(sessionID)
	if !ok || ws.Dataset == nil {
		return nil, domain.ErrNoDataset
	}

	var (
		data        []byte
		contentType string
		err         error
	)
	switch format = strings.ToLower(format); format {
	case FormatCSV, "":
		format = FormatCSV
		data, err = ws.Dataset.ExportCSV()
		contentType = "text/csv; charset=utf-8"
	case FormatXLSX, "excel":
		format = FormatXLSX
		data, err = ws.Dataset.ExportExcel()
		contentType = ingest.MediaTypeXLSX
	case FormatParquet:
		data, err = ws.Dataset.ExportParquet()
		contentType = "application/vnd.apache.parquet"
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidArgument, format)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}

	observability.LoggerFromContext(ctx).Info("dataset exported",
		"session_id", sessionID,
		"format", format,
		"bytes", len(data),
	)
	return &ExportOutput{
		FileName:    ExportFileName(ws.Dataset.Name(), format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// ExportFileName is "edited_<stem>.<ext>".
func ExportFileName(name, ext string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = "data"
	}
	return "edited_" + stem + "." + ext
}
