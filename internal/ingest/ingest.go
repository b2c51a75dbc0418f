// Package ingest turns uploaded files into tables or text for the chat.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PabloGalante/tabula/internal/table"
)

// Media types accepted by Process.
const (
	MediaTypeText = "text/plain"
	MediaTypeCSV  = "text/csv"
	MediaTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
	MediaTypeGIF  = "image/gif"
)

// ErrUnsupportedFileType is returned for media types Process cannot read.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Kind says what an upload produced.
type Kind string

const (
	KindText  Kind = "text"
	KindTable Kind = "table"
	KindImage Kind = "image"
)

// Result of processing one upload.
type Result struct {
	Name      string
	MediaType string
	Kind      Kind

	// Summary is the text handed to the chat: the decoded content for text
	// files, the analysis for tables, an acknowledgement for images.
	Summary string

	// Table is set for CSV and spreadsheet uploads.
	Table *table.Table
}

// DetectMediaType infers the media type from the file extension. Unknown
// extensions return "".
func DetectMediaType(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		return MediaTypeCSV
	case ".txt", ".md":
		return MediaTypeText
	case ".xlsx":
		return MediaTypeXLSX
	case ".jpg", ".jpeg":
		return MediaTypeJPEG
	case ".png":
		return MediaTypePNG
	case ".gif":
		return MediaTypeGIF
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			mt, _, _ := mime.ParseMediaType(t)
			return mt
		}
		return ""
	}
}

// Process reads r according to mediaType. Parameters on the media type
// ("text/csv; charset=utf-8") are ignored.
func Process(name, mediaType string, r io.Reader) (*Result, error) {
	mt := mediaType
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mt = parsed
	}

	switch mt {
	case MediaTypeText:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("read %s: %w: text is not valid UTF-8", name, ErrUnsupportedFileType)
		}
		return &Result{Name: name, MediaType: mt, Kind: KindText, Summary: string(data)}, nil

	case MediaTypeCSV:
		tbl, err := ReadCSV(r)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return &Result{Name: name, MediaType: mt, Kind: KindTable, Table: tbl, Summary: Summarize("CSV", name, tbl)}, nil

	case MediaTypeXLSX:
		tbl, err := ReadXLSX(r)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return &Result{Name: name, MediaType: mt, Kind: KindTable, Table: tbl, Summary: Summarize("XLSX", name, tbl)}, nil

	case MediaTypeJPEG, MediaTypePNG, MediaTypeGIF:
		return &Result{
			Name:      name,
			MediaType: mt,
			Kind:      KindImage,
			Summary:   fmt.Sprintf("이미지 파일이 업로드되었습니다: %s", name),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, mediaType)
	}
}

// ReadCSV parses a CSV stream whose first record is the header. A leading
// UTF-8 byte-order mark is skipped.
func ReadCSV(r io.Reader) (*table.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse csv: %w", table.ErrInvalidOperationInput)
	}
	return table.FromRecords(records[0], records[1:])
}

// Summarize describes a freshly loaded table: shape, column names, dtypes,
// head/tail preview and descriptive statistics.
func Summarize(label, name string, t *table.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s 파일 분석 결과 - %s:\n", label, name)
	fmt.Fprintf(&b, "- 행 수: %d\n", t.Len())
	fmt.Fprintf(&b, "- 열 수: %d\n", t.Width())
	fmt.Fprintf(&b, "- 컬럼명: %s\n", strings.Join(t.ColumnNames(), ", "))
	fmt.Fprintf(&b, "- 데이터 타입:\n%s\n\n", table.DTypes(t))
	fmt.Fprintf(&b, "첫 5행 미리보기:\n%s\n\n", table.Format(t.Head(5), 0))
	if t.Len() > 5 {
		fmt.Fprintf(&b, "마지막 5행 미리보기:\n%s\n\n", table.Format(t.Tail(5), 0))
	}
	fmt.Fprintf(&b, "기술통계:\n%s", table.Describe(t))
	return b.String()
}

// Descriptor is the one-line note kept in the session's uploaded-files list.
func (r *Result) Descriptor() string {
	switch r.Kind {
	case KindTable:
		return fmt.Sprintf("%s (%s, %d행 x %d열, 컬럼: %s)",
			r.Name, r.MediaType, r.Table.Len(), r.Table.Width(), strings.Join(r.Table.ColumnNames(), ", "))
	case KindText:
		return fmt.Sprintf("%s (%s, %d자)", r.Name, r.MediaType, utf8.RuneCountInString(r.Summary))
	default:
		return fmt.Sprintf("%s (%s)", r.Name, r.MediaType)
	}
}
