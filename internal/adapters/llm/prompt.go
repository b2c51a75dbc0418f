package llm

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/tabula/internal/domain"
	"github.com/PabloGalante/tabula/internal/table"
)

// SystemPersona is prefixed to every outbound conversation. It is never
// stored in the visible transcript.
const SystemPersona = "당신은 도움이 되는 AI 어시스턴트입니다. 사용자의 질문에 친절하고 정확하게 답변해주세요. 한국어로 답변해주세요."

// tablePreviewRows is how many rows of the working table go into the prompt.
const tablePreviewRows = 10

// PromptContext is the session state appended to the last user turn.
type PromptContext struct {
	Files []domain.UploadedFile
	Table *table.Table
}

// BuildMessages turns the transcript into the outbound message list:
// persona first, then every user and assistant turn in order. File and
// table context is appended to the content of the last user turn.
func BuildMessages(history []*domain.Message, pc PromptContext) []domain.ChatMessage {
	msgs := make([]domain.ChatMessage, 0, len(history)+1)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: SystemPersona})

	lastUser := -1
	for _, m := range history {
		switch m.Author {
		case domain.RoleUser, domain.RoleAssistant:
		default:
			continue
		}
		if m.Author == domain.RoleUser {
			lastUser = len(msgs)
		}
		msgs = append(msgs, domain.ChatMessage{Role: m.Author, Content: m.Text})
	}

	if lastUser >= 0 {
		msgs[lastUser].Content += FileContext(pc.Files) + TableContext(pc.Table)
	}
	return msgs
}

// FileContext lists uploaded files. Empty when there are none.
func FileContext(files []domain.UploadedFile) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n업로드된 파일 정보:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- %s\n", f.Descriptor)
	}
	return b.String()
}

// TableContext describes the working table. Empty when t is nil.
func TableContext(t *table.Table) string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n현재 편집 중인 데이터프레임 정보:\n")
	fmt.Fprintf(&b, "- 행 수: %d\n", t.Len())
	fmt.Fprintf(&b, "- 열 수: %d\n", t.Width())
	fmt.Fprintf(&b, "- 컬럼명: %s\n", strings.Join(t.ColumnNames(), ", "))
	fmt.Fprintf(&b, "- 최근 편집된 데이터 (최대 %d행):\n%s\n", tablePreviewRows, table.Format(t, tablePreviewRows))
	return b.String()
}
