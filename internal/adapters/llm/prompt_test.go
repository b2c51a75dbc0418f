package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/tabula/internal/adapters/llm"
	"github.com/PabloGalante/tabula/internal/domain"
	"github.com/PabloGalante/tabula/internal/table"
)

func TestBuildMessages_PersonaAndOrder(t *testing.T) {
	history := []*domain.Message{
		{Author: domain.RoleUser, Text: "안녕"},
		{Author: domain.RoleAssistant, Text: "안녕하세요"},
		{Author: domain.RoleUser, Text: "평균 연봉은?"},
	}

	msgs := llm.BuildMessages(history, llm.PromptContext{})
	require.Len(t, msgs, 4)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Equal(t, llm.SystemPersona, msgs[0].Content)
	assert.Equal(t, "안녕", msgs[1].Content)
	assert.Equal(t, domain.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "평균 연봉은?", msgs[3].Content)

	assert.Equal(t, "평균 연봉은?", history[2].Text, "history is not modified")
}

func TestBuildMessages_AppendsContextToLastUserTurn(t *testing.T) {
	tbl, err := table.FromRecords([]string{"job_title", "salary"}, [][]string{{"AI Engineer", "120000"}})
	require.NoError(t, err)

	history := []*domain.Message{
		{Author: domain.RoleUser, Text: "요약해줘"},
		{Author: domain.RoleAssistant, Text: "무엇을요?"},
	}
	msgs := llm.BuildMessages(history, llm.PromptContext{
		Files: []domain.UploadedFile{{Name: "jobs.csv", Descriptor: "jobs.csv (text/csv, 1행 x 2열)"}},
		Table: tbl,
	})

	user := msgs[1].Content
	assert.Contains(t, user, "요약해줘\n\n업로드된 파일 정보:\n- jobs.csv (text/csv, 1행 x 2열)")
	assert.Contains(t, user, "현재 편집 중인 데이터프레임 정보:")
	assert.Contains(t, user, "- 행 수: 1")
	assert.Contains(t, user, "- 컬럼명: job_title, salary")
	assert.Contains(t, user, "AI Engineer")
	assert.Equal(t, "무엇을요?", msgs[2].Content)
}

func TestContextBuilders_EmptyInputs(t *testing.T) {
	assert.Empty(t, llm.FileContext(nil))
	assert.Empty(t, llm.TableContext(nil))
}
