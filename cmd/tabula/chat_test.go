package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/tabula/internal/config"
	"github.com/PabloGalante/tabula/internal/table"
)

func newTestREPL(t *testing.T, script string) (*repl, *bytes.Buffer) {
	t.Helper()
	svc, cleanup, err := buildService(context.Background(), &config.Config{
		LLMProvider:        config.ProviderMock,
		StorageBackend:     config.StorageMemory,
		DefaultModel:       "gpt-3.5-turbo",
		DefaultTemperature: 0.7,
	})
	require.NoError(t, err)
	t.Cleanup(cleanup)

	var out bytes.Buffer
	r, err := newREPL(context.Background(), svc, strings.NewReader(script), &out)
	require.NoError(t, err)
	return r, &out
}

func TestREPL_Session(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "jobs.csv")
	require.NoError(t, os.WriteFile(csvPath,
		[]byte("job_title,salary\nengineer,90000\ndesigner,70000\nanalyst,80000\n"), 0o644))
	exportPath := filepath.Join(dir, "out.csv")

	script := strings.Join([]string{
		"/load " + csvPath,
		"상위 2개",
		"/commit",
		"/info",
		"/export csv " + exportPath,
		"/model o3 0.2",
		"안녕",
		"/sessions",
		"/bogus",
		"/quit",
		"never reached",
	}, "\n")

	r, out := newTestREPL(t, script)
	require.NoError(t, r.run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "jobs.csv 업로드 완료")
	assert.Contains(t, got, "CSV 파일 분석 결과 - jobs.csv:")
	assert.Contains(t, got, "상위 2개 데이터를 보여드립니다:")
	assert.Contains(t, got, "engineer")
	assert.Contains(t, got, "조회 결과를 적용했습니다. 현재 2행 x 2열")
	assert.Contains(t, got, "상위 2개 데이터 조회")
	assert.Contains(t, got, "모델: o3, temperature: 0.2")
	assert.Contains(t, got, "요청하신 내용을 확인했습니다")
	assert.Contains(t, got, "* "+string(r.session.ID))
	assert.Contains(t, got, "상위 2개")
	assert.Contains(t, got, "알 수 없는 명령어: /bogus")
	assert.NotContains(t, got, "never reached")

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "job_title,salary")
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestREPL_ErrorsAreReported(t *testing.T) {
	r, out := newTestREPL(t, "/commit\n/load\n/load /does/not/exist.csv\n/model\n")
	require.NoError(t, r.run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "오류: no dataset loaded")
	assert.Contains(t, got, "사용법: /load <파일>")
	assert.Contains(t, got, "사용법: /model <모델> [temperature]")
}

func TestRenderTable(t *testing.T) {
	tbl, err := table.FromRecords([]string{"name", "score"}, [][]string{
		{"a", "1"}, {"b", "2"}, {"c", "3"},
	})
	require.NoError(t, err)

	got := renderTable(tbl, 2)
	assert.Contains(t, got, "name")
	assert.Contains(t, got, "score")
	assert.Contains(t, got, "b")
	assert.NotContains(t, got, " c ")
	assert.Contains(t, got, "외 1행 (총 3행)")
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TABULA_MODE", "")
	t.Setenv("TABULA_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_APIKEY", "")
	t.Setenv("TABULA_STORAGE_BACKEND", "")
	t.Setenv("TABULA_TEMPERATURE", "")
	t.Setenv("TABULA_MAX_UPLOAD_MB", "")

	cmd := newRootCommand()
	require.NoError(t, cmd.PersistentFlags().Set("provider", "mock"))
	require.NoError(t, cmd.PersistentFlags().Set("model", "gpt-4o"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderMock, cfg.LLMProvider)
	assert.Equal(t, "gpt-4o", cfg.DefaultModel)

	require.NoError(t, cmd.PersistentFlags().Set("provider", "openai"))
	_, err = loadConfig(cmd)
	require.ErrorContains(t, err, "OPENAI_API_KEY")
}
