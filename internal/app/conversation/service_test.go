package conversation_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/tabula/internal/adapters/llm"
	"github.com/PabloGalante/tabula/internal/adapters/storage/memory"
	"github.com/PabloGalante/tabula/internal/app/conversation"
	"github.com/PabloGalante/tabula/internal/domain"
	"github.com/PabloGalante/tabula/internal/table"
)

func TestStartSessionAndSendMessage(t *testing.T) {
	ctx := context.Background()

	llmClient := llm.NewMockLLM()
	sessionStore := memory.NewSessionStore()
	messageStore := memory.NewMessageStore()
	workspaces := memory.NewWorkspaceStore()

	svc := conversation.NewService(llmClient, sessionStore, messageStore, workspaces, nil, conversation.Options{
		DefaultTemperature: 0.7,
	})

	out, err := svc.StartSession(ctx, conversation.StartSessionInput{
		UserID: domain.UserID("test-user"),
		Title:  "Test session",
	})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if out.Session.ID == "" {
		t.Fatalf("expected session id, got empty")
	}
	if out.Session.Model != "gpt-3.5-turbo" {
		t.Fatalf("expected default model, got %q", out.Session.Model)
	}

	reply, err := svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: out.Session.ID,
		Text:      "안녕하세요",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if reply.AssistantMessage == nil || reply.AssistantMessage.Text == "" {
		t.Fatalf("expected non-empty assistant reply")
	}
	if reply.Result != nil {
		t.Fatalf("expected chat reply, got table command %q", reply.Result.Rule)
	}
}

// fakeClient records how it was called.
type fakeClient struct {
	mu    sync.Mutex
	calls []fakeCall
	reply string
	err   error
}

type fakeCall struct {
	streamed bool
	req      domain.CompletionRequest
}

func (f *fakeClient) record(streamed bool, req domain.CompletionRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{streamed: streamed, req: req})
}

func (f *fakeClient) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.record(false, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeClient) Stream(_ context.Context, req domain.CompletionRequest) iter.Seq2[string, error] {
	f.record(true, req)
	return func(yield func(string, error) bool) {
		if f.err != nil {
			yield("", f.err)
			return
		}
		for _, part := range strings.SplitAfter(f.reply, " ") {
			if !yield(part, nil) {
				return
			}
		}
	}
}

func (f *fakeClient) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

type fixture struct {
	svc     *conversation.Service
	client  *fakeClient
	session *domain.Session
}

func newFixture(t *testing.T, model string) *fixture {
	t.Helper()
	client := &fakeClient{reply: "평균 연봉은 107500 입니다."}
	svc := conversation.NewService(client,
		memory.NewSessionStore(), memory.NewMessageStore(), memory.NewWorkspaceStore(),
		nil, conversation.Options{DefaultTemperature: 0.7})

	out, err := svc.StartSession(context.Background(), conversation.StartSessionInput{UserID: "u", Model: model})
	require.NoError(t, err)
	return &fixture{svc: svc, client: client, session: out.Session}
}

func jobsCSV(n int) string {
	var b strings.Builder
	b.WriteString("job_title,salary\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "job-%02d,%d\n", i, 50000+i*5000)
	}
	return b.String()
}

func (f *fixture) upload(t *testing.T, rows int) *conversation.UploadFileOutput {
	t.Helper()
	out, err := f.svc.UploadFile(context.Background(), conversation.UploadFileInput{
		SessionID: f.session.ID,
		Name:      "jobs.csv",
		Body:      strings.NewReader(jobsCSV(rows)),
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) send(t *testing.T, text string) *conversation.SendMessageOutput {
	t.Helper()
	out, err := f.svc.SendMessage(context.Background(), conversation.SendMessageInput{
		SessionID: f.session.ID,
		Text:      text,
	})
	require.NoError(t, err)
	return out
}

func TestUploadFile_RegistersDataset(t *testing.T) {
	f := newFixture(t, "")

	up := f.upload(t, 20)
	assert.Equal(t, "csv", up.File.MediaType[len(up.File.MediaType)-3:])
	require.NotNil(t, up.Table)
	assert.Equal(t, 20, up.Table.Len())
	assert.Contains(t, up.Summary, "CSV 파일 분석 결과 - jobs.csv:")

	view, err := f.svc.Dataset(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, "jobs.csv", view.Name)
	assert.Equal(t, 20, view.Current.Len())

	sess, msgs, err := f.svc.GetSessionTimeline(context.Background(), f.session.ID, 0)
	require.NoError(t, err)
	require.Len(t, sess.UploadedFiles, 1)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.ContentFileUpload, msgs[0].ContentType)
}

func TestUploadFile_TextReachesPromptThroughTranscript(t *testing.T) {
	f := newFixture(t, "")

	up, err := f.svc.UploadFile(context.Background(), conversation.UploadFileInput{
		SessionID: f.session.ID,
		Name:      "notes.txt",
		Body:      strings.NewReader("분기 목표: 매출 10% 증가"),
	})
	require.NoError(t, err)
	assert.Nil(t, up.Table)
	assert.Equal(t, "text", up.File.Kind)

	_, err = f.svc.Dataset(context.Background(), f.session.ID)
	require.ErrorIs(t, err, domain.ErrNoDataset)

	f.send(t, "목표가 뭐였지?")
	calls := f.client.Calls()
	require.Len(t, calls, 1)
	var found bool
	for _, m := range calls[0].req.Messages {
		if m.Role == domain.RoleAssistant && m.Content == "분기 목표: 매출 10% 증가" {
			found = true
		}
	}
	assert.True(t, found, "uploaded text missing from prompt")
}

func TestListSessions(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	second, err := f.svc.StartSession(ctx, conversation.StartSessionInput{UserID: "u", Title: "second"})
	require.NoError(t, err)
	_, err = f.svc.StartSession(ctx, conversation.StartSessionInput{UserID: "other"})
	require.NoError(t, err)

	sessions, err := f.svc.ListSessions(ctx, "u", 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	ids := []domain.SessionID{sessions[0].ID, sessions[1].ID}
	assert.ElementsMatch(t, []domain.SessionID{f.session.ID, second.Session.ID}, ids)

	sessions, err = f.svc.ListSessions(ctx, "u", 1)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	sessions, err = f.svc.ListSessions(ctx, "nobody", 0)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestUploadFile_Unsupported(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.svc.UploadFile(context.Background(), conversation.UploadFileInput{
		SessionID: f.session.ID,
		Name:      "report.pdf",
		MediaType: "application/pdf",
		Body:      strings.NewReader("%PDF"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestSendMessage_CommandSkipsCompletion(t *testing.T) {
	f := newFixture(t, "")
	f.upload(t, 20)

	out := f.send(t, "상위 5개 데이터 보여줘")
	require.NotNil(t, out.Result)
	assert.Equal(t, "top", out.Result.Rule)
	assert.Equal(t, 5, out.Result.Table.Len())
	assert.False(t, out.Result.Committed)
	assert.True(t, bytes.HasPrefix(out.Result.CSV, []byte{0xEF, 0xBB, 0xBF}))
	assert.NotEmpty(t, out.Result.Excel)

	assert.Equal(t, "상위 5개 데이터를 보여드립니다:", out.AssistantMessage.Text)
	assert.Equal(t, domain.ContentTableResult, out.AssistantMessage.ContentType)
	assert.Equal(t, "top", out.AssistantMessage.Command)
	assert.Empty(t, f.client.Calls())

	view, err := f.svc.Dataset(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, view.Current.Len())
	require.NotNil(t, view.Pending)
	assert.Equal(t, []string{"상위 5개 데이터 조회"}, view.History)

	committed, err := f.svc.CommitPending(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, committed.Len())

	_, err = f.svc.CommitPending(context.Background(), f.session.ID)
	require.ErrorIs(t, err, domain.ErrNothingToCommit)
}

func TestSendMessage_CommittedCommandClearsPending(t *testing.T) {
	f := newFixture(t, "")
	f.upload(t, 20)

	f.send(t, "상위 5개 데이터 보여줘")
	out := f.send(t, "salary 100000 이상")
	require.NotNil(t, out.Result)
	assert.True(t, out.Result.Committed)

	view, err := f.svc.Dataset(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Pending)
	assert.Equal(t, 10, view.Current.Len())
}

func TestSendMessage_HelpLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, "")
	f.upload(t, 20)

	out := f.send(t, "이 데이터로 뭘 할 수 있어?")
	require.NotNil(t, out.Result)
	assert.Equal(t, "help", out.Result.Rule)
	assert.Equal(t, 5, out.Result.Table.Len())

	view, err := f.svc.Dataset(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Empty(t, view.History)
	assert.Equal(t, 20, view.Current.Len())
}

func TestSendMessage_CommandFailureBecomesReply(t *testing.T) {
	f := newFixture(t, "")
	f.upload(t, 3)

	out := f.send(t, "top 99999999999999999999")
	assert.Nil(t, out.Result)
	assert.True(t, strings.HasPrefix(out.AssistantMessage.Text, "데이터 처리 중 오류가 발생했습니다: "))
	assert.Equal(t, domain.ContentError, out.AssistantMessage.ContentType)
	assert.ErrorIs(t, out.Err, table.ErrInvalidOperationInput)
	assert.Empty(t, f.client.Calls())
}

func TestSendMessage_ChatPathAppendsContext(t *testing.T) {
	f := newFixture(t, "gpt-4o")
	f.upload(t, 3)

	var deltas []string
	out, err := f.svc.SendMessage(context.Background(), conversation.SendMessageInput{
		SessionID: f.session.ID,
		Text:      "평균 연봉이 얼마야?",
		OnDelta:   func(s string) { deltas = append(deltas, s) },
	})
	require.NoError(t, err)
	assert.Nil(t, out.Result)
	assert.Equal(t, "평균 연봉은 107500 입니다.", out.AssistantMessage.Text)
	assert.Equal(t, out.AssistantMessage.Text, strings.Join(deltas, ""))

	calls := f.client.Calls()
	require.Len(t, calls, 1)
	call := calls[0]
	assert.True(t, call.streamed)
	assert.Equal(t, "gpt-4o", call.req.Model)
	assert.Equal(t, 16384, call.req.MaxTokens)
	require.NotNil(t, call.req.Temperature)
	assert.Equal(t, 0.7, *call.req.Temperature)

	msgs := call.req.Messages
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Equal(t, llm.SystemPersona, msgs[0].Content)
	last := msgs[len(msgs)-1]
	assert.Equal(t, domain.RoleUser, last.Role)
	assert.True(t, strings.HasPrefix(last.Content, "평균 연봉이 얼마야?"))
	assert.Contains(t, last.Content, "업로드된 파일 정보:")
	assert.Contains(t, last.Content, "현재 편집 중인 데이터프레임 정보:")

	// the stored transcript keeps the bare text
	_, stored, err := f.svc.GetSessionTimeline(context.Background(), f.session.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "평균 연봉이 얼마야?", stored[len(stored)-2].Text)
}

func TestSendMessage_ModelCapabilities(t *testing.T) {
	cases := []struct {
		model     string
		streamed  bool
		maxTokens int
		withTemp  bool
	}{
		{"o3", false, 100000, false},
		{"o1-mini", false, 65536, false},
		{"gpt-3.5-turbo", true, 4096, true},
		{"my-finetune", true, 1000, true},
	}
	for _, tc := range cases {
		t.Run(tc.model, func(t *testing.T) {
			f := newFixture(t, tc.model)
			f.send(t, "안녕")

			calls := f.client.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tc.streamed, calls[0].streamed)
			assert.Equal(t, tc.maxTokens, calls[0].req.MaxTokens)
			assert.Equal(t, tc.withTemp, calls[0].req.Temperature != nil)
		})
	}
}

func TestSendMessage_CompletionFailureBecomesReply(t *testing.T) {
	f := newFixture(t, "")
	f.client.err = errors.New("upstream unavailable")

	out := f.send(t, "안녕")
	assert.Equal(t, "AI 응답 생성 중 오류가 발생했습니다: upstream unavailable", out.AssistantMessage.Text)
	assert.ErrorIs(t, out.Err, domain.ErrExternalCall)
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.svc.SendMessage(context.Background(), conversation.SendMessageInput{SessionID: f.session.ID, Text: "  "})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.svc.SendMessage(context.Background(), conversation.SendMessageInput{SessionID: "nope", Text: "hi"})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSendMessage_SetsTitleFromFirstMessage(t *testing.T) {
	f := newFixture(t, "")
	f.send(t, "연봉 데이터 분석을 도와줘")

	sess, _, err := f.svc.GetSessionTimeline(context.Background(), f.session.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "연봉 데이터 분석을 도와줘", sess.Title)
}

func TestSetModel(t *testing.T) {
	f := newFixture(t, "")

	temp := 0.2
	sess, err := f.svc.SetModel(context.Background(), f.session.ID, "o3", &temp)
	require.NoError(t, err)
	assert.Equal(t, "o3", sess.Model)
	assert.Equal(t, 0.2, sess.Temperature)

	bad := 3.0
	_, err = f.svc.SetModel(context.Background(), f.session.ID, "", &bad)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.svc.SetModel(context.Background(), f.session.ID, "", nil)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestClearSession(t *testing.T) {
	f := newFixture(t, "")
	f.upload(t, 5)
	f.send(t, "상위 2개")

	require.NoError(t, f.svc.ClearSession(context.Background(), f.session.ID))

	sess, msgs, err := f.svc.GetSessionTimeline(context.Background(), f.session.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Empty(t, sess.UploadedFiles)

	_, err = f.svc.Dataset(context.Background(), f.session.ID)
	require.ErrorIs(t, err, domain.ErrNoDataset)

	// without a dataset the same instruction goes to the chat backend
	out := f.send(t, "상위 2개")
	assert.Nil(t, out.Result)
	assert.Len(t, f.client.Calls(), 1)
}

func TestExport(t *testing.T) {
	f := newFixture(t, "")

	_, err := f.svc.Export(context.Background(), f.session.ID, "csv")
	require.ErrorIs(t, err, domain.ErrNoDataset)

	f.upload(t, 3)

	csv, err := f.svc.Export(context.Background(), f.session.ID, "csv")
	require.NoError(t, err)
	assert.Equal(t, "edited_jobs.csv", csv.FileName)
	assert.True(t, bytes.HasPrefix(csv.Data, []byte{0xEF, 0xBB, 0xBF}))

	xlsx, err := f.svc.Export(context.Background(), f.session.ID, "xlsx")
	require.NoError(t, err)
	assert.Equal(t, "edited_jobs.xlsx", xlsx.FileName)

	pq, err := f.svc.Export(context.Background(), f.session.ID, "parquet")
	require.NoError(t, err)
	assert.Equal(t, "edited_jobs.parquet", pq.FileName)
	assert.True(t, bytes.HasPrefix(pq.Data, []byte("PAR1")))

	_, err = f.svc.Export(context.Background(), f.session.ID, "pdf")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestExportFileName(t *testing.T) {
	assert.Equal(t, "edited_jobs.xlsx", conversation.ExportFileName("jobs.csv", "xlsx"))
	assert.Equal(t, "edited_data.csv", conversation.ExportFileName("", "csv"))
}
