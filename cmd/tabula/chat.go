package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/tabula/internal/app/conversation"
	"github.com/PabloGalante/tabula/internal/domain"
	"github.com/PabloGalante/tabula/internal/observability"
)

const replHelp = `명령어:
  /load <파일>                  CSV, XLSX, 텍스트 또는 이미지 파일 업로드
  /export [csv|xlsx|parquet] [경로]  현재 데이터 저장
  /commit                       마지막 조회 결과를 현재 데이터로 적용
  /info                         현재 데이터 요약과 작업 기록
  /models                       사용 가능한 모델 목록
  /model <모델> [temperature]    모델 변경
  /sessions                     이 사용자의 대화 목록
  /clear                        대화와 데이터 초기화
  /quit                         종료
그 밖의 입력은 데이터 명령 또는 AI 대화로 처리됩니다.`

func newChatCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// keep the transcript clean
			observability.Setup(os.Stderr, "warn", "text")

			ctx := cmd.Context()
			svc, cleanup, err := buildService(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			r, err := newREPL(ctx, svc, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if file != "" {
				r.load(ctx, file)
			}
			return r.run(ctx)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "file to load before the first prompt")
	return cmd
}

type repl struct {
	svc     *conversation.Service
	session *domain.Session
	in      *bufio.Scanner
	out     io.Writer
}

func newREPL(ctx context.Context, svc *conversation.Service, in io.Reader, out io.Writer) (*repl, error) {
	started, err := svc.StartSession(ctx, conversation.StartSessionInput{UserID: "local"})
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &repl{svc: svc, session: started.Session, in: sc, out: out}, nil
}

func (r *repl) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) run(ctx context.Context) error {
	r.printf("%s (model: %s, /help 로 명령어 보기)\n", assistantStyle.Render("tabula"), r.session.Model)

	for {
		r.printf("%s ", promptStyle.Render("you>"))
		if !r.in.Scan() {
			r.printf("\n")
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.command(ctx, line); quit {
				return nil
			}
			continue
		}
		r.send(ctx, line)
	}
}

// command runs a slash command and reports whether the loop should end.
func (r *repl) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return true
	case "/help":
		r.printf("%s\n", replHelp)
	case "/load":
		if len(args) == 0 {
			r.fail(errors.New("사용법: /load <파일>"))
			return false
		}
		r.load(ctx, strings.Join(args, " "))
	case "/export":
		r.export(ctx, args)
	case "/commit":
		current, err := r.svc.CommitPending(ctx, r.session.ID)
		if err != nil {
			r.fail(err)
			return false
		}
		r.ok(fmt.Sprintf("조회 결과를 적용했습니다. 현재 %d행 x %d열", current.Len(), current.Width()))
	case "/info":
		view, err := r.svc.Dataset(ctx, r.session.ID)
		if err != nil {
			r.fail(err)
			return false
		}
		r.printf("%s\n", view.Summary)
		if view.Pending != nil {
			r.printf("%s\n", dimStyle.Render(fmt.Sprintf("적용 대기 중인 결과: %d행 (/commit 으로 적용)", view.Pending.Len())))
		}
	case "/models":
		r.printf("%s\n", renderModels(r.svc.Models(), r.session.Model))
	case "/model":
		r.setModel(ctx, args)
	case "/sessions":
		sessions, err := r.svc.ListSessions(ctx, r.session.UserID, 0)
		if err != nil {
			r.fail(err)
			return false
		}
		for _, sess := range sessions {
			marker := " "
			if sess.ID == r.session.ID {
				marker = "*"
			}
			title := sess.Title
			if title == "" {
				title = dimStyle.Render("(제목 없음)")
			}
			r.printf("%s %s  %s  %s\n", marker, sess.ID, sess.CreatedAt.Format("2006-01-02 15:04"), title)
		}
	case "/clear":
		if err := r.svc.ClearSession(ctx, r.session.ID); err != nil {
			r.fail(err)
			return false
		}
		r.ok("대화와 데이터를 초기화했습니다.")
	default:
		r.fail(fmt.Errorf("알 수 없는 명령어: %s (/help 참고)", name))
	}
	return false
}

func (r *repl) send(ctx context.Context, text string) {
	r.printf("%s ", assistantStyle.Render("tabula>"))
	streamed := false
	out, err := r.svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: r.session.ID,
		Text:      text,
		OnDelta: func(delta string) {
			streamed = true
			r.printf("%s", delta)
		},
	})
	if err != nil {
		r.printf("\n")
		r.fail(err)
		return
	}

	msg := out.AssistantMessage
	switch {
	case msg.ContentType == domain.ContentError:
		if streamed {
			r.printf("\n")
		}
		r.printf("%s\n", errorStyle.Render(msg.Text))
	case streamed:
		r.printf("\n")
	default:
		r.printf("%s\n", msg.Text)
	}

	if out.Result != nil {
		r.printf("%s\n", renderTable(out.Result.Table, previewRows))
		if !out.Result.Committed && out.Result.Rule != "help" {
			r.printf("%s\n", dimStyle.Render("/commit 으로 이 결과를 현재 데이터에 적용할 수 있습니다."))
		}
	}
}

func (r *repl) load(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		r.fail(err)
		return
	}
	defer f.Close()

	out, err := r.svc.UploadFile(ctx, conversation.UploadFileInput{
		SessionID: r.session.ID,
		Name:      filepath.Base(path),
		Body:      f,
	})
	if err != nil {
		r.fail(err)
		return
	}
	r.ok(fmt.Sprintf("%s 업로드 완료", out.File.Name))
	r.printf("%s\n", out.Summary)
}

func (r *repl) export(ctx context.Context, args []string) {
	format := conversation.FormatCSV
	if len(args) > 0 {
		format = args[0]
	}
	out, err := r.svc.Export(ctx, r.session.ID, format)
	if err != nil {
		r.fail(err)
		return
	}

	path := out.FileName
	if len(args) > 1 {
		path = args[1]
	}
	if err := os.WriteFile(path, out.Data, 0o644); err != nil {
		r.fail(err)
		return
	}
	r.ok(fmt.Sprintf("%s 저장 완료 (%d bytes)", path, len(out.Data)))
}

func (r *repl) setModel(ctx context.Context, args []string) {
	if len(args) == 0 {
		r.fail(errors.New("사용법: /model <모델> [temperature]"))
		return
	}
	var temp *float64
	if len(args) > 1 {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			r.fail(fmt.Errorf("temperature: %w", err))
			return
		}
		temp = &v
	}

	session, err := r.svc.SetModel(ctx, r.session.ID, args[0], temp)
	if err != nil {
		r.fail(err)
		return
	}
	r.session = session
	r.ok(fmt.Sprintf("모델: %s, temperature: %g", session.Model, session.Temperature))
}

func (r *repl) ok(msg string) {
	r.printf("%s\n", successStyle.Render(msg))
}

func (r *repl) fail(err error) {
	r.printf("%s\n", errorStyle.Render("오류: "+err.Error()))
}
