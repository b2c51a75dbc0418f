package interpreter

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/tabula/internal/table"
)

// Guide lists the commands the interpreter understands, headed by the shape
// of the working table.
func Guide(name string, t *table.Table) string {
	var b strings.Builder
	b.WriteString("## 데이터 조작 가능한 명령어들\n\n")
	fmt.Fprintf(&b, "현재 로드된 데이터: **%s**\n", name)
	fmt.Fprintf(&b, "- 행 수: %d\n", t.Len())
	fmt.Fprintf(&b, "- 열 수: %d\n", t.Width())
	fmt.Fprintf(&b, "- 컬럼: %s\n\n", strings.Join(t.ColumnNames(), ", "))
	b.WriteString(guideBody)
	return b.String()
}

var guideBody = strings.Join([]string{
	"### 데이터 조회",
	"- `상위 10개 데이터 보여줘` 또는 `top 5`",
	"- `하위 10개 데이터 보여줘` 또는 `bottom 3`",
	"",
	"### 데이터 필터링",
	"- `[컬럼명]에서 [키워드] 포함된 데이터만`",
	"- `job_title에서 AI 관련 데이터만`",
	"- `salary 100000 이상` (이상, 이하, 초과, 미만, >=, <=, >, <)",
	"",
	"### 데이터 삭제",
	"- `[컬럼명] 컬럼 삭제해줘`",
	"- `3번째 행 삭제`",
	"",
	"### 데이터 정렬",
	"- `[컬럼명] 기준으로 정렬해줘`",
	"- `salary 내림차순으로 정렬`",
	"",
	"### 원본 복원",
	"- `원본으로 복원` 또는 `reset`",
	"",
	"### 데이터 다운로드",
	"조작된 결과는 CSV, Excel, Parquet 형태로 다운로드할 수 있습니다.",
	"",
}, "\n")
