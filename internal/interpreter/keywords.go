package interpreter

import (
	"regexp"
	"strings"

	"github.com/PabloGalante/tabula/internal/table"
)

// Keyword tables. All entries are compared against case-folded text.
var (
	helpTriggers = []string{"할 수 있", "가능한", "작업", "명령어", "기능", "what can you do"}

	deleteKeywords = []string{"삭제", "delete", "제거", "빼"}
	sortKeywords   = []string{"정렬", "sort", "순서"}
	resetKeywords  = []string{"원본", "복원", "초기화", "reset"}

	ascendingCues  = []string{"오름차순", "asc", "낮은", "작은"}
	descendingCues = []string{"내림차순", "desc", "높은", "큰"}

	domainKeywords = []string{
		"ai", "인공지능", "머신러닝", "machine learning",
		"data scientist", "ml", "artificial intelligence",
	}
)

var (
	topPattern     = regexp.MustCompile(`(?:상위|top)\s*(\d+)`)
	bottomPattern  = regexp.MustCompile(`(?:하위|bottom)\s*(\d+)`)
	numericPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(이상|이하|초과|미만|>=|<=|>|<)`)
	rowDropPattern = regexp.MustCompile(`(\d+)\s*(?:번째|행|줄).*?삭제`)
)

var comparisonOps = map[string]table.CompareOp{
	"이상": table.OpGreaterEqual,
	">=": table.OpGreaterEqual,
	"이하": table.OpLessEqual,
	"<=": table.OpLessEqual,
	"초과": table.OpGreater,
	">":  table.OpGreater,
	"미만": table.OpLess,
	"<":  table.OpLess,
}

// conditionPatterns extract a free-text filter condition around a column
// mention. They are tried in order.
func conditionPatterns(column string) []*regexp.Regexp {
	c := regexp.QuoteMeta(column)
	return []*regexp.Regexp{
		regexp.MustCompile(c + `.*?(?:포함|관련|해당).*?([가-힣a-z0-9\s]+)`),
		regexp.MustCompile(`([가-힣a-z0-9\s]+).*?` + c),
		regexp.MustCompile(c + `.*?([가-힣a-z0-9\s]+)`),
	}
}

// Tokens dropped from an extracted condition.
var stopWords = map[string]struct{}{
	"에서": {}, "의": {}, "을": {}, "를": {}, "이": {}, "가": {}, "으로": {}, "에": {}, "만": {},
	"데이터": {}, "컬럼": {}, "값": {}, "행": {}, "것": {}, "조건": {},
	"포함": {}, "포함된": {}, "포함한": {}, "관련": {}, "관련된": {}, "관련한": {},
	"해당": {}, "해당하는": {}, "된": {}, "인": {},
	"이상": {}, "이하": {}, "초과": {}, "미만": {},
}

// Tokens containing any of these carry the command, not the condition.
var intentFragments = []string{"삭제", "제거", "정렬", "순서", "차순", "기준", "보여", "해줘", "필터", "찾아", "알려"}

// Particles trimmed from the end of a condition token.
var particles = []string{"에서", "으로", "만", "을", "를", "은", "는"}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// containsKeyword reports whether kw occurs in s. ASCII keywords must not
// touch other ASCII letters or digits, so "ai" does not match "email".
func containsKeyword(s, kw string) bool {
	if !isASCII(kw) {
		return strings.Contains(s, kw)
	}
	for off := 0; off < len(s); {
		j := strings.Index(s[off:], kw)
		if j < 0 {
			return false
		}
		start, end := off+j, off+j+len(kw)
		if (start == 0 || !isASCIIAlnum(s[start-1])) && (end == len(s) || !isASCIIAlnum(s[end])) {
			return true
		}
		off = start + 1
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isASCIIAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// cleanCondition reduces an extracted phrase to the words that describe the
// value being searched for.
func cleanCondition(phrase string) string {
	var kept []string
	for _, tok := range strings.Fields(phrase) {
		tok = trimParticles(tok)
		if tok == "" {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if containsAny(tok, intentFragments) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func trimParticles(tok string) string {
	for range 2 {
		trimmed := false
		for _, p := range particles {
			if rest, ok := strings.CutSuffix(tok, p); ok && rest != "" {
				tok = rest
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}
	return tok
}

type span struct{ start, end int }

// namedColumns returns every column whose folded name occurs in folded.
func namedColumns(folded string, names []string) []string {
	var out []string
	for _, n := range names {
		if k := table.FoldCase(n); k != "" && strings.Contains(folded, k) {
			out = append(out, n)
		}
	}
	return out
}

// mentionedColumns returns the columns whose folded name occurs in folded,
// in column order. A name whose every occurrence lies inside an occurrence
// of a longer mentioned name is left out, so "salary_usd" does not also
// mention "salary".
func mentionedColumns(folded string, names []string) []string {
	keys := make([]string, len(names))
	hits := make([][]span, len(names))
	for i, n := range names {
		keys[i] = table.FoldCase(n)
		if keys[i] == "" {
			continue
		}
		for off := 0; off < len(folded); {
			j := strings.Index(folded[off:], keys[i])
			if j < 0 {
				break
			}
			start := off + j
			hits[i] = append(hits[i], span{start, start + len(keys[i])})
			off = start + 1
		}
	}

	covered := func(i int, sp span) bool {
		for j := range names {
			if j == i || len(keys[j]) <= len(keys[i]) {
				continue
			}
			for _, o := range hits[j] {
				if o.start <= sp.start && sp.end <= o.end {
					return true
				}
			}
		}
		return false
	}

	var out []string
	for i, n := range names {
		if len(hits[i]) == 0 {
			continue
		}
		for _, sp := range hits[i] {
			if !covered(i, sp) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
