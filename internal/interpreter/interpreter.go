// Package interpreter classifies a chat instruction into a table command
// and runs it against a dataset store.
//
// Rules are tried in a fixed priority order and the first one that applies
// wins. A rule that does not apply is not an error: the caller gets NoMatch
// and is expected to hand the instruction to the chat model instead.
package interpreter

import (
	"context"
	"fmt"
	"time"

	"github.com/PabloGalante/tabula/internal/observability"
	"github.com/PabloGalante/tabula/internal/table"
)

// Outcome tags an interpretation result.
type Outcome int

const (
	NoMatch Outcome = iota
	Matched
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Failed:
		return "failed"
	default:
		return "no_match"
	}
}

// Result of interpreting one instruction.
type Result struct {
	Outcome Outcome

	// Rule names the rule that produced the result. Empty for NoMatch.
	Rule string

	// Message is the assistant-facing text for Matched results.
	Message string

	// Table is the result to show. For committed results it is also the
	// store's new working table.
	Table *table.Table

	// Committed reports whether the store's working table was replaced.
	Committed bool

	// Err is set for Failed results.
	Err error
}

// Interpreter runs instructions through an ordered rule chain.
type Interpreter struct {
	rules []rule
}

// New returns an interpreter with the standard rule chain.
func New() *Interpreter {
	return &Interpreter{rules: defaultRules()}
}

// Rules lists rule names in evaluation order.
func (it *Interpreter) Rules() []string {
	names := make([]string, len(it.rules))
	for i, r := range it.rules {
		names[i] = r.name
	}
	return names
}

// Interpret classifies instruction against store. A nil store never
// matches.
func (it *Interpreter) Interpret(ctx context.Context, store *table.Store, instruction string) (res Result) {
	if store == nil {
		return Result{Outcome: NoMatch}
	}

	log := observability.LoggerFromContext(ctx).With("dataset", store.Name())
	start := time.Now()

	req := newRequest(instruction, store)

	var current string
	defer func() {
		if p := recover(); p != nil {
			log.Error("interpreter rule panicked", "rule", current, "panic", p)
			res = Result{Outcome: Failed, Rule: current, Err: fmt.Errorf("rule %s: %v", current, p)}
		}
	}()

	for _, r := range it.rules {
		current = r.name
		out, err := r.run(req)
		if err != nil {
			log.Warn("interpreter rule failed", "rule", r.name, "error", err)
			return Result{Outcome: Failed, Rule: r.name, Err: err}
		}
		if out == nil {
			continue
		}
		out.Outcome = Matched
		out.Rule = r.name
		log.Info("interpreter matched",
			"rule", r.name,
			"committed", out.Committed,
			"rows", out.Table.Len(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return *out
	}

	log.Debug("interpreter no match", "elapsed_ms", time.Since(start).Milliseconds())
	return Result{Outcome: NoMatch}
}

// request is the per-instruction state shared by the rules.
type request struct {
	text    string
	folded  string
	store   *table.Store
	current *table.Table

	// mentioned holds the column names that appear in the instruction, in
	// column order, without names only seen inside a longer mentioned name.
	mentioned []string

	// named holds every column whose name appears anywhere in the
	// instruction, in column order.
	named []string
}

func newRequest(text string, store *table.Store) *request {
	cur := store.Current()
	folded := table.FoldCase(text)
	return &request{
		text:      text,
		folded:    folded,
		store:     store,
		current:   cur,
		mentioned: mentionedColumns(folded, cur.ColumnNames()),
		named:     namedColumns(folded, cur.ColumnNames()),
	}
}
