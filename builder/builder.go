// Package builder accumulates the pieces of a translated statement —
// select list, FROM, JOIN fragments, an optional WHERE fragment, ORDER
// BY, TOP, and a @pN parameter map — and assembles them into the final
// SQL text. The State/assembly split mirrors the teacher pack's
// builders package: the transformer fills in a builder.State as it
// walks the AST, then Build renders it, keeping "decide what goes in
// the query" and "render it as text" as separate concerns.
package builder

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/identitymgmt/squery/ast"
)

// State is the transient, per-translation accumulator described by spec
// §3.4. Nothing here is safe for concurrent use — each call to
// squery.Translate gets its own State.
type State struct {
	SelectList []string // rendered "alias.Column" fragments, or nil for SELECT *
	From       string   // rendered "[dbo].[Table] alias"
	Joins      []string // rendered "LEFT JOIN [dbo].[Table] alias ON ..." fragments, source order
	Where      string   // rendered boolean expression, "" if absent
	OrderBy    []string // rendered "alias.Column ASC|DESC" fragments
	Top        int      // 0 means absent

	// Offset/Limit back spec §3.4's "optional offset/limit" Builder State
	// and §4.4.6's OFFSET/FETCH rendering rule. The current SQuery surface
	// grammar (§4.2) has no skip/page keyword, so nothing in this module's
	// parser ever sets them; they exist for a caller that constructs a
	// State directly (or a future grammar extension) and are exercised by
	// this package's own tests rather than end to end through Translate.
	Offset int // 0 means absent
	Limit  int // 0 means absent

	params     map[string]any
	paramSeq   int
	AliasTypes map[string]string // alias -> entity name, filled in by the transformer as it resolves joins
}

// New returns a zero State with its parameter map initialized.
func New() *State {
	return &State{params: map[string]any{}, AliasTypes: map[string]string{}}
}

// NextParam reserves a new @pN placeholder bound to value and returns the
// placeholder name. Numbering is monotonic and starts at 1 (spec §3.4).
func (s *State) NextParam(value any) string {
	s.paramSeq++
	name := fmt.Sprintf("@p%d", s.paramSeq)
	s.params[name] = value
	return name
}

// Params returns a copy of the accumulated placeholder -> value bindings.
func (s *State) Params() map[string]any {
	out := make(map[string]any, len(s.params))
	for k, v := range s.params {
		out[k] = v
	}
	return out
}

// AddJoin appends one rendered JOIN fragment in source order.
func (s *State) AddJoin(fragment string) {
	s.Joins = append(s.Joins, fragment)
}

// Build renders the accumulated State into final SQL text, inlining every
// @pN placeholder as a SQL literal (spec §4.4.7: "parameterize, then
// inline" — @pN placeholders exist only to keep the render logic
// uniform between the WHERE builder and this final substitution pass;
// no driver ever sees them).
func (s *State) Build() string {
	var b strings.Builder

	b.WriteString("SELECT ")
	if s.Top > 0 {
		fmt.Fprintf(&b, "TOP %d ", s.Top)
	}
	if len(s.SelectList) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(s.SelectList, ", "))
	}

	fmt.Fprintf(&b, "\nFROM %s", s.From)
	for _, j := range s.Joins {
		b.WriteString("\n")
		b.WriteString(j)
	}
	if s.Where != "" {
		fmt.Fprintf(&b, "\nWHERE %s", s.Where)
	}

	switch {
	case s.Top > 0:
		// TOP and OFFSET/FETCH are mutually exclusive (spec §4.4.6); TOP wins.
		if len(s.OrderBy) > 0 {
			fmt.Fprintf(&b, "\nORDER BY %s", strings.Join(s.OrderBy, ", "))
		}
	case s.Offset > 0 || s.Limit > 0:
		if len(s.OrderBy) > 0 {
			fmt.Fprintf(&b, "\nORDER BY %s", strings.Join(s.OrderBy, ", "))
		} else {
			b.WriteString("\nORDER BY (SELECT NULL)")
		}
		fmt.Fprintf(&b, "\nOFFSET %d ROWS", s.Offset)
		if s.Limit > 0 {
			fmt.Fprintf(&b, "\nFETCH NEXT %d ROWS ONLY", s.Limit)
		}
	default:
		if len(s.OrderBy) > 0 {
			fmt.Fprintf(&b, "\nORDER BY %s", strings.Join(s.OrderBy, ", "))
		}
	}

	return inlineParams(b.String(), s.params)
}

// inlineParams substitutes every @pN placeholder with its literal SQL
// rendering. Substitution runs longest-key-first so @p10 is replaced
// before @p1 can match its prefix (spec §4.4.7).
func inlineParams(sql string, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	for _, k := range keys {
		sql = strings.ReplaceAll(sql, k, Literal(params[k]))
	}
	return sql
}

// Literal renders value as a SQL Server literal: NULL, 1/0 for bool,
// canonical decimal for numbers, and a quote-doubled single-quoted
// string otherwise (spec §4.4.7).
func Literal(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case ast.Null:
		return "NULL"
	case bool:
		if v {
			return "1"
		}
		return "0"
	case ast.Bool:
		if bool(v) {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(v, 10)
	case *big.Int:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case ast.Number:
		return numberLiteral(v)
	case string:
		return quoteString(v)
	case ast.Str:
		return quoteString(string(v))
	default:
		return quoteString(fmt.Sprintf("%v", v))
	}
}

func numberLiteral(n ast.Number) string {
	switch {
	case n.IsFloat:
		return strconv.FormatFloat(n.Float, 'f', -1, 64)
	case n.Big != nil:
		return n.Big.String()
	default:
		return strconv.FormatInt(n.Int, 10)
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
