// Package parser is a recursive-descent, non-backtracking parser over the
// lexer's token stream (spec §4.2). Its token-navigation helpers —
// current/advance/atEnd/isKeyword — follow the shape of the teacher
// pack's engine/parser/parser.go, adapted to SQuery's much smaller
// single-statement grammar (no operation dispatch table: a SQuery is
// always an implicit SELECT).
package parser

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/identitymgmt/squery/ast"
	"github.com/identitymgmt/squery/errs"
	"github.com/identitymgmt/squery/lexer"
	"github.com/identitymgmt/squery/mapping"
)

type parser struct {
	tokens []ast.Token
	pos    int
	warns  []string
}

// Parse lexes and parses input, returning the AST, any non-fatal
// warnings (unknown lexer glyphs, a missing ')', an unresolved top-level
// keyword, ...), and a fatal error if the grammar could not be satisfied.
func Parse(input string) (*ast.Query, []string, error) {
	tokens, lexWarns := lexer.Tokenize(input)
	p := &parser{tokens: tokens, warns: lexWarns}

	q, err := p.parseQuery()
	if err != nil {
		return nil, p.warns, err
	}
	return q, p.warns, nil
}

// ---- token navigation -----------------------------------------------

func (p *parser) current() ast.Token {
	if p.pos >= len(p.tokens) {
		return ast.Token{Kind: ast.EOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() ast.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) atEnd() bool {
	return p.current().Kind == ast.EOF
}

// isKeyword reports whether the current token is KEYWORD with the given
// (case-insensitive) lexeme.
func (p *parser) isKeyword(word string) bool {
	tok := p.current()
	return tok.Kind == ast.KEYWORD && strings.EqualFold(tok.Lexeme, word)
}

func (p *parser) warn(msg string) {
	p.warns = append(p.warns, msg)
}

func (p *parser) errorf(format string, args ...any) error {
	tok := p.current()
	return &errs.ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Pos.Line,
		Column:  tok.Pos.Column,
	}
}

// ---- top-level loop (spec §4.2 "Top-level loop") ----------------------

func (p *parser) parseQuery() (*ast.Query, error) {
	q := &ast.Query{}

	for !p.atEnd() {
		tok := p.current()
		if tok.Kind != ast.KEYWORD {
			p.warn(fmt.Sprintf("skipping unexpected token %q at line %d, column %d", tok.Lexeme, tok.Pos.Line, tok.Pos.Column))
			p.advance()
			continue
		}

		switch strings.ToLower(tok.Lexeme) {
		case "join":
			join, err := p.parseJoin()
			if err != nil {
				return nil, err
			}
			q.Joins = append(q.Joins, join)
		case "top":
			n, err := p.parseTop()
			if err != nil {
				return nil, err
			}
			q.Top = n
		case "select":
			fields, err := p.parseSelect()
			if err != nil {
				return nil, err
			}
			q.Select = fields
		case "where":
			p.advance()
			expr, err := p.parseWhere()
			if err != nil {
				return nil, err
			}
			q.Where = expr
		case "order":
			sorts, err := p.parseOrderBy()
			if err != nil {
				return nil, err
			}
			q.OrderBy = sorts
		default:
			p.warn(fmt.Sprintf("skipping unrecognized keyword %q", tok.Lexeme))
			p.advance()
		}
	}

	return q, nil
}

// ---- dotted identifiers (spec §4.2 "Dotted identifier") --------------

// parseIdentLike consumes a single identifier-like token: a plain
// IDENTIFIER, or (per spec) a KEYWORD accepted as a convenience so field
// names like "Type" still parse.
func (p *parser) parseIdentLike() (string, error) {
	tok := p.current()
	if tok.Kind != ast.IDENTIFIER && tok.Kind != ast.KEYWORD {
		return "", p.errorf("expected identifier, got %q", tok.Lexeme)
	}
	p.advance()
	return tok.Lexeme, nil
}

// parseDotted parses `id (DOT id)*` and returns the raw segments.
func (p *parser) parseDotted() ([]string, error) {
	first, err := p.parseIdentLike()
	if err != nil {
		return nil, err
	}
	parts := []string{first}
	for p.current().Kind == ast.DOT {
		p.advance()
		next, err := p.parseIdentLike()
		if err != nil {
			return nil, err
		}
		parts = append(parts, next)
	}
	return parts, nil
}

// splitColon pulls a ":Suffix" type filter off the last dotted segment.
func splitColon(s string) (name, suffix string) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func dottedToFieldRef(parts []string, pos ast.Position) ast.FieldRef {
	if len(parts) == 1 {
		return ast.FieldRef{Name: parts[0], Pos: pos}
	}
	// Only the first segment is ever an alias in this language; anything
	// beyond two segments folds back into the field name joined by dots.
	return ast.FieldRef{Alias: parts[0], Name: strings.Join(parts[1:], "."), Pos: pos}
}

// ---- join (spec §4.2 "Join") ------------------------------------------

func (p *parser) parseJoin() (ast.Join, error) {
	pos := p.current().Pos
	p.advance() // consume 'join'

	pathParts, err := p.parseDotted()
	if err != nil {
		return ast.Join{}, err
	}

	entityPath := ast.EntityPath{}
	if len(pathParts) == 1 {
		entityPath.NavProp, entityPath.TypeSuffix = splitColon(pathParts[0])
	} else {
		entityPath.ParentAlias = pathParts[0]
		entityPath.NavProp, entityPath.TypeSuffix = splitColon(strings.Join(pathParts[1:], "."))
	}

	var typeFilter string
	if p.isKeyword("of") {
		p.advance()
		if !p.isKeyword("type") {
			return ast.Join{}, p.errorf("expected 'type' after 'of', got %q", p.current().Lexeme)
		}
		p.advance()
		tfParts, err := p.parseDotted()
		if err != nil {
			return ast.Join{}, err
		}
		typeFilter = strings.Join(tfParts, ".")
	}

	alias, err := p.parseIdentLike()
	if err != nil {
		return ast.Join{}, p.errorf("expected a join alias, got %q", p.current().Lexeme)
	}

	return ast.Join{Path: entityPath, TypeFilter: typeFilter, Alias: alias, Pos: pos}, nil
}

// ---- top (spec §4.2 "Top") ---------------------------------------------

func (p *parser) parseTop() (int, error) {
	p.advance() // consume 'top'
	tok := p.current()
	if tok.Kind != ast.NUMBER {
		return 0, p.errorf("expected a number after 'top', got %q", tok.Lexeme)
	}
	p.advance()
	n, err := strconv.Atoi(tok.Lexeme)
	if err != nil {
		return 0, p.errorf("invalid top value %q", tok.Lexeme)
	}
	return n, nil
}

// ---- select (spec §4.2 "Select") ---------------------------------------

func (p *parser) parseSelect() ([]ast.FieldRef, error) {
	p.advance() // consume 'select'
	var fields []ast.FieldRef

	for {
		if p.atEnd() || p.isClauseKeyword() {
			break
		}
		pos := p.current().Pos
		parts, err := p.parseDotted()
		if err != nil {
			return nil, err
		}
		fields = append(fields, dottedToFieldRef(parts, pos))

		if p.current().Kind == ast.COMMA {
			p.advance()
			// Trailing comma before a clause keyword is tolerated (spec §4.2).
			if p.isClauseKeyword() {
				break
			}
			continue
		}
		break
	}

	return fields, nil
}

// isClauseKeyword reports whether the current token starts a new
// top-level clause, used to know where a comma-separated list ends.
func (p *parser) isClauseKeyword() bool {
	tok := p.current()
	if tok.Kind != ast.KEYWORD {
		return false
	}
	switch strings.ToLower(tok.Lexeme) {
	case "join", "top", "select", "where", "order":
		return true
	default:
		return false
	}
}

// ---- order by (spec §4.2 "Order by") -----------------------------------

func (p *parser) parseOrderBy() ([]ast.Sort, error) {
	p.advance() // consume 'order'
	if !p.isKeyword("by") {
		return nil, p.errorf("expected 'by' after 'order', got %q", p.current().Lexeme)
	}
	p.advance()

	var sorts []ast.Sort
	for {
		pos := p.current().Pos
		parts, err := p.parseDotted()
		if err != nil {
			return nil, err
		}
		field := dottedToFieldRef(parts, pos)

		dir := "ASC"
		if p.isKeyword("asc") {
			p.advance()
		} else if p.isKeyword("desc") {
			dir = "DESC"
			p.advance()
		}

		sorts = append(sorts, ast.Sort{Field: field, Direction: dir})

		if p.current().Kind == ast.COMMA {
			p.advance()
			continue
		}
		break
	}

	return sorts, nil
}

// ---- where (spec §4.2 precedence grammar) ------------------------------
//
//	or    ::= and ('or' and)*
//	and   ::= not ('and' not)*
//	not   ::= 'not' not | primary
//	primary ::= '(' or ')' | comparison
//	comparison ::= dottedId OPERATOR value
//	value ::= NUMBER | STRING | NULL | BOOLEAN | identifier
//
// WHERE-tree depth (spec §4.3.3) is checked by the validator walking the
// finished tree, not here.
func (p *parser) parseWhere() (ast.WhereExpr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (ast.WhereExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Left: left, Op: "OR", Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.WhereExpr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Left: left, Op: "AND", Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.WhereExpr, error) {
	if p.isKeyword("not") {
		p.advance()
		child, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Child: child}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.WhereExpr, error) {
	if p.current().Kind == ast.LPAREN {
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current().Kind == ast.RPAREN {
			p.advance()
		} else {
			// Missing ')' is a warning, not an error (spec §4.2): treat the
			// current position as the close and keep going.
			p.warn(fmt.Sprintf("missing ')' at line %d, column %d", p.current().Pos.Line, p.current().Pos.Column))
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ast.WhereExpr, error) {
	pos := p.current().Pos
	fieldParts, err := p.parseDotted()
	if err != nil {
		return nil, err
	}
	field := dottedToFieldRef(fieldParts, pos)

	opTok := p.current()
	if opTok.Kind != ast.OPERATOR || !mapping.IsCompareOperator(opTok.Lexeme) {
		return nil, p.errorf("expected a comparison operator, got %q", opTok.Lexeme)
	}
	p.advance()

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	return &ast.Compare{Field: field, Op: opTok.Lexeme, Value: value, Pos: pos}, nil
}

func (p *parser) parseValue() (ast.Value, error) {
	tok := p.current()
	switch tok.Kind {
	case ast.NUMBER:
		p.advance()
		return parseNumber(tok.Lexeme), nil
	case ast.STRING:
		p.advance()
		return ast.Str(tok.Lexeme), nil
	case ast.NULL:
		p.advance()
		return ast.Null{}, nil
	case ast.BOOLEAN:
		p.advance()
		return ast.Bool(strings.EqualFold(tok.Lexeme, "true")), nil
	case ast.IDENTIFIER, ast.KEYWORD:
		p.advance()
		return ast.Str(tok.Lexeme), nil
	default:
		return nil, p.errorf("expected a value, got %q", tok.Lexeme)
	}
}

// parseNumber classifies a NUMBER lexeme as integral or decimal (spec §9
// Open Question 2): integral values are held as int64, falling back to
// *big.Int only when they overflow it.
func parseNumber(raw string) ast.Number {
	if strings.Contains(raw, ".") {
		f, _ := strconv.ParseFloat(raw, 64)
		return ast.Number{Raw: raw, IsFloat: true, Float: f}
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ast.Number{Raw: raw, Int: i}
	}
	big := new(big.Int)
	big.SetString(raw, 10)
	return ast.Number{Raw: raw, Big: big}
}
