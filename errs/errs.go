// Package errs holds the three fatal error kinds spec §6.1 and §7
// require translate() to distinguish, plus a helper for the "should be
// unreachable" internal-invariant case. Each kind is a distinct Go type
// so callers can type-switch when they want structured data, while
// Error() renders the same human-readable message spec §7 asks for.
package errs

import (
	"fmt"
	"strings"
)

// ParseError is a lexer/parser-stage fatal error: malformed SQuery syntax.
type ParseError struct {
	Message string
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// ValidationError is a semantic-stage fatal error: unknown alias,
// duplicate alias, negative top, etc. Clause and AvailableAliases are
// included when relevant so the rendered message can name the clause and
// list what aliases were visible, per spec §7.
type ValidationError struct {
	Message          string
	Clause           string // "SELECT", "WHERE", "ORDER BY", "JOIN", or ""
	AvailableAliases []string
	Suggestion       string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Clause != "" {
		fmt.Fprintf(&b, " (in %s)", e.Clause)
	}
	if len(e.AvailableAliases) > 0 {
		fmt.Fprintf(&b, ". Available aliases: %s", strings.Join(e.AvailableAliases, ", "))
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, ". %s", e.Suggestion)
	}
	return b.String()
}

// UnknownEntityError is raised when the root entity has no table binding
// in the Schema Registry.
type UnknownEntityError struct {
	Entity     string
	Suggestion string // e.g. "did you mean \"Users\"?"
}

func (e *UnknownEntityError) Error() string {
	msg := fmt.Sprintf("entity %q is not mapped to any SQL table", e.Entity)
	if e.Suggestion != "" {
		msg += ". " + e.Suggestion
	}
	return msg
}

// InternalError reports a condition the implementation believes cannot
// occur. It is still a plain returned error, never a panic.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Message
}

// Internal constructs an *InternalError.
func Internal(format string, args ...any) error {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}
