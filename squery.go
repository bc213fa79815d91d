// Package squery translates the SQuery mini-language embedded in an
// Identity Management product's URL query parameter into a SQL
// Server-dialect SELECT statement. Translate is the sole entry point;
// everything else in the module (lexer, parser, validator, transformer,
// builder) is plumbing it drives in sequence.
//
// Logging follows the teacher pack's convention of a package-level
// slog.Logger reused across calls, tagged per call with a UUIDv7 trace
// ID (roach88-nysm's flow.go does the same for its own request-scoped
// logging).
package squery

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/identitymgmt/squery/errs"
	"github.com/identitymgmt/squery/parser"
	"github.com/identitymgmt/squery/registry"
	"github.com/identitymgmt/squery/transformer"
	"github.com/identitymgmt/squery/validator"
)

// Result is the outcome of a successful translation.
type Result struct {
	SQL        string
	Parameters map[string]any
	Warnings   []string
}

var logger = slog.Default().With("component", "squery")

// Translate parses rawURL, extracts its squery parameter and root entity
// (spec §6.2), and runs the full lexer -> parser -> validator ->
// transformer -> builder pipeline. Any fatal problem at any stage aborts
// with an *errs.ParseError, *errs.ValidationError, or
// *errs.UnknownEntityError; non-fatal problems accumulate as Warnings on
// a successful Result.
func Translate(rawURL string, reg *registry.Registry) (*Result, error) {
	traceID := uuid.Must(uuid.NewV7()).String()
	log := logger.With("trace_id", traceID)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &errs.ParseError{Message: "malformed URL: " + err.Error()}
	}

	q := u.Query()
	rawQuery := q.Get("squery")
	rootEntity := rootEntityFromURL(u, q)

	log.Debug("translating squery", "root_entity", rootEntity, "raw_length", len(rawQuery))

	query, warnings, err := parser.Parse(rawQuery)
	if err != nil {
		log.Warn("parse failed", "error", err)
		return nil, err
	}
	query.RootEntity = rootEntity

	vres, err := validator.Validate(query, reg)
	if err != nil {
		log.Warn("validation failed", "error", err)
		return nil, err
	}
	warnings = append(warnings, vres.Warnings...)

	state, xformWarnings := transformer.Transform(query, vres, reg)
	warnings = append(warnings, xformWarnings...)

	sql := state.Build()
	log.Debug("translation complete", "warning_count", len(warnings), "join_count", len(state.Joins))

	return &Result{SQL: sql, Parameters: state.Params(), Warnings: warnings}, nil
}

// rootEntityFromURL implements spec §6.2: the QueryRootEntityType query
// parameter wins outright; otherwise the last non-empty path segment
// supplies the root entity name.
func rootEntityFromURL(u *url.URL, q url.Values) string {
	if v := q.Get("QueryRootEntityType"); v != "" {
		return v
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
