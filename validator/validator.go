// Package validator implements spec §4.3's two-phase check: build an
// alias→entity scope by walking joins in source order, then check every
// field reference in SELECT/WHERE/ORDER BY against that scope. Fatal
// problems abort translation (errs.ValidationError / errs.UnknownEntityError);
// everything else becomes a warning string appended to Result.Warnings.
package validator

import (
	"fmt"
	"strings"

	"github.com/identitymgmt/squery/ast"
	"github.com/identitymgmt/squery/errs"
	"github.com/identitymgmt/squery/registry"
)

const (
	maxTop       = 10000
	maxWhereDepth = 10
	maxStringLen = 4000
)

// Scope is the outcome of phase one: every alias bound while walking the
// joins, which entity it resolves to, and which aliases turned out
// unresolved (their Join will be elided by the transformer).
type Scope struct {
	RootAlias string
	// entities maps alias -> bound entity name, in declaration order.
	order    []string
	entities map[string]string
	unresolved map[string]struct{}
}

func newScope(rootAlias, rootEntity string) *Scope {
	return &Scope{
		RootAlias:  rootAlias,
		order:      []string{rootAlias},
		entities:   map[string]string{rootAlias: rootEntity},
		unresolved: map[string]struct{}{},
	}
}

func (s *Scope) bind(alias, entity string) {
	if _, exists := s.entities[alias]; !exists {
		s.order = append(s.order, alias)
	}
	s.entities[alias] = entity
}

func (s *Scope) entity(alias string) (string, bool) {
	e, ok := s.entities[alias]
	return e, ok
}

// AvailableAliases returns the bound aliases in declaration order, for
// error messages (spec §7: "the currently visible alias set").
func (s *Scope) AvailableAliases() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Result is what Validate returns on success: the built scope (the
// transformer reuses it) plus any warnings collected along the way.
type Result struct {
	Scope      *Scope
	Unresolved map[string]struct{} // aliases whose nav-prop didn't resolve
	Warnings   []string
}

// Validate runs spec §4.3 end to end. query.RootEntity must already be
// set by the caller.
func Validate(query *ast.Query, reg *registry.Registry) (*Result, error) {
	rootEntity := query.RootEntity
	if _, ok := reg.EntityToTable[rootEntity]; !ok {
		return nil, &errs.UnknownEntityError{Entity: rootEntity, Suggestion: suggestEntity(rootEntity, reg)}
	}

	rootAlias := reg.EntityAlias[rootEntity]
	if rootAlias == "" {
		rootAlias = rootEntity
	}

	scope := newScope(rootAlias, rootEntity)
	var warnings []string

	seenAliases := map[string]string{strings.ToLower(rootAlias): rootAlias}

	for _, join := range query.Joins {
		lowerAlias := strings.ToLower(join.Alias)
		if existing, dup := seenAliases[lowerAlias]; dup {
			return nil, &errs.ValidationError{
				Message: fmt.Sprintf("duplicate join alias %q (collides with %q)", join.Alias, existing),
				Clause:  "JOIN",
			}
		}
		seenAliases[lowerAlias] = join.Alias

		parentAlias := join.Path.ParentAlias
		if parentAlias == "" {
			parentAlias = rootAlias
		}
		parentEntity, ok := scope.entity(parentAlias)
		if !ok {
			return nil, &errs.ValidationError{
				Message:          fmt.Sprintf("alias %q is not declared", parentAlias),
				Clause:           "JOIN",
				AvailableAliases: scope.AvailableAliases(),
			}
		}

		target, resolved := resolveNavProp(parentEntity, join.Path.NavProp, reg)
		if !resolved {
			warnings = append(warnings, fmt.Sprintf(
				"nav-prop %q on entity %q was not found; the LEFT JOIN was skipped. Add it to navigationPropertyOverrides for entity %q.",
				join.Path.NavProp, parentEntity, parentEntity))
			scope.bind(join.Alias, join.Path.NavProp)
			scope.unresolved[join.Alias] = struct{}{}
			continue
		}
		scope.bind(join.Alias, target)
	}

	// §4.3.2 reference checking over SELECT, ORDER BY, and every Compare
	// in WHERE.
	for _, f := range query.Select {
		w, err := checkFieldRef(f, "SELECT", scope, reg)
		if err != nil {
			return nil, err
		}
		warnings = appendIfWarn(warnings, w)
	}
	for _, s := range query.OrderBy {
		w, err := checkFieldRef(s.Field, "ORDER BY", scope, reg)
		if err != nil {
			return nil, err
		}
		warnings = appendIfWarn(warnings, w)
	}
	if query.Where != nil {
		w, err := checkWhere(query.Where, scope, reg, 0)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w...)
	}

	// §4.3.3 other checks.
	if query.Top < 0 {
		return nil, &errs.ValidationError{Message: fmt.Sprintf("top must not be negative, got %d", query.Top)}
	}
	if query.Top > maxTop {
		warnings = append(warnings, fmt.Sprintf("top value %d exceeds the recommended maximum of %d", query.Top, maxTop))
	}
	if len(query.Joins) == 0 && query.Top == 0 && len(query.Select) == 0 && query.Where == nil && len(query.OrderBy) == 0 {
		warnings = append(warnings, "empty SQuery: translating to SELECT * with no filters")
	} else if len(query.Select) == 0 {
		warnings = append(warnings, "no SELECT fields given; SQL will use SELECT *")
	}

	return &Result{Scope: scope, Unresolved: scope.unresolved, Warnings: warnings}, nil
}

// resolveNavProp mirrors the resolution order the transformer itself uses
// (spec §4.4.2) just closely enough to answer "does this resolve at all,
// and to which entity" — the validator never needs JOIN shape, only the
// yes/no plus target entity for scope binding.
func resolveNavProp(parentEntity, navProp string, reg *registry.Registry) (targetEntity string, ok bool) {
	if ov, found := reg.NavOverrides[registry.NavKey{Entity: parentEntity, NavProp: navProp}]; found {
		if ov.TargetEntity != "" {
			return ov.TargetEntity, true
		}
		return navProp, true
	}

	if table, found := reg.EntityToTable[parentEntity]; found {
		localCol := navProp + "_Id"
		if fk, found := reg.TableFKs[table][localCol]; found {
			if entity, found := reg.TableToEntity[fk.ReferencedTable]; found {
				return entity, true
			}
			return navProp, true
		}
	}

	if _, isResource := reg.ResourceEntityTypes[parentEntity]; isResource {
		if rnp, found := reg.ResourceNavProps[navProp]; found {
			if rnp.TargetEntity != "" {
				return rnp.TargetEntity, true
			}
			return navProp, true
		}
	}

	return "", false
}

// checkFieldRef validates one alias.col reference (spec §4.3.2 and the
// alias-declared invariant in §4.3.4). Returns ("", nil) when there is
// nothing to report.
func checkFieldRef(f ast.FieldRef, clause string, scope *Scope, reg *registry.Registry) (string, error) {
	alias := f.Alias
	if alias == "" {
		alias = scope.RootAlias
	}

	entity, ok := scope.entity(alias)
	if !ok {
		return "", &errs.ValidationError{
			Message:          fmt.Sprintf("alias %q is not declared", alias),
			Clause:           clause,
			AvailableAliases: scope.AvailableAliases(),
		}
	}
	if _, unresolved := scope.unresolved[alias]; unresolved {
		return "", nil
	}

	table, ok := reg.EntityToTable[entity]
	if !ok {
		return "", nil
	}
	if reg.HasColumns(table) && !reg.HasColumn(table, f.Name) {
		return fmt.Sprintf(
			"field %q is not a recognized column of entity %q (in %s); check for a typo, a missing navigationPropertyOverrides entry, or a computed field",
			f.Name, entity, clause), nil
	}
	return "", nil
}

func appendIfWarn(warnings []string, w string) []string {
	if w != "" {
		return append(warnings, w)
	}
	return warnings
}

// checkWhere walks the WHERE tree, enforcing the alias-declared invariant
// (fatal) and collecting unknown-column / depth / string-length warnings.
func checkWhere(expr ast.WhereExpr, scope *Scope, reg *registry.Registry, depth int) ([]string, error) {
	if depth > maxWhereDepth {
		return []string{fmt.Sprintf("WHERE nesting exceeds depth %d; not validating further", maxWhereDepth)}, nil
	}

	switch e := expr.(type) {
	case *ast.Compare:
		alias := e.Field.Alias
		if alias == "" {
			alias = scope.RootAlias
		}
		if _, ok := scope.entity(alias); !ok {
			return nil, &errs.ValidationError{
				Message:          fmt.Sprintf("alias %q is not declared", alias),
				Clause:           "WHERE",
				AvailableAliases: scope.AvailableAliases(),
			}
		}
		var warnings []string
		w, err := checkFieldRef(e.Field, "WHERE", scope, reg)
		if err != nil {
			return nil, err
		}
		if w != "" {
			warnings = append(warnings, w)
		}
		if s, ok := e.Value.(ast.Str); ok && len(string(s)) > maxStringLen {
			warnings = append(warnings, fmt.Sprintf("WHERE string value on field %q exceeds %d characters", e.Field.Name, maxStringLen))
		}
		return warnings, nil

	case *ast.Logical:
		left, err := checkWhere(e.Left, scope, reg, depth+1)
		if err != nil {
			return nil, err
		}
		right, err := checkWhere(e.Right, scope, reg, depth+1)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil

	case *ast.Not:
		return checkWhere(e.Child, scope, reg, depth+1)

	default:
		return nil, errs.Internal("unknown WhereExpr variant %T", expr)
	}
}

// suggestEntity offers a singular/plural guess when the root entity is
// unknown, the sole use of the inflection dependency in this module — it
// never renames anything on the translation path, only in this message.
func suggestEntity(entity string, reg *registry.Registry) string {
	for _, candidate := range []string{pluralize(entity), singularize(entity)} {
		if candidate == entity {
			continue
		}
		if _, ok := reg.EntityToTable[candidate]; ok {
			return fmt.Sprintf("did you mean %q?", candidate)
		}
	}
	return ""
}

// pluralize/singularize are defined in inflect.go to keep the
// jinzhu/inflection import isolated and easy to audit.
