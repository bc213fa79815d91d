// Package transformer walks a validated AST and fills in a builder.State:
// resolving the root FROM, emitting JOINs in nav-prop resolution order
// (spec §4.4.2), rewriting field names (spec §4.4.4), and rendering the
// WHERE tree, ORDER BY, and TOP (spec §4.4.5/§4.4.6). It assumes the
// validator has already run — an alias absent from Scope, or present in
// Unresolved, is treated as already handled rather than re-checked here.
//
// Rendered fragments follow the source dialect's bracket convention
// exactly: table names are schema-qualified and bracket-escaped
// ("[dbo].[UP_Categories]"), while alias.column references are left
// bare ("cat.Id") — only the Registry's physical names ever get
// brackets, never the query's own aliases.
package transformer

import (
	"fmt"
	"strings"

	"github.com/identitymgmt/squery/ast"
	"github.com/identitymgmt/squery/builder"
	"github.com/identitymgmt/squery/registry"
	"github.com/identitymgmt/squery/validator"
)

// navResolution is the full detail the validator's own resolveNavProp
// reduces to a target entity and a found flag: everything the transformer
// needs to emit a JOIN.
type navResolution struct {
	targetEntity    string
	targetTable     string
	localKey        string
	foreignKey      string
	joinType        string
	resourceSubType string
}

// resolveNavProp mirrors the order spec §4.4.2 specifies: an explicit
// navigationPropertyOverrides entry wins, then FK auto-deduction from the
// parent table's own foreign keys, then resource_nav_props for resource
// entity types, then failure. FK convention defaults apply on any match:
// local_key = "<nav_prop>_Id", foreign_key = "Id".
func resolveNavProp(reg *registry.Registry, parentEntity, navProp string) (navResolution, bool) {
	if ov, found := reg.NavOverrides[registry.NavKey{Entity: parentEntity, NavProp: navProp}]; found {
		targetEntity := ov.TargetEntity
		if targetEntity == "" {
			targetEntity = navProp
		}
		targetTable := ov.TargetTable
		if targetTable == "" {
			targetTable = reg.EntityToTable[targetEntity]
		}
		joinType := ov.JoinType
		if joinType == "" {
			joinType = "LEFT"
		}
		localKey := ov.LocalKey
		if localKey == "" {
			localKey = navProp + "_Id"
		}
		foreignKey := ov.ForeignKey
		if foreignKey == "" {
			foreignKey = "Id"
		}
		return navResolution{
			targetEntity: targetEntity, targetTable: targetTable,
			localKey: localKey, foreignKey: foreignKey,
			joinType: joinType, resourceSubType: ov.ResourceSubType,
		}, true
	}

	if table, found := reg.EntityToTable[parentEntity]; found {
		localCol := navProp + "_Id"
		if fk, found := reg.TableFKs[table][localCol]; found {
			targetEntity := reg.TableToEntity[fk.ReferencedTable]
			if targetEntity == "" {
				targetEntity = navProp
			}
			return navResolution{
				targetEntity: targetEntity, targetTable: fk.ReferencedTable,
				localKey: localCol, foreignKey: fk.ReferencedColumn, joinType: "LEFT",
			}, true
		}
	}

	if _, isResource := reg.ResourceEntityTypes[parentEntity]; isResource {
		if rnp, found := reg.ResourceNavProps[navProp]; found {
			targetEntity := rnp.TargetEntity
			if targetEntity == "" {
				targetEntity = navProp
			}
			targetTable := rnp.TargetTable
			if targetTable == "" {
				targetTable = reg.EntityToTable[targetEntity]
			}
			localKey := rnp.LocalKey
			if localKey == "" {
				localKey = navProp + "_Id"
			}
			foreignKey := rnp.ForeignKey
			if foreignKey == "" {
				foreignKey = "Id"
			}
			return navResolution{
				targetEntity: targetEntity, targetTable: targetTable,
				localKey: localKey, foreignKey: foreignKey, joinType: "LEFT",
			}, true
		}
	}

	return navResolution{}, false
}

// resolveColumn rewrites a SQuery field name to its physical column per
// spec §4.4.4, in order: entity_column_overrides, the resource column
// map, global_column_renames, the FK auto-rename convention ("FooId" ->
// "Foo_Id", never applied to "Id" itself), then pass-through. The FK
// auto-rename step only fires when field is not already a real column on
// the entity's table — a physical "ParentId" column must not be rewritten
// just because it happens to match the convention's shape.
func resolveColumn(reg *registry.Registry, entity, field string) string {
	if col, ok := reg.EntityColumnOverrides[registry.EntityField{Entity: entity, Field: field}]; ok {
		return col
	}
	if col, ok := resourceColumn(reg, entity, field); ok {
		return col
	}
	if col, ok := reg.GlobalColumnRenames[field]; ok {
		return col
	}
	table := reg.EntityToTable[entity]
	if !reg.HasColumn(table, field) {
		if renamed, ok := fkAutoRename(field); ok {
			return renamed
		}
	}
	return field
}

// fkAutoRename turns "FooId" into "Foo_Id". "Id" itself, fields already
// underscored, and fields too short to have a base name pass through.
func fkAutoRename(field string) (string, bool) {
	if field == "Id" || !strings.HasSuffix(field, "Id") || strings.HasSuffix(field, "_Id") {
		return "", false
	}
	base := strings.TrimSuffix(field, "Id")
	if base == "" {
		return "", false
	}
	return base + "_Id", true
}

// Transform produces the SQL-ready builder.State for a validated query.
// vres is the validator.Result from the same query: its Scope supplies
// the root alias, and its Unresolved set marks joins the transformer must
// skip because the validator already warned about them. The alias->entity
// bindings in the State's AliasTypes are rebuilt here as each join is
// resolved.
func Transform(query *ast.Query, vres *validator.Result, reg *registry.Registry) (*builder.State, []string) {
	var warnings []string
	st := builder.New()

	rootEntity := query.RootEntity
	rootAlias := vres.Scope.RootAlias
	rootTable := reg.EntityToTable[rootEntity]
	st.From = fmt.Sprintf("%s %s", registry.QualifiedTable(rootTable), rootAlias)
	st.AliasTypes[rootAlias] = rootEntity

	// Root entity-type filter (spec §4.4.1). A known id>0 becomes a WHERE
	// predicate combined with any user WHERE; an id==0 (declared but
	// unknown) becomes an INNER JOIN through UM_EntityTypes that leaves
	// the user WHERE untouched — the Open Question 1 resolution.
	var rootTypeFilter string
	if ret, isResource := reg.ResourceEntityTypes[rootEntity]; isResource {
		if ret.EntityTypeID > 0 {
			rootTypeFilter = fmt.Sprintf("%s.Type = %d", rootAlias, ret.EntityTypeID)
		} else {
			etAlias := rootAlias + "_et"
			st.AddJoin(fmt.Sprintf(
				"INNER JOIN %s %s ON %s.Id = %s.Type AND %s.Identifier = %s",
				registry.QualifiedTable("UM_EntityTypes"), etAlias, etAlias, rootAlias, etAlias, builder.Literal(ast.Str(rootEntity))))
		}
	}

	for _, join := range query.Joins {
		if _, skip := vres.Unresolved[join.Alias]; skip {
			continue
		}

		parentAlias := join.Path.ParentAlias
		if parentAlias == "" {
			parentAlias = rootAlias
		}
		parentEntity := st.AliasTypes[parentAlias]

		resolved, ok := resolveNavProp(reg, parentEntity, join.Path.NavProp)
		if !ok {
			continue // the validator already recorded this as unresolved
		}

		targetEntity := resolved.targetEntity
		targetTable := resolved.targetTable
		if targetTable == "" {
			targetTable = targetEntity
		}
		joinType := resolved.joinType
		if joinType == "" {
			joinType = "LEFT"
		}

		if resolved.resourceSubType != "" {
			// Resource sub-type double JOIN (spec §4.4.3): a type lookup
			// by Identifier, then the target join restricted to that type.
			etAlias := join.Alias + "_et"
			st.AddJoin(fmt.Sprintf("LEFT JOIN %s %s ON %s.Identifier = %s",
				registry.QualifiedTable("UM_EntityTypes"), etAlias, etAlias, builder.Literal(ast.Str(resolved.resourceSubType))))
			onClause := fmt.Sprintf("%s.%s = %s.%s AND %s.Type = %s.Id",
				parentAlias, resolved.localKey, join.Alias, resolved.foreignKey, join.Alias, etAlias)
			st.AddJoin(fmt.Sprintf("%s JOIN %s %s ON %s", joinType, registry.QualifiedTable(targetTable), join.Alias, onClause))
			targetEntity = resolved.resourceSubType
		} else {
			onClause := fmt.Sprintf("%s.%s = %s.%s", parentAlias, resolved.localKey, join.Alias, resolved.foreignKey)

			// A ":TypeName" path segment or "of type X" clause further
			// restricts a join onto a resource entity type by its numeric
			// Type code, when the name actually is a registered resource
			// entity type.
			subtype := join.Path.TypeSuffix
			if subtype == "" {
				subtype = join.TypeFilter
			}
			if subtype != "" {
				if code, ok := resourceTypeCode(reg, subtype); ok {
					onClause += fmt.Sprintf(" AND %s.Type = %d", join.Alias, code)
					targetEntity = subtype
				} else {
					warnings = append(warnings, fmt.Sprintf(
						"join %q declared subtype %q but it is not a registered resource entity type; the type filter was skipped", join.Alias, subtype))
				}
			}

			st.AddJoin(fmt.Sprintf("%s JOIN %s %s ON %s", joinType, registry.QualifiedTable(targetTable), join.Alias, onClause))
		}

		st.AliasTypes[join.Alias] = targetEntity
	}

	for _, f := range query.Select {
		st.SelectList = append(st.SelectList, renderFieldRef(reg, st, rootAlias, f))
	}

	var whereParts []string
	userWhere := ""
	if query.Where != nil {
		userWhere = renderWhere(query.Where, reg, st, rootAlias)
	}
	switch {
	case rootTypeFilter != "" && userWhere != "":
		whereParts = append(whereParts, rootTypeFilter, "("+userWhere+")")
	case rootTypeFilter != "":
		whereParts = append(whereParts, rootTypeFilter)
	case userWhere != "":
		whereParts = append(whereParts, userWhere)
	}
	if len(whereParts) > 0 {
		st.Where = strings.Join(whereParts, " AND ")
	}

	for _, s := range query.OrderBy {
		st.OrderBy = append(st.OrderBy, fmt.Sprintf("%s %s", renderFieldRef(reg, st, rootAlias, s.Field), s.Direction))
	}

	st.Top = query.Top

	return st, warnings
}

// renderFieldRef renders a FieldRef as "alias.Column", defaulting to the
// root alias when the reference is unqualified.
func renderFieldRef(reg *registry.Registry, st *builder.State, rootAlias string, f ast.FieldRef) string {
	alias := f.Alias
	if alias == "" {
		alias = rootAlias
	}
	entity := st.AliasTypes[alias]
	return fmt.Sprintf("%s.%s", alias, resolveColumn(reg, entity, f.Name))
}

// renderWhere recursively renders a WHERE tree (spec §4.4.5): Compare
// leaves become a SQL predicate with every non-null literal lifted into
// a @pN placeholder, Logical wraps both sides in parens, Not wraps its
// child in "NOT (...)" regardless of what that child is — including a
// null-comparison, per the Open Question 3 resolution that leaves
// "NOT (x IS NULL)" untransformed into "x IS NOT NULL".
func renderWhere(expr ast.WhereExpr, reg *registry.Registry, st *builder.State, rootAlias string) string {
	switch e := expr.(type) {
	case *ast.Compare:
		fieldSQL := renderFieldRef(reg, st, rootAlias, e.Field)
		return renderCompare(fieldSQL, e.Op, e.Value, st)

	case *ast.Logical:
		left := renderWhere(e.Left, reg, st, rootAlias)
		right := renderWhere(e.Right, reg, st, rootAlias)
		return fmt.Sprintf("(%s %s %s)", left, e.Op, right)

	case *ast.Not:
		return fmt.Sprintf("NOT (%s)", renderWhere(e.Child, reg, st, rootAlias))

	default:
		return "1=1"
	}
}

func isNullValue(v ast.Value) bool {
	_, ok := v.(ast.Null)
	return ok
}

// renderCompare renders one leaf predicate. Both "%=" and "%=%" bind a
// "%value%" contains-pattern parameter per spec §4.4.5's literal rule —
// the two spellings are not given distinct semantics there, so neither
// is invented here.
func renderCompare(fieldSQL, op string, value ast.Value, st *builder.State) string {
	switch op {
	case "=":
		if isNullValue(value) {
			return fieldSQL + " IS NULL"
		}
		return fmt.Sprintf("%s = %s", fieldSQL, st.NextParam(value))
	case "!=":
		if isNullValue(value) {
			return fieldSQL + " IS NOT NULL"
		}
		// Rendered as SQL Server's own "<>" rather than "!=" verbatim; both
		// are accepted by the engine, see DESIGN.md.
		return fmt.Sprintf("%s <> %s", fieldSQL, st.NextParam(value))
	case "%=", "%=%":
		return fmt.Sprintf("%s LIKE %s", fieldSQL, st.NextParam(ast.Str("%"+likeOperand(value)+"%")))
	default:
		return fmt.Sprintf("%s %s %s", fieldSQL, op, st.NextParam(value))
	}
}

func likeOperand(v ast.Value) string {
	switch val := v.(type) {
	case ast.Str:
		return string(val)
	case ast.Number:
		return val.Raw
	case ast.Bool:
		if bool(val) {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
