// Package registry holds the Schema Registry described by spec §3.3: a
// process-wide, read-only-after-construction set of keyed tables that the
// Validator and Transformer consult to resolve entities, joins, and
// column names. The core never builds one itself — external loaders
// (registry/yamlloader.go here, or a CSV/introspection/swagger loader
// elsewhere) populate it once at process start.
package registry

// ForeignKey is the value side of TableFKs: a local column points at a
// single (table, column) pair on another table.
type ForeignKey struct {
	ReferencedTable  string
	ReferencedColumn string
}

// NavKey is the composite key for NavOverrides — spec's "entity name ×
// nav-prop name" pair, expressed as a comparable struct instead of a
// delimited string so a typo in a separator can't create a silent
// collision.
type NavKey struct {
	Entity  string
	NavProp string
}

// NavOverride is an explicit navigation-property declaration (spec
// §3.3's nav_overrides value).
type NavOverride struct {
	TargetTable     string
	TargetEntity    string
	LocalKey        string
	ForeignKey      string
	JoinType        string // "" defaults to LEFT at transform time
	ResourceSubType string // "" unless this nav-prop targets UR_Resources
}

// EntityField is the composite key for EntityColumnOverrides.
type EntityField struct {
	Entity string
	Field  string
}

// ResourceEntityType is a concrete subtype of the polymorphic
// UR_Resources table (spec glossary: "Resource entity type").
type ResourceEntityType struct {
	EntityTypeID int
	Alias        string
	Columns      map[string]string // prop name -> "C..." column
}

// ResourceNavProp is a nav-prop resolvable only because the parent entity
// is a resource entity type (spec §3.3's resource_nav_props).
type ResourceNavProp struct {
	TargetTable  string // always UR_Resources in practice
	TargetEntity string
	LocalKey     string // "" triggers the "<NavProp>_Id" / "Id" FK convention
	ForeignKey   string
}

// Registry is the read-only data structure described by spec §3.3.
type Registry struct {
	EntityToTable         map[string]string
	TableToEntity         map[string]string
	EntityAlias           map[string]string
	TableColumns          map[string]map[string]struct{}
	TableFKs              map[string]map[string]ForeignKey
	NavOverrides          map[NavKey]NavOverride
	GlobalColumnRenames   map[string]string
	EntityColumnOverrides map[EntityField]string
	ResourceEntityTypes   map[string]ResourceEntityType
	ResourceNavProps      map[string]ResourceNavProp
}

// New returns an empty Registry ready for a loader to populate via the
// Add* methods. The zero value is not usable directly because its maps
// are nil.
func New() *Registry {
	return &Registry{
		EntityToTable:         map[string]string{},
		TableToEntity:         map[string]string{},
		EntityAlias:           map[string]string{},
		TableColumns:          map[string]map[string]struct{}{},
		TableFKs:              map[string]map[string]ForeignKey{},
		NavOverrides:          map[NavKey]NavOverride{},
		GlobalColumnRenames:   map[string]string{},
		EntityColumnOverrides: map[EntityField]string{},
		ResourceEntityTypes:   map[string]ResourceEntityType{},
		ResourceNavProps:      map[string]ResourceNavProp{},
	}
}

// AddEntity binds entity to table and alias, keeping EntityToTable and
// TableToEntity as mutual inverses (spec §3.3 invariant).
func (r *Registry) AddEntity(entity, table, alias string) {
	r.EntityToTable[entity] = table
	r.TableToEntity[table] = entity
	if alias != "" {
		r.EntityAlias[entity] = alias
	}
}

// AddColumns records table's known column set for validation purposes.
func (r *Registry) AddColumns(table string, columns ...string) {
	set, ok := r.TableColumns[table]
	if !ok {
		set = map[string]struct{}{}
		r.TableColumns[table] = set
	}
	for _, c := range columns {
		set[c] = struct{}{}
	}
}

// AddForeignKey records that table.localColumn references
// refTable.refColumn, used by nav-prop auto-deduction (spec §4.4.2).
func (r *Registry) AddForeignKey(table, localColumn, refTable, refColumn string) {
	fks, ok := r.TableFKs[table]
	if !ok {
		fks = map[string]ForeignKey{}
		r.TableFKs[table] = fks
	}
	fks[localColumn] = ForeignKey{ReferencedTable: refTable, ReferencedColumn: refColumn}
}

// AddNavOverride records an explicit nav-prop declaration.
func (r *Registry) AddNavOverride(entity, navProp string, ov NavOverride) {
	r.NavOverrides[NavKey{Entity: entity, NavProp: navProp}] = ov
}

// AddResourceEntityType records a concrete UR_Resources subtype.
func (r *Registry) AddResourceEntityType(entity string, ret ResourceEntityType) {
	if ret.Columns == nil {
		ret.Columns = map[string]string{}
	}
	r.ResourceEntityTypes[entity] = ret
}

// HasColumns reports whether table's column set was ever populated —
// distinguishes "known empty set" from "never loaded," which the
// Validator needs to decide whether an unknown-column warning applies at
// all (spec §4.3.2: "if the Registry knows the entity's column set").
func (r *Registry) HasColumns(table string) bool {
	_, ok := r.TableColumns[table]
	return ok
}

// HasColumn reports whether table is known to have column col.
func (r *Registry) HasColumn(table, col string) bool {
	set, ok := r.TableColumns[table]
	if !ok {
		return false
	}
	_, ok = set[col]
	return ok
}

// QualifiedTable wraps a raw table name as "[dbo].[Name]" unless it
// already carries a bracketed schema prefix (spec §3.3 invariant: any
// nav_overrides target_table lacking a schema prefix is treated as raw
// and wrapped on read).
func QualifiedTable(raw string) string {
	if len(raw) > 0 && raw[0] == '[' {
		return raw
	}
	return "[dbo].[" + raw + "]"
}
