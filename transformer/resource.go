package transformer

import "github.com/identitymgmt/squery/registry"

// resourceTypeCode looks up the numeric Type code UR_Resources stores for
// a concrete resource entity type. Transform uses it to restrict a join
// whose ":TypeName" suffix or "of type" clause names a registered
// resource entity type; the root entity-type filter reads
// ResourceEntityTypes directly.
func resourceTypeCode(reg *registry.Registry, entity string) (int, bool) {
	ret, ok := reg.ResourceEntityTypes[entity]
	if !ok {
		return 0, false
	}
	return ret.EntityTypeID, true
}

// resourceColumn resolves field against a resource entity type's column
// map (spec §4.4.4 rule 2): try field as-is first; if that misses and
// field ends in "_Id" (length > 3), retry with the suffix stripped, so a
// nav-prop's "_Id" FK column can reuse the same map entry as its bare
// relationship name (e.g. "PresenceState_Id" falling back to
// "PresenceState").
func resourceColumn(reg *registry.Registry, entity, field string) (string, bool) {
	ret, ok := reg.ResourceEntityTypes[entity]
	if !ok {
		return "", false
	}
	if col, ok := ret.Columns[field]; ok {
		return col, true
	}
	if len(field) > 3 && len(field) > len("_Id") {
		if base, stripped := strippedID(field); stripped {
			if col, ok := ret.Columns[base]; ok {
				return col, true
			}
		}
	}
	return "", false
}

func strippedID(field string) (string, bool) {
	const suffix = "_Id"
	if len(field) <= len(suffix) || field[len(field)-len(suffix):] != suffix {
		return "", false
	}
	return field[:len(field)-len(suffix)], true
}
