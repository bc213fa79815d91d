package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlDoc mirrors the on-disk shape a Schema Registry fixture takes.
// This is one acceptable external loader spec §3.3 anticipates — the
// core (lexer/parser/validator/transformer/builder) never imports this
// file; only callers that want a ready-made Registry for tests or the
// demonstration CLI do.
type yamlDoc struct {
	Entities map[string]struct {
		Table   string   `yaml:"table"`
		Alias   string   `yaml:"alias"`
		Columns []string `yaml:"columns"`
	} `yaml:"entities"`

	ForeignKeys []struct {
		Table            string `yaml:"table"`
		Column           string `yaml:"column"`
		ReferencedTable  string `yaml:"referencedTable"`
		ReferencedColumn string `yaml:"referencedColumn"`
	} `yaml:"foreignKeys"`

	NavigationPropertyOverrides []struct {
		Entity          string `yaml:"entity"`
		NavProp         string `yaml:"navProp"`
		TargetTable     string `yaml:"targetTable"`
		TargetEntity    string `yaml:"targetEntity"`
		LocalKey        string `yaml:"localKey"`
		ForeignKey      string `yaml:"foreignKey"`
		JoinType        string `yaml:"joinType"`
		ResourceSubType string `yaml:"resourceSubType"`
	} `yaml:"navigationPropertyOverrides"`

	GlobalColumnRenames map[string]string `yaml:"globalColumnRenames"`

	EntityColumnOverrides []struct {
		Entity string `yaml:"entity"`
		Field  string `yaml:"field"`
		Column string `yaml:"column"`
	} `yaml:"entityColumnOverrides"`

	ResourceEntityTypes map[string]struct {
		EntityTypeID int               `yaml:"entityTypeId"`
		Alias        string            `yaml:"alias"`
		Columns      map[string]string `yaml:"columns"`
	} `yaml:"resourceEntityTypes"`

	ResourceNavProps map[string]struct {
		TargetTable  string `yaml:"targetTable"`
		TargetEntity string `yaml:"targetEntity"`
		LocalKey     string `yaml:"localKey"`
		ForeignKey   string `yaml:"foreignKey"`
	} `yaml:"resourceNavProps"`
}

// LoadYAML builds a Registry from a YAML fixture file of the shape
// yamlDoc describes. It is a reference loader, not the only possible
// one: a production deployment might introspect SQL Server's own
// information_schema instead, but test fixtures and the demonstration
// CLI use this one.
func LoadYAML(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry fixture %s: %w", path, err)
	}

	var doc yamlDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing registry fixture %s: %w", path, err)
	}

	reg := New()

	for entity, def := range doc.Entities {
		reg.AddEntity(entity, def.Table, def.Alias)
		if len(def.Columns) > 0 {
			reg.AddColumns(def.Table, def.Columns...)
		}
	}

	for _, fk := range doc.ForeignKeys {
		reg.AddForeignKey(fk.Table, fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
	}

	for _, ov := range doc.NavigationPropertyOverrides {
		reg.AddNavOverride(ov.Entity, ov.NavProp, NavOverride{
			TargetTable:     ov.TargetTable,
			TargetEntity:    ov.TargetEntity,
			LocalKey:        ov.LocalKey,
			ForeignKey:      ov.ForeignKey,
			JoinType:        ov.JoinType,
			ResourceSubType: ov.ResourceSubType,
		})
	}

	for k, v := range doc.GlobalColumnRenames {
		reg.GlobalColumnRenames[k] = v
	}

	for _, eco := range doc.EntityColumnOverrides {
		reg.EntityColumnOverrides[EntityField{Entity: eco.Entity, Field: eco.Field}] = eco.Column
	}

	for entity, ret := range doc.ResourceEntityTypes {
		reg.AddResourceEntityType(entity, ResourceEntityType{
			EntityTypeID: ret.EntityTypeID,
			Alias:        ret.Alias,
			Columns:      ret.Columns,
		})
	}

	for navProp, rnp := range doc.ResourceNavProps {
		reg.ResourceNavProps[navProp] = ResourceNavProp{
			TargetTable:  rnp.TargetTable,
			TargetEntity: rnp.TargetEntity,
			LocalKey:     rnp.LocalKey,
			ForeignKey:   rnp.ForeignKey,
		}
	}

	return reg, nil
}
