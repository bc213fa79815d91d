package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identitymgmt/squery/ast"
	"github.com/identitymgmt/squery/errs"
	"github.com/identitymgmt/squery/registry"
)

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.AddEntity("Requests", "UM_Requests", "r")
	reg.AddColumns("UM_Requests", "Id", "Comment", "Owner_Id")
	reg.AddEntity("Users", "UM_Users", "u")
	reg.AddColumns("UM_Users", "Id", "Name")
	reg.AddForeignKey("UM_Requests", "Owner_Id", "UM_Users", "Id")
	return reg
}

func TestValidateUnknownRootEntityIsFatal(t *testing.T) {
	q := &ast.Query{RootEntity: "NotAThing"}
	_, err := Validate(q, testRegistry())
	require.Error(t, err)
	var uerr *errs.UnknownEntityError
	assert.ErrorAs(t, err, &uerr)
}

func TestValidateDuplicateAliasIsFatal(t *testing.T) {
	q := &ast.Query{
		RootEntity: "Requests",
		Joins: []ast.Join{
			{Path: ast.EntityPath{NavProp: "Owner"}, Alias: "r"}, // collides with root alias "r"
		},
	}
	_, err := Validate(q, testRegistry())
	require.Error(t, err)
	var verr *errs.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestValidateUndeclaredAliasInSelectIsFatal(t *testing.T) {
	q := &ast.Query{
		RootEntity: "Requests",
		Select:     []ast.FieldRef{{Alias: "zz", Name: "Comment"}},
	}
	_, err := Validate(q, testRegistry())
	require.Error(t, err)
}

func TestValidateUnresolvedNavPropWarnsInsteadOfFailing(t *testing.T) {
	q := &ast.Query{
		RootEntity: "Requests",
		Joins:      []ast.Join{{Path: ast.EntityPath{NavProp: "Nonexistent"}, Alias: "x"}},
	}
	res, err := Validate(q, testRegistry())
	require.NoError(t, err)
	assert.Contains(t, res.Unresolved, "x")
	assert.NotEmpty(t, res.Warnings)
}

func TestValidateNegativeTopIsFatal(t *testing.T) {
	q := &ast.Query{RootEntity: "Requests", Top: -1}
	_, err := Validate(q, testRegistry())
	require.Error(t, err)
}

func TestValidateLargeTopWarns(t *testing.T) {
	q := &ast.Query{RootEntity: "Requests", Top: 20000, Select: []ast.FieldRef{{Name: "Id"}}}
	res, err := Validate(q, testRegistry())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warnings)
}

func TestValidateJoinReferencingAliasDeclaredLaterFails(t *testing.T) {
	q := &ast.Query{
		RootEntity: "Requests",
		Joins: []ast.Join{
			{Path: ast.EntityPath{ParentAlias: "later", NavProp: "Name"}, Alias: "early"},
			{Path: ast.EntityPath{NavProp: "Owner"}, Alias: "later"},
		},
	}
	_, err := Validate(q, testRegistry())
	require.Error(t, err)
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, `"later"`)
}

func TestValidateWhereNestingBeyondMaxDepthWarns(t *testing.T) {
	var expr ast.WhereExpr = &ast.Compare{Field: ast.FieldRef{Name: "Comment"}, Op: "=", Value: ast.Str("x")}
	for i := 0; i < maxWhereDepth+2; i++ {
		expr = &ast.Not{Child: expr}
	}
	q := &ast.Query{RootEntity: "Requests", Select: []ast.FieldRef{{Name: "Id"}}, Where: expr}
	res, err := Validate(q, testRegistry())
	require.NoError(t, err)
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "nesting exceeds depth") {
			found = true
		}
	}
	assert.True(t, found, "expected a depth warning, got %v", res.Warnings)
}

func TestValidateFKAutoDeducedJoinResolves(t *testing.T) {
	q := &ast.Query{
		RootEntity: "Requests",
		Joins:      []ast.Join{{Path: ast.EntityPath{NavProp: "Owner"}, Alias: "o"}},
		Select:     []ast.FieldRef{{Alias: "o", Name: "Name"}},
	}
	res, err := Validate(q, testRegistry())
	require.NoError(t, err)
	assert.Empty(t, res.Unresolved)
	assert.Empty(t, res.Warnings)
}

func TestValidateUnknownColumnWarns(t *testing.T) {
	q := &ast.Query{
		RootEntity: "Requests",
		Select:     []ast.FieldRef{{Name: "DoesNotExist"}},
	}
	res, err := Validate(q, testRegistry())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warnings)
}

func TestValidateEmptySQueryWarns(t *testing.T) {
	q := &ast.Query{RootEntity: "Requests"}
	res, err := Validate(q, testRegistry())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warnings)
}
