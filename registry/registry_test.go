package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddEntityKeepsInverseMapping(t *testing.T) {
	r := New()
	r.AddEntity("Users", "UM_Users", "u")
	assert.Equal(t, "UM_Users", r.EntityToTable["Users"])
	assert.Equal(t, "Users", r.TableToEntity["UM_Users"])
	assert.Equal(t, "u", r.EntityAlias["Users"])
}

func TestHasColumnsDistinguishesUnloadedFromEmpty(t *testing.T) {
	r := New()
	assert.False(t, r.HasColumns("UM_Users"))
	r.AddColumns("UM_Users")
	assert.True(t, r.HasColumns("UM_Users"))
	assert.False(t, r.HasColumn("UM_Users", "Name"))
}

func TestQualifiedTableWrapsUnlessAlreadyBracketed(t *testing.T) {
	assert.Equal(t, "[dbo].[UM_Users]", QualifiedTable("UM_Users"))
	assert.Equal(t, "[sec].[Users]", QualifiedTable("[sec].[Users]"))
}

func TestAddForeignKeyLookup(t *testing.T) {
	r := New()
	r.AddForeignKey("UM_Requests", "Owner_Id", "UM_Users", "Id")
	fk, ok := r.TableFKs["UM_Requests"]["Owner_Id"]
	assert.True(t, ok)
	assert.Equal(t, "UM_Users", fk.ReferencedTable)
	assert.Equal(t, "Id", fk.ReferencedColumn)
}

func TestNavKeyIsComparableMapKey(t *testing.T) {
	r := New()
	r.AddNavOverride("Requests", "Owner", NavOverride{TargetEntity: "Users"})
	ov, ok := r.NavOverrides[NavKey{Entity: "Requests", NavProp: "Owner"}]
	assert.True(t, ok)
	assert.Equal(t, "Users", ov.TargetEntity)
}
