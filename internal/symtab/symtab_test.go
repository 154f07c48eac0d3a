package symtab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/db47h/pldc/internal/symtab"
	"github.com/db47h/pldc/internal/types"
)

func TestAddLocal_allocatesGrowingOffsets(t *testing.T) {
	tbl := symtab.NewTable()
	g := tbl.Global()

	a, err := tbl.AddLocal(g, "a", types.TInt, 0)
	require.NoError(t, err)
	b, err := tbl.AddLocal(g, "b", types.TInt, 0)
	require.NoError(t, err)

	assert.Equal(t, 4, a.Offset)
	assert.Equal(t, 8, b.Offset)
}

func TestAddLocal_rejectsRedeclarationInSameScope(t *testing.T) {
	tbl := symtab.NewTable()
	g := tbl.Global()

	_, err := tbl.AddLocal(g, "x", types.TInt, 0)
	require.NoError(t, err)

	_, err = tbl.AddLocal(g, "x", types.TInt, 0)
	assert.Error(t, err)
}

func TestAddLocal_arrayUsesFourByteStridePerElement(t *testing.T) {
	tbl := symtab.NewTable()
	g := tbl.Global()

	arr, err := tbl.AddLocal(g, "arr", types.TFloat, 5)
	require.NoError(t, err)
	assert.Equal(t, 20, arr.Offset) // 4 bytes/element even for float (SPEC_FULL §11.i)
}

func TestOpenScope_inheritsParentCursor(t *testing.T) {
	tbl := symtab.NewTable()
	g := tbl.Global()
	_, err := tbl.AddLocal(g, "a", types.TInt, 0)
	require.NoError(t, err)

	child := tbl.OpenScope(g)
	assert.Equal(t, tbl.CurrentDeclOffset(g), tbl.CurrentDeclOffset(child))

	_, err = tbl.AddLocal(child, "b", types.TInt, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, tbl.CurrentDeclOffset(child))
	assert.Equal(t, 4, tbl.CurrentDeclOffset(g), "parent cursor must not move until Synchronize")
}

func TestSynchronize_reclaimsChildSlotsIntoParent(t *testing.T) {
	tbl := symtab.NewTable()
	g := tbl.Global()
	child := tbl.OpenScope(g)
	_, err := tbl.AddLocal(child, "tmp", types.TInt, 0)
	require.NoError(t, err)

	tbl.Synchronize(child)
	assert.Equal(t, tbl.CurrentDeclOffset(child), tbl.CurrentDeclOffset(g))
}

func TestFindVisible_walksOuterScopes(t *testing.T) {
	tbl := symtab.NewTable()
	g := tbl.Global()
	_, err := tbl.AddGlobal("counter", types.TInt)
	require.NoError(t, err)

	child := tbl.OpenScope(g)
	grandchild := tbl.OpenScope(child)

	sym, ok := tbl.FindVisible(grandchild, "counter")
	require.True(t, ok)
	assert.Equal(t, "counter", sym.Name)
	assert.Equal(t, symtab.Global, sym.Storage)

	_, ok = tbl.FindInScope(grandchild, "counter")
	assert.False(t, ok, "FindInScope must not chain to enclosing scopes")
}

func TestAddTempConstant_isConstantAndNeverCollides(t *testing.T) {
	tbl := symtab.NewTable()
	g := tbl.Global()

	t1 := tbl.AddTempConstant(g, types.TFloat, "3.14")
	assert.True(t, t1.IsConstant())
	assert.Equal(t, "3.14", t1.ConstValue())
	assert.True(t, symtab.IsTemp(t1.Name))

	t2 := tbl.AddTempConstant(g, types.TInt, "1")
	assert.NotEqual(t, t1.Name, t2.Name)
}

func TestFreeLastTemp_rewindsCursor(t *testing.T) {
	tbl := symtab.NewTable()
	g := tbl.Global()

	before := tbl.CurrentDeclOffset(g)
	tbl.AddTemp(g, types.TInt)
	require.NoError(t, tbl.FreeLastTemp(g))
	assert.Equal(t, before, tbl.CurrentDeclOffset(g))
}

func TestFreeLastTemp_errorsWhenNothingToFree(t *testing.T) {
	tbl := symtab.NewTable()
	g := tbl.Global()
	assert.Error(t, tbl.FreeLastTemp(g))
}

func TestConstValue_panicsOnNonConstantSymbol(t *testing.T) {
	tbl := symtab.NewTable()
	g := tbl.Global()
	sym, err := tbl.AddLocal(g, "x", types.TInt, 0)
	require.NoError(t, err)
	assert.Panics(t, func() { sym.ConstValue() })
}
