package x86_64_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/db47h/pldc/internal/ast"
	"github.com/db47h/pldc/internal/ir"
	"github.com/db47h/pldc/internal/target"
	_ "github.com/db47h/pldc/internal/target/x86_64"
	"github.com/db47h/pldc/internal/types"
)

func intLit(v int64) *ast.Node    { return &ast.Node{Kind: ast.IntLit, IntVal: v} }
func ident(name string) *ast.Node { return &ast.Node{Kind: ast.Ident, Name: name} }

func block(stmts ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.Block, Children: stmts}
}

func returnStmt(v *ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.Return, Init: v}
}

func funcDecl(name string, ret types.Type, params []*ast.Node, body *ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.FuncDecl, Name: name, Type: ret, Children: params, Body: body}
}

func program(decls ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.Program, Children: decls}
}

func compile(t *testing.T, prog *ast.Node) string {
	t.Helper()
	ctx := ir.NewContext()
	cfgs, err := ir.NewBuilder(ctx).BuildProgram(prog)
	require.NoError(t, err)

	backend, err := target.Select("x86-64")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, backend.Emit(&buf, ctx, cfgs))
	return buf.String()
}

// return 42 lowers to a literal move into %eax and a leave/ret epilogue.
func TestEmit_returnLiteral(t *testing.T) {
	prog := program(funcDecl("main", types.TInt, nil, block(returnStmt(intLit(42)))))
	asm := compile(t, prog)

	assert.Contains(t, asm, ".globl main")
	assert.Contains(t, asm, "$42")
	assert.Contains(t, asm, "%eax")
	assert.Contains(t, asm, "leave")
	assert.Contains(t, asm, "ret")
}

// a*b+1 exercises both an integer multiply and an add against an immediate,
// with both parameters spilled from their ABI registers on entry.
func TestEmit_arithmeticExpression(t *testing.T) {
	expr := &ast.Node{
		Kind: ast.BinaryExpr, BinOp: ast.Add,
		Lhs: &ast.Node{Kind: ast.BinaryExpr, BinOp: ast.Mul, Lhs: ident("a"), Rhs: ident("b")},
		Rhs: intLit(1),
	}
	params := []*ast.Node{
		{Kind: ast.ParamDecl, Name: "a", Type: types.TInt},
		{Kind: ast.ParamDecl, Name: "b", Type: types.TInt},
	}
	prog := program(funcDecl("f", types.TInt, params, block(returnStmt(expr))))
	asm := compile(t, prog)

	assert.Contains(t, asm, ".globl f")
	assert.Contains(t, asm, "%edi") // first int param spilled from its ABI register
	assert.Contains(t, asm, "%esi")
	assert.True(t, strings.Contains(asm, "imul") || strings.Contains(asm, "mul"), "expected an integer multiply, got:\n%s", asm)
}

// Mutual recursion: both functions must appear with their own labels and a
// direct call instruction must reference the callee by name.
func TestEmit_mutualRecursionCallSites(t *testing.T) {
	isOddBody := block(returnStmt(&ast.Node{
		Kind: ast.CompareExpr, CmpOp: ast.Eq,
		Lhs: &ast.Node{Kind: ast.BinaryExpr, BinOp: ast.Mod, Lhs: ident("n"), Rhs: intLit(2)},
		Rhs: intLit(1),
	}))
	isEvenBody := block(
		&ast.Node{
			Kind: ast.If,
			Cond: &ast.Node{Kind: ast.CompareExpr, CmpOp: ast.Eq, Lhs: ident("n"), Rhs: intLit(0)},
			Then: block(returnStmt(intLit(1))),
		},
		returnStmt(&ast.Node{
			Kind: ast.CallExpr, Callee: "is_odd",
			Args: []*ast.Node{{Kind: ast.BinaryExpr, BinOp: ast.Sub, Lhs: ident("n"), Rhs: intLit(1)}},
		}),
	)
	params := []*ast.Node{{Kind: ast.ParamDecl, Name: "n", Type: types.TInt}}
	prog := program(
		funcDecl("is_even", types.TInt, params, isEvenBody),
		funcDecl("is_odd", types.TInt, params, isOddBody),
	)
	asm := compile(t, prog)

	assert.Contains(t, asm, ".globl is_even")
	assert.Contains(t, asm, ".globl is_odd")
	assert.Contains(t, asm, "call is_odd")
}

// A float-typed function routes its return value through %xmm0, not %eax.
func TestEmit_floatReturnUsesXmm0(t *testing.T) {
	prog := program(funcDecl("half", types.TFloat, nil, block(returnStmt(&ast.Node{Kind: ast.FloatLit, FloatVal: 0.5}))))
	asm := compile(t, prog)

	assert.Contains(t, asm, "%xmm0")
	assert.NotContains(t, asm, "$0.5") // float immediates are interned into .rodata, never inlined
}

// Backend.Name reports the selector string used by target.Select.
func TestBackendName(t *testing.T) {
	b, err := target.Select("x86-64")
	require.NoError(t, err)
	assert.Equal(t, "x86-64", b.Name())
}
