package sema_test

import (
	"strings"
	"testing"

	"github.com/db47h/pldc/internal/ast"
	"github.com/db47h/pldc/internal/sema"
	"github.com/db47h/pldc/internal/types"
)

func node(k ast.Kind) *ast.Node { return &ast.Node{Kind: k} }

func program(decls ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.Program, Children: decls}
}

func block(stmts ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.Block, Children: stmts}
}

func TestAnalyze_redeclarationInSameScope(t *testing.T) {
	body := block(
		&ast.Node{Kind: ast.VarDecl, Name: "x", Type: types.TInt, Pos: ast.Pos{Line: 2, Column: 5}},
		&ast.Node{Kind: ast.VarDecl, Name: "x", Type: types.TInt, Pos: ast.Pos{Line: 3, Column: 5}},
	)
	prog := program(&ast.Node{Kind: ast.FuncDecl, Name: "main", Type: types.TInt, Body: body})

	_, err := sema.New().Analyze(prog)
	if err == nil {
		t.Fatal("expected a redeclaration error")
	}
	if !strings.Contains(err.Error(), "redeclaration") {
		t.Errorf("expected a redeclaration message, got %q", err.Error())
	}
}

func TestAnalyze_usedBeforeDeclaration(t *testing.T) {
	body := block(
		&ast.Node{Kind: ast.ExprStmt, Expr: &ast.Node{Kind: ast.Ident, Name: "y", Pos: ast.Pos{Line: 1, Column: 1}}},
	)
	prog := program(&ast.Node{Kind: ast.FuncDecl, Name: "main", Type: types.TInt, Body: body})

	_, err := sema.New().Analyze(prog)
	if err == nil {
		t.Fatal("expected a use-before-declaration error")
	}
	if !strings.Contains(err.Error(), "used before declaration") {
		t.Errorf("expected a use-before-declaration message, got %q", err.Error())
	}
}

func TestAnalyze_unusedLocalWarning(t *testing.T) {
	body := block(
		&ast.Node{Kind: ast.VarDecl, Name: "unused", Type: types.TInt, Pos: ast.Pos{Line: 4, Column: 5}},
		&ast.Node{Kind: ast.Return, Init: &ast.Node{Kind: ast.IntLit, IntVal: 0}},
	)
	prog := program(&ast.Node{Kind: ast.FuncDecl, Name: "main", Type: types.TInt, Body: body})

	diags, err := sema.New().Analyze(prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, d := range diags {
		if strings.Contains(d.Message, "declared but not used") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an unused-variable warning, got %+v", diags)
	}
}

func TestAnalyze_globalInitializerMustBeConstant(t *testing.T) {
	prog := program(&ast.Node{
		Kind: ast.VarDecl, Name: "g", Type: types.TInt,
		Init: &ast.Node{Kind: ast.Ident, Name: "other"},
		Pos:  ast.Pos{Line: 1, Column: 1},
	})

	_, err := sema.New().Analyze(prog)
	if err == nil {
		t.Fatal("expected an error for a non-constant global initializer")
	}
	if !strings.Contains(err.Error(), "must be initialized with a constant") {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestAnalyze_mutualRecursionResolves(t *testing.T) {
	paramN := &ast.Node{Kind: ast.ParamDecl, Name: "n", Type: types.TInt}
	isEven := &ast.Node{
		Kind: ast.FuncDecl, Name: "is_even", Type: types.TInt,
		Children: []*ast.Node{paramN},
		Body: block(&ast.Node{
			Kind: ast.Return,
			Init: &ast.Node{Kind: ast.CallExpr, Callee: "is_odd", Args: []*ast.Node{{Kind: ast.Ident, Name: "n"}}},
		}),
	}
	isOdd := &ast.Node{
		Kind: ast.FuncDecl, Name: "is_odd", Type: types.TInt,
		Children: []*ast.Node{paramN},
		Body: block(&ast.Node{
			Kind: ast.Return,
			Init: &ast.Node{Kind: ast.CallExpr, Callee: "is_even", Args: []*ast.Node{{Kind: ast.Ident, Name: "n"}}},
		}),
	}
	prog := program(isEven, isOdd)

	if _, err := sema.New().Analyze(prog); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
