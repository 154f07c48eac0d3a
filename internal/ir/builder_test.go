package ir_test

import (
	"testing"

	"github.com/db47h/pldc/internal/ast"
	"github.com/db47h/pldc/internal/ir"
	"github.com/db47h/pldc/internal/types"
)

func intLit(v int64) *ast.Node  { return &ast.Node{Kind: ast.IntLit, IntVal: v} }
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

// A function returning a bare int literal lowers to one block falling
// through to the epilogue with a copy into the hidden retval slot.
func TestBuildFunction_simpleReturn(t *testing.T) {
	prog := program(funcDecl("main", types.TInt, nil, block(returnStmt(intLit(42)))))

	ctx := ir.NewContext()
	cfgs, err := ir.NewBuilder(ctx).BuildProgram(prog)
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	if len(cfgs) != 1 {
		t.Fatalf("expected 1 CFG, got %d", len(cfgs))
	}
	cfg := cfgs[0]
	if cfg.RetVar == "" {
		t.Fatal("expected a retval slot for a non-void function")
	}

	last := cfg.Blocks[len(cfg.Blocks)-1]
	if last.Label != cfg.EpilogueLabel() || !last.IsExit() {
		t.Fatalf("expected the CFG to end in its own epilogue block, got %q (exitTrue=%q exitFalse=%q)", last.Label, last.ExitTrue, last.ExitFalse)
	}

	entry := cfg.Blocks[0]
	if entry.Label != "main" {
		t.Fatalf("expected entry block labelled with the function name, got %q", entry.Label)
	}
	if entry.ExitTrue != cfg.EpilogueLabel() {
		t.Fatalf("expected entry block to fall through to the epilogue, got %q", entry.ExitTrue)
	}
	if len(entry.Instrs) != 1 || entry.Instrs[0].Op != ir.OpLdConst {
		t.Fatalf("expected a single ldconst (copy-of-immediate rewrite), got %+v", entry.Instrs)
	}
}

// Exactly one block in the CFG has both successors empty (spec invariant):
// the epilogue, even when the function body branches.
func TestBuildFunction_singleExitBlock(t *testing.T) {
	cond := &ast.Node{Kind: ast.CompareExpr, CmpOp: ast.Le, Lhs: ident("n"), Rhs: intLit(1)}
	body := block(
		&ast.Node{
			Kind: ast.If,
			Cond: cond,
			Then: block(returnStmt(intLit(1))),
		},
		returnStmt(&ast.Node{Kind: ast.BinaryExpr, BinOp: ast.Mul, Lhs: ident("n"), Rhs: ident("n")}),
	)
	params := []*ast.Node{{Kind: ast.ParamDecl, Name: "n", Type: types.TInt}}
	prog := program(funcDecl("f", types.TInt, params, body))

	ctx := ir.NewContext()
	cfgs, err := ir.NewBuilder(ctx).BuildProgram(prog)
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	cfg := cfgs[0]

	exits := 0
	for _, b := range cfg.Blocks {
		if b.IsExit() {
			exits++
		}
	}
	if exits != 1 {
		t.Fatalf("expected exactly 1 block with no successors, got %d", exits)
	}
}

// Mutual recursion: a call to a function defined later in the same program
// must resolve because signatures are pre-registered before any body walk.
func TestBuildProgram_mutualRecursion(t *testing.T) {
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
	// is_even is declared before is_odd, which it calls: this only resolves
	// because every signature is pre-registered before any body is walked.
	prog := program(
		funcDecl("is_even", types.TInt, params, isEvenBody),
		funcDecl("is_odd", types.TInt, params, isOddBody),
	)

	ctx := ir.NewContext()
	cfgs, err := ir.NewBuilder(ctx).BuildProgram(prog)
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	if len(cfgs) != 2 {
		t.Fatalf("expected 2 CFGs, got %d", len(cfgs))
	}
}

// A while loop wires cond -> {body, after} and body -> cond.
func TestBuildWhile_wiring(t *testing.T) {
	whileStmt := &ast.Node{
		Kind: ast.While,
		Cond: &ast.Node{Kind: ast.CompareExpr, CmpOp: ast.Lt, Lhs: ident("i"), Rhs: intLit(10)},
		Body: block(&ast.Node{
			Kind: ast.Assign,
			Lhs:  ident("i"),
			Rhs:  &ast.Node{Kind: ast.BinaryExpr, BinOp: ast.Add, Lhs: ident("i"), Rhs: intLit(1)},
		}),
	}
	fullBody := block(&ast.Node{Kind: ast.VarDecl, Name: "i", Type: types.TInt, Init: intLit(0)}, whileStmt, returnStmt(ident("i")))
	prog := program(funcDecl("main", types.TInt, nil, fullBody))

	ctx := ir.NewContext()
	cfgs, err := ir.NewBuilder(ctx).BuildProgram(prog)
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	cfg := cfgs[0]

	var condBlock *ir.Block
	for _, b := range cfg.Blocks {
		if b.TestVar != "" {
			condBlock = b
			break
		}
	}
	if condBlock == nil {
		t.Fatal("expected a block carrying the loop's test variable")
	}
	if condBlock.ExitTrue == "" || condBlock.ExitFalse == "" {
		t.Fatalf("expected the condition block to have both successors set, got %+v", condBlock)
	}
}

// Mixed int/float operands in a binary expression force an intToFloat
// conversion and a float result.
func TestEmitBinary_intFloatPromotion(t *testing.T) {
	expr := &ast.Node{Kind: ast.BinaryExpr, BinOp: ast.Add, Lhs: ident("n"), Rhs: &ast.Node{Kind: ast.FloatLit, FloatVal: 1.0}}
	params := []*ast.Node{{Kind: ast.ParamDecl, Name: "n", Type: types.TInt}}
	prog := program(funcDecl("f", types.TFloat, params, block(returnStmt(expr))))

	ctx := ir.NewContext()
	cfgs, err := ir.NewBuilder(ctx).BuildProgram(prog)
	if err != nil {
		t.Fatalf("BuildProgram: %v", err)
	}
	cfg := cfgs[0]

	var sawConvert, sawAdd bool
	for _, b := range cfg.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == ir.OpIntToFloat {
				sawConvert = true
			}
			if instr.Op == ir.OpAdd && instr.Type.Kind == types.Float {
				sawAdd = true
			}
		}
	}
	if !sawConvert {
		t.Error("expected an intToFloat conversion for the mixed-type add")
	}
	if !sawAdd {
		t.Error("expected the add instruction to be typed float")
	}
}
