// Package sema validates a parse tree before it reaches the IR builder:
// redeclaration within the same scope, use of a name before its
// declaration, unused-local warnings, global initializers that are not
// constant literals, and the call/operator type-compatibility rules of
// the data model. It is grounded directly on
// original_source/compiler/CodeValidationVisitor.cpp, down to the exact
// diagnostic wording.
package sema

import (
	"github.com/db47h/pldc/internal/ast"
	"github.com/db47h/pldc/internal/diag"
	"github.com/db47h/pldc/internal/types"
)

type declInfo struct {
	typ  types.Type
	pos  ast.Pos
	used bool
}

type scope struct {
	parent   *scope
	vars     map[string]*declInfo
	isGlobal bool
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: make(map[string]*declInfo)}
}

func (s *scope) find(name string) (*declInfo, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if d, ok := cur.vars[name]; ok {
			return d, true
		}
	}
	return nil, false
}

// Analyzer walks one program's parse tree. The zero value is not usable;
// construct with New.
type Analyzer struct {
	funcs     map[string]*ast.Node
	diags     []diag.Diagnostic
	cur       *scope
	loopDepth int
	retType   types.Type
}

// New returns a ready Analyzer.
func New() *Analyzer {
	return &Analyzer{funcs: make(map[string]*ast.Node)}
}

// Analyze validates prog, returning every diagnostic collected (warnings
// included) and, if a fatal error was hit, the first such error. Analysis
// stops at the first fatal error exactly as the original front end's
// exit(1)-on-first-error does; diagnostics collected up to that point are
// still returned so the caller can print them.
func (a *Analyzer) Analyze(prog *ast.Node) ([]diag.Diagnostic, error) {
	a.cur = newScope(nil)
	a.cur.isGlobal = true

	for _, n := range prog.Children {
		if n.Kind == ast.FuncDecl {
			a.funcs[n.Name] = n
		}
	}

	for _, n := range prog.Children {
		var err error
		switch n.Kind {
		case ast.VarDecl:
			err = a.declareGlobal(n)
		case ast.FuncDecl:
			err = a.analyzeFunc(n)
		}
		if err != nil {
			return a.diags, err
		}
	}
	return a.diags, nil
}

func (a *Analyzer) errorf(pos ast.Pos, format string, args ...interface{}) error {
	return diag.NewError(pos, format, args...)
}

func (a *Analyzer) declareGlobal(n *ast.Node) error {
	if _, ok := a.cur.vars[n.Name]; ok {
		return a.errorf(n.Pos, "redeclaration of ‘%s’", n.Name)
	}
	typ := n.Type
	if n.Elements != 0 {
		typ = types.ArrayOf(n.Type, n.Elements)
	}
	a.cur.vars[n.Name] = &declInfo{typ: typ, pos: n.Pos}
	if n.Init != nil {
		if !isConstantLiteral(n.Init) {
			return a.errorf(n.Pos, "global variable must be initialized with a constant")
		}
	}
	return nil
}

func isConstantLiteral(n *ast.Node) bool {
	switch n.Kind {
	case ast.IntLit, ast.FloatLit, ast.CharLit:
		return true
	case ast.UnaryExpr:
		return n.UnOp == ast.Neg && isConstantLiteral(n.Operand)
	default:
		return false
	}
}

func (a *Analyzer) analyzeFunc(n *ast.Node) error {
	fnScope := newScope(a.cur)
	seen := make(map[string]bool, len(n.Children))
	for _, p := range n.Children {
		if seen[p.Name] {
			return a.errorf(p.Pos, "redeclaration of ‘%s’", p.Name)
		}
		seen[p.Name] = true
		// Parameters are considered used from the start: an unused
		// parameter is not a warning-worthy condition the way an unused
		// local is.
		fnScope.vars[p.Name] = &declInfo{typ: p.Type, pos: p.Pos, used: true}
	}

	parent := a.cur
	a.cur = fnScope
	a.loopDepth = 0
	a.retType = n.Type
	err := a.analyzeBlock(n.Body)
	a.cur = parent
	return err
}

func (a *Analyzer) analyzeBlock(block *ast.Node) error {
	parent := a.cur
	a.cur = newScope(parent)
	defer func() {
		a.flushUnused(a.cur)
		a.cur = parent
	}()

	for _, stmt := range block.Children {
		if err := a.analyzeStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// flushUnused reports a warning for every declared-but-never-referenced
// local in s (spec §4.1: "flushed at scope close").
func (a *Analyzer) flushUnused(s *scope) {
	for name, d := range s.vars {
		if !d.used {
			a.diags = append(a.diags, diag.Diagnostic{
				Severity: diag.Warning,
				Pos:      d.pos,
				Message:  "variable ‘" + name + "’ declared but not used.",
			})
		}
	}
}

func (a *Analyzer) analyzeStmt(n *ast.Node) error {
	switch n.Kind {
	case ast.VarDecl:
		return a.analyzeVarDecl(n)
	case ast.Assign:
		return a.analyzeAssign(n)
	case ast.If:
		return a.analyzeIf(n)
	case ast.While:
		return a.analyzeLoop(n.Cond, n.Body)
	case ast.DoWhile:
		return a.analyzeLoop(n.Cond, n.Body)
	case ast.Break, ast.Continue:
		if a.loopDepth == 0 {
			kw := "break"
			if n.Kind == ast.Continue {
				kw = "continue"
			}
			return a.errorf(n.Pos, "%s outside of a loop", kw)
		}
		return nil
	case ast.Return:
		return a.analyzeReturn(n)
	case ast.ExprStmt:
		return a.analyzeExprStmtNode(n)
	case ast.Block:
		return a.analyzeBlock(n)
	default:
		return a.errorf(n.Pos, "internal error: unexpected statement kind %d", n.Kind)
	}
}

func (a *Analyzer) analyzeVarDecl(n *ast.Node) error {
	if _, ok := a.cur.vars[n.Name]; ok {
		return a.errorf(n.Pos, "redeclaration of ‘%s’", n.Name)
	}
	typ := n.Type
	if n.Elements != 0 {
		typ = types.ArrayOf(n.Type, n.Elements)
	}
	a.cur.vars[n.Name] = &declInfo{typ: typ, pos: n.Pos}
	if n.Init != nil {
		if _, err := a.analyzeExpr(n.Init); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeAssign(n *ast.Node) error {
	if n.Lhs.Kind == ast.Ident {
		d, ok := a.cur.find(n.Lhs.Name)
		if !ok {
			return a.errorf(n.Lhs.Pos, "variable ‘%s’ used before declaration", n.Lhs.Name)
		}
		d.used = true
	} else if n.Lhs.Kind == ast.IndexExpr {
		if _, err := a.analyzeExpr(n.Lhs.Base); err != nil {
			return err
		}
		if n.Lhs.Index != nil {
			if _, err := a.analyzeExpr(n.Lhs.Index); err != nil {
				return err
			}
		}
	}
	_, err := a.analyzeExpr(n.Rhs)
	return err
}

func (a *Analyzer) analyzeIf(n *ast.Node) error {
	if _, err := a.analyzeExpr(n.Cond); err != nil {
		return err
	}
	if err := a.analyzeBlock(n.Then); err != nil {
		return err
	}
	if n.Else != nil {
		return a.analyzeBlock(n.Else)
	}
	return nil
}

func (a *Analyzer) analyzeLoop(cond, body *ast.Node) error {
	if _, err := a.analyzeExpr(cond); err != nil {
		return err
	}
	a.loopDepth++
	err := a.analyzeBlock(body)
	a.loopDepth--
	return err
}

func (a *Analyzer) analyzeReturn(n *ast.Node) error {
	if n.Init == nil {
		if a.retType.Kind != types.Void {
			return a.errorf(n.Pos, "non-void function must return a value")
		}
		return nil
	}
	if a.retType.Kind == types.Void {
		return a.errorf(n.Pos, "void function cannot return a value")
	}
	valType, err := a.analyzeExpr(n.Init)
	if err != nil {
		return err
	}
	if !types.Compatible(valType, a.retType) {
		return a.errorf(n.Pos, "cannot return a value of type %s from a function returning %s", valType, a.retType)
	}
	return nil
}

func (a *Analyzer) analyzeExprStmtNode(n *ast.Node) error {
	expr := n.Expr
	if expr.Kind == ast.UnaryExpr && (expr.UnOp == ast.Incr || expr.UnOp == ast.Decr) {
		d, ok := a.cur.find(expr.Operand.Name)
		if !ok {
			return a.errorf(expr.Operand.Pos, "variable ‘%s’ used before declaration", expr.Operand.Name)
		}
		d.used = true
		return nil
	}
	_, err := a.analyzeExpr(expr)
	return err
}

// analyzeExpr validates an expression tree, marking every referenced
// identifier used, and returns the static type its value will carry.
func (a *Analyzer) analyzeExpr(n *ast.Node) (types.Type, error) {
	switch n.Kind {
	case ast.IntLit:
		return types.TInt, nil
	case ast.FloatLit:
		return types.TFloat, nil
	case ast.CharLit:
		return types.TChar, nil

	case ast.Ident:
		d, ok := a.cur.find(n.Name)
		if !ok {
			return types.Type{}, a.errorf(n.Pos, "variable ‘%s’ used before declaration", n.Name)
		}
		d.used = true
		return d.typ, nil

	case ast.BinaryExpr:
		lt, err := a.analyzeExpr(n.Lhs)
		if err != nil {
			return types.Type{}, err
		}
		rt, err := a.analyzeExpr(n.Rhs)
		if err != nil {
			return types.Type{}, err
		}
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return types.Type{}, a.errorf(n.Pos, "operator requires numeric operands, got %s and %s", lt, rt)
		}
		return types.Higher(lt, rt), nil

	case ast.CompareExpr:
		lt, err := a.analyzeExpr(n.Lhs)
		if err != nil {
			return types.Type{}, err
		}
		rt, err := a.analyzeExpr(n.Rhs)
		if err != nil {
			return types.Type{}, err
		}
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return types.Type{}, a.errorf(n.Pos, "comparison requires numeric operands, got %s and %s", lt, rt)
		}
		return types.TInt, nil

	case ast.LogicalExpr:
		if _, err := a.analyzeExpr(n.Lhs); err != nil {
			return types.Type{}, err
		}
		if _, err := a.analyzeExpr(n.Rhs); err != nil {
			return types.Type{}, err
		}
		return types.TInt, nil

	case ast.UnaryExpr:
		t, err := a.analyzeExpr(n.Operand)
		if err != nil {
			return types.Type{}, err
		}
		return t, nil

	case ast.CallExpr:
		return a.analyzeCall(n)

	case ast.IndexExpr:
		return a.analyzeIndex(n)

	default:
		return types.Type{}, a.errorf(n.Pos, "internal error: unexpected expression kind %d", n.Kind)
	}
}

func (a *Analyzer) analyzeCall(n *ast.Node) (types.Type, error) {
	if n.Callee == "putchar" || n.Callee == "getchar" {
		for _, arg := range n.Args {
			if _, err := a.analyzeExpr(arg); err != nil {
				return types.Type{}, err
			}
		}
		return types.TChar, nil
	}
	fn, ok := a.funcs[n.Callee]
	if !ok {
		return types.Type{}, a.errorf(n.Pos, "call to undeclared function ‘%s’", n.Callee)
	}
	if len(n.Args) != len(fn.Children) {
		return types.Type{}, a.errorf(n.Pos, "function ‘%s’ expects %d argument(s), got %d", n.Callee, len(fn.Children), len(n.Args))
	}
	for i, arg := range n.Args {
		argType, err := a.analyzeExpr(arg)
		if err != nil {
			return types.Type{}, err
		}
		if !types.Compatible(argType, fn.Children[i].Type) {
			return types.Type{}, a.errorf(arg.Pos, "argument %d to ‘%s’ has incompatible type %s", i+1, n.Callee, argType)
		}
	}
	return fn.Type, nil
}

func (a *Analyzer) analyzeIndex(n *ast.Node) (types.Type, error) {
	d, ok := a.cur.find(n.Base.Name)
	if !ok {
		return types.Type{}, a.errorf(n.Base.Pos, "variable ‘%s’ used before declaration", n.Base.Name)
	}
	d.used = true
	if d.typ.Kind != types.Array && d.typ.Kind != types.Pointer {
		return types.Type{}, a.errorf(n.Base.Pos, "‘%s’ is not an array or pointer", n.Base.Name)
	}
	if n.Index != nil {
		idxType, err := a.analyzeExpr(n.Index)
		if err != nil {
			return types.Type{}, err
		}
		if !idxType.IsNumeric() {
			return types.Type{}, a.errorf(n.Index.Pos, "array index must be numeric, got %s", idxType)
		}
	}
	return *d.typ.Elem, nil
}
