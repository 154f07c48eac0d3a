// Package x86_64 lowers the IR to GAS-syntax x86-64 assembly under the
// System V AMD64 calling convention, grounded directly on
// original_source/compiler/gen_asm_x86.cpp: the same register choices
// (integers round-trip through %eax, floats through %xmm0/%xmm1), the same
// prologue/epilogue shape, and the same comiss/setCC sequences for
// comparisons.
package x86_64

import (
	"fmt"
	"io"
	"strconv"

	"github.com/db47h/pldc/internal/ir"
	"github.com/db47h/pldc/internal/ngi"
	"github.com/db47h/pldc/internal/target"
	"github.com/db47h/pldc/internal/types"
)

func init() {
	target.Register("x86-64", func() target.Backend { return &Backend{} })
}

var intArgRegs = []string{"%edi", "%esi", "%edx", "%ecx", "%r8d", "%r9d"}
var floatArgRegs = []string{"%xmm0", "%xmm1", "%xmm2", "%xmm3", "%xmm4", "%xmm5", "%xmm6", "%xmm7"}

// Backend implements target.Backend for x86-64.
type Backend struct{}

// Name returns the backend's selector string.
func (*Backend) Name() string { return "x86-64" }

// Emit writes the full assembly listing for the program to w.
func (b *Backend) Emit(w io.Writer, ctx *ir.Context, cfgs []*ir.CFG) error {
	ew := ngi.NewErrWriter(w)
	fmt.Fprintln(ew, ".text")
	for _, cfg := range cfgs {
		if err := b.emitFunc(ew, ctx, cfg); err != nil {
			return err
		}
	}
	b.emitGlobals(ew, ctx)
	b.emitRodata(ew, ctx)
	return ew.Err
}

func (b *Backend) emitFunc(w io.Writer, ctx *ir.Context, cfg *ir.CFG) error {
	fmt.Fprintf(w, ".globl %s\n", cfg.Func.Name)
	for i, blk := range cfg.Blocks {
		fmt.Fprintf(w, "%s:\n", blk.Label)
		if i == 0 {
			b.prologue(w, ctx, cfg)
			b.spillParams(w, ctx, cfg)
		}
		for _, instr := range blk.Instrs {
			if err := b.emitInstr(w, ctx, cfg, instr); err != nil {
				return err
			}
		}
		b.emitExit(w, ctx, cfg, blk)
	}
	return nil
}

func (b *Backend) frameSize(ctx *ir.Context, cfg *ir.CFG) int {
	return target.AlignUp(ctx.Symbols.CurrentDeclOffset(cfg.Scope), 16)
}

func (b *Backend) prologue(w io.Writer, ctx *ir.Context, cfg *ir.CFG) {
	fmt.Fprintln(w, "    pushq %rbp")
	fmt.Fprintln(w, "    movq %rsp, %rbp")
	if size := b.frameSize(ctx, cfg); size > 0 {
		fmt.Fprintf(w, "    subq $%d, %%rsp\n", size)
	}
}

func (b *Backend) epilogue(w io.Writer) {
	fmt.Fprintln(w, "    leave")
	fmt.Fprintln(w, "    ret")
}

// spillParams moves each incoming argument from its ABI register into the
// parameter's stack slot, so the rest of the function can treat parameters
// like any other local.
func (b *Backend) spillParams(w io.Writer, ctx *ir.Context, cfg *ir.CFG) {
	intIdx, floatIdx := 0, 0
	for _, p := range cfg.Func.Params {
		dest := b.frameOperand(ctx, cfg, p.Name)
		if p.Type.Kind == types.Float {
			b.move(w, true, floatArgRegs[floatIdx], dest)
			floatIdx++
		} else {
			b.move(w, false, intArgRegs[intIdx], dest)
			intIdx++
		}
	}
}

func (b *Backend) emitExit(w io.Writer, ctx *ir.Context, cfg *ir.CFG, blk *ir.Block) {
	switch {
	case blk.TestVar != "" && blk.ExitTrue != "" && blk.ExitFalse != "":
		testText := b.operandText(ctx, cfg, false, ir.Local(blk.TestVar))
		fmt.Fprintf(w, "    movl %s, %%eax\n", testText)
		fmt.Fprintln(w, "    cmpl $0, %eax")
		fmt.Fprintf(w, "    je %s\n", blk.ExitFalse)
		fmt.Fprintf(w, "    jmp %s\n", blk.ExitTrue)
	case blk.ExitTrue != "":
		if blk.ExitTrue != cfg.EpilogueLabel() {
			fmt.Fprintf(w, "    jmp %s\n", blk.ExitTrue)
		}
	default:
		b.loadRetVal(w, ctx, cfg)
		b.epilogue(w)
	}
}

// loadRetVal moves the hidden return-value slot into the ABI return
// register right before the epilogue. Void functions have no RetVar and
// this is a no-op.
func (b *Backend) loadRetVal(w io.Writer, ctx *ir.Context, cfg *ir.CFG) {
	if cfg.RetVar == "" {
		return
	}
	src := b.frameOperand(ctx, cfg, cfg.RetVar)
	if cfg.Func.ReturnType.Kind == types.Float {
		b.move(w, true, src, "%xmm0")
		return
	}
	b.move(w, false, src, "%eax")
}

func (b *Backend) move(w io.Writer, isFloat bool, src, dst string) {
	if isFloat {
		fmt.Fprintf(w, "    movss %s, %s\n", src, dst)
		return
	}
	fmt.Fprintf(w, "    movl %s, %s\n", src, dst)
}

func (b *Backend) frameOperand(ctx *ir.Context, cfg *ir.CFG, name string) string {
	off := target.FrameOffset(ctx.Symbols, cfg.Scope, name)
	return fmt.Sprintf("-%d(%%rbp)", off)
}

// operandText renders op the way this instruction's type expects it: an
// immediate, a frame-relative memory operand, a %rip-relative global, or a
// bare label.
func (b *Backend) operandText(ctx *ir.Context, cfg *ir.CFG, isFloat bool, op ir.Operand) string {
	switch op.Kind {
	case ir.OperandConst:
		if isFloat {
			f, _ := strconv.ParseFloat(op.Literal, 32)
			label := ctx.RoData.Intern(float32(f))
			return label + "(%rip)"
		}
		return "$" + op.Literal
	case ir.OperandGlobal:
		return op.Name + "(%rip)"
	case ir.OperandLabel:
		return op.Name
	default:
		return b.frameOperand(ctx, cfg, op.Name)
	}
}

func (b *Backend) emitInstr(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction) error {
	isFloat := instr.Type.Kind == types.Float
	ops := instr.Operands
	text := func(i int) string { return b.operandText(ctx, cfg, isFloat, ops[i]) }

	switch instr.Op {
	case ir.OpLdConst:
		fmt.Fprintf(w, "    movl %s, %s\n", text(1), text(0))

	case ir.OpCopy:
		if isFloat {
			b.move(w, true, text(1), "%xmm5")
			b.move(w, true, "%xmm5", text(0))
			break
		}
		fmt.Fprintf(w, "    movl %s, %%eax\n", text(1))
		fmt.Fprintf(w, "    movl %%eax, %s\n", text(0))

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv:
		b.emitArith(w, instr.Op, isFloat, text)

	case ir.OpMod:
		fmt.Fprintf(w, "    movl %s, %%eax\n", text(1))
		fmt.Fprintln(w, "    cltd")
		fmt.Fprintf(w, "    idivl %s\n", text(2))
		fmt.Fprintf(w, "    movl %%edx, %s\n", text(0))

	case ir.OpBitAnd:
		b.emitIntBinop(w, "andl", text)
	case ir.OpBitOr:
		b.emitIntBinop(w, "orl", text)
	case ir.OpBitXor:
		b.emitIntBinop(w, "xorl", text)

	case ir.OpUnaryMinus:
		if isFloat {
			b.move(w, true, text(1), "%xmm0")
			fmt.Fprintf(w, "    xorps %s(%%rip), %%xmm0\n", ctx.RoData.NegMaskLabel())
			b.move(w, true, "%xmm0", text(0))
			break
		}
		fmt.Fprintf(w, "    movl %s, %%eax\n", text(1))
		fmt.Fprintln(w, "    negl %eax")
		fmt.Fprintf(w, "    movl %%eax, %s\n", text(0))

	case ir.OpNot:
		fmt.Fprintf(w, "    movl %s, %%eax\n", text(1))
		fmt.Fprintln(w, "    cmpl $0, %eax")
		fmt.Fprintln(w, "    sete %al")
		fmt.Fprintln(w, "    movzbl %al, %eax")
		fmt.Fprintf(w, "    movl %%eax, %s\n", text(0))

	case ir.OpCmpEq, ir.OpCmpNe, ir.OpCmpLt, ir.OpCmpLe, ir.OpCmpGt, ir.OpCmpGe:
		b.emitCompare(w, instr, text)

	case ir.OpLogAnd:
		b.emitShortCircuit(w, ctx, text, true)
	case ir.OpLogOr:
		b.emitShortCircuit(w, ctx, text, false)

	case ir.OpIncr, ir.OpDecr:
		mnemonic := "addss"
		intOp := "addl"
		if instr.Op == ir.OpDecr {
			mnemonic, intOp = "subss", "subl"
		}
		if isFloat {
			b.move(w, true, text(0), "%xmm0")
			b.move(w, true, text(1), "%xmm1")
			fmt.Fprintf(w, "    %s %%xmm1, %%xmm0\n", mnemonic)
			b.move(w, true, "%xmm0", text(0))
			break
		}
		fmt.Fprintf(w, "    movl %s, %%eax\n", text(0))
		fmt.Fprintf(w, "    %s $1, %%eax\n", intOp)
		fmt.Fprintf(w, "    movl %%eax, %s\n", text(0))

	case ir.OpIntToFloat:
		fmt.Fprintln(w, "    pxor %xmm0, %xmm0")
		fmt.Fprintf(w, "    cvtsi2ssl %s, %%xmm0\n", b.operandText(ctx, cfg, false, ops[1]))
		b.move(w, true, "%xmm0", b.operandText(ctx, cfg, true, ops[0]))

	case ir.OpFloatToInt:
		fmt.Fprintf(w, "    cvttss2sil %s, %%eax\n", b.operandText(ctx, cfg, true, ops[1]))
		fmt.Fprintf(w, "    movl %%eax, %s\n", b.operandText(ctx, cfg, false, ops[0]))

	case ir.OpCopyTblx, ir.OpAddTblx, ir.OpSubTblx, ir.OpMulTblx, ir.OpDivTblx:
		b.emitTblx(w, ctx, cfg, instr, isFloat, text)

	case ir.OpModTblx:
		baseOff := target.FrameOffset(ctx.Symbols, cfg.Scope, ops[0].Name)
		fmt.Fprintf(w, "    movl %s, %%eax\n", text(1))
		fmt.Fprintln(w, "    movslq %eax, %rbx")
		fmt.Fprintf(w, "    leaq -%d(%%rbp, %%rbx, 4), %%r10\n", baseOff)
		fmt.Fprintf(w, "    movl %s, %%ecx\n", text(2))
		fmt.Fprintln(w, "    movl (%r10), %eax")
		fmt.Fprintln(w, "    cltd")
		fmt.Fprintln(w, "    idivl %ecx")
		fmt.Fprintln(w, "    movl %edx, (%r10)")

	case ir.OpGetTblx:
		baseOff := target.FrameOffset(ctx.Symbols, cfg.Scope, ops[1].Name)
		fmt.Fprintf(w, "    movl %s, %%eax\n", b.operandText(ctx, cfg, false, ops[2]))
		fmt.Fprintln(w, "    movslq %eax, %rbx")
		fmt.Fprintf(w, "    leaq -%d(%%rbp, %%rbx, 4), %%rax\n", baseOff)
		if isFloat {
			fmt.Fprintln(w, "    movss (%rax), %xmm1")
			b.move(w, true, "%xmm1", text(0))
			break
		}
		fmt.Fprintln(w, "    movl (%rax), %edx")
		fmt.Fprintf(w, "    movl %%edx, %s\n", text(0))

	case ir.OpRMem:
		fmt.Fprintf(w, "    movl %s, %%eax\n", text(1))
		fmt.Fprintln(w, "    movl (%eax), %eax")
		fmt.Fprintf(w, "    movl %%eax, %s\n", text(0))

	case ir.OpWMem:
		fmt.Fprintf(w, "    movl %s, %%eax\n", text(1))
		fmt.Fprintf(w, "    movl %s, %%edx\n", text(0))
		fmt.Fprintln(w, "    movl %eax, (%edx)")

	case ir.OpCall:
		b.emitCall(w, ctx, cfg, instr)

	case ir.OpJmp:
		fmt.Fprintf(w, "    jmp %s\n", text(0))

	default:
		fmt.Fprintf(w, "    # unsupported IR opcode %s\n", instr.Op)
	}
	return nil
}

func (b *Backend) emitArith(w io.Writer, op ir.Op, isFloat bool, text func(int) string) {
	if isFloat {
		mnemonic := map[ir.Op]string{ir.OpAdd: "addss", ir.OpSub: "subss", ir.OpMul: "mulss", ir.OpDiv: "divss"}[op]
		b.move(w, true, text(1), "%xmm0")
		fmt.Fprintf(w, "    %s %s, %%xmm0\n", mnemonic, text(2))
		b.move(w, true, "%xmm0", text(0))
		return
	}
	fmt.Fprintf(w, "    movl %s, %%eax\n", text(1))
	switch op {
	case ir.OpAdd:
		fmt.Fprintf(w, "    addl %s, %%eax\n", text(2))
	case ir.OpSub:
		fmt.Fprintf(w, "    subl %s, %%eax\n", text(2))
	case ir.OpMul:
		fmt.Fprintf(w, "    imull %s, %%eax\n", text(2))
	case ir.OpDiv:
		fmt.Fprintln(w, "    cltd")
		fmt.Fprintf(w, "    idivl %s\n", text(2))
	}
	fmt.Fprintf(w, "    movl %%eax, %s\n", text(0))
}

func (b *Backend) emitIntBinop(w io.Writer, mnemonic string, text func(int) string) {
	fmt.Fprintf(w, "    movl %s, %%eax\n", text(1))
	fmt.Fprintf(w, "    %s %s, %%eax\n", mnemonic, text(2))
	fmt.Fprintf(w, "    movl %%eax, %s\n", text(0))
}

func (b *Backend) emitCompare(w io.Writer, instr ir.Instruction, text func(int) string) {
	isFloat := instr.Type.Kind == types.Float
	setcc := map[ir.Op]string{
		ir.OpCmpEq: "sete", ir.OpCmpNe: "setne",
		ir.OpCmpLt: "setl", ir.OpCmpLe: "setle",
		ir.OpCmpGt: "setg", ir.OpCmpGe: "setge",
	}[instr.Op]

	if isFloat {
		// eq/ne need the unordered-aware double check (an unordered result
		// from a NaN operand must never read back as "equal"); the other
		// four read a single flag, with lt/le comparing in reverse operand
		// order since comiss always tests dst-against-src.
		switch instr.Op {
		case ir.OpCmpEq:
			fmt.Fprintf(w, "    movss %s, %%xmm0\n", text(1))
			fmt.Fprintf(w, "    comiss %s, %%xmm0\n", text(2))
			fmt.Fprintln(w, "    sete %al")
			fmt.Fprintln(w, "    setnp %dl")
			fmt.Fprintln(w, "    andb %dl, %al")
		case ir.OpCmpNe:
			fmt.Fprintf(w, "    movss %s, %%xmm0\n", text(1))
			fmt.Fprintf(w, "    comiss %s, %%xmm0\n", text(2))
			fmt.Fprintln(w, "    setne %al")
			fmt.Fprintln(w, "    setp %dl")
			fmt.Fprintln(w, "    orb %dl, %al")
		default:
			floatSetcc := map[ir.Op]string{
				ir.OpCmpLt: "seta", ir.OpCmpLe: "setnb",
				ir.OpCmpGt: "seta", ir.OpCmpGe: "setnb",
			}[instr.Op]
			lhsIdx, rhsIdx := 1, 2
			if instr.Op == ir.OpCmpLt || instr.Op == ir.OpCmpLe {
				lhsIdx, rhsIdx = 2, 1
			}
			fmt.Fprintf(w, "    movss %s, %%xmm0\n", text(lhsIdx))
			fmt.Fprintf(w, "    comiss %s, %%xmm0\n", text(rhsIdx))
			fmt.Fprintf(w, "    %s %%al\n", floatSetcc)
		}
		fmt.Fprintln(w, "    movzbl %al, %eax")
		fmt.Fprintf(w, "    movl %%eax, %s\n", text(0))
		return
	}

	fmt.Fprintf(w, "    movl %s, %%eax\n", text(1))
	fmt.Fprintf(w, "    cmpl %s, %%eax\n", text(2))
	fmt.Fprintf(w, "    %s %%al\n", setcc)
	fmt.Fprintln(w, "    movzbl %al, %eax")
	fmt.Fprintf(w, "    movl %%eax, %s\n", text(0))
}

func (b *Backend) emitShortCircuit(w io.Writer, ctx *ir.Context, text func(int) string, isAnd bool) {
	n := ctx.NextLabel()
	shortLabel := fmt.Sprintf(".Lsc%d", n)
	endLabel := fmt.Sprintf(".Lend%d", n)
	jccShort := "jz"
	shortVal, fallVal := "0", "1"
	if !isAnd {
		jccShort = "jnz"
		shortVal, fallVal = "1", "0"
	}

	fmt.Fprintf(w, "    movl %s, %%eax\n", text(1))
	fmt.Fprintln(w, "    testl %eax, %eax")
	fmt.Fprintf(w, "    %s %s\n", jccShort, shortLabel)
	fmt.Fprintf(w, "    movl %s, %%eax\n", text(2))
	fmt.Fprintln(w, "    testl %eax, %eax")
	fmt.Fprintf(w, "    %s %s\n", jccShort, shortLabel)
	fmt.Fprintf(w, "    movl $%s, %%eax\n", fallVal)
	fmt.Fprintf(w, "    jmp %s\n", endLabel)
	fmt.Fprintf(w, "%s:\n", shortLabel)
	fmt.Fprintf(w, "    movl $%s, %%eax\n", shortVal)
	fmt.Fprintf(w, "%s:\n", endLabel)
	fmt.Fprintf(w, "    movl %%eax, %s\n", text(0))
}

// emitTblx lowers copyTblx/addTblx/subTblx/mulTblx/divTblx: Operands are
// [base, idx, value], base[idx] (op)= value with no destination temp,
// mirroring BasicBlock::gen_asm's *Tblx cases in gen_asm_x86.cpp.
func (b *Backend) emitTblx(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction, isFloat bool, text func(int) string) {
	baseOff := target.FrameOffset(ctx.Symbols, cfg.Scope, instr.Operands[0].Name)
	fmt.Fprintf(w, "    movl %s, %%eax\n", b.operandText(ctx, cfg, false, instr.Operands[1]))
	fmt.Fprintln(w, "    movslq %eax, %rbx")
	// %r10 holds the element address for the rest of this sequence so that
	// %rax/%edx stay free for idivl's dividend/remainder pair.
	fmt.Fprintf(w, "    leaq -%d(%%rbp, %%rbx, 4), %%r10\n", baseOff)

	if isFloat {
		b.move(w, true, text(2), "%xmm0")
		switch instr.Op {
		case ir.OpAddTblx:
			fmt.Fprintln(w, "    addss (%r10), %xmm0")
		case ir.OpSubTblx:
			fmt.Fprintln(w, "    movss (%r10), %xmm1")
			fmt.Fprintln(w, "    subss %xmm0, %xmm1")
			fmt.Fprintln(w, "    movss %xmm1, %xmm0")
		case ir.OpMulTblx:
			fmt.Fprintln(w, "    mulss (%r10), %xmm0")
		case ir.OpDivTblx:
			fmt.Fprintln(w, "    movss (%r10), %xmm1")
			fmt.Fprintln(w, "    divss %xmm0, %xmm1")
			fmt.Fprintln(w, "    movss %xmm1, %xmm0")
		}
		fmt.Fprintln(w, "    movss %xmm0, (%r10)")
		return
	}

	if instr.Op == ir.OpDivTblx {
		fmt.Fprintf(w, "    movl %s, %%ecx\n", text(2))
		fmt.Fprintln(w, "    movl (%r10), %eax")
		fmt.Fprintln(w, "    cltd")
		fmt.Fprintln(w, "    idivl %ecx")
		fmt.Fprintln(w, "    movl %eax, (%r10)")
		return
	}

	fmt.Fprintf(w, "    movl %s, %%edx\n", text(2))
	switch instr.Op {
	case ir.OpCopyTblx:
		fmt.Fprintln(w, "    movl %edx, (%r10)")
	case ir.OpAddTblx:
		fmt.Fprintln(w, "    addl %edx, (%r10)")
	case ir.OpSubTblx:
		fmt.Fprintln(w, "    subl %edx, (%r10)")
	case ir.OpMulTblx:
		fmt.Fprintln(w, "    movl (%r10), %ecx")
		fmt.Fprintln(w, "    imull %edx, %ecx")
		fmt.Fprintln(w, "    movl %ecx, (%r10)")
	}
}

func (b *Backend) emitCall(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction) {
	fn, _ := ctx.LookupFunc(instr.Callee)
	args := instr.Operands[1:]
	intIdx, floatIdx := 0, 0
	for i, argOp := range args {
		argIsFloat := i < len(fn.Params) && fn.Params[i].Type.Kind == types.Float
		src := b.operandText(ctx, cfg, argIsFloat, argOp)
		if argIsFloat {
			b.move(w, true, src, floatArgRegs[floatIdx])
			floatIdx++
		} else {
			b.move(w, false, src, intArgRegs[intIdx])
			intIdx++
		}
	}
	fmt.Fprintf(w, "    call %s\n", instr.Callee)
	if instr.Type.Kind != types.Void {
		dest := b.operandText(ctx, cfg, instr.Type.Kind == types.Float, instr.Operands[0])
		if instr.Type.Kind == types.Float {
			b.move(w, true, "%xmm0", dest)
		} else {
			b.move(w, false, "%eax", dest)
		}
	}
}

func (b *Backend) emitGlobals(w io.Writer, ctx *ir.Context) {
	if ctx.Globals.Empty() {
		return
	}
	gs, err := ctx.Globals.Globals()
	if err != nil {
		fmt.Fprintf(w, "# error encoding globals: %v\n", err)
		return
	}
	fmt.Fprintln(w, ".data")
	for _, g := range gs {
		fmt.Fprintf(w, "    .align 4\n%s:\n", g.Name)
		size := g.Type.Size()
		switch {
		case !g.Initialized:
			fmt.Fprintf(w, "    .zero %d\n", size)
		case g.Type.Kind == types.Float:
			fmt.Fprintf(w, "    .long %d\n", g.FloatBits)
		default:
			fmt.Fprintf(w, "    .long %d\n", g.IntBits)
		}
	}
}

func (b *Backend) emitRodata(w io.Writer, ctx *ir.Context) {
	if ctx.RoData.Empty() {
		return
	}
	fmt.Fprintln(w, ".section .rodata")
	for _, e := range ctx.RoData.Entries() {
		fmt.Fprintf(w, "    .align %d\n%s:\n", 4*len(e.Words), e.Label)
		for _, word := range e.Words {
			fmt.Fprintf(w, "    .long %d\n", word)
		}
	}
}
