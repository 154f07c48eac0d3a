// Package arm64 lowers the IR to GAS-syntax AArch64 assembly under AAPCS64,
// grounded on original_source/compiler/gen_asm_arm64.cpp: the same move()
// dispatch-by-operand-syntax helper, the same fp-relative addressing and
// stp/ldp prologue/epilogue shape, and the same cset-based comparison
// lowering. That file has no float support at all (every case moves through
// w-registers only); the float lane here (s-registers, fadd/fcmp/scvtf) is
// new, added by analogy with AAPCS64's standard FP argument-passing and
// instruction set so this backend can lower the same IR the x86-64 backend
// does.
package arm64

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
	target.Register("aarch64", func() target.Backend { return &Backend{} })
}

var intArgRegs = []string{"w0", "w1", "w2", "w3", "w4", "w5", "w6", "w7"}
var floatArgRegs = []string{"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7"}

// Backend implements target.Backend for AArch64.
type Backend struct{}

// Name returns the backend's selector string.
func (*Backend) Name() string { return "aarch64" }

// Emit writes the full assembly listing for the program to w.
func (b *Backend) Emit(w io.Writer, ctx *ir.Context, cfgs []*ir.CFG) error {
	ew := ngi.NewErrWriter(w)
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
	fmt.Fprintf(w, ".global %s\n", cfg.Func.Name)
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
	fmt.Fprintln(w, "    stp fp, lr, [sp, #-16]!")
	fmt.Fprintln(w, "    mov fp, sp")
	if size := b.frameSize(ctx, cfg); size > 0 {
		fmt.Fprintf(w, "    sub sp, sp, #%d\n", size)
	}
}

func (b *Backend) epilogue(w io.Writer, ctx *ir.Context, cfg *ir.CFG) {
	if size := b.frameSize(ctx, cfg); size > 0 {
		fmt.Fprintf(w, "    add sp, sp, #%d\n", size)
	}
	fmt.Fprintln(w, "    ldp fp, lr, [sp], #16")
	fmt.Fprintln(w, "    ret")
}

func (b *Backend) spillParams(w io.Writer, ctx *ir.Context, cfg *ir.CFG) {
	intIdx, floatIdx := 0, 0
	for _, p := range cfg.Func.Params {
		dest := b.frameOperand(ctx, cfg, p.Name)
		if p.Type.Kind == types.Float {
			fmt.Fprintf(w, "    str %s, %s\n", floatArgRegs[floatIdx], dest)
			floatIdx++
		} else {
			fmt.Fprintf(w, "    str %s, %s\n", intArgRegs[intIdx], dest)
			intIdx++
		}
	}
}

func (b *Backend) emitExit(w io.Writer, ctx *ir.Context, cfg *ir.CFG, blk *ir.Block) {
	switch {
	case blk.TestVar != "" && blk.ExitTrue != "" && blk.ExitFalse != "":
		fmt.Fprintf(w, "    ldr w0, %s\n", b.frameOperand(ctx, cfg, blk.TestVar))
		fmt.Fprintln(w, "    cmp w0, #0")
		fmt.Fprintf(w, "    b.eq %s\n", blk.ExitFalse)
		fmt.Fprintf(w, "    b %s\n", blk.ExitTrue)
	case blk.ExitTrue != "":
		if blk.ExitTrue != cfg.EpilogueLabel() {
			fmt.Fprintf(w, "    b %s\n", blk.ExitTrue)
		}
	default:
		b.loadRetVal(w, ctx, cfg)
		b.epilogue(w, ctx, cfg)
	}
}

// loadRetVal moves the hidden return-value slot into the ABI return
// register right before the epilogue. Void functions have no RetVar and
// this is a no-op.
func (b *Backend) loadRetVal(w io.Writer, ctx *ir.Context, cfg *ir.CFG) {
	if cfg.RetVar == "" {
		return
	}
	isFloat := cfg.Func.ReturnType.Kind == types.Float
	reg := "w0"
	if isFloat {
		reg = "s0"
	}
	b.loadToReg(w, ctx, cfg, isFloat, ir.Local(cfg.RetVar), reg)
}

func (b *Backend) frameOperand(ctx *ir.Context, cfg *ir.CFG, name string) string {
	off := target.FrameOffset(ctx.Symbols, cfg.Scope, name)
	return fmt.Sprintf("[fp, #-%d]", off)
}

// operandText renders op as an AArch64 operand: "#imm" for a constant,
// "[fp, #-off]" for a local, or the bare name for a global/label (adrp+add
// page addressing is generated inline at each use site, since unlike x86-64
// a global can't be folded into a single load/store operand).
func (b *Backend) operandText(ctx *ir.Context, cfg *ir.CFG, isFloat bool, op ir.Operand) string {
	switch op.Kind {
	case ir.OperandConst:
		if isFloat {
			f, _ := strconv.ParseFloat(op.Literal, 32)
			return ctx.RoData.Intern(float32(f))
		}
		return "#" + op.Literal
	case ir.OperandGlobal, ir.OperandLabel:
		return op.Name
	default:
		return b.frameOperand(ctx, cfg, op.Name)
	}
}

// loadToReg loads op (of whatever kind) into reg, handling the immediate,
// frame-local, and global/rodata-label cases.
func (b *Backend) loadToReg(w io.Writer, ctx *ir.Context, cfg *ir.CFG, isFloat bool, op ir.Operand, reg string) {
	switch op.Kind {
	case ir.OperandConst:
		if isFloat {
			label := ctx.RoData.Intern(mustFloat(op.Literal))
			fmt.Fprintf(w, "    adrp x9, %s\n", label)
			fmt.Fprintf(w, "    ldr %s, [x9, #:lo12:%s]\n", reg, label)
			return
		}
		fmt.Fprintf(w, "    mov %s, #%s\n", reg, op.Literal)
	case ir.OperandGlobal:
		fmt.Fprintf(w, "    adrp x9, %s\n", op.Name)
		fmt.Fprintf(w, "    ldr %s, [x9, #:lo12:%s]\n", reg, op.Name)
	default:
		fmt.Fprintf(w, "    ldr %s, %s\n", reg, b.frameOperand(ctx, cfg, op.Name))
	}
}

func mustFloat(lit string) float32 {
	f, _ := strconv.ParseFloat(lit, 32)
	return float32(f)
}

func (b *Backend) storeFromReg(w io.Writer, ctx *ir.Context, cfg *ir.CFG, op ir.Operand, reg string) {
	switch op.Kind {
	case ir.OperandGlobal:
		fmt.Fprintf(w, "    adrp x9, %s\n", op.Name)
		fmt.Fprintf(w, "    str %s, [x9, #:lo12:%s]\n", reg, op.Name)
	default:
		fmt.Fprintf(w, "    str %s, %s\n", reg, b.frameOperand(ctx, cfg, op.Name))
	}
}

func (b *Backend) emitInstr(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction) error {
	isFloat := instr.Type.Kind == types.Float
	ops := instr.Operands
	wreg, freg := "w0", "s0"

	switch instr.Op {
	case ir.OpLdConst, ir.OpCopy:
		if isFloat {
			b.loadToReg(w, ctx, cfg, true, ops[1], freg)
			b.storeFromReg(w, ctx, cfg, ops[0], freg)
			break
		}
		b.loadToReg(w, ctx, cfg, false, ops[1], wreg)
		b.storeFromReg(w, ctx, cfg, ops[0], wreg)

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod:
		b.emitArith(w, ctx, cfg, instr, isFloat)

	case ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor:
		mnemonic := map[ir.Op]string{ir.OpBitAnd: "and", ir.OpBitOr: "orr", ir.OpBitXor: "eor"}[instr.Op]
		b.loadToReg(w, ctx, cfg, false, ops[1], "w0")
		b.loadToReg(w, ctx, cfg, false, ops[2], "w1")
		fmt.Fprintf(w, "    %s w0, w0, w1\n", mnemonic)
		b.storeFromReg(w, ctx, cfg, ops[0], "w0")

	case ir.OpUnaryMinus:
		if isFloat {
			b.loadToReg(w, ctx, cfg, true, ops[1], "s0")
			fmt.Fprintln(w, "    fneg s0, s0")
			b.storeFromReg(w, ctx, cfg, ops[0], "s0")
			break
		}
		b.loadToReg(w, ctx, cfg, false, ops[1], "w0")
		fmt.Fprintln(w, "    neg w0, w0")
		b.storeFromReg(w, ctx, cfg, ops[0], "w0")

	case ir.OpNot:
		b.loadToReg(w, ctx, cfg, false, ops[1], "w0")
		fmt.Fprintln(w, "    cmp w0, #0")
		fmt.Fprintln(w, "    cset w0, eq")
		b.storeFromReg(w, ctx, cfg, ops[0], "w0")

	case ir.OpCmpEq, ir.OpCmpNe, ir.OpCmpLt, ir.OpCmpLe, ir.OpCmpGt, ir.OpCmpGe:
		b.emitCompare(w, ctx, cfg, instr)

	case ir.OpLogAnd:
		b.emitShortCircuit(w, ctx, cfg, instr, true)
	case ir.OpLogOr:
		b.emitShortCircuit(w, ctx, cfg, instr, false)

	case ir.OpIncr, ir.OpDecr:
		if isFloat {
			b.loadToReg(w, ctx, cfg, true, ops[0], "s0")
			b.loadToReg(w, ctx, cfg, true, ops[1], "s1")
			if instr.Op == ir.OpIncr {
				fmt.Fprintln(w, "    fadd s0, s0, s1")
			} else {
				fmt.Fprintln(w, "    fsub s0, s0, s1")
			}
			b.storeFromReg(w, ctx, cfg, ops[0], "s0")
			break
		}
		b.loadToReg(w, ctx, cfg, false, ops[0], "w0")
		if instr.Op == ir.OpIncr {
			fmt.Fprintln(w, "    add w0, w0, #1")
		} else {
			fmt.Fprintln(w, "    sub w0, w0, #1")
		}
		b.storeFromReg(w, ctx, cfg, ops[0], "w0")

	case ir.OpIntToFloat:
		b.loadToReg(w, ctx, cfg, false, ops[1], "w0")
		fmt.Fprintln(w, "    scvtf s0, w0")
		b.storeFromReg(w, ctx, cfg, ops[0], "s0")

	case ir.OpFloatToInt:
		b.loadToReg(w, ctx, cfg, true, ops[1], "s0")
		fmt.Fprintln(w, "    fcvtzs w0, s0")
		b.storeFromReg(w, ctx, cfg, ops[0], "w0")

	case ir.OpCopyTblx, ir.OpAddTblx, ir.OpSubTblx, ir.OpMulTblx, ir.OpDivTblx, ir.OpModTblx:
		b.emitTblx(w, ctx, cfg, instr, isFloat)

	case ir.OpGetTblx:
		b.emitGetTblx(w, ctx, cfg, instr, isFloat)

	case ir.OpRMem:
		b.loadToReg(w, ctx, cfg, false, ops[1], "x1")
		fmt.Fprintln(w, "    ldr w0, [x1]")
		b.storeFromReg(w, ctx, cfg, ops[0], "w0")

	case ir.OpWMem:
		b.loadToReg(w, ctx, cfg, false, ops[0], "x1")
		b.loadToReg(w, ctx, cfg, false, ops[1], "w0")
		fmt.Fprintln(w, "    str w0, [x1]")

	case ir.OpCall:
		b.emitCall(w, ctx, cfg, instr)

	case ir.OpJmp:
		fmt.Fprintf(w, "    b %s\n", ops[0].Name)

	default:
		fmt.Fprintf(w, "    // unsupported IR opcode %s\n", instr.Op)
	}
	return nil
}

func (b *Backend) emitArith(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction, isFloat bool) {
	ops := instr.Operands
	if isFloat {
		mnemonic := map[ir.Op]string{ir.OpAdd: "fadd", ir.OpSub: "fsub", ir.OpMul: "fmul", ir.OpDiv: "fdiv"}[instr.Op]
		b.loadToReg(w, ctx, cfg, true, ops[1], "s0")
		b.loadToReg(w, ctx, cfg, true, ops[2], "s1")
		fmt.Fprintf(w, "    %s s0, s0, s1\n", mnemonic)
		b.storeFromReg(w, ctx, cfg, ops[0], "s0")
		return
	}

	b.loadToReg(w, ctx, cfg, false, ops[1], "w0")
	b.loadToReg(w, ctx, cfg, false, ops[2], "w1")
	switch instr.Op {
	case ir.OpAdd:
		fmt.Fprintln(w, "    add w0, w0, w1")
	case ir.OpSub:
		fmt.Fprintln(w, "    sub w0, w0, w1")
	case ir.OpMul:
		fmt.Fprintln(w, "    mul w0, w0, w1")
	case ir.OpDiv:
		fmt.Fprintln(w, "    sdiv w0, w0, w1")
	case ir.OpMod:
		fmt.Fprintln(w, "    sdiv w2, w0, w1")
		fmt.Fprintln(w, "    msub w0, w2, w1, w0")
	}
	b.storeFromReg(w, ctx, cfg, ops[0], "w0")
}

func (b *Backend) emitCompare(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction) {
	ops := instr.Operands
	cc := map[ir.Op]string{
		ir.OpCmpEq: "eq", ir.OpCmpNe: "ne",
		ir.OpCmpLt: "lt", ir.OpCmpLe: "le",
		ir.OpCmpGt: "gt", ir.OpCmpGe: "ge",
	}[instr.Op]
	// instr.Type here is the compare's promoted operand type (not its Int
	// result type, which only the destination temp carries).
	isFloat := instr.Type.Kind == types.Float
	if isFloat {
		b.loadToReg(w, ctx, cfg, true, ops[1], "s0")
		b.loadToReg(w, ctx, cfg, true, ops[2], "s1")
		fmt.Fprintln(w, "    fcmp s0, s1")
		fmt.Fprintf(w, "    cset w0, %s\n", cc)
		b.storeFromReg(w, ctx, cfg, ops[0], "w0")
		return
	}
	b.loadToReg(w, ctx, cfg, false, ops[1], "w0")
	b.loadToReg(w, ctx, cfg, false, ops[2], "w1")
	fmt.Fprintln(w, "    cmp w0, w1")
	fmt.Fprintf(w, "    cset w0, %s\n", cc)
	b.storeFromReg(w, ctx, cfg, ops[0], "w0")
}

func (b *Backend) emitShortCircuit(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction, isAnd bool) {
	ops := instr.Operands
	n := ctx.NextLabel()
	shortLabel := fmt.Sprintf(".Lsc%d", n)
	endLabel := fmt.Sprintf(".Lend%d", n)
	branchShort := "b.eq"
	shortVal, fallVal := "0", "1"
	if !isAnd {
		branchShort = "b.ne"
		shortVal, fallVal = "1", "0"
	}

	b.loadToReg(w, ctx, cfg, false, ops[1], "w0")
	fmt.Fprintln(w, "    cmp w0, #0")
	fmt.Fprintf(w, "    %s %s\n", branchShort, shortLabel)
	b.loadToReg(w, ctx, cfg, false, ops[2], "w0")
	fmt.Fprintln(w, "    cmp w0, #0")
	fmt.Fprintf(w, "    %s %s\n", branchShort, shortLabel)
	fmt.Fprintf(w, "    mov w0, #%s\n", fallVal)
	fmt.Fprintf(w, "    b %s\n", endLabel)
	fmt.Fprintf(w, "%s:\n", shortLabel)
	fmt.Fprintf(w, "    mov w0, #%s\n", shortVal)
	fmt.Fprintf(w, "%s:\n", endLabel)
	b.storeFromReg(w, ctx, cfg, ops[0], "w0")
}

// emitTblx lowers copyTblx/addTblx/subTblx/mulTblx/divTblx/modTblx:
// Operands are [base, idx, value]; address = fp - base.Offset + idx*4.
func (b *Backend) emitTblx(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction, isFloat bool) {
	ops := instr.Operands
	baseOff := target.FrameOffset(ctx.Symbols, cfg.Scope, ops[0].Name)
	b.loadToReg(w, ctx, cfg, false, ops[1], "w1")
	fmt.Fprintln(w, "    lsl w2, w1, #2")
	fmt.Fprintf(w, "    sub x3, fp, #%d\n", baseOff)
	fmt.Fprintln(w, "    add x2, x3, w2, uxtw")

	if isFloat {
		b.loadToReg(w, ctx, cfg, true, ops[2], "s0")
		switch instr.Op {
		case ir.OpCopyTblx:
			fmt.Fprintln(w, "    str s0, [x2]")
			return
		case ir.OpAddTblx:
			fmt.Fprintln(w, "    ldr s1, [x2]")
			fmt.Fprintln(w, "    fadd s1, s1, s0")
		case ir.OpSubTblx:
			fmt.Fprintln(w, "    ldr s1, [x2]")
			fmt.Fprintln(w, "    fsub s1, s1, s0")
		case ir.OpMulTblx:
			fmt.Fprintln(w, "    ldr s1, [x2]")
			fmt.Fprintln(w, "    fmul s1, s1, s0")
		case ir.OpDivTblx:
			fmt.Fprintln(w, "    ldr s1, [x2]")
			fmt.Fprintln(w, "    fdiv s1, s1, s0")
		}
		fmt.Fprintln(w, "    str s1, [x2]")
		return
	}

	b.loadToReg(w, ctx, cfg, false, ops[2], "w0")
	switch instr.Op {
	case ir.OpCopyTblx:
		fmt.Fprintln(w, "    str w0, [x2]")
	case ir.OpAddTblx:
		fmt.Fprintln(w, "    ldr w3, [x2]")
		fmt.Fprintln(w, "    add w3, w3, w0")
		fmt.Fprintln(w, "    str w3, [x2]")
	case ir.OpSubTblx:
		fmt.Fprintln(w, "    ldr w3, [x2]")
		fmt.Fprintln(w, "    sub w3, w3, w0")
		fmt.Fprintln(w, "    str w3, [x2]")
	case ir.OpMulTblx:
		fmt.Fprintln(w, "    ldr w3, [x2]")
		fmt.Fprintln(w, "    mul w3, w3, w0")
		fmt.Fprintln(w, "    str w3, [x2]")
	case ir.OpDivTblx:
		fmt.Fprintln(w, "    ldr w3, [x2]")
		fmt.Fprintln(w, "    sdiv w3, w3, w0")
		fmt.Fprintln(w, "    str w3, [x2]")
	case ir.OpModTblx:
		fmt.Fprintln(w, "    ldr w3, [x2]")
		fmt.Fprintln(w, "    sdiv w4, w3, w0")
		fmt.Fprintln(w, "    msub w3, w4, w0, w3")
		fmt.Fprintln(w, "    str w3, [x2]")
	}
}

func (b *Backend) emitGetTblx(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction, isFloat bool) {
	ops := instr.Operands // [dest, base, idx]
	baseOff := target.FrameOffset(ctx.Symbols, cfg.Scope, ops[1].Name)
	b.loadToReg(w, ctx, cfg, false, ops[2], "w1")
	fmt.Fprintln(w, "    lsl w2, w1, #2")
	fmt.Fprintf(w, "    sub x3, fp, #%d\n", baseOff)
	fmt.Fprintln(w, "    add x2, x3, w2, uxtw")
	if isFloat {
		fmt.Fprintln(w, "    ldr s0, [x2]")
		b.storeFromReg(w, ctx, cfg, ops[0], "s0")
		return
	}
	fmt.Fprintln(w, "    ldr w0, [x2]")
	b.storeFromReg(w, ctx, cfg, ops[0], "w0")
}

func (b *Backend) emitCall(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction) {
	fn, _ := ctx.LookupFunc(instr.Callee)
	args := instr.Operands[1:]
	intIdx, floatIdx := 0, 0
	for i, argOp := range args {
		argIsFloat := i < len(fn.Params) && fn.Params[i].Type.Kind == types.Float
		if argIsFloat {
			b.loadToReg(w, ctx, cfg, true, argOp, floatArgRegs[floatIdx])
			floatIdx++
		} else {
			b.loadToReg(w, ctx, cfg, false, argOp, intArgRegs[intIdx])
			intIdx++
		}
	}
	fmt.Fprintf(w, "    bl %s\n", instr.Callee)
	if instr.Type.Kind != types.Void {
		if instr.Type.Kind == types.Float {
			b.storeFromReg(w, ctx, cfg, instr.Operands[0], "s0")
		} else {
			b.storeFromReg(w, ctx, cfg, instr.Operands[0], "w0")
		}
	}
}

func (b *Backend) emitGlobals(w io.Writer, ctx *ir.Context) {
	if ctx.Globals.Empty() {
		return
	}
	gs, err := ctx.Globals.Globals()
	if err != nil {
		fmt.Fprintf(w, "// error encoding globals: %v\n", err)
		return
	}
	fmt.Fprintln(w, ".data")
	fmt.Fprintln(w, ".align 2")
	for _, g := range gs {
		fmt.Fprintf(w, ".global %s\n%s:\n", g.Name, g.Name)
		switch {
		case !g.Initialized:
			fmt.Fprintf(w, "    .space %d\n", g.Type.Size())
		case g.Type.Kind == types.Float:
			fmt.Fprintf(w, "    .word %d\n", g.FloatBits)
		default:
			fmt.Fprintf(w, "    .word %d\n", g.IntBits)
		}
	}
	fmt.Fprintln(w, ".text")
}

func (b *Backend) emitRodata(w io.Writer, ctx *ir.Context) {
	if ctx.RoData.Empty() {
		return
	}
	fmt.Fprintln(w, ".section .rodata")
	for _, e := range ctx.RoData.Entries() {
		fmt.Fprintf(w, ".align %d\n%s:\n", 4*len(e.Words), e.Label)
		for _, word := range e.Words {
			fmt.Fprintf(w, "    .word %d\n", word)
		}
	}
}
