// Package arm32 lowers the IR to GAS-syntax ARM32 (AAPCS) assembly,
// grounded on original_source/compiler/gen_asm_arm.cpp: division through
// the __aeabi_idiv runtime helper (no native divide instruction), the
// conditional-mov style of comparison lowering (cmp + movCC pairs instead
// of cset), and the push/pop {fp,lr}/{fp,pc} prologue/epilogue shape. That
// file has no float support; the float lane here (VFP s-registers,
// vadd.f32 etc.) is new, added by analogy with the AAPCS32 hardware-float
// variant so this backend lowers the same IR the other three do.
package arm32

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
	target.Register("arm32", func() target.Backend { return &Backend{} })
}

var intArgRegs = []string{"r0", "r1", "r2", "r3"}
var floatArgRegs = []string{"s0", "s1", "s2", "s3"}

// Backend implements target.Backend for ARM32.
type Backend struct{}

// Name returns the backend's selector string.
func (*Backend) Name() string { return "arm32" }

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
	return target.AlignUp(ctx.Symbols.CurrentDeclOffset(cfg.Scope), 8)
}

func (b *Backend) prologue(w io.Writer, ctx *ir.Context, cfg *ir.CFG) {
	fmt.Fprintln(w, "    push {fp, lr}")
	fmt.Fprintln(w, "    mov fp, sp")
	if size := b.frameSize(ctx, cfg); size > 0 {
		fmt.Fprintf(w, "    sub sp, sp, #%d\n", size)
	}
}

func (b *Backend) epilogue(w io.Writer) {
	fmt.Fprintln(w, "    mov sp, fp")
	fmt.Fprintln(w, "    pop {fp, pc}")
}

func (b *Backend) spillParams(w io.Writer, ctx *ir.Context, cfg *ir.CFG) {
	intIdx, floatIdx := 0, 0
	for _, p := range cfg.Func.Params {
		dest := b.frameOperand(ctx, cfg, p.Name)
		if p.Type.Kind == types.Float {
			fmt.Fprintf(w, "    vstr %s, %s\n", floatArgRegs[floatIdx], dest)
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
		fmt.Fprintf(w, "    ldr r0, %s\n", b.frameOperand(ctx, cfg, blk.TestVar))
		fmt.Fprintln(w, "    cmp r0, #0")
		fmt.Fprintf(w, "    beq %s\n", blk.ExitFalse)
		fmt.Fprintf(w, "    b %s\n", blk.ExitTrue)
	case blk.ExitTrue != "":
		if blk.ExitTrue != cfg.EpilogueLabel() {
			fmt.Fprintf(w, "    b %s\n", blk.ExitTrue)
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
	isFloat := cfg.Func.ReturnType.Kind == types.Float
	reg := "r0"
	if isFloat {
		reg = "s0"
	}
	b.loadToReg(w, ctx, cfg, isFloat, ir.Local(cfg.RetVar), reg)
}

func (b *Backend) frameOperand(ctx *ir.Context, cfg *ir.CFG, name string) string {
	off := target.FrameOffset(ctx.Symbols, cfg.Scope, name)
	return fmt.Sprintf("[fp, #-%d]", off)
}

func (b *Backend) loadToReg(w io.Writer, ctx *ir.Context, cfg *ir.CFG, isFloat bool, op ir.Operand, reg string) {
	switch op.Kind {
	case ir.OperandConst:
		if isFloat {
			f, _ := strconv.ParseFloat(op.Literal, 32)
			label := ctx.RoData.Intern(float32(f))
			fmt.Fprintf(w, "    ldr r3, =%s\n", label)
			fmt.Fprintf(w, "    vldr %s, [r3]\n", reg)
			return
		}
		fmt.Fprintf(w, "    mov %s, #%s\n", reg, op.Literal)
	case ir.OperandGlobal:
		if isFloat {
			fmt.Fprintf(w, "    ldr r3, =%s\n", op.Name)
			fmt.Fprintf(w, "    vldr %s, [r3]\n", reg)
			return
		}
		fmt.Fprintf(w, "    ldr r3, =%s\n", op.Name)
		fmt.Fprintf(w, "    ldr %s, [r3]\n", reg)
	default:
		if isFloat {
			fmt.Fprintf(w, "    vldr %s, %s\n", reg, b.frameOperand(ctx, cfg, op.Name))
			return
		}
		fmt.Fprintf(w, "    ldr %s, %s\n", reg, b.frameOperand(ctx, cfg, op.Name))
	}
}

func (b *Backend) storeFromReg(w io.Writer, ctx *ir.Context, cfg *ir.CFG, isFloat bool, op ir.Operand, reg string) {
	switch op.Kind {
	case ir.OperandGlobal:
		if isFloat {
			fmt.Fprintf(w, "    ldr r3, =%s\n", op.Name)
			fmt.Fprintf(w, "    vstr %s, [r3]\n", reg)
			return
		}
		fmt.Fprintf(w, "    ldr r3, =%s\n", op.Name)
		fmt.Fprintf(w, "    str %s, [r3]\n", reg)
	default:
		if isFloat {
			fmt.Fprintf(w, "    vstr %s, %s\n", reg, b.frameOperand(ctx, cfg, op.Name))
			return
		}
		fmt.Fprintf(w, "    str %s, %s\n", reg, b.frameOperand(ctx, cfg, op.Name))
	}
}

func (b *Backend) emitInstr(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction) error {
	isFloat := instr.Type.Kind == types.Float
	ops := instr.Operands

	switch instr.Op {
	case ir.OpLdConst, ir.OpCopy:
		if isFloat {
			b.loadToReg(w, ctx, cfg, true, ops[1], "s0")
			b.storeFromReg(w, ctx, cfg, true, ops[0], "s0")
			break
		}
		b.loadToReg(w, ctx, cfg, false, ops[1], "r3")
		b.storeFromReg(w, ctx, cfg, false, ops[0], "r3")

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod:
		b.emitArith(w, ctx, cfg, instr, isFloat)

	case ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor:
		mnemonic := map[ir.Op]string{ir.OpBitAnd: "and", ir.OpBitOr: "orr", ir.OpBitXor: "eor"}[instr.Op]
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r1")
		fmt.Fprintf(w, "    %s r0, r0, r1\n", mnemonic)
		b.storeFromReg(w, ctx, cfg, false, ops[0], "r0")

	case ir.OpUnaryMinus:
		if isFloat {
			b.loadToReg(w, ctx, cfg, true, ops[1], "s0")
			fmt.Fprintln(w, "    vneg.f32 s0, s0")
			b.storeFromReg(w, ctx, cfg, true, ops[0], "s0")
			break
		}
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		fmt.Fprintln(w, "    rsb r0, r0, #0")
		b.storeFromReg(w, ctx, cfg, false, ops[0], "r0")

	case ir.OpNot:
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		fmt.Fprintln(w, "    cmp r0, #0")
		fmt.Fprintln(w, "    moveq r0, #1")
		fmt.Fprintln(w, "    movne r0, #0")
		b.storeFromReg(w, ctx, cfg, false, ops[0], "r0")

	case ir.OpCmpEq, ir.OpCmpNe, ir.OpCmpLt, ir.OpCmpLe, ir.OpCmpGt, ir.OpCmpGe:
		b.emitCompare(w, ctx, cfg, instr, isFloat)

	case ir.OpLogAnd:
		b.emitShortCircuit(w, ctx, cfg, instr, true)
	case ir.OpLogOr:
		b.emitShortCircuit(w, ctx, cfg, instr, false)

	case ir.OpIncr, ir.OpDecr:
		if isFloat {
			b.loadToReg(w, ctx, cfg, true, ops[0], "s0")
			b.loadToReg(w, ctx, cfg, true, ops[1], "s1")
			if instr.Op == ir.OpIncr {
				fmt.Fprintln(w, "    vadd.f32 s0, s0, s1")
			} else {
				fmt.Fprintln(w, "    vsub.f32 s0, s0, s1")
			}
			b.storeFromReg(w, ctx, cfg, true, ops[0], "s0")
			break
		}
		b.loadToReg(w, ctx, cfg, false, ops[0], "r0")
		if instr.Op == ir.OpIncr {
			fmt.Fprintln(w, "    add r0, r0, #1")
		} else {
			fmt.Fprintln(w, "    sub r0, r0, #1")
		}
		b.storeFromReg(w, ctx, cfg, false, ops[0], "r0")

	case ir.OpIntToFloat:
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		fmt.Fprintln(w, "    vmov s0, r0")
		fmt.Fprintln(w, "    vcvt.f32.s32 s0, s0")
		b.storeFromReg(w, ctx, cfg, true, ops[0], "s0")

	case ir.OpFloatToInt:
		b.loadToReg(w, ctx, cfg, true, ops[1], "s0")
		fmt.Fprintln(w, "    vcvt.s32.f32 s0, s0")
		fmt.Fprintln(w, "    vmov r0, s0")
		b.storeFromReg(w, ctx, cfg, false, ops[0], "r0")

	case ir.OpCopyTblx, ir.OpAddTblx, ir.OpSubTblx, ir.OpMulTblx, ir.OpDivTblx, ir.OpModTblx:
		b.emitTblx(w, ctx, cfg, instr, isFloat)

	case ir.OpGetTblx:
		b.emitGetTblx(w, ctx, cfg, instr, isFloat)

	case ir.OpRMem:
		b.loadToReg(w, ctx, cfg, false, ops[1], "r1")
		fmt.Fprintln(w, "    ldr r0, [r1]")
		b.storeFromReg(w, ctx, cfg, false, ops[0], "r0")

	case ir.OpWMem:
		b.loadToReg(w, ctx, cfg, false, ops[0], "r1")
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		fmt.Fprintln(w, "    str r0, [r1]")

	case ir.OpCall:
		b.emitCall(w, ctx, cfg, instr)

	case ir.OpJmp:
		fmt.Fprintf(w, "    b %s\n", ops[0].Name)

	default:
		fmt.Fprintf(w, "    @ unsupported IR opcode %s\n", instr.Op)
	}
	return nil
}

func (b *Backend) emitArith(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction, isFloat bool) {
	ops := instr.Operands
	if isFloat {
		mnemonic := map[ir.Op]string{ir.OpAdd: "vadd.f32", ir.OpSub: "vsub.f32", ir.OpMul: "vmul.f32", ir.OpDiv: "vdiv.f32"}[instr.Op]
		b.loadToReg(w, ctx, cfg, true, ops[1], "s0")
		b.loadToReg(w, ctx, cfg, true, ops[2], "s1")
		fmt.Fprintf(w, "    %s s0, s0, s1\n", mnemonic)
		b.storeFromReg(w, ctx, cfg, true, ops[0], "s0")
		return
	}

	switch instr.Op {
	case ir.OpAdd:
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r1")
		fmt.Fprintln(w, "    add r0, r0, r1")
	case ir.OpSub:
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r1")
		fmt.Fprintln(w, "    sub r0, r0, r1")
	case ir.OpMul:
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r1")
		fmt.Fprintln(w, "    mul r0, r0, r1")
	case ir.OpDiv:
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r1")
		fmt.Fprintln(w, "    bl __aeabi_idiv")
	case ir.OpMod:
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r1")
		fmt.Fprintln(w, "    bl __aeabi_idiv")
		fmt.Fprintln(w, "    mov r2, r0")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r1")
		fmt.Fprintln(w, "    mul r2, r2, r1")
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		fmt.Fprintln(w, "    sub r0, r0, r2")
	}
	b.storeFromReg(w, ctx, cfg, false, ops[0], "r0")
}

func (b *Backend) emitCompare(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction, isFloat bool) {
	ops := instr.Operands
	trueCC, falseCC := map[ir.Op]string{
		ir.OpCmpEq: "eq", ir.OpCmpNe: "ne",
		ir.OpCmpLt: "lt", ir.OpCmpLe: "le",
		ir.OpCmpGt: "gt", ir.OpCmpGe: "ge",
	}[instr.Op], map[ir.Op]string{
		ir.OpCmpEq: "ne", ir.OpCmpNe: "eq",
		ir.OpCmpLt: "ge", ir.OpCmpLe: "gt",
		ir.OpCmpGt: "le", ir.OpCmpGe: "lt",
	}[instr.Op]

	if isFloat {
		b.loadToReg(w, ctx, cfg, true, ops[1], "s0")
		b.loadToReg(w, ctx, cfg, true, ops[2], "s1")
		fmt.Fprintln(w, "    vcmp.f32 s0, s1")
		fmt.Fprintln(w, "    vmrs APSR_nzcv, fpscr")
	} else {
		b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r1")
		fmt.Fprintln(w, "    cmp r0, r1")
	}
	fmt.Fprintf(w, "    mov%s r0, #1\n", trueCC)
	fmt.Fprintf(w, "    mov%s r0, #0\n", falseCC)
	b.storeFromReg(w, ctx, cfg, false, ops[0], "r0")
}

func (b *Backend) emitShortCircuit(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction, isAnd bool) {
	ops := instr.Operands
	n := ctx.NextLabel()
	shortLabel := fmt.Sprintf(".Lsc%d", n)
	endLabel := fmt.Sprintf(".Lend%d", n)
	branchShort := "beq"
	shortVal, fallVal := "0", "1"
	if !isAnd {
		branchShort = "bne"
		shortVal, fallVal = "1", "0"
	}

	b.loadToReg(w, ctx, cfg, false, ops[1], "r0")
	fmt.Fprintln(w, "    cmp r0, #0")
	fmt.Fprintf(w, "    %s %s\n", branchShort, shortLabel)
	b.loadToReg(w, ctx, cfg, false, ops[2], "r0")
	fmt.Fprintln(w, "    cmp r0, #0")
	fmt.Fprintf(w, "    %s %s\n", branchShort, shortLabel)
	fmt.Fprintf(w, "    mov r0, #%s\n", fallVal)
	fmt.Fprintf(w, "    b %s\n", endLabel)
	fmt.Fprintf(w, "%s:\n", shortLabel)
	fmt.Fprintf(w, "    mov r0, #%s\n", shortVal)
	fmt.Fprintf(w, "%s:\n", endLabel)
	b.storeFromReg(w, ctx, cfg, false, ops[0], "r0")
}

// emitTblx lowers copyTblx/addTblx/subTblx/mulTblx/divTblx/modTblx:
// Operands are [base, idx, value]; address = fp - base.Offset + idx*4.
func (b *Backend) emitTblx(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction, isFloat bool) {
	ops := instr.Operands
	baseOff := target.FrameOffset(ctx.Symbols, cfg.Scope, ops[0].Name)
	b.loadToReg(w, ctx, cfg, false, ops[1], "r1")
	fmt.Fprintln(w, "    lsl r2, r1, #2")
	fmt.Fprintf(w, "    sub r3, fp, #%d\n", baseOff)
	fmt.Fprintln(w, "    add r3, r3, r2")

	if isFloat {
		b.loadToReg(w, ctx, cfg, true, ops[2], "s0")
		switch instr.Op {
		case ir.OpCopyTblx:
			fmt.Fprintln(w, "    vstr s0, [r3]")
			return
		case ir.OpAddTblx:
			fmt.Fprintln(w, "    vldr s1, [r3]")
			fmt.Fprintln(w, "    vadd.f32 s1, s1, s0")
		case ir.OpSubTblx:
			fmt.Fprintln(w, "    vldr s1, [r3]")
			fmt.Fprintln(w, "    vsub.f32 s1, s1, s0")
		case ir.OpMulTblx:
			fmt.Fprintln(w, "    vldr s1, [r3]")
			fmt.Fprintln(w, "    vmul.f32 s1, s1, s0")
		case ir.OpDivTblx:
			fmt.Fprintln(w, "    vldr s1, [r3]")
			fmt.Fprintln(w, "    vdiv.f32 s1, s1, s0")
		}
		fmt.Fprintln(w, "    vstr s1, [r3]")
		return
	}

	switch instr.Op {
	case ir.OpCopyTblx:
		b.loadToReg(w, ctx, cfg, false, ops[2], "r0")
		fmt.Fprintln(w, "    str r0, [r3]")
	case ir.OpAddTblx:
		fmt.Fprintln(w, "    ldr r2, [r3]")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r0")
		fmt.Fprintln(w, "    add r2, r2, r0")
		fmt.Fprintln(w, "    str r2, [r3]")
	case ir.OpSubTblx:
		fmt.Fprintln(w, "    ldr r2, [r3]")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r0")
		fmt.Fprintln(w, "    sub r2, r2, r0")
		fmt.Fprintln(w, "    str r2, [r3]")
	case ir.OpMulTblx:
		fmt.Fprintln(w, "    ldr r2, [r3]")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r0")
		fmt.Fprintln(w, "    mul r2, r2, r0")
		fmt.Fprintln(w, "    str r2, [r3]")
	case ir.OpDivTblx:
		fmt.Fprintln(w, "    ldr r0, [r3]")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r1")
		fmt.Fprintln(w, "    bl __aeabi_idiv")
		fmt.Fprintln(w, "    str r0, [r3]")
	case ir.OpModTblx:
		fmt.Fprintln(w, "    ldr r0, [r3]")
		b.loadToReg(w, ctx, cfg, false, ops[2], "r1")
		fmt.Fprintln(w, "    push {r1, r3}")
		fmt.Fprintln(w, "    bl __aeabi_idiv")
		fmt.Fprintln(w, "    mov r2, r0")
		fmt.Fprintln(w, "    pop {r1, r3}")
		fmt.Fprintln(w, "    ldr r0, [r3]")
		fmt.Fprintln(w, "    mul r2, r2, r1")
		fmt.Fprintln(w, "    sub r0, r0, r2")
		fmt.Fprintln(w, "    str r0, [r3]")
	}
}

func (b *Backend) emitGetTblx(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction, isFloat bool) {
	ops := instr.Operands // [dest, base, idx]
	baseOff := target.FrameOffset(ctx.Symbols, cfg.Scope, ops[1].Name)
	b.loadToReg(w, ctx, cfg, false, ops[2], "r1")
	fmt.Fprintln(w, "    lsl r2, r1, #2")
	fmt.Fprintf(w, "    sub r3, fp, #%d\n", baseOff)
	fmt.Fprintln(w, "    add r3, r3, r2")
	if isFloat {
		fmt.Fprintln(w, "    vldr s0, [r3]")
		b.storeFromReg(w, ctx, cfg, true, ops[0], "s0")
		return
	}
	fmt.Fprintln(w, "    ldr r0, [r3]")
	b.storeFromReg(w, ctx, cfg, false, ops[0], "r0")
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
			b.storeFromReg(w, ctx, cfg, true, instr.Operands[0], "s0")
		} else {
			b.storeFromReg(w, ctx, cfg, false, instr.Operands[0], "r0")
		}
	}
}

func (b *Backend) emitGlobals(w io.Writer, ctx *ir.Context) {
	if ctx.Globals.Empty() {
		return
	}
	gs, err := ctx.Globals.Globals()
	if err != nil {
		fmt.Fprintf(w, "@ error encoding globals: %v\n", err)
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
