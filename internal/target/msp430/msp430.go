// Package msp430 lowers the IR to GAS-syntax MSP430 assembly, grounded on
// original_source/compiler/gen_asm_msp430.cpp: 16-bit words throughout,
// multiply/divide routed through the __mulhi3/__divhi3 runtime helpers (the
// base instruction set has neither), mod computed as divide-then-multiply-
// then-subtract, stack-pointer-relative local addressing (offset(r1)), and
// the push r4/pop r4 prologue/epilogue shape. MSP430 has no FPU at all, so
// that original file has no float support whatsoever; the float lane here
// routes through software-float runtime helpers (__addsf3 and friends, the
// standard libgcc soft-float entry points) by analogy with how it already
// calls out to __mulhi3/__divhi3 for integer multiply/divide.
package msp430

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
	target.Register("msp430", func() target.Backend { return &Backend{} })
}

// argRegs lists MSP430's argument registers in reverse order, matching the
// original's comment ("Arguments en ordre inverse pour stack").
var argRegs = []string{"r15", "r14", "r13", "r12"}

// Backend implements target.Backend for MSP430.
type Backend struct{}

// Name returns the backend's selector string.
func (*Backend) Name() string { return "msp430" }

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
	return target.AlignUp(ctx.Symbols.CurrentDeclOffset(cfg.Scope), 2)
}

func (b *Backend) prologue(w io.Writer, ctx *ir.Context, cfg *ir.CFG) {
	fmt.Fprintln(w, "    push r4")
	fmt.Fprintln(w, "    mov r1, r4")
	if size := b.frameSize(ctx, cfg); size > 0 {
		fmt.Fprintf(w, "    sub #%d, r1\n", size)
	}
}

func (b *Backend) epilogue(w io.Writer) {
	fmt.Fprintln(w, "    mov r4, r1")
	fmt.Fprintln(w, "    pop r4")
	fmt.Fprintln(w, "    ret")
}

// spillParams moves each incoming argument from its ABI register (or, for a
// float parameter, register pair) onto its stack slot, mirroring emitCall's
// own int/float-indexed register pools so a caller's argument placement and
// a callee's parameter placement always agree.
func (b *Backend) spillParams(w io.Writer, ctx *ir.Context, cfg *ir.CFG) {
	floatPairs := [][2]string{{"r13", "r12"}, {"r15", "r14"}}
	intIdx, floatIdx := 0, 0
	for _, p := range cfg.Func.Params {
		dest := ir.Local(p.Name)
		if p.Type.Kind == types.Float {
			if floatIdx < len(floatPairs) {
				pair := floatPairs[floatIdx]
				b.storeFloatPair(w, ctx, cfg, dest, pair[0], pair[1])
				floatIdx++
			}
			continue
		}
		if intIdx < len(argRegs) {
			b.storeFromReg(w, ctx, cfg, dest, argRegs[intIdx])
			intIdx++
		}
	}
}

func (b *Backend) emitExit(w io.Writer, ctx *ir.Context, cfg *ir.CFG, blk *ir.Block) {
	switch {
	case blk.TestVar != "" && blk.ExitTrue != "" && blk.ExitFalse != "":
		fmt.Fprintf(w, "    mov %s, r15\n", b.frameOperand(ctx, cfg, blk.TestVar))
		fmt.Fprintln(w, "    cmp #0, r15")
		fmt.Fprintf(w, "    jeq %s\n", blk.ExitFalse)
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
// register (r15, or the r15:r14 pair for a float) right before the
// epilogue. Void functions have no RetVar and this is a no-op.
func (b *Backend) loadRetVal(w io.Writer, ctx *ir.Context, cfg *ir.CFG) {
	if cfg.RetVar == "" {
		return
	}
	if cfg.Func.ReturnType.Kind == types.Float {
		b.loadFloatPair(w, ctx, cfg, ir.Local(cfg.RetVar), "r15", "r14")
		return
	}
	b.loadToReg(w, ctx, cfg, ir.Local(cfg.RetVar), "r15")
}

func (b *Backend) frameOperand(ctx *ir.Context, cfg *ir.CFG, name string) string {
	off := target.FrameOffset(ctx.Symbols, cfg.Scope, name)
	return fmt.Sprintf("-%d(r1)", off)
}

func (b *Backend) loadToReg(w io.Writer, ctx *ir.Context, cfg *ir.CFG, op ir.Operand, reg string) {
	switch op.Kind {
	case ir.OperandConst:
		fmt.Fprintf(w, "    mov #%s, %s\n", op.Literal, reg)
	case ir.OperandGlobal:
		fmt.Fprintf(w, "    mov &%s, %s\n", op.Name, reg)
	default:
		fmt.Fprintf(w, "    mov %s, %s\n", b.frameOperand(ctx, cfg, op.Name), reg)
	}
}

func (b *Backend) storeFromReg(w io.Writer, ctx *ir.Context, cfg *ir.CFG, op ir.Operand, reg string) {
	switch op.Kind {
	case ir.OperandGlobal:
		fmt.Fprintf(w, "    mov %s, &%s\n", reg, op.Name)
	default:
		fmt.Fprintf(w, "    mov %s, %s\n", reg, b.frameOperand(ctx, cfg, op.Name))
	}
}

// floatAddrs returns the (low-word, high-word) addresses of a 32-bit float
// operand. Words are stored little-endian: the lower address holds bits
// 0-15, so the sign bit lives in bit 15 of the high word.
func (b *Backend) floatAddrs(ctx *ir.Context, cfg *ir.CFG, op ir.Operand) (lo, hi string) {
	switch op.Kind {
	case ir.OperandConst:
		label := ctx.RoData.Intern(mustFloat(op))
		return "&" + label, "&" + label + "+2"
	case ir.OperandGlobal:
		return "&" + op.Name, "&" + op.Name + "+2"
	default:
		off := target.FrameOffset(ctx.Symbols, cfg.Scope, op.Name)
		return fmt.Sprintf("-%d(r1)", off), fmt.Sprintf("-%d(r1)", off-2)
	}
}

// loadFloatPair loads a 32-bit float operand into a register pair (hiReg
// holds the sign/exponent half).
func (b *Backend) loadFloatPair(w io.Writer, ctx *ir.Context, cfg *ir.CFG, op ir.Operand, hiReg, loReg string) {
	lo, hi := b.floatAddrs(ctx, cfg, op)
	fmt.Fprintf(w, "    mov %s, %s\n", lo, loReg)
	fmt.Fprintf(w, "    mov %s, %s\n", hi, hiReg)
}

func (b *Backend) storeFloatPair(w io.Writer, ctx *ir.Context, cfg *ir.CFG, op ir.Operand, hiReg, loReg string) {
	lo, hi := b.floatAddrs(ctx, cfg, op)
	fmt.Fprintf(w, "    mov %s, %s\n", loReg, lo)
	fmt.Fprintf(w, "    mov %s, %s\n", hiReg, hi)
}

func (b *Backend) emitInstr(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction) error {
	if instr.Op == ir.OpCall {
		b.emitCall(w, ctx, cfg, instr)
		return nil
	}
	if instr.Type.Kind == types.Float {
		return b.emitFloatInstr(w, ctx, cfg, instr)
	}
	ops := instr.Operands

	switch instr.Op {
	case ir.OpLdConst, ir.OpCopy:
		b.loadToReg(w, ctx, cfg, ops[1], "r11")
		b.storeFromReg(w, ctx, cfg, ops[0], "r11")

	case ir.OpAdd:
		b.loadToReg(w, ctx, cfg, ops[1], "r15")
		b.loadToReg(w, ctx, cfg, ops[2], "r14")
		fmt.Fprintln(w, "    add r14, r15")
		b.storeFromReg(w, ctx, cfg, ops[0], "r15")

	case ir.OpSub:
		b.loadToReg(w, ctx, cfg, ops[1], "r15")
		b.loadToReg(w, ctx, cfg, ops[2], "r14")
		fmt.Fprintln(w, "    sub r14, r15")
		b.storeFromReg(w, ctx, cfg, ops[0], "r15")

	case ir.OpMul:
		b.loadToReg(w, ctx, cfg, ops[1], "r15")
		b.loadToReg(w, ctx, cfg, ops[2], "r14")
		fmt.Fprintln(w, "    call #__mulhi3")
		b.storeFromReg(w, ctx, cfg, ops[0], "r15")

	case ir.OpDiv:
		b.loadToReg(w, ctx, cfg, ops[1], "r15")
		b.loadToReg(w, ctx, cfg, ops[2], "r14")
		fmt.Fprintln(w, "    call #__divhi3")
		b.storeFromReg(w, ctx, cfg, ops[0], "r15")

	case ir.OpMod:
		b.loadToReg(w, ctx, cfg, ops[1], "r13") // stash the dividend
		b.loadToReg(w, ctx, cfg, ops[1], "r15")
		b.loadToReg(w, ctx, cfg, ops[2], "r14")
		fmt.Fprintln(w, "    call #__divhi3") // quotient in r15
		fmt.Fprintln(w, "    mov r14, r12")   // stash the divisor
		fmt.Fprintln(w, "    call #__mulhi3") // r15 = quotient * divisor
		fmt.Fprintln(w, "    mov r13, r14")
		fmt.Fprintln(w, "    sub r15, r14") // r14 = dividend - quotient*divisor
		b.storeFromReg(w, ctx, cfg, ops[0], "r14")

	case ir.OpBitAnd:
		b.emitIntBinop(w, ctx, cfg, instr, "and")
	case ir.OpBitOr:
		b.emitIntBinop(w, ctx, cfg, instr, "bis")
	case ir.OpBitXor:
		b.emitIntBinop(w, ctx, cfg, instr, "xor")

	case ir.OpUnaryMinus:
		b.loadToReg(w, ctx, cfg, ops[1], "r15")
		fmt.Fprintln(w, "    inv r15")
		fmt.Fprintln(w, "    inc r15")
		b.storeFromReg(w, ctx, cfg, ops[0], "r15")

	case ir.OpNot:
		b.emitZeroTest(w, ctx, cfg, ops, "jne")

	case ir.OpCmpEq:
		b.emitCompare(w, ctx, cfg, ops, "jne")
	case ir.OpCmpNe:
		b.emitCompare(w, ctx, cfg, ops, "jeq")
	case ir.OpCmpLt:
		b.emitCompare(w, ctx, cfg, ops, "jge")
	case ir.OpCmpLe:
		b.emitCompare(w, ctx, cfg, ops, "jg")
	case ir.OpCmpGt:
		b.emitCompare(w, ctx, cfg, ops, "jle")
	case ir.OpCmpGe:
		b.emitCompare(w, ctx, cfg, ops, "jl")

	case ir.OpLogAnd:
		b.emitShortCircuit(w, ctx, cfg, ops, true)
	case ir.OpLogOr:
		b.emitShortCircuit(w, ctx, cfg, ops, false)

	case ir.OpIncr:
		b.loadToReg(w, ctx, cfg, ops[0], "r15")
		fmt.Fprintln(w, "    inc r15")
		b.storeFromReg(w, ctx, cfg, ops[0], "r15")

	case ir.OpDecr:
		b.loadToReg(w, ctx, cfg, ops[0], "r15")
		fmt.Fprintln(w, "    dec r15")
		b.storeFromReg(w, ctx, cfg, ops[0], "r15")

	case ir.OpCopyTblx, ir.OpAddTblx, ir.OpSubTblx, ir.OpMulTblx, ir.OpDivTblx, ir.OpModTblx:
		b.emitTblx(w, ctx, cfg, instr)

	case ir.OpGetTblx:
		b.emitGetTblx(w, ctx, cfg, instr)

	case ir.OpRMem:
		b.loadToReg(w, ctx, cfg, ops[1], "r14")
		fmt.Fprintln(w, "    mov @r14, r15")
		b.storeFromReg(w, ctx, cfg, ops[0], "r15")

	case ir.OpWMem:
		b.loadToReg(w, ctx, cfg, ops[0], "r14")
		b.loadToReg(w, ctx, cfg, ops[1], "r15")
		fmt.Fprintln(w, "    mov r15, 0(r14)")

	case ir.OpJmp:
		fmt.Fprintf(w, "    jmp %s\n", ops[0].Name)

	default:
		fmt.Fprintf(w, "    ; unsupported IR opcode %s\n", instr.Op)
	}
	return nil
}

func (b *Backend) emitIntBinop(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction, mnemonic string) {
	ops := instr.Operands
	b.loadToReg(w, ctx, cfg, ops[1], "r15")
	b.loadToReg(w, ctx, cfg, ops[2], "r14")
	fmt.Fprintf(w, "    %s r14, r15\n", mnemonic)
	b.storeFromReg(w, ctx, cfg, ops[0], "r15")
}

func nextLabel(ctx *ir.Context) string {
	return fmt.Sprintf(".Lend%d", ctx.NextLabel())
}

// emitCompare mirrors cmp_eq..cmp_ge: compare, default to false, flip to
// true unless the branch-away condition (the one that means "not satisfied")
// fires.
func (b *Backend) emitCompare(w io.Writer, ctx *ir.Context, cfg *ir.CFG, ops []ir.Operand, branchAway string) {
	b.loadToReg(w, ctx, cfg, ops[1], "r15")
	b.loadToReg(w, ctx, cfg, ops[2], "r14")
	fmt.Fprintln(w, "    cmp r14, r15")
	fmt.Fprintln(w, "    mov #0, r15")
	end := nextLabel(ctx)
	fmt.Fprintf(w, "    %s %s\n", branchAway, end)
	fmt.Fprintln(w, "    mov #1, r15")
	fmt.Fprintf(w, "%s:\n", end)
	b.storeFromReg(w, ctx, cfg, ops[0], "r15")
}

func (b *Backend) emitZeroTest(w io.Writer, ctx *ir.Context, cfg *ir.CFG, ops []ir.Operand, branchAway string) {
	b.loadToReg(w, ctx, cfg, ops[1], "r15")
	fmt.Fprintln(w, "    cmp #0, r15")
	fmt.Fprintln(w, "    mov #0, r15")
	end := nextLabel(ctx)
	fmt.Fprintf(w, "    %s %s\n", branchAway, end)
	fmt.Fprintln(w, "    mov #1, r15")
	fmt.Fprintf(w, "%s:\n", end)
	b.storeFromReg(w, ctx, cfg, ops[0], "r15")
}

func (b *Backend) emitShortCircuit(w io.Writer, ctx *ir.Context, cfg *ir.CFG, ops []ir.Operand, isAnd bool) {
	n := ctx.NextLabel()
	shortLabel := fmt.Sprintf(".Lsc%d", n)
	endLabel := fmt.Sprintf(".Lend%d", n)
	branchShort := "jeq"
	shortVal, fallVal := "0", "1"
	if !isAnd {
		branchShort = "jne"
		shortVal, fallVal = "1", "0"
	}

	b.loadToReg(w, ctx, cfg, ops[1], "r15")
	fmt.Fprintln(w, "    cmp #0, r15")
	fmt.Fprintf(w, "    %s %s\n", branchShort, shortLabel)
	b.loadToReg(w, ctx, cfg, ops[2], "r15")
	fmt.Fprintln(w, "    cmp #0, r15")
	fmt.Fprintf(w, "    %s %s\n", branchShort, shortLabel)
	fmt.Fprintf(w, "    mov #%s, r15\n", fallVal)
	fmt.Fprintf(w, "    jmp %s\n", endLabel)
	fmt.Fprintf(w, "%s:\n", shortLabel)
	fmt.Fprintf(w, "    mov #%s, r15\n", shortVal)
	fmt.Fprintf(w, "%s:\n", endLabel)
	b.storeFromReg(w, ctx, cfg, ops[0], "r15")
}

// emitTblx lowers copyTblx/addTblx/subTblx/mulTblx/divTblx/modTblx:
// Operands are [base, idx, value]; address = sp - base.Offset + idx*2 (a
// 16-bit word per element).
func (b *Backend) emitTblx(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction) {
	ops := instr.Operands
	baseOff := target.FrameOffset(ctx.Symbols, cfg.Scope, ops[0].Name)
	b.loadToReg(w, ctx, cfg, ops[1], "r14")
	fmt.Fprintln(w, "    add r14, r14") // *2
	fmt.Fprintln(w, "    mov r1, r13")
	fmt.Fprintf(w, "    sub #%d, r13\n", baseOff)
	fmt.Fprintln(w, "    add r14, r13")

	switch instr.Op {
	case ir.OpCopyTblx:
		b.loadToReg(w, ctx, cfg, ops[2], "r15")
		fmt.Fprintln(w, "    mov r15, 0(r13)")
	case ir.OpAddTblx:
		fmt.Fprintln(w, "    mov 0(r13), r12")
		b.loadToReg(w, ctx, cfg, ops[2], "r15")
		fmt.Fprintln(w, "    add r15, r12")
		fmt.Fprintln(w, "    mov r12, 0(r13)")
	case ir.OpSubTblx:
		fmt.Fprintln(w, "    mov 0(r13), r12")
		b.loadToReg(w, ctx, cfg, ops[2], "r15")
		fmt.Fprintln(w, "    sub r15, r12")
		fmt.Fprintln(w, "    mov r12, 0(r13)")
	case ir.OpMulTblx:
		fmt.Fprintln(w, "    mov 0(r13), r15")
		b.loadToReg(w, ctx, cfg, ops[2], "r14")
		fmt.Fprintln(w, "    push r13")
		fmt.Fprintln(w, "    call #__mulhi3")
		fmt.Fprintln(w, "    pop r13")
		fmt.Fprintln(w, "    mov r15, 0(r13)")
	case ir.OpDivTblx:
		fmt.Fprintln(w, "    mov 0(r13), r15")
		b.loadToReg(w, ctx, cfg, ops[2], "r14")
		fmt.Fprintln(w, "    push r13")
		fmt.Fprintln(w, "    call #__divhi3")
		fmt.Fprintln(w, "    pop r13")
		fmt.Fprintln(w, "    mov r15, 0(r13)")
	case ir.OpModTblx:
		fmt.Fprintln(w, "    mov 0(r13), r15")
		fmt.Fprintln(w, "    push r15")
		b.loadToReg(w, ctx, cfg, ops[2], "r14")
		fmt.Fprintln(w, "    push r14")
		fmt.Fprintln(w, "    push r13")
		fmt.Fprintln(w, "    call #__divhi3")
		fmt.Fprintln(w, "    mov r15, r12")
		fmt.Fprintln(w, "    pop r13")
		fmt.Fprintln(w, "    pop r14")
		fmt.Fprintln(w, "    mov r12, r15")
		fmt.Fprintln(w, "    push r13")
		fmt.Fprintln(w, "    call #__mulhi3")
		fmt.Fprintln(w, "    pop r13")
		fmt.Fprintln(w, "    pop r14")
		fmt.Fprintln(w, "    sub r15, r14")
		fmt.Fprintln(w, "    mov r14, 0(r13)")
	}
}

func (b *Backend) emitGetTblx(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction) {
	ops := instr.Operands // [dest, base, idx]
	baseOff := target.FrameOffset(ctx.Symbols, cfg.Scope, ops[1].Name)
	b.loadToReg(w, ctx, cfg, ops[2], "r14")
	fmt.Fprintln(w, "    add r14, r14")
	fmt.Fprintln(w, "    mov r1, r13")
	fmt.Fprintf(w, "    sub #%d, r13\n", baseOff)
	fmt.Fprintln(w, "    add r14, r13")
	fmt.Fprintln(w, "    mov 0(r13), r15")
	b.storeFromReg(w, ctx, cfg, ops[0], "r15")
}

// emitCall handles both int and float calls; a call is only dispatched here
// (never split into emitInstr's int path vs. emitFloatInstr) because its
// arguments and its return value can have independent types. Float
// arguments use the same hi:lo pair convention as emitFloatInstr, consumed
// in call order from the pool {r13:r12, r15:r14} — this invented
// convention only covers up to two float arguments per call (plenty for
// the language's own call sites; a caller needing more would have to spill
// to the stack, which this backend does not generate).
func (b *Backend) emitCall(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction) {
	fn, _ := ctx.LookupFunc(instr.Callee)
	args := instr.Operands[1:]
	floatPairs := [][2]string{{"r13", "r12"}, {"r15", "r14"}}
	intIdx, floatIdx := 0, 0
	for i, argOp := range args {
		if fn.Params[i].Type.Kind == types.Float {
			if floatIdx < len(floatPairs) {
				pair := floatPairs[floatIdx]
				b.loadFloatPair(w, ctx, cfg, argOp, pair[0], pair[1])
				floatIdx++
			}
			continue
		}
		if intIdx < len(argRegs) {
			b.loadToReg(w, ctx, cfg, argOp, argRegs[intIdx])
			intIdx++
		}
	}
	fmt.Fprintf(w, "    call #%s\n", instr.Callee)
	if instr.Type.Kind == types.Float {
		b.storeFloatPair(w, ctx, cfg, instr.Operands[0], "r15", "r14")
	} else if instr.Type.Kind != types.Void {
		b.storeFromReg(w, ctx, cfg, instr.Operands[0], "r15")
	}
}

// emitFloatInstr routes float arithmetic through libgcc-style software-float
// entry points, the natural extension of the original's __mulhi3/__divhi3
// pattern to a chip with no FPU at all. A 32-bit float occupies a register
// pair (hi:lo); by this backend's own convention the first operand travels
// in r13:r12, the second in r15:r14, and results come back in r15:r14.
func (b *Backend) emitFloatInstr(w io.Writer, ctx *ir.Context, cfg *ir.CFG, instr ir.Instruction) error {
	ops := instr.Operands
	helper := func(name string) {
		b.loadFloatPair(w, ctx, cfg, ops[1], "r13", "r12")
		b.loadFloatPair(w, ctx, cfg, ops[2], "r15", "r14")
		fmt.Fprintf(w, "    call #%s\n", name)
		b.storeFloatPair(w, ctx, cfg, ops[0], "r15", "r14")
	}
	switch instr.Op {
	case ir.OpLdConst, ir.OpCopy:
		b.loadFloatPair(w, ctx, cfg, ops[1], "r15", "r14")
		b.storeFloatPair(w, ctx, cfg, ops[0], "r15", "r14")
	case ir.OpAdd:
		helper("__addsf3")
	case ir.OpSub:
		helper("__subsf3")
	case ir.OpMul:
		helper("__mulsf3")
	case ir.OpDiv:
		helper("__divsf3")
	case ir.OpUnaryMinus:
		b.loadFloatPair(w, ctx, cfg, ops[1], "r15", "r14")
		fmt.Fprintln(w, "    xor #0x8000, r15") // sign bit lives in the high word
		b.storeFloatPair(w, ctx, cfg, ops[0], "r15", "r14")
	case ir.OpIncr, ir.OpDecr:
		name := "__addsf3"
		if instr.Op == ir.OpDecr {
			name = "__subsf3"
		}
		b.loadFloatPair(w, ctx, cfg, ops[0], "r13", "r12")
		b.loadFloatPair(w, ctx, cfg, ops[1], "r15", "r14")
		fmt.Fprintf(w, "    call #%s\n", name)
		b.storeFloatPair(w, ctx, cfg, ops[0], "r15", "r14")
	case ir.OpCmpEq, ir.OpCmpNe, ir.OpCmpLt, ir.OpCmpLe, ir.OpCmpGt, ir.OpCmpGe:
		cmpHelper := map[ir.Op]string{
			ir.OpCmpEq: "__eqsf2", ir.OpCmpNe: "__nesf2",
			ir.OpCmpLt: "__ltsf2", ir.OpCmpLe: "__lesf2",
			ir.OpCmpGt: "__gtsf2", ir.OpCmpGe: "__gesf2",
		}[instr.Op]
		b.loadFloatPair(w, ctx, cfg, ops[1], "r13", "r12")
		b.loadFloatPair(w, ctx, cfg, ops[2], "r15", "r14")
		fmt.Fprintf(w, "    call #%s\n", cmpHelper)
		fmt.Fprintln(w, "    cmp #0, r15") // the sfN helpers return a plain int in r15: 0 means the relation holds
		fmt.Fprintln(w, "    mov #0, r15")
		end := nextLabel(ctx)
		fmt.Fprintf(w, "    jne %s\n", end)
		fmt.Fprintln(w, "    mov #1, r15")
		fmt.Fprintf(w, "%s:\n", end)
		b.storeFromReg(w, ctx, cfg, ops[0], "r15")
	case ir.OpIntToFloat:
		b.loadToReg(w, ctx, cfg, ops[1], "r15")
		fmt.Fprintln(w, "    call #__floatsisf")
		b.storeFloatPair(w, ctx, cfg, ops[0], "r15", "r14")
	case ir.OpFloatToInt:
		b.loadFloatPair(w, ctx, cfg, ops[1], "r13", "r12")
		fmt.Fprintln(w, "    call #__fixsfsi")
		b.storeFromReg(w, ctx, cfg, ops[0], "r15")
	default:
		fmt.Fprintf(w, "    ; unsupported float IR opcode %s\n", instr.Op)
	}
	return nil
}

func mustFloat(op ir.Operand) float32 {
	f, _ := strconv.ParseFloat(op.Literal, 32)
	return float32(f)
}

func (b *Backend) emitGlobals(w io.Writer, ctx *ir.Context) {
	if ctx.Globals.Empty() {
		return
	}
	gs, err := ctx.Globals.Globals()
	if err != nil {
		fmt.Fprintf(w, "; error encoding globals: %v\n", err)
		return
	}
	fmt.Fprintln(w, ".data")
	fmt.Fprintln(w, ".align 2")
	for _, g := range gs {
		fmt.Fprintf(w, ".global %s\n%s:\n", g.Name, g.Name)
		switch {
		case !g.Initialized && g.Type.Kind == types.Float:
			fmt.Fprintln(w, "    .space 4")
		case !g.Initialized:
			fmt.Fprintln(w, "    .space 2")
		case g.Type.Kind == types.Float:
			// Float is a 32-bit IEEE-754 value even on this 16-bit machine.
			fmt.Fprintf(w, "    .long %d\n", g.FloatBits)
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
		fmt.Fprintf(w, ".align 2\n%s:\n", e.Label)
		for _, word := range e.Words {
			fmt.Fprintf(w, "    .long %d\n", word)
		}
	}
}
