// Package arm lowers a finalized three-address program to ARMv8 (AArch64)
// assembly text for the Linux GNU toolchain. It performs instruction
// selection per quadruple, a simple register-allocation policy for
// temporaries (fixed pool, write-through, spill-by-eviction) and label
// resolution for all quad-index jump targets.
package arm

import (
	"fmt"
	"math"
	"strings"

	"github.com/Mohtashimkhan22/C-to-ARM-Cross-Compiler/pkg/compiler"
)

// calleeSavedBytes is the extra frame area holding the temp-pool registers
// (x19-x24) that every generated function preserves.
const calleeSavedBytes = 48

// tempPool is the fixed register pool for temporaries. All pool registers are
// callee-saved, so cached temporaries survive calls into generated functions
// and libc.
var tempPool = []string{"w19", "w20", "w21", "w22", "w23", "w24"}

// Backend holds the state of one lowering pass.
type Backend struct {
	prog *compiler.Program
	out  strings.Builder

	funcIdx  map[int]compiler.FuncInfo // entry quad index -> function
	targets  map[int]bool              // quad indices needing a local label
	cur      compiler.FuncInfo
	pool     *regAlloc
	params   []pendingParam // OpParam accumulation until the next OpCall
	retLabel string
}

type pendingParam struct {
	oper  compiler.Operand
	float bool
}

// Generate lowers prog to assembly text. It must only be called for programs
// produced by an error-free pipeline run.
func Generate(prog *compiler.Program) (string, error) {
	b := &Backend{
		prog:    prog,
		funcIdx: make(map[int]compiler.FuncInfo),
		targets: make(map[int]bool),
	}
	for _, f := range prog.Funcs {
		b.funcIdx[f.Entry] = f
	}
	b.scanTargets()
	b.emitHeader()
	if err := b.emitText(); err != nil {
		return "", err
	}
	return b.out.String(), nil
}

// scanTargets collects every quad index that a jump can land on.
func (b *Backend) scanTargets() {
	for _, q := range b.prog.Quads {
		switch q.Op {
		case compiler.OpJp:
			b.targets[q.A.Val] = true
		case compiler.OpJpf:
			b.targets[q.B.Val] = true
		}
	}
}

func (b *Backend) line(format string, args ...any) {
	fmt.Fprintf(&b.out, format+"\n", args...)
}

func (b *Backend) ins(format string, args ...any) {
	fmt.Fprintf(&b.out, "\t"+format+"\n", args...)
}

// emitHeader writes the data and bss sections: printf/scanf format strings
// and the global-variable segment.
func (b *Backend) emitHeader() {
	b.line("\t.data")
	b.line("fmt_int:\t.asciz \"PRINT %%d\\n\"")
	b.line("fmt_flt:\t.asciz \"PRINT %%f\\n\"")
	b.line("fmt_read:\t.asciz \"%%d\"")
	b.line("")
	b.line("\t.bss")
	b.line("\t.align 2")
	n := b.prog.GlobalBytes
	if n == 0 {
		n = compiler.WordSize // keep the symbol even for global-free programs
	}
	b.line("globals:\t.skip %d", n)
	b.line("read_buf:\t.skip %d", compiler.WordSize)
	b.line("")
	b.line("\t.text")
	b.line("\t.global main")
}

func funcLabel(f compiler.FuncInfo) string {
	if f.Name == compiler.EntryName {
		return "main"
	}
	return "f_" + f.Name
}

func (b *Backend) emitText() error {
	for i, q := range b.prog.Quads {
		if f, ok := b.funcIdx[i]; ok {
			b.beginFunction(f)
		}
		if b.targets[i] {
			b.line(".Lq%d:", i)
			b.pool.clear() // control-flow merge: cached temps are stale
		}
		if err := b.emitQuad(i, q); err != nil {
			return err
		}
	}
	return nil
}

// beginFunction emits the label, prologue and incoming-argument spill for the
// function whose entry quad comes next.
func (b *Backend) beginFunction(f compiler.FuncInfo) {
	b.cur = f
	b.pool = newRegAlloc()
	b.retLabel = ".Lret_" + f.Name
	total := f.FrameSize + calleeSavedBytes

	b.line("")
	b.line("%s:", funcLabel(f))
	b.emitSpAdjust("sub", total)
	b.ins("stp x29, x30, [sp]")
	b.ins("mov x29, sp")
	b.emitPoolSaves("stp")
	// Arguments arrive in w0..w7 (floats as raw bits) and are spilled to the
	// parameter area so the body can address them uniformly.
	for i := 0; i < f.ParamBytes/compiler.WordSize; i++ {
		b.ins("str w%d, [x29, #%d]", i, 16+i*compiler.WordSize)
	}
}

func (b *Backend) emitEpilogue() {
	b.line("%s:", b.retLabel)
	b.emitPoolSaves("ldp")
	b.ins("ldp x29, x30, [sp]")
	b.emitSpAdjust("add", b.cur.FrameSize+calleeSavedBytes)
	b.ins("ret")
}

// emitPoolSaves stores or reloads the temp-pool registers in the save area
// above the frame. The stp/ldp immediate only reaches 504, so larger frames
// address the area through a computed base.
func (b *Backend) emitPoolSaves(op string) {
	f := b.cur
	if f.FrameSize+32 <= 504 {
		b.ins("%s x19, x20, [x29, #%d]", op, f.FrameSize)
		b.ins("%s x21, x22, [x29, #%d]", op, f.FrameSize+16)
		b.ins("%s x23, x24, [x29, #%d]", op, f.FrameSize+32)
		return
	}
	b.frameAddr("x12", f.FrameSize)
	b.ins("%s x19, x20, [x12]", op)
	b.ins("%s x21, x22, [x12, #16]", op)
	b.ins("%s x23, x24, [x12, #32]", op)
}

// frameAddr computes x29+off into reg, splitting the offset into
// immediate-encodable add pieces (12-bit, optionally shifted by 12).
func (b *Backend) frameAddr(reg string, off int) {
	b.ins("add %s, x29, #%d", reg, off&0xFFF)
	if hi := off &^ 0xFFF; hi != 0 {
		b.ins("add %s, %s, #%d", reg, reg, hi)
	}
}

// emitSpAdjust splits a stack-pointer adjustment into immediate-encodable
// pieces (12-bit, optionally shifted by 12).
func (b *Backend) emitSpAdjust(op string, n int) {
	if lo := n & 0xFFF; lo != 0 {
		b.ins("%s sp, sp, #%d", op, lo)
	}
	if hi := n &^ 0xFFF; hi != 0 {
		b.ins("%s sp, sp, #%d", op, hi)
	}
}

// slotAddr returns the addressing operand for a frame-resident operand. The
// unsigned scaled immediate of ldr/str w reaches 16380; offsets beyond that
// are materialized into x13 first.
func (b *Backend) slotAddr(o compiler.Operand) string {
	off := o.Val
	if o.Kind == compiler.OperTemp {
		off += b.cur.TempBase
	}
	off += 16
	if off <= 16380 {
		return fmt.Sprintf("[x29, #%d]", off)
	}
	b.frameAddr("x13", off)
	return "[x13]"
}

// loadInt materializes o into the given scratch register (raw 32 bits).
func (b *Backend) loadInt(o compiler.Operand, reg string) string {
	switch o.Kind {
	case compiler.OperImm:
		b.ins("ldr %s, =%d", reg, o.Val)
	case compiler.OperFImm:
		b.ins("ldr %s, =0x%08x", reg, math.Float32bits(float32(o.Flt)))
	case compiler.OperGlobal:
		b.ins("adrp x12, globals+%d", o.Val)
		b.ins("add x12, x12, :lo12:globals+%d", o.Val)
		b.ins("ldr %s, [x12]", reg)
	case compiler.OperLocal, compiler.OperTemp:
		if o.Kind == compiler.OperTemp {
			if cached, ok := b.pool.lookup(o.Name); ok {
				return cached
			}
		}
		b.ins("ldr %s, %s", reg, b.slotAddr(o))
	default:
		b.ins("mov %s, wzr", reg)
	}
	return reg
}

// loadFloat materializes o into an s register, going through the raw-bit
// integer load.
func (b *Backend) loadFloat(o compiler.Operand, sreg, scratch string) string {
	w := b.loadInt(o, scratch)
	b.ins("fmov %s, %s", sreg, w)
	return sreg
}

// store writes the raw 32 bits in wreg to the operand's storage. Temporaries
// additionally get a pool register (write-through caching).
func (b *Backend) store(o compiler.Operand, wreg string) {
	switch o.Kind {
	case compiler.OperGlobal:
		b.ins("adrp x12, globals+%d", o.Val)
		b.ins("add x12, x12, :lo12:globals+%d", o.Val)
		b.ins("str %s, [x12]", wreg)
	case compiler.OperLocal:
		b.ins("str %s, %s", wreg, b.slotAddr(o))
	case compiler.OperTemp:
		b.ins("str %s, %s", wreg, b.slotAddr(o))
		if cached := b.pool.assign(o.Name); cached != "" {
			b.ins("mov %s, %s", cached, wreg)
		}
	}
}

// elemAddr computes the address of base[idx] into x12. The base is either a
// global or frame-resident array.
func (b *Backend) elemAddr(base, idx compiler.Operand) {
	w := b.loadInt(idx, "w10")
	b.ins("sxtw x10, %s", w)
	switch base.Kind {
	case compiler.OperGlobal:
		b.ins("adrp x12, globals+%d", base.Val)
		b.ins("add x12, x12, :lo12:globals+%d", base.Val)
	default:
		b.frameAddr("x12", 16+base.Val)
	}
	b.ins("add x12, x12, x10, lsl #2")
}

var intCond = map[compiler.Op]string{
	compiler.OpLt: "lt", compiler.OpLe: "le",
	compiler.OpGt: "gt", compiler.OpGe: "ge",
	compiler.OpEq: "eq", compiler.OpNe: "ne",
}

var floatCond = map[compiler.Op]string{
	compiler.OpLt: "mi", compiler.OpLe: "ls",
	compiler.OpGt: "gt", compiler.OpGe: "ge",
	compiler.OpEq: "eq", compiler.OpNe: "ne",
}

func (b *Backend) emitQuad(idx int, q compiler.Quad) error {
	switch q.Op {
	case compiler.OpAssign:
		w := b.loadInt(q.A, "w9")
		b.store(q.R, w)

	case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod:
		if q.Float {
			b.emitFloatArith(q)
			break
		}
		l := b.loadInt(q.A, "w9")
		r := b.loadInt(q.B, "w10")
		switch q.Op {
		case compiler.OpAdd:
			b.ins("add w11, %s, %s", l, r)
		case compiler.OpSub:
			b.ins("sub w11, %s, %s", l, r)
		case compiler.OpMul:
			b.ins("mul w11, %s, %s", l, r)
		case compiler.OpDiv:
			b.ins("sdiv w11, %s, %s", l, r)
		case compiler.OpMod:
			b.ins("sdiv w11, %s, %s", l, r)
			b.ins("msub w11, w11, %s, %s", r, l)
		}
		b.store(q.R, "w11")

	case compiler.OpNeg:
		if q.Float {
			b.loadFloat(q.A, "s9", "w9")
			b.ins("fneg s11, s9")
			b.ins("fmov w11, s11")
		} else {
			w := b.loadInt(q.A, "w9")
			b.ins("neg w11, %s", w)
		}
		b.store(q.R, "w11")

	case compiler.OpNot:
		w := b.loadInt(q.A, "w9")
		b.ins("cmp %s, #0", w)
		b.ins("cset w11, eq")
		b.store(q.R, "w11")

	case compiler.OpLt, compiler.OpLe, compiler.OpGt, compiler.OpGe,
		compiler.OpEq, compiler.OpNe:
		if q.Float {
			b.loadFloat(q.A, "s9", "w9")
			b.loadFloat(q.B, "s10", "w10")
			b.ins("fcmp s9, s10")
			b.ins("cset w11, %s", floatCond[q.Op])
		} else {
			l := b.loadInt(q.A, "w9")
			r := b.loadInt(q.B, "w10")
			b.ins("cmp %s, %s", l, r)
			b.ins("cset w11, %s", intCond[q.Op])
		}
		b.store(q.R, "w11")

	case compiler.OpItoF:
		w := b.loadInt(q.A, "w9")
		b.ins("scvtf s11, %s", w)
		b.ins("fmov w11, s11")
		b.store(q.R, "w11")

	case compiler.OpJp:
		b.ins("b .Lq%d", q.A.Val)
		b.pool.clear()

	case compiler.OpJpf:
		w := b.loadInt(q.A, "w9")
		b.ins("cbz %s, .Lq%d", w, q.B.Val)
		b.pool.clear()

	case compiler.OpParam:
		b.params = append(b.params, pendingParam{oper: q.A, float: q.Float})

	case compiler.OpCall:
		if len(b.params) > 8 {
			return fmt.Errorf("call to %s with %d register arguments", q.A.Name, len(b.params))
		}
		for i, p := range b.params {
			dst := fmt.Sprintf("w%d", i)
			if w := b.loadInt(p.oper, dst); w != dst {
				b.ins("mov %s, %s", dst, w)
			}
		}
		b.params = nil
		callee, ok := b.funcIdx[q.A.Val]
		if !ok {
			return fmt.Errorf("call to unknown entry %d (%s)", q.A.Val, q.A.Name)
		}
		b.ins("bl %s", funcLabel(callee))
		if q.R.Kind != compiler.OperNone {
			b.store(q.R, "w0")
		}

	case compiler.OpRet:
		if q.A.Kind != compiler.OperNone {
			w := b.loadInt(q.A, "w9")
			b.ins("mov w0, %s", w)
		}
		b.ins("b %s", b.retLabel)
		b.pool.clear()
		// A return ending the function is followed by the epilogue; emitted
		// when the next quad opens a new function or the program ends.
		if b.endsFunction(idx) {
			b.emitEpilogue()
		}

	case compiler.OpLoadIdx:
		b.elemAddr(q.A, q.B)
		b.ins("ldr w11, [x12]")
		b.store(q.R, "w11")

	case compiler.OpStoreIdx:
		w := b.loadInt(q.A, "w9")
		b.ins("mov w11, %s", w)
		b.elemAddr(q.R, q.B)
		b.ins("str w11, [x12]")

	case compiler.OpPrint:
		if q.Float {
			b.loadFloat(q.A, "s0", "w9")
			b.ins("fcvt d0, s0")
			b.ins("adrp x0, fmt_flt")
			b.ins("add x0, x0, :lo12:fmt_flt")
		} else {
			w := b.loadInt(q.A, "w9")
			b.ins("mov w1, %s", w)
			b.ins("adrp x0, fmt_int")
			b.ins("add x0, x0, :lo12:fmt_int")
		}
		b.ins("bl printf")

	case compiler.OpRead:
		b.ins("adrp x0, fmt_read")
		b.ins("add x0, x0, :lo12:fmt_read")
		b.ins("adrp x1, read_buf")
		b.ins("add x1, x1, :lo12:read_buf")
		b.ins("bl scanf")
		b.ins("adrp x12, read_buf")
		b.ins("add x12, x12, :lo12:read_buf")
		b.ins("ldr w11, [x12]")
		b.store(q.R, "w11")

	default:
		return fmt.Errorf("unsupported quad operator %s", q.Op)
	}
	return nil
}

func (b *Backend) emitFloatArith(q compiler.Quad) {
	b.loadFloat(q.A, "s9", "w9")
	b.loadFloat(q.B, "s10", "w10")
	switch q.Op {
	case compiler.OpAdd:
		b.ins("fadd s11, s9, s10")
	case compiler.OpSub:
		b.ins("fsub s11, s9, s10")
	case compiler.OpMul:
		b.ins("fmul s11, s9, s10")
	case compiler.OpDiv:
		b.ins("fdiv s11, s9, s10")
	}
	b.ins("fmov w11, s11")
	b.store(q.R, "w11")
}

// endsFunction reports whether quad idx is the last one of its function.
func (b *Backend) endsFunction(idx int) bool {
	if idx+1 >= len(b.prog.Quads) {
		return true
	}
	_, nextIsFunc := b.funcIdx[idx+1]
	return nextIsFunc
}

// regAlloc is the temporary-register pool. Values are written through to
// their stack slots on definition, so eviction never needs a spill store:
// forgetting the mapping is the spill.
type regAlloc struct {
	free  []string
	byTmp map[string]string
	order []string // assignment order, oldest first
}

func newRegAlloc() *regAlloc {
	r := &regAlloc{byTmp: make(map[string]string)}
	r.free = append(r.free, tempPool...)
	return r
}

// assign maps a temporary name to a pool register, evicting the oldest
// mapping when the pool is exhausted. Returns "" when the name is not a
// temporary worth caching.
func (r *regAlloc) assign(name string) string {
	if name == "" {
		return ""
	}
	if reg, ok := r.byTmp[name]; ok {
		return reg
	}
	var reg string
	if len(r.free) > 0 {
		reg = r.free[0]
		r.free = r.free[1:]
	} else {
		oldest := r.order[0]
		r.order = r.order[1:]
		reg = r.byTmp[oldest]
		delete(r.byTmp, oldest)
	}
	r.byTmp[name] = reg
	r.order = append(r.order, name)
	return reg
}

func (r *regAlloc) lookup(name string) (string, bool) {
	reg, ok := r.byTmp[name]
	return reg, ok
}

func (r *regAlloc) clear() {
	r.free = r.free[:0]
	r.free = append(r.free, tempPool...)
	r.byTmp = make(map[string]string)
	r.order = r.order[:0]
}
