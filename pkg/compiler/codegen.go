package compiler

import (
	"fmt"
	"strconv"
)

// EntryName is the synthetic function that holds top-level statements. It is
// emitted first and becomes the program entry point.
const EntryName = "__main__"

// funcCode is the quad sequence of one function while it is being generated.
// Jump targets are local to the sequence until Finalize rebases them.
type funcCode struct {
	name  string
	quads []Quad
	tempN int // temporaries allocated so far, monotonic per function
}

// loopFrame tracks the open backpatch lists of one enclosing loop.
type loopFrame struct {
	breaks     []int // local indices of JP quads waiting for the loop end
	contTarget int   // where continue jumps: condition (while) or post (for)
}

// Gen emits three-address code as the parser completes each construct and
// owns the backpatch lists for open control-flow constructs. Storage for
// temporaries comes from the MemoryManager.
type Gen struct {
	mm    *MemoryManager
	entry *funcCode
	funcs []*funcCode
	cur   *funcCode

	// loops holds the open loops of the current function only; a function
	// body never patches jumps of the function that encloses its declaration.
	loops      []*loopFrame
	outerLoops [][]*loopFrame
}

func NewGen(mm *MemoryManager) *Gen {
	g := &Gen{mm: mm}
	g.entry = &funcCode{name: EntryName}
	g.funcs = append(g.funcs, g.entry)
	g.cur = g.entry
	mm.BeginFunction(EntryName)
	return g
}

// Here returns the index the next emitted quad will get (function-local).
func (g *Gen) Here() int { return len(g.cur.quads) }

func (g *Gen) emit(q Quad) int {
	g.cur.quads = append(g.cur.quads, q)
	return len(g.cur.quads) - 1
}

// NewTemp allocates a fresh temporary slot in the current frame.
func (g *Gen) NewTemp(float bool) Operand {
	off := g.mm.AllocTemp(WordSize)
	name := "t" + strconv.Itoa(g.cur.tempN)
	g.cur.tempN++
	return Operand{Kind: OperTemp, Val: off, Name: name, Float: float}
}

// BeginFunction switches emission to a new function body. The enclosing
// loop stack is set aside so break and continue never bind across the
// function boundary.
func (g *Gen) BeginFunction(name string) {
	f := &funcCode{name: name}
	g.funcs = append(g.funcs, f)
	g.cur = f
	g.outerLoops = append(g.outerLoops, g.loops)
	g.loops = nil
	g.mm.BeginFunction(name)
}

// EndFunction closes the current function and resumes the entry sequence.
// A function body that falls off the end returns implicitly.
func (g *Gen) EndFunction() {
	if len(g.cur.quads) == 0 || g.cur.quads[len(g.cur.quads)-1].Op != OpRet {
		g.emit(Quad{Op: OpRet})
	}
	g.mm.EndFunction()
	g.cur = g.entry
	g.loops = g.outerLoops[len(g.outerLoops)-1]
	g.outerLoops = g.outerLoops[:len(g.outerLoops)-1]
	g.mm.Resume(EntryName)
}

// Rvalue materializes v as a plain value: array-element references are loaded
// into a fresh temporary, everything else passes through.
func (g *Gen) Rvalue(v Value) Value {
	if !v.IsElem {
		return v
	}
	t := g.NewTemp(v.T.Base == TypeFloat)
	g.emit(Quad{Op: OpLoadIdx, A: operandFor(v.ArrBase), B: v.ArrIdx, R: t,
		Float: v.T.Base == TypeFloat})
	return Value{Oper: t, T: v.T}
}

// Widen emits the int-to-float conversion into a fresh temporary.
func (g *Gen) Widen(v Value) Value {
	v = g.Rvalue(v)
	t := g.NewTemp(true)
	g.emit(Quad{Op: OpItoF, A: v.Oper, R: t})
	return Value{Oper: t, T: Type{Base: TypeFloat}}
}

// Binary emits l op r into a fresh temporary of the synthesized type.
func (g *Gen) Binary(op TokenType, l, r Value, resT Type) Value {
	l, r = g.Rvalue(l), g.Rvalue(r)
	isFloat := l.T.Base == TypeFloat || r.T.Base == TypeFloat
	t := g.NewTemp(resT.Base == TypeFloat)
	g.emit(Quad{Op: quadOp(op), A: l.Oper, B: r.Oper, R: t, Float: isFloat})
	return Value{Oper: t, T: resT}
}

// Unary emits -v or !v into a fresh temporary.
func (g *Gen) Unary(op TokenType, v Value, resT Type) Value {
	v = g.Rvalue(v)
	t := g.NewTemp(resT.Base == TypeFloat)
	o := OpNeg
	if op == NOT {
		o = OpNot
	}
	g.emit(Quad{Op: o, A: v.Oper, R: t, Float: v.T.Base == TypeFloat})
	return Value{Oper: t, T: resT}
}

// Assign stores src into the lvalue dst (plain variable or array element).
func (g *Gen) Assign(dst Value, src Value) {
	src = g.Rvalue(src)
	isFloat := dst.T.Base == TypeFloat
	if dst.IsElem {
		g.emit(Quad{Op: OpStoreIdx, A: src.Oper, B: dst.ArrIdx,
			R: operandFor(dst.ArrBase), Float: isFloat})
		return
	}
	g.emit(Quad{Op: OpAssign, A: src.Oper, R: dst.Oper, Float: isFloat})
}

// JumpFalse emits a conditional jump with a placeholder target and returns
// its index for backpatching.
func (g *Gen) JumpFalse(cond Value) int {
	cond = g.Rvalue(cond)
	return g.emit(Quad{Op: OpJpf, A: cond.Oper, B: Operand{Kind: OperTarget, Val: -1}})
}

// Jump emits an unconditional jump with a placeholder target.
func (g *Gen) Jump() int {
	return g.emit(Quad{Op: OpJp, A: Operand{Kind: OperTarget, Val: -1}})
}

// JumpTo emits an unconditional jump to a known local target.
func (g *Gen) JumpTo(target int) {
	g.emit(Quad{Op: OpJp, A: Operand{Kind: OperTarget, Val: target}})
}

// Patch resolves the placeholder target of the jump at idx to target.
func (g *Gen) Patch(idx, target int) {
	q := &g.cur.quads[idx]
	switch q.Op {
	case OpJp:
		q.A.Val = target
	case OpJpf:
		q.B.Val = target
	default:
		panic(fmt.Sprintf("patch of non-jump quad %d (%s)", idx, q.Op))
	}
}

// PatchHere resolves idx to the next emitted quad.
func (g *Gen) PatchHere(idx int) { g.Patch(idx, g.Here()) }

// OpenLoop pushes a loop construct whose continue target is already known.
func (g *Gen) OpenLoop(contTarget int) {
	g.loops = append(g.loops, &loopFrame{contTarget: contTarget})
}

// InLoop reports whether a loop construct is open in the current function.
func (g *Gen) InLoop() bool { return len(g.loops) > 0 }

// Break emits the loop-exit jump, recorded for backpatching at CloseLoop.
func (g *Gen) Break() {
	if !g.InLoop() {
		return // semantic error already recorded by the analyser
	}
	top := g.loops[len(g.loops)-1]
	top.breaks = append(top.breaks, g.Jump())
}

// Continue jumps to the open loop's continue target.
func (g *Gen) Continue() {
	if !g.InLoop() {
		return
	}
	g.JumpTo(g.loops[len(g.loops)-1].contTarget)
}

// CloseLoop pops the innermost loop and resolves its pending break jumps to
// the next emitted quad, leaving no dangling placeholders.
func (g *Gen) CloseLoop() {
	top := g.loops[len(g.loops)-1]
	g.loops = g.loops[:len(g.loops)-1]
	for _, idx := range top.breaks {
		g.PatchHere(idx)
	}
}

// Call emits the param sequence and the call. Arguments must already be
// rvalues with widening applied. A void call yields a typed but empty Value.
func (g *Gen) Call(sym *Symbol, args []Value) Value {
	for _, arg := range args {
		g.emit(Quad{Op: OpParam, A: arg.Oper, Float: arg.T.Base == TypeFloat})
	}
	q := Quad{Op: OpCall,
		A: Operand{Kind: OperFunc, Name: sym.Name},
		B: Operand{Kind: OperImm, Val: len(args)}}
	ret := Value{T: sym.Ret}
	if sym.Ret.Base != TypeVoid {
		t := g.NewTemp(sym.Ret.Base == TypeFloat)
		q.R = t
		ret.Oper = t
	}
	g.emit(q)
	return ret
}

// Return emits the return quad; v is nil for a bare return.
func (g *Gen) Return(v *Value) {
	q := Quad{Op: OpRet}
	if v != nil {
		rv := g.Rvalue(*v)
		q.A = rv.Oper
		q.Float = rv.T.Base == TypeFloat
	}
	g.emit(q)
}

// Print emits the output() primitive.
func (g *Gen) Print(v Value) {
	v = g.Rvalue(v)
	g.emit(Quad{Op: OpPrint, A: v.Oper, Float: v.T.Base == TypeFloat})
}

// Read emits the input() primitive into a fresh temporary.
func (g *Gen) Read() Value {
	t := g.NewTemp(false)
	g.emit(Quad{Op: OpRead, R: t})
	return Value{Oper: t, T: Type{Base: TypeInt}}
}

// LoadConstBool materializes a 0/1 into temp t. Used when lowering the
// short-circuit forms of && and ||.
func (g *Gen) LoadConstBool(t Operand, v int) {
	g.emit(Quad{Op: OpAssign, A: Operand{Kind: OperImm, Val: v}, R: t})
}

// BoolFrom normalizes v to 0/1 in temp t (t = v != 0).
func (g *Gen) BoolFrom(v Value, t Operand) {
	v = g.Rvalue(v)
	g.emit(Quad{Op: OpNe, A: v.Oper, B: Operand{Kind: OperImm, Val: 0}, R: t})
}

// Finalize closes the entry sequence, concatenates every function into one
// program, rebases all local jump targets and resolves function entries.
// callMain controls whether the entry tail calls a user-declared main.
func (g *Gen) Finalize(callMain bool) *Program {
	if callMain {
		g.cur = g.entry
		g.emit(Quad{Op: OpCall,
			A: Operand{Kind: OperFunc, Name: "main"},
			B: Operand{Kind: OperImm, Val: 0}})
	}
	g.entry.quads = append(g.entry.quads, Quad{Op: OpRet})
	g.mm.Resume(EntryName)
	g.mm.EndFunction()

	prog := &Program{GlobalBytes: g.mm.GlobalBytes()}
	entries := make(map[string]int, len(g.funcs))
	base := 0
	for _, f := range g.funcs {
		entries[f.name] = base
		frame, _ := g.mm.Frame(f.name)
		prog.Funcs = append(prog.Funcs, FuncInfo{
			Name:       f.name,
			Entry:      base,
			FrameSize:  frame.Size(),
			ParamBytes: frame.ParamBytes,
			TempBase:   frame.ParamBytes + frame.LocalBytes,
		})
		base += len(f.quads)
	}
	base = 0
	for _, f := range g.funcs {
		for _, q := range f.quads {
			if q.Op == OpJp {
				q.A.Val += base
			}
			if q.Op == OpJpf {
				q.B.Val += base
			}
			if q.Op == OpCall {
				q.A.Val = entries[q.A.Name]
			}
			prog.Quads = append(prog.Quads, q)
		}
		base += len(f.quads)
	}
	return prog
}

// operandFor builds the storage operand for a declared symbol.
func operandFor(sym *Symbol) Operand {
	if sym == nil {
		return Operand{Kind: OperImm} // error recovery placeholder
	}
	kind := OperLocal
	if sym.Class == ClassGlobal {
		kind = OperGlobal
	}
	return Operand{Kind: kind, Val: sym.Addr, Name: sym.Name,
		Float: sym.Type.Base == TypeFloat}
}

// quadOp maps a source operator token to its quad operator.
func quadOp(op TokenType) Op {
	switch op {
	case PLUS:
		return OpAdd
	case MINUS:
		return OpSub
	case STAR:
		return OpMul
	case SLASH:
		return OpDiv
	case PERCENT:
		return OpMod
	case LESS:
		return OpLt
	case LESS_EQ:
		return OpLe
	case GREATER:
		return OpGt
	case GREATER_EQ:
		return OpGe
	case EQUALS:
		return OpEq
	case NOT_EQ:
		return OpNe
	}
	panic("no quad operator for " + op.String())
}
