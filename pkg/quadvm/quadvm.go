// Package quadvm executes a finalized three-address program directly,
// without lowering it to machine code. The compiled-program interpreter
// (cmd/tester) is built on it, and tests use it to verify control flow by
// symbolic execution of the quadruple sequence.
package quadvm

import (
	"fmt"
	"io"
	"math"

	"github.com/Mohtashimkhan22/C-to-ARM-Cross-Compiler/pkg/compiler"
)

// DefaultMaxSteps bounds runaway programs (the VM has no preemption).
const DefaultMaxSteps = 1_000_000

// frame is one activation record: a word-addressed image of the function's
// parameter, local and temp areas.
type frame struct {
	fn     compiler.FuncInfo
	mem    []uint32
	retPC  int
	retDst compiler.Operand // where the caller wants the return value
}

// VM interprets a quad program. Every storage slot holds raw 32 bits;
// the executing quad's Float flag selects the interpretation.
type VM struct {
	prog    *compiler.Program
	globals []uint32
	stack   []*frame
	pending []uint32 // evaluated arguments awaiting the next CALL
	out     io.Writer

	Inputs   []int32 // queue consumed by the input() primitive
	MaxSteps int
	Steps    int // quads executed by the last Run
}

// New builds a VM over prog writing PRINT lines to out.
func New(prog *compiler.Program, out io.Writer) *VM {
	return &VM{
		prog:     prog,
		globals:  make([]uint32, prog.GlobalBytes/compiler.WordSize+1),
		out:      out,
		MaxSteps: DefaultMaxSteps,
	}
}

func (vm *VM) top() *frame { return vm.stack[len(vm.stack)-1] }

func (vm *VM) read(o compiler.Operand) (uint32, error) {
	switch o.Kind {
	case compiler.OperImm:
		return uint32(int32(o.Val)), nil
	case compiler.OperFImm:
		return math.Float32bits(float32(o.Flt)), nil
	case compiler.OperGlobal:
		return vm.globals[o.Val/compiler.WordSize], nil
	case compiler.OperLocal:
		return vm.top().mem[o.Val/compiler.WordSize], nil
	case compiler.OperTemp:
		return vm.top().mem[(vm.top().fn.TempBase+o.Val)/compiler.WordSize], nil
	default:
		return 0, fmt.Errorf("unreadable operand %s", o)
	}
}

func (vm *VM) write(o compiler.Operand, bits uint32) error {
	switch o.Kind {
	case compiler.OperGlobal:
		vm.globals[o.Val/compiler.WordSize] = bits
	case compiler.OperLocal:
		vm.top().mem[o.Val/compiler.WordSize] = bits
	case compiler.OperTemp:
		vm.top().mem[(vm.top().fn.TempBase+o.Val)/compiler.WordSize] = bits
	default:
		return fmt.Errorf("unwritable operand %s", o)
	}
	return nil
}

// elemSlot resolves base[idx] to a writable cell.
func (vm *VM) elemSlot(base compiler.Operand, idx int32) (*uint32, error) {
	off := base.Val + int(idx)*compiler.WordSize
	switch base.Kind {
	case compiler.OperGlobal:
		if off < 0 || off/compiler.WordSize >= len(vm.globals) {
			return nil, fmt.Errorf("global index out of range: %s[%d]", base.Name, idx)
		}
		return &vm.globals[off/compiler.WordSize], nil
	case compiler.OperLocal:
		f := vm.top()
		if off < 0 || off/compiler.WordSize >= len(f.mem) {
			return nil, fmt.Errorf("local index out of range: %s[%d]", base.Name, idx)
		}
		return &f.mem[off/compiler.WordSize], nil
	default:
		return nil, fmt.Errorf("indexing non-array operand %s", base)
	}
}

func newFrame(fn compiler.FuncInfo) *frame {
	return &frame{fn: fn, mem: make([]uint32, fn.FrameSize/compiler.WordSize+1)}
}

// Run executes from the program entry until the entry function returns.
func (vm *VM) Run() error {
	if len(vm.prog.Funcs) == 0 {
		return fmt.Errorf("program has no entry function")
	}
	entry := vm.prog.Funcs[0]
	vm.stack = []*frame{newFrame(entry)}
	vm.Steps = 0
	pc := entry.Entry

	for {
		if pc < 0 || pc >= len(vm.prog.Quads) {
			return fmt.Errorf("program counter out of range: %d", pc)
		}
		vm.Steps++
		if vm.Steps > vm.MaxSteps {
			return fmt.Errorf("step limit exceeded (%d quads)", vm.MaxSteps)
		}

		q := vm.prog.Quads[pc]
		next := pc + 1
		var err error

		switch q.Op {
		case compiler.OpAssign:
			var bits uint32
			if bits, err = vm.read(q.A); err == nil {
				err = vm.write(q.R, bits)
			}

		case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod,
			compiler.OpLt, compiler.OpLe, compiler.OpGt, compiler.OpGe,
			compiler.OpEq, compiler.OpNe:
			err = vm.binary(q)

		case compiler.OpNeg:
			var bits uint32
			if bits, err = vm.read(q.A); err == nil {
				if q.Float {
					bits = math.Float32bits(-math.Float32frombits(bits))
				} else {
					bits = uint32(-int32(bits))
				}
				err = vm.write(q.R, bits)
			}

		case compiler.OpNot:
			var bits uint32
			if bits, err = vm.read(q.A); err == nil {
				var res uint32
				if int32(bits) == 0 {
					res = 1
				}
				err = vm.write(q.R, res)
			}

		case compiler.OpItoF:
			var bits uint32
			if bits, err = vm.read(q.A); err == nil {
				err = vm.write(q.R, math.Float32bits(float32(int32(bits))))
			}

		case compiler.OpJp:
			next = q.A.Val

		case compiler.OpJpf:
			var bits uint32
			if bits, err = vm.read(q.A); err == nil && int32(bits) == 0 {
				next = q.B.Val
			}

		case compiler.OpParam:
			var bits uint32
			if bits, err = vm.read(q.A); err == nil {
				vm.pending = append(vm.pending, bits)
			}

		case compiler.OpCall:
			fn, ok := vm.prog.Func(q.A.Name)
			if !ok {
				err = fmt.Errorf("call to undefined function %q", q.A.Name)
				break
			}
			f := newFrame(fn)
			copy(f.mem, vm.pending)
			vm.pending = nil
			f.retPC = pc + 1
			f.retDst = q.R
			vm.stack = append(vm.stack, f)
			next = fn.Entry

		case compiler.OpRet:
			var bits uint32
			if q.A.Kind != compiler.OperNone {
				if bits, err = vm.read(q.A); err != nil {
					break
				}
			}
			done := vm.top()
			vm.stack = vm.stack[:len(vm.stack)-1]
			if len(vm.stack) == 0 {
				return nil // entry returned: program complete
			}
			if done.retDst.Kind != compiler.OperNone {
				err = vm.write(done.retDst, bits)
			}
			next = done.retPC

		case compiler.OpLoadIdx:
			var idx uint32
			if idx, err = vm.read(q.B); err == nil {
				var cell *uint32
				if cell, err = vm.elemSlot(q.A, int32(idx)); err == nil {
					err = vm.write(q.R, *cell)
				}
			}

		case compiler.OpStoreIdx:
			var val, idx uint32
			if val, err = vm.read(q.A); err == nil {
				if idx, err = vm.read(q.B); err == nil {
					var cell *uint32
					if cell, err = vm.elemSlot(q.R, int32(idx)); err == nil {
						*cell = val
					}
				}
			}

		case compiler.OpPrint:
			var bits uint32
			if bits, err = vm.read(q.A); err == nil {
				if q.Float {
					fmt.Fprintf(vm.out, "PRINT %f\n", math.Float32frombits(bits))
				} else {
					fmt.Fprintf(vm.out, "PRINT %d\n", int32(bits))
				}
			}

		case compiler.OpRead:
			var v int32
			if len(vm.Inputs) > 0 {
				v = vm.Inputs[0]
				vm.Inputs = vm.Inputs[1:]
			}
			err = vm.write(q.R, uint32(v))

		default:
			err = fmt.Errorf("unsupported operator %s at quad %d", q.Op, pc)
		}

		if err != nil {
			return fmt.Errorf("quad %d %s: %w", pc, q, err)
		}
		pc = next
	}
}

func (vm *VM) binary(q compiler.Quad) error {
	la, err := vm.read(q.A)
	if err != nil {
		return err
	}
	lb, err := vm.read(q.B)
	if err != nil {
		return err
	}

	var res uint32
	if q.Float {
		a, b := math.Float32frombits(la), math.Float32frombits(lb)
		switch q.Op {
		case compiler.OpAdd:
			res = math.Float32bits(a + b)
		case compiler.OpSub:
			res = math.Float32bits(a - b)
		case compiler.OpMul:
			res = math.Float32bits(a * b)
		case compiler.OpDiv:
			res = math.Float32bits(a / b)
		case compiler.OpLt:
			res = boolBits(a < b)
		case compiler.OpLe:
			res = boolBits(a <= b)
		case compiler.OpGt:
			res = boolBits(a > b)
		case compiler.OpGe:
			res = boolBits(a >= b)
		case compiler.OpEq:
			res = boolBits(a == b)
		case compiler.OpNe:
			res = boolBits(a != b)
		default:
			return fmt.Errorf("float form of %s", q.Op)
		}
		return vm.write(q.R, res)
	}

	a, b := int32(la), int32(lb)
	switch q.Op {
	case compiler.OpAdd:
		res = uint32(a + b)
	case compiler.OpSub:
		res = uint32(a - b)
	case compiler.OpMul:
		res = uint32(a * b)
	case compiler.OpDiv:
		if b == 0 {
			return fmt.Errorf("division by zero")
		}
		res = uint32(a / b)
	case compiler.OpMod:
		if b == 0 {
			return fmt.Errorf("division by zero")
		}
		res = uint32(a % b)
	case compiler.OpLt:
		res = boolBits(a < b)
	case compiler.OpLe:
		res = boolBits(a <= b)
	case compiler.OpGt:
		res = boolBits(a > b)
	case compiler.OpGe:
		res = boolBits(a >= b)
	case compiler.OpEq:
		res = boolBits(a == b)
	case compiler.OpNe:
		res = boolBits(a != b)
	}
	return vm.write(q.R, res)
}

func boolBits(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
