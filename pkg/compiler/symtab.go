package compiler

import (
	"fmt"
	"strings"
)

// BaseType is the scalar category of a declared type.
type BaseType int

const (
	TypeInt BaseType = iota
	TypeFloat
	TypeVoid
)

func (b BaseType) String() string {
	switch b {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	default:
		return "void"
	}
}

// Type describes a declared type: a scalar or a one-dimensional array.
type Type struct {
	Base  BaseType
	Array bool
	Len   int // element count when Array
}

func (t Type) String() string {
	if t.Array {
		return fmt.Sprintf("%s[%d]", t.Base, t.Len)
	}
	return t.Base.String()
}

// Size returns the storage size in bytes. Scalars are word-sized; arrays are
// element size times declared length.
func (t Type) Size() int {
	if t.Base == TypeVoid {
		return 0
	}
	if t.Array {
		return WordSize * t.Len
	}
	return WordSize
}

// IsScalar reports a non-array, non-void type.
func (t Type) IsScalar() bool { return !t.Array && t.Base != TypeVoid }

// StorageClass says which address space a symbol's offset belongs to.
type StorageClass int

const (
	ClassGlobal StorageClass = iota
	ClassLocal
	ClassParam
)

func (c StorageClass) String() string {
	switch c {
	case ClassGlobal:
		return "global"
	case ClassLocal:
		return "local"
	default:
		return "param"
	}
}

// Symbol is one declaration: a variable, parameter or function.
type Symbol struct {
	Name  string
	Type  Type
	Class StorageClass
	Size  int
	Addr  int // byte offset within the storage class area

	// Function-only fields.
	IsFunc  bool
	Params  []Type
	Ret     Type
	Builtin bool
}

// scope is one lexical region's namespace.
type scope struct {
	names map[string]*Symbol
}

// SymbolTable is an explicit stack of scopes. The global scope is pushed at
// construction and persists for the whole run. One instance per compilation.
type SymbolTable struct {
	scopes []*scope
	dump   []string // one row per declaration, for symbol_table.txt
}

func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{}
	st.scopes = append(st.scopes, &scope{names: make(map[string]*Symbol)})
	return st
}

// EnterScope pushes a fresh scope for a function body or block.
func (st *SymbolTable) EnterScope() {
	st.scopes = append(st.scopes, &scope{names: make(map[string]*Symbol)})
}

// ExitScope pops the innermost scope. The global scope is never popped.
func (st *SymbolTable) ExitScope() {
	if len(st.scopes) > 1 {
		st.scopes = st.scopes[:len(st.scopes)-1]
	}
}

// Depth returns the current scope depth; the global scope is depth 0.
func (st *SymbolTable) Depth() int { return len(st.scopes) - 1 }

// Declare inserts sym into the current scope. It reports false when the name
// already exists in the current scope (a redeclaration); the caller turns that
// into a semantic error.
func (st *SymbolTable) Declare(sym *Symbol) bool {
	cur := st.scopes[len(st.scopes)-1]
	if _, exists := cur.names[sym.Name]; exists {
		return false
	}
	cur.names[sym.Name] = sym
	st.dump = append(st.dump, fmt.Sprintf("%-16s  %-10s  %s+%d  depth %d",
		sym.Name, sym.Type, sym.Class, sym.Addr, st.Depth()))
	return true
}

// Lookup walks scopes innermost-to-outermost. ok is false when the name is
// not declared in any active scope.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if sym, ok := st.scopes[i].names[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// DumpText renders every declaration seen during the run, one line per symbol
// per scope, in declaration order.
func (st *SymbolTable) DumpText() string {
	var sb strings.Builder
	for _, row := range st.dump {
		sb.WriteString(row)
		sb.WriteByte('\n')
	}
	return sb.String()
}
