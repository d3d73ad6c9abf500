package compiler

// Unit bundles the freshly initialized per-run pipeline state: scanner,
// symbol table, memory manager, analyser and generator. Pipeline state is
// mutable and process-wide within a run, so a Unit must never be shared
// between concurrent compilations; create one per source text.
type Unit struct {
	Scanner *Scanner
	Table   *SymbolTable
	Mem     *MemoryManager
	Sema    *Analyser
	Gen     *Gen
	Parser  *Parser
}

// NewUnit wires a complete pipeline over src. buildTree enables the optional
// derivation-tree dump. The primitive I/O functions output() and input() are
// predeclared in the global scope.
func NewUnit(src string, buildTree bool) *Unit {
	sc := NewScanner(src)
	st := NewSymbolTable()
	mm := NewMemoryManager()
	sema := NewAnalyser()
	gen := NewGen(mm)

	st.Declare(&Symbol{Name: "output", IsFunc: true, Builtin: true,
		Ret: Type{Base: TypeVoid}, Params: []Type{{Base: TypeInt}}})
	st.Declare(&Symbol{Name: "input", IsFunc: true, Builtin: true,
		Ret: Type{Base: TypeInt}})

	return &Unit{
		Scanner: sc,
		Table:   st,
		Mem:     mm,
		Sema:    sema,
		Gen:     gen,
		Parser:  NewParser(sc, st, mm, sema, gen, buildTree),
	}
}

// Run drives the single parse pass and finalizes the three-address program.
// The returned error is a structural failure (address-space exhaustion) and
// aborts the run; accumulated diagnostics are not errors in this sense and
// must be inspected separately before using the program.
func (u *Unit) Run() (*Program, error) {
	u.Parser.Parse()
	prog := u.Gen.Finalize(u.Parser.HasMain())
	if err := u.Mem.Err(); err != nil {
		return nil, err
	}
	return prog, nil
}

// ErrorCount sums all three diagnostic categories.
func (u *Unit) ErrorCount() int {
	return u.Scanner.Errors.Count() + u.Parser.Errors.Count() + u.Sema.Errors.Count()
}

// Clean reports a run with zero errors across all categories; only then may
// the backend consume the program.
func (u *Unit) Clean() bool { return u.ErrorCount() == 0 }
