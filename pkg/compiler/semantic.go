package compiler

// Value is the synthesized attribute of one parsed expression: where the
// result lives and what type it has. Types flow bottom-up through the parse;
// the analyser validates them and the generator consumes the operands.
type Value struct {
	Oper Operand
	T    Type

	// Lvalue forms. Sym is set for a plain variable reference; ArrBase and
	// ArrIdx describe an array-element reference that has not been loaded yet.
	Sym     *Symbol
	IsElem  bool
	ArrBase *Symbol
	ArrIdx  Operand
}

func intValue(n int) Value {
	return Value{Oper: Operand{Kind: OperImm, Val: n}, T: Type{Base: TypeInt}}
}

// Analyser validates declarations, expressions and statements as the parser
// completes each production. Every failure is recorded and analysis continues
// with a best-effort result type so later errors still surface in one run.
type Analyser struct {
	Errors *ErrorList

	curRet Type // declared return type of the enclosing function
	inFunc bool
}

func NewAnalyser() *Analyser {
	return &Analyser{Errors: newErrorList(NoSemanticErrors)}
}

// BeginFunction records the enclosing return type for return checking.
func (a *Analyser) BeginFunction(ret Type) {
	a.curRet = ret
	a.inFunc = true
}

func (a *Analyser) EndFunction() {
	a.curRet = Type{}
	a.inFunc = false
}

// ArraySize validates a declared array dimension. Zero or negative lengths
// are rejected; the caller substitutes length 1 so layout can continue.
func (a *Analyser) ArraySize(name string, n, line int) bool {
	if n <= 0 {
		a.Errors.Add(line, "invalid array size %d for '%s'", n, name)
		return false
	}
	return true
}

// Redeclared reports a same-scope duplicate declaration.
func (a *Analyser) Redeclared(name string, line int) {
	a.Errors.Add(line, "redeclaration of '%s'", name)
}

// Undeclared reports an identifier with no declaration in any active scope.
func (a *Analyser) Undeclared(name string, line int) {
	a.Errors.Add(line, "undeclared identifier '%s'", name)
}

func scalarOperand(v Value) bool { return v.T.IsScalar() }

// Binary synthesizes the result type of l op r and says which side needs the
// implicit int-to-float widening. Widening is one-directional: int operands
// widen to float, a float operand never narrows (narrowing is a mismatch by
// construction since assignment is checked separately).
func (a *Analyser) Binary(op TokenType, l, r Value, line int) (t Type, widenL, widenR bool) {
	// Best-effort fallback: the left operand's type if usable, else int.
	fallback := Type{Base: TypeInt}
	if scalarOperand(l) {
		fallback = l.T
	}

	if !scalarOperand(l) || !scalarOperand(r) {
		a.Errors.Add(line, "type mismatch: operator %s needs scalar operands (got %s and %s)",
			opLexeme(op), l.T, r.T)
		return fallback, false, false
	}

	intOnly := op == PERCENT
	if intOnly && (l.T.Base == TypeFloat || r.T.Base == TypeFloat) {
		a.Errors.Add(line, "type mismatch: operator %% needs int operands (got %s and %s)", l.T, r.T)
		return fallback, false, false
	}

	switch {
	case l.T.Base == TypeFloat && r.T.Base == TypeInt:
		widenR = true
	case l.T.Base == TypeInt && r.T.Base == TypeFloat:
		widenL = true
	}

	resBase := l.T.Base
	if widenL || widenR || l.T.Base == TypeFloat {
		resBase = TypeFloat
	}
	if isRelational(op) || op == AND_AND || op == OR_OR {
		// Relational and logical results are always int 0/1.
		return Type{Base: TypeInt}, widenL, widenR
	}
	return Type{Base: resBase}, widenL, widenR
}

// Unary checks -x and !x.
func (a *Analyser) Unary(op TokenType, v Value, line int) Type {
	if !scalarOperand(v) {
		a.Errors.Add(line, "type mismatch: operator %s needs a scalar operand (got %s)",
			opLexeme(op), v.T)
		return Type{Base: TypeInt}
	}
	if op == NOT {
		if v.T.Base != TypeInt {
			a.Errors.Add(line, "type mismatch: operator ! needs an int operand (got %s)", v.T)
		}
		return Type{Base: TypeInt}
	}
	return v.T
}

// Condition requires an int-valued controlling expression.
func (a *Analyser) Condition(v Value, line int) {
	if v.T.Base != TypeInt || v.T.Array {
		a.Errors.Add(line, "type mismatch: condition must be int (got %s)", v.T)
	}
}

// Index checks base[idx]: the base must be an array, the index an int.
// Best effort: the element type (or int) is synthesized regardless.
func (a *Analyser) Index(base *Symbol, idx Value, line int) Type {
	elem := Type{Base: TypeInt}
	if base != nil {
		if !base.Type.Array {
			a.Errors.Add(line, "invalid index: '%s' is not an array", base.Name)
			return base.Type
		}
		elem = Type{Base: base.Type.Base}
	}
	if idx.T.Base != TypeInt || idx.T.Array {
		a.Errors.Add(line, "invalid index: index into '%s' must be int (got %s)", symName(base), idx.T)
	}
	return elem
}

// Call checks arity and per-argument type agreement against the declaration
// and returns the call's result type plus, per argument, whether it needs the
// int-to-float widening.
func (a *Analyser) Call(sym *Symbol, args []Value, line int) (Type, []bool) {
	widen := make([]bool, len(args))
	if !sym.IsFunc {
		a.Errors.Add(line, "invalid call: '%s' is not a function", sym.Name)
		return sym.Type, widen
	}
	if len(args) != len(sym.Params) {
		a.Errors.Add(line, "argument mismatch in call to '%s': expected %d, got %d",
			sym.Name, len(sym.Params), len(args))
		return sym.Ret, widen
	}
	for i, arg := range args {
		want := sym.Params[i]
		switch {
		case arg.T == want:
		case arg.T.Base == TypeInt && !arg.T.Array && want.Base == TypeFloat && !want.Array:
			widen[i] = true
		default:
			a.Errors.Add(line, "argument mismatch in call to '%s': argument %d is %s, expected %s",
				sym.Name, i+1, arg.T, want)
		}
	}
	return sym.Ret, widen
}

// Assign checks dst = src and reports whether src needs widening.
func (a *Analyser) Assign(dst Type, src Value, line int) bool {
	if dst.Array || !scalarOperand(src) {
		a.Errors.Add(line, "type mismatch: cannot assign %s to %s", src.T, dst)
		return false
	}
	switch {
	case dst.Base == src.T.Base:
		return false
	case dst.Base == TypeFloat && src.T.Base == TypeInt:
		return true
	default:
		a.Errors.Add(line, "type mismatch: cannot assign %s to %s", src.T, dst)
		return false
	}
}

// Return checks a return statement against the enclosing function. Returns
// whether the value (if any) needs widening.
func (a *Analyser) Return(hasValue bool, v Value, line int) bool {
	if !a.inFunc {
		if hasValue {
			a.Errors.Add(line, "invalid control statement: return with a value outside a function")
		}
		return false
	}
	if !hasValue {
		return false
	}
	if a.curRet.Base == TypeVoid {
		a.Errors.Add(line, "type mismatch: return with a value in a void function")
		return false
	}
	return a.Assign(a.curRet, v, line)
}

// ControlOutsideLoop reports a break or continue with no enclosing loop.
func (a *Analyser) ControlOutsideLoop(keyword string, line int) {
	a.Errors.Add(line, "invalid control statement: '%s' outside a loop", keyword)
}

// VoidDecl rejects variables declared void.
func (a *Analyser) VoidDecl(name string, line int) {
	a.Errors.Add(line, "illegal type void for '%s'", name)
}

func symName(s *Symbol) string {
	if s == nil {
		return "?"
	}
	return s.Name
}

func isRelational(op TokenType) bool {
	switch op {
	case LESS, LESS_EQ, GREATER, GREATER_EQ, EQUALS, NOT_EQ:
		return true
	}
	return false
}

func opLexeme(op TokenType) string {
	switch op {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	case PERCENT:
		return "%"
	case LESS:
		return "<"
	case LESS_EQ:
		return "<="
	case GREATER:
		return ">"
	case GREATER_EQ:
		return ">="
	case EQUALS:
		return "=="
	case NOT_EQ:
		return "!="
	case AND_AND:
		return "&&"
	case OR_OR:
		return "||"
	case NOT:
		return "!"
	}
	return op.String()
}
