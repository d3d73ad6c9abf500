package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is a three-address-code operator.
type Op int

const (
	OpAssign Op = iota // R = A

	// Arithmetic. The quad's Float flag selects float arithmetic.
	OpAdd // R = A + B
	OpSub // R = A - B
	OpMul // R = A * B
	OpDiv // R = A / B
	OpMod // R = A % B (int only)
	OpNeg // R = -A
	OpNot // R = !A (int only)

	// Relational: R = (A rel B) as 0/1. Float flag selects float compare.
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe

	OpItoF // R = float(A)

	// Control flow. Targets are quadruple indices.
	OpJp  // goto A
	OpJpf // if A == 0 goto B

	// Calls.
	OpParam // pass A as the next argument
	OpCall  // call function A with B=#argc; result (if any) in R
	OpRet   // return A (A may be empty for void returns)

	// Arrays.
	OpLoadIdx  // R = A[B]   (A is the array base, B the element index value)
	OpStoreIdx // R[B] = A   (R is the array base)

	// Primitive I/O.
	OpPrint // output(A); Float flag selects the float form
	OpRead  // R = input()
)

var opNames = [...]string{
	OpAssign:   "ASSIGN",
	OpAdd:      "ADD",
	OpSub:      "SUB",
	OpMul:      "MUL",
	OpDiv:      "DIV",
	OpMod:      "MOD",
	OpNeg:      "NEG",
	OpNot:      "NOT",
	OpLt:       "LT",
	OpLe:       "LE",
	OpGt:       "GT",
	OpGe:       "GE",
	OpEq:       "EQ",
	OpNe:       "NE",
	OpItoF:     "ITOF",
	OpJp:       "JP",
	OpJpf:      "JPF",
	OpParam:    "PARAM",
	OpCall:     "CALL",
	OpRet:      "RET",
	OpLoadIdx:  "LDIDX",
	OpStoreIdx: "STIDX",
	OpPrint:    "PRINT",
	OpRead:     "READ",
}

func (op Op) String() string {
	if int(op) >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

var opByName = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for i, n := range opNames {
		m[n] = Op(i)
	}
	return m
}()

// OperandKind says how an Operand's fields are interpreted.
type OperandKind int

const (
	OperNone   OperandKind = iota // absent operand
	OperImm                       // integer immediate in Val
	OperFImm                      // float immediate in Flt
	OperGlobal                    // Val = offset in the global segment
	OperLocal                     // Val = frame offset (param or local area)
	OperTemp                      // Val = offset in the temp area, Name = tN
	OperTarget                    // Val = quadruple index
	OperFunc                      // Name = function name; Val = entry index after finalization
)

// Operand references a literal, a storage location, a jump target or a
// function. Float marks operands whose storage holds a float value.
type Operand struct {
	Kind  OperandKind
	Val   int
	Flt   float64
	Name  string // symbol name, temp name or function name (listings)
	Float bool
}

func (o Operand) String() string {
	switch o.Kind {
	case OperNone:
		return ""
	case OperImm:
		return "#" + strconv.Itoa(o.Val)
	case OperFImm:
		return "#F" + strconv.FormatFloat(o.Flt, 'g', -1, 64)
	case OperGlobal:
		return fmt.Sprintf("g%d:%s", o.Val, o.Name)
	case OperLocal:
		return fmt.Sprintf("l%d:%s", o.Val, o.Name)
	case OperTemp:
		return fmt.Sprintf("%s@%d", o.Name, o.Val)
	case OperTarget:
		return "@" + strconv.Itoa(o.Val)
	case OperFunc:
		return fmt.Sprintf("fn%d:%s", o.Val, o.Name)
	default:
		return "?"
	}
}

// Quad is one three-address instruction.
type Quad struct {
	Op    Op
	A     Operand
	B     Operand
	R     Operand
	Float bool // operate on floats (arithmetic, relational, print)
}

func (q Quad) String() string {
	op := q.Op.String()
	if q.Float {
		op += "F"
	}
	return fmt.Sprintf("(%s, %s, %s, %s)", op, q.A, q.B, q.R)
}

// FuncInfo ties a function name to its entry quad index and frame layout.
type FuncInfo struct {
	Name       string
	Entry      int
	FrameSize  int
	ParamBytes int // size of the parameter area at frame offset 0
	TempBase   int // frame offset where the temp area starts
}

// Program is a finalized three-address program: the flat quad sequence plus
// the per-function layout the backend and the interpreter both need.
type Program struct {
	Quads       []Quad
	Funcs       []FuncInfo
	GlobalBytes int
}

// Func returns the layout record for a function name.
func (p *Program) Func(name string) (FuncInfo, bool) {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return FuncInfo{}, false
}

// Listing serializes the program to the pipeline hand-off format: directive
// lines for the globals segment and each function, then one numbered quad per
// line. ParseListing reverses it.
func (p *Program) Listing() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#globals %d\n", p.GlobalBytes)
	for _, f := range p.Funcs {
		fmt.Fprintf(&sb, "#func %s entry=%d frame=%d params=%d tempbase=%d\n",
			f.Name, f.Entry, f.FrameSize, f.ParamBytes, f.TempBase)
	}
	for i, q := range p.Quads {
		fmt.Fprintf(&sb, "%d\t%s\n", i, q)
	}
	return sb.String()
}

// ParseListing reconstructs a Program from its Listing text.
func ParseListing(text string) (*Program, error) {
	p := &Program{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#globals ") {
			n, err := strconv.Atoi(strings.TrimPrefix(line, "#globals "))
			if err != nil {
				return nil, fmt.Errorf("bad globals directive %q", line)
			}
			p.GlobalBytes = n
			continue
		}
		if strings.HasPrefix(line, "#func ") {
			f, err := parseFuncDirective(line)
			if err != nil {
				return nil, err
			}
			p.Funcs = append(p.Funcs, f)
			continue
		}
		q, err := parseQuadLine(line)
		if err != nil {
			return nil, err
		}
		p.Quads = append(p.Quads, q)
	}
	return p, nil
}

func parseFuncDirective(line string) (FuncInfo, error) {
	fields := strings.Fields(strings.TrimPrefix(line, "#func "))
	if len(fields) != 5 {
		return FuncInfo{}, fmt.Errorf("bad func directive %q", line)
	}
	f := FuncInfo{Name: fields[0]}
	for _, kv := range fields[1:] {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			return FuncInfo{}, fmt.Errorf("bad func directive %q", line)
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return FuncInfo{}, fmt.Errorf("bad func directive %q", line)
		}
		switch key {
		case "entry":
			f.Entry = n
		case "frame":
			f.FrameSize = n
		case "params":
			f.ParamBytes = n
		case "tempbase":
			f.TempBase = n
		default:
			return FuncInfo{}, fmt.Errorf("unknown key %q in %q", key, line)
		}
	}
	return f, nil
}

func parseQuadLine(line string) (Quad, error) {
	_, rest, ok := strings.Cut(line, "\t")
	if !ok {
		return Quad{}, fmt.Errorf("bad quad line %q", line)
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return Quad{}, fmt.Errorf("bad quad line %q", line)
	}
	parts := strings.Split(rest[1:len(rest)-1], ",")
	if len(parts) != 4 {
		return Quad{}, fmt.Errorf("bad quad line %q", line)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var q Quad
	opName := parts[0]
	if strings.HasSuffix(opName, "F") && opName != "JPF" && opName != "ITOF" {
		if _, ok := opByName[opName]; !ok {
			q.Float = true
			opName = strings.TrimSuffix(opName, "F")
		}
	}
	op, ok := opByName[opName]
	if !ok {
		return Quad{}, fmt.Errorf("unknown operator %q in %q", parts[0], line)
	}
	q.Op = op

	var err error
	if q.A, err = parseOperand(parts[1]); err != nil {
		return Quad{}, fmt.Errorf("%v in %q", err, line)
	}
	if q.B, err = parseOperand(parts[2]); err != nil {
		return Quad{}, fmt.Errorf("%v in %q", err, line)
	}
	if q.R, err = parseOperand(parts[3]); err != nil {
		return Quad{}, fmt.Errorf("%v in %q", err, line)
	}
	return q, nil
}

func parseOperand(s string) (Operand, error) {
	if s == "" {
		return Operand{}, nil
	}
	switch {
	case strings.HasPrefix(s, "#F"):
		f, err := strconv.ParseFloat(s[2:], 64)
		if err != nil {
			return Operand{}, fmt.Errorf("bad float immediate %q", s)
		}
		return Operand{Kind: OperFImm, Flt: f, Float: true}, nil
	case strings.HasPrefix(s, "#"):
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			return Operand{}, fmt.Errorf("bad immediate %q", s)
		}
		return Operand{Kind: OperImm, Val: n}, nil
	case strings.HasPrefix(s, "@"):
		n, err := strconv.Atoi(s[1:])
		if err != nil {
			return Operand{}, fmt.Errorf("bad target %q", s)
		}
		return Operand{Kind: OperTarget, Val: n}, nil
	case strings.HasPrefix(s, "g"), strings.HasPrefix(s, "l"):
		numPart, name, _ := strings.Cut(s[1:], ":")
		n, err := strconv.Atoi(numPart)
		if err != nil {
			return Operand{}, fmt.Errorf("bad address %q", s)
		}
		kind := OperGlobal
		if s[0] == 'l' {
			kind = OperLocal
		}
		return Operand{Kind: kind, Val: n, Name: name}, nil
	case strings.HasPrefix(s, "t"):
		name, numPart, ok := strings.Cut(s, "@")
		if !ok {
			return Operand{}, fmt.Errorf("bad temp %q", s)
		}
		n, err := strconv.Atoi(numPart)
		if err != nil {
			return Operand{}, fmt.Errorf("bad temp %q", s)
		}
		return Operand{Kind: OperTemp, Val: n, Name: name}, nil
	case strings.HasPrefix(s, "fn"):
		numPart, name, _ := strings.Cut(s[2:], ":")
		n, err := strconv.Atoi(numPart)
		if err != nil {
			return Operand{}, fmt.Errorf("bad function operand %q", s)
		}
		return Operand{Kind: OperFunc, Val: n, Name: name}, nil
	default:
		return Operand{}, fmt.Errorf("unrecognized operand %q", s)
	}
}
