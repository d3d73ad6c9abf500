package compiler

import "strconv"

// Parser performs a single top-to-bottom pass over the token stream. Semantic
// analysis and code generation are interleaved: at each completed production
// with semantic meaning the parser calls into the Analyser and the Gen, so no
// AST is materialized for code generation. The optional derivation tree is
// built on the side purely for its textual dump.
//
// Grammar:
//
//	program    = topDecl* EOF
//	topDecl    = declaration | statement
//	declaration= typeSpec ID (funcRest | varRest)
//	varRest    = ("[" NUM "]")? ";"
//	funcRest   = "(" params ")" compound            (top level only)
//	params     = "void" | e | param ("," param)*
//	param      = ("int" | "float") ID
//	statement  = declaration | compound | ifStmt | whileStmt | forStmt
//	           | breakStmt | continueStmt | returnStmt | exprStmt | ";"
//	exprStmt   = expression ";"
//	expression = orExpr ("=" expression)?           (right-assoc, lvalue checked)
//	orExpr     = andExpr ("||" andExpr)*            (short-circuit)
//	andExpr    = relExpr ("&&" relExpr)*            (short-circuit)
//	relExpr    = addExpr (relop addExpr)?
//	addExpr    = term (("+" | "-") term)*
//	term       = unary (("*" | "/" | "%") unary)*
//	unary      = ("+" | "-" | "!") unary | postfix
//	postfix    = factor ("(" args ")" | "[" expression "]")*
//	factor     = NUM | REALNUM | ID | "(" expression ")"
type Parser struct {
	sc   *Scanner
	st   *SymbolTable
	mm   *MemoryManager
	sema *Analyser
	gen  *Gen

	Errors *ErrorList // syntax errors
	tree   *treeBuilder

	cur  Token
	next Token

	// bad is set on the first syntax error of a construct; the enclosing
	// statement resynchronizes and clears it, bounding the number of errors
	// reported per malformed construct.
	bad      bool
	haveMain bool
}

func NewParser(sc *Scanner, st *SymbolTable, mm *MemoryManager, sema *Analyser, gen *Gen, buildTree bool) *Parser {
	p := &Parser{
		sc:     sc,
		st:     st,
		mm:     mm,
		sema:   sema,
		gen:    gen,
		Errors: newErrorList(NoSyntaxErrors),
		tree:   newTreeBuilder(buildTree),
	}
	p.cur = sc.NextToken()
	p.next = sc.NextToken()
	return p
}

// TreeText returns the derivation-tree dump (empty unless enabled).
func (p *Parser) TreeText() string { return p.tree.Text() }

// HasMain reports whether a top-level main function was declared.
func (p *Parser) HasMain() bool { return p.haveMain }

// advance consumes the current token, attaching it to the open tree node.
func (p *Parser) advance() Token {
	tok := p.cur
	p.tree.leaf(tok)
	p.cur = p.next
	p.next = p.sc.NextToken()
	return tok
}

func (p *Parser) syntaxError(line int, format string, args ...any) {
	if p.bad {
		return // panic mode: already skipping this construct
	}
	p.bad = true
	p.Errors.Add(line, format, args...)
}

// expect consumes the current token when it matches tt; otherwise it records
// one syntax error and leaves the token for resynchronization.
func (p *Parser) expect(tt TokenType) bool {
	if p.cur.Type == tt {
		p.advance()
		return true
	}
	p.syntaxError(p.cur.Line, "expected %s before '%s'", tokenNames[tt], p.cur.Lexeme)
	return false
}

// isSyncToken reports tokens that end panic-mode recovery: a statement
// terminator, a block boundary or the start of a new statement.
func isSyncToken(tt TokenType) bool {
	switch tt {
	case SEMICOLON, RBRACE, LBRACE, EOF,
		INT, FLOAT, VOID, IF, WHILE, FOR, RETURN, BREAK, CONTINUE:
		return true
	}
	return false
}

// synchronize discards tokens until a synchronizing token, consuming a
// terminating semicolon so parsing resumes at the next construct.
func (p *Parser) synchronize() {
	for !isSyncToken(p.cur.Type) {
		p.advance()
	}
	if p.cur.Type == SEMICOLON {
		p.advance()
	}
	p.bad = false
}

// Parse runs the whole pass. Diagnostics land in the three error lists; the
// caller inspects them before invoking the backend.
func (p *Parser) Parse() {
	for p.cur.Type != EOF {
		p.parseStatement()
	}
	p.tree.leaf(Token{Type: EOF})
}

// parseStatement dispatches one statement or declaration and owns the
// panic-mode recovery for everything beneath it.
func (p *Parser) parseStatement() {
	switch p.cur.Type {
	case INT, FLOAT, VOID:
		p.parseDeclaration()
	case LBRACE:
		p.parseCompound(true)
	case IF:
		p.parseIf()
	case WHILE:
		p.parseWhile()
	case FOR:
		p.parseFor()
	case BREAK:
		p.parseBreak()
	case CONTINUE:
		p.parseContinue()
	case RETURN:
		p.parseReturn()
	case SEMICOLON:
		p.advance() // empty statement
	default:
		p.tree.open("ExpressionStmt")
		p.parseExpression()
		p.expect(SEMICOLON)
		p.tree.close()
	}
	if p.bad {
		p.synchronize()
	}
}

// parseDeclaration handles a variable or function declaration starting at a
// type keyword. Function declarations are only legal at the global scope.
func (p *Parser) parseDeclaration() {
	p.tree.open("Declaration")
	defer p.tree.close()

	baseTok := p.advance()
	base := TypeInt
	switch baseTok.Type {
	case FLOAT:
		base = TypeFloat
	case VOID:
		base = TypeVoid
	}

	idTok := p.cur
	if !p.expect(IDENTIFIER) {
		return
	}

	if p.cur.Type == LPAREN {
		if p.st.Depth() != 0 {
			p.syntaxError(p.cur.Line, "function declaration is not allowed inside a block")
			return
		}
		p.parseFuncRest(base, idTok)
		return
	}
	p.parseVarRest(base, idTok)
}

// parseVarRest finishes "type ID" as a variable declaration, assigning its
// address in the proper storage class.
func (p *Parser) parseVarRest(base BaseType, idTok Token) {
	typ := Type{Base: base}
	if base == TypeVoid {
		p.sema.VoidDecl(idTok.Lexeme, idTok.Line)
		typ.Base = TypeInt // best effort so the symbol is still usable
	}

	if p.cur.Type == LBRACKET {
		p.advance()
		sizeTok := p.cur
		n := 1
		if p.expect(NUMBER) {
			n, _ = strconv.Atoi(sizeTok.Lexeme)
		}
		p.expect(RBRACKET)
		typ.Array = true
		typ.Len = n
		if !p.sema.ArraySize(idTok.Lexeme, n, sizeTok.Line) {
			typ.Len = 1
		}
	}
	p.expect(SEMICOLON)

	sym := &Symbol{Name: idTok.Lexeme, Type: typ, Size: typ.Size()}
	if p.st.Depth() == 0 {
		sym.Class = ClassGlobal
		sym.Addr = p.mm.AllocGlobal(sym.Size)
	} else {
		sym.Class = ClassLocal
		sym.Addr = p.mm.AllocLocal(sym.Size)
	}
	if !p.st.Declare(sym) {
		p.sema.Redeclared(sym.Name, idTok.Line)
	}
}

// parseFuncRest finishes "type ID (" as a function declaration: parameters,
// scope, activation record and body, all in one pass.
func (p *Parser) parseFuncRest(base BaseType, idTok Token) {
	p.tree.open("Function")
	defer p.tree.close()

	ret := Type{Base: base}
	sym := &Symbol{Name: idTok.Lexeme, Type: ret, IsFunc: true, Ret: ret}
	if !p.st.Declare(sym) {
		p.sema.Redeclared(sym.Name, idTok.Line)
	}
	if sym.Name == "main" {
		p.haveMain = true
	}

	p.advance() // (
	p.st.EnterScope()
	p.gen.BeginFunction(sym.Name)
	p.sema.BeginFunction(ret)

	p.tree.open("Params")
	if p.cur.Type == VOID && p.next.Type == RPAREN {
		p.advance()
	} else if p.cur.Type != RPAREN {
		for {
			p.parseParam(sym)
			if p.cur.Type != COMMA {
				break
			}
			p.advance()
		}
	}
	p.tree.close()
	p.expect(RPAREN)
	if len(sym.Params) > 8 {
		// The calling convention passes every argument in a register.
		p.sema.Errors.Add(idTok.Line, "too many parameters for '%s' (max 8)", sym.Name)
	}

	p.parseCompound(false) // parameters share the function body scope

	p.st.ExitScope()
	p.gen.EndFunction()
	p.sema.EndFunction()
}

func (p *Parser) parseParam(fn *Symbol) {
	typeTok := p.cur
	base := TypeInt
	switch typeTok.Type {
	case INT:
		p.advance()
	case FLOAT:
		base = TypeFloat
		p.advance()
	case VOID:
		p.advance()
		p.sema.VoidDecl(p.cur.Lexeme, typeTok.Line)
	default:
		p.syntaxError(typeTok.Line, "expected parameter type before '%s'", typeTok.Lexeme)
		return
	}

	idTok := p.cur
	if !p.expect(IDENTIFIER) {
		return
	}
	typ := Type{Base: base}
	sym := &Symbol{Name: idTok.Lexeme, Type: typ, Class: ClassParam,
		Size: typ.Size(), Addr: p.mm.AllocParam(typ.Size())}
	if !p.st.Declare(sym) {
		p.sema.Redeclared(sym.Name, idTok.Line)
	}
	fn.Params = append(fn.Params, typ)
}

// parseCompound parses "{ ... }". newScope is false for function bodies,
// whose scope already holds the parameters.
func (p *Parser) parseCompound(newScope bool) {
	p.tree.open("Block")
	defer p.tree.close()

	if !p.expect(LBRACE) {
		return
	}
	if newScope {
		p.st.EnterScope()
	}
	for p.cur.Type != RBRACE && p.cur.Type != EOF {
		p.parseStatement()
	}
	p.expect(RBRACE)
	if newScope {
		p.st.ExitScope()
	}
}

func (p *Parser) parseIf() {
	p.tree.open("IfStmt")
	defer p.tree.close()

	p.advance() // if
	condLine := p.cur.Line
	p.expect(LPAREN)
	cond := p.parseExpression()
	p.sema.Condition(cond, condLine)
	p.expect(RPAREN)

	jpf := p.gen.JumpFalse(cond)
	p.parseStatement()
	if p.cur.Type == ELSE {
		p.advance()
		jp := p.gen.Jump()
		p.gen.PatchHere(jpf)
		p.parseStatement()
		p.gen.PatchHere(jp)
	} else {
		p.gen.PatchHere(jpf)
	}
}

func (p *Parser) parseWhile() {
	p.tree.open("WhileStmt")
	defer p.tree.close()

	p.advance() // while
	condStart := p.gen.Here()
	condLine := p.cur.Line
	p.expect(LPAREN)
	cond := p.parseExpression()
	p.sema.Condition(cond, condLine)
	p.expect(RPAREN)

	jpf := p.gen.JumpFalse(cond)
	p.gen.OpenLoop(condStart)
	p.parseStatement()
	p.gen.JumpTo(condStart)
	p.gen.PatchHere(jpf)
	p.gen.CloseLoop()
}

// parseFor emits the single-pass layout for "for (init; cond; post) body":
// the post-expression is generated before the body (it appears first in the
// source), with jumps threading cond -> body -> post -> cond.
func (p *Parser) parseFor() {
	p.tree.open("ForStmt")
	defer p.tree.close()

	p.advance() // for
	p.expect(LPAREN)
	if p.cur.Type != SEMICOLON {
		p.parseExpression()
	}
	p.expect(SEMICOLON)

	condStart := p.gen.Here()
	jpf := -1
	if p.cur.Type != SEMICOLON {
		condLine := p.cur.Line
		cond := p.parseExpression()
		p.sema.Condition(cond, condLine)
		jpf = p.gen.JumpFalse(cond)
	}
	p.expect(SEMICOLON)

	bodyJp := p.gen.Jump()
	postStart := p.gen.Here()
	if p.cur.Type != RPAREN {
		p.parseExpression()
	}
	p.gen.JumpTo(condStart)
	p.expect(RPAREN)

	p.gen.PatchHere(bodyJp)
	p.gen.OpenLoop(postStart)
	p.parseStatement()
	p.gen.JumpTo(postStart)
	if jpf >= 0 {
		p.gen.PatchHere(jpf)
	}
	p.gen.CloseLoop()
}

func (p *Parser) parseBreak() {
	p.tree.open("BreakStmt")
	defer p.tree.close()
	tok := p.advance()
	if !p.gen.InLoop() {
		p.sema.ControlOutsideLoop("break", tok.Line)
	}
	p.gen.Break()
	p.expect(SEMICOLON)
}

func (p *Parser) parseContinue() {
	p.tree.open("ContinueStmt")
	defer p.tree.close()
	tok := p.advance()
	if !p.gen.InLoop() {
		p.sema.ControlOutsideLoop("continue", tok.Line)
	}
	p.gen.Continue()
	p.expect(SEMICOLON)
}

func (p *Parser) parseReturn() {
	p.tree.open("ReturnStmt")
	defer p.tree.close()
	tok := p.advance()
	if p.cur.Type == SEMICOLON {
		p.advance()
		p.sema.Return(false, Value{}, tok.Line)
		p.gen.Return(nil)
		return
	}
	v := p.parseExpression()
	p.expect(SEMICOLON)
	widen := p.sema.Return(true, v, tok.Line)
	v = p.gen.Rvalue(v)
	if widen {
		v = p.gen.Widen(v)
	}
	p.gen.Return(&v)
}

// parseExpression handles assignment, the lowest-precedence operator.
func (p *Parser) parseExpression() Value {
	p.tree.open("Expression")
	defer p.tree.close()

	l := p.parseOr()
	if p.cur.Type != ASSIGN {
		return l
	}
	line := p.advance().Line
	r := p.parseExpression() // right associative

	if (l.Sym == nil && !l.IsElem) || (l.Sym != nil && (l.Sym.IsFunc || l.Sym.Type.Array)) {
		p.sema.Errors.Add(line, "invalid assignment target")
		return r
	}
	widen := p.sema.Assign(l.T, r, line)
	r = p.gen.Rvalue(r)
	if widen {
		r = p.gen.Widen(r)
	}
	p.gen.Assign(l, r)
	return Value{Oper: r.Oper, T: l.T}
}

// parseOr lowers "a || b" with short-circuit jumps into a 0/1 temporary.
func (p *Parser) parseOr() Value {
	l := p.parseAnd()
	for p.cur.Type == OR_OR {
		line := p.advance().Line
		p.sema.Condition(l, line)

		t := p.gen.NewTemp(false)
		jpf := p.gen.JumpFalse(l) // left false: result decided by right
		p.gen.LoadConstBool(t, 1)
		end := p.gen.Jump()
		p.gen.PatchHere(jpf)
		r := p.parseAnd()
		p.sema.Condition(r, line)
		p.gen.BoolFrom(r, t)
		p.gen.PatchHere(end)
		l = Value{Oper: t, T: Type{Base: TypeInt}}
	}
	return l
}

// parseAnd lowers "a && b" with short-circuit jumps into a 0/1 temporary.
func (p *Parser) parseAnd() Value {
	l := p.parseRelational()
	for p.cur.Type == AND_AND {
		line := p.advance().Line
		p.sema.Condition(l, line)

		t := p.gen.NewTemp(false)
		jpf1 := p.gen.JumpFalse(l)
		r := p.parseRelational()
		p.sema.Condition(r, line)
		jpf2 := p.gen.JumpFalse(r)
		p.gen.LoadConstBool(t, 1)
		end := p.gen.Jump()
		p.gen.PatchHere(jpf1)
		p.gen.PatchHere(jpf2)
		p.gen.LoadConstBool(t, 0)
		p.gen.PatchHere(end)
		l = Value{Oper: t, T: Type{Base: TypeInt}}
	}
	return l
}

func (p *Parser) parseRelational() Value {
	l := p.parseAdditive()
	switch p.cur.Type {
	case LESS, LESS_EQ, GREATER, GREATER_EQ, EQUALS, NOT_EQ:
		opTok := p.advance()
		r := p.parseAdditive()
		l = p.binary(opTok, l, r)
	}
	return l
}

func (p *Parser) parseAdditive() Value {
	l := p.parseTerm()
	for p.cur.Type == PLUS || p.cur.Type == MINUS {
		opTok := p.advance()
		r := p.parseTerm()
		l = p.binary(opTok, l, r)
	}
	return l
}

func (p *Parser) parseTerm() Value {
	l := p.parseUnary()
	for p.cur.Type == STAR || p.cur.Type == SLASH || p.cur.Type == PERCENT {
		opTok := p.advance()
		r := p.parseUnary()
		l = p.binary(opTok, l, r)
	}
	return l
}

// binary runs the semantic check, applies widening and emits the quad.
func (p *Parser) binary(opTok Token, l, r Value) Value {
	t, wl, wr := p.sema.Binary(opTok.Type, l, r, opTok.Line)
	if wl {
		l = p.gen.Widen(l)
	}
	if wr {
		r = p.gen.Widen(r)
	}
	return p.gen.Binary(opTok.Type, l, r, t)
}

func (p *Parser) parseUnary() Value {
	switch p.cur.Type {
	case PLUS:
		p.advance()
		return p.parseUnary()
	case MINUS, NOT:
		opTok := p.advance()
		v := p.parseUnary()
		t := p.sema.Unary(opTok.Type, v, opTok.Line)
		return p.gen.Unary(opTok.Type, v, t)
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Value {
	v := p.parseFactor()
	for {
		switch p.cur.Type {
		case LPAREN:
			v = p.parseCall(v)
		case LBRACKET:
			line := p.advance().Line
			idx := p.parseExpression()
			p.expect(RBRACKET)
			idx = p.gen.Rvalue(idx)
			elemT := p.sema.Index(v.Sym, idx, line)
			v = Value{T: elemT, IsElem: true, ArrBase: v.Sym, ArrIdx: idx.Oper}
		default:
			return v
		}
	}
}

// parseCall finishes "callee(...)": argument list, semantic checks and the
// call quads. The primitive I/O builtins are lowered directly.
func (p *Parser) parseCall(callee Value) Value {
	line := p.advance().Line // (
	var args []Value
	if p.cur.Type != RPAREN {
		for {
			arg := p.parseExpression()
			args = append(args, p.gen.Rvalue(arg))
			if p.cur.Type != COMMA {
				break
			}
			p.advance()
		}
	}
	p.expect(RPAREN)

	sym := callee.Sym
	if sym == nil {
		// Undeclared callee: already reported at the identifier.
		return intValue(0)
	}
	if sym.Builtin {
		return p.builtinCall(sym, args, line)
	}
	retT, widen := p.sema.Call(sym, args, line)
	for i := range args {
		if widen[i] {
			args[i] = p.gen.Widen(args[i])
		}
	}
	ret := p.gen.Call(sym, args)
	ret.T = retT
	return ret
}

// builtinCall lowers output(x) and input(). output accepts one int or float
// argument; input takes none and yields an int.
func (p *Parser) builtinCall(sym *Symbol, args []Value, line int) Value {
	switch sym.Name {
	case "output":
		if len(args) != 1 {
			p.sema.Errors.Add(line, "argument mismatch in call to 'output': expected 1, got %d", len(args))
			return Value{T: Type{Base: TypeVoid}}
		}
		if !args[0].T.IsScalar() {
			p.sema.Errors.Add(line, "argument mismatch in call to 'output': got %s", args[0].T)
			return Value{T: Type{Base: TypeVoid}}
		}
		p.gen.Print(args[0])
		return Value{T: Type{Base: TypeVoid}}
	case "input":
		if len(args) != 0 {
			p.sema.Errors.Add(line, "argument mismatch in call to 'input': expected 0, got %d", len(args))
		}
		return p.gen.Read()
	}
	return intValue(0)
}

func (p *Parser) parseFactor() Value {
	if p.bad {
		return intValue(0) // skipping to a sync point
	}
	switch p.cur.Type {
	case NUMBER:
		tok := p.advance()
		n, _ := strconv.Atoi(tok.Lexeme)
		return intValue(n)
	case REALNUM:
		tok := p.advance()
		f, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return Value{Oper: Operand{Kind: OperFImm, Flt: f, Float: true},
			T: Type{Base: TypeFloat}}
	case LPAREN:
		p.advance()
		v := p.parseExpression()
		p.expect(RPAREN)
		return v
	case IDENTIFIER:
		tok := p.advance()
		sym, ok := p.st.Lookup(tok.Lexeme)
		if !ok {
			p.sema.Undeclared(tok.Lexeme, tok.Line)
			return intValue(0)
		}
		return Value{Oper: operandFor(sym), T: sym.Type, Sym: sym}
	default:
		p.syntaxError(p.cur.Line, "unexpected '%s'", p.cur.Lexeme)
		return intValue(0)
	}
}
