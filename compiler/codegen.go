package compiler

// This file implements the Generator, which walks the AST and emits a
// symbolic instruction stream (StreamItem values referencing labels,
// not yet-known byte offsets). The link pass in link.go resolves that
// stream into the final []Inst the vm package executes.

import (
	"fmt"
	"esta/ast"
)

// Generator is a visitor that compiles AST nodes to a symbolic
// instruction stream. It implements both ast.ExpressionVisitor and
// ast.StmtVisitor.
type Generator struct {
	ctx    *AsmCtx
	stream []StreamItem
}

// NewGenerator starts a code generator over the given struct table.
func NewGenerator(metadata MetaData) *Generator {
	return &Generator{ctx: NewAsmCtx(metadata)}
}

// Generate walks a program's top-level statements and returns the
// symbolic stream and the assembly context the link pass needs to
// resolve it (local-slot counts per function).
//
// Function and struct declarations contribute a label plus a body
// appended after the program's HALT; every other top-level statement
// runs inline, between the ALLOC that reserves GLOBAL's frame and the
// ALLOC 1/MARK/CALL sequence into main.
func (g *Generator) Generate(statements []ast.Stmt) (ctx *AsmCtx, stream []StreamItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case SemanticError:
				err = v
			case DeveloperError:
				err = v
			default:
				panic(r)
			}
		}
	}()

	var deferred []ast.Stmt

	// GLOBAL's own local frame, sized and back-patched exactly like a
	// function's: top-level var declarations get offsets -1, 0, 1, ...
	// relative to the VM's initial fp of 1 (stack cells 0, 1, 2, ...,
	// the cells this ALLOC reserves), usable only by other top-level
	// statements (ordinary functions have their own, unrelated scope
	// stack and cannot see into GLOBAL's).
	g.emit(ALLOC, localAllocOperand("GLOBAL"))

	for _, stmt := range statements {
		switch stmt.(type) {
		case ast.FunDecl, ast.Struct:
			deferred = append(deferred, stmt)
		default:
			stmt.Accept(g)
		}
	}

	// The program's entry point: call main() the same way any call
	// expression would, just with no enclosing expression to SLIDE the
	// result into - it is simply left on top of the stack at HALT.
	g.emit(ALLOC, dataOperand(1))
	g.emit(MARK, Operand{})
	g.emit(LOADC, labelOperand("main"))
	g.emit(CALL, Operand{})
	g.emit(HALT, Operand{})

	for _, stmt := range deferred {
		stmt.Accept(g)
	}

	return g.ctx, g.stream, nil
}

func (g *Generator) emit(op Opcode, operand Operand) {
	g.stream = append(g.stream, StreamItem{Opcode: op, Operand: operand})
}

func (g *Generator) label(name string) {
	g.stream = append(g.stream, StreamItem{IsLabel: true, Label: name})
}

// genRValue compiles e for its value, leaving exactly one cell pushed
// on the stack.
func (g *Generator) genRValue(e ast.Expression) {
	e.Accept(g)
}

// genLValue compiles e as an assignment target, leaving the address
// to write to on top of the stack.
func (g *Generator) genLValue(e ast.Expression) {
	switch t := e.(type) {
	case ast.Identifier:
		off, err := g.ctx.Get(t.Name.Lexeme)
		if err != nil {
			panic(err)
		}
		g.emit(LOADRC, dataOperand(int64(off)))
	case ast.Dot:
		g.genDotAddress(t)
	default:
		panic(DeveloperError{Message: fmt.Sprintf("%T is not a valid assignment target", e)})
	}
}

// genDotAddress leaves the address of a struct field on top of the
// stack (object base pointer plus the field's offset), used by both
// the r-value and l-value paths of Dot field access.
func (g *Generator) genDotAddress(dot ast.Dot) {
	ident, ok := dot.Object.(ast.Identifier)
	if !ok {
		panic(SemanticError{Message: "field access target must be a plain variable"})
	}

	structId, ok := g.ctx.StructOf(ident.Name.Lexeme)
	if !ok {
		panic(SemanticError{Message: fmt.Sprintf("cannot determine the struct type of '%s'", ident.Name.Lexeme)})
	}

	est, err := g.ctx.GetStruct(structId)
	if err != nil {
		panic(err)
	}

	offset, ok := est.Fields[dot.Name.Lexeme]
	if !ok {
		panic(SemanticError{Message: fmt.Sprintf("struct '%s' has no field '%s'", structId, dot.Name.Lexeme)})
	}

	g.genRValue(dot.Object)
	g.emit(LOADC, dataOperand(int64(offset)))
	g.emit(LOADA, Operand{})
}

// genCall emits the full call-site protocol for a plain function call
// or a struct constructor call: a reserved result slot, arguments
// pushed in reverse declaration order (so the first declared parameter
// ends up adjacent to the saved fp, at offset -3), MARK/target/CALL,
// and a trailing SLIDE that collapses the argument region down to the
// single value the callee left behind.
func (g *Generator) genCall(name string, args []ast.Expression) {
	g.emit(ALLOC, dataOperand(1)) // result slot
	for i := len(args) - 1; i >= 0; i-- {
		g.genRValue(args[i])
	}
	g.emit(MARK, Operand{})
	g.emit(LOADC, labelOperand(name))
	g.emit(CALL, Operand{})
	g.emit(SLIDE, dataOperand(int64(len(args))))
}

// --- ast.ExpressionVisitor ---

func (g *Generator) VisitIdentifier(identifier ast.Identifier) any {
	off, err := g.ctx.Get(identifier.Name.Lexeme)
	if err != nil {
		panic(err)
	}
	g.emit(LOADRC, dataOperand(int64(off)))
	g.emit(LOAD, Operand{})
	return nil
}

func (g *Generator) VisitLiteral(literal ast.Literal) any {
	switch v := literal.Value.(type) {
	case nil:
		g.emit(LOADC, dataOperand(0))
	case bool:
		if v {
			g.emit(LOADC, dataOperand(1))
		} else {
			g.emit(LOADC, dataOperand(0))
		}
	case int64:
		g.emit(LOADC, dataOperand(v))
	case int:
		g.emit(LOADC, dataOperand(int64(v)))
	case float64:
		g.emit(LOADC, dataOperand(int64(v)))
	case string:
		g.emit(LOADC, dataOperand(int64(hash32(v))))
	default:
		panic(DeveloperError{Message: fmt.Sprintf("unsupported literal type %T", v)})
	}
	return nil
}

func (g *Generator) VisitBinaryOp(binary ast.BinaryOp) any {
	g.genRValue(binary.Left)
	g.genRValue(binary.Right)

	switch binary.Operator.Lexeme {
	case "+":
		g.emit(ADD, Operand{})
	case "-":
		g.emit(SUB, Operand{})
	case "*":
		g.emit(MUL, Operand{})
	case "/":
		g.emit(DIV, Operand{})
	case "%":
		g.emit(MOD, Operand{})
	case "==":
		g.emit(EQ, Operand{})
	case "!=":
		g.emit(NEQ, Operand{})
	case "<":
		g.emit(LE, Operand{})
	case "<=":
		g.emit(LEQ, Operand{})
	case ">":
		g.emit(GE, Operand{})
	case ">=":
		g.emit(GEQ, Operand{})
	case "and":
		g.emit(AND, Operand{})
	case "or":
		g.emit(OR, Operand{})
	default:
		panic(DeveloperError{Message: fmt.Sprintf("unknown binary operator '%s'", binary.Operator.Lexeme)})
	}
	return nil
}

func (g *Generator) VisitUnaryOp(unary ast.UnaryOp) any {
	g.genRValue(unary.Right)
	switch unary.Operator.Lexeme {
	case "-":
		g.emit(NEG, Operand{})
	case "!":
		g.emit(NOT, Operand{})
	default:
		panic(DeveloperError{Message: fmt.Sprintf("unknown unary operator '%s'", unary.Operator.Lexeme)})
	}
	return nil
}

func (g *Generator) VisitFunCall(call ast.FunCall) any {
	g.genCall(call.Name.Lexeme, call.Args)
	return nil
}

func (g *Generator) VisitList(list ast.List) any {
	tmp := g.ctx.NewTemp()

	g.emit(LOADC, dataOperand(int64(len(list.Items)+1)))
	g.emit(NEW, Operand{})
	g.emit(LOADRC, dataOperand(int64(tmp)))
	g.emit(STORE, Operand{})
	g.emit(POP, Operand{})

	g.emit(LOADC, dataOperand(int64(len(list.Items))))
	g.emit(LOADRC, dataOperand(int64(tmp)))
	g.emit(LOAD, Operand{})
	g.emit(LOADC, dataOperand(0))
	g.emit(LOADA, Operand{})
	g.emit(STORE, Operand{})
	g.emit(POP, Operand{})

	for i, item := range list.Items {
		g.genRValue(item)
		g.emit(LOADRC, dataOperand(int64(tmp)))
		g.emit(LOAD, Operand{})
		g.emit(LOADC, dataOperand(int64(1+i)))
		g.emit(LOADA, Operand{})
		g.emit(STORE, Operand{})
		g.emit(POP, Operand{})
	}

	g.emit(LOADRC, dataOperand(int64(tmp)))
	g.emit(LOAD, Operand{})
	return nil
}

func (g *Generator) VisitDot(dot ast.Dot) any {
	if dot.IsCall {
		g.genCall(dot.Name.Lexeme, dot.Args)
		return nil
	}
	g.genDotAddress(dot)
	g.emit(LOAD, Operand{})
	return nil
}

// --- ast.StmtVisitor ---

func (g *Generator) VisitExpressionStmt(exprStmt ast.ExpressionStmt) any {
	g.genRValue(exprStmt.Expression)
	g.emit(POP, Operand{})
	return nil
}

func (g *Generator) VisitDeclaration(decl ast.Declaration) any {
	if call, ok := decl.Initializer.(ast.FunCall); ok {
		if _, err := g.ctx.GetStruct(call.Name.Lexeme); err == nil {
			g.ctx.BindStruct(decl.Name.Lexeme, call.Name.Lexeme)
		}
	}

	if decl.Initializer != nil {
		g.genRValue(decl.Initializer)
	} else {
		g.emit(LOADC, dataOperand(0))
	}

	offset := g.ctx.Define(decl.Name.Lexeme)
	g.emit(LOADRC, dataOperand(int64(offset)))
	g.emit(STORE, Operand{})
	g.emit(POP, Operand{})
	return nil
}

func (g *Generator) VisitAssignment(assignment ast.Assignment) any {
	g.genRValue(assignment.Value)
	g.genLValue(assignment.Target)
	g.emit(STORE, Operand{})
	g.emit(POP, Operand{})
	return nil
}

func (g *Generator) VisitBlock(block ast.Block) any {
	if block.IsScope {
		g.ctx.PushScope()
	}
	for _, stmt := range block.Statements {
		stmt.Accept(g)
	}
	if block.IsScope {
		g.ctx.PopScope()
	}
	return nil
}

func (g *Generator) VisitIf(stmt ast.If) any {
	g.genRValue(stmt.Test)

	elseLabel := g.ctx.NextLabel()
	endLabel := g.ctx.NextLabel()

	g.emit(JUMPZ, labelOperand(elseLabel))
	stmt.Then.Accept(g)
	g.emit(JUMP, labelOperand(endLabel))
	g.label(elseLabel)
	stmt.Else.Accept(g)
	g.label(endLabel)
	return nil
}

func (g *Generator) VisitWhile(stmt ast.While) any {
	startLabel := g.ctx.NextLabel()
	endLabel := g.ctx.NextLabel()

	g.label(startLabel)
	g.genRValue(stmt.Test)
	g.emit(JUMPZ, labelOperand(endLabel))
	stmt.Body.Accept(g)
	g.emit(JUMP, labelOperand(startLabel))
	g.label(endLabel)
	return nil
}

// VisitReturn implements the two return shapes spec.md §4.3 defines:
// a value-carrying return writes the result to the reserved slot at
// offset -3 and unwinds with a fixed RET 2; a bare "return;" unwinds
// without touching that slot, tearing down the argument region plus
// the saved fp/pc cells via RET (args+2).
func (g *Generator) VisitReturn(stmt ast.Return) any {
	if stmt.Value != nil {
		g.genRValue(stmt.Value)
		g.emit(LOADRC, dataOperand(-3))
		g.emit(STORE, Operand{})
		g.emit(POP, Operand{})
		g.emit(RET, dataOperand(2))
	} else {
		g.emit(RET, dataOperand(int64(g.ctx.ArgCount()+2)))
	}
	return nil
}

func (g *Generator) VisitFunDecl(decl ast.FunDecl) any {
	g.ctx.AddFun(decl.Name.Lexeme, len(decl.Params))
	g.label(decl.Name.Lexeme)
	for _, param := range decl.Params {
		g.ctx.DefineArg(param.Lexeme)
	}

	g.emit(ALLOC, localAllocOperand(decl.Name.Lexeme))
	decl.Body.Accept(g)
	g.emit(RET, dataOperand(2)) // safety trailer: falls through here if the body never returns

	g.ctx.PopFun()
	return nil
}

func (g *Generator) VisitStruct(decl ast.Struct) any {
	est, err := g.ctx.GetStruct(decl.Name.Lexeme)
	if err != nil {
		panic(err)
	}

	g.ctx.AddFun(decl.Name.Lexeme, 0)
	g.label(decl.Name.Lexeme)
	g.emit(ALLOC, localAllocOperand(decl.Name.Lexeme))

	base := g.ctx.NewTemp()
	g.emit(LOADC, dataOperand(int64(est.Size)))
	g.emit(NEW, Operand{})
	g.emit(LOADRC, dataOperand(int64(base)))
	g.emit(STORE, Operand{})
	g.emit(POP, Operand{})

	g.writeHeapCell(base, 0, int64(est.Tag))
	g.writeHeapCell(base, 1, int64(est.Size))

	g.emit(LOADRC, dataOperand(int64(base)))
	g.emit(LOAD, Operand{})
	g.emit(LOADRC, dataOperand(-3))
	g.emit(STORE, Operand{})
	g.emit(POP, Operand{})
	g.emit(RET, dataOperand(2))

	g.ctx.PopFun()
	return nil
}

// writeHeapCell writes a literal value into cell at the given offset
// from the heap pointer held in local slot baseSlot. Reloads the base
// pointer from its local each time rather than keeping it on the
// stack, since the ISA has no DUP.
func (g *Generator) writeHeapCell(baseSlot int, cellOffset int, value int64) {
	g.emit(LOADC, dataOperand(value))
	g.emit(LOADRC, dataOperand(int64(baseSlot)))
	g.emit(LOAD, Operand{})
	g.emit(LOADC, dataOperand(int64(cellOffset)))
	g.emit(LOADA, Operand{})
	g.emit(STORE, Operand{})
	g.emit(POP, Operand{})
}
