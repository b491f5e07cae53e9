// expressions.go contains all the expression AST nodes. An expression node always evaluates to a value.

package ast

import (
	"esta/token"
)

// Identifier represents a reference to a previously declared name
// (a variable, a function, or a struct constructor).
type Identifier struct {
	Name token.Token // An IDENTIFIER token
}

func (identifier Identifier) Accept(v ExpressionVisitor) any {
	return v.VisitIdentifier(identifier)
}

// Literal represents a literal value in the source code
// (e.g., numbers, strings, booleans, or null).
type Literal struct {
	Value any // The literal value (Go's `any` allows different possible types)
}

func (literal Literal) Accept(v ExpressionVisitor) any {
	return v.VisitLiteral(literal)
}

// BinaryOp represents a binary operation expression (e.g., "a + b").
// It consists of a left-hand side expression, an operator token (e.g., +, -, *, /, and, or),
// and a right-hand side expression.
type BinaryOp struct {
	Left     Expression  // The left-hand expression (e.g., "a" in "a + b")
	Operator token.Token // The operator (e.g., "+")
	Right    Expression  // The right-hand expression (e.g., "b" in "a + b")
}

func (binary BinaryOp) Accept(v ExpressionVisitor) any {
	return v.VisitBinaryOp(binary)
}

// UnaryOp represents a unary operation expression (e.g., "!a" or "-b").
// It consists of an operator token and a single right-hand expression.
type UnaryOp struct {
	Operator token.Token // The operator (e.g., "!" or "-")
	Right    Expression  // The expression the operator is applied to (e.g., "a" or "b")
}

func (unary UnaryOp) Accept(v ExpressionVisitor) any {
	return v.VisitUnaryOp(unary)
}

// FunCall represents a call to a named function, e.g. "add(1, 2)".
// Args are in source (declaration) order.
type FunCall struct {
	Name token.Token
	Args []Expression
}

func (call FunCall) Accept(v ExpressionVisitor) any {
	return v.VisitFunCall(call)
}

// List represents a list literal, e.g. "[1, 2, 3]".
type List struct {
	Items []Expression
}

func (list List) Accept(v ExpressionVisitor) any {
	return v.VisitList(list)
}

// Dot represents field access or a dotted call against an object,
// e.g. "p.x" (IsCall == false) or "p.move(1, 2)" (IsCall == true).
type Dot struct {
	Object Expression
	Name   token.Token
	Args   []Expression // only populated when IsCall is true
	IsCall bool
}

func (dot Dot) Accept(v ExpressionVisitor) any {
	return v.VisitDot(dot)
}
