package parser

import (
	"esta/ast"
	"esta/lexer"
	"testing"
)

func parseSource(t *testing.T, source string) []ast.Stmt {
	t.Helper()
	tokens, err := lexer.New(source).Scan()
	if err != nil {
		t.Fatalf("lexer error: %v", err)
	}
	stmts, errs := Make(tokens).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return stmts
}

func TestParseFunDecl(t *testing.T) {
	stmts := parseSource(t, "fn add(a, b) { return a + b; }")
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	decl, ok := stmts[0].(ast.FunDecl)
	if !ok {
		t.Fatalf("expected FunDecl, got %T", stmts[0])
	}
	if decl.Name.Lexeme != "add" || len(decl.Params) != 2 {
		t.Fatalf("unexpected FunDecl: %+v", decl)
	}
}

func TestParseStructDecl(t *testing.T) {
	stmts := parseSource(t, "struct Point { x, y }")
	decl, ok := stmts[0].(ast.Struct)
	if !ok {
		t.Fatalf("expected Struct, got %T", stmts[0])
	}
	if decl.Name.Lexeme != "Point" || len(decl.Fields) != 2 {
		t.Fatalf("unexpected Struct: %+v", decl)
	}
}

func TestParseForDesugarsToBlockWhile(t *testing.T) {
	stmts := parseSource(t, "for (var i = 0; i < 5; i = i + 1) { x(); }")
	block, ok := stmts[0].(ast.Block)
	if !ok {
		t.Fatalf("expected Block, got %T", stmts[0])
	}
	if len(block.Statements) != 2 {
		t.Fatalf("expected init + while, got %d statements", len(block.Statements))
	}
	if _, ok := block.Statements[0].(ast.Declaration); !ok {
		t.Fatalf("expected init to be a Declaration, got %T", block.Statements[0])
	}
	if _, ok := block.Statements[1].(ast.While); !ok {
		t.Fatalf("expected second statement to be While, got %T", block.Statements[1])
	}
}

func TestParseDotFieldAccess(t *testing.T) {
	stmts := parseSource(t, "x = p.y;")
	assignment, ok := stmts[0].(ast.Assignment)
	if !ok {
		t.Fatalf("expected Assignment, got %T", stmts[0])
	}
	dot, ok := assignment.Value.(ast.Dot)
	if !ok {
		t.Fatalf("expected Dot, got %T", assignment.Value)
	}
	if dot.IsCall || dot.Name.Lexeme != "y" {
		t.Fatalf("unexpected Dot: %+v", dot)
	}
}

func TestParseListLiteral(t *testing.T) {
	stmts := parseSource(t, "x = [1, 2, 3];")
	assignment := stmts[0].(ast.Assignment)
	list, ok := assignment.Value.(ast.List)
	if !ok {
		t.Fatalf("expected List, got %T", assignment.Value)
	}
	if len(list.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(list.Items))
	}
}

func TestParseFunCall(t *testing.T) {
	stmts := parseSource(t, "add(1, 2);")
	exprStmt, ok := stmts[0].(ast.ExpressionStmt)
	if !ok {
		t.Fatalf("expected ExpressionStmt, got %T", stmts[0])
	}
	call, ok := exprStmt.Expression.(ast.FunCall)
	if !ok {
		t.Fatalf("expected FunCall, got %T", exprStmt.Expression)
	}
	if call.Name.Lexeme != "add" || len(call.Args) != 2 {
		t.Fatalf("unexpected FunCall: %+v", call)
	}
}
