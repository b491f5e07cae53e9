package middleend

import (
	"testing"

	"esta/ast"
	"esta/token"
)

func ident(name string) token.Token {
	return token.Token{TokenType: token.IDENTIFIER, Lexeme: name}
}

func TestCollectAssignsDenseTagsInDeclarationOrder(t *testing.T) {
	statements := []ast.Stmt{
		ast.Struct{Name: ident("Point"), Fields: []token.Token{ident("x"), ident("y")}},
		ast.Struct{Name: ident("Line"), Fields: []token.Token{ident("start"), ident("end"), ident("weight")}},
	}

	metadata, err := Collect(statements)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(metadata.Structs) != 2 {
		t.Fatalf("expected 2 structs, got %d", len(metadata.Structs))
	}

	point := metadata.Structs[0]
	if point.Id != "Point" || point.Tag != 0 || point.Size != 4 {
		t.Errorf("got %+v, want Id=Point Tag=0 Size=4", point)
	}
	if point.Fields["x"] != 2 || point.Fields["y"] != 3 {
		t.Errorf("unexpected field offsets: %+v", point.Fields)
	}
	if len(point.FieldOrder) != 2 || point.FieldOrder[0] != "x" || point.FieldOrder[1] != "y" {
		t.Errorf("unexpected field order: %+v", point.FieldOrder)
	}

	line := metadata.Structs[1]
	if line.Id != "Line" || line.Tag != 1 || line.Size != 5 {
		t.Errorf("got %+v, want Id=Line Tag=1 Size=5", line)
	}
}

func TestCollectRejectsDuplicateStructNames(t *testing.T) {
	statements := []ast.Stmt{
		ast.Struct{Name: ident("Point"), Fields: []token.Token{ident("x")}},
		ast.Struct{Name: ident("Point"), Fields: []token.Token{ident("y")}},
	}

	if _, err := Collect(statements); err == nil {
		t.Fatal("expected a duplicate-struct error, got nil")
	}
}

func TestCollectDescendsIntoFunctionBodiesAndBlocks(t *testing.T) {
	inner := ast.Struct{Name: ident("Nested"), Fields: []token.Token{ident("value")}}
	fn := ast.FunDecl{
		Name: ident("main"),
		Body: ast.Block{IsScope: true, Statements: []ast.Stmt{inner}},
	}

	metadata, err := Collect([]ast.Stmt{fn})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(metadata.Structs) != 1 || metadata.Structs[0].Id != "Nested" {
		t.Errorf("expected struct declarations nested in a function body to be collected, got %+v", metadata.Structs)
	}
}
