// Package middleend collects struct declarations from a parsed program
// into a compiler.MetaData struct table, assigning each struct a dense
// integer tag in declaration order. This is the minimal amount of
// semantic analysis the code generator needs: it does not type-check
// the rest of the program.
package middleend

import (
	"fmt"
	"esta/ast"
	"esta/compiler"
)

// SemanticError reports a problem discovered while building the struct
// table (e.g. a duplicate struct name).
type SemanticError struct {
	Message string
}

func (e SemanticError) Error() string {
	return fmt.Sprintf("💥 SemanticError: %s", e.Message)
}

// Collect walks the top-level statements of a program and builds the
// struct table used by the code generator to resolve field offsets and
// constructor sizes.
func Collect(statements []ast.Stmt) (compiler.MetaData, error) {
	collector := &collector{}
	for _, stmt := range statements {
		if err := collector.collectStmt(stmt); err != nil {
			return compiler.MetaData{}, err
		}
	}
	return compiler.MetaData{Structs: collector.structs}, nil
}

type collector struct {
	structs []compiler.EstaStruct
}

func (c *collector) collectStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case ast.Struct:
		return c.collectStruct(s)
	case ast.FunDecl:
		return c.collectStmt(s.Body)
	case ast.Block:
		for _, inner := range s.Statements {
			if err := c.collectStmt(inner); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *collector) collectStruct(s ast.Struct) error {
	for _, existing := range c.structs {
		if existing.Id == s.Name.Lexeme {
			return SemanticError{Message: fmt.Sprintf("struct '%s' declared more than once", s.Name.Lexeme)}
		}
	}

	fields := make(map[string]int, len(s.Fields))
	order := make([]string, len(s.Fields))
	for i, field := range s.Fields {
		fields[field.Lexeme] = 2 + i
		order[i] = field.Lexeme
	}

	c.structs = append(c.structs, compiler.EstaStruct{
		Id:         s.Name.Lexeme,
		Tag:        len(c.structs),
		Size:       2 + len(s.Fields),
		Fields:     fields,
		FieldOrder: order,
	})
	return nil
}
