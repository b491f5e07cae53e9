package main

import (
	"fmt"
	"strings"

	"esta/ast"
	"esta/compiler"
	"esta/lexer"
	"esta/middleend"
	"esta/parser"
)

// compile runs the full front-to-back pipeline over source text: lex,
// parse, collect struct metadata, generate, and link. It returns the
// parsed statements alongside the linked program so callers that only
// need the AST (e.g. the REPL's -da flag) don't have to re-parse.
func compile(source string) ([]ast.Stmt, []compiler.Inst, compiler.DataSegment, error) {
	lex := lexer.New(source)
	tokens, err := lex.Scan()
	if err != nil {
		return nil, nil, compiler.DataSegment{}, err
	}

	p := parser.Make(tokens)
	statements, parseErrs := p.Parse()
	if len(parseErrs) > 0 {
		msgs := make([]string, len(parseErrs))
		for i, pErr := range parseErrs {
			msgs[i] = pErr.Error()
		}
		return statements, nil, compiler.DataSegment{}, fmt.Errorf("%s", strings.Join(msgs, "\n"))
	}

	metadata, err := middleend.Collect(statements)
	if err != nil {
		return statements, nil, compiler.DataSegment{}, err
	}

	insts, data, err := compiler.Compile(statements, metadata)
	if err != nil {
		return statements, nil, compiler.DataSegment{}, err
	}

	return statements, insts, data, nil
}

// disassembleAll renders every instruction in a linked program, one
// per line and prefixed with its index, for the -di/emit flags.
func disassembleAll(insts []compiler.Inst) string {
	var b strings.Builder
	for i, inst := range insts {
		fmt.Fprintf(&b, "%04d  %s\n", i, compiler.DisassembleInstruction(inst))
	}
	return b.String()
}

// encodeAll concatenates every instruction's byte encoding, the format
// the -du/emit flags write to a .nic file.
func encodeAll(insts []compiler.Inst) ([]byte, error) {
	var out []byte
	for _, inst := range insts {
		b, err := compiler.MakeInstruction(inst)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}
