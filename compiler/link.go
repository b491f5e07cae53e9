package compiler

// The link pass turns a Generator's symbolic stream into the flat
// []Inst the vm package executes, resolving label and local-alloc
// operands in two passes: first assigning every label the index of
// the instruction that follows it, then rewriting every symbolic
// operand using that table.
//
// Resolved addresses are instruction indices into the final []Inst
// slice, not encoded byte offsets — JUMP/JUMPZ/CALL targets and the
// vm's instruction pointer both operate on the same []Inst, so there
// is no reason to pay for byte-oriented addressing until something
// actually serializes the program (MakeInstruction/DecodeInstruction,
// used by the bytecode dump and disassembler).

import (
	"fmt"
	"esta/ast"
)

// Link resolves a Generator's symbolic stream against the local-slot
// counts recorded in ctx, returning the final instruction array.
func Link(ctx *AsmCtx, stream []StreamItem) ([]Inst, error) {
	offsets := map[string]int{}
	index := 0
	for _, item := range stream {
		if item.IsLabel {
			if _, exists := offsets[item.Label]; exists {
				return nil, DeveloperError{Message: fmt.Sprintf("duplicate label '%s'", item.Label)}
			}
			offsets[item.Label] = index
			continue
		}
		index++
	}

	insts := make([]Inst, 0, index)
	for _, item := range stream {
		if item.IsLabel {
			continue
		}

		var operand int64
		switch item.Operand.Kind {
		case OperandNone, OperandData:
			operand = item.Operand.Data
		case OperandLabel:
			off, ok := offsets[item.Operand.Label]
			if !ok {
				return nil, SemanticError{Message: fmt.Sprintf("undefined label '%s'", item.Operand.Label)}
			}
			operand = int64(off)
		case OperandLocalAlloc:
			operand = int64(ctx.LocalCount(item.Operand.Fn))
		}

		insts = append(insts, Inst{Opcode: item.Opcode, Operand: operand})
	}

	return insts, nil
}

// DataSegment is the flat read-only u64 vector spec.md §4.4 describes:
// a pointer table (one entry per struct, in tag order, each giving the
// start index of that struct's field block, shifted past the pointer
// table itself) followed by the field blocks themselves, each a
// declared-order run of (field-name hash, field offset) pairs. No
// opcode in this ISA consumes it at runtime yet (spec.md §4.4 calls
// the scheme forward-looking); it is built in this exact layout so a
// future name-hash lookup opcode could index into it directly, and so
// the disassembler/bytecode dump can render it without reinterpreting
// a different shape later.
type DataSegment struct {
	Words []uint64
}

// BuildDataSegment renders a struct table into its data segment form,
// per spec.md §4.4's algorithm: structs are emitted in tag order (tags
// are assigned densely starting at 0, so metadata.Structs is already
// in that order), each contributing one pointer-table entry and one
// field block of hash/offset pairs in declaration order.
func BuildDataSegment(metadata MetaData) DataSegment {
	n := len(metadata.Structs)
	pointers := make([]uint64, n)
	var blocks []uint64

	for _, s := range metadata.Structs {
		pointers[s.Tag] = uint64(n) + uint64(len(blocks))
		for _, field := range s.FieldOrder {
			blocks = append(blocks, uint64(hash32(field)), uint64(s.Fields[field]))
		}
	}

	return DataSegment{Words: append(pointers, blocks...)}
}

// Compile runs the code generator followed by the link pass, the
// full pipeline from a parsed program plus its struct table to an
// executable instruction array.
func Compile(statements []ast.Stmt, metadata MetaData) ([]Inst, DataSegment, error) {
	gen := NewGenerator(metadata)
	ctx, stream, err := gen.Generate(statements)
	if err != nil {
		return nil, DataSegment{}, err
	}

	insts, err := Link(ctx, stream)
	if err != nil {
		return nil, DataSegment{}, err
	}

	return insts, BuildDataSegment(metadata), nil
}
