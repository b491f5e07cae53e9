package compiler

import (
	"encoding/binary"
	"fmt"
)

// Opcode identifies one instruction in the final bytecode stream
// consumed by the vm package.
type Opcode byte

const (
	LOADC  Opcode = iota // push constant operand
	LOADRC               // push fp + operand (a frame-relative address)
	LOAD                 // pop addr, push stack[addr]
	LOADA                // pop addr, addr2; push addr2+addr (array/field addressing)
	STORE                // pop addr, write top (unpopped) to stack[addr]
	POP                  // drop the top value
	NOP
	NEW    // pop n, allocate n cells on the heap, push their base address
	JUMP   // unconditional jump to operand
	JUMPZ  // pop v; jump to operand if v == 0
	HALT   // stop the machine
	MARK   // push current fp (the caller's frame pointer, restored by RET)
	CALL   // pop target address, push return address, jump
	ALLOC  // reserve operand local slots, zero-initialized
	SLIDE  // pop operand+1 values, re-push the top one
	RET    // truncate the stack to fp-operand, restore the saved fp and jump to the saved return address
	ADD
	SUB
	MUL
	DIV
	MOD
	NEG
	AND
	OR
	NOT
	EQ
	NEQ
	LE  // pop a, b; push b < a
	LEQ // pop a, b; push b <= a
	GE  // pop a, b; push b > a
	GEQ // pop a, b; push b >= a
)

// OpCodeDefinition names an opcode and says whether it carries a
// single little-endian i64 operand.
type OpCodeDefinition struct {
	Name       string
	HasOperand bool
}

var definitions = map[Opcode]*OpCodeDefinition{
	LOADC:  {"LOADC", true},
	LOADRC: {"LOADRC", true},
	LOAD:   {"LOAD", false},
	LOADA:  {"LOADA", false},
	STORE:  {"STORE", false},
	POP:    {"POP", false},
	NOP:    {"NOP", false},
	NEW:    {"NEW", false},
	JUMP:   {"JUMP", true},
	JUMPZ:  {"JUMPZ", true},
	HALT:   {"HALT", false},
	MARK:   {"MARK", false},
	CALL:   {"CALL", false},
	ALLOC:  {"ALLOC", true},
	SLIDE:  {"SLIDE", true},
	RET:    {"RET", true},
	ADD:    {"ADD", false},
	SUB:    {"SUB", false},
	MUL:    {"MUL", false},
	DIV:    {"DIV", false},
	MOD:    {"MOD", false},
	NEG:    {"NEG", false},
	AND:    {"AND", false},
	OR:     {"OR", false},
	NOT:    {"NOT", false},
	EQ:     {"EQ", false},
	NEQ:    {"NEQ", false},
	LE:     {"LE", false},
	LEQ:    {"LEQ", false},
	GE:     {"GE", false},
	GEQ:    {"GEQ", false},
}

// Get looks up an opcode's definition.
func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, DeveloperError{Message: fmt.Sprintf("opcode %d undefined", op)}
	}
	return def, nil
}

// Inst is one instruction in the final, fully-linked bytecode stream:
// an opcode and, for opcodes that carry one, a little-endian i64
// operand.
type Inst struct {
	Opcode  Opcode
	Operand int64
}

// MakeInstruction encodes a single instruction as a byte-oriented
// opcode followed by its operand (if any), little-endian.
func MakeInstruction(inst Inst) ([]byte, error) {
	def, err := Get(inst.Opcode)
	if err != nil {
		return nil, err
	}

	if !def.HasOperand {
		return []byte{byte(inst.Opcode)}, nil
	}

	buf := make([]byte, 9)
	buf[0] = byte(inst.Opcode)
	binary.LittleEndian.PutUint64(buf[1:], uint64(inst.Operand))
	return buf, nil
}

// DecodeInstruction reads a single instruction starting at offset 0 of
// b and returns it along with its encoded width in bytes.
func DecodeInstruction(b []byte) (Inst, int, error) {
	if len(b) == 0 {
		return Inst{}, 0, DeveloperError{Message: "cannot decode instruction from empty buffer"}
	}

	op := Opcode(b[0])
	def, err := Get(op)
	if err != nil {
		return Inst{}, 0, err
	}

	if !def.HasOperand {
		return Inst{Opcode: op}, 1, nil
	}

	if len(b) < 9 {
		return Inst{}, 0, DeveloperError{Message: fmt.Sprintf("truncated operand for %s", def.Name)}
	}
	operand := int64(binary.LittleEndian.Uint64(b[1:9]))
	return Inst{Opcode: op, Operand: operand}, 9, nil
}

// DisassembleInstruction renders a single instruction in a human
// readable form, e.g. "LOADC 3" or "HALT".
func DisassembleInstruction(inst Inst) string {
	def, err := Get(inst.Opcode)
	if err != nil {
		return fmt.Sprintf("<bad opcode %d>", inst.Opcode)
	}
	if !def.HasOperand {
		return def.Name
	}
	return fmt.Sprintf("%s %d", def.Name, inst.Operand)
}
