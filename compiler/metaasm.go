package compiler

// The code generator does not know final addresses while it walks the
// AST: function bodies haven't been placed yet, and forward jumps
// target labels that don't exist until later in the stream. It emits
// a symbolic stream instead, built out of StreamItem values, which the
// link pass (link.go) resolves into a flat []Inst.

// OperandKind distinguishes the different things a symbolic
// instruction's operand can stand for before linking.
type OperandKind int

const (
	OperandNone       OperandKind = iota
	OperandData                   // a literal i64, known at codegen time
	OperandLabel                  // resolves to the instruction index of a Label
	OperandLocalAlloc             // resolves to the local-slot count of a function, back-patched once its body is fully generated
)

// Operand is a symbolic instruction operand.
type Operand struct {
	Kind  OperandKind
	Data  int64
	Label string
	Fn    string
}

func dataOperand(v int64) Operand         { return Operand{Kind: OperandData, Data: v} }
func labelOperand(name string) Operand    { return Operand{Kind: OperandLabel, Label: name} }
func localAllocOperand(fn string) Operand { return Operand{Kind: OperandLocalAlloc, Fn: fn} }

// StreamItem is either a Label marking an instruction index, or a symbolic
// instruction.
type StreamItem struct {
	IsLabel bool
	Label   string

	Opcode  Opcode
	Operand Operand
}
