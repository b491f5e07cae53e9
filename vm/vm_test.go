package vm

import (
	"testing"

	"esta/compiler"
)

func inst(op compiler.Opcode) compiler.Inst { return compiler.Inst{Opcode: op} }

func instOp(op compiler.Opcode, operand int64) compiler.Inst {
	return compiler.Inst{Opcode: op, Operand: operand}
}

func runCode(t *testing.T, code []compiler.Inst) *VM {
	t.Helper()
	machine := New(code, compiler.DataSegment{})
	if err := machine.Run(); err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return machine
}

func TestArithmeticAndComparisonOpcodes(t *testing.T) {
	tests := []struct {
		name string
		code []compiler.Inst
		want int64
	}{
		{
			name: "2 + 3 * 4",
			code: []compiler.Inst{
				instOp(compiler.LOADC, 2),
				instOp(compiler.LOADC, 3),
				instOp(compiler.LOADC, 4),
				inst(compiler.MUL),
				inst(compiler.ADD),
				inst(compiler.HALT),
			},
			want: 14,
		},
		{
			name: "SUB computes second-from-top minus top",
			code: []compiler.Inst{
				instOp(compiler.LOADC, 10),
				instOp(compiler.LOADC, 3),
				inst(compiler.SUB),
				inst(compiler.HALT),
			},
			want: 7,
		},
		{
			name: "LE: 0 < 1 is true",
			code: []compiler.Inst{
				instOp(compiler.LOADC, 0),
				instOp(compiler.LOADC, 1),
				inst(compiler.LE),
				inst(compiler.HALT),
			},
			want: 1,
		},
		{
			name: "GE is a genuine inequality opcode, not an alias of LE",
			code: []compiler.Inst{
				instOp(compiler.LOADC, 5),
				instOp(compiler.LOADC, 1),
				inst(compiler.GE),
				inst(compiler.HALT),
			},
			want: 1,
		},
		{
			name: "NOT flips a boolean encoded as 0/1",
			code: []compiler.Inst{
				instOp(compiler.LOADC, 0),
				inst(compiler.NOT),
				inst(compiler.HALT),
			},
			want: 1,
		},
		{
			name: "NEG negates",
			code: []compiler.Inst{
				instOp(compiler.LOADC, 9),
				inst(compiler.NEG),
				inst(compiler.HALT),
			},
			want: -9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := runCode(t, tt.code)
			got, err := machine.Top()
			if err != nil {
				t.Fatalf("Top(): %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	code := []compiler.Inst{
		instOp(compiler.LOADC, 1),
		instOp(compiler.LOADC, 0),
		inst(compiler.DIV),
		inst(compiler.HALT),
	}
	machine := New(code, compiler.DataSegment{})
	if err := machine.Run(); err == nil {
		t.Fatal("expected a division-by-zero error, got nil")
	}
}

func TestStackUnderflow(t *testing.T) {
	code := []compiler.Inst{inst(compiler.POP), inst(compiler.HALT)}
	machine := New(code, compiler.DataSegment{})
	if err := machine.Run(); err == nil {
		t.Fatal("expected a stack-underflow error, got nil")
	}
}

// TestConstantReturn hand-assembles scenario 1 from spec.md §8:
// fun main(){ return 9; } should leave [9] on the stack.
func TestConstantReturn(t *testing.T) {
	code := []compiler.Inst{
		instOp(compiler.ALLOC, 1), // 0: program result slot
		inst(compiler.MARK),       // 1
		instOp(compiler.LOADC, 5), // 2: &main
		inst(compiler.CALL),       // 3
		inst(compiler.HALT),       // 4
		// main: (5)
		instOp(compiler.ALLOC, 0),   // 5
		instOp(compiler.LOADC, 9),   // 6
		instOp(compiler.LOADRC, -3), // 7
		inst(compiler.STORE),        // 8
		inst(compiler.POP),          // 9
		instOp(compiler.RET, 2),     // 10
		instOp(compiler.RET, 2),     // 11 (safety trailer)
	}
	machine := runCode(t, code)
	got, err := machine.Top()
	if err != nil {
		t.Fatalf("Top(): %v", err)
	}
	if got != 9 {
		t.Errorf("got %d, want 9", got)
	}
}

// TestCallWithArgs hand-assembles scenario 5:
// fun add(a,b){ return a+b; } fun main(){ return add(3,4); }
func TestCallWithArgs(t *testing.T) {
	code := []compiler.Inst{
		instOp(compiler.ALLOC, 1),  // 0
		inst(compiler.MARK),        // 1
		instOp(compiler.LOADC, 16), // 2: &main
		inst(compiler.CALL),        // 3
		inst(compiler.HALT),        // 4

		// add: (5)
		instOp(compiler.ALLOC, 0),
		instOp(compiler.LOADRC, -3), // a
		inst(compiler.LOAD),
		instOp(compiler.LOADRC, -4), // b
		inst(compiler.LOAD),
		inst(compiler.ADD),
		instOp(compiler.LOADRC, -3),
		inst(compiler.STORE),
		inst(compiler.POP),
		instOp(compiler.RET, 2),
		instOp(compiler.RET, 2), // 15 (safety trailer)

		// main: (16)
		instOp(compiler.ALLOC, 0),
		instOp(compiler.ALLOC, 1), // result slot for add(3,4)
		instOp(compiler.LOADC, 4), // reverse order: second declared arg first
		instOp(compiler.LOADC, 3), // first declared arg last, adjacent to saved fp
		inst(compiler.MARK),
		instOp(compiler.LOADC, 5), // &add
		inst(compiler.CALL),
		instOp(compiler.SLIDE, 2),
		instOp(compiler.LOADRC, -3),
		inst(compiler.STORE),
		inst(compiler.POP),
		instOp(compiler.RET, 2),
		instOp(compiler.RET, 2),
	}
	machine := runCode(t, code)
	got, err := machine.Top()
	if err != nil {
		t.Fatalf("Top(): %v", err)
	}
	if got != 7 {
		t.Errorf("got %d, want 7", got)
	}
}

func TestStructConstructorReturnsHeapAddress(t *testing.T) {
	// struct Point { x } -> tag 0, size 3. A minimal constructor that
	// allocates 3 heap cells and returns the base address, skipping
	// codegen's temp-local reload dance (not needed for this unit test).
	code := []compiler.Inst{
		instOp(compiler.ALLOC, 1),
		inst(compiler.MARK),
		instOp(compiler.LOADC, 5), // &Point
		inst(compiler.CALL),
		inst(compiler.HALT),

		// Point: (5)
		instOp(compiler.ALLOC, 0),
		instOp(compiler.LOADC, 3),
		inst(compiler.NEW),
		instOp(compiler.LOADRC, -3),
		inst(compiler.STORE),
		inst(compiler.POP),
		instOp(compiler.RET, 2),
	}
	machine := runCode(t, code)
	got, err := machine.Top()
	if err != nil {
		t.Fatalf("Top(): %v", err)
	}
	if got < heapBase {
		t.Errorf("expected a heap address >= %d, got %d", heapBase, got)
	}
}
