package vm

import (
	"fmt"

	"esta/compiler"
)

// heapBase splits the single logical address space LOAD/STORE/LOADA
// operate over in two: addresses below it index into the stack,
// addresses at or above it index into the heap (offset by heapBase).
// It is far larger than any realistic stack depth, so the two halves
// can never collide.
const heapBase = 1 << 32

// StepResult discriminates the outcome of a single instruction
// dispatch: whether execution should continue, or has reached HALT.
type StepResult int

const (
	Continue StepResult = iota
	Halted
)

// VM is a stack/heap machine executing a linked compiler.Inst stream
// under the frame-pointer activation-record discipline the compiler
// package's codegen relies on: MARK/CALL/RET maintain fp-relative call
// frames, LOADRC computes fp-relative addresses, and STORE/LOAD/LOADA
// address one logical space split by heapBase into stack and heap
// halves.
type VM struct {
	code []compiler.Inst
	data compiler.DataSegment

	stack Stack
	heap  Stack

	pc int
	fp int

	// Trace, when set, prints each instruction as it dispatches. Not
	// part of the VM's contract, purely a debugging aid (spec.md §6's
	// "observable behavior" note).
	Trace bool
}

// New constructs a VM over a linked program, ready to execute from its
// first instruction. fp starts at 1: top-level code addresses GLOBAL's
// frame (stack cells 0, 1, ...) relative to it, and the program's call
// into main (ALLOC 1; MARK; ...) saves it and rebuilds fp to a real
// frame for main's body.
func New(code []compiler.Inst, data compiler.DataSegment) *VM {
	return &VM{code: code, data: data, pc: 0, fp: 1}
}

// Stack exposes the final operand stack once execution halts, so a
// caller (the CLI's "run" command) can read off the top-of-stack
// result.
func (vm *VM) Stack() Stack {
	return vm.stack
}

// Top returns the current top-of-stack value.
func (vm *VM) Top() (int64, error) {
	return vm.peek()
}

func (vm *VM) read(addr int64) (int64, error) {
	if addr < 0 {
		return 0, RuntimeError{Message: fmt.Sprintf("address %d out of range", addr)}
	}
	if addr >= heapBase {
		idx := addr - heapBase
		if idx >= int64(len(vm.heap)) {
			return 0, RuntimeError{Message: fmt.Sprintf("heap address %d out of range", idx)}
		}
		return vm.heap[idx], nil
	}
	if addr >= int64(len(vm.stack)) {
		return 0, RuntimeError{Message: fmt.Sprintf("stack address %d out of range", addr)}
	}
	return vm.stack[addr], nil
}

// write implements STORE's documented convention: stack/heap addresses
// beyond the current length are reached by extending with zeros first.
func (vm *VM) write(addr int64, value int64) error {
	if addr < 0 {
		return RuntimeError{Message: fmt.Sprintf("address %d out of range", addr)}
	}
	if addr >= heapBase {
		idx := addr - heapBase
		for idx >= int64(len(vm.heap)) {
			vm.heap.Push(0)
		}
		vm.heap[idx] = value
		return nil
	}
	for addr >= int64(len(vm.stack)) {
		vm.stack.Push(0)
	}
	vm.stack[addr] = value
	return nil
}

func (vm *VM) pop() (int64, error) {
	v, ok := vm.stack.Pop()
	if !ok {
		return 0, RuntimeError{Message: "stack underflow"}
	}
	return v, nil
}

func (vm *VM) peek() (int64, error) {
	v, ok := vm.stack.Peek()
	if !ok {
		return 0, RuntimeError{Message: "stack underflow"}
	}
	return v, nil
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Run drives Step to completion, returning the first fatal error
// encountered, or nil once HALT is reached.
func (vm *VM) Run() error {
	for {
		result, err := vm.Step()
		if err != nil {
			return err
		}
		if result == Halted {
			return nil
		}
	}
}

// Step fetches, decodes, and executes the instruction at the current
// pc, advancing pc by one unless the instruction itself redirects
// control flow (JUMP/JUMPZ/CALL/RET). A caller can bound execution by
// calling Step in a loop and aborting after N calls instead of calling
// Run, e.g. to guard a REPL against a runaway user program.
func (vm *VM) Step() (StepResult, error) {
	if vm.pc < 0 || vm.pc >= len(vm.code) {
		return Halted, RuntimeError{Message: fmt.Sprintf("pc %d out of range", vm.pc)}
	}

	inst := vm.code[vm.pc]
	if vm.Trace {
		fmt.Printf("%04d  %s\n", vm.pc, compiler.DisassembleInstruction(inst))
	}
	vm.pc++

	switch inst.Opcode {

	case compiler.LOADC:
		vm.stack.Push(inst.Operand)

	case compiler.LOADRC:
		vm.stack.Push(int64(vm.fp) + inst.Operand)

	case compiler.LOAD:
		addr, err := vm.pop()
		if err != nil {
			return Halted, err
		}
		v, err := vm.read(addr)
		if err != nil {
			return Halted, err
		}
		vm.stack.Push(v)

	case compiler.LOADA:
		offset, err := vm.pop()
		if err != nil {
			return Halted, err
		}
		base, err := vm.pop()
		if err != nil {
			return Halted, err
		}
		vm.stack.Push(base + offset)

	case compiler.STORE:
		addr, err := vm.pop()
		if err != nil {
			return Halted, err
		}
		v, err := vm.peek()
		if err != nil {
			return Halted, err
		}
		if err := vm.write(addr, v); err != nil {
			return Halted, err
		}

	case compiler.POP:
		if _, err := vm.pop(); err != nil {
			return Halted, err
		}

	case compiler.NOP:
		// nothing

	case compiler.NEW:
		n, err := vm.pop()
		if err != nil {
			return Halted, err
		}
		if n < 0 {
			return Halted, RuntimeError{Message: "cannot allocate a negative number of heap cells"}
		}
		base := int64(len(vm.heap))
		for i := int64(0); i < n; i++ {
			vm.heap.Push(0)
		}
		vm.stack.Push(heapBase + base)

	case compiler.JUMP:
		vm.pc = int(inst.Operand)

	case compiler.JUMPZ:
		v, err := vm.pop()
		if err != nil {
			return Halted, err
		}
		if v == 0 {
			vm.pc = int(inst.Operand)
		}

	case compiler.HALT:
		return Halted, nil

	case compiler.MARK:
		vm.stack.Push(int64(vm.fp))

	case compiler.CALL:
		vm.fp = len(vm.stack)
		target, err := vm.pop()
		if err != nil {
			return Halted, err
		}
		vm.stack.Push(int64(vm.pc))
		vm.pc = int(target)

	case compiler.ALLOC:
		if inst.Operand < 0 {
			return Halted, RuntimeError{Message: "cannot allocate a negative number of local slots"}
		}
		for i := int64(0); i < inst.Operand; i++ {
			vm.stack.Push(0)
		}

	case compiler.SLIDE:
		r, err := vm.peek()
		if err != nil {
			return Halted, err
		}
		for i := int64(0); i < inst.Operand+1; i++ {
			if _, err := vm.pop(); err != nil {
				return Halted, err
			}
		}
		vm.stack.Push(r)

	case compiler.RET:
		if vm.fp < 2 {
			return Halted, RuntimeError{Message: fmt.Sprintf("fp %d too small to return", vm.fp)}
		}
		pcAddr, err := vm.read(int64(vm.fp - 1))
		if err != nil {
			return Halted, err
		}
		fpAddr, err := vm.read(int64(vm.fp - 2))
		if err != nil {
			return Halted, err
		}
		newSp := vm.fp - int(inst.Operand)
		if newSp < 0 || newSp > len(vm.stack) {
			return Halted, RuntimeError{Message: fmt.Sprintf("RET target stack size %d out of range", newSp)}
		}
		vm.stack = vm.stack[:newSp]
		vm.pc = int(pcAddr)
		vm.fp = int(fpAddr)

	case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD,
		compiler.AND, compiler.OR,
		compiler.EQ, compiler.NEQ, compiler.LE, compiler.LEQ, compiler.GE, compiler.GEQ:
		a, err := vm.pop()
		if err != nil {
			return Halted, err
		}
		b, err := vm.pop()
		if err != nil {
			return Halted, err
		}
		switch inst.Opcode {
		case compiler.ADD:
			vm.stack.Push(b + a)
		case compiler.SUB:
			vm.stack.Push(b - a)
		case compiler.MUL:
			vm.stack.Push(b * a)
		case compiler.DIV:
			if a == 0 {
				return Halted, RuntimeError{Message: "division by zero"}
			}
			vm.stack.Push(b / a)
		case compiler.MOD:
			if a == 0 {
				return Halted, RuntimeError{Message: "division by zero"}
			}
			vm.stack.Push(b % a)
		case compiler.AND:
			vm.stack.Push(b2i(b != 0 && a != 0))
		case compiler.OR:
			vm.stack.Push(b2i(b != 0 || a != 0))
		case compiler.EQ:
			vm.stack.Push(b2i(b == a))
		case compiler.NEQ:
			vm.stack.Push(b2i(b != a))
		case compiler.LE:
			vm.stack.Push(b2i(b < a))
		case compiler.LEQ:
			vm.stack.Push(b2i(b <= a))
		case compiler.GE:
			vm.stack.Push(b2i(b > a))
		case compiler.GEQ:
			vm.stack.Push(b2i(b >= a))
		}

	case compiler.NEG:
		v, err := vm.pop()
		if err != nil {
			return Halted, err
		}
		vm.stack.Push(-v)

	case compiler.NOT:
		v, err := vm.pop()
		if err != nil {
			return Halted, err
		}
		vm.stack.Push(b2i(v == 0))

	default:
		return Halted, RuntimeError{Message: fmt.Sprintf("unknown opcode %d at pc %d", inst.Opcode, vm.pc-1)}
	}

	return Continue, nil
}
