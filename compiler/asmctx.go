package compiler

import "fmt"

// Alloc tracks the local variables declared in one lexical scope of a
// function: their frame-relative offsets, and the high/low water marks
// used to assign the next one.
//
// Variables declared in the body (var x = ...) get positive offsets
// counting up from 0 (top); parameters get negative offsets counting
// down from -3, below the saved fp/return-address cells MARK/CALL
// push (spec.md's calling convention).
type Alloc struct {
	scope map[string]int
	top   int
	bot   int
}

// newAlloc starts a scope's bookkeeping with its positive offsets
// continuing on from top (the enclosing scope's next free slot, or 0
// for a function's outermost scope), so a nested block's locals never
// alias an already-live enclosing local at the same frame offset.
func newAlloc(top int) *Alloc {
	return &Alloc{scope: map[string]int{}, top: top, bot: -3}
}

func (a *Alloc) define(id string) int {
	offset := a.top
	a.scope[id] = offset
	a.top++
	return offset
}

func (a *Alloc) defineArg(id string) int {
	offset := a.bot
	a.scope[id] = offset
	a.bot--
	return offset
}

func (a *Alloc) get(id string) (int, bool) {
	off, ok := a.scope[id]
	return off, ok
}

// AsmCtx is the code generator's bookkeeping for the function
// currently being compiled: its nested lexical scopes, its total
// local-slot count (used to back-patch the function's ALLOC), and a
// label-suffix counter for synthesizing unique label/temp names.
//
// "GLOBAL" is itself treated as a function: top-level declarations
// live in its single scope, addressed the same way a real function's
// locals are.
type AsmCtx struct {
	base   string
	scopes map[string][]*Alloc
	locals map[string]int
	args   int

	suffix   int
	metadata MetaData

	// structBinding records, per function, which struct a local
	// variable was constructed from (SPEC_FULL.md's static
	// field-resolution scheme), keyed by "<fn>#<name>".
	structBinding map[string]string
}

// NewAsmCtx starts a fresh assembly context rooted at the GLOBAL
// pseudo-function. GLOBAL's locals count up from offset -1 rather than
// 0: the VM starts with fp at 1 and GLOBAL's frame begins at stack
// cell 0, so its first local is fp-1.
func NewAsmCtx(metadata MetaData) *AsmCtx {
	ctx := &AsmCtx{
		base:          "GLOBAL",
		scopes:        map[string][]*Alloc{"GLOBAL": {}},
		locals:        map[string]int{"GLOBAL": 0},
		metadata:      metadata,
		structBinding: map[string]string{},
	}
	ctx.PushScope()
	ctx.scopes["GLOBAL"][0].top = -1
	return ctx
}

// PushScope opens a new lexical scope in the function currently being
// compiled. The new scope's locals continue counting up from the
// innermost enclosing scope's current top, rather than resetting to
// 0, so a block-scoped var never reuses an enclosing local's offset
// while the enclosing local is still live.
func (ctx *AsmCtx) PushScope() {
	stack := ctx.scopes[ctx.base]
	top := 0
	if len(stack) > 0 {
		top = stack[len(stack)-1].top
	}
	ctx.scopes[ctx.base] = append(stack, newAlloc(top))
}

// PopScope closes the innermost lexical scope of the function
// currently being compiled.
func (ctx *AsmCtx) PopScope() {
	stack := ctx.scopes[ctx.base]
	ctx.scopes[ctx.base] = stack[:len(stack)-1]
}

// AddFun switches the context to compiling a new function named id
// with argCount parameters, pushing its outermost scope.
func (ctx *AsmCtx) AddFun(id string, argCount int) {
	ctx.base = id
	ctx.scopes[id] = []*Alloc{}
	ctx.locals[id] = 0
	ctx.args = argCount
	ctx.PushScope()
}

// PopFun returns the context to GLOBAL after a function body has been
// fully generated.
func (ctx *AsmCtx) PopFun() {
	ctx.PopScope()
	ctx.base = "GLOBAL"
}

// Base returns the name of the function currently being compiled.
func (ctx *AsmCtx) Base() string {
	return ctx.base
}

// ArgCount returns the parameter count of the function currently being
// compiled.
func (ctx *AsmCtx) ArgCount() int {
	return ctx.args
}

// Define allocates a new local variable in the innermost active scope
// of the current function and returns its frame-relative offset.
func (ctx *AsmCtx) Define(id string) int {
	stack := ctx.scopes[ctx.base]
	offset := stack[len(stack)-1].define(id)
	ctx.locals[ctx.base]++
	return offset
}

// DefineArg allocates a parameter slot in the current function's
// outermost scope.
func (ctx *AsmCtx) DefineArg(id string) int {
	stack := ctx.scopes[ctx.base]
	return stack[0].defineArg(id)
}

// NewTemp allocates a compiler-internal local slot (used to hold a
// heap base pointer across the several writes a struct/list literal
// needs, since the ISA has no DUP) and returns its offset.
func (ctx *AsmCtx) NewTemp() int {
	ctx.suffix++
	return ctx.Define(fmt.Sprintf("$t%d", ctx.suffix))
}

// Get resolves a variable name to its frame-relative offset, searching
// the current function's scopes from innermost to outermost.
func (ctx *AsmCtx) Get(id string) (int, error) {
	stack := ctx.scopes[ctx.base]
	for i := len(stack) - 1; i >= 0; i-- {
		if off, ok := stack[i].get(id); ok {
			return off, nil
		}
	}
	return 0, SemanticError{Message: fmt.Sprintf("name '%s' is not defined", id)}
}

// NextLabel synthesizes a fresh, function-scoped label name.
func (ctx *AsmCtx) NextLabel() string {
	ctx.suffix++
	return fmt.Sprintf("%s_L%d", ctx.base, ctx.suffix)
}

// LocalCount returns the total number of local slots allocated in the
// named function so far, for back-patching that function's ALLOC.
func (ctx *AsmCtx) LocalCount(fn string) int {
	return ctx.locals[fn]
}

// BindStruct records that the variable name in the current function
// was constructed from the named struct type.
func (ctx *AsmCtx) BindStruct(name, structId string) {
	ctx.structBinding[ctx.base+"#"+name] = structId
}

// StructOf returns the struct type, if any, that the named variable
// in the current function was constructed from.
func (ctx *AsmCtx) StructOf(name string) (string, bool) {
	id, ok := ctx.structBinding[ctx.base+"#"+name]
	return id, ok
}

// GetStruct resolves a struct type by name via the collected
// MetaData.
func (ctx *AsmCtx) GetStruct(id string) (EstaStruct, error) {
	return ctx.metadata.Get(id)
}
