package compiler_test

// End-to-end scenario tests driving the full pipeline a source string
// actually travels through: lexer -> parser -> middleend -> compiler
// -> vm. These exercise the real Generator/Link/VM, as opposed to
// vm_test.go's hand-assembled instruction streams.

import (
	"testing"

	"esta/compiler"
	"esta/lexer"
	"esta/middleend"
	"esta/parser"
	"esta/vm"
)

func runSource(t *testing.T, source string) int64 {
	t.Helper()

	tokens, err := lexer.New(source).Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}

	statements, parseErrs := parser.Make(tokens).Parse()
	if len(parseErrs) > 0 {
		t.Fatalf("parse errors: %v", parseErrs)
	}

	metadata, err := middleend.Collect(statements)
	if err != nil {
		t.Fatalf("middleend error: %v", err)
	}

	insts, data, err := compiler.Compile(statements, metadata)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	machine := vm.New(insts, data)
	if err := machine.Run(); err != nil {
		t.Fatalf("runtime error: %v", err)
	}

	top, err := machine.Top()
	if err != nil {
		t.Fatalf("Top(): %v", err)
	}
	return top
}

func TestConstantReturn(t *testing.T) {
	if got := runSource(t, `fn main(){ return 9; }`); got != 9 {
		t.Errorf("got %d, want 9", got)
	}
}

func TestLocalThenReturn(t *testing.T) {
	if got := runSource(t, `fn main(){ var a; a = 9; return a; }`); got != 9 {
		t.Errorf("got %d, want 9", got)
	}
}

func TestConditional(t *testing.T) {
	if got := runSource(t, `fn main(){ if 0 { return 1; } else { return 2; } }`); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

func TestWhileLoop(t *testing.T) {
	source := `fn main(){ var i; i = 0; while i != 5 { i = i + 1; } return i; }`
	if got := runSource(t, source); got != 5 {
		t.Errorf("got %d, want 5", got)
	}
}

func TestFunctionCallWithArgs(t *testing.T) {
	source := `fn add(a, b){ return a+b; } fn main(){ return add(3, 4); }`
	if got := runSource(t, source); got != 7 {
		t.Errorf("got %d, want 7", got)
	}
}

func TestArithmeticPrecedence(t *testing.T) {
	if got := runSource(t, `fn main(){ return 2 + 3 * 4; }`); got != 14 {
		t.Errorf("got %d, want 14", got)
	}
}

func TestNestedCallsAndRecursionLikeChains(t *testing.T) {
	source := `
		fn double(n) { return n * 2; }
		fn quadruple(n) { return double(double(n)); }
		fn main() { return quadruple(3); }
	`
	if got := runSource(t, source); got != 12 {
		t.Errorf("got %d, want 12", got)
	}
}

func TestStructConstructorAndFieldAccess(t *testing.T) {
	source := `
		struct Point { x, y }
		fn main() {
			var p = Point(1, 2);
			return p.x + p.y;
		}
	`
	// A constructor call currently only allocates and tags the struct's
	// cells (the spec's Struct contract is "allocate, tag, return base
	// address" with no field-initializer wiring); field reads therefore
	// observe the zero-initialized heap, not constructor arguments.
	if got := runSource(t, source); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestNestedScopeLocalsDoNotAliasEnclosingLocals(t *testing.T) {
	source := `
		fn main() {
			var a;
			a = 5;
			if 1 {
				var b;
				b = 9;
			}
			return a;
		}
	`
	if got := runSource(t, source); got != 5 {
		t.Errorf("got %d, want 5", got)
	}
}

func TestBareReturnDoesNotClobberCallerResultSlot(t *testing.T) {
	source := `
		fn noop() { return; }
		fn main() { var x; x = 41; noop(); return x + 1; }
	`
	if got := runSource(t, source); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestUnknownIdentifierIsASemanticError(t *testing.T) {
	tokens, err := lexer.New(`fn main(){ return missing; }`).Scan()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	statements, parseErrs := parser.Make(tokens).Parse()
	if len(parseErrs) > 0 {
		t.Fatalf("parse errors: %v", parseErrs)
	}
	metadata, err := middleend.Collect(statements)
	if err != nil {
		t.Fatalf("middleend error: %v", err)
	}
	if _, _, err := compiler.Compile(statements, metadata); err == nil {
		t.Fatal("expected a semantic error for an unknown identifier, got nil")
	}
}
