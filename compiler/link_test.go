package compiler

import "testing"

func TestBuildDataSegmentLayout(t *testing.T) {
	metadata := MetaData{Structs: []EstaStruct{
		{Id: "Point", Tag: 0, Size: 4, Fields: map[string]int{"x": 2, "y": 3}, FieldOrder: []string{"x", "y"}},
		{Id: "Line", Tag: 1, Size: 3, Fields: map[string]int{"len": 2}, FieldOrder: []string{"len"}},
	}}

	seg := BuildDataSegment(metadata)

	// Pointer table: one entry per struct, in tag order, each naming the
	// index (shifted past the 2-entry pointer table) where that struct's
	// field block starts.
	if len(seg.Words) != 2+4+2 {
		t.Fatalf("got %d words, want 8 (2 pointers + 4 Point words + 2 Line words): %v", len(seg.Words), seg.Words)
	}
	if seg.Words[0] != 2 {
		t.Errorf("Point's field block should start right after the pointer table: got %d, want 2", seg.Words[0])
	}
	if seg.Words[1] != 6 {
		t.Errorf("Line's field block should start after Point's 4 words: got %d, want 6", seg.Words[1])
	}

	// Point's field block: (hash(x), 2, hash(y), 3) in declaration order.
	if seg.Words[2] != uint64(hash32("x")) || seg.Words[3] != 2 {
		t.Errorf("Point.x block wrong: got (%d, %d)", seg.Words[2], seg.Words[3])
	}
	if seg.Words[4] != uint64(hash32("y")) || seg.Words[5] != 3 {
		t.Errorf("Point.y block wrong: got (%d, %d)", seg.Words[4], seg.Words[5])
	}

	// Line's field block follows immediately.
	if seg.Words[6] != uint64(hash32("len")) || seg.Words[7] != 2 {
		t.Errorf("Line.len block wrong: got (%d, %d)", seg.Words[6], seg.Words[7])
	}
}

func TestBuildDataSegmentEmptyStructTable(t *testing.T) {
	seg := BuildDataSegment(MetaData{})
	if len(seg.Words) != 0 {
		t.Errorf("expected an empty data segment with no structs, got %v", seg.Words)
	}
}

func TestLinkRejectsUndefinedLabel(t *testing.T) {
	ctx := NewAsmCtx(MetaData{})
	stream := []StreamItem{
		{Opcode: JUMP, Operand: labelOperand("nowhere")},
	}
	if _, err := Link(ctx, stream); err == nil {
		t.Fatal("expected an undefined-label error, got nil")
	}
}

func TestLinkRejectsDuplicateLabel(t *testing.T) {
	ctx := NewAsmCtx(MetaData{})
	stream := []StreamItem{
		{IsLabel: true, Label: "again"},
		{Opcode: HALT},
		{IsLabel: true, Label: "again"},
	}
	if _, err := Link(ctx, stream); err == nil {
		t.Fatal("expected a duplicate-label error, got nil")
	}
}

func TestLinkResolvesLabelToFollowingInstructionIndex(t *testing.T) {
	ctx := NewAsmCtx(MetaData{})
	stream := []StreamItem{
		{Opcode: HALT},
		{IsLabel: true, Label: "target"},
		{Opcode: HALT},
		{Opcode: JUMP, Operand: labelOperand("target")},
	}

	insts, err := Link(ctx, stream)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if len(insts) != 3 {
		t.Fatalf("expected 3 resolved instructions, got %d", len(insts))
	}
	if insts[2].Operand != 1 {
		t.Errorf("JUMP should resolve to index 1, got %d", insts[2].Operand)
	}
}
