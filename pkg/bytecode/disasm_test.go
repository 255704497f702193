package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleListsCode(t *testing.T) {
	chunk, err := CompileSource(`
		local x = 42
		if x < 50 then
			print("small")
		end
	`)
	if err != nil {
		t.Fatalf("CompileSource failed: %v", err)
	}

	out := chunk.Disassemble()
	for _, want := range []string{
		"; === main ===",
		"; Constants:",
		"CONST 0 ; 42",
		"STORE_LOCAL",
		"JUMP_FALSE",
		"PRINT argc=1",
		"RETURN_NIL",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleShowsGlobalNames(t *testing.T) {
	chunk, err := CompileSource("g = 1")
	if err != nil {
		t.Fatalf("CompileSource failed: %v", err)
	}
	out := chunk.Disassemble()
	if !strings.Contains(out, `STORE_GLOBAL 1 ; "g"`) {
		t.Errorf("Store should name its global:\n%s", out)
	}
}

func TestDisassembleNestedProtos(t *testing.T) {
	chunk, err := CompileSource(`
		function outer()
			local n = 1
			return function() return n end
		end
	`)
	if err != nil {
		t.Fatalf("CompileSource failed: %v", err)
	}

	out := chunk.Disassemble()
	if !strings.Contains(out, "proto[0] outer") {
		t.Errorf("Disassembly missing outer prototype:\n%s", out)
	}
	if !strings.Contains(out, "; Upvalues:") {
		t.Errorf("Disassembly missing upvalue section:\n%s", out)
	}
	if !strings.Contains(out, "n (local, index=0)") {
		t.Errorf("Disassembly missing capture description:\n%s", out)
	}
	if !strings.Contains(out, "LOAD_UPVALUE 0 ; n") {
		t.Errorf("Disassembly missing upvalue annotation:\n%s", out)
	}
}

func TestDisassembleInstructionOutOfRange(t *testing.T) {
	c := NewChunk("test")
	if got := c.DisassembleInstruction(0); got != "<end of code>" {
		t.Errorf("Expected <end of code>, got %q", got)
	}
}

func TestDisassembleToLines(t *testing.T) {
	chunk, err := CompileSource("local x = 1")
	if err != nil {
		t.Fatalf("CompileSource failed: %v", err)
	}
	lines := chunk.DisassembleToLines()
	if len(lines) != len(chunk.Code) {
		t.Errorf("Expected %d lines, got %d", len(chunk.Code), len(lines))
	}
	if !strings.HasPrefix(lines[0], "0000  ") {
		t.Errorf("Line should start with an index: %q", lines[0])
	}
}
