package bytecode

import (
	"fmt"
	"strings"
	"testing"
)

func compileString(t *testing.T, source string) *Chunk {
	t.Helper()
	chunk, err := CompileSource(source)
	if err != nil {
		t.Fatalf("CompileSource failed: %v", err)
	}
	return chunk
}

func opcodes(c *Chunk) []Opcode {
	ops := make([]Opcode, len(c.Code))
	for i, in := range c.Code {
		ops[i] = in.Op
	}
	return ops
}

func assertOps(t *testing.T, c *Chunk, want ...Opcode) {
	t.Helper()
	got := opcodes(c)
	if len(got) != len(want) {
		t.Fatalf("Expected %d instructions, got %d:\n%s", len(want), len(got), c.Disassemble())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Instruction %d: expected %s, got %s:\n%s", i, want[i], got[i], c.Disassemble())
		}
	}
}

// ============ Code Shape Tests ============

func TestCompileLocalDecl(t *testing.T) {
	chunk := compileString(t, "local x = 42")
	assertOps(t, chunk, OpConst, OpStoreLocal, OpReturnNil)

	if chunk.LocalCount != 1 {
		t.Errorf("Expected 1 local slot, got %d", chunk.LocalCount)
	}
}

func TestCompileLocalDeclDefaultsNil(t *testing.T) {
	chunk := compileString(t, "local x")
	assertOps(t, chunk, OpNil, OpStoreLocal, OpReturnNil)
}

func TestCompileExpressionStatementPops(t *testing.T) {
	chunk := compileString(t, "1 + 2")
	assertOps(t, chunk, OpConst, OpConst, OpAdd, OpPop, OpReturnNil)
}

func TestCompileGlobalAssignment(t *testing.T) {
	chunk := compileString(t, "g = 1")
	assertOps(t, chunk, OpConst, OpStoreGlobal, OpReturnNil)

	nameIdx := chunk.Code[1].A
	if !chunk.Constants[nameIdx].Equals(StringValue("g")) {
		t.Errorf("Store target should be the name constant \"g\"")
	}
}

func TestCompileIfBackPatching(t *testing.T) {
	chunk := compileString(t, "if true then g = 1 end")
	// TRUE, JUMP_FALSE end, CONST, STORE_GLOBAL, ... end: RETURN_NIL
	assertOps(t, chunk, OpTrue, OpJumpFalse, OpConst, OpStoreGlobal, OpReturnNil)

	if target := chunk.Code[1].A; target != 4 {
		t.Errorf("Expected false-branch target 4, got %d", target)
	}
}

func TestCompileIfElseBackPatching(t *testing.T) {
	chunk := compileString(t, "if true then g = 1 else g = 2 end")
	assertOps(t, chunk,
		OpTrue, OpJumpFalse, // 0-1
		OpConst, OpStoreGlobal, OpJump, // 2-4 then branch
		OpConst, OpStoreGlobal, // 5-6 else branch
		OpReturnNil, // 7
	)

	if chunk.Code[1].A != 5 {
		t.Errorf("False branch should target 5, got %d", chunk.Code[1].A)
	}
	if chunk.Code[4].A != 7 {
		t.Errorf("End jump should target 7, got %d", chunk.Code[4].A)
	}
}

func TestCompileWhileLoopShape(t *testing.T) {
	chunk := compileString(t, "while true do g = 1 end")
	assertOps(t, chunk,
		OpTrue, OpJumpFalse, // 0-1 condition
		OpConst, OpStoreGlobal, // 2-3 body
		OpJump,      // 4 back edge
		OpReturnNil, // 5
	)

	if chunk.Code[4].A != 0 {
		t.Errorf("Back edge should target 0, got %d", chunk.Code[4].A)
	}
	if chunk.Code[1].A != 5 {
		t.Errorf("Exit jump should target 5, got %d", chunk.Code[1].A)
	}
}

func TestCompileShortCircuitAnd(t *testing.T) {
	chunk := compileString(t, "g = false and unknown()")
	// FALSE, DUP, JUMP_FALSE end, POP, <right>, end: STORE_GLOBAL
	ops := opcodes(chunk)
	if ops[0] != OpFalse || ops[1] != OpDup || ops[2] != OpJumpFalse || ops[3] != OpPop {
		t.Fatalf("Unexpected and-compilation:\n%s", chunk.Disassemble())
	}

	// The skip jump must land after the right operand, on the store.
	target := chunk.Code[2].A
	if chunk.Code[target].Op != OpStoreGlobal {
		t.Errorf("Skip target should be the store, got %s:\n%s",
			chunk.Code[target].Op, chunk.Disassemble())
	}
}

func TestCompileShortCircuitOrUsesJumpTrue(t *testing.T) {
	chunk := compileString(t, "g = true or unknown()")
	if chunk.Code[2].Op != OpJumpTrue {
		t.Errorf("or should compile to JUMP_TRUE, got %s", chunk.Code[2].Op)
	}
}

// ============ Scope Tests ============

func TestCompileScopeShadowing(t *testing.T) {
	chunk := compileString(t, `
		local x = 1
		if true then
			local x = 2
			x = 3
		end
		x = 4
	`)

	// The inner x occupies a different slot than the outer.
	var stores []int32
	for _, in := range chunk.Code {
		if in.Op == OpStoreLocal {
			stores = append(stores, in.A)
		}
	}
	// outer decl, inner decl, inner assign, outer assign
	if len(stores) != 4 {
		t.Fatalf("Expected 4 local stores, got %d:\n%s", len(stores), chunk.Disassemble())
	}
	if stores[0] != 0 || stores[1] != 1 || stores[2] != 1 || stores[3] != 0 {
		t.Errorf("Slot assignment wrong: %v", stores)
	}
}

func TestCompileSlotReuseAfterScopeExit(t *testing.T) {
	chunk := compileString(t, `
		if true then
			local a = 1
		end
		if true then
			local b = 2
		end
	`)
	// a and b never coexist, so they share slot 0.
	if chunk.LocalCount != 1 {
		t.Errorf("Expected 1 local slot, got %d:\n%s", chunk.LocalCount, chunk.Disassemble())
	}
}

func TestCompileLocalInitializerSeesOuter(t *testing.T) {
	chunk := compileString(t, `
		local x = 1
		if true then
			local x = x + 1
		end
	`)
	// The inner initializer loads slot 0 (the outer x) before slot 1 exists.
	var loaded int32 = -1
	for _, in := range chunk.Code {
		if in.Op == OpLoadLocal {
			loaded = in.A
			break
		}
	}
	if loaded != 0 {
		t.Errorf("Initializer should load outer slot 0, got %d:\n%s", loaded, chunk.Disassemble())
	}
}

// ============ Function and Upvalue Tests ============

func TestCompileFunctionDeclStoresGlobal(t *testing.T) {
	chunk := compileString(t, "function f() return 1 end")
	assertOps(t, chunk, OpMakeClosure, OpStoreGlobal, OpReturnNil)

	if len(chunk.Protos) != 1 {
		t.Fatalf("Expected 1 prototype, got %d", len(chunk.Protos))
	}
	proto := chunk.Protos[0]
	if proto.Name != "f" {
		t.Errorf("Expected prototype name f, got %q", proto.Name)
	}
	assertOps(t, proto, OpConst, OpReturn)
}

func TestCompileFunctionParams(t *testing.T) {
	chunk := compileString(t, "function add(a, b) return a + b end")
	proto := chunk.Protos[0]
	if proto.ParamCount != 2 {
		t.Errorf("Expected 2 params, got %d", proto.ParamCount)
	}
	if proto.LocalCount < 2 {
		t.Errorf("Params must occupy local slots, got %d", proto.LocalCount)
	}
	assertOps(t, proto, OpLoadLocal, OpLoadLocal, OpAdd, OpReturn)
}

func TestCompileImplicitReturnNil(t *testing.T) {
	chunk := compileString(t, "function f() g = 1 end")
	proto := chunk.Protos[0]
	last := proto.Code[len(proto.Code)-1]
	if last.Op != OpReturnNil {
		t.Errorf("Function without return should end in RETURN_NIL, got %s", last.Op)
	}
}

func TestCompileUpvalueFromLocal(t *testing.T) {
	chunk := compileString(t, `
		function outer()
			local n = 1
			return function() return n end
		end
	`)
	inner := chunk.Protos[0].Protos[0]
	if len(inner.Upvalues) != 1 {
		t.Fatalf("Expected 1 upvalue, got %d", len(inner.Upvalues))
	}
	desc := inner.Upvalues[0]
	if desc.Name != "n" || !desc.FromLocal || desc.Index != 0 {
		t.Errorf("Unexpected descriptor: %+v", desc)
	}
	assertOps(t, inner, OpLoadUpvalue, OpReturn)
}

func TestCompileUpvalueThreadsThroughIntermediate(t *testing.T) {
	chunk := compileString(t, `
		function outer()
			local n = 1
			return function()
				return function() return n end
			end
		end
	`)
	middle := chunk.Protos[0].Protos[0]
	inner := middle.Protos[0]

	// The middle function captures n from its enclosing local even though
	// it never mentions n itself.
	if len(middle.Upvalues) != 1 || !middle.Upvalues[0].FromLocal {
		t.Fatalf("Middle function should capture n from a local, got %+v", middle.Upvalues)
	}
	// The innermost function reaches n through the middle one's upvalue.
	if len(inner.Upvalues) != 1 || inner.Upvalues[0].FromLocal {
		t.Fatalf("Inner function should capture n from an upvalue, got %+v", inner.Upvalues)
	}
}

func TestCompileUpvalueDeduplicated(t *testing.T) {
	chunk := compileString(t, `
		function outer()
			local n = 1
			return function() return n + n end
		end
	`)
	inner := chunk.Protos[0].Protos[0]
	if len(inner.Upvalues) != 1 {
		t.Errorf("Repeated capture of one variable should yield 1 descriptor, got %d", len(inner.Upvalues))
	}
}

// ============ Print Tests ============

func TestCompilePrintIsBuiltin(t *testing.T) {
	chunk := compileString(t, `print(1, 2)`)
	assertOps(t, chunk, OpConst, OpConst, OpPrint, OpNil, OpPop, OpReturnNil)

	if chunk.Code[2].A != 2 {
		t.Errorf("Expected print argc 2, got %d", chunk.Code[2].A)
	}
}

func TestCompilePrintShadowedByLocal(t *testing.T) {
	chunk := compileString(t, `
		local print = 1
		print(2)
	`)
	for _, in := range chunk.Code {
		if in.Op == OpPrint {
			t.Fatalf("Shadowed print must compile to a normal call:\n%s", chunk.Disassemble())
		}
	}
}

// ============ Limit Tests ============

func TestCompileTooManyLocals(t *testing.T) {
	var sb strings.Builder
	for i := 0; i <= MaxLocalSlots; i++ {
		fmt.Fprintf(&sb, "local v%d = %d\n", i, i)
	}

	_, err := CompileSource(sb.String())
	if err == nil {
		t.Fatalf("Expected local slot overflow error")
	}
	compileErr, ok := err.(*CompileError)
	if !ok {
		t.Fatalf("Expected *CompileError, got %T", err)
	}
	if !strings.Contains(compileErr.Msg, "local variables") {
		t.Errorf("Unexpected message: %s", compileErr.Msg)
	}
}

// ============ Line Tracking Tests ============

func TestCompileRecordsLines(t *testing.T) {
	chunk := compileString(t, "local x = 1\nx = 2")
	if chunk.Line(0) != 1 {
		t.Errorf("First instruction should map to line 1, got %d", chunk.Line(0))
	}
	// The store for "x = 2" maps to line 2.
	if chunk.Line(2) != 2 {
		t.Errorf("Third instruction should map to line 2, got %d", chunk.Line(2))
	}
}
