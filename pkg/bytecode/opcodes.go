package bytecode

import "fmt"

// Opcode represents a bytecode instruction's operation tag.
// Opcodes are organized into ranges by category for easy identification.
type Opcode uint8

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpPop Opcode = 0x01 // Pop top of stack
	OpDup Opcode = 0x02 // Duplicate top of stack

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpConst Opcode = 0x10 // Push constant from pool: OpConst <index>
	OpNil   Opcode = 0x11 // Push nil
	OpTrue  Opcode = 0x12 // Push true
	OpFalse Opcode = 0x13 // Push false

	// ========================================================================
	// Local variables (0x20-0x2F)
	// ========================================================================

	OpLoadLocal  Opcode = 0x20 // Push local slot: OpLoadLocal <slot>
	OpStoreLocal Opcode = 0x21 // Pop and store to local: OpStoreLocal <slot>

	// ========================================================================
	// Upvalues (0x30-0x3F)
	// ========================================================================

	OpLoadUpvalue  Opcode = 0x30 // Push captured cell value: OpLoadUpvalue <index>
	OpStoreUpvalue Opcode = 0x31 // Pop and store to captured cell: OpStoreUpvalue <index>

	// ========================================================================
	// Globals (0x40-0x4F)
	// ========================================================================

	OpLoadGlobal  Opcode = 0x40 // Push global by name: OpLoadGlobal <name_const>
	OpStoreGlobal Opcode = 0x41 // Pop and store global: OpStoreGlobal <name_const>

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd    Opcode = 0x50 // Pop two, push sum
	OpSub    Opcode = 0x51 // Pop two, push difference (a - b where b is TOS)
	OpMul    Opcode = 0x52 // Pop two, push product
	OpDiv    Opcode = 0x53 // Pop two, push quotient (IEEE-754: x/0 is inf/nan)
	OpNegate Opcode = 0x54 // Negate top of stack

	// ========================================================================
	// Comparison (0x60-0x67)
	// ========================================================================

	OpEq Opcode = 0x60 // Pop two, push a == b
	OpNe Opcode = 0x61 // Pop two, push a ~= b
	OpLt Opcode = 0x62 // Pop two, push a < b
	OpLe Opcode = 0x63 // Pop two, push a <= b
	OpGt Opcode = 0x64 // Pop two, push a > b
	OpGe Opcode = 0x65 // Pop two, push a >= b

	// ========================================================================
	// Logical (0x68-0x6F)
	// ========================================================================

	OpNot Opcode = 0x68 // Pop one, push true if falsy

	// ========================================================================
	// Control flow (0x80-0x8F). Jump targets are absolute instruction
	// indices within the same chunk.
	// ========================================================================

	OpJump      Opcode = 0x80 // Unconditional jump: OpJump <target>
	OpJumpFalse Opcode = 0x81 // Pop top, jump if falsy: OpJumpFalse <target>
	OpJumpTrue  Opcode = 0x82 // Pop top, jump if truthy: OpJumpTrue <target>

	// ========================================================================
	// Closures and calls (0x90-0x9F)
	// ========================================================================

	OpMakeClosure Opcode = 0x90 // Instantiate prototype: OpMakeClosure <proto_index>
	OpCall        Opcode = 0x91 // Call TOS-argc: OpCall <argc>
	OpPrint       Opcode = 0x92 // Builtin print: OpPrint <argc>

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn    Opcode = 0xF0 // Return top of stack
	OpReturnNil Opcode = 0xF1 // Return nil
)

// OpcodeInfo provides metadata about each opcode for disassembly and
// stack-balance validation. Every instruction has a fixed, statically
// known net effect on the operand-stack height; variable-arity opcodes
// (call, print) report -1 pops and encode their arity in operand A.
type OpcodeInfo struct {
	Name     string // Human-readable name
	Pops     int    // Values popped from stack (-1 = depends on operand A)
	Pushes   int    // Values pushed to stack
	Operands int    // Number of operands used (0-2)
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack manipulation
	OpPop: {"POP", 1, 0, 0},
	OpDup: {"DUP", 1, 2, 0},

	// Constants
	OpConst: {"CONST", 0, 1, 1},
	OpNil:   {"NIL", 0, 1, 0},
	OpTrue:  {"TRUE", 0, 1, 0},
	OpFalse: {"FALSE", 0, 1, 0},

	// Local variables
	OpLoadLocal:  {"LOAD_LOCAL", 0, 1, 1},
	OpStoreLocal: {"STORE_LOCAL", 1, 0, 1},

	// Upvalues
	OpLoadUpvalue:  {"LOAD_UPVALUE", 0, 1, 1},
	OpStoreUpvalue: {"STORE_UPVALUE", 1, 0, 1},

	// Globals
	OpLoadGlobal:  {"LOAD_GLOBAL", 0, 1, 1},
	OpStoreGlobal: {"STORE_GLOBAL", 1, 0, 1},

	// Arithmetic
	OpAdd:    {"ADD", 2, 1, 0},
	OpSub:    {"SUB", 2, 1, 0},
	OpMul:    {"MUL", 2, 1, 0},
	OpDiv:    {"DIV", 2, 1, 0},
	OpNegate: {"NEGATE", 1, 1, 0},

	// Comparison
	OpEq: {"EQ", 2, 1, 0},
	OpNe: {"NE", 2, 1, 0},
	OpLt: {"LT", 2, 1, 0},
	OpLe: {"LE", 2, 1, 0},
	OpGt: {"GT", 2, 1, 0},
	OpGe: {"GE", 2, 1, 0},

	// Logical
	OpNot: {"NOT", 1, 1, 0},

	// Control flow
	OpJump:      {"JUMP", 0, 0, 1},
	OpJumpFalse: {"JUMP_FALSE", 1, 0, 1},
	OpJumpTrue:  {"JUMP_TRUE", 1, 0, 1},

	// Closures and calls
	OpMakeClosure: {"MAKE_CLOSURE", 0, 1, 1},
	OpCall:        {"CALL", -1, 1, 1}, // Pops callee + argc args
	OpPrint:       {"PRINT", -1, 0, 1},

	// Return
	OpReturn:    {"RETURN", 1, 0, 0},
	OpReturnNil: {"RETURN_NIL", 0, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a placeholder with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", uint8(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsJump returns true if this opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op >= OpJump && op <= OpJumpTrue
}

// IsReturn returns true if this opcode terminates the current frame.
func (op Opcode) IsReturn() bool {
	return op == OpReturn || op == OpReturnNil
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
