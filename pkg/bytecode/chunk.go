package bytecode

import "fmt"

// Index widths. Slot and upvalue indices encode in 8 bits on the wire,
// constant indices in 16; the compiler fails before overflowing them.
const (
	MaxConstants  = 1 << 16
	MaxLocalSlots = 1 << 8
	MaxUpvalues   = 1 << 8
)

// Instruction is one fixed-size bytecode record: an opcode and up to two
// operands. Which operands are meaningful depends on the opcode (slot
// index, constant index, jump target, argument count). Fixed-size records
// keep decode O(1); jump targets are absolute instruction indices.
type Instruction struct {
	Op Opcode
	A  int32
	B  int32
}

func (in Instruction) String() string {
	info := GetOpcodeInfo(in.Op)
	switch info.Operands {
	case 0:
		return info.Name
	case 1:
		return fmt.Sprintf("%s %d", info.Name, in.A)
	default:
		return fmt.Sprintf("%s %d %d", info.Name, in.A, in.B)
	}
}

// UpvalueDescriptor describes one compile-time-resolved capture: where the
// captured variable lives in the enclosing function when the closure is
// instantiated.
type UpvalueDescriptor struct {
	Name      string // Variable name (for diagnostics and disassembly)
	FromLocal bool   // True: Index is an enclosing local slot; false: an enclosing upvalue index
	Index     uint8
}

// Chunk is one compiled function body: instruction sequence, constant
// pool, slot counts, nested function prototypes and upvalue descriptors.
// A chunk never mutates after the compiler finishes it.
type Chunk struct {
	Name string // Function name; "" for anonymous, "main" for the top level

	Code      []Instruction
	Constants []Value // Ordered, deduplicated; only nil/bool/number/string

	ParamCount int
	LocalCount int // Total local slots, parameters included

	Protos   []*Chunk // Nested function prototypes, referenced by OpMakeClosure
	Upvalues []UpvalueDescriptor

	Lines []int32 // Source line per instruction, parallel to Code
}

// NewChunk creates a new empty chunk.
func NewChunk(name string) *Chunk {
	return &Chunk{
		Name: name,
		Code: make([]Instruction, 0, 32),
	}
}

// AddConstant adds a constant to the pool and returns its index.
// If an equal constant already exists, returns the existing index, so the
// pool stays deduplicated and ordered by first use.
func (c *Chunk) AddConstant(v Value) (int, error) {
	for i, existing := range c.Constants {
		if existing.Type() == v.Type() && existing.Equals(v) {
			return i, nil
		}
	}
	if len(c.Constants) >= MaxConstants {
		return 0, fmt.Errorf("constant pool overflow: more than %d constants in one function", MaxConstants)
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1, nil
}

// Emit appends an instruction and returns its index.
func (c *Chunk) Emit(in Instruction, line int32) int {
	c.Code = append(c.Code, in)
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// PatchJump overwrites the placeholder target of the jump at index with
// the index of the next instruction to be emitted.
func (c *Chunk) PatchJump(index int) {
	c.Code[index].A = int32(len(c.Code))
}

// PatchJumpTo overwrites the placeholder target of the jump at index with
// an explicit target.
func (c *Chunk) PatchJumpTo(index, target int) {
	c.Code[index].A = int32(target)
}

// Line returns the source line recorded for an instruction index, or 0 if
// no mapping exists.
func (c *Chunk) Line(index int) int32 {
	if index < 0 || index >= len(c.Lines) {
		return 0
	}
	return c.Lines[index]
}

// AddProto appends a nested function prototype and returns its index.
func (c *Chunk) AddProto(proto *Chunk) int {
	c.Protos = append(c.Protos, proto)
	return len(c.Protos) - 1
}
