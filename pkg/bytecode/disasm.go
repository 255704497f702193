package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk,
// including its nested function prototypes.
func (c *Chunk) Disassemble() string {
	var sb strings.Builder
	c.disassembleInto(&sb, c.Name)
	return sb.String()
}

func (c *Chunk) disassembleInto(sb *strings.Builder, name string) {
	// Header
	sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	if c.ParamCount > 0 {
		sb.WriteString(fmt.Sprintf("; Parameters: %d\n", c.ParamCount))
	}
	if c.LocalCount > 0 {
		sb.WriteString(fmt.Sprintf("; Locals: %d slots\n", c.LocalCount))
	}

	// Constants
	if len(c.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, v := range c.Constants {
			display := v.String()
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			display = strings.ReplaceAll(display, "\n", "\\n")
			display = strings.ReplaceAll(display, "\t", "\\t")
			if v.IsString() {
				sb.WriteString(fmt.Sprintf(";   [%3d] %q\n", i, display))
			} else {
				sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, display))
			}
		}
	}

	// Upvalues
	if len(c.Upvalues) > 0 {
		sb.WriteString("; Upvalues:\n")
		for i, desc := range c.Upvalues {
			source := "upvalue"
			if desc.FromLocal {
				source = "local"
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %s (%s, index=%d)\n",
				i, desc.Name, source, desc.Index))
		}
	}

	// Code
	sb.WriteString("; Code:\n")
	for index := range c.Code {
		sb.WriteString(fmt.Sprintf("%04d  %s", index, c.DisassembleInstruction(index)))
		if line := c.Line(index); line > 0 {
			pad := 28 - len(c.DisassembleInstruction(index))
			if pad > 0 {
				sb.WriteString(strings.Repeat(" ", pad))
			}
			sb.WriteString(fmt.Sprintf(" ; line %d", line))
		}
		sb.WriteString("\n")
	}

	// Nested prototypes
	for i, proto := range c.Protos {
		sb.WriteString("\n")
		proto.disassembleInto(sb, fmt.Sprintf("%s/proto[%d] %s", name, i, proto.Name))
	}
}

// DisassembleInstruction returns a human-readable representation of the
// instruction at the given index.
func (c *Chunk) DisassembleInstruction(index int) string {
	if index >= len(c.Code) {
		return "<end of code>"
	}

	in := c.Code[index]
	info := GetOpcodeInfo(in.Op)

	switch in.Op {
	case OpConst, OpLoadGlobal, OpStoreGlobal:
		display := ""
		if int(in.A) < len(c.Constants) {
			v := c.Constants[in.A]
			display = v.String()
			if len(display) > 20 {
				display = display[:17] + "..."
			}
			if v.IsString() {
				display = fmt.Sprintf("%q", display)
			}
		}
		return fmt.Sprintf("%s %d ; %s", info.Name, in.A, display)

	case OpLoadUpvalue, OpStoreUpvalue:
		upName := ""
		if int(in.A) < len(c.Upvalues) {
			upName = c.Upvalues[in.A].Name
		}
		if upName != "" {
			return fmt.Sprintf("%s %d ; %s", info.Name, in.A, upName)
		}
		return fmt.Sprintf("%s %d", info.Name, in.A)

	case OpJump, OpJumpFalse, OpJumpTrue:
		return fmt.Sprintf("%s -> %04d", info.Name, in.A)

	case OpMakeClosure:
		protoName := ""
		if int(in.A) < len(c.Protos) {
			protoName = c.Protos[in.A].Name
		}
		return fmt.Sprintf("%s %d ; %s", info.Name, in.A, protoName)

	case OpCall:
		return fmt.Sprintf("%s argc=%d", info.Name, in.A)

	case OpPrint:
		return fmt.Sprintf("%s argc=%d", info.Name, in.A)

	default:
		if info.Operands == 0 {
			return info.Name
		}
		if info.Operands == 1 {
			return fmt.Sprintf("%s %d", info.Name, in.A)
		}
		return fmt.Sprintf("%s %d %d", info.Name, in.A, in.B)
	}
}

// DisassembleToLines returns the chunk's code listing as a slice of lines
// without headers or nested prototypes.
func (c *Chunk) DisassembleToLines() []string {
	lines := make([]string, len(c.Code))
	for index := range c.Code {
		lines[index] = fmt.Sprintf("%04d  %s", index, c.DisassembleInstruction(index))
	}
	return lines
}
