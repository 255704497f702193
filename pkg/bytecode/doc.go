// Package bytecode provides a stack-based virtual machine for executing
// lust programs. Source text is parsed by the compiler package into an
// AST, which this package lowers to bytecode chunks and executes.
//
// The bytecode format is designed for:
//   - Simple decoding (fixed-width instruction records, one opcode plus
//     two operands)
//   - Easy serialization (chunks marshal to canonical CBOR using the
//     "LUBC" envelope for caching or transport)
//   - Straightforward disassembly for debugging
//
// # Architecture Overview
//
// The system consists of several components:
//
//   - Opcodes: ~30 stack-based instructions covering arithmetic,
//     comparison, control flow, variable access, closures, and calls
//
//   - Chunk: A compiled function body containing code, a deduplicated
//     constant pool, parameter and local-slot counts, nested function
//     prototypes, and upvalue descriptors
//
//   - Compiler: Converts the AST to chunks, resolving every identifier
//     to a local slot, an upvalue, or a global name, and back-patching
//     forward jumps for if/while control flow
//
//   - VM: Stack-based interpreter with explicit call frames. One VM
//     instance owns all execution state; runs are single-threaded and
//     deterministic for a given chunk and inputs.
//
// # Capture Semantics
//
// Functions capture enclosing locals as upvalues. When a closure value
// is instantiated, each upvalue that refers to a local of the directly
// enclosing function snapshots that local's current value into a fresh
// mutable cell; upvalues that pass through intermediate functions share
// the intermediate closure's cell, so a chain of nested closures sees
// one cell while sibling closures instantiated from the same local each
// get their own.
//
// # Error Handling
//
// Compilation reports CompileError (resolution and limit failures);
// execution reports RuntimeError with the source line of the faulting
// instruction. A RuntimeError halts the VM immediately; output already
// printed is left intact.
package bytecode
