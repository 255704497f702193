package bytecode

import "fmt"

// CompileError reports a failure during bytecode compilation: an index
// width would overflow or a name is used in a context it cannot serve.
type CompileError struct {
	Msg  string
	Line int32
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error at line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("compile error: %s", e.Msg)
}

// RuntimeError reports a fault during execution: an operator type
// mismatch, an undefined global reference, or call-frame stack overflow.
// Execution halts immediately; there is no unwind-and-continue.
type RuntimeError struct {
	Msg  string
	Line int32 // Source line of the faulting instruction; 0 if unmapped
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("runtime error at line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("runtime error: %s", e.Msg)
}
