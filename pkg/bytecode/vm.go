package bytecode

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultMaxFrames bounds call-frame depth so runaway recursion in the
// interpreted program reports a stack-overflow error instead of
// exhausting the host.
const DefaultMaxFrames = 256

// DefaultStackSize is the initial operand stack allocation. The stack
// grows on demand; this only sets the starting capacity.
const DefaultStackSize = 64

// State describes where the VM is in its lifecycle.
type State int

const (
	// StateRunning: instructions are executing.
	StateRunning State = iota

	// StateReturned: the outermost frame returned; the program result is
	// the returned value.
	StateReturned

	// StateFaulted: an instruction raised a RuntimeError; execution
	// halted immediately.
	StateFaulted
)

// String returns a human-readable name for a VM state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateReturned:
		return "returned"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CallFrame is one activation record: the executing closure, the return
// instruction pointer, and the base index into the operand stack where
// this call's local slots start.
type CallFrame struct {
	closure *Closure
	ip      int
	base    int
}

// VM executes bytecode chunks. All state (operand stack, call-frame
// stack, global table) is owned by one VM instance; nothing is shared
// across instances. Execution is single-threaded and fully synchronous.
type VM struct {
	stack []Value
	sp    int

	frames     []CallFrame
	frameCount int
	maxFrames  int

	globals map[string]Value

	state State

	stdout io.Writer // receives print output
	trace  io.Writer // receives the instruction trace when Trace is set

	// Trace dumps each instruction before it executes.
	Trace bool
}

// NewVM creates a new VM instance with default limits, writing print
// output to standard output.
func NewVM() *VM {
	return &VM{
		stack:     make([]Value, DefaultStackSize),
		frames:    make([]CallFrame, 0, 16),
		maxFrames: DefaultMaxFrames,
		globals:   make(map[string]Value),
		stdout:    os.Stdout,
		trace:     os.Stderr,
	}
}

// SetOutput redirects print output.
func (vm *VM) SetOutput(w io.Writer) {
	vm.stdout = w
}

// SetTraceOutput redirects the instruction trace.
func (vm *VM) SetTraceOutput(w io.Writer) {
	vm.trace = w
}

// SetMaxFrames bounds the call-frame stack depth. Values below 1 keep the
// current limit.
func (vm *VM) SetMaxFrames(n int) {
	if n >= 1 {
		vm.maxFrames = n
	}
}

// SetStackSize sets the initial operand stack allocation. It grows but
// never shrinks the current stack, and values below 1 are ignored.
func (vm *VM) SetStackSize(n int) {
	if n > len(vm.stack) {
		grown := make([]Value, n)
		copy(grown, vm.stack)
		vm.stack = grown
	}
}

// State returns the VM's lifecycle state.
func (vm *VM) State() State {
	return vm.state
}

// Global returns the value of a global by name.
func (vm *VM) Global(name string) (Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

// Interpret executes a top-level chunk to completion and returns the
// program's final value. On a RuntimeError the VM halts immediately with
// whatever print output was already written left intact.
func (vm *VM) Interpret(chunk *Chunk) (Value, error) {
	vm.sp = 0
	vm.frameCount = 0
	vm.frames = vm.frames[:0]
	vm.state = StateRunning

	closure := &Closure{Chunk: chunk}
	vm.pushFrame(closure, 0)
	vm.ensureStack(chunk.LocalCount)
	for i := 0; i < chunk.LocalCount; i++ {
		vm.stack[i] = NilValue()
	}
	vm.sp = chunk.LocalCount

	result, err := vm.run()
	if err != nil {
		vm.state = StateFaulted
		return NilValue(), err
	}
	vm.state = StateReturned
	return result, nil
}

// run is the fetch-decode-execute loop.
func (vm *VM) run() (Value, error) {
	frame := &vm.frames[vm.frameCount-1]

	for {
		in := frame.closure.Chunk.Code[frame.ip]
		atIP := frame.ip
		frame.ip++

		if vm.Trace {
			fmt.Fprintf(vm.trace, "[%s %04d] %-18s sp=%d depth=%d\n",
				frame.closure.Chunk.Name, atIP, in.String(), vm.sp, vm.frameCount)
		}

		switch in.Op {
		// ============ Stack ============
		case OpPop:
			vm.sp--

		case OpDup:
			vm.push(vm.stack[vm.sp-1])

		// ============ Constants ============
		case OpConst:
			vm.push(frame.closure.Chunk.Constants[in.A])

		case OpNil:
			vm.push(NilValue())

		case OpTrue:
			vm.push(BoolValue(true))

		case OpFalse:
			vm.push(BoolValue(false))

		// ============ Locals ============
		case OpLoadLocal:
			vm.push(vm.stack[frame.base+int(in.A)])

		case OpStoreLocal:
			vm.stack[frame.base+int(in.A)] = vm.pop()

		// ============ Upvalues ============
		case OpLoadUpvalue:
			vm.push(frame.closure.Upvalues[in.A].Value)

		case OpStoreUpvalue:
			frame.closure.Upvalues[in.A].Value = vm.pop()

		// ============ Globals ============
		case OpLoadGlobal:
			name := frame.closure.Chunk.Constants[in.A].Str()
			value, ok := vm.globals[name]
			if !ok {
				return NilValue(), vm.runtimeError(frame, atIP, "undefined global %q", name)
			}
			vm.push(value)

		case OpStoreGlobal:
			name := frame.closure.Chunk.Constants[in.A].Str()
			vm.globals[name] = vm.pop()

		// ============ Arithmetic ============
		case OpAdd, OpSub, OpMul, OpDiv:
			b := vm.pop()
			a := vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return NilValue(), vm.arithTypeError(frame, atIP, in.Op, a, b)
			}
			switch in.Op {
			case OpAdd:
				vm.push(NumberValue(a.Number() + b.Number()))
			case OpSub:
				vm.push(NumberValue(a.Number() - b.Number()))
			case OpMul:
				vm.push(NumberValue(a.Number() * b.Number()))
			case OpDiv:
				// IEEE-754: division by zero yields an infinity or nan,
				// never a fault.
				vm.push(NumberValue(a.Number() / b.Number()))
			}

		case OpNegate:
			a := vm.pop()
			if !a.IsNumber() {
				return NilValue(), vm.runtimeError(frame, atIP, "attempt to negate a %s value", a.Type())
			}
			vm.push(NumberValue(-a.Number()))

		// ============ Comparison ============
		case OpEq:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolValue(a.Equals(b)))

		case OpNe:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolValue(!a.Equals(b)))

		case OpLt, OpLe, OpGt, OpGe:
			b := vm.pop()
			a := vm.pop()
			result, err := compareOrdered(in.Op, a, b)
			if err != nil {
				return NilValue(), vm.runtimeError(frame, atIP, "%s", err)
			}
			vm.push(BoolValue(result))

		// ============ Logical ============
		case OpNot:
			a := vm.pop()
			vm.push(BoolValue(!a.IsTruthy()))

		// ============ Control flow ============
		case OpJump:
			frame.ip = int(in.A)

		case OpJumpFalse:
			if !vm.pop().IsTruthy() {
				frame.ip = int(in.A)
			}

		case OpJumpTrue:
			if vm.pop().IsTruthy() {
				frame.ip = int(in.A)
			}

		// ============ Closures and calls ============
		case OpMakeClosure:
			proto := frame.closure.Chunk.Protos[in.A]
			upvalues := make([]*Upvalue, len(proto.Upvalues))
			for i, desc := range proto.Upvalues {
				if desc.FromLocal {
					// Capture the enclosing local's current value into a
					// fresh cell.
					upvalues[i] = &Upvalue{Value: vm.stack[frame.base+int(desc.Index)]}
				} else {
					// Share the enclosing closure's cell.
					upvalues[i] = frame.closure.Upvalues[desc.Index]
				}
			}
			vm.push(FunctionValue(&Closure{Chunk: proto, Upvalues: upvalues}))

		case OpCall:
			if err := vm.call(frame, atIP, int(in.A)); err != nil {
				return NilValue(), err
			}
			frame = &vm.frames[vm.frameCount-1]

		case OpPrint:
			argc := int(in.A)
			parts := make([]string, argc)
			for i, v := range vm.stack[vm.sp-argc : vm.sp] {
				parts[i] = v.String()
			}
			vm.sp -= argc
			fmt.Fprintln(vm.stdout, strings.Join(parts, " "))

		// ============ Return ============
		case OpReturn, OpReturnNil:
			result := NilValue()
			if in.Op == OpReturn {
				result = vm.pop()
			}

			returning := vm.frames[vm.frameCount-1]
			vm.frameCount--
			vm.frames = vm.frames[:vm.frameCount]

			if vm.frameCount == 0 {
				// Outermost frame returned: program result.
				return result, nil
			}

			// The return value replaces the callee at the stack position
			// the call occupied.
			vm.sp = returning.base - 1
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		default:
			return NilValue(), vm.runtimeError(frame, atIP, "unknown opcode 0x%02X", uint8(in.Op))
		}
	}
}

// call pushes a new frame for the closure sitting argc slots below the
// stack top. Missing arguments pad with nil; extras are discarded.
func (vm *VM) call(frame *CallFrame, atIP, argc int) error {
	calleeIdx := vm.sp - argc - 1
	callee := vm.stack[calleeIdx]

	if !callee.IsFunction() {
		return vm.runtimeError(frame, atIP, "attempt to call a %s value", callee.Type())
	}
	if vm.frameCount >= vm.maxFrames {
		return vm.runtimeError(frame, atIP, "stack overflow (call depth limit %d)", vm.maxFrames)
	}

	closure := callee.Fn()
	chunk := closure.Chunk

	// Normalize the argument window to exactly ParamCount values.
	base := calleeIdx + 1
	for argc < chunk.ParamCount {
		vm.push(NilValue())
		argc++
	}
	vm.sp = base + chunk.ParamCount

	// Reserve the remaining local slots, initialized to nil.
	vm.ensureStack(base + chunk.LocalCount)
	for i := base + chunk.ParamCount; i < base+chunk.LocalCount; i++ {
		vm.stack[i] = NilValue()
	}
	vm.sp = base + chunk.LocalCount

	vm.pushFrame(closure, base)
	return nil
}

func (vm *VM) pushFrame(closure *Closure, base int) {
	vm.frames = append(vm.frames, CallFrame{closure: closure, base: base})
	vm.frameCount++
}

// Stack helpers. The operand stack is an explicit growable array.

func (vm *VM) push(v Value) {
	if vm.sp == len(vm.stack) {
		vm.stack = append(vm.stack, v)
	} else {
		vm.stack[vm.sp] = v
	}
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) ensureStack(size int) {
	for len(vm.stack) < size {
		vm.stack = append(vm.stack, NilValue())
	}
}

// Error helpers

func (vm *VM) runtimeError(frame *CallFrame, atIP int, format string, args ...interface{}) error {
	return &RuntimeError{
		Msg:  fmt.Sprintf(format, args...),
		Line: frame.closure.Chunk.Line(atIP),
	}
}

func (vm *VM) arithTypeError(frame *CallFrame, atIP int, op Opcode, a, b Value) error {
	offender := a
	if a.IsNumber() {
		offender = b
	}
	var symbol string
	switch op {
	case OpAdd:
		symbol = "+"
	case OpSub:
		symbol = "-"
	case OpMul:
		symbol = "*"
	case OpDiv:
		symbol = "/"
	}
	return vm.runtimeError(frame, atIP, "attempt to perform arithmetic (%s) on a %s value", symbol, offender.Type())
}

// compareOrdered applies an ordering operator. Numbers follow standard
// floating-point ordering (every comparison with nan is false); strings
// order lexicographically. Mixed or unordered types fault.
func compareOrdered(op Opcode, a, b Value) (bool, error) {
	if a.IsNumber() && b.IsNumber() {
		x, y := a.Number(), b.Number()
		switch op {
		case OpLt:
			return x < y, nil
		case OpLe:
			return x <= y, nil
		case OpGt:
			return x > y, nil
		case OpGe:
			return x >= y, nil
		}
	}
	if a.IsString() && b.IsString() {
		x, y := a.Str(), b.Str()
		switch op {
		case OpLt:
			return x < y, nil
		case OpLe:
			return x <= y, nil
		case OpGt:
			return x > y, nil
		case OpGe:
			return x >= y, nil
		}
	}

	var symbol string
	switch op {
	case OpLt:
		symbol = "<"
	case OpLe:
		symbol = "<="
	case OpGt:
		symbol = ">"
	case OpGe:
		symbol = ">="
	}
	offender := a
	if a.IsNumber() || a.IsString() {
		offender = b
	}
	return false, fmt.Errorf("attempt to compare (%s) a %s value", symbol, offender.Type())
}
