package bytecode

import (
	"fmt"

	"github.com/eatonphil/lust/compiler"
)

// Compiler converts a parsed AST into bytecode chunks, one per function
// body plus one for the top-level script. It resolves every local
// reference to a slot index at compile time and computes upvalue capture
// descriptors for nested functions.
type Compiler struct {
	chunk     *Chunk
	enclosing *Compiler // Enclosing function's compiler, nil at the top level

	scopes   []*scope
	nextSlot int // Next free local slot
}

// scope is one lexical block's name-to-slot mapping. Leaving the block
// reclaims its slots.
type scope struct {
	slots map[string]int
	count int // Slots allocated in this scope (redeclarations included)
}

// Compile compiles a whole program into its top-level chunk.
func Compile(program *compiler.BlockStmt) (*Chunk, error) {
	c := &Compiler{chunk: NewChunk("main")}
	c.beginScope()

	for _, stmt := range program.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return nil, err
		}
	}

	c.endScope()
	c.ensureReturn()
	return c.chunk, nil
}

// CompileSource lexes, parses and compiles source text in one step.
func CompileSource(source string) (*Chunk, error) {
	program, err := compiler.Parse(source)
	if err != nil {
		return nil, err
	}
	return Compile(program)
}

// ---------------------------------------------------------------------------
// Scope and name resolution
// ---------------------------------------------------------------------------

func (c *Compiler) beginScope() {
	c.scopes = append(c.scopes, &scope{slots: make(map[string]int)})
}

func (c *Compiler) endScope() {
	top := c.scopes[len(c.scopes)-1]
	c.nextSlot -= top.count
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// declareLocal allocates a slot for a name in the innermost scope.
func (c *Compiler) declareLocal(name string, line int32) (int, error) {
	if c.nextSlot >= MaxLocalSlots {
		return 0, &CompileError{
			Msg:  fmt.Sprintf("too many local variables in function (limit %d)", MaxLocalSlots),
			Line: line,
		}
	}
	slot := c.nextSlot
	c.nextSlot++
	if c.nextSlot > c.chunk.LocalCount {
		c.chunk.LocalCount = c.nextSlot
	}

	top := c.scopes[len(c.scopes)-1]
	top.slots[name] = slot
	top.count++
	return slot, nil
}

// resolveLocal resolves a name against this function's scopes, innermost
// first.
func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if slot, ok := c.scopes[i].slots[name]; ok {
			return slot, true
		}
	}
	return 0, false
}

// resolveUpvalue resolves a name against enclosing functions, adding a
// capture descriptor to this chunk when found. A name owned by a
// transitively enclosing function is threaded through each intermediate
// function's upvalue list.
func (c *Compiler) resolveUpvalue(name string, line int32) (int, bool, error) {
	if c.enclosing == nil {
		return 0, false, nil
	}

	if slot, ok := c.enclosing.resolveLocal(name); ok {
		idx, err := c.addUpvalue(UpvalueDescriptor{Name: name, FromLocal: true, Index: uint8(slot)}, line)
		return idx, true, err
	}

	if idx, ok, err := c.enclosing.resolveUpvalue(name, line); err != nil {
		return 0, false, err
	} else if ok {
		idx, err := c.addUpvalue(UpvalueDescriptor{Name: name, FromLocal: false, Index: uint8(idx)}, line)
		return idx, true, err
	}

	return 0, false, nil
}

func (c *Compiler) addUpvalue(desc UpvalueDescriptor, line int32) (int, error) {
	for i, existing := range c.chunk.Upvalues {
		if existing == desc {
			return i, nil
		}
	}
	if len(c.chunk.Upvalues) >= MaxUpvalues {
		return 0, &CompileError{
			Msg:  fmt.Sprintf("too many captured variables in function (limit %d)", MaxUpvalues),
			Line: line,
		}
	}
	c.chunk.Upvalues = append(c.chunk.Upvalues, desc)
	return len(c.chunk.Upvalues) - 1, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *Compiler) compileStatement(stmt compiler.Stmt) error {
	switch s := stmt.(type) {
	case *compiler.LocalDecl:
		return c.compileLocalDecl(s)

	case *compiler.AssignStmt:
		return c.compileAssign(s)

	case *compiler.IfStmt:
		return c.compileIf(s)

	case *compiler.WhileStmt:
		return c.compileWhile(s)

	case *compiler.ReturnStmt:
		return c.compileReturn(s)

	case *compiler.ExprStmt:
		if err := c.compileExpr(s.Expr); err != nil {
			return err
		}
		c.emit(OpPop, 0, int32(s.Pos().Line))
		return nil

	case *compiler.FunctionDecl:
		return c.compileFunctionDecl(s)

	case *compiler.BlockStmt:
		return c.compileBlock(s)

	default:
		return &CompileError{Msg: fmt.Sprintf("unsupported statement type: %T", stmt)}
	}
}

// compileBlock compiles a statement list in a fresh lexical scope.
func (c *Compiler) compileBlock(block *compiler.BlockStmt) error {
	c.beginScope()
	defer c.endScope()

	for _, stmt := range block.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileLocalDecl(s *compiler.LocalDecl) error {
	line := int32(s.Pos().Line)

	// The initializer compiles before the name is declared, so
	// "local x = x" reads the enclosing x.
	if s.Initializer != nil {
		if err := c.compileExpr(s.Initializer); err != nil {
			return err
		}
	} else {
		c.emit(OpNil, 0, line)
	}

	slot, err := c.declareLocal(s.Name, line)
	if err != nil {
		return err
	}
	c.emit(OpStoreLocal, int32(slot), line)
	return nil
}

func (c *Compiler) compileAssign(s *compiler.AssignStmt) error {
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	return c.emitStore(s.Name, int32(s.Pos().Line))
}

// emitStore stores the top of stack into a name: local, then upvalue,
// then global.
func (c *Compiler) emitStore(name string, line int32) error {
	if slot, ok := c.resolveLocal(name); ok {
		c.emit(OpStoreLocal, int32(slot), line)
		return nil
	}

	if idx, ok, err := c.resolveUpvalue(name, line); err != nil {
		return err
	} else if ok {
		c.emit(OpStoreUpvalue, int32(idx), line)
		return nil
	}

	nameIdx, err := c.addConstant(StringValue(name), line)
	if err != nil {
		return err
	}
	c.emit(OpStoreGlobal, int32(nameIdx), line)
	return nil
}

func (c *Compiler) compileIf(s *compiler.IfStmt) error {
	line := int32(s.Pos().Line)

	if err := c.compileExpr(s.Condition); err != nil {
		return err
	}

	elseJump := c.emitJump(OpJumpFalse, line)

	if err := c.compileBlock(s.Then); err != nil {
		return err
	}

	if s.Else == nil {
		c.chunk.PatchJump(elseJump)
		return nil
	}

	endJump := c.emitJump(OpJump, line)
	c.chunk.PatchJump(elseJump)

	if err := c.compileBlock(s.Else); err != nil {
		return err
	}
	c.chunk.PatchJump(endJump)
	return nil
}

func (c *Compiler) compileWhile(s *compiler.WhileStmt) error {
	line := int32(s.Pos().Line)

	loopStart := len(c.chunk.Code)

	if err := c.compileExpr(s.Condition); err != nil {
		return err
	}
	exitJump := c.emitJump(OpJumpFalse, line)

	if err := c.compileBlock(s.Body); err != nil {
		return err
	}

	c.emit(OpJump, int32(loopStart), line)
	c.chunk.PatchJump(exitJump)
	return nil
}

func (c *Compiler) compileReturn(s *compiler.ReturnStmt) error {
	line := int32(s.Pos().Line)

	if s.Value == nil {
		c.emit(OpReturnNil, 0, line)
		return nil
	}
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	c.emit(OpReturn, 0, line)
	return nil
}

func (c *Compiler) compileFunctionDecl(s *compiler.FunctionDecl) error {
	if err := c.compileFunction(s.Function, s.Name); err != nil {
		return err
	}
	return c.emitStore(s.Name, int32(s.Pos().Line))
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *Compiler) compileExpr(expr compiler.Expr) error {
	switch e := expr.(type) {
	case *compiler.NilLiteral:
		c.emit(OpNil, 0, int32(e.Pos().Line))
		return nil

	case *compiler.BoolLiteral:
		if e.Value {
			c.emit(OpTrue, 0, int32(e.Pos().Line))
		} else {
			c.emit(OpFalse, 0, int32(e.Pos().Line))
		}
		return nil

	case *compiler.NumberLiteral:
		return c.emitConstant(NumberValue(e.Value), int32(e.Pos().Line))

	case *compiler.StringLiteral:
		return c.emitConstant(StringValue(e.Value), int32(e.Pos().Line))

	case *compiler.Identifier:
		return c.compileIdentifier(e)

	case *compiler.UnaryExpr:
		return c.compileUnary(e)

	case *compiler.BinaryExpr:
		return c.compileBinary(e)

	case *compiler.CallExpr:
		return c.compileCall(e)

	case *compiler.FunctionLiteral:
		return c.compileFunction(e, "")

	default:
		return &CompileError{Msg: fmt.Sprintf("unsupported expression type: %T", expr)}
	}
}

// compileIdentifier compiles a name reference, resolving local, then
// upvalue, then global (looked up by name at run time).
func (c *Compiler) compileIdentifier(e *compiler.Identifier) error {
	line := int32(e.Pos().Line)

	if slot, ok := c.resolveLocal(e.Name); ok {
		c.emit(OpLoadLocal, int32(slot), line)
		return nil
	}

	if idx, ok, err := c.resolveUpvalue(e.Name, line); err != nil {
		return err
	} else if ok {
		c.emit(OpLoadUpvalue, int32(idx), line)
		return nil
	}

	nameIdx, err := c.addConstant(StringValue(e.Name), line)
	if err != nil {
		return err
	}
	c.emit(OpLoadGlobal, int32(nameIdx), line)
	return nil
}

func (c *Compiler) compileUnary(e *compiler.UnaryExpr) error {
	if err := c.compileExpr(e.Operand); err != nil {
		return err
	}

	line := int32(e.Pos().Line)
	switch e.Op {
	case compiler.TokenMinus:
		c.emit(OpNegate, 0, line)
	case compiler.TokenNot:
		c.emit(OpNot, 0, line)
	default:
		return &CompileError{Msg: fmt.Sprintf("unsupported unary operator: %s", e.Op), Line: line}
	}
	return nil
}

func (c *Compiler) compileBinary(e *compiler.BinaryExpr) error {
	line := int32(e.Pos().Line)

	// and/or short-circuit: the right operand never evaluates when the
	// left already determines the result, and the result is the deciding
	// operand itself.
	if e.Op == compiler.TokenAnd || e.Op == compiler.TokenOr {
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		c.emit(OpDup, 0, line)

		jumpOp := OpJumpFalse
		if e.Op == compiler.TokenOr {
			jumpOp = OpJumpTrue
		}
		shortJump := c.emitJump(jumpOp, line)

		c.emit(OpPop, 0, line)
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		c.chunk.PatchJump(shortJump)
		return nil
	}

	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}

	switch e.Op {
	case compiler.TokenPlus:
		c.emit(OpAdd, 0, line)
	case compiler.TokenMinus:
		c.emit(OpSub, 0, line)
	case compiler.TokenStar:
		c.emit(OpMul, 0, line)
	case compiler.TokenSlash:
		c.emit(OpDiv, 0, line)
	case compiler.TokenEq:
		c.emit(OpEq, 0, line)
	case compiler.TokenNe:
		c.emit(OpNe, 0, line)
	case compiler.TokenLt:
		c.emit(OpLt, 0, line)
	case compiler.TokenLe:
		c.emit(OpLe, 0, line)
	case compiler.TokenGt:
		c.emit(OpGt, 0, line)
	case compiler.TokenGe:
		c.emit(OpGe, 0, line)
	default:
		return &CompileError{Msg: fmt.Sprintf("unsupported binary operator: %s", e.Op), Line: line}
	}
	return nil
}

func (c *Compiler) compileCall(e *compiler.CallExpr) error {
	line := int32(e.Pos().Line)

	// print is a builtin instruction, not a function value; it applies
	// only when the name is not shadowed by a local or upvalue.
	if ident, ok := e.Callee.(*compiler.Identifier); ok && ident.Name == "print" {
		if _, local := c.resolveLocal(ident.Name); !local {
			if _, up, err := c.resolveUpvalue(ident.Name, line); err != nil {
				return err
			} else if !up {
				for _, arg := range e.Args {
					if err := c.compileExpr(arg); err != nil {
						return err
					}
				}
				c.emit(OpPrint, int32(len(e.Args)), line)
				// print produces no value; statements pop, expressions
				// observe nil.
				c.emit(OpNil, 0, line)
				return nil
			}
		}
	}

	if err := c.compileExpr(e.Callee); err != nil {
		return err
	}
	for _, arg := range e.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	c.emit(OpCall, int32(len(e.Args)), line)
	return nil
}

// compileFunction compiles a function literal into its own chunk,
// registers it as a prototype of the enclosing chunk, and emits the
// make-closure instruction that instantiates it.
func (c *Compiler) compileFunction(fn *compiler.FunctionLiteral, name string) error {
	line := int32(fn.Pos().Line)

	sub := &Compiler{chunk: NewChunk(name), enclosing: c}
	sub.chunk.ParamCount = len(fn.Params)
	sub.beginScope()

	for _, param := range fn.Params {
		if _, err := sub.declareLocal(param, line); err != nil {
			return err
		}
	}

	for _, stmt := range fn.Body.Statements {
		if err := sub.compileStatement(stmt); err != nil {
			return err
		}
	}

	sub.endScope()
	sub.ensureReturn()

	protoIdx := c.chunk.AddProto(sub.chunk)
	c.emit(OpMakeClosure, int32(protoIdx), line)
	return nil
}

// ---------------------------------------------------------------------------
// Emit helpers
// ---------------------------------------------------------------------------

func (c *Compiler) emit(op Opcode, a int32, line int32) int {
	return c.chunk.Emit(Instruction{Op: op, A: a}, line)
}

// emitJump emits a jump with a placeholder target and returns its index
// for later patching.
func (c *Compiler) emitJump(op Opcode, line int32) int {
	return c.emit(op, -1, line)
}

func (c *Compiler) emitConstant(v Value, line int32) error {
	idx, err := c.addConstant(v, line)
	if err != nil {
		return err
	}
	c.emit(OpConst, int32(idx), line)
	return nil
}

func (c *Compiler) addConstant(v Value, line int32) (int, error) {
	idx, err := c.chunk.AddConstant(v)
	if err != nil {
		return 0, &CompileError{Msg: err.Error(), Line: line}
	}
	return idx, nil
}

// ensureReturn guarantees every path out of the chunk ends in a return.
func (c *Compiler) ensureReturn() {
	n := len(c.chunk.Code)
	if n == 0 || !c.chunk.Code[n-1].Op.IsReturn() {
		c.emit(OpReturnNil, 0, 0)
	}
}
