package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for the Lua subset
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes. The tree owns its
// subtrees exclusively: no sharing, no cycles. It is discarded once
// compilation completes.
type Node interface {
	Pos() Position
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// NilLiteral represents the nil literal.
type NilLiteral struct {
	PosVal Position
}

func (n *NilLiteral) Pos() Position { return n.PosVal }
func (n *NilLiteral) node()         {}
func (n *NilLiteral) expr()         {}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	PosVal Position
	Value  bool
}

func (n *BoolLiteral) Pos() Position { return n.PosVal }
func (n *BoolLiteral) node()         {}
func (n *BoolLiteral) expr()         {}

// NumberLiteral represents a numeric literal. All numbers are
// double-precision floats.
type NumberLiteral struct {
	PosVal Position
	Value  float64
}

func (n *NumberLiteral) Pos() Position { return n.PosVal }
func (n *NumberLiteral) node()         {}
func (n *NumberLiteral) expr()         {}

// StringLiteral represents a string literal. Value holds the unescaped
// content.
type StringLiteral struct {
	PosVal Position
	Value  string
}

func (n *StringLiteral) Pos() Position { return n.PosVal }
func (n *StringLiteral) node()         {}
func (n *StringLiteral) expr()         {}

// Identifier represents a variable reference.
type Identifier struct {
	PosVal Position
	Name   string
}

func (n *Identifier) Pos() Position { return n.PosVal }
func (n *Identifier) node()         {}
func (n *Identifier) expr()         {}

// UnaryExpr represents a unary operation: -operand or not operand.
type UnaryExpr struct {
	PosVal  Position
	Op      TokenType // TokenMinus or TokenNot
	Operand Expr
}

func (n *UnaryExpr) Pos() Position { return n.PosVal }
func (n *UnaryExpr) node()         {}
func (n *UnaryExpr) expr()         {}

// BinaryExpr represents a binary operation, including the short-circuit
// operators and/or.
type BinaryExpr struct {
	PosVal Position
	Op     TokenType
	Left   Expr
	Right  Expr
}

func (n *BinaryExpr) Pos() Position { return n.PosVal }
func (n *BinaryExpr) node()         {}
func (n *BinaryExpr) expr()         {}

// CallExpr represents a function call.
type CallExpr struct {
	PosVal Position
	Callee Expr
	Args   []Expr
}

func (n *CallExpr) Pos() Position { return n.PosVal }
func (n *CallExpr) node()         {}
func (n *CallExpr) expr()         {}

// FunctionLiteral represents an anonymous function expression:
// function(params) body end. Named declarations wrap one of these.
type FunctionLiteral struct {
	PosVal Position
	Params []string
	Body   *BlockStmt
}

func (n *FunctionLiteral) Pos() Position { return n.PosVal }
func (n *FunctionLiteral) node()         {}
func (n *FunctionLiteral) expr()         {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// LocalDecl represents: local name [= initializer].
type LocalDecl struct {
	PosVal      Position
	Name        string
	Initializer Expr // nil when omitted; the variable starts as nil
}

func (n *LocalDecl) Pos() Position { return n.PosVal }
func (n *LocalDecl) node()         {}
func (n *LocalDecl) stmt()         {}

// AssignStmt represents: name = value. The target resolves to an existing
// local, an upvalue, or a global.
type AssignStmt struct {
	PosVal Position
	Name   string
	Value  Expr
}

func (n *AssignStmt) Pos() Position { return n.PosVal }
func (n *AssignStmt) node()         {}
func (n *AssignStmt) stmt()         {}

// IfStmt represents an if/elseif/else chain. An elseif clause parses as a
// nested IfStmt in Else.
type IfStmt struct {
	PosVal    Position
	Condition Expr
	Then      *BlockStmt
	Else      *BlockStmt // nil when absent
}

func (n *IfStmt) Pos() Position { return n.PosVal }
func (n *IfStmt) node()         {}
func (n *IfStmt) stmt()         {}

// WhileStmt represents: while condition do body end.
type WhileStmt struct {
	PosVal    Position
	Condition Expr
	Body      *BlockStmt
}

func (n *WhileStmt) Pos() Position { return n.PosVal }
func (n *WhileStmt) node()         {}
func (n *WhileStmt) stmt()         {}

// ReturnStmt represents: return [value].
type ReturnStmt struct {
	PosVal Position
	Value  Expr // nil when omitted; returns nil
}

func (n *ReturnStmt) Pos() Position { return n.PosVal }
func (n *ReturnStmt) node()         {}
func (n *ReturnStmt) stmt()         {}

// ExprStmt represents a bare expression used as a statement (calls).
type ExprStmt struct {
	PosVal Position
	Expr   Expr
}

func (n *ExprStmt) Pos() Position { return n.PosVal }
func (n *ExprStmt) node()         {}
func (n *ExprStmt) stmt()         {}

// FunctionDecl represents: function name(params) body end.
type FunctionDecl struct {
	PosVal   Position
	Name     string
	Function *FunctionLiteral
}

func (n *FunctionDecl) Pos() Position { return n.PosVal }
func (n *FunctionDecl) node()         {}
func (n *FunctionDecl) stmt()         {}

// BlockStmt represents a statement list. Blocks introduce a lexical scope.
type BlockStmt struct {
	PosVal     Position
	Statements []Stmt
}

func (n *BlockStmt) Pos() Position { return n.PosVal }
func (n *BlockStmt) node()         {}
func (n *BlockStmt) stmt()         {}
