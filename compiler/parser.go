package compiler

import (
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent parser for the Lua subset
// ---------------------------------------------------------------------------

// Parser parses source text into an AST. It keeps one token of lookahead
// and halts on the first error.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	lexErr    *LexError // set when the lexer reports an invalid token
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a whole program: statements up to end-of-input.
func Parse(input string) (*BlockStmt, error) {
	return NewParser(input).ParseProgram()
}

// ParseProgram parses statements until end-of-input.
func (p *Parser) ParseProgram() (*BlockStmt, error) {
	block := &BlockStmt{PosVal: p.curToken.Pos}
	for !p.curTokenIs(TokenEOF) {
		if p.lexErr != nil {
			return nil, p.lexErr
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	if p.lexErr != nil {
		return nil, p.lexErr
	}
	return block, nil
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	if p.peekToken.Type == TokenError && p.lexErr == nil {
		p.lexErr = &LexError{Msg: p.peekToken.Literal, Pos: p.peekToken.Pos}
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect consumes the current token if it matches, otherwise fails.
func (p *Parser) expect(t TokenType) (Token, error) {
	if p.lexErr != nil {
		return Token{}, p.lexErr
	}
	if !p.curTokenIs(t) {
		return Token{}, &ParseError{Expected: t.String(), Got: p.curToken}
	}
	tok := p.curToken
	p.nextToken()
	return tok, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// blockEnd reports whether the current token terminates a block.
func (p *Parser) blockEnd() bool {
	switch p.curToken.Type {
	case TokenEnd, TokenElse, TokenElseif, TokenEOF:
		return true
	}
	return false
}

// parseBlock parses statements until a block terminator. The terminator is
// left for the caller to consume.
func (p *Parser) parseBlock() (*BlockStmt, error) {
	block := &BlockStmt{PosVal: p.curToken.Pos}
	for !p.blockEnd() {
		if p.lexErr != nil {
			return nil, p.lexErr
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.curToken.Type {
	case TokenLocal:
		return p.parseLocal()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenFunction:
		return p.parseFunctionDecl()
	case TokenReturn:
		return p.parseReturn()
	case TokenSemicolon:
		// Empty statement; skip and parse the next one.
		p.nextToken()
		return p.parseStatement()
	}

	if p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenAssign) {
		return p.parseAssignment()
	}

	// Bare expression statement (calls used as statements)
	pos := p.curToken.Pos
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{PosVal: pos, Expr: expr}, nil
}

// parseLocal parses: local <name> [= <expr>]
func (p *Parser) parseLocal() (Stmt, error) {
	pos := p.curToken.Pos
	p.nextToken() // consume "local"

	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}

	decl := &LocalDecl{PosVal: pos, Name: name.Literal}
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		decl.Initializer, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	return decl, nil
}

// parseAssignment parses: <identifier> = <expr>
func (p *Parser) parseAssignment() (Stmt, error) {
	name := p.curToken
	p.nextToken() // consume identifier
	p.nextToken() // consume "="

	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &AssignStmt{PosVal: name.Pos, Name: name.Literal, Value: value}, nil
}

// parseIf parses: if <expr> then <block> {elseif <expr> then <block>}
// [else <block>] end. Each elseif becomes a nested IfStmt.
func (p *Parser) parseIf() (Stmt, error) {
	pos := p.curToken.Pos
	p.nextToken() // consume "if" (or "elseif")

	stmt := &IfStmt{PosVal: pos}

	var err error
	stmt.Condition, err = p.parseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenThen); err != nil {
		return nil, err
	}

	stmt.Then, err = p.parseBlock()
	if err != nil {
		return nil, err
	}

	switch p.curToken.Type {
	case TokenElseif:
		// Parse the chain as a nested if; it consumes the shared "end".
		nested, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		stmt.Else = &BlockStmt{PosVal: nested.Pos(), Statements: []Stmt{nested}}
		return stmt, nil

	case TokenElse:
		p.nextToken()
		stmt.Else, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseWhile parses: while <expr> do <block> end
func (p *Parser) parseWhile() (Stmt, error) {
	pos := p.curToken.Pos
	p.nextToken() // consume "while"

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenDo); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return &WhileStmt{PosVal: pos, Condition: cond, Body: body}, nil
}

// parseFunctionDecl parses: function <name>(<params>) <block> end
func (p *Parser) parseFunctionDecl() (Stmt, error) {
	pos := p.curToken.Pos
	p.nextToken() // consume "function"

	name, err := p.expect(TokenIdentifier)
	if err != nil {
		return nil, err
	}

	fn, err := p.parseFunctionRest(pos)
	if err != nil {
		return nil, err
	}
	return &FunctionDecl{PosVal: pos, Name: name.Literal, Function: fn}, nil
}

// parseFunctionRest parses the parameter list and body shared by named and
// anonymous functions: (<params>) <block> end
func (p *Parser) parseFunctionRest(pos Position) (*FunctionLiteral, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}

	fn := &FunctionLiteral{PosVal: pos}
	for !p.curTokenIs(TokenRParen) {
		if len(fn.Params) > 0 {
			if _, err := p.expect(TokenComma); err != nil {
				return nil, err
			}
		}
		param, err := p.expect(TokenIdentifier)
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, param.Literal)
	}
	p.nextToken() // consume ")"

	var err error
	fn.Body, err = p.parseBlock()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return fn, nil
}

// parseReturn parses: return [<expr>]
func (p *Parser) parseReturn() (Stmt, error) {
	pos := p.curToken.Pos
	p.nextToken() // consume "return"

	stmt := &ReturnStmt{PosVal: pos}
	if p.blockEnd() || p.curTokenIs(TokenSemicolon) {
		return stmt, nil
	}

	var err error
	stmt.Value, err = p.parseExpression()
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// ---------------------------------------------------------------------------
// Expressions: precedence climbing
//
// Lowest to highest binding: or, and, equality (== ~=), relational
// (< <= > >=), additive (+ -), multiplicative (* /), unary (- not),
// call/grouping. All binary operators are left-associative.
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseOr()
}

// parseBinaryLevel parses a left-associative run of operators at one
// precedence level.
func (p *Parser) parseBinaryLevel(ops []TokenType, next func() (Expr, error)) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}

	for {
		matched := false
		for _, op := range ops {
			if p.curTokenIs(op) {
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}

		opTok := p.curToken
		p.nextToken()

		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{PosVal: opTok.Pos, Op: opTok.Type, Left: left, Right: right}
	}
}

func (p *Parser) parseOr() (Expr, error) {
	return p.parseBinaryLevel([]TokenType{TokenOr}, p.parseAnd)
}

func (p *Parser) parseAnd() (Expr, error) {
	return p.parseBinaryLevel([]TokenType{TokenAnd}, p.parseEquality)
}

func (p *Parser) parseEquality() (Expr, error) {
	return p.parseBinaryLevel([]TokenType{TokenEq, TokenNe}, p.parseRelational)
}

func (p *Parser) parseRelational() (Expr, error) {
	return p.parseBinaryLevel([]TokenType{TokenLt, TokenLe, TokenGt, TokenGe}, p.parseAdditive)
}

func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinaryLevel([]TokenType{TokenPlus, TokenMinus}, p.parseMultiplicative)
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinaryLevel([]TokenType{TokenStar, TokenSlash}, p.parseUnary)
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.curTokenIs(TokenMinus) || p.curTokenIs(TokenNot) {
		opTok := p.curToken
		p.nextToken()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{PosVal: opTok.Pos, Op: opTok.Type, Operand: operand}, nil
	}
	return p.parseCall()
}

// parseCall parses a primary expression followed by any number of call
// argument lists: f(1)(2) calls the result of f(1).
func (p *Parser) parseCall() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.curTokenIs(TokenLParen) {
		pos := p.curToken.Pos
		p.nextToken() // consume "("

		call := &CallExpr{PosVal: pos, Callee: expr}
		for !p.curTokenIs(TokenRParen) {
			if len(call.Args) > 0 {
				if _, err := p.expect(TokenComma); err != nil {
					return nil, err
				}
			}
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
		}
		p.nextToken() // consume ")"
		expr = call
	}

	return expr, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	if p.lexErr != nil {
		return nil, p.lexErr
	}

	switch p.curToken.Type {
	case TokenNumber:
		tok := p.curToken
		p.nextToken()
		value, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, &ParseError{Expected: "number", Got: tok}
		}
		return &NumberLiteral{PosVal: tok.Pos, Value: value}, nil

	case TokenString:
		tok := p.curToken
		p.nextToken()
		return &StringLiteral{PosVal: tok.Pos, Value: tok.Literal}, nil

	case TokenTrue:
		tok := p.curToken
		p.nextToken()
		return &BoolLiteral{PosVal: tok.Pos, Value: true}, nil

	case TokenFalse:
		tok := p.curToken
		p.nextToken()
		return &BoolLiteral{PosVal: tok.Pos, Value: false}, nil

	case TokenNil:
		tok := p.curToken
		p.nextToken()
		return &NilLiteral{PosVal: tok.Pos}, nil

	case TokenIdentifier:
		tok := p.curToken
		p.nextToken()
		return &Identifier{PosVal: tok.Pos, Name: tok.Literal}, nil

	case TokenLParen:
		p.nextToken()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return nil, err
		}
		return expr, nil

	case TokenFunction:
		pos := p.curToken.Pos
		p.nextToken()
		return p.parseFunctionRest(pos)

	default:
		return nil, &ParseError{Expected: "expression", Got: p.curToken}
	}
}
