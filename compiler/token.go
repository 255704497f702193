// Package compiler turns lust source text into an AST: a lexer producing
// position-tagged tokens and a recursive descent parser that halts on the
// first error.
package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Lua-subset lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenNumber     // 42, 3.14
	TokenString     // 'hello', "hello"
	TokenIdentifier // foo, fib

	// Operators
	TokenPlus   // +
	TokenMinus  // -
	TokenStar   // *
	TokenSlash  // /
	TokenEq     // ==
	TokenNe     // ~=
	TokenLt     // <
	TokenLe     // <=
	TokenGt     // >
	TokenGe     // >=
	TokenAssign // =

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenComma     // ,
	TokenSemicolon // ;

	// Reserved words
	TokenFunction
	TokenLocal
	TokenIf
	TokenThen
	TokenElse
	TokenElseif
	TokenEnd
	TokenWhile
	TokenDo
	TokenReturn
	TokenTrue
	TokenFalse
	TokenNil
	TokenAnd
	TokenOr
	TokenNot
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNumber:     "NUMBER",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenEq:         "==",
	TokenNe:         "~=",
	TokenLt:         "<",
	TokenLe:         "<=",
	TokenGt:         ">",
	TokenGe:         ">=",
	TokenAssign:     "=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenComma:      ",",
	TokenSemicolon:  ";",
	TokenFunction:   "function",
	TokenLocal:      "local",
	TokenIf:         "if",
	TokenThen:       "then",
	TokenElse:       "else",
	TokenElseif:     "elseif",
	TokenEnd:        "end",
	TokenWhile:      "while",
	TokenDo:         "do",
	TokenReturn:     "return",
	TokenTrue:       "true",
	TokenFalse:      "false",
	TokenNil:        "nil",
	TokenAnd:        "and",
	TokenOr:         "or",
	TokenNot:        "not",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// Position identifies a location in the source text.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based
}

// Token represents a lexical token. Tokens are immutable once produced.
type Token struct {
	Type    TokenType
	Literal string   // the raw text (for strings, the unescaped content)
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"function": TokenFunction,
	"local":    TokenLocal,
	"if":       TokenIf,
	"then":     TokenThen,
	"else":     TokenElse,
	"elseif":   TokenElseif,
	"end":      TokenEnd,
	"while":    TokenWhile,
	"do":       TokenDo,
	"return":   TokenReturn,
	"true":     TokenTrue,
	"false":    TokenFalse,
	"nil":      TokenNil,
	"and":      TokenAnd,
	"or":       TokenOr,
	"not":      TokenNot,
}
