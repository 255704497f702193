package compiler

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// LexError reports an invalid character or unterminated literal.
type LexError struct {
	Msg string
	Pos Position
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at line %d: %s", e.Pos.Line, e.Msg)
}

// ParseError reports a grammar violation: what the parser expected and
// what it actually found.
type ParseError struct {
	Expected string
	Got      Token
}

func (e *ParseError) Error() string {
	if e.Got.Type == TokenEOF {
		return fmt.Sprintf("parse error at line %d: expected %s, got end of input", e.Got.Pos.Line, e.Expected)
	}
	return fmt.Sprintf("parse error at line %d: expected %s, got %q", e.Got.Pos.Line, e.Expected, e.Got.Literal)
}

// Annotate renders a diagnostic with the offending source line and a
// column caret:
//
//	expected "then", got "else"
//
//	if x < 1 else
//	         ^ near here
func Annotate(source string, pos Position, msg string) string {
	lines := strings.Split(source, "\n")
	if pos.Line < 1 || pos.Line > len(lines) {
		return msg
	}
	line := strings.TrimRight(lines[pos.Line-1], "\r")

	// Column counts runes, so the caret offset must too or it drifts
	// right of the target after any multibyte character on the line.
	col := pos.Column - 1
	if col < 0 {
		col = 0
	}
	if n := utf8.RuneCountInString(line); col > n {
		col = n
	}

	return fmt.Sprintf("%s\n\n%s\n%s^ near here", msg, line, strings.Repeat(" ", col))
}
