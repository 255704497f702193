package compiler

import (
	"errors"
	"strings"
	"testing"
)

// tokenTypes runs the lexer and collects the token types, EOF excluded.
func tokenTypes(t *testing.T, input string) []TokenType {
	t.Helper()
	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", input, err)
	}
	types := make([]TokenType, 0, len(tokens)-1)
	for _, tok := range tokens[:len(tokens)-1] {
		types = append(types, tok.Type)
	}
	return types
}

// ============ Token Stream Tests ============

func TestLexerOperators(t *testing.T) {
	input := "+ - * / == ~= < <= > >= ="
	want := []TokenType{
		TokenPlus, TokenMinus, TokenStar, TokenSlash,
		TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe,
		TokenAssign,
	}

	got := tokenTypes(t, input)
	if len(got) != len(want) {
		t.Fatalf("Expected %d tokens, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Token %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLexerKeywordsVsIdentifiers(t *testing.T) {
	tokens, err := Tokenize("while whileish do doit end ending")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	want := []struct {
		typ     TokenType
		literal string
	}{
		{TokenWhile, "while"},
		{TokenIdentifier, "whileish"},
		{TokenDo, "do"},
		{TokenIdentifier, "doit"},
		{TokenEnd, "end"},
		{TokenIdentifier, "ending"},
	}
	for i, w := range want {
		if tokens[i].Type != w.typ || tokens[i].Literal != w.literal {
			t.Errorf("Token %d: expected %s(%q), got %s(%q)",
				i, w.typ, w.literal, tokens[i].Type, tokens[i].Literal)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tokens, err := Tokenize("42 3.14 0 0.5")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	want := []string{"42", "3.14", "0", "0.5"}
	for i, literal := range want {
		if tokens[i].Type != TokenNumber {
			t.Errorf("Token %d: expected NUMBER, got %s", i, tokens[i].Type)
		}
		if tokens[i].Literal != literal {
			t.Errorf("Token %d: expected literal %q, got %q", i, literal, tokens[i].Literal)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`'hello'`, "hello"},
		{`"it's"`, "it's"},
		{`"a\nb"`, "a\nb"},
		{`"a\tb"`, "a\tb"},
		{`"a\\b"`, `a\b`},
		{`"say \"hi\""`, `say "hi"`},
		{`""`, ""},
	}

	for _, tt := range tests {
		tokens, err := Tokenize(tt.input)
		if err != nil {
			t.Errorf("Tokenize(%q) failed: %v", tt.input, err)
			continue
		}
		if tokens[0].Type != TokenString {
			t.Errorf("Tokenize(%q): expected STRING, got %s", tt.input, tokens[0].Type)
			continue
		}
		if tokens[0].Literal != tt.want {
			t.Errorf("Tokenize(%q): expected %q, got %q", tt.input, tt.want, tokens[0].Literal)
		}
	}
}

func TestLexerComments(t *testing.T) {
	input := `
		local x = 1 -- trailing comment
		-- whole line comment
		--[[ block
		     comment ]]
		local y = 2
	`
	got := tokenTypes(t, input)
	want := []TokenType{
		TokenLocal, TokenIdentifier, TokenAssign, TokenNumber,
		TokenLocal, TokenIdentifier, TokenAssign, TokenNumber,
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Token %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLexerMinusIsNotComment(t *testing.T) {
	got := tokenTypes(t, "1 - 2")
	want := []TokenType{TokenNumber, TokenMinus, TokenNumber}
	if len(got) != len(want) {
		t.Fatalf("Expected %d tokens, got %d", len(want), len(got))
	}
}

// ============ Position Tests ============

func TestLexerPositions(t *testing.T) {
	tokens, err := Tokenize("local x\nx = 1")
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}

	// "x = 1" lives on line 2
	if tokens[2].Literal != "x" || tokens[2].Pos.Line != 2 {
		t.Errorf("Expected x at line 2, got %q at line %d", tokens[2].Literal, tokens[2].Pos.Line)
	}
	if tokens[2].Pos.Column != 1 {
		t.Errorf("Expected x at column 1, got column %d", tokens[2].Pos.Column)
	}
}

// ============ Error Tests ============

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `"abc`},
		{"newline in string", "\"abc\ndef\""},
		{"invalid escape", `"\q"`},
		{"stray character", "local x = @"},
		{"lone tilde", "x ~ y"},
		{"unterminated block comment", "local x = 1\n--[[ never closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if err == nil {
				t.Fatalf("Tokenize(%q) should have failed", tt.input)
			}
			var lexErr *LexError
			if !errors.As(err, &lexErr) {
				t.Errorf("Expected *LexError, got %T", err)
			}
		})
	}
}

func TestLexerErrorLine(t *testing.T) {
	_, err := Tokenize("local x = 1\nlocal y = @")
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("Expected *LexError, got %v", err)
	}
	if lexErr.Pos.Line != 2 {
		t.Errorf("Expected error at line 2, got line %d", lexErr.Pos.Line)
	}
}

func TestLexerUnterminatedBlockCommentPosition(t *testing.T) {
	// The error points at the comment opener, not at end of input.
	_, err := Tokenize("local x = 1\n--[[ runs\noff the end")
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("Expected *LexError, got %v", err)
	}
	if lexErr.Pos.Line != 2 {
		t.Errorf("Expected error at line 2, got line %d", lexErr.Pos.Line)
	}
	if !strings.Contains(lexErr.Msg, "block comment") {
		t.Errorf("Unexpected message: %q", lexErr.Msg)
	}
}
