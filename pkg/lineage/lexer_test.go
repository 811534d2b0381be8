package lineage

import "testing"

func TestLexer_BasicTokens(t *testing.T) {
	input := `CREATE OR REPLACE TABLE silver.t AS SELECT a, b * 2 FROM raw.x;`

	expected := []struct {
		typ     TokenType
		literal string
	}{
		{TOKEN_CREATE, "CREATE"},
		{TOKEN_OR, "OR"},
		{TOKEN_REPLACE, "REPLACE"},
		{TOKEN_TABLE, "TABLE"},
		{TOKEN_IDENT, "silver"},
		{TOKEN_DOT, "."},
		{TOKEN_IDENT, "t"},
		{TOKEN_AS, "AS"},
		{TOKEN_SELECT, "SELECT"},
		{TOKEN_IDENT, "a"},
		{TOKEN_COMMA, ","},
		{TOKEN_IDENT, "b"},
		{TOKEN_STAR, "*"},
		{TOKEN_NUMBER, "2"},
		{TOKEN_FROM, "FROM"},
		{TOKEN_IDENT, "raw"},
		{TOKEN_DOT, "."},
		{TOKEN_IDENT, "x"},
		{TOKEN_SEMICOLON, ";"},
		{TOKEN_EOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Fatalf("token %d: expected type %v, got %v (%q)", i, exp.typ, tok.Type, tok.Literal)
		}
		if tok.Literal != exp.literal {
			t.Fatalf("token %d: expected literal %q, got %q", i, exp.literal, tok.Literal)
		}
	}
}

func TestLexer_OffsetsSliceVerbatim(t *testing.T) {
	input := `SELECT COALESCE(a, 'x''y') AS c FROM t`

	toks := Tokenize(input)

	// Find the COALESCE call: IDENT ( ... )
	var start, end int
	for i, tok := range toks {
		if tok.Type == TOKEN_IDENT && tok.Literal == "COALESCE" {
			start = tok.Pos.Offset
			depth := 0
			for _, t2 := range toks[i+1:] {
				if t2.Type == TOKEN_LPAREN {
					depth++
				}
				if t2.Type == TOKEN_RPAREN {
					depth--
					if depth == 0 {
						end = t2.End
						break
					}
				}
			}
			break
		}
	}

	if got := input[start:end]; got != "COALESCE(a, 'x''y')" {
		t.Errorf("Offset slice mismatch: %q", got)
	}
}

func TestLexer_SkipsComments(t *testing.T) {
	input := `SELECT a -- trailing note
/* block
   comment */ FROM t`

	toks := Tokenize(input)

	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	want := []TokenType{TOKEN_SELECT, TOKEN_IDENT, TOKEN_FROM, TOKEN_IDENT, TOKEN_EOF}
	if len(types) != len(want) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(want), len(types), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("token %d: expected %v, got %v", i, want[i], types[i])
		}
	}
}

func TestLexer_QuotedIdentifier(t *testing.T) {
	toks := Tokenize(`SELECT "Full Name" FROM t`)
	if toks[1].Type != TOKEN_IDENT || toks[1].Literal != "Full Name" {
		t.Errorf("Expected quoted identifier token, got %v %q", toks[1].Type, toks[1].Literal)
	}
}

func TestLexer_StringEscape(t *testing.T) {
	toks := Tokenize(`SELECT 'it''s' FROM t`)
	if toks[1].Type != TOKEN_STRING || toks[1].Literal != "it's" {
		t.Errorf("Expected unescaped string literal, got %v %q", toks[1].Type, toks[1].Literal)
	}
}
