package graphql

import "testing"

func TestPunctuators(t *testing.T) {
	toks := Significant(Tokenize(`! $ & ( ) : = @ [ ] { } | ...`))
	want := []Kind{BANG, DOLLAR, AMP, LPAREN, RPAREN, COLON, EQUALS, AT,
		LBRACKET, RBRACKET, LBRACE, RBRACE, PIPE, SPREAD, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token[%d]: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestNameAndKeywords(t *testing.T) {
	toks := Significant(Tokenize("query fragment on widgets"))
	want := []Kind{QUERY, FRAGMENT, ON, NAME, EOF}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Fatalf("token[%d]: got %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestInsignificantComma(t *testing.T) {
	toks := Tokenize("a, b")
	var sawComma bool
	for _, tok := range toks {
		if tok.Kind == COMMA {
			sawComma = true
		}
	}
	if !sawComma {
		t.Fatal("expected a COMMA token in the raw stream")
	}
	sig := Significant(toks)
	for _, tok := range sig {
		if tok.Kind == COMMA {
			t.Fatal("COMMA must not survive Significant filtering")
		}
	}
}

func TestNumbersWithExponent(t *testing.T) {
	cases := map[string]Kind{
		"42":     INT,
		"-7":     INT,
		"3.14":   FLOAT,
		"1e10":   FLOAT,
		"1E+10":  FLOAT,
		"1.5e-3": FLOAT,
	}
	for input, want := range cases {
		toks := Significant(Tokenize(input))
		if toks[0].Kind != want || toks[0].Text != input {
			t.Fatalf("input %q: got %+v, want kind %s", input, toks[0], want)
		}
	}
}

func TestBlockString(t *testing.T) {
	input := "\"\"\"\nmulti\nline\n\"\"\""
	toks := Significant(Tokenize(input))
	if toks[0].Kind != BLOCK_STRING {
		t.Fatalf("expected BLOCK_STRING, got %s", toks[0].Kind)
	}
	if toks[0].Text != input {
		t.Fatalf("block string text mismatch: %q", toks[0].Text)
	}
}

func TestUnterminatedBlockStringIsIllegal(t *testing.T) {
	toks := Significant(Tokenize(`"""unterminated`))
	if toks[0].Kind != ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %s", toks[0].Kind)
	}
}

func TestUnicodeEscape(t *testing.T) {
	toks := Significant(Tokenize("\"\\u0041BC\""))
	if toks[0].Kind != STRING || toks[0].Literal != "ABC" {
		t.Fatalf("expected \\u0041 to decode to A followed by BC, got %+v", toks[0])
	}
}

func TestColumnsCapturedAtFirstCharacter(t *testing.T) {
	toks := Tokenize("  foo")
	if toks[0].Kind != WHITESPACE || toks[0].Pos.Column != 1 {
		t.Fatalf("expected whitespace token starting at column 1, got %+v", toks[0].Pos)
	}
	if toks[1].Kind != NAME || toks[1].Pos.Column != 3 {
		t.Fatalf("expected name token starting at column 3, got %+v", toks[1].Pos)
	}
}

func TestTotalCoverage(t *testing.T) {
	input := "query Foo { # comment\n  bar(id: 1, name: \"x\")\n}"
	toks := Tokenize(input)
	var rebuilt string
	for _, tok := range toks {
		if tok.Kind == EOF {
			continue
		}
		if tok.Pos.StartOffset != len(rebuilt) {
			t.Fatalf("token %+v does not start where previous token ended (at %d)", tok, len(rebuilt))
		}
		rebuilt += tok.Text
	}
	if rebuilt != input {
		t.Fatalf("rejoined tokens %q != input %q", rebuilt, input)
	}
}

func TestIllegalCharacter(t *testing.T) {
	toks := Significant(Tokenize("^"))
	if toks[0].Kind != ILLEGAL || toks[0].Text != "^" {
		t.Fatalf("expected illegal token, got %+v", toks[0])
	}
}
