package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []Kind {
	out := make([]Kind, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Kind)
	}
	return out
}

func TestTokenizeBasicDeclaration(t *testing.T) {
	toks := Tokenize([]byte("int x = 1;"))
	// int(kw) ws x(ident) ws =(op) ws 1(int) ;(punct) EOF
	require.True(t, len(toks) > 0)
	assert.Equal(t, KindEOF, toks[len(toks)-1].Kind)

	var texts []string
	for _, tok := range toks {
		if tok.Kind != KindWhitespace && tok.Kind != KindEOF {
			texts = append(texts, tok.Text)
		}
	}
	assert.Equal(t, []string{"int", "x", "=", "1", ";"}, texts)
}

func TestTokenizeDirective(t *testing.T) {
	toks := Tokenize([]byte("#include <sourcemod>\n"))
	require.GreaterOrEqual(t, len(toks), 2)
	assert.Equal(t, KindDirective, toks[0].Kind)
	assert.Equal(t, "#include", toks[0].Text)
}

func TestTokenizeLiteralKinds(t *testing.T) {
	toks := Tokenize([]byte(`0x1F 0b101 017 3.14 'a' "hi"`))
	var literalKinds []Kind
	for _, tok := range toks {
		switch tok.Kind {
		case KindHexLiteral, KindBinLiteral, KindOctalLiteral, KindFloatLiteral, KindCharLiteral, KindStringLiteral:
			literalKinds = append(literalKinds, tok.Kind)
		}
	}
	assert.Equal(t, []Kind{
		KindHexLiteral, KindBinLiteral, KindOctalLiteral, KindFloatLiteral, KindCharLiteral, KindStringLiteral,
	}, literalKinds)
}

func TestTokenizeComments(t *testing.T) {
	toks := Tokenize([]byte("// line\n/* block */\nint x;"))
	assert.Equal(t, KindComment, toks[0].Kind)
	found := false
	for _, tok := range toks {
		if tok.Kind == KindComment && tok.Text == "/* block */" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTokenizeKeywordVsIdent(t *testing.T) {
	toks := Tokenize([]byte("public void Helper()"))
	var nonWs []Token
	for _, tok := range toks {
		if tok.Kind != KindWhitespace && tok.Kind != KindEOF {
			nonWs = append(nonWs, tok)
		}
	}
	assert.Equal(t, KindKeyword, nonWs[0].Kind)
	assert.Equal(t, KindKeyword, nonWs[1].Kind)
	assert.Equal(t, KindIdent, nonWs[2].Kind)
}

func TestTokenizeMultiCharOperators(t *testing.T) {
	toks := Tokenize([]byte("a >>> b && c == d"))
	var ops []string
	for _, tok := range toks {
		if tok.Kind == KindOperator {
			ops = append(ops, tok.Text)
		}
	}
	assert.Equal(t, []string{">>>", "&&", "=="}, ops)
}

func TestTokenizeNeverStalls(t *testing.T) {
	// Garbage bytes must not cause an infinite loop.
	toks := Tokenize([]byte{0xff, 0xfe, '\n', 'a'})
	require.NotEmpty(t, toks)
	assert.Equal(t, KindEOF, toks[len(toks)-1].Kind)
}
