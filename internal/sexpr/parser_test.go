package sexpr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAtoms(t *testing.T) {
	forms, err := Parse(`42 "hello" true false nil sym`)
	require.NoError(t, err)
	require.Len(t, forms, 6)
	require.Equal(t, KindNumber, forms[0].Kind)
	require.Equal(t, 42.0, forms[0].Num)
	require.Equal(t, KindString, forms[1].Kind)
	require.Equal(t, "hello", forms[1].Str)
	require.Equal(t, KindBool, forms[2].Kind)
	require.True(t, forms[2].Bool)
	require.Equal(t, KindBool, forms[3].Kind)
	require.False(t, forms[3].Bool)
	require.Equal(t, KindNil, forms[4].Kind)
	require.Equal(t, KindSymbol, forms[5].Kind)
	require.Equal(t, "sym", forms[5].Sym)
}

func TestParseList(t *testing.T) {
	form, err := ParseOne(`(+ 1 2 (list "a" "b"))`)
	require.NoError(t, err)
	require.Equal(t, KindList, form.Kind)
	require.Len(t, form.List, 4)
	require.Equal(t, "+", form.List[0].Sym)
	require.Equal(t, KindList, form.List[3].Kind)
}

func TestParseEmptyList(t *testing.T) {
	form, err := ParseOne(`()`)
	require.NoError(t, err)
	require.True(t, form.IsEmptyList())
}

func TestParseQuoteShorthand(t *testing.T) {
	form, err := ParseOne(`'x`)
	require.NoError(t, err)
	require.Equal(t, KindList, form.Kind)
	require.Len(t, form.List, 2)
	require.Equal(t, "quote", form.List[0].Sym)
	require.Equal(t, "x", form.List[1].Sym)
}

func TestParseLineComments(t *testing.T) {
	forms, err := Parse("; a comment\n(+ 1 2) ; trailing\n")
	require.NoError(t, err)
	require.Len(t, forms, 1)
}

func TestParseStringEscapes(t *testing.T) {
	form, err := ParseOne(`"a\nb\t\"c\"\\"`)
	require.NoError(t, err)
	require.Equal(t, "a\nb\t\"c\"\\", form.Str)
}

func TestParseUnterminatedListErrors(t *testing.T) {
	_, err := Parse(`(+ 1 2`)
	require.Error(t, err)
	var syn *SexpSyntaxError
	require.ErrorAs(t, err, &syn)
}

func TestParseUnexpectedCloseParenErrors(t *testing.T) {
	_, err := Parse(`)`)
	require.Error(t, err)
}

func TestParseIsDeterministicStructurallyEqual(t *testing.T) {
	src := `(define greet (lambda (name) (concat "hi " name)))`
	a, err := ParseOne(src)
	require.NoError(t, err)
	b, err := ParseOne(src)
	require.NoError(t, err)
	require.True(t, a.Equal(b))
}

func TestParseOneRejectsTrailingForms(t *testing.T) {
	_, err := ParseOne(`1 2`)
	require.Error(t, err)
}
