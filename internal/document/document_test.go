package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsEmptyMarkup(t *testing.T) {
	_, err := Parse([]byte("   \n"), "")
	require.ErrorIs(t, err, ErrEmptyDocument)
}

func TestParseRejectsOversizedMarkup(t *testing.T) {
	_, err := Parse([]byte(strings.Repeat("a", MaxSize+1)), "")
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestParseDecodesDeclaredCharset(t *testing.T) {
	// "Düsseldorf" in ISO-8859-2.
	raw := []byte("<html><head><meta charset=\"iso-8859-2\"></head><body><p>D\xfcsseldorf</p></body></html>")
	doc, err := Parse(raw, "")
	require.NoError(t, err)
	assert.Equal(t, "Düsseldorf", Text(doc.Find("p")))
}

func TestParseReaderUsesContentTypeHint(t *testing.T) {
	raw := "<p>M\xfcnchen</p>"
	doc, err := ParseReader(strings.NewReader(raw), "text/html; charset=windows-1252", "")
	require.NoError(t, err)
	assert.Equal(t, "München", Text(doc.Find("p")))
}

func TestResolveAgainstBase(t *testing.T) {
	doc, err := Parse([]byte("<a href='/kontakt'>Kontakt</a>"), "https://acme.example/de/")
	require.NoError(t, err)

	u, err := doc.Resolve("/kontakt")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/kontakt", u.String())

	u, err = doc.Resolve("team.html")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/de/team.html", u.String())
}

func TestTextJoinsNodesAndSkipsScripts(t *testing.T) {
	doc, err := Parse([]byte(`<div id="c"><h2>Acme   GmbH</h2><script>var x = 1;</script><a href="#">site</a>
		<span>Stuttgart</span></div>`), "")
	require.NoError(t, err)
	assert.Equal(t, "Acme GmbH site Stuttgart", Text(doc.Find("#c")))
}

func TestSelectSupportsXPath(t *testing.T) {
	doc, err := Parse([]byte(`<ul><li class="a">one</li><li>two</li><li class="a">three</li></ul>`), "")
	require.NoError(t, err)

	sel := doc.Find("xpath: //li[@class='a']")
	require.Equal(t, 2, sel.Length())
	assert.Equal(t, "one", Text(sel.Eq(0)))
	assert.Equal(t, "three", Text(sel.Eq(1)))

	assert.Equal(t, 0, doc.Find("xpath: //li[").Length())
}

func TestCheckSelector(t *testing.T) {
	tests := map[string]struct {
		selector string
		wantErr  bool
	}{
		"css":          {selector: `div[class*="exhibitor"], .card`},
		"xpath":        {selector: "xpath: //div[h2]"},
		"empty":        {selector: " ", wantErr: true},
		"broken css":   {selector: "div[", wantErr: true},
		"broken xpath": {selector: "xpath: //div[", wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := CheckSelector(tt.selector)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("Unsere AUSSTELLER 2026", []string{"exhibitor", " aussteller "}))
	assert.False(t, ContainsAny("Programm", []string{"aussteller"}))
	assert.False(t, ContainsAny("anything", []string{"", "  "}))
	assert.False(t, ContainsAny("anything", nil))
}

func TestLengthCountsRunes(t *testing.T) {
	assert.Equal(t, 10, Length("Düsseldorf"))
	assert.Equal(t, "a b", Clean("  a \n\t b "))
}
