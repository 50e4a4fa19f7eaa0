package caption

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"bookrec/internal/catalog"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "w" + strings.Repeat("x", i%3)
	}
	return strings.Join(w, " ")
}

func TestAuthors(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Smith", "Smith"},
		{`Smith"Jones`, "Smith and Jones"},
		{`Smith"Jones"Lee`, "Smith, Jones, and Lee"},
		{"Smith;Jones", "Smith and Jones"},
		{"Smith; Jones; Lee; Park", "Smith, Jones, Lee, and Park"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Authors(tt.in))
		})
	}
}

func TestTruncateLongDescription(t *testing.T) {
	desc := words(50)
	got := Truncate(desc, DescriptionWords)
	assert.True(t, strings.HasSuffix(got, "..."))
	kept := strings.Fields(strings.TrimSuffix(got, "..."))
	assert.Len(t, kept, 30)
	assert.Equal(t, strings.Fields(desc)[:30], kept)
}

func TestTruncateShortDescriptionUnmodified(t *testing.T) {
	desc := words(10)
	assert.Equal(t, desc, Truncate(desc, DescriptionWords))
	exact := words(30)
	assert.Equal(t, exact, Truncate(exact, DescriptionWords))
}

func TestCaption(t *testing.T) {
	b := catalog.Book{Title: "Dune", Authors: `Frank Herbert"Brian Herbert`, Description: "Spice and sand."}
	assert.Equal(t, "Dune by Frank Herbert and Brian Herbert: Spice and sand.", Caption(b))

	b.Description = "  "
	assert.Equal(t, "Dune by Frank Herbert and Brian Herbert", Caption(b))
}

func TestGoodreadsURL(t *testing.T) {
	assert.Equal(t, "https://www.goodreads.com/search?q=The+Left+Hand+of+Darkness", GoodreadsURL("The Left Hand of Darkness"))
}
