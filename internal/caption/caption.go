// Package caption formats book records for gallery display.
package caption

import (
	"net/url"
	"strings"

	"bookrec/internal/catalog"
)

// DescriptionWords is how many words of a description a caption keeps.
const DescriptionWords = 30

// Authors renders a delimited author list as prose. The catalog joins
// names with a double quote. Semicolon-joined lists, as found in other
// book exports, are accepted as well when no quote is present.
//
//	Smith              -> Smith
//	Smith"Jones        -> Smith and Jones
//	Smith"Jones"Lee    -> Smith, Jones, and Lee
func Authors(s string) string {
	sep := `"`
	if !strings.Contains(s, sep) {
		sep = ";"
	}
	parts := strings.Split(s, sep)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	switch len(names) {
	case 2:
		return names[0] + " and " + names[1]
	case 0, 1:
		return s
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}

// Truncate keeps the first n words of desc followed by "...". Descriptions
// of n words or fewer are returned unmodified.
func Truncate(desc string, n int) string {
	words := strings.Fields(desc)
	if len(words) <= n {
		return desc
	}
	return strings.Join(words[:n], " ") + "..."
}

// Caption is the "<title> by <authors>: <description>" line shown under a cover.
func Caption(b catalog.Book) string {
	head := b.Title + " by " + Authors(b.Authors)
	desc := strings.TrimSpace(b.Description)
	if desc == "" {
		return head
	}
	return head + ": " + Truncate(desc, DescriptionWords)
}

// GoodreadsURL links a title to a Goodreads search.
func GoodreadsURL(title string) string {
	return "https://www.goodreads.com/search?q=" + url.QueryEscape(title)
}
