package chunker

import "strings"

// LineChunker splits a pre-formatted corpus into one document per line.
// Lines are self-contained records, so there is no overlap between chunks.
type LineChunker struct{}

func NewLineChunker() *LineChunker { return &LineChunker{} }

// Split returns the non-blank lines of text with surrounding whitespace
// (including a trailing \r) removed.
func (c *LineChunker) Split(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
