// Package corpus merges the text gathered about a video into the single
// labelled document the recipe extractor reads.
package corpus

import (
	"strings"

	"github.com/socialchef/clipchef/internal/services/resolver"
)

// Labels that prefix each block of the corpus.
const (
	TitleLabel  = "TITLE:"
	AuthorLabel = "AUTHOR:"
	SourceLabel = "SOURCE TEXT:"
	PastedLabel = "PASTED TEXT:"
)

// Combine joins, with blank lines, the non-empty blocks among title, author,
// native text and pasted text, always in that order. It returns "" when all are empty.
func Combine(src resolver.SourceText, pasted string) string {
	var parts []string
	if title := strings.TrimSpace(src.Title); title != "" {
		parts = append(parts, TitleLabel+" "+title)
	}
	if author := strings.TrimSpace(src.Author); author != "" {
		parts = append(parts, AuthorLabel+" "+author)
	}
	if text := strings.TrimSpace(src.Text); text != "" {
		parts = append(parts, SourceLabel+"\n"+text)
	}
	if p := strings.TrimSpace(pasted); p != "" {
		parts = append(parts, PastedLabel+"\n"+p)
	}
	return strings.Join(parts, "\n\n")
}

// Length is the gate measure: runes of the trimmed corpus.
func Length(corpus string) int {
	return len([]rune(strings.TrimSpace(corpus)))
}

// Splice adds transcript to native text, skipping empty or repeated parts.
func Splice(native, transcript string) string {
	var parts []string
	for _, p := range []string{native, transcript} {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(parts) > 0 && parts[0] == p {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "\n\n")
}
