// Package parser derives display metadata (title, counts, tags, preview)
// from raw note content.
package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/starford/inkwell/internal/models"
)

const (
	// UntitledTitle is used when the first line of a note is blank.
	UntitledTitle = "Untitled Note"

	wordsPerMinute = 200
	previewLen     = 100
)

var (
	tagRe     = regexp.MustCompile(`#(\w+)`)
	bareTagRe = regexp.MustCompile(`^#\w+$`)
)

// Derive computes the metadata for content. It is pure: the same input
// always yields the same output.
func Derive(content string) models.Metadata {
	first := firstLine(content)
	words := countWords(content)

	title := strings.TrimSpace(first)
	if title == "" {
		title = UntitledTitle
	}

	return models.Metadata{
		Title:       title,
		Words:       words,
		Chars:       utf8.RuneCountInString(content),
		ReadingTime: readingTime(words),
		Tags:        extractTags(content),
		Preview:     truncate(first, previewLen),
	}
}

func firstLine(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	return strings.TrimSuffix(line, "\r")
}

// countWords counts whitespace-delimited tokens, skipping tokens that are
// nothing but a #tag. Blank content has zero words.
func countWords(content string) int {
	n := 0
	for _, tok := range strings.Fields(content) {
		if !bareTagRe.MatchString(tok) {
			n++
		}
	}
	return n
}

func readingTime(words int) int {
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	return max(1, minutes)
}

// extractTags returns every #tag in order of appearance. Repeats are kept.
func extractTags(content string) []string {
	matches := tagRe.FindAllStringSubmatch(content, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
