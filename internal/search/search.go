// Package search filters notes by an AND-of-terms, case-insensitive
// substring query and highlights matched terms.
package search

import (
	"regexp"
	"strings"

	"github.com/starford/inkwell/internal/models"
)

// Default highlight markers.
const (
	MarkOpen  = "<mark>"
	MarkClose = "</mark>"
)

// Result is the outcome of a search. Active is false when the query was
// blank, which is distinct from an active search with zero matches.
type Result struct {
	Active bool
	Terms  []string
	Notes  []models.Note
}

// Terms splits query on whitespace into lowercase terms.
func Terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Search returns the notes whose lowercased content contains every term of
// query as a substring, in input order. A term may match mid-word.
func Search(notes []models.Note, query string) Result {
	terms := Terms(query)
	if len(terms) == 0 {
		return Result{}
	}
	matched := make([]models.Note, 0)
	for _, n := range notes {
		if Matches(n.Content, terms) {
			matched = append(matched, n)
		}
	}
	return Result{Active: true, Terms: terms, Notes: matched}
}

// Matches reports whether content contains all of the lowercase terms.
func Matches(content string, terms []string) bool {
	lower := strings.ToLower(content)
	for _, t := range terms {
		if !strings.Contains(lower, t) {
			return false
		}
	}
	return true
}

// Highlight wraps every case-insensitive occurrence of each query term in
// <mark> tags.
func Highlight(text, query string) string {
	return HighlightWith(text, query, MarkOpen, MarkClose)
}

// HighlightWith wraps occurrences of each term in open/close. Terms are
// applied one after another in query order, so a later term can match text
// (including markers) produced by an earlier one.
func HighlightWith(text, query, open, close string) string {
	for _, term := range Terms(query) {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			return open + m + close
		})
	}
	return text
}
