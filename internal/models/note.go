// Package models defines the domain types for inkwell.
package models

import (
	"slices"
	"time"
)

// Metadata holds the display fields derived from a note's content.
type Metadata struct {
	Title       string   `json:"title"`
	Words       int      `json:"words"`
	Chars       int      `json:"chars"`
	ReadingTime int      `json:"readingTime"` // minutes
	Tags        []string `json:"tags"`
	Preview     string   `json:"preview"`
}

// Note is a single user-authored text record.
type Note struct {
	ID           int64     `json:"id"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
	Metadata
}

// Clone returns a copy of n that shares no slices with it.
func (n Note) Clone() Note {
	n.Tags = slices.Clone(n.Tags)
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n
}
