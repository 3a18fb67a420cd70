package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/starford/inkwell/internal/noteservice"
)

// NoteRequest is the request body for creating or updating a note.
type NoteRequest struct {
	Content string `json:"content" example:"# Hello\nWorld"`
}

// Validate rejects missing or whitespace-only content.
func (r NoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.By(notBlank)),
	)
}

func notBlank(v any) error {
	if s, _ := v.(string); strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "must not be blank")
	}
	return nil
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteDetail `json:"notes"`
	Total int          `json:"total" example:"42"`
}

// SearchResponse is the search endpoint payload.
type SearchResponse = noteservice.SearchResult

// HTMLResponse carries a rendered note.
type HTMLResponse struct {
	HTML string `json:"html"`
}

// RestoreResponse reports how many notes a restore added or replaced.
type RestoreResponse struct {
	Restored int `json:"restored" example:"3"`
}
