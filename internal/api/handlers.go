package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/inkwell/internal/export"
	"github.com/starford/inkwell/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// noteID parses the {id} URL parameter, writing a 400 when it is not a number.
func noteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return 0, false
	}
	return id, true
}

func setETag(w http.ResponseWriter, n *noteservice.NoteDetail) {
	w.Header().Set("ETag", strconv.Quote(n.ETag))
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, most recently modified first
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items := h.svc.ListNotes(r.Context())
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		int	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	setETag(w, note)
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		507		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Content)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	setETag(w, note)
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		int			true	"Note id"
//	@Param			If-Match	header		string		false	"ETag of the content being replaced"
//	@Param			body		body		NoteRequest	true	"Updated content"
//	@Success		200			{object}	NoteDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), id, req.Content, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	setETag(w, note)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	int	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenderNote handles GET /api/notes/{id}/html.
func (h *Handler) RenderNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	html, err := h.svc.RenderNote(r.Context(), id)
	if err != nil {
		writeError(w, "render note", err)
		return
	}
	writeJSON(w, http.StatusOK, HTMLResponse{HTML: html})
}

// Search handles GET /api/search.
//
//	@Summary		Filter notes by whitespace-separated terms
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	false	"Search query"
//	@Param			highlight	query		bool	false	"Mark matches in previews"
//	@Success		200			{object}	SearchResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	highlight, _ := strconv.ParseBool(q.Get("highlight"))
	writeJSON(w, http.StatusOK, h.svc.Search(r.Context(), q.Get("q"), highlight))
}

// ExportNote handles GET /api/notes/{id}/export.
func (h *Handler) ExportNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(w, r)
	if !ok {
		return
	}
	f, err := h.svc.ExportNote(r.Context(), id)
	if err != nil {
		writeError(w, "export note", err)
		return
	}
	writeFile(w, f)
}

// ExportDraft handles POST /api/export: unsaved text is returned as a
// dated plain-text download without being stored.
//
//	@Summary		Download unsaved text as a file
//	@Tags			notes
//	@Accept			json
//	@Produce		plain
//	@Param			body	body	NoteRequest	true	"Text to export"
//	@Success		200
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export [post]
func (h *Handler) ExportDraft(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	f, err := h.svc.ExportDraft(req.Content)
	if err != nil {
		writeError(w, "export draft", err)
		return
	}
	writeFile(w, f)
}

// ExportBackup handles GET /api/backup.
//
//	@Summary		Download every note as a JSON backup
//	@Tags			backup
//	@Produce		json
//	@Success		200
//	@Security		BearerAuth
//	@Router			/backup [get]
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.ExportAll(r.Context())
	if err != nil {
		writeError(w, "export backup", err)
		return
	}
	writeFile(w, f)
}

// RestoreBackup handles POST /api/backup.
//
//	@Summary		Merge a JSON backup into the collection
//	@Tags			backup
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	RestoreResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backup [post]
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	n, err := h.svc.Restore(r.Context(), body)
	if err != nil {
		writeError(w, "restore backup", err)
		return
	}
	writeJSON(w, http.StatusOK, RestoreResponse{Restored: n})
}

func writeFile(w http.ResponseWriter, f export.File) {
	w.Header().Set("Content-Type", f.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}
