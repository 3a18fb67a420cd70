// Package noteservice coordinates the note repository with search, export,
// rendering and change notifications for the outer surfaces (HTTP, MCP, CLI).
package noteservice

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/starford/inkwell/internal/checksum"
	"github.com/starford/inkwell/internal/export"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/notes"
	"github.com/starford/inkwell/internal/render"
	"github.com/starford/inkwell/internal/search"
	"github.com/starford/inkwell/internal/sse"
)

// Publisher receives note change notifications. *sse.Broker satisfies it.
type Publisher interface {
	PublishNoteEvent(kind string, id int64)
}

var _ Publisher = (*sse.Broker)(nil)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	models.Note
	ETag string `json:"etag"`
}

// SearchHit is a matching note with its preview highlighted. Highlighted
// is HTML: the preview is escaped before the <mark> tags are added.
type SearchHit struct {
	NoteDetail
	Highlighted string `json:"highlighted,omitempty"`
}

// SearchResult is the outcome of Service.Search.
type SearchResult struct {
	Active  bool        `json:"active"`
	Terms   []string    `json:"terms"`
	Results []SearchHit `json:"results"`
}

// Service wraps a repository for callers outside the core.
type Service struct {
	repo     *notes.Repository
	renderer render.Renderer
	pub      Publisher
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where change notifications go.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithRenderer overrides the markdown renderer (HTML by default).
func WithRenderer(r render.Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithClock overrides the time used for export file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new note service.
func NewService(repo *notes.Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		renderer: render.NewHTML(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListNotes returns every note, most recently modified first.
func (s *Service) ListNotes(ctx context.Context) []NoteDetail {
	all := s.repo.List(ctx)
	out := make([]NoteDetail, len(all))
	for i, n := range all {
		out[i] = detail(n)
	}
	return out
}

// GetNote returns one note.
func (s *Service) GetNote(ctx context.Context, id int64) (*NoteDetail, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := detail(n)
	return &d, nil
}

// CreateNote stores new content.
func (s *Service) CreateNote(ctx context.Context, content string) (*NoteDetail, error) {
	n, err := s.repo.Create(ctx, content)
	if err != nil {
		return nil, err
	}
	s.publish(sse.KindCreated, n.ID)
	d := detail(n)
	return &d, nil
}

// UpdateNote replaces a note's content. A non-empty ifMatch must equal the
// note's current ETag.
func (s *Service) UpdateNote(ctx context.Context, id int64, content, ifMatch string) (*NoteDetail, error) {
	n, err := s.repo.UpdateIfMatch(ctx, id, content, ifMatch)
	if err != nil {
		return nil, err
	}
	s.publish(sse.KindUpdated, n.ID)
	d := detail(n)
	return &d, nil
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(sse.KindDeleted, id)
	return nil
}

// Search filters notes by query. With highlight set, each hit carries its
// preview with the query terms marked.
func (s *Service) Search(ctx context.Context, query string, highlight bool) SearchResult {
	res := search.Search(s.repo.List(ctx), query)
	out := SearchResult{Active: res.Active, Terms: nonNilSlice(res.Terms), Results: []SearchHit{}}
	for _, n := range res.Notes {
		hit := SearchHit{NoteDetail: detail(n)}
		if highlight {
			hit.Highlighted = search.Highlight(html.EscapeString(n.Preview), html.EscapeString(query))
		}
		out.Results = append(out.Results, hit)
	}
	return out
}

// ExportNote returns the download payload for one note.
func (s *Service) ExportNote(ctx context.Context, id int64) (export.File, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return export.File{}, err
	}
	return export.Single(n), nil
}

// ExportDraft returns the download payload for unsaved text.
func (s *Service) ExportDraft(content string) (export.File, error) {
	return export.Draft(content, s.now())
}

// ExportAll returns the full backup payload.
func (s *Service) ExportAll(ctx context.Context) (export.File, error) {
	return export.All(s.repo.List(ctx), s.now())
}

// Restore merges a backup file into the collection.
func (s *Service) Restore(ctx context.Context, data []byte) (int, error) {
	b, err := export.ParseBackup(data)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.Restore(ctx, b.Notes)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.publish(sse.KindReloaded, 0)
	}
	return n, nil
}

// Reload re-reads the persisted collection, e.g. after another process
// wrote it. Subscribers are only notified when the collection changed.
func (s *Service) Reload(ctx context.Context) bool {
	if !s.repo.Reload(ctx) {
		return false
	}
	s.publish(sse.KindReloaded, 0)
	return true
}

// RenderNote renders a note's markdown with the configured renderer.
func (s *Service) RenderNote(ctx context.Context, id int64) (string, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	out, err := s.renderer.Render(n.Content)
	if err != nil {
		return "", fmt.Errorf("noteservice: render %d: %w", id, err)
	}
	return out, nil
}

func (s *Service) publish(kind string, id int64) {
	if s.pub != nil {
		s.pub.PublishNoteEvent(kind, id)
	}
}

func detail(n models.Note) NoteDetail {
	return NoteDetail{Note: n, ETag: checksum.Sum(n.Content)}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
