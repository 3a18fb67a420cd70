// Package notes implements the note repository: the in-memory collection
// of notes backed by a storage.Adapter.
package notes

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/checksum"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/parser"
	"github.com/starford/inkwell/internal/storage"
)

// Store is the persistence the repository needs. *storage.Adapter satisfies it.
type Store interface {
	Load(ctx context.Context) []models.Note
	LoadErr(ctx context.Context) ([]models.Note, error)
	Save(ctx context.Context, notes []models.Note) error
}

var _ Store = (*storage.Adapter)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithLogger sets the repository logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) { r.logger = logger }
}

// Repository owns the note collection. The collection is kept sorted most
// recently modified first and is only replaced after a successful write, so
// memory never runs ahead of storage.
type Repository struct {
	mu     sync.Mutex
	store  Store
	notes  []models.Note
	now    func() time.Time
	logger *slog.Logger
}

// New creates a repository and loads the persisted collection.
func New(ctx context.Context, store Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.notes = sorted(store.Load(ctx))
	return r
}

// Reload replaces the in-memory collection with the persisted one and
// reports whether anything differed. When storage cannot be read or holds
// a corrupt collection the current notes are kept, so the next write does
// not overwrite storage with an empty collection.
func (r *Repository) Reload(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, err := r.store.LoadErr(ctx)
	if err != nil {
		r.logger.Warn("notes: reload failed, keeping current collection",
			slog.Int("count", len(r.notes)), slog.String("error", err.Error()))
		return false
	}
	next = sorted(next)
	if sameNotes(r.notes, next) {
		return false
	}
	r.notes = next
	r.logger.Debug("notes: reloaded", slog.Int("count", len(r.notes)))
	return true
}

// List returns copies of all notes, most recently modified first.
func (r *Repository) List(_ context.Context) []models.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Note, len(r.notes))
	for i, n := range r.notes {
		out[i] = n.Clone()
	}
	return out
}

// Len returns the number of notes.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

// FindByID returns the note with id or apperr.ErrNotFound.
func (r *Repository) FindByID(_ context.Context, id int64) (models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return models.Note{}, apperr.ErrNotFound
	}
	return r.notes[i].Clone(), nil
}

// Create stores a new note. Blank content is rejected with
// apperr.ErrEmptyContent before anything is written.
func (r *Repository) Create(ctx context.Context, content string) (models.Note, error) {
	if isBlank(content) {
		return models.Note{}, apperr.ErrEmptyContent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.timestamp()
	n := models.Note{
		ID:           r.nextID(now),
		Content:      content,
		CreatedAt:    now,
		LastModified: now,
		Metadata:     parser.Derive(content),
	}

	next := make([]models.Note, 0, len(r.notes)+1)
	next = append(next, n)
	next = append(next, r.notes...)
	if err := r.commit(ctx, sorted(next)); err != nil {
		return models.Note{}, fmt.Errorf("notes: create: %w", err)
	}
	r.logger.Debug("notes: created", slog.Int64("id", n.ID))
	return n.Clone(), nil
}

// Update replaces the content of note id.
func (r *Repository) Update(ctx context.Context, id int64, content string) (models.Note, error) {
	return r.UpdateIfMatch(ctx, id, content, "")
}

// UpdateIfMatch is Update with optimistic concurrency: when etag is not
// empty it must match the checksum of the note's current content, or
// apperr.ErrConflict is returned.
func (r *Repository) UpdateIfMatch(ctx context.Context, id int64, content, etag string) (models.Note, error) {
	if isBlank(content) {
		return models.Note{}, apperr.ErrEmptyContent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return models.Note{}, apperr.ErrNotFound
	}
	if etag != "" && !checksum.Match(etag, r.notes[i].Content) {
		return models.Note{}, apperr.ErrConflict
	}

	n := r.notes[i]
	n.Content = content
	n.Metadata = parser.Derive(content)
	n.LastModified = latest(r.timestamp(), n.CreatedAt)

	next := make([]models.Note, 0, len(r.notes))
	next = append(next, n)
	next = append(next, r.notes[:i]...)
	next = append(next, r.notes[i+1:]...)
	if err := r.commit(ctx, sorted(next)); err != nil {
		return models.Note{}, fmt.Errorf("notes: update %d: %w", id, err)
	}
	r.logger.Debug("notes: updated", slog.Int64("id", id))
	return n.Clone(), nil
}

// Delete removes note id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return apperr.ErrNotFound
	}
	next := slices.Concat(r.notes[:i], r.notes[i+1:])
	if err := r.commit(ctx, next); err != nil {
		return fmt.Errorf("notes: delete %d: %w", id, err)
	}
	r.logger.Debug("notes: deleted", slog.Int64("id", id))
	return nil
}

// Restore merges notes from a backup into the collection. Unknown ids are
// added; known ids are replaced only when the incoming copy was modified
// later. Notes without a positive id are added under a fresh one. Blank
// notes are skipped. It returns how many notes were added or
// replaced and persists once.
func (r *Repository) Restore(ctx context.Context, incoming []models.Note) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := slices.Clone(r.notes)
	pos := make(map[int64]int, len(next))
	for i, n := range next {
		pos[n.ID] = i
	}

	changed := 0
	for _, in := range incoming {
		if isBlank(in.Content) {
			continue
		}
		n := normalise(in)
		if n.ID <= 0 {
			n.ID = freshID(next, r.timestamp())
			r.logger.Warn("notes: restored note had no valid id, assigned a new one",
				slog.Int64("id", in.ID), slog.Int64("assigned", n.ID))
		}
		if i, ok := pos[n.ID]; ok {
			if !n.LastModified.After(next[i].LastModified) {
				continue
			}
			next[i] = n
		} else {
			pos[n.ID] = len(next)
			next = append(next, n)
		}
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	if err := r.commit(ctx, sorted(next)); err != nil {
		return 0, fmt.Errorf("notes: restore: %w", err)
	}
	r.logger.Info("notes: restored", slog.Int("changed", changed))
	return changed, nil
}

// commit persists next and, only on success, makes it the collection.
func (r *Repository) commit(ctx context.Context, next []models.Note) error {
	if err := r.store.Save(ctx, next); err != nil {
		return err
	}
	r.notes = next
	return nil
}

func (r *Repository) index(id int64) int {
	return slices.IndexFunc(r.notes, func(n models.Note) bool { return n.ID == id })
}

// nextID uses the creation time in milliseconds unless an existing id is
// already at or beyond it.
func (r *Repository) nextID(now time.Time) int64 {
	return freshID(r.notes, now)
}

func freshID(notes []models.Note, now time.Time) int64 {
	id := now.UnixMilli()
	for _, n := range notes {
		if n.ID >= id {
			id = n.ID + 1
		}
	}
	return id
}

func (r *Repository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func normalise(n models.Note) models.Note {
	n.CreatedAt = n.CreatedAt.UTC()
	n.LastModified = latest(n.LastModified.UTC(), n.CreatedAt)
	n.Metadata = parser.Derive(n.Content)
	return n
}

// sorted orders notes most recently modified first, newer ids first on ties.
func sorted(notes []models.Note) []models.Note {
	slices.SortStableFunc(notes, func(a, b models.Note) int {
		if c := b.LastModified.Compare(a.LastModified); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return notes
}

func sameNotes(a, b []models.Note) bool {
	return slices.EqualFunc(a, b, func(x, y models.Note) bool {
		return x.ID == y.ID && x.Content == y.Content &&
			x.CreatedAt.Equal(y.CreatedAt) && x.LastModified.Equal(y.LastModified)
	})
}

func latest(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
