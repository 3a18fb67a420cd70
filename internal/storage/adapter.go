package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/parser"
)

const (
	// DefaultKey is the key the note collection is stored under.
	DefaultKey = "notes"
	// RecordVersion is written into every persisted note record.
	RecordVersion = 1
)

// record is the persisted shape of a note. created and modifiedAt are
// accepted on read for collections written by older clients.
type record struct {
	Version      int        `json:"version"`
	ID           int64      `json:"id"`
	Content      string     `json:"content"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	Created      *time.Time `json:"created,omitempty"`
	ModifiedAt   *time.Time `json:"modifiedAt,omitempty"`
	models.Metadata
}

// Adapter reads and writes the whole note collection as one JSON array.
type Adapter struct {
	kv     KV
	key    string
	logger *slog.Logger
}

// NewAdapter creates an Adapter storing the collection in kv under key.
// An empty key means DefaultKey; a nil logger means slog.Default().
func NewAdapter(kv KV, key string, logger *slog.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{kv: kv, key: key, logger: logger}
}

// Key returns the key the collection is stored under.
func (a *Adapter) Key() string { return a.key }

// ErrCorrupt reports a persisted collection that is not a JSON array.
var ErrCorrupt = errors.New("storage: persisted collection is not a JSON array")

// Load returns the persisted collection in stored order. It never fails:
// an unreadable store or a corrupt blob is logged and yields an empty
// collection. See LoadErr.
func (a *Adapter) Load(ctx context.Context) []models.Note {
	notes, err := a.LoadErr(ctx)
	if err != nil {
		a.logger.Warn("storage: load failed, using empty collection",
			slog.String("key", a.key), slog.String("error", err.Error()))
		return []models.Note{}
	}
	return notes
}

// LoadErr returns the persisted collection in stored order. A missing key
// is an empty collection. A read failure or a blob that is not a JSON array
// is returned as an error. Records that cannot be decoded, have blank
// content or repeat an earlier id are skipped. Derived metadata is always
// recomputed from content.
func (a *Adapter) LoadErr(ctx context.Context) ([]models.Note, error) {
	data, err := a.kv.Get(ctx, a.key)
	if errors.Is(err, ErrKeyNotFound) {
		return []models.Note{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %q: %w", a.key, err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	out := make([]models.Note, 0, len(raws))
	seen := make(map[int64]struct{}, len(raws))
	for i, raw := range raws {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			a.logger.Warn("storage: skipping malformed record",
				slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		if rec.Version > RecordVersion {
			a.logger.Warn("storage: record written by a newer version",
				slog.Int64("id", rec.ID), slog.Int("version", rec.Version))
		}
		if strings.TrimSpace(rec.Content) == "" {
			a.logger.Warn("storage: skipping blank record", slog.Int64("id", rec.ID))
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			a.logger.Warn("storage: skipping duplicate id", slog.Int64("id", rec.ID))
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec.note())
	}
	return out, nil
}

// Save replaces the persisted collection with notes. Failures wrap
// apperr.ErrStorageWrite.
func (a *Adapter) Save(ctx context.Context, notes []models.Note) error {
	recs := make([]record, len(notes))
	for i, n := range notes {
		recs[i] = newRecord(n)
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", apperr.ErrStorageWrite, err)
	}
	if err := a.kv.Set(ctx, a.key, data); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrStorageWrite, err)
	}
	return nil
}

func newRecord(n models.Note) record {
	created, modified := n.CreatedAt, n.LastModified
	return record{
		Version:      RecordVersion,
		ID:           n.ID,
		Content:      n.Content,
		CreatedAt:    &created,
		LastModified: &modified,
		Metadata:     n.Metadata,
	}
}

// note converts a decoded record, resolving legacy field names and
// enforcing lastModified >= createdAt.
func (r record) note() models.Note {
	created := firstTime(r.CreatedAt, r.Created)
	modified := firstTime(r.LastModified, r.ModifiedAt)
	switch {
	case created.IsZero():
		created = modified
	case modified.Before(created):
		modified = created
	}
	return models.Note{
		ID:           r.ID,
		Content:      r.Content,
		CreatedAt:    created.UTC(),
		LastModified: modified.UTC(),
		Metadata:     parser.Derive(r.Content),
	}
}

func firstTime(ts ...*time.Time) time.Time {
	for _, t := range ts {
		if t != nil && !t.IsZero() {
			return *t
		}
	}
	return time.Time{}
}
