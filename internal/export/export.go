// Package export turns notes into downloadable file payloads: a single
// note as markdown or plain text, or the whole collection as a JSON backup.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/models"
)

const (
	// BackupVersion is written into every backup file.
	BackupVersion = "1.0"

	MIMEMarkdown = "text/markdown; charset=utf-8"
	MIMEText     = "text/plain; charset=utf-8"
	MIMEJSON     = "application/json"

	dateLayout = "2006-01-02"
	// isoLayout matches JavaScript's Date.prototype.toISOString.
	isoLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	// ErrInvalidBackup is returned by ParseBackup for data that is not a
	// backup document.
	ErrInvalidBackup = errors.New("export: invalid backup")
	// ErrUnsupportedVersion is returned by ParseBackup for backups written by
	// an incompatible major version.
	ErrUnsupportedVersion = errors.New("export: unsupported backup version")
)

// File is a downloadable payload.
type File struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Backup is the JSON envelope of a full export.
type Backup struct {
	Notes      []models.Note `json:"notes"`
	ExportDate string        `json:"exportDate"`
	Version    string        `json:"version"`
}

// Single exports one saved note as markdown named after its id.
func Single(n models.Note) File {
	return File{
		Filename: "note-" + strconv.FormatInt(n.ID, 10) + ".md",
		MIMEType: MIMEMarkdown,
		Data:     []byte(n.Content),
	}
}

// Draft exports unsaved text as a plain-text file named after the date.
// Blank text is rejected with apperr.ErrEmptyContent.
func Draft(content string, now time.Time) (File, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return File{}, apperr.ErrEmptyContent
	}
	return File{
		Filename: "note-" + now.UTC().Format(dateLayout) + ".txt",
		MIMEType: MIMEText,
		Data:     []byte(content),
	}, nil
}

// All exports the full collection as a JSON backup.
func All(notes []models.Note, now time.Time) (File, error) {
	if notes == nil {
		notes = []models.Note{}
	}
	b := Backup{
		Notes:      notes,
		ExportDate: now.UTC().Format(isoLayout),
		Version:    BackupVersion,
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return File{}, fmt.Errorf("export: encode backup: %w", err)
	}
	return File{
		Filename: "notes-backup-" + now.UTC().Format(dateLayout) + ".json",
		MIMEType: MIMEJSON,
		Data:     data,
	}, nil
}

// ParseBackup decodes a backup produced by All. Any 1.x version is accepted.
func ParseBackup(data []byte) (*Backup, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidBackup)
	}
	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
	}
	major, _, _ := strings.Cut(b.Version, ".")
	if major != "1" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, b.Version)
	}
	return &b, nil
}
