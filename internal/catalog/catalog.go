// Package catalog implements the JSON-file-backed media catalog. Every
// media asset known to the application has one MediaRecord here; the asset
// bytes themselves live on disk (and optionally in the evidence archive).
//
// The catalog is constructed once by the composition root and shared by
// reference. All operations serialize on an internal mutex: reads and
// writes copy the full in-memory list and mirror it 1:1 to a single JSON
// document, so concurrent writers would otherwise lose updates.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"fahndung/internal/models"
)

// optimizedFormat is the re-encode target; records converted to it are
// flagged as optimized by the migration pass.
const optimizedFormat = "webp"

// Catalog holds the in-memory record list mirrored to a JSON document.
type Catalog struct {
	mu      sync.Mutex
	path    string
	records []models.MediaRecord
	loaded  bool
}

// New creates a catalog backed by the JSON document at path. Call Load
// before using any other method.
func New(path string) *Catalog {
	return &Catalog{path: path}
}

// Load reads the backing document into memory and runs the migration pass.
// A missing document is a legitimate empty state and is persisted
// immediately; an unreadable or unparseable document is an error and leaves
// the catalog unloaded rather than silently truncating it to empty.
// Load is idempotent: a second call after success is a no-op.
func (c *Catalog) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("catalog: create data dir: %w", err)
	}

	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("media catalog not found, starting empty", "path", c.path)
		c.records = []models.MediaRecord{}
		if err := c.persistLocked(); err != nil {
			return err
		}
		c.loaded = true
		return nil
	case err != nil:
		return fmt.Errorf("catalog: read %s: %w", c.path, err)
	}

	var records []models.MediaRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("catalog: parse %s: %w", c.path, err)
	}
	if records == nil {
		records = []models.MediaRecord{}
	}
	c.records = records

	if migrated := c.migrateLocked(); migrated > 0 {
		slog.Info("media catalog migrated", "records", migrated)
		if err := c.persistLocked(); err != nil {
			return err
		}
	}

	c.loaded = true
	slog.Info("media catalog loaded", "path", c.path, "records", len(c.records))
	return nil
}

// migrateLocked backfills fields missing from records written by older
// versions and rewrites mixed-case directories, so the persisted document
// carries the lower-case form rather than relying on read-side
// normalization forever. Safe to run repeatedly: already-migrated records
// are untouched. Returns the number of records changed.
func (c *Catalog) migrateLocked() int {
	changed := 0
	for i := range c.records {
		rec := &c.records[i]
		dirty := false

		switch {
		case strings.TrimSpace(rec.Directory) == "":
			rec.Directory = directoryFromPath(rec.Path)
			dirty = true
		case models.NormalizeDirectory(rec.Directory) != rec.Directory:
			rec.Directory = models.NormalizeDirectory(rec.Directory)
			dirty = true
		}
		if rec.ConvertedFormat == optimizedFormat && !rec.Optimized {
			rec.Optimized = true
			dirty = true
		}

		if dirty {
			changed++
		}
	}
	return changed
}

// directoryFromPath derives a directory bucket from the third segment of a
// root-relative asset path ("/uploads/berlin/x.jpg" → "berlin"). Paths too
// short to carry a directory segment fall back to the default bucket.
func directoryFromPath(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) > 3 {
		return models.NormalizeDirectory(parts[2])
	}
	return models.DefaultDirectory
}

// Add appends a record and persists the catalog. The stored copy's
// directory is normalized to lower-case; the caller's value is untouched.
// ID uniqueness is the caller's responsibility.
func (c *Catalog) Add(rec models.MediaRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec.Directory = models.NormalizeDirectory(rec.Directory)
	rec.Tags = slices.Clone(rec.Tags)
	rec.Edits = rec.Edits.Clone()
	c.records = append(c.records, rec)
	return c.persistLocked()
}

// Update merges the non-nil fields of upd over the record with the given id,
// stamps UpdatedAt, and persists. Returns the updated record, or nil (with
// no error) when the id is unknown.
func (c *Catalog) Update(id string, upd models.MediaUpdate) (*models.MediaRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexLocked(id)
	if idx < 0 {
		return nil, nil
	}
	rec := &c.records[idx]

	if upd.Filename != nil {
		rec.Filename = *upd.Filename
	}
	if upd.OriginalName != nil {
		rec.OriginalName = *upd.OriginalName
	}
	if upd.Path != nil {
		rec.Path = *upd.Path
	}
	if upd.ThumbnailPath != nil {
		rec.ThumbnailPath = *upd.ThumbnailPath
	}
	if upd.Size != nil {
		rec.Size = *upd.Size
	}
	if upd.Width != nil {
		rec.Width = *upd.Width
	}
	if upd.Height != nil {
		rec.Height = *upd.Height
	}
	if upd.MimeType != nil {
		rec.MimeType = *upd.MimeType
	}
	if upd.ConvertedFormat != nil {
		rec.ConvertedFormat = *upd.ConvertedFormat
	}
	if upd.Directory != nil {
		rec.Directory = models.NormalizeDirectory(*upd.Directory)
	}
	if upd.Tags != nil {
		rec.Tags = slices.Clone(*upd.Tags)
	}
	if upd.AltText != nil {
		rec.AltText = *upd.AltText
	}
	if upd.Description != nil {
		rec.Description = *upd.Description
	}
	if upd.Optimized != nil {
		rec.Optimized = *upd.Optimized
	}
	if upd.Edits != nil {
		rec.Edits = upd.Edits.Clone()
	}
	if upd.EditedFrom != nil {
		rec.EditedFrom = *upd.EditedFrom
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := c.persistLocked(); err != nil {
		return nil, err
	}
	out := copyRecord(*rec)
	return &out, nil
}

// Delete removes the record with the given id and persists. Unknown ids are
// a no-op. Only metadata is removed; the backing files belong to the caller.
// Returns true if a record was removed.
func (c *Catalog) Delete(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexLocked(id)
	if idx < 0 {
		return false, nil
	}
	c.records = append(c.records[:idx], c.records[idx+1:]...)
	return true, c.persistLocked()
}

// Get returns a copy of the record with the given id, or nil if not found.
func (c *Catalog) Get(id string) *models.MediaRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexLocked(id)
	if idx < 0 {
		return nil
	}
	rec := copyRecord(c.records[idx])
	return &rec
}

// All returns copies of every record in insertion order. Directories are
// re-asserted lower-case on the way out even though writes already
// normalize them.
func (c *Catalog) All() []models.MediaRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.MediaRecord, len(c.records))
	for i, rec := range c.records {
		out[i] = copyRecord(rec)
	}
	return out
}

// ByTags returns records whose tag set intersects the given tags
// (any match, not all).
func (c *Catalog) ByTags(tags []string) []models.MediaRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.MediaRecord
	for _, rec := range c.records {
		for _, t := range tags {
			if rec.HasTag(t) {
				out = append(out, copyRecord(rec))
				break
			}
		}
	}
	return out
}

// Search returns records whose original name or any tag contains the term,
// case-insensitively.
func (c *Catalog) Search(term string) []models.MediaRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	term = strings.ToLower(term)
	var out []models.MediaRecord
	for _, rec := range c.records {
		if matchesTerm(rec, term) {
			out = append(out, copyRecord(rec))
		}
	}
	return out
}

func matchesTerm(rec models.MediaRecord, term string) bool {
	if strings.Contains(strings.ToLower(rec.OriginalName), term) {
		return true
	}
	for _, t := range rec.Tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

// Tags returns the de-duplicated union of all tags across all records,
// sorted for stable output.
func (c *Catalog) Tags() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{})
	for _, rec := range c.records {
		for _, t := range rec.Tags {
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Directories returns the distinct set of directory buckets across all
// records, sorted. Empty directories created directly on disk are the
// handlers' concern and merged there.
func (c *Catalog) Directories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{})
	for _, rec := range c.records {
		seen[models.NormalizeDirectory(rec.Directory)] = struct{}{}
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// indexLocked finds a record by exact id match. Callers must hold the mutex.
func (c *Catalog) indexLocked(id string) int {
	for i := range c.records {
		if c.records[i].ID == id {
			return i
		}
	}
	return -1
}

// copyRecord returns a defensive copy with the directory invariant
// re-asserted and no pointers into the stored record: tags are cloned and
// the edit parameters are deep-copied.
func copyRecord(rec models.MediaRecord) models.MediaRecord {
	rec.Directory = models.NormalizeDirectory(rec.Directory)
	rec.Tags = slices.Clone(rec.Tags)
	rec.Edits = rec.Edits.Clone()
	return rec
}

// persistLocked writes the full record list to the backing document via a
// temp file and rename, so a crashed write never leaves a half-written
// catalog behind. Callers must hold the mutex.
func (c *Catalog) persistLocked() error {
	data, err := json.MarshalIndent(c.records, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: marshal: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("catalog: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("catalog: rename %s: %w", tmp, err)
	}
	return nil
}
