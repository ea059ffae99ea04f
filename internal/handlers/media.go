package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fahndung/internal/catalog"
	"fahndung/internal/imaging"
	"fahndung/internal/metrics"
	"fahndung/internal/models"
	"fahndung/internal/storage"
)

const (
	// maxUploadSize caps multipart uploads.
	maxUploadSize = 50 << 20 // 50 MiB

	// thumbnailDir is the bucket under the media root for thumbnails.
	thumbnailDir = "thumbnails"

	// publicPrefix is the URL prefix media paths are recorded under.
	publicPrefix = "/uploads"

	// archiveURLTTL is how long presigned archive links stay valid.
	archiveURLTTL = 15 * time.Minute
)

// archiveKey is where a record's untouched original lives in the archive.
func archiveKey(id, originalName string) string {
	return "originals/" + id + "/" + originalName
}

// Media groups the media library HTTP handlers: upload, catalog CRUD,
// search, and the image edit pipeline.
type Media struct {
	catalog   *catalog.Catalog
	mediaRoot string
	archive   *storage.Client // nil when no archive is configured
}

// NewMedia creates a new Media handler group.
func NewMedia(cat *catalog.Catalog, mediaRoot string, archive *storage.Client) *Media {
	return &Media{
		catalog:   cat,
		mediaRoot: mediaRoot,
		archive:   archive,
	}
}

// Upload accepts a multipart upload and registers it in the catalog.
// Images are re-encoded to WebP and thumbnailed; videos and documents are
// stored unchanged. Optional form fields: directory, altText, description,
// tags (comma-separated).
func (h *Media) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("upload read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty file")
		return
	}

	directory := models.NormalizeDirectory(r.FormValue("directory"))
	mimeType := sniffMimeType(data, header.Filename)

	rec := models.MediaRecord{
		ID:           uuid.New().String(),
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Directory:    directory,
		Tags:         splitTags(r.FormValue("tags")),
		AltText:      r.FormValue("altText"),
		Description:  r.FormValue("description"),
		UploadedAt:   time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if rec.Kind() == models.MediaKindImage {
		if err := h.storeImage(&rec, data); err != nil {
			slog.Error("image processing failed", "error", err, "file", header.Filename)
			writeError(w, http.StatusUnprocessableEntity, "could not process image")
			return
		}
	} else {
		if err := h.storeRaw(&rec, data); err != nil {
			slog.Error("file store failed", "error", err, "file", header.Filename)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	// Mirror the original bytes into the evidence archive if configured.
	if h.archive != nil {
		key := archiveKey(rec.ID, header.Filename)
		if err := h.archive.Upload(r.Context(), key, mimeType, bytes.NewReader(data), int64(len(data))); err != nil {
			slog.Warn("archive upload failed", "error", err, "key", key)
		}
	}

	if err := h.catalog.Add(rec); err != nil {
		slog.Error("catalog add failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.UploadsTotal.WithLabelValues(string(rec.Kind())).Inc()
	metrics.CatalogRecords.Set(float64(len(h.catalog.All())))
	slog.Info("media uploaded", "id", rec.ID, "name", rec.OriginalName, "kind", rec.Kind(), "directory", rec.Directory)
	writeJSON(w, http.StatusCreated, rec)
}

// storeImage re-encodes an uploaded image to WebP, writes it and a
// thumbnail under the media root, and fills in the record.
func (h *Media) storeImage(rec *models.MediaRecord, data []byte) error {
	meta, err := imaging.Probe(data)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	optimized, outMeta, err := imaging.Optimize(data)
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	filename := uploadFilename(rec.OriginalName, ".webp")
	if err := h.writeFile(rec.Directory, filename, optimized); err != nil {
		return err
	}

	rec.Filename = filename
	rec.Path = publicPrefix + "/" + rec.Directory + "/" + filename
	rec.Size = int64(len(optimized))
	rec.Width = outMeta.Width
	rec.Height = outMeta.Height
	rec.MimeType = "image/webp"
	rec.OriginalFormat = meta.Format
	rec.ConvertedFormat = "webp"
	rec.Optimized = true

	// Thumbnail failures are not fatal; the full image still serves.
	thumb, err := imaging.CreateThumbnail(data, imaging.ThumbnailSize, imaging.ThumbnailSize)
	if err != nil {
		slog.Warn("thumbnail generation failed", "error", err, "file", rec.OriginalName)
		return nil
	}
	thumbName := "thumb_" + filename
	if err := h.writeFile(thumbnailDir, thumbName, thumb); err != nil {
		slog.Warn("thumbnail write failed", "error", err, "file", thumbName)
		return nil
	}
	rec.ThumbnailPath = publicPrefix + "/" + thumbnailDir + "/" + thumbName
	return nil
}

// storeRaw writes a non-image upload unchanged.
func (h *Media) storeRaw(rec *models.MediaRecord, data []byte) error {
	filename := uploadFilename(rec.OriginalName, filepath.Ext(rec.OriginalName))
	if err := h.writeFile(rec.Directory, filename, data); err != nil {
		return err
	}
	rec.Filename = filename
	rec.Path = publicPrefix + "/" + rec.Directory + "/" + filename
	rec.Size = int64(len(data))
	return nil
}

// writeFile stores data under mediaRoot/<dir>/<name>, creating the
// directory as needed.
func (h *Media) writeFile(dir, name string, data []byte) error {
	target := filepath.Join(h.mediaRoot, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(target, name), data, 0o644); err != nil {
		return fmt.Errorf("write media file: %w", err)
	}
	return nil
}

// List returns all catalog records, optionally filtered by directory.
func (h *Media) List(w http.ResponseWriter, r *http.Request) {
	records := h.catalog.All()

	if dir := r.URL.Query().Get("directory"); dir != "" {
		dir = models.NormalizeDirectory(dir)
		filtered := records[:0]
		for _, rec := range records {
			if rec.Directory == dir {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	writeJSON(w, http.StatusOK, records)
}

// Get returns one catalog record by id.
func (h *Media) Get(w http.ResponseWriter, r *http.Request) {
	rec := h.catalog.Get(chi.URLParam(r, "id"))
	if rec == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Update applies a partial metadata update to a catalog record. The
// request body is a MediaUpdate: absent fields stay untouched.
func (h *Media) Update(w http.ResponseWriter, r *http.Request) {
	var upd models.MediaUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.catalog.Update(chi.URLParam(r, "id"), upd)
	if err != nil {
		slog.Error("catalog update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Delete removes a record from the catalog and its files from disk.
func (h *Media) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec := h.catalog.Get(id)
	if rec == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}

	removed, err := h.catalog.Delete(id)
	if err != nil {
		slog.Error("catalog delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}

	// File removal is best-effort; a dangling file is recoverable, a
	// dangling catalog entry is not.
	h.removeFile(rec.Path)
	if rec.ThumbnailPath != "" {
		h.removeFile(rec.ThumbnailPath)
	}
	if h.archive != nil {
		key := archiveKey(rec.ID, rec.OriginalName)
		if err := h.archive.Delete(r.Context(), key); err != nil {
			slog.Warn("archive delete failed", "error", err, "key", key)
		}
	}

	metrics.CatalogRecords.Set(float64(len(h.catalog.All())))
	slog.Info("media deleted", "id", id, "name", rec.OriginalName)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// removeFile deletes the on-disk file behind a public media path.
func (h *Media) removeFile(publicPath string) {
	rel := strings.TrimPrefix(publicPath, publicPrefix+"/")
	if rel == publicPath || strings.Contains(rel, "..") {
		return
	}
	if err := os.Remove(filepath.Join(h.mediaRoot, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
		slog.Warn("media file remove failed", "error", err, "path", publicPath)
	}
}

// Original streams a record's archived original upload. The files under
// the media root are re-encoded copies; this is the untouched evidence
// material, restorable even when the local asset is gone.
func (h *Media) Original(w http.ResponseWriter, r *http.Request) {
	rec := h.catalog.Get(chi.URLParam(r, "id"))
	if rec == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "evidence archive not configured")
		return
	}

	key := archiveKey(rec.ID, rec.OriginalName)
	data, err := h.archive.Download(r.Context(), key)
	if err != nil {
		slog.Error("archive download failed", "error", err, "key", key)
		writeError(w, http.StatusBadGateway, "archive unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.OriginalName))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// OriginalURL returns a short-lived presigned link to the archived
// original, so large evidence files can be handed out without proxying
// the bytes through the application.
func (h *Media) OriginalURL(w http.ResponseWriter, r *http.Request) {
	rec := h.catalog.Get(chi.URLParam(r, "id"))
	if rec == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "evidence archive not configured")
		return
	}

	key := archiveKey(rec.ID, rec.OriginalName)
	url, err := h.archive.PresignedURL(r.Context(), key, archiveURLTTL)
	if err != nil {
		slog.Error("archive presign failed", "error", err, "key", key)
		writeError(w, http.StatusBadGateway, "archive unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_in": int(archiveURLTTL.Seconds()),
	})
}

// moveRequest names the target directory bucket for a media move.
type moveRequest struct {
	Directory string `json:"directory"`
}

// Move relocates a record's file into another directory bucket and updates
// the catalog entry. Thumbnails live in a shared bucket and stay put.
func (h *Media) Move(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec := h.catalog.Get(id)
	if rec == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}

	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Directory) == "" {
		writeError(w, http.StatusBadRequest, "missing directory")
		return
	}

	dir := models.NormalizeDirectory(req.Directory)
	if dir == rec.Directory {
		writeJSON(w, http.StatusOK, rec)
		return
	}

	if err := os.MkdirAll(filepath.Join(h.mediaRoot, dir), 0o755); err != nil {
		slog.Error("media dir create failed", "error", err, "directory", dir)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	oldFile := filepath.Join(h.mediaRoot, rec.Directory, rec.Filename)
	newFile := filepath.Join(h.mediaRoot, dir, rec.Filename)
	if err := os.Rename(oldFile, newFile); err != nil && !os.IsNotExist(err) {
		slog.Error("media file move failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	publicPath := publicPrefix + "/" + dir + "/" + rec.Filename
	updated, err := h.catalog.Update(id, models.MediaUpdate{
		Directory: &dir,
		Path:      &publicPath,
	})
	if err != nil {
		slog.Error("catalog update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("media moved", "id", id, "from", rec.Directory, "to", dir)
	writeJSON(w, http.StatusOK, updated)
}

// Optimize re-encodes a stored image to WebP, replacing the asset in place.
// Records that are already optimized are returned unchanged.
func (h *Media) Optimize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec := h.catalog.Get(id)
	if rec == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	if rec.Kind() != models.MediaKindImage {
		writeError(w, http.StatusUnprocessableEntity, "only images can be optimized")
		return
	}
	if rec.Optimized {
		writeJSON(w, http.StatusOK, rec)
		return
	}

	data, err := h.readFile(rec.Path)
	if err != nil {
		slog.Error("media file read failed", "error", err, "path", rec.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	optimized, meta, err := imaging.Optimize(data)
	if err != nil {
		slog.Error("optimize failed", "error", err, "id", id)
		writeError(w, http.StatusUnprocessableEntity, "could not process image")
		return
	}

	filename := uploadFilename(rec.OriginalName, ".webp")
	if err := h.writeFile(rec.Directory, filename, optimized); err != nil {
		slog.Error("optimized file write failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	publicPath := publicPrefix + "/" + rec.Directory + "/" + filename
	size := int64(len(optimized))
	mime := "image/webp"
	converted := "webp"
	opt := true
	updated, err := h.catalog.Update(id, models.MediaUpdate{
		Filename:        &filename,
		Path:            &publicPath,
		Size:            &size,
		Width:           &meta.Width,
		Height:          &meta.Height,
		MimeType:        &mime,
		ConvertedFormat: &converted,
		Optimized:       &opt,
	})
	if err != nil {
		slog.Error("catalog update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// The replaced asset is no longer referenced.
	h.removeFile(rec.Path)
	slog.Info("media optimized", "id", id, "size", size)
	writeJSON(w, http.StatusOK, updated)
}

// Search returns records whose name or tags match the q parameter.
func (h *Media) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	records := h.catalog.Search(term)
	if records == nil {
		records = []models.MediaRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ByTags returns records carrying any of the comma-separated tags.
func (h *Media) ByTags(w http.ResponseWriter, r *http.Request) {
	tags := splitTags(r.URL.Query().Get("tags"))
	if len(tags) == 0 {
		writeError(w, http.StatusBadRequest, "missing query parameter tags")
		return
	}
	records := h.catalog.ByTags(tags)
	if records == nil {
		records = []models.MediaRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Tags returns the union of all tags in the catalog.
func (h *Media) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Tags())
}

// Directories returns the distinct directory buckets in the catalog.
func (h *Media) Directories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Directories())
}

// editResponse wraps the edited record with any pipeline warnings, such
// as a crop that was skipped for exceeding the image bounds.
type editResponse struct {
	Record   models.MediaRecord `json:"record"`
	Warnings []string           `json:"warnings,omitempty"`
}

// Edit runs the image edit pipeline on a catalog record and registers the
// result as a new record linked to the source via editedFrom. The source
// record and its file are left untouched.
func (h *Media) Edit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	src := h.catalog.Get(id)
	if src == nil {
		writeError(w, http.StatusNotFound, "media not found")
		return
	}
	if src.Kind() != models.MediaKindImage {
		writeError(w, http.StatusUnprocessableEntity, "only images can be edited")
		return
	}

	var params models.EditParams
	if err := decodeJSON(w, r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	data, err := h.readFile(src.Path)
	if err != nil {
		slog.Error("media file read failed", "error", err, "path", src.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	start := time.Now()
	result, err := imaging.ProcessEdits(data, &params)
	if err != nil {
		metrics.ImageEditsTotal.WithLabelValues("error").Inc()
		var vErr *imaging.EditValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		slog.Error("edit pipeline failed", "error", err, "id", id)
		writeError(w, http.StatusUnprocessableEntity, "could not process image")
		return
	}
	metrics.ImageEditsTotal.WithLabelValues("ok").Inc()
	metrics.ImageEditDuration.Observe(time.Since(start).Seconds())

	filename := imaging.GenerateOptimizedFilename(&params)
	if err := h.writeFile(src.Directory, filename, result.Data); err != nil {
		slog.Error("edited file write failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	rec := models.MediaRecord{
		ID:              uuid.New().String(),
		Filename:        filename,
		OriginalName:    src.OriginalName,
		Path:            publicPrefix + "/" + src.Directory + "/" + filename,
		Size:            int64(len(result.Data)),
		Width:           result.Width,
		Height:          result.Height,
		MimeType:        "image/webp",
		OriginalFormat:  src.OriginalFormat,
		ConvertedFormat: "webp",
		Directory:       src.Directory,
		Tags:            src.Tags,
		AltText:         src.AltText,
		UploadedAt:      time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
		Optimized:       true,
		Edits:           &params,
		EditedFrom:      src.ID,
	}

	if thumb, err := imaging.CreateThumbnail(result.Data, imaging.ThumbnailSize, imaging.ThumbnailSize); err == nil {
		thumbName := "thumb_" + filename
		if err := h.writeFile(thumbnailDir, thumbName, thumb); err == nil {
			rec.ThumbnailPath = publicPrefix + "/" + thumbnailDir + "/" + thumbName
		}
	}

	if err := h.catalog.Add(rec); err != nil {
		slog.Error("catalog add failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.CatalogRecords.Set(float64(len(h.catalog.All())))
	slog.Info("media edited", "source", src.ID, "result", rec.ID, "warnings", len(result.Warnings))
	writeJSON(w, http.StatusCreated, editResponse{Record: rec, Warnings: result.Warnings})
}

// readFile loads the on-disk file behind a public media path.
func (h *Media) readFile(publicPath string) ([]byte, error) {
	rel := strings.TrimPrefix(publicPath, publicPrefix+"/")
	if rel == publicPath || strings.Contains(rel, "..") {
		return nil, fmt.Errorf("path %q outside media root", publicPath)
	}
	return os.ReadFile(filepath.Join(h.mediaRoot, filepath.FromSlash(rel)))
}

// uploadFilename builds a collision-resistant stored filename from the
// upload timestamp and a slug of the original base name.
func uploadFilename(originalName, ext string) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	base = strings.ToLower(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base))
	base = strings.Trim(base, "-")
	if base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), base, ext)
}

// sniffMimeType determines the content type from the file bytes, falling
// back to the extension for formats http.DetectContentType cannot name.
func sniffMimeType(data []byte, filename string) string {
	detected := http.DetectContentType(data)
	if detected != "application/octet-stream" {
		return detected
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".heic", ".heif":
		return "image/heic"
	case ".avif":
		return "image/avif"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// splitTags parses a comma-separated tag list, trimming whitespace and
// dropping empty entries.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
