package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fahndung/internal/cache"
	"fahndung/internal/middleware"
	"fahndung/internal/models"
	"fahndung/internal/slug"
	"fahndung/internal/store"
)

// Notices groups all bulletin management HTTP handlers.
type Notices struct {
	noticeStore *store.NoticeStore
	responses   *cache.ResponseCache
}

// NewNotices creates a new Notices handler group. responses may be nil,
// in which case public responses are simply not cached.
func NewNotices(noticeStore *store.NoticeStore, responses *cache.ResponseCache) *Notices {
	return &Notices{
		noticeStore: noticeStore,
		responses:   responses,
	}
}

// noticeRequest carries the mutable fields for create and update.
type noticeRequest struct {
	Title        string     `json:"title"`
	CaseNumber   string     `json:"case_number"`
	Category     string     `json:"category"`
	Priority     string     `json:"priority"`
	Summary      string     `json:"summary"`
	Description  string     `json:"description"`
	Station      string     `json:"station"`
	Location     string     `json:"location"`
	IncidentDate *time.Time `json:"incident_date"`
	ContactInfo  string     `json:"contact_info"`
	MediaIDs     []string   `json:"media_ids"`
}

func (req *noticeRequest) validate() string {
	if req.Title == "" {
		return "title is required"
	}
	if !models.ValidCategory(req.Category) {
		return "unknown category"
	}
	switch models.NoticePriority(req.Priority) {
	case "", models.PriorityNormal, models.PriorityUrgent:
	default:
		return "unknown priority"
	}
	return ""
}

func (req *noticeRequest) priority() models.NoticePriority {
	if req.Priority == "" {
		return models.PriorityNormal
	}
	return models.NoticePriority(req.Priority)
}

// Create inserts a new draft notice. The slug is derived from the title
// and de-duplicated with a short suffix on collision.
func (h *Notices) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req noticeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	noticeSlug, err := h.uniqueSlug(req.Title)
	if err != nil {
		slog.Error("slug generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	notice, err := h.noticeStore.Create(&models.Notice{
		Title:        req.Title,
		Slug:         noticeSlug,
		CaseNumber:   req.CaseNumber,
		Category:     models.NoticeCategory(req.Category),
		Status:       models.NoticeStatusDraft,
		Priority:     req.priority(),
		Summary:      req.Summary,
		Description:  req.Description,
		Station:      req.Station,
		Location:     req.Location,
		IncidentDate: req.IncidentDate,
		ContactInfo:  req.ContactInfo,
		MediaIDs:     req.MediaIDs,
		AuthorID:     sess.UserID,
	})
	if err != nil {
		slog.Error("notice create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("notice created", "id", notice.ID, "slug", notice.Slug, "author", sess.Email)
	writeJSON(w, http.StatusCreated, notice)
}

// uniqueSlug derives a slug from the title, suffixing a short random
// fragment when the plain slug is already taken.
func (h *Notices) uniqueSlug(title string) (string, error) {
	base := slug.Generate(title)
	if base == "" {
		base = "fahndung"
	}

	existing, err := h.noticeStore.FindBySlug(base)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return base, nil
	}
	return base + "-" + uuid.New().String()[:8], nil
}

// List returns notices for the admin UI, filtered by optional category
// and status query parameters.
func (h *Notices) List(w http.ResponseWriter, r *http.Request) {
	filter := store.NoticeFilter{
		Category: models.NoticeCategory(r.URL.Query().Get("category")),
		Status:   models.NoticeStatus(r.URL.Query().Get("status")),
	}

	notices, err := h.noticeStore.List(filter)
	if err != nil {
		slog.Error("notice list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if notices == nil {
		notices = []models.Notice{}
	}
	writeJSON(w, http.StatusOK, notices)
}

// Search returns notices matching the q parameter across title, case
// number, and location.
func (h *Notices) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	notices, err := h.noticeStore.Search(term)
	if err != nil {
		slog.Error("notice search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if notices == nil {
		notices = []models.Notice{}
	}
	writeJSON(w, http.StatusOK, notices)
}

// Get returns one notice by id.
func (h *Notices) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notice id")
		return
	}

	notice, err := h.noticeStore.FindByID(id)
	if err != nil {
		slog.Error("notice lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if notice == nil {
		writeError(w, http.StatusNotFound, "notice not found")
		return
	}
	writeJSON(w, http.StatusOK, notice)
}

// Update replaces the mutable fields of a notice. The slug is not
// regenerated; published URLs stay stable across edits.
func (h *Notices) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notice id")
		return
	}

	var req noticeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	existing, err := h.noticeStore.FindByID(id)
	if err != nil {
		slog.Error("notice lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "notice not found")
		return
	}

	existing.Title = req.Title
	existing.CaseNumber = req.CaseNumber
	existing.Category = models.NoticeCategory(req.Category)
	existing.Priority = req.priority()
	existing.Summary = req.Summary
	existing.Description = req.Description
	existing.Station = req.Station
	existing.Location = req.Location
	existing.IncidentDate = req.IncidentDate
	existing.ContactInfo = req.ContactInfo
	existing.MediaIDs = req.MediaIDs

	updated, err := h.noticeStore.Update(existing)
	if err != nil {
		slog.Error("notice update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "notice not found")
		return
	}

	h.invalidateCache(r)
	writeJSON(w, http.StatusOK, updated)
}

// Publish transitions a notice to published and stamps published_at on
// the first publication.
func (h *Notices) Publish(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.NoticeStatusPublished)
}

// Close transitions a notice to closed. It disappears from the public
// API but keeps its publication timestamp for the record.
func (h *Notices) Close(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.NoticeStatusClosed)
}

func (h *Notices) setStatus(w http.ResponseWriter, r *http.Request, status models.NoticeStatus) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notice id")
		return
	}

	notice, err := h.noticeStore.SetStatus(id, status)
	if err != nil {
		slog.Error("notice status change failed", "error", err, "status", status)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if notice == nil {
		writeError(w, http.StatusNotFound, "notice not found")
		return
	}

	slog.Info("notice status changed", "id", notice.ID, "status", status)
	h.invalidateCache(r)
	writeJSON(w, http.StatusOK, notice)
}

// Delete removes a notice.
func (h *Notices) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notice id")
		return
	}

	deleted, err := h.noticeStore.Delete(id)
	if err != nil {
		slog.Error("notice delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if deleted == nil {
		writeError(w, http.StatusNotFound, "notice not found")
		return
	}

	slog.Info("notice deleted", "id", deleted.ID, "slug", deleted.Slug)
	h.invalidateCache(r)
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// PublicList returns published notices, optionally filtered by category.
// Responses are cached in Valkey keyed by the raw query string.
func (h *Notices) PublicList(w http.ResponseWriter, r *http.Request) {
	key := cache.NoticeListKey(r.URL.RawQuery)
	if h.serveCached(w, r, key) {
		return
	}

	filter := store.NoticeFilter{
		Category: models.NoticeCategory(r.URL.Query().Get("category")),
		Status:   models.NoticeStatusPublished,
	}

	notices, err := h.noticeStore.List(filter)
	if err != nil {
		slog.Error("public notice list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if notices == nil {
		notices = []models.Notice{}
	}
	h.writeAndCache(w, r, key, http.StatusOK, notices)
}

// PublicGet returns one published notice by slug. Draft and closed
// notices are not visible here.
func (h *Notices) PublicGet(w http.ResponseWriter, r *http.Request) {
	noticeSlug := chi.URLParam(r, "slug")
	key := cache.NoticeKey(noticeSlug)
	if h.serveCached(w, r, key) {
		return
	}

	notice, err := h.noticeStore.FindBySlug(noticeSlug)
	if err != nil {
		slog.Error("public notice lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if notice == nil || !notice.IsPublished() {
		writeError(w, http.StatusNotFound, "notice not found")
		return
	}
	h.writeAndCache(w, r, key, http.StatusOK, notice)
}

// serveCached writes a cached response body if one exists.
func (h *Notices) serveCached(w http.ResponseWriter, r *http.Request, key string) bool {
	if h.responses == nil {
		return false
	}
	body, ok := h.responses.Get(r.Context(), key)
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
	return true
}

// writeAndCache serializes v, stores the body in the response cache, and
// writes it to the client.
func (h *Notices) writeAndCache(w http.ResponseWriter, r *http.Request, key string, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h.responses != nil {
		h.responses.Set(r.Context(), key, buf.Bytes())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// invalidateCache clears all cached public responses after a mutation.
func (h *Notices) invalidateCache(r *http.Request) {
	if h.responses != nil {
		h.responses.InvalidateAll(r.Context())
	}
}
