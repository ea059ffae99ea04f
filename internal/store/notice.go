package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fahndung/internal/models"
)

// NoticeStore handles all bulletin-related database operations.
type NoticeStore struct {
	db *sql.DB
}

// NewNoticeStore creates a new NoticeStore with the given database connection.
func NewNoticeStore(db *sql.DB) *NoticeStore {
	return &NoticeStore{db: db}
}

// NoticeFilter narrows List queries. Zero values mean "no filter".
type NoticeFilter struct {
	Category models.NoticeCategory
	Status   models.NoticeStatus
	Limit    int
	Offset   int
}

const noticeColumns = `id, title, slug, case_number, category, status, priority,
	summary, description, station, location, incident_date, contact_info,
	media_ids, author_id, published_at, created_at, updated_at`

// scanNotice scans a notice row, unpacking the media id list from JSONB.
func scanNotice(scanner interface{ Scan(...any) error }) (*models.Notice, error) {
	var n models.Notice
	var mediaIDs []byte
	err := scanner.Scan(
		&n.ID, &n.Title, &n.Slug, &n.CaseNumber, &n.Category, &n.Status, &n.Priority,
		&n.Summary, &n.Description, &n.Station, &n.Location, &n.IncidentDate, &n.ContactInfo,
		&mediaIDs, &n.AuthorID, &n.PublishedAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(mediaIDs) > 0 {
		if err := json.Unmarshal(mediaIDs, &n.MediaIDs); err != nil {
			return nil, fmt.Errorf("unpack media ids: %w", err)
		}
	}
	return &n, nil
}

func packMediaIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("pack media ids: %w", err)
	}
	return data, nil
}

// Create inserts a new notice and returns it with generated fields filled in.
func (s *NoticeStore) Create(n *models.Notice) (*models.Notice, error) {
	mediaIDs, err := packMediaIDs(n.MediaIDs)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(`
		INSERT INTO notices (title, slug, case_number, category, status, priority,
			summary, description, station, location, incident_date, contact_info,
			media_ids, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+noticeColumns,
		n.Title, n.Slug, n.CaseNumber, n.Category, n.Status, n.Priority,
		n.Summary, n.Description, n.Station, n.Location, n.IncidentDate, n.ContactInfo,
		mediaIDs, n.AuthorID,
	)
	created, err := scanNotice(row)
	if err != nil {
		return nil, fmt.Errorf("create notice: %w", err)
	}
	return created, nil
}

// FindByID retrieves a single notice by its UUID. Returns nil if not found.
func (s *NoticeStore) FindByID(id uuid.UUID) (*models.Notice, error) {
	row := s.db.QueryRow(`SELECT `+noticeColumns+` FROM notices WHERE id = $1`, id)
	n, err := scanNotice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find notice by id: %w", err)
	}
	return n, nil
}

// FindBySlug retrieves a single notice by its public slug. Returns nil if
// not found.
func (s *NoticeStore) FindBySlug(slug string) (*models.Notice, error) {
	row := s.db.QueryRow(`SELECT `+noticeColumns+` FROM notices WHERE slug = $1`, slug)
	n, err := scanNotice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find notice by slug: %w", err)
	}
	return n, nil
}

// List returns notices matching the filter, newest first.
func (s *NoticeStore) List(f NoticeFilter) ([]models.Notice, error) {
	query := `SELECT ` + noticeColumns + ` FROM notices WHERE 1=1`
	var args []any

	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	return collectNotices(rows)
}

// Search returns notices whose title, case number, or location matches the
// term, case-insensitively, newest first.
func (s *NoticeStore) Search(term string) ([]models.Notice, error) {
	pattern := "%" + term + "%"
	rows, err := s.db.Query(`
		SELECT `+noticeColumns+`
		FROM notices
		WHERE title ILIKE $1 OR case_number ILIKE $1 OR location ILIKE $1
		ORDER BY created_at DESC
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search notices: %w", err)
	}
	defer rows.Close()

	return collectNotices(rows)
}

func collectNotices(rows *sql.Rows) ([]models.Notice, error) {
	var notices []models.Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		notices = append(notices, *n)
	}
	return notices, rows.Err()
}

// Update replaces the mutable fields of a notice and returns the stored row.
// Returns nil if the id is unknown.
func (s *NoticeStore) Update(n *models.Notice) (*models.Notice, error) {
	mediaIDs, err := packMediaIDs(n.MediaIDs)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(`
		UPDATE notices
		SET title = $1, slug = $2, case_number = $3, category = $4, priority = $5,
			summary = $6, description = $7, station = $8, location = $9,
			incident_date = $10, contact_info = $11, media_ids = $12, updated_at = NOW()
		WHERE id = $13
		RETURNING `+noticeColumns,
		n.Title, n.Slug, n.CaseNumber, n.Category, n.Priority,
		n.Summary, n.Description, n.Station, n.Location,
		n.IncidentDate, n.ContactInfo, mediaIDs, n.ID,
	)
	updated, err := scanNotice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update notice: %w", err)
	}
	return updated, nil
}

// SetStatus transitions a notice's publishing state. Publishing stamps
// published_at once; closing leaves it in place for the record.
func (s *NoticeStore) SetStatus(id uuid.UUID, status models.NoticeStatus) (*models.Notice, error) {
	var publishedAt any
	if status == models.NoticeStatusPublished {
		publishedAt = time.Now().UTC()
	}

	row := s.db.QueryRow(`
		UPDATE notices
		SET status = $1,
			published_at = COALESCE(published_at, $2),
			updated_at = NOW()
		WHERE id = $3
		RETURNING `+noticeColumns,
		status, publishedAt, id,
	)
	n, err := scanNotice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("set notice status: %w", err)
	}
	return n, nil
}

// Delete removes a notice and returns it so the caller can clean up any
// attached media. Returns nil if the id is unknown.
func (s *NoticeStore) Delete(id uuid.UUID) (*models.Notice, error) {
	row := s.db.QueryRow(`
		DELETE FROM notices WHERE id = $1
		RETURNING `+noticeColumns, id)
	n, err := scanNotice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete notice: %w", err)
	}
	return n, nil
}

// Count returns the total number of notices, optionally restricted to a
// status.
func (s *NoticeStore) Count(status models.NoticeStatus) (int, error) {
	var count int
	var err error
	if status == "" {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM notices`).Scan(&count)
	} else {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM notices WHERE status = $1`, status).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count notices: %w", err)
	}
	return count, nil
}
