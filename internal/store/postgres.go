package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shelfmark/api/internal/notes"
)

// PostgresStore persists resource trees. Every mutation that touches more
// than one row runs inside a single transaction so section numbering can
// never be observed half-applied.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ── Users ──

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users
		WHERE email=$1
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ── Resources ──

// CreateResource inserts the resource row, its sections, and their
// markers in one transaction. The caller supplies IDs, section numbers
// and marker order values; timestamps come from the database.
func (s *PostgresStore) CreateResource(ctx context.Context, resource notes.Resource) (notes.Resource, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return notes.Resource{}, fmt.Errorf("begin create resource: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO resources (id, owner_id, name, type, author, source_url, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, resource.ID, resource.OwnerID, resource.Name, resource.Type, resource.Author, resource.SourceURL, resource.IsPublic).
		Scan(&resource.CreatedAt, &resource.UpdatedAt)
	if err != nil {
		return notes.Resource{}, fmt.Errorf("insert resource: %w", err)
	}

	for i := range resource.Sections {
		section := &resource.Sections[i]
		section.ResourceID = resource.ID
		err = tx.QueryRowContext(ctx, `
			INSERT INTO sections (id, resource_id, title, number)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at, updated_at
		`, section.ID, section.ResourceID, section.Title, section.Number).
			Scan(&section.CreatedAt, &section.UpdatedAt)
		if err != nil {
			return notes.Resource{}, fmt.Errorf("insert section: %w", err)
		}

		for j := range section.Markers {
			marker := &section.Markers[j]
			marker.SectionID = section.ID
			err = tx.QueryRowContext(ctx, `
				INSERT INTO markers (id, section_id, author_id, position, order_num, quote, note, type)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING created_at, updated_at
			`, marker.ID, marker.SectionID, marker.AuthorID, marker.Position, marker.OrderNum, marker.Quote, marker.Note, marker.Type).
				Scan(&marker.CreatedAt, &marker.UpdatedAt)
			if err != nil {
				return notes.Resource{}, fmt.Errorf("insert marker: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return notes.Resource{}, fmt.Errorf("commit create resource: %w", err)
	}
	return resource, nil
}

// GetResource returns the resource row only; Sections is nil.
func (s *PostgresStore) GetResource(ctx context.Context, resourceID string) (notes.Resource, error) {
	var item notes.Resource
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, type, author, source_url, is_public, created_at, updated_at
		FROM resources
		WHERE id=$1
	`, resourceID).Scan(&item.ID, &item.OwnerID, &item.Name, &item.Type, &item.Author, &item.SourceURL, &item.IsPublic, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return notes.Resource{}, err
	}
	return item, nil
}

// GetResourceTree returns a resource with its sections ordered by number
// and each section's markers (unsorted; display order is computed by the
// caller through notes.SortMarkers).
func (s *PostgresStore) GetResourceTree(ctx context.Context, resourceID string) (notes.Resource, error) {
	resource, err := s.GetResource(ctx, resourceID)
	if err != nil {
		return notes.Resource{}, err
	}

	sections, err := s.ListSections(ctx, resourceID)
	if err != nil {
		return notes.Resource{}, err
	}
	for i := range sections {
		markers, err := s.ListMarkers(ctx, sections[i].ID)
		if err != nil {
			return notes.Resource{}, err
		}
		sections[i].Markers = markers
	}
	resource.Sections = sections
	return resource, nil
}

// ListVisible returns every public resource plus, when requesterID is not
// empty, the requester's own private resources. Sections come with
// titles and numbers only.
func (s *PostgresStore) ListVisible(ctx context.Context, requesterID string) ([]notes.Resource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, type, author, source_url, is_public, created_at, updated_at
		FROM resources
		WHERE is_public OR ($1 <> '' AND owner_id=$1)
		ORDER BY updated_at DESC
	`, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	items := make([]notes.Resource, 0)
	for rows.Next() {
		var item notes.Resource
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Type, &item.Author, &item.SourceURL, &item.IsPublic, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}

	for i := range items {
		sections, err := s.ListSections(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Sections = sections
	}
	return items, nil
}

func (s *PostgresStore) UpdateResourceMeta(ctx context.Context, resourceID, name, resourceType, author, sourceURL string) (notes.Resource, error) {
	var item notes.Resource
	err := s.db.QueryRowContext(ctx, `
		UPDATE resources
		SET name=$2, type=$3, author=$4, source_url=$5, updated_at=NOW()
		WHERE id=$1
		RETURNING id, owner_id, name, type, author, source_url, is_public, created_at, updated_at
	`, resourceID, name, resourceType, author, sourceURL).
		Scan(&item.ID, &item.OwnerID, &item.Name, &item.Type, &item.Author, &item.SourceURL, &item.IsPublic, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return notes.Resource{}, err
	}
	return item, nil
}

func (s *PostgresStore) SetResourceVisibility(ctx context.Context, resourceID string, isPublic bool) (notes.Resource, error) {
	var item notes.Resource
	err := s.db.QueryRowContext(ctx, `
		UPDATE resources
		SET is_public=$2, updated_at=NOW()
		WHERE id=$1
		RETURNING id, owner_id, name, type, author, source_url, is_public, created_at, updated_at
	`, resourceID, isPublic).
		Scan(&item.ID, &item.OwnerID, &item.Name, &item.Type, &item.Author, &item.SourceURL, &item.IsPublic, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return notes.Resource{}, err
	}
	return item, nil
}

// DeleteResource removes the resource; sections, markers and comments go
// with it through the ON DELETE CASCADE chain, so the single statement is
// already atomic.
func (s *PostgresStore) DeleteResource(ctx context.Context, resourceID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE id=$1`, resourceID)
	if err != nil {
		return false, fmt.Errorf("delete resource: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete resource rows: %w", err)
	}
	return affected > 0, nil
}

// ── Sections ──

func (s *PostgresStore) ListSections(ctx context.Context, resourceID string) ([]notes.Section, error) {
	return listSections(ctx, s.db, resourceID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func listSections(ctx context.Context, q queryer, resourceID string) ([]notes.Section, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, resource_id, title, number, created_at, updated_at
		FROM sections
		WHERE resource_id=$1
		ORDER BY number ASC
	`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	items := make([]notes.Section, 0)
	for rows.Next() {
		var item notes.Section
		if err := rows.Scan(&item.ID, &item.ResourceID, &item.Title, &item.Number, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		item.Markers = make([]notes.Marker, 0)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return items, nil
}

// AddSection assigns the next contiguous number inside the transaction
// that also inserts the row, so two appends cannot read the same maximum
// and both land on it without one of them failing the unique constraint.
func (s *PostgresStore) AddSection(ctx context.Context, resourceID string, section notes.Section) (notes.Section, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return notes.Section{}, fmt.Errorf("begin add section: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM resources WHERE id=$1)`, resourceID).Scan(&exists); err != nil {
		return notes.Section{}, fmt.Errorf("check resource: %w", err)
	}
	if !exists {
		return notes.Section{}, sql.ErrNoRows
	}

	existing, err := listSections(ctx, tx, resourceID)
	if err != nil {
		return notes.Section{}, err
	}

	section.ResourceID = resourceID
	section.Number = notes.NextSectionNumber(existing)
	section.Markers = make([]notes.Marker, 0)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sections (id, resource_id, title, number)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, section.ID, section.ResourceID, section.Title, section.Number).
		Scan(&section.CreatedAt, &section.UpdatedAt)
	if err != nil {
		return notes.Section{}, fmt.Errorf("insert section: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE resources SET updated_at=NOW() WHERE id=$1`, resourceID); err != nil {
		return notes.Section{}, fmt.Errorf("touch resource: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return notes.Section{}, fmt.Errorf("commit add section: %w", err)
	}
	return section, nil
}

func (s *PostgresStore) RenameSection(ctx context.Context, resourceID, sectionID, title string) (notes.Section, error) {
	var item notes.Section
	err := s.db.QueryRowContext(ctx, `
		UPDATE sections
		SET title=$3, updated_at=NOW()
		WHERE resource_id=$1 AND id=$2
		RETURNING id, resource_id, title, number, created_at, updated_at
	`, resourceID, sectionID, title).
		Scan(&item.ID, &item.ResourceID, &item.Title, &item.Number, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return notes.Section{}, err
	}
	item.Markers = make([]notes.Marker, 0)
	return item, nil
}

// DeleteSection removes the section (its markers cascade) and closes the
// numbering gap in the same transaction. The renumbering comes from the
// shared ordering engine; the deferred unique constraint tolerates the
// transient duplicates while the decrement runs.
func (s *PostgresStore) DeleteSection(ctx context.Context, resourceID, sectionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete section: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var deletedNumber int
	err = tx.QueryRowContext(ctx, `
		SELECT number FROM sections WHERE resource_id=$1 AND id=$2
	`, resourceID, sectionID).Scan(&deletedNumber)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE resource_id=$1 AND id=$2`, resourceID, sectionID); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}

	remaining, err := listSections(ctx, tx, resourceID)
	if err != nil {
		return err
	}
	for _, change := range notes.RenumberAfterDelete(remaining, deletedNumber) {
		if _, err := tx.ExecContext(ctx, `
			UPDATE sections SET number=$2, updated_at=NOW() WHERE id=$1
		`, change.ID, change.NewNumber); err != nil {
			return fmt.Errorf("renumber section %s: %w", change.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE resources SET updated_at=NOW() WHERE id=$1`, resourceID); err != nil {
		return fmt.Errorf("touch resource: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete section: %w", err)
	}
	return nil
}

// ── Markers ──

func (s *PostgresStore) ListMarkers(ctx context.Context, sectionID string) ([]notes.Marker, error) {
	return listMarkers(ctx, s.db, sectionID)
}

func listMarkers(ctx context.Context, q queryer, sectionID string) ([]notes.Marker, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, section_id, author_id, position, order_num, quote, note, type, created_at, updated_at
		FROM markers
		WHERE section_id=$1
		ORDER BY order_num ASC
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	defer rows.Close()

	items := make([]notes.Marker, 0)
	for rows.Next() {
		var item notes.Marker
		if err := rows.Scan(&item.ID, &item.SectionID, &item.AuthorID, &item.Position, &item.OrderNum, &item.Quote, &item.Note, &item.Type, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate markers: %w", err)
	}
	return items, nil
}

// sectionInResource resolves the (resource, section) pair. A section that
// exists but belongs to a different resource reads as not found.
func sectionInResource(ctx context.Context, q queryer, resourceID, sectionID string) error {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM sections WHERE resource_id=$1 AND id=$2)
	`, resourceID, sectionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check section: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return nil
}

// AddMarker verifies the (resource, section) pair and assigns the next
// order value inside one transaction.
func (s *PostgresStore) AddMarker(ctx context.Context, resourceID, sectionID string, marker notes.Marker) (notes.Marker, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return notes.Marker{}, fmt.Errorf("begin add marker: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := sectionInResource(ctx, tx, resourceID, sectionID); err != nil {
		return notes.Marker{}, err
	}

	existing, err := listMarkers(ctx, tx, sectionID)
	if err != nil {
		return notes.Marker{}, err
	}

	marker.SectionID = sectionID
	marker.OrderNum = notes.NextOrderNum(existing)
	err = tx.QueryRowContext(ctx, `
		INSERT INTO markers (id, section_id, author_id, position, order_num, quote, note, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, marker.ID, marker.SectionID, marker.AuthorID, marker.Position, marker.OrderNum, marker.Quote, marker.Note, marker.Type).
		Scan(&marker.CreatedAt, &marker.UpdatedAt)
	if err != nil {
		return notes.Marker{}, fmt.Errorf("insert marker: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return notes.Marker{}, fmt.Errorf("commit add marker: %w", err)
	}
	return marker, nil
}

// UpdateMarker applies a partial update after resolving the full
// (resource, section, marker) triple. A mismatched triple is not found,
// never a cross-resource write.
func (s *PostgresStore) UpdateMarker(ctx context.Context, resourceID, sectionID, markerID string, patch MarkerPatch) (notes.Marker, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return notes.Marker{}, fmt.Errorf("begin update marker: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var item notes.Marker
	err = tx.QueryRowContext(ctx, `
		SELECT m.id, m.section_id, m.author_id, m.position, m.order_num, m.quote, m.note, m.type, m.created_at, m.updated_at
		FROM markers m
		JOIN sections s ON s.id = m.section_id
		WHERE s.resource_id=$1 AND m.section_id=$2 AND m.id=$3
	`, resourceID, sectionID, markerID).
		Scan(&item.ID, &item.SectionID, &item.AuthorID, &item.Position, &item.OrderNum, &item.Quote, &item.Note, &item.Type, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return notes.Marker{}, err
	}

	if patch.Position != nil {
		item.Position = *patch.Position
	}
	if patch.Quote != nil {
		item.Quote = *patch.Quote
	}
	if patch.Note != nil {
		item.Note = *patch.Note
	}
	if patch.Type != nil {
		item.Type = *patch.Type
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE markers
		SET position=$2, quote=$3, note=$4, type=$5, updated_at=NOW()
		WHERE id=$1
		RETURNING updated_at
	`, item.ID, item.Position, item.Quote, item.Note, item.Type).Scan(&item.UpdatedAt)
	if err != nil {
		return notes.Marker{}, fmt.Errorf("update marker: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return notes.Marker{}, fmt.Errorf("commit update marker: %w", err)
	}
	return item, nil
}

// DeleteMarker hard-deletes the marker; order values are not renumbered.
func (s *PostgresStore) DeleteMarker(ctx context.Context, resourceID, sectionID, markerID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM markers m
		USING sections s
		WHERE s.id = m.section_id AND s.resource_id=$1 AND m.section_id=$2 AND m.id=$3
	`, resourceID, sectionID, markerID)
	if err != nil {
		return false, fmt.Errorf("delete marker: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete marker rows: %w", err)
	}
	return affected > 0, nil
}

// GetMarker resolves the (resource, section, marker) triple.
func (s *PostgresStore) GetMarker(ctx context.Context, resourceID, sectionID, markerID string) (notes.Marker, error) {
	var item notes.Marker
	err := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.section_id, m.author_id, m.position, m.order_num, m.quote, m.note, m.type, m.created_at, m.updated_at
		FROM markers m
		JOIN sections s ON s.id = m.section_id
		WHERE s.resource_id=$1 AND m.section_id=$2 AND m.id=$3
	`, resourceID, sectionID, markerID).
		Scan(&item.ID, &item.SectionID, &item.AuthorID, &item.Position, &item.OrderNum, &item.Quote, &item.Note, &item.Type, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return notes.Marker{}, err
	}
	return item, nil
}

// ── Comments ──

func (s *PostgresStore) InsertComment(ctx context.Context, comment notes.Comment) (notes.Comment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (id, marker_id, author_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, comment.ID, comment.MarkerID, comment.AuthorID, comment.Content).
		Scan(&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return notes.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, markerID string) ([]notes.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.marker_id, c.author_id, u.display_name, c.content, c.created_at, c.updated_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.marker_id=$1
		ORDER BY c.created_at ASC
	`, markerID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]notes.Comment, 0)
	for rows.Next() {
		var item notes.Comment
		if err := rows.Scan(&item.ID, &item.MarkerID, &item.AuthorID, &item.AuthorName, &item.Content, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetComment(ctx context.Context, markerID, commentID string) (notes.Comment, error) {
	var item notes.Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.marker_id, c.author_id, u.display_name, c.content, c.created_at, c.updated_at
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.marker_id=$1 AND c.id=$2
	`, markerID, commentID).
		Scan(&item.ID, &item.MarkerID, &item.AuthorID, &item.AuthorName, &item.Content, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return notes.Comment{}, err
	}
	return item, nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, markerID, commentID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM comments WHERE marker_id=$1 AND id=$2
	`, markerID, commentID)
	if err != nil {
		return false, fmt.Errorf("delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete comment rows: %w", err)
	}
	return affected > 0, nil
}

// CountRowsForResource reports how many section, marker and comment rows
// still reference the resource. Used by cascade tests.
func (s *PostgresStore) CountRowsForResource(ctx context.Context, resourceID string) (sections, markers, comments int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sections WHERE resource_id=$1`, resourceID).Scan(&sections); err != nil {
		err = fmt.Errorf("count sections: %w", err)
		return
	}
	if err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM markers m JOIN sections s ON s.id=m.section_id WHERE s.resource_id=$1
	`, resourceID).Scan(&markers); err != nil {
		err = fmt.Errorf("count markers: %w", err)
		return
	}
	if err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM comments c
		JOIN markers m ON m.id=c.marker_id
		JOIN sections s ON s.id=m.section_id
		WHERE s.resource_id=$1
	`, resourceID).Scan(&comments); err != nil {
		err = fmt.Errorf("count comments: %w", err)
		return
	}
	return
}

// IsNotFound reports whether err is the store's row-missing signal.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
