package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/notely/internal/models"
)

const noteColumns = `n.id, n.title, n.content, n.user_id, n.created_at, n.updated_at`

// NoteInput carries the writable fields of a note. ID is ignored on create.
type NoteInput struct {
	ID      int64
	Title   string
	Content string
	OwnerID int64
	Tags    []string
}

// ListFilter narrows ListNotes. Empty fields are ignored; set fields are ANDed.
type ListFilter struct {
	Tag    string // exact tag name
	Title  string // case-insensitive substring of title
	Search string // case-insensitive substring of title or content
}

// errNoMatch aborts a transaction whose target row is absent or not owned.
var errNoMatch = errors.New("store: no matching note")

// CreateNote inserts a note and attaches its tags in a single transaction.
func (s *Store) CreateNote(ctx context.Context, in NoteInput) (*models.Note, error) {
	var note *models.Note
	err := s.inTx(ctx, func(q querier) error {
		now := s.timestamp()
		res, err := q.ExecContext(ctx,
			`INSERT INTO notes (title, content, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			in.Title, in.Content, in.OwnerID, now, now)
		if err != nil {
			return fmt.Errorf("store: insert note: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("store: insert note: last insert id: %w", err)
		}
		if err := s.syncTags(ctx, q, id, in.Tags); err != nil {
			return err
		}
		note, err = getNote(ctx, q, id, in.OwnerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// UpdateNote replaces title, content and the full tag set of the note
// matching (in.ID, in.OwnerID). It returns nil, nil when no such note exists.
func (s *Store) UpdateNote(ctx context.Context, in NoteInput) (*models.Note, error) {
	var note *models.Note
	err := s.inTx(ctx, func(q querier) error {
		var exists int
		err := q.QueryRowContext(ctx,
			`SELECT 1 FROM notes WHERE id = ? AND user_id = ?`, in.ID, in.OwnerID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return errNoMatch
		}
		if err != nil {
			return fmt.Errorf("store: check note: %w", err)
		}

		if _, err := q.ExecContext(ctx,
			`UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			in.Title, in.Content, s.timestamp(), in.ID, in.OwnerID); err != nil {
			return fmt.Errorf("store: update note: %w", err)
		}
		if err := s.syncTags(ctx, q, in.ID, in.Tags); err != nil {
			return err
		}
		note, err = getNote(ctx, q, in.ID, in.OwnerID)
		return err
	})
	if errors.Is(err, errNoMatch) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return note, nil
}

// DeleteNote removes the note matching (id, ownerID) and its tag
// associations. It returns the number of notes deleted (0 or 1).
func (s *Store) DeleteNote(ctx context.Context, id, ownerID int64) (int64, error) {
	var affected int64
	err := s.inTx(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx, `
			DELETE FROM note_tags
			WHERE note_id IN (SELECT id FROM notes WHERE id = ? AND user_id = ?)
		`, id, ownerID); err != nil {
			return fmt.Errorf("store: delete note tags: %w", err)
		}
		res, err := q.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, ownerID)
		if err != nil {
			return fmt.Errorf("store: delete note: %w", err)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("store: delete note: rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// GetNote returns the note matching (id, ownerID) with its tags, or nil.
func (s *Store) GetNote(ctx context.Context, id, ownerID int64) (*models.Note, error) {
	return getNote(ctx, s.wrap(s.conn), id, ownerID)
}

func getNote(ctx context.Context, q querier, id, ownerID int64) (*models.Note, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes n WHERE n.id = ? AND n.user_id = ?`, id, ownerID)
	var n models.Note
	err := row.Scan(&n.ID, &n.Title, &n.Content, &n.UserID, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	tags, err := attachedTags(ctx, q, n.ID)
	if err != nil {
		return nil, err
	}
	n.Tags = make([]string, len(tags))
	for i, t := range tags {
		n.Tags[i] = t.Name
	}
	return &n, nil
}

// ListNotes returns the owner's notes matching f, most recently updated first.
// Tags for the whole page are loaded with one batched query.
func (s *Store) ListNotes(ctx context.Context, ownerID int64, f ListFilter) ([]models.Note, error) {
	q := s.wrap(s.conn)

	var sb strings.Builder
	sb.WriteString(`SELECT ` + noteColumns + ` FROM notes n WHERE n.user_id = ?`)
	args := []any{ownerID}
	if f.Tag != "" {
		sb.WriteString(` AND EXISTS (
			SELECT 1 FROM note_tags nt
			INNER JOIN tags t ON t.id = nt.tag_id
			WHERE nt.note_id = n.id AND t.name = ?
		)`)
		args = append(args, f.Tag)
	}
	if f.Title != "" {
		sb.WriteString(` AND ` + s.dialect.lower + `(n.title) LIKE ? ESCAPE '!'`)
		args = append(args, containsPattern(f.Title))
	}
	if f.Search != "" {
		lower := s.dialect.lower
		sb.WriteString(` AND (` + lower + `(n.title) LIKE ? ESCAPE '!' OR ` + lower + `(n.content) LIKE ? ESCAPE '!')`)
		p := containsPattern(f.Search)
		args = append(args, p, p)
	}
	sb.WriteString(` ORDER BY n.updated_at DESC, n.id DESC`)

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0)
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.UserID, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	rows.Close()

	if len(notes) == 0 {
		return notes, nil
	}
	ids := make([]int64, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	tags, err := tagsForNotes(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		notes[i].Tags = tags[notes[i].ID]
		if notes[i].Tags == nil {
			notes[i].Tags = []string{}
		}
	}
	return notes, nil
}

// containsPattern builds a lower-cased LIKE pattern matching s anywhere,
// escaping LIKE metacharacters with '!'.
func containsPattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
