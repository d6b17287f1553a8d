package store

import (
	"context"
	"fmt"

	"github.com/starford/notely/internal/models"
)

// maxBatch bounds the number of values bound in one IN (...) or VALUES list.
const maxBatch = 500

// tagPlan is what has to change for a note's tags to equal the desired set.
type tagPlan struct {
	Attach []string // names not yet attached
	Detach []int64  // tag ids no longer wanted
}

func (p tagPlan) empty() bool {
	return len(p.Attach) == 0 && len(p.Detach) == 0
}

// planTags diffs current associations against desired names. Desired names
// may repeat; each is attached at most once. Output order follows input order.
func planTags(current []models.Tag, desired []string) tagPlan {
	want := make(map[string]struct{}, len(desired))
	for _, name := range desired {
		want[name] = struct{}{}
	}
	have := make(map[string]struct{}, len(current))
	var plan tagPlan
	for _, t := range current {
		have[t.Name] = struct{}{}
		if _, ok := want[t.Name]; !ok {
			plan.Detach = append(plan.Detach, t.ID)
		}
	}
	for _, name := range desired {
		if _, ok := have[name]; ok {
			continue
		}
		have[name] = struct{}{}
		plan.Attach = append(plan.Attach, name)
	}
	return plan
}

// syncTags makes the note's associations exactly equal to desired.
func (s *Store) syncTags(ctx context.Context, q querier, noteID int64, desired []string) error {
	current, err := attachedTags(ctx, q, noteID)
	if err != nil {
		return err
	}
	plan := planTags(current, desired)
	if plan.empty() {
		return nil
	}
	if err := detachTags(ctx, q, noteID, plan.Detach); err != nil {
		return err
	}
	if len(plan.Attach) == 0 {
		return nil
	}
	ids, err := s.ensureTags(ctx, q, plan.Attach)
	if err != nil {
		return err
	}
	return s.attachTags(ctx, q, noteID, ids)
}

func attachedTags(ctx context.Context, q querier, noteID int64) ([]models.Tag, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.id, t.name
		FROM note_tags nt
		INNER JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id = ?
		ORDER BY t.name
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("store: load note tags: %w", err)
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("store: scan note tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func detachTags(ctx context.Context, q querier, noteID int64, tagIDs []int64) error {
	for start := 0; start < len(tagIDs); start += maxBatch {
		chunk := tagIDs[start:min(start+maxBatch, len(tagIDs))]
		args := make([]any, 0, len(chunk)+1)
		args = append(args, noteID)
		for _, id := range chunk {
			args = append(args, id)
		}
		query := `DELETE FROM note_tags WHERE note_id = ? AND tag_id IN (` + placeholders(len(chunk)) + `)`
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("store: detach tags: %w", err)
		}
	}
	return nil
}

// ensureTags creates any missing tag names and returns the ids of all names.
// names must be distinct. A name inserted concurrently by another transaction
// is reused, not an error.
func (s *Store) ensureTags(ctx context.Context, q querier, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for start := 0; start < len(names); start += maxBatch {
		chunk := names[start:min(start+maxBatch, len(names))]
		args := make([]any, len(chunk))
		values := make([]byte, 0, len(chunk)*5)
		for i, name := range chunk {
			args[i] = name
			if i > 0 {
				values = append(values, ", "...)
			}
			values = append(values, "(?)"...)
		}

		insert := `INSERT INTO tags (name) VALUES ` + string(values) + s.dialect.ignoreDuplicate("name")
		if _, err := q.ExecContext(ctx, insert, args...); err != nil {
			return nil, fmt.Errorf("store: insert tags: %w", err)
		}

		rows, err := q.QueryContext(ctx,
			`SELECT id FROM tags WHERE name IN (`+placeholders(len(chunk))+`)`+s.dialect.lockingRead, args...)
		if err != nil {
			return nil, fmt.Errorf("store: lookup tags: %w", err)
		}
		found := 0
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("store: scan tag id: %w", err)
			}
			ids = append(ids, id)
			found++
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("store: lookup tags: %w", err)
		}
		if found != len(chunk) {
			return nil, fmt.Errorf("store: lookup tags: found %d of %d", found, len(chunk))
		}
	}
	return ids, nil
}

func (s *Store) attachTags(ctx context.Context, q querier, noteID int64, tagIDs []int64) error {
	for start := 0; start < len(tagIDs); start += maxBatch {
		chunk := tagIDs[start:min(start+maxBatch, len(tagIDs))]
		args := make([]any, 0, len(chunk)*2)
		values := make([]byte, 0, len(chunk)*8)
		for i, id := range chunk {
			args = append(args, noteID, id)
			if i > 0 {
				values = append(values, ", "...)
			}
			values = append(values, "(?, ?)"...)
		}
		insert := `INSERT INTO note_tags (note_id, tag_id) VALUES ` + string(values) + s.dialect.ignoreDuplicate("tag_id")
		if _, err := q.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("store: attach tags: %w", err)
		}
	}
	return nil
}

// tagsForNotes returns tag names keyed by note id, fetched in one query per
// maxBatch notes rather than one per note.
func tagsForNotes(ctx context.Context, q querier, noteIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(noteIDs))
	for start := 0; start < len(noteIDs); start += maxBatch {
		chunk := noteIDs[start:min(start+maxBatch, len(noteIDs))]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		rows, err := q.QueryContext(ctx, `
			SELECT nt.note_id, t.name
			FROM note_tags nt
			INNER JOIN tags t ON t.id = nt.tag_id
			WHERE nt.note_id IN (`+placeholders(len(chunk))+`)
			ORDER BY t.name
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("store: batch tags: %w", err)
		}
		for rows.Next() {
			var (
				noteID int64
				name   string
			)
			if err := rows.Scan(&noteID, &name); err != nil {
				rows.Close()
				return nil, fmt.Errorf("store: scan batch tag: %w", err)
			}
			out[noteID] = append(out[noteID], name)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("store: batch tags: %w", err)
		}
	}
	return out, nil
}
