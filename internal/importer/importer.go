// Package importer bulk-loads a directory of Markdown files into a user's notes.
package importer

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/noteservice"
	"github.com/starford/notely/internal/parser"
	"github.com/starford/notely/internal/storage"
)

// NoteCreator is the part of the note service the importer needs.
type NoteCreator interface {
	Create(ctx context.Context, ownerID int64, req noteservice.NoteRequest) (*models.Note, error)
}

// Result counts what happened to each file.
type Result struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Importer walks a storage.Provider and creates one note per Markdown file.
type Importer struct {
	src    storage.Provider
	notes  NoteCreator
	logger *slog.Logger
}

// New creates an Importer. A nil logger uses slog.Default.
func New(src storage.Provider, notes NoteCreator, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{src: src, notes: notes, logger: logger}
}

// Import creates notes owned by ownerID. Files with an empty body are skipped;
// unreadable or rejected files are logged and counted as failed. Only a
// cancelled context or a listing error aborts the run.
func (im *Importer) Import(ctx context.Context, ownerID int64) (Result, error) {
	var res Result

	files, err := im.src.List("")
	if err != nil {
		return res, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		data, err := im.src.Read(f.Path)
		if err != nil {
			im.logger.Warn("import: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			res.Failed++
			continue
		}

		doc := parser.Parse(data)
		if strings.TrimSpace(doc.Body) == "" {
			im.logger.Debug("import: skipped empty", slog.String("path", f.Path))
			res.Skipped++
			continue
		}

		title := doc.Title
		if title == "" {
			title = strings.TrimSuffix(path.Base(f.Path), path.Ext(f.Path))
		}

		note, err := im.notes.Create(ctx, ownerID, noteservice.NoteRequest{
			Title:   title,
			Content: doc.Body,
			Tags:    doc.Tags,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			im.logger.Warn("import: create failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			res.Failed++
			continue
		}
		im.logger.Debug("import: created", slog.String("path", f.Path), slog.Int64("note_id", note.ID))
		res.Imported++
	}

	return res, nil
}
