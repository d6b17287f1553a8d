package noteservice

import (
	"context"
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/store"
)

// NoteStore is the persistence the service needs. *store.Store satisfies it.
type NoteStore interface {
	CreateNote(ctx context.Context, in store.NoteInput) (*models.Note, error)
	UpdateNote(ctx context.Context, in store.NoteInput) (*models.Note, error)
	DeleteNote(ctx context.Context, id, ownerID int64) (int64, error)
	GetNote(ctx context.Context, id, ownerID int64) (*models.Note, error)
	ListNotes(ctx context.Context, ownerID int64, f store.ListFilter) ([]models.Note, error)
}

var _ NoteStore = (*store.Store)(nil)

// NoteRequest is the writable payload of a note.
type NoteRequest struct {
	Title   string
	Content string
	Tags    []string
}

// Validate requires a title and content.
func (r NoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Content, validation.Required),
	)
}

// Filter narrows List; see store.ListFilter.
type Filter = store.ListFilter

// Service enforces ownership and request shape in front of the note store.
type Service struct {
	store NoteStore
}

// NewService creates a new note service.
func NewService(st NoteStore) *Service {
	return &Service{store: st}
}

// Create stores a new note owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID int64, req NoteRequest) (*models.Note, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("title and content are required")
	}
	return s.store.CreateNote(ctx, store.NoteInput{
		Title:   req.Title,
		Content: req.Content,
		OwnerID: ownerID,
		Tags:    NormalizeTags(req.Tags),
	})
}

// Update replaces the fields and tags of an owned note.
func (s *Service) Update(ctx context.Context, ownerID, id int64, req NoteRequest) (*models.Note, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.Validation("title and content are required")
	}
	note, err := s.store.UpdateNote(ctx, store.NoteInput{
		ID:      id,
		Title:   req.Title,
		Content: req.Content,
		OwnerID: ownerID,
		Tags:    NormalizeTags(req.Tags),
	})
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, apperr.ErrNotFound
	}
	return note, nil
}

// Delete removes an owned note.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	n, err := s.store.DeleteNote(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Get returns an owned note.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (*models.Note, error) {
	note, err := s.store.GetNote(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, apperr.ErrNotFound
	}
	return note, nil
}

// List returns the owner's notes matching f, newest first.
func (s *Service) List(ctx context.Context, ownerID int64, f Filter) ([]models.Note, error) {
	notes, err := s.store.ListNotes(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(notes), nil
}

// ParseTags decodes a raw "tags" field. Anything other than a JSON array of
// strings (absent, null, a string, mixed arrays) yields no tags.
func ParseTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return []string{}
	}
	return NormalizeTags(tags)
}

// NormalizeTags drops empty names and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
