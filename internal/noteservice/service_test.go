package noteservice_test

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/noteservice"
	"github.com/starford/notely/internal/store"
	"github.com/starford/notely/internal/testutil"
)

// countingStore fails the test if validation lets a request through.
type countingStore struct {
	noteservice.NoteStore
	calls int
}

func (c *countingStore) CreateNote(ctx context.Context, in store.NoteInput) (*models.Note, error) {
	c.calls++
	return &models.Note{Title: in.Title, Content: in.Content, Tags: in.Tags}, nil
}

func (c *countingStore) UpdateNote(ctx context.Context, in store.NoteInput) (*models.Note, error) {
	c.calls++
	return nil, nil
}

func TestValidationBeforeStorage(t *testing.T) {
	st := &countingStore{}
	svc := noteservice.NewService(st)
	ctx := context.Background()

	for _, req := range []noteservice.NoteRequest{
		{Title: "", Content: "c"},
		{Title: "t", Content: ""},
		{},
	} {
		_, err := svc.Create(ctx, 1, req)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		_, err = svc.Update(ctx, 1, 1, req)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
	assert.Zero(t, st.calls)
}

func TestUpdateNoMatchIsNotFound(t *testing.T) {
	svc := noteservice.NewService(&countingStore{})
	_, err := svc.Update(context.Background(), 1, 99, noteservice.NoteRequest{Title: "t", Content: "c"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{``, []string{}},
		{`null`, []string{}},
		{`"work"`, []string{}},
		{`{"a":1}`, []string{}},
		{`["a", 1]`, []string{}},
		{`[]`, []string{}},
		{`["work","urgent"]`, []string{"work", "urgent"}},
		{`["b","","b","a"]`, []string{"b", "a"}},
	}
	for _, tt := range tests {
		got := noteservice.ParseTags(json.RawMessage(tt.raw))
		assert.Equal(t, tt.want, got, "raw %q", tt.raw)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	s := testutil.TestStore(t)
	svc := noteservice.NewService(s)
	ctx := context.Background()
	a := testutil.SeedUser(t, s, "alice")
	b := testutil.SeedUser(t, s, "bob")

	n, err := svc.Create(ctx, a.ID, noteservice.NoteRequest{Title: "t", Content: "c", Tags: []string{"work", "urgent"}})
	require.NoError(t, err)
	tags := append([]string(nil), n.Tags...)
	sort.Strings(tags)
	assert.Equal(t, []string{"urgent", "work"}, tags)

	_, err = svc.Get(ctx, b.ID, n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Update(ctx, b.ID, n.ID, noteservice.NoteRequest{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, b.ID, n.ID), apperr.ErrNotFound)

	list, err := svc.List(ctx, b.ID, noteservice.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	got, err := svc.Get(ctx, a.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)

	require.NoError(t, svc.Delete(ctx, a.ID, n.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID, n.ID), apperr.ErrNotFound)
}
