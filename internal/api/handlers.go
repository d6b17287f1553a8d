package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/authservice"
	"github.com/starford/notely/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	auth  *authservice.Service
	notes *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(auth *authservice.Service, notes *noteservice.Service) *Handler {
	return &Handler{auth: auth, notes: notes}
}

// noteID parses the {id} URL parameter. Anything that is not a positive
// integer cannot name a note, so callers answer 404.
func noteID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Signup handles POST /api/auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		writeError(w, r, "signup", err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Whoami handles GET /api/auth/whoami.
func (h *Handler) Whoami(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, r, "whoami", apperr.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, IdentityResponse(id))
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	q := r.URL.Query()
	notes, err := h.notes.List(r.Context(), id.ID, noteservice.Filter{
		Tag:    q.Get("tag"),
		Title:  q.Get("title"),
		Search: q.Get("search"),
	})
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.notes.Create(r.Context(), id.ID, req.toService())
	if err != nil {
		writeError(w, r, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	nid, ok := noteID(r)
	if !ok {
		writeError(w, r, "get note", apperr.ErrNotFound)
		return
	}
	note, err := h.notes.Get(r.Context(), id.ID, nid)
	if err != nil {
		writeError(w, r, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles PUT /api/notes/{id}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	nid, ok := noteID(r)
	if !ok {
		writeError(w, r, "update note", apperr.ErrNotFound)
		return
	}
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.notes.Update(r.Context(), id.ID, nid, req.toService())
	if err != nil {
		writeError(w, r, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	nid, ok := noteID(r)
	if !ok {
		writeError(w, r, "delete note", apperr.ErrNotFound)
		return
	}
	if err := h.notes.Delete(r.Context(), id.ID, nid); err != nil {
		writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
