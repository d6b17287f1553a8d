package api

import (
	"encoding/json"

	"github.com/starford/notely/internal/authservice"
	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/noteservice"
	"github.com/starford/notely/internal/token"
)

// CredentialsRequest is the request body for signup and login.
type CredentialsRequest = authservice.Credentials

// SessionResponse is returned by signup and login.
type SessionResponse = authservice.Session

// IdentityResponse is returned by whoami.
type IdentityResponse = token.Identity

// NoteRequest is the request body for creating or updating a note. Tags stay
// raw so that a malformed value degrades to no tags instead of a 400.
type NoteRequest struct {
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Tags    json.RawMessage `json:"tags"`
}

func (r NoteRequest) toService() noteservice.NoteRequest {
	return noteservice.NoteRequest{
		Title:   r.Title,
		Content: r.Content,
		Tags:    noteservice.ParseTags(r.Tags),
	}
}

// NoteResponse is the note payload.
type NoteResponse = models.Note
