// Package noteservice validates note requests and maps ownership misses to
// apperr.ErrNotFound, so a note owned by someone else looks exactly like a
// note that does not exist.
package noteservice
