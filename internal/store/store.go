// Package store persists authoritative match state. The room actor is the
// only writer for a given match, so writes are whole-match snapshots.
package store

import (
	"context"
	"errors"

	"github.com/teamtrack/volley-live-backend/internal/engine"
)

var ErrNotFound = errors.New("match not found")
var ErrAlreadyExists = errors.New("match already exists")

type MatchStore interface {
	CreateMatch(ctx context.Context, m engine.Match) error
	GetMatch(ctx context.Context, id string) (engine.Match, error)
	ListMatches(ctx context.Context) ([]engine.Match, error)
	// SaveMatch overwrites the stored state with the applied successor state.
	SaveMatch(ctx context.Context, m engine.Match) error
}
