package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamtrack/volley-live-backend/internal/engine"
	"github.com/teamtrack/volley-live-backend/internal/hub"
	"github.com/teamtrack/volley-live-backend/internal/room"
	"github.com/teamtrack/volley-live-backend/internal/store"
)

type createMatchRequest struct {
	MatchID     string            `json:"match_id,omitempty"`
	HomeTeamID  string            `json:"home_team_id"`
	AwayTeamID  string            `json:"away_team_id"`
	Location    string            `json:"location,omitempty"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	Roster      map[string]string `json:"roster"`
}

// CreateMatch stands in for the external scheduling collaborator: it seeds a
// SCHEDULED match that the live engine can then drive.
func CreateMatch(st store.MatchStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.HomeTeamID == "" || req.AwayTeamID == "" || req.HomeTeamID == req.AwayTeamID {
			http.Error(w, "two distinct team ids required", http.StatusBadRequest)
			return
		}
		if req.MatchID == "" {
			req.MatchID = uuid.NewString()
		}

		m := engine.NewScheduledMatch(req.MatchID, req.HomeTeamID, req.AwayTeamID, req.Location, req.ScheduledAt, req.Roster)
		if err := st.CreateMatch(r.Context(), m); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				http.Error(w, "match already exists", http.StatusConflict)
				return
			}
			logger.Error("create match failed", zap.Error(err))
			http.Error(w, "create failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(m)
	}
}

// GetMatch is the resync read: it returns the same Match/Set/Action shapes
// the event channel produces. A running room is consulted first so the read
// reflects the authoritative in-flight state.
func GetMatch(h *hub.Hub, st store.MatchStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := chi.URLParam(r, "matchID")

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.GetRoom{MatchID: matchID, Reply: reply}
		if rm := <-reply; rm != nil {
			view := make(chan room.View, 1)
			rm.Inbox() <- room.GetState{Reply: view}
			writeJSON(w, (<-view).Match)
			return
		}

		m, err := st.GetMatch(r.Context(), matchID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "match not found", http.StatusNotFound)
				return
			}
			http.Error(w, "read failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, m)
	}
}

func ListMatches(st store.MatchStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matches, err := st.ListMatches(r.Context())
		if err != nil {
			http.Error(w, "read failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, matches)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
