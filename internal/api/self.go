package api

import (
	"net/http"
	"strings"

	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/ledger"
	"example.com/bjjpoints/internal/persistence"
)

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	session, ok := h.athlete(w, r)
	if !ok {
		return
	}

	dashboard, err := h.service.Dashboard(r.Context(), session.UserID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DashboardResponse{
		Profile: toProfileView(dashboard.Profile),
		Summary: toSummaryView(dashboard.Summary),
		History: toActivityViews(dashboard.History),
		CanUndo: session.CanUndo(),
	})
}

func (h *Handler) recordActivity(w http.ResponseWriter, r *http.Request) {
	session, ok := h.athlete(w, r)
	if !ok {
		return
	}

	var req RecordActivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	activityType := ledger.ActivityType(strings.ToLower(strings.TrimSpace(req.Type)))
	if activityType != ledger.Training && activityType != ledger.Tournament {
		writeError(w, http.StatusBadRequest, "validation_failed", "type must be training or tournament")
		return
	}

	activity, err := h.service.RecordSelfActivity(r.Context(), session, activityType)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RecordActivityResponse{
		Activity: toActivityView(*activity),
		CanUndo:  session.CanUndo(),
	})
}

func (h *Handler) undo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.athlete(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.UndoLast(r.Context(), session)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*deleted))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	session, ok := h.athlete(w, r)
	if !ok {
		return
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}
	limit := queryInt(r, "limit", domain.HistoryLimit, 100)

	items, next, err := h.service.History(r.Context(), session.UserID, cursor, limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		Items:      toActivityViews(items),
		NextCursor: persistence.EncodeCursor(next),
	})
}

// parseScope maps the client-facing scope name. The trainer dashboard calls its board "trainer".
func parseScope(raw string) (events.Scope, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "self":
		return events.ScopeSelf, true
	case "trainer", "roster":
		return events.ScopeRoster, true
	default:
		return "", false
	}
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	scope, ok := parseScope(r.URL.Query().Get("scope"))
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_failed", "scope must be self or trainer")
		return
	}
	if scope == events.ScopeRoster {
		if _, ok := h.trainer(w, r); !ok {
			return
		}
	} else if _, ok := h.athlete(w, r); !ok {
		return
	}

	limit := queryInt(r, "limit", domain.LeaderboardLimit, 100)

	// Snapshots of the self board hold the default top rows only.
	if h.refresher != nil && (scope == events.ScopeRoster || limit <= domain.LeaderboardLimit) {
		snap, err := h.refresher.Snapshot(r.Context(), scope)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSnapshotResponse(clientScope(scope), snap, limit))
		return
	}

	var entries []ledger.LeaderboardEntry
	var err error
	if scope == events.ScopeRoster {
		entries, err = h.service.RosterLeaderboard(r.Context())
		if err == nil && len(entries) > limit {
			entries = entries[:limit]
		}
	} else {
		entries, err = h.service.SelfLeaderboard(r.Context(), limit)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{
		Scope:   clientScope(scope),
		Entries: toLeaderboardEntries(entries),
	})
}
