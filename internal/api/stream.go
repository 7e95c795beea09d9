package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"example.com/bjjpoints/internal/events"
	"example.com/bjjpoints/internal/realtime"
)

// stream pushes leaderboard snapshots as server-sent events until the client disconnects.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil || h.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "realtime updates are disabled")
		return
	}

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

	ctx := r.Context()
	sub := h.hub.Subscribe(ctx, scope)
	defer sub.Close()

	// Loads and publishes the first snapshot when the scope has none yet.
	if _, err := h.refresher.Snapshot(ctx, scope); err != nil {
		h.writeDomainError(w, err)
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ":\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Printf("stream: flush unsupported: %v", err)
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case snap, open := <-sub.Updates():
			if !open {
				return
			}
			if err := writeSnapshotEvent(w, scope, snap); err != nil {
				return
			}
		case <-ticker.C:
			// rolls the board over once the year changes; the new snapshot arrives via sub
			if _, err := h.refresher.Snapshot(ctx, scope); err != nil {
				h.logger.Printf("stream: snapshot %s: %v", scope, err)
			}
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, scope events.Scope, snap realtime.Snapshot) error {
	payload, err := json.Marshal(toSnapshotResponse(clientScope(scope), snap, 0))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: leaderboard\nid: %d\ndata: %s\n\n", snap.Seq, payload)
	return err
}

func clientScope(scope events.Scope) string {
	if scope == events.ScopeRoster {
		return "trainer"
	}
	return string(scope)
}
