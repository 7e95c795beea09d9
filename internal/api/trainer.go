package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"example.com/bjjpoints/internal/domain"
	"example.com/bjjpoints/internal/export"
	"example.com/bjjpoints/internal/ledger"
)

func (h *Handler) listAthletes(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.trainer(w, r); !ok {
		return
	}

	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("includeInactive"))
	athletes, err := h.service.ListAthletes(r.Context(), includeInactive)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	items := make([]AthleteView, 0, len(athletes))
	for _, a := range athletes {
		items = append(items, toAthleteView(a))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) createAthlete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.trainer(w, r)
	if !ok {
		return
	}

	var req AthleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "name is required")
		return
	}

	athlete, err := h.service.CreateAthlete(r.Context(), session.UserID, domain.AthleteInput{
		Name:      req.Name,
		Email:     req.Email,
		Belt:      req.Belt,
		BirthYear: req.BirthYear,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAthleteView(*athlete))
}

func (h *Handler) athleteDetail(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.trainer(w, r); !ok {
		return
	}

	detail, err := h.service.AthleteDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AthleteDetailResponse{
		Athlete: toAthleteView(detail.Athlete),
		Summary: toSummaryView(detail.Summary),
		History: toActivityViews(detail.History),
	})
}

func (h *Handler) updateAthlete(w http.ResponseWriter, r *http.Request) {
	session, ok := h.trainer(w, r)
	if !ok {
		return
	}

	var req AthletePatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	athlete, err := h.service.UpdateAthlete(r.Context(), session.UserID, r.PathValue("id"), domain.AthletePatch{
		Name:      req.Name,
		Email:     req.Email,
		BirthYear: req.BirthYear,
		Active:    req.Active,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAthleteView(*athlete))
}

func (h *Handler) logEntry(w http.ResponseWriter, r *http.Request) {
	session, ok := h.trainer(w, r)
	if !ok {
		return
	}

	var req LogEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	activityType := ledger.ActivityType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !activityType.Valid() {
		writeError(w, http.StatusBadRequest, "validation_failed", fmt.Sprintf("unknown activity type %q", req.Type))
		return
	}
	date, err := req.parseDate(h.service.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	activity, err := h.service.LogEntry(r.Context(), domain.LogEntryInput{
		AthleteID:  r.PathValue("id"),
		Type:       activityType,
		Points:     req.Points,
		Date:       date,
		Note:       req.Note,
		RecordedBy: session.UserID,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(*activity))
}

func (h *Handler) promote(w http.ResponseWriter, r *http.Request) {
	session, ok := h.trainer(w, r)
	if !ok {
		return
	}

	athlete, err := h.service.Promote(r.Context(), session.UserID, r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAthleteView(*athlete))
}

func (h *Handler) roster(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.trainer(w, r); !ok {
		return
	}

	rows, err := h.service.Roster(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := RosterResponse{
		Year: h.service.Now().Year(),
		Rows: make([]RosterRowView, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, RosterRowView{
			Rank:    row.Rank,
			Athlete: toAthleteView(row.Athlete),
			Summary: toSummaryView(row.Summary),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) exportRoster(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.trainer(w, r); !ok {
		return
	}

	rows, err := h.service.Roster(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	year := h.service.Now().Year()
	var buf bytes.Buffer
	if err := export.WriteRoster(&buf, year, rows); err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="punkte-saison-%d.xlsx"`, year))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
