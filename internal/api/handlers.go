package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"solana-mev-lab/internal/domain"
	"solana-mev-lab/internal/reporting"
	"solana-mev-lab/internal/storage"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// parseRange reads the inclusive from/to slot query parameters.
func (s *Server) parseRange(r *http.Request) (int64, int64, error) {
	q := r.URL.Query()
	from, err := strconv.ParseInt(q.Get("from"), 10, 64)
	if err != nil || from < 0 {
		return 0, 0, fmt.Errorf("from must be a non-negative slot")
	}
	to, err := strconv.ParseInt(q.Get("to"), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("to must be a slot")
	}
	if to < from {
		return 0, 0, fmt.Errorf("to must not be before from")
	}
	if to-from >= s.config.MaxSlotSpan {
		return 0, 0, fmt.Errorf("slot range wider than %d", s.config.MaxSlotSpan)
	}
	return from, to, nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxLimit)
	}
	return n, nil
}

// handleListSwaps handles GET /api/swaps?from=&to=
func (s *Server) handleListSwaps(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		return
	}

	records, err := s.stores.Swaps.GetBySlotRange(r.Context(), from, to)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	findings, err := s.stores.Findings.GetBySlotRange(r.Context(), from, to)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	bySig := make(map[string]*domain.MEVFinding, len(findings))
	for _, f := range findings {
		bySig[f.Signature] = f
	}
	for i, rec := range records {
		if f, ok := bySig[rec.Signature]; ok {
			annotated := rec.WithMEV(f)
			records[i] = &annotated
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":  from,
		"to":    to,
		"count": len(records),
		"swaps": swapViews(records),
	})
}

// handleGetSwap handles GET /api/swaps/{signature}
func (s *Server) handleGetSwap(w http.ResponseWriter, r *http.Request) {
	sig := mux.Vars(r)["signature"]

	rec, err := s.stores.Swaps.GetBySignature(r.Context(), sig)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	finding, err := s.stores.Findings.GetBySignature(r.Context(), sig)
	switch {
	case err == nil:
		annotated := rec.WithMEV(finding)
		rec = &annotated
	case errors.Is(err, storage.ErrNotFound):
	default:
		s.respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, newSwapView(rec))
}

// handleListFindings handles GET /api/findings?type=&limit= and GET /api/findings?from=&to=
func (s *Server) handleListFindings(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := domain.MEVType(raw)
		if !t.IsValid() {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, fmt.Sprintf("unknown finding type %q", raw))
			return
		}
		limit, err := parseLimit(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
			return
		}
		findings, err := s.stores.Findings.GetByType(r.Context(), t, limit)
		if err != nil {
			s.respondStoreError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"type":     t,
			"count":    len(findings),
			"findings": findingViews(findings),
		})
		return
	}

	from, to, err := s.parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		return
	}
	findings, err := s.stores.Findings.GetBySlotRange(r.Context(), from, to)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":     from,
		"to":       to,
		"count":    len(findings),
		"findings": findingViews(findings),
	})
}

// handleGetFinding handles GET /api/findings/{id}
func (s *Server) handleGetFinding(w http.ResponseWriter, r *http.Request) {
	f, err := s.stores.Findings.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newFindingView(f))
}

// handleListOpportunities handles GET /api/arbitrage?from=&to=
func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		return
	}
	opps, err := s.stores.Arbitrage.GetBySlotRange(r.Context(), from, to)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from":          from,
		"to":            to,
		"count":         len(opps),
		"opportunities": opportunityViews(opps),
	})
}

// handleGetOpportunity handles GET /api/arbitrage/{id}
func (s *Server) handleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	o, err := s.stores.Arbitrage.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newOpportunityView(o))
}

// handleWalletSwaps handles GET /api/wallets/{wallet}/swaps?limit=
func (s *Server) handleWalletSwaps(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		return
	}
	records, err := s.stores.Swaps.GetByWallet(r.Context(), wallet, limit)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"wallet": wallet,
		"count":  len(records),
		"swaps":  swapViews(records),
	})
}

// handleWalletFindings handles GET /api/wallets/{wallet}/findings
func (s *Server) handleWalletFindings(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]
	findings, err := s.stores.Findings.GetByWallet(r.Context(), wallet)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"wallet":   wallet,
		"count":    len(findings),
		"findings": findingViews(findings),
	})
}

// handleWalletOpportunities handles GET /api/wallets/{wallet}/arbitrage
func (s *Server) handleWalletOpportunities(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]
	opps, err := s.stores.Arbitrage.GetBySender(r.Context(), wallet)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"wallet":        wallet,
		"count":         len(opps),
		"opportunities": opportunityViews(opps),
	})
}

// handleUnknownPrograms handles GET /api/unknown-programs?limit=
func (s *Server) handleUnknownPrograms(w http.ResponseWriter, r *http.Request) {
	if s.stores.Unknown == nil {
		respondUnavailable(w, "unknown program")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		return
	}
	stats, err := s.stores.Unknown.List(r.Context(), limit)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	type programView struct {
		ProgramID     string `json:"programId"`
		GuessedVenue  string `json:"guessedVenue,omitempty"`
		Sightings     int    `json:"sightings"`
		FirstSlot     int64  `json:"firstSlot"`
		LastSlot      int64  `json:"lastSlot"`
		LastSignature string `json:"lastSignature"`
	}
	out := make([]programView, len(stats))
	for i, st := range stats {
		out[i] = programView{
			ProgramID:     st.ProgramID,
			GuessedVenue:  st.GuessedVenue,
			Sightings:     st.Sightings,
			FirstSlot:     st.FirstSlot,
			LastSlot:      st.LastSlot,
			LastSignature: st.LastSignature,
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"count": len(out), "programs": out})
}

// handleVenueActivity handles GET /api/stats/venues?from=&to=
func (s *Server) handleVenueActivity(w http.ResponseWriter, r *http.Request) {
	if s.stores.Analytics == nil {
		respondUnavailable(w, "analytics")
		return
	}
	from, to, err := s.parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		return
	}
	stats, err := s.stores.Analytics.VenueActivity(r.Context(), from, to)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	type venueView struct {
		Venue   string `json:"venue"`
		Swaps   int    `json:"swaps"`
		Wallets int    `json:"wallets"`
	}
	out := make([]venueView, len(stats))
	for i, v := range stats {
		out[i] = venueView{Venue: v.Venue, Swaps: v.Swaps, Wallets: v.Wallets}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"from": from, "to": to, "venues": out})
}

// handleFindingCounts handles GET /api/stats/findings?from=&to=
func (s *Server) handleFindingCounts(w http.ResponseWriter, r *http.Request) {
	if s.stores.Analytics == nil {
		respondUnavailable(w, "analytics")
		return
	}
	from, to, err := s.parseRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
		return
	}
	counts, err := s.stores.Analytics.FindingCounts(r.Context(), from, to)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"from": from, "to": to, "counts": counts})
}

// handleGetRun handles GET /api/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.stores.Progress == nil {
		respondUnavailable(w, "scan progress")
		return
	}
	runID := mux.Vars(r)["id"]
	rows, err := s.stores.Progress.GetByRun(r.Context(), runID)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	if len(rows) == 0 {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "run not found")
		return
	}

	view := RunView{RunID: runID, Slots: make([]ProgressView, len(rows))}
	for i, p := range rows {
		switch p.Status {
		case domain.ScanCompleted:
			view.Completed++
		case domain.ScanSkipped:
			view.Skipped++
		case domain.ScanFailed:
			view.Failed++
		}
		view.Slots[i] = ProgressView{
			Slot:         p.Slot,
			Status:       string(p.Status),
			Transactions: p.Transactions,
			Swaps:        p.Swaps,
			Findings:     p.Findings,
			Error:        p.Error,
			ScannedAt:    p.ScannedAt,
		}
	}
	respondJSON(w, http.StatusOK, view)
}

// handleReport handles GET /api/report?from=&to=[&format=markdown] and GET /api/report?run=
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var (
		report *reporting.Report
		err    error
	)
	if runID := r.URL.Query().Get("run"); runID != "" {
		if s.stores.Progress == nil {
			respondUnavailable(w, "scan progress")
			return
		}
		report, err = s.reports.GenerateRun(r.Context(), runID)
	} else {
		from, to, rangeErr := s.parseRange(r)
		if rangeErr != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, rangeErr.Error())
			return
		}
		report, err = s.reports.Generate(r.Context(), from, to)
	}
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(reporting.RenderMarkdown(report)))
	case "", "json":
		respondJSON(w, http.StatusOK, report)
	default:
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "format must be json or markdown")
	}
}
