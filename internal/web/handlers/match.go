package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/crm-sirene/internal/dataset"
	"github.com/crm-sirene/internal/metrics"
	"github.com/crm-sirene/internal/reconcile"
)

// MatchHandler scores a single CRM record against the loaded registry
type MatchHandler struct {
	Engine  *reconcile.Engine
	Metrics *metrics.Metrics
	TopN    int
}

// MatchRequest is one CRM record
type MatchRequest struct {
	Name       string `json:"name"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Address    string `json:"address,omitempty"`
	LegalID    string `json:"siret,omitempty"`
	Top        int    `json:"top,omitempty"`
}

// MatchResponse carries the decision and the best candidates
type MatchResponse struct {
	Decision        string          `json:"decision"`
	Accepted        bool            `json:"accepted"`
	Threshold       float64         `json:"threshold"`
	Bucket          string          `json:"bucket,omitempty"`
	BucketSize      int             `json:"bucket_size"`
	AddressFallback bool            `json:"address_fallback,omitempty"`
	Best            *CandidateJSON  `json:"best,omitempty"`
	Workforce       string          `json:"workforce,omitempty"`
	Candidates      []CandidateJSON `json:"candidates"`
}

// row maps the request onto the configured CRM columns
func (h *MatchHandler) row(req MatchRequest) dataset.Row {
	fields := h.Engine.Config().Fields
	row := dataset.Row{
		fields.Name:       req.Name,
		fields.City:       req.City,
		fields.PostalCode: req.PostalCode,
		fields.Country:    req.Country,
	}
	if fields.Address != "" {
		row[fields.Address] = req.Address
	}
	if fields.DirectID != "" {
		row[fields.DirectID] = req.LegalID
	}
	return row
}

// Match decides one record. The decision uses the same rules as a batch
// run; candidates are the top scorers of the record's bucket.
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Name required", http.StatusBadRequest)
		return
	}

	row := h.row(req)
	out := h.Engine.Evaluate(row)
	h.Metrics.RecordOutcome(out.Kind)
	if out.BucketSize > 0 {
		h.Metrics.ObserveScan(out.BucketSize, out.Result.Score)
	}

	resp := MatchResponse{
		Decision:        out.Kind,
		Accepted:        out.Accepted(),
		Threshold:       h.Engine.Threshold(),
		Bucket:          out.Bucket,
		BucketSize:      out.BucketSize,
		AddressFallback: out.AddressFallback,
		Candidates:      []CandidateJSON{},
	}
	if out.Result.Record != nil {
		best := candidateFromResult(out.Result)
		resp.Best = &best
		resp.Workforce = out.Workforce
		if !out.Accepted() {
			resp.Workforce = h.Engine.Resolve(out.Result.Record)
		}
	}

	top := req.Top
	if top <= 0 {
		top = h.TopN
	}
	if top > 50 {
		top = 50
	}
	if out.BucketSize > 0 {
		for _, res := range h.Engine.Rank(row, top) {
			resp.Candidates = append(resp.Candidates, candidateFromResult(res))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
