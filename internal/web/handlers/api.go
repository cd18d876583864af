package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/crm-sirene/internal/match"
	"github.com/crm-sirene/internal/reconcile"
	"github.com/crm-sirene/internal/registry"
)

// APIHandler serves registry statistics and bucket inspection
type APIHandler struct {
	Engine  *reconcile.Engine
	Summary registry.Summary
	Loaded  time.Time
}

// StatsResponse represents the loaded registry
type StatsResponse struct {
	RegistryRecords int            `json:"registry_records"`
	Active          int            `json:"active"`
	Closed          int            `json:"closed"`
	UnknownState    int            `json:"unknown_state"`
	NoPostalCode    int            `json:"no_postal_code"`
	Indexed         int            `json:"indexed"`
	Buckets         int            `json:"buckets"`
	Headquarters    int            `json:"headquarters"`
	DuplicateHQ     int            `json:"duplicate_headquarters"`
	Threshold       float64        `json:"threshold"`
	BucketSizes     map[string]int `json:"bucket_sizes"`
	LoadedAt        time.Time      `json:"loaded_at"`
}

// CandidateJSON is one registry establishment in API responses
type CandidateJSON struct {
	ID           string           `json:"siret"`
	ParentID     string           `json:"siren"`
	Name         string           `json:"name"`
	NameNorm     string           `json:"name_normalized"`
	City         string           `json:"city"`
	PostalCode   string           `json:"postal_code"`
	Status       string           `json:"status"`
	Workforce    string           `json:"workforce"`
	Headquarters bool             `json:"headquarters"`
	Score        *float64         `json:"score,omitempty"`
	Breakdown    *match.Breakdown `json:"breakdown,omitempty"`
}

func candidateFromRecord(rec *match.RegistryRecord) CandidateJSON {
	return CandidateJSON{
		ID:           rec.ID,
		ParentID:     rec.ParentID,
		Name:         rec.Name,
		NameNorm:     rec.NameNorm,
		City:         rec.City,
		PostalCode:   rec.PostalCode,
		Status:       string(rec.Status),
		Workforce:    rec.Workforce,
		Headquarters: rec.Headquarters,
	}
}

func candidateFromResult(res match.Result) CandidateJSON {
	c := candidateFromRecord(res.Record)
	score := res.Score
	breakdown := res.Breakdown
	c.Score = &score
	c.Breakdown = &breakdown
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// GetStats returns registry and index statistics
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	blocking := h.Engine.Blocking()
	hq := h.Engine.Headquarters()

	stats := StatsResponse{
		RegistryRecords: h.Summary.Total,
		Active:          h.Summary.Active,
		Closed:          h.Summary.Closed,
		UnknownState:    h.Summary.UnknownState,
		NoPostalCode:    h.Summary.NoPostalCode,
		Indexed:         blocking.Size(),
		Buckets:         blocking.Len(),
		Headquarters:    hq.Len(),
		DuplicateHQ:     hq.Duplicates(),
		Threshold:       h.Engine.Threshold(),
		BucketSizes:     make(map[string]int, blocking.Len()),
		LoadedAt:        h.Loaded,
	}
	for _, prefix := range blocking.Prefixes() {
		stats.BucketSizes[prefix] = len(blocking.Lookup(prefix))
	}

	writeJSON(w, http.StatusOK, stats)
}

// BucketResponse lists the establishments of one bucket
type BucketResponse struct {
	Prefix     string          `json:"prefix"`
	Size       int             `json:"size"`
	Offset     int             `json:"offset"`
	Candidates []CandidateJSON `json:"candidates"`
}

// GetBucket returns a page of the bucket's establishments
func (h *APIHandler) GetBucket(w http.ResponseWriter, r *http.Request) {
	prefix := mux.Vars(r)["prefix"]
	key, ok := match.BucketKey(prefix)
	if !ok || key != prefix {
		http.Error(w, "Bucket prefix must be two characters", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	limit := parseIntParam(query.Get("limit"), 50)
	if limit > 500 {
		limit = 500 // Maximum limit
	}
	offset := parseIntParam(query.Get("offset"), 0)

	bucket := h.Engine.Blocking().Lookup(key)
	resp := BucketResponse{Prefix: key, Size: len(bucket), Offset: offset, Candidates: []CandidateJSON{}}
	for i := offset; i < len(bucket) && i < offset+limit; i++ {
		resp.Candidates = append(resp.Candidates, candidateFromRecord(bucket[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health reports liveness
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"records": h.Summary.Total,
	})
}

// parseIntParam parses a non-negative integer parameter with default
func parseIntParam(s string, defaultValue int) int {
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return defaultValue
}
