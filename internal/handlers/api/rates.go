package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vatworks/api/internal/audit"
	"github.com/vatworks/api/internal/vat"
)

// RatesHandler serves the read-only rate table and service metadata.
type RatesHandler struct {
	auditSvc *audit.Service
}

// NewRatesHandler creates a new rate lookup handler.
func NewRatesHandler(auditSvc *audit.Service) *RatesHandler {
	return &RatesHandler{auditSvc: auditSvc}
}

// RegisterRoutes registers rate lookup and health routes on the given mux.
func (h *RatesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/vat/rates", h.ListRates)
	mux.HandleFunc("GET /api/v1/vat/rates/{country}", h.GetRate)
	mux.HandleFunc("GET /api/v1/vat/calculations", h.RecentCalculations)
}

type rateEntry struct {
	Country      string  `json:"country"`
	Name         string  `json:"name"`
	Standard     string  `json:"standard"`
	Reduced1     *string `json:"reduced_1,omitempty"`
	Reduced2     *string `json:"reduced_2,omitempty"`
	SuperReduced *string `json:"super_reduced,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	EU           bool    `json:"eu"`
}

type rateDetail struct {
	rateEntry
	// EffectiveStandard is the standard rate on the requested date, which
	// differs from Standard around a scheduled rate change.
	EffectiveStandard string `json:"effective_standard"`
	AsOf              string `json:"as_of"`
}

type calculationEntry struct {
	ID         string `json:"id"`
	Direction  string `json:"direction"`
	Country    string `json:"country,omitempty"`
	VATRate    string `json:"vat_rate"`
	NetPrice   string `json:"net_price"`
	VATAmount  string `json:"vat_amount"`
	GrossPrice string `json:"gross_price"`
	CreatedAt  string `json:"created_at"`
}

// Health handles GET /api/v1/health.
func (h *RatesHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"audit_enabled": h.auditSvc.Enabled(),
	})
}

// ListRates handles GET /api/v1/vat/rates. The full table, sorted by
// country code.
func (h *RatesHandler) ListRates(w http.ResponseWriter, r *http.Request) {
	countries := vat.AllCountries()
	entries := make([]rateEntry, 0, len(countries))
	for _, c := range countries {
		rates, ok := vat.RatesFor(c)
		if !ok {
			continue
		}
		entries = append(entries, toRateEntry(c, rates))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rates": entries})
}

// GetRate handles GET /api/v1/vat/rates/{country}. An optional as_of query
// parameter (YYYY-MM-DD) resolves the standard rate on that date.
func (h *RatesHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	code := vat.CountryCode(strings.ToUpper(r.PathValue("country")))

	rates, ok := vat.RatesFor(code)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorJSON{
			Error: "unknown country code",
			Code:  string(vat.CodeUnknownCountry),
			Field: "country",
		})
		return
	}

	asOf := time.Now().UTC()
	if s := r.URL.Query().Get("as_of"); s != "" {
		parsed, perr := time.Parse("2006-01-02", s)
		if perr != nil {
			writeJSON(w, http.StatusBadRequest, errorJSON{
				Error: "as_of must be a YYYY-MM-DD date",
				Field: "as_of",
			})
			return
		}
		asOf = parsed
	}

	effective, err := vat.StandardRateOn(code, asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rateDetail{
		rateEntry:         toRateEntry(code, rates),
		EffectiveStandard: effective.String(),
		AsOf:              asOf.Format("2006-01-02"),
	})
}

// RecentCalculations handles GET /api/v1/vat/calculations. Returns 404 when
// no database is configured rather than pretending an empty history exists.
func (h *RatesHandler) RecentCalculations(w http.ResponseWriter, r *http.Request) {
	if !h.auditSvc.Enabled() {
		writeJSON(w, http.StatusNotFound, errorJSON{Error: "calculation history is not enabled"})
		return
	}

	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorJSON{
				Error: "limit must be a positive integer",
				Field: "limit",
			})
			return
		}
		limit = n
	}

	records, err := h.auditSvc.RecentCalculations(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "failed to load calculation history"})
		return
	}

	entries := make([]calculationEntry, len(records))
	for i, rec := range records {
		entries[i] = calculationEntry{
			ID:         rec.ID.String(),
			Direction:  rec.Direction,
			Country:    string(rec.Country),
			VATRate:    rec.VATRate.String(),
			NetPrice:   rec.NetPrice.StringFixed(2),
			VATAmount:  rec.VATAmount.StringFixed(2),
			GrossPrice: rec.GrossPrice.StringFixed(2),
			CreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"calculations": entries})
}

func toRateEntry(c vat.CountryCode, rates vat.CountryRates) rateEntry {
	return rateEntry{
		Country:      string(c),
		Name:         rates.DisplayName,
		Standard:     rates.Standard.String(),
		Reduced1:     rateString(rates.Reduced1),
		Reduced2:     rateString(rates.Reduced2),
		SuperReduced: rateString(rates.SuperReduced),
		Notes:        rates.Notes,
		EU:           c.IsEU(),
	}
}

func rateString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
