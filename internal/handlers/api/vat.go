package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vatworks/api/internal/audit"
	"github.com/vatworks/api/internal/vat"
)

// VATHandler serves the calculation endpoints backed by the pure VAT engine.
type VATHandler struct {
	auditSvc *audit.Service
	logger   *slog.Logger
}

// NewVATHandler creates a new VAT calculation handler.
func NewVATHandler(auditSvc *audit.Service, logger *slog.Logger) *VATHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VATHandler{
		auditSvc: auditSvc,
		logger:   logger,
	}
}

// RegisterRoutes registers all VAT API routes on the given mux.
func (h *VATHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/vat/extract", h.ExtractNetFromGross)
	mux.HandleFunc("POST /api/v1/vat/calculate", h.CalculateVATFromNet)
	mux.HandleFunc("POST /api/v1/vat/rule", h.ResolveRule)
	mux.HandleFunc("POST /api/v1/vat/registration", h.CheckRegistration)
	mux.HandleFunc("POST /api/v1/vat/oss", h.CheckOSS)
}

// --- JSON request/response types ---

// calculationRequest covers both calculation directions. Price and rate are
// decoded as raw JSON values so that a boolean or object in a numeric field
// maps to the typed INVALID_*_TYPE codes instead of a generic decode error.
type calculationRequest struct {
	Price   any    `json:"price"`
	VATRate any    `json:"vat_rate"`
	Country string `json:"country"`
	AsOf    string `json:"as_of"` // YYYY-MM-DD, optional
}

type calculationResponse struct {
	NetPrice   string `json:"net_price"`
	VATAmount  string `json:"vat_amount"`
	GrossPrice string `json:"gross_price"`
	VATRate    string `json:"vat_rate"`
	Country    string `json:"country,omitempty"`
}

type ruleRequest struct {
	SellerCountry          string      `json:"seller_country"`
	BuyerCountry           string      `json:"buyer_country"`
	StorageCountry         string      `json:"storage_country"`
	FulfillmentMethod      string      `json:"fulfillment_method"`
	TransactionType        string      `json:"transaction_type"`
	AnnualCrossBorderSales json.Number `json:"annual_cross_border_sales"`
	SellingPrice           json.Number `json:"selling_price"`
	AnnualVolume           json.Number `json:"annual_volume"`
}

type ruleResponse struct {
	Country           string `json:"country"`
	RuleDescription   string `json:"rule_description"`
	IsDomestic        bool   `json:"is_domestic"`
	IsDistanceSelling bool   `json:"is_distance_selling"`
	IsReverseCharge   bool   `json:"is_reverse_charge"`
	IsLocalSale       bool   `json:"is_local_sale"`
	StandardRate      string `json:"standard_rate"`
}

type registrationResponse struct {
	Required  bool     `json:"required"`
	Countries []string `json:"countries"`
	Reason    string   `json:"reason"`
}

type ossResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
}

// ExtractNetFromGross handles POST /api/v1/vat/extract.
// The price is treated as VAT-inclusive; the response splits it into net
// price and VAT amount.
func (h *VATHandler) ExtractNetFromGross(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCalculationRequest(w, r)
	if !ok {
		return
	}

	gross, rate, country, asOf, ok := h.resolveInputs(w, req)
	if !ok {
		return
	}

	result, err := vat.ExtractNetFromGross(gross, rate)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.auditSvc.RecordAsync(audit.Record{
		Direction:  audit.DirectionNetFromGross,
		Country:    country,
		VATRate:    result.VATRate,
		InputPrice: gross,
		NetPrice:   result.NetPrice,
		VATAmount:  result.VATAmount,
		GrossPrice: gross,
		AsOf:       asOf,
	})

	writeJSON(w, http.StatusOK, calculationResponse{
		NetPrice:   result.NetPrice.StringFixed(2),
		VATAmount:  result.VATAmount.StringFixed(2),
		GrossPrice: vat.RoundMoney(gross).StringFixed(2),
		VATRate:    vat.RoundRate(result.VATRate).String(),
		Country:    string(country),
	})
}

// CalculateVATFromNet handles POST /api/v1/vat/calculate.
// The price is treated as VAT-exclusive; the response adds VAT on top.
func (h *VATHandler) CalculateVATFromNet(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCalculationRequest(w, r)
	if !ok {
		return
	}

	net, rate, country, asOf, ok := h.resolveInputs(w, req)
	if !ok {
		return
	}

	result, err := vat.CalculateVATFromNet(net, rate)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.auditSvc.RecordAsync(audit.Record{
		Direction:  audit.DirectionVATFromNet,
		Country:    country,
		VATRate:    result.VATRate,
		InputPrice: net,
		NetPrice:   result.NetPrice,
		VATAmount:  result.VATAmount,
		GrossPrice: result.GrossPrice,
		AsOf:       asOf,
	})

	writeJSON(w, http.StatusOK, calculationResponse{
		NetPrice:   vat.RoundMoney(result.NetPrice).StringFixed(2),
		VATAmount:  result.VATAmount.StringFixed(2),
		GrossPrice: result.GrossPrice.StringFixed(2),
		VATRate:    vat.RoundRate(result.VATRate).String(),
		Country:    string(country),
	})
}

// ResolveRule handles POST /api/v1/vat/rule. The response combines the
// jurisdiction decision with the governing country's standard rate so the
// caller has the actually-applicable rate in one round trip.
func (h *VATHandler) ResolveRule(w http.ResponseWriter, r *http.Request) {
	params, ok := h.decodeRuleParams(w, r)
	if !ok {
		return
	}

	result := vat.ResolveRule(params)

	standardRate, err := vat.StandardRate(result.Country)
	if err != nil {
		// Unreachable: params are validated against the closed country set.
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ruleResponse{
		Country:           string(result.Country),
		RuleDescription:   result.RuleDescription,
		IsDomestic:        result.IsDomestic,
		IsDistanceSelling: result.IsDistanceSelling,
		IsReverseCharge:   result.IsReverseCharge,
		IsLocalSale:       result.IsLocalSale,
		StandardRate:      vat.RoundRate(standardRate).String(),
	})
}

// CheckRegistration handles POST /api/v1/vat/registration.
func (h *VATHandler) CheckRegistration(w http.ResponseWriter, r *http.Request) {
	params, ok := h.decodeRuleParams(w, r)
	if !ok {
		return
	}

	result := vat.CheckVATRegistrationRequired(params)

	countries := make([]string, len(result.Countries))
	for i, c := range result.Countries {
		countries[i] = string(c)
	}

	writeJSON(w, http.StatusOK, registrationResponse{
		Required:  result.Required,
		Countries: countries,
		Reason:    result.Reason,
	})
}

// CheckOSS handles POST /api/v1/vat/oss.
func (h *VATHandler) CheckOSS(w http.ResponseWriter, r *http.Request) {
	params, ok := h.decodeRuleParams(w, r)
	if !ok {
		return
	}

	result := vat.CheckOSSEligibility(params)
	writeJSON(w, http.StatusOK, ossResponse{
		Eligible: result.Eligible,
		Reason:   result.Reason,
	})
}

// --- request decoding ---

func (h *VATHandler) decodeCalculationRequest(w http.ResponseWriter, r *http.Request) (calculationRequest, bool) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var req calculationRequest
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid request body"})
		return calculationRequest{}, false
	}
	return req, true
}

// numberToken extracts the textual form of a numeric JSON field. Numeric
// strings are accepted for callers that quote their numbers; anything else
// non-numeric reports false. An absent field yields the empty string.
func numberToken(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case json.Number:
		return t.String(), true
	case string:
		return t, true
	default:
		return "", false
	}
}

// resolveInputs turns the raw request into a validated (price, rate) pair.
// A country takes precedence over an explicit rate; exactly one of the two
// must be supplied.
func (h *VATHandler) resolveInputs(w http.ResponseWriter, req calculationRequest) (price, rate decimal.Decimal, country vat.CountryCode, asOf *time.Time, ok bool) {
	priceTok, tokOK := numberToken(req.Price)
	if !tokOK {
		writeJSON(w, http.StatusBadRequest, errorJSON{
			Error: "price must be a number",
			Code:  string(vat.CodeInvalidPriceType),
			Field: "price",
		})
		return
	}

	price, err := vat.ParsePrice(priceTok)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if req.Country != "" {
		country = vat.CountryCode(req.Country)
		when := time.Now().UTC()
		if req.AsOf != "" {
			parsed, perr := time.Parse("2006-01-02", req.AsOf)
			if perr != nil {
				writeJSON(w, http.StatusBadRequest, errorJSON{
					Error: "as_of must be a YYYY-MM-DD date",
					Field: "as_of",
				})
				return
			}
			when = parsed
			asOf = &parsed
		}

		rate, err = vat.StandardRateOn(country, when)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		return price, rate, country, asOf, true
	}

	rateTok, tokOK := numberToken(req.VATRate)
	if !tokOK {
		writeJSON(w, http.StatusBadRequest, errorJSON{
			Error: "vat_rate must be a number",
			Code:  string(vat.CodeInvalidRateType),
			Field: "vat_rate",
		})
		return
	}
	if rateTok == "" {
		writeJSON(w, http.StatusBadRequest, errorJSON{
			Error: "either country or vat_rate is required",
			Field: "vat_rate",
		})
		return
	}

	rate, err = vat.ParseRate(rateTok)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	return price, rate, "", nil, true
}

func (h *VATHandler) decodeRuleParams(w http.ResponseWriter, r *http.Request) (vat.RuleParams, bool) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid request body"})
		return vat.RuleParams{}, false
	}

	// The rule resolver is total; malformed enums are rejected here, at its
	// typed boundary, so it never sees them.
	seller := vat.CountryCode(req.SellerCountry)
	if !seller.Valid() {
		writeJSON(w, http.StatusBadRequest, errorJSON{
			Error: "unknown seller country",
			Code:  string(vat.CodeUnknownCountry),
			Field: "seller_country",
		})
		return vat.RuleParams{}, false
	}

	buyer := vat.CountryCode(req.BuyerCountry)
	if !buyer.Valid() {
		writeJSON(w, http.StatusBadRequest, errorJSON{
			Error: "unknown buyer country",
			Code:  string(vat.CodeUnknownCountry),
			Field: "buyer_country",
		})
		return vat.RuleParams{}, false
	}

	var storage vat.CountryCode
	if req.StorageCountry != "" {
		storage = vat.CountryCode(req.StorageCountry)
		if !storage.Valid() {
			writeJSON(w, http.StatusBadRequest, errorJSON{
				Error: "unknown storage country",
				Code:  string(vat.CodeUnknownCountry),
				Field: "storage_country",
			})
			return vat.RuleParams{}, false
		}
	}

	fulfillment := vat.FulfillmentMethod(req.FulfillmentMethod)
	if fulfillment != vat.FulfillmentFBA && fulfillment != vat.FulfillmentFBM {
		writeJSON(w, http.StatusBadRequest, errorJSON{
			Error: "fulfillment_method must be FBA or FBM",
			Field: "fulfillment_method",
		})
		return vat.RuleParams{}, false
	}

	transaction := vat.TransactionType(req.TransactionType)
	if transaction != vat.TransactionB2B && transaction != vat.TransactionB2C {
		writeJSON(w, http.StatusBadRequest, errorJSON{
			Error: "transaction_type must be B2B or B2C",
			Field: "transaction_type",
		})
		return vat.RuleParams{}, false
	}

	params := vat.RuleParams{
		SellerCountry:  seller,
		BuyerCountry:   buyer,
		StorageCountry: storage,
		Fulfillment:    fulfillment,
		Transaction:    transaction,
	}

	if s := req.AnnualCrossBorderSales.String(); s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil || v.IsNegative() {
			writeJSON(w, http.StatusBadRequest, errorJSON{
				Error: "annual_cross_border_sales must be a non-negative number",
				Field: "annual_cross_border_sales",
			})
			return vat.RuleParams{}, false
		}
		params.AnnualCrossBorderSales = &v
	}
	if s := req.SellingPrice.String(); s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil || v.IsNegative() {
			writeJSON(w, http.StatusBadRequest, errorJSON{
				Error: "selling_price must be a non-negative number",
				Field: "selling_price",
			})
			return vat.RuleParams{}, false
		}
		params.SellingPrice = v
	}
	if s := req.AnnualVolume.String(); s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil || v.IsNegative() {
			writeJSON(w, http.StatusBadRequest, errorJSON{
				Error: "annual_volume must be a non-negative number",
				Field: "annual_volume",
			})
			return vat.RuleParams{}, false
		}
		params.AnnualVolume = v
	}

	// Callers that never supply sales figures silently land below the
	// distance-selling threshold; that default under-applies
	// destination-country VAT, so make it visible in the logs.
	if seller != buyer && vat.SalesFigureDerived(params) && params.SellingPrice.IsZero() {
		h.logger.Warn("cross-border rule resolution without sales figures, assuming below threshold",
			"seller", string(seller),
			"buyer", string(buyer),
		)
	}

	return params, true
}
