package vat

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FulfillmentMethod says where inventory ships from.
type FulfillmentMethod string

const (
	FulfillmentFBA FulfillmentMethod = "FBA" // marketplace-operated warehouses
	FulfillmentFBM FulfillmentMethod = "FBM" // merchant-fulfilled
)

// TransactionType distinguishes consumer from business sales.
type TransactionType string

const (
	TransactionB2C TransactionType = "B2C"
	TransactionB2B TransactionType = "B2B"
)

// DistanceSellingThreshold is the EU-wide cumulative annual cross-border B2C
// sales figure (EUR) above which destination-country VAT becomes mandatory.
var DistanceSellingThreshold = decimal.NewFromInt(10000)

// RuleParams are the facts the jurisdiction resolver needs about a sale.
// AnnualCrossBorderSales, when nil, is derived as SellingPrice * AnnualVolume;
// both default to zero, so a caller that supplies neither lands below the
// distance-selling threshold.
type RuleParams struct {
	SellerCountry  CountryCode
	BuyerCountry   CountryCode
	StorageCountry CountryCode // fulfillment warehouse country; empty if unknown
	Fulfillment    FulfillmentMethod
	Transaction    TransactionType

	AnnualCrossBorderSales *decimal.Decimal
	SellingPrice           decimal.Decimal
	AnnualVolume           decimal.Decimal
}

// RuleResult names the jurisdiction whose VAT rules govern the sale and why.
// Exactly one of the four flags is true, or all four are false when the
// origin-country fallback applied. RuleDescription is rendered verbatim to
// end users and always names the governing country.
type RuleResult struct {
	Country           CountryCode
	RuleDescription   string
	IsDomestic        bool
	IsDistanceSelling bool
	IsReverseCharge   bool
	IsLocalSale       bool
}

// ResolveRule decides which country's VAT applies to a sale. The checks form
// a strict priority chain; the first matching rule wins and the order is
// load-bearing, so do not reorder them:
//
//  1. Reverse charge: cross-border B2B.
//  2. Local sale: FBA inventory stored in the buyer's country.
//  3. Domestic: seller and buyer in the same country.
//  4. Distance selling: cumulative cross-border sales at or above EUR 10,000.
//  5. Origin fallback: everything else.
//
// The function is total: every combination of well-typed inputs produces a
// result, never an error.
func ResolveRule(p RuleParams) RuleResult {
	// 1. Cross-border B2B: the buyer accounts for VAT. Checked before the
	// domestic test on purpose; a same-country B2B sale falls through.
	if p.Transaction == TransactionB2B && p.SellerCountry != p.BuyerCountry {
		return RuleResult{
			Country: p.SellerCountry,
			RuleDescription: fmt.Sprintf(
				"Reverse charge (buyer accounts for VAT): %s invoices at 0%%, buyer self-assesses VAT in %s",
				p.SellerCountry.DisplayName(), p.BuyerCountry.DisplayName()),
			IsReverseCharge: true,
		}
	}

	// 2. FBA stock already sitting in the buyer's country makes the sale
	// local to that country regardless of where the seller is established.
	if p.Fulfillment == FulfillmentFBA && p.StorageCountry != "" && p.StorageCountry == p.BuyerCountry {
		return RuleResult{
			Country: p.StorageCountry,
			RuleDescription: fmt.Sprintf(
				"Local sale in %s (FBA inventory stored in destination country)",
				p.StorageCountry.DisplayName()),
			IsLocalSale: true,
		}
	}

	// 3. Domestic sale.
	if p.SellerCountry == p.BuyerCountry {
		return RuleResult{
			Country: p.SellerCountry,
			RuleDescription: fmt.Sprintf(
				"Domestic sale in %s", p.SellerCountry.DisplayName()),
			IsDomestic: true,
		}
	}

	// 4. Above the EU distance-selling threshold the destination country's
	// VAT applies.
	if annualCrossBorderSales(p).GreaterThanOrEqual(DistanceSellingThreshold) {
		return RuleResult{
			Country: p.BuyerCountry,
			RuleDescription: fmt.Sprintf(
				"Distance selling above the EUR 10,000 threshold: %s VAT applies",
				p.BuyerCountry.DisplayName()),
			IsDistanceSelling: true,
		}
	}

	// 5. Below the threshold the seller keeps charging origin-country VAT.
	return RuleResult{
		Country: p.SellerCountry,
		RuleDescription: fmt.Sprintf(
			"Origin country VAT (below the EUR 10,000 distance-selling threshold): %s VAT applies",
			p.SellerCountry.DisplayName()),
	}
}

// annualCrossBorderSales returns the explicit figure if supplied, otherwise
// derives it from selling price and annual volume. Absent inputs default to
// zero, which always lands below the threshold. That default under-triggers
// destination-country VAT rather than over-triggering it; callers who care
// must supply real figures.
func annualCrossBorderSales(p RuleParams) decimal.Decimal {
	if p.AnnualCrossBorderSales != nil {
		return *p.AnnualCrossBorderSales
	}
	return p.SellingPrice.Mul(p.AnnualVolume)
}

// SalesFigureDerived reports whether the resolver would fall back to the
// derived selling-price * volume figure for these params.
func SalesFigureDerived(p RuleParams) bool {
	return p.AnnualCrossBorderSales == nil
}

// RegistrationResult says where the seller must hold a VAT registration for
// sales shaped like the given params.
type RegistrationResult struct {
	Required  bool
	Countries []CountryCode
	Reason    string
}

// CheckVATRegistrationRequired derives the registration obligation from the
// jurisdiction rule. It shares ResolveRule's priority semantics exactly.
func CheckVATRegistrationRequired(p RuleParams) RegistrationResult {
	r := ResolveRule(p)

	switch {
	case r.IsReverseCharge:
		return RegistrationResult{
			Required: false,
			Reason:   "Reverse charge applies: the buyer accounts for VAT, no seller registration needed for this sale",
		}
	case r.IsLocalSale:
		return RegistrationResult{
			Required:  true,
			Countries: []CountryCode{r.Country},
			Reason: fmt.Sprintf("Inventory stored in %s requires a local VAT registration there",
				r.Country.DisplayName()),
		}
	case r.IsDomestic:
		return RegistrationResult{
			Required:  true,
			Countries: []CountryCode{r.Country},
			Reason: fmt.Sprintf("Domestic sales require VAT registration in %s",
				r.Country.DisplayName()),
		}
	case r.IsDistanceSelling:
		return RegistrationResult{
			Required:  true,
			Countries: []CountryCode{r.Country},
			Reason: fmt.Sprintf("Cross-border sales above the EUR 10,000 threshold require VAT registration in %s (or OSS)",
				r.Country.DisplayName()),
		}
	default:
		return RegistrationResult{
			Required:  true,
			Countries: []CountryCode{r.Country},
			Reason: fmt.Sprintf("Below the distance-selling threshold, VAT registration in the origin country %s suffices",
				r.Country.DisplayName()),
		}
	}
}

// OSSResult says whether a sale qualifies for the One-Stop-Shop scheme.
type OSSResult struct {
	Eligible bool
	Reason   string
}

// CheckOSSEligibility reports whether the sale can be declared through the
// EU One-Stop-Shop. Only cross-border B2C sales that are neither reverse
// charge nor local FBA sales qualify; that covers both the distance-selling
// and origin-fallback outcomes.
func CheckOSSEligibility(p RuleParams) OSSResult {
	r := ResolveRule(p)

	switch {
	case r.IsReverseCharge:
		return OSSResult{Reason: "OSS covers B2C sales only; cross-border B2B sales use the reverse charge"}
	case r.IsDomestic:
		return OSSResult{Reason: "Domestic sales are declared in the regular national VAT return, not OSS"}
	case r.IsLocalSale:
		return OSSResult{Reason: fmt.Sprintf("Sales from inventory stored in %s are domestic there and stay outside OSS",
			r.Country.DisplayName())}
	default:
		return OSSResult{
			Eligible: true,
			Reason:   "Cross-border B2C sale: eligible for a single OSS return instead of per-country registrations",
		}
	}
}
