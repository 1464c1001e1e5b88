package vat

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	one = decimal.NewFromInt(1)

	// maxRate is a sanity ceiling on VAT rates. No supported jurisdiction
	// exceeds 27%; the bound catches unit errors such as passing 19
	// instead of 0.19.
	maxRate = decimal.RequireFromString("0.30")
)

// RoundMoney rounds a monetary amount to 2 decimal places, half up
// (100.125 rounds to 100.13). Every monetary value the engine returns has
// passed through this function.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// RoundRate rounds a rate to 3 decimal places for display. Calculations
// always use the unrounded rate.
func RoundRate(v decimal.Decimal) decimal.Decimal {
	return v.Round(3)
}

// NetFromGross is the result of extracting net price and VAT from a
// VAT-inclusive gross price.
type NetFromGross struct {
	NetPrice  decimal.Decimal
	VATAmount decimal.Decimal
	VATRate   decimal.Decimal
}

// VATFromNet is the result of computing VAT and gross price from a net price.
type VATFromNet struct {
	NetPrice   decimal.Decimal
	VATAmount  decimal.Decimal
	GrossPrice decimal.Decimal
	VATRate    decimal.Decimal
}

// ParsePrice converts a caller-supplied price string into a decimal.
// Parse failures map to the INVALID_PRICE_TYPE error class because they
// arrive from dynamically-typed boundaries (JSON bodies, form fields).
func ParsePrice(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, newValidationError(CodeInvalidPriceType, "price",
			"price %q is not a number", s)
	}
	return v, nil
}

// ParseRate converts a caller-supplied rate string into a decimal.
func ParseRate(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, newValidationError(CodeInvalidRateType, "vat_rate",
			"vat_rate %q is not a number", s)
	}
	return v, nil
}

func validatePrice(price decimal.Decimal, field string) error {
	if price.IsNegative() {
		return newValidationError(CodeNegativePrice, field,
			"%s must not be negative, got %s", field, price.String())
	}
	return nil
}

func validateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(maxRate) {
		return newValidationError(CodeRateOutOfRange, "vat_rate",
			"vat_rate must be in [0, 0.30], got %s", rate.String())
	}
	return nil
}

// ExtractNetFromGross splits a VAT-inclusive gross price into net price and
// VAT amount at the given rate.
//
// The VAT amount is computed as the rounded residual gross - net, not as
// gross*rate/(1+rate) rounded independently, so net + vat == round(gross)
// holds exactly.
func ExtractNetFromGross(grossPrice, vatRate decimal.Decimal) (NetFromGross, error) {
	if err := validatePrice(grossPrice, "gross_price"); err != nil {
		return NetFromGross{}, err
	}
	if err := validateRate(vatRate); err != nil {
		return NetFromGross{}, err
	}

	net := RoundMoney(grossPrice.Div(one.Add(vatRate)))
	vatAmount := RoundMoney(grossPrice.Sub(net))

	return NetFromGross{
		NetPrice:  net,
		VATAmount: vatAmount,
		VATRate:   vatRate,
	}, nil
}

// CalculateVATFromNet computes the VAT amount and gross price for a
// VAT-exclusive net price at the given rate.
func CalculateVATFromNet(netPrice, vatRate decimal.Decimal) (VATFromNet, error) {
	if err := validatePrice(netPrice, "net_price"); err != nil {
		return VATFromNet{}, err
	}
	if err := validateRate(vatRate); err != nil {
		return VATFromNet{}, err
	}

	vatAmount := RoundMoney(netPrice.Mul(vatRate))
	gross := RoundMoney(netPrice.Add(vatAmount))

	return VATFromNet{
		NetPrice:   netPrice,
		VATAmount:  vatAmount,
		GrossPrice: gross,
		VATRate:    vatRate,
	}, nil
}

// ExtractNetFromGrossForCountry resolves the country's standard rate as of
// the given date and delegates to ExtractNetFromGross. A zero asOf means
// today (UTC).
func ExtractNetFromGrossForCountry(grossPrice decimal.Decimal, country CountryCode, asOf time.Time) (NetFromGross, error) {
	rate, err := standardRateOrNow(country, asOf)
	if err != nil {
		return NetFromGross{}, err
	}
	return ExtractNetFromGross(grossPrice, rate)
}

// CalculateVATFromNetForCountry resolves the country's standard rate as of
// the given date and delegates to CalculateVATFromNet. A zero asOf means
// today (UTC).
func CalculateVATFromNetForCountry(netPrice decimal.Decimal, country CountryCode, asOf time.Time) (VATFromNet, error) {
	rate, err := standardRateOrNow(country, asOf)
	if err != nil {
		return VATFromNet{}, err
	}
	return CalculateVATFromNet(netPrice, rate)
}

func standardRateOrNow(country CountryCode, asOf time.Time) (decimal.Decimal, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return StandardRateOn(country, asOf)
}
