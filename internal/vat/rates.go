package vat

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CountryRates holds the statutory VAT rates for a single jurisdiction.
// Rates are fractions (0.19 means 19%). Reduced rates are pointers because
// not every country has them; Denmark has none at all, which the table
// expresses by leaving all three nil rather than by a code branch.
type CountryRates struct {
	Country      CountryCode
	DisplayName  string
	Standard     decimal.Decimal
	Reduced1     *decimal.Decimal
	Reduced2     *decimal.Decimal
	SuperReduced *decimal.Decimal
	Notes        string
}

// RateChange is a scheduled standard-rate change for a single country.
// The new rate applies on and after ChangeDate (inclusive).
type RateChange struct {
	Country    CountryCode
	ChangeDate time.Time
	Before     decimal.Decimal
	After      decimal.Decimal
}

// d parses a rate literal at table construction time. The literals below are
// compile-time constants in spirit; a typo panics at init, never at runtime.
func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

// rateTable is the ground-truth rate database. It is built once at init and
// never mutated; RatesFor hands out copies. Standard rates reflect the law
// as of the build date, before applying rateChangeSchedule.
var rateTable = map[CountryCode]CountryRates{
	Austria:     {Country: Austria, DisplayName: "Austria", Standard: d("0.20"), Reduced1: dp("0.10"), Reduced2: dp("0.13")},
	Belgium:     {Country: Belgium, DisplayName: "Belgium", Standard: d("0.21"), Reduced1: dp("0.06"), Reduced2: dp("0.12")},
	Bulgaria:    {Country: Bulgaria, DisplayName: "Bulgaria", Standard: d("0.20"), Reduced1: dp("0.09")},
	Croatia:     {Country: Croatia, DisplayName: "Croatia", Standard: d("0.25"), Reduced1: dp("0.05"), Reduced2: dp("0.13")},
	Cyprus:      {Country: Cyprus, DisplayName: "Cyprus", Standard: d("0.19"), Reduced1: dp("0.05"), Reduced2: dp("0.09")},
	Czechia:     {Country: Czechia, DisplayName: "Czechia", Standard: d("0.21"), Reduced1: dp("0.12")},
	Denmark:     {Country: Denmark, DisplayName: "Denmark", Standard: d("0.25"), Notes: "No reduced rates; single-rate system"},
	Estonia:     {Country: Estonia, DisplayName: "Estonia", Standard: d("0.22"), Reduced1: dp("0.09"), Notes: "Standard rate rises to 24% on 2025-07-01"},
	Finland:     {Country: Finland, DisplayName: "Finland", Standard: d("0.255"), Reduced1: dp("0.10"), Reduced2: dp("0.14")},
	France:      {Country: France, DisplayName: "France", Standard: d("0.20"), Reduced1: dp("0.055"), Reduced2: dp("0.10"), SuperReduced: dp("0.021")},
	Germany:     {Country: Germany, DisplayName: "Germany", Standard: d("0.19"), Reduced1: dp("0.07")},
	Greece:      {Country: Greece, DisplayName: "Greece", Standard: d("0.24"), Reduced1: dp("0.06"), Reduced2: dp("0.13")},
	Hungary:     {Country: Hungary, DisplayName: "Hungary", Standard: d("0.27"), Reduced1: dp("0.05"), Reduced2: dp("0.18"), Notes: "Highest standard rate in the EU"},
	Ireland:     {Country: Ireland, DisplayName: "Ireland", Standard: d("0.23"), Reduced1: dp("0.09"), Reduced2: dp("0.135"), SuperReduced: dp("0.048")},
	Italy:       {Country: Italy, DisplayName: "Italy", Standard: d("0.22"), Reduced1: dp("0.05"), Reduced2: dp("0.10"), SuperReduced: dp("0.04")},
	Latvia:      {Country: Latvia, DisplayName: "Latvia", Standard: d("0.21"), Reduced1: dp("0.05"), Reduced2: dp("0.12")},
	Lithuania:   {Country: Lithuania, DisplayName: "Lithuania", Standard: d("0.21"), Reduced1: dp("0.05"), Reduced2: dp("0.09")},
	Luxembourg:  {Country: Luxembourg, DisplayName: "Luxembourg", Standard: d("0.17"), Reduced1: dp("0.08"), Reduced2: dp("0.14"), SuperReduced: dp("0.03"), Notes: "Lowest standard rate in the EU"},
	Malta:       {Country: Malta, DisplayName: "Malta", Standard: d("0.18"), Reduced1: dp("0.05"), Reduced2: dp("0.07")},
	Netherlands: {Country: Netherlands, DisplayName: "Netherlands", Standard: d("0.21"), Reduced1: dp("0.09")},
	Poland:      {Country: Poland, DisplayName: "Poland", Standard: d("0.23"), Reduced1: dp("0.05"), Reduced2: dp("0.08")},
	Portugal:    {Country: Portugal, DisplayName: "Portugal", Standard: d("0.23"), Reduced1: dp("0.06"), Reduced2: dp("0.13")},
	Romania:     {Country: Romania, DisplayName: "Romania", Standard: d("0.19"), Reduced1: dp("0.05"), Reduced2: dp("0.09"), Notes: "Standard rate rises to 21% on 2025-08-01"},
	Slovakia:    {Country: Slovakia, DisplayName: "Slovakia", Standard: d("0.23"), Reduced1: dp("0.05"), Reduced2: dp("0.19")},
	Slovenia:    {Country: Slovenia, DisplayName: "Slovenia", Standard: d("0.22"), Reduced1: dp("0.05"), Reduced2: dp("0.095")},
	Spain:       {Country: Spain, DisplayName: "Spain", Standard: d("0.21"), Reduced1: dp("0.10"), SuperReduced: dp("0.04")},
	Sweden:      {Country: Sweden, DisplayName: "Sweden", Standard: d("0.25"), Reduced1: dp("0.06"), Reduced2: dp("0.12")},

	UnitedKingdom: {Country: UnitedKingdom, DisplayName: "United Kingdom", Standard: d("0.20"), Reduced1: dp("0.05")},
	Switzerland:   {Country: Switzerland, DisplayName: "Switzerland", Standard: d("0.081"), Reduced1: dp("0.026"), Reduced2: dp("0.038")},
	Norway:        {Country: Norway, DisplayName: "Norway", Standard: d("0.25"), Reduced1: dp("0.12"), Reduced2: dp("0.15")},
}

// rateChangeSchedule lists known future standard-rate changes. The Before
// value must match the country's rateTable entry; TestScheduleMatchesTable
// enforces that cross-check. Once the calculation date reaches ChangeDate
// the schedule, not the static table, is authoritative.
var rateChangeSchedule = []RateChange{
	{Country: Estonia, ChangeDate: time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), Before: d("0.22"), After: d("0.24")},
	{Country: Romania, ChangeDate: time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), Before: d("0.19"), After: d("0.21")},
}

var allCountries = func() []CountryCode {
	codes := make([]CountryCode, 0, len(rateTable))
	for c := range rateTable {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}()

// RatesFor returns the rate table entry for a country. The second return is
// false for codes outside the supported set.
func RatesFor(country CountryCode) (CountryRates, bool) {
	r, ok := rateTable[country]
	if !ok {
		return CountryRates{}, false
	}
	// Copy the pointer fields so callers cannot reach into the table.
	return CountryRates{
		Country:      r.Country,
		DisplayName:  r.DisplayName,
		Standard:     r.Standard,
		Reduced1:     copyRate(r.Reduced1),
		Reduced2:     copyRate(r.Reduced2),
		SuperReduced: copyRate(r.SuperReduced),
		Notes:        r.Notes,
	}, true
}

func copyRate(r *decimal.Decimal) *decimal.Decimal {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}

// HasReducedRates reports whether the country has any reduced, alternate
// reduced, or super-reduced rate. False for unknown countries.
func HasReducedRates(country CountryCode) bool {
	r, ok := rateTable[country]
	if !ok {
		return false
	}
	return r.Reduced1 != nil || r.Reduced2 != nil || r.SuperReduced != nil
}

// ScheduledChanges returns a copy of the rate change schedule.
func ScheduledChanges() []RateChange {
	return append([]RateChange(nil), rateChangeSchedule...)
}

// StandardRate returns the standard rate applicable today (UTC).
func StandardRate(country CountryCode) (decimal.Decimal, error) {
	return StandardRateOn(country, time.Now().UTC())
}

// StandardRateOn returns the standard rate applicable on the given date.
// For countries with a scheduled change, the new rate applies starting on
// and including the change date. The lookup never mutates the table, so
// historical calculations stay reproducible.
func StandardRateOn(country CountryCode, asOf time.Time) (decimal.Decimal, error) {
	r, ok := rateTable[country]
	if !ok {
		return decimal.Zero, newValidationError(CodeUnknownCountry, "country",
			"unknown country code %q", string(country))
	}

	for _, change := range rateChangeSchedule {
		if change.Country != country {
			continue
		}
		if !asOf.Before(change.ChangeDate) {
			return change.After, nil
		}
		return change.Before, nil
	}

	return r.Standard, nil
}
