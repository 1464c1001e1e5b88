package vat

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStandardRateOn_ScheduledChanges(t *testing.T) {
	tests := []struct {
		name    string
		country CountryCode
		asOf    time.Time
		want    string
	}{
		{"Estonia day before change", Estonia, time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC), "0.22"},
		{"Estonia on change date", Estonia, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), "0.24"},
		{"Estonia day after change", Estonia, time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC), "0.24"},
		{"Romania day before change", Romania, time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC), "0.19"},
		{"Romania on change date", Romania, time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), "0.21"},
		{"Germany unaffected by schedule", Germany, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), "0.19"},
		{"Denmark always 25%", Denmark, time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC), "0.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StandardRateOn(tt.country, tt.asOf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("rate: want %s, got %s", tt.want, got.String())
			}
		})
	}
}

func TestStandardRateOn_UnknownCountry(t *testing.T) {
	for _, code := range []CountryCode{"XX", "US", "", "de"} {
		_, err := StandardRateOn(code, time.Now().UTC())
		if err == nil {
			t.Errorf("expected error for %q, got nil", code)
			continue
		}
		if CodeOf(err) != CodeUnknownCountry {
			t.Errorf("error code for %q: want %s, got %s", code, CodeUnknownCountry, CodeOf(err))
		}
	}
}

func TestRatesFor(t *testing.T) {
	r, ok := RatesFor(France)
	if !ok {
		t.Fatal("France missing from rate table")
	}
	if !r.Standard.Equal(d("0.20")) {
		t.Errorf("France standard: want 0.20, got %s", r.Standard)
	}
	if r.SuperReduced == nil || !r.SuperReduced.Equal(d("0.021")) {
		t.Errorf("France super-reduced: want 0.021, got %v", r.SuperReduced)
	}

	if _, ok := RatesFor("XX"); ok {
		t.Error("expected no entry for XX")
	}
}

// Denmark's single-rate system is data, not a code branch: all three reduced
// fields are absent in the table.
func TestDenmarkHasNoReducedRates(t *testing.T) {
	if HasReducedRates(Denmark) {
		t.Error("HasReducedRates(DK): want false, got true")
	}

	r, ok := RatesFor(Denmark)
	if !ok {
		t.Fatal("Denmark missing from rate table")
	}
	if r.Reduced1 != nil || r.Reduced2 != nil || r.SuperReduced != nil {
		t.Error("Denmark must carry no reduced-rate entries")
	}

	rate, err := StandardRateOn(Denmark, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if !rate.Equal(d("0.25")) {
		t.Errorf("Denmark standard rate: want 0.25, got %s", rate)
	}

	if !HasReducedRates(Germany) {
		t.Error("HasReducedRates(DE): want true, got false")
	}
}

func TestAllCountries(t *testing.T) {
	codes := AllCountries()
	if len(codes) != 30 {
		t.Fatalf("want 30 countries, got %d", len(codes))
	}

	for _, c := range codes {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
		if len(c) != 2 {
			t.Errorf("%q is not an alpha-2 code", c)
		}
	}

	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Errorf("codes not sorted: %s before %s", codes[i-1], codes[i])
		}
	}

	if CountryCode("XX").Valid() {
		t.Error("XX must not be valid")
	}
}

// Every rate in the table must sit inside the engine's [0, 0.30] sanity
// bound, and every reduced rate must be below the country's standard rate.
func TestRateTableBounds(t *testing.T) {
	zero := decimal.Zero

	for _, c := range AllCountries() {
		r, ok := RatesFor(c)
		if !ok {
			t.Fatalf("missing entry for %s", c)
		}

		check := func(label string, v decimal.Decimal) {
			if v.LessThanOrEqual(zero) || v.GreaterThan(maxRate) {
				t.Errorf("%s %s rate %s outside (0, 0.30]", c, label, v)
			}
		}

		check("standard", r.Standard)
		for label, reduced := range map[string]*decimal.Decimal{
			"reduced1": r.Reduced1, "reduced2": r.Reduced2, "super-reduced": r.SuperReduced,
		} {
			if reduced == nil {
				continue
			}
			check(label, *reduced)
			if reduced.GreaterThanOrEqual(r.Standard) {
				t.Errorf("%s %s rate %s not below standard %s", c, label, reduced, r.Standard)
			}
		}
	}
}

// The schedule's Before values must agree with the static table, otherwise
// pre-change lookups would disagree with the published table.
func TestScheduleMatchesTable(t *testing.T) {
	for _, change := range ScheduledChanges() {
		r, ok := RatesFor(change.Country)
		if !ok {
			t.Fatalf("scheduled change for unknown country %s", change.Country)
		}
		if !change.Before.Equal(r.Standard) {
			t.Errorf("%s: schedule Before %s does not match table standard %s",
				change.Country, change.Before, r.Standard)
		}
		if change.After.Equal(change.Before) {
			t.Errorf("%s: schedule is a no-op", change.Country)
		}
		if !change.After.GreaterThan(decimal.Zero) || change.After.GreaterThan(maxRate) {
			t.Errorf("%s: After rate %s outside bounds", change.Country, change.After)
		}
	}
}

// RatesFor hands out copies; mutating a returned entry must not leak into
// later lookups.
func TestRatesForReturnsCopies(t *testing.T) {
	first, _ := RatesFor(Germany)
	*first.Reduced1 = d("0.99")

	second, _ := RatesFor(Germany)
	if !second.Reduced1.Equal(d("0.07")) {
		t.Errorf("table mutated through returned copy: got %s", second.Reduced1)
	}
}

func TestDisplayName(t *testing.T) {
	if got := Germany.DisplayName(); got != "Germany" {
		t.Errorf("want Germany, got %s", got)
	}
	if got := CountryCode("XX").DisplayName(); got != "XX" {
		t.Errorf("want raw code for unknown country, got %s", got)
	}
}

func TestIsEU(t *testing.T) {
	if !France.IsEU() {
		t.Error("France is an EU member")
	}
	for _, c := range []CountryCode{UnitedKingdom, Switzerland, Norway} {
		if c.IsEU() {
			t.Errorf("%s is not an EU member", c)
		}
	}
}
