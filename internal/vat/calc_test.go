package vat

import (
	"testing"
	"time"
)

func TestExtractNetFromGross(t *testing.T) {
	tests := []struct {
		name          string
		gross         string
		rate          string
		wantNet       string
		wantVATAmount string
	}{
		{
			name:          "German standard rate 19% on 119",
			gross:         "119",
			rate:          "0.19",
			wantNet:       "100",
			wantVATAmount: "19",
		},
		{
			name:          "German reduced rate 7% on 10.70 (books)",
			gross:         "10.70",
			rate:          "0.07",
			wantNet:       "10",
			wantVATAmount: "0.70",
		},
		{
			name:          "non-trivial value at 19%",
			gross:         "123.45",
			rate:          "0.19",
			wantNet:       "103.74",
			wantVATAmount: "19.71",
		},
		{
			name:          "Hungary 27% on 127",
			gross:         "127",
			rate:          "0.27",
			wantNet:       "100",
			wantVATAmount: "27",
		},
		{
			name:          "zero price is valid and yields all zeros",
			gross:         "0",
			rate:          "0.19",
			wantNet:       "0",
			wantVATAmount: "0",
		},
		{
			name:          "zero rate returns the gross as net",
			gross:         "55.55",
			rate:          "0",
			wantNet:       "55.55",
			wantVATAmount: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractNetFromGross(d(tt.gross), d(tt.rate))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.NetPrice.Equal(d(tt.wantNet)) {
				t.Errorf("net price: want %s, got %s", tt.wantNet, got.NetPrice.String())
			}
			if !got.VATAmount.Equal(d(tt.wantVATAmount)) {
				t.Errorf("VAT amount: want %s, got %s", tt.wantVATAmount, got.VATAmount.String())
			}
			if !got.VATRate.Equal(d(tt.rate)) {
				t.Errorf("rate: want %s, got %s", tt.rate, got.VATRate.String())
			}
		})
	}
}

func TestCalculateVATFromNet(t *testing.T) {
	tests := []struct {
		name          string
		net           string
		rate          string
		wantVATAmount string
		wantGross     string
	}{
		{
			name:          "Hungary 27%, highest EU rate",
			net:           "100",
			rate:          "0.27",
			wantVATAmount: "27",
			wantGross:     "127",
		},
		{
			name:          "Luxembourg 17%, lowest EU rate",
			net:           "100",
			rate:          "0.17",
			wantVATAmount: "17",
			wantGross:     "117",
		},
		{
			name:          "French super-reduced 2.1% on a small amount",
			net:           "10",
			rate:          "0.021",
			wantVATAmount: "0.21",
			wantGross:     "10.21",
		},
		{
			name:          "zero price",
			net:           "0",
			rate:          "0.25",
			wantVATAmount: "0",
			wantGross:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateVATFromNet(d(tt.net), d(tt.rate))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.VATAmount.Equal(d(tt.wantVATAmount)) {
				t.Errorf("VAT amount: want %s, got %s", tt.wantVATAmount, got.VATAmount.String())
			}
			if !got.GrossPrice.Equal(d(tt.wantGross)) {
				t.Errorf("gross price: want %s, got %s", tt.wantGross, got.GrossPrice.String())
			}
		})
	}
}

func TestExtractNetFromGross_Validation(t *testing.T) {
	tests := []struct {
		name     string
		gross    string
		rate     string
		wantCode ErrorCode
	}{
		{"negative price", "-100", "0.19", CodeNegativePrice},
		{"rate above ceiling", "100", "0.50", CodeRateOutOfRange},
		{"negative rate", "100", "-0.19", CodeRateOutOfRange},
		{"percentage passed instead of fraction", "100", "19", CodeRateOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractNetFromGross(d(tt.gross), d(tt.rate))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if CodeOf(err) != tt.wantCode {
				t.Errorf("error code: want %s, got %s", tt.wantCode, CodeOf(err))
			}

			// The same validation applies in the other direction.
			_, err = CalculateVATFromNet(d(tt.gross), d(tt.rate))
			if err == nil {
				t.Fatal("expected error from CalculateVATFromNet, got nil")
			}
			if CodeOf(err) != tt.wantCode {
				t.Errorf("CalculateVATFromNet error code: want %s, got %s", tt.wantCode, CodeOf(err))
			}
		})
	}
}

func TestParsePriceAndRate(t *testing.T) {
	if _, err := ParsePrice("not-a-number"); CodeOf(err) != CodeInvalidPriceType {
		t.Errorf("ParsePrice error code: want %s, got %s", CodeInvalidPriceType, CodeOf(err))
	}
	if _, err := ParseRate("abc"); CodeOf(err) != CodeInvalidRateType {
		t.Errorf("ParseRate error code: want %s, got %s", CodeInvalidRateType, CodeOf(err))
	}
	if v, err := ParsePrice("123.45"); err != nil || !v.Equal(d("123.45")) {
		t.Errorf("ParsePrice(123.45): got %v, %v", v, err)
	}
}

// TestRoundTrip checks that extracting the net from a gross and adding VAT
// back reproduces the original gross for 2-decimal amounts.
func TestRoundTrip(t *testing.T) {
	grosses := []string{"119", "123.45", "0.01", "10.70", "99.99", "1000000", "0.03"}
	rates := []string{"0", "0.021", "0.055", "0.07", "0.17", "0.19", "0.20", "0.21", "0.25", "0.255", "0.27"}

	for _, g := range grosses {
		for _, r := range rates {
			extracted, err := ExtractNetFromGross(d(g), d(r))
			if err != nil {
				t.Fatalf("ExtractNetFromGross(%s, %s): %v", g, r, err)
			}

			// Residual invariant: net + vat must equal the rounded gross exactly.
			sum := extracted.NetPrice.Add(extracted.VATAmount)
			if !sum.Equal(RoundMoney(d(g))) {
				t.Errorf("residual invariant broken for gross=%s rate=%s: net %s + vat %s = %s",
					g, r, extracted.NetPrice, extracted.VATAmount, sum)
			}

			back, err := CalculateVATFromNet(extracted.NetPrice, d(r))
			if err != nil {
				t.Fatalf("CalculateVATFromNet(%s, %s): %v", extracted.NetPrice, r, err)
			}

			// Round-trip tolerance: re-adding independently rounded VAT may
			// drift by at most one cent from the residual split.
			diff := back.GrossPrice.Sub(RoundMoney(d(g))).Abs()
			if diff.GreaterThan(d("0.01")) {
				t.Errorf("round trip for gross=%s rate=%s: got %s back (diff %s)",
					g, r, back.GrossPrice, diff)
			}
		}
	}
}

// TestRoundTrip_Exact pins the exact round-trip from the reference fixture:
// 123.45 at 19% extracts to 103.74 net, which converts back to 123.45 gross.
func TestRoundTrip_Exact(t *testing.T) {
	extracted, err := ExtractNetFromGross(d("123.45"), d("0.19"))
	if err != nil {
		t.Fatal(err)
	}
	if !extracted.NetPrice.Equal(d("103.74")) {
		t.Fatalf("net price: want 103.74, got %s", extracted.NetPrice)
	}

	back, err := CalculateVATFromNet(d("103.74"), d("0.19"))
	if err != nil {
		t.Fatal(err)
	}
	if !back.GrossPrice.Equal(d("123.45")) {
		t.Errorf("gross price: want 123.45, got %s", back.GrossPrice)
	}
}

func TestRoundMoney_HalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"100.125", "100.13"}, // half rounds up, not to even
		{"100.124", "100.12"},
		{"100.115", "100.12"},
		{"0.005", "0.01"},
		{"2.675", "2.68"},
		{"1", "1"},
	}

	for _, tt := range tests {
		if got := RoundMoney(d(tt.in)); !got.Equal(d(tt.want)) {
			t.Errorf("RoundMoney(%s): want %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestRoundRate(t *testing.T) {
	if got := RoundRate(d("0.0555")); !got.Equal(d("0.056")) {
		t.Errorf("RoundRate(0.0555): want 0.056, got %s", got)
	}
	if got := RoundRate(d("0.19")); !got.Equal(d("0.19")) {
		t.Errorf("RoundRate(0.19): want 0.19, got %s", got)
	}
}

func TestCountryAwareWrappers(t *testing.T) {
	asOf := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	got, err := ExtractNetFromGrossForCountry(d("119"), Germany, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.NetPrice.Equal(d("100")) || !got.VATAmount.Equal(d("19")) {
		t.Errorf("Germany extract: got net %s vat %s", got.NetPrice, got.VATAmount)
	}
	if !got.VATRate.Equal(d("0.19")) {
		t.Errorf("Germany rate: want 0.19, got %s", got.VATRate)
	}

	back, err := CalculateVATFromNetForCountry(d("100"), Hungary, asOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !back.GrossPrice.Equal(d("127")) {
		t.Errorf("Hungary gross: want 127, got %s", back.GrossPrice)
	}

	// Unknown codes are rejected, never silently defaulted.
	if _, err := ExtractNetFromGrossForCountry(d("100"), "XX", asOf); CodeOf(err) != CodeUnknownCountry {
		t.Errorf("unknown country: want %s, got %v", CodeUnknownCountry, err)
	}
	if _, err := CalculateVATFromNetForCountry(d("100"), "US", asOf); CodeOf(err) != CodeUnknownCountry {
		t.Errorf("unknown country: want %s, got %v", CodeUnknownCountry, err)
	}
}

// The wrappers pick up scheduled rate changes through the as-of date.
func TestCountryAwareWrappers_ScheduledChange(t *testing.T) {
	before := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	after := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

	got, err := CalculateVATFromNetForCountry(d("100"), Estonia, before)
	if err != nil {
		t.Fatal(err)
	}
	if !got.VATAmount.Equal(d("22")) {
		t.Errorf("Estonia before change: want VAT 22, got %s", got.VATAmount)
	}

	got, err = CalculateVATFromNetForCountry(d("100"), Estonia, after)
	if err != nil {
		t.Fatal(err)
	}
	if !got.VATAmount.Equal(d("24")) {
		t.Errorf("Estonia on change date: want VAT 24, got %s", got.VATAmount)
	}
}
