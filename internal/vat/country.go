package vat

// CountryCode is an ISO 3166-1 alpha-2 code for a jurisdiction the engine
// knows about: the 27 EU member states plus the United Kingdom, Switzerland,
// and Norway. Every function that accepts a CountryCode rejects any other
// code with a ValidationError carrying CodeUnknownCountry.
type CountryCode string

const (
	Austria     CountryCode = "AT"
	Belgium     CountryCode = "BE"
	Bulgaria    CountryCode = "BG"
	Croatia     CountryCode = "HR"
	Cyprus      CountryCode = "CY"
	Czechia     CountryCode = "CZ"
	Denmark     CountryCode = "DK"
	Estonia     CountryCode = "EE"
	Finland     CountryCode = "FI"
	France      CountryCode = "FR"
	Germany     CountryCode = "DE"
	Greece      CountryCode = "GR"
	Hungary     CountryCode = "HU"
	Ireland     CountryCode = "IE"
	Italy       CountryCode = "IT"
	Latvia      CountryCode = "LV"
	Lithuania   CountryCode = "LT"
	Luxembourg  CountryCode = "LU"
	Malta       CountryCode = "MT"
	Netherlands CountryCode = "NL"
	Poland      CountryCode = "PL"
	Portugal    CountryCode = "PT"
	Romania     CountryCode = "RO"
	Slovakia    CountryCode = "SK"
	Slovenia    CountryCode = "SI"
	Spain       CountryCode = "ES"
	Sweden      CountryCode = "SE"

	UnitedKingdom CountryCode = "GB"
	Switzerland   CountryCode = "CH"
	Norway        CountryCode = "NO"
)

// euMembers holds the 27 EU member states. GB, CH, and NO are covered by the
// rate table but are outside the EU VAT area.
var euMembers = map[CountryCode]bool{
	Austria: true, Belgium: true, Bulgaria: true, Croatia: true, Cyprus: true,
	Czechia: true, Denmark: true, Estonia: true, Finland: true, France: true,
	Germany: true, Greece: true, Hungary: true, Ireland: true, Italy: true,
	Latvia: true, Lithuania: true, Luxembourg: true, Malta: true,
	Netherlands: true, Poland: true, Portugal: true, Romania: true,
	Slovakia: true, Slovenia: true, Spain: true, Sweden: true,
}

// Valid reports whether the code is one of the 30 supported jurisdictions.
func (c CountryCode) Valid() bool {
	_, ok := rateTable[c]
	return ok
}

// IsEU reports whether the code is an EU member state.
func (c CountryCode) IsEU() bool {
	return euMembers[c]
}

// DisplayName returns the English name of the country, or the raw code if
// the code is not in the supported set.
func (c CountryCode) DisplayName() string {
	if r, ok := rateTable[c]; ok {
		return r.DisplayName
	}
	return string(c)
}

// AllCountries returns the supported country codes in alphabetical order.
func AllCountries() []CountryCode {
	return append([]CountryCode(nil), allCountries...)
}
