package importer

import (
	"strconv"
	"strings"
	"unicode"
)

// Locale carries the owner's formatting preferences for numeric cells.
type Locale struct {
	Country  string
	Currency string
}

var decimalCommaCountries = map[string]struct{}{
	"AR": {}, "AT": {}, "BE": {}, "BR": {}, "CL": {}, "CO": {}, "CZ": {}, "DE": {},
	"DK": {}, "ES": {}, "FI": {}, "FR": {}, "GR": {}, "HU": {}, "ID": {}, "IT": {},
	"NL": {}, "NO": {}, "PL": {}, "PT": {}, "RO": {}, "RU": {}, "SE": {}, "TR": {},
	"UA": {}, "VN": {}, "ZA": {},
}

var decimalCommaCurrencies = map[string]struct{}{
	"EUR": {}, "BRL": {}, "ARS": {}, "CLP": {}, "COP": {}, "CZK": {}, "DKK": {},
	"HUF": {}, "IDR": {}, "NOK": {}, "PLN": {}, "RON": {}, "RUB": {}, "SEK": {},
	"TRY": {}, "UAH": {}, "VND": {},
}

var countryNames = map[string]string{
	"ARGENTINA": "AR", "AUSTRIA": "AT", "BELGIUM": "BE", "BRAZIL": "BR", "CHILE": "CL",
	"COLOMBIA": "CO", "CZECH REPUBLIC": "CZ", "CZECHIA": "CZ", "GERMANY": "DE",
	"DENMARK": "DK", "SPAIN": "ES", "FINLAND": "FI", "FRANCE": "FR", "GREECE": "GR",
	"HUNGARY": "HU", "INDONESIA": "ID", "ITALY": "IT", "NETHERLANDS": "NL",
	"NORWAY": "NO", "POLAND": "PL", "PORTUGAL": "PT", "ROMANIA": "RO", "RUSSIA": "RU",
	"SWEDEN": "SE", "TURKEY": "TR", "UKRAINE": "UA", "VIETNAM": "VN",
	"SOUTH AFRICA": "ZA",
}

// DecimalComma reports whether numbers for this locale are written as
// 1.234,56. The country decides when it is known; the currency otherwise.
func (l Locale) DecimalComma() bool {
	country := strings.ToUpper(strings.TrimSpace(l.Country))
	if code, ok := countryNames[country]; ok {
		country = code
	}
	if country != "" {
		_, ok := decimalCommaCountries[country]
		return ok
	}
	_, ok := decimalCommaCurrencies[strings.ToUpper(strings.TrimSpace(l.Currency))]
	return ok
}

// ParseAmount reads a money cell, ignoring currency symbols and letters.
// The bool result is false for empty or unreadable values.
func ParseAmount(raw string, locale Locale) (*float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, raw)
	if cleaned == "" || cleaned == "-" {
		return nil, false
	}

	if locale.DecimalComma() {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, false
	}
	return &value, true
}

// parseHours reads hour columns, which spreadsheets write with either
// separator regardless of locale.
func parseHours(raw string) float64 {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0
	}
	if !strings.Contains(value, ".") {
		value = strings.Replace(value, ",", ".", 1)
	}
	hours, err := strconv.ParseFloat(value, 64)
	if err != nil || hours < 0 {
		return 0
	}
	return hours
}
