// Package fx resolves TCMB (Türkiye Cumhuriyet Merkez Bankası) exchange
// rates and converts amounts between currencies via TRY.
package fx

// LocalCurrency is the quote currency of every TCMB rate.
const LocalCurrency = "TRY"

// RateKind selects one of the four published rate figures.
// MBDA = forex buying, MBDS = forex selling,
// MEDA = banknote buying, MEDS = banknote selling.
type RateKind string

const (
	ForexBuying     RateKind = "MBDA"
	ForexSelling    RateKind = "MBDS"
	BanknoteBuying  RateKind = "MEDA"
	BanknoteSelling RateKind = "MEDS"
)

// RateSet holds the published figures for one currency on one date. Absent
// figures stay nil; Unit is 1 or 100 depending on how the currency is quoted.
type RateSet struct {
	ForexBuying     *float64 `json:"MBDA"`
	ForexSelling    *float64 `json:"MBDS"`
	BanknoteBuying  *float64 `json:"MEDA"`
	BanknoteSelling *float64 `json:"MEDS"`
	Unit            int      `json:"unit"`
}

// Table maps ISO currency codes to their rate sets for a single date.
type Table map[string]RateSet

// Rate returns the per-single-unit rate of the requested kind. Currencies
// quoted per 100 units (JPY) are normalised here; callers never divide by
// Unit themselves.
func (rs RateSet) Rate(kind RateKind) (float64, bool) {
	var raw *float64
	switch kind {
	case ForexBuying:
		raw = rs.ForexBuying
	case ForexSelling:
		raw = rs.ForexSelling
	case BanknoteBuying:
		raw = rs.BanknoteBuying
	case BanknoteSelling:
		raw = rs.BanknoteSelling
	default:
		return 0, false
	}
	if raw == nil {
		return 0, false
	}
	unit := rs.Unit
	if unit == 0 {
		unit = 1
	}
	return *raw / float64(unit), true
}

// RateFor looks up the per-unit rate for a currency in the table.
func (t Table) RateFor(currency string, kind RateKind) (float64, bool) {
	rs, ok := t[currency]
	if !ok {
		return 0, false
	}
	return rs.Rate(kind)
}

// Convert converts amount between currencies using the table. Rules in
// order: same currency returns the amount unchanged; TRY to foreign divides
// by the target rate; foreign to TRY multiplies by the source rate; foreign
// to foreign goes through TRY. A missing or zero denominator rate yields
// ok=false — conversion unavailable, never a division by zero.
func Convert(amount float64, from, to string, table Table, kind RateKind) (float64, bool) {
	if from == to {
		return amount, true
	}
	if from == LocalCurrency && to != LocalCurrency {
		toRate, ok := table.RateFor(to, kind)
		if !ok || toRate == 0 {
			return 0, false
		}
		return amount / toRate, true
	}
	if from != LocalCurrency && to == LocalCurrency {
		fromRate, ok := table.RateFor(from, kind)
		if !ok {
			return 0, false
		}
		return amount * fromRate, true
	}
	fromRate, okFrom := table.RateFor(from, kind)
	toRate, okTo := table.RateFor(to, kind)
	if !okFrom || !okTo || toRate == 0 {
		return 0, false
	}
	return amount * fromRate / toRate, true
}
