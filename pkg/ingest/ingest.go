// Package ingest performs the single validation/parsing pass over the
// externally fetched tables (deliverable-bond basket, futures quotes).
// Downstream stages only ever see the strongly-typed rows produced
// here; missing or invalid data surfaces at this boundary, either as a
// named missing-column error or as a NaN field that the kernel treats
// as undefined.
package ingest

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/gregtusar/ctdbasis/pkg/models"
)

// Record is one raw table row with lower-cased, trimmed column names.
type Record map[string]string

// MissingColumnError identifies a required column absent from an input
// table, including the aliases that were tried.
type MissingColumnError struct {
	Aliases []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column (tried: %s)", strings.Join(e.Aliases, ", "))
}

var eightDigits = regexp.MustCompile(`\d{8}`)

// NormalizeDate converts a date value to an 8-digit YYYYMMDD string.
func NormalizeDate(val string) string {
	s := strings.TrimSpace(val)
	if s == "" {
		return ""
	}
	if m := eightDigits.FindString(s); m != "" {
		return m
	}
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}

// ParseVolume parses a volume figure, accepting 'K' and 'M' suffixes
// for thousands and millions. Unparsable input yields NaN, matching
// the coerce-to-missing behavior of the upstream feed handling.
func ParseVolume(val string) float64 {
	s := strings.TrimSpace(val)
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1e3, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1e6, strings.TrimSuffix(s, "M")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f * mult
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ReadCSV loads a CSV file into records keyed by normalized header.
func ReadCSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// pick resolves the first present alias against the table header, or
// fails with a MissingColumnError naming everything that was tried.
func pick(rec Record, aliases ...string) (string, error) {
	for _, a := range aliases {
		if _, ok := rec[a]; ok {
			return a, nil
		}
	}
	return "", &MissingColumnError{Aliases: aliases}
}

// quoteAverageColumns are averaged per conid before fair-value
// derivation; everything else keeps its first-encountered value.
var quoteAverageColumns = []string{"bid_yield", "ask_yield", "yield", "ask_price", "bid_price", "price"}

// AverageByConID collapses repeated per-CUSIP quote rows to one row
// per conid, averaging the quote columns. Rows without a conid are
// dropped. First-encounter order is preserved.
func AverageByConID(records []Record) []Record {
	type group struct {
		first Record
		sums  map[string]float64
		cnts  map[string]int
	}
	var order []string
	groups := make(map[string]*group)
	for _, rec := range records {
		id := strings.TrimSpace(rec["conid"])
		if id == "" {
			continue
		}
		g, ok := groups[id]
		if !ok {
			g = &group{first: rec, sums: make(map[string]float64), cnts: make(map[string]int)}
			groups[id] = g
			order = append(order, id)
		}
		for _, col := range quoteAverageColumns {
			if v := parseFloat(rec[col]); !math.IsNaN(v) {
				g.sums[col] += v
				g.cnts[col]++
			}
		}
	}

	out := make([]Record, 0, len(order))
	for _, id := range order {
		g := groups[id]
		rec := make(Record, len(g.first))
		for k, v := range g.first {
			rec[k] = v
		}
		for _, col := range quoteAverageColumns {
			if n := g.cnts[col]; n > 0 {
				rec[col] = strconv.FormatFloat(g.sums[col]/float64(n), 'f', -1, 64)
			}
		}
		out = append(out, rec)
	}
	return out
}

// ParseBondBasket validates and types the deliverable-bond table.
// Quote rows are averaged per conid first; rows missing any required
// value after coercion are dropped (the dropped count is returned for
// logging). Market yield arrives in percent and is stored as a
// decimal.
func ParseBondBasket(records []Record) ([]models.DeliverableBond, int, error) {
	if len(records) == 0 {
		return nil, 0, nil
	}
	implied := AverageByConID(records)
	if len(implied) == 0 {
		return nil, len(records), nil
	}

	probe := implied[0]
	couponCol, err := pick(probe, "coupon", "coupon_rate")
	if err != nil {
		return nil, 0, err
	}
	ytmCol, err := pick(probe, "years_to_maturity")
	if err != nil {
		return nil, 0, err
	}
	origCol, err := pick(probe, "original_maturity", "orig_maturity")
	if err != nil {
		return nil, 0, err
	}
	cfCol, err := pick(probe, "conversion_factor", "cf")
	if err != nil {
		return nil, 0, err
	}
	prevCol, err := pick(probe, "prev_coupon", "previous_coupon", "coupon_prev_date")
	if err != nil {
		return nil, 0, err
	}
	nextCol, err := pick(probe, "next_coupon", "coupon_ncpdt")
	if err != nil {
		return nil, 0, err
	}
	matCol, err := pick(probe, "maturity_date")
	if err != nil {
		return nil, 0, err
	}
	yieldCol, err := pick(probe, "yield", "market_yield")
	if err != nil {
		return nil, 0, err
	}

	var bonds []models.DeliverableBond
	dropped := 0
	for _, rec := range implied {
		b := models.DeliverableBond{
			ConID:            strings.TrimSpace(rec["conid"]),
			CUSIP:            strings.TrimSpace(firstNonEmpty(rec["cusip"], rec["cusip_y"])),
			Coupon:           parseFloat(rec[couponCol]),
			MaturityDate:     NormalizeDate(rec[matCol]),
			PrevCoupon:       NormalizeDate(rec[prevCol]),
			NextCoupon:       NormalizeDate(rec[nextCol]),
			YearsToMaturity:  parseFloat(rec[ytmCol]),
			OriginalMaturity: parseFloat(rec[origCol]),
			ConversionFactor: parseFloat(rec[cfCol]),
			Yield:            parseFloat(rec[yieldCol]) / 100,
			Price:            parseFloat(rec["price"]),
		}
		if math.IsNaN(b.Coupon) || math.IsNaN(b.YearsToMaturity) || math.IsNaN(b.ConversionFactor) ||
			b.PrevCoupon == "" || b.NextCoupon == "" || b.MaturityDate == "" {
			dropped++
			continue
		}
		bonds = append(bonds, b)
	}
	return bonds, dropped, nil
}

// ExpandFuturesQuotes turns raw futures quote rows into synthetic
// contract rows: a valid bid/ask pair yields two rows tagged with
// their source, otherwise a valid last price yields one. Rows whose
// last price is a "c"-prefixed close marker are skipped, as are rows
// with no usable quote.
func ExpandFuturesQuotes(records []Record) ([]models.FuturesContract, error) {
	if len(records) == 0 {
		return nil, nil
	}
	probe := records[0]
	tickerCol, err := pick(probe, "ticker", "symbol")
	if err != nil {
		return nil, err
	}
	ytmCol, err := pick(probe, "year_to_maturity", "years_to_maturity")
	if err != nil {
		return nil, err
	}
	multCol, err := pick(probe, "multiplier")
	if err != nil {
		return nil, err
	}
	expiryCol, err := pick(probe, "expiry", "expiry_date")
	if err != nil {
		return nil, err
	}
	conidCol, err := pick(probe, "conid")
	if err != nil {
		return nil, err
	}
	if _, err := pick(probe, "volume"); err != nil {
		return nil, err
	}

	var out []models.FuturesContract
	for _, rec := range records {
		last := strings.TrimSpace(rec["last_price"])
		if strings.HasPrefix(strings.ToLower(last), "c") {
			continue
		}

		base := models.FuturesContract{
			ConID:           strings.TrimSpace(rec[conidCol]),
			Ticker:          strings.TrimSpace(rec[tickerCol]),
			Expiry:          NormalizeDate(rec[expiryCol]),
			YearsToMaturity: parseFloat(rec[ytmCol]),
			Multiplier:      parseFloat(rec[multCol]),
			Volume:          ParseVolume(rec["volume"]),
		}

		bid := parseFloat(rec["bid_price"])
		ask := parseFloat(rec["ask_price"])
		lastPrice := parseFloat(last)
		bidValid := !math.IsNaN(bid) && bid != 0
		askValid := !math.IsNaN(ask) && ask != 0

		switch {
		case bidValid && askValid:
			bidRow := base
			bidRow.Price = bid
			bidRow.Yield = parseFloat(rec["bid_yield"])
			bidRow.Source = models.QuoteBid
			out = append(out, bidRow)

			askRow := base
			askRow.Price = ask
			askRow.Yield = parseFloat(rec["ask_yield"])
			askRow.Source = models.QuoteAsk
			out = append(out, askRow)
		case !math.IsNaN(lastPrice):
			lastRow := base
			lastRow.Price = lastPrice
			lastRow.Yield = math.NaN()
			lastRow.Source = models.QuoteLast
			out = append(out, lastRow)
		}
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
