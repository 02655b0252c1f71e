package models

// QuoteSource records which side of the raw quote produced a contract
// row. A raw quote with valid bid and ask expands into two rows; a
// last-only quote produces one.
type QuoteSource string

const (
	QuoteBid  QuoteSource = "bid"
	QuoteAsk  QuoteSource = "ask"
	QuoteLast QuoteSource = "last"
)

// FuturesContract is one synthetic quote row for a Treasury futures
// contract. The ticker prefix determines the product (ZT/Z3N/ZF/ZN/TN
// tenors, ZQ fed funds). YearsToMaturity is a decimal fraction of a
// year to contract expiry; Expiry is the YYYYMMDD expiry date.
type FuturesContract struct {
	ConID           string
	Ticker          string
	Expiry          string
	YearsToMaturity float64
	Multiplier      float64
	Price           float64
	Yield           float64
	Volume          float64
	Source          QuoteSource
}

// Product returns the product-code prefix used for deliverable-window
// lookup (two characters, e.g. "ZT", "Z3", "TN").
func (f FuturesContract) Product() string {
	if len(f.Ticker) < 2 {
		return f.Ticker
	}
	return f.Ticker[:2]
}
