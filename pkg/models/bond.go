package models

// Metric is a computed value that may be undefined. Kernel functions
// signal degenerate inputs by returning an invalid metric rather than
// raising; consumers must check Valid before using Value.
type Metric struct {
	Value float64
	Valid bool
}

func ValidMetric(v float64) Metric {
	return Metric{Value: v, Valid: true}
}

func InvalidMetric() Metric {
	return Metric{}
}

// DeliverableBond is one row of the CTD basket, keyed by CUSIP/conid.
// Dates are YYYYMMDD strings. Yield is a decimal fraction (the feed
// quotes percent; ingestion divides by 100).
type DeliverableBond struct {
	ConID            string
	CUSIP            string
	Coupon           float64
	MaturityDate     string
	PrevCoupon       string
	NextCoupon       string
	YearsToMaturity  float64
	OriginalMaturity float64
	ConversionFactor float64
	Yield            float64
	Price            float64
}
