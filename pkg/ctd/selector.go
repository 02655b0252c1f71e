// Package ctd selects the cheapest-to-deliver bond for each Treasury
// futures contract: the eligible deliverable with the minimum implied
// repo rate, i.e. the one a short would deliver.
package ctd

import (
	"math"

	"github.com/gregtusar/ctdbasis/pkg/fincalc"
	"github.com/gregtusar/ctdbasis/pkg/models"
	"github.com/sirupsen/logrus"
)

// Window bounds the deliverable basket for one product code. Lower and
// Upper are offsets in years added to the contract's expiry;
// MaxOriginal caps the bond's original maturity.
type Window struct {
	Lower       float64
	Upper       float64
	MaxOriginal float64
}

// DefaultWindows returns the per-product deliverable windows. The
// offsets come from the exchange's delivery standards (e.g. 2Y notes
// deliver 1y9m-2y bonds with at most 5y3m original maturity); fed
// funds (ZQ) has a 30-day window and no original-maturity cap.
func DefaultWindows() map[string]Window {
	return map[string]Window{
		"ZQ": {Lower: 0, Upper: 30.0 / 360.0, MaxOriginal: math.Inf(1)},
		"ZT": {Lower: 1.72, Upper: 2.03, MaxOriginal: 5.28},
		"Z3": {Lower: 2.72, Upper: 3.03, MaxOriginal: 7.03},
		"ZF": {Lower: 4.16, Upper: 5.28, MaxOriginal: 5.27},
		"ZN": {Lower: 6.47, Upper: 8.03, MaxOriginal: 10.03},
		"TN": {Lower: 9.47, Upper: 10.03, MaxOriginal: 10.03},
	}
}

// Selector derives CTD results against a fixed settlement date.
type Selector struct {
	windows map[string]Window
	settle  string
	logger  *logrus.Logger
}

func NewSelector(windows map[string]Window, settle string, logger *logrus.Logger) *Selector {
	if windows == nil {
		windows = DefaultWindows()
	}
	return &Selector{windows: windows, settle: settle, logger: logger}
}

// Select returns the CTD result for one contract, or ok=false when the
// contract must be skipped: unknown product prefix, missing quote
// fields, or no eligible candidate with a defined price. A skip never
// fails the batch.
func (s *Selector) Select(fut models.FuturesContract, basket []models.DeliverableBond) (models.CTDResult, bool) {
	if math.IsNaN(fut.YearsToMaturity) || math.IsNaN(fut.Price) {
		return models.CTDResult{}, false
	}

	w, ok := s.windows[fut.Product()]
	if !ok {
		s.logger.WithField("ticker", fut.Ticker).Debug("Unknown product prefix, skipping contract")
		return models.CTDResult{}, false
	}
	lower := fut.YearsToMaturity + w.Lower
	upper := fut.YearsToMaturity + w.Upper

	var (
		best     models.CTDResult
		bestIRR  = math.Inf(1)
		selected = false
	)
	for _, bond := range basket {
		if bond.YearsToMaturity < lower || bond.YearsToMaturity > upper {
			continue
		}
		if math.IsNaN(bond.OriginalMaturity) || bond.OriginalMaturity > w.MaxOriginal {
			continue
		}

		price, ok := fincalc.Price(fincalc.Bond{
			Coupon:     bond.Coupon,
			Term:       bond.YearsToMaturity,
			Yield:      bond.Yield,
			Period:     2,
			Begin:      bond.PrevCoupon,
			Settle:     s.settle,
			NextCoupon: bond.NextCoupon,
			DayCount:   fincalc.ActAct,
		})
		if !ok || price <= 0 {
			continue
		}

		grossBasis := fut.Price*bond.ConversionFactor - price
		irr := (grossBasis/price - 1) * (bond.YearsToMaturity * 365) / 365

		// Strict less-than keeps the first-encountered candidate on ties.
		if irr < bestIRR {
			bestIRR = irr
			best = models.CTDResult{
				Contract:    fut,
				Bond:        bond,
				DirtyPrice:  price,
				GrossBasis:  grossBasis,
				ImpliedRepo: irr,
			}
			selected = true
		}
	}
	if !selected {
		s.logger.WithField("ticker", fut.Ticker).Debug("No eligible CTD candidate, skipping contract")
		return models.CTDResult{}, false
	}

	best.Carry = best.GrossBasis - best.DirtyPrice*best.ImpliedRepo*math.Floor(best.Bond.YearsToMaturity)/365
	return best, true
}

// SelectAll runs Select over every contract, emitting a result per
// contract that has one.
func (s *Selector) SelectAll(futures []models.FuturesContract, basket []models.DeliverableBond) []models.CTDResult {
	results := make([]models.CTDResult, 0, len(futures))
	for _, fut := range futures {
		if res, ok := s.Select(fut, basket); ok {
			s.logger.WithFields(logrus.Fields{
				"ticker":      fut.Ticker,
				"ctd_conid":   res.Bond.ConID,
				"implied_rep": res.ImpliedRepo,
				"gross_basis": res.GrossBasis,
			}).Info("Selected CTD")
			results = append(results, res)
		}
	}
	return results
}
