// Package pairing builds the ordered hedge-pair universe: every (A, B)
// combination of CTD results with distinct underlying bonds where the
// B leg defers the A leg by less than the configured window. Leg roles
// are asymmetric, so both orderings of a combination are produced.
package pairing

import (
	"math"

	"github.com/gregtusar/ctdbasis/pkg/fincalc"
	"github.com/gregtusar/ctdbasis/pkg/models"
)

func metric(v float64, ok bool) models.Metric {
	if !ok {
		return models.InvalidMetric()
	}
	return models.ValidMetric(v)
}

// ComputeLegAnalytics evaluates the kernel over one CTD result: dirty
// and futures-converted price, durations, convexity, and the full DV01
// shock family in both bond and futures-scaled form. Undefined kernel
// outputs propagate as invalid metrics.
func ComputeLegAnalytics(res models.CTDResult) models.LegAnalytics {
	b := fincalc.Bond{
		Coupon:     res.Bond.Coupon,
		Term:       res.Bond.YearsToMaturity,
		Yield:      res.Bond.Yield,
		Period:     2,
		Begin:      res.Bond.PrevCoupon,
		NextCoupon: res.Bond.NextCoupon,
		DayCount:   fincalc.ActAct,
	}
	cf := res.Bond.ConversionFactor

	var a models.LegAnalytics
	a.DirtyPrice = metric(fincalc.Price(b))
	a.FutPrice = metric(fincalc.FuturesPrice(b, cf))
	a.ModDuration = metric(fincalc.ModifiedDuration(b))
	a.MacDuration = metric(fincalc.MacaulayDuration(b))
	a.Convexity = metric(fincalc.Convexity(b))
	a.FutConvexity = metric(fincalc.FuturesConvexity(b, cf))

	a.DV01 = metric(fincalc.DV01(b))
	a.FutDV01 = metric(fincalc.FutDV01(b, cf))
	a.FutDV01Minus = metric(fincalc.FutDV01Minus(b, cf))
	a.FutDV10 = metric(fincalc.FutDV10(b, cf))
	a.FutDV10Minus = metric(fincalc.FutDV10Minus(b, cf))
	a.FutDV50 = metric(fincalc.FutDV50(b, cf))
	a.FutDV50Minus = metric(fincalc.FutDV50Minus(b, cf))
	a.FutDV100 = metric(fincalc.FutDV100(b, cf))
	a.FutDV100Minus = metric(fincalc.FutDV100Minus(b, cf))
	a.FutDV22 = metric(fincalc.FutDV22(b, cf))
	a.FutDV22Minus = metric(fincalc.FutDV22Minus(b, cf))
	a.FutDV55 = metric(fincalc.FutDV55(b, cf))
	a.FutDV55Minus = metric(fincalc.FutDV55Minus(b, cf))
	return a
}

// Combinator pairs futures legs under a deferral window.
type Combinator struct {
	maxDeferralDays int
	daysInYear      int
}

func NewCombinator(maxDeferralDays, daysInYear int) *Combinator {
	return &Combinator{maxDeferralDays: maxDeferralDays, daysInYear: daysInYear}
}

// BuildPairs forms the ordered Cartesian product of the CTD results,
// excluding self-pairs on the underlying bond id, and keeps pairs
// whose B leg matures no earlier than A and defers it by less than
// the window (Act/360 by default). Pairs with unparsable maturities
// are dropped silently.
func (c *Combinator) BuildPairs(results []models.CTDResult) []models.HedgePair {
	legs := make([]models.Leg, len(results))
	for i, res := range results {
		legs[i] = models.Leg{CTDResult: res, Analytics: ComputeLegAnalytics(res)}
	}

	maxYears := float64(c.maxDeferralDays) / float64(c.daysInYear)
	var pairs []models.HedgePair
	for i, a := range legs {
		for j, b := range legs {
			if i == j || a.Bond.ConID == b.Bond.ConID {
				continue
			}
			diff := b.Contract.YearsToMaturity - a.Contract.YearsToMaturity
			if math.IsNaN(diff) || diff < 0 || diff >= maxYears {
				continue
			}
			pairs = append(pairs, models.HedgePair{A: a, B: b})
		}
	}
	return pairs
}
