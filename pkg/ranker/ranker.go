// Package ranker scores the hedge-pair universe by volume-weighted net
// basis, assigns leg directions under the margin (SMA) gate, selects
// the top and bottom candidates, and sizes integer lots against the
// margin budget.
package ranker

import (
	"math"
	"sort"
	"time"

	"github.com/gregtusar/ctdbasis/pkg/models"
	"github.com/sirupsen/logrus"
)

// Params are the ranking constants, captured once at run start.
type Params struct {
	// Leverage multiplies net-liquidation value into the SMA budget
	// (4x approximates a Reg-T margin limit).
	Leverage float64
	// SMAThreshold gates the IRR-based direction override.
	SMAThreshold float64
	// VolumeScale divides ln(volume) in the weighting term.
	VolumeScale float64
	// LongEligibilityYears / ShortEligibilityYears are the minimum
	// contract years-to-maturity for holding a long or short leg.
	LongEligibilityYears  float64
	ShortEligibilityYears float64
}

type Ranker struct {
	params Params
	logger *logrus.Logger
}

func NewRanker(params Params, logger *logrus.Logger) *Ranker {
	return &Ranker{params: params, logger: logger}
}

// legAccruedInterest anchors the coupon cycle on the maturity date in
// the current year (rolled back six months when still in the future)
// and accrues against a 182.5-day half-year.
func legAccruedInterest(coupon float64, maturityDate string, now time.Time) (float64, bool) {
	mat, err := time.Parse("20060102", maturityDate)
	if err != nil {
		return 0, false
	}
	day := mat.Day()
	if max := daysInMonth(now.Year(), mat.Month()); day > max {
		day = max
	}
	lastCoupon := time.Date(now.Year(), mat.Month(), day, 0, 0, 0, 0, now.Location())
	if lastCoupon.After(now) {
		lastCoupon = lastCoupon.AddDate(0, -6, 0)
	}
	daysAccrued := int(now.Sub(lastCoupon).Hours() / 24)
	return (coupon / 2) * (float64(daysAccrued) / 182.5), true
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// carry is the coupon income net of financing cost over the holding
// period; net basis is gross basis adjusted by it.
func carry(grossBasis, impliedRepo, dirtyPrice float64, days int) float64 {
	return grossBasis - dirtyPrice*impliedRepo*float64(days)/365
}

func annotateLeg(leg *models.Leg, now time.Time) {
	if ai, ok := legAccruedInterest(leg.Bond.Coupon, leg.Bond.MaturityDate, now); ok {
		leg.AccruedInterest = ai
	}

	expiry, err := time.Parse("20060102", leg.Contract.Expiry)
	if err != nil {
		leg.Carry = models.InvalidMetric()
		leg.NetBasis = models.InvalidMetric()
		return
	}
	leg.Days = int(expiry.Sub(now).Hours() / 24)
	c := carry(leg.GrossBasis, leg.ImpliedRepo, leg.DirtyPrice, leg.Days)
	leg.Carry = models.ValidMetric(c)
	leg.NetBasis = models.ValidMetric(leg.GrossBasis + c)
}

// eligible reports whether a directional position on the leg is far
// enough from expiry: 36/360 years for a long, 2/360 for a short.
func (r *Ranker) eligible(leg models.Leg) bool {
	ytm := leg.Contract.YearsToMaturity
	switch leg.Quantity {
	case 1:
		return ytm > r.params.LongEligibilityYears
	case -1:
		return ytm > r.params.ShortEligibilityYears
	default:
		return true
	}
}

// Rank annotates, scores, and selects the order candidates. It returns
// the six selected pairs (three lowest by score, deduplicated by
// contract-id pair, plus three highest) and the SMA budget. With fewer
// rows available the selection degrades by repeating rows rather than
// failing; an empty universe yields an empty selection.
func (r *Ranker) Rank(pairs []models.HedgePair, netLiquidation float64, now time.Time) ([]models.HedgePair, float64) {
	sma := netLiquidation * r.params.Leverage
	r.logger.WithField("sma", sma).Info("Computed SMA margin budget")

	scored := make([]models.HedgePair, 0, len(pairs))
	for _, p := range pairs {
		annotateLeg(&p.A, now)
		annotateLeg(&p.B, now)

		// Above the SMA threshold the leg with the lower implied repo
		// is shorted and the other longed, overriding any preset
		// directions.
		if sma > r.params.SMAThreshold {
			if p.A.ImpliedRepo < p.B.ImpliedRepo {
				p.A.Quantity, p.B.Quantity = -1, 1
			} else {
				p.A.Quantity, p.B.Quantity = 1, -1
			}
		}
		if !r.eligible(p.A) || !r.eligible(p.B) {
			continue
		}

		volA, volB := p.A.Contract.Volume, p.B.Contract.Volume
		if math.IsNaN(volA) || math.IsNaN(volB) || volA <= 0 || volB <= 0 {
			continue
		}
		weightA := 1 + math.Log(volA)/r.params.VolumeScale
		weightB := 1 + math.Log(volB)/r.params.VolumeScale
		p.VolumeWeight = models.ValidMetric((weightA + weightB) / 2)

		p.PositionNetBasis = positionNetBasis(p)
		if p.PositionNetBasis.Valid {
			p.Score = models.ValidMetric(p.PositionNetBasis.Value * p.VolumeWeight.Value)
		} else {
			p.Score = models.InvalidMetric()
		}
		scored = append(scored, p)
	}

	ascending := make([]models.HedgePair, len(scored))
	copy(ascending, scored)
	sort.SliceStable(ascending, func(i, j int) bool { return scoreLess(ascending[i], ascending[j]) })

	lows := takeThree(dedupeByContracts(ascending))

	descending := make([]models.HedgePair, len(scored))
	copy(descending, scored)
	sort.SliceStable(descending, func(i, j int) bool { return scoreGreater(descending[i], descending[j]) })

	highs := takeThree(descending)

	selected := append(lows, highs...)
	for i := range selected {
		r.size(&selected[i], sma)
	}
	return selected, sma
}

// positionNetBasis is the net-basis spread signed by the short leg: if
// B is short, B minus A; if A is short, A minus B; undefined when
// neither leg carries a short.
func positionNetBasis(p models.HedgePair) models.Metric {
	if !p.A.NetBasis.Valid || !p.B.NetBasis.Valid {
		return models.InvalidMetric()
	}
	switch {
	case p.B.Quantity == -1:
		return models.ValidMetric(p.B.NetBasis.Value - p.A.NetBasis.Value)
	case p.A.Quantity == -1:
		return models.ValidMetric(p.A.NetBasis.Value - p.B.NetBasis.Value)
	default:
		return models.InvalidMetric()
	}
}

// Invalid scores sort after every valid score.
func scoreLess(a, b models.HedgePair) bool {
	if a.Score.Valid != b.Score.Valid {
		return a.Score.Valid
	}
	return a.Score.Value < b.Score.Value
}

func scoreGreater(a, b models.HedgePair) bool {
	if a.Score.Valid != b.Score.Valid {
		return a.Score.Valid
	}
	return a.Score.Value > b.Score.Value
}

func dedupeByContracts(pairs []models.HedgePair) []models.HedgePair {
	seen := make(map[string]bool, len(pairs))
	out := make([]models.HedgePair, 0, len(pairs))
	for _, p := range pairs {
		key := p.A.Contract.ConID + "|" + p.B.Contract.ConID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// takeThree fills three slots, repeating the first row when fewer rows
// exist (insufficient-pool degradation).
func takeThree(rows []models.HedgePair) []models.HedgePair {
	if len(rows) == 0 {
		return nil
	}
	out := make([]models.HedgePair, 0, 3)
	for i := 0; i < 3; i++ {
		if i < len(rows) {
			out = append(out, rows[i])
		} else {
			out = append(out, rows[0])
		}
	}
	return out
}

func (r *Ranker) size(p *models.HedgePair, sma float64) {
	costA := p.A.Contract.Multiplier * p.A.Contract.Price
	costB := p.B.Contract.Multiplier * p.B.Contract.Price
	if !p.A.Analytics.FutDV01.Valid || !p.B.Analytics.FutDV01.Valid || p.B.Analytics.FutDV01.Value == 0 {
		p.A.Lots, p.B.Lots = 1, 1
		return
	}
	ratio := p.A.Analytics.FutDV01.Value / p.B.Analytics.FutDV01.Value
	p.A.Lots, p.B.Lots = OptimizeQuantities(costA, costB, ratio, sma)
}
