// Package risk evaluates sized hedge candidates against the risk
// overlays: a yield-shock scenario grid, dollar duration overlays with
// a delta-hedged tail, and equity-delta ratios. Three sequential gates
// reduce the candidate list to at most one executable order.
package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/gregtusar/ctdbasis/pkg/models"
	"github.com/sirupsen/logrus"
)

// Limits are the screening thresholds, captured once at run start.
type Limits struct {
	// LegDelta is the hedge fraction the tail solver targets.
	LegDelta float64
	// ScenarioLimit rejects candidates whose absolute scenario dollar
	// sensitivity exceeds it.
	ScenarioLimit float64
	// OverlayLimit bounds the net duration overlays.
	OverlayLimit float64
	// EquityDeltaLimit bounds overlay-to-notional ratios.
	EquityDeltaLimit float64
	// MaxCandidates caps how many ranked candidates the scenario gate
	// examines.
	MaxCandidates int
}

func DefaultLimits() Limits {
	return Limits{
		LegDelta:         0.65,
		ScenarioLimit:    20,
		OverlayLimit:     10,
		EquityDeltaLimit: 0.01,
		MaxCandidates:    10,
	}
}

type Screener struct {
	limits Limits
	logger *logrus.Logger
}

func NewScreener(limits Limits, logger *logrus.Logger) *Screener {
	return &Screener{limits: limits, logger: logger}
}

func round3(v float64) float64 { return math.Round(v*1e3) / 1e3 }
func round7(v float64) float64 { return math.Round(v*1e7) / 1e7 }

// legInputs flattens the per-leg quantities the overlay math consumes.
type legInputs struct {
	qty        float64
	multiplier float64
	price      float64
	dv01       models.Metric
	dv01Minus  models.Metric
	dv10       models.Metric
	dv10Minus  models.Metric
	dv50       models.Metric
	dv50Minus  models.Metric
	dv100      models.Metric
	dv100Minus models.Metric
	dv22       models.Metric
	dv22Minus  models.Metric
	dv55       models.Metric
	dv55Minus  models.Metric
}

func inputs(leg models.Leg) legInputs {
	lots := leg.Lots
	if lots < 1 {
		lots = 1
	}
	a := leg.Analytics
	return legInputs{
		qty:        float64(leg.Quantity * lots),
		multiplier: leg.Contract.Multiplier,
		price:      leg.Contract.Price,
		dv01:       a.FutDV01,
		dv01Minus:  a.FutDV01Minus,
		dv10:       a.FutDV10,
		dv10Minus:  a.FutDV10Minus,
		dv50:       a.FutDV50,
		dv50Minus:  a.FutDV50Minus,
		dv100:      a.FutDV100,
		dv100Minus: a.FutDV100Minus,
		dv22:       a.FutDV22,
		dv22Minus:  a.FutDV22Minus,
		dv55:       a.FutDV55,
		dv55Minus:  a.FutDV55Minus,
	}
}

// tails sizes the residual (tail) lot fraction each leg would need for
// a LegDelta-hedged position, in thousands of multiplier units.
func (s *Screener) tails(a, b legInputs) (models.Metric, models.Metric) {
	if !a.dv01.Valid || !b.dv01.Valid || a.dv01.Value == 0 || b.dv01.Value == 0 {
		return models.InvalidMetric(), models.InvalidMetric()
	}
	aTail := (s.limits.LegDelta*b.multiplier/1000*math.Abs(b.qty)*b.dv01.Value -
		a.multiplier/1000*math.Abs(a.qty)*a.dv01.Value) / a.dv01.Value
	bTail := a.multiplier/1000*math.Abs(a.qty)*a.dv01.Value/(s.limits.LegDelta*b.dv01.Value) -
		b.multiplier/1000*math.Abs(b.qty)
	return models.ValidMetric(round3(aTail)), models.ValidMetric(round3(bTail))
}

// scenario is one cell of the shock grid: each leg shocked by one of
// its 2bp/5bp DV metrics, scaled by contract value, signed quantity,
// and multiplier.
func scenario(name string, aShock models.Metric, a legInputs, bShock models.Metric, b legInputs) models.RiskMetric {
	if !aShock.Valid || !bShock.Valid {
		return models.RiskMetric{Name: name}
	}
	v := round7(aShock.Value*a.price*a.qty*a.multiplier + bShock.Value*b.price*b.qty*b.multiplier)
	return models.RiskMetric{Name: name, Value: v, Valid: true}
}

func overlay(name string, aShock models.Metric, a legInputs, bShock models.Metric, b legInputs, withPrice bool) models.RiskMetric {
	if !aShock.Valid || !bShock.Valid {
		return models.RiskMetric{Name: name}
	}
	pa, pb := 1.0, 1.0
	if withPrice {
		pa, pb = a.price, b.price
	}
	v := round7(aShock.Value*pa*a.qty*a.multiplier + bShock.Value*pb*b.qty*b.multiplier)
	return models.RiskMetric{Name: name, Value: v, Valid: true}
}

// Evaluate computes the full risk surface for one sized pair: tail
// ratios, gross implied notional, the 16-cell shock grid plus its
// net-basis-adjusted twin, duration overlays at 1/10/50/100bp and with
// the tail attached, and equity deltas. Metrics whose inputs are
// undefined stay invalid rather than zeroed.
func (s *Screener) Evaluate(pair models.HedgePair) models.OrderCandidate {
	a, b := inputs(pair.A), inputs(pair.B)

	cand := models.OrderCandidate{Pair: pair}
	if b.dv01.Valid && b.dv01.Value != 0 && a.dv01.Valid {
		cand.DRatio = models.ValidMetric(a.dv01.Value / b.dv01.Value)
	} else {
		cand.DRatio = models.InvalidMetric()
	}
	cand.ATail, cand.BTail = s.tails(a, b)
	cand.GrossNotional = a.multiplier*a.price*math.Abs(a.qty) + b.multiplier*b.price*math.Abs(b.qty)

	shocks := []struct {
		label string
		pick  func(legInputs) models.Metric
	}{
		{"2BP", func(l legInputs) models.Metric { return l.dv22 }},
		{"-2BP", func(l legInputs) models.Metric { return l.dv22Minus }},
		{"5BP", func(l legInputs) models.Metric { return l.dv55 }},
		{"-5BP", func(l legInputs) models.Metric { return l.dv55Minus }},
	}
	for _, fs := range shocks {
		for _, bs := range shocks {
			name := fmt.Sprintf("SENS_%s/%s", fs.label, bs.label)
			m := scenario(name, fs.pick(a), a, bs.pick(b), b)
			cand.Scenarios = append(cand.Scenarios, m)

			net := models.RiskMetric{Name: name + "_NET"}
			if m.Valid && pair.PositionNetBasis.Valid {
				net.Value = m.Value + pair.PositionNetBasis.Value
				net.Valid = true
			}
			cand.Scenarios = append(cand.Scenarios, net)
		}
	}

	cand.Overlays = s.overlays(pair, a, b)

	for _, ov := range cand.Overlays[:8] {
		ed := models.RiskMetric{Name: "EQUITY_DELTA" + ov.Name[len("NET_DURATION_OVERLAY"):]}
		if ov.Valid && cand.GrossNotional != 0 {
			ed.Value = round7(ov.Value / cand.GrossNotional)
			ed.Valid = true
		}
		cand.EquityDeltas = append(cand.EquityDeltas, ed)
	}

	cand.ScenariosPassed = true
	for i := range cand.Scenarios {
		m := &cand.Scenarios[i]
		// Only the raw grid is gated; _NET variants are reported but
		// never counted against the limit. An undefined scenario
		// cannot breach it either.
		if strings.HasSuffix(m.Name, "_NET") {
			m.Passed = true
			continue
		}
		m.Passed = !m.Valid || math.Abs(m.Value) <= s.limits.ScenarioLimit
		if !m.Passed {
			cand.ScenariosPassed = false
		}
	}
	return cand
}

func (s *Screener) overlays(pair models.HedgePair, a, b legInputs) []models.RiskMetric {
	out := []models.RiskMetric{
		overlay("NET_DURATION_OVERLAY_1BP", a.dv01, a, b.dv01, b, false),
		overlay("NET_DURATION_OVERLAY_1BP_MINUS", a.dv01Minus, a, b.dv01Minus, b, false),
		overlay("NET_DURATION_OVERLAY_10BP", a.dv10, a, b.dv10, b, true),
		overlay("NET_DURATION_OVERLAY_10BP_MINUS", a.dv10Minus, a, b.dv10Minus, b, true),
		overlay("NET_DURATION_OVERLAY_50BP", a.dv50, a, b.dv50, b, true),
		overlay("NET_DURATION_OVERLAY_50BP_MINUS", a.dv50Minus, a, b.dv50Minus, b, true),
		overlay("NET_DURATION_OVERLAY_100BP", a.dv100, a, b.dv100, b, true),
		overlay("NET_DURATION_OVERLAY_100BP_MINUS", a.dv100Minus, a, b.dv100Minus, b, true),
	}

	// The tail attaches to the leg with the higher truncated net basis;
	// an undefined net basis defaults the tail to the A leg.
	aTail, bTail := s.tails(a, b)
	tailLeg, tailMetric := a, aTail
	if pair.A.NetBasis.Valid && pair.B.NetBasis.Valid &&
		int(pair.A.NetBasis.Value) < int(pair.B.NetBasis.Value) {
		tailLeg, tailMetric = b, bTail
	}

	base := overlay("NET_DURATION_OVERLAY_TAIL", a.dv01, a, b.dv01, b, false)
	tail := models.RiskMetric{Name: "NET_DURATION_OVERLAY_TAIL"}
	tailMinus := models.RiskMetric{Name: "NET_DURATION_OVERLAY_TAIL_MINUS"}
	if base.Valid && tailMetric.Valid && tailLeg.dv01.Valid {
		tail.Value = round7(base.Value + tailMetric.Value*tailLeg.qty*tailLeg.dv01.Value*tailLeg.multiplier)
		tail.Valid = true
	}
	if base.Valid && tailMetric.Valid && tailLeg.dv01Minus.Valid {
		tailMinus.Value = round7(base.Value + tailMetric.Value*tailLeg.qty*tailLeg.dv01Minus.Value*tailLeg.multiplier)
		tailMinus.Valid = true
	}
	return append(out, tail, tailMinus)
}

// Screen runs the three gates over the ranked candidates and returns
// the validated order, if any, along with every evaluated candidate
// annotated with its gate results.
//
// Gate 1 walks the first MaxCandidates candidates and selects the
// first whose raw scenario grid stays inside ScenarioLimit; only this
// gate can reject outright. Gates 2 and 3 then mark each overlay and
// equity-delta metric on the selected candidate as passed or failed,
// and the order is emitted either way with the marks and values
// retained.
func (s *Screener) Screen(pairs []models.HedgePair) (*models.OrderCandidate, []models.OrderCandidate) {
	candidates := make([]models.OrderCandidate, 0, len(pairs))
	for _, p := range pairs {
		candidates = append(candidates, s.Evaluate(p))
	}

	selected := -1
	limit := s.limits.MaxCandidates
	if limit > len(candidates) {
		limit = len(candidates)
	}
	for i := 0; i < limit; i++ {
		if candidates[i].ScenariosPassed {
			selected = i
			s.logger.WithField("candidate", i).Info("Candidate passed scenario sensitivity checks")
			break
		}
	}
	if selected < 0 {
		s.logger.Info("No candidate passed scenario sensitivity checks")
		return nil, candidates
	}

	cand := &candidates[selected]
	for i := range cand.Overlays {
		m := &cand.Overlays[i]
		m.Passed = m.Valid && m.Value <= s.limits.OverlayLimit
	}
	for i := range cand.EquityDeltas {
		m := &cand.EquityDeltas[i]
		m.Passed = m.Valid && m.Value <= s.limits.EquityDeltaLimit
	}

	if failed := cand.FailedMetrics(); len(failed) > 0 {
		s.logger.WithFields(logrus.Fields{
			"candidate": selected,
			"failed":    failed,
		}).Info("Overlay screens flagged metrics on the selected order")
	} else {
		s.logger.WithField("candidate", selected).Info("Verified stable hedge selected")
	}
	order := *cand
	return &order, candidates
}
