package models

// RiskMetric is one named risk measurement with an explicit pass/fail
// status. Values are retained even when a gate fails them, so the
// emitted order keeps a full audit trail.
type RiskMetric struct {
	Name   string
	Value  float64
	Valid  bool
	Passed bool
}

// OrderCandidate is a ranked hedge pair augmented with the risk
// overlay outputs. Terminal state: either the single validated order
// of a run, or discarded.
type OrderCandidate struct {
	Pair HedgePair

	DRatio        Metric
	ATail         Metric
	BTail         Metric
	GrossNotional float64

	// Scenarios holds the yield-shock dollar overlays (raw and _NET).
	Scenarios []RiskMetric
	// Overlays holds the net-duration overlays (1/10/50/100bp, tail).
	Overlays []RiskMetric
	// EquityDeltas holds overlays normalized by gross notional.
	EquityDeltas []RiskMetric

	// ScenariosPassed reports whether the candidate cleared the basis
	// gate; only passing candidates proceed to the later gates.
	ScenariosPassed bool
}

// FailedMetrics returns the names of metrics that did not pass, across
// all three metric groups.
func (o *OrderCandidate) FailedMetrics() []string {
	var failed []string
	for _, group := range [][]RiskMetric{o.Scenarios, o.Overlays, o.EquityDeltas} {
		for _, m := range group {
			if !m.Passed {
				failed = append(failed, m.Name)
			}
		}
	}
	return failed
}
