package models

// CTDResult joins a futures contract with the analytics of its
// cheapest-to-deliver bond. Immutable once pairing starts; stages
// copy rather than mutate.
type CTDResult struct {
	Contract FuturesContract
	Bond     DeliverableBond

	DirtyPrice  float64
	GrossBasis  float64
	ImpliedRepo float64
	Carry       float64
}

// LegAnalytics carries the kernel outputs computed per CTD result
// before pairing. Futures-scaled values are conversion-factor divided.
type LegAnalytics struct {
	DirtyPrice   Metric
	FutPrice     Metric
	ModDuration  Metric
	MacDuration  Metric
	Convexity    Metric
	FutConvexity Metric

	DV01          Metric
	FutDV01       Metric
	FutDV01Minus  Metric
	FutDV10       Metric
	FutDV10Minus  Metric
	FutDV50       Metric
	FutDV50Minus  Metric
	FutDV100      Metric
	FutDV100Minus Metric
	FutDV22       Metric
	FutDV22Minus  Metric
	FutDV55       Metric
	FutDV55Minus  Metric
}

// Leg is one side of a hedge pair: the CTD result plus its analytics
// and the ranker's annotations. Quantity is the direction sign (+1
// long, -1 short); Lots is the optimized unsigned integer lot count.
type Leg struct {
	CTDResult
	Analytics LegAnalytics

	Quantity        int
	Lots            int
	AccruedInterest float64
	Days            int
	Carry           Metric
	NetBasis        Metric
}

// HedgePair is an ordered (A, B) combination of two legs with distinct
// underlying CTD bonds, where B defers A by less than the configured
// window. Leg roles are asymmetric; both orderings of a pair exist.
type HedgePair struct {
	A Leg
	B Leg

	PositionNetBasis Metric
	VolumeWeight     Metric
	Score            Metric
}
