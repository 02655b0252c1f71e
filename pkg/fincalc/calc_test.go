package fincalc

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference bond from a known bond-math example: 4.5% semi-annual
// coupon, 13 years to maturity, 4.411% yield, no accrual adjustment.
func referenceBond() Bond {
	return Bond{Coupon: 4.5, Term: 13, Yield: 0.04411, Period: 2, DayCount: ActAct}
}

func TestPriceReference(t *testing.T) {
	p, ok := Price(referenceBond())
	require.True(t, ok)
	assert.InDelta(t, 100.6, p, 0.5)
}

func TestPriceMonotonicInYield(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	yields := make([]float64, 50)
	for i := range yields {
		yields[i] = 0.001 + rng.Float64()*0.14
	}
	for i := 0; i < len(yields); i++ {
		for j := 0; j < len(yields); j++ {
			if yields[i] >= yields[j] {
				continue
			}
			b := referenceBond()
			b.Yield = yields[i]
			lo, ok := Price(b)
			require.True(t, ok)
			b.Yield = yields[j]
			hi, ok := Price(b)
			require.True(t, ok)
			assert.Greater(t, lo, hi, "price must fall as yield rises (%f -> %f)", yields[i], yields[j])
		}
	}
}

func TestPriceDegenerateInputs(t *testing.T) {
	b := referenceBond()
	b.Yield = 0
	_, ok := Price(b)
	assert.False(t, ok, "zero yield-per-period is undefined")

	b = referenceBond()
	b.Term = math.NaN()
	_, ok = Price(b)
	assert.False(t, ok, "missing term is undefined")

	b = referenceBond()
	b.Yield = math.NaN()
	_, ok = Price(b)
	assert.False(t, ok, "missing yield is undefined")

	b = referenceBond()
	b.Begin, b.Settle, b.NextCoupon = "20250101", "bogus", "20250701"
	_, ok = Price(b)
	assert.False(t, ok, "unparsable accrual date is undefined")
}

func TestTermRoundedToHalfYear(t *testing.T) {
	// 13.2 and 12.9 both round to 13.0 years -> identical prices.
	a := referenceBond()
	a.Term = 13.2
	b := referenceBond()
	b.Term = 12.9
	pa, ok := Price(a)
	require.True(t, ok)
	pb, ok := Price(b)
	require.True(t, ok)
	assert.Equal(t, pa, pb)

	// 13.3 rounds to 13.5: one more period.
	c := referenceBond()
	c.Term = 13.3
	pc, ok := Price(c)
	require.True(t, ok)
	assert.NotEqual(t, pa, pc)
}

func TestModifiedDurationReference(t *testing.T) {
	mdur, ok := ModifiedDuration(referenceBond())
	require.True(t, ok)
	assert.InDelta(t, 9.9, mdur, 0.5)
}

func TestMacaulayDuration(t *testing.T) {
	b := referenceBond()
	mdur, ok := ModifiedDuration(b)
	require.True(t, ok)
	mac, ok := MacaulayDuration(b)
	require.True(t, ok)
	assert.InDelta(t, mdur*(1+b.Yield/2), mac, 1e-12)
}

func TestApproximateDurationConverges(t *testing.T) {
	b := referenceBond()
	mdur, ok := ModifiedDuration(b)
	require.True(t, ok)

	prevErr := math.Inf(1)
	for _, bump := range []float64{0.001, 0.0001, 0.00001} {
		approx, ok := ApproximateDuration(b, bump)
		require.True(t, ok)
		err := math.Abs(approx - mdur)
		assert.Less(t, err, 0.05, "bump %g", bump)
		assert.LessOrEqual(t, err, prevErr+1e-9, "error must shrink with the bump")
		prevErr = err
	}
}

func TestApproximateConvexityCrossCheck(t *testing.T) {
	b := referenceBond()
	cvx, ok := Convexity(b)
	require.True(t, ok)
	approx, ok := ApproximateConvexity(b, 0.0001)
	require.True(t, ok)
	assert.InDelta(t, cvx, approx, math.Abs(cvx)*0.05)
}

func TestDV01Family(t *testing.T) {
	b := referenceBond()
	p, ok := Price(b)
	require.True(t, ok)
	mdur, ok := ModifiedDuration(b)
	require.True(t, ok)

	dv01, ok := DV01(b)
	require.True(t, ok)
	assert.InDelta(t, mdur*p*0.001, dv01, 1e-6)

	// DV10 uses duration at the shocked yield without the price term.
	shocked := b
	shocked.Yield += 0.001
	mdurUp, ok := ModifiedDuration(shocked)
	require.True(t, ok)
	dv10, ok := DV10(b)
	require.True(t, ok)
	assert.InDelta(t, mdurUp*0.001, dv10, 1e-6)

	// Plus variant folds convexity in.
	cvx, ok := Convexity(b)
	require.True(t, ok)
	plus, ok := DV01Plus(b)
	require.True(t, ok)
	assert.InDelta(t, (mdur+cvx)*p*0.001, plus, 1e-6)
}

func TestFuturesScaledVariants(t *testing.T) {
	b := referenceBond()
	cf := 0.8352

	p, ok := Price(b)
	require.True(t, ok)
	fp, ok := FuturesPrice(b, cf)
	require.True(t, ok)
	assert.InDelta(t, p/cf, fp, 1e-12)

	dv01, ok := DV01(b)
	require.True(t, ok)
	fdv01, ok := FutDV01(b, cf)
	require.True(t, ok)
	assert.InDelta(t, dv01/cf, fdv01, 1e-12)

	_, ok = FutDV01(b, 0)
	assert.False(t, ok, "non-positive conversion factor is undefined")
}

func TestAccrualPeriod(t *testing.T) {
	// Halfway through a 184-day actual/actual period.
	v, ok := AccrualPeriod("20250101", "20250402", "20250701", ActAct)
	require.True(t, ok)
	assert.InDelta(t, 91.0/181.0, v, 1e-12)

	// 30/360: 3 months and a day over a fixed 180-day half-year.
	v, ok = AccrualPeriod("20250101", "20250402", "20250701", Thirty360)
	require.True(t, ok)
	assert.InDelta(t, 91.0/180.0, v, 1e-12)

	_, ok = AccrualPeriod("garbage", "20250402", "20250701", ActAct)
	assert.False(t, ok)
}

func TestAccruedInterestAddsToPrice(t *testing.T) {
	clean := referenceBond()
	dirty := referenceBond()
	dirty.Begin, dirty.Settle, dirty.NextCoupon = "20250101", "20250402", "20250701"

	pc, ok := Price(clean)
	require.True(t, ok)
	pd, ok := Price(dirty)
	require.True(t, ok)
	ai, ok := AccruedInterest(dirty.Coupon, dirty.Period, dirty.Begin, dirty.Settle, dirty.NextCoupon, dirty.DayCount)
	require.True(t, ok)
	assert.InDelta(t, pc+ai, pd, 1e-12)
}

func TestAccrualChangesDurationFormula(t *testing.T) {
	clean := referenceBond()
	dirty := referenceBond()
	dirty.Begin, dirty.Settle, dirty.NextCoupon = "20250101", "20250402", "20250701"

	mc, ok := ModifiedDuration(clean)
	require.True(t, ok)
	md, ok := ModifiedDuration(dirty)
	require.True(t, ok)
	assert.NotEqual(t, mc, md, "accrual-adjusted derivative must differ")
}

func TestSettlementDate(t *testing.T) {
	// Friday + T+1 skips the weekend to Monday.
	friday := time.Date(2025, 8, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), SettlementDate(friday, 1))

	// Midweek T+1 is next day.
	tuesday := time.Date(2025, 8, 26, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC), SettlementDate(tuesday, 1))
}

func TestMarketVolShockMatchesFixedShock(t *testing.T) {
	b := referenceBond()

	mkt, ok := DVMkt(b, 0.0002)
	require.True(t, ok)
	fixed, ok := DV22(b)
	require.True(t, ok)
	assert.InDelta(t, fixed, mkt, 1e-12)

	mktMinus, ok := DVMktMinus(b, 0.0005)
	require.True(t, ok)
	fixedMinus, ok := DV55Minus(b)
	require.True(t, ok)
	assert.InDelta(t, fixedMinus, mktMinus, 1e-12)

	fut, ok := FutDVMkt(b, 0.0002, 0.92)
	require.True(t, ok)
	assert.InDelta(t, fixed/0.92, fut, 1e-12)
}
