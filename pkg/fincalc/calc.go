// Package fincalc computes SIA-standardized fixed-income metrics for
// U.S. Treasury bonds: theoretical dirty price, accrued interest,
// modified and Macaulay duration, convexity, the DV01 shock family,
// and their futures (conversion-factor-scaled) variants.
//
// All functions are pure and return (value, ok). ok=false is the
// explicit "undefined" sentinel for degenerate input: a missing term
// or yield (NaN), zero yield-per-period, a non-positive price, or an
// unparsable accrual date. Callers must check ok before using the
// value; nothing here panics on bad input.
package fincalc

import (
	"math"
	"time"
)

// DayCount selects the accrual convention.
type DayCount int

const (
	// ActAct is the actual/actual fraction of the coupon period.
	ActAct DayCount = 1
	// Thirty360 is the 30/360 convention with the period fixed at 180
	// days (half of a 360-day year).
	Thirty360 DayCount = 2
)

// Bond holds the scalar terms of a single bond for the kernel.
// Coupon is in percent of face (4.5 means 4.5%), Yield is a decimal
// fraction (0.04411 means 4.411%). Begin, Settle and NextCoupon are
// YYYYMMDD accrual dates; accrual is applied only when all three are
// set, matching the original SIA derivations.
type Bond struct {
	Coupon     float64
	Term       float64
	Yield      float64
	Period     int
	Begin      string
	Settle     string
	NextCoupon string
	DayCount   DayCount
}

func (b Bond) hasAccrual() bool {
	return b.Begin != "" && b.Settle != "" && b.NextCoupon != ""
}

func (b Bond) shift(dy float64) Bond {
	b.Yield += dy
	return b
}

// periods converts the term to whole coupon periods, rounding the term
// to the nearest half-year first. The rounding can shift T by up to
// one full period; every downstream metric sees the rounded T.
func (b Bond) periods() (int, bool) {
	if math.IsNaN(b.Term) || math.IsNaN(b.Yield) || b.Period <= 0 {
		return 0, false
	}
	rounded := math.Round(b.Term*2) / 2
	return int(rounded * float64(b.Period)), true
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}

// AccrualPeriod returns the fraction of the coupon period elapsed
// between begin and settle. Under ActAct an empty nextCoupon falls
// back to the settle date.
func AccrualPeriod(begin, settle, nextCoupon string, dayCount DayCount) (float64, bool) {
	if dayCount == Thirty360 {
		lb, okL := parseDate(begin)
		sb, okS := parseDate(settle)
		if !okL || !okS {
			return 0, false
		}
		days := 360*(sb.Year()-lb.Year()) + 30*(int(sb.Month())-int(lb.Month())) + sb.Day() - lb.Day()
		return float64(days) / 180, true
	}
	if nextCoupon == "" {
		nextCoupon = settle
	}
	lb, okL := parseDate(begin)
	sb, okS := parseDate(settle)
	nb, okN := parseDate(nextCoupon)
	if !okL || !okS || !okN {
		return 0, false
	}
	den := nb.Sub(lb).Hours() / 24
	if den == 0 {
		return 0, false
	}
	return sb.Sub(lb).Hours() / 24 / den, true
}

// AccruedInterest returns the coupon amount accrued between begin and
// settle, as a fraction of one coupon payment times the payment.
func AccruedInterest(coupon float64, period int, begin, settle, nextCoupon string, dayCount DayCount) (float64, bool) {
	v, ok := AccrualPeriod(begin, settle, nextCoupon, dayCount)
	if !ok || period <= 0 {
		return 0, false
	}
	return coupon / float64(period) * v, true
}

// Price returns the theoretical dirty price per 100 face: discounted
// coupons plus principal, with accrued interest added when the accrual
// dates are present.
func Price(b Bond) (float64, bool) {
	T, ok := b.periods()
	if !ok {
		return 0, false
	}
	C := b.Coupon / float64(b.Period)
	Y := b.Yield / float64(b.Period)
	if Y == 0 {
		return 0, false
	}
	price := C*(1-math.Pow(1+Y, -float64(T)))/Y + 100/math.Pow(1+Y, float64(T))
	if b.hasAccrual() {
		ai, ok := AccruedInterest(b.Coupon, b.Period, b.Begin, b.Settle, b.NextCoupon, b.DayCount)
		if !ok {
			return 0, false
		}
		price += ai
	}
	return price, true
}

// FuturesPrice is the dirty price divided by the conversion factor:
// the futures-equivalent price of the deliverable bond.
func FuturesPrice(b Bond, conversionFactor float64) (float64, bool) {
	if conversionFactor <= 0 {
		return 0, false
	}
	p, ok := Price(b)
	if !ok {
		return 0, false
	}
	return p / conversionFactor, true
}

// ModifiedDuration returns the modified duration in years. When the
// accrual dates are present the accrual-adjusted derivative (with the
// elapsed-fraction term v) is used; otherwise the unadjusted closed
// form applies. The two formulas are not interchangeable.
func ModifiedDuration(b Bond) (float64, bool) {
	T, ok := b.periods()
	if !ok {
		return 0, false
	}
	C := b.Coupon / float64(b.Period)
	Y := b.Yield / float64(b.Period)
	P, ok := Price(b)
	if !ok || P == 0 {
		return 0, false
	}
	Tf := float64(T)

	var mdur float64
	if b.hasAccrual() {
		v, ok := AccrualPeriod(b.Begin, b.Settle, b.NextCoupon, b.DayCount)
		if !ok {
			return 0, false
		}
		P = math.Pow(1+Y, v) * P
		mdur = -v*math.Pow(1+Y, v-1)*C/Y*(1-math.Pow(1+Y, -Tf)) +
			math.Pow(1+Y, v)*(C/(Y*Y)*(1-math.Pow(1+Y, -Tf))-
				Tf*C/(Y*math.Pow(1+Y, Tf+1))+
				(Tf-v)*100/math.Pow(1+Y, Tf+1))
	} else {
		mdur = C/(Y*Y)*(1-math.Pow(1+Y, -Tf)) + Tf*(100-C/Y)/math.Pow(1+Y, Tf+1)
	}
	return mdur / (float64(b.Period) * P), true
}

// MacaulayDuration is the modified duration scaled by one period's
// gross yield.
func MacaulayDuration(b Bond) (float64, bool) {
	mdur, ok := ModifiedDuration(b)
	if !ok {
		return 0, false
	}
	return mdur * (1 + b.Yield/float64(b.Period)), true
}

// Convexity returns the closed-form convexity. The accrual fraction v
// enters the derivative when accrual dates are present and is zero
// otherwise.
func Convexity(b Bond) (float64, bool) {
	T, ok := b.periods()
	if !ok {
		return 0, false
	}
	C := b.Coupon / float64(b.Period)
	Y := b.Yield / float64(b.Period)
	P, ok := Price(b)
	if !ok || P == 0 {
		return 0, false
	}
	var v float64
	if b.hasAccrual() {
		av, ok := AccrualPeriod(b.Begin, b.Settle, b.NextCoupon, b.DayCount)
		if !ok {
			return 0, false
		}
		v = av
	}
	Tf := float64(T)
	dcv := -v*(v-1)*math.Pow(1+Y, v-2)*C/Y*(1-math.Pow(1+Y, -Tf)) -
		2*v*math.Pow(1+Y, v-1)*(C/(Y*Y)*(1-math.Pow(1+Y, -Tf))-Tf*C/(Y*math.Pow(1+Y, Tf+1))) -
		math.Pow(1+Y, v)*(-C/(Y*Y*Y)*(1-math.Pow(1+Y, -Tf))+
			2*Tf*C/(Y*Y*math.Pow(1+Y, Tf+1))+
			Tf*(Tf+1)*C/(Y*math.Pow(1+Y, Tf+2))) +
		(Tf-v)*(Tf+1)*100/math.Pow(1+Y, Tf+2-v)
	return dcv / (P * float64(b.Period) * float64(b.Period)), true
}

// FuturesConvexity is the convexity divided by the conversion factor.
func FuturesConvexity(b Bond, conversionFactor float64) (float64, bool) {
	if conversionFactor <= 0 {
		return 0, false
	}
	cvx, ok := Convexity(b)
	if !ok {
		return 0, false
	}
	return cvx / conversionFactor, true
}

// DV01 is the price value of a basis point: duration times price
// times 0.001. The shocked variants below re-evaluate duration at a
// shifted yield; only the 1bp variants keep the price term.
func DV01(b Bond) (float64, bool) {
	P, okP := Price(b)
	mdur, okD := ModifiedDuration(b)
	if !okP || !okD {
		return 0, false
	}
	return round6(mdur * P * 0.001), true
}

// DV01Minus re-prices and re-evaluates duration 1bp down.
func DV01Minus(b Bond) (float64, bool) {
	return DV01(b.shift(-0.0001))
}

// DV01Plus adds the convexity correction to the duration term.
func DV01Plus(b Bond) (float64, bool) {
	P, okP := Price(b)
	mdur, okD := ModifiedDuration(b)
	cvx, okC := Convexity(b)
	if !okP || !okD || !okC {
		return 0, false
	}
	return round6((mdur + cvx) * P * 0.001), true
}

// durationShock is the shared shape of the DV10/50/100 and the 2bp/5bp
// sensitivity variants: duration at the shocked yield, scaled by
// 0.001, with no price term.
func durationShock(b Bond, dy float64) (float64, bool) {
	mdur, ok := ModifiedDuration(b.shift(dy))
	if !ok {
		return 0, false
	}
	return round6(mdur * 0.001), true
}

func DV10(b Bond) (float64, bool)      { return durationShock(b, 0.001) }
func DV10Minus(b Bond) (float64, bool) { return durationShock(b, -0.001) }

func DV50(b Bond) (float64, bool)      { return durationShock(b, 0.005) }
func DV50Minus(b Bond) (float64, bool) { return durationShock(b, -0.005) }

func DV100(b Bond) (float64, bool)      { return durationShock(b, 0.01) }
func DV100Minus(b Bond) (float64, bool) { return durationShock(b, -0.01) }

// DV22 and DV55 are the "2BP" and "5BP" scenario sensitivities used by
// the risk overlay grid.
func DV22(b Bond) (float64, bool)      { return durationShock(b, 0.0002) }
func DV22Minus(b Bond) (float64, bool) { return durationShock(b, -0.0002) }

func DV55(b Bond) (float64, bool)      { return durationShock(b, 0.0005) }
func DV55Minus(b Bond) (float64, bool) { return durationShock(b, -0.0005) }

// DVMkt shocks the yield by a market-implied vol figure instead of a
// fixed bump.
func DVMkt(b Bond, mvol float64) (float64, bool)      { return durationShock(b, mvol) }
func DVMktMinus(b Bond, mvol float64) (float64, bool) { return durationShock(b, -mvol) }

// futScaled divides a shock metric by the conversion factor.
func futScaled(v float64, ok bool, conversionFactor float64) (float64, bool) {
	if !ok || conversionFactor <= 0 {
		return 0, false
	}
	return v / conversionFactor, true
}

func FutDV01(b Bond, cf float64) (float64, bool) {
	v, ok := DV01(b)
	return futScaled(v, ok, cf)
}

func FutDV01Minus(b Bond, cf float64) (float64, bool) {
	v, ok := DV01Minus(b)
	return futScaled(v, ok, cf)
}

func FutDV10(b Bond, cf float64) (float64, bool) {
	v, ok := DV10(b)
	return futScaled(v, ok, cf)
}

func FutDV10Minus(b Bond, cf float64) (float64, bool) {
	v, ok := DV10Minus(b)
	return futScaled(v, ok, cf)
}

func FutDV50(b Bond, cf float64) (float64, bool) {
	v, ok := DV50(b)
	return futScaled(v, ok, cf)
}

func FutDV50Minus(b Bond, cf float64) (float64, bool) {
	v, ok := DV50Minus(b)
	return futScaled(v, ok, cf)
}

func FutDV100(b Bond, cf float64) (float64, bool) {
	v, ok := DV100(b)
	return futScaled(v, ok, cf)
}

func FutDV100Minus(b Bond, cf float64) (float64, bool) {
	v, ok := DV100Minus(b)
	return futScaled(v, ok, cf)
}

func FutDV22(b Bond, cf float64) (float64, bool) {
	v, ok := DV22(b)
	return futScaled(v, ok, cf)
}

func FutDV22Minus(b Bond, cf float64) (float64, bool) {
	v, ok := DV22Minus(b)
	return futScaled(v, ok, cf)
}

func FutDV55(b Bond, cf float64) (float64, bool) {
	v, ok := DV55(b)
	return futScaled(v, ok, cf)
}

func FutDV55Minus(b Bond, cf float64) (float64, bool) {
	v, ok := DV55Minus(b)
	return futScaled(v, ok, cf)
}

func FutDVMkt(b Bond, mvol, cf float64) (float64, bool) {
	v, ok := DVMkt(b, mvol)
	return futScaled(v, ok, cf)
}

func FutDVMktMinus(b Bond, mvol, cf float64) (float64, bool) {
	v, ok := DVMktMinus(b, mvol)
	return futScaled(v, ok, cf)
}

// ApproximateDuration is the centered finite-difference duration
// estimator. It is an independent cross-check of ModifiedDuration,
// not a substitute. deltaY defaults to 1bp when non-positive.
func ApproximateDuration(b Bond, deltaY float64) (float64, bool) {
	if deltaY <= 0 {
		deltaY = 0.0001
	}
	if math.IsNaN(b.Yield) {
		return 0, false
	}
	price, ok := Price(b)
	if !ok || price == 0 {
		return 0, false
	}
	up, okU := Price(b.shift(deltaY))
	dn, okD := Price(b.shift(-deltaY))
	if !okU || !okD {
		return 0, false
	}
	return (dn - up) / (2 * price * deltaY), true
}

// ApproximateConvexity is the centered finite-difference convexity
// estimator.
func ApproximateConvexity(b Bond, deltaY float64) (float64, bool) {
	if deltaY <= 0 {
		deltaY = 0.0001
	}
	if math.IsNaN(b.Yield) {
		return 0, false
	}
	price, ok := Price(b)
	if !ok || price == 0 {
		return 0, false
	}
	up, okU := Price(b.shift(deltaY))
	dn, okD := Price(b.shift(-deltaY))
	if !okU || !okD {
		return 0, false
	}
	return (up + dn - 2*price) / (price * deltaY * deltaY), true
}

// SettlementDate returns the T+n settlement date from a trade date,
// skipping weekends.
func SettlementDate(trade time.Time, tPlus int) time.Time {
	settle := trade
	added := 0
	for added < tPlus {
		settle = settle.AddDate(0, 0, 1)
		if wd := settle.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return settle
}
