package fincalc

// FuturesTail returns the relative over/under-hedge between two
// futures legs given their per-contract DV01s and multipliers. The
// sign and denominator depend on which leg carries the larger DV01
// notional: the heavier leg's excess is expressed against the lighter
// leg, negated when A is heavier.
func FuturesTail(aDV01, aMult, bDV01, bMult float64) (float64, bool) {
	aNotional := aDV01 * aMult
	bNotional := bDV01 * bMult
	if aNotional > bNotional {
		if bNotional == 0 {
			return 0, false
		}
		return -1 * (aNotional - bNotional) / bNotional, true
	}
	if aNotional == 0 {
		return 0, false
	}
	return (bNotional - aNotional) / aNotional, true
}

// ForwardFuturesTail is the forward-adjusted variant: the comparison
// that chooses the branch uses the spot DV01 notionals, but the ratio
// itself is computed on spot-plus-forward DV01s.
func ForwardFuturesTail(aDV01, aFwdDV01, aMult, bDV01, bFwdDV01, bMult float64) (float64, bool) {
	aCombined := (aDV01 + aFwdDV01) * aMult
	bCombined := (bDV01 + bFwdDV01) * bMult
	if aDV01*aMult > bDV01*bMult {
		if bCombined == 0 {
			return 0, false
		}
		return -1 * (aCombined - bCombined) / bCombined, true
	}
	if aCombined == 0 {
		return 0, false
	}
	return (bCombined - aCombined) / aCombined, true
}
