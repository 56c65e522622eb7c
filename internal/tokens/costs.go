package tokens

import "math"

// ConversionCost prices the next wealth-to-token conversion. Each token
// earned today raises the next one's price by the scaling factor.
func ConversionCost(base int64, scaling float64, earnedToday int) int64 {
	return int64(math.Floor(float64(base) * math.Pow(scaling, float64(earnedToday))))
}

// DecayAmount computes the nightly loss for a balance above the soft cap.
// At or past the hard cap the whole balance decays; between the caps only
// the excess does. Any positive decay is at least one token.
func DecayAmount(tokens, softCap, hardCap int, decayAtHard, decayAboveSoft float64) int {
	if tokens <= softCap {
		return 0
	}
	var d int
	if tokens >= hardCap {
		d = int(math.Floor(float64(tokens) * decayAtHard))
	} else {
		d = int(math.Floor(float64(tokens-softCap) * decayAboveSoft))
	}
	if d < 1 {
		d = 1
	}
	return d
}
