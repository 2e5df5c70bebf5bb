package miniminer

// FeeRate is a fee-per-vsize ratio, compared and applied without ever
// converting to a floating-point value. Grounded on CFeeRate in
// policy/feerate.h; the cross-multiplication comparator in MetBy follows
// spec.md §4.F exactly ("a.fee * b.vsize ≥ b.fee * a.vsize").
type FeeRate struct {
	Fee   int64
	VSize int64
}

// NewFeeRate builds the ratio fee/vsize. vsize must be positive.
func NewFeeRate(fee, vsize int64) FeeRate {
	return FeeRate{Fee: fee, VSize: vsize}
}

// MetBy reports whether the ratio fee/vsize is at or above r, via
// cross-multiplication: fee/vsize ≥ r.Fee/r.VSize ⟺ fee*r.VSize ≥
// r.Fee*vsize.
func (r FeeRate) MetBy(fee, vsize int64) bool {
	return fee*r.VSize >= r.Fee*vsize
}

// FeeFor returns the smallest fee that meets r at the given vsize,
// rounding up. Grounded on CFeeRate::GetFee.
func (r FeeRate) FeeFor(vsize int64) int64 {
	if r.VSize == 0 {
		return 0
	}
	numerator := r.Fee * vsize
	fee := numerator / r.VSize
	if numerator%r.VSize != 0 {
		fee++
	}
	return fee
}
