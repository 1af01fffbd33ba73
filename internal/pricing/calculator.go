// Package pricing computes the cost of a backend call from its unit
// counts and the backend's catalog rates. Costing is deterministic: the
// same (descriptor, units) pair always yields the same cost.
package pricing

import "github.com/focusloop/aidispatch/internal/catalog"

// Cost returns the cost in micro-USD for a call against d.
// Rates are micro-USD per million units; results round half up so tiny
// calls on paid backends never floor to zero.
func Cost(d *catalog.Descriptor, inputUnits, outputUnits int) int64 {
	if d == nil || d.ZeroCost {
		return 0
	}
	in := roundedShare(int64(inputUnits), d.InputCostPerMTok)
	out := roundedShare(int64(outputUnits), d.OutputCostPerMTok)
	total := in + out
	if total == 0 && inputUnits+outputUnits > 0 {
		// Sub-half-micro calls still bill the minor unit.
		total = 1
	}
	return total
}

func roundedShare(units, ratePerM int64) int64 {
	if units <= 0 || ratePerM <= 0 {
		return 0
	}
	return (units*ratePerM + 500_000) / 1_000_000
}
