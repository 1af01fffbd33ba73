// Package selector implements the backend decision table. Select is pure
// and total: for any valid (feature, complexity, tier, budget) tuple it
// returns exactly one descriptor and never an error. Backend
// unavailability is not its concern; the fallback controller owns that.
package selector

import (
	"github.com/focusloop/aidispatch/internal/catalog"
	"github.com/focusloop/aidispatch/internal/classify"
	"github.com/focusloop/aidispatch/internal/ledger"
	"github.com/focusloop/aidispatch/pkg/types"
)

// Config tunes the budget-sensitive parts of the decision table.
type Config struct {
	// MonthlyCapMicros is the soft monthly spend cap per tier, micro-USD.
	// A zero cap means unlimited.
	MonthlyCapMicros map[types.Tier]int64

	// LowWaterMicros is the remaining-budget threshold below which
	// quality routing downgrades to the cheap backend.
	LowWaterMicros int64
}

// DefaultConfig returns the production caps.
func DefaultConfig() Config {
	return Config{
		MonthlyCapMicros: map[types.Tier]int64{
			types.TierFree:       500_000,    // $0.50
			types.TierPro:        10_000_000, // $10
			types.TierEnterprise: 0,          // unlimited
		},
		LowWaterMicros: 100_000, // $0.10
	}
}

// Selector picks a backend for each request. The role descriptors are
// derived from the catalog once at construction; the catalog is immutable
// so the selector is safe for concurrent use.
type Selector struct {
	cfg Config

	cheap     *catalog.Descriptor
	vision    *catalog.Descriptor
	quality   *catalog.Descriptor
	promo     *catalog.Descriptor
	citations *catalog.Descriptor
	image     *catalog.Descriptor
	free      *catalog.Descriptor
}

// New derives the decision-table roles from the catalog:
// cheap is the lowest-cost paid backend outside any promotional pool,
// vision the lowest-cost vision-capable paid backend, quality the
// highest-cost reasoning backend, promo the backend with a promotional
// pool, plus the citation-capable, image-capable and zero-cost entries.
func New(cat *catalog.Catalog, cfg Config) *Selector {
	s := &Selector{cfg: cfg, free: cat.Fallback()}

	for _, d := range cat.All() {
		if d.ZeroCost || d.Has(catalog.CapabilityImage) {
			continue
		}
		// Promo-pool backends have their own role; keeping them out of
		// cheap stops pool exhaustion from shifting the bulk routes.
		if d.PromoPool == "" {
			if s.cheap == nil || combinedRate(d) < combinedRate(s.cheap) {
				s.cheap = d
			}
		}
		if d.Has(catalog.CapabilityVision) {
			if s.vision == nil || combinedRate(d) < combinedRate(s.vision) {
				s.vision = d
			}
		}
		if d.Has(catalog.CapabilityReasoning) && d.PromoPool == "" {
			if s.quality == nil || combinedRate(d) > combinedRate(s.quality) {
				s.quality = d
			}
		}
		if d.PromoPool != "" && s.promo == nil {
			s.promo = d
		}
		if d.Has(catalog.CapabilityCitations) && s.citations == nil {
			s.citations = d
		}
	}
	if imgs := cat.WithCapability(catalog.CapabilityImage); len(imgs) > 0 {
		s.image = imgs[0]
	}

	// Degrade gracefully for sparse catalogs so Select stays total.
	if s.cheap == nil {
		s.cheap = s.free
	}
	if s.vision == nil {
		s.vision = s.cheap
	}
	if s.quality == nil {
		s.quality = s.cheap
	}
	if s.promo == nil {
		s.promo = s.quality
	}
	if s.citations == nil {
		s.citations = s.quality
	}
	if s.image == nil {
		s.image = s.free
	}
	return s
}

func combinedRate(d *catalog.Descriptor) int64 {
	return d.InputCostPerMTok + d.OutputCostPerMTok
}

// Select applies the decision table.
func (s *Selector) Select(feature types.Feature, cx classify.Complexity, tier types.Tier, budget *ledger.Budget) *catalog.Descriptor {
	switch feature {
	case types.FeatureImageGeneration:
		// Single image-capable backend; no substitute exists.
		return s.image

	case types.FeatureVisionOCR, types.FeatureVisionEvents:
		// Image inputs need a vision-capable backend.
		return s.vision

	case types.FeatureTaskParsing:
		// High-volume, low-reasoning extraction work.
		return s.cheap

	case types.FeatureChat, types.FeatureBriefing:
		if cx == classify.Simple {
			return s.cheap
		}
		if s.budgetLow(tier, budget) {
			return s.cheap
		}
		return s.quality

	case types.FeatureNoteGeneration, types.FeatureNoteSummary, types.FeatureMindMap:
		// Depth generation rides the promotional pool while it lasts.
		if budget.PromoRemaining(s.promo.Provider) > 0 {
			return s.promo
		}
		if tier == types.TierFree {
			return s.cheap
		}
		return s.quality

	case types.FeatureResearch:
		// Citations are a paid-tier feature.
		if tier == types.TierFree {
			return s.free
		}
		return s.citations

	default:
		return s.cheap
	}
}

// budgetLow reports whether the tier's remaining monthly budget has
// dropped below the low-water mark.
func (s *Selector) budgetLow(tier types.Tier, budget *ledger.Budget) bool {
	cap, ok := s.cfg.MonthlyCapMicros[tier]
	if !ok || cap <= 0 {
		return false
	}
	spent := int64(0)
	if budget != nil {
		spent = budget.SpentMicros
	}
	return cap-spent < s.cfg.LowWaterMicros
}
