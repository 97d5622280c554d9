package safety

// BLMConfig describes a single beam-loss monitor's static placement and
// thresholds.
type BLMConfig struct {
	ID               string
	Position         float64 // meters relative to the interaction point
	WarningThreshold float64 // Gy/s
	AbortThreshold   float64 // Gy/s
}

// DefaultBLMConfigs returns the default three-monitor beamline layout:
// upstream, target, downstream, each with the default thresholds.
func DefaultBLMConfigs() []BLMConfig {
	const (
		warnThreshold  = 1e-6
		abortThreshold = 1e-5
	)
	return []BLMConfig{
		{ID: "BLM_UPSTREAM", Position: -5.0, WarningThreshold: warnThreshold, AbortThreshold: abortThreshold},
		{ID: "BLM_TARGET", Position: 0.0, WarningThreshold: warnThreshold, AbortThreshold: abortThreshold},
		{ID: "BLM_DOWNSTREAM", Position: 5.0, WarningThreshold: warnThreshold, AbortThreshold: abortThreshold},
	}
}

// blm is one beam-loss monitor's mutable edge-tracking state. It holds
// no callbacks of its own; the owning MPS evaluates and dispatches.
type blm struct {
	cfg           BLMConfig
	warningActive bool
	abortActive   bool
	lastLossRate  float64
}

func newBLM(cfg BLMConfig) *blm {
	return &blm{cfg: cfg}
}

// lossRate estimates the instantaneous loss rate (Gy/s) from beam
// intensity and position: L = 1e-8 * (1 + |p|*0.1) * (I/1000).
func lossRate(position, intensity float64) float64 {
	const baseLoss = 1e-8
	positionFactor := 1.0 + absf(position)*0.1
	currentFactor := intensity / 1000.0
	return baseLoss * positionFactor * currentFactor
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// blmVerdict classifies a BLM's measurement into a tri-state verdict and
// updates its local warning/abort edge flags. It never mutates the
// owning MPS's state directly.
type blmVerdict int

const (
	blmSafe blmVerdict = iota
	blmWarn
	blmAbort
)

func (b *blm) evaluate(intensity, position float64) blmVerdict {
	b.lastLossRate = lossRate(position, intensity)

	switch {
	case b.lastLossRate > b.cfg.AbortThreshold:
		b.abortActive = true
		b.warningActive = false
		return blmAbort
	case b.lastLossRate > b.cfg.WarningThreshold:
		b.warningActive = true
		b.abortActive = false
		return blmWarn
	default:
		b.warningActive = false
		b.abortActive = false
		return blmSafe
	}
}

// Statistics is a point-in-time snapshot of a single BLM's state.
type Statistics struct {
	ID            string
	LossRate      float64
	WarningActive bool
	AbortActive   bool
}

func (b *blm) statistics() Statistics {
	return Statistics{
		ID:            b.cfg.ID,
		LossRate:      b.lastLossRate,
		WarningActive: b.warningActive,
		AbortActive:   b.abortActive,
	}
}
