package manager

import (
	"fmt"
	"math"

	"github.com/shaneVR097/v2x-collision-warning-simulation/models"
)

// Config carries every tunable of the monitoring core. It is supplied in
// full at construction; Validate rejects unusable values before the first
// step runs.
type Config struct {
	StepLength  float64
	MaxDuration float64

	NearThreshold     float64
	CriticalThreshold float64
	Cooldown          float64
	SpeedReduction    float64
	FloorSpeed        float64
	RampSeconds       float64
	StopEpsilon       float64
	StatusDecay       float64 // seconds without a hazard before status reverts; 0 disables

	IdealSpeed float64

	RSUPeriod      int
	V2VPeriod      int
	SignalPeriod   int
	SignalFallback int

	SeriesBound int
	TrendWindow int

	SafetyWeight        float64
	EfficiencyWeight    float64
	CommunicationWeight float64

	FailureWarnSteps int

	RSUs []models.RSUNode
}

func DefaultConfig() Config {
	return Config{
		StepLength:        0.2,
		MaxDuration:       150,
		NearThreshold:     15,
		CriticalThreshold: 8,
		Cooldown:          2,
		SpeedReduction:    0.6,
		FloorSpeed:        2,
		RampSeconds:       2,
		StopEpsilon:       0.1,
		StatusDecay:       10,
		IdealSpeed:        15,

		RSUPeriod:      20,
		V2VPeriod:      15,
		SignalPeriod:   10,
		SignalFallback: 5,

		SeriesBound: 50,
		TrendWindow: 5,

		SafetyWeight:        0.4,
		EfficiencyWeight:    0.4,
		CommunicationWeight: 0.2,

		FailureWarnSteps: 25,

		RSUs: DefaultRSULayout(),
	}
}

// DefaultRSULayout places five roadside units on the 3x3 grid network.
func DefaultRSULayout() []models.RSUNode {
	return []models.RSUNode{
		{ID: "rsu_A1", Pos: models.Position{X: 200, Y: 200}, Range: 100},
		{ID: "rsu_B0", Pos: models.Position{X: 200, Y: 400}, Range: 100},
		{ID: "rsu_B1", Pos: models.Position{X: 400, Y: 400}, Range: 100},
		{ID: "rsu_B2", Pos: models.Position{X: 600, Y: 400}, Range: 100},
		{ID: "rsu_C1", Pos: models.Position{X: 400, Y: 600}, Range: 100},
	}
}

func (c Config) Validate() error {
	positives := []struct {
		name  string
		value float64
	}{
		{"step length", c.StepLength},
		{"max duration", c.MaxDuration},
		{"near threshold", c.NearThreshold},
		{"critical threshold", c.CriticalThreshold},
		{"cooldown", c.Cooldown},
		{"speed reduction factor", c.SpeedReduction},
		{"floor speed", c.FloorSpeed},
		{"ramp seconds", c.RampSeconds},
		{"stop epsilon", c.StopEpsilon},
		{"ideal speed", c.IdealSpeed},
		{"rsu period", float64(c.RSUPeriod)},
		{"v2v period", float64(c.V2VPeriod)},
		{"signal period", float64(c.SignalPeriod)},
		{"series bound", float64(c.SeriesBound)},
		{"trend window", float64(c.TrendWindow)},
		{"failure warn steps", float64(c.FailureWarnSteps)},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("config: %s must be positive, got %v", p.name, p.value)
		}
	}

	if c.CriticalThreshold > c.NearThreshold {
		return fmt.Errorf("config: critical threshold %v exceeds near threshold %v",
			c.CriticalThreshold, c.NearThreshold)
	}
	if c.SpeedReduction >= 1 {
		return fmt.Errorf("config: speed reduction factor %v must be below 1", c.SpeedReduction)
	}
	if c.StatusDecay < 0 {
		return fmt.Errorf("config: status decay must not be negative, got %v", c.StatusDecay)
	}
	if c.SignalFallback < 0 {
		return fmt.Errorf("config: signal fallback must not be negative, got %d", c.SignalFallback)
	}

	sum := c.SafetyWeight + c.EfficiencyWeight + c.CommunicationWeight
	if c.SafetyWeight < 0 || c.EfficiencyWeight < 0 || c.CommunicationWeight < 0 ||
		math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("config: score weights must be non-negative and sum to 1, got %v", sum)
	}

	for _, rsu := range c.RSUs {
		if rsu.Range <= 0 {
			return fmt.Errorf("config: RSU %s has non-positive range %v", rsu.ID, rsu.Range)
		}
	}

	return nil
}
