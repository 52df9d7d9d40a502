package manager

import (
	"math"
	"sort"

	"github.com/shaneVR097/v2x-collision-warning-simulation/models"
)

// updateMetrics extends the rolling series. A step with no speed samples
// leaves the average-speed series unextended; the vehicle-count series is
// bounded to the last SeriesBound samples.
func (sm *SafetyManager) updateMetrics() {
	total := 0.0
	count := 0
	for _, id := range sm.presentIDs {
		rec := sm.Vehicles[id]
		if len(rec.Speeds) == 0 {
			continue
		}
		total += rec.LastSpeed
		count++
	}
	if count > 0 {
		sm.Stats.AvgSpeeds = append(sm.Stats.AvgSpeeds, total/float64(count))
	}

	sm.Stats.VehicleCounts = append(sm.Stats.VehicleCounts, sm.presentCount)
	if len(sm.Stats.VehicleCounts) > sm.cfg.SeriesBound {
		sm.Stats.VehicleCounts = sm.Stats.VehicleCounts[1:]
	}
}

// Scores are the derived run-quality numbers, each on a 0..100 scale.
type Scores struct {
	Efficiency    float64 `json:"efficiency"`
	Safety        float64 `json:"safety"`
	Communication float64 `json:"communication"`
	Overall       float64 `json:"overall"`
}

// scores computes the derived numbers from the current statistics. Caller
// holds sm.mu.
func (sm *SafetyManager) scores() Scores {
	efficiency := 0.0
	if n := len(sm.Stats.AvgSpeeds); n > 0 {
		efficiency = math.Min(sm.Stats.AvgSpeeds[n-1]/sm.cfg.IdealSpeed*100, 100)
	}

	safety := 100 -
		0.5*float64(sm.Stats.NearMisses) +
		5*float64(sm.Stats.AccidentsPrevented) +
		2*float64(sm.Stats.Interventions)
	safety = math.Max(0, math.Min(safety, 100))

	communication := math.Min(float64(sm.Stats.RSUMessages)/(sm.simTime+1)*10, 100)

	overall := sm.cfg.SafetyWeight*safety +
		sm.cfg.EfficiencyWeight*efficiency +
		sm.cfg.CommunicationWeight*communication

	return Scores{
		Efficiency:    efficiency,
		Safety:        safety,
		Communication: communication,
		Overall:       overall,
	}
}

func (sm *SafetyManager) Scores() Scores {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.scores()
}

// VehicleSummary is the per-vehicle slice of a snapshot.
type VehicleSummary struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Speed    float64          `json:"speed"`
	Status   string           `json:"status"`
	Position *models.Position `json:"position,omitempty"`
}

// Snapshot is a consistent read-only copy of the monitor state for the
// presentation layer.
type Snapshot struct {
	RunID        string               `json:"run_id"`
	Step         int                  `json:"step"`
	SimTime      float64              `json:"sim_time"`
	VehicleCount int                  `json:"vehicle_count"`
	Tracked      int                  `json:"tracked_vehicles"`
	AverageSpeed float64              `json:"average_speed"`
	Stats        models.RunStatistics `json:"stats"`
	Scores       Scores               `json:"scores"`
	Vehicles     []VehicleSummary     `json:"vehicles"`
}

func (sm *SafetyManager) Snapshot() Snapshot {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	stats := sm.Stats
	stats.AvgSpeeds = append([]float64(nil), sm.Stats.AvgSpeeds...)
	stats.VehicleCounts = append([]int(nil), sm.Stats.VehicleCounts...)
	stats.SafetyEvents = append([]models.SafetyEvent(nil), sm.Stats.SafetyEvents...)

	avg := 0.0
	if n := len(stats.AvgSpeeds); n > 0 {
		avg = stats.AvgSpeeds[n-1]
	}

	vehicles := make([]VehicleSummary, 0, len(sm.Vehicles))
	for _, rec := range sm.Vehicles {
		summary := VehicleSummary{
			ID:     rec.ID,
			Type:   rec.Type,
			Speed:  rec.LastSpeed,
			Status: rec.Status.String(),
		}
		if pos, ok := rec.LastPosition(); ok {
			p := pos
			summary.Position = &p
		}
		vehicles = append(vehicles, summary)
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].ID < vehicles[j].ID })

	return Snapshot{
		RunID:        sm.RunID.String(),
		Step:         sm.step,
		SimTime:      sm.simTime,
		VehicleCount: sm.presentCount,
		Tracked:      len(sm.Vehicles),
		AverageSpeed: avg,
		Stats:        stats,
		Scores:       sm.scores(),
		Vehicles:     vehicles,
	}
}
