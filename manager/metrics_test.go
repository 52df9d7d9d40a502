package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneVR097/v2x-collision-warning-simulation/models"
)

func TestAvgSpeedSeriesSkipsVehiclelessSteps(t *testing.T) {
	sm, engine := newTestManager(t, nil)

	stepN(t, sm, 3)
	assert.Empty(t, sm.Stats.AvgSpeeds, "no vehicles, no samples")
	assert.Len(t, sm.Stats.VehicleCounts, 3)

	engine.vehicles["veh_1"] = &fakeVehicle{speed: 6, pos: models.Position{X: 0, Y: 0}, vtype: "car"}
	engine.vehicles["veh_2"] = &fakeVehicle{speed: 10, pos: models.Position{X: 300, Y: 0}, vtype: "car"}
	stepN(t, sm, 2)

	require.Len(t, sm.Stats.AvgSpeeds, 2)
	assert.InDelta(t, 8.0, sm.Stats.AvgSpeeds[0], 0.001)

	delete(engine.vehicles, "veh_1")
	delete(engine.vehicles, "veh_2")
	stepN(t, sm, 4)

	assert.Len(t, sm.Stats.AvgSpeeds, 2, "zero-vehicle steps leave the series unextended")
	assert.Len(t, sm.Stats.VehicleCounts, 9)
}

func TestVehicleCountSeriesBounded(t *testing.T) {
	sm, _ := newTestManager(t, func(cfg *Config) {
		cfg.SeriesBound = 5
	})

	stepN(t, sm, 8)

	assert.Len(t, sm.Stats.VehicleCounts, 5)
}

func TestEfficiencyMonotoneThenClamped(t *testing.T) {
	sm, _ := newTestManager(t, nil)

	previous := -1.0
	for _, avg := range []float64{0, 3, 7.5, 12, 15} {
		sm.Stats.AvgSpeeds = append(sm.Stats.AvgSpeeds, avg)
		score := sm.Scores().Efficiency
		assert.GreaterOrEqual(t, score, previous)
		previous = score
	}
	assert.InDelta(t, 100.0, previous, 0.001)

	sm.Stats.AvgSpeeds = append(sm.Stats.AvgSpeeds, 40)
	assert.InDelta(t, 100.0, sm.Scores().Efficiency, 0.001, "clamps beyond the ideal speed")
}

func TestSafetyScoreClamped(t *testing.T) {
	sm, _ := newTestManager(t, nil)

	sm.Stats.NearMisses = 500
	assert.InDelta(t, 0.0, sm.Scores().Safety, 0.001)

	sm.Stats.NearMisses = 0
	sm.Stats.AccidentsPrevented = 50
	assert.InDelta(t, 100.0, sm.Scores().Safety, 0.001)

	sm.Stats.AccidentsPrevented = 2
	sm.Stats.Interventions = 2
	sm.Stats.NearMisses = 40
	// 100 - 20 + 10 + 4
	assert.InDelta(t, 94.0, sm.Scores().Safety, 0.001)
}

func TestOverallScoreWeighting(t *testing.T) {
	sm, _ := newTestManager(t, nil)

	sm.Stats.AvgSpeeds = []float64{7.5} // efficiency 50
	sm.simTime = 9                      // communication: 20 msgs / 10s * 10 = 20
	sm.Stats.RSUMessages = 20

	scores := sm.Scores()
	assert.InDelta(t, 50.0, scores.Efficiency, 0.001)
	assert.InDelta(t, 100.0, scores.Safety, 0.001)
	assert.InDelta(t, 20.0, scores.Communication, 0.001)
	assert.InDelta(t, 0.4*100+0.4*50+0.2*20, scores.Overall, 0.001)
}

func TestSnapshotIsDetachedCopy(t *testing.T) {
	sm, engine := newTestManager(t, nil)
	engine.vehicles["veh_b"] = &fakeVehicle{speed: 6, pos: models.Position{X: 0, Y: 0}, vtype: "car"}
	engine.vehicles["veh_a"] = &fakeVehicle{speed: 10, pos: models.Position{X: 300, Y: 0}, vtype: "suv"}

	stepN(t, sm, 2)

	snap := sm.Snapshot()
	require.Len(t, snap.Vehicles, 2)
	assert.Equal(t, "veh_a", snap.Vehicles[0].ID, "vehicle summaries are sorted")
	assert.Equal(t, 2, snap.Step)
	assert.InDelta(t, 8.0, snap.AverageSpeed, 0.001)

	snap.Stats.AvgSpeeds[0] = -1
	assert.InDelta(t, 8.0, sm.Stats.AvgSpeeds[0], 0.001, "mutating a snapshot leaves the monitor untouched")
}
