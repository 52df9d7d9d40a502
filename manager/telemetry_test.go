package manager

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneVR097/v2x-collision-warning-simulation/models"
)

func TestFirstSightingCreatesRecord(t *testing.T) {
	sm, engine := newTestManager(t, nil)
	engine.vehicles["veh_1"] = &fakeVehicle{speed: 8, pos: models.Position{X: 1, Y: 2}, vtype: "suv"}

	stepN(t, sm, 1)

	rec, ok := sm.Vehicles["veh_1"]
	require.True(t, ok)
	assert.Equal(t, "suv", rec.Type)
	assert.Equal(t, models.StatusNormal, rec.Status)
	assert.Len(t, rec.Speeds, 1)
	assert.Len(t, rec.Positions, 1)
	assert.InDelta(t, 8.0, rec.LastSpeed, 0.001)
	assert.Zero(t, rec.TotalStopped)
}

func TestStopTransitionAccruesOnce(t *testing.T) {
	sm, engine := newTestManager(t, nil)
	engine.vehicles["veh_1"] = &fakeVehicle{speed: 5, pos: models.Position{X: 0, Y: 0}, vtype: "car"}

	stepN(t, sm, 1)

	engine.vehicles["veh_1"].speed = 0.05
	stepN(t, sm, 1)
	assert.InDelta(t, 0.2, sm.Vehicles["veh_1"].TotalStopped, 0.001)
	assert.InDelta(t, 0.2, sm.Stats.TotalStopTime, 0.001)

	// Still stopped: no repeated accrual without crossing the threshold again.
	engine.vehicles["veh_1"].speed = 0.04
	stepN(t, sm, 1)
	assert.InDelta(t, 0.2, sm.Vehicles["veh_1"].TotalStopped, 0.001)

	// Moving again and re-stopping accrues a second time.
	engine.vehicles["veh_1"].speed = 4
	stepN(t, sm, 1)
	engine.vehicles["veh_1"].speed = 0
	stepN(t, sm, 1)
	assert.InDelta(t, 0.4, sm.Vehicles["veh_1"].TotalStopped, 0.001)
}

func TestQueryFailureSkipsDatumOnly(t *testing.T) {
	sm, engine := newTestManager(t, nil)
	engine.vehicles["veh_1"] = &fakeVehicle{
		speed:    7,
		pos:      models.Position{X: 3, Y: 4},
		vtype:    "car",
		speedErr: errors.New("query failed"),
	}

	stepN(t, sm, 1)

	rec := sm.Vehicles["veh_1"]
	assert.Empty(t, rec.Speeds)
	assert.Len(t, rec.Positions, 1, "position still recorded when only the speed query fails")
}

func TestSeriesCarryOwnTimestamps(t *testing.T) {
	sm, engine := newTestManager(t, nil)
	engine.vehicles["veh_1"] = &fakeVehicle{
		speed:    7,
		pos:      models.Position{X: 3, Y: 4},
		vtype:    "car",
		speedErr: errors.New("query failed"),
	}

	stepN(t, sm, 1)
	engine.vehicles["veh_1"].speedErr = nil
	stepN(t, sm, 1)

	rec := sm.Vehicles["veh_1"]
	require.Len(t, rec.Positions, 2)
	require.Len(t, rec.Speeds, 1)
	assert.InDelta(t, 0.2, rec.Positions[0].Time, 0.001)
	assert.InDelta(t, 0.4, rec.Speeds[0].Time, 0.001,
		"a recovered speed sample records its own observation time")
	assert.InDelta(t, 7.0, rec.Speeds[0].Value, 0.001)
}

func TestAbsentVehicleRetained(t *testing.T) {
	sm, engine := newTestManager(t, nil)
	engine.vehicles["veh_1"] = &fakeVehicle{speed: 8, pos: models.Position{X: 1, Y: 2}, vtype: "car"}

	stepN(t, sm, 1)
	delete(engine.vehicles, "veh_1")
	stepN(t, sm, 3)

	rec, ok := sm.Vehicles["veh_1"]
	require.True(t, ok, "records are never deleted")
	assert.Len(t, rec.Speeds, 1, "absence means no update")
}

func TestEmergencyVehicleCountedOnce(t *testing.T) {
	sm, engine := newTestManager(t, nil)
	engine.vehicles["amb_1"] = &fakeVehicle{speed: 12, pos: models.Position{X: 1, Y: 2}, vtype: "v2x_emergency"}
	engine.vehicles["veh_1"] = &fakeVehicle{speed: 8, pos: models.Position{X: 100, Y: 2}, vtype: "car"}

	stepN(t, sm, 5)

	assert.Equal(t, 1, sm.Stats.EmergencyVehicles)
}

func TestTypeQueryFailureFallsBack(t *testing.T) {
	sm, engine := newTestManager(t, nil)
	engine.vehicles["veh_1"] = &fakeVehicle{
		speed:   8,
		pos:     models.Position{X: 1, Y: 2},
		vtype:   "truck",
		typeErr: errors.New("query failed"),
	}

	stepN(t, sm, 1)

	assert.Equal(t, "other", sm.Vehicles["veh_1"].Type)
}
