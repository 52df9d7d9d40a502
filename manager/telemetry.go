package manager

import (
	"math"
	"sort"
	"strings"

	"github.com/shaneVR097/v2x-collision-warning-simulation/models"
)

// collectTelemetry updates or creates one record per vehicle present this
// step. A failed query skips that datum only; vehicles absent from the
// snapshot keep their records untouched. Returns the number of failed
// engine queries.
func (sm *SafetyManager) collectTelemetry() int {
	ids := sm.engine.VehicleIDs()
	sort.Strings(ids)

	sm.presentIDs = ids
	sm.presentCount = len(ids)
	sm.current = sm.current[:0]
	failures := 0

	for _, id := range ids {
		rec, exists := sm.Vehicles[id]
		if !exists {
			vtype, err := sm.engine.VehicleType(id)
			if err != nil {
				vtype = "other"
				failures++
			}

			rec = &models.VehicleRecord{
				ID:               id,
				Type:             vtype,
				Status:           models.StatusNormal,
				LastIntervention: math.Inf(-1),
				LastNearMiss:     math.Inf(-1),
			}
			sm.Vehicles[id] = rec

			if strings.Contains(vtype, "emergency") {
				sm.Stats.EmergencyVehicles++
			}
		}

		speed, speedErr := sm.engine.Speed(id)
		pos, posErr := sm.engine.Position(id)

		if speedErr == nil {
			if speed < sm.cfg.StopEpsilon && rec.LastSpeed >= sm.cfg.StopEpsilon {
				rec.TotalStopped += sm.cfg.StepLength
				sm.Stats.TotalStopTime += sm.cfg.StepLength
			}
			rec.Speeds = append(rec.Speeds, models.SpeedSample{Time: sm.simTime, Value: speed})
			rec.LastSpeed = speed
		} else {
			failures++
		}

		// A valid position is enough to join the hazard scan; the speed
		// falls back to the last observed sample.
		if posErr == nil {
			rec.Positions = append(rec.Positions, models.PositionSample{Time: sm.simTime, Pos: pos})
			sm.current = append(sm.current, stepVehicle{
				id:       id,
				pos:      pos,
				speed:    rec.LastSpeed,
				hasSpeed: len(rec.Speeds) > 0,
			})
		} else {
			failures++
		}
	}

	return failures
}
