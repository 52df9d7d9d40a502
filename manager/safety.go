package manager

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/shaneVR097/v2x-collision-warning-simulation/models"
)

// monitorSafety runs the all-pairs hazard scan over this step's vehicles
// and issues interventions on critical breaches. Pair counts are small, so
// the quadratic scan is fine.
func (sm *SafetyManager) monitorSafety() int {
	sm.decayStatuses()

	failures := 0
	for i := 0; i < len(sm.current); i++ {
		for j := i + 1; j < len(sm.current); j++ {
			a, b := sm.current[i], sm.current[j]

			distance := a.pos.DistanceTo(b.pos)
			if distance >= sm.cfg.NearThreshold {
				continue
			}

			onCourse, f := sm.onCollisionCourse(a.id, b.id)
			failures += f
			if !onCourse {
				continue
			}

			sm.recordNearMiss(a, b, distance)

			if distance < sm.cfg.CriticalThreshold {
				sm.maybeIntervene(a, b, distance)
			}
		}
	}

	return failures
}

// decayStatuses reverts a vehicle to normal after StatusDecay simulated
// seconds without any hazard involving it. This is the only path a status
// may regress on.
func (sm *SafetyManager) decayStatuses() {
	if sm.cfg.StatusDecay <= 0 {
		return
	}

	for _, rec := range sm.Vehicles {
		if rec.Status == models.StatusNormal {
			continue
		}
		if sm.simTime-rec.LastNearMiss > sm.cfg.StatusDecay &&
			sm.simTime-rec.LastIntervention > sm.cfg.StatusDecay {
			rec.Status = models.StatusNormal
		}
	}
}

// onCollisionCourse compares headings; a difference under 90 degrees after
// normalization into [0,180] counts as converging. An unreadable heading
// counts as converging.
func (sm *SafetyManager) onCollisionCourse(idA, idB string) (bool, int) {
	headingA, errA := sm.engine.Heading(idA)
	headingB, errB := sm.engine.Heading(idB)
	if errA != nil || errB != nil {
		failures := 0
		if errA != nil {
			failures++
		}
		if errB != nil {
			failures++
		}
		return true, failures
	}

	diff := math.Mod(math.Abs(headingA-headingB), 360)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff < 90, 0
}

func (sm *SafetyManager) recordNearMiss(a, b stepVehicle, distance float64) {
	sm.Stats.NearMisses++
	sm.Stats.SafetyEvents = append(sm.Stats.SafetyEvents, models.SafetyEvent{
		VehicleA: a.id,
		VehicleB: b.id,
		Distance: distance,
		Kind:     models.EventNearMiss,
		Time:     sm.simTime,
	})

	for _, id := range []string{a.id, b.id} {
		rec := sm.Vehicles[id]
		rec.LastNearMiss = sm.simTime
		if rec.Status == models.StatusNormal {
			rec.Status = models.StatusWarning
		}
	}
}

// maybeIntervene slows the faster vehicle of a critical pair unless either
// vehicle is still inside the cooldown window. A pair where neither vehicle
// ever reported a speed cannot be ranked or actuated and is left alone.
func (sm *SafetyManager) maybeIntervene(a, b stepVehicle, distance float64) {
	recA := sm.Vehicles[a.id]
	recB := sm.Vehicles[b.id]

	if sm.simTime-recA.LastIntervention <= sm.cfg.Cooldown ||
		sm.simTime-recB.LastIntervention <= sm.cfg.Cooldown {
		return
	}

	target := b
	if !b.hasSpeed || (a.hasSpeed && a.speed > b.speed) {
		target = a
	}
	if !target.hasSpeed {
		return
	}
	reduced := math.Max(target.speed*sm.cfg.SpeedReduction, sm.cfg.FloorSpeed)

	if err := sm.engine.SlowDown(target.id, reduced, sm.cfg.RampSeconds); err != nil {
		log.WithError(err).Warnf("slow-down actuation failed for %s", target.id)
	}

	sm.Vehicles[target.id].Status = models.StatusEmergency
	recA.LastIntervention = sm.simTime
	recB.LastIntervention = sm.simTime

	sm.Stats.Interventions++
	sm.Stats.AccidentsPrevented++
	sm.Stats.Warnings++ // an intervention always also broadcasts a warning
	sm.Stats.SafetyEvents = append(sm.Stats.SafetyEvents, models.SafetyEvent{
		VehicleA: a.id,
		VehicleB: b.id,
		Distance: distance,
		Kind:     models.EventIntervention,
		Time:     sm.simTime,
	})

	log.Infof("safety intervention: %s and %s at %.1fm, slowing %s to %.1f",
		a.id, b.id, distance, target.id, reduced)
}
