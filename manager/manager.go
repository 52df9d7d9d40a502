package manager

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/shaneVR097/v2x-collision-warning-simulation/models"
)

// Engine is the query and actuation surface of the external simulation. Any
// per-id query may fail for a single datum; only AdvanceStep failures are
// fatal to the run.
type Engine interface {
	AdvanceStep() error
	SimTime() float64
	VehicleIDs() []string
	Speed(id string) (float64, error)
	Position(id string) (models.Position, error)
	Heading(id string) (float64, error)
	VehicleType(id string) (string, error)
	TrafficControlIDs() ([]string, error)
	SlowDown(id string, target, ramp float64) error
	Close() error
}

// stepVehicle is one vehicle's telemetry for the current step, kept for
// every vehicle with a valid position. speed is the latest observed sample;
// hasSpeed is false when none was ever reported.
type stepVehicle struct {
	id       string
	pos      models.Position
	speed    float64
	hasSpeed bool
}

// SafetyManager owns the vehicle record table and run statistics and runs
// the per-step monitoring pipeline: telemetry, hazard scan, interventions,
// communication accounting, metrics. All mutation happens inside Step; the
// mutex only guards snapshot reads from the presentation layer.
type SafetyManager struct {
	mu     sync.Mutex
	cfg    Config
	engine Engine

	RunID    uuid.UUID
	Vehicles map[string]*models.VehicleRecord
	Stats    models.RunStatistics

	step    int
	simTime float64
	started bool

	current      []stepVehicle
	presentIDs   []string
	presentCount int

	rsuSchedule    *broadcastSchedule
	v2vSchedule    *broadcastSchedule
	signalSchedule *broadcastSchedule

	failedSteps int // consecutive steps with at least one failed engine query
}

func NewSafetyManager(cfg Config, engine Engine) (*SafetyManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &SafetyManager{
		cfg:            cfg,
		engine:         engine,
		RunID:          uuid.New(),
		Vehicles:       make(map[string]*models.VehicleRecord),
		rsuSchedule:    newBroadcastSchedule(cfg.RSUPeriod),
		v2vSchedule:    newBroadcastSchedule(cfg.V2VPeriod),
		signalSchedule: newBroadcastSchedule(cfg.SignalPeriod),
	}, nil
}

func (sm *SafetyManager) Config() Config {
	return sm.cfg
}

// Step advances the engine by one simulation step and runs the monitoring
// pipeline against the new telemetry. The only error it returns is a fatal
// engine connection failure; query failures are absorbed per datum.
func (sm *SafetyManager) Step() error {
	if err := sm.engine.AdvanceStep(); err != nil {
		return err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.step++
	sm.simTime = sm.engine.SimTime()
	if !sm.started {
		sm.started = true
		sm.Stats.StartTime = sm.simTime
	}
	sm.Stats.EndTime = sm.simTime

	failures := 0
	failures += sm.collectTelemetry()
	failures += sm.monitorSafety()
	failures += sm.accountCommunication()
	sm.updateMetrics()

	if failures > 0 {
		sm.failedSteps++
		if sm.failedSteps >= sm.cfg.FailureWarnSteps {
			log.Warnf("engine queries failing for %d consecutive steps", sm.failedSteps)
		}
	} else {
		sm.failedSteps = 0
	}

	log.Debugf("step %d: vehicles %d, near misses %d, interventions %d",
		sm.step, sm.presentCount, sm.Stats.NearMisses, sm.Stats.Interventions)

	return nil
}

func (sm *SafetyManager) CurrentSimTime() float64 {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.simTime
}
