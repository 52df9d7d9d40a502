package manager

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shaneVR097/v2x-collision-warning-simulation/models"
)

type fakeVehicle struct {
	speed      float64
	heading    float64
	pos        models.Position
	vtype      string
	speedErr   error
	posErr     error
	headingErr error
	typeErr    error
}

type slowdownCall struct {
	id     string
	target float64
	ramp   float64
}

// fakeEngine serves canned telemetry and records actuations. AdvanceStep
// advances simulated time by one step length.
type fakeEngine struct {
	time       float64
	stepLength float64
	vehicles   map[string]*fakeVehicle
	lights     []string
	lightsErr  error
	advanceErr error
	slowdowns  []slowdownCall
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		stepLength: 0.2,
		vehicles:   make(map[string]*fakeVehicle),
	}
}

func (f *fakeEngine) AdvanceStep() error {
	if f.advanceErr != nil {
		return f.advanceErr
	}
	f.time += f.stepLength
	return nil
}

func (f *fakeEngine) SimTime() float64 { return f.time }

func (f *fakeEngine) VehicleIDs() []string {
	ids := make([]string, 0, len(f.vehicles))
	for id := range f.vehicles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *fakeEngine) Speed(id string) (float64, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return 0, errMissing(id)
	}
	if v.speedErr != nil {
		return 0, v.speedErr
	}
	return v.speed, nil
}

func (f *fakeEngine) Position(id string) (models.Position, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return models.Position{}, errMissing(id)
	}
	if v.posErr != nil {
		return models.Position{}, v.posErr
	}
	return v.pos, nil
}

func (f *fakeEngine) Heading(id string) (float64, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return 0, errMissing(id)
	}
	if v.headingErr != nil {
		return 0, v.headingErr
	}
	return v.heading, nil
}

func (f *fakeEngine) VehicleType(id string) (string, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return "", errMissing(id)
	}
	if v.typeErr != nil {
		return "", v.typeErr
	}
	return v.vtype, nil
}

func (f *fakeEngine) TrafficControlIDs() ([]string, error) {
	if f.lightsErr != nil {
		return nil, f.lightsErr
	}
	return f.lights, nil
}

func (f *fakeEngine) SlowDown(id string, target, ramp float64) error {
	f.slowdowns = append(f.slowdowns, slowdownCall{id: id, target: target, ramp: ramp})
	return nil
}

func (f *fakeEngine) Close() error { return nil }

type missingError string

func (e missingError) Error() string { return "unknown vehicle " + string(e) }

func errMissing(id string) error { return missingError(id) }

func newTestManager(t *testing.T, mutate func(*Config)) (*SafetyManager, *fakeEngine) {
	t.Helper()

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine := newFakeEngine()
	engine.stepLength = cfg.StepLength

	sm, err := NewSafetyManager(cfg, engine)
	require.NoError(t, err)
	return sm, engine
}

func stepN(t *testing.T, sm *SafetyManager, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, sm.Step())
	}
}
