package models

import "math"

// SafetyStatus tracks the escalation level of a vehicle. Transitions only
// advance (Normal -> Warning -> Emergency) except through the explicit
// decay policy in the manager package.
type SafetyStatus int

const (
	StatusNormal SafetyStatus = iota
	StatusWarning
	StatusEmergency
)

func (s SafetyStatus) String() string {
	switch s {
	case StatusWarning:
		return "warning"
	case StatusEmergency:
		return "emergency"
	default:
		return "normal"
	}
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Position) DistanceTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// SpeedSample is one timestamped speed observation.
type SpeedSample struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// PositionSample is one timestamped position observation.
type PositionSample struct {
	Time float64  `json:"time"`
	Pos  Position `json:"pos"`
}

// VehicleRecord is the per-vehicle arena entry. Created on first sighting
// and retained for the whole run; absence from a later snapshot means no
// update, not deletion. Each series carries its own timestamps, so a
// failed query for one datum never desynchronizes the other.
type VehicleRecord struct {
	ID               string           `json:"id"`
	Type             string           `json:"type"`
	Positions        []PositionSample `json:"-"`
	Speeds           []SpeedSample    `json:"-"`
	LastSpeed        float64          `json:"last_speed"`
	TotalStopped     float64          `json:"total_stopped"`
	Status           SafetyStatus     `json:"status"`
	LastIntervention float64          `json:"-"`
	LastNearMiss     float64          `json:"-"`
}

// LastPosition returns the most recent known position, false when the
// vehicle has never reported one.
func (v *VehicleRecord) LastPosition() (Position, bool) {
	if len(v.Positions) == 0 {
		return Position{}, false
	}
	return v.Positions[len(v.Positions)-1].Pos, true
}

// RSUNode is a fixed roadside unit with a circular coverage range.
// Immutable for the run.
type RSUNode struct {
	ID    string   `json:"id"`
	Pos   Position `json:"pos"`
	Range float64  `json:"range"`
}

// Covers reports whether a position lies within the node's range,
// boundary inclusive.
func (r RSUNode) Covers(p Position) bool {
	return r.Pos.DistanceTo(p) <= r.Range
}

type EventKind string

const (
	EventNearMiss     EventKind = "near_miss"
	EventIntervention EventKind = "intervention"
)

// SafetyEvent is one entry in the append-only hazard log.
type SafetyEvent struct {
	VehicleA string    `json:"vehicle_a"`
	VehicleB string    `json:"vehicle_b"`
	Distance float64   `json:"distance"`
	Kind     EventKind `json:"kind"`
	Time     float64   `json:"time"`
}

// RunStatistics aggregates counters and rolling series for a single run.
// All counters are monotonically non-decreasing.
type RunStatistics struct {
	NearMisses         int     `json:"near_misses"`
	AccidentsPrevented int     `json:"accidents_prevented"`
	Interventions      int     `json:"interventions"`
	Warnings           int     `json:"warnings"`
	RSUMessages        int     `json:"rsu_messages"`
	V2VMessages        int     `json:"v2v_messages"`
	SignalBroadcasts   int     `json:"signal_broadcasts"`
	EmergencyVehicles  int     `json:"emergency_vehicles"`
	TotalStopTime      float64 `json:"total_stop_time"`

	AvgSpeeds     []float64 `json:"-"`
	VehicleCounts []int     `json:"-"`

	SafetyEvents []SafetyEvent `json:"-"`

	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}
