package network

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/shaneVR097/v2x-collision-warning-simulation/models"
)

// VehicleState is one vehicle's kinematics in a telemetry frame. Fields the
// relay could not query arrive as null and surface as per-datum errors.
type VehicleState struct {
	Speed   *float64 `json:"speed"`
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Heading *float64 `json:"heading"`
	Type    string   `json:"type"`
}

// Frame is one step's worth of telemetry from the simulation relay.
type Frame struct {
	Time          float64                 `json:"time"`
	Vehicles      map[string]VehicleState `json:"vehicles"`
	TrafficLights []string                `json:"traffic_lights"`
}

// SpeedCommand asks the engine to ramp a vehicle down to a target speed.
type SpeedCommand struct {
	VehicleID string  `json:"id"`
	Target    float64 `json:"target"`
	Ramp      float64 `json:"ramp"`
}

func ReceiveFrame(conn net.Conn) (*Frame, error) {
	lenBuf := make([]byte, 4)
	if err := readFull(conn, lenBuf); err != nil {
		return nil, fmt.Errorf("failed to read frame length: %w", err)
	}

	msgLen := (int(lenBuf[0]) << 24) | (int(lenBuf[1]) << 16) | (int(lenBuf[2]) << 8) | int(lenBuf[3])

	buf := make([]byte, msgLen)
	if err := readFull(conn, buf); err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	var frame Frame
	if err := json.Unmarshal(buf, &frame); err != nil {
		return nil, fmt.Errorf("failed to parse frame JSON: %w", err)
	}

	return &frame, nil
}

func SendCommands(conn net.Conn, commands []SpeedCommand) error {
	if commands == nil {
		commands = []SpeedCommand{}
	}
	data, err := json.Marshal(map[string]interface{}{"commands": commands})
	if err != nil {
		return fmt.Errorf("failed to marshal commands: %w", err)
	}

	msgLen := len(data)
	lenBuf := []byte{
		byte(msgLen >> 24),
		byte(msgLen >> 16),
		byte(msgLen >> 8),
		byte(msgLen),
	}

	if _, err = conn.Write(lenBuf); err != nil {
		return fmt.Errorf("failed to send frame length: %w", err)
	}

	if _, err = conn.Write(data); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}

	return nil
}

func readFull(conn net.Conn, buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := conn.Read(buf[read:])
		if err != nil {
			return err
		}
		read += n
	}
	return nil
}

// Client drives the simulation relay one step at a time. AdvanceStep
// flushes queued speed commands and blocks for the next telemetry frame;
// the per-id queries read from that frame. A missing id or field is a
// per-datum error, never fatal; only a frame exchange failure is.
type Client struct {
	conn    net.Conn
	frame   *Frame
	pending []SpeedCommand
}

func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, frame: &Frame{Vehicles: map[string]VehicleState{}}}
}

func (c *Client) AdvanceStep() error {
	if err := SendCommands(c.conn, c.pending); err != nil {
		return err
	}
	c.pending = c.pending[:0]

	frame, err := ReceiveFrame(c.conn)
	if err != nil {
		return err
	}
	if frame.Vehicles == nil {
		frame.Vehicles = map[string]VehicleState{}
	}
	c.frame = frame
	return nil
}

func (c *Client) SimTime() float64 {
	return c.frame.Time
}

func (c *Client) VehicleIDs() []string {
	ids := make([]string, 0, len(c.frame.Vehicles))
	for id := range c.frame.Vehicles {
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) Speed(id string) (float64, error) {
	state, ok := c.frame.Vehicles[id]
	if !ok || state.Speed == nil {
		return 0, fmt.Errorf("no speed for vehicle %s in current frame", id)
	}
	return *state.Speed, nil
}

func (c *Client) Position(id string) (models.Position, error) {
	state, ok := c.frame.Vehicles[id]
	if !ok || state.X == nil || state.Y == nil {
		return models.Position{}, fmt.Errorf("no position for vehicle %s in current frame", id)
	}
	return models.Position{X: *state.X, Y: *state.Y}, nil
}

func (c *Client) Heading(id string) (float64, error) {
	state, ok := c.frame.Vehicles[id]
	if !ok || state.Heading == nil {
		return 0, fmt.Errorf("no heading for vehicle %s in current frame", id)
	}
	return *state.Heading, nil
}

func (c *Client) VehicleType(id string) (string, error) {
	state, ok := c.frame.Vehicles[id]
	if !ok || state.Type == "" {
		return "", fmt.Errorf("no type for vehicle %s in current frame", id)
	}
	return state.Type, nil
}

func (c *Client) TrafficControlIDs() ([]string, error) {
	if c.frame.TrafficLights == nil {
		return nil, fmt.Errorf("no traffic light data in current frame")
	}
	return c.frame.TrafficLights, nil
}

func (c *Client) SlowDown(id string, target, ramp float64) error {
	c.pending = append(c.pending, SpeedCommand{VehicleID: id, Target: target, Ramp: ramp})
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
