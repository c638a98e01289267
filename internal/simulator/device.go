// Package simulator provides an in-memory LAUDA T2200 that speaks the line
// protocol. It backs the --simulate run mode, the poller tests and the CSV
// trace script.
package simulator

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Agrid-Dev/chillerctl/internal/protocol"
)

// Params tune the simulated thermals.
type Params struct {
	Ambient     float64 // temperature the bath drifts to while stopped
	Coefficient float64 // approach rate per second, >= 0
}

// Device implements transport.Conn. All exchanges are recorded so tests can
// assert on command ordering.
type Device struct {
	mu sync.Mutex

	BathTemp   float64
	Pressure   float64
	Setpoint   float64
	StatusText string
	Alarm      bool
	Running    bool

	params    Params
	exchanges []string
}

func New() *Device {
	return &Device{
		BathTemp:   20.0,
		Pressure:   1.0,
		Setpoint:   21.0,
		StatusText: "OK",
		params:     Params{Ambient: 20.0, Coefficient: 0.05},
	}
}

func NewWithParams(p Params) *Device {
	d := New()
	d.params = p
	return d
}

func (d *Device) Exchange(cmd string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exchanges = append(d.exchanges, cmd)

	switch {
	case cmd == protocol.CmdStatus:
		if d.Alarm {
			return "-1", nil
		}
		return "0", nil
	case cmd == protocol.CmdStatusText:
		return d.StatusText, nil
	case cmd == protocol.CmdBathTemp:
		return formatReading(d.BathTemp), nil
	case cmd == protocol.CmdPressure:
		return formatReading(d.Pressure), nil
	case cmd == protocol.CmdSetpoint:
		return formatReading(d.Setpoint), nil
	case cmd == protocol.CmdMode:
		if d.Running {
			return "0", nil
		}
		return "1", nil
	case cmd == protocol.CmdStart:
		d.Running = true
		return cmd, nil
	case cmd == protocol.CmdStop:
		d.Running = false
		return cmd, nil
	case strings.HasPrefix(cmd, "OUT_SP_00_"):
		v, err := strconv.ParseFloat(strings.TrimPrefix(cmd, "OUT_SP_00_"), 64)
		if err != nil {
			return fmt.Sprintf("ERR %s", cmd), nil
		}
		d.Setpoint = v
		return cmd, nil
	}
	return fmt.Sprintf("ERR %s", cmd), nil
}

func (d *Device) Close() error { return nil }

// Step advances the thermal model: the bath drifts toward the setpoint while
// running and back toward ambient while stopped.
func (d *Device) Step(dt time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	target := d.params.Ambient
	if d.Running {
		target = d.Setpoint
	}
	d.BathTemp += d.params.Coefficient * (target - d.BathTemp) * dt.Seconds()
}

// Exchanges returns the commands received so far, in order.
func (d *Device) Exchanges() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.exchanges))
	copy(out, d.exchanges)
	return out
}

// SetAlarm flips the alarm flag reported by STATUS.
func (d *Device) SetAlarm(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Alarm = on
	if on {
		d.StatusText = "ALARM"
	} else {
		d.StatusText = "OK"
	}
}

func formatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
