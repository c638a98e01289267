package chiller

import (
	"math"
	"sync"
)

// Snapshot is the externally visible device state: the last readings the
// poller published plus the derived lifecycle phase.
type Snapshot struct {
	BathTemp   float64
	Pressure   float64
	Setpoint   float64
	StatusText string
	On         bool
	State      State
}

// SetpointRequest is a single-slot pending write. A new request overwrites
// the previous one; there is no queue.
type SetpointRequest struct {
	Value   float64
	Pending bool
}

// PowerRequest is the single-slot pending on/off intent.
type PowerRequest struct {
	On      bool
	Pending bool
}

// Chiller holds the shared device state. Readings and lifecycle transitions
// are published only by the poller; collaborators submit pending requests
// and read the snapshot, never touching the serial channel.
type Chiller struct {
	mu   sync.RWMutex
	s    Snapshot
	setp SetpointRequest
	pwr  PowerRequest
}

func New(setpoint float64) *Chiller {
	return &Chiller{
		s: Snapshot{Setpoint: setpoint, State: StateInit},
	}
}

func (c *Chiller) Get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s
}

// SetSetpoint submits a pending setpoint write. The reported setpoint is
// updated optimistically; the device write happens on the next poll cycle.
func (c *Chiller) SetSetpoint(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrInvalidSetpoint
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Setpoint = v
	c.setp = SetpointRequest{Value: v, Pending: true}
	return nil
}

// SetPower submits a pending on/off intent. The reported on flag is updated
// optimistically; START/STOP is issued on the next poll cycle.
func (c *Chiller) SetPower(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.On = on
	c.pwr = PowerRequest{On: on, Pending: true}
}

// Reset leaves the sticky FAULT state. No-op in any other state.
func (c *Chiller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.s.State == StateFault {
		c.s.State = StateOn
	}
}

// ---- poller side ----

func (c *Chiller) PendingSetpoint() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.setp.Value, c.setp.Pending
}

// ClearSetpointRequest marks the request applied. If a collaborator submitted
// a different value while the write was in flight, the newer request stays
// pending for the next cycle.
func (c *Chiller) ClearSetpointRequest(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setp.Pending && c.setp.Value == v {
		c.setp.Pending = false
	}
}

func (c *Chiller) PendingPower() (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pwr.On, c.pwr.Pending
}

func (c *Chiller) ClearPowerRequest(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pwr.Pending && c.pwr.On == on {
		c.pwr.Pending = false
	}
}

func (c *Chiller) ObserveBathTemp(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.BathTemp = v
}

func (c *Chiller) ObservePressure(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Pressure = v
}

// ObserveSetpoint publishes the setpoint read back from the device. Pending
// requests were flushed earlier in the same cycle, so the read normally
// already reflects them; last write wins either way.
func (c *Chiller) ObserveSetpoint(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Setpoint = v
}

func (c *Chiller) ObserveStatusText(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.StatusText = s
}

// ObserveRunning publishes the IN_MODE_02 result. RUNNING is only derived
// while not faulted; leaving RUNNING falls back to ON so the state cannot
// stick on a stopped device.
func (c *Chiller) ObserveRunning(running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.On = running
	if c.s.State == StateFault {
		return
	}
	if running {
		c.s.State = StateRunning
	} else if c.s.State == StateRunning {
		c.s.State = StateOn
	}
}

// SetState moves the lifecycle state. FAULT is sticky; use Fault to enter it
// and Reset to leave it.
func (c *Chiller) SetState(st State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.s.State == StateFault {
		return
	}
	c.s.State = st
}

// Fault enters the sticky FAULT state.
func (c *Chiller) Fault() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.State = StateFault
}
