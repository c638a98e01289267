// Package poller runs the serial communication loop: one goroutine owns the
// transport and repeats a fixed flush-then-read cycle against the device.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Agrid-Dev/chillerctl/internal/chiller"
	"github.com/Agrid-Dev/chillerctl/internal/protocol"
	"github.com/Agrid-Dev/chillerctl/internal/transport"
)

type Config struct {
	// Interval is the pause between cycles.
	Interval time.Duration
	// SettleDelay is the extra wait after a START/STOP exchange before the
	// device answers reads sensibly again.
	SettleDelay time.Duration
}

type Poller struct {
	conn transport.Conn
	dev  *chiller.Chiller
	cfg  Config
	log  zerolog.Logger

	// mu serializes exchanges per cycle segment. The loop goroutine is the
	// only steady-state caller; the lock keeps Probe and any future caller
	// from interleaving with a segment on the half-duplex link.
	mu sync.Mutex

	onPowerChange func(on bool)
}

func New(conn transport.Conn, dev *chiller.Chiller, cfg Config, log zerolog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Poller{conn: conn, dev: dev, cfg: cfg, log: log}
}

// OnPowerChange registers an edge-triggered callback invoked after a pending
// power request has been applied to the device. Must be set before Run.
func (p *Poller) OnPowerChange(fn func(on bool)) {
	p.onPowerChange = fn
}

// Probe issues the initial STATUS exchange and seeds the lifecycle state.
// A transport or decode failure is fatal to activation: the device is marked
// FAULT and the caller must not start the loop. A reported alarm also marks
// FAULT but is not an error; polling may begin to observe recovery.
func (p *Poller) Probe() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	line, err := p.conn.Exchange(protocol.CmdStatus)
	if err != nil {
		p.dev.Fault()
		return err
	}
	st, err := protocol.ParseStatus(line)
	if err != nil {
		p.dev.Fault()
		return err
	}
	if st == protocol.StatusAlarm {
		p.log.Error().Msg("chiller is in alarm state")
		p.dev.Fault()
		return nil
	}
	p.dev.SetState(chiller.StateOn)
	return nil
}

// Run executes cycles until ctx is canceled. Cycle failures are logged and
// retried on the next tick; they never end the loop.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		p.Cycle(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle performs one full flush-then-read pass. Writes flush first so a
// just-submitted setpoint or power change is visible in the same cycle's
// reads.
func (p *Poller) Cycle(ctx context.Context) {
	if err := p.flushWrites(ctx); err != nil {
		p.log.Warn().Err(err).Msg("write flush failed, cycle abandoned")
		return
	}
	if err := p.readCycle(); err != nil {
		p.log.Warn().Err(err).Msg("read cycle failed, cycle abandoned")
		return
	}
	p.readMode()
}

func (p *Poller) flushWrites(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if on, pending := p.dev.PendingPower(); pending {
		cmd := protocol.PowerCommand(on)
		line, err := p.conn.Exchange(cmd)
		if err != nil {
			return err
		}
		p.log.Info().Str("cmd", cmd).Str("response", line).Msg("power toggled")

		// Give the device time to settle before the next exchange.
		if p.cfg.SettleDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.SettleDelay):
			}
		}

		if on {
			p.dev.SetState(chiller.StateRunning)
		} else {
			p.dev.SetState(chiller.StateOn)
		}
		p.dev.ClearPowerRequest(on)
		if p.onPowerChange != nil {
			p.onPowerChange(on)
		}
	}

	if v, pending := p.dev.PendingSetpoint(); pending {
		cmd := protocol.SetpointCommand(v)
		line, err := p.conn.Exchange(cmd)
		if err != nil {
			return err
		}
		p.dev.ClearSetpointRequest(v)
		p.log.Info().Float64("setpoint", v).Str("response", line).Msg("setpoint written")
	}
	return nil
}

func (p *Poller) readCycle() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.readFloat(protocol.CmdBathTemp, p.dev.ObserveBathTemp); err != nil {
		return err
	}
	if err := p.readFloat(protocol.CmdPressure, p.dev.ObservePressure); err != nil {
		return err
	}
	if err := p.readFloat(protocol.CmdSetpoint, p.dev.ObserveSetpoint); err != nil {
		return err
	}

	line, err := p.conn.Exchange(protocol.CmdStatus)
	if err != nil {
		return err
	}
	st, err := protocol.ParseStatus(line)
	if err != nil {
		p.log.Warn().Err(err).Str("cmd", protocol.CmdStatus).Msg("dropping reading")
	} else if st == protocol.StatusAlarm {
		p.log.Error().Msg("chiller is in alarm state")
		p.dev.Fault()
	}

	line, err = p.conn.Exchange(protocol.CmdStatusText)
	if err != nil {
		return err
	}
	p.dev.ObserveStatusText(line)
	return nil
}

// readFloat publishes one numeric reading. Decode failures keep the previous
// value; only transport failures abandon the cycle.
func (p *Poller) readFloat(cmd string, publish func(float64)) error {
	line, err := p.conn.Exchange(cmd)
	if err != nil {
		return err
	}
	v, err := protocol.ParseFloat(line)
	if err != nil {
		p.log.Warn().Err(err).Str("cmd", cmd).Msg("dropping reading")
		return nil
	}
	publish(v)
	return nil
}

func (p *Poller) readMode() {
	p.mu.Lock()
	defer p.mu.Unlock()

	line, err := p.conn.Exchange(protocol.CmdMode)
	if err != nil {
		p.log.Warn().Err(err).Str("cmd", protocol.CmdMode).Msg("mode read failed")
		return
	}
	m, err := protocol.ParseMode(line)
	if err != nil {
		p.log.Warn().Err(err).Str("cmd", protocol.CmdMode).Msg("dropping reading")
		return
	}
	switch m {
	case protocol.ModeRunning:
		p.dev.ObserveRunning(true)
	case protocol.ModeStopped:
		p.dev.ObserveRunning(false)
	}
	// other codes are unspecified and ignored
}
