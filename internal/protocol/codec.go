// Package protocol encodes the LAUDA T2200 command vocabulary and decodes
// its one-line textual responses into typed values.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Command vocabulary. One command, one response line, no batching.
const (
	CmdStatus     = "STATUS"     // alarm/ok code
	CmdStatusText = "STAT"       // human-readable status, stored verbatim
	CmdBathTemp   = "IN_PV_00"   // bath temperature, degC
	CmdPressure   = "IN_PV_02"   // pressure, bar
	CmdSetpoint   = "IN_SP_00"   // active setpoint, degC
	CmdMode       = "IN_MODE_02" // run mode
	CmdStart      = "START"
	CmdStop       = "STOP"
)

// ErrDecode marks responses that could not be parsed as the expected type.
// Callers keep the previous reading rather than publishing garbage.
var ErrDecode = errors.New("undecodable response")

// Status is the device alarm code. Codes other than ok/alarm are unspecified
// by the manual and ignored upstream.
type Status int

const (
	StatusOK    Status = 0
	StatusAlarm Status = -1
)

// RunMode is the IN_MODE_02 result.
type RunMode int

const (
	ModeRunning RunMode = 0
	ModeStopped RunMode = 1
)

// SetpointCommand encodes a setpoint write. The instrument accepts two
// decimals; a fixed width keeps its parser happy.
func SetpointCommand(v float64) string {
	return "OUT_SP_00_" + strconv.FormatFloat(v, 'f', 2, 64)
}

// PowerCommand encodes the on/off toggle. Not idempotent on the device side.
func PowerCommand(on bool) string {
	if on {
		return CmdStart
	}
	return CmdStop
}

func ParseFloat(resp string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a float", ErrDecode, resp)
	}
	return v, nil
}

// ParseStatus accepts integer or float-formatted codes; the device has been
// seen answering both.
func ParseStatus(resp string) (Status, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a status code", ErrDecode, resp)
	}
	return Status(int(v)), nil
}

func ParseMode(resp string) (RunMode, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a run mode", ErrDecode, resp)
	}
	return RunMode(int(v)), nil
}
