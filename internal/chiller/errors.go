package chiller

import "errors"

var (
	ErrInvalidSetpoint = errors.New("invalid temperature setpoint")
	ErrInvalidState    = errors.New("invalid lifecycle state")
)
