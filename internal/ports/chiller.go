package ports

import "github.com/Agrid-Dev/chillerctl/internal/chiller"

// ChillerService is the control-plane port used by controllers (HTTP/MQTT/etc).
// Writes are asynchronous: they submit pending requests applied by the poller.
type ChillerService interface {
	Get() chiller.Snapshot
	SetSetpoint(float64) error
	SetPower(bool)
	Reset()
}
