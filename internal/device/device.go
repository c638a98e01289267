package device

import "github.com/Agrid-Dev/chillerctl/internal/chiller"

type Device struct {
	ID string
	C  *chiller.Chiller
}

func New(id string, c *chiller.Chiller) *Device {
	return &Device{ID: id, C: c}
}
