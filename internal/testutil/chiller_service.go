package testutil

import "github.com/Agrid-Dev/chillerctl/internal/chiller"

// FakeChillerService is a reusable fake implementing ports.ChillerService.
// Put ONLY what multiple test packages need here.
type FakeChillerService struct {
	S chiller.Snapshot

	SetSetpointCalled bool
	SetSetpointArg    float64
	SetSetpointErr    error

	SetPowerCalled bool
	SetPowerArg    bool

	ResetCalled bool
}

func NewFakeChillerService() *FakeChillerService {
	return &FakeChillerService{
		S: chiller.Snapshot{
			BathTemp:   20.5,
			Pressure:   1.1,
			Setpoint:   21.0,
			StatusText: "OK",
			On:         true,
			State:      chiller.StateRunning,
		},
	}
}

func (f *FakeChillerService) Get() chiller.Snapshot { return f.S }

func (f *FakeChillerService) SetSetpoint(v float64) error {
	f.SetSetpointCalled = true
	f.SetSetpointArg = v
	if f.SetSetpointErr != nil {
		return f.SetSetpointErr
	}
	f.S.Setpoint = v
	return nil
}

func (f *FakeChillerService) SetPower(on bool) {
	f.SetPowerCalled = true
	f.SetPowerArg = on
	f.S.On = on
}

func (f *FakeChillerService) Reset() {
	f.ResetCalled = true
	if f.S.State == chiller.StateFault {
		f.S.State = chiller.StateOn
	}
}
