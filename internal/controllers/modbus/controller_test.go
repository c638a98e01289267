package modbusctrl

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/goburrow/modbus"

	"github.com/Agrid-Dev/chillerctl/internal/chiller"
)

// fake service for tests
type spyChillerService struct {
	mu sync.Mutex
	s  chiller.Snapshot

	// record calls
	setSetpointCalls []float64
	setPowerCalls    []bool
	resetCalls       int
}

func (f *spyChillerService) Get() chiller.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}
func (f *spyChillerService) SetSetpoint(v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.Setpoint = v
	f.setSetpointCalls = append(f.setSetpointCalls, v)
	return nil
}
func (f *spyChillerService) SetPower(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.On = on
	f.setPowerCalls = append(f.setPowerCalls, on)
}
func (f *spyChillerService) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++
}

func findFreeTCPAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	a := l.Addr().String()
	_ = l.Close()
	return a
}

const settle = 50 * time.Millisecond

func TestModbusControllerHandlers(t *testing.T) {
	fs := &spyChillerService{}
	fs.s = chiller.Snapshot{
		BathTemp:   23.55,
		Pressure:   1.25,
		Setpoint:   21.0,
		StatusText: "OK",
		On:         true,
		State:      chiller.StateRunning,
	}

	addr := findFreeTCPAddr(t)

	ctrl, err := New(fs, Config{
		DeviceID: "dev",
		Addr:     addr,
		UnitID:   1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := t.Context()
	go func() {
		_ = ctrl.Run(ctx)
	}()

	time.Sleep(settle)

	handler := modbus.NewTCPClientHandler(addr)
	if err := handler.Connect(); err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer handler.Close()
	client := modbus.NewClient(handler)

	// Read holding register 0 (setpoint)
	res, err := client.ReadHoldingRegisters(0, 1)
	if err != nil {
		t.Fatalf("read holding: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 bytes got %d", len(res))
	}
	if binary.BigEndian.Uint16(res) != encodeReading(21.0) {
		t.Fatalf("setpoint mismatch")
	}

	// Read input registers 0..2 (bath temp, pressure, state)
	res, err = client.ReadInputRegisters(0, 3)
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	if len(res) != 6 {
		t.Fatalf("expected 6 bytes got %d", len(res))
	}
	get := func(i int) uint16 { return binary.BigEndian.Uint16(res[i*2 : i*2+2]) }
	if get(0) != encodeReading(23.55) {
		t.Fatalf("bath temp mismatch")
	}
	if get(1) != encodeReading(1.25) {
		t.Fatalf("pressure mismatch")
	}
	if get(2) != uint16(chiller.StateRunning) {
		t.Fatalf("state mismatch")
	}

	// Read coil 0 (is_on)
	coils, err := client.ReadCoils(0, 1)
	if err != nil {
		t.Fatalf("read coils: %v", err)
	}
	if len(coils) != 1 || coils[0]&0x01 != 0x01 {
		t.Fatalf("expected coil set, got %v", coils)
	}

	// Write setpoint register
	newSP := encodeReading(18.25)
	if _, err := client.WriteSingleRegister(0, newSP); err != nil {
		t.Fatalf("write register: %v", err)
	}
	time.Sleep(settle)
	fs.mu.Lock()
	if len(fs.setSetpointCalls) == 0 || fs.setSetpointCalls[len(fs.setSetpointCalls)-1] != decodeReading(newSP) {
		fs.mu.Unlock()
		t.Fatalf("SetSetpoint not called")
	}
	fs.mu.Unlock()

	// Write coil 0 off
	if _, err := client.WriteSingleCoil(0, 0x0000); err != nil {
		t.Fatalf("write coil: %v", err)
	}
	time.Sleep(settle)
	fs.mu.Lock()
	if len(fs.setPowerCalls) == 0 || fs.setPowerCalls[len(fs.setPowerCalls)-1] != false {
		fs.mu.Unlock()
		t.Fatalf("SetPower not called")
	}
	fs.mu.Unlock()
}

func TestNewValidation(t *testing.T) {
	if _, err := New(&spyChillerService{}, Config{Addr: "127.0.0.1:0"}); err == nil {
		t.Fatal("expected error when UnitID is zero")
	}
}

func TestEncodeDecodeReading(t *testing.T) {
	cases := []float64{0, 21.0, -10.25, 23.55, 327.67, -327.68}
	for _, v := range cases {
		if got := decodeReading(encodeReading(v)); got != v {
			t.Fatalf("roundtrip %v: got %v", v, got)
		}
	}

	// values beyond int16 range clamp instead of wrapping
	if encodeReading(1e6) != encodeReading(327.67) {
		t.Fatal("expected clamp at int16 max")
	}
	if encodeReading(-1e6) != encodeReading(-327.68) {
		t.Fatal("expected clamp at int16 min")
	}
}
