package protocol

import (
	"errors"
	"testing"
)

func TestParseFloat_Valid(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"23.5", 23.5},
		{"-10.25", -10.25},
		{"0", 0},
		{" 21.00 ", 21.0},
		{"21.00\r", 21.0},
		{"1e2", 100},
	}

	for _, tc := range cases {
		got, err := ParseFloat(tc.in)
		if err != nil {
			t.Fatalf("ParseFloat(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseFloat(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseFloat_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "21,5", "OK", "--1"} {
		_, err := ParseFloat(in)
		if !errors.Is(err, ErrDecode) {
			t.Fatalf("ParseFloat(%q): expected ErrDecode, got %v", in, err)
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Status
	}{
		{"0", StatusOK},
		{"-1", StatusAlarm},
		// the device has been seen answering float-formatted codes
		{"0.0", StatusOK},
		{"-1.0", StatusAlarm},
		{"3", Status(3)},
	}

	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseStatus(%q)=%v want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseStatus("ALARM"); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want RunMode
	}{
		{"0", ModeRunning},
		{"1", ModeStopped},
		{"0.0", ModeRunning},
		{"2", RunMode(2)},
	}

	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMode(%q)=%v want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseMode("on"); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestSetpointCommand(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{21.0, "OUT_SP_00_21.00"},
		{23.5, "OUT_SP_00_23.50"},
		{-5.125, "OUT_SP_00_-5.13"},
		{0, "OUT_SP_00_0.00"},
	}

	for _, tc := range cases {
		if got := SetpointCommand(tc.in); got != tc.want {
			t.Fatalf("SetpointCommand(%v)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestPowerCommand(t *testing.T) {
	if got := PowerCommand(true); got != CmdStart {
		t.Fatalf("PowerCommand(true)=%q", got)
	}
	if got := PowerCommand(false); got != CmdStop {
		t.Fatalf("PowerCommand(false)=%q", got)
	}
}
