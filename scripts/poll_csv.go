package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Agrid-Dev/chillerctl/internal/chiller"
	"github.com/Agrid-Dev/chillerctl/internal/poller"
	"github.com/Agrid-Dev/chillerctl/internal/simulator"
)

type SetpointCommand struct {
	IterationNumber int
	Value           float64
}

func SimulateChiller(iterations int, filename string, setpointCommands []SetpointCommand) error {
	sim := simulator.NewWithParams(simulator.Params{
		Ambient:     20.0,
		Coefficient: 0.01,
	})
	sim.Running = true

	ch := chiller.New(21.0)
	p := poller.New(sim, ch, poller.Config{Interval: time.Millisecond}, zerolog.Nop())

	// Create CSV file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write CSV header
	if err := writer.Write([]string{"Iteration", "BathTemp", "Setpoint", "Pressure", "State"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Probe(); err != nil {
		return fmt.Errorf("probe failed: %v", err)
	}

	// Run simulation: one poll cycle plus one second of thermals per row
	for i := range iterations {
		for _, cmd := range setpointCommands {
			if cmd.IterationNumber == i+1 {
				if err := ch.SetSetpoint(cmd.Value); err != nil {
					return fmt.Errorf("failed to update setpoint: %v", err)
				}
				break
			}
		}

		p.Cycle(ctx)
		sim.Step(time.Second)

		snapshot := ch.Get()
		if err := writer.Write([]string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.2f", snapshot.BathTemp),
			fmt.Sprintf("%.2f", snapshot.Setpoint),
			fmt.Sprintf("%.2f", snapshot.Pressure),
			snapshot.State.String(),
		}); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}
	}

	return nil
}

func main() {
	commands := []SetpointCommand{
		{
			IterationNumber: 200,
			Value:           15.0,
		},
	}
	SimulateChiller(1000, "chillerctl.csv", commands)
}
