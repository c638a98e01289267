package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Agrid-Dev/chillerctl/cmd/app"
	"github.com/Agrid-Dev/chillerctl/internal/chiller"
	httpctrl "github.com/Agrid-Dev/chillerctl/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/chillerctl/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/chillerctl/internal/controllers/mqtt"
	"github.com/Agrid-Dev/chillerctl/internal/device"
	"github.com/Agrid-Dev/chillerctl/internal/poller"
	"github.com/Agrid-Dev/chillerctl/internal/simulator"
	"github.com/Agrid-Dev/chillerctl/internal/transport"
)

func main() {
	var configPath string
	var simulate bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.BoolVar(&simulate, "simulate", false, "talk to an in-memory chiller instead of the serial port")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "chillerctl").Logger()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if simulate {
		cfg.Serial.Simulate = true
	}

	ch := chiller.New(cfg.Chiller.Setpoint)
	dev := device.New(cfg.DeviceID, ch)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Serial side. An open or probe failure leaves the device in FAULT and
	// skips the poll loop; the controllers stay up for diagnostics.
	var conn transport.Conn
	if cfg.Serial.Simulate {
		conn = simulator.New()
		log.Info().Msg("running against simulated chiller")
	} else {
		conn, err = transport.Open(transport.Config{
			Port:    cfg.Serial.Port,
			Baud:    cfg.Serial.Baud,
			Timeout: cfg.Serial.Timeout,
		})
		if err != nil {
			log.Error().Err(err).Str("port", cfg.Serial.Port).Msg("serial open failed, device stays in fault")
			ch.Fault()
			conn = nil
		} else {
			log.Info().
				Str("port", cfg.Serial.Port).
				Int("baud", cfg.Serial.Baud).
				Dur("timeout", cfg.Serial.Timeout).
				Msg("connected to chiller")
		}
	}

	if conn != nil {
		defer conn.Close()

		p := poller.New(conn, ch, poller.Config{
			Interval:    cfg.Serial.PollInterval,
			SettleDelay: cfg.Serial.SettleDelay,
		}, log)
		p.OnPowerChange(func(on bool) {
			log.Info().Bool("is_on", on).Msg("power state applied")
		})

		if err := p.Probe(); err != nil {
			log.Error().Err(err).Msg("initial probe failed, poll loop not started")
		} else {
			g.Go(func() error { return p.Run(ctx) })
		}
	}

	if cfg.Controllers.HTTP.Enabled {
		srv := httpctrl.New(ch, cfg.Controllers.HTTP.Addr, dev.ID)
		log.Info().Str("addr", cfg.Controllers.HTTP.Addr).Msg("http controller listening")
		g.Go(func() error { return srv.Run(ctx) })
	}

	if cfg.Controllers.MQTT.Enabled {
		ctrl, err := mqttctrl.New(ch, mqttctrl.Config{
			DeviceID:        dev.ID,
			BrokerURL:       cfg.Controllers.MQTT.BrokerURL,
			ClientID:        cfg.Controllers.MQTT.ClientID,
			BaseTopic:       cfg.Controllers.MQTT.BaseTopic,
			QoS:             cfg.Controllers.MQTT.QoS,
			RetainSnapshot:  cfg.Controllers.MQTT.RetainSnapshot,
			PublishInterval: cfg.Controllers.MQTT.PublishInterval,
			Username:        cfg.Controllers.MQTT.Username,
			Password:        cfg.Controllers.MQTT.Password,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt controller")
		}
		g.Go(func() error { return ctrl.Run(ctx) })
	}

	if cfg.Controllers.MODBUS.Enabled {
		ctrl, err := modbusctrl.New(ch, modbusctrl.Config{
			DeviceID: dev.ID,
			Addr:     cfg.Controllers.MODBUS.Addr,
			UnitID:   cfg.Controllers.MODBUS.UnitID,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("modbus controller")
		}
		g.Go(func() error { return ctrl.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("exited")
	}
}
