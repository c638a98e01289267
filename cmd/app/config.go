package app

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CHILLERCTL_"

type Config struct {
	DeviceID string        `koanf:"device_id"`
	Serial   SerialConfig  `koanf:"serial"`
	Chiller  ChillerConfig `koanf:"chiller"`

	Controllers struct {
		HTTP   HTTPConfig   `koanf:"http"`
		MQTT   MQTTConfig   `koanf:"mqtt"`
		MODBUS ModbusConfig `koanf:"modbus"`
	} `koanf:"controllers"`
}

type SerialConfig struct {
	Port         string        `koanf:"port"`
	Baud         int           `koanf:"baud"`
	Timeout      time.Duration `koanf:"timeout"`
	PollInterval time.Duration `koanf:"poll_interval"`
	SettleDelay  time.Duration `koanf:"settle_delay"`
	Simulate     bool          `koanf:"simulate"`
}

type ChillerConfig struct {
	Setpoint float64 `koanf:"temperature_setpoint"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	UnitID  byte   `koanf:"unit_id"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.DeviceID = "default"
	cfg.Serial = SerialConfig{
		Port:         "/dev/ttyS2",
		Baud:         9600,
		Timeout:      1 * time.Second,
		PollInterval: 1 * time.Second,
		SettleDelay:  1 * time.Second,
	}
	cfg.Chiller.Setpoint = 21.0
	cfg.Controllers.HTTP.Addr = ":8080"
	cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	cfg.Controllers.MODBUS.UnitID = 1
	return cfg
}

// LoadConfig layers defaults, an optional yaml/json file and CHILLERCTL_*
// environment variables, in that order.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return cfg, fmt.Errorf("defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return cfg, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			// Config file missing → defaults + env only
			if !errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return kyaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
}

// envKeyTransform maps CHILLERCTL_ env keys (prefix already stripped) onto
// config paths: CONTROLLERS_HTTP_ADDR → controllers.http.addr,
// SERIAL_POLL_INTERVAL → serial.poll_interval, DEVICE_ID → device_id.
func envKeyTransform(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))

	if rest, ok := strings.CutPrefix(k, "controllers_"); ok {
		parts := strings.SplitN(rest, "_", 2)
		if len(parts) == 2 {
			return "controllers." + parts[0] + "." + parts[1]
		}
		return k // not enough parts -> fallback
	}
	for _, section := range []string{"serial", "chiller"} {
		if rest, ok := strings.CutPrefix(k, section+"_"); ok && rest != "" {
			return section + "." + rest
		}
	}
	return k
}

func applyDefaults(cfg *Config) {
	if cfg.DeviceID == "" {
		cfg.DeviceID = "default"
	}
	if cfg.Controllers.HTTP.Addr == "" {
		cfg.Controllers.HTTP.Addr = ":8080"
	}
	if !cfg.Controllers.HTTP.Enabled && !cfg.Controllers.MQTT.Enabled && !cfg.Controllers.MODBUS.Enabled {
		cfg.Controllers.HTTP.Enabled = true
	}
	if cfg.Controllers.MQTT.PublishInterval == 0 {
		cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	}
	if cfg.Controllers.MODBUS.UnitID == 0 {
		cfg.Controllers.MODBUS.UnitID = 1
	}
}
