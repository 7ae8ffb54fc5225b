package shared

import (
	"datagram-sync/netsync"
	"datagram-sync/transport"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type NodeConfig struct {
	Role string `yaml:"role"`
	// Address the server listens on and clients send to
	Server      string        `yaml:"server"`
	Tick        time.Duration `yaml:"tick"`
	MetricsAddr string        `yaml:"metrics_addr"`
	LogLevel    string        `yaml:"log_level"`
}

type Config struct {
	Node      NodeConfig        `yaml:"node"`
	Transport transport.Options `yaml:"transport"`
	Sync      netsync.Config    `yaml:"sync"`
}

func DefaultConfig() Config {
	return Config{
		Node: NodeConfig{
			Role:        "server",
			Server:      DefaultServerAddr,
			Tick:        50 * time.Millisecond,
			MetricsAddr: DefaultMetricsAddr,
			LogLevel:    "info",
		},
		Transport: transport.DefaultOptions(),
		Sync:      netsync.DefaultConfig(),
	}
}

// LoadConfig overlays the YAML file at path on the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
