// Command ribbitd runs the decoder as a network monitor: clients stream
// little-endian float32 mono audio over a WebSocket at /ws and receive
// sync and payload events as JSON.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ribbitlabs/ribbit/internal/server"
)

// Config is the daemon configuration file.
type Config struct {
	Addr string `yaml:"addr"`
}

func defaultConfig() Config {
	return Config{Addr: "127.0.0.1:7380"}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "YAML config file")
		addr       = pflag.String("addr", "", "listen address (overrides config)")
	)
	pflag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("config", "err", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	srv := server.New(cfg.Addr, server.NewMonitor())
	if err := srv.Start(); err != nil {
		log.Fatal("server", "err", err)
	}
}
