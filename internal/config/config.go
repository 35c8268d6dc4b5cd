package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ServerConfig configures the reservation daemon.
type ServerConfig struct {
	Name            string       `toml:"name"`
	StreamAddr      string       `toml:"stream_addr"`
	DatagramAddr    string       `toml:"datagram_addr"`
	AdminAddr       string       `toml:"admin_addr"`
	DataDir         string       `toml:"data_dir"`
	MaxConns        int          `toml:"max_conns"`
	DatagramWorkers int          `toml:"datagram_workers"`
	CorsOrigins     []string     `toml:"cors_origins"`
	Flights         []FlightSeed `toml:"flights"`
}

// FlightSeed declares one flight for first-boot table seeding.
type FlightSeed struct {
	Ref         int    `toml:"ref"`
	Destination string `toml:"destination"`
	Seats       int    `toml:"seats"`
	Price       int    `toml:"price"`
}

func LoadServerConfig(path string) (ServerConfig, error) {
	var cfg ServerConfig
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "reservectl"
	}
	if cfg.StreamAddr == "" {
		cfg.StreamAddr = ":8080"
	}
	if cfg.DatagramAddr == "" {
		cfg.DatagramAddr = ":8082"
	}
	if cfg.AdminAddr == "" {
		cfg.AdminAddr = ":9100"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 64
	}
	if cfg.DatagramWorkers == 0 {
		cfg.DatagramWorkers = 4
	}
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateServerConfig(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("server config missing name")
	}
	if strings.TrimSpace(cfg.StreamAddr) == "" {
		return fmt.Errorf("server config missing stream_addr")
	}
	if strings.TrimSpace(cfg.DatagramAddr) == "" {
		return fmt.Errorf("server config missing datagram_addr")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("server config missing data_dir")
	}
	if cfg.MaxConns < 0 {
		return fmt.Errorf("server config max_conns must be positive")
	}
	if cfg.DatagramWorkers < 0 {
		return fmt.Errorf("server config datagram_workers must be positive")
	}
	for i, seed := range cfg.Flights {
		if err := ValidateFlightSeed(seed); err != nil {
			return fmt.Errorf("flights[%d] invalid: %w", i, err)
		}
	}
	return nil
}

func ValidateFlightSeed(seed FlightSeed) error {
	if seed.Ref <= 0 {
		return fmt.Errorf("ref must be positive")
	}
	if strings.TrimSpace(seed.Destination) == "" {
		return fmt.Errorf("destination is required")
	}
	if seed.Seats <= 0 {
		return fmt.Errorf("seats must be positive")
	}
	if seed.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	return nil
}
