package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const defaultConfigFile = "densityfit.json"

// EngineConfig describes how to start the external scorer.
type EngineConfig struct {
	Command    string   `json:"command"`
	Args       []string `json:"args,omitempty"`
	TimeoutSec int      `json:"timeoutSec"`
	CacheDir   string   `json:"cacheDir,omitempty"`
}

// Timeout returns the per-call time limit, or zero for none.
func (c EngineConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Config aggregates runtime settings persisted to densityfit.json. The
// per-mode fields seed the panel entries and are saved back on exit.
type Config struct {
	Engine  EngineConfig `json:"engine"`
	SCCC    Fields       `json:"sccc"`
	SMOC    Fields       `json:"smoc"`
	NMI     Fields       `json:"nmi"`
	LastDir string       `json:"lastDir,omitempty"`
}

// ApplyDefaults populates empty values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Engine.Command == "" {
		c.Engine.Command = "tempy-score"
	}
	if c.Engine.TimeoutSec < 0 {
		c.Engine.TimeoutSec = 0
	}
	if c.SCCC.Resolution == "" {
		c.SCCC.Resolution = "4.0"
	}
	if c.SCCC.Sigma == "" {
		c.SCCC.Sigma = "0.187"
	}
	if c.SMOC.Resolution == "" {
		c.SMOC.Resolution = "4.0"
	}
	if c.SMOC.Sigma == "" {
		c.SMOC.Sigma = "0.187"
	}
	if c.SMOC.Window == "" {
		c.SMOC.Window = "9"
	}
	if c.NMI.Resolution == "" {
		c.NMI.Resolution = "4.0"
	}
	if c.NMI.Resolution2 == "" {
		c.NMI.Resolution2 = "4.0"
	}
	if c.NMI.Contour1 == "" {
		c.NMI.Contour1 = "0.0"
	}
	if c.NMI.Contour2 == "" {
		c.NMI.Contour2 = "0.0"
	}
}

// LoadConfig loads configuration from the given path or the default
// densityfit.json. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// SaveConfig persists configuration to disk.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
