package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Engine    EngineConfig    `toml:"engine"`
	Pools     PoolsConfig     `toml:"pools"`
	Database  DatabaseConfig  `toml:"database"`
	Scripting ScriptingConfig `toml:"scripting"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Data      DataConfig      `toml:"data"`
	Logging   LoggingConfig   `toml:"logging"`
}

type EngineConfig struct {
	Name               string        `toml:"name"`
	TickRate           time.Duration `toml:"tick_rate"`
	MaxTicks           uint64        `toml:"max_ticks"` // 0 = run until killed
	ActivateIterations int           `toml:"activate_iterations"`
	StartTime          int64         // set at boot, not from config
}

type PoolsConfig struct {
	Characters      int `toml:"characters"`
	Particles       int `toml:"particles"`
	Enchants        int `toml:"enchants"`
	ParticleReserve int `toml:"particle_reserve"` // slots kept for forced allocations
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables the journal
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	BatchSize       int           `toml:"batch_size"`
}

type ScriptingConfig struct {
	Dir       string `toml:"dir"`
	HotReload bool   `toml:"hot_reload"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

type DataConfig struct {
	Profiles string `toml:"profiles"`
	Spawns   string `toml:"spawns"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg.Engine.StartTime = time.Now().Unix()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Engine.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.TickRate <= 0 {
		return fmt.Errorf("engine.tick_rate must be positive, got %s", c.Engine.TickRate)
	}
	if c.Pools.Characters <= 0 || c.Pools.Particles <= 0 || c.Pools.Enchants <= 0 {
		return errors.New("pool capacities must be positive")
	}
	if c.Pools.ParticleReserve >= c.Pools.Particles {
		return fmt.Errorf("pools.particle_reserve %d leaves no particle slots", c.Pools.ParticleReserve)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:               "lifecycled",
			TickRate:           50 * time.Millisecond,
			ActivateIterations: 100,
		},
		Pools: PoolsConfig{
			Characters:      512,
			Particles:       2048,
			Enchants:        256,
			ParticleReserve: 64,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			BatchSize:       256,
		},
		Scripting: ScriptingConfig{
			Dir:       "scripts",
			HotReload: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9102",
		},
		Data: DataConfig{
			Profiles: "data/yaml/profiles.yaml",
			Spawns:   "data/yaml/spawns.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
