package bot

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Auth struct {
		RedisURL string `toml:"redis_url"`
	} `toml:"auth"`
	Bot struct {
		Token    string  `toml:"token"`
		AdminIDs []int64 `toml:"admin_ids"`
	} `toml:"bot"`
	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`
	Reminders struct {
		Cron        string `toml:"cron"`
		HorizonDays int    `toml:"horizon_days"`
	} `toml:"reminders"`
}

func ReadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("Failed to load config: %v", err)
	}

	if cfg.Reminders.Cron == "" {
		cfg.Reminders.Cron = "0 8 * * *"
	}
	if cfg.Reminders.HorizonDays == 0 {
		cfg.Reminders.HorizonDays = 3
	}

	return &cfg, nil
}
