package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

type GSheetConfig struct {
	CredentialsPath string `toml:"credentials_path"`
	SheetID         string `toml:"sheet_id"`
	SheetName       string `toml:"sheet_name"`
	StudentsRange   string `toml:"students_range"`
	PercentColumn   string `toml:"percent_column"`
	TimestampRange  string `toml:"timestamp_range"`
	Schedule        string `toml:"schedule"`
}

type Config struct {
	Server struct {
		Port       string `toml:"port"`
		EnableAuth bool   `toml:"enable_auth"`
	} `toml:"server"`

	Auth struct {
		RedisURL           string `toml:"redis_url"`
		TokenHeader        string `toml:"token_header"`
		SessionKeyTemplate string `toml:"session_key_template"`
	} `toml:"auth"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Rubric struct {
		DefaultWeight   float64 `toml:"default_weight"`
		DefaultMinScore int     `toml:"default_min_score"`
		DefaultMaxScore int     `toml:"default_max_score"`
	} `toml:"rubric"`

	Display struct {
		TimestampFormat string `toml:"timestamp_format"`
	} `toml:"display"`

	// GSheet maps a defense schedule id to its export configurations.
	GSheet map[string][]GSheetConfig `toml:"gsheet"`

	EmojiVariants []string `toml:"emoji_variants"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}

	if config.Rubric.DefaultWeight == 0 {
		config.Rubric.DefaultWeight = 1
	}
	if config.Rubric.DefaultMinScore == 0 {
		config.Rubric.DefaultMinScore = 1
	}
	if config.Rubric.DefaultMaxScore == 0 {
		config.Rubric.DefaultMaxScore = 5
	}

	logger.Debug.Printf("Loaded rubric defaults: %+v", config.Rubric)

	return &config, nil
}
