package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config - настройки сервиса из config.yaml с переопределением через env
type Config struct {
	ServerAddress string `yaml:"SERVER_ADDRESS"`
	PostgresConn  string `yaml:"POSTGRES_CONN"`
	JWTSecret     string `yaml:"JWT_SECRET"`
	MinistryURL   string `yaml:"MINISTRY_URL"`
	UploadDir     string `yaml:"UPLOAD_DIR"`
}

// Load читает файл конфигурации (если он есть) и накладывает переменные окружения.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ServerAddress: "0.0.0.0:8080",
		UploadDir:     "uploads",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// env имеет приоритет над файлом
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		cfg.ServerAddress = v
	}
	if v := os.Getenv("POSTGRES_CONN"); v != "" {
		cfg.PostgresConn = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("MINISTRY_URL"); v != "" {
		cfg.MinistryURL = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}

	if cfg.PostgresConn == "" {
		return nil, fmt.Errorf("POSTGRES_CONN is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return cfg, nil
}
