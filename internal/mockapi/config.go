package mockapi

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Поддерживаемые драйверы базы данных.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config описывает параметры тестового сервера каталога.
type Config struct {
	ListenAddr string         `yaml:"listen_addr"`
	Database   DatabaseConfig `yaml:"database"`
	JWTSecret  string         `yaml:"jwt_secret"`
	TokenTTL   time.Duration  `yaml:"token_ttl"`
	SeedAdmin  *SeedUser      `yaml:"seed_admin"`
}

// DatabaseConfig выбирает драйвер gorm и строку подключения.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SeedUser: учётная запись администратора, создаваемая при старте.
type SeedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8080",
		Database:   DatabaseConfig{Driver: DriverSQLite, DSN: ":memory:"},
		JWTSecret:  "dev-secret",
		TokenTTL:   24 * time.Hour,
	}
}

// LoadConfig читает YAML-конфигурацию. Отсутствующий файл даёт значения по умолчанию.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("decode config: %w", err)
			}
		}
	}
	return cfg, cfg.Validate()
}

// Validate проверяет обязательные поля.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen_addr is required")
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}
	if c.SeedAdmin != nil && (c.SeedAdmin.Username == "" || c.SeedAdmin.Password == "") {
		return errors.New("seed_admin requires username and password")
	}
	return nil
}
