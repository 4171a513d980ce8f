// Package config resolves runtime settings from flags, the environment, an
// optional .env file, config.yaml and built-in defaults, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/codemarshall/internal/logger"
	"github.com/mesh-intelligence/codemarshall/internal/paths"
	"github.com/mesh-intelligence/codemarshall/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	envPrefix = "CODEMARSHALL"
)

// Config keys.
const (
	KeyDatabaseURL       = "database_url"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	KeyDefaultUser       = "default_user"
	KeyDefaultCollection = "default_collection"
	KeyConnectRetries    = "connect_retries"
	KeyConnectDelay      = "connect_delay"
)

// DefaultCollection receives snippets when no collection is selected.
const DefaultCollection = "default"

// Settings is the resolved configuration for one process.
type Settings struct {
	ConfigDir         string
	DataDir           string
	DatabaseURL       string
	LogLevel          string
	LogFormat         string
	DefaultUser       string
	DefaultCollection string
	ConnectRetries    int
	ConnectDelay      time.Duration
}

// Overrides carries command-line flag values. Empty fields are not applied.
type Overrides struct {
	ConfigDir   string
	DataDir     string
	DatabaseURL string
	LogLevel    string
	EnvFile     string // .env file to load; empty means ./.env
}

// Load resolves Settings. A missing config.yaml or .env file is not an error.
func Load(o Overrides) (*Settings, error) {
	envFile := o.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	configDir, err := paths.ResolveConfigDir(o.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	dataDir, err := paths.ResolveDataDir(o.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	v := viper.New()
	v.SetDefault(KeyDatabaseURL, paths.DefaultDatabaseURL(dataDir))
	v.SetDefault(KeyLogLevel, logger.DefaultLevel)
	v.SetDefault(KeyLogFormat, logger.FormatConsole)
	v.SetDefault(KeyDefaultUser, "")
	v.SetDefault(KeyDefaultCollection, DefaultCollection)
	v.SetDefault(KeyConnectRetries, types.DefaultConnectRetries)
	v.SetDefault(KeyConnectDelay, types.DefaultConnectDelay)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// The unprefixed names are the conventional ones for these two settings.
	if err := v.BindEnv(KeyDatabaseURL, envPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, err
	}
	if err := v.BindEnv(KeyLogLevel, envPrefix+"_LOG_LEVEL", "LOG_LEVEL"); err != nil {
		return nil, err
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if o.DatabaseURL != "" {
		v.Set(KeyDatabaseURL, o.DatabaseURL)
	}
	if o.LogLevel != "" {
		v.Set(KeyLogLevel, o.LogLevel)
	}

	return &Settings{
		ConfigDir:         configDir,
		DataDir:           dataDir,
		DatabaseURL:       v.GetString(KeyDatabaseURL),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFormat:         v.GetString(KeyLogFormat),
		DefaultUser:       v.GetString(KeyDefaultUser),
		DefaultCollection: v.GetString(KeyDefaultCollection),
		ConnectRetries:    v.GetInt(KeyConnectRetries),
		ConnectDelay:      v.GetDuration(KeyConnectDelay),
	}, nil
}

// StoreConfig returns the subset of Settings the store needs.
func (s *Settings) StoreConfig() types.Config {
	return types.Config{
		DatabaseURL:    s.DatabaseURL,
		ConnectRetries: s.ConnectRetries,
		ConnectDelay:   s.ConnectDelay,
	}
}

// ConfigPath returns the location of config.yaml.
func (s *Settings) ConfigPath() string {
	return filepath.Join(s.ConfigDir, paths.ConfigFileName)
}

// File is the on-disk shape of config.yaml.
type File struct {
	DatabaseURL       string `yaml:"database_url,omitempty"`
	LogLevel          string `yaml:"log_level,omitempty"`
	DefaultUser       string `yaml:"default_user,omitempty"`
	DefaultCollection string `yaml:"default_collection,omitempty"`
	ConnectRetries    int    `yaml:"connect_retries,omitempty"`
	ConnectDelay      string `yaml:"connect_delay,omitempty"`
}

// WriteFileIfMissing writes f to path unless a file already exists there.
// Reports whether it wrote.
func WriteFileIfMissing(path string, f File) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# codemarshall configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
