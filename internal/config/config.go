package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "STEELART_CONFIG"

const defaultPath = "config.yaml"

type Config struct {
	Server   Server   `yaml:"server"`
	Sequence Sequence `yaml:"sequence"`
	Cache    Cache    `yaml:"cache"`
	Log      Log      `yaml:"log"`
}

type Server struct {
	Listen          string        `yaml:"listen"`
	PostgresDsn     string        `yaml:"postgresDsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	RedisAddr       string        `yaml:"redisAddr"`
	RedisPassword   string        `yaml:"redisPassword"`
	RedisDB         int           `yaml:"redisDB"`
	MemcachedAddr   string        `yaml:"memcachedAddr"`
	EnableTrace     bool          `yaml:"enableTrace"`
	TraceEndpoint   string        `yaml:"traceEndpoint"`
	AutoMigrate     bool          `yaml:"autoMigrate"`
}

type Sequence struct {
	// PositionOffset is added to every position before a renumbering.
	// Nil means the default; 0 disables the offset step.
	PositionOffset *int `yaml:"positionOffset"`
}

type Cache struct {
	LocalTTL  time.Duration `yaml:"localTTL"`
	RemoteTTL time.Duration `yaml:"remoteTTL"`
}

type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Path returns the config path from the environment, loading a local .env
// file first when one exists.
func Path() string {
	_ = godotenv.Load()
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return defaultPath
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "open config")
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrapf(err, "decode config %s", path)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c Config) Validate() error {
	if c.Server.PostgresDsn == "" {
		return errors.New("server.postgresDsn is required")
	}
	if c.Sequence.PositionOffset != nil && *c.Sequence.PositionOffset < 0 {
		return errors.New("sequence.positionOffset must not be negative")
	}
	if c.Server.EnableTrace && c.Server.TraceEndpoint == "" {
		return errors.New("server.traceEndpoint is required when tracing is enabled")
	}
	return nil
}
