package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

type Config struct {
	Server     Server     `yaml:"server"`
	Logger     Logger     `yaml:"logger"`
	Storage    Storage    `yaml:"storage"`
	PostgresDB PostgresDB `yaml:"db"`
	Auth       Auth       `yaml:"auth"`
	RedisCache RedisCache `yaml:"rdb"`
}

type Server struct {
	Addr         string        `env-default:"localhost:8080" yaml:"addr"`
	ReadTimeout  time.Duration `env-default:"5s"             yaml:"readTimeout"`
	IdleTimeout  time.Duration `env-default:"30s"            yaml:"idleTimeout"`
	WriteTimeout time.Duration `env-default:"10s"            yaml:"writeTimeout"`
	// MaxBodyBytes limits uploaded backups. 0 means DefaultMaxBodyBytes.
	MaxBodyBytes int64 `env-default:"33554432" yaml:"maxBodyBytes"`
}

const DefaultMaxBodyBytes = 32 << 20

type Logger struct {
	Level     string   `env-default:"info" yaml:"level"`
	Output    []string `yaml:"output"`
	ErrOutput []string `yaml:"errOutput"`
}

type Storage struct {
	Backend string `env:"HELPDESK_STORAGE" env-default:"memory" yaml:"backend"`
}

type PostgresDB struct {
	Addr          string `yaml:"addr"`
	Username      string `env:"POSTGRES_USER"     yaml:"username"`
	Password      string `env:"POSTGRES_PASSWORD" yaml:"password"`
	DB            string `env:"POSTGRES_DB"       yaml:"db"`
	SSLmode       string `env-default:"disable"   yaml:"sslmode"`
	MaxConns      string `env-default:"10"        yaml:"maxConns"`
	Reload        bool   `yaml:"reload"`
	Version       int    `yaml:"version"`
	MigrationsDir string `env-default:"./migrations" yaml:"migrationsDir"`
}

type Auth struct {
	TTL      time.Duration `env-default:"24h" yaml:"ttl"`
	Secret   string        `env:"SECRET"       env-required:"true" yaml:"secret"`
	HashCost int           `env-default:"10"  yaml:"hashCost"`
}

// RedisCache with an empty Addr disables the article cache.
type RedisCache struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	ExpTime  time.Duration `env-default:"5m" yaml:"exp"`
}

func New(configPath string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config error: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresDB.Username == "" || c.PostgresDB.DB == "" {
			return fmt.Errorf("postgres backend requires username and db")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}

	return nil
}

// ConnString builds the pgxpool connection string, pool options included.
func (db PostgresDB) ConnString() string {
	return db.baseConnString() + "?" + "sslmode=" + db.SSLmode + "&pool_max_conns=" + db.MaxConns
}

// MigrationConnString is used by goose, which does not understand pool options.
func (db PostgresDB) MigrationConnString() string {
	return db.baseConnString() + "?" + "sslmode=" + db.SSLmode
}

func (db PostgresDB) baseConnString() string {
	return "postgres://" + db.Username + ":" + db.Password + "@" + db.Addr + "/" + db.DB
}
