package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	SnapshotsSQLite = "sqlite"
	SnapshotsRedis  = "redis"
	SnapshotsMemory = "memory"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
	Log     Log     `yaml:"log"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Storage struct {
	SQLitePath  string `yaml:"sqlite_path"`
	Snapshots   string `yaml:"snapshots"`
	SnapshotKey string `yaml:"snapshot_key"`
	Redis       Redis  `yaml:"redis"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Auth struct {
	SessionTTL      string `yaml:"session_ttl"`
	VerifyPasswords bool   `yaml:"verify_passwords"`
	SeedPassword    string `yaml:"seed_password"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Server: Server{Addr: ":8080"},
		Storage: Storage{
			SQLitePath:  "./data/socialnet.db",
			Snapshots:   SnapshotsSQLite,
			SnapshotKey: "currentUser",
			Redis:       Redis{Addr: "localhost:6379", Prefix: "socialnet:"},
		},
		Auth: Auth{SessionTTL: "24h"},
		Log:  Log{Level: "info", Format: "text"},
	}
}

// LoadDotEnvs loads .env files for the environment named by SOCIALNET_ENV
// (default "dev"). Earlier files win; missing files are ignored.
func LoadDotEnvs(rootPath string) {
	env := os.Getenv("SOCIALNET_ENV")
	if env == "" {
		env = "dev"
	}
	godotenv.Load(rootPath + ".env." + env + ".local")
	godotenv.Load(rootPath + ".env.local")
	godotenv.Load(rootPath + ".env." + env)
	godotenv.Load(rootPath + ".env")
}

// LoadConfig reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if p := os.Getenv("PORT"); p != "" {
		c.Server.Addr = ":" + p
	}
	if v := os.Getenv("SOCIALNET_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SOCIALNET_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("SOCIALNET_SNAPSHOTS"); v != "" {
		c.Storage.Snapshots = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWD"); v != "" {
		c.Storage.Redis.Password = v
	}
	if v := os.Getenv("SOCIALNET_VERIFY_PASSWORDS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "SOCIALNET_VERIFY_PASSWORDS")
		}
		c.Auth.VerifyPasswords = b
	}
	return nil
}

// SessionTTL parses Auth.SessionTTL.
func (c *Config) SessionTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Auth.SessionTTL)
	if err != nil {
		return 0, errors.Wrapf(err, "auth.session_ttl %q", c.Auth.SessionTTL)
	}
	return d, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Storage.SQLitePath == "" {
		return errors.New("storage.sqlite_path is required")
	}
	if c.Storage.SnapshotKey == "" {
		return errors.New("storage.snapshot_key is required")
	}
	switch c.Storage.Snapshots {
	case SnapshotsSQLite, SnapshotsMemory:
	case SnapshotsRedis:
		if c.Storage.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required for redis snapshots")
		}
	default:
		return errors.Errorf("storage.snapshots: unknown backend %q", c.Storage.Snapshots)
	}
	ttl, err := c.SessionTTL()
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.Errorf("auth.session_ttl must be positive, got %s", ttl)
	}
	return nil
}
