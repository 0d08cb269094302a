package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const envPrefix = "THREADSPIRE_"

type Config struct {
	Server Server `yaml:"server"`
	Auth   Auth   `yaml:"auth"`
}

type Server struct {
	Listen         string        `yaml:"listen"`
	Storage        string        `yaml:"storage"` // postgres, memory
	PostgresDsn    string        `yaml:"postgresDsn"`
	Cache          string        `yaml:"cache"` // redis, memcached, memory, none
	CacheTTL       time.Duration `yaml:"cacheTTL"`
	RedisAddr      string        `yaml:"redisAddr"`
	RedisPassword  string        `yaml:"redisPassword"`
	RedisDB        int           `yaml:"redisDB"`
	MemcachedAddr  string        `yaml:"memcachedAddr"`
	CacheTimeout   time.Duration `yaml:"cacheTimeout"` // per-operation network timeout
	EnableTrace    bool          `yaml:"enableTrace"`
	TraceEndpoint  string        `yaml:"traceEndpoint"`
	LogLevel       string        `yaml:"logLevel"`
	LogFormat      string        `yaml:"logFormat"` // text, json
	SlowQueryLimit time.Duration `yaml:"slowQueryLimit"`
}

type Auth struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	Audience string        `yaml:"audience"`
	TokenTTL time.Duration `yaml:"tokenTTL"`
}

func Default() Config {
	return Config{
		Server: Server{
			Listen:         ":8000",
			Storage:        "postgres",
			Cache:          "memory",
			CacheTTL:       5 * time.Minute,
			CacheTimeout:   500 * time.Millisecond,
			LogLevel:       "info",
			LogFormat:      "text",
			SlowQueryLimit: 300 * time.Millisecond,
		},
		Auth: Auth{
			Issuer:   "threadspire",
			TokenTTL: 24 * time.Hour,
		},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// skips the file. A .env file in the working directory and THREADSPIRE_*
// variables are applied last.
func Load(path string) (Config, error) {

	config := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, err
		}
		defer file.Close()

		err = yaml.NewDecoder(file).Decode(&config)
		if err != nil {
			return Config{}, errors.Wrap(err, "decode config")
		}
	}

	_ = godotenv.Load()

	if err := applyEnv(&config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) Validate() error {
	switch c.Server.Storage {
	case "postgres":
		if c.Server.PostgresDsn == "" {
			return errors.New("server.postgresDsn is required for postgres storage")
		}
	case "memory":
	default:
		return errors.Errorf("unknown storage backend %q", c.Server.Storage)
	}

	switch c.Server.Cache {
	case "redis":
		if c.Server.RedisAddr == "" {
			return errors.New("server.redisAddr is required for the redis cache")
		}
	case "memcached":
		if c.Server.MemcachedAddr == "" {
			return errors.New("server.memcachedAddr is required for the memcached cache")
		}
	case "memory", "none":
	default:
		return errors.Errorf("unknown cache backend %q", c.Server.Cache)
	}

	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required")
	}
	return nil
}

func applyEnv(c *Config) error {
	strs := map[string]*string{
		"LISTEN":         &c.Server.Listen,
		"STORAGE":        &c.Server.Storage,
		"POSTGRES_DSN":   &c.Server.PostgresDsn,
		"CACHE":          &c.Server.Cache,
		"REDIS_ADDR":     &c.Server.RedisAddr,
		"REDIS_PASSWORD": &c.Server.RedisPassword,
		"MEMCACHED_ADDR": &c.Server.MemcachedAddr,
		"TRACE_ENDPOINT": &c.Server.TraceEndpoint,
		"LOG_LEVEL":      &c.Server.LogLevel,
		"LOG_FORMAT":     &c.Server.LogFormat,
		"JWT_SECRET":     &c.Auth.Secret,
		"JWT_ISSUER":     &c.Auth.Issuer,
		"JWT_AUDIENCE":   &c.Auth.Audience,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"CACHE_TTL":     &c.Server.CacheTTL,
		"CACHE_TIMEOUT": &c.Server.CacheTimeout,
		"TOKEN_TTL":     &c.Auth.TokenTTL,
	}
	for key, dst := range durations {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.Wrapf(err, "parse %s%s", envPrefix, key)
			}
			*dst = d
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse %sREDIS_DB", envPrefix)
		}
		c.Server.RedisDB = n
	}
	if v, ok := os.LookupEnv(envPrefix + "ENABLE_TRACE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "parse %sENABLE_TRACE", envPrefix)
		}
		c.Server.EnableTrace = b
	}
	return nil
}
