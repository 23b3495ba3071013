package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"pdfhistory/internal/domain"
	"pdfhistory/internal/preview"
	"pdfhistory/internal/service/s3"
)

const (
	ParamsBackendSQL   = "sql"
	ParamsBackendRedis = "redis"
)

type Config struct {
	Server    ServerConfig       `mapstructure:"Server"`
	Database  DatabaseConfig     `mapstructure:"Database"`
	Redis     RedisConfig        `mapstructure:"Redis"`
	S3        s3.Config          `mapstructure:"S3"`
	Cache     domain.CacheConfig `mapstructure:"Cache"`
	Thumbnail preview.Config     `mapstructure:"Thumbnail"`
	Params    ParamsConfig       `mapstructure:"Params"`
	Log       LogConfig          `mapstructure:"Log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"Port"`
	AllowedOrigins  []string      `mapstructure:"AllowedOrigins"`
	RequestTimeout  time.Duration `mapstructure:"RequestTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"ShutdownTimeout"`
}

type DatabaseConfig struct {
	Driver      string        `mapstructure:"Driver"` // sqlite3 | postgres
	Path        string        `mapstructure:"Path"`   // файл базы для sqlite3
	Host        string        `mapstructure:"Host"`
	Port        string        `mapstructure:"Port"`
	User        string        `mapstructure:"User"`
	Password    string        `mapstructure:"Password"`
	Name        string        `mapstructure:"Name"`
	SSLMode     string        `mapstructure:"SSLMode"`
	MaxAttempts int           `mapstructure:"MaxAttempts"`
	RetryDelay  time.Duration `mapstructure:"RetryDelay"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"Addr"`
	Password string `mapstructure:"Password"`
	DB       int    `mapstructure:"DB"`
}

type ParamsConfig struct {
	Backend     string `mapstructure:"Backend"` // sql | redis
	Namespace   string `mapstructure:"Namespace"`
	RedisPrefix string `mapstructure:"RedisPrefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"Level"`
	Format string `mapstructure:"Format"` // console | json
}

type binding struct {
	key      string
	env      string
	fallback any
}

// ключ конфигурации, переменная окружения и значение по умолчанию
var bindings = []binding{
	{"Server.Port", "HTTP_PORT", "2525"},
	{"Server.AllowedOrigins", "HTTP_ALLOWED_ORIGINS", "*"},
	{"Server.RequestTimeout", "HTTP_REQUEST_TIMEOUT", "5m"},
	{"Server.ShutdownTimeout", "HTTP_SHUTDOWN_TIMEOUT", "30s"},

	{"Database.Driver", "DATABASE_DRIVER", "sqlite3"},
	{"Database.Path", "DATABASE_PATH", "pdfhistory.db"},
	{"Database.Host", "DATABASE_HOST", ""},
	{"Database.Port", "DATABASE_PORT", "5432"},
	{"Database.User", "DATABASE_USER", ""},
	{"Database.Password", "DATABASE_PASSWORD", ""},
	{"Database.Name", "DATABASE_NAME", "pdfhistory"},
	{"Database.SSLMode", "DATABASE_SSLMODE", "disable"},
	{"Database.MaxAttempts", "DATABASE_MAX_ATTEMPTS", 5},
	{"Database.RetryDelay", "DATABASE_RETRY_DELAY", "2s"},

	{"Redis.Addr", "REDIS_ADDR", ""},
	{"Redis.Password", "REDIS_PASSWORD", ""},
	{"Redis.DB", "REDIS_DB", 0},

	{"S3.AccessKeyID", "S3_ACCESS_KEY_ID", ""},
	{"S3.SecretAccessKey", "S3_SECRET_ACCESS_KEY", ""},
	{"S3.Bucket", "S3_BUCKET", ""},
	{"S3.Endpoint", "S3_ENDPOINT", s3.DefaultEndpoint},
	{"S3.Region", "S3_REGION", s3.DefaultRegion},
	{"S3.UsePathStyle", "S3_USE_PATH_STYLE", false},
	{"S3.CheckBucket", "S3_CHECK_BUCKET", true},

	{"Cache.MaxEntries", "CACHE_MAX_ENTRIES", domain.DefaultCacheMaxEntries},
	{"Cache.MaxTotalBytes", "CACHE_MAX_TOTAL_BYTES", int64(domain.DefaultCacheMaxTotalBytes)},
	{"Cache.TTL", "CACHE_TTL", domain.DefaultCacheTTL.String()},

	{"Thumbnail.MaxImageSize", "THUMBNAIL_MAX_IMAGE_SIZE", preview.DefaultMaxImageSize},
	{"Thumbnail.JPEGQuality", "THUMBNAIL_JPEG_QUALITY", preview.DefaultJPEGQuality},
	{"Thumbnail.LargeFileThreshold", "THUMBNAIL_LARGE_FILE_THRESHOLD", preview.DefaultLargeFileThreshold},
	{"Thumbnail.PdftoppmPath", "THUMBNAIL_PDFTOPPM_PATH", "pdftoppm"},
	{"Thumbnail.TmpDir", "THUMBNAIL_TMP_DIR", ""},

	{"Params.Backend", "PARAMS_BACKEND", ParamsBackendSQL},
	{"Params.Namespace", "PARAMS_NAMESPACE", "pdf-tool-parameters"},
	{"Params.RedisPrefix", "PARAMS_REDIS_PREFIX", "pdfhistory:kv:"},

	{"Log.Level", "LOG_LEVEL", "info"},
	{"Log.Format", "LOG_FORMAT", "console"},
}

// NewConfig читает конфигурацию из файла (например .app.env) и окружения.
// Переменные окружения важнее файла, отсутствующий файл не ошибка.
func NewConfig(path string) (*Config, error) {
	v := viper.New()

	for _, b := range bindings {
		v.SetDefault(b.key, b.fallback)
		_ = v.BindEnv(b.key, b.env)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "cannot read config from %s", path)
			}
			applyFlatKeys(v)
		} else {
			log.Warn().Str("path", path).Msg("config file not found, using only environment variables")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	cfg.Cache = cfg.Cache.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyFlatKeys переносит плоские ключи .env файла (DATABASE_HOST=...)
// во вложенные, если переменная окружения не задана
func applyFlatKeys(v *viper.Viper) {
	for _, b := range bindings {
		if _, set := os.LookupEnv(b.env); set {
			continue
		}
		if v.InConfig(strings.ToLower(b.env)) {
			v.Set(b.key, v.Get(b.env))
		}
	}
}

// Validate проверяет, что все необходимые поля заполнены.
// S3 проверяется при создании клиента: migrate и branches без него обходятся.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("database path is required for sqlite3")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return errors.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
				c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
		}
	default:
		return errors.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Params.Backend {
	case ParamsBackendSQL:
	case ParamsBackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis address is required for the redis params backend")
		}
	default:
		return errors.Errorf("unsupported params backend %q", c.Params.Backend)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Errorf("unsupported log format %q", c.Log.Format)
	}

	return nil
}

// DSN строка подключения для sqlx
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite3" {
		return c.Path
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// MigrationURL адрес базы в формате golang-migrate
func (c *DatabaseConfig) MigrationURL() string {
	if c.Driver == "sqlite3" {
		return "sqlite3://" + c.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
