package s3

import "github.com/pkg/errors"

const (
	DefaultEndpoint = "https://storage.yandexcloud.net"
	DefaultRegion   = "ru-central1"
)

type Config struct {
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
	// UsePathStyle нужен для minio и локальных эмуляторов
	UsePathStyle bool `mapstructure:"UsePathStyle"`
	// CheckBucket проверяет доступ к бакету при создании клиента
	CheckBucket bool `mapstructure:"CheckBucket"`
}

// Validate проверяет, что все необходимые поля заполнены
func (c *Config) Validate() error {
	if c.AccessKeyID == "" {
		return errors.New("AccessKeyID is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("SecretAccessKey is required")
	}
	if c.Bucket == "" {
		return errors.New("Bucket is required")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	return c
}
