// Package config loads the service configuration from file, environment and defaults.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/lpernett/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "BLOG"

type Config struct {
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Search        SearchConfig        `mapstructure:"search"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Log           LogConfig           `mapstructure:"log"`
}

type ElasticsearchConfig struct {
	ClusterName     string `mapstructure:"clustername"`
	Address         string `mapstructure:"address"`
	Port            int    `mapstructure:"port"`
	Scheme          string `mapstructure:"scheme"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Insecure        bool   `mapstructure:"insecure"`
	IndexName       string `mapstructure:"indexname"`
	IndexType       string `mapstructure:"indextype"`
	StartupAttempts uint   `mapstructure:"startup_attempts"`
}

// URL is the base address of the index server.
func (c ElasticsearchConfig) URL() string {
	return fmt.Sprintf("%s://%s", c.Scheme, net.JoinHostPort(c.Address, strconv.Itoa(c.Port)))
}

type SearchConfig struct {
	Size int `mapstructure:"size"`
}

type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address of the REST endpoint.
func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load reads configuration from cfgFile (or application.{properties,yaml,json}
// in the working directory), BLOG_* environment variables and a .env file.
func Load(cfgFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("application")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("elasticsearch.clustername", "elasticsearch")
	v.SetDefault("elasticsearch.address", "127.0.0.1")
	v.SetDefault("elasticsearch.port", 9200)
	v.SetDefault("elasticsearch.scheme", "http")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.insecure", false)
	v.SetDefault("elasticsearch.indexname", "blog")
	v.SetDefault("elasticsearch.indextype", "post")
	v.SetDefault("elasticsearch.startup_attempts", 3)

	v.SetDefault("search.size", 100)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 9191)
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

func validate(cfg *Config) error {
	es := cfg.Elasticsearch
	if strings.TrimSpace(es.Address) == "" {
		return errors.New("elasticsearch.address must be set")
	}
	if es.Port <= 0 {
		return errors.Errorf("invalid elasticsearch.port: %d", es.Port)
	}
	if es.Scheme != "http" && es.Scheme != "https" {
		return errors.Errorf("invalid elasticsearch.scheme: %s (must be http or https)", es.Scheme)
	}
	if strings.TrimSpace(es.IndexName) == "" {
		return errors.New("elasticsearch.indexname must be set")
	}
	if cfg.HTTP.Port <= 0 {
		return errors.Errorf("invalid http.port: %d", cfg.HTTP.Port)
	}
	if cfg.Search.Size <= 0 {
		return errors.Errorf("invalid search.size: %d", cfg.Search.Size)
	}
	return nil
}
