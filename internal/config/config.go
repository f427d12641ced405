//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

// Package config resolves configuration of media type services from the
// config file and CONFIG_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fogfish/mediatype"
	"github.com/spf13/viper"
)

type Config struct {
	DB    DB    `mapstructure:"db"`
	HTTP  HTTP  `mapstructure:"http"`
	Media Media `mapstructure:"media"`
	Cache Cache `mapstructure:"cache"`
	Log   Log   `mapstructure:"log"`
}

// DB is connection to the catalog of media types
type DB struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Prefix string `mapstructure:"prefix"`
	User   string `mapstructure:"user"`
}

type HTTP struct {
	Listen   string `mapstructure:"listen"`
	Upstream string `mapstructure:"upstream"`
}

// Media files and their variants
type Media struct {
	// Directory of original files
	Dir string `mapstructure:"dir"`
	// Directory of rendered variants
	Cache string `mapstructure:"cache"`
	// Remote origin of files missing at Dir
	Origin string `mapstructure:"origin"`
	// Style of variant urls: path or redaxo
	URL  string `mapstructure:"url"`
	Base string `mapstructure:"base"`
	// JSON export of media types, used instead of the catalog
	Types string `mapstructure:"types"`
}

type Cache struct {
	Size int `mapstructure:"size"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Load configuration from file (optional) and environment
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("mediatype")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mediatype")
	}

	v.SetEnvPrefix("CONFIG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.dsn", "mediatype.db")
	v.SetDefault("db.prefix", "rex_")
	v.SetDefault("db.user", "mediatype")

	v.SetDefault("http.listen", ":8080")
	v.SetDefault("http.upstream", "")

	v.SetDefault("media.dir", "media")
	v.SetDefault("media.cache", "cache/media_manager")
	v.SetDefault("media.origin", "")
	v.SetDefault("media.url", "path")
	v.SetDefault("media.base", "/media")
	v.SetDefault("media.types", "")

	v.SetDefault("cache.size", 128)

	v.SetDefault("log.level", "info")
}

func (cfg *Config) validate() error {
	switch cfg.DB.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("invalid db driver: %s (must be mysql or sqlite)", cfg.DB.Driver)
	}

	switch cfg.Media.URL {
	case "", "path", "redaxo":
	default:
		return fmt.Errorf("invalid media url style: %s (must be path or redaxo)", cfg.Media.URL)
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}

	if cfg.Cache.Size < 0 {
		return fmt.Errorf("invalid cache size: %d", cfg.Cache.Size)
	}

	return nil
}

// MediaTypes declared by the config, empty if the catalog is used
func (cfg *Config) MediaTypes() ([]mediatype.Type, error) {
	return ParseTypes(cfg.Media.Types)
}

// ParseTypes decodes JSON export of media types
func ParseTypes(spec string) ([]mediatype.Type, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}

	var seq []mediatype.Type
	if err := json.Unmarshal([]byte(spec), &seq); err != nil {
		return nil, fmt.Errorf("invalid media types: %w", err)
	}

	return seq, nil
}
