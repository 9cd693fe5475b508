// Copyright 2021 ecodeclub
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the client settings from a YAML file and
// EREST_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ecodeclub/erest"
	"github.com/ecodeclub/erest/internal/errs"
	"github.com/ecodeclub/erest/middleware/querylog"
	"github.com/ecodeclub/erest/middleware/ratelimit"
	"github.com/ecodeclub/erest/middleware/retry"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "EREST"

type Config struct {
	URL     string        `mapstructure:"url"`
	AnonKey string        `mapstructure:"anon_key"`
	Schema  string        `mapstructure:"schema"`
	Timeout time.Duration `mapstructure:"timeout"`

	Bucket struct {
		Name             string   `mapstructure:"name"`
		MaxFileSize      int64    `mapstructure:"max_file_size"`
		AllowedMIMETypes []string `mapstructure:"allowed_mime_types"`
	} `mapstructure:"bucket"`

	Retry struct {
		MaxAttempts     int           `mapstructure:"max_attempts"`
		InitialInterval time.Duration `mapstructure:"initial_interval"`
	} `mapstructure:"retry"`

	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

const (
	DefaultBucket      = "photos-bucket"
	DefaultMaxFileSize = 50 * 1024 * 1024
)

var defaultMIMETypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

var defaults = map[string]any{
	"url":                       "",
	"anon_key":                  "",
	"schema":                    "",
	"timeout":                   "10s",
	"bucket.name":               DefaultBucket,
	"bucket.max_file_size":      DefaultMaxFileSize,
	"bucket.allowed_mime_types": defaultMIMETypes,
	"retry.max_attempts":        1,
	"retry.initial_interval":    "100ms",
	"rate_limit.rps":            0,
	"rate_limit.burst":          1,
	"log.level":                 "info",
	"log.format":                "json",
}

// Load 读取 path 指定的 YAML 文件，path 为空的时候只使用环境变量。
// 环境变量的优先级高于文件，例如 EREST_RETRY_MAX_ATTEMPTS 覆盖 retry.max_attempts
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		// 设置了默认值的 key 才会在 Unmarshal 的时候读取环境变量
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &cfg, nil
}

// Validate 返回所有的问题，而不是只返回第一个
func (c *Config) Validate() error {
	var err error
	if c.URL == "" {
		err = multierr.Append(err, errors.New("config: url is required"))
	} else if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		err = multierr.Append(err, fmt.Errorf("config: url %q must start with http:// or https://", c.URL))
	}
	if c.AnonKey == "" {
		err = multierr.Append(err, errors.New("config: anon_key is required"))
	}
	if c.Timeout < 0 {
		err = multierr.Append(err, fmt.Errorf("config: invalid timeout %s", c.Timeout))
	}
	if c.Bucket.MaxFileSize < 0 {
		err = multierr.Append(err, fmt.Errorf("config: invalid bucket.max_file_size %d", c.Bucket.MaxFileSize))
	}
	if c.Retry.MaxAttempts < 1 {
		err = multierr.Append(err, fmt.Errorf("config: retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	if c.RateLimit.RPS < 0 {
		err = multierr.Append(err, fmt.Errorf("config: invalid rate_limit.rps %v", c.RateLimit.RPS))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		err = multierr.Append(err, fmt.Errorf("config: rate_limit.burst must be at least 1, got %d", c.RateLimit.Burst))
	}
	if _, lerr := zapcore.ParseLevel(c.Log.Level); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("config: %w", lerr))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("config: unknown log.format %q", c.Log.Format))
	}
	if err != nil {
		return errs.NewValidationError(err)
	}
	return nil
}

// NewLogger builds the logger described by log.level and log.format.
func (c *Config) NewLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	return zc.Build()
}

// Middlewares 返回按照配置组装的 middleware。日志在最外层，耗时包含限流等待和重试
func (c *Config) Middlewares(l *zap.Logger) []erest.Middleware {
	ms := []erest.Middleware{querylog.NewZapBuilder(l).Build()}
	if c.RateLimit.RPS > 0 {
		ms = append(ms, ratelimit.NewBuilder(c.RateLimit.RPS, c.RateLimit.Burst).Build())
	}
	if c.Retry.MaxAttempts > 1 {
		rb := retry.NewBuilder().MaxAttempts(c.Retry.MaxAttempts)
		if c.Retry.InitialInterval > 0 {
			rb = rb.InitialInterval(c.Retry.InitialInterval)
		}
		ms = append(ms, rb.Build())
	}
	return ms
}

// NewClient validates c and opens a client. opts are applied after the
// configured ones.
func (c *Config) NewClient(l *zap.Logger, opts ...erest.ClientOption) (*erest.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = zap.NewNop()
	}
	base := []erest.ClientOption{
		erest.WithHTTPClient(&http.Client{Timeout: c.Timeout}),
		erest.WithLogger(l),
		erest.WithMiddlewares(c.Middlewares(l)...),
	}
	if c.Schema != "" {
		base = append(base, erest.WithSchema(c.Schema))
	}
	return erest.Open(c.URL, c.AnonKey, append(base, opts...)...)
}

// OpenBucket returns the configured bucket with its upload restrictions.
func (c *Config) OpenBucket(client *erest.Client) *erest.Bucket {
	return client.Storage().From(c.Bucket.Name,
		erest.WithMaxFileSize(c.Bucket.MaxFileSize),
		erest.WithAllowedMIMETypes(c.Bucket.AllowedMIMETypes...))
}
