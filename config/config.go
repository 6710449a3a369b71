// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads storefront settings: defaults, then an optional
// YAML file named by STOREFRONT_CONFIG, then environment variables.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Poll struct {
	Counters     time.Duration `yaml:"counters"`
	Conversation time.Duration `yaml:"conversation"`
}

type Config struct {
	Port       string `yaml:"port"`
	ListenAddr string `yaml:"listen_addr"`
	BaseURL    string `yaml:"base_url"`

	BackendAddr    string        `yaml:"backend_api_addr"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`
	RedisURL       string        `yaml:"redis_url"`

	LogLevel       string `yaml:"log_level"`
	EnableTracing  bool   `yaml:"enable_tracing"`
	EnableProfiler bool   `yaml:"enable_profiler"`
	CollectorAddr  string `yaml:"collector_service_addr"`

	CookieMaxAge    int           `yaml:"cookie_max_age"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Poll            Poll          `yaml:"poll"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Port:            "8080",
		BackendTimeout:  10 * time.Second,
		LogLevel:        "debug",
		CookieMaxAge:    60 * 60 * 48,
		ShutdownTimeout: 10 * time.Second,
		Poll: Poll{
			Counters:     20 * time.Second,
			Conversation: time.Second,
		},
	}
}

// Load builds the configuration from getenv (os.Getenv in production).
func Load(getenv func(string) string) (Config, error) {
	cfg := Default()
	if path := getenv("STOREFRONT_CONFIG"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	str := func(target *string, key string) {
		if v := getenv(key); v != "" {
			*target = v
		}
	}
	flag := func(target *bool, key string) {
		if v := getenv(key); v != "" {
			*target = v == "1" || v == "true"
		}
	}
	str(&cfg.Port, "PORT")
	str(&cfg.ListenAddr, "LISTEN_ADDR")
	str(&cfg.BaseURL, "BASE_URL")
	str(&cfg.BackendAddr, "BACKEND_API_ADDR")
	str(&cfg.RedisURL, "REDIS_URL")
	str(&cfg.LogLevel, "LOG_LEVEL")
	str(&cfg.CollectorAddr, "COLLECTOR_SERVICE_ADDR")
	flag(&cfg.EnableTracing, "ENABLE_TRACING")
	flag(&cfg.EnableProfiler, "ENABLE_PROFILER")
	if v := getenv("COOKIE_MAX_AGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrap(err, "COOKIE_MAX_AGE")
		}
		cfg.CookieMaxAge = n
	}
	return cfg, cfg.Validate()
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if c.BackendAddr == "" {
		return errors.New(`environment variable "BACKEND_API_ADDR" not set`)
	}
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}
	if c.Poll.Counters <= 0 || c.Poll.Conversation <= 0 {
		return errors.New("poll intervals must be positive")
	}
	if c.CookieMaxAge <= 0 {
		return errors.New("cookie max age must be positive")
	}
	if c.BackendTimeout <= 0 {
		return errors.New("backend timeout must be positive")
	}
	return nil
}

// Level returns the parsed log level, debug when unparsable.
func (c Config) Level() logrus.Level {
	l, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.DebugLevel
	}
	return l
}

// SessionTTL is how long a stored token lives; it matches the cookie.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.CookieMaxAge) * time.Second
}
