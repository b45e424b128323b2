// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type StartType int

const (
	// Start a repl in parallel for interacting with the compositor
	START_REPL = StartType(iota)
	// Execute a specific command on startup
	START_SINGLE_COMMAND
	// Start without any specific targets
	START_NONE
)

// BackendType selects how frames reach the screen
type BackendType string

const (
	// BackendVirtual runs against virtual outputs, no hardware needed
	BackendVirtual BackendType = "virtual"
	// BackendWlr drives real outputs and input devices through wlroots
	BackendWlr BackendType = "wlr"
)

// OutputConfig pins down one virtual output. Ignored by the wlr
// backend, which takes what the hardware offers
type OutputConfig struct {
	Name       string  `toml:"name"`
	Width      int     `toml:"width,omitempty"`
	Height     int     `toml:"height,omitempty"`
	RefreshMHz int     `toml:"refresh_mhz,omitempty"`
	Scale      float64 `toml:"scale,omitempty"`
}

type Config struct {
	StartType StartType `envconfig:"START_TYPE,omitempty" toml:"start_type,omitempty"`
	// What command to execute on start. Only matters if StartType is set to START_SINGLE_COMMAND
	StartCommand *string `envconfig:"START_COMMAND,omitempty" toml:"start_command,omitempty"`

	Backend  BackendType    `envconfig:"BACKEND,omitempty" toml:"backend,omitempty"`
	LogLevel string         `envconfig:"LOG_LEVEL,omitempty" toml:"log_level,omitempty"`
	Outputs  []OutputConfig `toml:"outputs,omitempty"`
}

// Default is what runs when no config file exists anywhere
func Default() *Config {
	return &Config{
		StartType: START_REPL,
		Backend:   BackendVirtual,
		LogLevel:  "info",
	}
}

// DefaultPath is the config location under the XDG config home
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "aurora", "config.toml")
}

// Load reads a TOML config. An empty path falls back to the XDG
// location, and a missing file there falls back to defaults
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			logrus.WithField("path", path).Debugln("No config file, using defaults")
			return Default(), nil
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	conf := Default()
	if err := toml.Unmarshal(raw, conf); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	logrus.WithField("path", path).Debugln("Config loaded")
	return conf, nil
}

// Level translates the configured log level for logrus, defaulting to
// info on junk input
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
