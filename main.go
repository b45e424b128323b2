// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/aurorawm/aurora/config"
)

var (
	configPath = flag.String("config", "", "Path to the config file. Default is the XDG config location")
	toolMode   = flag.Bool("tool", false, "Start as a tool instead of a compositor")
	help       = flag.Bool("help", false, "Show the help message")
	backendSel = flag.String("backend", "", "Backend to use: virtual or wlr. Overrides the config")
)

func main() {
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatalln("Loading config")
	}
	if *backendSel != "" {
		conf.Backend = config.BackendType(*backendSel)
	}
	logrus.SetLevel(conf.Level())

	if *toolMode {
		utilMain(conf)
		return
	}
	wlMain(conf)
}
