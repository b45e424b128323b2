package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/swaywm/go-wlroots/wlroots"

	"github.com/aurorawm/aurora/backend"
	"github.com/aurorawm/aurora/backend/virtual"
	"github.com/aurorawm/aurora/backend/wlr"
	"github.com/aurorawm/aurora/comp"
	"github.com/aurorawm/aurora/config"
	"github.com/aurorawm/aurora/wire"
)

// Evdev keycodes for the default compositor bindings
const (
	keyEsc = 1
	keyF1  = 59
)

func fatal(msg string, err error) {
	fmt.Printf("error %s: %s\n", msg, err)
	os.Exit(1)
}

// buildBackend picks the presentation variant from the config
func buildBackend(conf *config.Config) (backend.Backend, backend.Renderer, error) {
	switch conf.Backend {
	case config.BackendWlr:
		wlroots.OnLog(wlroots.LogImportanceError, func(importance wlroots.LogImportance, msg string) {
			switch importance {
			case wlroots.LogImportanceDebug:
				logrus.Debugln(msg)
			case wlroots.LogImportanceInfo:
				logrus.Infoln(msg)
			case wlroots.LogImportanceError:
				logrus.Errorln(msg)
			case wlroots.LogImportanceSilent:
				return
			}
		})
		b, err := wlr.New()
		if err != nil {
			return nil, nil, err
		}
		return b, b.Renderer(), nil

	default:
		outputs := make([]virtual.OutputConfig, 0, len(conf.Outputs))
		for _, oc := range conf.Outputs {
			outputs = append(outputs, virtual.OutputConfig{
				Name:       oc.Name,
				Width:      oc.Width,
				Height:     oc.Height,
				RefreshMHz: oc.RefreshMHz,
				Scale:      oc.Scale,
			})
		}
		b := virtual.New(time.Second/60, outputs...)
		return b, virtual.Discard{}, nil
	}
}

func wlMain(conf *config.Config) {
	b, renderer, err := buildBackend(conf)
	if err != nil {
		fatal("initializing backend", err)
	}

	server := comp.NewServer(b, renderer, wire.LogSink{})
	server.SetKeybinding(func(key uint32, mods wire.Modifiers) bool {
		if mods&wire.ModAlt == 0 {
			return false
		}
		switch key {
		case keyEsc:
			server.Stop()
			return true
		case keyF1:
			server.WM().Next()
			return true
		}
		return false
	})

	switch conf.StartType {
	case config.START_REPL:
		go replRunner(server)
	case config.START_SINGLE_COMMAND:
		if conf.StartCommand == nil {
			logrus.Warnln("Single command start requested but no command configured")
			break
		}
		go runStartCommand(*conf.StartCommand)
	case config.START_NONE:
	}

	logrus.WithField("backend", conf.Backend).Infoln("Running compositor")
	if err = server.Run(context.Background()); err != nil && err != context.Canceled {
		fatal("running compositor", err)
	}
}

func runStartCommand(cmdString string) {
	cmd := exec.Command("/bin/sh", "-c", cmdString)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).WithField("command", cmdString).Errorln("Start command failed to launch")
		return
	}
	if err := cmd.Wait(); err != nil {
		if exiterr, ok := err.(*exec.ExitError); ok {
			logrus.WithError(err).WithFields(logrus.Fields{
				"exit-code": exiterr.ExitCode(),
				"command":   cmdString,
			}).Warningln("Bad start command completion")
		}
	}
}
