// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package wire

import (
	"github.com/sirupsen/logrus"

	generaldata "github.com/aurorawm/aurora/general-data"
)

// LogSink is an EventSink that only logs. Used when the engine runs
// without a serialization layer attached, such as tool mode or a bare
// virtual session driven from the repl
type LogSink struct{}

func (LogSink) Configure(surface SurfaceID, serial uint32, size generaldata.Vector2i, states WindowState) {
	logrus.WithFields(logrus.Fields{
		"surface": surface,
		"serial":  serial,
		"size":    size,
	}).Debugln("configure")
}

func (LogSink) PopupConfigure(surface SurfaceID, serial uint32, rect generaldata.Rect) {
	logrus.WithFields(logrus.Fields{
		"surface": surface,
		"serial":  serial,
		"rect":    rect,
	}).Debugln("popup configure")
}

func (LogSink) Closed(surface SurfaceID) {
	logrus.WithField("surface", surface).Debugln("closed")
}

func (LogSink) PopupDone(surface SurfaceID) {
	logrus.WithField("surface", surface).Debugln("popup done")
}

func (LogSink) PointerEnter(surface SurfaceID, x, y float64) {}
func (LogSink) PointerLeave(surface SurfaceID)               {}

func (LogSink) PointerMotion(surface SurfaceID, time uint32, x, y float64) {}

func (LogSink) PointerButton(surface SurfaceID, time uint32, button uint32, state ButtonState) {}

func (LogSink) PointerAxis(surface SurfaceID, time uint32, horizontal bool, delta float64) {}

func (LogSink) KeyboardEnter(surface SurfaceID, pressed []uint32) {}
func (LogSink) KeyboardLeave(surface SurfaceID)                   {}

func (LogSink) KeyboardKey(surface SurfaceID, time uint32, key uint32, state KeyState) {}

func (LogSink) KeyboardModifiers(surface SurfaceID, mods Modifiers) {}

func (LogSink) TouchDown(surface SurfaceID, time uint32, touch int32, x, y float64) {}

func (LogSink) TouchUp(surface SurfaceID, time uint32, touch int32) {}

func (LogSink) TouchMotion(surface SurfaceID, time uint32, touch int32, x, y float64) {}

func (LogSink) TouchCancel(surface SurfaceID) {}
