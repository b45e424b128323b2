// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package wire

import (
	generaldata "github.com/aurorawm/aurora/general-data"
)

// WindowState flags advertised in a configure event
type WindowState uint32

const (
	StateMaximized = WindowState(1 << iota)
	StateFullscreen
	StateActivated
	StateResizing
)

// EventSink is where the engine emits decoded protocol events. The
// serialization layer implements this and turns calls into wayland
// events on the right client connection
type EventSink interface {
	// Configure proposes a new size and state set to a toplevel.
	// The client answers with an AckConfigure carrying the serial
	Configure(surface SurfaceID, serial uint32, size generaldata.Vector2i, states WindowState)
	// PopupConfigure places a popup relative to its parent
	PopupConfigure(surface SurfaceID, serial uint32, rect generaldata.Rect)
	// Closed asks a toplevel to close itself
	Closed(surface SurfaceID)
	// PopupDone tells the client its popup was dismissed
	PopupDone(surface SurfaceID)

	PointerEnter(surface SurfaceID, x, y float64)
	PointerLeave(surface SurfaceID)
	PointerMotion(surface SurfaceID, time uint32, x, y float64)
	PointerButton(surface SurfaceID, time uint32, button uint32, state ButtonState)
	PointerAxis(surface SurfaceID, time uint32, horizontal bool, delta float64)

	KeyboardEnter(surface SurfaceID, pressed []uint32)
	KeyboardLeave(surface SurfaceID)
	KeyboardKey(surface SurfaceID, time uint32, key uint32, state KeyState)
	KeyboardModifiers(surface SurfaceID, mods Modifiers)

	TouchDown(surface SurfaceID, time uint32, touch int32, x, y float64)
	TouchUp(surface SurfaceID, time uint32, touch int32)
	TouchMotion(surface SurfaceID, time uint32, touch int32, x, y float64)
	TouchCancel(surface SurfaceID)
}
