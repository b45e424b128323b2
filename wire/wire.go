// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package wire holds the decoded protocol vocabulary exchanged with the
// serialization layer. The engine never sees wayland wire bytes, only
// these request and event values. Bit level compatibility is the
// serialization layer's problem
package wire

import (
	generaldata "github.com/aurorawm/aurora/general-data"
)

// ClientID identifies one client connection
type ClientID uint32

// SurfaceID identifies one surface object. IDs are allocated by the
// surface registry and never reused within a session
type SurfaceID uint32

// NoSurface is the zero SurfaceID, meaning "no surface"
const NoSurface = SurfaceID(0)

type PixelFormat int

const (
	FormatARGB8888 = PixelFormat(iota)
	FormatXRGB8888
	FormatRGB565
)

// A client buffer as handed over by the serialization layer. Handle is
// opaque to the engine and only forwarded to the renderer
type Buffer struct {
	Handle uint64
	Format PixelFormat
	Size   generaldata.Vector2i
}

type ButtonState int

const (
	ButtonReleased = ButtonState(iota)
	ButtonPressed
)

type KeyState int

const (
	KeyReleased = KeyState(iota)
	KeyPressed
)

// Modifier bitmask, xkb style
type Modifiers uint32

const (
	ModShift = Modifiers(1 << iota)
	ModCtrl
	ModAlt
	ModLogo
)
