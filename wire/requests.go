// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package wire

import (
	generaldata "github.com/aurorawm/aurora/general-data"
)

// Request is a decoded client request. The serialization layer feeds
// these into the compositor loop one at a time
type Request interface {
	Client() ClientID
}

// Base carries the fields every request has
type Base struct {
	From ClientID
}

func (b Base) Client() ClientID { return b.From }

type CreateSurface struct {
	Base
}

type DestroySurface struct {
	Base
	Surface SurfaceID
}

type AttachBuffer struct {
	Base
	Surface SurfaceID
	// Nil means the client attached a null buffer (unmap request)
	Buffer *Buffer
}

type Commit struct {
	Base
	Surface SurfaceID
}

type SetDamage struct {
	Base
	Surface SurfaceID
	Damage  generaldata.Region
}

type SetInputRegion struct {
	Base
	Surface SurfaceID
	Region  generaldata.Region
}

type SetOpaqueRegion struct {
	Base
	Surface SurfaceID
	Region  generaldata.Region
}

type SetToplevelRole struct {
	Base
	Surface SurfaceID
}

type SetPopupRole struct {
	Base
	Surface SurfaceID
	Parent  SurfaceID
	// Anchor rectangle in parent surface coordinates plus an offset,
	// enough to position the popup without the full xdg positioner
	Anchor generaldata.Rect
	Offset generaldata.Vector2i
}

type SetCursorRole struct {
	Base
	Surface SurfaceID
	Hotspot generaldata.Vector2i
}

type AckConfigure struct {
	Base
	Surface SurfaceID
	Serial  uint32
}

type SetTitle struct {
	Base
	Surface SurfaceID
	Title   string
}

type SetAppID struct {
	Base
	Surface SurfaceID
	AppID   string
}

type SetMaximized struct {
	Base
	Surface SurfaceID
	// False requests a return to normal
	Maximized bool
}

type SetFullscreen struct {
	Base
	Surface SurfaceID
	// False requests a return to normal
	Fullscreen bool
}

type GrabPopup struct {
	Base
	Surface SurfaceID
	Serial  uint32
}

type DismissPopup struct {
	Base
	Surface SurfaceID
}
