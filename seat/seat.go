// Package seat tracks input device state for one logical seat and
// routes events to surfaces: pointer focus follows hover, keyboard
// focus follows explicit activation, touch focus is bound per contact.
package seat

import (
	"github.com/sirupsen/logrus"

	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/wire"
)

// Target is a hit test result: the surface and its origin in global
// layout coordinates, for translating into surface local coordinates
type Target struct {
	Surface wire.SurfaceID
	Origin  generaldata.Vector2i
}

// Scene is the seat's read only view of the composited stacking order.
// SurfaceAt returns the topmost surface whose input region contains
// the point; surfaces are click through outside their input region
type Scene interface {
	SurfaceAt(x, y float64) (Target, bool)
}

type pointerState struct {
	x, y   float64
	focus  wire.SurfaceID
	origin generaldata.Vector2i
}

type keyboardState struct {
	focus   wire.SurfaceID
	pressed map[uint32]struct{}
	mods    wire.Modifiers
}

type touchPoint struct {
	surface wire.SurfaceID
	origin  generaldata.Vector2i
}

type cursorState struct {
	surface wire.SurfaceID
	hotspot generaldata.Vector2i
}

// Seat is the input router. It is only ever touched from the
// compositor loop goroutine
type Seat struct {
	name  string
	sink  wire.EventSink
	scene Scene

	pointer  pointerState
	keyboard keyboardState
	cursor   cursorState
	// Touch focus is per contact point, not global: the surface that
	// caught the down owns the contact until release
	touch map[int32]touchPoint
}

func NewSeat(name string, sink wire.EventSink, scene Scene) *Seat {
	return &Seat{
		name:  name,
		sink:  sink,
		scene: scene,
		keyboard: keyboardState{
			pressed: make(map[uint32]struct{}),
		},
		touch: make(map[int32]touchPoint),
	}
}

func (st *Seat) Name() string { return st.name }

// PointerPosition returns the pointer location in layout coordinates
func (st *Seat) PointerPosition() (float64, float64) {
	return st.pointer.x, st.pointer.y
}

// PointerFocus returns the surface currently under the pointer
func (st *Seat) PointerFocus() wire.SurfaceID {
	return st.pointer.focus
}

// KeyboardFocus returns the surface holding keyboard focus
func (st *Seat) KeyboardFocus() wire.SurfaceID {
	return st.keyboard.focus
}

// SetCursor installs a surface as the pointer image. The hotspot is
// the point inside the surface that sits on the pointer position, so
// the backend draws the buffer at pointer minus hotspot
func (st *Seat) SetCursor(id wire.SurfaceID, hotspot generaldata.Vector2i) {
	st.cursor = cursorState{surface: id, hotspot: hotspot}
}

// CursorSurface returns the current cursor surface, or NoSurface when
// the default cursor applies
func (st *Seat) CursorSurface() wire.SurfaceID {
	return st.cursor.surface
}

func (st *Seat) CursorHotspot() generaldata.Vector2i {
	return st.cursor.hotspot
}

// TouchFocus returns the surface bound to a contact id, or NoSurface
func (st *Seat) TouchFocus(touch int32) wire.SurfaceID {
	if tp, ok := st.touch[touch]; ok {
		return tp.surface
	}
	return wire.NoSurface
}

// PointerMotion moves the pointer and recomputes hover focus against
// the stacking order. On a focus change the old target gets its leave
// before the new target's enter, and the enter precedes any motion
// meant for the new target
func (st *Seat) PointerMotion(time uint32, x, y float64) {
	st.pointer.x = x
	st.pointer.y = y
	target, ok := st.scene.SurfaceAt(x, y)
	if !ok {
		st.clearPointerFocus()
		return
	}
	sx := x - float64(target.Origin.X)
	sy := y - float64(target.Origin.Y)
	if target.Surface != st.pointer.focus {
		if st.pointer.focus != wire.NoSurface {
			st.sink.PointerLeave(st.pointer.focus)
		}
		st.pointer.focus = target.Surface
		st.pointer.origin = target.Origin
		st.sink.PointerEnter(target.Surface, sx, sy)
	}
	st.pointer.origin = target.Origin
	st.sink.PointerMotion(target.Surface, time, sx, sy)
}

// PointerButton forwards a button event to the hover focus. Returns
// the surface that received it so the loop can apply activation and
// grab-breaking policy; press on nothing returns NoSurface
func (st *Seat) PointerButton(time uint32, button uint32, state wire.ButtonState) wire.SurfaceID {
	if st.pointer.focus == wire.NoSurface {
		return wire.NoSurface
	}
	st.sink.PointerButton(st.pointer.focus, time, button, state)
	return st.pointer.focus
}

// PointerAxis forwards a scroll event to the hover focus
func (st *Seat) PointerAxis(time uint32, horizontal bool, delta float64) {
	if st.pointer.focus == wire.NoSurface {
		return
	}
	st.sink.PointerAxis(st.pointer.focus, time, horizontal, delta)
}

func (st *Seat) clearPointerFocus() {
	if st.pointer.focus == wire.NoSurface {
		return
	}
	st.sink.PointerLeave(st.pointer.focus)
	st.pointer.focus = wire.NoSurface
}

// RefreshPointerFocus re-evaluates hover focus at the current pointer
// position, for when the scene changed under a motionless pointer
// (window mapped, unmapped or moved)
func (st *Seat) RefreshPointerFocus() {
	target, ok := st.scene.SurfaceAt(st.pointer.x, st.pointer.y)
	if !ok {
		st.clearPointerFocus()
		return
	}
	if target.Surface == st.pointer.focus {
		st.pointer.origin = target.Origin
		return
	}
	if st.pointer.focus != wire.NoSurface {
		st.sink.PointerLeave(st.pointer.focus)
	}
	st.pointer.focus = target.Surface
	st.pointer.origin = target.Origin
	st.sink.PointerEnter(target.Surface,
		st.pointer.x-float64(target.Origin.X),
		st.pointer.y-float64(target.Origin.Y))
}

// SetKeyboardFocus moves keyboard focus. Keyboard focus never follows
// hover; it follows explicit activation, so this is only called from
// window management policy. NoSurface clears focus
func (st *Seat) SetKeyboardFocus(id wire.SurfaceID) {
	if id == st.keyboard.focus {
		return
	}
	if st.keyboard.focus != wire.NoSurface {
		st.sink.KeyboardLeave(st.keyboard.focus)
	}
	st.keyboard.focus = id
	if id != wire.NoSurface {
		pressed := make([]uint32, 0, len(st.keyboard.pressed))
		for key := range st.keyboard.pressed {
			pressed = append(pressed, key)
		}
		st.sink.KeyboardEnter(id, pressed)
		st.sink.KeyboardModifiers(id, st.keyboard.mods)
	}
}

// KeyboardKey tracks the pressed set and forwards to the focus surface
func (st *Seat) KeyboardKey(time uint32, key uint32, state wire.KeyState) {
	switch state {
	case wire.KeyPressed:
		st.keyboard.pressed[key] = struct{}{}
	case wire.KeyReleased:
		delete(st.keyboard.pressed, key)
	}
	if st.keyboard.focus == wire.NoSurface {
		return
	}
	st.sink.KeyboardKey(st.keyboard.focus, time, key, state)
}

// KeyboardModifiers tracks and forwards the modifier state
func (st *Seat) KeyboardModifiers(mods wire.Modifiers) {
	st.keyboard.mods = mods
	if st.keyboard.focus == wire.NoSurface {
		return
	}
	st.sink.KeyboardModifiers(st.keyboard.focus, mods)
}

// Modifiers returns the current modifier state, for compositor
// keybindings
func (st *Seat) Modifiers() wire.Modifiers {
	return st.keyboard.mods
}

// TouchDown binds the contact id to the surface under the initial
// touch point, computed like pointer hit testing. The surface that
// caught the gesture owns it until release. Returns the bound surface
func (st *Seat) TouchDown(time uint32, touch int32, x, y float64) wire.SurfaceID {
	target, ok := st.scene.SurfaceAt(x, y)
	if !ok {
		return wire.NoSurface
	}
	st.touch[touch] = touchPoint{surface: target.Surface, origin: target.Origin}
	st.sink.TouchDown(target.Surface, time, touch,
		x-float64(target.Origin.X), y-float64(target.Origin.Y))
	return target.Surface
}

// TouchMotion routes to the surface bound at touch down, regardless of
// where the contact physically moved. Unbound ids are dropped, not
// rerouted: routing them anywhere else would leak input across clients
func (st *Seat) TouchMotion(time uint32, touch int32, x, y float64) {
	tp, ok := st.touch[touch]
	if !ok {
		logrus.WithField("touch", touch).Debugln("Dropping motion for unbound touch id")
		return
	}
	st.sink.TouchMotion(tp.surface, time, touch,
		x-float64(tp.origin.X), y-float64(tp.origin.Y))
}

// TouchUp releases the contact binding
func (st *Seat) TouchUp(time uint32, touch int32) {
	tp, ok := st.touch[touch]
	if !ok {
		logrus.WithField("touch", touch).Debugln("Dropping up for unbound touch id")
		return
	}
	st.sink.TouchUp(tp.surface, time, touch)
	delete(st.touch, touch)
}

// SurfaceDestroyed clears every focus reference to a dying surface in
// the same update that removes it. No leave events are sent, the
// surface is already gone from the client's point of view. Live touch
// contacts get a cancel instead: a contact ends with up or cancel,
// never silently
func (st *Seat) SurfaceDestroyed(id wire.SurfaceID) {
	if st.pointer.focus == id {
		st.pointer.focus = wire.NoSurface
	}
	if st.keyboard.focus == id {
		st.keyboard.focus = wire.NoSurface
	}
	if st.cursor.surface == id {
		st.cursor = cursorState{}
	}
	cancelled := false
	for touch, tp := range st.touch {
		if tp.surface == id {
			if !cancelled {
				st.sink.TouchCancel(id)
				cancelled = true
			}
			delete(st.touch, touch)
		}
	}
}
