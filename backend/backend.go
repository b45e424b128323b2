// Package backend abstracts how frames are presented and where device
// events come from. The loop depends only on this interface; the
// windowed/virtual and direct hardware variants live in subpackages
// and deliver the same event vocabulary.
package backend

import (
	"errors"

	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/output"
	"github.com/aurorawm/aurora/surface"
	"github.com/aurorawm/aurora/wire"
)

var (
	// ErrOutputNotReady means mode setting is mid transition (hot plug
	// race). Retry on the next scheduling tick, never fatal
	ErrOutputNotReady = errors.New("output not ready")
	// ErrTransient is any other backend hiccup worth retrying
	ErrTransient = errors.New("transient backend error")
	// ErrFatal means an output or the whole backend is permanently
	// gone. Affected windows are migrated or unmapped; only a backend
	// wide fatal error terminates the process
	ErrFatal = errors.New("fatal backend error")
)

// RenderTarget is one output's framebuffer for the duration of a
// single frame. Owned exclusively by the caller between BeginFrame and
// Present, then returned to the backend's pool; never retained across
// ticks
type RenderTarget interface {
	Size() generaldata.Vector2i
}

// RenderItem is one committed surface buffer ready for composition
type RenderItem struct {
	Buffer wire.Buffer
	// Destination rectangle in output local coordinates
	Dst generaldata.Rect
	// Damage in output local coordinates
	Damage generaldata.Region
}

// Renderer draws a frame. The GPU internals behind it are not this
// module's business; the virtual backend ships a recording renderer
type Renderer interface {
	Render(target RenderTarget, items []RenderItem, damage generaldata.Region) error
}

// Backend is the capability set every presentation variant implements
type Backend interface {
	// Start brings up the backend and begins delivering events
	Start() error
	// Events is the single serialized stream of device and output
	// events. All sources are merged before they reach the loop
	Events() <-chan Event
	// Caps describes what buffers the backend can take
	Caps() surface.BufferCaps
	// BeginFrame hands out the render target for one output, by the
	// backend's output name
	BeginFrame(name string) (RenderTarget, error)
	// Present flips the rendered frame onto the output
	Present(name string) error
	Close() error
}

// Event is a normalized backend event. Both variants speak exactly
// this vocabulary upward
type Event interface {
	backendEvent()
}

// OutputAdded announces a new display, physical or virtual
type OutputAdded struct {
	Name  string
	Mode  output.Mode
	Modes []output.Mode
	Scale float64
}

// OutputRemoved announces a hot unplug
type OutputRemoved struct {
	Name string
}

// Frame says an output is ready for the next frame, generally at its
// refresh rate
type Frame struct {
	Name string
}

// PointerMotion is a relative pointer delta
type PointerMotion struct {
	Time   uint32
	DX, DY float64
}

// PointerMotionAbsolute carries layout coordinates, already scaled by
// the variant
type PointerMotionAbsolute struct {
	Time uint32
	X, Y float64
}

type PointerButton struct {
	Time   uint32
	Button uint32
	State  wire.ButtonState
}

type PointerAxis struct {
	Time       uint32
	Horizontal bool
	Delta      float64
}

type KeyboardKey struct {
	Time  uint32
	Key   uint32
	State wire.KeyState
}

type KeyboardModifiers struct {
	Mods wire.Modifiers
}

type TouchDown struct {
	Time  uint32
	Touch int32
	X, Y  float64
}

type TouchMotion struct {
	Time  uint32
	Touch int32
	X, Y  float64
}

type TouchUp struct {
	Time  uint32
	Touch int32
}

func (OutputAdded) backendEvent()           {}
func (OutputRemoved) backendEvent()         {}
func (Frame) backendEvent()                 {}
func (PointerMotion) backendEvent()         {}
func (PointerMotionAbsolute) backendEvent() {}
func (PointerButton) backendEvent()         {}
func (PointerAxis) backendEvent()           {}
func (KeyboardKey) backendEvent()           {}
func (KeyboardModifiers) backendEvent()     {}
func (TouchDown) backendEvent()             {}
func (TouchMotion) backendEvent()           {}
func (TouchUp) backendEvent()               {}
