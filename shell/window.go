// Package shell implements the window management state machine on top
// of the surface registry: configure/ack negotiation for toplevels and
// the stricter popup lifecycle. The shell is the authority on window
// geometry; buffers and damage stay with the surface registry.
package shell

import (
	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/wire"
)

// WindowState is the explicit lifecycle state of a toplevel. Illegal
// transitions are rejected at runtime instead of being representable
// as flag soup
type WindowState int

const (
	StateUnconfigured = WindowState(iota)
	StateConfigured
	StateMapped
	StateClosing
	StateDestroyed
)

func (s WindowState) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateMapped:
		return "mapped"
	case StateClosing:
		return "closing"
	case StateDestroyed:
		return "destroyed"
	default:
		return "invalid"
	}
}

// Mode is the display mode of a mapped toplevel
type Mode int

const (
	ModeNormal = Mode(iota)
	ModeMaximized
	ModeFullscreen
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeMaximized:
		return "maximized"
	case ModeFullscreen:
		return "fullscreen"
	default:
		return "invalid"
	}
}

// configure is one proposed size/state change sent to the client,
// identified by its serial. It stays pending until the client acks it
// or a newer configure supersedes it
type configure struct {
	serial uint32
	size   generaldata.Vector2i
	mode   Mode
	states wire.WindowState
	// Target position applied together with the ack, for mode changes
	// that move the window (fullscreen onto an output, restore)
	pos  generaldata.Vector2i
	move bool
}

// Window wraps exactly one surface with toplevel role
type Window struct {
	surface wire.SurfaceID

	title string
	appID string

	state     WindowState
	mode      Mode
	activated bool

	// Position in global layout coordinates and the applied
	// (acknowledged) size
	pos  generaldata.Vector2i
	size generaldata.Vector2i

	// Geometry to restore when leaving maximized or fullscreen
	savedPos  generaldata.Vector2i
	savedSize generaldata.Vector2i

	// Configures sent but not yet acknowledged, oldest first
	pending []configure
	// The latest acknowledged configure, applied on the next commit
	acked      *configure
	lastSerial uint32
	lastAcked  uint32
}

func (w *Window) Surface() wire.SurfaceID { return w.surface }
func (w *Window) Title() string           { return w.title }
func (w *Window) AppID() string           { return w.appID }
func (w *Window) State() WindowState      { return w.state }
func (w *Window) Mode() Mode              { return w.mode }
func (w *Window) Activated() bool         { return w.activated }
func (w *Window) Mapped() bool            { return w.state == StateMapped }

func (w *Window) Position() generaldata.Vector2i { return w.pos }
func (w *Window) Size() generaldata.Vector2i     { return w.size }

// Geometry is the window rectangle in global layout coordinates
func (w *Window) Geometry() generaldata.Rect {
	return generaldata.Rect{Pos: w.pos, Size: w.size}
}

// MoveTo places the window. Placement is compositor policy, no client
// round trip involved
func (w *Window) MoveTo(pos generaldata.Vector2i) {
	w.pos = pos
}

// stateFlags renders the mode plus activation into configure flags
func (w *Window) stateFlags(mode Mode) wire.WindowState {
	var states wire.WindowState
	switch mode {
	case ModeMaximized:
		states |= wire.StateMaximized
	case ModeFullscreen:
		states |= wire.StateFullscreen
	}
	if w.activated {
		states |= wire.StateActivated
	}
	return states
}
