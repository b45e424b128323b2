package shell

import (
	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/wire"
)

// PopupState follows a stricter machine than toplevels: once dismissed
// a popup never maps again and its id is never reused
type PopupState int

const (
	PopupConfigured = PopupState(iota)
	PopupMapped
	PopupDismissed
)

func (s PopupState) String() string {
	switch s {
	case PopupConfigured:
		return "configured"
	case PopupMapped:
		return "mapped"
	case PopupDismissed:
		return "dismissed"
	default:
		return "invalid"
	}
}

// DismissReason records why a popup went away, for the logs
type DismissReason int

const (
	DismissParentUnmapped = DismissReason(iota)
	DismissOutsideInput
	DismissClientRequest
	DismissSurfaceDestroyed
)

func (r DismissReason) String() string {
	switch r {
	case DismissParentUnmapped:
		return "parent unmapped"
	case DismissOutsideInput:
		return "grab broken by outside input"
	case DismissClientRequest:
		return "client request"
	case DismissSurfaceDestroyed:
		return "surface destroyed"
	default:
		return "invalid"
	}
}

// Popup wraps one surface with popup role, positioned relative to a
// parent surface
type Popup struct {
	surface wire.SurfaceID
	parent  wire.SurfaceID

	// Positioning constraint: anchor rectangle in parent surface
	// coordinates plus an offset from the anchor
	anchor generaldata.Rect
	offset generaldata.Vector2i

	state   PopupState
	grabbed bool

	// Popup rect relative to the parent surface, as last configured
	rect generaldata.Rect

	pending    []configure
	acked      *configure
	lastSerial uint32
	lastAcked  uint32
}

func (p *Popup) Surface() wire.SurfaceID { return p.surface }
func (p *Popup) Parent() wire.SurfaceID  { return p.parent }
func (p *Popup) State() PopupState       { return p.state }
func (p *Popup) Grabbed() bool           { return p.grabbed }
func (p *Popup) Mapped() bool            { return p.state == PopupMapped }

// Rect is the popup rectangle relative to its parent surface
func (p *Popup) Rect() generaldata.Rect { return p.rect }

// place resolves the positioning constraint against the parent size:
// the popup goes at anchor position plus offset, slid back so it stays
// inside the parent's bounds where possible
func (p *Popup) place(size, parentSize generaldata.Vector2i) generaldata.Rect {
	pos := p.anchor.Pos.Add(p.offset)
	if parentSize.X > 0 && pos.X+size.X > parentSize.X {
		pos.X = parentSize.X - size.X
	}
	if parentSize.Y > 0 && pos.Y+size.Y > parentSize.Y {
		pos.Y = parentSize.Y - size.Y
	}
	if pos.X < 0 {
		pos.X = 0
	}
	if pos.Y < 0 {
		pos.Y = 0
	}
	return generaldata.Rect{Pos: pos, Size: size}
}
