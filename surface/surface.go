// Package surface owns the tree of client visible surfaces and their
// double buffered state. The registry is the authority on buffers and
// damage; window geometry negotiation lives in the shell package.
package surface

import (
	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/wire"
)

type Role int

const (
	RoleNone = Role(iota)
	RoleCursor
	RoleToplevel
	RolePopup
	RoleLayer
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleCursor:
		return "cursor"
	case RoleToplevel:
		return "toplevel"
	case RolePopup:
		return "popup"
	case RoleLayer:
		return "layer"
	default:
		return "invalid"
	}
}

// State is the set of surface properties that commit atomically.
// A surface carries one pending and one committed copy
type State struct {
	Buffer *wire.Buffer
	Damage generaldata.Region
	// InputRegion only applies while InputRegionSet is true. An unset
	// input region means the whole surface accepts input
	InputRegion    generaldata.Region
	InputRegionSet bool
	OpaqueRegion   generaldata.Region
	Scale          int
	// Offset of the surface relative to its parent, for popups and
	// subsurfaces
	Offset generaldata.Vector2i
}

// copy returns a State that shares nothing with the receiver, so that a
// later mutation of pending state can never leak into committed state
func (s State) copy() State {
	out := s
	out.Damage = s.Damage.Copy()
	out.InputRegion = s.InputRegion.Copy()
	out.OpaqueRegion = s.OpaqueRegion.Copy()
	if s.Buffer != nil {
		buf := *s.Buffer
		out.Buffer = &buf
	}
	return out
}

type Surface struct {
	id     wire.SurfaceID
	client wire.ClientID
	role   Role

	Pending   State
	Committed State

	// Parent and children are id references, never pointers. A surface
	// does not own its parent and a dead parent must not keep children
	// alive
	parent   wire.SurfaceID
	children []wire.SurfaceID

	everCommitted bool
}

func (s *Surface) ID() wire.SurfaceID     { return s.id }
func (s *Surface) Client() wire.ClientID  { return s.client }
func (s *Surface) Role() Role             { return s.role }
func (s *Surface) Parent() wire.SurfaceID { return s.parent }
func (s *Surface) EverCommitted() bool    { return s.everCommitted }
func (s *Surface) Children() []wire.SurfaceID {
	return append([]wire.SurfaceID(nil), s.children...)
}

// Size returns the committed buffer size, or zero if no buffer is
// committed
func (s *Surface) Size() generaldata.Vector2i {
	if s.Committed.Buffer == nil {
		return generaldata.Vector2i{}
	}
	return s.Committed.Buffer.Size
}

// AcceptsInputAt reports whether the point, in surface local
// coordinates, hits the surface's input region. Pixels outside the
// input region are click through
func (s *Surface) AcceptsInputAt(x, y float64) bool {
	size := s.Size()
	bounds := generaldata.NewRect(0, 0, size.X, size.Y)
	if !bounds.ContainsF(x, y) {
		return false
	}
	if !s.Committed.InputRegionSet {
		return true
	}
	return s.Committed.InputRegion.ContainsF(x, y)
}
