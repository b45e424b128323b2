package surface

import (
	"errors"

	"github.com/sirupsen/logrus"

	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/wire"
)

var (
	// ErrInvalidRole means a role constraint was violated, for example
	// assigning a second role to a surface. Tolerated at the loop
	// boundary, never fatal
	ErrInvalidRole = errors.New("invalid surface role")
	// ErrUnsupportedBuffer means the attached buffer does not match the
	// backend's capabilities. The prior committed buffer stays intact
	ErrUnsupportedBuffer = errors.New("unsupported buffer")
	// ErrNoSuchSurface means the id does not name a live surface
	ErrNoSuchSurface = errors.New("no such surface")
)

// BufferCaps describes what the backend can scan out or import.
// AttachBuffer validates against it
type BufferCaps struct {
	Formats []wire.PixelFormat
	MaxSize generaldata.Vector2i
}

func (c BufferCaps) supports(buf wire.Buffer) bool {
	if buf.Size.X <= 0 || buf.Size.Y <= 0 {
		return false
	}
	if c.MaxSize.X > 0 && (buf.Size.X > c.MaxSize.X || buf.Size.Y > c.MaxSize.Y) {
		return false
	}
	if len(c.Formats) == 0 {
		return true
	}
	for _, f := range c.Formats {
		if f == buf.Format {
			return true
		}
	}
	return false
}

// Registry is an arena of surfaces indexed by id. Parent and child
// links are id references so destruction can never leave a dangling
// pointer, only an orphaned id
type Registry struct {
	surfaces map[wire.SurfaceID]*Surface
	nextID   wire.SurfaceID
	caps     BufferCaps

	onCommit  []func(*Surface)
	onDestroy []func(wire.SurfaceID)
}

func NewRegistry(caps BufferCaps) *Registry {
	return &Registry{
		surfaces: make(map[wire.SurfaceID]*Surface),
		nextID:   1,
		caps:     caps,
	}
}

// OnCommit registers a listener called after every successful commit.
// The shell uses this for map semantics and the loop for damage
func (reg *Registry) OnCommit(fn func(*Surface)) {
	reg.onCommit = append(reg.onCommit, fn)
}

// OnDestroy registers a listener called while a surface is being
// destroyed. Focus holders use this to drop their references in the
// same update
func (reg *Registry) OnDestroy(fn func(wire.SurfaceID)) {
	reg.onDestroy = append(reg.onDestroy, fn)
}

func (reg *Registry) Create(client wire.ClientID) *Surface {
	s := &Surface{
		id:        reg.nextID,
		client:    client,
		Pending:   State{Scale: 1},
		Committed: State{Scale: 1},
	}
	reg.nextID++
	reg.surfaces[s.id] = s
	return s
}

func (reg *Registry) Get(id wire.SurfaceID) (*Surface, bool) {
	s, ok := reg.surfaces[id]
	return s, ok
}

// Alive reports whether the id names a live surface
func (reg *Registry) Alive(id wire.SurfaceID) bool {
	_, ok := reg.surfaces[id]
	return ok
}

// All returns every live surface in no particular order
func (reg *Registry) All() []*Surface {
	out := make([]*Surface, 0, len(reg.surfaces))
	for _, s := range reg.surfaces {
		out = append(out, s)
	}
	return out
}

// SetRole assigns a role to a surface. A surface has at most one role
// for its lifetime; reassigning a different role fails with
// ErrInvalidRole, re-assigning the same role is a no-op
func (reg *Registry) SetRole(id wire.SurfaceID, role Role, parent wire.SurfaceID) error {
	s, ok := reg.surfaces[id]
	if !ok {
		return ErrNoSuchSurface
	}
	if s.role != RoleNone {
		if s.role == role && s.parent == parent {
			return nil
		}
		return ErrInvalidRole
	}
	if parent != wire.NoSurface {
		p, ok := reg.surfaces[parent]
		if !ok {
			return ErrInvalidRole
		}
		// A surface must not become its own ancestor
		for cursor := p; cursor != nil; {
			if cursor.id == id {
				return ErrInvalidRole
			}
			cursor = reg.surfaces[cursor.parent]
		}
		s.parent = parent
		p.children = append(p.children, id)
	}
	s.role = role
	return nil
}

// AttachBuffer stages a buffer into the pending state. A nil buffer is
// a valid null attach. Invalid buffers are rejected without touching
// any state
func (reg *Registry) AttachBuffer(id wire.SurfaceID, buf *wire.Buffer) error {
	s, ok := reg.surfaces[id]
	if !ok {
		return ErrNoSuchSurface
	}
	if buf != nil && !reg.caps.supports(*buf) {
		logrus.WithFields(logrus.Fields{
			"surface": id,
			"format":  buf.Format,
			"size":    buf.Size,
		}).Warnln("Rejecting buffer outside backend capabilities")
		return ErrUnsupportedBuffer
	}
	s.Pending.Buffer = buf
	return nil
}

// Commit atomically promotes the pending state to committed. The
// committed state visible afterwards is exactly the pending state as a
// unit, never a mix of two commits
func (reg *Registry) Commit(id wire.SurfaceID) error {
	s, ok := reg.surfaces[id]
	if !ok {
		return ErrNoSuchSurface
	}
	s.Committed = s.Pending.copy()
	s.Pending.Damage.Clear()
	s.everCommitted = true
	for _, fn := range reg.onCommit {
		fn(s)
	}
	return nil
}

// Destroy removes a surface. It detaches from the parent, orphans all
// children (their parent becomes NoSurface, they stay alive) and runs
// the destroy listeners before the id disappears, so focus holders can
// clear their references in the same update
func (reg *Registry) Destroy(id wire.SurfaceID) {
	s, ok := reg.surfaces[id]
	if !ok {
		return
	}
	if p, ok := reg.surfaces[s.parent]; ok {
		for i, child := range p.children {
			if child == id {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	// Forward walk only: children are orphaned, never followed back up
	for _, child := range s.children {
		if c, ok := reg.surfaces[child]; ok {
			c.parent = wire.NoSurface
		}
	}
	for _, fn := range reg.onDestroy {
		fn(id)
	}
	delete(reg.surfaces, id)
	logrus.WithField("surface", id).Debugln("Surface destroyed")
}

// DestroyClient tears down every surface belonging to one client.
// Containment for a misbehaving client: other clients are unaffected
func (reg *Registry) DestroyClient(client wire.ClientID) {
	var ids []wire.SurfaceID
	for id, s := range reg.surfaces {
		if s.client == client {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		reg.Destroy(id)
	}
	if len(ids) > 0 {
		logrus.WithFields(logrus.Fields{
			"client":   client,
			"surfaces": len(ids),
		}).Infoln("Destroyed client surfaces")
	}
}
