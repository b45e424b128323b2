package comp

import (
	"github.com/sirupsen/logrus"

	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/seat"
	"github.com/aurorawm/aurora/shell"
	"github.com/aurorawm/aurora/surface"
	"github.com/aurorawm/aurora/wire"
)

// SurfaceAt is the seat's hit test: popups above everything, then
// toplevels, both topmost first. A point outside a surface's input
// region falls through to whatever is below
func (s *Server) SurfaceAt(x, y float64) (seat.Target, bool) {
	for _, p := range s.shell.MappedPopupsTopDown() {
		rect := s.shell.PopupGlobalRect(p)
		if !rect.ContainsF(x, y) {
			continue
		}
		if s.acceptsInput(p.Surface(), x-float64(rect.Pos.X), y-float64(rect.Pos.Y)) {
			return seat.Target{Surface: p.Surface(), Origin: rect.Pos}, true
		}
	}
	for _, w := range s.shell.MappedTopDown() {
		geo := w.Geometry()
		if !geo.ContainsF(x, y) {
			continue
		}
		if s.acceptsInput(w.Surface(), x-float64(geo.Pos.X), y-float64(geo.Pos.Y)) {
			return seat.Target{Surface: w.Surface(), Origin: geo.Pos}, true
		}
	}
	return seat.Target{}, false
}

func (s *Server) acceptsInput(id wire.SurfaceID, sx, sy float64) bool {
	sf, ok := s.reg.Get(id)
	if !ok {
		return false
	}
	return sf.AcceptsInputAt(sx, sy)
}

// globalRect resolves a surface's on screen rectangle, or false when
// it is not currently shown
func (s *Server) globalRect(id wire.SurfaceID) (generaldata.Rect, bool) {
	if w, ok := s.shell.Window(id); ok && w.Mapped() {
		return w.Geometry(), true
	}
	if p, ok := s.shell.Popup(id); ok && p.Mapped() {
		return s.shell.PopupGlobalRect(p), true
	}
	return generaldata.Rect{}, false
}

// damageGlobal distributes a region in layout coordinates onto every
// output it touches, translated into output local coordinates
func (s *Server) damageGlobal(reg generaldata.Region) {
	if reg.Empty() {
		return
	}
	for _, out := range s.layout.All() {
		geo := out.Geometry()
		for _, r := range reg.Rects() {
			hit := r.Intersect(geo)
			if hit.Empty() {
				continue
			}
			out.AddDamageRect(hit.Translate(generaldata.Vector2i{X: -geo.Pos.X, Y: -geo.Pos.Y}))
		}
	}
}

func (s *Server) damageGlobalRect(r generaldata.Rect) {
	var reg generaldata.Region
	reg.Add(r)
	s.damageGlobal(reg)
}

// handleSurfaceCommit turns a commit's surface local damage into
// output damage. Unmapped surfaces produce nothing visible yet
func (s *Server) handleSurfaceCommit(sf *surface.Surface) {
	rect, shown := s.globalRect(sf.ID())
	if !shown {
		return
	}
	dmg := sf.Committed.Damage
	if dmg.Empty() {
		// No damage listed means the whole surface changed
		s.damageGlobalRect(rect)
		return
	}
	s.damageGlobal(dmg.Translate(rect.Pos))
}

// handleMap runs when a toplevel becomes visible: place it, activate
// it, focus it
func (s *Server) handleMap(w *shell.Window) {
	if w.Position() == (generaldata.Vector2i{}) && w.Mode() == shell.ModeNormal {
		s.placeWindow(w)
	}
	s.damageGlobalRect(w.Geometry())
	s.wm.Activate(w)
	s.seat.SetKeyboardFocus(w.Surface())
	s.seat.RefreshPointerFocus()
	s.notify.Publish(Notification{Kind: "map", Surface: w.Surface()})
}

func (s *Server) handleUnmap(w *shell.Window) {
	s.damageGlobalRect(w.Geometry())
	s.wm.Prune()
	s.seat.RefreshPointerFocus()
	if active := s.wm.Active(); active != nil && s.seat.KeyboardFocus() == w.Surface() {
		s.seat.SetKeyboardFocus(active.Surface())
	}
	s.notify.Publish(Notification{Kind: "unmap", Surface: w.Surface()})
}

// placeWindow puts a fresh toplevel on the output under the pointer,
// roughly centered and clamped to stay inside
func (s *Server) placeWindow(w *shell.Window) {
	x, y := s.seat.PointerPosition()
	out := s.layout.At(x, y)
	if out == nil {
		out = s.layout.First()
	}
	if out == nil {
		return
	}
	geo := out.Geometry()
	size := w.Size()
	pos := generaldata.Vector2i{
		X: geo.Pos.X + (geo.Size.X-size.X)/2,
		Y: geo.Pos.Y + (geo.Size.Y-size.Y)/2,
	}
	pos.X = max(pos.X, geo.Pos.X)
	pos.Y = max(pos.Y, geo.Pos.Y)
	w.MoveTo(pos)
	logrus.WithFields(logrus.Fields{
		"surface": w.Surface(),
		"output":  out.Name(),
		"pos":     pos,
	}).Debugln("Window placed")
}

func (s *Server) handleSurfaceDestroy(id wire.SurfaceID) {
	s.seat.SurfaceDestroyed(id)
	s.seat.RefreshPointerFocus()
	s.wm.Prune()
}
