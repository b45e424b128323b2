package comp

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/aurorawm/aurora/backend"
	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/output"
	"github.com/aurorawm/aurora/shell"
	"github.com/aurorawm/aurora/wire"
)

// Run starts the backend and processes events until the context is
// cancelled, Stop is called, or the backend dies fatally. All engine
// state is owned by this goroutine
func (s *Server) Run(ctx context.Context) error {
	if err := s.backend.Start(); err != nil {
		return errors.Wrap(err, "starting backend")
	}
	defer s.backend.Close()
	defer s.notify.Close()
	// Whatever path Run exits through, callers blocked in Do must be
	// released
	defer s.Stop()

	events := s.backend.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.quit:
			return nil
		case ev, ok := <-events:
			if !ok {
				return errors.Wrap(backend.ErrFatal, "backend event stream closed")
			}
			s.handleEvent(ev)
		case req := <-s.requests:
			s.handleRequest(req)
		case fn := <-s.control:
			fn()
		}
	}
}

func (s *Server) handleEvent(ev backend.Event) {
	switch e := ev.(type) {
	case backend.OutputAdded:
		s.handleOutputAdded(e)
	case backend.OutputRemoved:
		s.handleOutputRemoved(e.Name)
	case backend.Frame:
		s.renderOutput(e.Name)

	case backend.PointerMotion:
		x, y := s.seat.PointerPosition()
		x, y = s.clampToLayout(x+e.DX, y+e.DY)
		s.seat.PointerMotion(e.Time, x, y)
	case backend.PointerMotionAbsolute:
		x, y := s.clampToLayout(e.X, e.Y)
		s.seat.PointerMotion(e.Time, x, y)
	case backend.PointerButton:
		recipient := s.seat.PointerButton(e.Time, e.Button, e.State)
		if e.State == wire.ButtonPressed {
			s.handlePress(recipient)
		}
	case backend.PointerAxis:
		s.seat.PointerAxis(e.Time, e.Horizontal, e.Delta)

	case backend.KeyboardKey:
		if s.keybinding != nil && e.State == wire.KeyPressed &&
			s.keybinding(e.Key, s.seat.Modifiers()) {
			return
		}
		s.seat.KeyboardKey(e.Time, e.Key, e.State)
	case backend.KeyboardModifiers:
		s.seat.KeyboardModifiers(e.Mods)

	case backend.TouchDown:
		bound := s.seat.TouchDown(e.Time, e.Touch, e.X, e.Y)
		s.handlePress(bound)
	case backend.TouchMotion:
		s.seat.TouchMotion(e.Time, e.Touch, e.X, e.Y)
	case backend.TouchUp:
		s.seat.TouchUp(e.Time, e.Touch)

	default:
		logrus.WithField("event", ev).Debugln("Unhandled backend event")
	}
}

// handlePress applies press policy: a grab held by a popup chain
// breaks when the press lands outside it, and a press on a toplevel
// activates it
func (s *Server) handlePress(target wire.SurfaceID) {
	s.shell.BreakGrabs(target)
	if target == wire.NoSurface {
		return
	}
	if w, ok := s.shell.Window(target); ok {
		s.wm.Activate(w)
		s.seat.SetKeyboardFocus(target)
	}
}

// clampToLayout keeps the cursor on some output. With no outputs the
// position passes through untouched
func (s *Server) clampToLayout(x, y float64) (float64, float64) {
	outputs := s.layout.All()
	if len(outputs) == 0 || s.layout.At(x, y) != nil {
		return x, y
	}
	// Snap to the nearest point inside the closest output
	best := outputs[0].Geometry()
	cx := clampF(x, float64(best.Pos.X), float64(best.Right()-1))
	cy := clampF(y, float64(best.Pos.Y), float64(best.Bottom()-1))
	bestDist := (cx-x)*(cx-x) + (cy-y)*(cy-y)
	bx, by := cx, cy
	for _, out := range outputs[1:] {
		geo := out.Geometry()
		cx = clampF(x, float64(geo.Pos.X), float64(geo.Right()-1))
		cy = clampF(y, float64(geo.Pos.Y), float64(geo.Bottom()-1))
		d := (cx-x)*(cx-x) + (cy-y)*(cy-y)
		if d < bestDist {
			bestDist = d
			bx, by = cx, cy
		}
	}
	return bx, by
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Server) handleOutputAdded(e backend.OutputAdded) {
	out := s.layout.AddAuto(e.Name, e.Mode, e.Modes, e.Scale)
	out.MarkAllDamaged()
	s.notify.Publish(Notification{Kind: "output-added", Output: e.Name})
}

// handleOutputRemoved drops the output and rescues the windows that
// were only visible on it: moved onto a remaining output when one
// exists, closed when the last display is gone
func (s *Server) handleOutputRemoved(name string) {
	out := s.layout.ByName(name)
	if out == nil {
		return
	}
	s.layout.Remove(out.ID())
	s.notify.Publish(Notification{Kind: "output-removed", Output: name})

	for _, w := range s.shell.MappedTopDown() {
		if s.visibleSomewhere(w.Geometry()) {
			continue
		}
		s.migrateWindow(w)
	}
	s.seat.RefreshPointerFocus()
	for _, remaining := range s.layout.All() {
		remaining.MarkAllDamaged()
	}
}

func (s *Server) visibleSomewhere(geo generaldata.Rect) bool {
	for _, out := range s.layout.All() {
		if out.Geometry().Intersects(geo) {
			return true
		}
	}
	return false
}

func (s *Server) migrateWindow(w *shell.Window) {
	dest := s.layout.First()
	if dest == nil {
		logrus.WithField("surface", w.Surface()).Infoln("No output left, closing window")
		s.shell.Close(w.Surface())
		return
	}
	geo := dest.Geometry()
	size := w.Size()
	pos := generaldata.Vector2i{
		X: geo.Pos.X + (geo.Size.X-size.X)/2,
		Y: geo.Pos.Y + (geo.Size.Y-size.Y)/2,
	}
	pos.X = max(pos.X, geo.Pos.X)
	pos.Y = max(pos.Y, geo.Pos.Y)
	w.MoveTo(pos)
	if w.Mode() != shell.ModeNormal {
		// Fullscreen or maximized geometry belonged to the dead
		// output, renegotiate against the new one
		s.shell.RequestMode(w.Surface(), w.Mode(), geo)
	}
	logrus.WithFields(logrus.Fields{
		"surface": w.Surface(),
		"output":  dest.Name(),
	}).Infoln("Window migrated off removed output")
}

// renderOutput composes one frame for the output if it has pending
// damage. Damage survives every failure path; it is only cleared once
// the frame actually made it to the screen
func (s *Server) renderOutput(name string) {
	out := s.layout.ByName(name)
	if out == nil {
		return
	}
	if !out.Dirty() {
		return
	}
	target, err := s.backend.BeginFrame(name)
	if err != nil {
		s.handleFrameError(out, "begin frame", err)
		return
	}
	items := s.renderItems(out)
	if err := s.renderer.Render(target, items, out.Damage()); err != nil {
		logrus.WithField("output", name).WithError(err).Warnln("Render failed, damage retained")
		return
	}
	if err := s.backend.Present(name); err != nil {
		s.handleFrameError(out, "present", err)
		return
	}
	out.ClearDamage()
	s.notify.Publish(Notification{Kind: "frame", Output: name})
}

func (s *Server) handleFrameError(out *output.Output, op string, err error) {
	switch {
	case errors.Is(err, backend.ErrOutputNotReady), errors.Is(err, backend.ErrTransient):
		logrus.WithFields(logrus.Fields{
			"output": out.Name(),
			"op":     op,
		}).WithError(err).Debugln("Frame deferred, damage retained")
	case errors.Is(err, backend.ErrFatal):
		logrus.WithField("output", out.Name()).WithError(err).Warnln("Output failed, removing")
		s.handleOutputRemoved(out.Name())
	default:
		logrus.WithField("output", out.Name()).WithError(err).Warnln("Frame failed, damage retained")
	}
}

// renderItems collects the visible buffers for one output in paint
// order: toplevels bottom up, then popups bottom up on top
func (s *Server) renderItems(out *output.Output) []backend.RenderItem {
	geo := out.Geometry()
	origin := generaldata.Vector2i{X: -geo.Pos.X, Y: -geo.Pos.Y}
	var items []backend.RenderItem

	appendItem := func(id wire.SurfaceID, rect generaldata.Rect) {
		if !rect.Intersects(geo) {
			return
		}
		sf, ok := s.reg.Get(id)
		if !ok || sf.Committed.Buffer == nil {
			return
		}
		dst := rect.Translate(origin)
		var dmg generaldata.Region
		for _, r := range out.Damage().Rects() {
			hit := r.Intersect(dst)
			if !hit.Empty() {
				dmg.Add(hit)
			}
		}
		items = append(items, backend.RenderItem{
			Buffer: *sf.Committed.Buffer,
			Dst:    dst,
			Damage: dmg,
		})
	}

	for _, w := range s.shell.MappedBottomUp() {
		appendItem(w.Surface(), w.Geometry())
	}
	for _, p := range s.shell.MappedPopupsBottomUp() {
		appendItem(p.Surface(), s.shell.PopupGlobalRect(p))
	}
	return items
}
