package shell

import (
	"errors"

	"github.com/sirupsen/logrus"

	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/surface"
	"github.com/aurorawm/aurora/wire"
)

// ErrStaleAck means the client acknowledged a serial that is unknown or
// was withdrawn by a newer configure. A client race, not an attack:
// logged and ignored, never fatal
var ErrStaleAck = errors.New("stale configure ack")

// ErrNotAWindow means the surface has no toplevel or popup attached
var ErrNotAWindow = errors.New("surface has no window role")

// Shell owns every toplevel and popup and drives their state machines
// from surface commits and client requests. All geometry negotiation
// and serial bookkeeping happens here
type Shell struct {
	reg  *surface.Registry
	sink wire.EventSink

	serial uint32

	windows map[wire.SurfaceID]*Window
	popups  map[wire.SurfaceID]*Popup

	// Mapped toplevels bottom to top
	stack []*Window
	// Mapped popups bottom to top, always above every toplevel
	popupStack []*Popup
	// Active popup grab chain, oldest first
	grabs []*Popup

	onMap   []func(*Window)
	onUnmap []func(*Window)
}

func NewShell(reg *surface.Registry, sink wire.EventSink) *Shell {
	sh := &Shell{
		reg:     reg,
		sink:    sink,
		windows: make(map[wire.SurfaceID]*Window),
		popups:  make(map[wire.SurfaceID]*Popup),
	}
	reg.OnCommit(sh.handleCommit)
	reg.OnDestroy(sh.handleDestroy)
	return sh
}

// OnMap registers a listener for windows becoming visible. The loop
// uses this for placement and damage
func (sh *Shell) OnMap(fn func(*Window)) {
	sh.onMap = append(sh.onMap, fn)
}

// OnUnmap registers a listener for windows leaving the screen
func (sh *Shell) OnUnmap(fn func(*Window)) {
	sh.onUnmap = append(sh.onUnmap, fn)
}

func (sh *Shell) nextSerial() uint32 {
	sh.serial++
	return sh.serial
}

// Window returns the toplevel wrapping the surface, if any
func (sh *Shell) Window(id wire.SurfaceID) (*Window, bool) {
	w, ok := sh.windows[id]
	return w, ok
}

// Popup returns the popup wrapping the surface, if any
func (sh *Shell) Popup(id wire.SurfaceID) (*Popup, bool) {
	p, ok := sh.popups[id]
	return p, ok
}

// Windows returns every live toplevel, mapped or not
func (sh *Shell) Windows() []*Window {
	out := make([]*Window, 0, len(sh.windows))
	for _, w := range sh.windows {
		out = append(out, w)
	}
	return out
}

// MappedTopDown returns mapped toplevels for hit testing, topmost first
func (sh *Shell) MappedTopDown() []*Window {
	out := make([]*Window, 0, len(sh.stack))
	for i := len(sh.stack) - 1; i >= 0; i-- {
		out = append(out, sh.stack[i])
	}
	return out
}

// MappedBottomUp returns mapped toplevels in render order
func (sh *Shell) MappedBottomUp() []*Window {
	return sh.stack
}

// MappedPopupsTopDown returns mapped popups for hit testing, newest
// (topmost) first
func (sh *Shell) MappedPopupsTopDown() []*Popup {
	out := make([]*Popup, 0, len(sh.popupStack))
	for i := len(sh.popupStack) - 1; i >= 0; i-- {
		out = append(out, sh.popupStack[i])
	}
	return out
}

// MappedPopupsBottomUp returns mapped popups in render order
func (sh *Shell) MappedPopupsBottomUp() []*Popup {
	return sh.popupStack
}

// Raise moves a mapped window to the top of the stack
func (sh *Shell) Raise(w *Window) {
	for i, have := range sh.stack {
		if have == w {
			sh.stack = append(sh.stack[:i], sh.stack[i+1:]...)
			sh.stack = append(sh.stack, w)
			return
		}
	}
}

func (sh *Shell) removeFromStack(w *Window) {
	for i, have := range sh.stack {
		if have == w {
			sh.stack = append(sh.stack[:i], sh.stack[i+1:]...)
			return
		}
	}
}

// CreateToplevel assigns the toplevel role to a surface and starts its
// lifecycle at Unconfigured
func (sh *Shell) CreateToplevel(id wire.SurfaceID) (*Window, error) {
	if err := sh.reg.SetRole(id, surface.RoleToplevel, wire.NoSurface); err != nil {
		return nil, err
	}
	if w, ok := sh.windows[id]; ok {
		return w, nil
	}
	w := &Window{surface: id, state: StateUnconfigured}
	sh.windows[id] = w
	logrus.WithField("surface", id).Debugln("New toplevel")
	return w, nil
}

// CreatePopup assigns the popup role and immediately sends the first
// popup configure, so popups begin life Configured
func (sh *Shell) CreatePopup(id, parent wire.SurfaceID, anchor generaldata.Rect, offset generaldata.Vector2i) (*Popup, error) {
	if _, ok := sh.windows[parent]; !ok {
		if _, ok := sh.popups[parent]; !ok {
			return nil, surface.ErrInvalidRole
		}
	}
	if err := sh.reg.SetRole(id, surface.RolePopup, parent); err != nil {
		return nil, err
	}
	p := &Popup{
		surface: id,
		parent:  parent,
		anchor:  anchor,
		offset:  offset,
		state:   PopupConfigured,
	}
	sh.popups[id] = p
	sh.sendPopupConfigure(p, anchor.Size)
	logrus.WithFields(logrus.Fields{
		"surface": id,
		"parent":  parent,
	}).Debugln("New popup")
	return p, nil
}

func (sh *Shell) parentSize(p *Popup) generaldata.Vector2i {
	if w, ok := sh.windows[p.parent]; ok {
		return w.size
	}
	if pp, ok := sh.popups[p.parent]; ok {
		return pp.rect.Size
	}
	return generaldata.Vector2i{}
}

func (sh *Shell) sendPopupConfigure(p *Popup, size generaldata.Vector2i) {
	serial := sh.nextSerial()
	rect := p.place(size, sh.parentSize(p))
	p.rect = rect
	p.pending = append(p.pending, configure{serial: serial, size: rect.Size})
	p.lastSerial = serial
	sh.sink.PopupConfigure(p.surface, serial, rect)
}

// sendConfigure transmits a proposed size/state to a toplevel and
// remembers it until acked or superseded
func (sh *Shell) sendConfigure(w *Window, size generaldata.Vector2i, mode Mode, pos generaldata.Vector2i, move bool) uint32 {
	serial := sh.nextSerial()
	cfg := configure{serial: serial, size: size, mode: mode, states: w.stateFlags(mode)}
	if move {
		cfg.pos = pos
		cfg.move = true
	}
	w.pending = append(w.pending, cfg)
	w.lastSerial = serial
	sh.sink.Configure(w.surface, serial, size, cfg.states)
	return serial
}

// Ack processes a configure acknowledgement. Only the latest pending
// serial chain is honored: acking serial S consumes S and withdraws
// everything older. A repeated ack of an already acknowledged serial
// is a no-op; an unknown or withdrawn serial is stale
func (sh *Shell) Ack(id wire.SurfaceID, serial uint32) error {
	if w, ok := sh.windows[id]; ok {
		return sh.ackWindow(w, serial)
	}
	if p, ok := sh.popups[id]; ok {
		return sh.ackPopup(p, serial)
	}
	return ErrNotAWindow
}

func (sh *Shell) ackWindow(w *Window, serial uint32) error {
	if serial == w.lastAcked {
		// Idempotent: re-sending an already acknowledged ack must not
		// trigger a duplicate transition
		return nil
	}
	for i, cfg := range w.pending {
		if cfg.serial == serial {
			acked := cfg
			w.acked = &acked
			w.lastAcked = serial
			w.pending = w.pending[i+1:]
			return nil
		}
	}
	logrus.WithFields(logrus.Fields{
		"surface": w.surface,
		"serial":  serial,
		"latest":  w.lastSerial,
	}).Debugln("Ignoring stale configure ack")
	return ErrStaleAck
}

func (sh *Shell) ackPopup(p *Popup, serial uint32) error {
	if serial == p.lastAcked {
		return nil
	}
	for i, cfg := range p.pending {
		if cfg.serial == serial {
			acked := cfg
			p.acked = &acked
			p.lastAcked = serial
			p.pending = p.pending[i+1:]
			return nil
		}
	}
	logrus.WithFields(logrus.Fields{
		"surface": p.surface,
		"serial":  serial,
	}).Debugln("Ignoring stale popup configure ack")
	return ErrStaleAck
}

func (sh *Shell) SetTitle(id wire.SurfaceID, title string) error {
	w, ok := sh.windows[id]
	if !ok {
		return ErrNotAWindow
	}
	w.title = title
	return nil
}

func (sh *Shell) SetAppID(id wire.SurfaceID, appID string) error {
	w, ok := sh.windows[id]
	if !ok {
		return ErrNotAWindow
	}
	w.appID = appID
	return nil
}

// RequestMode handles a client request to enter or leave maximized or
// fullscreen. The server computes the target geometry and transmits a
// configure with a fresh serial; the mode only changes once the client
// acks and commits. Applying it immediately would desynchronize the
// advertised size from what the client actually rendered
func (sh *Shell) RequestMode(id wire.SurfaceID, mode Mode, target generaldata.Rect) error {
	w, ok := sh.windows[id]
	if !ok {
		return ErrNotAWindow
	}
	if w.state == StateClosing || w.state == StateDestroyed {
		return nil
	}
	if mode != ModeNormal && w.mode == ModeNormal && w.state == StateMapped {
		w.savedPos = w.pos
		w.savedSize = w.size
	}
	size := target.Size
	pos := target.Pos
	if mode == ModeNormal {
		size = w.savedSize
		pos = w.savedPos
	}
	serial := sh.sendConfigure(w, size, mode, pos, true)
	logrus.WithFields(logrus.Fields{
		"surface": id,
		"mode":    mode,
		"size":    size,
		"serial":  serial,
	}).Debugln("Mode change configure sent")
	return nil
}

// Resize proposes a new geometry without touching the mode. Used for
// server side arrangement; takes effect on ack and commit like any
// other configure
func (sh *Shell) Resize(id wire.SurfaceID, target generaldata.Rect) error {
	w, ok := sh.windows[id]
	if !ok {
		return ErrNotAWindow
	}
	if w.state == StateClosing || w.state == StateDestroyed {
		return nil
	}
	sh.sendConfigure(w, target.Size, w.mode, target.Pos, true)
	return nil
}

// SetActivated flips the activation flag. Focus is server state and
// applies immediately; the configure just informs the client so it can
// repaint its decorations
func (sh *Shell) SetActivated(w *Window, activated bool) {
	if w.activated == activated {
		return
	}
	w.activated = activated
	if w.state == StateMapped || w.state == StateConfigured {
		sh.sendConfigure(w, w.size, w.mode, generaldata.Vector2i{}, false)
	}
}

// Close asks a toplevel to go away, or force-evicts it when the server
// has no output left for it. Any state may enter Closing
func (sh *Shell) Close(id wire.SurfaceID) {
	w, ok := sh.windows[id]
	if !ok {
		return
	}
	if w.state == StateClosing || w.state == StateDestroyed {
		return
	}
	wasMapped := w.state == StateMapped
	w.state = StateClosing
	sh.sink.Closed(w.surface)
	if wasMapped {
		sh.removeFromStack(w)
		sh.dismissChildren(w.surface, DismissParentUnmapped)
		for _, fn := range sh.onUnmap {
			fn(w)
		}
	}
	logrus.WithField("surface", id).Debugln("Window closing")
}

// handleCommit drives the state machines whenever a surface commits
func (sh *Shell) handleCommit(s *surface.Surface) {
	if w, ok := sh.windows[s.ID()]; ok {
		sh.commitWindow(w, s)
		return
	}
	if p, ok := sh.popups[s.ID()]; ok {
		sh.commitPopup(p, s)
	}
}

func (sh *Shell) commitWindow(w *Window, s *surface.Surface) {
	switch w.state {
	case StateUnconfigured:
		// First commit: send the initial configure. The window must
		// not map before acknowledging it, so a buffer in this commit
		// is tolerated but does not map anything
		sh.sendConfigure(w, generaldata.Vector2i{}, ModeNormal, generaldata.Vector2i{}, false)
		w.state = StateConfigured
		if s.Committed.Buffer != nil {
			logrus.WithField("surface", w.surface).Debugln("Buffer committed before configure ack, not mapping")
		}

	case StateConfigured:
		if w.acked != nil && s.Committed.Buffer != nil {
			sh.applyAcked(w, s)
			w.state = StateMapped
			sh.stack = append(sh.stack, w)
			for _, fn := range sh.onMap {
				fn(w)
			}
			logrus.WithFields(logrus.Fields{
				"surface": w.surface,
				"size":    w.size,
			}).Debugln("Window mapped")
		}

	case StateMapped:
		if s.Committed.Buffer == nil {
			// Null buffer commit unmaps the window
			w.state = StateConfigured
			sh.removeFromStack(w)
			sh.dismissChildren(w.surface, DismissParentUnmapped)
			for _, fn := range sh.onUnmap {
				fn(w)
			}
			logrus.WithField("surface", w.surface).Debugln("Window unmapped")
			return
		}
		if w.acked != nil {
			oldMode := w.mode
			sh.applyAcked(w, s)
			if w.mode != oldMode {
				logrus.WithFields(logrus.Fields{
					"surface": w.surface,
					"from":    oldMode,
					"to":      w.mode,
				}).Debugln("Window mode applied")
			}
		} else if w.mode == ModeNormal {
			// Free resize by the client in normal mode
			w.size = s.Size()
		}

	case StateClosing, StateDestroyed:
		// Nothing left to negotiate
	}
}

// applyAcked makes the latest acknowledged configure effective. A
// configure without a size proposal lets the buffer dictate the size
func (sh *Shell) applyAcked(w *Window, s *surface.Surface) {
	cfg := w.acked
	w.acked = nil
	if cfg.size.X > 0 && cfg.size.Y > 0 {
		w.size = cfg.size
	} else {
		w.size = s.Size()
	}
	if cfg.move {
		w.pos = cfg.pos
	}
	w.mode = cfg.mode
}

func (sh *Shell) commitPopup(p *Popup, s *surface.Surface) {
	switch p.state {
	case PopupConfigured:
		if p.acked != nil && s.Committed.Buffer != nil {
			cfg := p.acked
			p.acked = nil
			if cfg.size.X > 0 && cfg.size.Y > 0 {
				p.rect.Size = cfg.size
			} else {
				p.rect.Size = s.Size()
			}
			p.state = PopupMapped
			sh.popupStack = append(sh.popupStack, p)
			logrus.WithField("surface", p.surface).Debugln("Popup mapped")
		}
	case PopupMapped:
		if s.Committed.Buffer == nil {
			sh.DismissPopup(p.surface, DismissClientRequest)
		}
	case PopupDismissed:
		// Dismissal is final, the id is never mapped again
		logrus.WithField("surface", p.surface).Debugln("Commit on dismissed popup ignored")
	}
}

// DismissPopup finalizes a popup. Child popups go first, newest first
func (sh *Shell) DismissPopup(id wire.SurfaceID, reason DismissReason) {
	p, ok := sh.popups[id]
	if !ok || p.state == PopupDismissed {
		return
	}
	sh.dismissChildren(id, reason)
	p.state = PopupDismissed
	p.grabbed = false
	sh.removePopupFromStack(p)
	sh.removeGrab(p)
	if reason != DismissSurfaceDestroyed {
		sh.sink.PopupDone(p.surface)
	}
	logrus.WithFields(logrus.Fields{
		"surface": id,
		"reason":  reason,
	}).Debugln("Popup dismissed")
}

func (sh *Shell) dismissChildren(parent wire.SurfaceID, reason DismissReason) {
	// Newest mapped child first, matching the grab chain unwinding
	for i := len(sh.popupStack) - 1; i >= 0; i-- {
		p := sh.popupStack[i]
		if p.parent == parent {
			sh.DismissPopup(p.surface, reason)
		}
	}
	// Configured but never mapped children are finalized too
	for _, p := range sh.popups {
		if p.parent == parent && p.state == PopupConfigured {
			sh.DismissPopup(p.surface, reason)
		}
	}
}

func (sh *Shell) removePopupFromStack(p *Popup) {
	for i, have := range sh.popupStack {
		if have == p {
			sh.popupStack = append(sh.popupStack[:i], sh.popupStack[i+1:]...)
			return
		}
	}
}

func (sh *Shell) removeGrab(p *Popup) {
	for i, have := range sh.grabs {
		if have == p {
			sh.grabs = append(sh.grabs[:i], sh.grabs[i+1:]...)
			return
		}
	}
}

// GrabPopup marks a popup chain as holding an input grab. A later
// button press outside the chain dismisses it
func (sh *Shell) GrabPopup(id wire.SurfaceID, serial uint32) error {
	p, ok := sh.popups[id]
	if !ok {
		return ErrNotAWindow
	}
	if p.state == PopupDismissed {
		return nil
	}
	p.grabbed = true
	sh.grabs = append(sh.grabs, p)
	logrus.WithFields(logrus.Fields{
		"surface": id,
		"serial":  serial,
	}).Debugln("Popup grab")
	return nil
}

// GrabActive reports whether any popup currently holds a grab
func (sh *Shell) GrabActive() bool {
	return len(sh.grabs) > 0
}

// BreakGrabs dismisses the whole grabbed popup chain when a
// grab-breaking press lands on a surface outside it. Press target
// NoSurface means the press hit no surface at all
func (sh *Shell) BreakGrabs(target wire.SurfaceID) {
	if len(sh.grabs) == 0 {
		return
	}
	for _, p := range sh.grabs {
		if p.surface == target {
			return
		}
	}
	// Dismiss newest first
	for i := len(sh.grabs) - 1; i >= 0; i-- {
		sh.DismissPopup(sh.grabs[i].surface, DismissOutsideInput)
	}
}

// handleDestroy finalizes window state when the underlying surface
// goes away. No event is emitted towards the dying surface
func (sh *Shell) handleDestroy(id wire.SurfaceID) {
	if w, ok := sh.windows[id]; ok {
		wasMapped := w.state == StateMapped
		w.state = StateDestroyed
		sh.removeFromStack(w)
		sh.dismissChildren(id, DismissParentUnmapped)
		if wasMapped {
			for _, fn := range sh.onUnmap {
				fn(w)
			}
		}
		delete(sh.windows, id)
		logrus.WithField("surface", id).Debugln("Window destroyed")
		return
	}
	if _, ok := sh.popups[id]; ok {
		sh.DismissPopup(id, DismissSurfaceDestroyed)
		delete(sh.popups, id)
	}
}

// PopupGlobalRect resolves a popup rectangle into global layout
// coordinates by walking the parent chain
func (sh *Shell) PopupGlobalRect(p *Popup) generaldata.Rect {
	rect := p.rect
	parent := p.parent
	for parent != wire.NoSurface {
		if w, ok := sh.windows[parent]; ok {
			return rect.Translate(w.pos)
		}
		pp, ok := sh.popups[parent]
		if !ok {
			break
		}
		rect = rect.Translate(pp.rect.Pos)
		parent = pp.parent
	}
	return rect
}
