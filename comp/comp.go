// Package comp is the engine core: one single threaded loop owning the
// surface registry, the shell, the seat and the output layout. Every
// mutation of that state happens on the loop goroutine; backend
// variants and clients only talk to it through channels.
package comp

import (
	stderrors "errors"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/aurorawm/aurora/backend"
	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/output"
	"github.com/aurorawm/aurora/seat"
	"github.com/aurorawm/aurora/shell"
	"github.com/aurorawm/aurora/surface"
	"github.com/aurorawm/aurora/util/multiplexer"
	"github.com/aurorawm/aurora/wire"
	"github.com/aurorawm/aurora/wm"
)

// ErrProtocolViolation means a client sent something structurally
// invalid: an unknown surface id, a surface it does not own, a request
// that makes no sense for the surface's role lifecycle. The offending
// client is disconnected; nobody else is affected
var ErrProtocolViolation = stderrors.New("protocol violation")

// Notification is a lifecycle breadcrumb published to watchers (the
// repl's watch command). Never consumed by the engine itself
type Notification struct {
	Kind    string
	Surface wire.SurfaceID
	Output  string
}

// Server is the compositor loop and everything it owns
type Server struct {
	backend  backend.Backend
	renderer backend.Renderer

	reg    *surface.Registry
	shell  *shell.Shell
	seat   *seat.Seat
	layout *output.Layout
	wm     *wm.Manager

	requests chan wire.Request
	control  chan func()
	quit     chan struct{}
	quitOnce sync.Once
	notify   *multiplexer.OneToMany[Notification]

	// Compositor keybinding hook, checked before forwarding keys.
	// Returns true when the key was consumed
	keybinding func(key uint32, mods wire.Modifiers) bool
}

func NewServer(b backend.Backend, renderer backend.Renderer, sink wire.EventSink) *Server {
	s := &Server{
		backend:  b,
		renderer: renderer,
		layout:   output.NewLayout(),
		requests: make(chan wire.Request, 256),
		control:  make(chan func()),
		quit:     make(chan struct{}),
		notify:   multiplexer.NewOneToMany[Notification](),
	}
	s.reg = surface.NewRegistry(b.Caps())
	s.shell = shell.NewShell(s.reg, sink)
	s.seat = seat.NewSeat("seat0", sink, s)
	s.wm = wm.NewManager(s.shell, s.layout)

	s.reg.OnCommit(s.handleSurfaceCommit)
	s.reg.OnDestroy(s.handleSurfaceDestroy)
	s.shell.OnMap(s.handleMap)
	s.shell.OnUnmap(s.handleUnmap)
	return s
}

func (s *Server) Registry() *surface.Registry { return s.reg }
func (s *Server) Shell() *shell.Shell         { return s.shell }
func (s *Server) Seat() *seat.Seat            { return s.seat }
func (s *Server) Layout() *output.Layout      { return s.layout }
func (s *Server) WM() *wm.Manager             { return s.wm }

// SetKeybinding installs the compositor key hook
func (s *Server) SetKeybinding(fn func(key uint32, mods wire.Modifiers) bool) {
	s.keybinding = fn
}

// Submit queues a client request for the loop. Safe from any goroutine
func (s *Server) Submit(req wire.Request) {
	select {
	case s.requests <- req:
	case <-s.quit:
	}
}

// Do runs fn on the loop goroutine and waits for it to finish. Engine
// state is owned by Run, so out-of-loop callers like the repl go
// through here instead of touching the shell or wm directly. After the
// server stopped, fn is dropped and Do returns immediately
func (s *Server) Do(fn func()) {
	done := make(chan struct{})
	select {
	case s.control <- func() {
		defer close(done)
		fn()
	}:
	case <-s.quit:
		return
	}
	select {
	case <-done:
	case <-s.quit:
	}
}

// Watch subscribes to lifecycle notifications under a unique name
func (s *Server) Watch(name string) (<-chan Notification, error) {
	return s.notify.MakeReceiver(name, 64)
}

// Unwatch drops a subscription
func (s *Server) Unwatch(name string) {
	s.notify.CloseReceiver(name)
}

// Stop makes Run return after the current tick. Safe to call from any
// goroutine, any number of times
func (s *Server) Stop() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// handleRequest dispatches one client request and applies the error
// containment rules: a protocol violation costs the client its
// connection, everything else is local to the request
func (s *Server) handleRequest(req wire.Request) {
	err := s.dispatch(req)
	switch {
	case err == nil:
	case errors.Is(err, ErrProtocolViolation):
		logrus.WithFields(logrus.Fields{
			"client": req.Client(),
		}).WithError(err).Warnln("Protocol violation, dropping client")
		s.dropClient(req.Client())
	case errors.Is(err, shell.ErrStaleAck),
		errors.Is(err, surface.ErrInvalidRole),
		errors.Is(err, surface.ErrUnsupportedBuffer):
		// Logged at the source, prior state intact
	default:
		logrus.WithError(err).Warnln("Request failed")
	}
}

// dropClient destroys every surface the client owns. Shell and seat
// cleanup ride on the registry destroy callbacks
func (s *Server) dropClient(client wire.ClientID) {
	s.reg.DestroyClient(client)
	s.seat.RefreshPointerFocus()
}

// claim fetches a surface and verifies the requester owns it
func (s *Server) claim(client wire.ClientID, id wire.SurfaceID) (*surface.Surface, error) {
	sf, ok := s.reg.Get(id)
	if !ok {
		return nil, errors.Wrapf(ErrProtocolViolation, "no surface %d", id)
	}
	if sf.Client() != client {
		return nil, errors.Wrapf(ErrProtocolViolation, "surface %d belongs to another client", id)
	}
	return sf, nil
}

func (s *Server) dispatch(req wire.Request) error {
	switch r := req.(type) {
	case wire.CreateSurface:
		s.reg.Create(r.From)
		return nil

	case wire.DestroySurface:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		s.reg.Destroy(r.Surface)
		return nil

	case wire.AttachBuffer:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		return s.reg.AttachBuffer(r.Surface, r.Buffer)

	case wire.SetDamage:
		sf, err := s.claim(r.From, r.Surface)
		if err != nil {
			return err
		}
		sf.Pending.Damage.AddRegion(r.Damage)
		return nil

	case wire.SetInputRegion:
		sf, err := s.claim(r.From, r.Surface)
		if err != nil {
			return err
		}
		sf.Pending.InputRegion = r.Region.Copy()
		sf.Pending.InputRegionSet = true
		return nil

	case wire.SetOpaqueRegion:
		sf, err := s.claim(r.From, r.Surface)
		if err != nil {
			return err
		}
		sf.Pending.OpaqueRegion = r.Region.Copy()
		return nil

	case wire.Commit:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		return s.reg.Commit(r.Surface)

	case wire.SetToplevelRole:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		_, err := s.shell.CreateToplevel(r.Surface)
		return err

	case wire.SetPopupRole:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		_, err := s.shell.CreatePopup(r.Surface, r.Parent, r.Anchor, r.Offset)
		return err

	case wire.SetCursorRole:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		if err := s.reg.SetRole(r.Surface, surface.RoleCursor, wire.NoSurface); err != nil {
			return err
		}
		s.seat.SetCursor(r.Surface, r.Hotspot)
		return nil

	case wire.AckConfigure:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		return s.shell.Ack(r.Surface, r.Serial)

	case wire.SetTitle:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		return s.shell.SetTitle(r.Surface, r.Title)

	case wire.SetAppID:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		return s.shell.SetAppID(r.Surface, r.AppID)

	case wire.SetMaximized:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		return s.requestMode(r.Surface, r.Maximized, shell.ModeMaximized)

	case wire.SetFullscreen:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		return s.requestMode(r.Surface, r.Fullscreen, shell.ModeFullscreen)

	case wire.GrabPopup:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		return s.shell.GrabPopup(r.Surface, r.Serial)

	case wire.DismissPopup:
		if _, err := s.claim(r.From, r.Surface); err != nil {
			return err
		}
		s.shell.DismissPopup(r.Surface, shell.DismissClientRequest)
		return nil

	default:
		return errors.Wrapf(ErrProtocolViolation, "unknown request %T", req)
	}
}

// requestMode resolves the target geometry for entering a mode on the
// output the window currently occupies
func (s *Server) requestMode(id wire.SurfaceID, enter bool, mode shell.Mode) error {
	if !enter {
		return s.shell.RequestMode(id, shell.ModeNormal, generaldata.Rect{})
	}
	w, ok := s.shell.Window(id)
	if !ok {
		return errors.Wrapf(ErrProtocolViolation, "surface %d is not a toplevel", id)
	}
	out := s.outputFor(w.Geometry())
	if out == nil {
		return errors.Wrap(backend.ErrOutputNotReady, "no output to fill")
	}
	// Maximized and fullscreen both take the full output here; there
	// are no bars or exclusive zones to subtract
	return s.shell.RequestMode(id, mode, out.Geometry())
}

func (s *Server) outputFor(geo generaldata.Rect) *output.Output {
	for _, out := range s.layout.All() {
		if out.Geometry().Intersects(geo) {
			return out
		}
	}
	return s.layout.First()
}
