// Package wm is the window management policy layered on top of the
// shell: which window is active, and how mapped windows are arranged.
package wm

import (
	"github.com/sirupsen/logrus"

	generaldata "github.com/aurorawm/aurora/general-data"
	"github.com/aurorawm/aurora/output"
	"github.com/aurorawm/aurora/shell"
)

type Mode int

const (
	// ModeFloating leaves windows where placement and the clients put
	// them. The default
	ModeFloating = Mode(iota)
	// ModeInteractive gives the whole output to the active window
	ModeInteractive
	// ModePreview arranges every mapped window side by side, so the
	// user can see and pick one
	ModePreview
)

func (m Mode) String() string {
	switch m {
	case ModeFloating:
		return "floating"
	case ModeInteractive:
		return "interactive"
	case ModePreview:
		return "preview"
	default:
		return "invalid"
	}
}

// Padding between preview slots and the output edge, in layout pixels
const previewPadding = 10

// Manager tracks the active window and applies the current
// arrangement. It never touches surfaces directly; everything goes
// through shell configures
type Manager struct {
	sh     *shell.Shell
	layout *output.Layout

	mode   Mode
	active *shell.Window
}

func NewManager(sh *shell.Shell, layout *output.Layout) *Manager {
	return &Manager{sh: sh, layout: layout}
}

func (m *Manager) Mode() Mode            { return m.mode }
func (m *Manager) Active() *shell.Window { return m.active }

// Activate makes the window the active one: raised, told it is
// activated, previous holder deactivated. nil just clears
func (m *Manager) Activate(w *shell.Window) {
	m.Prune()
	if m.active == w {
		return
	}
	if m.active != nil {
		m.sh.SetActivated(m.active, false)
	}
	m.active = w
	if w == nil {
		return
	}
	m.sh.SetActivated(w, true)
	m.sh.Raise(w)
	if m.mode == ModeInteractive {
		m.arrangeInteractive()
	}
	logrus.WithField("surface", w.Surface()).Debugln("Window activated")
}

// Next cycles activation through the mapped windows. Activation raises
// its target, so pulling the bottom of the stack up each time visits
// every window before repeating
func (m *Manager) Next() {
	m.Prune()
	stack := m.sh.MappedBottomUp()
	if len(stack) == 0 {
		return
	}
	if m.active == nil {
		m.Activate(stack[len(stack)-1])
		return
	}
	m.Activate(stack[0])
}

// Prune drops the active reference if the window died or unmapped,
// promoting the topmost remaining window
func (m *Manager) Prune() {
	if m.active == nil || m.active.Mapped() {
		return
	}
	m.active = nil
	top := m.sh.MappedTopDown()
	if len(top) > 0 {
		next := top[0]
		m.active = next
		m.sh.SetActivated(next, true)
		logrus.WithField("surface", next.Surface()).Debugln("Active window promoted")
	}
}

// SetMode switches the arrangement and reconfigures every mapped
// window for it
func (m *Manager) SetMode(mode Mode) {
	if m.mode == mode {
		return
	}
	m.mode = mode
	logrus.WithField("mode", mode).Infoln("Window management mode")
	if mode == ModeFloating {
		for _, w := range m.sh.MappedBottomUp() {
			if w.Mode() != shell.ModeNormal {
				m.sh.RequestMode(w.Surface(), shell.ModeNormal, generaldata.Rect{})
			}
		}
		return
	}
	m.Arrange()
}

// Arrange reapplies the current mode's layout to all mapped windows.
// Floating mode arranges nothing
func (m *Manager) Arrange() {
	switch m.mode {
	case ModeInteractive:
		m.arrangeInteractive()
	case ModePreview:
		m.arrangePreview()
	}
}

func (m *Manager) arrangeInteractive() {
	m.Prune()
	for _, w := range m.sh.MappedBottomUp() {
		if w == m.active {
			out := m.outputFor(w)
			if out == nil {
				continue
			}
			m.sh.RequestMode(w.Surface(), shell.ModeFullscreen, out.Geometry())
			continue
		}
		if w.Mode() != shell.ModeNormal {
			m.sh.RequestMode(w.Surface(), shell.ModeNormal, generaldata.Rect{})
		}
	}
}

// arrangePreview splits the first output into equal width slots with
// padding, one per mapped window, oldest on the left
func (m *Manager) arrangePreview() {
	windows := m.sh.MappedBottomUp()
	out := m.layout.First()
	if out == nil || len(windows) == 0 {
		return
	}
	for _, w := range windows {
		if w.Mode() != shell.ModeNormal {
			m.sh.RequestMode(w.Surface(), shell.ModeNormal, generaldata.Rect{})
		}
	}
	geo := out.Geometry()
	n := len(windows)
	slotW := (geo.Size.X - previewPadding*(n+1)) / n
	slotH := geo.Size.Y - previewPadding*2
	if slotW <= 0 || slotH <= 0 {
		return
	}
	for i, w := range windows {
		slot := generaldata.NewRect(
			geo.Pos.X+previewPadding+i*(slotW+previewPadding),
			geo.Pos.Y+previewPadding,
			slotW, slotH)
		m.sh.Resize(w.Surface(), slot)
	}
	logrus.WithField("windows", n).Debugln("Preview arrangement applied")
}

// Slots returns the preview slot rectangles for n windows on the first
// output, in stack order. Exposed for the inspect command
func (m *Manager) Slots(n int) []generaldata.Rect {
	out := m.layout.First()
	if out == nil || n == 0 {
		return nil
	}
	geo := out.Geometry()
	slotW := (geo.Size.X - previewPadding*(n+1)) / n
	slotH := geo.Size.Y - previewPadding*2
	if slotW <= 0 || slotH <= 0 {
		return nil
	}
	slots := make([]generaldata.Rect, 0, n)
	for i := 0; i < n; i++ {
		slots = append(slots, generaldata.NewRect(
			geo.Pos.X+previewPadding+i*(slotW+previewPadding),
			geo.Pos.Y+previewPadding,
			slotW, slotH))
	}
	return slots
}

func (m *Manager) outputFor(w *shell.Window) *output.Output {
	for _, out := range m.layout.All() {
		if out.Geometry().Intersects(w.Geometry()) {
			return out
		}
	}
	return m.layout.First()
}
