package output

import (
	"github.com/sirupsen/logrus"

	generaldata "github.com/aurorawm/aurora/general-data"
)

// Layout is the arrangement of outputs in the global coordinate space.
// AddAuto places outputs left to right in the order they appear; no
// user configured arrangement, just a row
type Layout struct {
	outputs []*Output
	nextID  ID
}

func NewLayout() *Layout {
	return &Layout{nextID: 1}
}

// AddAuto registers a new output to the right of all existing ones
func (l *Layout) AddAuto(name string, mode Mode, modes []Mode, scale float64) *Output {
	x := 0
	for _, o := range l.outputs {
		if r := o.Geometry().Right(); r > x {
			x = r
		}
	}
	return l.Add(name, generaldata.Vector2i{X: x}, mode, modes, scale)
}

// Add registers a new output at an explicit position
func (l *Layout) Add(name string, pos generaldata.Vector2i, mode Mode, modes []Mode, scale float64) *Output {
	if scale == 0 {
		scale = 1
	}
	o := &Output{
		id:    l.nextID,
		name:  name,
		pos:   pos,
		mode:  mode,
		modes: modes,
		scale: scale,
	}
	l.nextID++
	o.MarkAllDamaged()
	l.outputs = append(l.outputs, o)
	logrus.WithFields(logrus.Fields{
		"output": name,
		"mode":   mode.Size,
		"pos":    pos,
	}).Infoln("Output added to layout")
	return o
}

// Remove drops an output from the layout on hot unplug. Remaining
// outputs keep their positions; callers deal with window migration
func (l *Layout) Remove(id ID) *Output {
	for i, o := range l.outputs {
		if o.id == id {
			l.outputs = append(l.outputs[:i], l.outputs[i+1:]...)
			logrus.WithField("output", o.name).Infoln("Output removed from layout")
			return o
		}
	}
	return nil
}

func (l *Layout) Get(id ID) *Output {
	for _, o := range l.outputs {
		if o.id == id {
			return o
		}
	}
	return nil
}

func (l *Layout) ByName(name string) *Output {
	for _, o := range l.outputs {
		if o.name == name {
			return o
		}
	}
	return nil
}

// All returns the outputs in layout order
func (l *Layout) All() []*Output {
	return l.outputs
}

// First returns the leftmost output, or nil when no output is present
func (l *Layout) First() *Output {
	if len(l.outputs) == 0 {
		return nil
	}
	return l.outputs[0]
}

// At returns the output containing the given layout coordinates
func (l *Layout) At(x, y float64) *Output {
	for _, o := range l.outputs {
		if o.Geometry().ContainsF(x, y) {
			return o
		}
	}
	return nil
}
