// Package output models physical or virtual displays: geometry in the
// global layout, current mode and per output damage accumulation.
package output

import (
	generaldata "github.com/aurorawm/aurora/general-data"
)

type ID uint32

type Transform int

const (
	TransformNormal = Transform(iota)
	Transform90
	Transform180
	Transform270
)

// Mode is a resolution plus refresh rate combination an output
// supports. Refresh is in millihertz, matching what hardware reports
type Mode struct {
	Size       generaldata.Vector2i
	RefreshMHz int
	Preferred  bool
}

type Output struct {
	id        ID
	name      string
	pos       generaldata.Vector2i
	mode      Mode
	modes     []Mode
	scale     float64
	transform Transform

	// Union of all committed surface damage since the last successful
	// present
	damage generaldata.Region
}

func (o *Output) ID() ID                         { return o.id }
func (o *Output) Name() string                   { return o.name }
func (o *Output) Mode() Mode                     { return o.mode }
func (o *Output) Modes() []Mode                  { return o.modes }
func (o *Output) Scale() float64                 { return o.scale }
func (o *Output) Transform() Transform           { return o.transform }
func (o *Output) Position() generaldata.Vector2i { return o.pos }

// Geometry is the output's rectangle in global layout coordinates
func (o *Output) Geometry() generaldata.Rect {
	return generaldata.Rect{Pos: o.pos, Size: o.mode.Size}
}

// AddDamage accumulates damage for the next composition pass
func (o *Output) AddDamage(reg generaldata.Region) {
	o.damage.AddRegion(reg)
}

func (o *Output) AddDamageRect(r generaldata.Rect) {
	o.damage.Add(r)
}

// MarkAllDamaged damages the whole output, forcing a full repaint
func (o *Output) MarkAllDamaged() {
	o.damage.Add(generaldata.Rect{Size: o.mode.Size})
}

func (o *Output) Damage() generaldata.Region {
	return o.damage
}

func (o *Output) Dirty() bool {
	return !o.damage.Empty()
}

// ClearDamage is called only after a successful present. A failed
// present keeps the damage so the next tick retries the same content
func (o *Output) ClearDamage() {
	o.damage.Clear()
}

func (o *Output) SetMode(m Mode) {
	o.mode = m
	o.MarkAllDamaged()
}
