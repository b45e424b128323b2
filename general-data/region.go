// Copyright (c) 2026 The Aurora Authors
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package generaldata

// A region is a union of rectangles. The zero value is the empty region.
// Used for damage tracking and input regions. Rectangles are not
// normalized on insert, only dropped when fully covered by an existing one
type Region struct {
	rects []Rect
}

func NewRegion(rects ...Rect) Region {
	var reg Region
	for _, r := range rects {
		reg.Add(r)
	}
	return reg
}

func (reg *Region) Add(r Rect) {
	if r.Empty() {
		return
	}
	for _, have := range reg.rects {
		if have.Intersect(r) == r {
			return
		}
	}
	reg.rects = append(reg.rects, r)
}

func (reg *Region) AddRegion(other Region) {
	for _, r := range other.rects {
		reg.Add(r)
	}
}

func (reg Region) Empty() bool {
	return len(reg.rects) == 0
}

func (reg Region) Rects() []Rect {
	return reg.rects
}

func (reg Region) Contains(p Vector2i) bool {
	for _, r := range reg.rects {
		if r.Contains(p) {
			return true
		}
	}
	return false
}

func (reg Region) ContainsF(x, y float64) bool {
	for _, r := range reg.rects {
		if r.ContainsF(x, y) {
			return true
		}
	}
	return false
}

func (reg Region) Intersects(r Rect) bool {
	for _, have := range reg.rects {
		if have.Intersects(r) {
			return true
		}
	}
	return false
}

func (reg Region) Translate(by Vector2i) Region {
	out := Region{rects: make([]Rect, 0, len(reg.rects))}
	for _, r := range reg.rects {
		out.rects = append(out.rects, r.Translate(by))
	}
	return out
}

// Copy returns a region independent of the receiver.
// Committed state must not alias pending state
func (reg Region) Copy() Region {
	out := Region{}
	if len(reg.rects) > 0 {
		out.rects = append([]Rect(nil), reg.rects...)
	}
	return out
}

func (reg *Region) Clear() {
	reg.rects = nil
}
