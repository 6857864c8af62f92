package geom

// Box3 is an axis-aligned bounding box in world space.
//
// The zero value is the empty box. A non-empty box always has
// Min <= Max component-wise.
type Box3 struct {
	Min Vec3
	Max Vec3

	valid bool
}

// EmptyBox returns the empty sentinel.
func EmptyBox() Box3 {
	return Box3{}
}

// NewBox returns the box spanned by two corners in any order.
func NewBox(a, b Vec3) Box3 {
	return Box3{Min: MinComponents(a, b), Max: MaxComponents(a, b), valid: true}
}

// BoxFromPoints returns the smallest box containing all points.
func BoxFromPoints(pts ...Vec3) Box3 {
	var b Box3
	for _, p := range pts {
		b = b.Extend(p)
	}
	return b
}

// IsEmpty reports whether b is the empty sentinel.
func (b Box3) IsEmpty() bool { return !b.valid }

// IsValid reports whether b is non-empty with finite, ordered corners.
func (b Box3) IsValid() bool {
	return b.valid && b.Min.IsValid() && b.Max.IsValid() &&
		b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// Extend returns b grown to contain p. Non-finite points are ignored.
func (b Box3) Extend(p Vec3) Box3 {
	if !p.IsValid() {
		return b
	}
	if !b.valid {
		return Box3{Min: p, Max: p, valid: true}
	}
	return Box3{Min: MinComponents(b.Min, p), Max: MaxComponents(b.Max, p), valid: true}
}

// Union returns the smallest box containing both boxes.
func (b Box3) Union(o Box3) Box3 {
	if !b.valid {
		return o
	}
	if !o.valid {
		return b
	}
	return Box3{Min: MinComponents(b.Min, o.Min), Max: MaxComponents(b.Max, o.Max), valid: true}
}

// IntersectsWith reports whether the boxes overlap. Touching faces count.
func (b Box3) IntersectsWith(o Box3) bool {
	if !b.valid || !o.valid {
		return false
	}
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Contains reports whether p lies inside b.
func (b Box3) Contains(p Vec3) bool {
	return b.valid &&
		p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Center returns the midpoint. The empty box has no center; the origin is returned.
func (b Box3) Center() Vec3 {
	if !b.valid {
		return Vec3{}
	}
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent along each axis.
func (b Box3) Size() Vec3 {
	if !b.valid {
		return Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Corners returns the eight corners of the box.
func (b Box3) Corners() [8]Vec3 {
	lo, hi := b.Min, b.Max
	return [8]Vec3{
		{lo.X, lo.Y, lo.Z}, {hi.X, lo.Y, lo.Z},
		{lo.X, hi.Y, lo.Z}, {hi.X, hi.Y, lo.Z},
		{lo.X, lo.Y, hi.Z}, {hi.X, lo.Y, hi.Z},
		{lo.X, hi.Y, hi.Z}, {hi.X, hi.Y, hi.Z},
	}
}

// Inflate grows the box by d on every side.
func (b Box3) Inflate(d float64) Box3 {
	if !b.valid {
		return b
	}
	off := Vec3{d, d, d}
	return NewBox(b.Min.Sub(off), b.Max.Add(off))
}
