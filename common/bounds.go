package common

import "golang.org/x/image/math/f32"

// BoundingBox is an axis-aligned box. The zero value is the degenerate box at the origin.
type BoundingBox struct {
	Min f32.Vec3
	Max f32.Vec3
}

// Extend grows the box so it contains p.
func (b *BoundingBox) Extend(p f32.Vec3) {
	for i := range 3 {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() f32.Vec3 {
	return f32.Vec3{
		(b.Min[0] + b.Max[0]) * 0.5,
		(b.Min[1] + b.Max[1]) * 0.5,
		(b.Min[2] + b.Max[2]) * 0.5,
	}
}

// BoundingSphere is a sphere given by its center and radius. The zero value is the degenerate sphere at the origin.
type BoundingSphere struct {
	Center f32.Vec3
	Radius float32
}
