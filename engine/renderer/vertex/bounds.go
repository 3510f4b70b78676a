package vertex

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hal/common"
	"github.com/Carmen-Shannon/oxy-hal/engine/renderer/buffer"
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

func (vb *vertexBuffer) BoundingBox(ib buffer.IndexBuffer) (common.BoundingBox, error) {
	var box common.BoundingBox
	first := true
	err := vb.eachPosition(ib, func(p f32.Vec3) {
		if first {
			box = common.BoundingBox{Min: p, Max: p}
			first = false
			return
		}
		box.Extend(p)
	})
	if err != nil {
		return common.BoundingBox{}, err
	}
	return box, nil
}

func (vb *vertexBuffer) BoundingSphere(ib buffer.IndexBuffer) (common.BoundingSphere, error) {
	var points []f32.Vec3
	var sum f32.Vec3
	err := vb.eachPosition(ib, func(p f32.Vec3) {
		points = append(points, p)
		for i := range 3 {
			sum[i] += p[i]
		}
	})
	if err != nil || len(points) == 0 {
		return common.BoundingSphere{}, err
	}

	n := float32(len(points))
	center := f32.Vec3{sum[0] / n, sum[1] / n, sum[2] / n}
	var radiusSq float32
	for _, p := range points {
		dx, dy, dz := p[0]-center[0], p[1]-center[1], p[2]-center[2]
		radiusSq = max(radiusSq, dx*dx+dy*dy+dz*dz)
	}
	return common.BoundingSphere{Center: center, Radius: math32.Sqrt(radiusSq)}, nil
}

// eachPosition calls fn with the Position channel 0 value of every vertex, or of every vertex referenced by ib.
// It does nothing when the layout has no Position.
func (vb *vertexBuffer) eachPosition(ib buffer.IndexBuffer, fn func(f32.Vec3)) error {
	if _, ok := vb.Attribute(common.SemanticPosition, 0); !ok {
		return nil
	}
	if _, err := vb.Lock(common.LockReadOnly); err != nil {
		return err
	}
	defer func() { _ = vb.Unlock() }()

	read := func(i int) error {
		v, err := vb.Float(i, common.SemanticPosition, 0)
		if err != nil {
			return err
		}
		fn(f32.Vec3{v[0], v[1], v[2]})
		return nil
	}

	if ib == nil {
		for i := range vb.NumElements() {
			if err := read(i); err != nil {
				return err
			}
		}
		return nil
	}

	if _, err := ib.Lock(common.LockReadOnly); err != nil {
		return err
	}
	defer func() { _ = ib.Unlock() }()
	for i := range ib.NumElements() {
		idx, err := ib.Index(i)
		if err != nil {
			return err
		}
		if int(idx) >= vb.NumElements() {
			return fmt.Errorf("%s: index %d at %d references vertex past %d", vb.Label(), idx, i, vb.NumElements())
		}
		if err := read(int(idx)); err != nil {
			return err
		}
	}
	return nil
}
