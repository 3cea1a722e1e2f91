package geometry

import (
	"fmt"
	"math"

	"newtonviz.dev/internal/protocol"
)

type Vec3 [3]float32

// Quat is a rotation quaternion in xyzw order.
type Quat [4]float32

func QuatIdentity() Quat { return Quat{0, 0, 0, 1} }

// Mesh is indexed triangle geometry. Indices reference Positions; Normals,
// when present, are per-vertex.
type Mesh struct {
	Positions []Vec3
	Indices   []uint32
	Normals   []Vec3
}

func (m Mesh) Validate() error {
	if len(m.Positions) == 0 {
		return fmt.Errorf("mesh has no vertices")
	}
	if len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
		return fmt.Errorf("mesh index count %d is not a positive multiple of 3", len(m.Indices))
	}
	for _, idx := range m.Indices {
		if int(idx) >= len(m.Positions) {
			return fmt.Errorf("mesh index %d out of range (%d vertices)", idx, len(m.Positions))
		}
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("mesh has %d normals for %d vertices", len(m.Normals), len(m.Positions))
	}
	return nil
}

// Payload flattens the mesh into its wire form.
func (m Mesh) Payload() *protocol.MeshPayload {
	p := &protocol.MeshPayload{
		Positions: flattenVec3(m.Positions),
		Indices:   append([]uint32(nil), m.Indices...),
	}
	if len(m.Normals) > 0 {
		p.Normals = flattenVec3(m.Normals)
	}
	return p
}

func flattenVec3(vs []Vec3) []float32 {
	out := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

// Box returns an axis-aligned box mesh with the given half extents.
// Faces carry flat normals, so vertices are not shared across faces.
func Box(hx, hy, hz float32) Mesh {
	type face struct {
		normal Vec3
		verts  [4]Vec3
	}
	faces := []face{
		{Vec3{1, 0, 0}, [4]Vec3{{hx, -hy, -hz}, {hx, hy, -hz}, {hx, hy, hz}, {hx, -hy, hz}}},
		{Vec3{-1, 0, 0}, [4]Vec3{{-hx, -hy, hz}, {-hx, hy, hz}, {-hx, hy, -hz}, {-hx, -hy, -hz}}},
		{Vec3{0, 1, 0}, [4]Vec3{{-hx, hy, -hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}}},
		{Vec3{0, -1, 0}, [4]Vec3{{-hx, -hy, hz}, {-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, -hy, hz}}},
		{Vec3{0, 0, 1}, [4]Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}}},
		{Vec3{0, 0, -1}, [4]Vec3{{hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}}},
	}

	var m Mesh
	for _, f := range faces {
		base := uint32(len(m.Positions))
		m.Positions = append(m.Positions, f.verts[0], f.verts[1], f.verts[2], f.verts[3])
		m.Normals = append(m.Normals, f.normal, f.normal, f.normal, f.normal)
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// Sphere returns a UV sphere mesh. segments is the longitudinal count,
// rings the latitudinal count; both are clamped to a sane minimum.
func Sphere(radius float32, segments, rings int) Mesh {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	var m Mesh
	for ring := 0; ring <= rings; ring++ {
		phi := math.Pi * float64(ring) / float64(rings)
		y := math.Cos(phi)
		r := math.Sin(phi)
		for seg := 0; seg <= segments; seg++ {
			theta := 2 * math.Pi * float64(seg) / float64(segments)
			n := Vec3{
				float32(r * math.Cos(theta)),
				float32(y),
				float32(r * math.Sin(theta)),
			}
			m.Normals = append(m.Normals, n)
			m.Positions = append(m.Positions, Vec3{n[0] * radius, n[1] * radius, n[2] * radius})
		}
	}

	stride := uint32(segments + 1)
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			a := uint32(ring)*stride + uint32(seg)
			b := a + stride
			m.Indices = append(m.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return m
}

// Plane returns a single quad in the XZ plane with the given half extents.
func Plane(hx, hz float32) Mesh {
	up := Vec3{0, 1, 0}
	return Mesh{
		Positions: []Vec3{{-hx, 0, -hz}, {-hx, 0, hz}, {hx, 0, hz}, {hx, 0, -hz}},
		Normals:   []Vec3{up, up, up, up},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}
