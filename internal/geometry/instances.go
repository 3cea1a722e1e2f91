package geometry

import (
	"fmt"

	"newtonviz.dev/internal/protocol"
)

// Transform places one instance of a mesh in the world.
type Transform struct {
	Pos   Vec3
	Rot   Quat
	Scale Vec3
}

func TransformIdentity() Transform {
	return Transform{Rot: QuatIdentity(), Scale: Vec3{1, 1, 1}}
}

// InstanceBatch is one transform per instance, with optional per-instance
// colors (rgba) and material params. Optional slices are either empty or
// the same length as Transforms.
type InstanceBatch struct {
	Transforms []Transform
	Colors     [][4]float32
	Materials  [][4]float32
}

func (b InstanceBatch) Validate() error {
	if len(b.Transforms) == 0 {
		return fmt.Errorf("instance batch is empty")
	}
	if len(b.Colors) != 0 && len(b.Colors) != len(b.Transforms) {
		return fmt.Errorf("instance batch has %d colors for %d transforms", len(b.Colors), len(b.Transforms))
	}
	if len(b.Materials) != 0 && len(b.Materials) != len(b.Transforms) {
		return fmt.Errorf("instance batch has %d materials for %d transforms", len(b.Materials), len(b.Transforms))
	}
	return nil
}

// Payload flattens the batch into its wire form, referencing meshPath.
func (b InstanceBatch) Payload(meshPath string) *protocol.InstancePayload {
	p := &protocol.InstancePayload{
		MeshPath: meshPath,
		Count:    len(b.Transforms),
	}
	for _, tf := range b.Transforms {
		p.Positions = append(p.Positions, tf.Pos[0], tf.Pos[1], tf.Pos[2])
		p.Rotations = append(p.Rotations, tf.Rot[0], tf.Rot[1], tf.Rot[2], tf.Rot[3])
		p.Scales = append(p.Scales, tf.Scale[0], tf.Scale[1], tf.Scale[2])
	}
	for _, c := range b.Colors {
		p.Colors = append(p.Colors, c[0], c[1], c[2], c[3])
	}
	for _, m := range b.Materials {
		p.Materials = append(p.Materials, m[0], m[1], m[2], m[3])
	}
	return p
}
