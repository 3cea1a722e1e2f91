// Package model is a minimal simulation model description: rigid bodies
// with shapes attached. It exists so the viewer can derive template
// geometry and per-body instance entities from one declarative source.
package model

import (
	"fmt"

	"newtonviz.dev/internal/geometry"
)

const (
	ShapeBox    = "box"
	ShapeSphere = "sphere"
	ShapePlane  = "plane"
)

type Body struct {
	Key       string
	Transform geometry.Transform
	Mass      float32
}

type Shape struct {
	Key  string
	Kind string
	// Body is an index into Model.Bodies, or -1 for static geometry.
	Body int
	Mesh geometry.Mesh
}

type Model struct {
	Bodies []Body
	Shapes []Shape
}

// Builder accumulates bodies and shapes; Finalize validates the result.
type Builder struct {
	bodies []Body
	shapes []Shape
	err    error
}

func NewBuilder() *Builder {
	return &Builder{}
}

// AddBody appends a rigid body and returns its index.
func (b *Builder) AddBody(key string, tf geometry.Transform, mass float32) int {
	if key == "" {
		key = fmt.Sprintf("body_%d", len(b.bodies))
	}
	b.bodies = append(b.bodies, Body{Key: key, Transform: tf, Mass: mass})
	return len(b.bodies) - 1
}

func (b *Builder) AddShapeBox(body int, hx, hy, hz float32) int {
	return b.addShape(body, ShapeBox, geometry.Box(hx, hy, hz))
}

func (b *Builder) AddShapeSphere(body int, radius float32) int {
	return b.addShape(body, ShapeSphere, geometry.Sphere(radius, 24, 12))
}

func (b *Builder) AddShapePlane(body int, hx, hz float32) int {
	return b.addShape(body, ShapePlane, geometry.Plane(hx, hz))
}

func (b *Builder) addShape(body int, kind string, mesh geometry.Mesh) int {
	if body < -1 || body >= len(b.bodies) {
		b.err = fmt.Errorf("shape %d references unknown body %d", len(b.shapes), body)
	}
	b.shapes = append(b.shapes, Shape{
		Key:  fmt.Sprintf("shape_%d", len(b.shapes)),
		Kind: kind,
		Body: body,
		Mesh: mesh,
	})
	return len(b.shapes) - 1
}

func (b *Builder) Finalize() (*Model, error) {
	if b.err != nil {
		return nil, b.err
	}
	seen := map[string]struct{}{}
	for _, body := range b.bodies {
		if _, dup := seen[body.Key]; dup {
			return nil, fmt.Errorf("duplicate body key %q", body.Key)
		}
		seen[body.Key] = struct{}{}
	}
	for i, s := range b.shapes {
		if err := s.Mesh.Validate(); err != nil {
			return nil, fmt.Errorf("shape %d (%s): %w", i, s.Kind, err)
		}
	}
	return &Model{
		Bodies: append([]Body(nil), b.bodies...),
		Shapes: append([]Shape(nil), b.shapes...),
	}, nil
}
