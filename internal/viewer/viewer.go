// Package viewer adapts a simulation to a rerun-style visualization
// backend: meshes and instance batches are logged under entity paths, a
// blueprint with accumulated visibility overrides is applied once a model
// is set, and the backend handles serving and viewer clients.
package viewer

import (
	"os/exec"

	"newtonviz.dev/internal/geometry"
)

// DefaultTimeline is the timeline records are placed on.
const DefaultTimeline = "sim_time"

type instanceEntry struct {
	meshPath string
	count    int
}

// base is the state shared by every viewer adapter: entity registries and
// the run flag.
type base struct {
	running bool

	// viewerProc is reserved for a natively launched viewer binary. The
	// web viewer runs in-process, so it stays nil here.
	viewerProc *exec.Cmd

	meshes    map[string]geometry.Mesh
	instances map[string]instanceEntry
}

func newBase() base {
	return base{
		meshes:    map[string]geometry.Mesh{},
		instances: map[string]instanceEntry{},
	}
}

// Running reports whether the viewer finished setup and has not been closed.
func (b *base) Running() bool { return b.running }
