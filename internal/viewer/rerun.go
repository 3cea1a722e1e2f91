package viewer

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"newtonviz.dev/internal/geometry"
	"newtonviz.dev/internal/model"
	"newtonviz.dev/internal/protocol"
	"newtonviz.dev/internal/sdk"
)

// Rerun is the viewer adapter over a rerun-style backend.
//
// Construction configures the backend: the app id is registered, the
// serving endpoint is started when Server is set, and a browser viewer is
// attached to it when LaunchViewer is set. LaunchViewer without Server is
// rejected with ErrInvalidConfig: there is no connection descriptor to
// attach a viewer to.
type Rerun struct {
	base

	// Configuration as resolved at construction.
	Server       bool
	Address      string
	LaunchViewer bool
	AppID        string

	rr  sdk.SDK
	log *log.Logger

	// serverURI is the connection descriptor returned by the serving
	// endpoint; empty when Server is false.
	serverURI string

	entityVisibility map[string]bool
	blueprintApplied bool
	model            *model.Model
}

func NewRerun(cfg Config, rr sdk.SDK, logger *log.Logger) (*Rerun, error) {
	if rr == nil {
		return nil, fmt.Errorf("%w: a viewer backend is required; pass sdk/embedded.New(...) or install the rerun viewer (https://rerun.io)", ErrSDKUnavailable)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[viewer] ", log.LstdFlags)
	}

	appID := strings.TrimSpace(cfg.AppID)
	if appID == "" {
		appID = DefaultAppID
	}

	r := &Rerun{
		base:             newBase(),
		Server:           cfg.Server,
		Address:          cfg.Address,
		LaunchViewer:     cfg.LaunchViewer,
		AppID:            appID,
		rr:               rr,
		log:              logger,
		entityVisibility: map[string]bool{},
	}

	if err := rr.Init(appID); err != nil {
		return nil, fmt.Errorf("sdk init: %w", err)
	}

	if cfg.Server {
		uri, err := rr.ServeGRPC(cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("start serving endpoint: %w", err)
		}
		r.serverURI = uri
	}

	if cfg.LaunchViewer {
		// Validate already rejected this combination; keep the branch
		// explicit so the descriptor is never read unset.
		if r.serverURI == "" {
			return nil, fmt.Errorf("%w: launch_viewer requires server=true (a viewer needs a local endpoint to attach to)", ErrInvalidConfig)
		}
		if err := rr.ServeWebViewer(r.serverURI); err != nil {
			return nil, fmt.Errorf("launch viewer: %w", err)
		}
	}

	r.running = true
	return r, nil
}

// ServerURI returns the connection descriptor, or "" when Server is false.
func (r *Rerun) ServerURI() string { return r.serverURI }

// LogMesh registers triangle geometry under path and streams it to the
// backend. hidden entities stay registered but start invisible; the
// blueprint applied on SetModel carries the accumulated visibility.
func (r *Rerun) LogMesh(path string, mesh geometry.Mesh, hidden bool) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if err := mesh.Validate(); err != nil {
		return fmt.Errorf("mesh %s: %w", path, err)
	}
	if err := r.rr.Log(protocol.Record{
		Kind:       protocol.RecordMesh,
		EntityPath: path,
		Mesh:       mesh.Payload(),
	}); err != nil {
		return err
	}
	r.meshes[path] = mesh
	r.entityVisibility[path] = !hidden
	return nil
}

// LogInstances places instances of a previously logged mesh under path.
func (r *Rerun) LogInstances(path, meshPath string, batch geometry.InstanceBatch, hidden bool) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("instances %s: %w", path, err)
	}
	if _, ok := r.meshes[meshPath]; !ok {
		return fmt.Errorf("instances %s: unknown mesh path %q", path, meshPath)
	}
	if err := r.rr.Log(protocol.Record{
		Kind:       protocol.RecordInstances,
		EntityPath: path,
		Instances:  batch.Payload(meshPath),
	}); err != nil {
		return err
	}
	r.instances[path] = instanceEntry{meshPath: meshPath, count: len(batch.Transforms)}
	r.entityVisibility[path] = !hidden
	return nil
}

// SetModel logs the model's template geometry (hidden, under /geometry/)
// and one instance entity per body shape, then applies the blueprint.
// A model can be set once.
func (r *Rerun) SetModel(m *model.Model) error {
	if m == nil {
		return fmt.Errorf("nil model")
	}
	if r.model != nil {
		return fmt.Errorf("model already set")
	}

	for _, s := range m.Shapes {
		geomPath := "/geometry/" + s.Key
		if err := r.LogMesh(geomPath, s.Mesh, true); err != nil {
			return err
		}

		instPath := "/model/static/" + s.Key
		tf := geometry.TransformIdentity()
		if s.Body >= 0 {
			body := m.Bodies[s.Body]
			instPath = "/model/" + body.Key + "/" + s.Key
			tf = body.Transform
		}
		batch := geometry.InstanceBatch{Transforms: []geometry.Transform{tf}}
		if err := r.LogInstances(instPath, geomPath, batch, false); err != nil {
			return err
		}
	}

	r.model = m
	return r.applyBlueprint()
}

// SetTime moves the timeline cursor for subsequent records.
func (r *Rerun) SetTime(seconds float64) error {
	return r.rr.SetTime(DefaultTimeline, seconds)
}

// BeginFrame positions the frame about to be logged at simTime.
func (r *Rerun) BeginFrame(simTime float64) error {
	return r.SetTime(simTime)
}

// EndFrame closes the current frame. Records stream as they are logged,
// so there is nothing to flush; the hook exists for symmetry with
// BeginFrame in simulation loops.
func (r *Rerun) EndFrame() error { return nil }

// UpdateInstances re-logs the transforms of a known instance entity, e.g.
// once per simulation frame.
func (r *Rerun) UpdateInstances(path string, batch geometry.InstanceBatch) error {
	entry, ok := r.instances[path]
	if !ok {
		return fmt.Errorf("instances %s: not logged", path)
	}
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("instances %s: %w", path, err)
	}
	if err := r.rr.Log(protocol.Record{
		Kind:       protocol.RecordInstances,
		EntityPath: path,
		Instances:  batch.Payload(entry.meshPath),
	}); err != nil {
		return err
	}
	r.instances[path] = instanceEntry{meshPath: entry.meshPath, count: len(batch.Transforms)}
	return nil
}

// applyBlueprint sends the accumulated visibility overrides once.
func (r *Rerun) applyBlueprint() error {
	if r.blueprintApplied {
		return nil
	}

	paths := make([]string, 0, len(r.entityVisibility))
	for p := range r.entityVisibility {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	bp := protocol.Blueprint{
		AppID: r.AppID,
		Views: []protocol.View{{Kind: "spatial3d", Origin: "/"}},
	}
	for _, p := range paths {
		bp.Overrides = append(bp.Overrides, protocol.EntityOverride{
			Path:    p,
			Visible: r.entityVisibility[p],
		})
	}

	if err := r.rr.SendBlueprint(bp); err != nil {
		return fmt.Errorf("send blueprint: %w", err)
	}
	r.blueprintApplied = true
	return nil
}

// Close disconnects the backend. Safe to call more than once.
func (r *Rerun) Close() error {
	if !r.running {
		return nil
	}
	r.running = false
	if r.viewerProc != nil {
		_ = r.viewerProc.Process.Kill()
		r.viewerProc = nil
	}
	return r.rr.Disconnect()
}

func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") || len(path) < 2 {
		return fmt.Errorf("entity path %q must start with / and name an entity", path)
	}
	return nil
}
