package protocol

// Record kinds.
const (
	RecordMesh      = "MESH"
	RecordInstances = "INSTANCES"
	RecordSetTime   = "SET_TIME"
	RecordClear     = "CLEAR"
)

// Record is one entity update on the viewer timeline. Exactly one of the
// kind-specific payload pointers is set, matching Kind.
type Record struct {
	Kind       string `json:"kind"`
	EntityPath string `json:"entity_path,omitempty"`

	Mesh      *MeshPayload     `json:"mesh,omitempty"`
	Instances *InstancePayload `json:"instances,omitempty"`
	Time      *TimePayload     `json:"time,omitempty"`
}

// MeshPayload carries triangle geometry as flat arrays (xyz-interleaved
// positions/normals, 3 indices per triangle).
type MeshPayload struct {
	Positions []float32 `json:"positions"`
	Indices   []uint32  `json:"indices"`
	Normals   []float32 `json:"normals,omitempty"`
}

// InstancePayload references a previously logged mesh and carries one
// transform per instance: position (3), rotation quaternion xyzw (4),
// scale (3), color rgba (4), material params (4), all flat-interleaved.
type InstancePayload struct {
	MeshPath  string    `json:"mesh_path"`
	Count     int       `json:"count"`
	Positions []float32 `json:"positions"`
	Rotations []float32 `json:"rotations,omitempty"`
	Scales    []float32 `json:"scales,omitempty"`
	Colors    []float32 `json:"colors,omitempty"`
	Materials []float32 `json:"materials,omitempty"`
}

// TimePayload moves the timeline cursor for subsequent records.
type TimePayload struct {
	Timeline string  `json:"timeline"`
	Seconds  float64 `json:"seconds"`
}

// Blueprint describes the viewer layout plus per-entity visibility
// overrides accumulated while logging.
type Blueprint struct {
	AppID     string           `json:"app_id"`
	Views     []View           `json:"views"`
	Overrides []EntityOverride `json:"overrides,omitempty"`
}

type View struct {
	Kind   string `json:"kind"`
	Origin string `json:"origin"`
}

type EntityOverride struct {
	Path    string `json:"path"`
	Visible bool   `json:"visible"`
}
