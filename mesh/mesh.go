// Package mesh defines the read-only mesh and armature snapshots
// consumed by the exporter. A snapshot is plain data: the host
// application (or a file loader) fills it in once, and the exporter
// never mutates it.
package mesh

import "github.com/meshkit/gltfexport/geom"

// Domain tells which mesh element a custom attribute is stored on.
type Domain int

const (
	DomainCorner Domain = iota // one value per face corner
	DomainPoint                // one value per vertex
	DomainEdge                 // one value per edge
	DomainFace                 // one value per face
)

func (d Domain) String() string {
	switch d {
	case DomainCorner:
		return "corner"
	case DomainPoint:
		return "point"
	case DomainEdge:
		return "edge"
	case DomainFace:
		return "face"
	}
	return "unknown"
}

// Kind is the element type of a custom attribute.
type Kind int

const (
	KindFloat Kind = iota
	KindFloat2
	KindFloat3
	KindFloat4
	KindInt
	KindInt8
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindFloat2:
		return "float2"
	case KindFloat3:
		return "float3"
	case KindFloat4:
		return "float4"
	case KindInt:
		return "int"
	case KindInt8:
		return "int8"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Width returns the number of components per element, or 0 for kinds
// with no fixed numeric layout.
func (k Kind) Width() int {
	switch k {
	case KindFloat, KindInt, KindInt8, KindBool:
		return 1
	case KindFloat2:
		return 2
	case KindFloat3:
		return 3
	case KindFloat4:
		return 4
	}
	return 0
}

// Attribute is a generic per-domain custom attribute layer. Exactly
// one of the value slices is used, chosen by Kind, holding
// Width() components per element of its Domain.
type Attribute struct {
	Name   string
	Domain Domain
	Kind   Kind

	Float []float32
	Int   []int32
	Int8  []int8
	Bool  []bool
}

// UVLayer holds one texture coordinate layer, two floats per corner,
// in the source (V-down) convention.
type UVLayer struct {
	Name string
	UV   []float32
}

// ColorLayer holds one color layer, four floats per corner, linear.
type ColorLayer struct {
	Name  string
	Color []float32
}

// ShapeKey is one morph target in absolute (not delta) form.
type ShapeKey struct {
	Name string
	Mute bool
	// SelfRelative marks a key that is relative to itself; such keys
	// deform nothing and are not exported.
	SelfRelative bool

	Position []float32 // 3 per vertex, absolute positions
	Normal   []float32 // 3 per corner, split normals of the keyed shape
}

// Face references a contiguous run of corners. Corner order defines
// the winding.
type Face struct {
	Start    int // first corner index
	Count    int // number of corners (>= 3 for a polygon)
	Material int // material slot index, -1 for no material
}

// GroupWeight is one vertex-group membership of a vertex.
type GroupWeight struct {
	Group  int // index into Mesh.GroupNames
	Weight float32
}

// Mesh is a snapshot of one mesh in its source coordinate convention
// (Z-up). Per-corner arrays are indexed by corner, per-vertex arrays
// by vertex; CornerVertex maps between the two.
type Mesh struct {
	Name string

	CornerVertex []uint32 // corner -> source vertex index

	Position      []float32 // 3 per vertex
	Normal        []float32 // 3 per corner (split normals), may be nil
	Tangent       []float32 // 3 per corner, may be nil
	BitangentSign []float32 // 1 per corner, +1/-1, may be nil

	UVLayers []UVLayer
	ActiveUV int // index into UVLayers, -1 if none

	ColorLayers []ColorLayer
	RenderColor int // index of the designated render color layer, -1 if none

	Attributes []Attribute

	ShapeKeys []ShapeKey

	GroupNames []string
	Groups     [][]GroupWeight // per vertex, may be nil

	Faces []Face
	Edges [][2]uint32 // all edges, including face edges

	// Matrix is the owner object's world transform.
	Matrix *geom.Matrix4
}

// Armature describes the skin a mesh may be bound to.
type Armature struct {
	// Joints are the skin's joint names in glTF joint-index order.
	Joints []string

	// Matrix is the armature object's world transform.
	Matrix *geom.Matrix4

	// ParentedToOwnBone is set when the mesh owner is parented to a
	// bone of this same armature. Skinning such a mesh would create a
	// self-referential binding cycle, so it must be skipped.
	ParentedToOwnBone bool
}

// VertexCount returns the number of source vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Position) / 3
}

// CornerCount returns the number of face corners.
func (m *Mesh) CornerCount() int {
	return len(m.CornerVertex)
}

// WorldMatrix returns the owner transform, defaulting to identity.
func (m *Mesh) WorldMatrix() *geom.Matrix4 {
	if m.Matrix == nil {
		return geom.NewMatrix4()
	}
	return m.Matrix
}

// WorldMatrix returns the armature transform, defaulting to identity.
func (a *Armature) WorldMatrix() *geom.Matrix4 {
	if a.Matrix == nil {
		return geom.NewMatrix4()
	}
	return a.Matrix
}
