package exporter

// Mode is the glTF primitive topology.
type Mode int

const (
	ModeTriangles Mode = iota
	ModeLines
	ModePoints
)

// NoMaterial marks a primitive without a material slot.
const NoMaterial = -1

// ValueArray is the materialized data of one attribute: Width
// components per output vertex in exactly one of the typed slices.
type ValueArray struct {
	Width int

	F32 []float32
	U16 []uint16
	I32 []int32
	I8  []int8
	B   []bool
}

// Count returns the number of elements in the array.
func (a *ValueArray) Count() int {
	if a.Width == 0 {
		return 0
	}
	switch {
	case a.F32 != nil:
		return len(a.F32) / a.Width
	case a.U16 != nil:
		return len(a.U16) / a.Width
	case a.I32 != nil:
		return len(a.I32) / a.Width
	case a.I8 != nil:
		return len(a.I8) / a.Width
	case a.B != nil:
		return len(a.B) / a.Width
	}
	return 0
}

// AttributeData is one named, index-aligned attribute array of a
// primitive.
type AttributeData struct {
	Name string
	Data ValueArray
}

// Primitive is one output unit: parallel attribute arrays of equal
// element count, an optional index buffer whose values are all below
// that count, a material slot and a topology mode.
type Primitive struct {
	Attributes []AttributeData
	Indices    []uint32 // nil for point clouds
	Material   int      // NoMaterial if unassigned
	Mode       Mode
}

// Attr returns the named attribute array, or nil.
func (p *Primitive) Attr(name string) *ValueArray {
	for i := range p.Attributes {
		if p.Attributes[i].Name == name {
			return &p.Attributes[i].Data
		}
	}
	return nil
}

// VertexCount returns the shared element count of the attribute
// arrays.
func (p *Primitive) VertexCount() int {
	if len(p.Attributes) == 0 {
		return 0
	}
	return p.Attributes[0].Data.Count()
}

// Result is the output of one mesh export call.
type Result struct {
	Primitives []*Primitive

	// TargetNames are the exported shape key names, in morph target
	// order.
	TargetNames []string

	// NeedNeutralJoint is set when at least one vertex had no bone
	// weight: the caller must append a synthetic joint to the skin's
	// joint list before packing buffers.
	NeedNeutralJoint bool

	// JointSets is the number of JOINTS_k/WEIGHTS_k channel pairs.
	JointSets int
}
